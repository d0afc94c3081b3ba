package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/ozodbek-dev/anonchat-bot/internal/messages"
	"github.com/ozodbek-dev/anonchat-bot/types"
)

const referralPayloadPrefix = "ref_"

// HandleStart serves three entries: a bare /start (show the personal link),
// a referral deep link, and an anonymous-question deep link with someone
// else's token.
func (bh *Handlers) HandleStart(ctx context.Context, b *bot.Bot, chatID int64, account *types.Account, payload string) {
	payload = strings.TrimSpace(payload)

	if strings.HasPrefix(payload, referralPayloadPrefix) {
		code := strings.TrimPrefix(payload, referralPayloadPrefix)
		if _, err := bh.referrals.Attribute(account.UserID, code); err != nil {
			bh.log.Error("referral attribution: ", err)
		}
		bh.sendText(ctx, b, chatID, messages.StartWelcome(bh.startLink(account.Token)))
		return
	}

	if payload != "" && payload != account.Token {
		targetID, err := bh.store.ResolveByToken(payload)
		if errors.Is(err, types.ErrNotFound) {
			bh.sendText(ctx, b, chatID, messages.TargetNotFound())
			return
		}
		if err != nil {
			bh.log.Error("resolving token: ", err)
			bh.sendText(ctx, b, chatID, messages.ErrorDefault())
			return
		}

		target, err := bh.store.GetAccount(targetID)
		if err != nil || target.IsHidden {
			bh.sendText(ctx, b, chatID, messages.TargetNotFound())
			return
		}

		bh.setState(account.UserID, types.StateWaitingQuestion, strconv.FormatInt(targetID, 10))
		bh.sendText(ctx, b, chatID, messages.AskQuestion())
		return
	}

	bh.sendText(ctx, b, chatID, messages.StartWelcome(bh.startLink(account.Token)))
}

// HandleQuestion delivers the pending anonymous question to the link owner.
func (bh *Handlers) HandleQuestion(ctx context.Context, b *bot.Bot, update *models.Update, account *types.Account, state *types.DialogState) {
	chatID := update.Message.Chat.ID

	if bh.checkBanned(ctx, b, chatID, account.UserID) {
		bh.clearState(account.UserID)
		return
	}

	targetID, err := strconv.ParseInt(state.Payload, 10, 64)
	if err != nil {
		bh.clearState(account.UserID)
		bh.sendText(ctx, b, chatID, messages.TargetNotFound())
		return
	}

	text := strings.TrimSpace(update.Message.Text)
	if text == "" {
		bh.sendText(ctx, b, chatID, messages.AskQuestion())
		return
	}

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    targetID,
		Text:      messages.IncomingQuestion(text),
		ParseMode: messages.ParseModeHTML,
	}); err != nil {
		bh.log.Errorf("delivering question to %d: %v", targetID, err)
		bh.clearState(account.UserID)
		bh.sendText(ctx, b, chatID, messages.TargetNotFound())
		return
	}

	if err := bh.store.LogMessage(account.UserID, targetID, text); err != nil {
		bh.log.Error("logging message: ", err)
	}

	bh.clearState(account.UserID)
	bh.sendText(ctx, b, chatID, messages.QuestionSent())
}

func (bh *Handlers) HandleBalance(ctx context.Context, b *bot.Bot, chatID int64, account *types.Account) {
	balance, totalDeposited, err := bh.store.Balance(account.UserID)
	if err != nil {
		bh.log.Error("loading balance: ", err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}

	keyboard := models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "🎁 Referral", CallbackData: "topup:referral"}},
		},
	}
	bh.sendWithKeyboard(ctx, b, chatID, messages.BalanceInfo(balance, totalDeposited), keyboard)
}

func (bh *Handlers) HandleReferralInfo(ctx context.Context, b *bot.Bot, chatID int64, account *types.Account) {
	code, err := bh.referrals.EnsureCode(account.UserID)
	if err != nil {
		bh.log.Error("ensuring referral code: ", err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}

	stats, err := bh.referrals.Stats(account.UserID)
	if err != nil {
		bh.log.Error("loading referral stats: ", err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}

	link := bh.startLink(referralPayloadPrefix + code)
	bh.sendText(ctx, b, chatID, messages.ReferralInfo(code, link, stats))
}

func (bh *Handlers) HandlePremium(ctx context.Context, b *bot.Bot, chatID int64, account *types.Account) {
	sub, err := bh.billing.CurrentSubscription(account.UserID)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		bh.log.Error("loading subscription: ", err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}
	if sub != nil && sub.ActiveAt(time.Now()) {
		if account.IsHidden {
			bh.sendText(ctx, b, chatID, messages.PremiumActive(sub))
			return
		}
		keyboard := models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{
				{{Text: "🙈 Havolani yashirish", CallbackData: "premium:hide"}},
			},
		}
		bh.sendWithKeyboard(ctx, b, chatID, messages.PremiumActive(sub), keyboard)
		return
	}

	balance, _, err := bh.store.Balance(account.UserID)
	if err != nil {
		bh.log.Error("loading balance: ", err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}

	bh.sendWithKeyboard(ctx, b, chatID, messages.PremiumInactive(balance), bh.planKeyboard())
}

func (bh *Handlers) planKeyboard() models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, 4)
	for _, plan := range []types.Plan{types.PlanOneMonth, types.PlanThreeMonths, types.PlanSixMonths, types.PlanOneYear} {
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: messages.PlanButton(plan), CallbackData: "premium:buy:" + string(plan)},
		})
	}
	return models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func (bh *Handlers) HandlePurchase(ctx context.Context, b *bot.Bot, update *models.Update, account *types.Account, planData string) {
	chatID := bh.getChatIDFromUpdate(update)
	plan := types.Plan(planData)

	result, err := bh.billing.Purchase(account.UserID, plan)
	switch {
	case errors.Is(err, types.ErrInvalidPlan):
		_ = bh.answerCallback(ctx, b, update.CallbackQuery.ID, "")
		return
	case errors.Is(err, types.ErrInsufficientBalance):
		_ = bh.answerCallback(ctx, b, update.CallbackQuery.ID, "")
		balance, _, berr := bh.store.Balance(account.UserID)
		if berr != nil {
			balance = account.Balance
		}
		bh.sendText(ctx, b, chatID, messages.InsufficientBalance(plan, balance))
		return
	case err != nil:
		bh.log.Errorf("purchase for %d: %v", account.UserID, err)
		_ = bh.answerCallback(ctx, b, update.CallbackQuery.ID, "")
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}

	_ = bh.answerCallback(ctx, b, update.CallbackQuery.ID, "")
	bh.sendText(ctx, b, chatID, messages.PurchaseSucceeded(result.Plan, result.Price, result.Remaining))
}

// HandleHideLink is premium-gated by the store, not here: the stored flag
// decides, even when the window has lapsed.
func (bh *Handlers) HandleHideLink(ctx context.Context, b *bot.Bot, update *models.Update, account *types.Account) {
	chatID := bh.getChatIDFromUpdate(update)
	_ = bh.answerCallback(ctx, b, update.CallbackQuery.ID, "")

	err := bh.store.SetHidden(account.UserID)
	switch {
	case errors.Is(err, types.ErrNotPremium):
		bh.sendText(ctx, b, chatID, messages.HiddenRequiresPremium())
		return
	case err != nil:
		bh.log.Error("hiding link: ", err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}

	bh.sendText(ctx, b, chatID, messages.HiddenEnabled())
}
