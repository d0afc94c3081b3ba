package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/ozodbek-dev/anonchat-bot/internal/billing"
	"github.com/ozodbek-dev/anonchat-bot/internal/broadcast"
	"github.com/ozodbek-dev/anonchat-bot/internal/contextkeys"
	"github.com/ozodbek-dev/anonchat-bot/internal/messages"
	"github.com/ozodbek-dev/anonchat-bot/internal/referral"
	"github.com/ozodbek-dev/anonchat-bot/pkg/logger"
	"github.com/ozodbek-dev/anonchat-bot/types"
)

type Handlers struct {
	store     types.Store
	dialogs   types.DialogStore
	caster    *broadcast.Broadcaster
	billing   *billing.Service
	referrals *referral.Engine
	log       *logger.Logger
	botName   string
}

func NewHandlers(
	store types.Store,
	dialogs types.DialogStore,
	caster *broadcast.Broadcaster,
	billingService *billing.Service,
	referrals *referral.Engine,
	log *logger.Logger,
	botName string,
) *Handlers {
	return &Handlers{
		store:     store,
		dialogs:   dialogs,
		caster:    caster,
		billing:   billingService,
		referrals: referrals,
		log:       log,
		botName:   botName,
	}
}

func (bh *Handlers) MainHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	account, ok := contextkeys.GetAccount(ctx)
	if !ok {
		return
	}

	switch {
	case update.CallbackQuery != nil:
		bh.HandleCallback(ctx, b, update, account)
	case update.Message != nil && strings.HasPrefix(update.Message.Text, "/"):
		bh.HandleCommand(ctx, b, update, account)
	case update.Message != nil:
		bh.HandleMessage(ctx, b, update, account)
	}
}

func (bh *Handlers) HandleCommand(ctx context.Context, b *bot.Bot, update *models.Update, account *types.Account) {
	chatID := update.Message.Chat.ID
	fields := strings.Fields(update.Message.Text)
	if len(fields) == 0 {
		return
	}
	cmd := fields[0]
	if strings.Contains(cmd, "@") {
		cmd = strings.SplitN(cmd, "@", 2)[0]
	}

	// Any command abandons an in-flight admin or question flow; an active
	// chat survives so /end_chat and the relay keep working.
	if state := contextkeys.GetDialogState(ctx); state != nil && state.Name != types.StateInChat {
		if err := bh.dialogs.ClearState(account.UserID); err != nil {
			bh.log.Error("clearing dialog state: ", err)
		}
	}

	switch cmd {
	case "/start":
		payload := ""
		if len(fields) > 1 {
			payload = fields[1]
		}
		bh.HandleStart(ctx, b, chatID, account, payload)
	case "/help":
		bh.sendText(ctx, b, chatID, messages.Help())
	case "/find_chat":
		bh.HandleFindChat(ctx, b, chatID, account)
	case "/end_chat":
		bh.HandleEndChat(ctx, b, chatID, account)
	case "/balance":
		bh.HandleBalance(ctx, b, chatID, account)
	case "/premium":
		bh.HandlePremium(ctx, b, chatID, account)
	case "/admin":
		bh.HandleAdminPanel(ctx, b, chatID, account)
	default:
		bh.sendText(ctx, b, chatID, messages.UnknownCommand())
	}
}

// HandleMessage routes a plain message by the sender's dialog state.
func (bh *Handlers) HandleMessage(ctx context.Context, b *bot.Bot, update *models.Update, account *types.Account) {
	state := contextkeys.GetDialogState(ctx)
	if state == nil {
		bh.sendText(ctx, b, update.Message.Chat.ID, messages.Help())
		return
	}

	switch state.Name {
	case types.StateWaitingQuestion:
		bh.HandleQuestion(ctx, b, update, account, state)
	case types.StateInChat:
		bh.HandleChatRelay(ctx, b, update, account)
	case types.StateBanWaitUserID, types.StateBanWaitDuration, types.StateBanWaitReason,
		types.StateUnbanWaitUserID, types.StateSearchWaitUserID, types.StateBroadcastCompose:
		bh.HandleAdminInput(ctx, b, update, account, state)
	default:
		bh.sendText(ctx, b, update.Message.Chat.ID, messages.Help())
	}
}

func (bh *Handlers) HandleCallback(ctx context.Context, b *bot.Bot, update *models.Update, account *types.Account) {
	chatID := bh.getChatIDFromUpdate(update)
	if chatID == 0 {
		_ = bh.answerCallback(ctx, b, update.CallbackQuery.ID, "")
		return
	}
	data := strings.TrimSpace(update.CallbackQuery.Data)

	switch {
	case strings.HasPrefix(data, "premium:buy:"):
		bh.HandlePurchase(ctx, b, update, account, strings.TrimPrefix(data, "premium:buy:"))
	case data == "premium:hide":
		bh.HandleHideLink(ctx, b, update, account)
	case data == "topup:referral":
		_ = bh.answerCallback(ctx, b, update.CallbackQuery.ID, "")
		bh.HandleReferralInfo(ctx, b, chatID, account)
	case strings.HasPrefix(data, "admin:"):
		bh.HandleAdminCallback(ctx, b, update, account, data)
	default:
		_ = bh.answerCallback(ctx, b, update.CallbackQuery.ID, "")
	}
}

func (bh *Handlers) sendText(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: messages.ParseModeHTML,
	})
	if err != nil {
		bh.log.Error("sending message: ", err)
	}
}

func (bh *Handlers) sendWithKeyboard(ctx context.Context, b *bot.Bot, chatID int64, text string, keyboard models.InlineKeyboardMarkup) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   messages.ParseModeHTML,
		ReplyMarkup: &keyboard,
	})
	if err != nil {
		bh.log.Error("sending message: ", err)
	}
}

func (bh *Handlers) answerCallback(ctx context.Context, b *bot.Bot, callbackID, text string) error {
	_, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	})
	return err
}

func (bh *Handlers) getChatIDFromUpdate(update *models.Update) int64 {
	if update == nil {
		return 0
	}
	if update.Message != nil {
		return update.Message.Chat.ID
	}
	if update.CallbackQuery != nil {
		if update.CallbackQuery.Message.Message != nil {
			return update.CallbackQuery.Message.Message.Chat.ID
		}
		if update.CallbackQuery.Message.InaccessibleMessage != nil {
			return update.CallbackQuery.Message.InaccessibleMessage.Chat.ID
		}
	}
	return 0
}

func (bh *Handlers) startLink(payload string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", bh.botName, payload)
}

func (bh *Handlers) setState(userID int64, name types.StateName, payload string) {
	if err := bh.dialogs.SetState(userID, &types.DialogState{Name: name, Payload: payload}); err != nil {
		bh.log.Error("setting dialog state: ", err)
	}
}

func (bh *Handlers) clearState(userID int64) {
	if err := bh.dialogs.ClearState(userID); err != nil {
		bh.log.Error("clearing dialog state: ", err)
	}
}

// checkBanned enforces a live ban and tells the user when it ends.
func (bh *Handlers) checkBanned(ctx context.Context, b *bot.Bot, chatID, userID int64) bool {
	banned, until, err := bh.store.CheckBan(userID)
	if err != nil {
		bh.log.Error("checking ban: ", err)
		return false
	}
	if banned && until != nil {
		bh.sendText(ctx, b, chatID, messages.Banned(*until, ""))
		return true
	}
	return banned
}
