package middleware

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/ozodbek-dev/anonchat-bot/internal/contextkeys"
	"github.com/ozodbek-dev/anonchat-bot/internal/messages"
	"github.com/ozodbek-dev/anonchat-bot/pkg/logger"
	"github.com/ozodbek-dev/anonchat-bot/types"
)

type Middlewares struct {
	store   types.AccountStore
	dialogs types.DialogStore
	log     *logger.Logger
	onNew   func(account *types.Account)
}

func New(store types.AccountStore, dialogs types.DialogStore, log *logger.Logger) *Middlewares {
	return &Middlewares{
		store:   store,
		dialogs: dialogs,
		log:     log,
	}
}

// OnNewAccount registers a hook fired once per freshly created account,
// after the update's own handler had its chance to attach a referrer.
func (m *Middlewares) OnNewAccount(hook func(account *types.Account)) {
	m.onNew = hook
}

// Account resolves (or mints) the sender's account and puts it on the
// context. Updates without an identifiable sender are dropped.
func (m *Middlewares) Account(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		var (
			userID   int64
			chatID   int64
			username string
			name     string
		)

		switch {
		case update.Message != nil && update.Message.From != nil:
			userID = update.Message.From.ID
			chatID = update.Message.Chat.ID
			username = update.Message.From.Username
			name = displayName(update.Message.From)
		case update.CallbackQuery != nil:
			userID = update.CallbackQuery.From.ID
			chatID = getChatIDFromMaybeInaccessibleMessage(update.CallbackQuery.Message)
			username = update.CallbackQuery.From.Username
			name = displayName(&update.CallbackQuery.From)
			if chatID == 0 {
				return
			}
		default:
			return
		}

		if userID == 0 || chatID == 0 {
			return
		}

		_, isNew, err := m.store.GetOrCreate(userID, username, name)
		if err != nil {
			m.log.Error("resolving account: ", err)
			b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID:    chatID,
				Text:      messages.ErrorDefault(),
				ParseMode: messages.ParseModeHTML,
			})
			return
		}

		account, err := m.store.GetAccount(userID)
		if err != nil {
			m.log.Error("loading account: ", err)
			b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID:    chatID,
				Text:      messages.ErrorDefault(),
				ParseMode: messages.ParseModeHTML,
			})
			return
		}

		ctx = contextkeys.WithAccount(ctx, account)
		next(ctx, b, update)

		// Fired after the handler so a /start with a referral payload has
		// already attributed the referrer.
		if isNew && m.onNew != nil {
			m.onNew(account)
		}
	}
}

// DialogState loads the sender's conversation state into the context.
// A load failure is treated as idle rather than dropping the update.
func (m *Middlewares) DialogState(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		account, ok := contextkeys.GetAccount(ctx)
		if !ok {
			next(ctx, b, update)
			return
		}

		state, err := m.dialogs.State(account.UserID)
		if err != nil {
			m.log.Error("loading dialog state: ", err)
			state = nil
		}

		ctx = contextkeys.WithDialogState(ctx, state)
		next(ctx, b, update)
	}
}

func displayName(u *models.User) string {
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	return name
}

func getChatIDFromMaybeInaccessibleMessage(m models.MaybeInaccessibleMessage) int64 {
	if m.Message != nil {
		return m.Message.Chat.ID
	}
	if m.InaccessibleMessage != nil {
		return m.InaccessibleMessage.Chat.ID
	}
	return 0
}
