package handlers

import (
	"context"
	"errors"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/ozodbek-dev/anonchat-bot/internal/messages"
	"github.com/ozodbek-dev/anonchat-bot/types"
)

// HandleFindChat puts the user into the waiting queue and tries to match
// immediately. When nobody is waiting the user stays queued and the next
// seeker completes the pair.
func (bh *Handlers) HandleFindChat(ctx context.Context, b *bot.Bot, chatID int64, account *types.Account) {
	if bh.checkBanned(ctx, b, chatID, account.UserID) {
		return
	}

	err := bh.store.JoinQueue(account.UserID)
	switch {
	case errors.Is(err, types.ErrAlreadyInChat):
		bh.sendText(ctx, b, chatID, messages.ChatAlreadyActive())
		return
	case errors.Is(err, types.ErrAlreadyInQueue):
		bh.sendText(ctx, b, chatID, messages.ChatAlreadyQueued())
		return
	case err != nil:
		bh.log.Error("joining queue: ", err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}

	partnerID, err := bh.store.Match(account.UserID)
	switch {
	case errors.Is(err, types.ErrNoPartner):
		bh.sendText(ctx, b, chatID, messages.ChatSearching())
		return
	case errors.Is(err, types.ErrNotInQueue):
		// Another seeker matched us between the join and our own attempt.
		partnerID, err = bh.store.Partner(account.UserID)
		if err != nil {
			bh.sendText(ctx, b, chatID, messages.ChatSearching())
			return
		}
	case err != nil:
		bh.log.Error("matching: ", err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}

	bh.setState(account.UserID, types.StateInChat, "")
	bh.setState(partnerID, types.StateInChat, "")

	bh.sendText(ctx, b, chatID, messages.ChatFound())
	bh.sendText(ctx, b, partnerID, messages.ChatFound())
}

// HandleEndChat tears down the active session from either side; with no
// session it just drops a possible queue entry.
func (bh *Handlers) HandleEndChat(ctx context.Context, b *bot.Bot, chatID int64, account *types.Account) {
	ended, partnerID, err := bh.store.End(account.UserID)
	if err != nil {
		bh.log.Error("ending chat: ", err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}

	if !ended {
		if err := bh.store.LeaveQueue(account.UserID); err != nil {
			bh.log.Error("leaving queue: ", err)
		}
		bh.clearState(account.UserID)
		bh.sendText(ctx, b, chatID, messages.ChatNotActive())
		return
	}

	bh.clearState(account.UserID)
	bh.clearState(partnerID)

	bh.sendText(ctx, b, chatID, messages.ChatEnded())
	bh.sendText(ctx, b, partnerID, messages.ChatPartnerLeft())
}

// HandleChatRelay copies the message to the partner. CopyMessage keeps the
// sender anonymous: the copy carries no forward header.
func (bh *Handlers) HandleChatRelay(ctx context.Context, b *bot.Bot, update *models.Update, account *types.Account) {
	chatID := update.Message.Chat.ID

	partnerID, err := bh.store.Partner(account.UserID)
	if errors.Is(err, types.ErrNotFound) {
		bh.clearState(account.UserID)
		bh.sendText(ctx, b, chatID, messages.ChatNotActive())
		return
	}
	if err != nil {
		bh.log.Error("resolving partner: ", err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}

	if _, err := b.CopyMessage(ctx, &bot.CopyMessageParams{
		ChatID:     partnerID,
		FromChatID: chatID,
		MessageID:  update.Message.ID,
	}); err != nil {
		bh.log.Errorf("relaying to %d: %v", partnerID, err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}

	text := update.Message.Text
	if text == "" {
		text = update.Message.Caption
	}
	if err := bh.store.LogMessage(account.UserID, partnerID, text); err != nil {
		bh.log.Error("logging message: ", err)
	}
}
