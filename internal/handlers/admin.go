package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/ozodbek-dev/anonchat-bot/internal/messages"
	"github.com/ozodbek-dev/anonchat-bot/types"
)

func (bh *Handlers) HandleAdminPanel(ctx context.Context, b *bot.Bot, chatID int64, account *types.Account) {
	if !account.IsAdmin {
		bh.sendText(ctx, b, chatID, messages.AdminOnly())
		return
	}

	keyboard := models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "📊 Statistika", CallbackData: "admin:stats"}},
			{{Text: "🚫 Bloklash", CallbackData: "admin:ban"}, {Text: "✅ Blokdan chiqarish", CallbackData: "admin:unban"}},
			{{Text: "📋 Bloklanganlar", CallbackData: "admin:banned"}},
			{{Text: "🔍 Qidirish", CallbackData: "admin:search"}, {Text: "🆕 So'nggilar", CallbackData: "admin:recent"}},
			{{Text: "💬 Faol suhbatlar", CallbackData: "admin:chats"}},
			{{Text: "📢 Xabar yuborish", CallbackData: "admin:broadcast"}},
		},
	}
	bh.sendWithKeyboard(ctx, b, chatID, "🛠 <b>Admin panel</b>", keyboard)
}

func (bh *Handlers) HandleAdminCallback(ctx context.Context, b *bot.Bot, update *models.Update, account *types.Account, data string) {
	chatID := bh.getChatIDFromUpdate(update)
	if !account.IsAdmin {
		_ = bh.answerCallback(ctx, b, update.CallbackQuery.ID, "")
		bh.sendText(ctx, b, chatID, messages.AdminOnly())
		return
	}
	_ = bh.answerCallback(ctx, b, update.CallbackQuery.ID, "")

	switch {
	case data == "admin:stats":
		bh.adminStats(ctx, b, chatID)
	case data == "admin:ban":
		bh.setState(account.UserID, types.StateBanWaitUserID, "")
		bh.sendText(ctx, b, chatID, messages.AdminBanPromptUserID())
	case data == "admin:unban":
		bh.setState(account.UserID, types.StateUnbanWaitUserID, "")
		bh.sendText(ctx, b, chatID, messages.AdminUnbanPromptUserID())
	case data == "admin:banned":
		bh.adminBannedList(ctx, b, chatID)
	case data == "admin:search":
		bh.setState(account.UserID, types.StateSearchWaitUserID, "")
		bh.sendText(ctx, b, chatID, messages.AdminSearchPromptUserID())
	case data == "admin:recent":
		bh.adminRecentUsers(ctx, b, chatID)
	case data == "admin:broadcast":
		bh.setState(account.UserID, types.StateBroadcastCompose, "")
		bh.sendText(ctx, b, chatID, messages.AdminBroadcastPrompt())
	case data == "admin:chats":
		bh.adminActiveChats(ctx, b, chatID)
	case strings.HasPrefix(data, "admin:unban:"):
		bh.adminUnban(ctx, b, chatID, account, strings.TrimPrefix(data, "admin:unban:"))
	case strings.HasPrefix(data, "admin:endchat:"):
		bh.adminEndChat(ctx, b, chatID, account, strings.TrimPrefix(data, "admin:endchat:"))
	case strings.HasPrefix(data, "admin:user:"):
		bh.adminUserInfo(ctx, b, chatID, strings.TrimPrefix(data, "admin:user:"))
	case strings.HasPrefix(data, "admin:banuser:"):
		userID := strings.TrimPrefix(data, "admin:banuser:")
		if _, err := strconv.ParseInt(userID, 10, 64); err != nil {
			bh.sendText(ctx, b, chatID, messages.AdminInvalidUserID())
			return
		}
		bh.setState(account.UserID, types.StateBanWaitDuration, userID)
		bh.sendText(ctx, b, chatID, messages.AdminBanPromptDuration())
	}
}

func (bh *Handlers) adminStats(ctx context.Context, b *bot.Bot, chatID int64) {
	total, premium, err := bh.store.CountAccounts()
	if err != nil {
		bh.log.Error("counting accounts: ", err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}
	banned, err := bh.store.BannedCount()
	if err != nil {
		bh.log.Error("counting bans: ", err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}
	queued, err := bh.store.QueueLen()
	if err != nil {
		bh.log.Error("counting queue: ", err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}
	sessions, err := bh.store.ActiveSessions()
	if err != nil {
		bh.log.Error("listing sessions: ", err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}

	bh.sendText(ctx, b, chatID, messages.AdminStats(total, premium, banned, queued, len(sessions)))
}

func (bh *Handlers) adminBannedList(ctx context.Context, b *bot.Bot, chatID int64) {
	banned, err := bh.store.BannedUsers()
	if err != nil {
		bh.log.Error("listing bans: ", err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}
	if len(banned) == 0 {
		bh.sendText(ctx, b, chatID, "📋 Bloklangan foydalanuvchilar yo'q.")
		return
	}

	var sb strings.Builder
	sb.WriteString("📋 <b>Bloklanganlar</b>\n")
	rows := make([][]models.InlineKeyboardButton, 0, len(banned))
	for _, bu := range banned {
		name := bu.Name
		if name == "" {
			name = strconv.FormatInt(bu.UserID, 10)
		}
		fmt.Fprintf(&sb, "\n👤 %s — <code>%d</code>\n⏰ %s\n",
			messages.Escape(name), bu.UserID, bu.MutedUntil.Format("02.01.2006 15:04"))
		if reason := strings.TrimSpace(bu.Reason); reason != "" {
			fmt.Fprintf(&sb, "📝 %s\n", messages.Escape(reason))
		}
		rows = append(rows, []models.InlineKeyboardButton{{
			Text:         fmt.Sprintf("✅ %d", bu.UserID),
			CallbackData: fmt.Sprintf("admin:unban:%d", bu.UserID),
		}})
	}

	bh.sendWithKeyboard(ctx, b, chatID, sb.String(), models.InlineKeyboardMarkup{InlineKeyboard: rows})
}

func (bh *Handlers) adminActiveChats(ctx context.Context, b *bot.Bot, chatID int64) {
	sessions, err := bh.store.ActiveSessions()
	if err != nil {
		bh.log.Error("listing sessions: ", err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}
	if len(sessions) == 0 {
		bh.sendText(ctx, b, chatID, "💬 Faol suhbatlar yo'q.")
		return
	}

	var sb strings.Builder
	sb.WriteString("💬 <b>Faol suhbatlar</b>\n")
	rows := make([][]models.InlineKeyboardButton, 0, len(sessions))
	for _, s := range sessions {
		count, err := bh.store.ChatMessageCount(s.User1ID, s.User2ID)
		if err != nil {
			bh.log.Error("counting chat messages: ", err)
			count = 0
		}
		fmt.Fprintf(&sb, "\n#%d: %s ↔ %s\n✉️ %d ta xabar, boshlangan %s\n",
			s.SessionID, messages.Escape(s.User1Name), messages.Escape(s.User2Name),
			count, s.CreatedAt.Format("02.01.2006 15:04"))
		rows = append(rows, []models.InlineKeyboardButton{{
			Text:         fmt.Sprintf("⛔ #%d ni tugatish", s.SessionID),
			CallbackData: fmt.Sprintf("admin:endchat:%d", s.SessionID),
		}})
	}

	bh.sendWithKeyboard(ctx, b, chatID, sb.String(), models.InlineKeyboardMarkup{InlineKeyboard: rows})
}

func (bh *Handlers) adminUserInfo(ctx context.Context, b *bot.Bot, chatID int64, raw string) {
	userID, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		bh.sendText(ctx, b, chatID, messages.AdminInvalidUserID())
		return
	}

	account, err := bh.store.GetAccount(userID)
	if errors.Is(err, types.ErrNotFound) {
		bh.sendText(ctx, b, chatID, messages.AdminUserNotFound())
		return
	}
	if err != nil {
		bh.log.Error("loading account: ", err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}

	banned, until, err := bh.store.CheckBan(userID)
	if err != nil {
		bh.log.Error("checking ban: ", err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}
	_, err = bh.store.Partner(userID)
	inChat := err == nil

	rows := make([][]models.InlineKeyboardButton, 0, 1)
	if banned {
		rows = append(rows, []models.InlineKeyboardButton{{
			Text:         "✅ Blokdan chiqarish",
			CallbackData: fmt.Sprintf("admin:unban:%d", userID),
		}})
	} else {
		rows = append(rows, []models.InlineKeyboardButton{{
			Text:         "🚫 Bloklash",
			CallbackData: fmt.Sprintf("admin:banuser:%d", userID),
		}})
	}

	bh.sendWithKeyboard(ctx, b, chatID, messages.AdminUserInfo(account, banned, until, inChat),
		models.InlineKeyboardMarkup{InlineKeyboard: rows})
}

func (bh *Handlers) adminRecentUsers(ctx context.Context, b *bot.Bot, chatID int64) {
	accounts, err := bh.store.RecentAccounts(10)
	if err != nil {
		bh.log.Error("listing recent accounts: ", err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}
	if len(accounts) == 0 {
		bh.sendText(ctx, b, chatID, messages.AdminNoUsers())
		return
	}

	var sb strings.Builder
	sb.WriteString(messages.AdminRecentUsersHeader())
	rows := make([][]models.InlineKeyboardButton, 0, len(accounts))
	for _, a := range accounts {
		name := a.Name
		if name == "" {
			name = strconv.FormatInt(a.UserID, 10)
		}
		fmt.Fprintf(&sb, "\n🆔 <code>%d</code> | %s | %s\n",
			a.UserID, messages.Escape(name), a.CreatedAt.Format("02.01.2006 15:04"))
		rows = append(rows, []models.InlineKeyboardButton{{
			Text:         "👤 " + name,
			CallbackData: fmt.Sprintf("admin:user:%d", a.UserID),
		}})
	}

	bh.sendWithKeyboard(ctx, b, chatID, sb.String(), models.InlineKeyboardMarkup{InlineKeyboard: rows})
}

func (bh *Handlers) adminUnban(ctx context.Context, b *bot.Bot, chatID int64, account *types.Account, raw string) {
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		bh.sendText(ctx, b, chatID, messages.AdminInvalidUserID())
		return
	}

	removed, err := bh.store.Unban(userID)
	if err != nil {
		bh.log.Error("unbanning: ", err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}
	if removed {
		bh.logAdminAction(account.UserID, "unban", strconv.FormatInt(userID, 10))
	}
	bh.sendText(ctx, b, chatID, messages.AdminUnbanDone(userID, removed))
}

func (bh *Handlers) adminEndChat(ctx context.Context, b *bot.Bot, chatID int64, account *types.Account, raw string) {
	sessionID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}

	user1ID, user2ID, err := bh.store.EndSessionByID(sessionID)
	if err != nil {
		bh.log.Error("ending session: ", err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}

	bh.clearState(user1ID)
	bh.clearState(user2ID)
	bh.sendText(ctx, b, user1ID, messages.ChatEndedByAdmin())
	bh.sendText(ctx, b, user2ID, messages.ChatEndedByAdmin())

	bh.logAdminAction(account.UserID, "end_chat", strconv.FormatInt(sessionID, 10))
	bh.sendText(ctx, b, chatID, fmt.Sprintf("✅ #%d suhbat tugatildi.", sessionID))
}

// HandleAdminInput walks the multi-step admin flows driven by dialog state.
func (bh *Handlers) HandleAdminInput(ctx context.Context, b *bot.Bot, update *models.Update, account *types.Account, state *types.DialogState) {
	chatID := update.Message.Chat.ID
	if !account.IsAdmin {
		bh.clearState(account.UserID)
		bh.sendText(ctx, b, chatID, messages.AdminOnly())
		return
	}
	input := strings.TrimSpace(update.Message.Text)

	switch state.Name {
	case types.StateBanWaitUserID:
		userID, err := strconv.ParseInt(input, 10, 64)
		if err != nil {
			bh.sendText(ctx, b, chatID, messages.AdminInvalidUserID())
			return
		}
		bh.setState(account.UserID, types.StateBanWaitDuration, strconv.FormatInt(userID, 10))
		bh.sendText(ctx, b, chatID, messages.AdminBanPromptDuration())

	case types.StateBanWaitDuration:
		minutes, err := strconv.Atoi(input)
		if err != nil || minutes <= 0 {
			bh.sendText(ctx, b, chatID, messages.AdminInvalidDuration())
			return
		}
		bh.setState(account.UserID, types.StateBanWaitReason, state.Payload+"|"+strconv.Itoa(minutes))
		bh.sendText(ctx, b, chatID, messages.AdminBanPromptReason())

	case types.StateBanWaitReason:
		parts := strings.SplitN(state.Payload, "|", 2)
		if len(parts) != 2 {
			bh.clearState(account.UserID)
			bh.sendText(ctx, b, chatID, messages.ErrorDefault())
			return
		}
		userID, _ := strconv.ParseInt(parts[0], 10, 64)
		minutes, _ := strconv.Atoi(parts[1])
		reason := input
		if reason == "-" {
			reason = ""
		}

		duration := time.Duration(minutes) * time.Minute
		if err := bh.store.Ban(userID, duration, reason); err != nil {
			bh.log.Error("banning: ", err)
			bh.clearState(account.UserID)
			bh.sendText(ctx, b, chatID, messages.ErrorDefault())
			return
		}

		until := time.Now().Add(duration)
		bh.clearState(account.UserID)
		bh.logAdminAction(account.UserID, "ban", fmt.Sprintf("%d for %dm: %s", userID, minutes, reason))
		bh.sendText(ctx, b, userID, messages.Banned(until, reason))
		bh.sendText(ctx, b, chatID, messages.AdminBanDone(userID, until))

	case types.StateUnbanWaitUserID:
		bh.clearState(account.UserID)
		bh.adminUnban(ctx, b, chatID, account, input)

	case types.StateSearchWaitUserID:
		bh.clearState(account.UserID)
		bh.adminUserInfo(ctx, b, chatID, input)

	case types.StateBroadcastCompose:
		bh.clearState(account.UserID)
		ids, err := bh.store.AllIDs()
		if err != nil {
			bh.log.Error("listing user ids: ", err)
			bh.sendText(ctx, b, chatID, messages.ErrorDefault())
			return
		}
		sent := bh.caster.SendAll(ids, messages.Escape(input))
		bh.logAdminAction(account.UserID, "broadcast", fmt.Sprintf("%d recipients", sent))
		bh.sendText(ctx, b, chatID, messages.AdminBroadcastQueued(sent))
	}
}

func (bh *Handlers) logAdminAction(adminID int64, action, details string) {
	if err := bh.store.LogAdminAction(adminID, action, details); err != nil {
		bh.log.Error("logging admin action: ", err)
	}
}
