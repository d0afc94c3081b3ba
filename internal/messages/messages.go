package messages

import (
	"fmt"
	"strings"
	"time"

	"github.com/ozodbek-dev/anonchat-bot/types"
)

const ParseModeHTML = "HTML"

const timeLayout = "02.01.2006 15:04"

func Escape(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&#39;",
	)
	return replacer.Replace(strings.TrimSpace(s))
}

func ErrorDefault() string {
	return "🚫 <b>Xatolik yuz berdi</b>\nIltimos, qayta urinib ko'ring."
}

func StartWelcome(link string) string {
	return "👋 <b>Assalomu alaykum!</b>\n\n" +
		"Bu bot orqali sizga anonim savollar yuborishlari mumkin.\n\n" +
		"🔗 <b>Sizning havolangiz:</b>\n<code>" + Escape(link) + "</code>\n\n" +
		"📤 Havolani do'stlaringizga ulashing va anonim savollar oling!"
}

func AskQuestion() string {
	return "✍️ <b>Anonim savolingizni yozing</b>\nXabaringiz egasiga anonim tarzda yetkaziladi."
}

func QuestionSent() string {
	return "✅ <b>Xabaringiz yuborildi!</b>\nJavobni kutib qoling."
}

func IncomingQuestion(text string) string {
	return "📨 <b>Sizga yangi anonim xabar keldi:</b>\n\n" + Escape(text)
}

func TargetNotFound() string {
	return "🚫 <b>Foydalanuvchi topilmadi</b>\nHavola eskirgan bo'lishi mumkin."
}

func Banned(until time.Time, reason string) string {
	msg := fmt.Sprintf("🚫 <b>Siz bloklangansiz</b>\n⏰ Muddati: <code>%s</code>", until.Format(timeLayout))
	if r := strings.TrimSpace(reason); r != "" {
		msg += "\n📝 Sabab: " + Escape(r)
	}
	return msg
}

// Chat texts

func ChatSearching() string {
	return "🔍 <b>Suhbatdosh qidirilmoqda...</b>\nTopilgach, darhol xabar beramiz."
}

func ChatFound() string {
	return "🎉 <b>Suhbatdosh topildi!</b>\nXabarlaringiz anonim tarzda yetkaziladi.\n\n/end_chat — suhbatni tugatish"
}

func ChatEnded() string {
	return "👋 <b>Suhbat tugatildi</b>"
}

func ChatPartnerLeft() string {
	return "😔 <b>Suhbatdoshingiz suhbatni tark etdi</b>"
}

func ChatAlreadyActive() string {
	return "⚠️ <b>Siz allaqachon suhbatdasiz</b>\nAvval /end_chat bilan suhbatni tugating."
}

func ChatAlreadyQueued() string {
	return "⏳ <b>Siz allaqachon navbatdasiz</b>\nSuhbatdosh topilishini kuting."
}

func ChatNotActive() string {
	return "ℹ️ Sizda faol suhbat yo'q. /find_chat bilan suhbatdosh toping."
}

func ChatEndedByAdmin() string {
	return "⚠️ <b>Suhbat administrator tomonidan tugatildi</b>"
}

// Balance / premium texts

func BalanceInfo(balance, totalDeposited float64) string {
	return fmt.Sprintf(
		"💰 <b>Balans ma'lumotlari</b>\n\n"+
			"💵 Joriy balans: <code>%.2f so'm</code>\n"+
			"📈 Jami to'ldirilgan: <code>%.2f so'm</code>",
		balance, totalDeposited)
}

func PremiumActive(sub *types.Subscription) string {
	return fmt.Sprintf(
		"⭐ <b>Premium faol</b>\n\n"+
			"📦 Plan: <code>%s</code>\n"+
			"📅 Boshlanish: <code>%s</code>\n"+
			"⏰ Tugash: <code>%s</code>",
		Escape(sub.Plan.Title()), sub.StartDate.Format(timeLayout), sub.EndDate.Format(timeLayout))
}

func PremiumInactive(balance float64) string {
	return fmt.Sprintf(
		"⭐ <b>Premium obuna</b>\n\n"+
			"Sizda faol obuna yo'q.\n"+
			"💵 Joriy balans: <code>%.2f so'm</code>",
		balance)
}

func PlanButton(plan types.Plan) string {
	return fmt.Sprintf("%s — %.0f so'm", plan.Title(), plan.Price())
}

func PurchaseSucceeded(plan types.Plan, price, remaining float64) string {
	return fmt.Sprintf(
		"✅ <b>Premium faollashtirildi!</b>\n\n"+
			"📦 Plan: <code>%s</code>\n"+
			"💰 To'langan: <code>%.2f so'm</code>\n"+
			"💵 Qolgan balans: <code>%.2f so'm</code>",
		Escape(plan.Title()), price, remaining)
}

func InsufficientBalance(plan types.Plan, balance float64) string {
	price := plan.Price()
	return fmt.Sprintf(
		"⚠️ <b>Balans yetarli emas</b>\n\n"+
			"📦 Tanlangan plan: <code>%s</code>\n"+
			"💰 Narx: <code>%.2f so'm</code>\n"+
			"💵 Joriy balans: <code>%.2f so'm</code>\n"+
			"❌ Yetishmaydi: <code>%.2f so'm</code>\n\n"+
			"💡 Balansni to'ldirish uchun do'stlaringizni taklif qiling.",
		Escape(plan.Title()), price, balance, price-balance)
}

func HiddenEnabled() string {
	return "🙈 <b>Havolangiz yashirildi</b>\nEndi sizga yangi anonim xabarlar kelmaydi."
}

func HiddenRequiresPremium() string {
	return "⭐ Bu imkoniyat faqat premium obunachilar uchun. /premium"
}

// Referral texts

func ReferralBonus(balance float64) string {
	return fmt.Sprintf(
		"🎉 <b>Referral bonus!</b>\n\n"+
			"✅ Sizning taklif havolangiz orqali yangi foydalanuvchi qo'shildi.\n"+
			"💰 Balansingizga <b>+%.0f so'm</b> qo'shildi!\n\n"+
			"💵 Joriy balans: <code>%.2f so'm</code>",
		types.ReferralBonus, balance)
}

func ReferralInfo(code, link string, stats *types.ReferralStats) string {
	return fmt.Sprintf(
		"🎁 <b>Referral tizimi</b>\n\n"+
			"📝 Kodingiz: <code>%s</code>\n"+
			"🔗 Havola:\n<code>%s</code>\n\n"+
			"👥 Takliflar: <code>%d</code>\n"+
			"💰 Daromad: <code>%.2f so'm</code>\n\n"+
			"💡 Har bir taklif uchun <b>+%.0f so'm</b> bonus olasiz.",
		Escape(code), Escape(link), stats.Count, stats.Earnings, types.ReferralBonus)
}

// Admin texts

func AdminStats(total, premium, banned, queue, chats int) string {
	return fmt.Sprintf(
		"📊 <b>Statistika</b>\n\n"+
			"👥 Foydalanuvchilar: <code>%d</code>\n"+
			"⭐ Premium: <code>%d</code>\n"+
			"🚫 Bloklangan: <code>%d</code>\n"+
			"⏳ Navbatda: <code>%d</code>\n"+
			"💬 Faol suhbatlar: <code>%d</code>",
		total, premium, banned, queue, chats)
}

func AdminNewUser(userID int64, name, username string) string {
	usernameText := "Yo'q"
	if u := strings.TrimSpace(username); u != "" {
		usernameText = "@" + Escape(u)
	}
	return fmt.Sprintf(
		"🆕 <b>Yangi foydalanuvchi qo'shildi!</b>\n\n"+
			"👤 Ism: %s\n"+
			"🆔 ID: <code>%d</code>\n"+
			"📱 Username: %s",
		Escape(name), userID, usernameText)
}

func AdminBanPromptUserID() string {
	return "🆔 Bloklanadigan foydalanuvchi ID raqamini yuboring:"
}

func AdminBanPromptDuration() string {
	return "⏰ Blok muddatini daqiqalarda yuboring (masalan, 60):"
}

func AdminBanPromptReason() string {
	return "📝 Blok sababini yuboring (yoki \"-\" belgisi):"
}

func AdminBanDone(userID int64, until time.Time) string {
	return fmt.Sprintf("✅ Foydalanuvchi <code>%d</code> bloklandi.\n⏰ Muddati: <code>%s</code>", userID, until.Format(timeLayout))
}

func AdminUnbanPromptUserID() string {
	return "🆔 Blokdan chiqariladigan foydalanuvchi ID raqamini yuboring:"
}

func AdminUnbanDone(userID int64, removed bool) string {
	if removed {
		return fmt.Sprintf("✅ Foydalanuvchi <code>%d</code> blokdan chiqarildi.", userID)
	}
	return fmt.Sprintf("ℹ️ Foydalanuvchi <code>%d</code> bloklanmagan edi.", userID)
}

func AdminSearchPromptUserID() string {
	return "🔍 Qidirish uchun foydalanuvchi ID raqamini yuboring:"
}

func AdminUserNotFound() string {
	return "😕 Bunday foydalanuvchi topilmadi."
}

func AdminUserInfo(a *types.Account, banned bool, bannedUntil *time.Time, inChat bool) string {
	usernameText := "Yo'q"
	if u := strings.TrimSpace(a.Username); u != "" {
		usernameText = "@" + Escape(u)
	}
	msg := fmt.Sprintf(
		"👤 <b>Foydalanuvchi haqida</b>\n\n"+
			"🆔 ID: <code>%d</code>\n"+
			"📛 Ism: %s\n"+
			"📱 Username: %s\n"+
			"🗓 Ro'yxatdan o'tgan: <code>%s</code>\n"+
			"💵 Balans: <code>%.2f so'm</code>\n"+
			"📈 Jami to'ldirilgan: <code>%.2f so'm</code>\n"+
			"⭐ Premium: %s\n"+
			"🛡 Admin: %s\n"+
			"💬 Chatda: %s\n"+
			"🔇 Blok: %s",
		a.UserID, Escape(a.Name), usernameText, a.CreatedAt.Format(timeLayout),
		a.Balance, a.TotalDeposited,
		yesNo(a.IsPremium), yesNo(a.IsAdmin), yesNo(inChat), yesNo(banned))
	if banned && bannedUntil != nil {
		msg += fmt.Sprintf("\n⏰ Blok muddati: <code>%s</code>", bannedUntil.Format(timeLayout))
	}
	return msg
}

func AdminRecentUsersHeader() string {
	return "🆕 <b>So'nggi foydalanuvchilar</b>\n"
}

func AdminNoUsers() string {
	return "😕 Foydalanuvchilar topilmadi."
}

func yesNo(on bool) string {
	if on {
		return "✅"
	}
	return "❌"
}

func AdminBroadcastPrompt() string {
	return "📢 Barcha foydalanuvchilarga yuboriladigan xabarni yozing:"
}

func AdminBroadcastQueued(count int) string {
	return fmt.Sprintf("📤 Xabar %d ta foydalanuvchiga yuborilmoqda.", count)
}

func AdminInvalidUserID() string {
	return "🚫 Noto'g'ri ID. Raqam yuboring."
}

func AdminInvalidDuration() string {
	return "🚫 Noto'g'ri muddat. Daqiqalarni raqam bilan yuboring."
}

func AdminOnly() string {
	return "🚫 Bu buyruq faqat administratorlar uchun."
}

func UnknownCommand() string {
	return "❓ <b>Buyruq topilmadi</b>\n/help — yordam"
}

func Help() string {
	return "ℹ️ <b>Yordam</b>\n\n" +
		"/start — havolangizni olish\n" +
		"/find_chat — anonim suhbatdosh topish\n" +
		"/end_chat — suhbatni tugatish\n" +
		"/balance — balans va referral\n" +
		"/premium — premium obuna"
}
