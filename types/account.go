package types

import "time"

// Account is one end-user of the bot. UserID is the Telegram identifier and
// the primary key; Token is the opaque credential embedded in shareable
// anonymous-question links, minted once at creation and never changed.
type Account struct {
	UserID         int64
	Username       string
	Name           string
	Token          string
	IsAdmin        bool
	IsSuperuser    bool
	IsPremium      bool
	IsHidden       bool
	Balance        float64
	TotalDeposited float64
	ReferralCode   *string
	ReferredBy     *int64
	CreatedAt      time.Time
}

// Ban is a time-bounded mute. A row whose MutedUntil is in the past is
// treated as absent and reaped on the next CheckBan.
type Ban struct {
	UserID     int64
	MutedUntil time.Time
	Reason     string
	CreatedAt  time.Time
}

// BannedUser is the admin-panel view of a ban joined with account fields.
type BannedUser struct {
	UserID     int64
	MutedUntil time.Time
	Reason     string
	CreatedAt  time.Time
	Name       string
	Username   string
}

// ReferralStats is derived on read; Earnings is always Count times the
// fixed bonus, never a stored value.
type ReferralStats struct {
	Count        int
	Earnings     float64
	Code         string
	ReferrerID   *int64
	ReferrerName string
}
