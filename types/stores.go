package types

import (
	"time"
)

// NotifyFunc pushes a message to a user. Best effort: callers must swallow
// the error and never roll back the operation that triggered it.
type NotifyFunc func(userID int64, text string) error

type AccountStore interface {
	// GetOrCreate returns the account's token, minting the account on first
	// contact. Display fields are refreshed when they changed. Safe under
	// concurrent calls for the same user id.
	GetOrCreate(userID int64, username, name string) (token string, isNew bool, err error)
	GetAccount(userID int64) (*Account, error)
	ResolveByToken(token string) (int64, error)
	UpdateDisplayFields(userID int64, username, name string) error
	// SetHidden succeeds only for premium accounts (ErrNotPremium otherwise).
	SetHidden(userID int64) error

	AdminIDs() ([]int64, error)
	AllIDs() ([]int64, error)
	RecentAccounts(limit int) ([]*Account, error)
	CountAccounts() (total int, premium int, err error)
}

type ModerationStore interface {
	// CheckBan is read-and-reap: an expired ban row is deleted as part of
	// the same call. Callers must not rely on a separate sweep.
	CheckBan(userID int64) (banned bool, until *time.Time, err error)
	// Ban replaces any existing ban; durations do not stack.
	Ban(userID int64, d time.Duration, reason string) error
	Unban(userID int64) (removed bool, err error)

	BannedUsers() ([]*BannedUser, error)
	BannedCount() (int, error)
}

type PairingStore interface {
	// JoinQueue rejects with ErrAlreadyInChat or ErrAlreadyInQueue. The
	// check and the insert are atomic in the store.
	JoinQueue(userID int64) error
	LeaveQueue(userID int64) error
	// Match picks a uniform-random other waiter, removes both queue
	// entries and creates the session in one atomic step. ErrNoPartner
	// leaves the caller queued; ErrNotInQueue means the caller was
	// matched away (or never joined) concurrently.
	Match(userID int64) (partnerID int64, err error)
	Partner(userID int64) (int64, error)
	// End is idempotent: (false, 0, nil) when no session existed.
	End(userID int64) (ended bool, partnerID int64, err error)

	QueueLen() (int, error)
	ActiveSessions() ([]*ChatOverview, error)
	EndSessionByID(sessionID int64) (user1ID, user2ID int64, err error)
}

type LedgerStore interface {
	// Credit applies a relative balance change; amount may be negative for
	// debits. alsoTotal must never be set on a debit.
	Credit(userID int64, amount float64, alsoTotal bool) error
	Balance(userID int64) (balance, totalDeposited float64, err error)
	// CreatePayment rejects methods other than MethodBalance and duplicate
	// transaction ids.
	CreatePayment(userID int64, amount float64, method PaymentMethod, transactionID, merchantData *string) (int64, error)
	TransactionIDExists(transactionID string) (bool, error)
	UpdatePaymentStatus(paymentID int64, status PaymentStatus, transactionID *string) error
	PaymentHistory(userID int64, limit int) ([]*Payment, error)
}

type SubscriptionStore interface {
	// ActivateOrExtend is serialized per account; two concurrent purchases
	// never extend from the same stale end date. It does not check
	// balance; gating is the purchaser's job.
	ActivateOrExtend(userID int64, plan Plan) (subscriptionID int64, err error)
	CurrentSubscription(userID int64) (*Subscription, error)
}

type ReferralStore interface {
	// EnsureCode returns the existing code or persists a fresh globally
	// unique one, retrying on collision.
	EnsureCode(userID int64) (string, error)
	AccountByReferralCode(code string) (*Account, error)
	// SetReferrerIfEmpty writes referred_by only when it is still unset and
	// reports whether the write happened. This is the one-shot guard.
	SetReferrerIfEmpty(userID, referrerID int64) (bool, error)
	ReferralStats(userID int64) (*ReferralStats, error)
}

// ActivityStore records delivered messages and admin actions for the
// operator surface.
type ActivityStore interface {
	LogMessage(senderID, receiverID int64, text string) error
	ChatMessageCount(user1ID, user2ID int64) (int, error)
	LogAdminAction(adminID int64, action, details string) error
}

// DialogStore keeps per-user conversation state between updates.
type DialogStore interface {
	State(userID int64) (*DialogState, error)
	SetState(userID int64, state *DialogState) error
	ClearState(userID int64) error
}

// Store is the full durable surface the bot depends on.
type Store interface {
	AccountStore
	ModerationStore
	PairingStore
	LedgerStore
	SubscriptionStore
	ReferralStore
	ActivityStore
}
