// Package referral attributes new signups to referrers and pays the
// one-time bonus.
package referral

import (
	"errors"
	"fmt"
	"time"

	"github.com/ozodbek-dev/anonchat-bot/internal/messages"
	"github.com/ozodbek-dev/anonchat-bot/pkg/logger"
	"github.com/ozodbek-dev/anonchat-bot/types"
)

// GraceWindow separates "freshly created via this referral click" from a
// pre-existing account re-clicking an old link. Attribution never applies
// to accounts older than this.
const GraceWindow = time.Minute

// Store is the slice of the durable store the engine needs.
type Store interface {
	GetAccount(userID int64) (*types.Account, error)
	Credit(userID int64, amount float64, alsoTotal bool) error
	Balance(userID int64) (balance, totalDeposited float64, err error)
	EnsureCode(userID int64) (string, error)
	AccountByReferralCode(code string) (*types.Account, error)
	SetReferrerIfEmpty(userID, referrerID int64) (bool, error)
	ReferralStats(userID int64) (*types.ReferralStats, error)
}

type Engine struct {
	store  Store
	notify types.NotifyFunc
	log    *logger.Logger
	now    func() time.Time
}

func NewEngine(store Store, notify types.NotifyFunc, log *logger.Logger) *Engine {
	return &Engine{
		store:  store,
		notify: notify,
		log:    log,
		now:    time.Now,
	}
}

// Attribute links a freshly created account to the owner of the referral
// code and credits the bonus. It fires at most once per account, ever; all
// rejections are ordinary false results, not errors. The referrer
// notification is best effort and never rolls anything back.
func (e *Engine) Attribute(newUserID int64, code string) (bool, error) {
	account, err := e.store.GetAccount(newUserID)
	if errors.Is(err, types.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if account.ReferredBy != nil {
		return false, nil
	}
	if e.now().Sub(account.CreatedAt) > GraceWindow {
		return false, nil
	}

	referrer, err := e.store.AccountByReferralCode(code)
	if errors.Is(err, types.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if referrer.UserID == newUserID {
		return false, nil
	}

	// Conditional write is the one-shot guard: a retried request loses
	// here and pays nothing.
	set, err := e.store.SetReferrerIfEmpty(newUserID, referrer.UserID)
	if err != nil {
		return false, err
	}
	if !set {
		return false, nil
	}

	// Referral credit is not a deposit; total_deposited stays untouched.
	if err := e.store.Credit(referrer.UserID, types.ReferralBonus, false); err != nil {
		return true, fmt.Errorf("referral bonus credit: %w", err)
	}

	if e.notify != nil {
		balance, _, err := e.store.Balance(referrer.UserID)
		if err != nil {
			balance = 0
		}
		if err := e.notify(referrer.UserID, messages.ReferralBonus(balance)); err != nil && e.log != nil {
			e.log.Errorf("referral notification to %d failed: %v", referrer.UserID, err)
		}
	}
	return true, nil
}

func (e *Engine) Stats(userID int64) (*types.ReferralStats, error) {
	return e.store.ReferralStats(userID)
}

func (e *Engine) EnsureCode(userID int64) (string, error) {
	return e.store.EnsureCode(userID)
}
