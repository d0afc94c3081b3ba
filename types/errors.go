package types

import "errors"

// Conflict and not-found outcomes are sentinels: they are expected results
// the adapter turns into user messaging, not faults.
var (
	ErrNotFound             = errors.New("not found")
	ErrAlreadyInChat        = errors.New("already in an active chat")
	ErrAlreadyInQueue       = errors.New("already in the chat queue")
	ErrNotInQueue           = errors.New("not in the chat queue")
	ErrNoPartner            = errors.New("no partner available")
	ErrDuplicateTransaction = errors.New("duplicate transaction id")
	ErrInvalidPlan          = errors.New("unknown subscription plan")
	ErrInvalidPaymentMethod = errors.New("payment method not accepted")
	ErrNotPremium           = errors.New("account is not premium")
	ErrInsufficientBalance  = errors.New("insufficient balance")
)
