// Package billing runs the balance-funded premium purchase flow. Balance
// gating lives here, on purpose: the subscription store activates
// unconditionally and this service is the one place that checks the price
// against the balance first.
package billing

import (
	"fmt"

	"github.com/ozodbek-dev/anonchat-bot/types"
)

type Store interface {
	Balance(userID int64) (balance, totalDeposited float64, err error)
	Credit(userID int64, amount float64, alsoTotal bool) error
	ActivateOrExtend(userID int64, plan types.Plan) (int64, error)
	CreatePayment(userID int64, amount float64, method types.PaymentMethod, transactionID, merchantData *string) (int64, error)
	CurrentSubscription(userID int64) (*types.Subscription, error)
	PaymentHistory(userID int64, limit int) ([]*types.Payment, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

type PurchaseResult struct {
	SubscriptionID int64
	Plan           types.Plan
	Price          float64
	Remaining      float64
}

// Purchase activates or extends the plan, debits the price and appends the
// payment record. Returns ErrInsufficientBalance without touching anything
// when the balance does not cover the price.
func (s *Service) Purchase(userID int64, plan types.Plan) (*PurchaseResult, error) {
	if !plan.Valid() {
		return nil, types.ErrInvalidPlan
	}
	price := plan.Price()

	balance, _, err := s.store.Balance(userID)
	if err != nil {
		return nil, err
	}
	if balance < price {
		return nil, types.ErrInsufficientBalance
	}

	subscriptionID, err := s.store.ActivateOrExtend(userID, plan)
	if err != nil {
		return nil, err
	}
	if err := s.store.Credit(userID, -price, false); err != nil {
		return nil, err
	}

	merchantData := fmt.Sprintf("subscription:%d", subscriptionID)
	if _, err := s.store.CreatePayment(userID, price, types.MethodBalance, nil, &merchantData); err != nil {
		return nil, err
	}

	return &PurchaseResult{
		SubscriptionID: subscriptionID,
		Plan:           plan,
		Price:          price,
		Remaining:      balance - price,
	}, nil
}

func (s *Service) CurrentSubscription(userID int64) (*types.Subscription, error) {
	return s.store.CurrentSubscription(userID)
}

func (s *Service) PaymentHistory(userID int64, limit int) ([]*types.Payment, error) {
	return s.store.PaymentHistory(userID, limit)
}
