package types

import "time"

type Plan string

const (
	PlanOneMonth    Plan = "1_month"
	PlanThreeMonths Plan = "3_months"
	PlanSixMonths   Plan = "6_months"
	PlanOneYear     Plan = "1_year"
)

// PlanSpec is configuration data, not logic: the engines only ever consult
// this table for durations and prices.
type PlanSpec struct {
	Title string
	Days  int
	Price float64
}

var Plans = map[Plan]PlanSpec{
	PlanOneMonth:    {Title: "1 oy", Days: 30, Price: 5000.00},
	PlanThreeMonths: {Title: "3 oy", Days: 90, Price: 12000.00},
	PlanSixMonths:   {Title: "6 oy", Days: 180, Price: 25000.00},
	PlanOneYear:     {Title: "1 yil", Days: 365, Price: 50000.00},
}

func (p Plan) Valid() bool {
	_, ok := Plans[p]
	return ok
}

func (p Plan) Days() int {
	return Plans[p].Days
}

func (p Plan) Price() float64 {
	return Plans[p].Price
}

func (p Plan) Title() string {
	return Plans[p].Title
}

// ReferralBonus is credited to the referrer once per attributed signup.
// It is not counted as a deposit.
const ReferralBonus = 10.00

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
	PaymentCancelled  PaymentStatus = "cancelled"
	PaymentRefunded   PaymentStatus = "refunded"
	PaymentExpired    PaymentStatus = "expired"
	PaymentOnHold     PaymentStatus = "on_hold"
)

type PaymentMethod string

const (
	MethodBalance PaymentMethod = "balance"
	// Historical methods, retained so old rows still scan. New payments
	// are rejected for anything but MethodBalance.
	MethodClick  PaymentMethod = "click"
	MethodPayme  PaymentMethod = "payme"
	MethodPaynet PaymentMethod = "paynet"
)

// AcceptedForNewPayments reports whether a method may be written into a new
// payment record.
func (m PaymentMethod) AcceptedForNewPayments() bool {
	return m == MethodBalance
}

type Payment struct {
	ID            int64
	UserID        int64
	Amount        float64
	Method        PaymentMethod
	Status        PaymentStatus
	TransactionID *string
	MerchantData  *string
	CreatedAt     time.Time
}

type Subscription struct {
	ID        int64
	UserID    int64
	Plan      Plan
	StartDate time.Time
	EndDate   time.Time
	IsActive  bool
	CreatedAt time.Time
}

// ActiveAt reports whether the window covers the given instant. The stored
// is_premium flag is never auto-expired, so readers that care about real
// validity must use this instead.
func (s *Subscription) ActiveAt(now time.Time) bool {
	return s != nil && s.IsActive && s.EndDate.After(now)
}

// NextWindow computes the window an activation produces. An unexpired
// current subscription is extended contiguously from its end date; an
// expired or absent one starts fresh from now. The end date never moves
// backward.
func NextWindow(current *Subscription, plan Plan, now time.Time) (start, end time.Time) {
	if current != nil && current.EndDate.After(now) {
		return current.EndDate, current.EndDate.AddDate(0, 0, plan.Days())
	}
	return now, now.AddDate(0, 0, plan.Days())
}
