package entity

import "time"

const (
	SubscriptionIntervalMonth = "month"
	SubscriptionIntervalYear  = "year"

	SubscriptionStatusNew    = "new"
	SubscriptionStatusActive = "active"
)

type Subscription struct {
	ID uint64

	Interval string
	Amount   int64
	Currency string

	StripeSubscriptionID *string
	Status               string

	ActivatedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
