package entity

import "time"

type Order struct {
	ID uint64

	FromCollectiveID uint64
	ToCollectiveID   uint64
	CreatedByUserID  uint64
	TierID           *uint64

	TotalAmount int64
	Currency    string
	Description string

	PaymentMethodID uint64
	SubscriptionID  *uint64

	ProcessedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
