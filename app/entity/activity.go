package entity

import "time"

const ActivitySubscriptionConfirmed = "subscription.confirmed"

type Activity struct {
	ID uint64

	Type string

	CollectiveID *uint64
	UserID       *uint64

	Data map[string]string

	CreatedAt time.Time
}
