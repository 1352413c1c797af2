package entity

import "time"

type Collective struct {
	ID uint64

	Slug string
	Name string

	HostCollectiveID *uint64
	HostFeePercent   int64

	Currency string

	CreatedAt time.Time
	UpdatedAt time.Time
}
