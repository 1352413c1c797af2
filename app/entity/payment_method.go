package entity

import "time"

// PaymentMethod is the platform-side handle for a contributor's card.
//
// Data caches one Stripe customer id per host account so that repeat
// orders against the same host skip re-provisioning; entries are written
// first-write-wins and never overwritten.
type PaymentMethod struct {
	ID uint64

	Token      string
	CustomerID *string

	Data map[string]string

	ConfirmedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CustomerIDForHost returns the cached host-level customer id, if any.
func (m *PaymentMethod) CustomerIDForHost(hostAccount string) string {
	if m.Data == nil {
		return ""
	}
	return m.Data[hostAccount]
}
