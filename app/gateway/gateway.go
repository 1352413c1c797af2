package gateway

import "context"

type Customer struct {
	ID string
}

type Token struct {
	ID string
}

type ChargeInput struct {
	Amount         int64
	Currency       string
	Source         string
	Description    string
	ApplicationFee int64
	Metadata       map[string]string
}

type Charge struct {
	ID                   string
	BalanceTransactionID string
	Raw                  string
}

type FeeDetail struct {
	Type   string
	Amount int64
}

type BalanceTransaction struct {
	ID         string
	Amount     int64
	Currency   string
	Fee        int64
	FeeDetails []FeeDetail
	Raw        string
}

type PlanInput struct {
	Interval string
	Amount   int64
	Currency string
}

type Plan struct {
	ID string
}

type SubscriptionInput struct {
	PlanID                string
	ApplicationFeePercent float64
	TrialEnd              int64
	Metadata              map[string]string
}

type Subscription struct {
	ID string
}

// Client is the payment gateway capability set consumed by the order
// workflow. An empty hostAccount addresses the platform's own gateway
// account; a non-empty one addresses the connected account of the host
// receiving funds. Every call is a network round trip and may fail.
type Client interface {
	CreateCustomer(ctx context.Context, hostAccount, token, email, description string) (*Customer, error)
	CreateToken(ctx context.Context, hostAccount, customerID string) (*Token, error)
	CreateCharge(ctx context.Context, hostAccount string, in *ChargeInput) (*Charge, error)
	RetrieveBalanceTransaction(ctx context.Context, hostAccount, id string) (*BalanceTransaction, error)
	GetOrCreatePlan(ctx context.Context, hostAccount string, in *PlanInput) (*Plan, error)
	CreateSubscription(ctx context.Context, hostAccount, customerID string, in *SubscriptionInput) (*Subscription, error)
}
