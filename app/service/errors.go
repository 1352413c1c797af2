package service

import (
	"errors"
	"fmt"

	"github.com/vibast-solutions/ms-go-orders/app/repository"
)

var (
	ErrOrderNotFound = errors.New("order not found")

	// ErrOrderAlreadyProcessed also surfaces when a concurrent processor wins
	// the processed stamp, so it shares the repository sentinel.
	ErrOrderAlreadyProcessed = repository.ErrOrderAlreadyProcessed
	ErrPaymentMethodMissing  = errors.New("order has no payment method")
	ErrCollectiveNotFound    = errors.New("collective not found")
	ErrHostAccountMissing    = errors.New("no stripe account configured for the destination host")
	ErrReconcileRunning      = errors.New("a reconciliation run is already in progress")
)

// GatewayError wraps a failed external gateway call. The order workflow has
// no built-in retry or compensation; the wrapped call name tells operators
// which side effects already happened before the failure.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s failed: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// PairingError means the ordered ledger scan found two adjacent rows that do
// not share a transaction group: one half of a double-entry pair is missing
// or orphaned, and the scan cannot safely continue past it.
type PairingError struct {
	Offset      int64
	FirstGroup  string
	SecondGroup string
}

func (e *PairingError) Error() string {
	return fmt.Sprintf("transaction pair mismatch at offset %d: group %q followed by %q", e.Offset, e.FirstGroup, e.SecondGroup)
}
