package entity

import "time"

const (
	TransactionTypeCredit = "CREDIT"
	TransactionTypeDebit  = "DEBIT"
)

// Transaction is one side of a double-entry pair. The two rows of a pair
// share a TransactionGroup; one carries type CREDIT and the other DEBIT.
// Rows are append-only once created; reconciliation may patch fee-sign
// columns and the fx rate but never Amount or the group identifier.
type Transaction struct {
	ID uint64

	Type             string
	TransactionGroup string

	OrderID   *uint64
	ExpenseID *uint64

	FromCollectiveID uint64
	CollectiveID     uint64
	HostCollectiveID *uint64

	Amount   int64
	Currency string

	HostCurrency         string
	AmountInHostCurrency int64

	HostFeeInHostCurrency             int64
	PlatformFeeInHostCurrency         int64
	PaymentProcessorFeeInHostCurrency int64

	HostCurrencyFxRate            *float64
	NetAmountInCollectiveCurrency int64

	Description string
	Data        map[string]string

	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
