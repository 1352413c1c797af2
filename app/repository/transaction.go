package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vibast-solutions/ms-go-orders/app/entity"
)

var ErrTransactionNotFound = errors.New("transaction not found")

const reconcileLockName = "orders:reconcile_fees"

type TransactionRepository struct {
	db DBTX
}

func NewTransactionRepository(db DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `
	id, type, transaction_group, order_id, expense_id,
	from_collective_id, collective_id, host_collective_id,
	amount, currency, host_currency, amount_in_host_currency,
	host_fee_in_host_currency, platform_fee_in_host_currency, payment_processor_fee_in_host_currency,
	host_currency_fx_rate, net_amount_in_collective_currency,
	description, data_json, deleted_at, created_at, updated_at
`

// CreatePair persists the CREDIT and DEBIT rows of one economic event.
// Both rows must carry the same transaction group.
func (r *TransactionRepository) CreatePair(ctx context.Context, credit, debit *entity.Transaction) error {
	if credit.TransactionGroup != debit.TransactionGroup {
		return errors.New("transaction pair must share a group")
	}

	for _, item := range []*entity.Transaction{credit, debit} {
		if err := r.insert(ctx, item); err != nil {
			return err
		}
	}

	return nil
}

func (r *TransactionRepository) insert(ctx context.Context, t *entity.Transaction) error {
	dataJSON, err := serializeData(t.Data)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO transactions (
			type, transaction_group, order_id, expense_id,
			from_collective_id, collective_id, host_collective_id,
			amount, currency, host_currency, amount_in_host_currency,
			host_fee_in_host_currency, platform_fee_in_host_currency, payment_processor_fee_in_host_currency,
			host_currency_fx_rate, net_amount_in_collective_currency,
			description, data_json, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		t.Type,
		t.TransactionGroup,
		nullableUint64Value(t.OrderID),
		nullableUint64Value(t.ExpenseID),
		t.FromCollectiveID,
		t.CollectiveID,
		nullableUint64Value(t.HostCollectiveID),
		t.Amount,
		t.Currency,
		t.HostCurrency,
		t.AmountInHostCurrency,
		t.HostFeeInHostCurrency,
		t.PlatformFeeInHostCurrency,
		t.PaymentProcessorFeeInHostCurrency,
		nullableFloat64Value(t.HostCurrencyFxRate),
		t.NetAmountInCollectiveCurrency,
		t.Description,
		dataJSON,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)

	return nil
}

func (r *TransactionRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE deleted_at IS NULL`).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ListByGroup returns non-deleted transactions ordered by transaction group
// with CREDIT before DEBIT inside each group, so consecutive rows form the
// two sides of one pair.
func (r *TransactionRepository) ListByGroup(ctx context.Context, limit, offset int64) ([]*entity.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE deleted_at IS NULL
		ORDER BY transaction_group ASC, type ASC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := make([]*entity.Transaction, 0)
	for rows.Next() {
		item, err := scanTransactionFromRows(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return transactions, nil
}

// UpdateFees patches the three fee columns and the fx rate. It never touches
// amount, net amount, or the group identifier.
func (r *TransactionRepository) UpdateFees(ctx context.Context, t *entity.Transaction) error {
	query := `
		UPDATE transactions SET
			host_fee_in_host_currency = ?,
			platform_fee_in_host_currency = ?,
			payment_processor_fee_in_host_currency = ?,
			host_currency_fx_rate = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		t.HostFeeInHostCurrency,
		t.PlatformFeeInHostCurrency,
		t.PaymentProcessorFeeInHostCurrency,
		nullableFloat64Value(t.HostCurrencyFxRate),
		t.UpdatedAt,
		t.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTransactionNotFound
	}

	return nil
}

// AcquireRunLock takes the single-runner lease for the reconciliation job.
// Returns false when another run holds it.
func (r *TransactionRepository) AcquireRunLock(ctx context.Context) (bool, error) {
	var acquired sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT GET_LOCK(?, 0)`, reconcileLockName).Scan(&acquired)
	if err != nil {
		return false, err
	}
	return acquired.Valid && acquired.Int64 == 1, nil
}

func (r *TransactionRepository) ReleaseRunLock(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `SELECT RELEASE_LOCK(?)`, reconcileLockName)
	return err
}

func scanTransactionFromRows(rows *sql.Rows) (*entity.Transaction, error) {
	t := &entity.Transaction{}
	var orderID, expenseID, hostCollectiveID sql.NullInt64
	var fxRate sql.NullFloat64
	var dataJSON string
	var deletedAt sql.NullTime

	err := rows.Scan(
		&t.ID,
		&t.Type,
		&t.TransactionGroup,
		&orderID,
		&expenseID,
		&t.FromCollectiveID,
		&t.CollectiveID,
		&hostCollectiveID,
		&t.Amount,
		&t.Currency,
		&t.HostCurrency,
		&t.AmountInHostCurrency,
		&t.HostFeeInHostCurrency,
		&t.PlatformFeeInHostCurrency,
		&t.PaymentProcessorFeeInHostCurrency,
		&fxRate,
		&t.NetAmountInCollectiveCurrency,
		&t.Description,
		&dataJSON,
		&deletedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.OrderID = uint64PtrFromNull(orderID)
	t.ExpenseID = uint64PtrFromNull(expenseID)
	t.HostCollectiveID = uint64PtrFromNull(hostCollectiveID)
	t.HostCurrencyFxRate = float64PtrFromNull(fxRate)
	t.DeletedAt = timePtrFromNull(deletedAt)

	data, err := parseData(dataJSON)
	if err != nil {
		return nil, err
	}
	t.Data = data

	return t, nil
}
