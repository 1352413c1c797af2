package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/vibast-solutions/ms-go-orders/app/entity"
)

type PaymentMethodRepository struct {
	db DBTX
}

func NewPaymentMethodRepository(db DBTX) *PaymentMethodRepository {
	return &PaymentMethodRepository{db: db}
}

func (r *PaymentMethodRepository) FindByID(ctx context.Context, id uint64) (*entity.PaymentMethod, error) {
	query := `
		SELECT id, token, customer_id, data_json, confirmed_at, created_at, updated_at
		FROM payment_methods
		WHERE id = ?
	`

	method := &entity.PaymentMethod{}
	var customerID sql.NullString
	var dataJSON string
	var confirmedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&method.ID,
		&method.Token,
		&customerID,
		&dataJSON,
		&confirmedAt,
		&method.CreatedAt,
		&method.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	method.CustomerID = stringPtrFromNull(customerID)
	method.ConfirmedAt = timePtrFromNull(confirmedAt)

	data, err := parseData(dataJSON)
	if err != nil {
		return nil, err
	}
	method.Data = data

	return method, nil
}

// SetCustomerID writes the platform-level customer id only when none is set
// yet. Returns false when a concurrent writer won the race; the caller should
// re-read and use the kept id.
func (r *PaymentMethodRepository) SetCustomerID(ctx context.Context, id uint64, customerID string, now time.Time) (bool, error) {
	query := `
		UPDATE payment_methods SET customer_id = ?, updated_at = ?
		WHERE id = ? AND customer_id IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, customerID, now, id)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

// SetHostCustomerID caches the host-level customer id under the host account
// key, with the same first-write-wins contract as SetCustomerID: an existing
// entry for the host is never overwritten.
func (r *PaymentMethodRepository) SetHostCustomerID(ctx context.Context, id uint64, hostAccount, customerID string, now time.Time) (bool, error) {
	query := `
		UPDATE payment_methods
		SET data_json = JSON_SET(COALESCE(data_json, '{}'), CONCAT('$."', ?, '"'), ?), updated_at = ?
		WHERE id = ? AND JSON_EXTRACT(COALESCE(data_json, '{}'), CONCAT('$."', ?, '"')) IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, hostAccount, customerID, now, id, hostAccount)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func (r *PaymentMethodRepository) MarkConfirmed(ctx context.Context, id uint64, now time.Time) error {
	query := `
		UPDATE payment_methods SET confirmed_at = ?, updated_at = ?
		WHERE id = ? AND confirmed_at IS NULL
	`

	_, err := r.db.ExecContext(ctx, query, now, now, id)
	return err
}
