package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-orders/app/entity"
)

var ErrOrderAlreadyProcessed = errors.New("order already processed")

type OrderRepository struct {
	db DBTX
}

func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) FindByID(ctx context.Context, id uint64) (*entity.Order, error) {
	query := `
		SELECT id, from_collective_id, to_collective_id, created_by_user_id, tier_id,
			total_amount, currency, description, payment_method_id, subscription_id,
			processed_at, created_at, updated_at
		FROM orders
		WHERE id = ?
	`

	order := &entity.Order{}
	var tierID, subscriptionID sql.NullInt64
	var processedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&order.ID,
		&order.FromCollectiveID,
		&order.ToCollectiveID,
		&order.CreatedByUserID,
		&tierID,
		&order.TotalAmount,
		&order.Currency,
		&order.Description,
		&order.PaymentMethodID,
		&subscriptionID,
		&processedAt,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	order.TierID = uint64PtrFromNull(tierID)
	order.SubscriptionID = uint64PtrFromNull(subscriptionID)
	order.ProcessedAt = timePtrFromNull(processedAt)

	return order, nil
}

// MarkProcessed stamps processed_at exactly once; a second attempt reports
// ErrOrderAlreadyProcessed instead of moving the timestamp.
func (r *OrderRepository) MarkProcessed(ctx context.Context, id uint64, now time.Time) error {
	query := `
		UPDATE orders SET processed_at = ?, updated_at = ?
		WHERE id = ? AND processed_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, now, now, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderAlreadyProcessed
	}

	return nil
}
