package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-orders/app/entity"
)

var ErrSubscriptionNotFound = errors.New("subscription not found")

type SubscriptionRepository struct {
	db DBTX
}

func NewSubscriptionRepository(db DBTX) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) FindByID(ctx context.Context, id uint64) (*entity.Subscription, error) {
	query := `
		SELECT id, recurring_interval, amount, currency, stripe_subscription_id, status,
			activated_at, created_at, updated_at
		FROM subscriptions
		WHERE id = ?
	`

	subscription := &entity.Subscription{}
	var stripeSubscriptionID sql.NullString
	var activatedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&subscription.ID,
		&subscription.Interval,
		&subscription.Amount,
		&subscription.Currency,
		&stripeSubscriptionID,
		&subscription.Status,
		&activatedAt,
		&subscription.CreatedAt,
		&subscription.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	subscription.StripeSubscriptionID = stringPtrFromNull(stripeSubscriptionID)
	subscription.ActivatedAt = timePtrFromNull(activatedAt)

	return subscription, nil
}

func (r *SubscriptionRepository) Activate(ctx context.Context, id uint64, stripeSubscriptionID string, now time.Time) error {
	query := `
		UPDATE subscriptions
		SET stripe_subscription_id = ?, status = ?, activated_at = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, stripeSubscriptionID, entity.SubscriptionStatusActive, now, now, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSubscriptionNotFound
	}

	return nil
}
