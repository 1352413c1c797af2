package repository

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-orders/app/entity"
)

type CollectiveRepository struct {
	db DBTX
}

func NewCollectiveRepository(db DBTX) *CollectiveRepository {
	return &CollectiveRepository{db: db}
}

func (r *CollectiveRepository) FindByID(ctx context.Context, id uint64) (*entity.Collective, error) {
	query := `
		SELECT id, slug, name, host_collective_id, host_fee_percent, currency, created_at, updated_at
		FROM collectives
		WHERE id = ?
	`

	collective := &entity.Collective{}
	var hostCollectiveID sql.NullInt64

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&collective.ID,
		&collective.Slug,
		&collective.Name,
		&hostCollectiveID,
		&collective.HostFeePercent,
		&collective.Currency,
		&collective.CreatedAt,
		&collective.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	collective.HostCollectiveID = uint64PtrFromNull(hostCollectiveID)

	return collective, nil
}

// HostStripeAccount resolves the connected-account id of the host that
// receives funds for the collective. Empty when the host has not connected
// a Stripe account.
func (r *CollectiveRepository) HostStripeAccount(ctx context.Context, collectiveID uint64) (string, error) {
	query := `
		SELECT ca.stripe_account
		FROM collectives c
		JOIN connected_accounts ca ON ca.collective_id = COALESCE(c.host_collective_id, c.id)
		WHERE c.id = ? AND ca.service = 'stripe'
		LIMIT 1
	`

	var account sql.NullString
	err := r.db.QueryRowContext(ctx, query, collectiveID).Scan(&account)
	if err == sql.ErrNoRows {
		return "", nil
	} else if err != nil {
		return "", err
	}

	if !account.Valid {
		return "", nil
	}
	return account.String, nil
}
