package repository

import (
	"context"

	"github.com/vibast-solutions/ms-go-orders/app/entity"
)

type ActivityRepository struct {
	db DBTX
}

func NewActivityRepository(db DBTX) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Create(ctx context.Context, activity *entity.Activity) error {
	dataJSON, err := serializeData(activity.Data)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO activities (type, collective_id, user_id, data_json, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		activity.Type,
		nullableUint64Value(activity.CollectiveID),
		nullableUint64Value(activity.UserID),
		dataJSON,
		activity.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	activity.ID = uint64(id)

	return nil
}
