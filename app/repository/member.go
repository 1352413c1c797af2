package repository

import (
	"context"
	"time"

	"github.com/vibast-solutions/ms-go-orders/app/entity"
)

type MemberRepository struct {
	db DBTX
}

func NewMemberRepository(db DBTX) *MemberRepository {
	return &MemberRepository{db: db}
}

// EnsureBackerRole grants the backer role once; a repeat grant for the same
// (collective, user, role) is a no-op.
func (r *MemberRepository) EnsureBackerRole(ctx context.Context, collectiveID, userID uint64, now time.Time) error {
	query := `
		INSERT INTO members (collective_id, user_id, role, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query, collectiveID, userID, entity.MemberRoleBacker, now)
	if err != nil {
		if isDuplicateEntryError(err) {
			return nil
		}
		return err
	}

	return nil
}
