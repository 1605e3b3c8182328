package permissions

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements grant storage on Postgres. A row exists only for
// non-owners; absence means observer.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new permissions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetGrant returns the grant for a user on a planner. The second return
// value reports whether a row exists at all.
func (r *Repository) GetGrant(ctx context.Context, plannerID, userID uuid.UUID) (bool, bool, error) {
	var canEdit bool
	err := r.pool.QueryRow(ctx,
		`SELECT can_edit FROM planner_permissions WHERE planner_id = $1 AND user_id = $2`,
		plannerID, userID).Scan(&canEdit)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("get grant: %w", err)
	}
	return canEdit, true, nil
}

// UpsertGrant creates or updates the grant row for a user on a planner.
func (r *Repository) UpsertGrant(ctx context.Context, plannerID, userID uuid.UUID, canEdit bool) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO planner_permissions (planner_id, user_id, can_edit) VALUES ($1, $2, $3)
		 ON CONFLICT (planner_id, user_id) DO UPDATE SET can_edit = $3`,
		plannerID, userID, canEdit)
	if err != nil {
		return fmt.Errorf("upsert grant: %w", err)
	}
	return nil
}

// ListGrants returns all grants for a planner keyed by user id.
func (r *Repository) ListGrants(ctx context.Context, plannerID uuid.UUID) (map[uuid.UUID]bool, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, can_edit FROM planner_permissions WHERE planner_id = $1`, plannerID)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	defer rows.Close()

	grants := make(map[uuid.UUID]bool)
	for rows.Next() {
		var userID uuid.UUID
		var canEdit bool
		if err := rows.Scan(&userID, &canEdit); err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		grants[userID] = canEdit
	}
	return grants, rows.Err()
}
