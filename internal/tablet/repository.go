package tablet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Kwentar/wows-planner/internal/apperr"
	"github.com/Kwentar/wows-planner/internal/models"
)

// Repository implements tablet data access on Postgres. The layer/ping
// document lives in a single jsonb column; there is no per-field merge on
// the server, last writer wins at document granularity.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new tablet repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func rowToTablet(id, ownerID uuid.UUID, title string, stateRaw []byte, updatedAt time.Time) (*models.Tablet, error) {
	var state models.TabletState
	if len(stateRaw) > 0 {
		if err := json.Unmarshal(stateRaw, &state); err != nil {
			return nil, fmt.Errorf("decode tablet state: %w", err)
		}
	}
	if state.Layers == nil {
		state.Layers = []models.Layer{}
	}
	return &models.Tablet{
		ID:           id,
		OwnerID:      ownerID,
		Name:         title,
		Layers:       state.Layers,
		Pings:        state.Pings,
		LastModified: updatedAt,
	}, nil
}

// GetTablet fetches a tablet by id.
func (r *Repository) GetTablet(ctx context.Context, id uuid.UUID) (*models.Tablet, error) {
	var (
		ownerID   uuid.UUID
		title     string
		stateRaw  []byte
		updatedAt time.Time
	)
	err := r.pool.QueryRow(ctx,
		`SELECT owner_id, title, state, updated_at FROM planners WHERE id = $1`, id).
		Scan(&ownerID, &title, &stateRaw, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tablet: %w", err)
	}
	return rowToTablet(id, ownerID, title, stateRaw, updatedAt)
}

// TabletExists reports whether a planner row exists.
func (r *Repository) TabletExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM planners WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("tablet exists: %w", err)
	}
	return exists, nil
}

// ListTablets returns the tablets owned by a user, most recently updated
// first.
func (r *Repository) ListTablets(ctx context.Context, ownerID uuid.UUID) ([]*models.Tablet, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, state, updated_at FROM planners WHERE owner_id = $1 ORDER BY updated_at DESC`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tablets: %w", err)
	}
	defer rows.Close()

	var tablets []*models.Tablet
	for rows.Next() {
		var (
			id        uuid.UUID
			title     string
			stateRaw  []byte
			updatedAt time.Time
		)
		if err := rows.Scan(&id, &title, &stateRaw, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan tablet: %w", err)
		}
		t, err := rowToTablet(id, ownerID, title, stateRaw, updatedAt)
		if err != nil {
			return nil, err
		}
		tablets = append(tablets, t)
	}
	return tablets, rows.Err()
}

// CreateTablet inserts a planner owned by ownerID.
func (r *Repository) CreateTablet(ctx context.Context, ownerID uuid.UUID, title string, state models.TabletState) (*models.Tablet, error) {
	stateRaw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode tablet state: %w", err)
	}
	var (
		id        uuid.UUID
		updatedAt time.Time
	)
	err = r.pool.QueryRow(ctx,
		`INSERT INTO planners (owner_id, title, state) VALUES ($1, $2, $3) RETURNING id, updated_at`,
		ownerID, title, stateRaw).Scan(&id, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("create tablet: %w", err)
	}
	return rowToTablet(id, ownerID, title, stateRaw, updatedAt)
}

// UpdateTitle renames a planner and advances updated_at.
func (r *Repository) UpdateTitle(ctx context.Context, id uuid.UUID, title string) error {
	if _, err := r.pool.Exec(ctx,
		`UPDATE planners SET title = $1, updated_at = NOW() WHERE id = $2`, title, id); err != nil {
		return fmt.Errorf("update title: %w", err)
	}
	return nil
}

// UpdateState replaces the full layer document and advances updated_at.
func (r *Repository) UpdateState(ctx context.Context, id uuid.UUID, state models.TabletState) error {
	stateRaw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode tablet state: %w", err)
	}
	if _, err := r.pool.Exec(ctx,
		`UPDATE planners SET state = $1, updated_at = NOW() WHERE id = $2`, stateRaw, id); err != nil {
		return fmt.Errorf("update state: %w", err)
	}
	return nil
}

// ReplacePings overwrites only the pings key of the state document so a
// ping write never clobbers concurrently edited layers. Pollers union
// these with their local set; the durable copy exists solely for clients
// not connected to the relay.
func (r *Repository) ReplacePings(ctx context.Context, id uuid.UUID, pings []models.Ping) error {
	raw, err := json.Marshal(pings)
	if err != nil {
		return fmt.Errorf("encode pings: %w", err)
	}
	if _, err := r.pool.Exec(ctx,
		`UPDATE planners SET state = state || jsonb_build_object('pings', $1::jsonb), updated_at = NOW() WHERE id = $2`,
		raw, id); err != nil {
		return fmt.Errorf("replace pings: %w", err)
	}
	return nil
}
