package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Kwentar/wows-planner/internal/apperr"
	"github.com/Kwentar/wows-planner/internal/models"
)

// Repository implements user data access on Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new identity repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, COALESCE(email, ''), COALESCE(anon_id, ''), COALESCE(name, ''), created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.AnonID, &u.Name, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// GetUser retrieves a user by id.
func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetUserByEmail retrieves a user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// GetUserByAnonID retrieves a user by anonymous cookie id.
func (r *Repository) GetUserByAnonID(ctx context.Context, anonID string) (*models.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE anon_id = $1`, anonID)
	return scanUser(row)
}

// CreateUserWithEmail inserts a user identified by email.
func (r *Repository) CreateUserWithEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO users (email) VALUES ($1) RETURNING `+userColumns, email)
	return scanUser(row)
}

// CreateUserWithAnonID inserts a user identified by anonymous cookie id.
func (r *Repository) CreateUserWithAnonID(ctx context.Context, anonID string) (*models.User, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO users (anon_id) VALUES ($1) RETURNING `+userColumns, anonID)
	return scanUser(row)
}

// UpdateUserName sets the display name for a user.
func (r *Repository) UpdateUserName(ctx context.Context, id uuid.UUID, name string) error {
	if _, err := r.pool.Exec(ctx, `UPDATE users SET name = $1 WHERE id = $2`, name, id); err != nil {
		return fmt.Errorf("update user name: %w", err)
	}
	return nil
}

// ListUsersByIDs fetches users in bulk for roster assembly.
func (r *Repository) ListUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
