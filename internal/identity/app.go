package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Kwentar/wows-planner/internal/apperr"
	"github.com/Kwentar/wows-planner/internal/models"
)

// UsersRepository defines what the app layer needs from the repository.
type UsersRepository interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByAnonID(ctx context.Context, anonID string) (*models.User, error)
	CreateUserWithEmail(ctx context.Context, email string) (*models.User, error)
	CreateUserWithAnonID(ctx context.Context, anonID string) (*models.User, error)
	UpdateUserName(ctx context.Context, id uuid.UUID, name string) error
	ListUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.User, error)
}

// App resolves request identities to stable user rows. Authenticated
// visitors are keyed by the access-proxy email header, everyone else by a
// long-lived anonymous cookie minted on first contact.
type App struct {
	repo UsersRepository
}

// NewApp creates a new identity App.
func NewApp(repo UsersRepository) *App {
	return &App{repo: repo}
}

// Resolve returns the user for the given credentials, creating the row on
// first sight. Exactly one of email or anonID must be non-empty.
func (a *App) Resolve(ctx context.Context, email, anonID string) (*models.User, error) {
	if email != "" {
		user, err := a.repo.GetUserByEmail(ctx, email)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("resolve by email: %w", err)
		}
		user, err = a.repo.CreateUserWithEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("create user by email: %w", err)
		}
		log.Info().Str("user_id", user.ID.String()).Msg("registered user created")
		return user, nil
	}

	if anonID == "" {
		return nil, apperr.ErrUnauthorized
	}
	user, err := a.repo.GetUserByAnonID(ctx, anonID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("resolve by anon id: %w", err)
	}
	user, err = a.repo.CreateUserWithAnonID(ctx, anonID)
	if err != nil {
		return nil, fmt.Errorf("create anonymous user: %w", err)
	}
	log.Info().Str("user_id", user.ID.String()).Msg("anonymous user created")
	return user, nil
}

// GetUser fetches a user by id.
func (a *App) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return a.repo.GetUser(ctx, id)
}

// ListUsers fetches users in bulk.
func (a *App) ListUsers(ctx context.Context, ids []uuid.UUID) ([]*models.User, error) {
	return a.repo.ListUsersByIDs(ctx, ids)
}

// Rename updates the display name of a user.
func (a *App) Rename(ctx context.Context, id uuid.UUID, name string) error {
	if name == "" {
		return fmt.Errorf("name is required")
	}
	return a.repo.UpdateUserName(ctx, id, name)
}
