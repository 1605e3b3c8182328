package presence

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/Kwentar/wows-planner/internal/models"
)

// UserDirectory supplies user rows for roster assembly.
type UserDirectory interface {
	ListUsers(ctx context.Context, ids []uuid.UUID) ([]*models.User, error)
}

// GrantSource supplies the permission grants of a planner.
type GrantSource interface {
	Grants(ctx context.Context, plannerID uuid.UUID) (map[uuid.UUID]bool, error)
}

// App derives the session roster of a tablet: heartbeat rows joined with
// the grant table and the owner flag. isOnline is a pure function of the
// heartbeat timestamp at read time.
type App struct {
	registry *Registry
	users    UserDirectory
	grants   GrantSource
}

// NewApp creates a new presence App.
func NewApp(registry *Registry, users UserDirectory, grants GrantSource) *App {
	return &App{registry: registry, users: users, grants: grants}
}

// Heartbeat records that userID is viewing the planner right now.
func (a *App) Heartbeat(ctx context.Context, plannerID, userID uuid.UUID) error {
	return a.registry.Heartbeat(ctx, plannerID, userID)
}

// ListSessionUsers returns the roster for a planner, ordered by name for a
// stable presentation. The owner always reads as canEdit regardless of
// the grant table.
func (a *App) ListSessionUsers(ctx context.Context, plannerID, ownerID uuid.UUID) ([]models.SessionUser, error) {
	sessions, err := a.registry.Sessions(ctx, plannerID)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return []models.SessionUser{}, nil
	}

	grants, err := a.grants.Grants(ctx, plannerID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(sessions))
	lastActive := make(map[uuid.UUID]Session, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.UserID)
		lastActive[s.UserID] = s
	}
	users, err := a.users.ListUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("roster users: %w", err)
	}

	now := a.registry.Now()
	roster := make([]models.SessionUser, 0, len(users))
	for _, u := range users {
		session, ok := lastActive[u.ID]
		if !ok {
			continue
		}
		isOwner := u.ID == ownerID
		roster = append(roster, models.SessionUser{
			ID:       u.ID.String(),
			Name:     u.DisplayName(),
			IsOnline: session.Online(now),
			CanEdit:  isOwner || grants[u.ID],
			IsOwner:  isOwner,
		})
	}
	sort.Slice(roster, func(i, j int) bool {
		if roster[i].Name != roster[j].Name {
			return roster[i].Name < roster[j].Name
		}
		return roster[i].ID < roster[j].ID
	})
	return roster, nil
}
