// Package permissions resolves who may mutate a tablet's durable state.
package permissions

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Kwentar/wows-planner/internal/apperr"
)

// GrantsRepository defines what the app layer needs from the repository.
type GrantsRepository interface {
	GetGrant(ctx context.Context, plannerID, userID uuid.UUID) (canEdit bool, found bool, err error)
	UpsertGrant(ctx context.Context, plannerID, userID uuid.UUID, canEdit bool) error
	ListGrants(ctx context.Context, plannerID uuid.UUID) (map[uuid.UUID]bool, error)
}

// App is the permission authority for tablets.
type App struct {
	repo GrantsRepository
}

// NewApp creates a new permissions App.
func NewApp(repo GrantsRepository) *App {
	return &App{repo: repo}
}

// CanMutateDurableState reports whether userID may write the tablet's
// title or layer state. The owner's right is implicit; everyone else
// needs a grant row with can_edit set.
func (a *App) CanMutateDurableState(ctx context.Context, plannerID, ownerID, userID uuid.UUID) (bool, error) {
	if userID == ownerID {
		return true, nil
	}
	canEdit, found, err := a.repo.GetGrant(ctx, plannerID, userID)
	if err != nil {
		return false, err
	}
	return found && canEdit, nil
}

// CanMutateEphemeral reports whether userID may fire pings. Always true
// for session participants: observers keep a pointing channel.
func (a *App) CanMutateEphemeral(ctx context.Context, plannerID, ownerID, userID uuid.UUID) bool {
	return true
}

// Grant sets the edit right of targetID on a planner. Only the owner may
// grant, and not to themselves (their right is implicit and irrevocable).
// The change propagates to the target only through their next
// reconciliation tick; nothing is pushed.
func (a *App) Grant(ctx context.Context, plannerID, ownerID, requesterID, targetID uuid.UUID, canEdit bool) error {
	if requesterID != ownerID {
		return apperr.ErrForbidden
	}
	if targetID == requesterID {
		return apperr.ErrForbidden
	}
	if err := a.repo.UpsertGrant(ctx, plannerID, targetID, canEdit); err != nil {
		return fmt.Errorf("grant: %w", err)
	}
	log.Info().
		Str("planner_id", plannerID.String()).
		Str("target_id", targetID.String()).
		Bool("can_edit", canEdit).
		Msg("permission grant updated")
	return nil
}

// Grants returns all grant rows for a planner, for roster assembly.
func (a *App) Grants(ctx context.Context, plannerID uuid.UUID) (map[uuid.UUID]bool, error) {
	return a.repo.ListGrants(ctx, plannerID)
}
