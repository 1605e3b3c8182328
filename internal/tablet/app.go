// Package tablet owns durable tablet state and its mutation rules.
package tablet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Kwentar/wows-planner/internal/apperr"
	"github.com/Kwentar/wows-planner/internal/models"
)

// ErrEmptyLayers rejects a state write that would leave a tablet without
// layers. A tablet always keeps at least one layer.
var ErrEmptyLayers = errors.New("layer list cannot be empty")

// TabletRepository defines what the app layer needs from the repository.
type TabletRepository interface {
	GetTablet(ctx context.Context, id uuid.UUID) (*models.Tablet, error)
	TabletExists(ctx context.Context, id uuid.UUID) (bool, error)
	ListTablets(ctx context.Context, ownerID uuid.UUID) ([]*models.Tablet, error)
	CreateTablet(ctx context.Context, ownerID uuid.UUID, title string, state models.TabletState) (*models.Tablet, error)
	UpdateTitle(ctx context.Context, id uuid.UUID, title string) error
	UpdateState(ctx context.Context, id uuid.UUID, state models.TabletState) error
	ReplacePings(ctx context.Context, id uuid.UUID, pings []models.Ping) error
}

// Authority answers permission questions for durable writes.
type Authority interface {
	CanMutateDurableState(ctx context.Context, plannerID, ownerID, userID uuid.UUID) (bool, error)
	Grant(ctx context.Context, plannerID, ownerID, requesterID, targetID uuid.UUID, canEdit bool) error
}

// App handles tablet business logic.
type App struct {
	repo TabletRepository
	auth Authority
}

// NewApp creates a new tablet App.
func NewApp(repo TabletRepository, auth Authority) *App {
	return &App{repo: repo, auth: auth}
}

// PatchRequest is a partial durable mutation. Nil fields are untouched; a
// request carrying only pings bypasses the edit-permission check.
type PatchRequest struct {
	Title *string             `json:"title,omitempty"`
	State *models.TabletState `json:"state,omitempty"`
	Pings []models.Ping       `json:"pings,omitempty"`
}

// pingOnly reports whether the patch touches nothing but the ephemeral
// ping annotation.
func (p PatchRequest) pingOnly() bool {
	return p.Title == nil && p.State == nil && p.Pings != nil
}

// Get fetches a tablet together with the caller's effective edit right.
func (a *App) Get(ctx context.Context, id, userID uuid.UUID) (*models.Tablet, bool, error) {
	t, err := a.repo.GetTablet(ctx, id)
	if err != nil {
		return nil, false, err
	}
	canEdit, err := a.auth.CanMutateDurableState(ctx, id, t.OwnerID, userID)
	if err != nil {
		return nil, false, err
	}
	return t, canEdit, nil
}

// List returns the caller's own tablets.
func (a *App) List(ctx context.Context, ownerID uuid.UUID) ([]*models.Tablet, error) {
	return a.repo.ListTablets(ctx, ownerID)
}

// Create makes a new tablet seeded with one base layer. The sync core
// itself never creates tablets; this is the boundary CRUD.
func (a *App) Create(ctx context.Context, ownerID uuid.UUID, title string, state *models.TabletState) (*models.Tablet, error) {
	if title == "" {
		title = "New Plan"
	}
	if state == nil || len(state.Layers) == 0 {
		state = &models.TabletState{Layers: []models.Layer{models.NewBaseLayer()}}
	}
	for i := range state.Layers {
		state.Layers[i].Sanitize()
	}
	return a.repo.CreateTablet(ctx, ownerID, title, *state)
}

// Patch applies a partial mutation. Title and layer-state writes require
// durable edit rights; a pings-only payload is allowed for any session
// participant. Coordinates are clamped before anything enters durable
// state.
func (a *App) Patch(ctx context.Context, id, userID uuid.UUID, req PatchRequest) error {
	t, err := a.repo.GetTablet(ctx, id)
	if err != nil {
		return err
	}

	canEdit, err := a.auth.CanMutateDurableState(ctx, id, t.OwnerID, userID)
	if err != nil {
		return err
	}
	if !canEdit && !req.pingOnly() {
		return apperr.ErrForbidden
	}

	if req.Title != nil {
		if err := a.repo.UpdateTitle(ctx, id, *req.Title); err != nil {
			return err
		}
	}
	if req.State != nil {
		if len(req.State.Layers) == 0 {
			return ErrEmptyLayers
		}
		for i := range req.State.Layers {
			req.State.Layers[i].Sanitize()
		}
		if err := a.repo.UpdateState(ctx, id, *req.State); err != nil {
			return err
		}
	}
	if req.Pings != nil {
		pings := make([]models.Ping, len(req.Pings))
		for i, p := range req.Pings {
			p.X = models.ClampPercent(p.X)
			p.Y = models.ClampPercent(p.Y)
			pings[i] = p
		}
		if err := a.repo.ReplacePings(ctx, id, pings); err != nil {
			return err
		}
	}

	log.Debug().
		Str("planner_id", id.String()).
		Str("user_id", userID.String()).
		Bool("ping_only", req.pingOnly()).
		Msg("tablet patched")
	return nil
}

// Heartbeat existence check: an unknown tablet id is a soft no-op for the
// heartbeat route, never an error.
func (a *App) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return a.repo.TabletExists(ctx, id)
}

// SetPermission grants or revokes the edit right of targetID, owner only.
func (a *App) SetPermission(ctx context.Context, id, requesterID, targetID uuid.UUID, canEdit bool) error {
	t, err := a.repo.GetTablet(ctx, id)
	if err != nil {
		return err
	}
	if err := a.auth.Grant(ctx, id, t.OwnerID, requesterID, targetID, canEdit); err != nil {
		return fmt.Errorf("set permission: %w", err)
	}
	return nil
}
