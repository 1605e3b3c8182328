package tablet

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/Kwentar/wows-planner/internal/apperr"
	"github.com/Kwentar/wows-planner/internal/identity"
	"github.com/Kwentar/wows-planner/internal/models"
)

// Roster lists the session users of a planner and records heartbeats.
type Roster interface {
	Heartbeat(ctx context.Context, plannerID, userID uuid.UUID) error
	ListSessionUsers(ctx context.Context, plannerID, ownerID uuid.UUID) ([]models.SessionUser, error)
}

// Service exposes the planner HTTP endpoints.
type Service struct {
	app    *App
	roster Roster
}

// NewService creates a new tablet Service.
func NewService(app *App, roster Roster) *Service {
	return &Service{app: app, roster: roster}
}

// RegisterRoutes registers the planner routes on the router.
func (s *Service) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/planners", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/planners", s.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/planners/{id}", s.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/planners/{id}", s.handlePatch).Methods(http.MethodPatch)
	r.HandleFunc("/planners/{id}/heartbeat", s.handleHeartbeat).Methods(http.MethodPost)
	r.HandleFunc("/planners/{id}/users", s.handleUsers).Methods(http.MethodGet)
	r.HandleFunc("/planners/{id}/permissions", s.handlePermissions).Methods(http.MethodPost)
}

// tabletResponse is the durable-state pull shape. can_edit is computed
// server side as owner OR granted.
type tabletResponse struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	OwnerID      string         `json:"ownerId"`
	Layers       []models.Layer `json:"layers"`
	Pings        []models.Ping  `json:"pings,omitempty"`
	LastModified int64          `json:"lastModified"`
	CanEdit      bool           `json:"can_edit"`
}

func toTabletResponse(t *models.Tablet, canEdit bool) tabletResponse {
	return tabletResponse{
		ID:           t.ID.String(),
		Title:        t.Name,
		OwnerID:      t.OwnerID.String(),
		Layers:       t.Layers,
		Pings:        t.Pings,
		LastModified: t.LastModified.UnixMilli(),
		CanEdit:      canEdit,
	}
}

func (s *Service) handleGet(w http.ResponseWriter, r *http.Request) {
	user, plannerID, ok := s.requestContext(w, r)
	if !ok {
		return
	}
	t, canEdit, err := s.app.Get(r.Context(), plannerID, user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, toTabletResponse(t, canEdit))
}

func (s *Service) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFrom(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	tablets, err := s.app.List(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]tabletResponse, 0, len(tablets))
	for _, t := range tablets {
		out = append(out, toTabletResponse(t, true))
	}
	writeJSON(w, out)
}

func (s *Service) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFrom(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var body struct {
		Title string              `json:"title"`
		State *models.TabletState `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	t, err := s.app.Create(r.Context(), user.ID, body.Title, body.State)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, toTabletResponse(t, true))
}

func (s *Service) handlePatch(w http.ResponseWriter, r *http.Request) {
	user, plannerID, ok := s.requestContext(w, r)
	if !ok {
		return
	}
	var req PatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := s.app.Patch(r.Context(), plannerID, user.ID, req); err != nil {
		if errors.Is(err, ErrEmptyLayers) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"success": true})
}

// handleHeartbeat always succeeds, even for an unknown tablet id: a soft
// no-op keeps the client's reconciliation tick from treating it as an
// error.
func (s *Service) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	user, plannerID, ok := s.requestContext(w, r)
	if !ok {
		return
	}
	exists, err := s.app.Exists(r.Context(), plannerID)
	if err == nil && exists {
		err = s.roster.Heartbeat(r.Context(), plannerID, user.ID)
	}
	if err != nil {
		log.Warn().Err(err).Str("planner_id", plannerID.String()).Msg("heartbeat dropped")
	}
	writeJSON(w, map[string]any{"success": true})
}

func (s *Service) handleUsers(w http.ResponseWriter, r *http.Request) {
	user, plannerID, ok := s.requestContext(w, r)
	if !ok {
		return
	}
	t, _, err := s.app.Get(r.Context(), plannerID, user.ID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, []models.SessionUser{})
			return
		}
		writeError(w, err)
		return
	}
	roster, err := s.roster.ListSessionUsers(r.Context(), plannerID, t.OwnerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, roster)
}

func (s *Service) handlePermissions(w http.ResponseWriter, r *http.Request) {
	user, plannerID, ok := s.requestContext(w, r)
	if !ok {
		return
	}
	var body struct {
		UserID  string `json:"userId"`
		CanEdit bool   `json:"canEdit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	targetID, err := uuid.Parse(body.UserID)
	if err != nil {
		http.Error(w, "invalid userId", http.StatusBadRequest)
		return
	}
	if err := s.app.SetPermission(r.Context(), plannerID, user.ID, targetID, body.CanEdit); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"success": true})
}

// requestContext pulls the resolved user and the planner id path var.
func (s *Service) requestContext(w http.ResponseWriter, r *http.Request) (*models.User, uuid.UUID, bool) {
	user, ok := identity.UserFrom(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, uuid.Nil, false
	}
	plannerID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid planner id", http.StatusBadRequest)
		return nil, uuid.Nil, false
	}
	return user, plannerID, true
}

func writeError(w http.ResponseWriter, err error) {
	status := apperr.Status(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	}
	http.Error(w, http.StatusText(status), status)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}
