package identity

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// Service exposes the identity endpoints.
type Service struct {
	app *App
}

// NewService creates a new identity Service.
func NewService(app *App) *Service {
	return &Service{app: app}
}

// RegisterRoutes registers /me on the router.
func (s *Service) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/me", s.handleGetMe).Methods(http.MethodGet)
	r.HandleFunc("/me", s.handlePatchMe).Methods(http.MethodPatch)
}

func (s *Service) handleGetMe(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFrom(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, map[string]any{
		"id":          user.ID.String(),
		"email":       user.Email,
		"isAnonymous": user.IsAnonymous(),
		"name":        user.DisplayName(),
	})
}

func (s *Service) handlePatchMe(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFrom(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}
	if err := s.app.Rename(r.Context(), user.ID, body.Name); err != nil {
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("rename failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"success": true})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}
