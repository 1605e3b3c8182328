package relay

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Kwentar/wows-planner/internal/identity"
)

// Handler upgrades HTTP requests into room connections.
type Handler struct {
	hub      *Hub
	cfg      Config
	upgrader websocket.Upgrader
}

// NewHandler creates a websocket handler over the hub.
func NewHandler(hub *Hub, cfg Config) *Handler {
	return &Handler{
		hub: hub,
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     cfg.CheckOrigin,
		},
	}
}

// RegisterRoutes registers the socket route. One connection per client
// per open tablet, addressed by tablet id.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/socket/{id}", h.HandleSocket).Methods(http.MethodGet)
}

// HandleSocket upgrades the request and joins the connection into the
// tablet's room. Pings are intentionally unrestricted, so joining needs a
// session identity but no edit grant.
func (h *Handler) HandleSocket(w http.ResponseWriter, r *http.Request) {
	tabletID := mux.Vars(r)["id"]
	if tabletID == "" {
		http.Error(w, "tablet id required", http.StatusBadRequest)
		return
	}
	userID := ""
	if user, ok := identity.UserFrom(r.Context()); ok {
		userID = user.ID.String()
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("tablet_id", tabletID).Msg("websocket upgrade failed")
		return
	}

	c := newConn(ws, h.hub, h.cfg, tabletID, userID)
	h.hub.Join(tabletID, c)

	go c.writePump()
	go c.readPump()

	log.Info().
		Str("connection_id", c.id).
		Str("tablet_id", tabletID).
		Str("user_id", userID).
		Msg("relay connection established")
}
