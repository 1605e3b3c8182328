package sync

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Kwentar/wows-planner/internal/client"
	"github.com/Kwentar/wows-planner/internal/models"
	"github.com/Kwentar/wows-planner/internal/relay"
)

// WriterAPI is the slice of the planner client the controller writes
// through.
type WriterAPI interface {
	PatchTablet(ctx context.Context, id string, patch client.Patch) error
}

// FrameSender pushes an encoded frame onto the relay. Optional; without a
// socket, pings still reach pollers through the durable annotation.
type FrameSender interface {
	Send(data []byte) error
}

// Controller applies gesture output: optimistic local mutation first,
// then a durable write-through. A failed write is logged and the local
// state kept; the inconsistency closes on the next successful write or
// reconciliation tick.
type Controller struct {
	ctx     context.Context
	api     WriterAPI
	session *Session
	socket  FrameSender

	pingColor string
}

// NewController wires a session to the write path.
func NewController(ctx context.Context, api WriterAPI, session *Session, socket FrameSender) *Controller {
	return &Controller{
		ctx:       ctx,
		api:       api,
		session:   session,
		socket:    socket,
		pingColor: "#f8fafc",
	}
}

// SetPingColor selects the color of subsequently fired pings.
func (c *Controller) SetPingColor(color string) {
	c.pingColor = color
}

// CanEdit reports the session's effective edit right.
func (c *Controller) CanEdit() bool {
	return c.session.CanEdit()
}

// BeginInteraction opens the interaction window before the gesture's
// first durable write.
func (c *Controller) BeginInteraction() {
	c.session.BeginInteraction()
}

// EndInteraction closes the interaction window.
func (c *Controller) EndInteraction() {
	c.session.EndInteraction()
}

// ActiveLayer returns the layer gestures currently target. The first
// visible layer is active; a tablet always has at least one layer.
func (c *Controller) ActiveLayer() (models.Layer, bool) {
	layers := c.session.Layers()
	for _, l := range layers {
		if l.IsVisible {
			return l, true
		}
	}
	if len(layers) > 0 {
		return layers[0], true
	}
	return models.Layer{}, false
}

// UpdateLayerItems replaces the items of one layer, locally first and
// durably second. Silent no-op without edit rights.
func (c *Controller) UpdateLayerItems(layerID string, items []models.TacticalItem) {
	if !c.session.CanEdit() {
		return
	}
	layers := c.session.Layers()
	found := false
	for i := range layers {
		if layers[i].ID == layerID {
			layers[i].Items = items
			found = true
			break
		}
	}
	if !found {
		return
	}
	c.session.SetLayersLocal(layers)

	state := models.TabletState{Layers: layers}
	if err := c.api.PatchTablet(c.ctx, c.session.TabletID(), client.Patch{State: &state}); err != nil {
		// Keep the optimistic local position; the next write or tick
		// reconciles.
		log.Warn().Err(err).Str("tablet_id", c.session.TabletID()).Msg("durable write failed")
	}
}

// Ping fires an ephemeral marker: into the local set, onto the relay for
// connected peers, and into the durable annotation for pollers. Allowed
// for every session participant regardless of edit rights.
func (c *Controller) Ping(x, y float64) {
	p := models.Ping{
		ID:        uuid.New().String(),
		X:         models.ClampPercent(x),
		Y:         models.ClampPercent(y),
		Color:     c.pingColor,
		CreatedAt: c.session.clock.Now().UnixMilli(),
	}
	c.session.MarkAction()
	c.session.FirePing(p)

	if c.socket != nil {
		if data, err := relay.EncodePingFrame(p); err == nil {
			if err := c.socket.Send(data); err != nil {
				log.Warn().Err(err).Msg("relay ping send failed")
			}
		}
	}

	if err := c.api.PatchTablet(c.ctx, c.session.TabletID(), client.Patch{Pings: []models.Ping{p}}); err != nil {
		log.Warn().Err(err).Str("tablet_id", c.session.TabletID()).Msg("durable ping write failed")
	}
}
