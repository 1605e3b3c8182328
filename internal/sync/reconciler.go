package sync

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/Kwentar/wows-planner/internal/client"
	"github.com/Kwentar/wows-planner/internal/models"
	"github.com/Kwentar/wows-planner/internal/relay"
)

// API is the slice of the planner client the reconciler pulls through.
type API interface {
	Heartbeat(ctx context.Context, id string) error
	SessionUsers(ctx context.Context, id string) ([]models.SessionUser, error)
	GetTablet(ctx context.Context, id string) (client.Tablet, error)
}

// Reconciler runs the periodic pull-merge cycle for one open tablet. It
// is the only path by which this client learns of other clients' durable
// edits, and the only path by which a permission change reaches a
// non-owner.
type Reconciler struct {
	api      API
	session  *Session
	clock    clockwork.Clock
	interval time.Duration
}

// NewReconciler creates a reconciler over the session.
func NewReconciler(api API, session *Session, clock clockwork.Clock) *Reconciler {
	return &Reconciler{
		api:      api,
		session:  session,
		clock:    clock,
		interval: TickInterval,
	}
}

// Run ticks at the fixed interval until the context is cancelled. The
// first tick fires immediately.
func (r *Reconciler) Run(ctx context.Context) {
	r.Tick(ctx)
	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			r.Tick(ctx)
		}
	}
}

// Tick performs one reconciliation cycle. Every step is best-effort: a
// transient failure is logged, the rest of the tick proceeds where it
// can, and the next tick retries. Nothing here surfaces to the user as a
// blocking error.
func (r *Reconciler) Tick(ctx context.Context) {
	id := r.session.TabletID()

	// 1. Heartbeat. Never fails the tick.
	if err := r.api.Heartbeat(ctx, id); err != nil {
		log.Warn().Err(err).Str("tablet_id", id).Msg("heartbeat failed")
	}

	// 2. Roster, and our own effective permission from it.
	roster, err := r.api.SessionUsers(ctx, id)
	if err != nil {
		log.Warn().Err(err).Str("tablet_id", id).Msg("roster fetch failed")
	} else {
		r.session.setRoster(roster)
		if !r.session.IsOwner() {
			for _, u := range roster {
				if u.ID == r.session.SelfID() {
					r.session.SetCanEdit(u.CanEdit)
					break
				}
			}
		}
	}

	// 3. Durable tablet state.
	t, err := r.api.GetTablet(ctx, id)
	if err != nil {
		log.Warn().Err(err).Str("tablet_id", id).Msg("tablet fetch failed, tick skipped")
		return
	}

	// 4. Ping merge: union, never replace.
	r.session.MergeRemotePings(t.Pings)

	// 5. Layer merge, gated by the interaction window.
	if applied := r.session.applyRemoteLayers(t.Layers); !applied {
		log.Debug().Str("tablet_id", id).Msg("remote layers discarded inside interaction window")
	}
}

// HandleFrame consumes one relay frame. This is the strict validation
// boundary for the tagged union: malformed or unknown frames are dropped
// with a log line and never affect the connection.
func (r *Reconciler) HandleFrame(data []byte) {
	frame, err := relay.DecodeFrame(data)
	if err != nil {
		log.Debug().Err(err).Msg("dropping undecodable relay frame")
		return
	}
	switch frame.Type {
	case relay.FrameTypePing:
		p, err := frame.Ping()
		if err != nil {
			log.Debug().Err(err).Msg("dropping invalid ping frame")
			return
		}
		p.X = models.ClampPercent(p.X)
		p.Y = models.ClampPercent(p.Y)
		r.session.MergeRemotePings([]models.Ping{p})
	case relay.FrameTypeCursor:
		// Cursor frames are presentation-only; nothing durable to do.
	default:
		log.Debug().Str("type", frame.Type).Msg("dropping unknown relay frame")
	}
}
