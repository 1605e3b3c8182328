// Package sync implements the client side of the hybrid synchronization:
// a local document session, a write-through controller for gestures, and
// the periodic reconciliation loop that pulls durable state and presence.
package sync

import (
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Kwentar/wows-planner/internal/models"
)

const (
	// TickInterval is the reconciliation cadence.
	TickInterval = 3 * time.Second
	// ActionGraceWindow suppresses remote layer overwrites for this long
	// after any local mutating action.
	ActionGraceWindow = 3 * time.Second
	// LocalPingTTL expires the originator's own broadcast copy.
	LocalPingTTL = 1500 * time.Millisecond
	// ReconciledPingTTL expires any copy learned from peers or polling.
	ReconciledPingTTL = 10 * time.Second
)

type pingEntry struct {
	ping  models.Ping
	local bool
}

func (e pingEntry) expired(now time.Time) bool {
	ttl := ReconciledPingTTL
	if e.local {
		ttl = LocalPingTTL
	}
	return e.ping.Age(now) >= ttl
}

// Session is one client's local view of a tablet: optimistic layer state,
// the independently-expiring ping set, the roster, and the interaction
// window bookkeeping the reconciler consults.
type Session struct {
	mu    sync.Mutex
	clock clockwork.Clock

	tabletID string
	selfID   string
	isOwner  bool
	canEdit  bool

	layers []models.Layer
	pings  map[string]pingEntry
	roster []models.SessionUser

	interacting bool
	lastAction  time.Time
}

// NewSession seeds a session from a durable pull.
func NewSession(clock clockwork.Clock, tabletID, selfID string, isOwner, canEdit bool, layers []models.Layer) *Session {
	return &Session{
		clock:    clock,
		tabletID: tabletID,
		selfID:   selfID,
		isOwner:  isOwner,
		canEdit:  isOwner || canEdit,
		layers:   cloneLayers(layers),
		pings:    make(map[string]pingEntry),
	}
}

// TabletID returns the id of the open tablet.
func (s *Session) TabletID() string { return s.tabletID }

// SelfID returns the local user id.
func (s *Session) SelfID() string { return s.selfID }

// IsOwner reports whether the local user owns the tablet.
func (s *Session) IsOwner() bool { return s.isOwner }

// CanEdit reports the last-known effective edit right.
func (s *Session) CanEdit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canEdit
}

// SetCanEdit updates the effective edit right; the owner's right is
// implicit and never downgraded.
func (s *Session) SetCanEdit(canEdit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canEdit = s.isOwner || canEdit
}

// Roster returns the last-fetched session users.
func (s *Session) Roster() []models.SessionUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SessionUser, len(s.roster))
	copy(out, s.roster)
	return out
}

func (s *Session) setRoster(roster []models.SessionUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roster = roster
}

// Layers returns a copy of the local layer state.
func (s *Session) Layers() []models.Layer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneLayers(s.layers)
}

// SetLayersLocal applies a local optimistic mutation and marks the
// action, opening the grace window.
func (s *Session) SetLayersLocal(layers []models.Layer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layers = cloneLayers(layers)
	s.lastAction = s.clock.Now()
}

// MarkAction records a local mutating action without touching layers.
func (s *Session) MarkAction() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAction = s.clock.Now()
}

// BeginInteraction marks the start of a gesture. Set before the first
// durable write of the gesture so a concurrent tick observes it.
func (s *Session) BeginInteraction() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interacting = true
	s.lastAction = s.clock.Now()
}

// EndInteraction clears the gesture flag after the write settled.
func (s *Session) EndInteraction() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interacting = false
	s.lastAction = s.clock.Now()
}

// Interacting reports whether a gesture is in progress.
func (s *Session) Interacting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interacting
}

// applyRemoteLayers replaces local layers with a fetched snapshot, but
// only outside the interaction window: never mid-gesture and never within
// the grace window after the last local action. Returns whether the
// snapshot was applied. This is the anti-jitter policy: local intent wins
// briefly, then the server's view wins unconditionally.
func (s *Session) applyRemoteLayers(layers []models.Layer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.interacting {
		return false
	}
	if s.clock.Now().Sub(s.lastAction) < ActionGraceWindow {
		return false
	}
	s.layers = cloneLayers(layers)
	return true
}

// FirePing adds a locally fired ping. It expires after LocalPingTTL.
func (s *Session) FirePing(p models.Ping) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pings[p.ID] = pingEntry{ping: p, local: true}
}

// MergeRemotePings unions remote pings into the local set, deduplicated
// by id and each filtered by the reconciled age cutoff. The local set is
// never wholesale-replaced: a just-fired local ping that is not yet
// durably persisted must survive the merge.
func (s *Session) MergeRemotePings(remote []models.Ping) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	for _, p := range remote {
		if p.Age(now) >= ReconciledPingTTL {
			continue
		}
		if _, exists := s.pings[p.ID]; exists {
			continue
		}
		s.pings[p.ID] = pingEntry{ping: p}
	}
	s.prunePings(now)
}

// Pings returns the live ping set, each copy filtered by its own TTL,
// ordered by creation time.
func (s *Session) Pings() []models.Ping {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	s.prunePings(now)
	out := make([]models.Ping, 0, len(s.pings))
	for _, e := range s.pings {
		out = append(out, e.ping)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out
}

func (s *Session) prunePings(now time.Time) {
	for id, e := range s.pings {
		if e.expired(now) {
			delete(s.pings, id)
		}
	}
}

func cloneLayers(layers []models.Layer) []models.Layer {
	out := make([]models.Layer, len(layers))
	for i, l := range layers {
		items := make([]models.TacticalItem, len(l.Items))
		copy(items, l.Items)
		l.Items = items
		out[i] = l
	}
	return out
}
