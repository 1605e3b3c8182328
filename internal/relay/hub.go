// Package relay is the ephemeral broadcast plane: one room per tablet,
// fan-out of opaque frames to everyone in the room except the sender. The
// hub never parses, authorizes, or persists frame contents; it is a pure
// fan-out primitive decoupled from the durable store.
package relay

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// Publisher bridges frames to sibling instances. Optional.
type Publisher interface {
	Publish(tabletID string, data []byte) error
}

// room is the membership set of one tablet. Guarded by its own mutex so
// unrelated tablets never serialize on each other.
type room struct {
	mu      sync.RWMutex
	members map[*Conn]bool
}

// Hub maps tablet ids to rooms. Rooms are created on first join and
// destroyed when the last connection leaves; no orphaned rooms.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*room

	publisher Publisher
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]*room)}
}

// SetPublisher attaches a cross-instance backplane. Must be called before
// the hub starts accepting connections.
func (h *Hub) SetPublisher(p Publisher) {
	h.publisher = p
}

// Join adds a connection to the tablet's room, creating the room if this
// is the first member.
func (h *Hub) Join(tabletID string, c *Conn) {
	h.mu.Lock()
	rm, ok := h.rooms[tabletID]
	if !ok {
		rm = &room{members: make(map[*Conn]bool)}
		h.rooms[tabletID] = rm
	}
	h.mu.Unlock()

	rm.mu.Lock()
	rm.members[c] = true
	count := len(rm.members)
	rm.mu.Unlock()

	log.Debug().
		Str("tablet_id", tabletID).
		Str("connection_id", c.id).
		Int("members", count).
		Msg("connection joined room")
}

// Leave removes a connection from its room, closing the connection's send
// channel exactly once and deleting the room when it empties. Safe to
// call from any goroutine and idempotent per connection.
func (h *Hub) Leave(tabletID string, c *Conn) {
	h.mu.Lock()
	rm, ok := h.rooms[tabletID]
	h.mu.Unlock()
	if !ok {
		return
	}

	rm.mu.Lock()
	_, member := rm.members[c]
	if member {
		delete(rm.members, c)
	}
	empty := len(rm.members) == 0
	rm.mu.Unlock()

	if !member {
		return
	}
	close(c.send)

	if empty {
		h.mu.Lock()
		// Re-check under the hub lock: someone may have joined between
		// the two critical sections.
		rm.mu.RLock()
		if len(rm.members) == 0 {
			delete(h.rooms, tabletID)
		}
		rm.mu.RUnlock()
		h.mu.Unlock()
	}

	log.Debug().
		Str("tablet_id", tabletID).
		Str("connection_id", c.id).
		Msg("connection left room")
}

// Broadcast fans a frame out to every room member except the sender and
// forwards it to the backplane. The only inspection is a JSON validity
// guard; malformed payloads are logged and dropped without affecting the
// sender's connection.
func (h *Hub) Broadcast(tabletID string, sender *Conn, data []byte) {
	if !json.Valid(data) {
		log.Warn().
			Str("tablet_id", tabletID).
			Int("bytes", len(data)).
			Msg("dropping malformed relay frame")
		return
	}

	h.fanOut(tabletID, sender, data)

	if h.publisher != nil {
		if err := h.publisher.Publish(tabletID, data); err != nil {
			log.Warn().Err(err).Str("tablet_id", tabletID).Msg("backplane publish failed")
		}
	}
}

// Deliver injects a frame arriving from the backplane into the local
// room. No sender exclusion: the originating connection lives on another
// instance.
func (h *Hub) Deliver(tabletID string, data []byte) {
	h.fanOut(tabletID, nil, data)
}

// fanOut sends to a snapshot of the room so the lock is not held during
// channel sends. A member whose buffer is full is dropped and detached;
// one slow connection never blocks or crashes delivery to the rest.
func (h *Hub) fanOut(tabletID string, sender *Conn, data []byte) {
	h.mu.RLock()
	rm, ok := h.rooms[tabletID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	rm.mu.RLock()
	targets := make([]*Conn, 0, len(rm.members))
	for c := range rm.members {
		if c == sender {
			continue
		}
		targets = append(targets, c)
	}
	rm.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.send <- data:
		default:
			log.Warn().
				Str("tablet_id", tabletID).
				Str("connection_id", c.id).
				Msg("send buffer full, dropping connection")
			h.Leave(tabletID, c)
		}
	}
}

// RoomCount returns the number of live rooms.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// MemberCount returns the number of connections in a tablet's room.
func (h *Hub) MemberCount(tabletID string) int {
	h.mu.RLock()
	rm, ok := h.rooms[tabletID]
	h.mu.RUnlock()
	if !ok {
		return 0
	}
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.members)
}
