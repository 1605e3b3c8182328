// Package presence tracks which users are currently viewing a tablet.
package presence

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// OnlineWindow is the staleness cutoff: a user with no heartbeat for this
// long reads as offline. There is no explicit disconnect event.
const OnlineWindow = 2 * time.Minute

// pruneAfter bounds the session hash; entries this stale are deleted on
// read. Well beyond OnlineWindow so it never affects the roster.
const pruneAfter = 24 * time.Hour

// Session is one heartbeat row.
type Session struct {
	UserID     uuid.UUID
	LastActive time.Time
}

// Online reports whether the session counts as online at the given time.
func (s Session) Online(now time.Time) bool {
	return now.Sub(s.LastActive) < OnlineWindow
}

// Registry stores heartbeats in a Redis hash per tablet. Presence decays
// implicitly through the online window; nothing is actively evicted
// before the prune horizon.
type Registry struct {
	client *redis.Client
	clock  clockwork.Clock
	prefix string
}

// NewRegistry creates a registry from an existing Redis client.
func NewRegistry(client *redis.Client, clock clockwork.Clock) *Registry {
	return &Registry{client: client, clock: clock, prefix: "planner:sessions:"}
}

func (r *Registry) key(plannerID uuid.UUID) string {
	return r.prefix + plannerID.String()
}

// Heartbeat marks the user active now. Idempotent; creates the session
// row if absent.
func (r *Registry) Heartbeat(ctx context.Context, plannerID, userID uuid.UUID) error {
	now := r.clock.Now().UnixMilli()
	if err := r.client.HSet(ctx, r.key(plannerID), userID.String(), now).Err(); err != nil {
		return fmt.Errorf("heartbeat: %w", err)
	}
	return nil
}

// Sessions returns every heartbeat row for a tablet, pruning entries past
// the prune horizon as a side effect.
func (r *Registry) Sessions(ctx context.Context, plannerID uuid.UUID) ([]Session, error) {
	rows, err := r.client.HGetAll(ctx, r.key(plannerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	now := r.clock.Now()
	var sessions []Session
	var stale []string
	for field, raw := range rows {
		userID, err := uuid.Parse(field)
		if err != nil {
			stale = append(stale, field)
			continue
		}
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			stale = append(stale, field)
			continue
		}
		lastActive := time.UnixMilli(ms)
		if now.Sub(lastActive) > pruneAfter {
			stale = append(stale, field)
			continue
		}
		sessions = append(sessions, Session{UserID: userID, LastActive: lastActive})
	}

	if len(stale) > 0 {
		if err := r.client.HDel(ctx, r.key(plannerID), stale...).Err(); err != nil {
			log.Warn().Err(err).Str("planner_id", plannerID.String()).Msg("failed to prune stale sessions")
		}
	}
	return sessions, nil
}

// Now exposes the registry clock so callers derive isOnline from the same
// time source.
func (r *Registry) Now() time.Time {
	return r.clock.Now()
}
