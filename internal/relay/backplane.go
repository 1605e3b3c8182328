package relay

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const backplaneSubjectPrefix = "relay.tablet."

// envelope wraps a frame on the backplane. The instance tag lets each
// process skip its own publishes.
type envelope struct {
	Instance string          `json:"instance"`
	Data     json.RawMessage `json:"data"`
}

// Backplane bridges relay rooms across server instances over NATS. Each
// local broadcast is published to relay.tablet.<id>; sibling instances
// re-deliver it into their own room for the same tablet. Purely
// best-effort, like the rest of the relay plane.
type Backplane struct {
	nc         *nats.Conn
	hub        *Hub
	instanceID string
	sub        *nats.Subscription
}

// NewBackplane connects to NATS and wires the hub into it.
func NewBackplane(url string, hub *Hub) (*Backplane, error) {
	nc, err := nats.Connect(url, nats.Name("planner-relay"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	b := &Backplane{
		nc:         nc,
		hub:        hub,
		instanceID: uuid.New().String(),
	}
	hub.SetPublisher(b)
	return b, nil
}

// Publish sends a frame to sibling instances.
func (b *Backplane) Publish(tabletID string, data []byte) error {
	env, err := json.Marshal(envelope{Instance: b.instanceID, Data: data})
	if err != nil {
		return fmt.Errorf("encode backplane envelope: %w", err)
	}
	return b.nc.Publish(backplaneSubjectPrefix+tabletID, env)
}

// Start subscribes to all tablet subjects and re-delivers foreign frames
// into local rooms.
func (b *Backplane) Start() error {
	sub, err := b.nc.Subscribe(backplaneSubjectPrefix+">", func(msg *nats.Msg) {
		tabletID := strings.TrimPrefix(msg.Subject, backplaneSubjectPrefix)
		var env envelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			log.Warn().Err(err).Str("subject", msg.Subject).Msg("dropping malformed backplane message")
			return
		}
		if env.Instance == b.instanceID {
			return
		}
		b.hub.Deliver(tabletID, env.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe backplane: %w", err)
	}
	b.sub = sub
	log.Info().Str("instance", b.instanceID).Msg("relay backplane started")
	return nil
}

// Close drains the subscription and the connection.
func (b *Backplane) Close() {
	if b.sub != nil {
		if err := b.sub.Unsubscribe(); err != nil {
			log.Warn().Err(err).Msg("backplane unsubscribe failed")
		}
	}
	b.nc.Close()
}
