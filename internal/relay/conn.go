package relay

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Config holds the per-connection websocket tuning.
type Config struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	SendBufferSize  int
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConfig returns the default websocket configuration.
func DefaultConfig() Config {
	return Config{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  64 * 1024,
		SendBufferSize:  256,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
}

// Conn is one client connection inside a room. Outbound frames go through
// a buffered send channel serviced by writePump; inbound frames are read
// by readPump and handed to the hub verbatim.
type Conn struct {
	id       string
	userID   string
	tabletID string

	ws   *websocket.Conn
	send chan []byte
	hub  *Hub
	cfg  Config

	connectedAt time.Time
}

// newConn wraps an upgraded websocket.
func newConn(ws *websocket.Conn, hub *Hub, cfg Config, tabletID, userID string) *Conn {
	return &Conn{
		id:          uuid.New().String(),
		userID:      userID,
		tabletID:    tabletID,
		ws:          ws,
		send:        make(chan []byte, cfg.SendBufferSize),
		hub:         hub,
		cfg:         cfg,
		connectedAt: time.Now(),
	}
}

// writePump drains the send channel onto the wire and keeps the
// connection alive with pings. Exits when the send channel closes (the
// hub dropped us) or a write fails.
func (c *Conn) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.id).
					Msg("relay write failed")
				c.hub.Leave(c.tabletID, c)
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.Leave(c.tabletID, c)
				return
			}
		}
	}
}

// readPump forwards every inbound frame to the hub. Closing the socket
// removes the connection from its room immediately; there is no drain.
func (c *Conn) readPump() {
	defer func() {
		c.hub.Leave(c.tabletID, c)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(c.cfg.MaxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().
					Err(err).
					Str("connection_id", c.id).
					Msg("unexpected relay close")
			}
			return
		}
		c.hub.Broadcast(c.tabletID, c, data)
		c.ws.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	}
}
