package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

// Socket is one relay connection for one open tablet. Frames are opaque
// JSON; nothing sent here is ever echoed back to the sender.
type Socket struct {
	ws *websocket.Conn
}

// DialSocket opens the relay connection for a tablet, reusing the
// client's cookies so the server sees the same identity.
func (c *Client) DialSocket(ctx context.Context, tabletID string) (*Socket, error) {
	wsURL, err := socketURL(c.baseURL, tabletID)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	for k, v := range c.headers {
		header.Set(k, v)
	}

	dialer := websocket.Dialer{Jar: c.http.Jar}
	ws, _, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, fmt.Errorf("dial relay socket: %w", err)
	}
	return &Socket{ws: ws}, nil
}

func socketURL(baseURL, tabletID string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/socket/" + tabletID
	return u.String(), nil
}

// Send writes a raw frame.
func (s *Socket) Send(data []byte) error {
	return s.ws.WriteMessage(websocket.TextMessage, data)
}

// Read blocks for the next frame.
func (s *Socket) Read() ([]byte, error) {
	_, data, err := s.ws.ReadMessage()
	return data, err
}

// Close tears the connection down; the server removes the membership
// synchronously on close.
func (s *Socket) Close() error {
	return s.ws.Close()
}
