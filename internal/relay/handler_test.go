package relay

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

func startRelayServer(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub()
	handler := NewHandler(hub, DefaultConfig())

	r := mux.NewRouter()
	handler.RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, wsURL, tabletID string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(wsURL+"/socket/"+tabletID, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func waitForMembers(t *testing.T, hub *Hub, tabletID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.MemberCount(tabletID) != want && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := hub.MemberCount(tabletID); got != want {
		t.Fatalf("member count = %d, want %d", got, want)
	}
}

func TestSocketEndToEnd(t *testing.T) {
	hub, wsURL := startRelayServer(t)

	sender := dial(t, wsURL, "tab-1")
	receiver := dial(t, wsURL, "tab-1")
	stranger := dial(t, wsURL, "tab-2")
	waitForMembers(t, hub, "tab-1", 2)
	waitForMembers(t, hub, "tab-2", 1)

	frame := []byte(`{"type":"ping","payload":{"id":"p-1","x":10,"y":20}}`)
	if err := sender.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatal(err)
	}

	receiver.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, got, err := receiver.ReadMessage()
	if err != nil {
		t.Fatalf("receiver read: %v", err)
	}
	if string(got) != string(frame) {
		t.Errorf("received %q, want %q", got, frame)
	}

	// Neither the sender nor the other room hears anything.
	sender.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := sender.ReadMessage(); err == nil {
		t.Error("sender received its own frame")
	}
	stranger.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := stranger.ReadMessage(); err == nil {
		t.Error("other room received the frame")
	}
}

func TestSocketCloseLeavesRoom(t *testing.T) {
	hub, wsURL := startRelayServer(t)

	ws := dial(t, wsURL, "tab-1")
	waitForMembers(t, hub, "tab-1", 1)

	ws.Close()
	waitForMembers(t, hub, "tab-1", 0)

	deadline := time.Now().Add(2 * time.Second)
	for hub.RoomCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.RoomCount() != 0 {
		t.Errorf("room count = %d after close, want 0", hub.RoomCount())
	}
}
