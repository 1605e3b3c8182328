package relay

import (
	"testing"

	"github.com/Kwentar/wows-planner/internal/models"
)

func TestPingFrameRoundTrip(t *testing.T) {
	in := models.Ping{ID: "p-1", X: 12.5, Y: 87.5, Color: "#fff", CreatedAt: 1700000000000}
	data, err := EncodePingFrame(in)
	if err != nil {
		t.Fatal(err)
	}

	frame, err := DecodeFrame(data)
	if err != nil {
		t.Fatal(err)
	}
	if frame.Type != FrameTypePing {
		t.Fatalf("frame type = %q, want ping", frame.Type)
	}
	out, err := frame.Ping()
	if err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Errorf("round trip changed ping: %+v != %+v", out, in)
	}
}

func TestDecodeFrameErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"not json", "hello"},
		{"missing type", `{"payload":{}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeFrame([]byte(tt.data)); err == nil {
				t.Error("want error, got nil")
			}
		})
	}
}

func TestPingAccessorRejectsWrongType(t *testing.T) {
	data, err := EncodeCursorFrame(CursorPayload{UserID: "u", X: 1, Y: 2})
	if err != nil {
		t.Fatal(err)
	}
	frame, err := DecodeFrame(data)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := frame.Ping(); err == nil {
		t.Error("cursor frame accepted as ping")
	}
}

func TestPingAccessorRequiresID(t *testing.T) {
	frame := Frame{Type: FrameTypePing, Payload: []byte(`{"x":1,"y":2}`)}
	if _, err := frame.Ping(); err == nil {
		t.Error("ping without id accepted")
	}
}

func TestCursorRoundTrip(t *testing.T) {
	in := CursorPayload{UserID: "u-1", X: 33, Y: 66}
	data, err := EncodeCursorFrame(in)
	if err != nil {
		t.Fatal(err)
	}
	frame, err := DecodeFrame(data)
	if err != nil {
		t.Fatal(err)
	}
	out, err := frame.Cursor()
	if err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Errorf("round trip changed cursor: %+v != %+v", out, in)
	}
}
