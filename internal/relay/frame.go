package relay

import (
	"encoding/json"
	"fmt"

	"github.com/Kwentar/wows-planner/internal/models"
)

// Frame is the tagged union carried over the relay. The hub forwards
// frames opaquely; this shape is validated strictly only at the consumer
// boundary (the client's reconciliation side).
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Frame types understood by consumers. Unknown types are dropped there.
const (
	FrameTypePing   = "ping"
	FrameTypeCursor = "cursor"
)

// CursorPayload is a transient remote pointer position.
type CursorPayload struct {
	UserID string  `json:"userId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// EncodePingFrame wraps a ping for broadcast.
func EncodePingFrame(p models.Ping) ([]byte, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode ping payload: %w", err)
	}
	return json.Marshal(Frame{Type: FrameTypePing, Payload: payload})
}

// EncodeCursorFrame wraps a cursor position for broadcast.
func EncodeCursorFrame(c CursorPayload) ([]byte, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode cursor payload: %w", err)
	}
	return json.Marshal(Frame{Type: FrameTypeCursor, Payload: payload})
}

// DecodeFrame parses a relay frame. Consumers must treat an error or an
// unknown Type as a dropped frame, never a fatal condition.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if f.Type == "" {
		return Frame{}, fmt.Errorf("decode frame: missing type")
	}
	return f, nil
}

// Ping decodes the payload of a ping frame.
func (f Frame) Ping() (models.Ping, error) {
	if f.Type != FrameTypePing {
		return models.Ping{}, fmt.Errorf("frame is %q, not ping", f.Type)
	}
	var p models.Ping
	if err := json.Unmarshal(f.Payload, &p); err != nil {
		return models.Ping{}, fmt.Errorf("decode ping payload: %w", err)
	}
	if p.ID == "" {
		return models.Ping{}, fmt.Errorf("ping payload missing id")
	}
	return p, nil
}

// Cursor decodes the payload of a cursor frame.
func (f Frame) Cursor() (CursorPayload, error) {
	if f.Type != FrameTypeCursor {
		return CursorPayload{}, fmt.Errorf("frame is %q, not cursor", f.Type)
	}
	var c CursorPayload
	if err := json.Unmarshal(f.Payload, &c); err != nil {
		return CursorPayload{}, fmt.Errorf("decode cursor payload: %w", err)
	}
	return c, nil
}
