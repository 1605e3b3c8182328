// Package interact translates pointer events into tablet mutations: item
// placement, dragging, rotation, erasure and pings. It owns the gesture
// state and marks the interaction window the reconciliation loop
// respects.
package interact

import (
	"math"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Kwentar/wows-planner/internal/models"
)

// Tool is the active editing tool.
type Tool string

const (
	ToolPointer Tool = "POINTER"
	ToolShipBB  Tool = "SHIP_BB"
	ToolShipCL  Tool = "SHIP_CL"
	ToolShipDD  Tool = "SHIP_DD"
	ToolShipCV  Tool = "SHIP_CV"
	ToolShipSub Tool = "SHIP_SUB"
	ToolRotate  Tool = "ROTATE"
	ToolEraser  Tool = "ERASER"
	ToolPing    Tool = "PING"
	ToolText    Tool = "TEXT"
)

func (t Tool) shipClass() (models.ShipClass, bool) {
	switch t {
	case ToolShipBB:
		return models.ShipClassBB, true
	case ToolShipCL:
		return models.ShipClassCL, true
	case ToolShipDD:
		return models.ShipClassDD, true
	case ToolShipCV:
		return models.ShipClassCV, true
	case ToolShipSub:
		return models.ShipClassSub, true
	default:
		return "", false
	}
}

// State is the gesture state. Every gesture starts at Idle and returns
// to Idle on pointer-up or pointer-leave.
type State string

const (
	StateIdle     State = "idle"
	StateDragging State = "dragging"
	StateRotating State = "rotating"
)

// Surface is what the machine mutates: the local session plus its
// durable write-through. Implemented by sync.Controller.
type Surface interface {
	CanEdit() bool
	ActiveLayer() (models.Layer, bool)
	UpdateLayerItems(layerID string, items []models.TacticalItem)
	Ping(x, y float64)
	BeginInteraction()
	EndInteraction()
}

// Viewport is the map container's bounding box in device pixels.
// Pointer positions are translated against it into [0,100] percentages.
type Viewport struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// ToPercent translates a pointer position into clamped viewport
// percentages. Clamping happens here, at event translation: a fast drag
// past the container edge becomes an edge value, never a rejection.
func (v Viewport) ToPercent(px, py float64) (float64, float64) {
	if v.Width <= 0 || v.Height <= 0 {
		return 0, 0
	}
	x := models.ClampPercent((px - v.Left) / v.Width * 100)
	y := models.ClampPercent((py - v.Top) / v.Height * 100)
	return x, y
}

// ShipConfig is the color/label applied to newly placed ships.
type ShipConfig struct {
	Color string
	Label string
}

// Machine is the pointer interaction state machine. Handlers run
// synchronously with input events; the interaction flag is set before
// the first durable write of a gesture and cleared after the last one
// settles.
type Machine struct {
	surface Surface
	view    Viewport

	tool       Tool
	shipConfig ShipConfig

	state  State
	dragID string
	rotate rotateState
}

type rotateState struct {
	itemID          string
	startAngle      float64
	initialRotation float64
}

// NewMachine creates a machine over the surface, starting Idle with the
// pointer tool.
func NewMachine(surface Surface) *Machine {
	return &Machine{
		surface:    surface,
		tool:       ToolPointer,
		shipConfig: ShipConfig{Color: "#22c55e"},
		state:      StateIdle,
	}
}

// SetViewport updates the map container bounds.
func (m *Machine) SetViewport(v Viewport) { m.view = v }

// SelectTool switches the active tool. Switching mid-gesture cancels it.
func (m *Machine) SelectTool(t Tool) {
	if m.state != StateIdle {
		m.PointerUp()
	}
	m.tool = t
}

// Tool returns the active tool.
func (m *Machine) Tool() Tool { return m.tool }

// SetShipConfig updates the placement color/label.
func (m *Machine) SetShipConfig(cfg ShipConfig) { m.shipConfig = cfg }

// State returns the current gesture state.
func (m *Machine) State() State { return m.state }

// PointerDown handles a press on empty map area. Ship and text tools
// place a new item there (a single-event action, back to Idle
// synchronously); the ping tool fires a ping.
func (m *Machine) PointerDown(px, py float64) {
	x, y := m.view.ToPercent(px, py)

	if m.tool == ToolPing {
		m.surface.Ping(x, y)
		return
	}

	layer, ok := m.surface.ActiveLayer()
	if !ok {
		return
	}

	if class, isShip := m.tool.shipClass(); isShip {
		if !m.surface.CanEdit() {
			return
		}
		item := models.TacticalItem{
			ID:        uuid.New().String(),
			Type:      models.ItemTypeShip,
			X:         x,
			Y:         y,
			ShipClass: class,
			Color:     m.shipConfig.Color,
			Label:     m.shipConfig.Label,
		}
		m.placeItem(layer, item)
		return
	}

	if m.tool == ToolText {
		if !m.surface.CanEdit() {
			return
		}
		item := models.TacticalItem{
			ID:   uuid.New().String(),
			Type: models.ItemTypeText,
			X:    x,
			Y:    y,
		}
		m.placeItem(layer, item)
	}
}

func (m *Machine) placeItem(layer models.Layer, item models.TacticalItem) {
	m.surface.BeginInteraction()
	m.surface.UpdateLayerItems(layer.ID, append(layer.Items, item))
	m.surface.EndInteraction()
}

// PointerDownOnItem handles a press on an existing item. Depending on
// the tool this erases (single event), starts a rotation, or starts a
// drag. The caller is expected to capture the pointer device so moves
// outside the item's bounds still arrive.
func (m *Machine) PointerDownOnItem(itemID string, px, py float64) {
	layer, ok := m.surface.ActiveLayer()
	if !ok {
		return
	}
	item, found := findItem(layer.Items, itemID)
	if !found {
		return
	}

	switch {
	case m.tool == ToolEraser:
		if !m.surface.CanEdit() {
			return
		}
		m.surface.BeginInteraction()
		m.surface.UpdateLayerItems(layer.ID, removeItem(layer.Items, itemID))
		m.surface.EndInteraction()

	case m.tool == ToolRotate:
		if !m.surface.CanEdit() {
			return
		}
		m.surface.BeginInteraction()
		m.rotate = rotateState{
			itemID:          itemID,
			startAngle:      m.angleToPointer(item, px, py),
			initialRotation: item.Rotation,
		}
		m.state = StateRotating

	case m.tool == ToolPointer || m.isShipTool():
		if !m.surface.CanEdit() {
			return
		}
		m.surface.BeginInteraction()
		m.dragID = itemID
		m.state = StateDragging

	case m.tool == ToolPing:
		x, y := m.view.ToPercent(px, py)
		m.surface.Ping(x, y)
	}
}

// PointerMove advances an in-flight drag or rotation, writing through on
// every move; there is no local-only staging.
func (m *Machine) PointerMove(px, py float64) {
	switch m.state {
	case StateDragging:
		m.moveDrag(px, py)
	case StateRotating:
		m.moveRotate(px, py)
	}
}

func (m *Machine) moveDrag(px, py float64) {
	layer, ok := m.surface.ActiveLayer()
	if !ok {
		return
	}
	x, y := m.view.ToPercent(px, py)
	items := make([]models.TacticalItem, len(layer.Items))
	copy(items, layer.Items)
	for i := range items {
		if items[i].ID == m.dragID {
			items[i].X = x
			items[i].Y = y
		}
	}
	m.surface.UpdateLayerItems(layer.ID, items)
}

func (m *Machine) moveRotate(px, py float64) {
	layer, ok := m.surface.ActiveLayer()
	if !ok {
		return
	}
	item, found := findItem(layer.Items, m.rotate.itemID)
	if !found {
		return
	}

	delta := m.angleToPointer(item, px, py) - m.rotate.startAngle
	// The wrap keeps the angle continuous across the ±180° seam.
	newRotation := models.NormalizeRotation(m.rotate.initialRotation + delta)

	items := make([]models.TacticalItem, len(layer.Items))
	copy(items, layer.Items)
	for i := range items {
		if items[i].ID == m.rotate.itemID {
			items[i].Rotation = newRotation
		}
	}
	m.surface.UpdateLayerItems(layer.ID, items)
}

// PointerUp ends any in-flight gesture and returns to Idle.
func (m *Machine) PointerUp() {
	if m.state != StateIdle {
		m.surface.EndInteraction()
		log.Debug().Str("state", string(m.state)).Msg("gesture ended")
	}
	m.state = StateIdle
	m.dragID = ""
	m.rotate = rotateState{}
}

// PointerLeave is equivalent to pointer-up.
func (m *Machine) PointerLeave() { m.PointerUp() }

// angleToPointer is the degrees from the item's center to the pointer.
func (m *Machine) angleToPointer(item models.TacticalItem, px, py float64) float64 {
	centerX := m.view.Left + m.view.Width*(item.X/100)
	centerY := m.view.Top + m.view.Height*(item.Y/100)
	return math.Atan2(py-centerY, px-centerX) * 180 / math.Pi
}

func (m *Machine) isShipTool() bool {
	_, ok := m.tool.shipClass()
	return ok
}

func findItem(items []models.TacticalItem, id string) (models.TacticalItem, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return models.TacticalItem{}, false
}

func removeItem(items []models.TacticalItem, id string) []models.TacticalItem {
	out := make([]models.TacticalItem, 0, len(items))
	for _, it := range items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out
}
