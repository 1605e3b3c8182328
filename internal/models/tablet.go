package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// ItemType identifies what a TacticalItem renders as.
type ItemType string

const (
	ItemTypeShip  ItemType = "ship"
	ItemTypeText  ItemType = "text"
	ItemTypeArrow ItemType = "arrow"
)

// ShipClass is the hull class of a ship item.
type ShipClass string

const (
	ShipClassBB  ShipClass = "BB"
	ShipClassCL  ShipClass = "CL"
	ShipClassDD  ShipClass = "DD"
	ShipClassCV  ShipClass = "CV"
	ShipClassSub ShipClass = "SUB"
)

// TacticalItem is a single marker on a layer. Coordinates are percentages
// of the map viewport (0-100 on both axes), never pixels, so documents are
// resolution independent. Rotation is degrees in [0,360).
type TacticalItem struct {
	ID       string   `json:"id"`
	Type     ItemType `json:"type"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Rotation float64  `json:"rotation"`

	ShipClass ShipClass `json:"shipClass,omitempty"`
	Color     string    `json:"color,omitempty"`
	Label     string    `json:"label,omitempty"`

	TextContent string `json:"textContent,omitempty"`
}

// Layer is an ordered slice of items plus an optional background map.
type Layer struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Items           []TacticalItem `json:"items"`
	BackgroundImage string         `json:"backgroundImage,omitempty"`
	IsVisible       bool           `json:"isVisible"`
}

// Ping is an ephemeral positional marker. CreatedAt is unix milliseconds;
// every holder expires its copy independently, there is no authoritative
// expiry on the server.
type Ping struct {
	ID        string  `json:"id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Color     string  `json:"color"`
	CreatedAt int64   `json:"createdAt"`
}

// Age returns how long ago the ping was fired relative to now.
func (p Ping) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(p.CreatedAt))
}

// TabletState is the jsonb document persisted per tablet.
type TabletState struct {
	Layers []Layer `json:"layers"`
	Pings  []Ping  `json:"pings,omitempty"`
}

// Tablet is the shared document. Owned by exactly one user; the owner's
// edit right is implicit and cannot be revoked.
type Tablet struct {
	ID           uuid.UUID `json:"id"`
	OwnerID      uuid.UUID `json:"ownerId"`
	Name         string    `json:"name"`
	Layers       []Layer   `json:"layers"`
	Pings        []Ping    `json:"pings,omitempty"`
	LastModified time.Time `json:"lastModified"`
}

// NewBaseLayer returns the seed layer every freshly created tablet gets.
// The layer list of a tablet is never allowed to become empty.
func NewBaseLayer() Layer {
	return Layer{
		ID:        uuid.New().String(),
		Name:      "Base Layer",
		Items:     []TacticalItem{},
		IsVisible: true,
	}
}

// ClampPercent clamps a viewport coordinate into the [0,100] range.
// Out-of-range pointer positions become edge values, they are never
// rejected.
func ClampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// NormalizeRotation wraps an angle into [0,360).
func NormalizeRotation(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// Sanitize clamps item coordinates and wraps rotations in place so that
// out-of-range values never enter durable state.
func (l *Layer) Sanitize() {
	for i := range l.Items {
		l.Items[i].X = ClampPercent(l.Items[i].X)
		l.Items[i].Y = ClampPercent(l.Items[i].Y)
		l.Items[i].Rotation = NormalizeRotation(l.Items[i].Rotation)
	}
}
