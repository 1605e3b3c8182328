package models

import (
	"testing"
	"time"
)

func TestClampPercent(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{-10, 0},
		{0, 0},
		{50, 50},
		{100, 100},
		{100.01, 100},
		{1e9, 100},
	}
	for _, tt := range tests {
		if got := ClampPercent(tt.in); got != tt.want {
			t.Errorf("ClampPercent(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeRotation(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{359, 359},
		{360, 0},
		{370, 10},
		{725, 5},
		{-15, 345},
		{-360, 0},
		{-725, 355},
	}
	for _, tt := range tests {
		if got := NormalizeRotation(tt.in); got != tt.want {
			t.Errorf("NormalizeRotation(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLayerSanitize(t *testing.T) {
	l := Layer{
		ID: "layer-1",
		Items: []TacticalItem{
			{ID: "a", X: -5, Y: 150, Rotation: 370},
			{ID: "b", X: 50, Y: 50, Rotation: 90},
		},
	}
	l.Sanitize()

	if a := l.Items[0]; a.X != 0 || a.Y != 100 || a.Rotation != 10 {
		t.Errorf("item a not sanitized: %+v", a)
	}
	if b := l.Items[1]; b.X != 50 || b.Y != 50 || b.Rotation != 90 {
		t.Errorf("in-range item changed: %+v", b)
	}
}

func TestPingAge(t *testing.T) {
	now := time.UnixMilli(1700000010000)
	p := Ping{CreatedAt: 1700000000000}
	if got := p.Age(now); got != 10*time.Second {
		t.Errorf("Age = %v, want 10s", got)
	}
}

func TestNewBaseLayer(t *testing.T) {
	l := NewBaseLayer()
	if l.ID == "" {
		t.Error("base layer has no id")
	}
	if !l.IsVisible {
		t.Error("base layer not visible")
	}
	if l.Items == nil {
		t.Error("base layer items must be an empty slice, not nil")
	}
}
