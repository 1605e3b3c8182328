package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/jonboulle/clockwork"

	"github.com/Kwentar/wows-planner/internal/client"
	"github.com/Kwentar/wows-planner/internal/models"
	"github.com/Kwentar/wows-planner/internal/relay"
)

type fakeWriter struct {
	patches []client.Patch
	err     error
}

func (f *fakeWriter) PatchTablet(ctx context.Context, id string, patch client.Patch) error {
	f.patches = append(f.patches, patch)
	return f.err
}

type fakeSender struct {
	frames [][]byte
	err    error
}

func (f *fakeSender) Send(data []byte) error {
	f.frames = append(f.frames, data)
	return f.err
}

func TestUpdateLayerItemsWritesThrough(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewSession(clock, "tab-1", "user-1", false, true, testLayers(models.TacticalItem{ID: "a", X: 1}))
	api := &fakeWriter{}
	c := NewController(context.Background(), api, s, nil)

	c.UpdateLayerItems("layer-1", []models.TacticalItem{{ID: "a", X: 42}})

	if got := s.Layers(); got[0].Items[0].X != 42 {
		t.Errorf("local state not updated: %+v", got)
	}
	if len(api.patches) != 1 || api.patches[0].State == nil {
		t.Fatalf("durable write missing: %+v", api.patches)
	}
	if api.patches[0].State.Layers[0].Items[0].X != 42 {
		t.Errorf("durable write carries wrong state: %+v", api.patches[0].State)
	}
}

func TestUpdateLayerItemsWithoutEditRight(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewSession(clock, "tab-1", "user-1", false, false, testLayers(models.TacticalItem{ID: "a", X: 1}))
	api := &fakeWriter{}
	c := NewController(context.Background(), api, s, nil)

	c.UpdateLayerItems("layer-1", []models.TacticalItem{{ID: "a", X: 42}})

	if len(api.patches) != 0 {
		t.Errorf("durable write without edit right: %+v", api.patches)
	}
	if got := s.Layers(); got[0].Items[0].X != 1 {
		t.Errorf("local state mutated without edit right: %+v", got)
	}
}

func TestUpdateLayerItemsKeepsOptimisticOnFailure(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewSession(clock, "tab-1", "user-1", false, true, testLayers(models.TacticalItem{ID: "a", X: 1}))
	api := &fakeWriter{err: errors.New("boom")}
	c := NewController(context.Background(), api, s, nil)

	c.UpdateLayerItems("layer-1", []models.TacticalItem{{ID: "a", X: 42}})

	if got := s.Layers(); got[0].Items[0].X != 42 {
		t.Errorf("optimistic state rolled back on failed write: %+v", got)
	}
}

func TestUpdateLayerItemsUnknownLayer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewSession(clock, "tab-1", "user-1", false, true, testLayers())
	api := &fakeWriter{}
	c := NewController(context.Background(), api, s, nil)

	c.UpdateLayerItems("missing", []models.TacticalItem{{ID: "a"}})

	if len(api.patches) != 0 {
		t.Errorf("write issued for unknown layer: %+v", api.patches)
	}
}

func TestPingReachesAllThreePaths(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewSession(clock, "tab-1", "user-1", false, false, testLayers())
	api := &fakeWriter{}
	socket := &fakeSender{}
	c := NewController(context.Background(), api, s, socket)

	c.Ping(150, 50)

	// Local set.
	pings := s.Pings()
	if len(pings) != 1 {
		t.Fatalf("got %d local pings, want 1", len(pings))
	}
	if pings[0].X != 100 {
		t.Errorf("ping x not clamped: %v", pings[0].X)
	}

	// Relay frame.
	if len(socket.frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(socket.frames))
	}
	frame, err := relay.DecodeFrame(socket.frames[0])
	if err != nil {
		t.Fatal(err)
	}
	p, err := frame.Ping()
	if err != nil {
		t.Fatal(err)
	}
	if p.ID != pings[0].ID {
		t.Errorf("frame ping id %q, want %q", p.ID, pings[0].ID)
	}

	// Durable annotation, pings only, no edit grant needed.
	if len(api.patches) != 1 {
		t.Fatalf("got %d patches, want 1", len(api.patches))
	}
	patch := api.patches[0]
	if patch.State != nil || patch.Title != nil || len(patch.Pings) != 1 {
		t.Errorf("ping patch carries more than pings: %+v", patch)
	}
}

func TestPingWithoutSocket(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewSession(clock, "tab-1", "user-1", false, true, testLayers())
	api := &fakeWriter{}
	c := NewController(context.Background(), api, s, nil)

	c.Ping(10, 10)

	if len(s.Pings()) != 1 || len(api.patches) != 1 {
		t.Error("ping without socket must still hit local set and durable path")
	}
}

func TestActiveLayerPrefersVisible(t *testing.T) {
	clock := clockwork.NewFakeClock()
	layers := []models.Layer{
		{ID: "hidden", IsVisible: false},
		{ID: "shown", IsVisible: true},
	}
	s := NewSession(clock, "tab-1", "user-1", false, true, layers)
	c := NewController(context.Background(), &fakeWriter{}, s, nil)

	layer, ok := c.ActiveLayer()
	if !ok || layer.ID != "shown" {
		t.Errorf("active layer = %+v, want shown", layer)
	}
}

func TestActiveLayerFallsBackToFirst(t *testing.T) {
	clock := clockwork.NewFakeClock()
	layers := []models.Layer{{ID: "only", IsVisible: false}}
	s := NewSession(clock, "tab-1", "user-1", false, true, layers)
	c := NewController(context.Background(), &fakeWriter{}, s, nil)

	layer, ok := c.ActiveLayer()
	if !ok || layer.ID != "only" {
		t.Errorf("active layer = %+v, want the only layer", layer)
	}
}
