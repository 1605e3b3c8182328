package presence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Kwentar/wows-planner/internal/models"
)

type fakeDirectory struct {
	users map[uuid.UUID]*models.User
}

func (f *fakeDirectory) ListUsers(ctx context.Context, ids []uuid.UUID) ([]*models.User, error) {
	out := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

type fakeGrants struct {
	grants map[uuid.UUID]bool
}

func (f *fakeGrants) Grants(ctx context.Context, plannerID uuid.UUID) (map[uuid.UUID]bool, error) {
	return f.grants, nil
}

func TestListSessionUsersJoinsAllSources(t *testing.T) {
	registry, clock := testRegistry(t)
	ctx := context.Background()
	plannerID := uuid.New()

	ownerID := uuid.New()
	editorID := uuid.New()
	viewerID := uuid.New()

	directory := &fakeDirectory{users: map[uuid.UUID]*models.User{
		ownerID:  {ID: ownerID, Name: "alice"},
		editorID: {ID: editorID, Name: "bob"},
		viewerID: {ID: viewerID, Name: "carol"},
	}}
	grants := &fakeGrants{grants: map[uuid.UUID]bool{editorID: true}}
	app := NewApp(registry, directory, grants)

	for _, id := range []uuid.UUID{ownerID, editorID, viewerID} {
		if err := app.Heartbeat(ctx, plannerID, id); err != nil {
			t.Fatal(err)
		}
	}
	// The viewer goes quiet past the online window.
	clock.Advance(OnlineWindow + time.Second)
	if err := app.Heartbeat(ctx, plannerID, ownerID); err != nil {
		t.Fatal(err)
	}
	if err := app.Heartbeat(ctx, plannerID, editorID); err != nil {
		t.Fatal(err)
	}

	roster, err := app.ListSessionUsers(ctx, plannerID, ownerID)
	if err != nil {
		t.Fatal(err)
	}
	if len(roster) != 3 {
		t.Fatalf("got %d roster entries, want 3", len(roster))
	}

	byName := map[string]models.SessionUser{}
	for _, u := range roster {
		byName[u.Name] = u
	}

	owner := byName["alice"]
	if !owner.IsOwner || !owner.CanEdit || !owner.IsOnline {
		t.Errorf("owner row wrong: %+v", owner)
	}
	editor := byName["bob"]
	if editor.IsOwner || !editor.CanEdit || !editor.IsOnline {
		t.Errorf("editor row wrong: %+v", editor)
	}
	viewer := byName["carol"]
	if viewer.CanEdit || viewer.IsOnline {
		t.Errorf("stale viewer row wrong: %+v", viewer)
	}
}

func TestListSessionUsersOwnerOverridesGrantTable(t *testing.T) {
	registry, _ := testRegistry(t)
	ctx := context.Background()
	plannerID := uuid.New()
	ownerID := uuid.New()

	directory := &fakeDirectory{users: map[uuid.UUID]*models.User{
		ownerID: {ID: ownerID, Name: "alice"},
	}}
	// A revoked grant row for the owner must not matter.
	grants := &fakeGrants{grants: map[uuid.UUID]bool{ownerID: false}}
	app := NewApp(registry, directory, grants)

	if err := app.Heartbeat(ctx, plannerID, ownerID); err != nil {
		t.Fatal(err)
	}
	roster, err := app.ListSessionUsers(ctx, plannerID, ownerID)
	if err != nil {
		t.Fatal(err)
	}
	if len(roster) != 1 || !roster[0].CanEdit {
		t.Errorf("owner read without edit right: %+v", roster)
	}
}

func TestListSessionUsersEmpty(t *testing.T) {
	registry, _ := testRegistry(t)
	app := NewApp(registry, &fakeDirectory{}, &fakeGrants{})

	roster, err := app.ListSessionUsers(context.Background(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	if roster == nil || len(roster) != 0 {
		t.Errorf("empty roster = %#v, want non-nil empty slice", roster)
	}
}

func TestListSessionUsersSortedByName(t *testing.T) {
	registry, _ := testRegistry(t)
	ctx := context.Background()
	plannerID := uuid.New()

	a := uuid.New()
	b := uuid.New()
	c := uuid.New()
	directory := &fakeDirectory{users: map[uuid.UUID]*models.User{
		a: {ID: a, Name: "zoe"},
		b: {ID: b, Name: "adam"},
		c: {ID: c, Name: "mia"},
	}}
	app := NewApp(registry, directory, &fakeGrants{})

	for _, id := range []uuid.UUID{a, b, c} {
		if err := app.Heartbeat(ctx, plannerID, id); err != nil {
			t.Fatal(err)
		}
	}

	roster, err := app.ListSessionUsers(ctx, plannerID, uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"adam", "mia", "zoe"}
	for i, name := range want {
		if roster[i].Name != name {
			t.Fatalf("roster order %v, want %v", roster, want)
		}
	}
}
