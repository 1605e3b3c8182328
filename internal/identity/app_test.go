package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/Kwentar/wows-planner/internal/apperr"
	"github.com/Kwentar/wows-planner/internal/models"
)

type mockUsersRepo struct {
	byID     map[uuid.UUID]*models.User
	byEmail  map[string]uuid.UUID
	byAnonID map[string]uuid.UUID

	creates int
	err     error
}

func newMockUsersRepo() *mockUsersRepo {
	return &mockUsersRepo{
		byID:     make(map[uuid.UUID]*models.User),
		byEmail:  make(map[string]uuid.UUID),
		byAnonID: make(map[string]uuid.UUID),
	}
}

func (m *mockUsersRepo) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, apperr.ErrNotFound
}

func (m *mockUsersRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	if id, ok := m.byEmail[email]; ok {
		return m.byID[id], nil
	}
	return nil, apperr.ErrNotFound
}

func (m *mockUsersRepo) GetUserByAnonID(ctx context.Context, anonID string) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	if id, ok := m.byAnonID[anonID]; ok {
		return m.byID[id], nil
	}
	return nil, apperr.ErrNotFound
}

func (m *mockUsersRepo) CreateUserWithEmail(ctx context.Context, email string) (*models.User, error) {
	m.creates++
	u := &models.User{ID: uuid.New(), Email: email}
	m.byID[u.ID] = u
	m.byEmail[email] = u.ID
	return u, nil
}

func (m *mockUsersRepo) CreateUserWithAnonID(ctx context.Context, anonID string) (*models.User, error) {
	m.creates++
	u := &models.User{ID: uuid.New(), AnonID: anonID}
	m.byID[u.ID] = u
	m.byAnonID[anonID] = u.ID
	return u, nil
}

func (m *mockUsersRepo) UpdateUserName(ctx context.Context, id uuid.UUID, name string) error {
	u, ok := m.byID[id]
	if !ok {
		return apperr.ErrNotFound
	}
	u.Name = name
	return nil
}

func (m *mockUsersRepo) ListUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.User, error) {
	var out []*models.User
	for _, id := range ids {
		if u, ok := m.byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func TestResolveCreatesOnFirstSight(t *testing.T) {
	repo := newMockUsersRepo()
	app := NewApp(repo)
	ctx := context.Background()

	u1, err := app.Resolve(ctx, "cap@example.com", "")
	if err != nil {
		t.Fatal(err)
	}
	if u1.Email != "cap@example.com" {
		t.Errorf("email = %q", u1.Email)
	}

	// The same credential resolves to the same row.
	u2, err := app.Resolve(ctx, "cap@example.com", "")
	if err != nil {
		t.Fatal(err)
	}
	if u1.ID != u2.ID {
		t.Error("resolve minted a second row for the same email")
	}
	if repo.creates != 1 {
		t.Errorf("got %d creates, want 1", repo.creates)
	}
}

func TestResolveAnonymous(t *testing.T) {
	repo := newMockUsersRepo()
	app := NewApp(repo)
	ctx := context.Background()

	u1, err := app.Resolve(ctx, "", "cookie-123")
	if err != nil {
		t.Fatal(err)
	}
	if !u1.IsAnonymous() {
		t.Error("anon resolve produced a non-anonymous user")
	}

	u2, err := app.Resolve(ctx, "", "cookie-123")
	if err != nil {
		t.Fatal(err)
	}
	if u1.ID != u2.ID {
		t.Error("anon cookie resolved to different rows")
	}
}

func TestResolveEmailWinsOverCookie(t *testing.T) {
	repo := newMockUsersRepo()
	app := NewApp(repo)

	u, err := app.Resolve(context.Background(), "cap@example.com", "cookie-123")
	if err != nil {
		t.Fatal(err)
	}
	if u.Email != "cap@example.com" || u.AnonID != "" {
		t.Errorf("resolve preferred the cookie: %+v", u)
	}
}

func TestResolveWithoutCredentials(t *testing.T) {
	app := NewApp(newMockUsersRepo())
	_, err := app.Resolve(context.Background(), "", "")
	if !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestResolveRepoErrorSurfaces(t *testing.T) {
	repo := newMockUsersRepo()
	repo.err = errors.New("db down")
	app := NewApp(repo)

	if _, err := app.Resolve(context.Background(), "cap@example.com", ""); err == nil {
		t.Error("repo error swallowed")
	}
	if repo.creates != 0 {
		t.Error("create attempted after a non-notfound error")
	}
}

func TestRename(t *testing.T) {
	repo := newMockUsersRepo()
	app := NewApp(repo)
	ctx := context.Background()

	u, err := app.Resolve(ctx, "", "cookie-123")
	if err != nil {
		t.Fatal(err)
	}
	if err := app.Rename(ctx, u.ID, "Captain"); err != nil {
		t.Fatal(err)
	}
	got, err := app.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Captain" {
		t.Errorf("name = %q, want Captain", got.Name)
	}

	if err := app.Rename(ctx, u.ID, ""); err == nil {
		t.Error("empty name accepted")
	}
}
