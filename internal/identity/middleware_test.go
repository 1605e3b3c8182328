package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddlewareMintsAnonCookie(t *testing.T) {
	app := NewApp(newMockUsersRepo())

	var seen bool
	handler := app.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = true
		u, ok := UserFrom(r.Context())
		if !ok {
			t.Error("no user in context")
			return
		}
		if !u.IsAnonymous() {
			t.Errorf("expected anonymous user, got %+v", u)
		}
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))

	if !seen {
		t.Fatal("handler not reached")
	}
	cookies := rec.Result().Cookies()
	var minted *http.Cookie
	for _, c := range cookies {
		if c.Name == AnonCookie {
			minted = c
		}
	}
	if minted == nil {
		t.Fatal("anon cookie not set")
	}
	if !minted.HttpOnly || minted.Value == "" {
		t.Errorf("cookie malformed: %+v", minted)
	}
}

func TestMiddlewareReusesExistingCookie(t *testing.T) {
	repo := newMockUsersRepo()
	app := NewApp(repo)

	var firstID, secondID string
	handler := app.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := UserFrom(r.Context())
		if firstID == "" {
			firstID = u.ID.String()
		} else {
			secondID = u.ID.String()
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookie, Value: "stable-cookie"})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookie, Value: "stable-cookie"})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if firstID == "" || firstID != secondID {
		t.Errorf("cookie identity unstable: %q vs %q", firstID, secondID)
	}
	if repo.creates != 1 {
		t.Errorf("got %d creates for one cookie, want 1", repo.creates)
	}
}

func TestMiddlewarePrefersEmailHeader(t *testing.T) {
	app := NewApp(newMockUsersRepo())

	handler := app.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := UserFrom(r.Context())
		if u.Email != "cap@example.com" {
			t.Errorf("email = %q, want header value", u.Email)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(EmailHeader, "cap@example.com")
	req.AddCookie(&http.Cookie{Name: AnonCookie, Value: "stable-cookie"})
	handler.ServeHTTP(httptest.NewRecorder(), req)
}
