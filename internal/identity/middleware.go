package identity

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Kwentar/wows-planner/internal/models"
)

// EmailHeader is set by the access proxy for authenticated visitors.
const EmailHeader = "Cf-Access-Authenticated-User-Email"

// AnonCookie identifies anonymous visitors across requests.
const AnonCookie = "wows_anon_id"

type ctxKey struct{}

// UserFrom returns the user attached to the request context by Middleware.
func UserFrom(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(*models.User)
	return u, ok
}

// WithUser returns a context carrying the user, as Middleware attaches it.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// Middleware resolves the request identity and attaches the user to the
// context. Visitors without a resolvable identity get an anonymous cookie
// minted on the spot; identity failures surface once here, not per action.
func (a *App) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email := r.Header.Get(EmailHeader)
		anonID := ""
		if c, err := r.Cookie(AnonCookie); err == nil {
			anonID = c.Value
		}
		if email == "" && anonID == "" {
			anonID = uuid.New().String()
			http.SetCookie(w, &http.Cookie{
				Name:     AnonCookie,
				Value:    anonID,
				Path:     "/",
				HttpOnly: true,
				MaxAge:   365 * 24 * 60 * 60,
			})
		}

		user, err := a.Resolve(r.Context(), email, anonID)
		if err != nil {
			log.Error().Err(err).Msg("identity resolution failed")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}
