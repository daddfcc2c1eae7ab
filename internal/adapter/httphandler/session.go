package httphandler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/niksmo/fakestore/internal/core/service"
)

const SessionCookieName = "fakestore_session"

type SessionStore interface {
	Get(id string) *service.Storefront
	Touch(id string) bool
}

type (
	storefrontCtxKey struct{}
	sessionIDCtxKey  struct{}
)

// WithSession binds the request to the storefront of its session,
// issuing a new session cookie when the request carries none.
func WithSession(sessions SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hf := func(w http.ResponseWriter, r *http.Request) {
			id := sessionID(r)
			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookieName,
					Value:    id,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			sf := sessions.Get(id)
			ctx := context.WithValue(r.Context(), storefrontCtxKey{}, sf)
			ctx = context.WithValue(ctx, sessionIDCtxKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		}
		return http.HandlerFunc(hf)
	}
}

func sessionID(r *http.Request) string {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return ""
	}
	return c.Value
}

func storefrontFrom(ctx context.Context) *service.Storefront {
	sf, ok := ctx.Value(storefrontCtxKey{}).(*service.Storefront)
	if !ok {
		panic("httphandler: storefront is missing in request context") // develop mistake
	}
	return sf
}

func sessionIDFrom(ctx context.Context) string {
	id, ok := ctx.Value(sessionIDCtxKey{}).(string)
	if !ok {
		panic("httphandler: session id is missing in request context") // develop mistake
	}
	return id
}
