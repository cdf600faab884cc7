package middleware

import (
	"net/http"
	"strings"

	"github.com/frahmantamala/trip-expense/internal"
	"github.com/frahmantamala/trip-expense/internal/transport"
	"github.com/frahmantamala/trip-expense/pkg/logger"
)

const HeaderUserID = "X-User-ID"

type Authenticator interface {
	Authenticate(token string) (string, error)
}

// Authenticate puts the verified actor id on the request context. A request without credentials
// passes through anonymously and handlers that need an actor answer 401 themselves; a bad token
// is rejected here. With allowHeader, X-User-ID is trusted when no bearer token is sent.
func Authenticate(authenticator Authenticator, allowHeader bool, base *transport.BaseHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var actorID string

			if token := transport.ExtractTokenFromHeader(r); token != "" {
				id, err := authenticator.Authenticate(token)
				if err != nil {
					base.HandleServiceError(w, r, err)
					return
				}
				actorID = id
			} else if allowHeader {
				actorID = strings.TrimSpace(r.Header.Get(HeaderUserID))
			}

			if actorID == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := internal.ContextWithActor(r.Context(), actorID)
			ctx = logger.With(ctx, "actor_id", actorID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
