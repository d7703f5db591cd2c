package middleware

import (
	"context"
	"net/http"
	"strings"

	"book-review/models"
)

// Authenticator resolves a bearer token to the caller it belongs to.
type Authenticator interface {
	Authenticate(token string) (models.Caller, error)
}

type callerKey struct{}

func WithCaller(ctx context.Context, c models.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFromContext returns the caller stored by AuthMiddleware.
func CallerFromContext(ctx context.Context) (models.Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(models.Caller)
	return c, ok
}

// AuthMiddleware rejects requests without a valid "Authorization: Bearer" token
// and stores the authenticated caller in the request context.
func AuthMiddleware(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "missing authorization token")
				return
			}

			scheme, token, found := strings.Cut(authHeader, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				writeError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			caller, err := auth.Authenticate(strings.TrimSpace(token))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}
