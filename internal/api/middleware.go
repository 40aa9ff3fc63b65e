// Package api implements the folders REST API using chi.
package api

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const userKey contextKey = "user"

// DefaultUserID is the single-user identity used while the full account
// system stays out of scope; the bearer token is the session credential.
const DefaultUserID = "default"

// AuthMiddleware returns middleware that validates a Bearer token and tags
// the request with its user identity. If enabled is false, all requests
// pass through (disabled mode, local dev).
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if enabled {
				auth := r.Header.Get("Authorization")
				if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != token {
					writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
					return
				}
			}
			ctx := context.WithValue(r.Context(), userKey, DefaultUserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the authenticated user for the request.
func UserID(ctx context.Context) string {
	if v, ok := ctx.Value(userKey).(string); ok {
		return v
	}
	return DefaultUserID
}
