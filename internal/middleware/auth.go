// Package middleware provides HTTP middlewares for authentication and logging.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type ctxKey string

const userKey ctxKey = "user"

// TokenAuthenticator resolves a bearer token to a user id.
type TokenAuthenticator interface {
	Authenticate(token string) (int64, error)
}

// publicPaths are served without a token.
var publicPaths = map[string]bool{
	"/":              true,
	"/health":        true,
	"/auth/register": true,
	"/auth/login":    true,
}

// BearerAuth is a middleware that requires an "Authorization: Bearer <jwt>"
// header on every route except the public ones.
//
// On success the authenticated user id is stored in the request context and
// can be read with GetUserIDFromContext. A missing header answers 401 with
// "Access denied"; an unusable token answers 401 with "Invalid token".
// CORS preflight requests pass through untouched.
func BearerAuth(auth TokenAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			scheme, token, ok := strings.Cut(header, " ")
			if header == "" || !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				deny(w, "Access denied")
				return
			}

			id, err := auth.Authenticate(strings.TrimSpace(token))
			if err != nil {
				deny(w, "Invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
		})
	}
}

func deny(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}

// WithUserID returns a copy of ctx carrying the authenticated user id.
func WithUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, userKey, id)
}

// GetUserIDFromContext extracts the authenticated user id from the request
// context. Returns 0 if not found.
func GetUserIDFromContext(ctx context.Context) int64 {
	if id, ok := ctx.Value(userKey).(int64); ok {
		return id
	}
	return 0
}
