package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"nexus/internal/token"
)

// TokenValidator is the slice of the token service the middleware needs.
type TokenValidator interface {
	Validate(tokenString string) (*token.Claims, error)
}

type contextKeyUsername struct{}
type contextKeyKind struct{}

// Username retrieves the authenticated username from the context. Empty when
// the request did not pass RequireAuth.
func Username(ctx context.Context) string {
	if username, ok := ctx.Value(contextKeyUsername{}).(string); ok {
		return username
	}
	return ""
}

// Kind retrieves the token's kind claim from the context.
func Kind(ctx context.Context) string {
	if kind, ok := ctx.Value(contextKeyKind{}).(string); ok {
		return kind
	}
	return ""
}

// WithIdentity injects an authenticated identity into a context. Useful for
// service and handler tests that skip the HTTP middleware chain.
func WithIdentity(ctx context.Context, username, kind string) context.Context {
	ctx = context.WithValue(ctx, contextKeyUsername{}, username)
	return context.WithValue(ctx, contextKeyKind{}, kind)
}

// RequireAuth validates the bearer token and stores the subject and kind in
// the request context. Missing, malformed, or expired tokens get a uniform
// 401 so callers cannot probe which part failed.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || raw == "" {
				logger.WarnContext(ctx, "unauthorized request - missing bearer token",
					"request_id", GetRequestID(ctx),
					"path", r.URL.Path,
				)
				writeUnauthorized(w)
				return
			}

			claims, err := validator.Validate(raw)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized request - invalid token",
					"request_id", GetRequestID(ctx),
					"error", err,
				)
				writeUnauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, claims.Subject, claims.Kind)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthenticated"})
}
