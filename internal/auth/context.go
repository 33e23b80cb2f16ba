package auth

import (
	"context"
	"net/http"
	"strings"

	"trade-journal/internal/logging"
)

type contextKey string

const (
	userIDKey contextKey = "user_id"
	tokenKey  contextKey = "token"
)

// WithUserID returns a copy of ctx carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user id.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// TokenFromContext returns the bearer token the request authenticated with.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// ErrorWriter renders an authentication failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Middleware rejects requests without a valid session and places the user id
// on the request context. The request logger gains a user_id field.
func Middleware(s *Service, onError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			userID, err := s.Authenticate(r.Context(), token)
			if err != nil {
				onError(w, r, err)
				return
			}

			ctx := WithUserID(r.Context(), userID)
			ctx = context.WithValue(ctx, tokenKey, token)
			ctx = logging.WithLogger(ctx, logging.WithUser(logging.FromContext(ctx), userID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
