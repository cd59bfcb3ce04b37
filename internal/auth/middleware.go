package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	userKey   contextKey = "user"
	claimsKey contextKey = "claims"
)

// HTTP header constants
const (
	AuthorizationHeader = "Authorization"
	BearerPrefix        = "Bearer "
)

// Error message constants
const (
	ErrAuthHeaderRequired = "Authorization header required"
	ErrInvalidAuthHeader  = "Invalid authorization header format"
	ErrInvalidTokenMsg    = "Invalid token"
)

// BearerToken extracts the token from an Authorization header value
func BearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
	return token, token != ""
}

// Middleware rejects requests without a valid session token and puts the user in the context
func Middleware(svc *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get(AuthorizationHeader)
			if authHeader == "" {
				unauthorized(w, ErrAuthHeaderRequired)
				return
			}

			token, ok := BearerToken(authHeader)
			if !ok {
				unauthorized(w, ErrInvalidAuthHeader)
				return
			}

			user, claims, err := svc.Verify(token)
			if err != nil {
				log.Warn().Err(err).Str("path", r.URL.Path).Msg("Token validation failed")
				unauthorized(w, ErrInvalidTokenMsg)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			ctx = context.WithValue(ctx, claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the authenticated user stored by Middleware
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userKey).(*User)
	return user, ok
}

// ClaimsFromContext returns the token claims stored by Middleware
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
