// Package auth signs administrators in with email and password, issues
// session tokens and publishes authentication state changes.
package auth

import (
	"context"
	"errors"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrRevokedToken       = errors.New("token has been revoked")
	ErrLockedOut          = errors.New("too many failed login attempts")
)

// User is an authenticated administrator
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Authenticator checks email/password credentials with an identity provider
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*User, error)
}
