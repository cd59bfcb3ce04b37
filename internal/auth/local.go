package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// LocalAuthenticator accepts one configured administrator with a bcrypt password hash
type LocalAuthenticator struct {
	email string
	hash  []byte
}

// NewLocalAuthenticator creates a LocalAuthenticator
func NewLocalAuthenticator(email, passwordHash string) (*LocalAuthenticator, error) {
	if email == "" || passwordHash == "" {
		return nil, fmt.Errorf("admin email and password hash are required")
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, fmt.Errorf("invalid admin password hash: %w", err)
	}
	return &LocalAuthenticator{
		email: strings.ToLower(strings.TrimSpace(email)),
		hash:  []byte(passwordHash),
	}, nil
}

func (a *LocalAuthenticator) SignIn(ctx context.Context, email, password string) (*User, error) {
	given := strings.ToLower(strings.TrimSpace(email))
	emailOK := subtle.ConstantTimeCompare([]byte(given), []byte(a.email)) == 1
	// bcrypt runs even when the email does not match.
	pwErr := bcrypt.CompareHashAndPassword(a.hash, []byte(password))
	if !emailOK || pwErr != nil {
		return nil, ErrInvalidCredentials
	}
	return &User{ID: "local:" + a.email, Email: a.email}, nil
}

// HashPassword returns a bcrypt hash for an admin password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}
