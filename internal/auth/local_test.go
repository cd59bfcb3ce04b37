package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newLocal(t *testing.T) *LocalAuthenticator {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("obsidian"), bcrypt.MinCost)
	require.NoError(t, err)
	a, err := NewLocalAuthenticator("Curator@Example.org", string(hash))
	require.NoError(t, err)
	return a
}

func TestLocalAuthenticator(t *testing.T) {
	a := newLocal(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  bool
	}{
		{"correct credentials", "curator@example.org", "obsidian", false},
		{"email is case-insensitive", " CURATOR@example.org ", "obsidian", false},
		{"wrong password", "curator@example.org", "flint", true},
		{"unknown email", "visitor@example.org", "obsidian", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := a.SignIn(ctx, tt.email, tt.password)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCredentials)
				assert.Nil(t, user)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "curator@example.org", user.Email)
		})
	}
}

func TestNewLocalAuthenticatorValidates(t *testing.T) {
	_, err := NewLocalAuthenticator("", "x")
	assert.Error(t, err)

	_, err = NewLocalAuthenticator("a@b.c", "plaintext")
	assert.Error(t, err)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("obsidian")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("obsidian")))
}
