package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeycloakAuthenticator(t *testing.T) {
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &KeycloakClaims{
		Email:            "curator@example.org",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "kc-123"},
	}).SignedString([]byte("realm-key"))
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/realms/archaeo/protocol/openid-connect/token", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))
		assert.Equal(t, "catalog", r.PostForm.Get("client_id"))

		if r.PostForm.Get("password") != "obsidian" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": accessToken,
			"expires_in":   300,
			"token_type":   "Bearer",
		})
	}))
	defer srv.Close()

	ka, err := NewKeycloakAuthenticator(srv.URL+"/", "archaeo", "catalog", "")
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		user, err := ka.SignIn(context.Background(), "curator@example.org", "obsidian")
		require.NoError(t, err)
		assert.Equal(t, "kc-123", user.ID)
		assert.Equal(t, "curator@example.org", user.Email)
	})

	t.Run("rejected credentials", func(t *testing.T) {
		_, err := ka.SignIn(context.Background(), "curator@example.org", "flint")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestKeycloakAuthenticatorRequiresRealm(t *testing.T) {
	_, err := NewKeycloakAuthenticator("http://kc", "", "catalog", "")
	assert.Error(t, err)
}

func TestKeycloakServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ka, err := NewKeycloakAuthenticator(srv.URL, "archaeo", "catalog", "secret")
	require.NoError(t, err)

	_, err = ka.SignIn(context.Background(), "a@b.c", "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}
