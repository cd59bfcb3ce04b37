package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// KeycloakClaims are the access-token claims read after a password grant
type KeycloakClaims struct {
	Email             string `json:"email"`
	PreferredUsername string `json:"preferred_username"`
	jwt.RegisteredClaims
}

// KeycloakAuthenticator signs in through a Keycloak realm with the password grant
type KeycloakAuthenticator struct {
	tokenEndpoint string
	clientID      string
	clientSecret  string
	httpClient    *http.Client
}

// NewKeycloakAuthenticator builds the token endpoint from the realm settings
func NewKeycloakAuthenticator(baseURL, realm, clientID, clientSecret string) (*KeycloakAuthenticator, error) {
	if baseURL == "" || realm == "" || clientID == "" {
		return nil, fmt.Errorf("KEYCLOAK_URL, KEYCLOAK_REALM, and KEYCLOAK_CLIENT_ID must be set")
	}

	ka := &KeycloakAuthenticator{
		tokenEndpoint: fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", strings.TrimRight(baseURL, "/"), realm),
		clientID:      clientID,
		clientSecret:  clientSecret,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
	}
	log.Info().Str("realm", realm).Str("client", clientID).Msg("Keycloak authenticator configured")
	return ka, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func (ka *KeycloakAuthenticator) SignIn(ctx context.Context, email, password string) (*User, error) {
	form := url.Values{
		"grant_type": {"password"},
		"client_id":  {ka.clientID},
		"username":   {email},
		"password":   {password},
		"scope":      {"openid email"},
	}
	if ka.clientSecret != "" {
		form.Set("client_secret", ka.clientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ka.tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ka.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("Failed to close response body")
		}
	}()

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrInvalidCredentials
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("keycloak returned status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	// Parse without verification to read the claims of a token we just fetched
	token, _, err := jwt.NewParser().ParseUnverified(tr.AccessToken, &KeycloakClaims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse access token: %w", err)
	}
	claims, ok := token.Claims.(*KeycloakClaims)
	if !ok || claims.Subject == "" {
		return nil, errors.New("access token has no subject")
	}

	userEmail := claims.Email
	if userEmail == "" {
		userEmail = email
	}
	return &User{ID: claims.Subject, Email: userEmail}, nil
}
