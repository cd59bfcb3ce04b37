package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Event types published by Service
const (
	EventSignedIn  = "signed_in"
	EventSignedOut = "signed_out"
)

// Event is an authentication state change
type Event struct {
	Type    string    `json:"type"`
	User    *User     `json:"user"`
	TokenID string    `json:"-"`
	At      time.Time `json:"at"`
}

// Session is the result of a successful sign-in
type Session struct {
	Token     string    `json:"token"`
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Service signs users in and out and publishes the resulting state changes
type Service struct {
	authenticator Authenticator
	tokens        *TokenManager
	events        Observable[Event]

	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewService creates an auth service
func NewService(authenticator Authenticator, tokens *TokenManager) *Service {
	return &Service{
		authenticator: authenticator,
		tokens:        tokens,
		revoked:       make(map[string]time.Time),
	}
}

// SignIn checks credentials and issues a session token
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.authenticator.SignIn(ctx, email, password)
	if err != nil {
		if !errors.Is(err, ErrInvalidCredentials) {
			log.Error().Err(err).Str("email", email).Msg("Sign-in failed")
		}
		return nil, err
	}

	token, claims, err := s.tokens.Issue(*user)
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", user.ID).Msg("Admin signed in")
	s.events.Publish(Event{Type: EventSignedIn, User: user, TokenID: claims.ID, At: time.Now().UTC()})
	return &Session{Token: token, User: *user, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// SignOut revokes the token until it would have expired. A token that no
// longer validates has no session left to end: sign-out succeeds, and an
// expired but genuine token still publishes signed_out.
func (s *Service) SignOut(ctx context.Context, token string) error {
	claims, err := s.tokens.Validate(token)
	if errors.Is(err, ErrInvalidToken) {
		expired, inspectErr := s.tokens.Inspect(token)
		if inspectErr != nil {
			log.Debug().Err(err).Msg("Sign-out with unusable token, nothing to revoke")
			return nil
		}
		log.Info().Str("user_id", expired.Subject).Msg("Admin session already expired")
		s.publishSignedOut(expired)
		return nil
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.revoked[claims.ID] = claims.ExpiresAt.Time
	s.pruneLocked(time.Now())
	s.mu.Unlock()

	log.Info().Str("user_id", claims.Subject).Msg("Admin signed out")
	s.publishSignedOut(claims)
	return nil
}

func (s *Service) publishSignedOut(claims *Claims) {
	user := &User{ID: claims.Subject, Email: claims.Email}
	s.events.Publish(Event{Type: EventSignedOut, User: user, TokenID: claims.ID, At: time.Now().UTC()})
}

// Verify returns the user behind a valid, unrevoked token
func (s *Service) Verify(token string) (*User, *Claims, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	_, revoked := s.revoked[claims.ID]
	s.mu.Unlock()
	if revoked {
		return nil, nil, fmt.Errorf("%w: %s", ErrRevokedToken, claims.ID)
	}
	return &User{ID: claims.Subject, Email: claims.Email}, claims, nil
}

// Subscribe registers fn for every auth event and returns the unsubscribe function
func (s *Service) Subscribe(fn func(Event)) (unsubscribe func()) {
	return s.events.Subscribe(fn)
}

func (s *Service) pruneLocked(now time.Time) {
	for id, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, id)
		}
	}
}

// Client is one session's view of the auth service: it remembers its token
// and exposes the signed-in user as an observable state.
type Client struct {
	svc   *Service
	state *StateNotifier

	mu          sync.Mutex
	token       string
	tokenID     string
	unsubscribe func()
}

// NewClient creates a session client; Close releases its event subscription
func NewClient(svc *Service) *Client {
	c := &Client{svc: svc, state: NewStateNotifier()}
	c.unsubscribe = svc.Subscribe(c.onEvent)
	return c
}

func (c *Client) onEvent(e Event) {
	if e.Type != EventSignedOut {
		return
	}
	c.clear(e.TokenID)
}

// clear drops the session if tokenID is still the current one
func (c *Client) clear(tokenID string) {
	c.mu.Lock()
	mine := c.tokenID != "" && tokenID == c.tokenID
	if mine {
		c.token, c.tokenID = "", ""
	}
	c.mu.Unlock()
	if mine {
		c.state.Set(nil)
	}
}

// SignIn signs in and publishes the new user
func (c *Client) SignIn(ctx context.Context, email, password string) error {
	session, err := c.svc.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	_, claims, err := c.svc.Verify(session.Token)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.token, c.tokenID = session.Token, claims.ID
	c.mu.Unlock()

	user := session.User
	c.state.Set(&user)
	return nil
}

// SignOut signs out the current session, if any. The local state is
// cleared even when the service has no signed_out event to publish.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	token, tokenID := c.token, c.tokenID
	c.mu.Unlock()
	if token == "" {
		return nil
	}
	if err := c.svc.SignOut(ctx, token); err != nil {
		return err
	}
	c.clear(tokenID)
	return nil
}

// Token returns the current session token, or ""
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Current returns the signed-in user, or nil
func (c *Client) Current() *User {
	return c.state.Current()
}

// Subscribe observes the signed-in user
func (c *Client) Subscribe(fn func(*User)) (unsubscribe func()) {
	return c.state.Subscribe(fn)
}

// Close releases the client's subscription to the service
func (c *Client) Close() {
	c.unsubscribe()
}
