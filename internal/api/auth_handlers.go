package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"stealthcompany.com/archaeoseeker/internal/auth"
	"stealthcompany.com/archaeoseeker/internal/browse"
)

const (
	// eventBuffer is how many auth events a slow websocket client may lag
	eventBuffer = 8
	wsWriteWait = 10 * time.Second
	wsPingEvery = 30 * time.Second
)

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// StateMessage is sent on the auth events stream
type StateMessage struct {
	Type string     `json:"type"`
	User *auth.User `json:"user"`
	At   time.Time  `json:"at"`
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     sameOrigin,
}

// sameOrigin accepts non-browser clients (no Origin) and pages served from
// the API's own host
func sameOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// LoginHandler handles POST /api/auth/login. Failed attempts count against
// the calling client; a locked out client gets 429 without the credentials
// being checked.
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrInvalidJSON)
		return
	}

	client := s.proxies.ClientID(r)
	limiter := s.limiter.For(client)

	var session *auth.Session
	err := browse.AttemptLogin(r.Context(), limiter, func(ctx context.Context) error {
		var err error
		session, err = s.auth.SignIn(ctx, strings.TrimSpace(req.Email), req.Password)
		return err
	})
	if err != nil {
		log.Warn().Err(err).Str("client", client).Msg("Login rejected")
		status := http.StatusUnauthorized
		if errors.Is(err, auth.ErrLockedOut) {
			status = http.StatusTooManyRequests
		}
		writeFailure(w, status, err, browse.MsgBadCredentials)
		return
	}

	log.Info().Str("email", session.User.Email).Str("client", client).Msg("Admin signed in")
	writeJSON(w, http.StatusOK, session)
}

// LogoutHandler handles POST /api/auth/logout. Expired or unknown tokens
// are already signed out and get 204 too.
func (s *Server) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	token, _ := auth.BearerToken(r.Header.Get(auth.AuthorizationHeader))
	if err := s.auth.SignOut(r.Context(), token); err != nil {
		log.Error().Err(err).Msg("Sign-out failed")
		writeError(w, http.StatusInternalServerError, browse.MsgSignOutFailed)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MeHandler handles GET /api/auth/me
func (s *Server) MeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, auth.ErrInvalidTokenMsg)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// AuthEventsHandler handles GET /api/auth/events. It streams the signed-in
// state of one session token over a websocket: the current state first, then
// a signed_out message when that session ends. Browsers pass the token as
// the token query parameter.
func (s *Server) AuthEventsHandler(w http.ResponseWriter, r *http.Request) {
	token, ok := auth.BearerToken(r.Header.Get(auth.AuthorizationHeader))
	if !ok {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		writeError(w, http.StatusUnauthorized, auth.ErrAuthHeaderRequired)
		return
	}
	user, claims, err := s.auth.Verify(token)
	if err != nil {
		log.Warn().Err(err).Msg("Rejected auth events subscription")
		writeError(w, http.StatusUnauthorized, auth.ErrInvalidTokenMsg)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	events := make(chan auth.Event, eventBuffer)
	unsubscribe := s.auth.Subscribe(func(e auth.Event) {
		if e.TokenID != claims.ID {
			return
		}
		select {
		case events <- e:
		default:
			log.Warn().Str("type", e.Type).Msg("Dropping auth event for slow subscriber")
		}
	})
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// the read loop only notices the peer closing
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := writeState(conn, StateMessage{Type: auth.EventSignedIn, User: user, At: time.Now().UTC()}); err != nil {
		return
	}

	ping := time.NewTicker(wsPingEvery)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		case e := <-events:
			msg := StateMessage{Type: e.Type, At: e.At}
			if e.Type == auth.EventSignedIn {
				msg.User = e.User
			}
			if err := writeState(conn, msg); err != nil {
				return
			}
			if e.Type == auth.EventSignedOut {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "signed out"),
					time.Now().Add(wsWriteWait))
				return
			}
		}
	}
}

func writeState(conn *websocket.Conn, msg StateMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	if err := conn.WriteJSON(msg); err != nil {
		log.Debug().Err(err).Msg("Auth events write failed")
		return err
	}
	return nil
}
