// Package loginlimit caps failed admin sign-ins per client: three failures
// within 24 hours of the first one lock the client out until the window ends.
package loginlimit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	MaxAttempts   = 3
	LockoutWindow = 24 * time.Hour
	// StorageKey is the record key; per-client limiters append ":<client>".
	StorageKey = "adminLoginAttempts"
)

// AttemptInfo is the stored record. It exists only while a window is open.
type AttemptInfo struct {
	Attempts              int   `json:"attempts"`
	FirstAttemptTimestamp int64 `json:"firstAttemptTimestamp"`
}

// Limiter tracks failed login attempts for one client key
type Limiter struct {
	storage Storage
	key     string
	now     func() time.Time
}

// Option configures a Limiter
type Option func(*Limiter)

// WithClock overrides the limiter clock
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New creates a limiter over storage using the shared StorageKey
func New(storage Storage, opts ...Option) *Limiter {
	l := &Limiter{
		storage: storage,
		key:     StorageKey,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// For returns a limiter on the same storage scoped to one client
func (l *Limiter) For(client string) *Limiter {
	scoped := *l
	scoped.key = StorageKey + ":" + client
	return &scoped
}

// CanAttemptLogin reports whether another attempt is allowed. An expired
// record is cleared as a side effect. Unreadable records and storage errors
// allow the attempt.
func (l *Limiter) CanAttemptLogin(ctx context.Context) bool {
	info := l.load(ctx)
	if info == nil {
		return true
	}

	if l.now().Sub(time.UnixMilli(info.FirstAttemptTimestamp)) > LockoutWindow {
		if err := l.ResetLoginAttempts(ctx); err != nil {
			log.Warn().Err(err).Str("key", l.key).Msg("Failed to clear expired login attempts")
		}
		return true
	}

	return info.Attempts < MaxAttempts
}

// RecordFailedLogin counts a failure inside the open window, or opens a new one
func (l *Limiter) RecordFailedLogin(ctx context.Context) error {
	info, err := l.storage.RecordFailure(ctx, l.key, l.now(), LockoutWindow)
	if err != nil {
		return err
	}

	log.Info().
		Str("key", l.key).
		Int("attempts", info.Attempts).
		Msg("Recorded failed login")
	return nil
}

// ReserveAttempt counts an attempt as failed before the credentials are
// checked and reports how many attempts remain after it. Concurrent callers
// each get their own count, so at most MaxAttempts proceed per window. A
// successful sign-in must call ResetLoginAttempts. Storage errors allow the
// attempt.
func (l *Limiter) ReserveAttempt(ctx context.Context) (remaining int, allowed bool) {
	info, err := l.storage.RecordFailure(ctx, l.key, l.now(), LockoutWindow)
	if err != nil {
		log.Warn().Err(err).Str("key", l.key).Msg("Failed to reserve login attempt, allowing it")
		return MaxAttempts, true
	}
	if info.Attempts > MaxAttempts {
		return 0, false
	}
	return MaxAttempts - info.Attempts, true
}

// ResetLoginAttempts removes the record
func (l *Limiter) ResetLoginAttempts(ctx context.Context) error {
	return l.storage.Delete(ctx, l.key)
}

// Info returns the current record, or nil
func (l *Limiter) Info(ctx context.Context) *AttemptInfo {
	return l.load(ctx)
}

func (l *Limiter) load(ctx context.Context) *AttemptInfo {
	raw, ok, err := l.storage.Get(ctx, l.key)
	if err != nil {
		log.Warn().Err(err).Str("key", l.key).Msg("Failed to read login attempts")
		return nil
	}
	if !ok {
		return nil
	}

	var info AttemptInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		log.Warn().Err(err).Str("key", l.key).Msg("Ignoring unreadable login attempt record")
		return nil
	}
	return &info
}
