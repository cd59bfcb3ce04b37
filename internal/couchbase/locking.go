package couchbase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/couchbase/gocb/v2"
	"github.com/rs/zerolog/log"
	"stealthcompany.com/archaeoseeker/internal/docstore"
)

const lockCollection = "locks"

// DatabaseLocker keeps named locks as expiring documents
type DatabaseLocker struct {
	conn *ConnectionManager
}

// NewDatabaseLocker creates a new database locker
func NewDatabaseLocker(conn *ConnectionManager) *DatabaseLocker {
	return &DatabaseLocker{conn: conn}
}

// Lock inserts the lock document; it fails with docstore.ErrLocked while another holder's document lives
func (l *DatabaseLocker) Lock(ctx context.Context, name, owner string, ttl time.Duration) error {
	lockDoc := map[string]any{
		"locked":    true,
		"lockedAt":  time.Now().UTC(),
		"lockedBy":  owner,
		"expiresAt": time.Now().UTC().Add(ttl),
	}

	_, err := l.conn.Collection(lockCollection).Insert(name, lockDoc, &gocb.InsertOptions{
		Context: ctx,
		Expiry:  ttl,
	})
	if err != nil {
		if errors.Is(err, gocb.ErrDocumentExists) {
			return fmt.Errorf("%s: %w", name, docstore.ErrLocked)
		}
		return fmt.Errorf("failed to create lock document: %w", err)
	}

	log.Info().Str("lock", name).Str("owner", owner).Msg("Lock acquired")
	return nil
}

// Unlock removes the lock document
func (l *DatabaseLocker) Unlock(ctx context.Context, name string) error {
	_, err := l.conn.Collection(lockCollection).Remove(name, &gocb.RemoveOptions{Context: ctx})
	if err != nil && !errors.Is(err, gocb.ErrDocumentNotFound) {
		return fmt.Errorf("failed to remove lock document: %w", err)
	}

	log.Info().Str("lock", name).Msg("Lock released")
	return nil
}
