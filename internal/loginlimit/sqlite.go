package loginlimit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS login_attempts (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	expires_at INTEGER NOT NULL DEFAULT 0
)`

// sqliteRestart is 1 when the stored record cannot be extended: unreadable,
// expired, or opened ?3 ms or more before ?2.
const sqliteRestart = `CASE
	WHEN NOT json_valid(value) THEN 1
	WHEN expires_at > 0 AND ?2 > expires_at THEN 1
	WHEN IFNULL(json_type(value, '$.firstAttemptTimestamp'), 'null') <> 'integer' THEN 1
	WHEN IFNULL(json_type(value, '$.attempts'), 'null') <> 'integer' THEN 1
	WHEN ?2 - json_extract(value, '$.firstAttemptTimestamp') >= ?3 THEN 1
	ELSE 0
END`

const sqliteRecordFailure = `INSERT INTO login_attempts (key, value, expires_at)
VALUES (?1, json_object('attempts', 1, 'firstAttemptTimestamp', ?2), ?2 + ?3 + 60000)
ON CONFLICT(key) DO UPDATE SET
	value = CASE ` + sqliteRestart + ` WHEN 1 THEN excluded.value
		ELSE json_set(value, '$.attempts', json_extract(value, '$.attempts') + 1) END,
	expires_at = CASE ` + sqliteRestart + ` WHEN 1 THEN excluded.expires_at ELSE expires_at END
RETURNING value`

// SQLiteStorage keeps limiter records in a local SQLite file
type SQLiteStorage struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (or creates) the database at path and applies the schema
func OpenSQLite(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range append(pragmas, sqliteSchema) {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("executing %q: %w", p, err)
		}
	}

	return &SQLiteStorage{db: db, now: time.Now}, nil
}

// Close closes the database
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT value, expires_at FROM login_attempts WHERE key = ?", key,
	).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	if expiresAt > 0 && s.now().UnixMilli() > expiresAt {
		return "", false, nil
	}
	return value, true, nil
}

func (s *SQLiteStorage) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = s.now().Add(ttl).UnixMilli()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO login_attempts (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStorage) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM login_attempts WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// RecordFailure counts the failure with a single upsert, so concurrent
// writers never lose an increment
func (s *SQLiteStorage) RecordFailure(ctx context.Context, key string, now time.Time, window time.Duration) (AttemptInfo, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, sqliteRecordFailure, key, now.UnixMilli(), window.Milliseconds()).Scan(&raw)
	if err != nil {
		return AttemptInfo{}, fmt.Errorf("recording failure for %s: %w", key, err)
	}
	var info AttemptInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return AttemptInfo{}, fmt.Errorf("decoding %s: %w", key, err)
	}
	return info, nil
}
