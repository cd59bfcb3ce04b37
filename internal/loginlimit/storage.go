package loginlimit

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Storage keeps one string value per key. ttl is a hint: a backend may drop
// the value once it elapses, and zero means keep it.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// RecordFailure atomically counts one failure in the record under key and
	// returns the updated record. A missing or unreadable record, or one whose
	// window opened window or more before now, is replaced by a fresh window.
	RecordFailure(ctx context.Context, key string, now time.Time, window time.Duration) (AttemptInfo, error)
}

// nextAttempt applies one failure to the stored value
func nextAttempt(raw string, ok bool, now time.Time, window time.Duration) AttemptInfo {
	var info AttemptInfo
	if ok && json.Unmarshal([]byte(raw), &info) == nil &&
		now.Sub(time.UnixMilli(info.FirstAttemptTimestamp)) < window {
		info.Attempts++
		return info
	}
	return AttemptInfo{Attempts: 1, FirstAttemptTimestamp: now.UnixMilli()}
}

// MemoryStorage is a process-local Storage
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStorage creates an empty MemoryStorage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (m *MemoryStorage) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemoryStorage) RecordFailure(ctx context.Context, key string, now time.Time, window time.Duration) (AttemptInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, ok := m.values[key]
	info := nextAttempt(raw, ok, now, window)
	encoded, err := json.Marshal(info)
	if err != nil {
		return AttemptInfo{}, err
	}
	m.values[key] = string(encoded)
	return info, nil
}
