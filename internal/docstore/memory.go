package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store and Locker. It is used by tests and by local
// runs without a Couchbase cluster.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
	locks       map[string]memoryLock
	now         func() time.Time
	newID       func() string
}

type memoryLock struct {
	owner     string
	expiresAt time.Time
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithMemoryClock overrides the clock used for server timestamps and lock expiry.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

// WithIDGenerator overrides document id generation.
func WithIDGenerator(gen func() string) MemoryOption {
	return func(m *Memory) {
		m.newID = gen
	}
}

// NewMemory creates an empty in-memory store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		collections: make(map[string]map[string]map[string]any),
		locks:       make(map[string]memoryLock),
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := ToMap(ResolveTimestamps(data, m.now()))
	if err != nil {
		return "", err
	}
	id := m.newID()
	coll := m.collection(collection)
	if _, exists := coll[id]; exists {
		return "", fmt.Errorf("document %s already exists in %s", id, collection)
	}
	coll[id] = doc
	return id, nil
}

func (m *Memory) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.collections[collection][id]
	if !ok {
		return Document{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return Document{ID: id, Data: copyDoc(doc)}, nil
}

func (m *Memory) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.collections[collection][id]
	if !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	fields, err := ToMap(ResolveTimestamps(patch, m.now()))
	if err != nil {
		return err
	}
	for k, v := range fields {
		doc[k] = v
	}
	return nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.collections[collection], id)
	return nil
}

func (m *Memory) Query(ctx context.Context, q Query) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	filters := make([]Filter, len(q.Filters))
	for i, f := range q.Filters {
		nf, err := normalizeFilter(f)
		if err != nil {
			return nil, err
		}
		filters[i] = nf
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	coll := m.collections[q.Collection]
	ids := make([]string, 0, len(coll))
	for id := range coll {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []Document
	for _, id := range ids {
		if q.After != "" && id <= q.After {
			continue
		}
		doc := coll[id]
		if !matchesAll(id, doc, filters) {
			continue
		}
		out = append(out, Document{ID: id, Data: copyDoc(doc)})
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

// Lock takes the named lock unless an unexpired holder exists.
func (m *Memory) Lock(ctx context.Context, name, owner string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if held, ok := m.locks[name]; ok && now.Before(held.expiresAt) {
		return fmt.Errorf("%s held by %s: %w", name, held.owner, ErrLocked)
	}
	m.locks[name] = memoryLock{owner: owner, expiresAt: now.Add(ttl)}
	return nil
}

func (m *Memory) Unlock(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.locks, name)
	return nil
}

func (m *Memory) collection(name string) map[string]map[string]any {
	coll, ok := m.collections[name]
	if !ok {
		coll = make(map[string]map[string]any)
		m.collections[name] = coll
	}
	return coll
}

func matchesAll(id string, doc map[string]any, filters []Filter) bool {
	for _, f := range filters {
		if !matches(id, doc, f) {
			return false
		}
	}
	return true
}

func matches(id string, doc map[string]any, f Filter) bool {
	switch f.Op {
	case OpEq:
		v, ok := doc[f.Field]
		return ok && reflect.DeepEqual(v, f.Value)
	case OpArrayContains:
		arr, ok := doc[f.Field].([]any)
		if !ok {
			return false
		}
		for _, v := range arr {
			if reflect.DeepEqual(v, f.Value) {
				return true
			}
		}
		return false
	case OpIDIn:
		for _, candidate := range f.Value.([]string) {
			if candidate == id {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// normalizeFilter puts filter values in the same JSON shape as stored documents.
func normalizeFilter(f Filter) (Filter, error) {
	if f.Op == OpIDIn {
		if _, ok := f.Value.([]string); !ok {
			return f, fmt.Errorf("id-in filter requires []string, got %T", f.Value)
		}
		return f, nil
	}
	raw, err := json.Marshal(f.Value)
	if err != nil {
		return f, fmt.Errorf("failed to encode filter value for %s: %w", f.Field, err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return f, fmt.Errorf("failed to decode filter value for %s: %w", f.Field, err)
	}
	f.Value = v
	return f, nil
}

func copyDoc(doc map[string]any) map[string]any {
	out, err := ToMap(doc)
	if err != nil {
		return map[string]any{}
	}
	return out
}
