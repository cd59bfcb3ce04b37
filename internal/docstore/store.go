// Package docstore defines the document-store port the catalog is written
// against. A backend stores schemaless JSON documents in named collections and
// answers filtered, id-ordered, cursor-paginated queries.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned by Get and Update when the document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrLocked is returned by Lock when another holder owns the lock.
	ErrLocked = errors.New("lock is held")
)

// Op is a filter operator.
type Op string

const (
	OpEq            Op = "=="
	OpArrayContains Op = "array-contains"
	OpIDIn          Op = "id-in"
)

// Filter restricts a query. Field is ignored for OpIDIn.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Eq matches documents whose field equals v. Documents missing the field never match.
func Eq(field string, v any) Filter {
	return Filter{Field: field, Op: OpEq, Value: v}
}

// ArrayContains matches documents whose array field holds v.
func ArrayContains(field string, v any) Filter {
	return Filter{Field: field, Op: OpArrayContains, Value: v}
}

// IDIn matches documents whose id is one of ids.
func IDIn(ids []string) Filter {
	return Filter{Op: OpIDIn, Value: ids}
}

// Query selects documents from one collection. Results are ordered by
// document id; After is the id of the last document already seen and Limit
// caps the page size (zero means no cap).
type Query struct {
	Collection string
	Filters    []Filter
	After      string
	Limit      int
}

// Document is a stored document and its id.
type Document struct {
	ID   string
	Data map[string]any
}

// Decode copies the document into v through its JSON form.
func (d Document) Decode(v any) error {
	raw, err := json.Marshal(d.Data)
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", d.ID, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode document %s: %w", d.ID, err)
	}
	return nil
}

type serverTimestamp struct{}

// ServerTimestamp is a field value that the backend replaces with the write time.
var ServerTimestamp any = serverTimestamp{}

// Store is a collection-based document database.
type Store interface {
	// Add stores data under a new store-assigned id.
	Add(ctx context.Context, collection string, data map[string]any) (string, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	// Update merges patch into an existing document.
	Update(ctx context.Context, collection, id string, patch map[string]any) error
	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, q Query) ([]Document, error)
}

// Locker provides named, expiring, store-wide locks.
type Locker interface {
	Lock(ctx context.Context, name, owner string, ttl time.Duration) error
	Unlock(ctx context.Context, name string) error
}

// ToMap converts a tagged struct into a document body.
func ToMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return out, nil
}

// ResolveTimestamps returns a copy of data with every ServerTimestamp replaced by now.
func ResolveTimestamps(data map[string]any, now time.Time) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if _, ok := v.(serverTimestamp); ok {
			out[k] = now.UTC().Format(time.RFC3339Nano)
			continue
		}
		out[k] = v
	}
	return out
}
