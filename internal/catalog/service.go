// Package catalog is the query layer over the item and request collections.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"stealthcompany.com/archaeoseeker/internal/docstore"
	"stealthcompany.com/archaeoseeker/internal/metrics"
)

// Service runs catalog operations against a document store
type Service struct {
	store docstore.Store
}

// NewService creates a catalog service
func NewService(store docstore.Store) *Service {
	return &Service{store: store}
}

// GetItems returns one page of visible items matching the equality filters,
// starting after cursor. The search term is applied to that page only.
func (s *Service) GetItems(ctx context.Context, filters FilterCriteria, pageSize int, cursor string) (page Page, err error) {
	defer recordOperation("get_items", time.Now(), &err)

	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	q := docstore.Query{
		Collection: ItemsCollection,
		Filters:    []docstore.Filter{docstore.Eq("isDisabled", false)},
		After:      cursor,
		Limit:      pageSize,
	}
	if filters.Type != "" {
		q.Filters = append(q.Filters, docstore.Eq("type", filters.Type))
	}
	if filters.Era != "" {
		q.Filters = append(q.Filters, docstore.Eq("era", filters.Era))
	}
	if filters.Region != "" {
		q.Filters = append(q.Filters, docstore.Eq("region", filters.Region))
	}

	docs, err := s.store.Query(ctx, q)
	if err != nil {
		return Page{}, fmt.Errorf("failed to query items: %w", err)
	}

	items, err := decodeItems(docs)
	if err != nil {
		return Page{}, err
	}

	if len(docs) == pageSize {
		page.NextCursor = docs[len(docs)-1].ID
	}

	if term := strings.ToLower(strings.TrimSpace(filters.SearchTerm)); term != "" {
		filtered := items[:0]
		for _, item := range items {
			if matchesSearch(item, term) {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}

	page.Items = items
	log.Debug().
		Str("type", filters.Type).
		Str("era", filters.Era).
		Str("region", filters.Region).
		Str("cursor", cursor).
		Int("raw_count", len(docs)).
		Int("result_count", len(items)).
		Msg("Fetched item page")
	return page, nil
}

func matchesSearch(item Item, term string) bool {
	return strings.Contains(strings.ToLower(item.Name), term) ||
		strings.Contains(strings.ToLower(item.Description), term) ||
		strings.Contains(strings.ToLower(item.Location), term)
}

// GetAllItems returns every item, hidden ones included
func (s *Service) GetAllItems(ctx context.Context) (items []Item, err error) {
	defer recordOperation("get_all_items", time.Now(), &err)
	return s.queryItems(ctx, docstore.Query{Collection: ItemsCollection})
}

// GetItem returns one item by id
func (s *Service) GetItem(ctx context.Context, id string) (item Item, err error) {
	defer recordOperation("get_item", time.Now(), &err)

	doc, err := s.store.Get(ctx, ItemsCollection, id)
	if err != nil {
		return Item{}, fmt.Errorf("failed to get item %s: %w", id, err)
	}
	return decodeItem(doc)
}

// AddItem stores a new item and returns its id
func (s *Service) AddItem(ctx context.Context, item Item) (id string, err error) {
	defer recordOperation("add_item", time.Now(), &err)

	fields, err := ItemFields(item)
	if err != nil {
		return "", err
	}
	id, err = s.store.Add(ctx, ItemsCollection, fields)
	if err != nil {
		return "", fmt.Errorf("failed to add item: %w", err)
	}
	log.Info().Str("item_id", id).Str("name", item.Name).Msg("Item added")
	return id, nil
}

// UpdateItem merges fields into an existing item
func (s *Service) UpdateItem(ctx context.Context, id string, fields map[string]any) (err error) {
	defer recordOperation("update_item", time.Now(), &err)

	delete(fields, "id")
	if err := s.store.Update(ctx, ItemsCollection, id, fields); err != nil {
		return fmt.Errorf("failed to update item %s: %w", id, err)
	}
	log.Info().Str("item_id", id).Int("fields", len(fields)).Msg("Item updated")
	return nil
}

// DeleteItem removes an item
func (s *Service) DeleteItem(ctx context.Context, id string) (err error) {
	defer recordOperation("delete_item", time.Now(), &err)

	if err := s.store.Delete(ctx, ItemsCollection, id); err != nil {
		return fmt.Errorf("failed to delete item %s: %w", id, err)
	}
	log.Info().Str("item_id", id).Msg("Item deleted")
	return nil
}

// GetMuseums returns all museums
func (s *Service) GetMuseums(ctx context.Context) (items []Item, err error) {
	defer recordOperation("get_museums", time.Now(), &err)
	return s.queryItems(ctx, docstore.Query{
		Collection: ItemsCollection,
		Filters:    []docstore.Filter{docstore.Eq("type", TypeMuseum)},
	})
}

// GetArtifactsInMuseum returns the artifacts that list museumID
func (s *Service) GetArtifactsInMuseum(ctx context.Context, museumID string) (items []Item, err error) {
	defer recordOperation("get_artifacts_in_museum", time.Now(), &err)
	return s.queryItems(ctx, docstore.Query{
		Collection: ItemsCollection,
		Filters: []docstore.Filter{
			docstore.Eq("type", TypeArtifact),
			docstore.ArrayContains("museumIds", museumID),
		},
	})
}

// GetItemsByIds returns the items with the given ids. No query is issued for
// an empty list; longer lists are split into several membership queries.
func (s *Service) GetItemsByIds(ctx context.Context, ids []string) (items []Item, err error) {
	if len(ids) == 0 {
		return []Item{}, nil
	}
	defer recordOperation("get_items_by_ids", time.Now(), &err)

	items = []Item{}
	for start := 0; start < len(ids); start += maxIDsPerQuery {
		end := min(start+maxIDsPerQuery, len(ids))
		chunk, err := s.queryItems(ctx, docstore.Query{
			Collection: ItemsCollection,
			Filters:    []docstore.Filter{docstore.IDIn(ids[start:end])},
		})
		if err != nil {
			return nil, err
		}
		items = append(items, chunk...)
	}
	return items, nil
}

// FindItemBySourceRequest returns the item approved from requestID, if any
func (s *Service) FindItemBySourceRequest(ctx context.Context, requestID string) (*Item, error) {
	items, err := s.queryItems(ctx, docstore.Query{
		Collection: ItemsCollection,
		Filters:    []docstore.Filter{docstore.Eq("sourceRequestId", requestID)},
		Limit:      1,
	})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

func (s *Service) queryItems(ctx context.Context, q docstore.Query) ([]Item, error) {
	docs, err := s.store.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q.Collection, err)
	}
	return decodeItems(docs)
}

// ItemFields converts an item to document fields, without its id
func ItemFields(item Item) (map[string]any, error) {
	fields, err := docstore.ToMap(item)
	if err != nil {
		return nil, err
	}
	delete(fields, "id")
	return fields, nil
}

func decodeItem(doc docstore.Document) (Item, error) {
	var item Item
	if err := doc.Decode(&item); err != nil {
		return Item{}, err
	}
	item.ID = doc.ID
	return item, nil
}

func decodeItems(docs []docstore.Document) ([]Item, error) {
	items := make([]Item, 0, len(docs))
	for _, doc := range docs {
		item, err := decodeItem(doc)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func recordOperation(operation string, start time.Time, errp *error) {
	metrics.RecordCatalogOperation(operation, start, *errp)
	if *errp != nil {
		log.Error().Err(*errp).Str("operation", operation).Msg("Catalog operation failed")
	}
}
