package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"stealthcompany.com/archaeoseeker/internal/docstore"
)

// AddRequest stores a request as pending with a store-assigned submission time,
// whatever status the caller set
func (s *Service) AddRequest(ctx context.Context, req AdditionRequest) (id string, err error) {
	defer recordOperation("add_request", time.Now(), &err)

	req.Status = StatusPending
	req.SubmittedAt = ""
	fields, err := docstore.ToMap(req)
	if err != nil {
		return "", err
	}
	delete(fields, "id")
	fields["submittedAt"] = docstore.ServerTimestamp

	id, err = s.store.Add(ctx, RequestsCollection, fields)
	if err != nil {
		return "", fmt.Errorf("failed to add request: %w", err)
	}
	log.Info().Str("request_id", id).Str("name", req.Name).Msg("Request submitted")
	return id, nil
}

// GetRequests returns all pending requests
func (s *Service) GetRequests(ctx context.Context) (requests []AdditionRequest, err error) {
	defer recordOperation("get_requests", time.Now(), &err)

	docs, err := s.store.Query(ctx, docstore.Query{
		Collection: RequestsCollection,
		Filters:    []docstore.Filter{docstore.Eq("status", StatusPending)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}

	requests = make([]AdditionRequest, 0, len(docs))
	for _, doc := range docs {
		req, err := decodeRequest(doc)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, nil
}

// GetRequest returns one request by id
func (s *Service) GetRequest(ctx context.Context, id string) (req AdditionRequest, err error) {
	defer recordOperation("get_request", time.Now(), &err)

	doc, err := s.store.Get(ctx, RequestsCollection, id)
	if err != nil {
		return AdditionRequest{}, fmt.Errorf("failed to get request %s: %w", id, err)
	}
	return decodeRequest(doc)
}

// DeleteRequest removes a request; used for both deny and approval cleanup
func (s *Service) DeleteRequest(ctx context.Context, id string) (err error) {
	defer recordOperation("delete_request", time.Now(), &err)

	if err := s.store.Delete(ctx, RequestsCollection, id); err != nil {
		return fmt.Errorf("failed to delete request %s: %w", id, err)
	}
	log.Info().Str("request_id", id).Msg("Request deleted")
	return nil
}

func decodeRequest(doc docstore.Document) (AdditionRequest, error) {
	var req AdditionRequest
	if err := doc.Decode(&req); err != nil {
		return AdditionRequest{}, err
	}
	req.ID = doc.ID
	return req, nil
}
