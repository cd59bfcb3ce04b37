package couchbase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/couchbase/gocb/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"stealthcompany.com/archaeoseeker/internal/docstore"
)

// DocumentManager handles document CRUD operations and queries
type DocumentManager struct {
	conn *ConnectionManager
}

// NewDocumentManager creates a new document manager
func NewDocumentManager(conn *ConnectionManager) *DocumentManager {
	return &DocumentManager{conn: conn}
}

// Add inserts a document under a fresh id
func (dm *DocumentManager) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	docID := uuid.NewString()
	body := docstore.ResolveTimestamps(data, time.Now())

	_, err := dm.conn.Collection(collection).Insert(docID, body, &gocb.InsertOptions{Context: ctx})
	if err != nil {
		log.Error().
			Err(err).
			Str("collection", collection).
			Str("doc_id", docID).
			Msg("Failed to insert document")
		return "", fmt.Errorf("failed to insert document %s: %w", docID, err)
	}

	log.Debug().Str("collection", collection).Str("doc_id", docID).Msg("Inserted document")
	return docID, nil
}

// Get retrieves a document
func (dm *DocumentManager) Get(ctx context.Context, collection, docID string) (docstore.Document, error) {
	start := time.Now()
	result, err := dm.conn.Collection(collection).Get(docID, &gocb.GetOptions{Context: ctx})
	if err != nil {
		if errors.Is(err, gocb.ErrDocumentNotFound) {
			return docstore.Document{}, fmt.Errorf("%s/%s: %w", collection, docID, docstore.ErrNotFound)
		}
		return docstore.Document{}, fmt.Errorf("failed to get document %s: %w", docID, err)
	}

	var data map[string]any
	if err := result.Content(&data); err != nil {
		return docstore.Document{}, fmt.Errorf("failed to parse document content: %w", err)
	}

	log.Debug().
		Str("collection", collection).
		Str("doc_id", docID).
		Dur("duration", time.Since(start)).
		Msg("Retrieved document")
	return docstore.Document{ID: docID, Data: data}, nil
}

// Update merges patch into an existing document with a sub-document mutation
func (dm *DocumentManager) Update(ctx context.Context, collection, docID string, patch map[string]any) error {
	if len(patch) == 0 {
		return nil
	}
	body := docstore.ResolveTimestamps(patch, time.Now())

	specs := make([]gocb.MutateInSpec, 0, len(body))
	for field, value := range body {
		specs = append(specs, gocb.UpsertSpec(field, value, nil))
	}

	_, err := dm.conn.Collection(collection).MutateIn(docID, specs, &gocb.MutateInOptions{Context: ctx})
	if err != nil {
		if errors.Is(err, gocb.ErrDocumentNotFound) {
			return fmt.Errorf("%s/%s: %w", collection, docID, docstore.ErrNotFound)
		}
		log.Error().
			Err(err).
			Str("collection", collection).
			Str("doc_id", docID).
			Msg("Failed to update document")
		return fmt.Errorf("failed to update document %s: %w", docID, err)
	}
	return nil
}

// Delete removes a document; a missing document is not an error
func (dm *DocumentManager) Delete(ctx context.Context, collection, docID string) error {
	_, err := dm.conn.Collection(collection).Remove(docID, &gocb.RemoveOptions{Context: ctx})
	if err != nil && !errors.Is(err, gocb.ErrDocumentNotFound) {
		return fmt.Errorf("failed to delete document %s: %w", docID, err)
	}
	return nil
}

// Query runs a filtered, id-ordered N1QL query
func (dm *DocumentManager) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	statement, params, err := buildQuery(dm.conn.Keyspace(q.Collection), q)
	if err != nil {
		return nil, err
	}

	rows, err := dm.conn.GetCluster().Query(statement, &gocb.QueryOptions{
		Context:         ctx,
		NamedParameters: params,
		ScanConsistency: gocb.QueryScanConsistencyRequestPlus,
	})
	if err != nil {
		log.Error().
			Err(err).
			Str("query", statement).
			Msg("Query failed")
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var docs []docstore.Document
	for rows.Next() {
		var row QueryRow
		if err := rows.Row(&row); err != nil {
			return nil, fmt.Errorf("failed to decode query row: %w", err)
		}
		docs = append(docs, docstore.Document{ID: row.ID, Data: row.Resource})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query iteration failed: %w", err)
	}

	log.Debug().
		Str("collection", q.Collection).
		Int("result_count", len(docs)).
		Msg("Query completed")
	return docs, nil
}
