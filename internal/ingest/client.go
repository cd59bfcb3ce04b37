// Package ingest bulk-loads catalog items and requests from a JSON bundle.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"stealthcompany.com/archaeoseeker/internal/catalog"
	"stealthcompany.com/archaeoseeker/internal/docstore"
	"stealthcompany.com/archaeoseeker/internal/metrics"
)

const (
	// lockTTL bounds how long a crashed ingest blocks other bulk writers
	lockTTL = 30 * time.Minute
	// DefaultConcurrency is the number of parallel writes
	DefaultConcurrency = 8
)

// Bundle is the import file format
type Bundle struct {
	Items    []catalog.Item            `json:"items"`
	Requests []catalog.AdditionRequest `json:"requests,omitempty"`
}

// Writer stores ingested documents
type Writer interface {
	AddItem(ctx context.Context, item catalog.Item) (string, error)
	AddRequest(ctx context.Context, req catalog.AdditionRequest) (string, error)
}

// Stats counts the outcome for one collection
type Stats struct {
	Total  int `json:"total"`
	Stored int `json:"stored"`
	Failed int `json:"failed"`
}

// Result is the outcome of an ingest run
type Result struct {
	Items    Stats `json:"items"`
	Requests Stats `json:"requests"`
}

// Client loads bundles and writes them to the catalog
type Client struct {
	httpClient  *http.Client
	writer      Writer
	locker      docstore.Locker
	concurrency int
}

// NewClient creates an ingest client. A nil locker skips the maintenance lock.
func NewClient(timeout time.Duration, writer Writer, locker docstore.Locker) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		writer:      writer,
		locker:      locker,
		concurrency: DefaultConcurrency,
	}
}

// Ingest loads the bundle at source, a file path or http(s) URL, and stores
// its items and requests while holding the maintenance lock. Individual
// write failures are counted, not fatal.
func (c *Client) Ingest(ctx context.Context, source string) (Result, error) {
	if c.locker != nil {
		owner := "ingest-" + uuid.NewString()
		log.Info().Str("owner", owner).Msg("Locking catalog for ingestion")
		if err := c.locker.Lock(ctx, catalog.MaintenanceLock, owner, lockTTL); err != nil {
			return Result{}, fmt.Errorf("failed to lock catalog: %w", err)
		}
		defer func() {
			log.Info().Msg("Unlocking catalog after ingestion")
			if err := c.locker.Unlock(context.WithoutCancel(ctx), catalog.MaintenanceLock); err != nil {
				log.Error().Err(err).Msg("Failed to unlock catalog")
			}
		}()
	}

	bundle, err := c.Load(ctx, source)
	if err != nil {
		metrics.RecordIngestion(catalog.ItemsCollection, time.Now(), "failed", 0, 0)
		return Result{}, err
	}

	log.Info().
		Str("source", source).
		Int("items", len(bundle.Items)).
		Int("requests", len(bundle.Requests)).
		Msg("Parsed catalog bundle")

	var result Result
	result.Items, err = ingestAll(ctx, c.concurrency, catalog.ItemsCollection, bundle.Items, c.storeItem)
	if err != nil {
		return result, err
	}
	result.Requests, err = ingestAll(ctx, c.concurrency, catalog.RequestsCollection, bundle.Requests, c.storeRequest)
	if err != nil {
		return result, err
	}
	return result, nil
}

func (c *Client) storeItem(ctx context.Context, item catalog.Item) error {
	if strings.TrimSpace(item.Name) == "" {
		return fmt.Errorf("item without a name")
	}
	item.ID = ""
	if item.IsDisabled == nil {
		item.IsDisabled = catalog.Bool(false)
	}
	_, err := c.writer.AddItem(ctx, item)
	return err
}

func (c *Client) storeRequest(ctx context.Context, req catalog.AdditionRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("request without a name")
	}
	_, err := c.writer.AddRequest(ctx, req)
	return err
}

// ingestAll stores docs concurrently. Only context cancellation stops the run.
func ingestAll[T any](ctx context.Context, concurrency int, collection string, docs []T, store func(context.Context, T) error) (Stats, error) {
	startTime := time.Now()
	stats := Stats{Total: len(docs)}
	if len(docs) == 0 {
		return stats, nil
	}

	var stored, failed, processed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, doc := range docs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := store(gctx, doc); err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.Error().
					Err(err).
					Str("collection", collection).
					Int("index", i).
					Msg("Failed to store document")
				failed.Add(1)
			} else {
				stored.Add(1)
			}

			if n := processed.Add(1); n%100 == 0 {
				log.Info().
					Str("collection", collection).
					Int64("processed", n).
					Int("total", len(docs)).
					Msg("Progress update")
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	stats.Stored = int(stored.Load())
	stats.Failed = int(failed.Load())
	status := "success"
	if err != nil {
		status = "failed"
	}
	metrics.RecordIngestion(collection, startTime, status, stats.Stored, stats.Failed)

	log.Info().
		Str("collection", collection).
		Int("total", stats.Total).
		Int("stored", stats.Stored).
		Int("failed", stats.Failed).
		Msg("Completed ingestion")

	if err != nil {
		return stats, fmt.Errorf("ingestion of %s interrupted: %w", collection, err)
	}
	return stats, nil
}

// Load reads a bundle from a file path or an http(s) URL
func (c *Client) Load(ctx context.Context, source string) (*Bundle, error) {
	var (
		body io.ReadCloser
		err  error
	)
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		body, err = c.fetch(ctx, source)
	} else {
		body, err = os.Open(source)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open bundle %s: %w", source, err)
	}
	defer func() {
		if closeErr := body.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("Failed to close bundle")
		}
	}()

	var bundle Bundle
	if err := json.NewDecoder(body).Decode(&bundle); err != nil {
		return nil, fmt.Errorf("failed to parse bundle %s: %w", source, err)
	}
	return &bundle, nil
}

func (c *Client) fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("bundle server returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
