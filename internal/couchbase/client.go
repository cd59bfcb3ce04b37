package couchbase

import (
	"context"
	"time"

	"stealthcompany.com/archaeoseeker/internal/docstore"
)

// Client is the Couchbase-backed docstore.Store and docstore.Locker
type Client struct {
	connManager *ConnectionManager
	docManager  *DocumentManager
	locker      *DatabaseLocker
}

var (
	_ docstore.Store  = (*Client)(nil)
	_ docstore.Locker = (*Client)(nil)
)

// NewClient creates a new Couchbase client
func NewClient(cfg Config) (*Client, error) {
	connManager, err := NewConnectionManager(cfg)
	if err != nil {
		return nil, err
	}

	return &Client{
		connManager: connManager,
		docManager:  NewDocumentManager(connManager),
		locker:      NewDatabaseLocker(connManager),
	}, nil
}

// Close closes the Couchbase connection
func (c *Client) Close() error {
	return c.connManager.Close()
}

func (c *Client) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	return c.docManager.Add(ctx, collection, data)
}

func (c *Client) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	return c.docManager.Get(ctx, collection, id)
}

func (c *Client) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	return c.docManager.Update(ctx, collection, id, patch)
}

func (c *Client) Delete(ctx context.Context, collection, id string) error {
	return c.docManager.Delete(ctx, collection, id)
}

func (c *Client) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	return c.docManager.Query(ctx, q)
}

func (c *Client) Lock(ctx context.Context, name, owner string, ttl time.Duration) error {
	return c.locker.Lock(ctx, name, owner, ttl)
}

func (c *Client) Unlock(ctx context.Context, name string) error {
	return c.locker.Unlock(ctx, name)
}
