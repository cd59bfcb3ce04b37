// Package admin implements the moderation dashboard: item maintenance,
// request review and the item form.
package admin

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"stealthcompany.com/archaeoseeker/internal/catalog"
	"stealthcompany.com/archaeoseeker/internal/docstore"
	"stealthcompany.com/archaeoseeker/internal/metrics"
)

// Tab is a dashboard tab
type Tab string

const (
	TabItems    Tab = "items"
	TabRequests Tab = "requests"
)

// ErrBusy is returned when an action of the same kind is already running
var ErrBusy = errors.New("another action of this kind is in progress")

// User-facing messages
const (
	MsgDashboardFailed = "Failed to fetch data for the dashboard."
	MsgDeleteFailed    = "Could not delete the item. Please try again."
	MsgDenyFailed      = "Could not deny the request. Please try again."
	MsgToggleFailed    = "Could not update item visibility. Please try again."
	MsgMuseumsFailed   = "Could not load list of museums."
	MsgUpdateFailed    = "Failed to update item. Please try again."
	MsgApproveFailed   = "Failed to approve item. Please try again."
	MsgAddFailed       = "Failed to add item. Please try again."
)

const (
	// backfillLockTTL bounds how long a crashed backfill blocks the next one
	backfillLockTTL = 5 * time.Minute
	// backfillConcurrency caps parallel visibility patches
	backfillConcurrency = 16
)

// Catalog is the part of the catalog the dashboard works with
type Catalog interface {
	GetAllItems(ctx context.Context) ([]catalog.Item, error)
	GetItem(ctx context.Context, id string) (catalog.Item, error)
	AddItem(ctx context.Context, item catalog.Item) (string, error)
	UpdateItem(ctx context.Context, id string, fields map[string]any) error
	DeleteItem(ctx context.Context, id string) error
	GetMuseums(ctx context.Context) ([]catalog.Item, error)
	FindItemBySourceRequest(ctx context.Context, requestID string) (*catalog.Item, error)
	GetRequests(ctx context.Context) ([]catalog.AdditionRequest, error)
	DeleteRequest(ctx context.Context, id string) error
}

// Dashboard holds the moderation state shared by all administrator actions
type Dashboard struct {
	catalog Catalog
	locker  docstore.Locker
	owner   string

	mu         sync.Mutex
	tab        Tab
	items      []catalog.Item
	requests   []catalog.AdditionRequest
	deletingID string
	denyingID  string
}

// NewDashboard creates a dashboard on the items tab. A nil locker runs the
// backfill without a store lock.
func NewDashboard(cat Catalog, locker docstore.Locker) *Dashboard {
	return &Dashboard{
		catalog: cat,
		locker:  locker,
		owner:   "dashboard-" + uuid.NewString(),
		tab:     TabItems,
	}
}

// Tab returns the active tab
func (d *Dashboard) Tab() Tab {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tab
}

// Items returns the last fetched items
func (d *Dashboard) Items() []catalog.Item {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.items)
}

// Requests returns the last fetched requests
func (d *Dashboard) Requests() []catalog.AdditionRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.requests)
}

// Activate switches tab and fetches its data
func (d *Dashboard) Activate(ctx context.Context, tab Tab) error {
	switch tab {
	case TabItems:
		_, err := d.LoadItems(ctx)
		return err
	case TabRequests:
		_, err := d.LoadRequests(ctx)
		return err
	default:
		return fmt.Errorf("unknown tab %q", tab)
	}
}

// LoadItems activates the items tab: it backfills the visibility flag and
// returns every item.
func (d *Dashboard) LoadItems(ctx context.Context) ([]catalog.Item, error) {
	d.mu.Lock()
	d.tab = TabItems
	d.mu.Unlock()

	items, _, err := d.Backfill(ctx)
	if err != nil {
		return nil, catalog.NewUserError(MsgDashboardFailed, err)
	}

	d.mu.Lock()
	d.items = items
	d.mu.Unlock()
	return slices.Clone(items), nil
}

// LoadRequests activates the requests tab and returns the pending requests
func (d *Dashboard) LoadRequests(ctx context.Context) ([]catalog.AdditionRequest, error) {
	d.mu.Lock()
	d.tab = TabRequests
	d.mu.Unlock()

	requests, err := d.catalog.GetRequests(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch requests for the dashboard")
		return nil, catalog.NewUserError(MsgDashboardFailed, err)
	}

	d.mu.Lock()
	d.requests = requests
	d.mu.Unlock()
	return slices.Clone(requests), nil
}

// Backfill sets isDisabled=false on every item that lacks it, then returns
// the refreshed item list. Patches run concurrently; any failure aborts the
// pass, and already patched items are skipped next time. When another
// process holds the maintenance lock the items are returned unpatched.
func (d *Dashboard) Backfill(ctx context.Context) (items []catalog.Item, patched int, err error) {
	items, err = d.catalog.GetAllItems(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch items for the dashboard")
		return nil, 0, err
	}

	var missing []string
	for _, item := range items {
		if item.IsDisabled == nil {
			missing = append(missing, item.ID)
		}
	}
	if len(missing) == 0 {
		return items, 0, nil
	}

	if d.locker != nil {
		if err := d.locker.Lock(ctx, catalog.MaintenanceLock, d.owner, backfillLockTTL); err != nil {
			if errors.Is(err, docstore.ErrLocked) {
				log.Info().Int("missing", len(missing)).Msg("Visibility backfill already running elsewhere, skipping")
				return items, 0, nil
			}
			return nil, 0, fmt.Errorf("failed to take backfill lock: %w", err)
		}
		defer func() {
			if err := d.locker.Unlock(context.WithoutCancel(ctx), catalog.MaintenanceLock); err != nil {
				log.Warn().Err(err).Msg("Failed to release backfill lock")
			}
		}()
	}

	log.Info().Int("count", len(missing)).Msg("Backfilling item visibility")
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(backfillConcurrency)
	for _, id := range missing {
		g.Go(func() error {
			return d.catalog.UpdateItem(gctx, id, map[string]any{"isDisabled": false})
		})
	}
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Visibility backfill failed")
		return nil, 0, fmt.Errorf("visibility backfill: %w", err)
	}
	metrics.RecordBackfill(len(missing))

	items, err = d.catalog.GetAllItems(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to refetch items after backfill")
		return nil, len(missing), err
	}
	return items, len(missing), nil
}

// guard marks id busy in slot, refusing when another id is in flight
func (d *Dashboard) guard(slot *string, id string) (release func(), err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if *slot != "" {
		return nil, fmt.Errorf("%w: %s", ErrBusy, *slot)
	}
	*slot = id
	return func() {
		d.mu.Lock()
		*slot = ""
		d.mu.Unlock()
	}, nil
}

// DeleteItem removes an item. One delete runs at a time.
func (d *Dashboard) DeleteItem(ctx context.Context, id string) error {
	release, err := d.guard(&d.deletingID, id)
	if err != nil {
		return err
	}
	defer release()

	if err := d.catalog.DeleteItem(ctx, id); err != nil {
		log.Error().Err(err).Str("item_id", id).Msg("Failed to delete item")
		return catalog.NewUserError(MsgDeleteFailed, err)
	}

	d.mu.Lock()
	d.items = slices.DeleteFunc(d.items, func(item catalog.Item) bool { return item.ID == id })
	d.mu.Unlock()
	return nil
}

// DenyRequest deletes a pending request. One deny runs at a time.
func (d *Dashboard) DenyRequest(ctx context.Context, id string) error {
	release, err := d.guard(&d.denyingID, id)
	if err != nil {
		return err
	}
	defer release()

	if err := d.catalog.DeleteRequest(ctx, id); err != nil {
		log.Error().Err(err).Str("request_id", id).Msg("Failed to deny request")
		return catalog.NewUserError(MsgDenyFailed, err)
	}

	d.mu.Lock()
	d.requests = slices.DeleteFunc(d.requests, func(req catalog.AdditionRequest) bool { return req.ID == id })
	d.mu.Unlock()
	return nil
}

// ToggleVisibility flips isDisabled on an item and returns the updated item
func (d *Dashboard) ToggleVisibility(ctx context.Context, id string) (catalog.Item, error) {
	item, err := d.catalog.GetItem(ctx, id)
	if err != nil {
		log.Error().Err(err).Str("item_id", id).Msg("Failed to read item for visibility toggle")
		return catalog.Item{}, catalog.NewUserError(MsgToggleFailed, err)
	}

	hidden := !item.Hidden()
	if err := d.catalog.UpdateItem(ctx, id, map[string]any{"isDisabled": hidden}); err != nil {
		log.Error().Err(err).Str("item_id", id).Msg("Failed to update item visibility")
		return catalog.Item{}, catalog.NewUserError(MsgToggleFailed, err)
	}
	item.IsDisabled = catalog.Bool(hidden)

	d.mu.Lock()
	for i := range d.items {
		if d.items[i].ID == id {
			d.items[i].IsDisabled = catalog.Bool(hidden)
		}
	}
	d.mu.Unlock()

	log.Info().Str("item_id", id).Bool("hidden", hidden).Msg("Item visibility toggled")
	return item, nil
}

// Museums lists the museums an artifact can be linked to
func (d *Dashboard) Museums(ctx context.Context) ([]catalog.Item, error) {
	museums, err := d.catalog.GetMuseums(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load museums")
		return nil, catalog.NewUserError(MsgMuseumsFailed, err)
	}
	return museums, nil
}
