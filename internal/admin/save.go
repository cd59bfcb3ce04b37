package admin

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"stealthcompany.com/archaeoseeker/internal/catalog"
	"stealthcompany.com/archaeoseeker/internal/metrics"
)

// SaveResult reports what a form save did and which tab to show next
type SaveResult struct {
	ItemID  string `json:"itemId"`
	NextTab Tab    `json:"nextTab"`
	// Recovered is set when an approval found the item of an earlier,
	// interrupted approval and only finished deleting the request.
	Recovered bool `json:"recovered,omitempty"`
}

// Save applies the form values according to mode
func (d *Dashboard) Save(ctx context.Context, mode FormMode, item catalog.Item) (SaveResult, error) {
	if item.IsDisabled == nil {
		item.IsDisabled = catalog.Bool(false)
	}

	switch m := mode.(type) {
	case Edit:
		return d.saveEdit(ctx, m, item)
	case Create:
		return d.saveCreate(ctx, item)
	case ApproveRequest:
		return d.approve(ctx, m, item)
	default:
		return SaveResult{}, fmt.Errorf("unknown form mode %T", mode)
	}
}

func (d *Dashboard) saveEdit(ctx context.Context, m Edit, item catalog.Item) (SaveResult, error) {
	fields, err := catalog.ItemFields(item)
	if err != nil {
		return SaveResult{}, catalog.NewUserError(MsgUpdateFailed, err)
	}
	// cleared optional fields must overwrite the stored values
	if _, ok := fields["museumIds"]; !ok {
		fields["museumIds"] = []string{}
	}
	if _, ok := fields["imageUrl"]; !ok {
		fields["imageUrl"] = ""
	}

	if err := d.catalog.UpdateItem(ctx, m.ID, fields); err != nil {
		log.Error().Err(err).Str("item_id", m.ID).Msg("Failed to update item")
		return SaveResult{}, catalog.NewUserError(MsgUpdateFailed, err)
	}
	d.refreshItems(ctx)
	return SaveResult{ItemID: m.ID, NextTab: TabItems}, nil
}

func (d *Dashboard) saveCreate(ctx context.Context, item catalog.Item) (SaveResult, error) {
	item.ID = ""
	id, err := d.catalog.AddItem(ctx, item)
	if err != nil {
		log.Error().Err(err).Msg("Failed to add item")
		return SaveResult{}, catalog.NewUserError(MsgAddFailed, err)
	}
	d.refreshItems(ctx)
	return SaveResult{ItemID: id, NextTab: TabItems}, nil
}

// approve runs in two phases. Phase one creates the item tagged with the
// request id unless an item with that tag already exists; phase two deletes
// the request. A rerun after a failure between the phases reuses the item.
func (d *Dashboard) approve(ctx context.Context, m ApproveRequest, item catalog.Item) (SaveResult, error) {
	logger := log.With().Str("request_id", m.RequestID).Logger()

	existing, err := d.catalog.FindItemBySourceRequest(ctx, m.RequestID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to look up approved item")
		metrics.RecordApproval("failed")
		return SaveResult{}, catalog.NewUserError(MsgApproveFailed, err)
	}

	result := SaveResult{NextTab: TabRequests}
	if existing != nil {
		result.ItemID = existing.ID
		result.Recovered = true
		logger.Warn().Str("item_id", existing.ID).Msg("Item already created for request, finishing approval")
	} else {
		item.ID = ""
		item.SourceRequestID = m.RequestID
		id, err := d.catalog.AddItem(ctx, item)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to create item from request")
			metrics.RecordApproval("failed")
			return SaveResult{}, catalog.NewUserError(MsgApproveFailed, err)
		}
		result.ItemID = id
	}

	if err := d.catalog.DeleteRequest(ctx, m.RequestID); err != nil {
		logger.Error().Err(err).Str("item_id", result.ItemID).Msg("Item created but request not deleted")
		metrics.RecordApproval("failed")
		return SaveResult{}, catalog.NewUserError(MsgApproveFailed, err)
	}

	if result.Recovered {
		metrics.RecordApproval("recovered")
	} else {
		metrics.RecordApproval("created")
	}
	logger.Info().Str("item_id", result.ItemID).Msg("Request approved")

	if _, err := d.LoadRequests(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to refresh requests after approval")
	}
	return result, nil
}

// refreshItems re-activates the items tab after a save; failures only log
func (d *Dashboard) refreshItems(ctx context.Context) {
	if _, err := d.LoadItems(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to refresh items after save")
	}
}
