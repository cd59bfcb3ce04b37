package admin

import "stealthcompany.com/archaeoseeker/internal/catalog"

// FormMode says what saving the item form does
type FormMode interface {
	Kind() string
	isFormMode()
}

// Create adds a new item
type Create struct{}

// Edit updates the item with ID
type Edit struct {
	ID string
}

// ApproveRequest creates an item from a pending request, then deletes the request
type ApproveRequest struct {
	RequestID string
	Prefill   catalog.Item
}

func (Create) Kind() string         { return "create" }
func (Edit) Kind() string           { return "edit" }
func (ApproveRequest) Kind() string { return "approve" }

func (Create) isFormMode()         {}
func (Edit) isFormMode()           {}
func (ApproveRequest) isFormMode() {}

// Form is the item form with its mode and initial values
type Form struct {
	Mode FormMode
	Item catalog.Item
}

// NewCreateForm returns an empty form for a new, visible item
func NewCreateForm() Form {
	return Form{
		Mode: Create{},
		Item: catalog.Item{MuseumIDs: []string{}, IsDisabled: catalog.Bool(false)},
	}
}

// NewEditForm returns a form filled from item. Items stored before
// visibility existed start as visible.
func NewEditForm(item catalog.Item) Form {
	prefill := item
	prefill.MuseumIDs = append([]string{}, item.MuseumIDs...)
	if prefill.IsDisabled == nil {
		prefill.IsDisabled = catalog.Bool(false)
	}
	return Form{Mode: Edit{ID: item.ID}, Item: prefill}
}

// NewApproveForm returns a form filled from a request. Era and region are
// left for the administrator.
func NewApproveForm(req catalog.AdditionRequest) Form {
	prefill := catalog.Item{
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		Location:    req.Location,
		ImageURL:    req.ImageURL,
		MuseumIDs:   []string{},
		IsDisabled:  catalog.Bool(false),
	}
	return Form{
		Mode: ApproveRequest{RequestID: req.ID, Prefill: prefill},
		Item: prefill,
	}
}
