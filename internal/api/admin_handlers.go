package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"stealthcompany.com/archaeoseeker/internal/admin"
	"stealthcompany.com/archaeoseeker/internal/docstore"
)

// AdminItemsHandler handles GET /api/admin/items. Listing the items runs the
// visibility backfill first.
func (s *Server) AdminItemsHandler(w http.ResponseWriter, r *http.Request) {
	items, err := s.dashboard.LoadItems(r.Context())
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, err, admin.MsgDashboardFailed)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// AdminRequestsHandler handles GET /api/admin/requests
func (s *Server) AdminRequestsHandler(w http.ResponseWriter, r *http.Request) {
	requests, err := s.dashboard.LoadRequests(r.Context())
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, err, admin.MsgDashboardFailed)
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

// AdminMuseumsHandler handles GET /api/admin/museums, the museum choices of the item form
func (s *Server) AdminMuseumsHandler(w http.ResponseWriter, r *http.Request) {
	museums, err := s.dashboard.Museums(r.Context())
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, err, admin.MsgMuseumsFailed)
		return
	}
	writeJSON(w, http.StatusOK, museums)
}

// CreateItemHandler handles POST /api/admin/items
func (s *Server) CreateItemHandler(w http.ResponseWriter, r *http.Request) {
	form := admin.NewCreateForm()
	if err := decodeJSON(r, &form.Item); err != nil {
		writeError(w, http.StatusBadRequest, ErrInvalidJSON)
		return
	}
	s.save(w, r, form, admin.MsgAddFailed, http.StatusCreated)
}

// UpdateItemHandler handles PUT /api/admin/items/{id}
func (s *Server) UpdateItemHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	item, err := s.catalog.GetItem(r.Context(), id)
	if errors.Is(err, docstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, ErrItemNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("item_id", id).Msg("Failed to load item for edit")
		writeError(w, http.StatusInternalServerError, admin.MsgUpdateFailed)
		return
	}

	form := admin.NewEditForm(item)
	if err := decodeJSON(r, &form.Item); err != nil {
		writeError(w, http.StatusBadRequest, ErrInvalidJSON)
		return
	}
	s.save(w, r, form, admin.MsgUpdateFailed, http.StatusOK)
}

// ApproveRequestHandler handles POST /api/admin/requests/{id}/approve. The
// body overrides the values prefilled from the request, typically era and
// region. Approving a request whose item was already created only finishes
// removing the request.
func (s *Server) ApproveRequestHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var form admin.Form
	req, err := s.catalog.GetRequest(r.Context(), id)
	switch {
	case err == nil:
		form = admin.NewApproveForm(req)
	case errors.Is(err, docstore.ErrNotFound):
		existing, findErr := s.catalog.FindItemBySourceRequest(r.Context(), id)
		if findErr != nil || existing == nil {
			writeError(w, http.StatusNotFound, ErrRequestNotFound)
			return
		}
		form = admin.Form{Mode: admin.ApproveRequest{RequestID: id}, Item: *existing}
	default:
		log.Error().Err(err).Str("request_id", id).Msg("Failed to load request for approval")
		writeError(w, http.StatusInternalServerError, admin.MsgApproveFailed)
		return
	}

	if err := decodeJSON(r, &form.Item); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, ErrInvalidJSON)
		return
	}
	s.save(w, r, form, admin.MsgApproveFailed, http.StatusOK)
}

func (s *Server) save(w http.ResponseWriter, r *http.Request, form admin.Form, fallback string, status int) {
	result, err := s.dashboard.Save(r.Context(), form.Mode, form.Item)
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, err, fallback)
		return
	}
	log.Info().
		Str("mode", form.Mode.Kind()).
		Str("item_id", result.ItemID).
		Bool("recovered", result.Recovered).
		Msg("Item form saved")
	writeJSON(w, status, result)
}

// DeleteItemHandler handles DELETE /api/admin/items/{id}
func (s *Server) DeleteItemHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.dashboard.DeleteItem(r.Context(), id); err != nil {
		if errors.Is(err, admin.ErrBusy) {
			writeError(w, http.StatusConflict, ErrActionInProgress)
			return
		}
		writeFailure(w, http.StatusInternalServerError, err, admin.MsgDeleteFailed)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DenyRequestHandler handles DELETE /api/admin/requests/{id}
func (s *Server) DenyRequestHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.dashboard.DenyRequest(r.Context(), id); err != nil {
		if errors.Is(err, admin.ErrBusy) {
			writeError(w, http.StatusConflict, ErrActionInProgress)
			return
		}
		writeFailure(w, http.StatusInternalServerError, err, admin.MsgDenyFailed)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleItemHandler handles POST /api/admin/items/{id}/toggle
func (s *Server) ToggleItemHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	item, err := s.dashboard.ToggleVisibility(r.Context(), id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, ErrItemNotFound)
			return
		}
		writeFailure(w, http.StatusInternalServerError, err, admin.MsgToggleFailed)
		return
	}
	writeJSON(w, http.StatusOK, item)
}
