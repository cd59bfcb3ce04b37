package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"stealthcompany.com/archaeoseeker/internal/browse"
	"stealthcompany.com/archaeoseeker/internal/catalog"
	"stealthcompany.com/archaeoseeker/internal/docstore"
)

// HealthResponse represents a health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

// ItemsResponse is one page of the public listing
type ItemsResponse struct {
	Items      []catalog.Item `json:"items"`
	NextCursor string         `json:"nextCursor"`
	HasMore    bool           `json:"hasMore"`
}

// OptionsResponse lists the known values of the item enumerations
type OptionsResponse struct {
	Types   []string `json:"types"`
	Eras    []string `json:"eras"`
	Regions []string `json:"regions"`
}

// HealthHandler provides a health check endpoint
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Services:  map[string]string{"store": s.backend},
	})
}

// ListItemsHandler handles GET /api/items
func (s *Server) ListItemsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := catalog.FilterCriteria{
		SearchTerm: q.Get("q"),
		Type:       q.Get("type"),
		Era:        q.Get("era"),
		Region:     q.Get("region"),
	}
	cursor := q.Get("cursor")

	pageSize := s.pageSize
	if raw := q.Get("pageSize"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, ErrInvalidPageSize)
			return
		}
		pageSize = min(n, maxPageSize)
	}

	page, err := s.catalog.GetItems(r.Context(), filters, pageSize, cursor)
	if err != nil {
		log.Error().Err(err).Str("cursor", cursor).Msg("Failed to list items")
		msg := browse.MsgFetchFailed
		if cursor != "" {
			msg = browse.MsgLoadMoreFailed
		}
		writeError(w, http.StatusInternalServerError, msg)
		return
	}

	writeJSON(w, http.StatusOK, ItemsResponse{
		Items:      page.Items,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore(pageSize),
	})
}

// visibleItem loads a publicly visible item, writing the error response if it
// cannot
func (s *Server) visibleItem(w http.ResponseWriter, r *http.Request) (catalog.Item, bool) {
	id := mux.Vars(r)["id"]
	item, err := s.catalog.GetItem(r.Context(), id)
	if errors.Is(err, docstore.ErrNotFound) || (err == nil && item.Hidden()) {
		writeError(w, http.StatusNotFound, ErrItemNotFound)
		return catalog.Item{}, false
	}
	if err != nil {
		log.Error().Err(err).Str("item_id", id).Msg("Failed to get item")
		writeError(w, http.StatusInternalServerError, browse.MsgFetchFailed)
		return catalog.Item{}, false
	}
	return item, true
}

// GetItemHandler handles GET /api/items/{id}
func (s *Server) GetItemHandler(w http.ResponseWriter, r *http.Request) {
	item, ok := s.visibleItem(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// RelatedItemsHandler handles GET /api/items/{id}/related
func (s *Server) RelatedItemsHandler(w http.ResponseWriter, r *http.Request) {
	item, ok := s.visibleItem(w, r)
	if !ok {
		return
	}

	related, err := browse.RelatedItems(r.Context(), s.catalog, item)
	if err != nil {
		log.Error().Err(err).Str("item_id", item.ID).Msg("Failed to load related items")
		writeError(w, http.StatusInternalServerError, browse.MsgRelatedFailed)
		return
	}
	if related.Items == nil {
		related.Items = []catalog.Item{}
	}
	writeJSON(w, http.StatusOK, related)
}

// MuseumsHandler handles GET /api/museums; hidden museums are left out
func (s *Server) MuseumsHandler(w http.ResponseWriter, r *http.Request) {
	museums, err := s.catalog.GetMuseums(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list museums")
		writeError(w, http.StatusInternalServerError, browse.MsgFetchFailed)
		return
	}

	visible := make([]catalog.Item, 0, len(museums))
	for _, m := range museums {
		if !m.Hidden() {
			visible = append(visible, m)
		}
	}
	writeJSON(w, http.StatusOK, visible)
}

// EducationHandler handles GET /api/education
func (s *Server) EducationHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, browse.Education())
}

// OptionsHandler handles GET /api/options
func (s *Server) OptionsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, OptionsResponse{
		Types:   catalog.ItemTypes,
		Eras:    catalog.Eras,
		Regions: catalog.Regions,
	})
}

// SubmitRequestHandler handles POST /api/requests
func (s *Server) SubmitRequestHandler(w http.ResponseWriter, r *http.Request) {
	var req catalog.AdditionRequest
	if err := decodeJSON(r, &req); err != nil {
		log.Warn().Err(err).Msg("Failed to decode addition request")
		writeError(w, http.StatusBadRequest, ErrInvalidJSON)
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Type) == "" || strings.TrimSpace(req.Location) == "" {
		writeError(w, http.StatusBadRequest, ErrMissingFields)
		return
	}

	id, err := s.catalog.AddRequest(r.Context(), req)
	if err != nil {
		log.Error().Err(err).Msg("Failed to store addition request")
		writeError(w, http.StatusInternalServerError, browse.MsgRequestFailed)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}
