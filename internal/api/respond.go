package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"stealthcompany.com/archaeoseeker/internal/catalog"
)

// Error message constants
const (
	ErrInvalidJSON      = "Invalid JSON format"
	ErrItemNotFound     = "Item not found"
	ErrRequestNotFound  = "Request not found"
	ErrMissingFields    = "Name, type and location are required"
	ErrInvalidPageSize  = "pageSize must be a positive integer"
	ErrActionInProgress = "Another action is in progress. Please wait."
)

// writeJSON writes v with the given status
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError writes the {"error": message} envelope
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeFailure reports err with its user-facing message when it has one
func writeFailure(w http.ResponseWriter, status int, err error, fallback string) {
	var userErr *catalog.UserError
	if errors.As(err, &userErr) {
		writeError(w, status, userErr.Message)
		return
	}
	writeError(w, status, fallback)
}

// decodeJSON reads the request body into v
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
