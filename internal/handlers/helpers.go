package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/swiftship/delivery-tracking/internal/db"
	"github.com/swiftship/delivery-tracking/internal/geo"
	"github.com/swiftship/delivery-tracking/internal/tracking"
)

// writeJSON writes a JSON response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			log.WithError(err).Error("Failed to encode response body")
		}
	}
}

// writeError maps an error to the HTTP taxonomy and writes a JSON error
// body. Unexpected errors are logged and surfaced as a generic 500.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, tracking.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, geo.ErrUpstream):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "upstream service error"})
	default:
		log.WithError(err).Error("Unhandled request error")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

// decodeBody unmarshals a JSON request body into v.
func decodeBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
