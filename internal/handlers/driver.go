package handlers

import (
	"net/http"

	"github.com/swiftship/delivery-tracking/internal/models"
	"github.com/swiftship/delivery-tracking/internal/tracking"
)

// DriverHandler exposes driver presence, location and emergency endpoints.
type DriverHandler struct {
	service *tracking.Service
}

// NewDriverHandler creates a new driver handler.
func NewDriverHandler(service *tracking.Service) *DriverHandler {
	return &DriverHandler{service: service}
}

// Create handles POST /api/drivers.
func (h *DriverHandler) Create(w http.ResponseWriter, r *http.Request) {
	var driver models.Driver
	if err := decodeBody(r, &driver); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	created, err := h.service.CreateDriver(r.Context(), driver)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// List handles GET /api/drivers.
func (h *DriverHandler) List(w http.ResponseWriter, r *http.Request) {
	drivers, err := h.service.ListDrivers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if drivers == nil {
		drivers = []models.Driver{}
	}
	writeJSON(w, http.StatusOK, drivers)
}

// Get handles GET /api/drivers/{id}.
func (h *DriverHandler) Get(w http.ResponseWriter, r *http.Request) {
	driver, err := h.service.GetDriver(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, driver)
}

// UpdateLocation handles POST /api/drivers/{id}/location.
func (h *DriverHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req models.LocationUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	location, err := h.service.UpdateDriverLocation(r.Context(), r.PathValue("id"), req.Lat, req.Lng)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.LocationUpdateResponse{
		Success:  true,
		Location: *location,
	})
}

// Emergency handles POST /api/drivers/{id}/emergency.
func (h *DriverHandler) Emergency(w http.ResponseWriter, r *http.Request) {
	var req models.EmergencyRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if err := h.service.Emergency(r.Context(), r.PathValue("id"), req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
