package handlers

import (
	"net/http"
	"strconv"

	"github.com/swiftship/delivery-tracking/internal/middleware"
	"github.com/swiftship/delivery-tracking/internal/models"
	"github.com/swiftship/delivery-tracking/internal/tracking"
)

// DeliveryHandler exposes the delivery lifecycle over REST.
type DeliveryHandler struct {
	service *tracking.Service
}

// NewDeliveryHandler creates a new delivery handler.
func NewDeliveryHandler(service *tracking.Service) *DeliveryHandler {
	return &DeliveryHandler{service: service}
}

// actor resolves who performed a mutation from the request context.
func actor(r *http.Request) string {
	if claims, ok := middleware.GetUserFromContext(r.Context()); ok {
		return claims.Username
	}
	return "system"
}

// List handles GET /api/deliveries, newest first.
func (h *DeliveryHandler) List(w http.ResponseWriter, r *http.Request) {
	deliveries, err := h.service.ListDeliveries(r.Context(), nil)
	if err != nil {
		writeError(w, err)
		return
	}
	if deliveries == nil {
		deliveries = []models.Delivery{}
	}
	writeJSON(w, http.StatusOK, deliveries)
}

// Create handles POST /api/deliveries.
func (h *DeliveryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateDeliveryRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	delivery, err := h.service.CreateDelivery(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, delivery)
}

// Get handles GET /api/deliveries/{id}.
func (h *DeliveryHandler) Get(w http.ResponseWriter, r *http.Request) {
	delivery, err := h.service.GetDelivery(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, delivery)
}

// Update handles PUT /api/deliveries/{id} as a merge-patch.
func (h *DeliveryHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateDeliveryRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	delivery, err := h.service.UpdateDelivery(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, delivery)
}

// Delete handles DELETE /api/deliveries/{id}.
func (h *DeliveryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteDelivery(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// SetStatus handles POST /api/deliveries/{id}/status.
func (h *DeliveryHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req models.StatusUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	resp, err := h.service.SetStatus(r.Context(), r.PathValue("id"), req.Status, actor(r), req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// SetCheckpoints handles POST /api/deliveries/{id}/checkpoints,
// replacing the whole checkpoint list.
func (h *DeliveryHandler) SetCheckpoints(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Checkpoints []models.Checkpoint `json:"checkpoints"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	delivery, err := h.service.SetCheckpoints(r.Context(), r.PathValue("id"), req.Checkpoints)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, delivery)
}

// UpdateCheckpoint handles PUT /api/deliveries/{id}/checkpoints/{cpId}.
func (h *DeliveryHandler) UpdateCheckpoint(w http.ResponseWriter, r *http.Request) {
	var req models.CheckpointUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	delivery, err := h.service.UpdateCheckpoint(r.Context(), r.PathValue("id"), r.PathValue("cpId"), req.Status, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, delivery)
}

// RemainingTime handles GET /api/deliveries/{id}/remaining-time.
func (h *DeliveryHandler) RemainingTime(w http.ResponseWriter, r *http.Request) {
	lat, latErr := strconv.ParseFloat(r.URL.Query().Get("currentLat"), 64)
	lng, lngErr := strconv.ParseFloat(r.URL.Query().Get("currentLng"), 64)
	if latErr != nil || lngErr != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "currentLat and currentLng are required"})
		return
	}

	resp, err := h.service.RemainingTime(r.Context(), r.PathValue("id"), models.Location{Lat: lat, Lng: lng})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
