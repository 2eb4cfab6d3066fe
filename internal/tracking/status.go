package tracking

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/swiftship/delivery-tracking/internal/broadcast"
	"github.com/swiftship/delivery-tracking/internal/models"
)

// SetStatus applies a whole-delivery status change. Any status may
// follow any other; there is deliberately no transition table, the
// dispatcher and driver app both need to be able to correct state.
// The history is append-only and never rewritten.
func (s *Service) SetStatus(ctx context.Context, deliveryID string, status models.DeliveryStatus, actor, notes string) (*models.StatusUpdateResponse, error) {
	if !models.IsValidDeliveryStatus(status) {
		return nil, fmt.Errorf("delivery status %q: %w", status, ErrValidation)
	}

	delivery, err := s.deliveries.FindDeliveryByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	delivery.CurrentStatus = status
	delivery.StatusHistory = append(delivery.StatusHistory, models.StatusEntry{
		Status:    status,
		Timestamp: now,
		UpdatedBy: actor,
		Notes:     notes,
	})

	if err := s.deliveries.ReplaceDelivery(ctx, deliveryID, *delivery); err != nil {
		return nil, err
	}

	if status == models.DeliveryDelivered {
		s.onDelivered(ctx, delivery)
	}

	s.publish(broadcast.Event{
		Event: broadcast.EventDeliveryStatusUpdate,
		Data: map[string]interface{}{
			"deliveryId": deliveryID,
			"orderId":    delivery.OrderID,
			"status":     status,
			"updatedBy":  actor,
			"timestamp":  now,
		},
	})
	s.publishRoom(deliveryID, broadcast.Event{
		Event: broadcast.EventShipmentUpdate,
		Data: broadcast.RoomPayload{
			Type:       "status",
			DeliveryID: deliveryID,
			Data: map[string]interface{}{
				"status":    status,
				"updatedBy": actor,
				"notes":     notes,
				"timestamp": now,
			},
		},
	})

	return &models.StatusUpdateResponse{
		Success:       true,
		CurrentStatus: status,
		DeliveryID:    deliveryID,
		Message:       fmt.Sprintf("Delivery status updated to %s", status),
	}, nil
}

// onDelivered runs the completion hook: bump the driver's counters and
// free the driver for reassignment. The delivery is already persisted,
// so a failure here is logged rather than surfaced to the caller.
func (s *Service) onDelivered(ctx context.Context, delivery *models.Delivery) {
	if delivery.DriverID == "" {
		return
	}
	if err := s.drivers.CompleteDelivery(ctx, delivery.DriverID); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"delivery_id": delivery.ID.Hex(),
			"driver_id":   delivery.DriverID,
		}).Error("Failed to record delivery completion on driver")
	}
}
