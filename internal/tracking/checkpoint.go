package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/swiftship/delivery-tracking/internal/broadcast"
	"github.com/swiftship/delivery-tracking/internal/db"
	"github.com/swiftship/delivery-tracking/internal/models"
)

// SetCheckpoints replaces a delivery's entire ordered checkpoint list.
// Order is the array index; status defaults to pending.
func (s *Service) SetCheckpoints(ctx context.Context, deliveryID string, checkpoints []models.Checkpoint) (*models.Delivery, error) {
	delivery, err := s.deliveries.FindDeliveryByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}

	normalized, err := normalizeCheckpoints(checkpoints)
	if err != nil {
		return nil, err
	}
	delivery.Checkpoints = normalized

	if err := s.deliveries.ReplaceDelivery(ctx, deliveryID, *delivery); err != nil {
		return nil, err
	}

	s.publishRoom(deliveryID, broadcast.Event{
		Event: broadcast.EventShipmentUpdate,
		Data: broadcast.RoomPayload{
			Type:       broadcast.EventCheckpointsUpdated,
			DeliveryID: deliveryID,
			Data: map[string]interface{}{
				"checkpoints": delivery.Checkpoints,
				"progress":    delivery.Progress(),
			},
		},
	})
	return delivery, nil
}

// UpdateCheckpoint sets one checkpoint's status and notes. Arrival is
// stamped exactly once: `arrived` is the canonical signal, and a stop
// that jumps straight to `departed` gets its arrival back-filled since
// it cannot have been departed without being reached. Out-of-order
// transitions are permitted; the enumeration is the only guard.
func (s *Service) UpdateCheckpoint(ctx context.Context, deliveryID, checkpointID string, status models.CheckpointStatus, notes string) (*models.Delivery, error) {
	if !models.IsValidCheckpointStatus(status) {
		return nil, fmt.Errorf("checkpoint status %q: %w", status, ErrValidation)
	}

	delivery, err := s.deliveries.FindDeliveryByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}

	checkpoint := delivery.FindCheckpoint(checkpointID)
	if checkpoint == nil {
		return nil, fmt.Errorf("checkpoint %q: %w", checkpointID, db.ErrNotFound)
	}

	checkpoint.Status = status
	if notes != "" {
		checkpoint.Notes = notes
	}
	if (status == models.CheckpointArrived || status == models.CheckpointDeparted) && checkpoint.ActualArrival == nil {
		now := time.Now()
		checkpoint.ActualArrival = &now
	}

	if err := s.deliveries.ReplaceDelivery(ctx, deliveryID, *delivery); err != nil {
		return nil, err
	}

	s.publishRoom(deliveryID, broadcast.Event{
		Event: broadcast.EventShipmentUpdate,
		Data: broadcast.RoomPayload{
			Type:       broadcast.EventCheckpointStatus,
			DeliveryID: deliveryID,
			Data: map[string]interface{}{
				"checkpoint": *checkpoint,
				"progress":   delivery.Progress(),
			},
		},
	})
	return delivery, nil
}
