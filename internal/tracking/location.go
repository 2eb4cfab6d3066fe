package tracking

import (
	"context"
	"time"

	"github.com/swiftship/delivery-tracking/internal/broadcast"
	"github.com/swiftship/delivery-tracking/internal/models"
)

// UpdateDriverLocation persists a driver's GPS fix (most-recent-write-
// wins) and fans it out: globally for dashboard maps, and into the
// driver's active shipment room for consumers tracking that delivery.
// Broadcast happens only after the write, so viewers never see a
// position newer than the store.
func (s *Service) UpdateDriverLocation(ctx context.Context, driverID string, lat, lng float64) (*models.DriverLocation, error) {
	location := models.DriverLocation{
		Lat:       lat,
		Lng:       lng,
		UpdatedAt: time.Now(),
	}

	if err := s.drivers.UpdateDriverLocation(ctx, driverID, location); err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"driverId":  driverID,
		"lat":       lat,
		"lng":       lng,
		"timestamp": location.UpdatedAt,
	}
	s.publish(broadcast.Event{
		Event: broadcast.EventDriverLocation,
		Data:  payload,
	})

	driver, err := s.drivers.FindDriverByID(ctx, driverID)
	if err == nil && driver.CurrentShipmentID != "" {
		s.publishRoom(driver.CurrentShipmentID, broadcast.Event{
			Event: broadcast.EventShipmentUpdate,
			Data: broadcast.RoomPayload{
				Type:       "location",
				DeliveryID: driver.CurrentShipmentID,
				Data:       payload,
			},
		})
	}

	return &location, nil
}
