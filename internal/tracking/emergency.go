package tracking

import (
	"context"
	"time"

	"github.com/swiftship/delivery-tracking/internal/broadcast"
	"github.com/swiftship/delivery-tracking/internal/models"
)

// Emergency broadcasts a driver-triggered distress signal to every
// connected dashboard, independent of any specific delivery. The fix in
// the request wins over the stored location; either may be absent.
func (s *Service) Emergency(ctx context.Context, driverID string, req models.EmergencyRequest) error {
	driver, err := s.drivers.FindDriverByID(ctx, driverID)
	if err != nil {
		return err
	}

	var location *models.Location
	switch {
	case req.Lat != nil && req.Lng != nil:
		location = &models.Location{Lat: *req.Lat, Lng: *req.Lng}
	case driver.CurrentLocation != nil:
		location = &models.Location{Lat: driver.CurrentLocation.Lat, Lng: driver.CurrentLocation.Lng}
	}

	s.publish(broadcast.Event{
		Event: broadcast.EventEmergencyAlert,
		Data: map[string]interface{}{
			"driverId":   driverID,
			"driverName": driver.Name,
			"location":   location,
			"message":    req.Message,
			"severity":   "critical",
			"timestamp":  time.Now(),
		},
	})
	return nil
}
