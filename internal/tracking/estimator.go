package tracking

import (
	"context"
	"math"

	log "github.com/sirupsen/logrus"

	"github.com/swiftship/delivery-tracking/internal/models"
)

// Estimator derives the minutes to a next stop from the current position.
// The planar default can be swapped for a routing-API implementation
// without touching callers.
type Estimator interface {
	Estimate(current, next models.Location) (distanceKm float64, minutes int)
}

// PlanarEstimator approximates distance on a flat plane: one degree is
// taken as 111 km regardless of latitude, and travel speed is a fixed
// 30 km/h. Crude, but cheap, synchronous and free of external routing
// dependencies.
type PlanarEstimator struct{}

// Estimate computes sqrt(dLat² + dLng²) * 111 km and rounds to minutes
// at 30 km/h (two minutes per kilometer).
func (PlanarEstimator) Estimate(current, next models.Location) (float64, int) {
	dLat := next.Lat - current.Lat
	dLng := next.Lng - current.Lng
	distance := math.Sqrt(dLat*dLat+dLng*dLng) * 111
	return distance, int(math.Round(distance * 2))
}

// RemainingTime recomputes the minutes to the first still-pending
// checkpoint in traversal order (not the nearest one) and caches the
// value on the delivery record.
func (s *Service) RemainingTime(ctx context.Context, deliveryID string, current models.Location) (*models.RemainingTimeResponse, error) {
	delivery, err := s.deliveries.FindDeliveryByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}

	next := delivery.NextPendingCheckpoint()
	if next == nil {
		if delivery.RemainingTime != 0 {
			delivery.RemainingTime = 0
			s.cacheRemainingTime(ctx, deliveryID, delivery)
		}
		return &models.RemainingTimeResponse{
			RemainingTime: 0,
			Message:       "All checkpoints completed",
		}, nil
	}

	distance, minutes := s.estimator.Estimate(current, models.Location{Lat: next.Lat, Lng: next.Lng})
	delivery.RemainingTime = minutes
	s.cacheRemainingTime(ctx, deliveryID, delivery)

	return &models.RemainingTimeResponse{
		RemainingTime:  minutes,
		NextCheckpoint: next.Name,
		Distance:       distance,
	}, nil
}

// cacheRemainingTime writes the derived value back onto the record.
// The estimate is still returned if the cache write fails.
func (s *Service) cacheRemainingTime(ctx context.Context, deliveryID string, delivery *models.Delivery) {
	if err := s.deliveries.ReplaceDelivery(ctx, deliveryID, *delivery); err != nil {
		log.WithError(err).WithField("delivery_id", deliveryID).Error("Failed to cache remaining time")
	}
}
