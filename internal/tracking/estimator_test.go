package tracking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/swiftship/delivery-tracking/internal/models"
)

func TestPlanarEstimator_Estimate(t *testing.T) {
	estimator := PlanarEstimator{}

	t.Run("one degree of latitude", func(t *testing.T) {
		distance, minutes := estimator.Estimate(
			models.Location{Lat: 0, Lng: 0},
			models.Location{Lat: 1, Lng: 0},
		)
		assert.InDelta(t, 111.0, distance, 1e-9)
		assert.Equal(t, 222, minutes)
	})

	t.Run("pythagorean offsets", func(t *testing.T) {
		// 3-4-5 triangle scaled down: hypotenuse 0.05 degrees
		distance, minutes := estimator.Estimate(
			models.Location{Lat: 0, Lng: 0},
			models.Location{Lat: 0.03, Lng: 0.04},
		)
		assert.InDelta(t, 5.55, distance, 1e-9)
		assert.Equal(t, 11, minutes)
	})

	t.Run("zero distance", func(t *testing.T) {
		distance, minutes := estimator.Estimate(
			models.Location{Lat: 51.5, Lng: -0.12},
			models.Location{Lat: 51.5, Lng: -0.12},
		)
		assert.Zero(t, distance)
		assert.Zero(t, minutes)
	})

	t.Run("deterministic for identical inputs", func(t *testing.T) {
		current := models.Location{Lat: 40.7, Lng: -74.0}
		next := models.Location{Lat: 40.8, Lng: -73.9}
		d1, m1 := estimator.Estimate(current, next)
		d2, m2 := estimator.Estimate(current, next)
		assert.Equal(t, d1, d2)
		assert.Equal(t, m1, m2)
	})
}

func TestService_RemainingTime(t *testing.T) {
	t.Run("targets the first pending checkpoint in order, not the nearest", func(t *testing.T) {
		deliveries := new(MockDeliveryCollection)
		service := newTestService(deliveries, new(MockDriverCollection), newRecordingPublisher())

		id := primitive.NewObjectID()
		existing := &models.Delivery{
			ID: id,
			Checkpoints: []models.Checkpoint{
				{ID: "cp-1", Order: 0, Name: "Depot", Status: models.CheckpointDeparted},
				{ID: "cp-2", Order: 1, Name: "Far Hub", Lat: 10, Lng: 10, Status: models.CheckpointPending},
				{ID: "cp-3", Order: 2, Name: "Near Stop", Lat: 0.001, Lng: 0.001, Status: models.CheckpointPending},
			},
		}

		deliveries.On("FindDeliveryByID", mock.Anything, id.Hex()).Return(existing, nil)
		deliveries.On("ReplaceDelivery", mock.Anything, id.Hex(), mock.AnythingOfType("models.Delivery")).Return(nil)

		resp, err := service.RemainingTime(context.Background(), id.Hex(), models.Location{Lat: 0, Lng: 0})
		require.NoError(t, err)
		assert.Equal(t, "Far Hub", resp.NextCheckpoint)
		assert.Greater(t, resp.RemainingTime, 0)
	})

	t.Run("caches the estimate on the record", func(t *testing.T) {
		deliveries := new(MockDeliveryCollection)
		service := newTestService(deliveries, new(MockDriverCollection), newRecordingPublisher())

		id := primitive.NewObjectID()
		existing := &models.Delivery{
			ID: id,
			Checkpoints: []models.Checkpoint{
				{ID: "cp-1", Order: 0, Name: "Hub", Lat: 0.03, Lng: 0.04, Status: models.CheckpointPending},
			},
		}

		var replaced models.Delivery
		deliveries.On("FindDeliveryByID", mock.Anything, id.Hex()).Return(existing, nil)
		deliveries.On("ReplaceDelivery", mock.Anything, id.Hex(), mock.AnythingOfType("models.Delivery")).
			Run(func(args mock.Arguments) {
				replaced = args.Get(2).(models.Delivery)
			}).Return(nil)

		resp, err := service.RemainingTime(context.Background(), id.Hex(), models.Location{Lat: 0, Lng: 0})
		require.NoError(t, err)
		assert.Equal(t, 11, resp.RemainingTime)
		assert.InDelta(t, 5.55, resp.Distance, 1e-9)
		assert.Equal(t, 11, replaced.RemainingTime)
	})

	t.Run("cache write failure still returns the estimate", func(t *testing.T) {
		deliveries := new(MockDeliveryCollection)
		service := newTestService(deliveries, new(MockDriverCollection), newRecordingPublisher())

		id := primitive.NewObjectID()
		existing := &models.Delivery{
			ID: id,
			Checkpoints: []models.Checkpoint{
				{ID: "cp-1", Order: 0, Name: "Hub", Lat: 1, Lng: 0, Status: models.CheckpointPending},
			},
		}

		deliveries.On("FindDeliveryByID", mock.Anything, id.Hex()).Return(existing, nil)
		deliveries.On("ReplaceDelivery", mock.Anything, id.Hex(), mock.AnythingOfType("models.Delivery")).Return(assert.AnError)

		resp, err := service.RemainingTime(context.Background(), id.Hex(), models.Location{Lat: 0, Lng: 0})
		require.NoError(t, err)
		assert.Equal(t, 222, resp.RemainingTime)
	})

	t.Run("all checkpoints completed", func(t *testing.T) {
		deliveries := new(MockDeliveryCollection)
		service := newTestService(deliveries, new(MockDriverCollection), newRecordingPublisher())

		id := primitive.NewObjectID()
		existing := &models.Delivery{
			ID:            id,
			RemainingTime: 17,
			Checkpoints: []models.Checkpoint{
				{ID: "cp-1", Order: 0, Status: models.CheckpointDeparted},
				{ID: "cp-2", Order: 1, Status: models.CheckpointSkipped},
			},
		}

		var replaced models.Delivery
		deliveries.On("FindDeliveryByID", mock.Anything, id.Hex()).Return(existing, nil)
		deliveries.On("ReplaceDelivery", mock.Anything, id.Hex(), mock.AnythingOfType("models.Delivery")).
			Run(func(args mock.Arguments) {
				replaced = args.Get(2).(models.Delivery)
			}).Return(nil)

		// Coordinates are irrelevant once nothing is pending.
		resp, err := service.RemainingTime(context.Background(), id.Hex(), models.Location{Lat: 89, Lng: 179})
		require.NoError(t, err)
		assert.Zero(t, resp.RemainingTime)
		assert.Equal(t, "All checkpoints completed", resp.Message)
		assert.Empty(t, resp.NextCheckpoint)
		assert.Zero(t, replaced.RemainingTime, "stale cached value must be reset")
	})

	t.Run("zero cache is not rewritten", func(t *testing.T) {
		deliveries := new(MockDeliveryCollection)
		service := newTestService(deliveries, new(MockDriverCollection), newRecordingPublisher())

		id := primitive.NewObjectID()
		existing := &models.Delivery{
			ID: id,
			Checkpoints: []models.Checkpoint{
				{ID: "cp-1", Order: 0, Status: models.CheckpointDeparted},
			},
		}

		deliveries.On("FindDeliveryByID", mock.Anything, id.Hex()).Return(existing, nil)

		resp, err := service.RemainingTime(context.Background(), id.Hex(), models.Location{})
		require.NoError(t, err)
		assert.Zero(t, resp.RemainingTime)
		deliveries.AssertNotCalled(t, "ReplaceDelivery", mock.Anything, mock.Anything, mock.Anything)
	})
}
