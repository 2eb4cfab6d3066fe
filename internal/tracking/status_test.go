package tracking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/swiftship/delivery-tracking/internal/broadcast"
	"github.com/swiftship/delivery-tracking/internal/models"
)

func TestService_SetStatus(t *testing.T) {
	t.Run("appends to history without rewriting it", func(t *testing.T) {
		deliveries := new(MockDeliveryCollection)
		drivers := new(MockDriverCollection)
		publisher := newRecordingPublisher()
		service := newTestService(deliveries, drivers, publisher)

		id := primitive.NewObjectID()
		created := time.Now().Add(-time.Hour)
		existing := &models.Delivery{
			ID:            id,
			OrderID:       "ORD-TEST000001",
			CurrentStatus: models.DeliveryPending,
			StatusHistory: []models.StatusEntry{
				{Status: models.DeliveryPending, Timestamp: created, UpdatedBy: "sup-1"},
			},
		}

		var replaced models.Delivery
		deliveries.On("FindDeliveryByID", mock.Anything, id.Hex()).Return(existing, nil)
		deliveries.On("ReplaceDelivery", mock.Anything, id.Hex(), mock.AnythingOfType("models.Delivery")).
			Run(func(args mock.Arguments) {
				replaced = args.Get(2).(models.Delivery)
			}).Return(nil)

		resp, err := service.SetStatus(context.Background(), id.Hex(), models.DeliveryPickedUp, "driver-app", "collected from depot")
		require.NoError(t, err)

		assert.True(t, resp.Success)
		assert.Equal(t, models.DeliveryPickedUp, resp.CurrentStatus)
		assert.Equal(t, id.Hex(), resp.DeliveryID)
		assert.Equal(t, "Delivery status updated to picked_up", resp.Message)

		require.Len(t, replaced.StatusHistory, 2)
		assert.Equal(t, models.DeliveryPending, replaced.StatusHistory[0].Status)
		assert.Equal(t, created, replaced.StatusHistory[0].Timestamp)
		assert.Equal(t, models.DeliveryPickedUp, replaced.StatusHistory[1].Status)
		assert.Equal(t, "driver-app", replaced.StatusHistory[1].UpdatedBy)
		assert.Equal(t, "collected from depot", replaced.StatusHistory[1].Notes)
	})

	t.Run("any status may follow any other", func(t *testing.T) {
		deliveries := new(MockDeliveryCollection)
		drivers := new(MockDriverCollection)
		service := newTestService(deliveries, drivers, newRecordingPublisher())

		id := primitive.NewObjectID()
		existing := &models.Delivery{
			ID:            id,
			CurrentStatus: models.DeliveryDelivered,
			StatusHistory: []models.StatusEntry{{Status: models.DeliveryDelivered}},
		}

		deliveries.On("FindDeliveryByID", mock.Anything, id.Hex()).Return(existing, nil)
		deliveries.On("ReplaceDelivery", mock.Anything, id.Hex(), mock.AnythingOfType("models.Delivery")).Return(nil)

		// Rolling back from delivered to departed is a legal correction.
		resp, err := service.SetStatus(context.Background(), id.Hex(), models.DeliveryDeparted, "dispatcher", "marked delivered by mistake")
		require.NoError(t, err)
		assert.Equal(t, models.DeliveryDeparted, resp.CurrentStatus)
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		deliveries := new(MockDeliveryCollection)
		service := newTestService(deliveries, new(MockDriverCollection), newRecordingPublisher())

		_, err := service.SetStatus(context.Background(), "whatever", "vaporized", "x", "")
		assert.ErrorIs(t, err, ErrValidation)
		deliveries.AssertNotCalled(t, "FindDeliveryByID", mock.Anything, mock.Anything)
	})

	t.Run("delivered runs the driver completion hook", func(t *testing.T) {
		deliveries := new(MockDeliveryCollection)
		drivers := new(MockDriverCollection)
		publisher := newRecordingPublisher()
		service := newTestService(deliveries, drivers, publisher)

		id := primitive.NewObjectID()
		existing := &models.Delivery{
			ID:            id,
			DriverID:      "driver-1",
			CurrentStatus: models.DeliveryDeparted,
			StatusHistory: []models.StatusEntry{{Status: models.DeliveryDeparted}},
		}

		deliveries.On("FindDeliveryByID", mock.Anything, id.Hex()).Return(existing, nil)
		deliveries.On("ReplaceDelivery", mock.Anything, id.Hex(), mock.AnythingOfType("models.Delivery")).Return(nil)
		drivers.On("CompleteDelivery", mock.Anything, "driver-1").Return(nil)

		_, err := service.SetStatus(context.Background(), id.Hex(), models.DeliveryDelivered, "driver-app", "")
		require.NoError(t, err)
		drivers.AssertExpectations(t)
	})

	t.Run("completion hook failure does not fail the transition", func(t *testing.T) {
		deliveries := new(MockDeliveryCollection)
		drivers := new(MockDriverCollection)
		service := newTestService(deliveries, drivers, newRecordingPublisher())

		id := primitive.NewObjectID()
		existing := &models.Delivery{
			ID:            id,
			DriverID:      "driver-1",
			StatusHistory: []models.StatusEntry{{Status: models.DeliveryDeparted}},
		}

		deliveries.On("FindDeliveryByID", mock.Anything, id.Hex()).Return(existing, nil)
		deliveries.On("ReplaceDelivery", mock.Anything, id.Hex(), mock.AnythingOfType("models.Delivery")).Return(nil)
		drivers.On("CompleteDelivery", mock.Anything, "driver-1").Return(assert.AnError)

		resp, err := service.SetStatus(context.Background(), id.Hex(), models.DeliveryDelivered, "driver-app", "")
		require.NoError(t, err)
		assert.True(t, resp.Success)
	})

	t.Run("broadcasts globally and into the shipment room", func(t *testing.T) {
		deliveries := new(MockDeliveryCollection)
		drivers := new(MockDriverCollection)
		publisher := newRecordingPublisher()
		service := newTestService(deliveries, drivers, publisher)

		id := primitive.NewObjectID()
		existing := &models.Delivery{
			ID:            id,
			OrderID:       "ORD-TEST000002",
			StatusHistory: []models.StatusEntry{{Status: models.DeliveryPending}},
		}

		deliveries.On("FindDeliveryByID", mock.Anything, id.Hex()).Return(existing, nil)
		deliveries.On("ReplaceDelivery", mock.Anything, id.Hex(), mock.AnythingOfType("models.Delivery")).Return(nil)

		_, err := service.SetStatus(context.Background(), id.Hex(), models.DeliveryAssigned, "dispatcher", "")
		require.NoError(t, err)

		require.Len(t, publisher.global, 1)
		assert.Equal(t, broadcast.EventDeliveryStatusUpdate, publisher.global[0].Event)
		data := publisher.global[0].Data.(map[string]interface{})
		assert.Equal(t, id.Hex(), data["deliveryId"])
		assert.Equal(t, "ORD-TEST000002", data["orderId"])

		roomEvents := publisher.rooms[id.Hex()]
		require.Len(t, roomEvents, 1)
		payload := roomEvents[0].Data.(broadcast.RoomPayload)
		assert.Equal(t, "status", payload.Type)
	})
}
