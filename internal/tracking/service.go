package tracking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/swiftship/delivery-tracking/internal/broadcast"
	"github.com/swiftship/delivery-tracking/internal/db"
	"github.com/swiftship/delivery-tracking/internal/geo"
	"github.com/swiftship/delivery-tracking/internal/models"
)

// Service owns the delivery lifecycle: record CRUD, status transitions,
// checkpoint updates, ETA recomputation and the broadcast fan-out that
// keeps supplier, driver and consumer views consistent.
type Service struct {
	deliveries db.DeliveryCollection
	drivers    db.DriverCollection
	publisher  broadcast.Publisher
	estimator  Estimator
	router     geo.Directions
}

// NewService wires the tracking service over its collaborators.
func NewService(deliveries db.DeliveryCollection, drivers db.DriverCollection, publisher broadcast.Publisher, estimator Estimator, router geo.Directions) *Service {
	return &Service{
		deliveries: deliveries,
		drivers:    drivers,
		publisher:  publisher,
		estimator:  estimator,
		router:     router,
	}
}

// generateOrderID produces a collision-resistant human-readable order id.
func generateOrderID() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "ORD-" + id[:10]
}

// normalizeCheckpoints assigns order = array index, defaults status to
// pending and fills in missing checkpoint ids.
func normalizeCheckpoints(checkpoints []models.Checkpoint) ([]models.Checkpoint, error) {
	out := make([]models.Checkpoint, len(checkpoints))
	for i, cp := range checkpoints {
		cp.Order = i
		if cp.ID == "" {
			cp.ID = uuid.NewString()
		}
		if cp.Status == "" {
			cp.Status = models.CheckpointPending
		}
		if !models.IsValidCheckpointStatus(cp.Status) {
			return nil, fmt.Errorf("checkpoint %q has status %q: %w", cp.ID, cp.Status, ErrValidation)
		}
		out[i] = cp
	}
	return out, nil
}

// CreateDelivery persists a new delivery with a generated order id when
// absent, default status pending and a single-entry seeded history.
func (s *Service) CreateDelivery(ctx context.Context, req models.CreateDeliveryRequest) (*models.Delivery, error) {
	if req.SupplierID == "" || req.ConsumerID == "" || req.CustomerName == "" {
		return nil, fmt.Errorf("supplier_id, consumer_id and customer_name are required: %w", ErrValidation)
	}

	checkpoints, err := normalizeCheckpoints(req.Checkpoints)
	if err != nil {
		return nil, err
	}

	orderID := req.OrderID
	if orderID == "" {
		orderID = generateOrderID()
	}

	now := time.Now()
	delivery := models.Delivery{
		ID:            primitive.NewObjectID(),
		OrderID:       orderID,
		SupplierID:    req.SupplierID,
		SupplierName:  req.SupplierName,
		ConsumerID:    req.ConsumerID,
		DriverID:      req.DriverID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Origin:        req.Origin,
		Destination:   req.Destination,
		Checkpoints:   checkpoints,
		CurrentStatus: models.DeliveryPending,
		StatusHistory: []models.StatusEntry{{
			Status:    models.DeliveryPending,
			Timestamp: now,
			UpdatedBy: req.SupplierID,
		}},
		TotalDistance:     req.TotalDistance,
		EstimatedDelivery: req.EstimatedDelivery,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if delivery.TotalDistance == 0 {
		delivery.TotalDistance = s.routeDistance(ctx, &delivery)
	}
	if delivery.EstimatedDelivery.IsZero() {
		delivery.EstimatedDelivery = now.Add(time.Duration(delivery.TotalDistance*2) * time.Minute)
	}

	if err := s.deliveries.InsertDelivery(ctx, delivery); err != nil {
		return nil, err
	}

	if delivery.DriverID != "" {
		s.assignDriver(ctx, &delivery)
	}
	return &delivery, nil
}

// routeDistance estimates the planned route length at creation time via
// the directions provider. A provider failure only costs the cached
// distance, never the create.
func (s *Service) routeDistance(ctx context.Context, delivery *models.Delivery) float64 {
	if s.router == nil {
		return 0
	}
	points := make([]models.Location, 0, len(delivery.Checkpoints)+2)
	points = append(points, models.Location{Lat: delivery.Origin.Lat, Lng: delivery.Origin.Lng})
	for _, cp := range delivery.Checkpoints {
		points = append(points, models.Location{Lat: cp.Lat, Lng: cp.Lng})
	}
	points = append(points, models.Location{Lat: delivery.Destination.Lat, Lng: delivery.Destination.Lng})

	route, err := s.router.Route(ctx, points)
	if err != nil {
		log.WithError(err).WithField("order_id", delivery.OrderID).Warn("Directions provider failed, leaving total distance unset")
		return 0
	}
	return route.DistanceKm
}

// assignDriver marks the driver busy and announces the new assignment.
func (s *Service) assignDriver(ctx context.Context, delivery *models.Delivery) {
	if err := s.drivers.AssignShipment(ctx, delivery.DriverID, delivery.ID.Hex()); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"delivery_id": delivery.ID.Hex(),
			"driver_id":   delivery.DriverID,
		}).Error("Failed to assign shipment to driver")
		return
	}
	s.publish(broadcast.Event{
		Event: broadcast.EventNewAssignment,
		Data: map[string]interface{}{
			"deliveryId": delivery.ID.Hex(),
			"orderId":    delivery.OrderID,
			"driverId":   delivery.DriverID,
			"origin":     delivery.Origin,
			"destination": delivery.Destination,
		},
	})
}

// ListDeliveries returns deliveries newest-first.
func (s *Service) ListDeliveries(ctx context.Context, filter bson.M) ([]models.Delivery, error) {
	return s.deliveries.FindDeliveries(ctx, filter)
}

// GetDelivery fetches one delivery by id.
func (s *Service) GetDelivery(ctx context.Context, id string) (*models.Delivery, error) {
	return s.deliveries.FindDeliveryByID(ctx, id)
}

// UpdateDelivery merge-patches the supplied fields onto the record,
// bumps updated_at and broadcasts a generic shipment update.
func (s *Service) UpdateDelivery(ctx context.Context, id string, req models.UpdateDeliveryRequest) (*models.Delivery, error) {
	delivery, err := s.deliveries.FindDeliveryByID(ctx, id)
	if err != nil {
		return nil, err
	}

	previousDriver := delivery.DriverID
	if req.DriverID != nil {
		delivery.DriverID = *req.DriverID
	}
	if req.CustomerName != nil {
		delivery.CustomerName = *req.CustomerName
	}
	if req.CustomerPhone != nil {
		delivery.CustomerPhone = *req.CustomerPhone
	}
	if req.Origin != nil {
		delivery.Origin = *req.Origin
	}
	if req.Destination != nil {
		delivery.Destination = *req.Destination
	}

	if err := s.deliveries.ReplaceDelivery(ctx, id, *delivery); err != nil {
		return nil, err
	}

	if delivery.DriverID != previousDriver {
		// Release the old driver first so their GPS fixes stop flowing
		// into this delivery's room.
		if previousDriver != "" {
			if err := s.drivers.ClearShipment(ctx, previousDriver); err != nil {
				log.WithError(err).WithFields(log.Fields{
					"delivery_id": id,
					"driver_id":   previousDriver,
				}).Error("Failed to release previous driver after reassignment")
			}
		}
		if delivery.DriverID != "" {
			s.assignDriver(ctx, delivery)
		}
	}

	s.publishRoom(id, broadcast.Event{
		Event: broadcast.EventShipmentUpdate,
		Data: broadcast.RoomPayload{
			Type:       "update",
			DeliveryID: id,
			Data:       delivery,
		},
	})
	return delivery, nil
}

// DeleteDelivery removes the record and releases the assigned driver so
// no driver keeps pointing at a shipment that no longer exists.
func (s *Service) DeleteDelivery(ctx context.Context, id string) error {
	delivery, err := s.deliveries.FindDeliveryByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.deliveries.DeleteDelivery(ctx, id); err != nil {
		return err
	}

	if delivery.DriverID != "" {
		if err := s.drivers.ClearShipment(ctx, delivery.DriverID); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"delivery_id": id,
				"driver_id":   delivery.DriverID,
			}).Error("Failed to release driver after delivery removal")
		}
	}
	return nil
}

// CreateDriver registers a new driver.
func (s *Service) CreateDriver(ctx context.Context, driver models.Driver) (*models.Driver, error) {
	if driver.Name == "" || driver.LoginID == "" {
		return nil, fmt.Errorf("name and login_id are required: %w", ErrValidation)
	}
	driver.ID = primitive.NewObjectID()
	if driver.Status == "" {
		driver.Status = models.DriverOffline
	}
	if !models.IsValidDriverStatus(driver.Status) {
		return nil, fmt.Errorf("driver status %q: %w", driver.Status, ErrValidation)
	}
	if err := s.drivers.InsertDriver(ctx, driver); err != nil {
		return nil, err
	}
	return &driver, nil
}

// ListDrivers returns all registered drivers.
func (s *Service) ListDrivers(ctx context.Context) ([]models.Driver, error) {
	return s.drivers.FindDrivers(ctx, bson.M{})
}

// GetDriver fetches one driver by id.
func (s *Service) GetDriver(ctx context.Context, id string) (*models.Driver, error) {
	return s.drivers.FindDriverByID(ctx, id)
}

// publish fans an event out globally. The mutation is already persisted,
// so a broadcast failure is logged and swallowed.
func (s *Service) publish(event broadcast.Event) {
	if s.publisher == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.WithField("event", event.Event).Errorf("Broadcast publish panicked: %v", r)
		}
	}()
	s.publisher.Publish(event)
}

// publishRoom fans an event out to one delivery's room.
func (s *Service) publishRoom(deliveryID string, event broadcast.Event) {
	if s.publisher == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.WithField("event", event.Event).Errorf("Broadcast publish panicked: %v", r)
		}
	}()
	s.publisher.PublishRoom(deliveryID, event)
}
