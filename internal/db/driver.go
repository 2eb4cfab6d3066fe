package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/swiftship/delivery-tracking/internal/models"
)

// DriverCollection defines the interface for driver record operations.
// Location and stats mutations are field-level atomic updates, so they
// never clobber concurrent writes to other fields.
type DriverCollection interface {
	InsertDriver(ctx context.Context, driver models.Driver) error
	FindDrivers(ctx context.Context, filter bson.M) ([]models.Driver, error)
	FindDriverByID(ctx context.Context, id string) (*models.Driver, error)
	UpdateDriverLocation(ctx context.Context, id string, location models.DriverLocation) error
	AssignShipment(ctx context.Context, id string, shipmentID string) error
	ClearShipment(ctx context.Context, id string) error
	CompleteDelivery(ctx context.Context, id string) error
}

// MongoDriverCollection implements DriverCollection for MongoDB.
type MongoDriverCollection struct {
	Collection *mongo.Collection
}

// InsertDriver inserts a driver record into the collection.
func (c *MongoDriverCollection) InsertDriver(ctx context.Context, driver models.Driver) error {
	driver.CreatedAt = time.Now()
	driver.UpdatedAt = time.Now()
	if driver.Status == "" {
		driver.Status = models.DriverOffline
	}
	_, err := c.Collection.InsertOne(ctx, driver)
	return err
}

// FindDrivers queries driver records from the collection.
func (c *MongoDriverCollection) FindDrivers(ctx context.Context, filter bson.M) ([]models.Driver, error) {
	if filter == nil {
		filter = bson.M{}
	}
	cursor, err := c.Collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var drivers []models.Driver
	if err := cursor.All(ctx, &drivers); err != nil {
		return nil, err
	}
	return drivers, nil
}

// FindDriverByID finds a driver by its ID.
func (c *MongoDriverCollection) FindDriverByID(ctx context.Context, id string) (*models.Driver, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var driver models.Driver
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&driver)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &driver, nil
}

// UpdateDriverLocation sets a driver's current location, most-recent-write-wins.
func (c *MongoDriverCollection) UpdateDriverLocation(ctx context.Context, id string, location models.DriverLocation) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	result, err := c.Collection.UpdateOne(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"current_location": location, "updated_at": time.Now()}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AssignShipment marks a driver busy with the given shipment.
func (c *MongoDriverCollection) AssignShipment(ctx context.Context, id string, shipmentID string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	result, err := c.Collection.UpdateOne(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{
			"current_shipment_id": shipmentID,
			"status":              models.DriverBusy,
			"updated_at":          time.Now(),
		}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearShipment releases a driver from its current shipment without
// touching the stats counters.
func (c *MongoDriverCollection) ClearShipment(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	_, err = c.Collection.UpdateOne(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{
			"current_shipment_id": "",
			"status":              models.DriverOnline,
			"updated_at":          time.Now(),
		}},
	)
	return err
}

// CompleteDelivery runs the on-delivered hook: increments the delivery
// counters and frees the driver for reassignment.
func (c *MongoDriverCollection) CompleteDelivery(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	result, err := c.Collection.UpdateOne(
		ctx,
		bson.M{"_id": objectID},
		bson.M{
			"$inc": bson.M{
				"stats.total_deliveries":  1,
				"stats.weekly_deliveries": 1,
			},
			"$set": bson.M{
				"current_shipment_id": "",
				"status":              models.DriverOnline,
				"updated_at":          time.Now(),
			},
		},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
