package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/swiftship/delivery-tracking/internal/models"
)

// DeliveryCollection defines the interface for delivery record operations.
// Mutations are whole-document replace-by-id; concurrent writers against
// the same delivery are last-write-wins.
type DeliveryCollection interface {
	InsertDelivery(ctx context.Context, delivery models.Delivery) error
	FindDeliveries(ctx context.Context, filter bson.M) ([]models.Delivery, error)
	FindDeliveryByID(ctx context.Context, id string) (*models.Delivery, error)
	ReplaceDelivery(ctx context.Context, id string, delivery models.Delivery) error
	DeleteDelivery(ctx context.Context, id string) error
}

// MongoDeliveryCollection implements DeliveryCollection for MongoDB.
type MongoDeliveryCollection struct {
	Collection *mongo.Collection
}

// InsertDelivery inserts a delivery record into the collection.
func (c *MongoDeliveryCollection) InsertDelivery(ctx context.Context, delivery models.Delivery) error {
	_, err := c.Collection.InsertOne(ctx, delivery)
	return err
}

// FindDeliveries queries delivery records, newest first.
func (c *MongoDeliveryCollection) FindDeliveries(ctx context.Context, filter bson.M) ([]models.Delivery, error) {
	if filter == nil {
		filter = bson.M{}
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := c.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var deliveries []models.Delivery
	if err := cursor.All(ctx, &deliveries); err != nil {
		return nil, err
	}
	return deliveries, nil
}

// FindDeliveryByID finds a delivery by its ID.
func (c *MongoDeliveryCollection) FindDeliveryByID(ctx context.Context, id string) (*models.Delivery, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var delivery models.Delivery
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&delivery)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &delivery, nil
}

// ReplaceDelivery replaces a delivery document by its ID, bumping updated_at.
func (c *MongoDeliveryCollection) ReplaceDelivery(ctx context.Context, id string, delivery models.Delivery) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	delivery.ID = objectID
	delivery.UpdatedAt = time.Now()

	result, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": objectID}, delivery)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDelivery deletes a delivery by its ID.
func (c *MongoDeliveryCollection) DeleteDelivery(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	result, err := c.Collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
