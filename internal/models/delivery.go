package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DeliveryStatus represents the whole-delivery lifecycle status.
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryAssigned  DeliveryStatus = "assigned"
	DeliveryPickedUp  DeliveryStatus = "picked_up"
	DeliveryDeparted  DeliveryStatus = "departed"
	DeliveryDelivered DeliveryStatus = "delivered"
)

// IsValidDeliveryStatus checks if a delivery status belongs to the canonical set.
func IsValidDeliveryStatus(status DeliveryStatus) bool {
	switch status {
	case DeliveryPending, DeliveryAssigned, DeliveryPickedUp, DeliveryDeparted, DeliveryDelivered:
		return true
	default:
		return false
	}
}

// CheckpointStatus represents the status of a single stop within a route.
type CheckpointStatus string

const (
	CheckpointPending  CheckpointStatus = "pending"
	CheckpointArrived  CheckpointStatus = "arrived"
	CheckpointDeparted CheckpointStatus = "departed"
	CheckpointSkipped  CheckpointStatus = "skipped"
)

// IsValidCheckpointStatus checks if a checkpoint status belongs to the canonical set.
func IsValidCheckpointStatus(status CheckpointStatus) bool {
	switch status {
	case CheckpointPending, CheckpointArrived, CheckpointDeparted, CheckpointSkipped:
		return true
	default:
		return false
	}
}

// Checkpoint is one ordered stop within a delivery's route.
type Checkpoint struct {
	ID               string           `bson:"id" json:"id"`
	Order            int              `bson:"order" json:"order"`
	Name             string           `bson:"name" json:"name"`
	Address          string           `bson:"address" json:"address"`
	Lat              float64          `bson:"lat" json:"lat"`
	Lng              float64          `bson:"lng" json:"lng"`
	Status           CheckpointStatus `bson:"status" json:"status"`
	EstimatedArrival time.Time        `bson:"estimated_arrival" json:"estimated_arrival"`
	ActualArrival    *time.Time       `bson:"actual_arrival,omitempty" json:"actual_arrival,omitempty"`
	Notes            string           `bson:"notes" json:"notes"`
}

// StatusEntry is one append-only record in a delivery's status history.
type StatusEntry struct {
	Status    DeliveryStatus `bson:"status" json:"status"`
	Timestamp time.Time      `bson:"timestamp" json:"timestamp"`
	UpdatedBy string         `bson:"updated_by" json:"updated_by"`
	Notes     string         `bson:"notes" json:"notes"`
}

// Delivery represents one shipment tracked end-to-end.
type Delivery struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderID           string             `bson:"order_id" json:"order_id"`
	SupplierID        string             `bson:"supplier_id" json:"supplier_id"`
	SupplierName      string             `bson:"supplier_name" json:"supplier_name"`
	ConsumerID        string             `bson:"consumer_id" json:"consumer_id"`
	DriverID          string             `bson:"driver_id" json:"driver_id"`
	CustomerName      string             `bson:"customer_name" json:"customer_name"`
	CustomerPhone     string             `bson:"customer_phone" json:"customer_phone"`
	Origin            Place              `bson:"origin" json:"origin"`
	Destination       Place              `bson:"destination" json:"destination"`
	Checkpoints       []Checkpoint       `bson:"checkpoints" json:"checkpoints"`
	CurrentStatus     DeliveryStatus     `bson:"current_status" json:"current_status"`
	StatusHistory     []StatusEntry      `bson:"status_history" json:"status_history"`
	RemainingTime     int                `bson:"remaining_time" json:"remaining_time"` // minutes, cache
	TotalDistance     float64            `bson:"total_distance" json:"total_distance"` // km, set at creation
	EstimatedDelivery time.Time          `bson:"estimated_delivery" json:"estimated_delivery"`
	CreatedAt         time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time          `bson:"updated_at" json:"updated_at"`
}

// Progress derives the completion percentage from checkpoint statuses.
// A checkpoint counts as done once it is arrived or departed.
func (d *Delivery) Progress() int {
	if len(d.Checkpoints) == 0 {
		return 0
	}
	done := 0
	for _, cp := range d.Checkpoints {
		if cp.Status == CheckpointArrived || cp.Status == CheckpointDeparted {
			done++
		}
	}
	return int(math.Round(100 * float64(done) / float64(len(d.Checkpoints))))
}

// FindCheckpoint returns the checkpoint with the given id, or nil.
func (d *Delivery) FindCheckpoint(checkpointID string) *Checkpoint {
	for i := range d.Checkpoints {
		if d.Checkpoints[i].ID == checkpointID {
			return &d.Checkpoints[i]
		}
	}
	return nil
}

// NextPendingCheckpoint returns the first checkpoint still pending in
// traversal order, or nil when none remain.
func (d *Delivery) NextPendingCheckpoint() *Checkpoint {
	for i := range d.Checkpoints {
		if d.Checkpoints[i].Status == CheckpointPending {
			return &d.Checkpoints[i]
		}
	}
	return nil
}

// CreateDeliveryRequest carries the fields a supplier submits to create a delivery.
type CreateDeliveryRequest struct {
	OrderID           string       `json:"order_id"`
	SupplierID        string       `json:"supplier_id"`
	SupplierName      string       `json:"supplier_name"`
	ConsumerID        string       `json:"consumer_id"`
	DriverID          string       `json:"driver_id"`
	CustomerName      string       `json:"customer_name"`
	CustomerPhone     string       `json:"customer_phone"`
	Origin            Place        `json:"origin"`
	Destination       Place        `json:"destination"`
	Checkpoints       []Checkpoint `json:"checkpoints"`
	TotalDistance     float64      `json:"total_distance"`
	EstimatedDelivery time.Time    `json:"estimated_delivery"`
}

// UpdateDeliveryRequest is a merge-patch: only non-zero fields are applied.
type UpdateDeliveryRequest struct {
	DriverID      *string `json:"driver_id,omitempty"`
	CustomerName  *string `json:"customer_name,omitempty"`
	CustomerPhone *string `json:"customer_phone,omitempty"`
	Origin        *Place  `json:"origin,omitempty"`
	Destination   *Place  `json:"destination,omitempty"`
}

// StatusUpdateRequest carries a whole-delivery status change.
type StatusUpdateRequest struct {
	Status DeliveryStatus `json:"status"`
	Notes  string         `json:"notes"`
}

// StatusUpdateResponse is returned by the status transition endpoint.
type StatusUpdateResponse struct {
	Success       bool           `json:"success"`
	CurrentStatus DeliveryStatus `json:"currentStatus"`
	DeliveryID    string         `json:"deliveryId"`
	Message       string         `json:"message"`
}

// CheckpointUpdateRequest carries a single-checkpoint status change.
type CheckpointUpdateRequest struct {
	Status CheckpointStatus `json:"status"`
	Notes  string           `json:"notes"`
}

// RemainingTimeResponse is returned by the remaining-time endpoint.
type RemainingTimeResponse struct {
	RemainingTime  int     `json:"remainingTime"`
	NextCheckpoint string  `json:"nextCheckpoint,omitempty"`
	Distance       float64 `json:"distance,omitempty"`
	Message        string  `json:"message,omitempty"`
}
