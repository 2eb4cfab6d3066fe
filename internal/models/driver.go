package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DriverStatus mirrors a driver's presence, not any delivery's status.
type DriverStatus string

const (
	DriverOnline  DriverStatus = "online"
	DriverOffline DriverStatus = "offline"
	DriverBusy    DriverStatus = "busy"
)

// IsValidDriverStatus checks if a driver status belongs to the canonical set.
func IsValidDriverStatus(status DriverStatus) bool {
	switch status {
	case DriverOnline, DriverOffline, DriverBusy:
		return true
	default:
		return false
	}
}

// DriverLocation is a driver's last reported GPS fix. One per driver,
// most-recent-write-wins, independent of any specific delivery.
type DriverLocation struct {
	Lat       float64   `bson:"lat" json:"lat"`
	Lng       float64   `bson:"lng" json:"lng"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// DriverStats holds aggregate counters updated by the completion path.
type DriverStats struct {
	TotalDeliveries  int     `bson:"total_deliveries" json:"total_deliveries"`
	WeeklyDeliveries int     `bson:"weekly_deliveries" json:"weekly_deliveries"`
	Rating           float64 `bson:"rating" json:"rating"`
	OnTimeRate       float64 `bson:"on_time_rate" json:"on_time_rate"`
}

// Driver represents a delivery driver.
type Driver struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	LoginID           string             `bson:"login_id" json:"login_id"`
	Name              string             `bson:"name" json:"name"`
	Phone             string             `bson:"phone" json:"phone"`
	Status            DriverStatus       `bson:"status" json:"status"`
	CurrentLocation   *DriverLocation    `bson:"current_location,omitempty" json:"current_location,omitempty"`
	CurrentShipmentID string             `bson:"current_shipment_id" json:"current_shipment_id"`
	Stats             DriverStats        `bson:"stats" json:"stats"`
	CreatedAt         time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time          `bson:"updated_at" json:"updated_at"`
}

// LocationUpdateRequest carries a GPS fix from the driver app.
type LocationUpdateRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// LocationUpdateResponse is returned by the driver location endpoint.
type LocationUpdateResponse struct {
	Success  bool           `json:"success"`
	Location DriverLocation `json:"location"`
}

// EmergencyRequest carries a driver-triggered distress signal.
type EmergencyRequest struct {
	Message string   `json:"message"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}
