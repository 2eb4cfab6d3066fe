// Package geo holds the contracts for the external geography
// collaborators (geocoding and routing/directions) plus the local
// straight-line routing stub used when no real provider is configured.
package geo

import (
	"context"
	"errors"

	"github.com/swiftship/delivery-tracking/internal/models"
)

// ErrUpstream is returned when an external geo provider fails.
var ErrUpstream = errors.New("upstream service error")

// GeocodeResult is the resolved position for a free-text address.
type GeocodeResult struct {
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	FormattedAddress string  `json:"formatted_address"`
}

// Geocoder resolves free-text addresses to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*GeocodeResult, error)
}

// Route is a planned path through a sequence of coordinates.
type Route struct {
	Polyline        []models.Location `json:"polyline"`
	DistanceKm      float64           `json:"distance_km"`
	DurationMinutes int               `json:"duration_minutes"`
}

// Directions plans a route through ordered coordinate pairs.
type Directions interface {
	Route(ctx context.Context, points []models.Location) (*Route, error)
}
