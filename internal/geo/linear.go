package geo

import (
	"context"
	"fmt"
	"math"

	"github.com/swiftship/delivery-tracking/internal/models"
)

// LinearRouter is the placeholder directions provider: straight lines
// between the waypoints, interpolated into a polyline, haversine leg
// lengths, fixed 30 km/h travel speed.
type LinearRouter struct {
	// StepsPerLeg controls polyline density between two waypoints.
	StepsPerLeg int
}

// NewLinearRouter returns a router with a reasonable polyline density.
func NewLinearRouter() *LinearRouter {
	return &LinearRouter{StepsPerLeg: 10}
}

// Route interpolates a straight-line path through the given points.
func (r *LinearRouter) Route(ctx context.Context, points []models.Location) (*Route, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("route needs at least two points: %w", ErrUpstream)
	}

	steps := r.StepsPerLeg
	if steps < 1 {
		steps = 1
	}

	route := &Route{Polyline: []models.Location{points[0]}}
	for i := 0; i < len(points)-1; i++ {
		a, b := points[i], points[i+1]
		route.DistanceKm += HaversineKm(a, b)
		for step := 1; step <= steps; step++ {
			t := float64(step) / float64(steps)
			route.Polyline = append(route.Polyline, Lerp(a, b, t))
		}
	}
	route.DurationMinutes = int(math.Round(route.DistanceKm * 2))
	return route, nil
}

// HaversineKm returns the great-circle distance between two locations.
func HaversineKm(a, b models.Location) float64 {
	const earthRadiusKm = 6371.0
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	s := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
	return earthRadiusKm * c
}

// Lerp interpolates linearly between two locations.
func Lerp(a, b models.Location, t float64) models.Location {
	return models.Location{
		Lat: a.Lat + (b.Lat-a.Lat)*t,
		Lng: a.Lng + (b.Lng-a.Lng)*t,
	}
}
