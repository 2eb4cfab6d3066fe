package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

// Location represents a geographical location with latitude and longitude coordinates.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Place is a named location used for delivery origins and destinations.
type Place struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// Checkpoint mirrors the API's checkpoint shape.
type Checkpoint struct {
	ID      string  `json:"id,omitempty"`
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Status  string  `json:"status,omitempty"`
}

// Delivery mirrors the API's delivery shape, only the fields the simulator reads.
type Delivery struct {
	ID          string       `json:"id"`
	OrderID     string       `json:"order_id"`
	Origin      Place        `json:"origin"`
	Destination Place        `json:"destination"`
	Checkpoints []Checkpoint `json:"checkpoints"`
}

// Cities used as route endpoints
var cities = []Place{
	{Name: "London", Lat: 51.5074, Lng: -0.1278},
	{Name: "Cardiff", Lat: 51.4816, Lng: -3.1791},
	{Name: "Paris", Lat: 48.8566, Lng: 2.3522},
	{Name: "Berlin", Lat: 52.5200, Lng: 13.4050},
	{Name: "Madrid", Lat: 40.4168, Lng: -3.7038},
	{Name: "Istanbul", Lat: 41.0082, Lng: 28.9784},
	{Name: "Nicosia", Lat: 35.1856, Lng: 33.3823},
	{Name: "New York", Lat: 40.7128, Lng: -74.0060},
	{Name: "Toronto", Lat: 43.6532, Lng: -79.3832},
	{Name: "Dubai", Lat: 25.2048, Lng: 55.2708},
	{Name: "Mumbai", Lat: 19.0760, Lng: 72.8777},
	{Name: "Singapore", Lat: 1.3521, Lng: 103.8198},
}

var authToken string

func haversineKm(a, b Location) float64 {
	R := 6371.0
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	s := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
	return R * c
}

func lerp(a, b Location, t float64) Location {
	return Location{Lat: a.Lat + (b.Lat-a.Lat)*t, Lng: a.Lng + (b.Lng-a.Lng)*t}
}

func request(method, url string, payload interface{}, out interface{}) error {
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			return err
		}
	}
	req, err := http.NewRequest(method, url, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status %d", method, url, resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func createDriver(apiURL string, index int) (string, error) {
	names := []string{"Alex", "Sam", "Chris", "Dana", "Robin", "Jordan", "Casey", "Morgan"}
	driver := map[string]interface{}{
		"login_id": fmt.Sprintf("sim-driver-%d", index),
		"name":     fmt.Sprintf("%s Courier %d", names[rand.Intn(len(names))], index),
		"phone":    fmt.Sprintf("+44 7700 900%03d", index),
		"status":   "online",
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := request(http.MethodPost, apiURL+"/drivers", driver, &created); err != nil {
		return "", fmt.Errorf("failed to create driver: %w", err)
	}
	log.WithField("driver_id", created.ID).Info("Created driver")
	return created.ID, nil
}

func createDelivery(apiURL, driverID string, index int) (*Delivery, error) {
	origin := cities[rand.Intn(len(cities))]
	var dest Place
	for {
		dest = cities[rand.Intn(len(cities))]
		if dest.Name != origin.Name {
			break
		}
	}

	a := Location{Lat: origin.Lat, Lng: origin.Lng}
	b := Location{Lat: dest.Lat, Lng: dest.Lng}
	checkpoints := make([]Checkpoint, 0, 3)
	for i := 1; i <= 3; i++ {
		point := lerp(a, b, float64(i)/4)
		checkpoints = append(checkpoints, Checkpoint{
			Name:    fmt.Sprintf("Stop %d", i),
			Address: fmt.Sprintf("Waypoint %d on the %s to %s leg", i, origin.Name, dest.Name),
			Lat:     point.Lat,
			Lng:     point.Lng,
		})
	}

	payload := map[string]interface{}{
		"supplier_id":    "sim-supplier",
		"supplier_name":  "Simulated Logistics Ltd",
		"consumer_id":    fmt.Sprintf("sim-consumer-%d", index),
		"driver_id":      driverID,
		"customer_name":  fmt.Sprintf("Customer %d", index),
		"customer_phone": fmt.Sprintf("+44 7700 800%03d", index),
		"origin":         origin,
		"destination":    dest,
		"checkpoints":    checkpoints,
	}

	var delivery Delivery
	if err := request(http.MethodPost, apiURL+"/deliveries", payload, &delivery); err != nil {
		return nil, fmt.Errorf("failed to create delivery: %w", err)
	}
	log.WithFields(log.Fields{
		"delivery_id": delivery.ID,
		"order_id":    delivery.OrderID,
		"origin":      origin.Name,
		"destination": dest.Name,
	}).Info("Created delivery")
	return &delivery, nil
}

// DriverState tracks one simulated driver working through a delivery.
type DriverState struct {
	DriverID  string
	Delivery  *Delivery
	Position  Location
	NextIndex int
	SpeedKmh  float64
	LegStart  Location
	LegOffset float64 // km travelled along the current leg
}

func (s *DriverState) nextCheckpoint() *Checkpoint {
	if s.NextIndex >= len(s.Delivery.Checkpoints) {
		return nil
	}
	return &s.Delivery.Checkpoints[s.NextIndex]
}

func sendLocation(apiURL string, s *DriverState) {
	payload := map[string]float64{"lat": s.Position.Lat, "lng": s.Position.Lng}
	if err := request(http.MethodPost, fmt.Sprintf("%s/drivers/%s/location", apiURL, s.DriverID), payload, nil); err != nil {
		log.WithError(err).Error("Failed to send location")
	}
}

func markCheckpoint(apiURL string, s *DriverState, status string) {
	cp := s.nextCheckpoint()
	if cp == nil {
		return
	}
	payload := map[string]string{"status": status, "notes": "reported by simulator"}
	url := fmt.Sprintf("%s/deliveries/%s/checkpoints/%s", apiURL, s.Delivery.ID, cp.ID)
	if err := request(http.MethodPut, url, payload, nil); err != nil {
		log.WithError(err).Error("Failed to update checkpoint")
		return
	}
	log.WithFields(log.Fields{
		"delivery_id": s.Delivery.ID,
		"checkpoint":  cp.Name,
		"status":      status,
	}).Info("Checkpoint updated")
}

func setStatus(apiURL string, s *DriverState, status string) {
	payload := map[string]string{"status": status}
	url := fmt.Sprintf("%s/deliveries/%s/status", apiURL, s.Delivery.ID)
	if err := request(http.MethodPost, url, payload, nil); err != nil {
		log.WithError(err).Error("Failed to set delivery status")
		return
	}
	log.WithFields(log.Fields{"delivery_id": s.Delivery.ID, "status": status}).Info("Delivery status updated")
}

// step advances the driver toward the next pending checkpoint and fires
// arrival and departure updates on reaching it. Returns true once every
// checkpoint is done and the delivery has been marked delivered.
func step(apiURL string, s *DriverState, tickSec float64) bool {
	cp := s.nextCheckpoint()
	if cp == nil {
		setStatus(apiURL, s, "delivered")
		return true
	}

	target := Location{Lat: cp.Lat, Lng: cp.Lng}
	legLen := haversineKm(s.LegStart, target)
	s.LegOffset += s.SpeedKmh * (tickSec / 3600.0)

	if legLen <= 0 || s.LegOffset >= legLen {
		s.Position = target
		markCheckpoint(apiURL, s, "arrived")
		markCheckpoint(apiURL, s, "departed")
		s.NextIndex++
		s.LegStart = s.Position
		s.LegOffset = 0
		return false
	}

	s.Position = lerp(s.LegStart, target, s.LegOffset/legLen)
	return false
}

func simulateDriver(apiURL string, driverID string, index int, interval time.Duration) {
	for {
		delivery, err := createDelivery(apiURL, driverID, index)
		if err != nil {
			log.WithError(err).Error("Failed to create delivery, retrying later")
			time.Sleep(10 * time.Second)
			continue
		}

		state := &DriverState{
			DriverID: driverID,
			Delivery: delivery,
			Position: Location{Lat: delivery.Origin.Lat, Lng: delivery.Origin.Lng},
			// Compressed time so a cross-country run finishes in minutes
			SpeedKmh: 400 + rand.Float64()*200,
		}
		state.LegStart = state.Position

		setStatus(apiURL, state, "picked_up")
		setStatus(apiURL, state, "departed")

		tick := time.NewTicker(interval)
		for range tick.C {
			done := step(apiURL, state, interval.Seconds())
			sendLocation(apiURL, state)
			if done {
				break
			}
		}
		tick.Stop()
	}
}

func main() {
	// Optional JWT for protected API
	authToken = os.Getenv("SIM_AUTH_TOKEN")

	fleetSize := 5
	if val := os.Getenv("FLEET_SIZE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			fleetSize = n
		}
	}

	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080/api"
	}

	interval := 2 * time.Second
	if v := os.Getenv("SIM_TICK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			interval = time.Duration(n) * time.Second
		}
	}

	log.WithFields(log.Fields{
		"fleet_size": fleetSize,
		"api_url":    apiURL,
		"interval":   interval,
	}).Info("Starting delivery simulation")

	started := 0
	for i := 0; i < fleetSize; i++ {
		driverID, err := createDriver(apiURL, i+1)
		if err != nil {
			log.WithError(err).Error("Failed to create driver")
			continue
		}
		go simulateDriver(apiURL, driverID, i+1, interval)
		started++
	}

	if started == 0 {
		log.Error("No drivers created. Ensure SIM_AUTH_TOKEN is valid and API is reachable. Exiting.")
		return
	}

	log.WithField("drivers", started).Info("Delivery simulation started")
	select {} // Block forever
}
