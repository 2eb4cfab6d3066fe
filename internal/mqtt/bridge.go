// Package mqtt bridges driver-app GPS publishes into the tracking
// service. The driver app fires location fixes at drivers/{id}/location
// and never waits for processing; a dropped fix is simply superseded by
// the next one.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/swiftship/delivery-tracking/internal/tracking"
)

const locationTopic = "drivers/+/location"

type locationFix struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Bridge subscribes to the driver location topic and feeds fixes into
// the same path the REST location endpoint uses.
type Bridge struct {
	client  paho.Client
	service *tracking.Service
}

// NewBridge connects to the broker and subscribes to driver locations.
func NewBridge(brokerURL string, service *tracking.Service) (*Bridge, error) {
	opts := paho.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID("delivery-tracking-bridge").
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)

	bridge := &Bridge{service: service}
	bridge.client = paho.NewClient(opts)

	token := bridge.client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}

	if token := bridge.client.Subscribe(locationTopic, 0, bridge.onLocation); token.Wait() && token.Error() != nil {
		bridge.client.Disconnect(0)
		return nil, fmt.Errorf("mqtt subscribe: %w", token.Error())
	}

	log.WithField("topic", locationTopic).Info("MQTT location bridge connected")
	return bridge, nil
}

// onLocation handles one published fix. Errors are logged, never
// surfaced back to the publisher.
func (b *Bridge) onLocation(_ paho.Client, msg paho.Message) {
	parts := strings.Split(msg.Topic(), "/")
	if len(parts) != 3 {
		log.WithField("topic", msg.Topic()).Warn("Ignoring location publish on unexpected topic")
		return
	}
	driverID := parts[1]

	var fix locationFix
	if err := json.Unmarshal(msg.Payload(), &fix); err != nil {
		log.WithError(err).WithField("driver_id", driverID).Warn("Ignoring malformed location payload")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := b.service.UpdateDriverLocation(ctx, driverID, fix.Lat, fix.Lng); err != nil {
		log.WithError(err).WithField("driver_id", driverID).Error("Failed to apply MQTT location update")
	}
}

// Close disconnects from the broker.
func (b *Bridge) Close() {
	b.client.Disconnect(250)
}
