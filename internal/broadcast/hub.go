package broadcast

import (
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Event names carried over the WebSocket channel.
const (
	EventDeliveryStatusUpdate = "delivery-status-update"
	EventNewAssignment        = "new-delivery-assignment"
	EventEmergencyAlert       = "emergency-alert"
	EventDriverLocation       = "driver-location-update"
	EventShipmentUpdate       = "shipment-update"
	EventCheckpointsUpdated   = "checkpoints_updated"
	EventCheckpointStatus     = "checkpoint_status_changed"
)

// Event is one real-time message fanned out to connected viewers.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// RoomPayload wraps room-scoped data with a type discriminator so a
// tracking view can dispatch on it.
type RoomPayload struct {
	Type       string      `json:"type"`
	DeliveryID string      `json:"deliveryId"`
	Data       interface{} `json:"data"`
}

// Publisher is what the tracking service publishes through. Fan-out is
// at-most-once and in-memory only: a viewer disconnected during an event
// misses it permanently, and late joiners get no replay.
type Publisher interface {
	Publish(event Event)
	PublishRoom(deliveryID string, event Event)
}

type subscription struct {
	client *Client
	room   string
}

type roomMessage struct {
	room string
	data []byte
}

// Hub maintains the set of connected clients and the per-delivery rooms,
// and fans events out to them. All state is owned by the Run loop.
type Hub struct {
	clients    map[*Client]bool
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	join       chan subscription
	leave      chan subscription
	global     chan []byte
	room       chan roomMessage
	done       chan struct{}
}

// NewHub creates a broadcast hub. Call Run in its own goroutine.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan subscription),
		leave:      make(chan subscription),
		global:     make(chan []byte, 64),
		room:       make(chan roomMessage, 64),
		done:       make(chan struct{}),
	}
}

// RoomName returns the broadcast room name for a delivery id.
func RoomName(deliveryID string) string {
	return fmt.Sprintf("shipment-%s", deliveryID)
}

// Run drives the hub event loop until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			h.drop(client)
		case sub := <-h.join:
			if h.rooms[sub.room] == nil {
				h.rooms[sub.room] = make(map[*Client]bool)
			}
			h.rooms[sub.room][sub.client] = true
		case sub := <-h.leave:
			if members, ok := h.rooms[sub.room]; ok {
				delete(members, sub.client)
				if len(members) == 0 {
					delete(h.rooms, sub.room)
				}
			}
		case data := <-h.global:
			for client := range h.clients {
				h.send(client, data)
			}
		case msg := <-h.room:
			for client := range h.rooms[msg.room] {
				h.send(client, msg.data)
			}
		case <-h.done:
			for client := range h.clients {
				h.drop(client)
			}
			return
		}
	}
}

// Stop shuts the hub down and closes every client's send channel.
func (h *Hub) Stop() {
	close(h.done)
}

// Publish broadcasts an event to every connected client.
func (h *Hub) Publish(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.WithError(err).WithField("event", event.Event).Error("Failed to marshal broadcast event")
		return
	}
	select {
	case h.global <- data:
	case <-h.done:
	}
}

// PublishRoom broadcasts an event to clients tracking one delivery.
func (h *Hub) PublishRoom(deliveryID string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.WithError(err).WithField("event", event.Event).Error("Failed to marshal broadcast event")
		return
	}
	select {
	case h.room <- roomMessage{room: RoomName(deliveryID), data: data}:
	case <-h.done:
	}
}

// drop removes a client from the hub and every room it joined.
func (h *Hub) drop(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	for room, members := range h.rooms {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	close(client.send)
}

// send delivers data to one client without blocking the hub loop.
// A client that cannot keep up is dropped rather than slowing everyone.
func (h *Hub) send(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		h.drop(client)
	}
}
