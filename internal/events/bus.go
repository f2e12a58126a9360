package events

import (
	"sync"
	"time"

	"cvite-license-server/internal/database"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventLicenseActivity EventType = "LICENSE_EVENT"
	EventClientChanged   EventType = "CLIENT_CHANGED"
	EventError           EventType = "ERROR"
)

// Event is the envelope pushed to subscribers
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber is a function that handles events
type Subscriber func(Event)

// EventBus manages event publishing and subscriptions
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]Subscriber),
		allSubs:     make([]Subscriber, 0),
	}
}

// Subscribe registers a subscriber for a specific event type
func (eb *EventBus) Subscribe(eventType EventType, subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for all events
func (eb *EventBus) SubscribeAll(subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.allSubs = append(eb.allSubs, subscriber)
}

// PublishEvent sends an event to all subscribers without blocking the caller
func (eb *EventBus) PublishEvent(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if subs, ok := eb.subscribers[event.Type]; ok {
		for _, sub := range subs {
			go sub(event)
		}
	}

	for _, sub := range eb.allSubs {
		go sub(event)
	}
}

// Publish forwards an audit record to the live feed. It satisfies the
// license service's sink so the admin dashboard sees activity as it happens.
func (eb *EventBus) Publish(e database.LicenseEvent) {
	eb.PublishEvent(Event{
		Type:      EventLicenseActivity,
		Timestamp: e.CreatedAt,
		Data: map[string]interface{}{
			"id":        e.ID,
			"client_id": e.ClientID,
			"event":     e.Event,
			"detail":    e.Detail,
			"ip":        e.IP,
		},
	})
}

// PublishClientChanged signals that an admin mutated a client record
func (eb *EventBus) PublishClientChanged(clientID, action string) {
	eb.PublishEvent(Event{
		Type: EventClientChanged,
		Data: map[string]interface{}{
			"client_id": clientID,
			"action":    action,
		},
	})
}

// PublishError publishes an error event
func (eb *EventBus) PublishError(source, message string, err error) {
	data := map[string]interface{}{
		"source":  source,
		"message": message,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	eb.PublishEvent(Event{
		Type: EventError,
		Data: data,
	})
}
