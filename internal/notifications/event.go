// Package notifications delivers realtime events about committed social-graph
// changes to connected clients.
package notifications

import (
	"context"
	"encoding/json"
	"time"
)

// Event type constants prevent typos in event names.
const (
	EventNotificationCreated = "notification_created"
	EventViewInvalidated     = "view_invalidated"
)

// Event is the JSON envelope pushed to subscribers.
type Event struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent stamps an event with the current time.
func NewEvent(eventType string, payload interface{}) Event {
	return Event{Type: eventType, Payload: payload, Timestamp: time.Now().UTC()}
}

// Marshal encodes the event as JSON.
func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers events to one user or to everyone.
type Publisher interface {
	PublishUser(ctx context.Context, userID string, event Event) error
	PublishBroadcast(ctx context.Context, event Event) error
}

// Subscriber streams raw event payloads addressed to one user, plus
// broadcasts, until ctx is cancelled.
type Subscriber interface {
	SubscribeUser(ctx context.Context, userID string, onMessage func(payload string)) error
}
