package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents what happened to an entity
type EventType string

const (
	EventTypeClosed        EventType = "closed"
	EventTypeClosureFailed EventType = "closure_failed"
)

// EntityType represents the type of entity the event is about
type EntityType string

const (
	EntityTypeAccount EntityType = "account"
)

// Event represents a WebSocket event message sent to clients
// Format: { type, entity, branchId, payload, timestamp }
type Event struct {
	Type      string      `json:"type"` // e.g. "account.closed"
	Entity    EntityType  `json:"entity"`
	BranchID  int32       `json:"branchId,omitempty"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent creates a new event with the given type, entity, and payload
func NewEvent(eventType EventType, entityType EntityType, payload interface{}) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes an event. The payload comes back as generic JSON.
func EventFromJSON(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, err
	}
	if e.Type == "" {
		return Event{}, fmt.Errorf("event without type")
	}
	return e, nil
}

// AccountClosed creates an account.closed event
func AccountClosed(payload interface{}) Event {
	return NewEvent(EventTypeClosed, EntityTypeAccount, payload)
}

// AccountClosureFailed creates an account.closure_failed event
func AccountClosureFailed(payload interface{}) Event {
	return NewEvent(EventTypeClosureFailed, EntityTypeAccount, payload)
}
