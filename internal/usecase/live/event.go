// Package live pushes location updates to connected map clients.
package live

import (
	"time"

	"github.com/icancar/fleet-management-sub000/internal/domain/location"
)

type EventType string

const (
	EventLocationUpdate EventType = "location_update"
	EventPing           EventType = "ping"
	EventConnected      EventType = "connected"
)

// Event is the payload written to live channels.
type Event struct {
	Type      EventType     `json:"type"`
	Data      *location.Fix `json:"data,omitempty"`
	Message   string        `json:"message,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

func LocationUpdate(fix *location.Fix) Event {
	return Event{Type: EventLocationUpdate, Data: fix, Timestamp: time.Now().UTC()}
}

func Ping() Event {
	return Event{Type: EventPing, Timestamp: time.Now().UTC()}
}

func Connected(message string) Event {
	return Event{Type: EventConnected, Message: message, Timestamp: time.Now().UTC()}
}
