package bus

import (
	"github.com/mcdev12/courtline/go/internal/notifications/events"
)

// TriggerMessage is what a stringing workflow publishes when an event should notify someone.
type TriggerMessage struct {
	EventType events.Type    `json:"event_type"`
	Context   events.Context `json:"context"`
}

// Subject is the subject an event type is published on.
func Subject(prefix string, t events.Type) string {
	return prefix + "." + t.String()
}
