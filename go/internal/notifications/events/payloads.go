package events

import (
	"github.com/shopspring/decimal"
)

// Context payload types handed to the notification core by the stringing workflow

// Application status values as stored by the stringing workflow.
const (
	StatusReceived   = "received"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCanceled   = "canceled"
)

// Recipient is the contact identity a notification is addressed to.
type Recipient struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Application is a snapshot of a stringing application at trigger time.
// PreferredDate is YYYY-MM-DD and PreferredTime is HH:MM, both in shop local time.
type Application struct {
	ID             string          `json:"id"`
	Status         string          `json:"status,omitempty"`
	PreferredDate  string          `json:"preferred_date,omitempty"`
	PreferredTime  string          `json:"preferred_time,omitempty"`
	RacketCount    int             `json:"racket_count,omitempty"`
	StringTypes    []string        `json:"string_types,omitempty"`
	CollectionType string          `json:"collection_type,omitempty"` // visit, courier, pickup
	TotalPrice     decimal.Decimal `json:"total_price"`
	CancelReason   string          `json:"cancel_reason,omitempty"`
}

// Context is everything the renderer needs for one event.
type Context struct {
	User        Recipient         `json:"user"`
	Application Application       `json:"application"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// Note returns the free-form operator note attached to the event, if any.
func (c Context) Note() string {
	return c.Extra["note"]
}
