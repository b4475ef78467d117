package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus defines the delivery state of an outbox record.
type OutboxStatus string

const (
	OutboxStatusQueued OutboxStatus = "queued"
	OutboxStatusSent   OutboxStatus = "sent"
	OutboxStatusFailed OutboxStatus = "failed"
)

// IsValid reports whether s is a known outbox status.
func (s OutboxStatus) IsValid() bool {
	switch s {
	case OutboxStatusQueued, OutboxStatusSent, OutboxStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further automatic transition happens from s.
func (s OutboxStatus) IsTerminal() bool {
	return s == OutboxStatusSent || s == OutboxStatusFailed
}

// Channel is an outbound transport a notification can be delivered through.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	// ChannelSlack is the chat incoming-webhook channel.
	ChannelSlack Channel = "slack"
)

// IsValid reports whether c is a known channel.
func (c Channel) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelSlack:
		return true
	default:
		return false
	}
}

// OutboxRecord is one durable notification dispatch attempt.
type OutboxRecord struct {
	ID        uuid.UUID       `json:"id"`
	EventType string          `json:"event_type"`
	Channels  []Channel       `json:"channels"`
	Payload   json.RawMessage `json:"payload"`
	Rendered  json.RawMessage `json:"rendered"`
	Status    OutboxStatus    `json:"status"`
	Retries   int             `json:"retries"`
	Error     *string         `json:"error,omitempty"`
	DedupeKey *string         `json:"dedupe_key,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	SentAt    *time.Time      `json:"sent_at,omitempty"`
}
