package db

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

type NotificationOutbox struct {
	ID        uuid.UUID             `json:"id"`
	EventType string                `json:"event_type"`
	Channels  []string              `json:"channels"`
	Payload   pqtype.NullRawMessage `json:"payload"`
	Rendered  json.RawMessage       `json:"rendered"`
	Status    string                `json:"status"`
	Retries   int32                 `json:"retries"`
	Error     sql.NullString        `json:"error"`
	DedupeKey sql.NullString        `json:"dedupe_key"`
	CreatedAt time.Time             `json:"created_at"`
	SentAt    sql.NullTime          `json:"sent_at"`
}
