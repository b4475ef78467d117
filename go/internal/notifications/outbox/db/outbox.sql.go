package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"
)

const outboxColumns = `id, event_type, channels, payload, rendered, status, retries, error, dedupe_key, created_at, sent_at`

const insertOutboxRecord = `-- name: InsertOutboxRecord :execrows
INSERT INTO notification_outbox (
    id, event_type, channels, payload, rendered, status, retries, dedupe_key, created_at
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9
)
ON CONFLICT (dedupe_key) DO NOTHING
`

type InsertOutboxRecordParams struct {
	ID        uuid.UUID             `json:"id"`
	EventType string                `json:"event_type"`
	Channels  []string              `json:"channels"`
	Payload   pqtype.NullRawMessage `json:"payload"`
	Rendered  json.RawMessage       `json:"rendered"`
	Status    string                `json:"status"`
	Retries   int32                 `json:"retries"`
	DedupeKey sql.NullString        `json:"dedupe_key"`
	CreatedAt time.Time             `json:"created_at"`
}

// InsertOutboxRecord returns 0 rows affected when the dedupe key is taken.
func (q *Queries) InsertOutboxRecord(ctx context.Context, arg InsertOutboxRecordParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, insertOutboxRecord,
		arg.ID,
		arg.EventType,
		pq.Array(arg.Channels),
		arg.Payload,
		arg.Rendered,
		arg.Status,
		arg.Retries,
		arg.DedupeKey,
		arg.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getOutboxRecord = `-- name: GetOutboxRecord :one
SELECT ` + outboxColumns + `
FROM notification_outbox
WHERE id = $1
`

func (q *Queries) GetOutboxRecord(ctx context.Context, id uuid.UUID) (NotificationOutbox, error) {
	row := q.db.QueryRowContext(ctx, getOutboxRecord, id)
	return scanNotificationOutbox(row)
}

const getOutboxRecordByDedupeKey = `-- name: GetOutboxRecordByDedupeKey :one
SELECT ` + outboxColumns + `
FROM notification_outbox
WHERE dedupe_key = $1
`

func (q *Queries) GetOutboxRecordByDedupeKey(ctx context.Context, dedupeKey string) (NotificationOutbox, error) {
	row := q.db.QueryRowContext(ctx, getOutboxRecordByDedupeKey, dedupeKey)
	return scanNotificationOutbox(row)
}

const markOutboxSent = `-- name: MarkOutboxSent :execrows
UPDATE notification_outbox
SET status = 'sent', sent_at = $2, error = NULL
WHERE id = $1 AND status <> 'sent'
`

type MarkOutboxSentParams struct {
	ID     uuid.UUID `json:"id"`
	SentAt time.Time `json:"sent_at"`
}

func (q *Queries) MarkOutboxSent(ctx context.Context, arg MarkOutboxSentParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, markOutboxSent, arg.ID, arg.SentAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const markOutboxFailed = `-- name: MarkOutboxFailed :execrows
UPDATE notification_outbox
SET status = 'failed', error = $2
WHERE id = $1 AND status <> 'sent'
`

type MarkOutboxFailedParams struct {
	ID    uuid.UUID      `json:"id"`
	Error sql.NullString `json:"error"`
}

func (q *Queries) MarkOutboxFailed(ctx context.Context, arg MarkOutboxFailedParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, markOutboxFailed, arg.ID, arg.Error)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countOutboxByStatus = `-- name: CountOutboxByStatus :one
SELECT count(*) FROM notification_outbox WHERE status = $1
`

func (q *Queries) CountOutboxByStatus(ctx context.Context, status string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countOutboxByStatus, status)
	var count int64
	err := row.Scan(&count)
	return count, err
}

func scanNotificationOutbox(row *sql.Row) (NotificationOutbox, error) {
	var i NotificationOutbox
	err := row.Scan(
		&i.ID,
		&i.EventType,
		pq.Array(&i.Channels),
		&i.Payload,
		&i.Rendered,
		&i.Status,
		&i.Retries,
		&i.Error,
		&i.DedupeKey,
		&i.CreatedAt,
		&i.SentAt,
	)
	return i, err
}
