package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/courtline/go/internal/models"
	"github.com/mcdev12/courtline/go/internal/notifications/outbox/db"
	"github.com/mcdev12/courtline/go/internal/sqlutil"
)

// Repository is the PostgreSQL outbox backend.
type Repository struct {
	queries *db.Queries
	db      *sql.DB
}

func NewRepository(queries *db.Queries, database *sql.DB) *Repository {
	return &Repository{
		queries: queries,
		db:      database,
	}
}

// InsertOrGet inserts rec unless its dedupe key is already taken, then reads the
// stored row back in the same transaction. The returned record is the existing
// one when the key was taken.
func (r *Repository) InsertOrGet(ctx context.Context, rec models.OutboxRecord) (*models.OutboxRecord, error) {
	var stored db.NotificationOutbox

	err := sqlutil.Run(ctx, r.db, nil, r.queries.WithTx, func(q *db.Queries) error {
		_, err := q.InsertOutboxRecord(ctx, db.InsertOutboxRecordParams{
			ID:        rec.ID,
			EventType: rec.EventType,
			Channels:  channelsToStrings(rec.Channels),
			Payload:   sqlutil.ToNullRawMessage(rec.Payload),
			Rendered:  rec.Rendered,
			Status:    string(rec.Status),
			Retries:   int32(rec.Retries),
			DedupeKey: sqlutil.ToNullString(rec.DedupeKey),
			CreatedAt: rec.CreatedAt,
		})
		if err != nil {
			return fmt.Errorf("failed to insert outbox record: %w", err)
		}

		if rec.DedupeKey != nil {
			stored, err = q.GetOutboxRecordByDedupeKey(ctx, *rec.DedupeKey)
		} else {
			stored, err = q.GetOutboxRecord(ctx, rec.ID)
		}
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("re-read outbox record %s: %w", rec.ID, ErrRecordNotFound)
			}
			return fmt.Errorf("failed to re-read outbox record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.dbRecordToModel(stored), nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.OutboxRecord, error) {
	row, err := r.queries.GetOutboxRecord(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get outbox record: %w", err)
	}
	return r.dbRecordToModel(row), nil
}

func (r *Repository) GetByDedupeKey(ctx context.Context, key string) (*models.OutboxRecord, error) {
	row, err := r.queries.GetOutboxRecordByDedupeKey(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get outbox record by dedupe key: %w", err)
	}
	return r.dbRecordToModel(row), nil
}

func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) (bool, error) {
	n, err := r.queries.MarkOutboxSent(ctx, db.MarkOutboxSentParams{ID: id, SentAt: sentAt})
	if err != nil {
		return false, fmt.Errorf("failed to mark outbox record sent: %w", err)
	}
	return n > 0, nil
}

func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) (bool, error) {
	n, err := r.queries.MarkOutboxFailed(ctx, db.MarkOutboxFailedParams{
		ID:    id,
		Error: sql.NullString{String: errMsg, Valid: true},
	})
	if err != nil {
		return false, fmt.Errorf("failed to mark outbox record failed: %w", err)
	}
	return n > 0, nil
}

func (r *Repository) CountByStatus(ctx context.Context, status models.OutboxStatus) (int64, error) {
	n, err := r.queries.CountOutboxByStatus(ctx, string(status))
	if err != nil {
		return 0, fmt.Errorf("failed to count outbox records: %w", err)
	}
	return n, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// dbRecordToModel converts a database row to the domain model
func (r *Repository) dbRecordToModel(row db.NotificationOutbox) *models.OutboxRecord {
	return &models.OutboxRecord{
		ID:        row.ID,
		EventType: row.EventType,
		Channels:  stringsToChannels(row.Channels),
		Payload:   sqlutil.FromNullRawMessage(row.Payload),
		Rendered:  row.Rendered,
		Status:    models.OutboxStatus(row.Status),
		Retries:   int(row.Retries),
		Error:     sqlutil.FromSqlStringPtr(row.Error),
		DedupeKey: sqlutil.FromSqlStringPtr(row.DedupeKey),
		CreatedAt: row.CreatedAt,
		SentAt:    sqlutil.FromSqlTime(row.SentAt),
	}
}

func channelsToStrings(channels []models.Channel) []string {
	out := make([]string, len(channels))
	for i, c := range channels {
		out[i] = string(c)
	}
	return out
}

func stringsToChannels(raw []string) []models.Channel {
	out := make([]models.Channel, len(raw))
	for i, c := range raw {
		out[i] = models.Channel(c)
	}
	return out
}
