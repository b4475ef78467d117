package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/courtline/go/internal/models"
)

// OutboxRepository defines what the app layer needs from a storage backend.
// InsertOrGet must be atomic with respect to the dedupe key.
type OutboxRepository interface {
	InsertOrGet(ctx context.Context, rec models.OutboxRecord) (*models.OutboxRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.OutboxRecord, error)
	GetByDedupeKey(ctx context.Context, key string) (*models.OutboxRecord, error)
	MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) (bool, error)
	CountByStatus(ctx context.Context, status models.OutboxStatus) (int64, error)
	Ping(ctx context.Context) error
}

var (
	_ OutboxRepository = (*Repository)(nil)
	_ OutboxRepository = (*MongoRepository)(nil)
)

// NewRecord is a dispatch attempt to be persisted.
type NewRecord struct {
	EventType string
	Channels  []models.Channel
	Payload   json.RawMessage
	Rendered  json.RawMessage
	DedupeKey string
}

// App handles outbox business logic
type App struct {
	repo  OutboxRepository
	clock clockwork.Clock
}

// NewApp creates a new outbox App. A nil clock uses the real clock.
func NewApp(repo OutboxRepository, clock clockwork.Clock) *App {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &App{
		repo:  repo,
		clock: clock,
	}
}

// CreateOrReuse persists a queued record, or returns the id of the record that
// already holds the same dedupe key. An existing record is never modified.
// created is false when an existing record was reused.
func (a *App) CreateOrReuse(ctx context.Context, nr NewRecord) (id uuid.UUID, created bool, err error) {
	if err := validateNewRecord(nr); err != nil {
		return uuid.Nil, false, err
	}

	key := strings.TrimSpace(nr.DedupeKey)
	if key != "" {
		existing, err := a.repo.GetByDedupeKey(ctx, key)
		switch {
		case err == nil:
			log.Debug().
				Str("record_id", existing.ID.String()).
				Str("dedupe_key", key).
				Str("status", string(existing.Status)).
				Msg("reusing outbox record")
			return existing.ID, false, nil
		case !errors.Is(err, ErrRecordNotFound):
			return uuid.Nil, false, fmt.Errorf("%w: lookup dedupe key: %w", ErrPersistence, err)
		}
	}

	rec := models.OutboxRecord{
		ID:        uuid.New(),
		EventType: nr.EventType,
		Channels:  nr.Channels,
		Payload:   nr.Payload,
		Rendered:  nr.Rendered,
		Status:    models.OutboxStatusQueued,
		Retries:   0,
		CreatedAt: a.clock.Now().UTC(),
	}
	if key != "" {
		rec.DedupeKey = &key
	}

	stored, err := a.repo.InsertOrGet(ctx, rec)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if stored == nil {
		return uuid.Nil, false, fmt.Errorf("%w: record %s missing after insert", ErrPersistence, rec.ID)
	}

	created = stored.ID == rec.ID
	log.Info().
		Str("record_id", stored.ID.String()).
		Str("event_type", nr.EventType).
		Str("dedupe_key", key).
		Bool("created", created).
		Msg("outbox record persisted")

	return stored.ID, created, nil
}

// MarkSent moves a record to sent. Calling it on a sent record is a no-op.
func (a *App) MarkSent(ctx context.Context, id uuid.UUID) error {
	changed, err := a.repo.MarkSent(ctx, id, a.clock.Now().UTC())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if !changed {
		return a.checkUnchanged(ctx, id, models.OutboxStatusSent)
	}

	log.Info().
		Str("record_id", id.String()).
		Msg("outbox record marked sent")
	return nil
}

// MarkFailed moves a record to failed with errMsg. A sent record is left
// untouched and retries is never incremented here.
func (a *App) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	changed, err := a.repo.MarkFailed(ctx, id, errMsg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if !changed {
		return a.checkUnchanged(ctx, id, models.OutboxStatusFailed)
	}

	log.Warn().
		Str("record_id", id.String()).
		Str("error", errMsg).
		Msg("outbox record marked failed")
	return nil
}

// Get fetches a record by id.
func (a *App) Get(ctx context.Context, id uuid.UUID) (*models.OutboxRecord, error) {
	rec, err := a.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return rec, nil
}

// PendingCount returns the number of queued records.
func (a *App) PendingCount(ctx context.Context) (int64, error) {
	return a.repo.CountByStatus(ctx, models.OutboxStatusQueued)
}

// Ping checks the storage backend.
func (a *App) Ping(ctx context.Context) error {
	return a.repo.Ping(ctx)
}

// checkUnchanged distinguishes a record that is already sent from one that does not exist.
func (a *App) checkUnchanged(ctx context.Context, id uuid.UUID, target models.OutboxStatus) error {
	rec, err := a.Get(ctx, id)
	if err != nil {
		return err
	}
	log.Debug().
		Str("record_id", id.String()).
		Str("status", string(rec.Status)).
		Str("requested", string(target)).
		Msg("outbox record already sent, transition ignored")
	return nil
}

func validateNewRecord(nr NewRecord) error {
	if strings.TrimSpace(nr.EventType) == "" {
		return ErrEventTypeRequired
	}
	if len(nr.Rendered) == 0 {
		return ErrRenderedRequired
	}
	for _, c := range nr.Channels {
		if !c.IsValid() {
			return fmt.Errorf("%w: %q", ErrInvalidChannel, c)
		}
	}
	return nil
}
