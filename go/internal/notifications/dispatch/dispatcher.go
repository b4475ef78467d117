package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/courtline/go/internal/models"
	"github.com/mcdev12/courtline/go/internal/notifications/channels"
	"github.com/mcdev12/courtline/go/internal/notifications/events"
	"github.com/mcdev12/courtline/go/internal/notifications/outbox"
)

// Renderer produces channel payloads for an event.
type Renderer interface {
	Render(eventType events.Type, c events.Context) (models.RenderedPayload, error)
}

// Store persists dispatch attempts.
type Store interface {
	CreateOrReuse(ctx context.Context, nr outbox.NewRecord) (uuid.UUID, bool, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
	Get(ctx context.Context, id uuid.UUID) (*models.OutboxRecord, error)
}

type EmailSender interface {
	Send(ctx context.Context, p models.EmailPayload) error
}

type SMSSender interface {
	Send(ctx context.Context, p models.SMSPayload) error
}

type SlackSender interface {
	Send(ctx context.Context, p models.SlackPayload) error
}

// Senders groups one sender per channel. A nil sender fails its channel with
// channels.ErrConfigurationMissing.
type Senders struct {
	Email EmailSender
	SMS   SMSSender
	Slack SlackSender
}

// Request is one notification to dispatch.
type Request struct {
	Event     events.Type
	Context   events.Context
	Channels  []models.Channel
	DedupeKey string
}

// Result describes what a dispatch did.
type Result struct {
	RecordID uuid.UUID
	// Status is the stored status. For a duplicate it is the earlier record's.
	Status models.OutboxStatus
	// Duplicate is set when an earlier record held the dedupe key. Nothing is sent.
	Duplicate bool
	// Attempted lists the channels a send was made on, in order.
	Attempted []models.Channel
}

type Option func(*Dispatcher)

func WithMetrics(m MetricsCollector) Option {
	return func(d *Dispatcher) {
		if m != nil {
			d.metrics = m
		}
	}
}

// Dispatcher runs render, persist, send and mark for a single notification.
type Dispatcher struct {
	renderer Renderer
	store    Store
	senders  Senders
	metrics  MetricsCollector
}

func NewDispatcher(renderer Renderer, store Store, senders Senders, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		renderer: renderer,
		store:    store,
		senders:  senders,
		metrics:  NoOpMetricsCollector{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch renders and persists req, then sends it on each requested channel in
// order. The first failing channel stops the attempt and the record is marked
// failed. Render and persistence errors are returned; channel errors are not.
// Once a record exists its outcome is stored even if ctx is canceled mid-send,
// so a redelivered trigger never finds it stuck in queued.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Result, error) {
	start := time.Now()

	rendered, err := d.renderer.Render(req.Event, req.Context)
	if err != nil {
		return Result{}, fmt.Errorf("render %s: %w", req.Event, err)
	}

	payload, err := json.Marshal(req.Context)
	if err != nil {
		return Result{}, fmt.Errorf("encode %s context: %w", req.Event, err)
	}
	snapshot, err := json.Marshal(rendered)
	if err != nil {
		return Result{}, fmt.Errorf("encode %s rendered payload: %w", req.Event, err)
	}

	id, created, err := d.store.CreateOrReuse(ctx, outbox.NewRecord{
		EventType: req.Event.String(),
		Channels:  req.Channels,
		Payload:   payload,
		Rendered:  snapshot,
		DedupeKey: req.DedupeKey,
	})
	if err != nil {
		return Result{}, err
	}

	result := Result{RecordID: id}
	if !created {
		log.Info().
			Str("record_id", id.String()).
			Str("event_type", req.Event.String()).
			Str("dedupe_key", req.DedupeKey).
			Msg("duplicate notification, skipping send")
		result.Duplicate = true
		existing, err := d.store.Get(ctx, id)
		if err != nil {
			return result, err
		}
		result.Status = existing.Status
		d.metrics.RecordDispatch(ctx, req.Event.String(), OutcomeDuplicate, time.Since(start))
		return result, nil
	}

	for _, ch := range req.Channels {
		if !rendered.Has(ch) {
			log.Debug().
				Str("record_id", id.String()).
				Str("channel", string(ch)).
				Msg("nothing rendered for channel, skipping")
			continue
		}

		result.Attempted = append(result.Attempted, ch)
		sendErr := d.send(ctx, ch, rendered)
		d.metrics.RecordChannelSend(ctx, ch, sendErr == nil)
		if sendErr != nil {
			log.Warn().
				Err(sendErr).
				Str("record_id", id.String()).
				Str("event_type", req.Event.String()).
				Str("channel", string(ch)).
				Msg("channel send failed, aborting remaining channels")

			d.metrics.RecordDispatch(ctx, req.Event.String(), OutcomeFailed, time.Since(start))
			if err := d.store.MarkFailed(context.WithoutCancel(ctx), id, sendErr.Error()); err != nil {
				return result, err
			}
			result.Status = models.OutboxStatusFailed
			return result, nil
		}
	}

	d.metrics.RecordDispatch(ctx, req.Event.String(), OutcomeSent, time.Since(start))
	if err := d.store.MarkSent(context.WithoutCancel(ctx), id); err != nil {
		return result, err
	}
	result.Status = models.OutboxStatusSent

	log.Info().
		Str("record_id", id.String()).
		Str("event_type", req.Event.String()).
		Int("channels", len(result.Attempted)).
		Msg("notification sent")
	return result, nil
}

func (d *Dispatcher) send(ctx context.Context, ch models.Channel, rendered models.RenderedPayload) error {
	switch ch {
	case models.ChannelEmail:
		if d.senders.Email == nil {
			return fmt.Errorf("%s: %w: no sender", ch, channels.ErrConfigurationMissing)
		}
		return d.senders.Email.Send(ctx, *rendered.Email)
	case models.ChannelSMS:
		if d.senders.SMS == nil {
			return fmt.Errorf("%s: %w: no sender", ch, channels.ErrConfigurationMissing)
		}
		return d.senders.SMS.Send(ctx, *rendered.SMS)
	case models.ChannelSlack:
		if d.senders.Slack == nil {
			return fmt.Errorf("%s: %w: no sender", ch, channels.ErrConfigurationMissing)
		}
		return d.senders.Slack.Send(ctx, *rendered.Slack)
	default:
		return fmt.Errorf("unsupported channel %q", ch)
	}
}
