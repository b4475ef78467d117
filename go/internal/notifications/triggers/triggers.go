package triggers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/courtline/go/internal/models"
	"github.com/mcdev12/courtline/go/internal/notifications/dispatch"
	"github.com/mcdev12/courtline/go/internal/notifications/events"
	"github.com/mcdev12/courtline/go/internal/notifications/render"
)

const unscheduled = "unscheduled"

// ErrApplicationIDRequired is returned when the context has no application id to key on.
var ErrApplicationIDRequired = errors.New("application id is required")

// Dispatcher is the part of dispatch.Dispatcher the triggers use.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) (dispatch.Result, error)
}

type route struct {
	key      func(app events.Application) string
	channels []models.Channel
}

var routes = map[events.Type]route{
	events.ApplicationSubmitted: {
		key:      func(app events.Application) string { return keyFor(app, "submitted") },
		channels: []models.Channel{models.ChannelEmail, models.ChannelSlack},
	},
	events.ScheduleConfirmed: {
		key:      func(app events.Application) string { return keyFor(app, "schedule_confirmed", slot(app)) },
		channels: []models.Channel{models.ChannelEmail, models.ChannelSMS, models.ChannelSlack},
	},
	events.ScheduleCanceled: {
		key:      func(app events.Application) string { return keyFor(app, "schedule_canceled", slot(app)) },
		channels: []models.Channel{models.ChannelEmail},
	},
	events.StatusUpdated: {
		key:      func(app events.Application) string { return keyFor(app, "status", orDefault(app.Status, "unknown")) },
		channels: []models.Channel{models.ChannelEmail},
	},
	events.ApplicationCanceled: {
		key:      func(app events.Application) string { return keyFor(app, "canceled") },
		channels: []models.Channel{models.ChannelEmail},
	},
	events.ServiceInProgress: {
		key:      func(app events.Application) string { return keyFor(app, "in_progress") },
		channels: []models.Channel{models.ChannelEmail},
	},
	events.ServiceCompleted: {
		key:      func(app events.Application) string { return keyFor(app, "completed") },
		channels: []models.Channel{models.ChannelEmail, models.ChannelSMS},
	},
}

func keyFor(app events.Application, parts ...string) string {
	return "stringing:" + strings.Join(append([]string{app.ID}, parts...), ":")
}

func slot(app events.Application) string {
	return orDefault(app.PreferredDate, unscheduled) + "T" + orDefault(app.PreferredTime, unscheduled)
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

// DedupeKey returns the idempotency key an event is dispatched under.
func DedupeKey(t events.Type, c events.Context) (string, error) {
	r, ok := routes[t]
	if !ok {
		return "", fmt.Errorf("%w: %q", render.ErrUnknownEvent, t)
	}
	if strings.TrimSpace(c.Application.ID) == "" {
		return "", ErrApplicationIDRequired
	}
	return r.key(c.Application), nil
}

// Channels returns the channels an event is dispatched on.
func Channels(t events.Type) []models.Channel {
	r, ok := routes[t]
	if !ok {
		return nil
	}
	return append([]models.Channel(nil), r.channels...)
}

// Triggers turns stringing workflow events into dispatches.
type Triggers struct {
	dispatcher Dispatcher
}

func New(dispatcher Dispatcher) *Triggers {
	return &Triggers{dispatcher: dispatcher}
}

// Fire dispatches event t. Channel failures are recorded on the outbox record
// and do not surface here.
func (tr *Triggers) Fire(ctx context.Context, t events.Type, c events.Context) (dispatch.Result, error) {
	key, err := DedupeKey(t, c)
	if err != nil {
		return dispatch.Result{}, err
	}

	res, err := tr.dispatcher.Dispatch(ctx, dispatch.Request{
		Event:     t,
		Context:   c,
		Channels:  Channels(t),
		DedupeKey: key,
	})
	if err != nil {
		log.Error().
			Err(err).
			Str("event_type", t.String()).
			Str("application_id", c.Application.ID).
			Msg("notification trigger failed")
		return res, err
	}
	return res, nil
}

func (tr *Triggers) ApplicationSubmitted(ctx context.Context, c events.Context) (dispatch.Result, error) {
	return tr.Fire(ctx, events.ApplicationSubmitted, c)
}

func (tr *Triggers) ScheduleConfirmed(ctx context.Context, c events.Context) (dispatch.Result, error) {
	return tr.Fire(ctx, events.ScheduleConfirmed, c)
}

func (tr *Triggers) ScheduleCanceled(ctx context.Context, c events.Context) (dispatch.Result, error) {
	return tr.Fire(ctx, events.ScheduleCanceled, c)
}

func (tr *Triggers) StatusUpdated(ctx context.Context, c events.Context) (dispatch.Result, error) {
	return tr.Fire(ctx, events.StatusUpdated, c)
}

func (tr *Triggers) ApplicationCanceled(ctx context.Context, c events.Context) (dispatch.Result, error) {
	return tr.Fire(ctx, events.ApplicationCanceled, c)
}

func (tr *Triggers) ServiceInProgress(ctx context.Context, c events.Context) (dispatch.Result, error) {
	return tr.Fire(ctx, events.ServiceInProgress, c)
}

func (tr *Triggers) ServiceCompleted(ctx context.Context, c events.Context) (dispatch.Result, error) {
	return tr.Fire(ctx, events.ServiceCompleted, c)
}
