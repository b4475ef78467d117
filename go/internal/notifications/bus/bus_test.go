package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/courtline/go/internal/models"
	"github.com/mcdev12/courtline/go/internal/notifications/dispatch"
	"github.com/mcdev12/courtline/go/internal/notifications/events"
	"github.com/mcdev12/courtline/go/internal/notifications/outbox"
	"github.com/mcdev12/courtline/go/internal/notifications/render"
	"github.com/mcdev12/courtline/go/internal/notifications/triggers"
)

type stubFirer struct {
	err     error
	fired   []events.Type
	ctxs    []events.Context
	ctxErrs []error
}

func (s *stubFirer) Fire(ctx context.Context, t events.Type, c events.Context) (dispatch.Result, error) {
	s.ctxErrs = append(s.ctxErrs, ctx.Err())
	s.fired = append(s.fired, t)
	s.ctxs = append(s.ctxs, c)
	return dispatch.Result{Status: models.OutboxStatusSent}, s.err
}

func triggerData(t *testing.T, e events.Type) []byte {
	t.Helper()
	data, err := json.Marshal(TriggerMessage{
		EventType: e,
		Context: events.Context{
			User:        events.Recipient{Email: "a@example.com"},
			Application: events.Application{ID: "app-7", PreferredDate: "2026-11-02"},
		},
	})
	require.NoError(t, err)
	return data
}

func TestHandleDecisions(t *testing.T) {
	tests := []struct {
		name string
		data func(t *testing.T) []byte
		err  error
		want Decision
	}{
		{"fired", func(t *testing.T) []byte { return triggerData(t, events.ServiceCompleted) }, nil, Ack},
		{"garbage", func(*testing.T) []byte { return []byte("{not json") }, nil, Term},
		{"unknown event", func(t *testing.T) []byte { return triggerData(t, "racket_lost") },
			fmt.Errorf("%w: racket_lost", render.ErrUnknownEvent), Term},
		{"missing application", func(t *testing.T) []byte { return triggerData(t, events.ServiceCompleted) },
			triggers.ErrApplicationIDRequired, Term},
		{"outbox down", func(t *testing.T) []byte { return triggerData(t, events.ServiceCompleted) },
			fmt.Errorf("%w: connection refused", outbox.ErrPersistence), Nak},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &stubFirer{err: tt.err}
			assert.Equal(t, tt.want, Handle(context.Background(), f, tt.data(t)))
		})
	}
}

func TestHandleDecodesContext(t *testing.T) {
	f := &stubFirer{}
	require.Equal(t, Ack, Handle(context.Background(), f, triggerData(t, events.ScheduleConfirmed)))

	require.Len(t, f.fired, 1)
	assert.Equal(t, events.ScheduleConfirmed, f.fired[0])
	assert.Equal(t, "app-7", f.ctxs[0].Application.ID)
	assert.Equal(t, "2026-11-02", f.ctxs[0].Application.PreferredDate)
}

func TestConsumerHandleOutlivesShutdown(t *testing.T) {
	f := &stubFirer{}
	c := NewConsumer(nil, DefaultConfig(), f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.Equal(t, Ack, c.handle(ctx, triggerData(t, events.ServiceCompleted)))
	require.Len(t, f.ctxErrs, 1)
	assert.NoError(t, f.ctxErrs[0])
}

func TestNewTriggerMsg(t *testing.T) {
	c := events.Context{Application: events.Application{ID: "app-7", Status: events.StatusCompleted}}

	msg, key, err := newTriggerMsg("notifications.stringing", events.StatusUpdated, c)
	require.NoError(t, err)

	assert.Equal(t, "notifications.stringing.status_updated", msg.Subject)
	assert.Equal(t, "stringing:app-7:status:completed", key)
	assert.Equal(t, "status_updated", msg.Header.Get(headerEventType))
	assert.Equal(t, "app-7", msg.Header.Get(headerApplicationID))

	var decoded TriggerMessage
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, events.StatusUpdated, decoded.EventType)
	assert.Equal(t, "app-7", decoded.Context.Application.ID)

	_, _, err = newTriggerMsg("notifications.stringing", "racket_lost", c)
	require.ErrorIs(t, err, render.ErrUnknownEvent)
}

func TestStreamConfig(t *testing.T) {
	cfg := DefaultConfig()
	sc := streamConfig(cfg)

	assert.Equal(t, "STRINGING_NOTIFICATIONS", sc.Name)
	assert.Equal(t, []string{"notifications.stringing.>"}, sc.Subjects)
	assert.Equal(t, 2*time.Hour, sc.Duplicates)
	assert.True(t, isStreamConfigEqual(sc, streamConfig(cfg)))

	cfg.DuplicateWindow = time.Hour
	assert.False(t, isStreamConfigEqual(sc, streamConfig(cfg)))
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "ack", Ack.String())
	assert.Equal(t, "nak", Nak.String())
	assert.Equal(t, "term", Term.String())
}
