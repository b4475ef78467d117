package triggers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/courtline/go/internal/models"
	"github.com/mcdev12/courtline/go/internal/notifications/dispatch"
	"github.com/mcdev12/courtline/go/internal/notifications/events"
	"github.com/mcdev12/courtline/go/internal/notifications/outbox"
	"github.com/mcdev12/courtline/go/internal/notifications/render"
)

type recordingDispatcher struct {
	requests []dispatch.Request
	err      error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, req dispatch.Request) (dispatch.Result, error) {
	d.requests = append(d.requests, req)
	return dispatch.Result{Status: models.OutboxStatusSent}, d.err
}

func appContext(date, clock string) events.Context {
	return events.Context{
		User: events.Recipient{Name: "Lee Jun", Email: "jun@example.com", Phone: "010 9876 5432"},
		Application: events.Application{
			ID:            "app-42",
			Status:        events.StatusInProgress,
			PreferredDate: date,
			PreferredTime: clock,
		},
	}
}

func TestTriggerRoutes(t *testing.T) {
	tests := []struct {
		name     string
		fire     func(*Triggers, context.Context, events.Context) (dispatch.Result, error)
		event    events.Type
		key      string
		channels []models.Channel
	}{
		{"submitted", (*Triggers).ApplicationSubmitted, events.ApplicationSubmitted,
			"stringing:app-42:submitted", []models.Channel{models.ChannelEmail, models.ChannelSlack}},
		{"schedule confirmed", (*Triggers).ScheduleConfirmed, events.ScheduleConfirmed,
			"stringing:app-42:schedule_confirmed:2026-10-20T14:30", []models.Channel{models.ChannelEmail, models.ChannelSMS, models.ChannelSlack}},
		{"schedule canceled", (*Triggers).ScheduleCanceled, events.ScheduleCanceled,
			"stringing:app-42:schedule_canceled:2026-10-20T14:30", []models.Channel{models.ChannelEmail}},
		{"status updated", (*Triggers).StatusUpdated, events.StatusUpdated,
			"stringing:app-42:status:in_progress", []models.Channel{models.ChannelEmail}},
		{"application canceled", (*Triggers).ApplicationCanceled, events.ApplicationCanceled,
			"stringing:app-42:canceled", []models.Channel{models.ChannelEmail}},
		{"in progress", (*Triggers).ServiceInProgress, events.ServiceInProgress,
			"stringing:app-42:in_progress", []models.Channel{models.ChannelEmail}},
		{"completed", (*Triggers).ServiceCompleted, events.ServiceCompleted,
			"stringing:app-42:completed", []models.Channel{models.ChannelEmail, models.ChannelSMS}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &recordingDispatcher{}
			_, err := tt.fire(New(d), context.Background(), appContext("2026-10-20", "14:30"))
			require.NoError(t, err)

			require.Len(t, d.requests, 1)
			req := d.requests[0]
			assert.Equal(t, tt.event, req.Event)
			assert.Equal(t, tt.key, req.DedupeKey)
			assert.Equal(t, tt.channels, req.Channels)
		})
	}
}

func TestEveryEventHasARoute(t *testing.T) {
	for _, e := range events.All {
		assert.NotEmpty(t, Channels(e), e)
		assert.True(t, render.Supports(e), e)
	}
}

func TestDedupeKeyWithoutSchedule(t *testing.T) {
	key, err := DedupeKey(events.ScheduleConfirmed, appContext("", ""))
	require.NoError(t, err)
	assert.Equal(t, "stringing:app-42:schedule_confirmed:unscheduledTunscheduled", key)

	key, err = DedupeKey(events.ScheduleCanceled, appContext("2026-10-20", ""))
	require.NoError(t, err)
	assert.Equal(t, "stringing:app-42:schedule_canceled:2026-10-20Tunscheduled", key)
}

func TestFireRejectsUnknownEventAndMissingID(t *testing.T) {
	d := &recordingDispatcher{}
	tr := New(d)

	_, err := tr.Fire(context.Background(), events.Type("racket_lost"), appContext("", ""))
	require.ErrorIs(t, err, render.ErrUnknownEvent)

	c := appContext("", "")
	c.Application.ID = " "
	_, err = tr.ServiceCompleted(context.Background(), c)
	require.ErrorIs(t, err, ErrApplicationIDRequired)

	assert.Empty(t, d.requests)
}

func TestChannelsReturnsCopy(t *testing.T) {
	chs := Channels(events.ServiceCompleted)
	chs[0] = models.ChannelSlack
	assert.Equal(t, models.ChannelEmail, Channels(events.ServiceCompleted)[0])
}

// end-to-end through a real dispatcher and renderer

type memoryStore struct {
	byKey  map[string]uuid.UUID
	status map[uuid.UUID]models.OutboxStatus
	record map[uuid.UUID]outbox.NewRecord
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		byKey:  map[string]uuid.UUID{},
		status: map[uuid.UUID]models.OutboxStatus{},
		record: map[uuid.UUID]outbox.NewRecord{},
	}
}

func (s *memoryStore) CreateOrReuse(_ context.Context, nr outbox.NewRecord) (uuid.UUID, bool, error) {
	if id, ok := s.byKey[nr.DedupeKey]; ok {
		return id, false, nil
	}
	id := uuid.New()
	s.byKey[nr.DedupeKey] = id
	s.status[id] = models.OutboxStatusQueued
	s.record[id] = nr
	return id, true, nil
}

func (s *memoryStore) MarkSent(_ context.Context, id uuid.UUID) error {
	s.status[id] = models.OutboxStatusSent
	return nil
}

func (s *memoryStore) MarkFailed(_ context.Context, id uuid.UUID, _ string) error {
	s.status[id] = models.OutboxStatusFailed
	return nil
}

func (s *memoryStore) Get(_ context.Context, id uuid.UUID) (*models.OutboxRecord, error) {
	nr, ok := s.record[id]
	if !ok {
		return nil, outbox.ErrRecordNotFound
	}
	return &models.OutboxRecord{ID: id, EventType: nr.EventType, Channels: nr.Channels, Status: s.status[id]}, nil
}

type countingSender[P any] struct {
	sent []P
}

func (s *countingSender[P]) Send(_ context.Context, p P) error {
	s.sent = append(s.sent, p)
	return nil
}

func TestSubmissionScenario(t *testing.T) {
	r, err := render.New(render.DefaultConfig())
	require.NoError(t, err)

	store := newMemoryStore()
	email := &countingSender[models.EmailPayload]{}
	sms := &countingSender[models.SMSPayload]{}
	slack := &countingSender[models.SlackPayload]{}
	tr := New(dispatch.NewDispatcher(r, store, dispatch.Senders{Email: email, SMS: sms, Slack: slack}))

	res, err := tr.ApplicationSubmitted(context.Background(), appContext("2026-10-20", "14:30"))
	require.NoError(t, err)

	assert.Equal(t, models.OutboxStatusSent, store.status[res.RecordID])
	assert.Equal(t, []models.Channel{models.ChannelEmail, models.ChannelSlack}, store.record[res.RecordID].Channels)
	assert.Contains(t, string(store.record[res.RecordID].Rendered), `"to":"01098765432"`)
	require.Len(t, email.sent, 1)
	assert.Contains(t, email.sent[0].Subject, "Stringing application received")
	assert.Len(t, slack.sent, 1)
	assert.Empty(t, sms.sent)

	_, err = tr.ApplicationSubmitted(context.Background(), appContext("2026-10-20", "14:30"))
	require.NoError(t, err)
	assert.Len(t, email.sent, 1)
}

func TestScheduleCanceledNeverUsesChat(t *testing.T) {
	r, err := render.New(render.DefaultConfig())
	require.NoError(t, err)

	store := newMemoryStore()
	email := &countingSender[models.EmailPayload]{}
	tr := New(dispatch.NewDispatcher(r, store, dispatch.Senders{Email: email}))

	res, err := tr.ScheduleCanceled(context.Background(), appContext("2026-10-20", "14:30"))
	require.NoError(t, err)

	assert.Equal(t, models.OutboxStatusSent, store.status[res.RecordID])
	assert.Equal(t, []models.Channel{models.ChannelEmail}, res.Attempted)
	require.Len(t, email.sent, 1)
	require.NotNil(t, email.sent[0].ICSAttachment)
	assert.Contains(t, string(email.sent[0].ICSAttachment.Content), "METHOD:CANCEL")
}
