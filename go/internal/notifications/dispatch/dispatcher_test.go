package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/mcdev12/courtline/go/internal/models"
	"github.com/mcdev12/courtline/go/internal/notifications/channels"
	"github.com/mcdev12/courtline/go/internal/notifications/events"
	"github.com/mcdev12/courtline/go/internal/notifications/outbox"
	"github.com/mcdev12/courtline/go/internal/notifications/render"
)

type storedRecord struct {
	outbox.NewRecord
	status models.OutboxStatus
	err    string
}

type fakeStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*storedRecord
	byKey   map[string]uuid.UUID

	createErr error
	markErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records: make(map[uuid.UUID]*storedRecord),
		byKey:   make(map[string]uuid.UUID),
	}
}

func (s *fakeStore) CreateOrReuse(_ context.Context, nr outbox.NewRecord) (uuid.UUID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return uuid.Nil, false, s.createErr
	}
	if id, ok := s.byKey[nr.DedupeKey]; ok && nr.DedupeKey != "" {
		return id, false, nil
	}
	id := uuid.New()
	s.records[id] = &storedRecord{NewRecord: nr, status: models.OutboxStatusQueued}
	if nr.DedupeKey != "" {
		s.byKey[nr.DedupeKey] = id
	}
	return id, true, nil
}

// MarkSent and MarkFailed refuse a done context like a real driver would.
func (s *fakeStore) MarkSent(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.markErr != nil {
		return s.markErr
	}
	s.records[id].status = models.OutboxStatusSent
	s.records[id].err = ""
	return nil
}

func (s *fakeStore) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.markErr != nil {
		return s.markErr
	}
	s.records[id].status = models.OutboxStatusFailed
	s.records[id].err = errMsg
	return nil
}

func (s *fakeStore) Get(_ context.Context, id uuid.UUID) (*models.OutboxRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, outbox.ErrRecordNotFound
	}
	return &models.OutboxRecord{ID: id, EventType: rec.EventType, Channels: rec.Channels, Status: rec.status}, nil
}

// callLog records sends across all fake senders in order.
type callLog struct {
	calls []models.Channel
}

type fakeEmail struct {
	log    *callLog
	err    error
	sent   []models.EmailPayload
	onSend func()
}

func (f *fakeEmail) Send(_ context.Context, p models.EmailPayload) error {
	if f.onSend != nil {
		f.onSend()
	}
	f.log.calls = append(f.log.calls, models.ChannelEmail)
	f.sent = append(f.sent, p)
	return f.err
}

type fakeSMS struct {
	log  *callLog
	err  error
	sent []models.SMSPayload
}

func (f *fakeSMS) Send(_ context.Context, p models.SMSPayload) error {
	f.log.calls = append(f.log.calls, models.ChannelSMS)
	f.sent = append(f.sent, p)
	return f.err
}

type fakeSlack struct {
	log  *callLog
	err  error
	sent []models.SlackPayload
}

func (f *fakeSlack) Send(_ context.Context, p models.SlackPayload) error {
	f.log.calls = append(f.log.calls, models.ChannelSlack)
	f.sent = append(f.sent, p)
	return f.err
}

type harness struct {
	store *fakeStore
	log   *callLog
	email *fakeEmail
	sms   *fakeSMS
	slack *fakeSlack
	d     *Dispatcher
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	r, err := render.New(render.Config{ShopName: "Ace Tennis"})
	require.NoError(t, err)

	h := &harness{store: newFakeStore(), log: &callLog{}}
	h.email = &fakeEmail{log: h.log}
	h.sms = &fakeSMS{log: h.log}
	h.slack = &fakeSlack{log: h.log}
	h.d = NewDispatcher(r, h.store, Senders{Email: h.email, SMS: h.sms, Slack: h.slack}, opts...)
	return h
}

func submittedContext() events.Context {
	return events.Context{
		User: events.Recipient{Name: "Kim Minji", Email: "minji@example.com", Phone: "010-1234-5678"},
		Application: events.Application{
			ID:            "6f1c2a9e-8b7d-4c1e-9f00-12ab34cd56ef",
			Status:        events.StatusReceived,
			PreferredDate: "2026-10-20",
			PreferredTime: "14:30",
			RacketCount:   1,
			TotalPrice:    decimal.NewFromInt(25000),
		},
	}
}

func TestDispatchSentHappyPath(t *testing.T) {
	h := newHarness(t)

	res, err := h.d.Dispatch(context.Background(), Request{
		Event:     events.ApplicationSubmitted,
		Context:   submittedContext(),
		Channels:  []models.Channel{models.ChannelEmail, models.ChannelSlack},
		DedupeKey: "stringing:6f1c2a9e-8b7d-4c1e-9f00-12ab34cd56ef:submitted",
	})
	require.NoError(t, err)

	assert.Equal(t, models.OutboxStatusSent, res.Status)
	assert.False(t, res.Duplicate)
	assert.Equal(t, []models.Channel{models.ChannelEmail, models.ChannelSlack}, h.log.calls)

	rec := h.store.records[res.RecordID]
	assert.Equal(t, models.OutboxStatusSent, rec.status)
	assert.Empty(t, rec.err)
	assert.Equal(t, "application_submitted", rec.EventType)
	assert.Equal(t, []models.Channel{models.ChannelEmail, models.ChannelSlack}, rec.Channels)
	assert.Contains(t, string(rec.Rendered), `"sms"`)
	assert.Contains(t, string(rec.Payload), `"preferred_date":"2026-10-20"`)

	require.Len(t, h.email.sent, 1)
	assert.Contains(t, h.email.sent[0].Subject, "Stringing application received")
	assert.Empty(t, h.sms.sent)
}

func TestDispatchAbortsOnFirstFailure(t *testing.T) {
	h := newHarness(t)
	h.email.err = &channels.ChannelError{Channel: models.ChannelEmail, StatusCode: 500, Err: errors.New("provider returned status code 500")}

	res, err := h.d.Dispatch(context.Background(), Request{
		Event:    events.ScheduleConfirmed,
		Context:  submittedContext(),
		Channels: []models.Channel{models.ChannelEmail, models.ChannelSMS, models.ChannelSlack},
	})
	require.NoError(t, err)

	assert.Equal(t, models.OutboxStatusFailed, res.Status)
	assert.Equal(t, []models.Channel{models.ChannelEmail}, h.log.calls)
	assert.Empty(t, h.sms.sent)
	assert.Empty(t, h.slack.sent)

	rec := h.store.records[res.RecordID]
	assert.Equal(t, models.OutboxStatusFailed, rec.status)
	assert.Equal(t, h.email.err.Error(), rec.err)
}

func TestDispatchFollowsCallerOrder(t *testing.T) {
	h := newHarness(t)
	h.sms.err = errors.New("gateway down")

	res, err := h.d.Dispatch(context.Background(), Request{
		Event:    events.ScheduleConfirmed,
		Context:  submittedContext(),
		Channels: []models.Channel{models.ChannelSlack, models.ChannelSMS, models.ChannelEmail},
	})
	require.NoError(t, err)

	assert.Equal(t, []models.Channel{models.ChannelSlack, models.ChannelSMS}, h.log.calls)
	assert.Equal(t, []models.Channel{models.ChannelSlack, models.ChannelSMS}, res.Attempted)
	assert.Equal(t, "gateway down", h.store.records[res.RecordID].err)
}

func TestDispatchSkipsUnrenderedChannel(t *testing.T) {
	h := newHarness(t)
	c := submittedContext()
	c.User.Phone = "n/a"

	res, err := h.d.Dispatch(context.Background(), Request{
		Event:    events.ServiceCompleted,
		Context:  c,
		Channels: []models.Channel{models.ChannelEmail, models.ChannelSMS},
	})
	require.NoError(t, err)

	assert.Equal(t, models.OutboxStatusSent, res.Status)
	assert.Equal(t, []models.Channel{models.ChannelEmail}, h.log.calls)
	assert.NotContains(t, string(h.store.records[res.RecordID].Rendered), `"sms"`)
}

func TestDispatchDuplicateSendsNothing(t *testing.T) {
	h := newHarness(t)
	req := Request{
		Event:     events.ServiceCompleted,
		Context:   submittedContext(),
		Channels:  []models.Channel{models.ChannelEmail},
		DedupeKey: "stringing:x:completed",
	}

	first, err := h.d.Dispatch(context.Background(), req)
	require.NoError(t, err)
	second, err := h.d.Dispatch(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, second.Duplicate)
	assert.Equal(t, first.RecordID, second.RecordID)
	assert.Equal(t, models.OutboxStatusSent, second.Status)
	assert.Len(t, h.email.sent, 1)
	assert.Len(t, h.store.records, 1)
}

func TestDispatchStoresOutcomeAfterCancel(t *testing.T) {
	req := Request{
		Event:     events.ServiceCompleted,
		Context:   submittedContext(),
		Channels:  []models.Channel{models.ChannelEmail},
		DedupeKey: "stringing:x:completed",
	}

	t.Run("send fails on shutdown", func(t *testing.T) {
		h := newHarness(t)
		ctx, cancel := context.WithCancel(context.Background())
		h.email.onSend = cancel
		h.email.err = context.Canceled

		res, err := h.d.Dispatch(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, models.OutboxStatusFailed, res.Status)
		assert.Equal(t, models.OutboxStatusFailed, h.store.records[res.RecordID].status)
		assert.Equal(t, context.Canceled.Error(), h.store.records[res.RecordID].err)

		again, err := h.d.Dispatch(context.Background(), req)
		require.NoError(t, err)
		assert.True(t, again.Duplicate)
		assert.Equal(t, models.OutboxStatusFailed, again.Status)
	})

	t.Run("send succeeds as ctx is canceled", func(t *testing.T) {
		h := newHarness(t)
		ctx, cancel := context.WithCancel(context.Background())
		h.email.onSend = cancel

		res, err := h.d.Dispatch(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, models.OutboxStatusSent, res.Status)
		assert.Equal(t, models.OutboxStatusSent, h.store.records[res.RecordID].status)
	})
}

func TestDispatchStatusOnlyAfterMark(t *testing.T) {
	h := newHarness(t)
	h.store.markErr = outbox.ErrPersistence

	res, err := h.d.Dispatch(context.Background(), Request{
		Event:    events.ServiceCompleted,
		Context:  submittedContext(),
		Channels: []models.Channel{models.ChannelEmail},
	})
	require.ErrorIs(t, err, outbox.ErrPersistence)
	assert.Empty(t, res.Status)
	assert.Equal(t, models.OutboxStatusQueued, h.store.records[res.RecordID].status)
}

func TestDispatchMissingSender(t *testing.T) {
	h := newHarness(t)
	h.d.senders.Slack = nil

	res, err := h.d.Dispatch(context.Background(), Request{
		Event:    events.ApplicationCanceled,
		Context:  submittedContext(),
		Channels: []models.Channel{models.ChannelSlack, models.ChannelEmail},
	})
	require.NoError(t, err)

	assert.Equal(t, models.OutboxStatusFailed, res.Status)
	assert.Empty(t, h.log.calls)
	assert.Contains(t, h.store.records[res.RecordID].err, channels.ErrConfigurationMissing.Error())
}

func TestDispatchSurfacesRenderAndPersistenceErrors(t *testing.T) {
	t.Run("unknown event", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.d.Dispatch(context.Background(), Request{
			Event:    events.Type("racket_lost"),
			Context:  submittedContext(),
			Channels: []models.Channel{models.ChannelEmail},
		})
		require.ErrorIs(t, err, render.ErrUnknownEvent)
		assert.Empty(t, h.store.records)
		assert.Empty(t, h.log.calls)
	})

	t.Run("store unavailable", func(t *testing.T) {
		h := newHarness(t)
		h.store.createErr = outbox.ErrPersistence
		_, err := h.d.Dispatch(context.Background(), Request{
			Event:    events.ServiceCompleted,
			Context:  submittedContext(),
			Channels: []models.Channel{models.ChannelEmail},
		})
		require.ErrorIs(t, err, outbox.ErrPersistence)
		assert.Empty(t, h.log.calls)
	})

	t.Run("mark failed errors", func(t *testing.T) {
		h := newHarness(t)
		h.email.err = errors.New("boom")
		h.store.markErr = outbox.ErrPersistence
		_, err := h.d.Dispatch(context.Background(), Request{
			Event:    events.ServiceCompleted,
			Context:  submittedContext(),
			Channels: []models.Channel{models.ChannelEmail},
		})
		require.ErrorIs(t, err, outbox.ErrPersistence)
	})
}

func TestDispatchRecordsOTelMetrics(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewOTelMetrics(provider)
	require.NoError(t, err)

	h := newHarness(t, WithMetrics(m))
	h.slack.err = errors.New("webhook 404")

	_, err = h.d.Dispatch(ctx, Request{
		Event:    events.ScheduleConfirmed,
		Context:  submittedContext(),
		Channels: []models.Channel{models.ChannelEmail, models.ChannelSlack},
	})
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if data, ok := md.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[md.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(1), sums["notifications.dispatches"])
	assert.Equal(t, int64(2), sums["notifications.channel.sends"])
}
