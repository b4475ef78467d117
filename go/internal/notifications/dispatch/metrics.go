package dispatch

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mcdev12/courtline/go/internal/models"
)

// Outcome is how a single dispatch ended.
type Outcome string

const (
	OutcomeSent      Outcome = "sent"
	OutcomeFailed    Outcome = "failed"
	OutcomeDuplicate Outcome = "duplicate"
)

// MetricsCollector defines the interface for collecting dispatch metrics
type MetricsCollector interface {
	RecordDispatch(ctx context.Context, eventType string, outcome Outcome, duration time.Duration)
	RecordChannelSend(ctx context.Context, channel models.Channel, success bool)
}

// NoOpMetricsCollector is a no-op implementation for when metrics aren't needed
type NoOpMetricsCollector struct{}

func (NoOpMetricsCollector) RecordDispatch(context.Context, string, Outcome, time.Duration) {}
func (NoOpMetricsCollector) RecordChannelSend(context.Context, models.Channel, bool)       {}

// OTelMetrics implements MetricsCollector on an OpenTelemetry meter.
type OTelMetrics struct {
	dispatches metric.Int64Counter
	sends      metric.Int64Counter
	latency    metric.Float64Histogram
}

// NewOTelMetrics registers the dispatch instruments. A nil provider uses the global one.
func NewOTelMetrics(provider metric.MeterProvider) (*OTelMetrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter("courtline.notifications.dispatch")

	var (
		m   OTelMetrics
		err error
	)

	m.dispatches, err = meter.Int64Counter(
		"notifications.dispatches",
		metric.WithDescription("Number of dispatch attempts by event type and outcome"),
		metric.WithUnit("{dispatch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create notifications.dispatches counter: %w", err)
	}

	m.sends, err = meter.Int64Counter(
		"notifications.channel.sends",
		metric.WithDescription("Number of channel sends by channel and result"),
		metric.WithUnit("{send}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create notifications.channel.sends counter: %w", err)
	}

	m.latency, err = meter.Float64Histogram(
		"notifications.dispatch.latency",
		metric.WithDescription("Time taken from render to recorded outcome"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create notifications.dispatch.latency histogram: %w", err)
	}

	return &m, nil
}

func (m *OTelMetrics) RecordDispatch(ctx context.Context, eventType string, outcome Outcome, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("event_type", eventType),
		attribute.String("outcome", string(outcome)),
	)
	m.dispatches.Add(ctx, 1, attrs)
	m.latency.Record(ctx, duration.Seconds(), attrs)
}

func (m *OTelMetrics) RecordChannelSend(ctx context.Context, channel models.Channel, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	m.sends.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel", string(channel)),
		attribute.String("result", result),
	))
}
