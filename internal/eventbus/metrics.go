package eventbus

import (
	"context"
	"log/slog"
	"time"

	v1 "github.com/xkorin-lab/xkorin/internal/api/v1"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "xkorin.eventbus"

// MetricsRecorder records bus activity.
// Use NewMetricsRecorder for OpenTelemetry or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	RecordPublished(ctx context.Context, eventType v1.EventType, priority v1.Priority)
	RecordDelivery(ctx context.Context, eventType v1.EventType, handler string, duration time.Duration, err error)
	RecordRetry(ctx context.Context, eventType v1.EventType, attempt int)
	RecordDeadLettered(ctx context.Context, eventType v1.EventType)
	RecordLoopRejection(ctx context.Context, eventType v1.EventType, reason string)
}

type otelMetrics struct {
	published      metric.Int64Counter
	deliveries     metric.Int64Counter
	failures       metric.Int64Counter
	retries        metric.Int64Counter
	deadLettered   metric.Int64Counter
	loopRejections metric.Int64Counter
	handlerLatency metric.Float64Histogram
}

func newOtelMetrics(provider metric.MeterProvider) (*otelMetrics, error) {
	meter := provider.Meter(meterName)

	published, err := meter.Int64Counter("eventbus.events.published",
		metric.WithDescription("Number of events accepted by the publisher"),
	)
	if err != nil {
		return nil, err
	}

	deliveries, err := meter.Int64Counter("eventbus.deliveries",
		metric.WithDescription("Number of handler invocations"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter("eventbus.handler.failures",
		metric.WithDescription("Number of failed handler invocations, timeouts included"),
	)
	if err != nil {
		return nil, err
	}

	retries, err := meter.Int64Counter("eventbus.retries",
		metric.WithDescription("Number of queue entries scheduled for another attempt"),
	)
	if err != nil {
		return nil, err
	}

	deadLettered, err := meter.Int64Counter("eventbus.dead_lettered",
		metric.WithDescription("Number of entries moved to the dead letter queue"),
	)
	if err != nil {
		return nil, err
	}

	loopRejections, err := meter.Int64Counter("eventbus.loop.rejections",
		metric.WithDescription("Number of publishes rejected by the causal loop guard"),
	)
	if err != nil {
		return nil, err
	}

	handlerLatency, err := meter.Float64Histogram("eventbus.handler.latency_ms",
		metric.WithDescription("Handler latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		published:      published,
		deliveries:     deliveries,
		failures:       failures,
		retries:        retries,
		deadLettered:   deadLettered,
		loopRejections: loopRejections,
		handlerLatency: handlerLatency,
	}, nil
}

// NewMetricsRecorder returns an OpenTelemetry recorder using provider, or the
// global provider when nil. Falls back to NoopMetrics if instruments cannot be created.
func NewMetricsRecorder(provider metric.MeterProvider) MetricsRecorder {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	m, err := newOtelMetrics(provider)
	if err != nil {
		slog.Warn("[EventBus] Metrics initialization failed, using no-op recorder",
			"error", err,
		)
		return NoopMetrics{}
	}
	return m
}

func (m *otelMetrics) RecordPublished(ctx context.Context, eventType v1.EventType, priority v1.Priority) {
	m.published.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", string(eventType)),
		attribute.String("priority", priority.String()),
	))
}

func (m *otelMetrics) RecordDelivery(ctx context.Context, eventType v1.EventType, handler string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("event_type", string(eventType)),
		attribute.String("handler", handler),
	)

	m.deliveries.Add(ctx, 1, attrs)
	m.handlerLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	if err != nil {
		m.failures.Add(ctx, 1, attrs)
	}
}

func (m *otelMetrics) RecordRetry(ctx context.Context, eventType v1.EventType, attempt int) {
	m.retries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", string(eventType)),
		attribute.Int("attempt", attempt),
	))
}

func (m *otelMetrics) RecordDeadLettered(ctx context.Context, eventType v1.EventType) {
	m.deadLettered.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", string(eventType))))
}

func (m *otelMetrics) RecordLoopRejection(ctx context.Context, eventType v1.EventType, reason string) {
	m.loopRejections.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", string(eventType)),
		attribute.String("reason", reason),
	))
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) RecordPublished(context.Context, v1.EventType, v1.Priority) {}

func (NoopMetrics) RecordDelivery(context.Context, v1.EventType, string, time.Duration, error) {}

func (NoopMetrics) RecordRetry(context.Context, v1.EventType, int) {}

func (NoopMetrics) RecordDeadLettered(context.Context, v1.EventType) {}

func (NoopMetrics) RecordLoopRejection(context.Context, v1.EventType, string) {}
