package eventbus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	v1 "github.com/xkorin-lab/xkorin/internal/api/v1"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestRecorder(t *testing.T) (MetricsRecorder, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("meter provider shutdown: %v", err)
		}
	})

	recorder := NewMetricsRecorder(provider)
	_, isNoop := recorder.(NoopMetrics)
	require.False(t, isNoop)
	return recorder, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return &rm
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumOf(t *testing.T, rm *metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	m := findMetric(rm, name)
	require.NotNil(t, m, "metric %s not recorded", name)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", name)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_BusActivity(t *testing.T) {
	recorder, reader := newTestRecorder(t)
	sink := &recordingSink{}
	cfg := testConfig()
	cfg.MaxRetries = 1
	bus := NewBus(cfg, sink, recorder)
	clock := newTestClock()
	bus.nowFn = clock.Now
	ctx := context.Background()

	require.NoError(t, bus.RegisterHandler(Registration{
		EventType: v1.AttemptGraded,
		Name:      "gamification.attempt_graded",
		Handle:    func(ctx context.Context, e *v1.Event) error { return errors.New("boom") },
	}))

	bus.Enqueue(newEvent("evt-1", v1.AttemptGraded, v1.PriorityHigh))
	bus.ProcessQueues(ctx)
	clock.Advance(cfg.RetryBaseDelay)
	bus.ProcessQueues(ctx)
	require.Len(t, sink.deadLetters(), 1)

	rm := collectMetrics(t, reader)
	require.Equal(t, int64(2), sumOf(t, rm, "eventbus.deliveries"))
	require.Equal(t, int64(2), sumOf(t, rm, "eventbus.handler.failures"))
	require.Equal(t, int64(1), sumOf(t, rm, "eventbus.retries"))
	require.Equal(t, int64(1), sumOf(t, rm, "eventbus.dead_lettered"))

	latency := findMetric(rm, "eventbus.handler.latency_ms")
	require.NotNil(t, latency)
	hist, ok := latency.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	require.Equal(t, uint64(2), hist.DataPoints[0].Count)
}

func TestMetrics_PublisherActivity(t *testing.T) {
	recorder, reader := newTestRecorder(t)
	bus, _ := newTestBus(t, &recordingSink{})
	pub := NewPublisher(bus, nil, nil, PublisherConfig{}, recorder)
	ctx := context.Background()

	root, err := pub.Publish(ctx, v1.AttemptGraded, nil)
	require.NoError(t, err)
	child, err := pub.Publish(ctx, v1.XPGained, nil, CausedBy(root))
	require.NoError(t, err)
	_, err = pub.Publish(ctx, v1.AttemptGraded, nil, CausedBy(child))
	require.ErrorIs(t, err, ErrCausalCycle)

	rm := collectMetrics(t, reader)
	require.Equal(t, int64(2), sumOf(t, rm, "eventbus.events.published"))
	require.Equal(t, int64(1), sumOf(t, rm, "eventbus.loop.rejections"))
}
