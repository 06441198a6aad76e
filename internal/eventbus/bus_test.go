package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	v1 "github.com/xkorin-lab/xkorin/internal/api/v1"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type deadLetterCall struct {
	event    *v1.Event
	handlers []string
	cause    error
}

type recordingSink struct {
	mu          sync.Mutex
	dead        []deadLetterCall
	redelivered []string
	failWith    error
}

func (s *recordingSink) DeadLetter(ctx context.Context, event *v1.Event, failedHandlers []string, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.dead = append(s.dead, deadLetterCall{event: event, handlers: failedHandlers, cause: cause})
	return nil
}

func (s *recordingSink) Redelivered(ctx context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redelivered = append(s.redelivered, eventID)
	return nil
}

func (s *recordingSink) deadLetters() []deadLetterCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]deadLetterCall(nil), s.dead...)
}

func testConfig() Config {
	return Config{
		MaxRetries:         3,
		RetryBaseDelay:     time.Second,
		RetryMaxDelay:      time.Minute,
		ProcessingInterval: 10 * time.Millisecond,
		HandlerTimeout:     time.Second,
		MaxPerTick:         100,
	}
}

func newTestBus(t *testing.T, sink DeadLetterSink) (*Bus, *testClock) {
	t.Helper()
	clock := newTestClock()
	bus := NewBus(testConfig(), sink, nil)
	bus.nowFn = clock.Now
	return bus, clock
}

func newEvent(id string, typ v1.EventType, p v1.Priority) *v1.Event {
	return &v1.Event{
		ID:        id,
		Type:      typ,
		Priority:  p,
		Timestamp: time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC),
		Metadata:  v1.Metadata{CorrelationID: "corr-" + id, Version: 1},
		Data:      map[string]interface{}{},
	}
}

func TestBus_DeliversInPriorityOrder(t *testing.T) {
	bus, _ := newTestBus(t, &recordingSink{})

	var order []string
	record := func(ctx context.Context, e *v1.Event) error {
		order = append(order, e.ID)
		return nil
	}
	require.NoError(t, bus.RegisterHandler(Registration{EventType: v1.UserLogin, Name: "audit.login", Handle: record}))

	bus.Enqueue(newEvent("low", v1.UserLogin, v1.PriorityLow))
	bus.Enqueue(newEvent("critical", v1.UserLogin, v1.PriorityCritical))
	bus.Enqueue(newEvent("normal", v1.UserLogin, v1.PriorityNormal))
	bus.Enqueue(newEvent("high", v1.UserLogin, v1.PriorityHigh))

	require.Equal(t, QueueStats{Critical: 1, High: 1, Normal: 1, Low: 1, Total: 4}, bus.Stats())

	require.Equal(t, 4, bus.ProcessQueues(context.Background()))
	require.Equal(t, []string{"critical", "high", "normal", "low"}, order)
	require.Equal(t, 0, bus.Stats().Total)
}

func TestBus_FIFOWithinBucket(t *testing.T) {
	bus, _ := newTestBus(t, &recordingSink{})

	var order []string
	require.NoError(t, bus.RegisterHandler(Registration{
		EventType: v1.UserLogin,
		Name:      "audit.login",
		Handle: func(ctx context.Context, e *v1.Event) error {
			order = append(order, e.ID)
			return nil
		},
	}))

	for _, id := range []string{"a", "b", "c"} {
		bus.Enqueue(newEvent(id, v1.UserLogin, v1.PriorityNormal))
	}
	bus.ProcessQueues(context.Background())
	require.Equal(t, []string{"a", "b", "c"}, order)
}

func TestBus_RetriesThenDeadLetters(t *testing.T) {
	sink := &recordingSink{}
	bus, clock := newTestBus(t, sink)
	ctx := context.Background()

	calls := 0
	require.NoError(t, bus.RegisterHandler(Registration{
		EventType: v1.XPGained,
		Name:      "messaging.xp_gained",
		Handle: func(ctx context.Context, e *v1.Event) error {
			calls++
			return errors.New("smtp unavailable")
		},
	}))

	bus.Enqueue(newEvent("evt-1", v1.XPGained, v1.PriorityNormal))

	require.Equal(t, 1, bus.ProcessQueues(ctx))
	require.Equal(t, 1, bus.Stats().Total)

	// Not due yet: the entry is skipped.
	require.Equal(t, 0, bus.ProcessQueues(ctx))

	for _, delay := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second} {
		clock.Advance(delay - time.Millisecond)
		require.Equal(t, 0, bus.ProcessQueues(ctx), "retry ran before %s elapsed", delay)
		clock.Advance(time.Millisecond)
		require.Equal(t, 1, bus.ProcessQueues(ctx))
	}

	require.Equal(t, 4, calls, "initial delivery plus three retries")
	dead := sink.deadLetters()
	require.Len(t, dead, 1)
	require.Equal(t, "evt-1", dead[0].event.ID)
	require.Equal(t, []string{"messaging.xp_gained"}, dead[0].handlers)
	require.ErrorContains(t, dead[0].cause, "smtp unavailable")
	require.Equal(t, 0, bus.Stats().Total)
}

func TestBus_RetriesOnlyFailedHandlers(t *testing.T) {
	sink := &recordingSink{}
	bus, clock := newTestBus(t, sink)
	ctx := context.Background()

	var okCalls, flakyCalls int
	require.NoError(t, bus.RegisterAll([]Registration{
		{
			EventType: v1.AttemptGraded,
			Name:      "analytics.attempt_graded",
			Handle: func(ctx context.Context, e *v1.Event) error {
				okCalls++
				return nil
			},
		},
		{
			EventType: v1.AttemptGraded,
			Name:      "gamification.attempt_graded",
			Handle: func(ctx context.Context, e *v1.Event) error {
				flakyCalls++
				if flakyCalls == 1 {
					return errors.New("ledger busy")
				}
				return nil
			},
		},
	}))

	bus.Enqueue(newEvent("evt-1", v1.AttemptGraded, v1.PriorityHigh))
	bus.ProcessQueues(ctx)
	clock.Advance(time.Second)
	bus.ProcessQueues(ctx)

	require.Equal(t, 1, okCalls, "successful handler is not re-run")
	require.Equal(t, 2, flakyCalls)
	require.Empty(t, sink.deadLetters())
	require.Equal(t, 0, bus.Stats().Total)
}

func TestBus_HandlerTimeoutIsRetryable(t *testing.T) {
	sink := &recordingSink{}
	cfg := testConfig()
	cfg.MaxRetries = 0
	cfg.HandlerTimeout = 20 * time.Millisecond
	bus := NewBus(cfg, sink, nil)

	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	require.NoError(t, bus.RegisterHandler(Registration{
		EventType: v1.LevelUp,
		Name:      "messaging.level_up",
		Handle: func(ctx context.Context, e *v1.Event) error {
			<-release
			return nil
		},
	}))

	bus.Enqueue(newEvent("evt-1", v1.LevelUp, v1.PriorityHigh))
	bus.ProcessQueues(context.Background())

	dead := sink.deadLetters()
	require.Len(t, dead, 1)
	require.ErrorIs(t, dead[0].cause, ErrHandlerTimeout)
}

func TestBus_PanicIsRecordedAsFailure(t *testing.T) {
	sink := &recordingSink{}
	cfg := testConfig()
	cfg.MaxRetries = 0
	bus := NewBus(cfg, sink, nil)

	other := 0
	require.NoError(t, bus.RegisterAll([]Registration{
		{
			EventType: v1.BadgeEarned,
			Name:      "broken",
			Handle: func(ctx context.Context, e *v1.Event) error {
				var m map[string]int
				m["boom"] = 1
				return nil
			},
		},
		{
			EventType: v1.BadgeEarned,
			Name:      "messaging.badge_earned",
			Handle: func(ctx context.Context, e *v1.Event) error {
				other++
				return nil
			},
		},
	}))

	bus.Enqueue(newEvent("evt-1", v1.BadgeEarned, v1.PriorityHigh))
	bus.ProcessQueues(context.Background())

	require.Equal(t, 1, other)
	dead := sink.deadLetters()
	require.Len(t, dead, 1)
	require.Equal(t, []string{"broken"}, dead[0].handlers)
	require.ErrorContains(t, dead[0].cause, "handler panic")
}

func TestBus_DeadLetterDisabledDropsEntry(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetries = 0
	bus := NewBus(cfg, nil, nil)

	require.NoError(t, bus.RegisterHandler(Registration{
		EventType: v1.XPGained,
		Name:      "failing",
		Handle:    func(ctx context.Context, e *v1.Event) error { return errors.New("nope") },
	}))

	bus.Enqueue(newEvent("evt-1", v1.XPGained, v1.PriorityNormal))
	require.Equal(t, 1, bus.ProcessQueues(context.Background()))
	require.Equal(t, 0, bus.Stats().Total)
}

func TestBus_SinkFailureKeepsEntryQueued(t *testing.T) {
	sink := &recordingSink{failWith: errors.New("db down")}
	cfg := testConfig()
	cfg.MaxRetries = 0
	bus := NewBus(cfg, sink, nil)
	clock := newTestClock()
	bus.nowFn = clock.Now

	require.NoError(t, bus.RegisterHandler(Registration{
		EventType: v1.XPGained,
		Name:      "failing",
		Handle:    func(ctx context.Context, e *v1.Event) error { return errors.New("nope") },
	}))

	bus.Enqueue(newEvent("evt-1", v1.XPGained, v1.PriorityNormal))
	bus.ProcessQueues(context.Background())
	require.Equal(t, 1, bus.Stats().Total)

	sink.mu.Lock()
	sink.failWith = nil
	sink.mu.Unlock()

	clock.Advance(cfg.RetryMaxDelay)
	bus.ProcessQueues(context.Background())
	require.Len(t, sink.deadLetters(), 1)
	require.Equal(t, 0, bus.Stats().Total)
}

func TestBus_RedeliverRunsNamedHandlersAndReportsSuccess(t *testing.T) {
	sink := &recordingSink{}
	bus, _ := newTestBus(t, sink)

	var ran []string
	handler := func(name string) Registration {
		return Registration{
			EventType: v1.StudentEnrolled,
			Name:      name,
			Handle: func(ctx context.Context, e *v1.Event) error {
				ran = append(ran, name)
				return nil
			},
		}
	}
	require.NoError(t, bus.RegisterAll([]Registration{handler("gamification.student_enrolled"), handler("messaging.student_enrolled")}))

	event := newEvent("evt-1", v1.StudentEnrolled, v1.PriorityNormal)
	require.NoError(t, bus.Redeliver(event, []string{"messaging.student_enrolled", "removed.handler"}))
	require.ErrorIs(t, bus.Redeliver(event, nil), ErrInFlight)

	bus.ProcessQueues(context.Background())

	require.Equal(t, []string{"messaging.student_enrolled"}, ran)
	require.Equal(t, []string{"evt-1"}, sink.redelivered)

	// Delivered, so no longer in flight.
	require.NoError(t, bus.Redeliver(event, []string{"removed.handler"}))
	bus.ProcessQueues(context.Background())
	require.Len(t, ran, 3, "unknown names fall back to every handler")
}

func TestBus_RegisterHandlerValidation(t *testing.T) {
	bus, _ := newTestBus(t, nil)
	noop := func(ctx context.Context, e *v1.Event) error { return nil }

	require.Error(t, bus.RegisterHandler(Registration{EventType: "NOPE", Name: "x", Handle: noop}))
	require.Error(t, bus.RegisterHandler(Registration{EventType: v1.LevelUp, Handle: noop}))
	require.Error(t, bus.RegisterHandler(Registration{EventType: v1.LevelUp, Name: "x"}))

	require.NoError(t, bus.RegisterHandler(Registration{EventType: v1.LevelUp, Name: "x", Handle: noop}))
	require.ErrorContains(t, bus.RegisterHandler(Registration{EventType: v1.LevelUp, Name: "x", Handle: noop}), "already registered")
	require.Len(t, bus.Handlers(v1.LevelUp), 1)
}

func TestBus_PerTickLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPerTick = 2
	bus := NewBus(cfg, nil, nil)

	for _, id := range []string{"a", "b", "c"} {
		bus.Enqueue(newEvent(id, v1.UserLogin, v1.PriorityLow))
	}
	require.Equal(t, 2, bus.ProcessQueues(context.Background()))
	require.Equal(t, 1, bus.ProcessQueues(context.Background()))
}

func TestBus_StartDrainsOnShutdown(t *testing.T) {
	cfg := testConfig()
	cfg.ProcessingInterval = time.Hour
	bus := NewBus(cfg, nil, nil)

	delivered := make(chan string, 1)
	require.NoError(t, bus.RegisterHandler(Registration{
		EventType: v1.UserLogout,
		Name:      "audit.logout",
		Handle: func(ctx context.Context, e *v1.Event) error {
			delivered <- e.ID
			return nil
		},
	}))
	bus.Enqueue(newEvent("evt-1", v1.UserLogout, v1.PriorityLow))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, bus.Start(ctx))
	require.Equal(t, "evt-1", <-delivered)
}

func TestRetryPolicyDelay(t *testing.T) {
	p := retryPolicy{base: time.Second, maxDelay: 5 * time.Second}

	require.Equal(t, time.Second, p.delay(0))
	require.Equal(t, 2*time.Second, p.delay(1))
	require.Equal(t, 4*time.Second, p.delay(2))
	require.Equal(t, 5*time.Second, p.delay(3))
	require.Equal(t, 5*time.Second, p.delay(10))
}
