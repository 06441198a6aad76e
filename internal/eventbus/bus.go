// Package eventbus delivers domain events to in-process module handlers.
//
// Published events wait in four priority buckets. A periodic drain pass
// delivers them in strict priority order, FIFO within a bucket, invoking every
// handler registered for the event type one after another. A failing handler
// is retried with exponential backoff; once the retry budget is spent the
// event goes to the dead letter sink.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
	v1 "github.com/xkorin-lab/xkorin/internal/api/v1"
)

const (
	defaultMaxPerTick     = 1000
	maxDrainPasses        = 100
	shutdownDrainDeadline = 30 * time.Second
)

var (
	// ErrHandlerTimeout is recorded when a handler exceeds its time budget.
	ErrHandlerTimeout = errors.New("handler timed out")

	// ErrInFlight is returned by Redeliver while the event is still queued or being delivered.
	ErrInFlight = errors.New("event already queued for delivery")
)

// HandlerFunc reacts to one event. Returning an error schedules a retry.
type HandlerFunc func(ctx context.Context, event *v1.Event) error

// Registration binds a named handler to one event type.
type Registration struct {
	EventType v1.EventType
	Name      string
	Handle    HandlerFunc
}

// DeadLetterSink receives events whose retry budget is exhausted.
type DeadLetterSink interface {
	// DeadLetter stores the event with the handlers that still fail.
	DeadLetter(ctx context.Context, event *v1.Event, failedHandlers []string, cause error) error

	// Redelivered reports that a dead-lettered event was redelivered without failure.
	Redelivered(ctx context.Context, eventID string) error
}

// Config tunes delivery.
type Config struct {
	MaxRetries         int
	RetryBaseDelay     time.Duration
	RetryMaxDelay      time.Duration
	ProcessingInterval time.Duration
	HandlerTimeout     time.Duration
	MaxPerTick         int
}

// QueueStats is the depth of each priority bucket.
type QueueStats struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Normal   int `json:"normal"`
	Low      int `json:"low"`
	Total    int `json:"total"`
}

// Bus owns the handler registry and the priority queues.
type Bus struct {
	cfg     Config
	retry   retryPolicy
	sink    DeadLetterSink
	metrics MetricsRecorder
	nowFn   func() time.Time

	regMu    sync.RWMutex
	handlers map[v1.EventType][]Registration

	mu       sync.Mutex
	queues   priorityQueues
	inflight map[string]int
	tick     uint64

	// drainMu keeps drain passes from overlapping.
	drainMu sync.Mutex
}

// NewBus creates a bus. A nil sink drops exhausted events after logging them.
func NewBus(cfg Config, sink DeadLetterSink, metrics MetricsRecorder) *Bus {
	if cfg.MaxPerTick <= 0 {
		cfg.MaxPerTick = defaultMaxPerTick
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &Bus{
		cfg:      cfg,
		retry:    retryPolicy{base: cfg.RetryBaseDelay, maxDelay: cfg.RetryMaxDelay},
		sink:     sink,
		metrics:  metrics,
		nowFn:    time.Now,
		handlers: make(map[v1.EventType][]Registration),
		inflight: make(map[string]int),
	}
}

// RegisterHandler appends a handler to its event type's list.
// Names must be unique per event type; they identify failed handlers in the dead letter queue.
func (b *Bus) RegisterHandler(reg Registration) error {
	if !reg.EventType.Valid() {
		return fmt.Errorf("register handler %q: unknown event type %q", reg.Name, reg.EventType)
	}
	if reg.Name == "" {
		return fmt.Errorf("register handler for %s: name is required", reg.EventType)
	}
	if reg.Handle == nil {
		return fmt.Errorf("register handler %q: handle func is nil", reg.Name)
	}

	b.regMu.Lock()
	defer b.regMu.Unlock()

	for _, existing := range b.handlers[reg.EventType] {
		if existing.Name == reg.Name {
			return fmt.Errorf("register handler %q: already registered for %s", reg.Name, reg.EventType)
		}
	}
	b.handlers[reg.EventType] = append(b.handlers[reg.EventType], reg)

	slog.Debug("[EventBus] Handler registered",
		"event_type", reg.EventType,
		"handler", reg.Name,
	)
	return nil
}

// RegisterAll registers a manifest in order, stopping at the first error.
func (b *Bus) RegisterAll(regs []Registration) error {
	for _, reg := range regs {
		if err := b.RegisterHandler(reg); err != nil {
			return err
		}
	}
	return nil
}

// Handlers returns a copy of the handlers registered for eventType.
func (b *Bus) Handlers(eventType v1.EventType) []Registration {
	b.regMu.RLock()
	defer b.regMu.RUnlock()
	return append([]Registration(nil), b.handlers[eventType]...)
}

// Enqueue places the event in its priority bucket. It does not wait for delivery.
func (b *Bus) Enqueue(event *v1.Event) {
	b.push(&entry{event: event})
}

// Redeliver enqueues a dead-lettered event for the named handlers only.
// Names no longer registered are dropped; when none remain, every handler runs.
func (b *Bus) Redeliver(event *v1.Event, handlers []string) error {
	registered := lo.Map(b.Handlers(event.Type), func(r Registration, _ int) string { return r.Name })
	handlers = lo.Intersect(handlers, registered)
	if len(handlers) == 0 {
		handlers = nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.inflight[event.ID] > 0 {
		return ErrInFlight
	}
	b.inflight[event.ID]++
	b.queues.push(&entry{event: event, handlers: handlers, redelivery: true})
	return nil
}

// DeliverNow dispatches the event immediately on the caller's goroutine.
// A failure falls back to the regular retry path.
func (b *Bus) DeliverNow(ctx context.Context, event *v1.Event) {
	b.mu.Lock()
	b.inflight[event.ID]++
	b.mu.Unlock()

	b.dispatch(ctx, &entry{event: event})
}

// Stats reports the current queue depths.
func (b *Bus) Stats() QueueStats {
	b.mu.Lock()
	counts := b.queues.counts()
	b.mu.Unlock()

	return QueueStats{
		Critical: counts[v1.PriorityCritical],
		High:     counts[v1.PriorityHigh],
		Normal:   counts[v1.PriorityNormal],
		Low:      counts[v1.PriorityLow],
		Total:    lo.Sum(counts[:]),
	}
}

// ProcessQueues runs one drain pass and returns the number of entries dispatched.
// Entries published by handlers during the pass are delivered in the same pass.
func (b *Bus) ProcessQueues(ctx context.Context) int {
	b.drainMu.Lock()
	defer b.drainMu.Unlock()

	b.mu.Lock()
	b.tick++
	tick := b.tick
	b.mu.Unlock()

	processed := 0
	for processed < b.cfg.MaxPerTick {
		if ctx.Err() != nil {
			break
		}

		b.mu.Lock()
		e := b.queues.pop(b.nowFn(), tick)
		if e != nil {
			e.tick = tick
		}
		b.mu.Unlock()

		if e == nil {
			break
		}
		b.dispatch(ctx, e)
		processed++
	}

	if processed == b.cfg.MaxPerTick {
		slog.Warn("[EventBus] Per-pass limit reached, remaining entries wait for the next tick",
			"max_per_tick", b.cfg.MaxPerTick,
		)
	}
	return processed
}

// Start drains the queues every ProcessingInterval until ctx is cancelled,
// then runs a bounded final drain.
func (b *Bus) Start(ctx context.Context) error {
	ticker := time.NewTicker(b.cfg.ProcessingInterval)
	defer ticker.Stop()

	slog.Info("[EventBus] Starting delivery loop",
		"interval", b.cfg.ProcessingInterval,
		"max_retries", b.cfg.MaxRetries,
		"handler_timeout", b.cfg.HandlerTimeout,
	)

	for {
		select {
		case <-ticker.C:
			b.ProcessQueues(ctx)
		case <-ctx.Done():
			slog.Info("[EventBus] Stopping (context cancelled), running final drain")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownDrainDeadline)
			defer cancel()
			b.drain(shutdownCtx)

			stats := b.Stats()
			if stats.Total > 0 {
				slog.Warn("[EventBus] Entries left undelivered at shutdown",
					"remaining", stats.Total,
					"note", "events remain in the event store and can be replayed",
				)
			}
			return nil
		}
	}
}

// drain runs passes until one dispatches nothing or the safety limit is hit.
func (b *Bus) drain(ctx context.Context) {
	for pass := 0; pass < maxDrainPasses; pass++ {
		if ctx.Err() != nil || b.ProcessQueues(ctx) == 0 {
			return
		}
	}
	slog.Warn("[EventBus] Max drain passes reached", "max_passes", maxDrainPasses)
}

func (b *Bus) push(e *entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inflight[e.event.ID]++
	b.queues.push(e)
}

func (b *Bus) requeue(e *entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e.tick == 0 {
		e.tick = b.tick
	}
	b.queues.push(e)
}

// finish releases the entry's in-flight slot.
func (b *Bus) finish(e *entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := e.event.ID
	if b.inflight[id] <= 1 {
		delete(b.inflight, id)
		return
	}
	b.inflight[id]--
}

func (b *Bus) targets(e *entry) []Registration {
	regs := b.Handlers(e.event.Type)
	if e.handlers == nil {
		return regs
	}
	return lo.Filter(regs, func(r Registration, _ int) bool {
		return lo.Contains(e.handlers, r.Name)
	})
}

// dispatch runs the entry's handlers sequentially and records the outcome.
func (b *Bus) dispatch(ctx context.Context, e *entry) {
	event := e.event
	regs := b.targets(e)

	var (
		failed  []string
		lastErr error
	)
	for _, reg := range regs {
		start := b.nowFn()
		err := b.invoke(ctx, reg, event)
		b.metrics.RecordDelivery(ctx, event.Type, reg.Name, b.nowFn().Sub(start), err)

		if err != nil {
			failed = append(failed, reg.Name)
			lastErr = fmt.Errorf("%s: %w", reg.Name, err)
			slog.Warn("[EventBus] Handler failed",
				"event_id", event.ID,
				"event_type", event.Type,
				"handler", reg.Name,
				"attempt", e.attempt+1,
				"error", err,
			)
			continue
		}
		slog.Debug("[EventBus] Handler succeeded",
			"event_id", event.ID,
			"event_type", event.Type,
			"handler", reg.Name,
		)
	}

	if len(failed) == 0 {
		b.finish(e)
		if e.redelivery && b.sink != nil {
			if err := b.sink.Redelivered(ctx, event.ID); err != nil {
				slog.Warn("[EventBus] Failed to record successful redelivery",
					"event_id", event.ID,
					"error", err,
				)
			}
		}
		return
	}

	e.handlers = failed
	e.lastErr = lastErr

	if e.attempt < b.cfg.MaxRetries {
		delay := b.retry.delay(e.attempt)
		e.attempt++
		e.nextAttemptAt = b.nowFn().Add(delay)
		b.requeue(e)
		b.metrics.RecordRetry(ctx, event.Type, e.attempt)

		slog.Info("[EventBus] Scheduled retry",
			"event_id", event.ID,
			"event_type", event.Type,
			"attempt", e.attempt,
			"delay", delay,
			"handlers", failed,
		)
		return
	}

	b.deadLetter(ctx, e)
}

func (b *Bus) deadLetter(ctx context.Context, e *entry) {
	event := e.event

	if b.sink == nil {
		slog.Error("[EventBus] Retries exhausted and dead letter queue disabled, dropping event",
			"event_id", event.ID,
			"event_type", event.Type,
			"handlers", e.handlers,
			"error", e.lastErr,
		)
		b.finish(e)
		return
	}

	if err := b.sink.DeadLetter(ctx, event, e.handlers, e.lastErr); err != nil {
		e.nextAttemptAt = b.nowFn().Add(b.retry.maxDelay)
		b.requeue(e)
		slog.Error("[EventBus] Failed to dead-letter event, keeping it queued",
			"event_id", event.ID,
			"event_type", event.Type,
			"retry_in", b.retry.maxDelay,
			"error", err,
		)
		return
	}

	b.finish(e)
	b.metrics.RecordDeadLettered(ctx, event.Type)
	slog.Error("[EventBus] Retries exhausted, event moved to dead letter queue",
		"event_id", event.ID,
		"event_type", event.Type,
		"attempts", e.attempt+1,
		"handlers", e.handlers,
		"error", e.lastErr,
	)
}

// invoke runs one handler under the configured timeout. A handler that ignores
// its context is abandoned when the timeout fires. Panics become errors.
func (b *Bus) invoke(ctx context.Context, reg Registration, event *v1.Event) error {
	if b.cfg.HandlerTimeout <= 0 {
		return safeCall(ctx, reg.Handle, event)
	}

	hctx, cancel := context.WithTimeout(ctx, b.cfg.HandlerTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- safeCall(hctx, reg.Handle, event)
	}()

	select {
	case err := <-done:
		return err
	case <-hctx.Done():
		if errors.Is(hctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", ErrHandlerTimeout, b.cfg.HandlerTimeout)
		}
		return hctx.Err()
	}
}

func safeCall(ctx context.Context, fn HandlerFunc, event *v1.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return fn(ctx, event)
}
