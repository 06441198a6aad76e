// Package deadletter holds events whose handlers kept failing after retries and
// provides the operator tooling around them: listing, stats, redelivery,
// resolution and cleanup of resolved entries.
package deadletter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	v1 "github.com/xkorin-lab/xkorin/internal/api/v1"
	"github.com/xkorin-lab/xkorin/internal/core/storage"
	"github.com/xkorin-lab/xkorin/internal/eventbus"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000

	// DefaultCleanupDays is the retention used when cleanup is called without one.
	DefaultCleanupDays = 30

	// retryBatchSize bounds the entries redelivered by one retry call.
	retryBatchSize = MaxListLimit
)

// ErrInvalidRetention rejects cleanup thresholds below one day.
var ErrInvalidRetention = errors.New("olderThanDays must be at least 1")

// Redeliverer puts a dead-lettered event back on the bus.
type Redeliverer interface {
	Redeliver(event *v1.Event, handlers []string) error
}

// Entry is the operator view of a dead letter.
type Entry struct {
	ID           string     `json:"id"`
	EventID      string     `json:"eventId"`
	EventType    string     `json:"eventType"`
	Handlers     []string   `json:"handlers"`
	Error        string     `json:"error"`
	AttemptCount int        `json:"attemptCount"`
	LastAttempt  time.Time  `json:"lastAttempt"`
	Resolved     bool       `json:"resolved"`
	ResolvedAt   *time.Time `json:"resolvedAt"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Stats summarises the queue. OldestUnresolvedAge is in seconds, 0 when nothing is pending.
type Stats struct {
	Total               int            `json:"total"`
	Unresolved          int            `json:"unresolved"`
	MaxRetriesReached   int            `json:"maxRetriesReached"`
	ByType              map[string]int `json:"byType"`
	OldestUnresolvedAge int64          `json:"oldestUnresolvedAge"`
}

// RetryResult counts the outcome of one retry call.
// Skipped entries were still queued on the bus from an earlier retry.
type RetryResult struct {
	Retried int `json:"retried"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// CleanupResult reports a cleanup call.
type CleanupResult struct {
	Deleted       int64 `json:"deleted"`
	OlderThanDays int   `json:"olderThanDays"`
}

// Service implements eventbus.DeadLetterSink on top of a DeadLetterStore.
type Service struct {
	store          storage.DeadLetterStore
	bus            Redeliverer
	maxAutoRetries int

	nowFn func() time.Time
	newID func() string
}

var _ eventbus.DeadLetterSink = (*Service)(nil)

// NewService wires the dead letter queue. maxAutoRetries bounds the automatic
// retries and marks entries as having reached their retry limit in stats.
func NewService(store storage.DeadLetterStore, bus Redeliverer, maxAutoRetries int) *Service {
	if store == nil || bus == nil {
		panic("deadletter: service requires a store and a bus")
	}
	if maxAutoRetries <= 0 {
		maxAutoRetries = 3
	}
	return &Service{
		store:          store,
		bus:            bus,
		maxAutoRetries: maxAutoRetries,
		nowFn:          time.Now,
		newID:          func() string { return uuid.New().String() },
	}
}

// DeadLetter records an event whose handlers exhausted their retries.
// An event already in the queue is refreshed in place and marked unresolved.
func (s *Service) DeadLetter(ctx context.Context, event *v1.Event, failedHandlers []string, cause error) error {
	now := s.nowFn().UTC()
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}

	entry := &storage.DeadLetter{
		ID:           s.newID(),
		EventID:      event.ID,
		EventType:    event.Type,
		Event:        event,
		Handlers:     failedHandlers,
		Error:        msg,
		AttemptCount: 1,
		LastAttempt:  now,
		CreatedAt:    now,
	}
	if err := s.store.Upsert(ctx, entry); err != nil {
		return fmt.Errorf("dead letter %s: %w", event.ID, err)
	}

	slog.Warn("[DLQ] Event added to dead letter queue",
		"event_id", event.ID,
		"event_type", event.Type,
		"handlers", failedHandlers,
		"attempt_count", entry.AttemptCount,
		"error", msg,
	)
	return nil
}

// Redelivered resolves the entry of an event whose redelivery succeeded.
func (s *Service) Redelivered(ctx context.Context, eventID string) error {
	err := s.store.Resolve(ctx, eventID, s.nowFn().UTC())
	if errors.Is(err, storage.ErrNotFound) {
		slog.Debug("[DLQ] Redelivered event has no entry", "event_id", eventID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve redelivered %s: %w", eventID, err)
	}
	slog.Info("[DLQ] Redelivery succeeded, entry resolved", "event_id", eventID)
	return nil
}

// GetUnresolved lists unresolved entries newest first. limit is clamped to
// [1, MaxListLimit] with DefaultListLimit for zero.
func (s *Service) GetUnresolved(ctx context.Context, eventType v1.EventType, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)

	letters, err := s.store.ListUnresolved(ctx, storage.DeadLetterFilter{EventType: eventType, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("list unresolved dead letters: %w", err)
	}
	return lo.Map(letters, func(d *storage.DeadLetter, _ int) Entry { return toEntry(d) }), nil
}

// GetStats aggregates the queue.
func (s *Service) GetStats(ctx context.Context) (Stats, error) {
	raw, err := s.store.Stats(ctx, s.maxAutoRetries)
	if err != nil {
		return Stats{}, fmt.Errorf("dead letter stats: %w", err)
	}

	stats := Stats{
		Total:             raw.Total,
		Unresolved:        raw.Unresolved,
		MaxRetriesReached: raw.MaxRetriesReached,
		ByType:            lo.MapKeys(raw.ByType, func(_ int, t v1.EventType) string { return string(t) }),
	}
	if raw.OldestUnresolved != nil {
		stats.OldestUnresolvedAge = int64(s.nowFn().Sub(*raw.OldestUnresolved).Seconds())
	}
	return stats, nil
}

// RetryFailed redelivers every unresolved entry to the handlers that failed it
// and bumps its attempt count. It does not resolve anything; entries resolve
// once their redelivery completes without failure or an operator resolves them.
func (s *Service) RetryFailed(ctx context.Context) (RetryResult, error) {
	return s.retry(ctx, storage.DeadLetterFilter{Limit: retryBatchSize})
}

// AutoRetry redelivers entries below the automatic retry limit that were last
// attempted more than minAge ago.
func (s *Service) AutoRetry(ctx context.Context, minAge time.Duration) (RetryResult, error) {
	return s.retry(ctx, storage.DeadLetterFilter{
		MaxAttempts:       s.maxAutoRetries,
		LastAttemptBefore: s.nowFn().UTC().Add(-minAge),
		Limit:             retryBatchSize,
	})
}

func (s *Service) retry(ctx context.Context, filter storage.DeadLetterFilter) (RetryResult, error) {
	var result RetryResult

	letters, err := s.store.ListUnresolved(ctx, filter)
	if err != nil {
		return result, fmt.Errorf("list dead letters for retry: %w", err)
	}

	for _, d := range letters {
		if ctx.Err() != nil {
			break
		}
		if d.Event == nil {
			slog.Error("[DLQ] Entry has no stored event, cannot redeliver", "event_id", d.EventID)
			result.Failed++
			continue
		}

		if err := s.bus.Redeliver(d.Event, d.Handlers); err != nil {
			if errors.Is(err, eventbus.ErrInFlight) {
				result.Skipped++
				continue
			}
			slog.Error("[DLQ] Redelivery failed", "event_id", d.EventID, "error", err)
			result.Failed++
			continue
		}

		if err := s.store.IncrementAttempt(ctx, d.EventID, s.nowFn().UTC()); err != nil {
			slog.Warn("[DLQ] Failed to record retry attempt",
				"event_id", d.EventID,
				"error", err,
			)
		}
		result.Retried++
	}

	if len(letters) > 0 {
		slog.Info("[DLQ] Retry pass complete",
			"retried", result.Retried,
			"failed", result.Failed,
			"skipped", result.Skipped,
		)
	}
	return result, nil
}

// Resolve marks one entry resolved. Resolving twice succeeds and keeps the
// first resolution time. Unknown ids return storage.ErrNotFound.
func (s *Service) Resolve(ctx context.Context, eventID string) error {
	if err := s.store.Resolve(ctx, eventID, s.nowFn().UTC()); err != nil {
		return fmt.Errorf("resolve dead letter %s: %w", eventID, err)
	}
	slog.Info("[DLQ] Entry resolved", "event_id", eventID)
	return nil
}

// Cleanup deletes resolved entries resolved more than olderThanDays ago.
// Unresolved entries are never deleted.
func (s *Service) Cleanup(ctx context.Context, olderThanDays int) (CleanupResult, error) {
	if olderThanDays < 1 {
		return CleanupResult{}, fmt.Errorf("%w: got %d", ErrInvalidRetention, olderThanDays)
	}

	cutoff := s.nowFn().UTC().Add(-time.Duration(olderThanDays) * 24 * time.Hour)
	deleted, err := s.store.DeleteResolvedBefore(ctx, cutoff)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("dead letter cleanup: %w", err)
	}

	slog.Info("[DLQ] Cleanup complete",
		"older_than_days", olderThanDays,
		"deleted", deleted,
	)
	return CleanupResult{Deleted: deleted, OlderThanDays: olderThanDays}, nil
}

func toEntry(d *storage.DeadLetter) Entry {
	return Entry{
		ID:           d.ID,
		EventID:      d.EventID,
		EventType:    string(d.EventType),
		Handlers:     lo.Ternary(d.Handlers == nil, []string{}, d.Handlers),
		Error:        d.Error,
		AttemptCount: d.AttemptCount,
		LastAttempt:  d.LastAttempt,
		Resolved:     d.Resolved,
		ResolvedAt:   d.ResolvedAt,
		CreatedAt:    d.CreatedAt,
	}
}
