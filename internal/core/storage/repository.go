package storage

import (
	"context"
	"errors"
	"time"

	v1 "github.com/xkorin-lab/xkorin/internal/api/v1"
)

// ErrDuplicate is returned when an event with the same id is already stored.
var ErrDuplicate = errors.New("event already exists")

// ErrNotFound is returned when a dead letter does not exist for the given event id.
var ErrNotFound = errors.New("dead letter not found")

// DefaultHistoryLimit caps EventQuery results when no limit is given.
const DefaultHistoryLimit = 50

// EventQuery filters the event history. Zero values are ignored.
type EventQuery struct {
	Type          v1.EventType
	UserID        string
	CorrelationID string
	StartDate     time.Time
	EndDate       time.Time
	Limit         int
}

// EffectiveLimit returns Limit or DefaultHistoryLimit when unset.
func (q EventQuery) EffectiveLimit() int {
	if q.Limit <= 0 {
		return DefaultHistoryLimit
	}
	return q.Limit
}

// EventStore is the append-only history of published events.
type EventStore interface {
	// Append persists the full envelope. Returns ErrDuplicate when the id is
	// already stored; the stored record is left untouched.
	Append(ctx context.Context, event *v1.Event) error

	// Query returns matching events newest first, capped at the effective limit.
	Query(ctx context.Context, q EventQuery) ([]*v1.Event, error)

	// Range returns events with start <= timestamp <= end, oldest first.
	// An empty types slice matches every type.
	Range(ctx context.Context, start, end time.Time, types []v1.EventType, limit int) ([]*v1.Event, error)

	// DeleteOlderThan removes at most batchSize events stamped before cutoff
	// and reports how many were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}

// DeadLetter is an event that exhausted its delivery retries.
type DeadLetter struct {
	ID           string
	EventID      string
	EventType    v1.EventType
	Event        *v1.Event
	Handlers     []string
	Error        string
	AttemptCount int
	LastAttempt  time.Time
	Resolved     bool
	ResolvedAt   *time.Time
	CreatedAt    time.Time
}

// DeadLetterFilter selects unresolved dead letters. Zero values are ignored.
type DeadLetterFilter struct {
	EventType v1.EventType

	// MaxAttempts keeps entries with AttemptCount < MaxAttempts.
	MaxAttempts int

	// LastAttemptBefore keeps entries last attempted before this instant.
	LastAttemptBefore time.Time

	Limit int
}

// DeadLetterStats aggregates the dead letter table.
type DeadLetterStats struct {
	Total             int
	Unresolved        int
	MaxRetriesReached int
	ByType            map[v1.EventType]int
	OldestUnresolved  *time.Time
}

// DeadLetterStore persists dead letters.
type DeadLetterStore interface {
	// Upsert inserts the entry or, when one already exists for the event id,
	// replaces its error, handlers and last attempt and marks it unresolved.
	Upsert(ctx context.Context, entry *DeadLetter) error

	// ListUnresolved returns unresolved entries newest first.
	ListUnresolved(ctx context.Context, filter DeadLetterFilter) ([]*DeadLetter, error)

	// Stats aggregates counts; entries with AttemptCount >= maxAttempts count as MaxRetriesReached.
	Stats(ctx context.Context, maxAttempts int) (*DeadLetterStats, error)

	// IncrementAttempt bumps AttemptCount and LastAttempt for one event id.
	IncrementAttempt(ctx context.Context, eventID string, at time.Time) error

	// Resolve marks the entry resolved. An already resolved entry keeps its
	// original ResolvedAt. Returns ErrNotFound for unknown event ids.
	Resolve(ctx context.Context, eventID string, at time.Time) error

	// DeleteResolvedBefore removes resolved entries with ResolvedAt before cutoff.
	DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
