package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	v1 "github.com/xkorin-lab/xkorin/internal/api/v1"
	"github.com/xkorin-lab/xkorin/internal/core/storage"
)

// EventStore keeps the event history in process. Used for local runs and tests.
type EventStore struct {
	mu     sync.RWMutex
	events []*v1.Event
	byID   map[string]struct{}
}

// NewEventStore creates an empty in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{byID: make(map[string]struct{})}
}

// Append stores a copy of the event. Returns storage.ErrDuplicate for a known id.
func (s *EventStore) Append(ctx context.Context, event *v1.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[event.ID]; exists {
		return storage.ErrDuplicate
	}

	cp := *event
	s.events = append(s.events, &cp)
	s.byID[event.ID] = struct{}{}
	return nil
}

// Query returns matches newest first. Ties keep reverse insertion order.
func (s *EventStore) Query(ctx context.Context, q storage.EventQuery) ([]*v1.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := lo.Filter(s.events, func(e *v1.Event, _ int) bool {
		if q.Type != "" && e.Type != q.Type {
			return false
		}
		if q.UserID != "" && e.UserID != q.UserID {
			return false
		}
		if q.CorrelationID != "" && e.Metadata.CorrelationID != q.CorrelationID {
			return false
		}
		if !q.StartDate.IsZero() && e.Timestamp.Before(q.StartDate) {
			return false
		}
		if !q.EndDate.IsZero() && e.Timestamp.After(q.EndDate) {
			return false
		}
		return true
	})

	matched = lo.Reverse(matched)
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	limit := q.EffectiveLimit()
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return copyEvents(matched), nil
}

// Range returns events within [start, end] oldest first.
func (s *EventStore) Range(ctx context.Context, start, end time.Time, types []v1.EventType, limit int) ([]*v1.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := lo.Filter(s.events, func(e *v1.Event, _ int) bool {
		if e.Timestamp.Before(start) || e.Timestamp.After(end) {
			return false
		}
		return len(types) == 0 || lo.Contains(types, e.Type)
	})

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.Before(matched[j].Timestamp)
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return copyEvents(matched), nil
}

// DeleteOlderThan removes up to batchSize events stamped before cutoff, oldest inserted first.
func (s *EventStore) DeleteOlderThan(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	kept := s.events[:0]
	for _, e := range s.events {
		if e.Timestamp.Before(cutoff) && (batchSize <= 0 || deleted < int64(batchSize)) {
			delete(s.byID, e.ID)
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	s.events = kept
	return deleted, nil
}

// Len reports the number of stored events.
func (s *EventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func copyEvents(events []*v1.Event) []*v1.Event {
	return lo.Map(events, func(e *v1.Event, _ int) *v1.Event {
		cp := *e
		return &cp
	})
}
