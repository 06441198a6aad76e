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

// DeadLetterStore keeps dead letters in process, one per event id.
type DeadLetterStore struct {
	mu      sync.Mutex
	entries map[string]*storage.DeadLetter
}

// NewDeadLetterStore creates an empty in-memory dead letter store.
func NewDeadLetterStore() *DeadLetterStore {
	return &DeadLetterStore{entries: make(map[string]*storage.DeadLetter)}
}

// Upsert inserts the entry or refreshes the existing one for the same event id.
func (s *DeadLetterStore) Upsert(ctx context.Context, entry *storage.DeadLetter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[entry.EventID]; ok {
		existing.Event = entry.Event
		existing.Handlers = append([]string(nil), entry.Handlers...)
		existing.Error = entry.Error
		existing.LastAttempt = entry.LastAttempt
		existing.Resolved = false
		existing.ResolvedAt = nil

		entry.ID = existing.ID
		entry.AttemptCount = existing.AttemptCount
		entry.CreatedAt = existing.CreatedAt
		entry.Resolved = false
		entry.ResolvedAt = nil
		return nil
	}

	if entry.AttemptCount <= 0 {
		entry.AttemptCount = 1
	}
	cp := *entry
	cp.Handlers = append([]string(nil), entry.Handlers...)
	s.entries[entry.EventID] = &cp
	return nil
}

// ListUnresolved returns unresolved entries newest first.
func (s *DeadLetterStore) ListUnresolved(ctx context.Context, filter storage.DeadLetterFilter) ([]*storage.DeadLetter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := lo.Filter(lo.Values(s.entries), func(e *storage.DeadLetter, _ int) bool {
		if e.Resolved {
			return false
		}
		if filter.EventType != "" && e.EventType != filter.EventType {
			return false
		}
		if filter.MaxAttempts > 0 && e.AttemptCount >= filter.MaxAttempts {
			return false
		}
		if !filter.LastAttemptBefore.IsZero() && !e.LastAttempt.Before(filter.LastAttemptBefore) {
			return false
		}
		return true
	})

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].EventID > matched[j].EventID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	return lo.Map(matched, func(e *storage.DeadLetter, _ int) *storage.DeadLetter {
		cp := *e
		cp.Handlers = append([]string(nil), e.Handlers...)
		return &cp
	}), nil
}

// Stats aggregates the stored entries.
func (s *DeadLetterStore) Stats(ctx context.Context, maxAttempts int) (*storage.DeadLetterStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &storage.DeadLetterStats{ByType: make(map[v1.EventType]int)}
	for _, e := range s.entries {
		stats.Total++
		if e.Resolved {
			continue
		}
		stats.Unresolved++
		stats.ByType[e.EventType]++
		if e.AttemptCount >= maxAttempts {
			stats.MaxRetriesReached++
		}
		if stats.OldestUnresolved == nil || e.CreatedAt.Before(*stats.OldestUnresolved) {
			t := e.CreatedAt
			stats.OldestUnresolved = &t
		}
	}
	return stats, nil
}

// IncrementAttempt bumps the attempt counter of one entry.
func (s *DeadLetterStore) IncrementAttempt(ctx context.Context, eventID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[eventID]
	if !ok {
		return storage.ErrNotFound
	}
	e.AttemptCount++
	e.LastAttempt = at
	return nil
}

// Resolve marks one entry resolved, keeping the first resolution time.
func (s *DeadLetterStore) Resolve(ctx context.Context, eventID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[eventID]
	if !ok {
		return storage.ErrNotFound
	}
	if !e.Resolved {
		e.Resolved = true
		e.ResolvedAt = &at
	}
	return nil
}

// DeleteResolvedBefore removes resolved entries whose ResolvedAt is before cutoff.
func (s *DeadLetterStore) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, e := range s.entries {
		if e.Resolved && e.ResolvedAt != nil && e.ResolvedAt.Before(cutoff) {
			delete(s.entries, id)
			deleted++
		}
	}
	return deleted, nil
}

// Get returns a copy of the entry for eventID, if present.
func (s *DeadLetterStore) Get(eventID string) (*storage.DeadLetter, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[eventID]
	if !ok {
		return nil, false
	}
	cp := *e
	return &cp, true
}
