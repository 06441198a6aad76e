// Package eventstore exposes the stored event history to operators and keeps
// it within its retention window.
package eventstore

import (
	"context"
	"errors"
	"fmt"

	v1 "github.com/xkorin-lab/xkorin/internal/api/v1"
	"github.com/xkorin-lab/xkorin/internal/core/storage"
)

// MaxHistoryLimit caps a single history query.
const MaxHistoryLimit = 1000

// ErrInvalidQuery rejects history queries that cannot match anything.
var ErrInvalidQuery = errors.New("invalid history query")

// Querier reads the event history.
type Querier interface {
	Query(ctx context.Context, q storage.EventQuery) ([]*v1.Event, error)
}

// Service answers history queries.
type Service struct {
	store Querier
}

func NewService(store Querier) *Service {
	if store == nil {
		panic("eventstore: service requires a store")
	}
	return &Service{store: store}
}

// History returns matching events newest first. A zero limit means
// storage.DefaultHistoryLimit; larger limits are capped at MaxHistoryLimit.
func (s *Service) History(ctx context.Context, q storage.EventQuery) ([]*v1.Event, error) {
	if q.Limit > MaxHistoryLimit {
		q.Limit = MaxHistoryLimit
	}
	if !q.StartDate.IsZero() && !q.EndDate.IsZero() && q.EndDate.Before(q.StartDate) {
		return nil, fmt.Errorf("%w: endDate %s is before startDate %s", ErrInvalidQuery, q.EndDate, q.StartDate)
	}

	events, err := s.store.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query event history: %w", err)
	}
	if events == nil {
		events = []*v1.Event{}
	}
	return events, nil
}

// Chain returns every stored event sharing correlationID, newest first.
func (s *Service) Chain(ctx context.Context, correlationID string) ([]*v1.Event, error) {
	if correlationID == "" {
		return nil, fmt.Errorf("%w: correlationId is required", ErrInvalidQuery)
	}
	return s.History(ctx, storage.EventQuery{CorrelationID: correlationID, Limit: MaxHistoryLimit})
}
