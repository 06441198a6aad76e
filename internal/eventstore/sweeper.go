package eventstore

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultSweepBatchSize = 5000

	// maxConsecutiveBatches bounds one sweep; the rest waits for the next tick.
	maxConsecutiveBatches = 100
)

// Expirer deletes events past retention in batches.
type Expirer interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}

// Sweeper deletes events older than the retention window. It runs off the
// publish path; a slow or failing sweep never blocks publishing.
type Sweeper struct {
	store     Expirer
	ttl       time.Duration
	interval  time.Duration
	batchSize int
	nowFn     func() time.Time
}

// NewSweeper creates a sweeper keeping ttlDays of history.
func NewSweeper(store Expirer, ttlDays int, interval time.Duration, batchSize int) *Sweeper {
	if store == nil {
		panic("eventstore: sweeper requires a store")
	}
	if batchSize <= 0 {
		batchSize = defaultSweepBatchSize
	}
	return &Sweeper{
		store:     store,
		ttl:       time.Duration(ttlDays) * 24 * time.Hour,
		interval:  interval,
		batchSize: batchSize,
		nowFn:     time.Now,
	}
}

// Start sweeps once immediately, then every interval until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("[Sweeper] Starting event store TTL sweeper",
		"ttl", s.ttl,
		"interval", s.interval,
		"batch_size", s.batchSize,
	)

	s.Sweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-ctx.Done():
			slog.Info("[Sweeper] Stopping (context cancelled)")
			return nil
		}
	}
}

// Sweep deletes expired events batch by batch until a batch comes back short.
func (s *Sweeper) Sweep(ctx context.Context) int64 {
	cutoff := s.nowFn().UTC().Add(-s.ttl)

	var total int64
	for batch := 0; batch < maxConsecutiveBatches; batch++ {
		if ctx.Err() != nil {
			slog.Info("[Sweeper] Sweep interrupted by context cancellation",
				"batches_processed", batch,
				"deleted", total,
			)
			return total
		}

		deleted, err := s.store.DeleteOlderThan(ctx, cutoff, s.batchSize)
		if err != nil {
			slog.Error("[Sweeper] Failed to expire events",
				"cutoff", cutoff,
				"batch_number", batch+1,
				"error", err,
			)
			return total
		}
		total += deleted

		if deleted < int64(s.batchSize) {
			if total > 0 {
				slog.Info("[Sweeper] Expired events past retention",
					"cutoff", cutoff,
					"deleted", total,
					"batches", batch+1,
				)
			}
			return total
		}
	}

	slog.Warn("[Sweeper] Max consecutive batches reached, pausing sweep",
		"max_batches", maxConsecutiveBatches,
		"deleted", total,
		"note", "Will resume on next tick",
	)
	return total
}
