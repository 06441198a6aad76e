package deadletter

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler periodically redelivers unresolved entries that are still below
// the automatic retry limit.
type Scheduler struct {
	service  *Service
	interval time.Duration
}

// NewScheduler creates a scheduler ticking every interval. An entry becomes
// eligible once its last attempt is at least one interval old.
func NewScheduler(service *Service, interval time.Duration) *Scheduler {
	if service == nil {
		panic("deadletter: scheduler requires a service")
	}
	return &Scheduler{service: service, interval: interval}
}

// Start runs until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("[DLQ] Starting auto-retry scheduler",
		"interval", s.interval,
		"max_auto_retries", s.service.maxAutoRetries,
	)

	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx)
		case <-ctx.Done():
			slog.Info("[DLQ] Stopping auto-retry scheduler (context cancelled)")
			return nil
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) RetryResult {
	result, err := s.service.AutoRetry(ctx, s.interval)
	if err != nil {
		slog.Error("[DLQ] Auto-retry failed", "error", err)
	}
	return result
}
