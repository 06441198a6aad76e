package eventbus

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// retryPolicy computes the delay before the next delivery attempt.
type retryPolicy struct {
	base     time.Duration
	maxDelay time.Duration
}

// delay returns base * 2^attempt capped at maxDelay, where attempt is the
// number of failed deliveries already recorded for the entry.
func (p retryPolicy) delay(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.base
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = p.maxDelay
	b.MaxElapsedTime = 0
	b.Reset()

	d := b.NextBackOff()
	for i := 0; i < attempt; i++ {
		if d >= p.maxDelay {
			return p.maxDelay
		}
		d = b.NextBackOff()
	}
	if d > p.maxDelay {
		return p.maxDelay
	}
	return d
}
