package deadletter

import (
	"context"

	v1 "github.com/xkorin-lab/xkorin/internal/api/v1"
	"github.com/xkorin-lab/xkorin/internal/eventbus"
)

// SinkFunc resolves the sink on every call. It lets the bus be built before
// the Service that redelivers through it.
type SinkFunc func() eventbus.DeadLetterSink

func (f SinkFunc) DeadLetter(ctx context.Context, event *v1.Event, failedHandlers []string, cause error) error {
	return f().DeadLetter(ctx, event, failedHandlers, cause)
}

func (f SinkFunc) Redelivered(ctx context.Context, eventID string) error {
	return f().Redelivered(ctx, eventID)
}
