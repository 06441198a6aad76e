package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	v1 "github.com/xkorin-lab/xkorin/internal/api/v1"
	"github.com/xkorin-lab/xkorin/internal/core/storage"
)

const (
	ModeAsync = "async"
	ModeSync  = "sync"
)

var (
	// ErrInvalidEvent wraps envelope and payload encoding problems.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrContractViolation wraps payload contract failures.
	ErrContractViolation = errors.New("payload violates contract")

	// ErrPersistFailed means the event store rejected the write; the event was not published.
	ErrPersistFailed = errors.New("event store write failed")
)

// Appender is the event store write path used by the publisher.
type Appender interface {
	Append(ctx context.Context, event *v1.Event) error
}

// PayloadValidator checks event data against its contract.
type PayloadValidator interface {
	Validate(ctx context.Context, eventType v1.EventType, version int, data map[string]interface{}) error
}

// EventPublisher is the publish path modules depend on.
type EventPublisher interface {
	Publish(ctx context.Context, eventType v1.EventType, data interface{}, opts ...PublishOption) (*v1.Event, error)
}

var _ EventPublisher = (*Publisher)(nil)

// PublisherConfig selects the publishing behaviour.
type PublisherConfig struct {
	// Mode "sync" delivers CRITICAL events on the publishing goroutine.
	Mode string

	// MaxChainDepth bounds causal chains. Zero disables the depth check.
	MaxChainDepth int

	// ChainIndexSize bounds the number of recent events the loop guard remembers.
	ChainIndexSize int
}

// Publisher builds envelopes, persists them and hands them to the bus.
type Publisher struct {
	bus       *Bus
	store     Appender
	contracts PayloadValidator
	chain     *chainIndex
	mode      string
	metrics   MetricsRecorder

	nowFn func() time.Time
	newID func() string
}

// NewPublisher wires a publisher. A nil store skips persistence (event sourcing
// disabled); nil contracts skip payload validation.
func NewPublisher(bus *Bus, store Appender, contracts PayloadValidator, cfg PublisherConfig, metrics MetricsRecorder) *Publisher {
	if bus == nil {
		panic("eventbus: publisher requires a bus")
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	mode := cfg.Mode
	if mode == "" {
		mode = ModeAsync
	}
	return &Publisher{
		bus:       bus,
		store:     store,
		contracts: contracts,
		chain:     newChainIndex(cfg.ChainIndexSize, cfg.MaxChainDepth),
		mode:      mode,
		metrics:   metrics,
		nowFn:     time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

type publishOptions struct {
	userID        string
	priority      v1.Priority
	correlationID string
	causationID   string
	eventID       string
}

// PublishOption customises one Publish call.
type PublishOption func(*publishOptions)

// WithUserID sets the subject of the event.
func WithUserID(userID string) PublishOption {
	return func(o *publishOptions) { o.userID = userID }
}

// WithPriority overrides the default NORMAL priority.
func WithPriority(p v1.Priority) PublishOption {
	return func(o *publishOptions) { o.priority = p }
}

// WithCorrelationID joins an existing logical operation.
func WithCorrelationID(id string) PublishOption {
	return func(o *publishOptions) { o.correlationID = id }
}

// WithCausationID records the event whose handler produced this one.
func WithCausationID(id string) PublishOption {
	return func(o *publishOptions) { o.causationID = id }
}

// CausedBy chains the new event to parent: same correlation, parent as cause.
func CausedBy(parent *v1.Event) PublishOption {
	return func(o *publishOptions) {
		o.causationID = parent.ID
		o.correlationID = parent.Metadata.CorrelationID
	}
}

// derivedNamespace seeds the ids of events derived from another event.
var derivedNamespace = uuid.MustParse("6f1c9a52-3e0b-4d7a-9c1e-5b2f8d4a7e10")

// DerivedID is the id of the event a handler derives from cause at step.
// The same cause and step always give the same id.
func DerivedID(causeID, step string) string {
	return uuid.NewSHA1(derivedNamespace, []byte(causeID+"/"+step)).String()
}

// DerivedFrom is CausedBy with a deterministic id, so a handler retried
// after a partial failure republishes the same event instead of a copy.
// A derived id that was already published is not delivered again.
func DerivedFrom(parent *v1.Event, step string) PublishOption {
	return func(o *publishOptions) {
		CausedBy(parent)(o)
		o.eventID = DerivedID(parent.ID, step)
	}
}

// Publish validates, persists and enqueues a new event, returning the envelope.
// The event is not published when any step fails.
func (p *Publisher) Publish(ctx context.Context, eventType v1.EventType, data interface{}, opts ...PublishOption) (*v1.Event, error) {
	o := publishOptions{priority: v1.PriorityNormal}
	for _, opt := range opts {
		opt(&o)
	}

	payload, err := v1.EncodeData(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}

	id := o.eventID
	if id == "" {
		id = p.newID()
	}
	event := &v1.Event{
		ID:        id,
		Type:      eventType,
		Priority:  o.priority,
		Timestamp: p.nowFn().UTC(),
		UserID:    o.userID,
		Metadata: v1.Metadata{
			CorrelationID: o.correlationID,
			CausationID:   o.causationID,
			Version:       1,
		},
		Data: payload,
	}
	if event.Metadata.CorrelationID == "" {
		event.Metadata.CorrelationID = p.newID()
	}

	if err := event.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}

	if p.contracts != nil {
		if err := p.contracts.Validate(ctx, event.Type, event.Metadata.Version, event.Data); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrContractViolation, err)
		}
	}

	if o.eventID != "" && p.chain.has(event.ID) {
		slog.Debug("[EventBus] Derived event already published", "event_id", event.ID, "event_type", event.Type)
		return event, nil
	}

	link, known, err := p.chain.check(event.Type, event.Metadata.CausationID)
	if err != nil {
		reason := "cycle"
		if errors.Is(err, ErrChainTooDeep) {
			reason = "depth"
		}
		p.metrics.RecordLoopRejection(ctx, event.Type, reason)
		slog.Error("[EventBus] Publish rejected by loop guard",
			"event_type", event.Type,
			"causation_id", event.Metadata.CausationID,
			"correlation_id", event.Metadata.CorrelationID,
			"error", err,
		)
		return nil, err
	}
	if !known {
		slog.Warn("[EventBus] Cause not in loop guard index, restarting depth count",
			"event_type", event.Type,
			"causation_id", event.Metadata.CausationID,
		)
	}

	if p.store != nil {
		if err := p.store.Append(ctx, event); err != nil {
			if !errors.Is(err, storage.ErrDuplicate) {
				slog.Error("[EventBus] Failed to persist event",
					"event_id", event.ID,
					"event_type", event.Type,
					"error", err,
				)
				return nil, fmt.Errorf("%w: %w", ErrPersistFailed, err)
			}
			// The earlier publish with this id already enqueued it.
			slog.Warn("[EventBus] Event id already stored, skipping delivery", "event_id", event.ID)
			p.chain.record(event.ID, link)
			return event, nil
		}
	}

	p.chain.record(event.ID, link)
	p.metrics.RecordPublished(ctx, event.Type, event.Priority)

	if p.mode == ModeSync && event.Priority == v1.PriorityCritical {
		p.bus.DeliverNow(ctx, event)
	} else {
		p.bus.Enqueue(event)
	}

	slog.Debug("[EventBus] Event published",
		"event_id", event.ID,
		"event_type", event.Type,
		"priority", event.Priority.String(),
		"correlation_id", event.Metadata.CorrelationID,
		"causation_id", event.Metadata.CausationID,
	)
	return event, nil
}
