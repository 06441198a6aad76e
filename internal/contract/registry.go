package contract

import (
	"context"
	"errors"
	"fmt"
	"sync"

	v1 "github.com/xkorin-lab/xkorin/internal/api/v1"
	"golang.org/x/sync/singleflight"
)

// Registry compiles contracts on first use and validates payloads against them.
type Registry struct {
	source Source

	// strictProto rejects unknown fields for protobuf contracts.
	// YAML contracts carry their own strict flag.
	strictProto bool

	mu           sync.RWMutex
	compiled     map[string]*compiled
	missing      map[Key]struct{}
	compileGroup singleflight.Group
}

// NewRegistry creates a registry reading from source.
func NewRegistry(source Source, strictProto bool) *Registry {
	if source == nil {
		panic("contract: source cannot be nil")
	}
	return &Registry{
		source:      source,
		strictProto: strictProto,
		compiled:    make(map[string]*compiled),
		missing:     make(map[Key]struct{}),
	}
}

// Validate checks data against the contract for (eventType, version).
// Returns nil when no contract exists for the key.
func (r *Registry) Validate(ctx context.Context, eventType v1.EventType, version int, data map[string]interface{}) error {
	key := Key{Type: eventType, Version: version}

	c, err := r.lookup(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	switch c.format {
	case FormatYAML:
		return validateYAML(c, data)
	case FormatProtobuf:
		return validateProto(c, data)
	default:
		return fmt.Errorf("unsupported contract format: %s", c.format)
	}
}

// Preload compiles every contract the source lists so broken definitions fail at startup.
func (r *Registry) Preload(ctx context.Context) (int, error) {
	keys, err := r.source.List()
	if err != nil {
		return 0, err
	}
	for _, key := range keys {
		if _, err := r.lookup(ctx, key); err != nil {
			return 0, fmt.Errorf("contract %s: %w", key, err)
		}
	}
	return len(keys), nil
}

func (r *Registry) lookup(ctx context.Context, key Key) (*compiled, error) {
	r.mu.RLock()
	if _, miss := r.missing[key]; miss {
		r.mu.RUnlock()
		return nil, ErrNotFound
	}
	r.mu.RUnlock()

	raw, err := r.source.Get(key)
	if errors.Is(err, ErrNotFound) {
		r.mu.Lock()
		r.missing[key] = struct{}{}
		r.mu.Unlock()
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	// Fingerprint in the cache key picks up edited definitions.
	cacheKey := fmt.Sprintf("%s:%d:%s", key.Type, key.Version, raw.Fingerprint)

	r.mu.RLock()
	if c, ok := r.compiled[cacheKey]; ok {
		r.mu.RUnlock()
		return c, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.compileGroup.Do(cacheKey, func() (interface{}, error) {
		r.mu.RLock()
		if c, ok := r.compiled[cacheKey]; ok {
			r.mu.RUnlock()
			return c, nil
		}
		r.mu.RUnlock()

		var (
			c   *compiled
			err error
		)
		switch raw.Format {
		case FormatYAML:
			c, err = compileYAML(raw)
		case FormatProtobuf:
			c, err = compileProto(ctx, raw)
			if c != nil {
				c.strict = r.strictProto
			}
		default:
			err = fmt.Errorf("unsupported contract format: %s", raw.Format)
		}
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.compiled[cacheKey] = c
		r.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*compiled), nil
}
