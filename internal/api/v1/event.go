package v1

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event is the immutable envelope describing something that happened in one module.
// It separates the "Envelope" (routing and tracing attributes) from the "Letter" (Data).
type Event struct {
	// --- Envelope ---

	// ID is globally unique and doubles as the idempotency key for handlers.
	ID string `json:"id"`

	// Type selects the handlers the bus delivers this event to.
	Type EventType `json:"type"`

	// Priority selects the delivery bucket. Lower values are delivered first.
	Priority Priority `json:"priority"`

	// Timestamp is when the publisher created the event.
	Timestamp time.Time `json:"timestamp"`

	// UserID is the optional subject (owner or actor) of the event.
	UserID string `json:"userId,omitempty"`

	// Metadata carries tracing attributes shared along a causal chain.
	Metadata Metadata `json:"metadata"`

	// --- Letter ---

	// Data is the type-specific payload. Numbers decode as float64.
	Data map[string]interface{} `json:"data"`
}

// Metadata groups the causal tracing attributes of an event.
type Metadata struct {
	// CorrelationID groups every event produced by one logical operation.
	CorrelationID string `json:"correlationId"`

	// CausationID is the ID of the event whose handler produced this one.
	// Empty for root events.
	CausationID string `json:"causationId,omitempty"`

	// Version selects the payload contract for Data.
	Version int `json:"version"`
}

// Validate ensures the envelope carries everything the bus and store rely on.
func (e *Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("id is required")
	}

	if !e.Type.Valid() {
		return fmt.Errorf("unknown event type %q", e.Type)
	}

	if !e.Priority.Valid() {
		return fmt.Errorf("invalid priority %d", e.Priority)
	}

	if e.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}

	if e.Metadata.CorrelationID == "" {
		return fmt.Errorf("metadata.correlationId is required")
	}

	if e.Metadata.CausationID == e.ID {
		return fmt.Errorf("event %s cannot be its own cause", e.ID)
	}

	if e.Metadata.Version < 1 {
		return fmt.Errorf("metadata.version must be >= 1")
	}

	return nil
}

// DecodeData unmarshals Data into a typed payload struct.
func (e *Event) DecodeData(out interface{}) error {
	raw, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal %s data: %w", e.Type, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s data: %w", e.Type, err)
	}
	return nil
}

// EncodeData converts a typed payload struct into the generic Data map.
// Going through JSON keeps the map identical to what the store reads back.
func EncodeData(payload interface{}) (map[string]interface{}, error) {
	if payload == nil {
		return map[string]interface{}{}, nil
	}
	if m, ok := payload.(map[string]interface{}); ok {
		return m, nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	data := make(map[string]interface{})
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("payload must encode to a JSON object: %w", err)
	}
	return data, nil
}
