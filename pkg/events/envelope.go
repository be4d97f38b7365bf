// Package events provides the generic event infrastructure for run event emission.
// It defines the Envelope type for wrapping run events with consistent metadata
// and the EventSink interface for event storage/transmission.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Envelope wraps run events with consistent metadata for reliable event processing.
// This provides a generic container that can hold any component-specific event
// payload while maintaining standard fields for routing, idempotency, and
// observability.
//
// The envelope pattern enables:
// - Schema evolution through versioning
// - Event deduplication via idempotency keys
// - Per-run event filtering
// - Cross-component event correlation.
type Envelope struct {
	// ID uniquely identifies this event instance.
	// Generated as a UUID for each event emission.
	ID string `json:"id"`

	// Type identifies the event for routing and processing.
	// Examples: "generation.candidate_produced", "selection.candidate_chosen"
	Type string `json:"type"`

	// Source identifies the component that emitted this event.
	// Examples: "worker-pool", "evaluator"
	Source string `json:"source"`

	// Version enables schema evolution and backward compatibility.
	// Start at "1.0.0" and increment following semantic versioning.
	Version string `json:"version"`

	// Timestamp records when the event was emitted.
	Timestamp time.Time `json:"timestamp"`

	// IdempotencyKey ensures exactly-once processing during retries.
	// Generated deterministically from run context and event content.
	IdempotencyKey string `json:"idempotency_key"`

	// RunID identifies the evaluation run that produced this event.
	RunID string `json:"run_id"`

	// QuestionID identifies the question this event concerns, if any.
	QuestionID string `json:"question_id,omitempty"`

	// Payload contains the component-specific event data as JSON.
	// Schema varies by Type and Version.
	Payload json.RawMessage `json:"payload"`
}

// NewEnvelope builds an envelope with a fresh UUID and the current wall clock.
// The payload is marshaled to JSON; marshal failures are reported to the
// caller rather than silently dropping the event body.
func NewEnvelope(eventType, source, runID, questionID, idemKey string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		ID:             uuid.New().String(),
		Type:           eventType,
		Source:         source,
		Version:        "1.0.0",
		Timestamp:      time.Now(),
		IdempotencyKey: idemKey,
		RunID:          runID,
		QuestionID:     questionID,
		Payload:        raw,
	}, nil
}

// EventSink defines the interface for emitting events to downstream consumers.
// Implementations could include database outbox patterns, message queues,
// event streaming platforms, or even simple file/log outputs.
//
// The interface is designed to be:
// - Simple to implement and test
// - Async-friendly with context support
// - Failure-tolerant (errors don't break runs)
// - Extensible for different sink types.
type EventSink interface {
	// Append adds an event to the sink with best-effort delivery.
	// Implementations should handle idempotency (duplicate events are no-ops)
	// and return quickly to avoid blocking the caller.
	//
	// Returns error if the event cannot be queued, but callers should
	// not fail their primary operation due to event sink failures.
	// Events are important for observability but not critical for correctness.
	Append(ctx context.Context, envelope Envelope) error
}

// NoOpEventSink is a null implementation of EventSink for testing or when events are disabled.
// All Append calls succeed immediately without side effects.
type NoOpEventSink struct{}

// Append implements EventSink.Append with no-op behavior.
func (n *NoOpEventSink) Append(_ context.Context, _ Envelope) error {
	return nil
}

// NewNoOpEventSink creates a new no-op event sink.
// Useful for testing or when event emission should be disabled.
func NewNoOpEventSink() EventSink {
	return &NoOpEventSink{}
}
