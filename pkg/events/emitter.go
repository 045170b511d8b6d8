// Package events publishes correlation manager lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/pkg/appctx"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const SchemaVersion = "1.0"

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte, headers map[string]string) error
}

// Envelope is the message body written for every event.
type Envelope struct {
	models.Event
	SchemaVersion string `json:"schema_version"`
	EventID       string `json:"event_id"`
	RequestID     string `json:"request_id,omitempty"`
	TraceID       string `json:"trace_id,omitempty"`
}

// Emitter publishes lifecycle events as JSON.
type Emitter struct {
	publisher Publisher
	logger    ectologger.Logger
}

// NewEmitter creates a new emitter
func NewEmitter(publisher Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		publisher: publisher,
		logger:    logger,
	}
}

// Publish wraps the event in an Envelope keyed by the event's element, relationship or
// asset manager GUID.
func (e *Emitter) Publish(ctx context.Context, event models.Event) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.Publish")
	defer span.End()

	envelope := Envelope{
		Event:         event,
		SchemaVersion: SchemaVersion,
		EventID:       uuid.NewString(),
		RequestID:     appctx.GetRequestID(ctx),
		TraceID:       tracing.GetTraceID(ctx),
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Type, err)
	}

	headers := map[string]string{
		"event_type":     string(event.Type),
		"schema_version": SchemaVersion,
	}
	if event.ElementType != "" {
		headers["element_type"] = event.ElementType
	}

	if err := e.publisher.Publish(ctx, event.Key(), data, headers); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithField("event_type", event.Type).Errorf("Failed to emit %s event", event.Type)
		return err
	}
	return nil
}
