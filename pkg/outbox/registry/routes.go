// Package registry decides where each outbox row is published and rejects
// rows whose payload cannot be trusted.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/groupcart-backend/pkg/config"
	"github.com/angelmondragon/groupcart-backend/pkg/db/models"
	"github.com/angelmondragon/groupcart-backend/pkg/enums"
	"github.com/angelmondragon/groupcart-backend/pkg/outbox"
	"github.com/angelmondragon/groupcart-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
)

// EventDescriptor is the route for one event type.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	decode        func(json.RawMessage) (payloads.CartEvent, error)
}

type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    payloads.CartEvent
}

// EventRegistry routes shared-cart events to the domain topic.
type EventRegistry struct {
	routes map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError marks a row that will fail the same way on every
// attempt, so the publisher parks it instead of retrying.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func rejectf(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}

func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	topic := strings.TrimSpace(cfg.DomainTopic)
	if topic == "" {
		return nil, errors.New("domain topic is required")
	}
	r := &EventRegistry{routes: make(map[enums.OutboxEventType]EventDescriptor)}
	r.route(topic, enums.EventSharedCartCompleted, decodeAs[payloads.SharedCartStatusChangedEvent])
	r.route(topic, enums.EventSharedCartReopened, decodeAs[payloads.SharedCartStatusChangedEvent])
	r.route(topic, enums.EventSharedCartClosed, decodeAs[payloads.SharedCartClosedEvent])
	r.route(topic, enums.EventSharedCartExpired, decodeAs[payloads.SharedCartExpiredEvent])
	return r, nil
}

func (r *EventRegistry) route(topic string, eventType enums.OutboxEventType, decode func(json.RawMessage) (payloads.CartEvent, error)) {
	r.routes[eventType] = EventDescriptor{
		EventType:     eventType,
		AggregateType: enums.AggregateSharedCart,
		Topic:         topic,
		decode:        decode,
	}
}

func decodeAs[T payloads.CartEvent](data json.RawMessage) (payloads.CartEvent, error) {
	var payload T
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Resolve decodes the row's envelope and payload. Every failure is
// non-retryable: the row is already committed and will not change.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	route, ok := r.routes[event.EventType]
	if !ok {
		return nil, rejectf("unsupported event type %s", event.EventType)
	}
	if event.AggregateType != route.AggregateType {
		return nil, rejectf("aggregate mismatch: expected %s got %s", route.AggregateType, event.AggregateType)
	}
	if event.AggregateID == uuid.Nil {
		return nil, rejectf("missing cart id")
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, rejectf("decode envelope: %w", err)
	}
	if data := bytes.TrimSpace(envelope.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, rejectf("payload missing for %s", event.EventType)
	}

	payload, err := route.decode(envelope.Data)
	if err != nil {
		return nil, rejectf("decode %s payload: %w", event.EventType, err)
	}
	if payload.Cart() != event.AggregateID {
		return nil, rejectf("payload cart %s does not match row cart %s", payload.Cart(), event.AggregateID)
	}
	if err := payload.Check(event.EventType); err != nil {
		return nil, rejectf("%s payload: %w", event.EventType, err)
	}

	return &ResolvedEvent{Descriptor: route, Envelope: envelope, Payload: payload}, nil
}
