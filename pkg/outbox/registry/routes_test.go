package registry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/angelmondragon/groupcart-backend/pkg/config"
	"github.com/angelmondragon/groupcart-backend/pkg/db/models"
	"github.com/angelmondragon/groupcart-backend/pkg/enums"
	"github.com/angelmondragon/groupcart-backend/pkg/outbox"
	"github.com/angelmondragon/groupcart-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRoutesEveryCartEventToDomainTopic(t *testing.T) {
	reg := newTestEventRegistry(t)
	cartID := uuid.New()

	cases := map[enums.OutboxEventType]any{
		enums.EventSharedCartCompleted: payloads.SharedCartStatusChangedEvent{
			CartID: cartID, ProductID: 12,
			PreviousStatus: enums.SharedCartStatusActive, Status: enums.SharedCartStatusCompleted,
			CurrentQuantity: 10, TargetQuantity: 10,
		},
		enums.EventSharedCartReopened: payloads.SharedCartStatusChangedEvent{
			CartID: cartID, ProductID: 12,
			PreviousStatus: enums.SharedCartStatusCompleted, Status: enums.SharedCartStatusActive,
			CurrentQuantity: 7, TargetQuantity: 10,
		},
		enums.EventSharedCartClosed: payloads.SharedCartClosedEvent{
			CartID: cartID, ProductID: 12, ClosedBy: uuid.New(),
		},
		enums.EventSharedCartExpired: payloads.SharedCartExpiredEvent{
			CartID: cartID, ProductID: 12, CurrentQuantity: 3, TargetQuantity: 10,
			ExpiresAt: time.Now().Add(-time.Hour),
		},
	}

	for eventType, data := range cases {
		t.Run(string(eventType), func(t *testing.T) {
			resolved, err := reg.Resolve(cartRow(t, eventType, cartID, data))
			require.NoError(t, err)
			assert.Equal(t, "domain-topic", resolved.Descriptor.Topic)
			assert.Equal(t, eventType, resolved.Descriptor.EventType)
			assert.Equal(t, cartID, resolved.Payload.Cart())
			assert.NotEmpty(t, resolved.Envelope.EventID)
		})
	}
}

func TestResolveDecodesStatusChange(t *testing.T) {
	reg := newTestEventRegistry(t)
	cartID := uuid.New()
	participant := uuid.New()

	resolved, err := reg.Resolve(cartRow(t, enums.EventSharedCartCompleted, cartID, payloads.SharedCartStatusChangedEvent{
		CartID:          cartID,
		PreviousStatus:  enums.SharedCartStatusActive,
		Status:          enums.SharedCartStatusCompleted,
		CurrentQuantity: 11,
		TargetQuantity:  10,
		ParticipantIDs:  []uuid.UUID{participant},
	}))
	require.NoError(t, err)

	payload, ok := resolved.Payload.(payloads.SharedCartStatusChangedEvent)
	require.True(t, ok, "unexpected payload type %T", resolved.Payload)
	assert.Equal(t, 11, payload.CurrentQuantity)
	assert.Equal(t, []uuid.UUID{participant}, payload.ParticipantIDs)
}

func TestResolveRejects(t *testing.T) {
	reg := newTestEventRegistry(t)
	cartID := uuid.New()
	closed := payloads.SharedCartClosedEvent{CartID: cartID, ClosedBy: uuid.New()}

	cases := map[string]models.OutboxEvent{
		"unknown event type": cartRow(t, enums.OutboxEventType("order_created"), cartID, closed),
		"aggregate mismatch": func() models.OutboxEvent {
			row := cartRow(t, enums.EventSharedCartClosed, cartID, closed)
			row.AggregateType = enums.OutboxAggregateType("store")
			return row
		}(),
		"missing cart id": func() models.OutboxEvent {
			row := cartRow(t, enums.EventSharedCartClosed, cartID, closed)
			row.AggregateID = uuid.Nil
			return row
		}(),
		"null data": {
			EventType:     enums.EventSharedCartClosed,
			AggregateType: enums.AggregateSharedCart,
			AggregateID:   cartID,
			Payload:       mustEnvelope(t, []byte("null")),
		},
		"garbage envelope": {
			EventType:     enums.EventSharedCartClosed,
			AggregateType: enums.AggregateSharedCart,
			AggregateID:   cartID,
			Payload:       json.RawMessage(`not-json`),
		},
		"payload for another cart": cartRow(t, enums.EventSharedCartClosed, uuid.New(), closed),
		"closed without actor":     cartRow(t, enums.EventSharedCartClosed, cartID, payloads.SharedCartClosedEvent{CartID: cartID}),
		"completed below target": cartRow(t, enums.EventSharedCartCompleted, cartID, payloads.SharedCartStatusChangedEvent{
			CartID: cartID, PreviousStatus: enums.SharedCartStatusActive, Status: enums.SharedCartStatusCompleted,
			CurrentQuantity: 9, TargetQuantity: 10,
		}),
		"reopen stored as completion": cartRow(t, enums.EventSharedCartCompleted, cartID, payloads.SharedCartStatusChangedEvent{
			CartID: cartID, PreviousStatus: enums.SharedCartStatusCompleted, Status: enums.SharedCartStatusActive,
			CurrentQuantity: 9, TargetQuantity: 10,
		}),
		"reopened at target": cartRow(t, enums.EventSharedCartReopened, cartID, payloads.SharedCartStatusChangedEvent{
			CartID: cartID, PreviousStatus: enums.SharedCartStatusCompleted, Status: enums.SharedCartStatusActive,
			CurrentQuantity: 10, TargetQuantity: 10,
		}),
		"expired completed cart": cartRow(t, enums.EventSharedCartExpired, cartID, payloads.SharedCartExpiredEvent{
			CartID: cartID, CurrentQuantity: 10, TargetQuantity: 10, ExpiresAt: time.Now(),
		}),
	}

	for name, event := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(event)
			var nonRetry NonRetryableError
			require.ErrorAs(t, err, &nonRetry)
		})
	}
}

func TestNewEventRegistryRequiresTopic(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{DomainTopic: "  "})
	require.Error(t, err)
}

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{DomainTopic: "domain-topic"})
	require.NoError(t, err)
	return reg
}

func cartRow(t *testing.T, eventType enums.OutboxEventType, cartID uuid.UUID, data any) models.OutboxEvent {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return models.OutboxEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateSharedCart,
		AggregateID:   cartID,
		Payload:       mustEnvelope(t, raw),
	}
}

func mustEnvelope(t *testing.T, data []byte) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	require.NoError(t, err)
	return raw
}
