package telemetry

import (
	"context"
	"log"
	"strconv"
	"time"

	"conversation-service/internal/observability"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// AuditEmitter publishes moderation-relevant participant actions.
type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
	now         func() time.Time
}

type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    string       `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	RequestID     string       `json:"request_id"`
	UserID        *string      `json:"user_id,omitempty"`
	Payload       AuditPayload `json:"payload"`
}

func (e AuditEnvelope) Name() string { return e.EventType + ":" + e.Payload.Action }

type AuditPayload struct {
	Level            string `json:"level"`
	Action           string `json:"action"`
	Text             string `json:"text"`
	ConversationUUID string `json:"conversation_uuid,omitempty"`
	MessageUUID      string `json:"message_uuid,omitempty"`
}

// AuditEntry is one action to record.
type AuditEntry struct {
	Level            string
	Action           string
	Text             string
	UserID           int64
	ConversationUUID string
	MessageUUID      string
}

func NewAuditEmitter(publisher Publisher, routingKey, service, environment string) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
		now:         time.Now,
	}
}

// Emit publishes the entry. Failures are logged and otherwise ignored.
func (e *AuditEmitter) Emit(ctx context.Context, entry AuditEntry) {
	if e == nil || e.publisher == nil {
		return
	}

	requestID := observability.RequestIDFromContext(ctx)
	var userID *string
	if entry.UserID != 0 {
		id := strconv.FormatInt(entry.UserID, 10)
		userID = &id
	}

	log.Printf("audit emit: level=%s action=%s request_id=%s conversation=%s text=%q", entry.Level, entry.Action, requestID, entry.ConversationUUID, entry.Text)
	envelope := AuditEnvelope{
		SchemaVersion: 1,
		EventType:     "audit_log",
		OccurredAt:    e.now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     requestID,
		UserID:        userID,
		Payload: AuditPayload{
			Level:            entry.Level,
			Action:           entry.Action,
			Text:             entry.Text,
			ConversationUUID: entry.ConversationUUID,
			MessageUUID:      entry.MessageUUID,
		},
	}

	if err := e.publisher.Publish(ctx, e.routingKey, envelope); err != nil {
		log.Printf("audit publish failed: %v", err)
	}
}
