package notify

import (
	"context"
	"log"
	"time"

	"conversation-service/internal/models"
	"conversation-service/internal/observability"
)

const (
	RoutingMessageCreated = "conversation.message_created"
	RoutingRead           = "conversation.read"
	RoutingOfferResponded = "conversation.offer_responded"

	eventType = "conversation_events"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// Broadcaster pushes events to clients connected to a conversation.
type Broadcaster interface {
	Broadcast(event models.ConversationEvent)
}

// MessagePayload is the bus payload for a new message.
type MessagePayload struct {
	ConversationUUID string   `json:"conversation_uuid"`
	ListingID        int64    `json:"listing_id"`
	MessageUUID      string   `json:"message_uuid"`
	SenderID         int64    `json:"sender_id"`
	RecipientID      int64    `json:"recipient_id"`
	Type             string   `json:"type"`
	Body             string   `json:"body"`
	OfferAmount      *float64 `json:"offer_amount,omitempty"`
	OfferStatus      string   `json:"offer_status,omitempty"`
	CreatedAt        string   `json:"created_at"`
}

type ReadPayload struct {
	ConversationUUID string `json:"conversation_uuid"`
	ReaderID         int64  `json:"reader_id"`
	ReadAt           string `json:"read_at"`
}

// Dispatcher fans conversation activity out to the message bus and to
// websocket clients. Delivery failures are logged and never reach the caller.
type Dispatcher struct {
	publisher Publisher
	hub       Broadcaster
	now       func() time.Time
}

func NewDispatcher(publisher Publisher, hub Broadcaster) *Dispatcher {
	return &Dispatcher{publisher: publisher, hub: hub, now: time.Now}
}

func (d *Dispatcher) MessageCreated(ctx context.Context, conv models.Conversation, msg models.Message) {
	recipient, _ := conv.OtherParticipant(msg.SenderID)
	d.publish(ctx, RoutingMessageCreated, "message_created", messagePayload(conv, msg, recipient))
	d.broadcast(models.ConversationEvent{
		Type:             models.EventMessage,
		ConversationUUID: conv.UUID,
		Message:          &msg,
		OccurredAt:       msg.CreatedAt,
	})
}

func (d *Dispatcher) ConversationRead(ctx context.Context, conv models.Conversation, readerID int64) {
	at := d.now().UTC()
	if readAt := conv.LastReadAt(readerID); readAt != nil {
		at = *readAt
	}
	d.publish(ctx, RoutingRead, "read", ReadPayload{
		ConversationUUID: conv.UUID.String(),
		ReaderID:         readerID,
		ReadAt:           at.Format(time.RFC3339Nano),
	})
	d.broadcast(models.ConversationEvent{
		Type:             models.EventRead,
		ConversationUUID: conv.UUID,
		ReaderID:         readerID,
		OccurredAt:       at,
	})
}

// OfferResponded announces the offer's new status and the system notice that records it.
func (d *Dispatcher) OfferResponded(ctx context.Context, conv models.Conversation, offer, notice models.Message) {
	d.publish(ctx, RoutingOfferResponded, "offer_responded", messagePayload(conv, offer, offer.SenderID))
	d.publish(ctx, RoutingMessageCreated, "message_created", messagePayload(conv, notice, offer.SenderID))
	d.broadcast(models.ConversationEvent{
		Type:             models.EventOffer,
		ConversationUUID: conv.UUID,
		Message:          &offer,
		OccurredAt:       notice.CreatedAt,
	})
	d.broadcast(models.ConversationEvent{
		Type:             models.EventMessage,
		ConversationUUID: conv.UUID,
		Message:          &notice,
		OccurredAt:       notice.CreatedAt,
	})
}

func (d *Dispatcher) publish(ctx context.Context, routingKey, name string, payload any) {
	if d.publisher == nil {
		return
	}
	envelope := observability.EventEnvelope{
		EventType: eventType,
		EventName: name,
		RequestID: observability.RequestIDFromContext(ctx),
		TraceID:   observability.TraceIDFromContext(ctx),
		Payload:   payload,
	}
	if err := d.publisher.Publish(ctx, routingKey, envelope); err != nil {
		log.Printf("notify publish failed routing_key=%s: %v", routingKey, err)
	}
}

func (d *Dispatcher) broadcast(event models.ConversationEvent) {
	if d.hub == nil {
		return
	}
	d.hub.Broadcast(event)
}

func messagePayload(conv models.Conversation, msg models.Message, recipientID int64) MessagePayload {
	payload := MessagePayload{
		ConversationUUID: conv.UUID.String(),
		ListingID:        conv.ListingID,
		MessageUUID:      msg.UUID.String(),
		SenderID:         msg.SenderID,
		RecipientID:      recipientID,
		Type:             string(msg.Type),
		Body:             msg.Body,
		OfferAmount:      msg.OfferAmount,
		CreatedAt:        msg.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if msg.OfferStatus != nil {
		payload.OfferStatus = string(*msg.OfferStatus)
	}
	return payload
}
