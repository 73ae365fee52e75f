package models

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MessageType discriminates the message variants.
type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeSystem MessageType = "system"
	MessageTypeOffer  MessageType = "offer"
)

// OfferStatus is the lifecycle state of an offer message.
type OfferStatus string

const (
	OfferPending  OfferStatus = "pending"
	OfferAccepted OfferStatus = "accepted"
	OfferRejected OfferStatus = "rejected"
	// OfferExpired is reserved by the schema; no transition produces it.
	OfferExpired OfferStatus = "expired"
)

const (
	MinBodyLength = 1
	MaxBodyLength = 1000

	// MaxOfferAmount is the largest value the NUMERIC(12, 2) column holds.
	MaxOfferAmount = 9999999999.99

	OfferAcceptedText = "Offer accepted"
	OfferRejectedText = "Offer rejected"
)

// Message is a single entry in a conversation timeline.
type Message struct {
	ID             int64        `db:"id" json:"-"`
	UUID           uuid.UUID    `db:"uuid" json:"uuid"`
	ConversationID int64        `db:"conversation_id" json:"-"`
	SenderID       int64        `db:"sender_id" json:"sender_id"`
	Body           string       `db:"body" json:"body"`
	Type           MessageType  `db:"type" json:"type"`
	OfferAmount    *float64     `db:"offer_amount" json:"offer_amount,omitempty"`
	OfferStatus    *OfferStatus `db:"offer_status" json:"offer_status,omitempty"`
	IsRead         bool         `db:"is_read" json:"is_read"`
	ReadAt         *time.Time   `db:"read_at" json:"read_at"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updated_at"`
	DeletedAt      *time.Time   `db:"deleted_at" json:"deleted_at,omitempty"`
}

// NewTextMessage builds an unsaved text message.
func NewTextMessage(senderID int64, body string) (Message, error) {
	msg := Message{SenderID: senderID, Body: strings.TrimSpace(body), Type: MessageTypeText}
	return msg, msg.Validate()
}

// NewOfferMessage builds an unsaved pending offer.
func NewOfferMessage(senderID int64, body string, amount float64) (Message, error) {
	status := OfferPending
	msg := Message{
		SenderID:    senderID,
		Body:        strings.TrimSpace(body),
		Type:        MessageTypeOffer,
		OfferAmount: &amount,
		OfferStatus: &status,
	}
	return msg, msg.Validate()
}

// NewSystemMessage builds an unsaved system notice authored by senderID.
func NewSystemMessage(senderID int64, body string) (Message, error) {
	msg := Message{SenderID: senderID, Body: body, Type: MessageTypeSystem}
	return msg, msg.Validate()
}

// Validate enforces body bounds and that offer fields exist only on offers.
func (m Message) Validate() error {
	if err := ValidateBody(m.Body); err != nil {
		return err
	}
	switch m.Type {
	case MessageTypeOffer:
		if m.OfferAmount == nil || m.OfferStatus == nil {
			return ErrOfferFieldsRequired
		}
		if *m.OfferAmount < 0 {
			return ErrNegativeOffer
		}
		if !storableAmount(*m.OfferAmount) {
			return ErrOfferAmountOutOfRange
		}
		if !m.OfferStatus.Valid() {
			return ErrUnknownOfferStatus
		}
	case MessageTypeText, MessageTypeSystem:
		if m.OfferAmount != nil || m.OfferStatus != nil {
			return ErrOfferFieldsNotAllowed
		}
	default:
		return ErrUnknownMessageType
	}
	return nil
}

// storableAmount reports whether amount fits the offer column without rounding.
func storableAmount(amount float64) bool {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount > MaxOfferAmount {
		return false
	}
	cents := amount * 100
	return math.Abs(cents-math.Round(cents)) < 1e-3
}

func (m Message) IsOffer() bool {
	return m.Type == MessageTypeOffer
}

// IsPendingOffer reports whether the offer can still be accepted or rejected.
func (m Message) IsPendingOffer() bool {
	return m.IsOffer() && m.OfferStatus != nil && *m.OfferStatus == OfferPending
}

func (s OfferStatus) Valid() bool {
	switch s {
	case OfferPending, OfferAccepted, OfferRejected, OfferExpired:
		return true
	}
	return false
}

// ParseMessageType accepts the types a participant may send.
func ParseMessageType(raw string) (MessageType, error) {
	switch MessageType(raw) {
	case "", MessageTypeText:
		return MessageTypeText, nil
	case MessageTypeOffer:
		return MessageTypeOffer, nil
	}
	return "", ErrUnknownMessageType
}

// ValidateBody checks the trimmed body is within the allowed length in characters.
func ValidateBody(body string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(body))
	if n < MinBodyLength {
		return ErrEmptyBody
	}
	if n > MaxBodyLength {
		return ErrBodyTooLong
	}
	return nil
}

// ConversationEvent is pushed to websocket clients and the message bus.
type ConversationEvent struct {
	Type             string    `json:"type"`
	ConversationUUID uuid.UUID `json:"conversation_uuid"`
	Message          *Message  `json:"message,omitempty"`
	ReaderID         int64     `json:"reader_id,omitempty"`
	OccurredAt       time.Time `json:"occurred_at"`
}

const (
	EventMessage = "message"
	EventRead    = "read"
	EventOffer   = "offer"
)
