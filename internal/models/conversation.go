package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotParticipant is returned when a user is neither buyer nor seller.
var ErrNotParticipant = errors.New("user is not a participant of the conversation")

// Conversation is the thread between one buyer and one seller about one listing.
type Conversation struct {
	ID               int64      `db:"id" json:"-"`
	UUID             uuid.UUID  `db:"uuid" json:"uuid"`
	ListingID        int64      `db:"listing_id" json:"listing_id"`
	BuyerID          int64      `db:"buyer_id" json:"buyer_id"`
	SellerID         int64      `db:"seller_id" json:"seller_id"`
	BuyerLastReadAt  *time.Time `db:"buyer_last_read_at" json:"buyer_last_read_at"`
	SellerLastReadAt *time.Time `db:"seller_last_read_at" json:"seller_last_read_at"`
	BuyerDeleted     bool       `db:"buyer_deleted" json:"buyer_deleted"`
	SellerDeleted    bool       `db:"seller_deleted" json:"seller_deleted"`
	IsBlocked        bool       `db:"is_blocked" json:"is_blocked"`
	BlockedBy        *int64     `db:"blocked_by" json:"blocked_by"`
	LastMessageAt    *time.Time `db:"last_message_at" json:"last_message_at"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// Side identifies which role a participant plays in a conversation.
type Side string

const (
	SideBuyer  Side = "buyer"
	SideSeller Side = "seller"
)

// ConversationState is the send-eligibility state of a conversation.
type ConversationState string

const (
	StateOpen    ConversationState = "open"
	StateBlocked ConversationState = "blocked"
)

// IsParticipant reports whether userID is the buyer or the seller.
func (c Conversation) IsParticipant(userID int64) bool {
	return c.BuyerID == userID || c.SellerID == userID
}

// SideOf returns the role of userID in the conversation.
func (c Conversation) SideOf(userID int64) (Side, error) {
	switch userID {
	case c.BuyerID:
		return SideBuyer, nil
	case c.SellerID:
		return SideSeller, nil
	}
	return "", ErrNotParticipant
}

// OtherParticipant returns the counterpart of userID.
func (c Conversation) OtherParticipant(userID int64) (int64, error) {
	switch userID {
	case c.BuyerID:
		return c.SellerID, nil
	case c.SellerID:
		return c.BuyerID, nil
	}
	return 0, ErrNotParticipant
}

// LastReadAt returns the read cursor of userID, nil if never read.
func (c Conversation) LastReadAt(userID int64) *time.Time {
	side, err := c.SideOf(userID)
	if err != nil {
		return nil
	}
	if side == SideBuyer {
		return c.BuyerLastReadAt
	}
	return c.SellerLastReadAt
}

func (c Conversation) State() ConversationState {
	if c.IsBlocked {
		return StateBlocked
	}
	return StateOpen
}

// ConversationSummary is one row of a participant's conversation list.
type ConversationSummary struct {
	Conversation
	OtherUserID   int64    `json:"other_user_id"`
	UnreadCount   int      `json:"unread_count"`
	LatestMessage *Message `json:"latest_message,omitempty"`
}

// AdminConversationSummary is one row of the moderation listing.
type AdminConversationSummary struct {
	Conversation
	MessagesCount int `db:"messages_count" json:"messages_count"`
}

// UnreadCount is a per-conversation aggregate row.
type UnreadCount struct {
	ConversationID int64 `db:"conversation_id"`
	Count          int   `db:"unread_count"`
}

// Listing is the slice of the listing catalog the conversation service needs.
type Listing struct {
	ID     int64  `db:"id" json:"id"`
	UserID int64  `db:"user_id" json:"user_id"`
	Status string `db:"status" json:"status"`
}

const ListingStatusActive = "active"

func (l Listing) IsActive() bool {
	return l.Status == ListingStatusActive
}
