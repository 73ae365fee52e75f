package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"conversation-service/internal/apperr"
	"conversation-service/internal/models"
	"conversation-service/internal/observability"
	"conversation-service/internal/repositories"
)

const (
	ConversationsPerPage    = 20
	MaxConversationsPerPage = 50
	MessagesPerPage         = 50
	MaxMessagesPerPage      = 100
)

// Notifier receives fire-and-forget signals about conversation activity.
type Notifier interface {
	MessageCreated(ctx context.Context, conv models.Conversation, msg models.Message)
	ConversationRead(ctx context.Context, conv models.Conversation, readerID int64)
	OfferResponded(ctx context.Context, conv models.Conversation, offer, notice models.Message)
}

// SendInput is the caller-supplied part of a new message.
type SendInput struct {
	Body        string
	Type        string
	OfferAmount *float64
}

// ConversationPage is a page of a participant's conversation list.
type ConversationPage struct {
	Conversations []models.ConversationSummary `json:"conversations"`
	Pagination    models.Pagination            `json:"pagination"`
}

// ConversationDetail is a conversation with one page of its messages.
type ConversationDetail struct {
	Conversation models.Conversation `json:"conversation"`
	Messages     []models.Message    `json:"messages"`
	OtherUserID  int64               `json:"other_user_id"`
	Pagination   models.Pagination   `json:"pagination"`
}

// ConversationService owns the buyer/seller conversation rules.
type ConversationService struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	listings      repositories.ListingCatalog
	notifier      Notifier
	now           func() time.Time
}

// NewConversationService builds a ConversationService. A nil notifier disables notifications.
func NewConversationService(conversations repositories.ConversationRepository, messages repositories.MessageRepository, listings repositories.ListingCatalog, notifier Notifier) *ConversationService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &ConversationService{
		conversations: conversations,
		messages:      messages,
		listings:      listings,
		notifier:      notifier,
		now:           func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// FindOrCreate returns the conversation for the triple, creating it if needed.
// A lost insert race is resolved by looking up the winner's row.
func (s *ConversationService) FindOrCreate(ctx context.Context, listingID, buyerID, sellerID int64) (models.Conversation, error) {
	if buyerID == sellerID {
		return models.Conversation{}, apperr.Validation("you cannot message yourself")
	}

	conv, err := s.conversations.FindByParticipants(ctx, listingID, buyerID, sellerID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, repositories.ErrConversationNotFound) {
		return models.Conversation{}, apperr.Internal(err)
	}

	conv = models.Conversation{ListingID: listingID, BuyerID: buyerID, SellerID: sellerID}
	err = s.conversations.Create(ctx, &conv)
	switch {
	case err == nil:
		observability.IncConversationCreated()
		return conv, nil
	case errors.Is(err, repositories.ErrConversationExists):
		observability.IncCreateRace()
		conv, err = s.conversations.FindByParticipants(ctx, listingID, buyerID, sellerID)
		if err != nil {
			return models.Conversation{}, apperr.Internal(err)
		}
		return conv, nil
	default:
		return models.Conversation{}, apperr.Internal(err)
	}
}

// Start opens (or reopens) the caller's conversation about a listing with a first text message.
func (s *ConversationService) Start(ctx context.Context, userID, listingID int64, body string) (models.Conversation, models.Message, error) {
	ctx, span := observability.StartSpan(ctx, "conversations.Start", attribute.Int64("listing.id", listingID))
	defer span.End()

	msg, err := models.NewTextMessage(userID, body)
	if err != nil {
		return models.Conversation{}, models.Message{}, apperr.Validation(err.Error())
	}

	listing, err := s.listings.GetListing(ctx, listingID)
	if err != nil {
		if errors.Is(err, repositories.ErrListingNotFound) {
			return models.Conversation{}, models.Message{}, err
		}
		return models.Conversation{}, models.Message{}, apperr.Internal(err)
	}
	if listing.UserID == userID {
		return models.Conversation{}, models.Message{}, apperr.Validation("you cannot message yourself")
	}
	if !listing.IsActive() {
		return models.Conversation{}, models.Message{}, apperr.Validation("this listing is no longer available")
	}

	conv, err := s.FindOrCreate(ctx, listing.ID, userID, listing.UserID)
	if err != nil {
		return models.Conversation{}, models.Message{}, err
	}
	if conv.IsBlocked {
		return models.Conversation{}, models.Message{}, apperr.Blocked("this conversation is blocked")
	}

	if err := s.messages.Create(ctx, conv, &msg); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return models.Conversation{}, models.Message{}, apperr.Internal(err)
	}
	conv.BuyerDeleted = false
	conv.LastMessageAt = &msg.CreatedAt
	observability.IncMessageSent(string(msg.Type))

	if err := s.listings.IncrementContacts(ctx, listing.ID); err != nil {
		log.Printf("increment listing contacts failed listing_id=%d: %v", listing.ID, err)
	}

	s.notifier.MessageCreated(ctx, conv, msg)
	return conv, msg, nil
}

// Authorize resolves a conversation by public id and checks the caller takes part in it.
func (s *ConversationService) Authorize(ctx context.Context, userID int64, conversationUUID uuid.UUID) (models.Conversation, error) {
	conv, err := s.conversations.GetByUUID(ctx, conversationUUID)
	if err != nil {
		if errors.Is(err, repositories.ErrConversationNotFound) {
			return models.Conversation{}, err
		}
		return models.Conversation{}, apperr.Internal(err)
	}
	if !conv.IsParticipant(userID) {
		return models.Conversation{}, apperr.Unauthorized("you are not a participant of this conversation")
	}
	return conv, nil
}

// List returns a page of the caller's visible conversations with unread counts
// and latest messages, using one batched query for each.
func (s *ConversationService) List(ctx context.Context, userID int64, page, perPage int) (ConversationPage, error) {
	p := models.NewPagination(page, perPage, ConversationsPerPage, MaxConversationsPerPage)

	convs, total, err := s.conversations.ListForUser(ctx, userID, p.Limit(), p.Offset())
	if err != nil {
		return ConversationPage{}, apperr.Internal(err)
	}
	p.Total = total

	ids := make([]int64, 0, len(convs))
	for _, c := range convs {
		ids = append(ids, c.ID)
	}

	unread, err := s.conversations.UnreadCounts(ctx, ids, userID)
	if err != nil {
		return ConversationPage{}, apperr.Internal(err)
	}
	latest, err := s.messages.LatestForConversations(ctx, ids)
	if err != nil {
		return ConversationPage{}, apperr.Internal(err)
	}

	summaries := make([]models.ConversationSummary, 0, len(convs))
	for _, c := range convs {
		other, _ := c.OtherParticipant(userID)
		summary := models.ConversationSummary{Conversation: c, OtherUserID: other, UnreadCount: unread[c.ID]}
		if m, ok := latest[c.ID]; ok {
			summary.LatestMessage = &m
		}
		summaries = append(summaries, summary)
	}
	return ConversationPage{Conversations: summaries, Pagination: p}, nil
}

// Get returns the conversation with a page of messages. Viewing marks it read.
func (s *ConversationService) Get(ctx context.Context, userID int64, conversationUUID uuid.UUID, page, perPage int) (ConversationDetail, error) {
	conv, err := s.Authorize(ctx, userID, conversationUUID)
	if err != nil {
		return ConversationDetail{}, err
	}

	if err := s.markRead(ctx, &conv, userID); err != nil {
		return ConversationDetail{}, err
	}

	p := models.NewPagination(page, perPage, MessagesPerPage, MaxMessagesPerPage)
	msgs, total, err := s.messages.ListForConversation(ctx, conv.ID, p.Limit(), p.Offset(), false)
	if err != nil {
		return ConversationDetail{}, apperr.Internal(err)
	}
	p.Total = total

	other, _ := conv.OtherParticipant(userID)
	return ConversationDetail{Conversation: conv, Messages: msgs, OtherUserID: other, Pagination: p}, nil
}

// Send stores a text or offer message from a participant of an open conversation.
func (s *ConversationService) Send(ctx context.Context, userID int64, conversationUUID uuid.UUID, in SendInput) (models.Message, error) {
	ctx, span := observability.StartSpan(ctx, "conversations.Send", attribute.String("conversation.uuid", conversationUUID.String()))
	defer span.End()

	conv, err := s.Authorize(ctx, userID, conversationUUID)
	if err != nil {
		return models.Message{}, err
	}
	if conv.State() == models.StateBlocked {
		return models.Message{}, apperr.Blocked("this conversation is blocked")
	}

	msg, err := buildMessage(userID, in)
	if err != nil {
		return models.Message{}, apperr.Validation(err.Error())
	}

	if err := s.messages.Create(ctx, conv, &msg); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return models.Message{}, apperr.Internal(err)
	}
	observability.IncMessageSent(string(msg.Type))

	s.notifier.MessageCreated(ctx, conv, msg)
	return msg, nil
}

func buildMessage(senderID int64, in SendInput) (models.Message, error) {
	msgType, err := models.ParseMessageType(in.Type)
	if err != nil {
		return models.Message{}, err
	}
	if msgType == models.MessageTypeOffer {
		if in.OfferAmount == nil {
			return models.Message{}, models.ErrOfferFieldsRequired
		}
		return models.NewOfferMessage(senderID, in.Body, *in.OfferAmount)
	}
	if in.OfferAmount != nil {
		return models.Message{}, models.ErrOfferFieldsNotAllowed
	}
	return models.NewTextMessage(senderID, in.Body)
}

// RespondToOffer accepts or rejects a pending offer made by the other participant
// and appends a system notice authored by the responder.
func (s *ConversationService) RespondToOffer(ctx context.Context, userID int64, messageUUID uuid.UUID, action string) (models.Message, models.Message, error) {
	ctx, span := observability.StartSpan(ctx, "conversations.RespondToOffer", attribute.String("message.uuid", messageUUID.String()))
	defer span.End()

	offer, err := s.messages.GetByUUID(ctx, messageUUID, false)
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			return models.Message{}, models.Message{}, err
		}
		return models.Message{}, models.Message{}, apperr.Internal(err)
	}

	conv, err := s.conversations.GetByID(ctx, offer.ConversationID)
	if err != nil {
		return models.Message{}, models.Message{}, apperr.Internal(err)
	}
	if !conv.IsParticipant(userID) {
		return models.Message{}, models.Message{}, apperr.Unauthorized("you are not a participant of this conversation")
	}
	if offer.SenderID == userID {
		return models.Message{}, models.Message{}, apperr.Unauthorized("you cannot respond to your own offer")
	}

	var status models.OfferStatus
	var text string
	switch action {
	case "accept":
		status, text = models.OfferAccepted, models.OfferAcceptedText
	case "reject":
		status, text = models.OfferRejected, models.OfferRejectedText
	default:
		return models.Message{}, models.Message{}, apperr.Validation("action must be accept or reject")
	}

	if !offer.IsPendingOffer() {
		return models.Message{}, models.Message{}, apperr.InvalidOfferState("invalid offer")
	}

	notice, err := models.NewSystemMessage(userID, text)
	if err != nil {
		return models.Message{}, models.Message{}, apperr.Internal(err)
	}
	if err := s.messages.RespondToOffer(ctx, offer, status, &notice); err != nil {
		if errors.Is(err, repositories.ErrOfferNotPending) {
			return models.Message{}, models.Message{}, apperr.InvalidOfferState("invalid offer")
		}
		return models.Message{}, models.Message{}, apperr.Internal(err)
	}
	offer.OfferStatus = &status
	observability.IncOfferResponse(string(status))
	observability.IncMessageSent(string(notice.Type))

	s.notifier.OfferResponded(ctx, conv, offer, notice)
	return offer, notice, nil
}

// MarkRead moves the caller's read cursor and flags the counterpart's messages read.
func (s *ConversationService) MarkRead(ctx context.Context, userID int64, conversationUUID uuid.UUID) error {
	conv, err := s.Authorize(ctx, userID, conversationUUID)
	if err != nil {
		return err
	}
	return s.markRead(ctx, &conv, userID)
}

func (s *ConversationService) markRead(ctx context.Context, conv *models.Conversation, userID int64) error {
	at := s.now()
	updated, err := s.conversations.MarkRead(ctx, *conv, userID, at)
	if err != nil {
		return apperr.Internal(err)
	}
	if conv.BuyerID == userID {
		conv.BuyerLastReadAt = &at
	} else {
		conv.SellerLastReadAt = &at
	}
	if updated > 0 {
		s.notifier.ConversationRead(ctx, *conv, userID)
	}
	return nil
}

// DeleteFor hides the conversation from the caller only.
func (s *ConversationService) DeleteFor(ctx context.Context, userID int64, conversationUUID uuid.UUID) error {
	conv, err := s.Authorize(ctx, userID, conversationUUID)
	if err != nil {
		return err
	}
	if err := s.conversations.SetDeleted(ctx, conv, userID, true); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// Block stops both participants from sending. An existing block keeps its original author.
func (s *ConversationService) Block(ctx context.Context, userID int64, conversationUUID uuid.UUID) error {
	conv, err := s.Authorize(ctx, userID, conversationUUID)
	if err != nil {
		return err
	}
	if _, err := s.conversations.Block(ctx, conv.ID, userID); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// Unblock reopens a conversation. Only the participant who blocked may unblock.
func (s *ConversationService) Unblock(ctx context.Context, userID int64, conversationUUID uuid.UUID) error {
	conv, err := s.Authorize(ctx, userID, conversationUUID)
	if err != nil {
		return err
	}
	if !conv.IsBlocked {
		return nil
	}
	if conv.BlockedBy == nil || *conv.BlockedBy != userID {
		return apperr.Unauthorized("only the participant who blocked can unblock")
	}
	if _, err := s.conversations.Unblock(ctx, conv.ID, userID); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// UnreadCount is the caller's unread total across visible, unblocked conversations.
func (s *ConversationService) UnreadCount(ctx context.Context, userID int64) (int, error) {
	count, err := s.conversations.TotalUnread(ctx, userID)
	if err != nil {
		return 0, apperr.Internal(err)
	}
	return count, nil
}

type noopNotifier struct{}

func (noopNotifier) MessageCreated(context.Context, models.Conversation, models.Message) {}

func (noopNotifier) ConversationRead(context.Context, models.Conversation, int64) {}

func (noopNotifier) OfferResponded(context.Context, models.Conversation, models.Message, models.Message) {
}
