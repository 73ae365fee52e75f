package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"conversation-service/internal/models"
	"conversation-service/internal/repositories"
)

type ConversationRepositoryMock struct {
	mock.Mock
}

func (m *ConversationRepositoryMock) Create(ctx context.Context, conv *models.Conversation) error {
	args := m.Called(ctx, conv)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) FindByParticipants(ctx context.Context, listingID, buyerID, sellerID int64) (models.Conversation, error) {
	args := m.Called(ctx, listingID, buyerID, sellerID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) GetByUUID(ctx context.Context, id uuid.UUID) (models.Conversation, error) {
	args := m.Called(ctx, id)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) GetByID(ctx context.Context, id int64) (models.Conversation, error) {
	args := m.Called(ctx, id)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]models.Conversation, int, error) {
	args := m.Called(ctx, userID, limit, offset)
	var list []models.Conversation
	if val := args.Get(0); val != nil {
		list = val.([]models.Conversation)
	}
	return list, args.Int(1), args.Error(2)
}

func (m *ConversationRepositoryMock) UnreadCounts(ctx context.Context, conversationIDs []int64, userID int64) (map[int64]int, error) {
	args := m.Called(ctx, conversationIDs, userID)
	var counts map[int64]int
	if val := args.Get(0); val != nil {
		counts = val.(map[int64]int)
	}
	return counts, args.Error(1)
}

func (m *ConversationRepositoryMock) TotalUnread(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *ConversationRepositoryMock) MarkRead(ctx context.Context, conv models.Conversation, userID int64, at time.Time) (int64, error) {
	args := m.Called(ctx, conv, userID, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *ConversationRepositoryMock) SetDeleted(ctx context.Context, conv models.Conversation, userID int64, deleted bool) error {
	args := m.Called(ctx, conv, userID, deleted)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) Block(ctx context.Context, conversationID int64, userID int64) (bool, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ConversationRepositoryMock) Unblock(ctx context.Context, conversationID int64, userID int64) (bool, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ConversationRepositoryMock) AdminList(ctx context.Context, blocked *bool, limit, offset int) ([]models.AdminConversationSummary, int, error) {
	args := m.Called(ctx, blocked, limit, offset)
	var list []models.AdminConversationSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.AdminConversationSummary)
	}
	return list, args.Int(1), args.Error(2)
}

var _ repositories.ConversationRepository = (*ConversationRepositoryMock)(nil)

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Create(ctx context.Context, conv models.Conversation, msg *models.Message) error {
	args := m.Called(ctx, conv, msg)
	return args.Error(0)
}

func (m *MessageRepositoryMock) GetByUUID(ctx context.Context, id uuid.UUID, includeDeleted bool) (models.Message, error) {
	args := m.Called(ctx, id, includeDeleted)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListForConversation(ctx context.Context, conversationID int64, limit, offset int, includeDeleted bool) ([]models.Message, int, error) {
	args := m.Called(ctx, conversationID, limit, offset, includeDeleted)
	var list []models.Message
	if val := args.Get(0); val != nil {
		list = val.([]models.Message)
	}
	return list, args.Int(1), args.Error(2)
}

func (m *MessageRepositoryMock) LatestForConversations(ctx context.Context, conversationIDs []int64) (map[int64]models.Message, error) {
	args := m.Called(ctx, conversationIDs)
	var latest map[int64]models.Message
	if val := args.Get(0); val != nil {
		latest = val.(map[int64]models.Message)
	}
	return latest, args.Error(1)
}

func (m *MessageRepositoryMock) RespondToOffer(ctx context.Context, offer models.Message, status models.OfferStatus, notice *models.Message) error {
	args := m.Called(ctx, offer, status, notice)
	return args.Error(0)
}

func (m *MessageRepositoryMock) SoftDelete(ctx context.Context, messageID int64) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)

type ListingCatalogMock struct {
	mock.Mock
}

func (m *ListingCatalogMock) GetListing(ctx context.Context, listingID int64) (models.Listing, error) {
	args := m.Called(ctx, listingID)
	var listing models.Listing
	if val := args.Get(0); val != nil {
		listing = val.(models.Listing)
	}
	return listing, args.Error(1)
}

func (m *ListingCatalogMock) IncrementContacts(ctx context.Context, listingID int64) error {
	args := m.Called(ctx, listingID)
	return args.Error(0)
}

var _ repositories.ListingCatalog = (*ListingCatalogMock)(nil)

type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) MessageCreated(ctx context.Context, conv models.Conversation, msg models.Message) {
	m.Called(ctx, conv, msg)
}

func (m *NotifierMock) ConversationRead(ctx context.Context, conv models.Conversation, readerID int64) {
	m.Called(ctx, conv, readerID)
}

func (m *NotifierMock) OfferResponded(ctx context.Context, conv models.Conversation, offer, notice models.Message) {
	m.Called(ctx, conv, offer, notice)
}

type BroadcasterMock struct {
	mock.Mock
}

func (m *BroadcasterMock) Broadcast(event models.ConversationEvent) {
	m.Called(event)
}
