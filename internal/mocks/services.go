package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"conversation-service/internal/models"
	"conversation-service/internal/services"
)

type ConversationServiceMock struct {
	mock.Mock
}

func (m *ConversationServiceMock) List(ctx context.Context, userID int64, page, perPage int) (services.ConversationPage, error) {
	args := m.Called(ctx, userID, page, perPage)
	var result services.ConversationPage
	if val := args.Get(0); val != nil {
		result = val.(services.ConversationPage)
	}
	return result, args.Error(1)
}

func (m *ConversationServiceMock) Start(ctx context.Context, userID, listingID int64, body string) (models.Conversation, models.Message, error) {
	args := m.Called(ctx, userID, listingID, body)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	var msg models.Message
	if val := args.Get(1); val != nil {
		msg = val.(models.Message)
	}
	return conv, msg, args.Error(2)
}

func (m *ConversationServiceMock) Get(ctx context.Context, userID int64, conversationUUID uuid.UUID, page, perPage int) (services.ConversationDetail, error) {
	args := m.Called(ctx, userID, conversationUUID, page, perPage)
	var detail services.ConversationDetail
	if val := args.Get(0); val != nil {
		detail = val.(services.ConversationDetail)
	}
	return detail, args.Error(1)
}

func (m *ConversationServiceMock) Send(ctx context.Context, userID int64, conversationUUID uuid.UUID, in services.SendInput) (models.Message, error) {
	args := m.Called(ctx, userID, conversationUUID, in)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *ConversationServiceMock) RespondToOffer(ctx context.Context, userID int64, messageUUID uuid.UUID, action string) (models.Message, models.Message, error) {
	args := m.Called(ctx, userID, messageUUID, action)
	var offer, notice models.Message
	if val := args.Get(0); val != nil {
		offer = val.(models.Message)
	}
	if val := args.Get(1); val != nil {
		notice = val.(models.Message)
	}
	return offer, notice, args.Error(2)
}

func (m *ConversationServiceMock) MarkRead(ctx context.Context, userID int64, conversationUUID uuid.UUID) error {
	return m.Called(ctx, userID, conversationUUID).Error(0)
}

func (m *ConversationServiceMock) DeleteFor(ctx context.Context, userID int64, conversationUUID uuid.UUID) error {
	return m.Called(ctx, userID, conversationUUID).Error(0)
}

func (m *ConversationServiceMock) Block(ctx context.Context, userID int64, conversationUUID uuid.UUID) error {
	return m.Called(ctx, userID, conversationUUID).Error(0)
}

func (m *ConversationServiceMock) Unblock(ctx context.Context, userID int64, conversationUUID uuid.UUID) error {
	return m.Called(ctx, userID, conversationUUID).Error(0)
}

func (m *ConversationServiceMock) UnreadCount(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

type ModerationServiceMock struct {
	mock.Mock
}

func (m *ModerationServiceMock) ListConversations(ctx context.Context, blocked *bool, page, perPage int) (services.AdminConversationPage, error) {
	args := m.Called(ctx, blocked, page, perPage)
	var result services.AdminConversationPage
	if val := args.Get(0); val != nil {
		result = val.(services.AdminConversationPage)
	}
	return result, args.Error(1)
}

func (m *ModerationServiceMock) GetConversation(ctx context.Context, conversationUUID uuid.UUID, page, perPage int) (services.ConversationDetail, error) {
	args := m.Called(ctx, conversationUUID, page, perPage)
	var detail services.ConversationDetail
	if val := args.Get(0); val != nil {
		detail = val.(services.ConversationDetail)
	}
	return detail, args.Error(1)
}

func (m *ModerationServiceMock) DeleteMessage(ctx context.Context, messageUUID uuid.UUID) error {
	return m.Called(ctx, messageUUID).Error(0)
}
