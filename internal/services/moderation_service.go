package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"conversation-service/internal/apperr"
	"conversation-service/internal/models"
	"conversation-service/internal/repositories"
)

const (
	AdminConversationsPerPage    = 20
	MaxAdminConversationsPerPage = 100
	AdminMessagesPerPage         = 50
	MaxAdminMessagesPerPage      = 200
)

// AdminConversationPage is a page of the moderation listing.
type AdminConversationPage struct {
	Conversations []models.AdminConversationSummary `json:"conversations"`
	Pagination    models.Pagination                 `json:"pagination"`
}

// ModerationService reads and moderates conversations without participant checks.
type ModerationService struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
}

func NewModerationService(conversations repositories.ConversationRepository, messages repositories.MessageRepository) *ModerationService {
	return &ModerationService{conversations: conversations, messages: messages}
}

func (s *ModerationService) ListConversations(ctx context.Context, blocked *bool, page, perPage int) (AdminConversationPage, error) {
	p := models.NewPagination(page, perPage, AdminConversationsPerPage, MaxAdminConversationsPerPage)
	rows, total, err := s.conversations.AdminList(ctx, blocked, p.Limit(), p.Offset())
	if err != nil {
		return AdminConversationPage{}, apperr.Internal(err)
	}
	p.Total = total
	return AdminConversationPage{Conversations: rows, Pagination: p}, nil
}

// GetConversation returns a conversation and a page of all its messages, soft-deleted included.
func (s *ModerationService) GetConversation(ctx context.Context, conversationUUID uuid.UUID, page, perPage int) (ConversationDetail, error) {
	conv, err := s.conversations.GetByUUID(ctx, conversationUUID)
	if err != nil {
		if errors.Is(err, repositories.ErrConversationNotFound) {
			return ConversationDetail{}, err
		}
		return ConversationDetail{}, apperr.Internal(err)
	}

	p := models.NewPagination(page, perPage, AdminMessagesPerPage, MaxAdminMessagesPerPage)
	msgs, total, err := s.messages.ListForConversation(ctx, conv.ID, p.Limit(), p.Offset(), true)
	if err != nil {
		return ConversationDetail{}, apperr.Internal(err)
	}
	p.Total = total
	return ConversationDetail{Conversation: conv, Messages: msgs, Pagination: p}, nil
}

// DeleteMessage soft-deletes a message; it disappears from participant reads and unread counts.
func (s *ModerationService) DeleteMessage(ctx context.Context, messageUUID uuid.UUID) error {
	msg, err := s.messages.GetByUUID(ctx, messageUUID, false)
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			return err
		}
		return apperr.Internal(err)
	}
	if err := s.messages.SoftDelete(ctx, msg.ID); err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			return err
		}
		return apperr.Internal(err)
	}
	return nil
}
