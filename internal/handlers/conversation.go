package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"conversation-service/internal/apperr"
	"conversation-service/internal/models"
	"conversation-service/internal/services"
	"conversation-service/internal/telemetry"
)

// ConversationService is the participant-facing conversation API.
type ConversationService interface {
	List(ctx context.Context, userID int64, page, perPage int) (services.ConversationPage, error)
	Start(ctx context.Context, userID, listingID int64, body string) (models.Conversation, models.Message, error)
	Get(ctx context.Context, userID int64, conversationUUID uuid.UUID, page, perPage int) (services.ConversationDetail, error)
	Send(ctx context.Context, userID int64, conversationUUID uuid.UUID, in services.SendInput) (models.Message, error)
	RespondToOffer(ctx context.Context, userID int64, messageUUID uuid.UUID, action string) (models.Message, models.Message, error)
	MarkRead(ctx context.Context, userID int64, conversationUUID uuid.UUID) error
	DeleteFor(ctx context.Context, userID int64, conversationUUID uuid.UUID) error
	Block(ctx context.Context, userID int64, conversationUUID uuid.UUID) error
	Unblock(ctx context.Context, userID int64, conversationUUID uuid.UUID) error
	UnreadCount(ctx context.Context, userID int64) (int, error)
}

// ConversationHandler manages buyer/seller conversation endpoints.
type ConversationHandler struct {
	service ConversationService
	audit   *telemetry.AuditEmitter
}

// NewConversationHandler builds a ConversationHandler. A nil emitter disables audit events.
func NewConversationHandler(service ConversationService, audit *telemetry.AuditEmitter) *ConversationHandler {
	return &ConversationHandler{service: service, audit: audit}
}

// Register wires the participant routes onto an authenticated group.
func (h *ConversationHandler) Register(r gin.IRoutes, sendLimit gin.HandlerFunc) {
	r.GET("/conversations", h.ListConversations)
	r.POST("/conversations", h.StartConversation)
	r.GET("/conversations/unread-count", h.UnreadCount)
	r.GET("/conversations/:uuid", h.GetConversation)
	if sendLimit != nil {
		r.POST("/conversations/:uuid/messages", sendLimit, h.SendMessage)
	} else {
		r.POST("/conversations/:uuid/messages", h.SendMessage)
	}
	r.POST("/conversations/:uuid/read", h.MarkRead)
	r.DELETE("/conversations/:uuid", h.DeleteConversation)
	r.POST("/conversations/:uuid/block", h.Block)
	r.POST("/conversations/:uuid/unblock", h.Unblock)
	r.POST("/messages/:uuid/offer-response", h.RespondToOffer)
}

// ListConversations returns the caller's visible conversations, most recent activity first.
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	page, perPage := pageParams(c)
	result, err := h.service.List(c.Request.Context(), userIDFromContext(c), page, perPage)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// StartConversation opens a conversation about a listing with a first message.
func (h *ConversationHandler) StartConversation(c *gin.Context) {
	var req struct {
		ListingID int64  `json:"listing_id" binding:"required"`
		Message   string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation("listing_id and message are required"))
		return
	}

	conv, msg, err := h.service.Start(c.Request.Context(), userIDFromContext(c), req.ListingID, req.Message)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"conversation": conv, "message": msg})
}

func (h *ConversationHandler) UnreadCount(c *gin.Context) {
	count, err := h.service.UnreadCount(c.Request.Context(), userIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

// GetConversation returns the conversation and a page of messages, marking it read.
func (h *ConversationHandler) GetConversation(c *gin.Context) {
	id, ok := uuidParam(c, "uuid", "conversation")
	if !ok {
		return
	}
	page, perPage := pageParams(c)
	detail, err := h.service.Get(c.Request.Context(), userIDFromContext(c), id, page, perPage)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *ConversationHandler) SendMessage(c *gin.Context) {
	id, ok := uuidParam(c, "uuid", "conversation")
	if !ok {
		return
	}

	var req struct {
		Body        string   `json:"body"`
		Type        string   `json:"type"`
		OfferAmount *float64 `json:"offer_amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation("invalid message payload"))
		return
	}

	msg, err := h.service.Send(c.Request.Context(), userIDFromContext(c), id, services.SendInput{
		Body:        req.Body,
		Type:        req.Type,
		OfferAmount: req.OfferAmount,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// RespondToOffer accepts or rejects a pending offer.
func (h *ConversationHandler) RespondToOffer(c *gin.Context) {
	id, ok := uuidParam(c, "uuid", "message")
	if !ok {
		return
	}

	var req struct {
		Action string `json:"action" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation("action must be accept or reject"))
		return
	}

	offer, notice, err := h.service.RespondToOffer(c.Request.Context(), userIDFromContext(c), id, req.Action)
	if err != nil {
		writeError(c, err)
		return
	}
	emitAudit(c, h.audit, "offer_"+req.Action, notice.Body, uuid.Nil, offer.UUID)
	c.JSON(http.StatusOK, gin.H{"offer": offer, "message": notice})
}

func (h *ConversationHandler) MarkRead(c *gin.Context) {
	h.conversationAction(c, h.service.MarkRead, "", "")
}

// DeleteConversation hides the conversation for the caller only.
func (h *ConversationHandler) DeleteConversation(c *gin.Context) {
	h.conversationAction(c, h.service.DeleteFor, "conversation_deleted", "conversation hidden by participant")
}

func (h *ConversationHandler) Block(c *gin.Context) {
	h.conversationAction(c, h.service.Block, "conversation_blocked", "conversation blocked by participant")
}

func (h *ConversationHandler) Unblock(c *gin.Context) {
	h.conversationAction(c, h.service.Unblock, "conversation_unblocked", "conversation unblocked by participant")
}

// conversationAction runs a no-content participant action, auditing it when action is set.
func (h *ConversationHandler) conversationAction(c *gin.Context, fn func(context.Context, int64, uuid.UUID) error, action, text string) {
	id, ok := uuidParam(c, "uuid", "conversation")
	if !ok {
		return
	}
	if err := fn(c.Request.Context(), userIDFromContext(c), id); err != nil {
		writeError(c, err)
		return
	}
	if action != "" {
		emitAudit(c, h.audit, action, text, id, uuid.Nil)
	}
	c.Status(http.StatusNoContent)
}
