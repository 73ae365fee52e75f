package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"conversation-service/internal/services"
	"conversation-service/internal/telemetry"
)

type ModerationService interface {
	ListConversations(ctx context.Context, blocked *bool, page, perPage int) (services.AdminConversationPage, error)
	GetConversation(ctx context.Context, conversationUUID uuid.UUID, page, perPage int) (services.ConversationDetail, error)
	DeleteMessage(ctx context.Context, messageUUID uuid.UUID) error
}

// AdminHandler exposes the moderation surface. Routes must sit behind RequireAdmin.
type AdminHandler struct {
	service ModerationService
	audit   *telemetry.AuditEmitter
}

func NewAdminHandler(service ModerationService, audit *telemetry.AuditEmitter) *AdminHandler {
	return &AdminHandler{service: service, audit: audit}
}

func (h *AdminHandler) Register(r gin.IRoutes) {
	r.GET("/conversations", h.ListConversations)
	r.GET("/conversations/:uuid", h.GetConversation)
	r.GET("/conversations/:uuid/messages", h.ListMessages)
	r.DELETE("/messages/:uuid", h.DeleteMessage)
}

// ListConversations lists every conversation, optionally filtered by ?blocked=true|false.
func (h *AdminHandler) ListConversations(c *gin.Context) {
	var blocked *bool
	if raw := c.Query("blocked"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			blocked = &v
		}
	}
	page, perPage := pageParams(c)
	result, err := h.service.ListConversations(c.Request.Context(), blocked, page, perPage)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AdminHandler) GetConversation(c *gin.Context) {
	detail, ok := h.loadConversation(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *AdminHandler) ListMessages(c *gin.Context) {
	detail, ok := h.loadConversation(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": detail.Messages, "pagination": detail.Pagination})
}

func (h *AdminHandler) loadConversation(c *gin.Context) (services.ConversationDetail, bool) {
	id, ok := uuidParam(c, "uuid", "conversation")
	if !ok {
		return services.ConversationDetail{}, false
	}
	page, perPage := pageParams(c)
	detail, err := h.service.GetConversation(c.Request.Context(), id, page, perPage)
	if err != nil {
		writeError(c, err)
		return services.ConversationDetail{}, false
	}
	return detail, true
}

// DeleteMessage soft-deletes a message for everyone.
func (h *AdminHandler) DeleteMessage(c *gin.Context) {
	id, ok := uuidParam(c, "uuid", "message")
	if !ok {
		return
	}
	if err := h.service.DeleteMessage(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	emitAudit(c, h.audit, "message_removed", "message removed by moderator", uuid.Nil, id)
	c.Status(http.StatusNoContent)
}
