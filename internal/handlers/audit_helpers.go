package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"conversation-service/internal/middleware"
	"conversation-service/internal/telemetry"
)

func requestIDFromContext(c *gin.Context) string {
	if id := c.GetString(middleware.RequestIDKey); id != "" {
		return id
	}

	requestID := c.GetHeader("X-Request-Id")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(middleware.RequestIDKey, requestID)
	return requestID
}

func userIDFromContext(c *gin.Context) int64 {
	return c.GetInt64(middleware.UserIDKey)
}

func emitAudit(c *gin.Context, emitter *telemetry.AuditEmitter, action, text string, conversationID, messageID uuid.UUID) {
	if emitter == nil {
		return
	}
	entry := telemetry.AuditEntry{
		Level:  "INFO",
		Action: action,
		Text:   text,
		UserID: userIDFromContext(c),
	}
	if conversationID != uuid.Nil {
		entry.ConversationUUID = conversationID.String()
	}
	if messageID != uuid.Nil {
		entry.MessageUUID = messageID.String()
	}
	emitter.Emit(c.Request.Context(), entry)
}
