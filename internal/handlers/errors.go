package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"conversation-service/internal/apperr"
)

var statusByKind = map[apperr.Kind]int{
	apperr.KindUnauthorized:        http.StatusForbidden,
	apperr.KindNotFound:            http.StatusNotFound,
	apperr.KindConversationBlocked: http.StatusUnprocessableEntity,
	apperr.KindInvalidOfferState:   http.StatusUnprocessableEntity,
	apperr.KindValidation:          http.StatusUnprocessableEntity,
	apperr.KindConflict:            http.StatusConflict,
	apperr.KindRateLimited:         http.StatusTooManyRequests,
	apperr.KindInternal:            http.StatusInternalServerError,
}

// writeError renders err as {"error":{"kind","message"}}. Internal causes are logged, not returned.
func writeError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	if kind == apperr.KindInternal {
		log.Printf("request failed method=%s path=%s request_id=%s: %v", c.Request.Method, c.FullPath(), requestIDFromContext(c), err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"kind": kind, "message": apperr.MessageOf(err)}})
}

// uuidParam parses a public id path parameter. Malformed ids cannot exist, so they are not found.
func uuidParam(c *gin.Context, name, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		writeError(c, apperr.NotFound(what+" not found"))
		return uuid.Nil, false
	}
	return id, true
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.Query("page"))
	perPage, _ := strconv.Atoi(c.Query("per_page"))
	return page, perPage
}
