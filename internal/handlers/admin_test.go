package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"conversation-service/internal/apperr"
	"conversation-service/internal/mocks"
	"conversation-service/internal/models"
	"conversation-service/internal/services"
)

func setupAdminRouter(handler *AdminHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler.Register(r.Group("/admin"))
	return r
}

func TestAdminListConversationsBlockedFilter(t *testing.T) {
	svc := new(mocks.ModerationServiceMock)
	router := setupAdminRouter(NewAdminHandler(svc, nil))

	page := services.AdminConversationPage{
		Conversations: []models.AdminConversationSummary{{Conversation: models.Conversation{UUID: uuid.New(), IsBlocked: true}, MessagesCount: 7}},
		Pagination:    models.Pagination{Page: 1, PerPage: 20, Total: 1},
	}
	svc.On("ListConversations", mock.Anything, mock.MatchedBy(func(b *bool) bool { return b != nil && *b }), 0, 0).Return(page, nil).Once()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/conversations?blocked=true", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"messages_count":7`)
	svc.AssertExpectations(t)
}

func TestAdminListConversationsNoFilter(t *testing.T) {
	svc := new(mocks.ModerationServiceMock)
	router := setupAdminRouter(NewAdminHandler(svc, nil))
	svc.On("ListConversations", mock.Anything, (*bool)(nil), 2, 50).Return(services.AdminConversationPage{}, nil).Once()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/conversations?page=2&per_page=50", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestAdminMessagesIncludeDeleted(t *testing.T) {
	svc := new(mocks.ModerationServiceMock)
	router := setupAdminRouter(NewAdminHandler(svc, nil))

	id := uuid.New()
	detail := services.ConversationDetail{
		Conversation: models.Conversation{UUID: id},
		Messages:     []models.Message{{UUID: uuid.New(), Body: "removed", Type: models.MessageTypeText}},
		Pagination:   models.Pagination{Page: 1, PerPage: 50, Total: 1},
	}
	svc.On("GetConversation", mock.Anything, id, 0, 0).Return(detail, nil).Once()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/conversations/"+id.String()+"/messages", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"removed"`)
	assert.NotContains(t, rec.Body.String(), `"conversation"`)
}

func TestAdminDeleteMessage(t *testing.T) {
	id := uuid.New()

	svc := new(mocks.ModerationServiceMock)
	router := setupAdminRouter(NewAdminHandler(svc, nil))
	svc.On("DeleteMessage", mock.Anything, id).Return(nil).Once()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/messages/"+id.String(), nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	missing := uuid.New()
	svc.On("DeleteMessage", mock.Anything, missing).Return(apperr.NotFound("message not found")).Once()
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/messages/"+missing.String(), nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	svc.AssertExpectations(t)
}
