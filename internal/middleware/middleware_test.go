package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conversation-service/internal/auth"
	"conversation-service/internal/observability"
)

func setupRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":    c.GetInt64(UserIDKey),
			"role":       c.GetString(RoleKey),
			"request_id": observability.RequestIDFromContext(c.Request.Context()),
		})
	})
	r.GET("/", handlers...)
	return r
}

func TestAuthMiddleware(t *testing.T) {
	jwt := auth.NewJWTManager("secret", time.Minute)
	router := setupRouter(AuthMiddleware(jwt))

	token, _, err := jwt.GenerateToken(9, "")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "missing header", header: "", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", status: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer nope", status: http.StatusUnauthorized},
		{name: "valid token", header: "Bearer " + token, status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.JSONEq(t, `{"user_id":9,"role":"","request_id":""}`, w.Body.String())
			} else {
				assert.Contains(t, w.Body.String(), `"kind":"unauthorized"`)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	jwt := auth.NewJWTManager("secret", time.Minute)
	router := setupRouter(AuthMiddleware(jwt), RequireAdmin())

	userToken, _, _ := jwt.GenerateToken(1, "")
	adminToken, _, _ := jwt.GenerateToken(2, auth.RoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAdminIgnoresBareRole(t *testing.T) {
	router := setupRouter(func(c *gin.Context) {
		c.Set(RoleKey, auth.RoleAdmin)
		c.Next()
	}, RequireAdmin())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequestID(t *testing.T) {
	router := setupRouter(RequestID())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(observability.RequestIDHeader, "req-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "req-1", w.Header().Get(observability.RequestIDHeader))
	assert.Contains(t, w.Body.String(), `"request_id":"req-1"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get(observability.RequestIDHeader))
}

func TestLimiterStore_Allow(t *testing.T) {
	s := NewLimiterStore(5, 5, 100*time.Millisecond)
	defer s.Stop()

	for i := 0; i < 5; i++ {
		assert.True(t, s.Allow("user:1"), "iteration %d", i)
	}
	assert.False(t, s.Allow("user:1"))
	assert.True(t, s.Allow("user:2"))
}

func TestRateLimitKeysByUser(t *testing.T) {
	store := NewLimiterStore(1, 1, time.Minute)
	defer store.Stop()

	setUser := func(id int64) gin.HandlerFunc {
		return func(c *gin.Context) {
			c.Set(UserIDKey, id)
			c.Next()
		}
	}
	gin.SetMode(gin.TestMode)
	r := gin.New()
	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }
	r.GET("/a", setUser(1), RateLimit(store), ok)
	r.GET("/b", setUser(2), RateLimit(store), ok)

	do := func(path string) int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w.Code
	}
	assert.Equal(t, http.StatusNoContent, do("/a"))
	assert.Equal(t, http.StatusTooManyRequests, do("/a"))
	assert.Equal(t, http.StatusNoContent, do("/b"))
}
