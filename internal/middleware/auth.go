package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"conversation-service/internal/apperr"
	"conversation-service/internal/auth"
)

const (
	UserIDKey = "userID"
	RoleKey   = "role"
	ClaimsKey = "claims"
)

type TokenVerifier interface {
	VerifyToken(token string) (*auth.Claims, error)
}

// AuthMiddleware validates the bearer token and stores the caller's identity on the context.
func AuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthenticated(c, "missing authorization")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthenticated(c, "invalid authorization header")
			return
		}

		claims, err := verifier.VerifyToken(strings.TrimSpace(parts[1]))
		if err != nil {
			abortUnauthenticated(c, "invalid token")
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(RoleKey, claims.Role)
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// RequireAdmin lets through only callers whose token carries the admin role.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		value, _ := c.Get(ClaimsKey)
		if claims, ok := value.(*auth.Claims); !ok || !claims.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": gin.H{
				"kind":    apperr.KindUnauthorized,
				"message": "admin role required",
			}})
			return
		}
		c.Next()
	}
}

func abortUnauthenticated(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{
		"kind":    apperr.KindUnauthorized,
		"message": message,
	}})
}
