package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/grantgenius/grantgenius-backend/internal/pkg/apperror"
	"github.com/grantgenius/grantgenius-backend/internal/service"
)

// Context ключи для gin.Context.
const (
	ContextUserIDKey = "userID"
	ContextRoleKey   = "role"
)

// AuthMiddleware проверяет JWT access токен и кладёт личность пользователя в контекст.
func AuthMiddleware(tokens *service.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			abortWithError(c, apperror.ErrUnauthorized)
			return
		}

		identity, err := tokens.ParseAccess(strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")))
		if err != nil {
			abortWithError(c, apperror.Wrap(err, apperror.ErrCodeUnauthorized, "токен невалиден"))
			return
		}

		c.Set(ContextUserIDKey, identity.UserID)
		c.Set(ContextRoleKey, identity.Role)
		c.Next()
	}
}

// RequireRole пропускает только пользователей с указанной ролью.
// Ставится после AuthMiddleware.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextRoleKey) != role {
			abortWithError(c, apperror.ErrForbidden)
			return
		}
		c.Next()
	}
}
