package common

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/grantgenius/grantgenius-backend/internal/http/middleware"
	"github.com/grantgenius/grantgenius-backend/internal/pkg/apperror"
	"github.com/grantgenius/grantgenius-backend/internal/service"
	"github.com/grantgenius/grantgenius-backend/internal/validation"
)

// CurrentIdentity достаёт пользователя, которого положил AuthMiddleware.
func CurrentIdentity(c *gin.Context) (service.Identity, error) {
	raw, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return service.Identity{}, apperror.ErrUnauthorized
	}

	userID, ok := raw.(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return service.Identity{}, apperror.ErrUnauthorized
	}

	return service.Identity{UserID: userID, Role: c.GetString(middleware.ContextRoleKey)}, nil
}

// ParseUUIDParam разбирает UUID из параметра пути.
func ParseUUIDParam(c *gin.Context, paramName string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(c.Param(paramName))
	if err != nil {
		return uuid.Nil, apperror.Validation(apperror.FieldError{Field: paramName, Message: "должен быть валидным UUID"})
	}
	return parsed, nil
}

// BindJSON читает тело запроса; ошибки превращаются в ошибку валидации по полям.
func BindJSON(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return validation.FromBindError(err)
	}
	return nil
}

// Fail передаёт ошибку в ErrorHandler и прерывает цепочку.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
