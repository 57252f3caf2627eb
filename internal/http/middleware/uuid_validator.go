package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/grantgenius/grantgenius-backend/internal/pkg/apperror"
)

// UUIDValidator проверяет, что параметр с указанным именем является валидным UUID.
// Использование: router.GET("/grants/:id", UUIDValidator("id"), handler.Get)
func UUIDValidator(paramName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := uuid.Parse(c.Param(paramName)); err != nil {
			abortWithError(c, apperror.Validation(apperror.FieldError{
				Field:   paramName,
				Message: "должен быть валидным UUID",
			}))
			return
		}
		c.Next()
	}
}
