package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/grantgenius/grantgenius-backend/internal/logger"
	"github.com/grantgenius/grantgenius-backend/internal/pkg/apperror"
)

// ErrorHandler обрабатывает ошибки централизованно.
// Обработчики кладут ошибку через c.Error, здесь она превращается в ответ.
// Внутренние ошибки маскируются, причина уходит только в лог.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		writeError(c, c.Errors.Last().Err)
	}
}

var errPanic = apperror.New(apperror.ErrCodeInternal, "внутренняя ошибка сервера")

func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func writeError(c *gin.Context, err error) {
	appErr, ok := apperror.As(err)
	if !ok {
		appErr = apperror.Wrap(err, apperror.ErrCodeInternal, "внутренняя ошибка сервера")
	}

	fields := logrus.Fields{
		"code":   appErr.Code,
		"path":   c.Request.URL.Path,
		"method": c.Request.Method,
	}
	if appErr.Cause != nil {
		fields["cause"] = appErr.Cause.Error()
	}

	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		logger.Entry().WithFields(fields).Error("request failed")
	} else {
		logger.Entry().WithFields(fields).Debug("request rejected")
	}

	body := gin.H{
		"error": appErr.Message,
		"code":  appErr.Code,
	}
	if len(appErr.Details) > 0 {
		body["details"] = appErr.Details
	}
	for k, v := range appErr.Extra {
		body[k] = v
	}
	c.JSON(status, body)
}
