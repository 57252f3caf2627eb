package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/grantgenius/grantgenius-backend/internal/logger"
	"github.com/grantgenius/grantgenius-backend/internal/metrics"
)

// RequestLogger пишет строку лога на каждый запрос и обновляет HTTP метрики.
// m может быть nil.
func RequestLogger(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		elapsed := time.Since(started)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		m.ObserveHTTP(route, c.Request.Method, status, elapsed)

		entry := logger.Entry().WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"route":    route,
			"status":   status,
			"duration": elapsed.String(),
			"ip":       c.ClientIP(),
		})
		if uid, ok := c.Get(ContextUserIDKey); ok {
			entry = entry.WithField("user_id", uid)
		}

		switch {
		case status >= 500:
			entry.Error("request")
		case status >= 400:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}

// Recovery превращает панику в ответ 500 через ErrorHandler.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		logger.Entry().WithField("panic", recovered).Error("panic recovered")
		abortWithError(c, errPanic)
	})
}
