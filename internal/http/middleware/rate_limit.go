package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/grantgenius/grantgenius-backend/internal/logger"
)

// RateLimitMiddleware ограничивает количество запросов с одного IP.
// prefix разделяет счётчики разных групп маршрутов.
// По умолчанию: 10 запросов в минуту.
func RateLimitMiddleware(prefix string, limit int64, period time.Duration) gin.HandlerFunc {
	if limit <= 0 {
		limit = 10
	}
	if period <= 0 {
		period = time.Minute
	}

	store := memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          prefix,
		CleanUpInterval: limiter.DefaultCleanUpInterval,
	})
	instance := limiter.New(store, limiter.Rate{Period: period, Limit: limit})

	return func(c *gin.Context) {
		state, err := instance.Get(c, c.ClientIP())
		if err != nil {
			// Лимитер в памяти не должен падать; если упал, не блокируем пользователя.
			logger.Entry().WithError(err).Warn("rate limiter failed")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(state.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(state.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(state.Reset, 10))

		if state.Reached {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "слишком много запросов, попробуйте позже",
				"code":  "RATE_LIMITED",
			})
			return
		}

		c.Next()
	}
}
