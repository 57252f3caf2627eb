package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger проверка доступности базы. *sqlx.DB подходит как есть.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler предоставляет endpoint для проверки здоровья сервиса.
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler создаёт новый health handler.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// HealthResponse представляет ответ health check.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// Health обрабатывает GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "healthy", Timestamp: time.Now().UTC(), Checks: map[string]string{"database": "healthy"}}
	statusCode := http.StatusOK

	// Текст ошибки драйвера наружу не отдаём.
	if err := h.db.PingContext(ctx); err != nil {
		resp.Status = "unhealthy"
		resp.Checks["database"] = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, resp)
}
