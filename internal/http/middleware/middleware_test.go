package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grantgenius/grantgenius-backend/internal/models"
	"github.com/grantgenius/grantgenius-backend/internal/pkg/apperror"
	"github.com/grantgenius/grantgenius-backend/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTokens() *service.TokenManager {
	return service.NewTokenManager("access-secret-access-secret-0123456789", "refresh-secret-refresh-secret-0123456789", time.Minute, time.Hour)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestErrorHandler_MapsAppError(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/conflict", func(c *gin.Context) {
		_ = c.Error(apperror.Conflict("заявка была изменена", 7))
	})
	r.GET("/validation", func(c *gin.Context) {
		_ = c.Error(apperror.Validation(apperror.FieldError{Field: "goal", Message: "обязательное поле"}))
	})
	r.GET("/internal", func(c *gin.Context) {
		_ = c.Error(errors.New("pq: password authentication failed"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/conflict", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	body := decode(t, w)
	assert.Equal(t, "CONFLICT", body["code"])
	assert.Equal(t, float64(7), body["currentVersion"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/validation", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	details := decode(t, w)["details"].([]any)
	assert.Equal(t, "goal", details[0].(map[string]any)["field"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/internal", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "pq:")
}

func TestRecovery_Returns500(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(), Recovery())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", decode(t, w)["code"])
}

func newAuthRouter(tokens *service.TokenManager) *gin.Engine {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/me", AuthMiddleware(tokens), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": c.MustGet(ContextUserIDKey)})
	})
	r.GET("/admin", AuthMiddleware(tokens), RequireRole(models.UserRoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	tokens := newTokens()
	r := newAuthRouter(tokens)
	user := &models.User{ID: uuid.New(), Role: models.UserRoleUser}
	pair, err := tokens.GeneratePair(user)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, user.ID.String(), decode(t, w)["userId"])
}

func TestRequireRole(t *testing.T) {
	tokens := newTokens()
	r := newAuthRouter(tokens)

	userPair, err := tokens.GeneratePair(&models.User{ID: uuid.New(), Role: models.UserRoleUser})
	require.NoError(t, err)
	adminPair, err := tokens.GeneratePair(&models.User{ID: uuid.New(), Role: models.UserRoleAdmin})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+userPair.AccessToken)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", decode(t, w)["code"])

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminPair.AccessToken)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestUUIDValidator(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/grants/:id", UUIDValidator("id"), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/grants/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/grants/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.POST("/login", RateLimitMiddleware("test-login", 2, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestCORSMiddleware_AllowsConfiguredOrigin(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://app.example.org"}))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/health", nil)
	req.Header.Set("Origin", "https://app.example.org")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.org", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.org")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
