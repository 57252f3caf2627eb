package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/grantgenius/grantgenius-backend/internal/export"
	"github.com/grantgenius/grantgenius-backend/internal/http/middleware"
	"github.com/grantgenius/grantgenius-backend/internal/models"
	"github.com/grantgenius/grantgenius-backend/internal/pkg/apperror"
	"github.com/grantgenius/grantgenius-backend/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// asUser подменяет AuthMiddleware: кладёт пользователя в контекст напрямую.
func asUser(userID uuid.UUID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserIDKey, userID)
		c.Set(middleware.ContextRoleKey, role)
		c.Next()
	}
}

func newProposalRouter(svc ProposalService, userID uuid.UUID) *gin.Engine {
	h := NewProposalHandler(svc)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	g := r.Group("/proposals", asUser(userID, models.UserRoleUser))
	g.GET("", h.List)
	g.POST("/generate", h.Generate)
	g.GET("/:id", h.Get)
	g.PATCH("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/autosave", h.Autosave)
	g.GET("/:id/export", h.Export)
	return r
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestProposalHandler_List_EmptyIsArray(t *testing.T) {
	svc := new(mockProposalService)
	userID := uuid.New()
	svc.On("List", mock.Anything, userID).Return([]models.ProposalListItem{}, nil)

	w := doJSON(newProposalRouter(svc, userID), http.MethodGet, "/proposals", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"proposals":[]}`, w.Body.String())
}

func TestProposalHandler_Generate(t *testing.T) {
	svc := new(mockProposalService)
	userID := uuid.New()
	created := &models.Proposal{ID: uuid.New(), Title: "Proposal for Youth Fund", Content: "## Executive Summary", Status: models.ProposalStatusDraft, Version: 1}

	svc.On("Generate", mock.Anything, userID, service.GenerateRequest{
		GrantTitle: "Youth Fund",
		Goal:       "build 3 schools",
		OrgType:    "NGO",
	}).Return(created, nil).Once()

	w := doJSON(newProposalRouter(svc, userID), http.MethodPost, "/proposals/generate",
		`{"grantTitle":"Youth Fund","goal":"build 3 schools","orgType":"NGO"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Proposal struct {
			ID      uuid.UUID `json:"id"`
			Title   string    `json:"title"`
			Content string    `json:"content"`
		} `json:"proposal"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, created.ID, body.Proposal.ID)
	assert.NotEmpty(t, body.Proposal.Content)
	svc.AssertNumberOfCalls(t, "Generate", 1)
}

func TestProposalHandler_Generate_ValidationNeverReachesService(t *testing.T) {
	svc := new(mockProposalService)
	r := newProposalRouter(svc, uuid.New())

	w := doJSON(r, http.MethodPost, "/proposals/generate", `{"grantTitle":"Youth Fund","goal":"short","orgType":"NGO"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"goal"`)

	w = doJSON(r, http.MethodPost, "/proposals/generate", `{"grantTitle":"Youth Fund","goal":"build 3 schools","orgType":"NGO","grantId":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"grantId"`)

	svc.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestProposalHandler_Generate_Failure(t *testing.T) {
	svc := new(mockProposalService)
	userID := uuid.New()
	svc.On("Generate", mock.Anything, userID, mock.Anything).
		Return(nil, apperror.Wrap(errors.New("dial tcp: timeout"), apperror.ErrCodeGenerationFailed, apperror.ErrGenerationFailed.Message))

	w := doJSON(newProposalRouter(svc, userID), http.MethodPost, "/proposals/generate",
		`{"grantTitle":"Youth Fund","goal":"build 3 schools","orgType":"NGO"}`)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "GENERATION_FAILED")
	assert.NotContains(t, w.Body.String(), "dial tcp")
}

func TestProposalHandler_Get_ForeignIsNotFound(t *testing.T) {
	svc := new(mockProposalService)
	userA := uuid.New()
	id := uuid.New()
	svc.On("Get", mock.Anything, userA, id).Return(nil, apperror.ErrProposalNotFound)

	w := doJSON(newProposalRouter(svc, userA), http.MethodGet, "/proposals/"+id.String(), "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProposalHandler_Autosave(t *testing.T) {
	svc := new(mockProposalService)
	userID := uuid.New()
	id := uuid.New()
	r := newProposalRouter(svc, userID)
	updatedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	w := doJSON(r, http.MethodPost, "/proposals/"+id.String()+"/autosave", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.On("Autosave", mock.Anything, userID, id, "", (*int64)(nil)).
		Return(&models.WriteResult{Version: 4, UpdatedAt: updatedAt}, nil).Once()
	w = doJSON(r, http.MethodPost, "/proposals/"+id.String()+"/autosave", `{"content":""}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"version":4`)
}

func TestProposalHandler_Autosave_Conflict(t *testing.T) {
	svc := new(mockProposalService)
	userID := uuid.New()
	id := uuid.New()
	stale := int64(2)
	svc.On("Autosave", mock.Anything, userID, id, "text", &stale).
		Return(nil, apperror.Conflict("заявка была изменена, обновите данные", 5))

	w := doJSON(newProposalRouter(svc, userID), http.MethodPost, "/proposals/"+id.String()+"/autosave", `{"content":"text","version":2}`)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"currentVersion":5`)
}

func TestProposalHandler_Update_RejectsUnknownStatus(t *testing.T) {
	svc := new(mockProposalService)
	w := doJSON(newProposalRouter(svc, uuid.New()), http.MethodPatch, "/proposals/"+uuid.NewString(), `{"status":"PUBLISHED"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProposalHandler_Update(t *testing.T) {
	svc := new(mockProposalService)
	userID := uuid.New()
	id := uuid.New()
	svc.On("Update", mock.Anything, userID, id, mock.MatchedBy(func(p models.ProposalPatch) bool {
		return p.Status != nil && *p.Status == models.ProposalStatusCompleted && p.Content != nil && *p.Content == "final"
	})).Return(&models.WriteResult{Version: 3}, nil)

	w := doJSON(newProposalRouter(svc, userID), http.MethodPatch, "/proposals/"+id.String(), `{"status":"COMPLETED","content":"final"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"message"`)
}

func TestProposalHandler_Export(t *testing.T) {
	svc := new(mockProposalService)
	userID := uuid.New()
	id := uuid.New()
	svc.On("Export", mock.Anything, userID, id, export.FormatText).
		Return(&export.Document{Filename: "Proposal.txt", ContentType: "text/plain; charset=utf-8", Body: []byte("Proposal\n")}, nil)

	r := newProposalRouter(svc, userID)
	w := doJSON(r, http.MethodGet, "/proposals/"+id.String()+"/export?format=text", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename=Proposal.txt`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "Proposal\n", w.Body.String())

	w = doJSON(r, http.MethodGet, "/proposals/"+id.String()+"/export?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
