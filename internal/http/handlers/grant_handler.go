package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/grantgenius/grantgenius-backend/internal/dto"
	"github.com/grantgenius/grantgenius-backend/internal/http/handlers/common"
	"github.com/grantgenius/grantgenius-backend/internal/models"
	"github.com/grantgenius/grantgenius-backend/internal/service"
	"github.com/grantgenius/grantgenius-backend/internal/validation"
)

// GrantService операции над грантами, нужные обработчику.
type GrantService interface {
	ListActive(ctx context.Context, filter models.GrantFilter) ([]models.Grant, error)
	ListAll(ctx context.Context, filter models.GrantFilter) ([]models.Grant, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Grant, error)
	Create(ctx context.Context, admin service.Identity, fields models.GrantFields) (*models.Grant, error)
	Update(ctx context.Context, admin service.Identity, id uuid.UUID, patch models.GrantPatch) (*models.Grant, error)
	Delete(ctx context.Context, admin service.Identity, id uuid.UUID) error
}

// GrantHandler обслуживает /grants и /admin/grants.
type GrantHandler struct {
	grants GrantService
}

// NewGrantHandler создаёт обработчик грантов.
func NewGrantHandler(grants GrantService) *GrantHandler {
	return &GrantHandler{grants: grants}
}

func grantFilterFromQuery(c *gin.Context) models.GrantFilter {
	return models.GrantFilter{
		Category:    strings.TrimSpace(c.Query("category")),
		Region:      strings.TrimSpace(c.Query("region")),
		FundingBody: strings.TrimSpace(c.Query("fundingBody")),
		Search:      strings.TrimSpace(c.Query("search")),
	}
}

// List обрабатывает GET /api/grants. Только активные гранты.
func (h *GrantHandler) List(c *gin.Context) {
	grants, err := h.grants.ListActive(c.Request.Context(), grantFilterFromQuery(c))
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"grants": grants})
}

// ListAll обрабатывает GET /api/admin/grants.
func (h *GrantHandler) ListAll(c *gin.Context) {
	grants, err := h.grants.ListAll(c.Request.Context(), grantFilterFromQuery(c))
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"grants": grants})
}

// Get обрабатывает GET /api/grants/:id.
func (h *GrantHandler) Get(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	grant, err := h.grants.Get(c.Request.Context(), id)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"grant": grant})
}

// Create обрабатывает POST /api/grants.
func (h *GrantHandler) Create(c *gin.Context) {
	admin, err := common.CurrentIdentity(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	var req dto.CreateGrantRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	fields, err := validation.ValidateGrantCreate(req)
	if err != nil {
		common.Fail(c, err)
		return
	}

	grant, err := h.grants.Create(c.Request.Context(), admin, fields)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"grant": grant})
}

// Update обрабатывает PATCH /api/grants/:id.
func (h *GrantHandler) Update(c *gin.Context) {
	admin, err := common.CurrentIdentity(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	var req dto.UpdateGrantRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	patch, err := validation.ValidateGrantPatch(req)
	if err != nil {
		common.Fail(c, err)
		return
	}

	grant, err := h.grants.Update(c.Request.Context(), admin, id, patch)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"grant": grant})
}

// Delete обрабатывает DELETE /api/grants/:id.
func (h *GrantHandler) Delete(c *gin.Context) {
	admin, err := common.CurrentIdentity(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	if err := h.grants.Delete(c.Request.Context(), admin, id); err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "грант удалён"})
}
