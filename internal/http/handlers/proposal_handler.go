package handlers

import (
	"context"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/grantgenius/grantgenius-backend/internal/dto"
	"github.com/grantgenius/grantgenius-backend/internal/export"
	"github.com/grantgenius/grantgenius-backend/internal/http/handlers/common"
	"github.com/grantgenius/grantgenius-backend/internal/models"
	"github.com/grantgenius/grantgenius-backend/internal/pkg/apperror"
	"github.com/grantgenius/grantgenius-backend/internal/service"
	"github.com/grantgenius/grantgenius-backend/internal/validation"
)

// ProposalService операции над заявками, нужные обработчику.
type ProposalService interface {
	List(ctx context.Context, userID uuid.UUID) ([]models.ProposalListItem, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*models.ProposalDetails, error)
	Generate(ctx context.Context, userID uuid.UUID, req service.GenerateRequest) (*models.Proposal, error)
	Autosave(ctx context.Context, userID, id uuid.UUID, content string, expectedVersion *int64) (*models.WriteResult, error)
	Update(ctx context.Context, userID, id uuid.UUID, patch models.ProposalPatch) (*models.WriteResult, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Export(ctx context.Context, userID, id uuid.UUID, format export.Format) (*export.Document, error)
}

// ProposalHandler обслуживает /proposals. Все маршруты за AuthMiddleware.
type ProposalHandler struct {
	proposals ProposalService
}

// NewProposalHandler создаёт обработчик заявок.
func NewProposalHandler(proposals ProposalService) *ProposalHandler {
	return &ProposalHandler{proposals: proposals}
}

// ownerAndID достаёт текущего пользователя и :id заявки.
func ownerAndID(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	identity, err := common.CurrentIdentity(c)
	if err != nil {
		common.Fail(c, err)
		return uuid.Nil, uuid.Nil, false
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	return identity.UserID, id, true
}

// List обрабатывает GET /api/proposals.
func (h *ProposalHandler) List(c *gin.Context) {
	identity, err := common.CurrentIdentity(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	proposals, err := h.proposals.List(c.Request.Context(), identity.UserID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proposals": proposals})
}

// Generate обрабатывает POST /api/proposals/generate.
func (h *ProposalHandler) Generate(c *gin.Context) {
	identity, err := common.CurrentIdentity(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	var req dto.GenerateProposalRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}
	if err := validation.ValidateGenerate(req); err != nil {
		common.Fail(c, err)
		return
	}

	in := service.GenerateRequest{
		GrantTitle: req.GrantTitle,
		Goal:       req.Goal,
		OrgType:    req.OrgType,
	}
	if req.GrantDescription != nil {
		in.GrantDescription = *req.GrantDescription
	}
	if req.GrantID != nil && strings.TrimSpace(*req.GrantID) != "" {
		grantID, err := uuid.Parse(strings.TrimSpace(*req.GrantID))
		if err != nil {
			common.Fail(c, apperror.Validation(apperror.FieldError{Field: "grantId", Message: "должен быть валидным UUID"}))
			return
		}
		in.GrantID = &grantID
	}

	proposal, err := h.proposals.Generate(c.Request.Context(), identity.UserID, in)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"proposal": dto.GeneratedProposal{
		ID:      proposal.ID,
		Title:   proposal.Title,
		Content: proposal.Content,
		Version: proposal.Version,
	}})
}

// Get обрабатывает GET /api/proposals/:id.
func (h *ProposalHandler) Get(c *gin.Context) {
	userID, id, ok := ownerAndID(c)
	if !ok {
		return
	}

	proposal, err := h.proposals.Get(c.Request.Context(), userID, id)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proposal": proposal})
}

// Update обрабатывает PATCH /api/proposals/:id.
func (h *ProposalHandler) Update(c *gin.Context) {
	userID, id, ok := ownerAndID(c)
	if !ok {
		return
	}

	var req dto.UpdateProposalRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	patch, err := validation.ValidateProposalPatch(req)
	if err != nil {
		common.Fail(c, err)
		return
	}

	res, err := h.proposals.Update(c.Request.Context(), userID, id, patch)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewWriteResponse("заявка обновлена", res))
}

// Delete обрабатывает DELETE /api/proposals/:id.
func (h *ProposalHandler) Delete(c *gin.Context) {
	userID, id, ok := ownerAndID(c)
	if !ok {
		return
	}

	if err := h.proposals.Delete(c.Request.Context(), userID, id); err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "заявка удалена"})
}

// Autosave обрабатывает POST /api/proposals/:id/autosave.
func (h *ProposalHandler) Autosave(c *gin.Context) {
	userID, id, ok := ownerAndID(c)
	if !ok {
		return
	}

	var req dto.AutosaveRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}
	if req.Content == nil {
		common.Fail(c, apperror.Validation(apperror.FieldError{Field: "content", Message: "обязательное поле"}))
		return
	}

	res, err := h.proposals.Autosave(c.Request.Context(), userID, id, *req.Content, req.Version)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewWriteResponse("черновик сохранён", res))
}

// Export обрабатывает GET /api/proposals/:id/export?format=markdown|text.
func (h *ProposalHandler) Export(c *gin.Context) {
	userID, id, ok := ownerAndID(c)
	if !ok {
		return
	}

	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		common.Fail(c, err)
		return
	}

	doc, err := h.proposals.Export(c.Request.Context(), userID, id, format)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
	c.Data(http.StatusOK, doc.ContentType, doc.Body)
}
