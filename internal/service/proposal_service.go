package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/grantgenius/grantgenius-backend/internal/ai"
	"github.com/grantgenius/grantgenius-backend/internal/export"
	"github.com/grantgenius/grantgenius-backend/internal/logger"
	"github.com/grantgenius/grantgenius-backend/internal/metrics"
	"github.com/grantgenius/grantgenius-backend/internal/models"
	"github.com/grantgenius/grantgenius-backend/internal/pkg/apperror"
)

// ProposalRepository хранилище заявок; владелец проверяется внутри каждого запроса.
type ProposalRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ProposalListItem, error)
	GetForUser(ctx context.Context, userID, id uuid.UUID) (*models.ProposalDetails, error)
	Create(ctx context.Context, p *models.Proposal) error
	Autosave(ctx context.Context, userID, id uuid.UUID, content string, expectedVersion *int64) (*models.WriteResult, error)
	Update(ctx context.Context, userID, id uuid.UUID, patch models.ProposalPatch) (*models.WriteResult, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// ProposalGenerator внешний генератор черновиков.
type ProposalGenerator interface {
	GenerateProposal(ctx context.Context, in ai.GenerateInput) (string, error)
}

// GrantReader чтение гранта для привязки заявки.
type GrantReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Grant, error)
}

// GenerateRequest входные данные генерации (уже прошедшие валидацию формы).
type GenerateRequest struct {
	GrantTitle       string
	Goal             string
	OrgType          string
	GrantID          *uuid.UUID
	GrantDescription string
}

// ProposalService сценарий «генерация → черновик → редактирование».
type ProposalService struct {
	repo              ProposalRepository
	grants            GrantReader
	generator         ProposalGenerator
	metrics           *metrics.Metrics
	generationTimeout time.Duration
}

// NewProposalService создаёт сервис заявок. metrics может быть nil.
func NewProposalService(repo ProposalRepository, grants GrantReader, generator ProposalGenerator, m *metrics.Metrics, generationTimeout time.Duration) *ProposalService {
	if generationTimeout <= 0 {
		generationTimeout = ai.DefaultTimeout
	}
	return &ProposalService{
		repo:              repo,
		grants:            grants,
		generator:         generator,
		metrics:           m,
		generationTimeout: generationTimeout,
	}
}

// List заявки пользователя.
func (s *ProposalService) List(ctx context.Context, userID uuid.UUID) ([]models.ProposalListItem, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Get заявка пользователя с грантом.
func (s *ProposalService) Get(ctx context.Context, userID, id uuid.UUID) (*models.ProposalDetails, error) {
	return s.repo.GetForUser(ctx, userID, id)
}

// Generate вызывает генератор ровно один раз и сохраняет результат как DRAFT.
// При ошибке генерации запись не создаётся.
func (s *ProposalService) Generate(ctx context.Context, userID uuid.UUID, req GenerateRequest) (*models.Proposal, error) {
	description := strings.TrimSpace(req.GrantDescription)
	if req.GrantID != nil {
		grant, err := s.grants.GetByID(ctx, *req.GrantID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return nil, apperror.Validation(apperror.FieldError{Field: "grantId", Message: "грант не найден"})
			}
			return nil, err
		}
		if description == "" {
			description = grant.Description
		}
	}

	genCtx, cancel := context.WithTimeout(ctx, s.generationTimeout)
	defer cancel()

	started := time.Now()
	content, err := s.generator.GenerateProposal(genCtx, ai.GenerateInput{
		GrantTitle:       strings.TrimSpace(req.GrantTitle),
		Goal:             strings.TrimSpace(req.Goal),
		OrgType:          strings.TrimSpace(req.OrgType),
		GrantDescription: description,
	})
	s.metrics.ObserveGeneration(err, time.Since(started))
	if err != nil {
		logger.Entry().WithError(err).WithField("user_id", userID).Warn("proposal generation failed")
		if apperror.IsGenerationFailed(err) {
			return nil, err
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeGenerationFailed, apperror.ErrGenerationFailed.Message)
	}

	proposal := &models.Proposal{
		Title:   "Proposal for " + strings.TrimSpace(req.GrantTitle),
		Content: content,
		Status:  models.ProposalStatusDraft,
		UserID:  userID,
		GrantID: req.GrantID,
		Goal:    strings.TrimSpace(req.Goal),
		OrgType: strings.TrimSpace(req.OrgType),
	}
	if err := s.repo.Create(ctx, proposal); err != nil {
		return nil, err
	}

	logger.Entry().WithFields(logrus.Fields{
		"user_id":     userID,
		"proposal_id": proposal.ID,
		"elapsed":     time.Since(started).String(),
	}).Info("proposal drafted")
	return proposal, nil
}

// Autosave сохраняет только содержимое. Пустая строка допустима.
func (s *ProposalService) Autosave(ctx context.Context, userID, id uuid.UUID, content string, expectedVersion *int64) (*models.WriteResult, error) {
	res, err := s.repo.Autosave(ctx, userID, id, content, expectedVersion)
	s.metrics.ObserveWrite("autosave", err)
	return res, err
}

// Update частичное обновление заголовка, содержимого и статуса.
// Переходы статусов не ограничиваются: COMPLETED и ARCHIVED можно менять дальше.
func (s *ProposalService) Update(ctx context.Context, userID, id uuid.UUID, patch models.ProposalPatch) (*models.WriteResult, error) {
	if patch.Status != nil && !models.IsValidProposalStatus(*patch.Status) {
		return nil, apperror.Validation(apperror.FieldError{Field: "status", Message: "недопустимый статус"})
	}

	res, err := s.repo.Update(ctx, userID, id, patch)
	s.metrics.ObserveWrite("update", err)
	if err == nil && patch.Status != nil {
		logger.Entry().WithFields(logrus.Fields{
			"user_id":     userID,
			"proposal_id": id,
			"status":      *patch.Status,
		}).Info("proposal status changed")
	}
	return res, err
}

// Delete удаляет заявку владельца.
func (s *ProposalService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.Delete(ctx, userID, id)
}

// Export отдаёт заявку в выбранном формате.
func (s *ProposalService) Export(ctx context.Context, userID, id uuid.UUID, format export.Format) (*export.Document, error) {
	p, err := s.repo.GetForUser(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return export.Render(p.Title, p.Content, format)
}
