package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/grantgenius/grantgenius-backend/internal/logger"
	"github.com/grantgenius/grantgenius-backend/internal/models"
)

// GrantRepository описывает хранилище грантов.
type GrantRepository interface {
	List(ctx context.Context, filter models.GrantFilter) ([]models.Grant, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Grant, error)
	Create(ctx context.Context, createdBy uuid.UUID, fields models.GrantFields) (*models.Grant, error)
	Update(ctx context.Context, id uuid.UUID, patch models.GrantPatch) (*models.Grant, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// GrantService операции над грантами. Права администратора проверяет
// middleware до вызова мутаций; сюда приходит уже проверенный admin.
type GrantService struct {
	repo GrantRepository
}

// NewGrantService создаёт сервис грантов.
func NewGrantService(repo GrantRepository) *GrantService {
	return &GrantService{repo: repo}
}

// ListActive публичный список: всегда только активные гранты.
func (s *GrantService) ListActive(ctx context.Context, filter models.GrantFilter) ([]models.Grant, error) {
	filter.IncludeInactive = false
	return s.repo.List(ctx, filter)
}

// ListAll админский список, включая неактивные гранты.
func (s *GrantService) ListAll(ctx context.Context, filter models.GrantFilter) ([]models.Grant, error) {
	filter.IncludeInactive = true
	return s.repo.List(ctx, filter)
}

// Get возвращает грант по ID.
func (s *GrantService) Get(ctx context.Context, id uuid.UUID) (*models.Grant, error) {
	return s.repo.GetByID(ctx, id)
}

// Create создаёт грант; createdBy это администратор, выполнивший запрос.
func (s *GrantService) Create(ctx context.Context, admin Identity, fields models.GrantFields) (*models.Grant, error) {
	grant, err := s.repo.Create(ctx, admin.UserID, fields)
	if err != nil {
		return nil, err
	}

	logger.Entry().WithFields(logrus.Fields{
		"grant_id": grant.ID,
		"admin_id": admin.UserID,
	}).Info("grant created")
	return grant, nil
}

// Update применяет частичное обновление.
func (s *GrantService) Update(ctx context.Context, admin Identity, id uuid.UUID, patch models.GrantPatch) (*models.Grant, error) {
	grant, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	logger.Entry().WithFields(logrus.Fields{
		"grant_id": id,
		"admin_id": admin.UserID,
	}).Info("grant updated")
	return grant, nil
}

// Delete удаляет грант.
func (s *GrantService) Delete(ctx context.Context, admin Identity, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	logger.Entry().WithFields(logrus.Fields{
		"grant_id": id,
		"admin_id": admin.UserID,
	}).Info("grant deleted")
	return nil
}
