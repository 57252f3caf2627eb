package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/grantgenius/grantgenius-backend/internal/export"
	"github.com/grantgenius/grantgenius-backend/internal/models"
	"github.com/grantgenius/grantgenius-backend/internal/service"
)

type mockGrantService struct {
	mock.Mock
}

func (m *mockGrantService) ListActive(ctx context.Context, filter models.GrantFilter) ([]models.Grant, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.Grant), args.Error(1)
}

func (m *mockGrantService) ListAll(ctx context.Context, filter models.GrantFilter) ([]models.Grant, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.Grant), args.Error(1)
}

func (m *mockGrantService) Get(ctx context.Context, id uuid.UUID) (*models.Grant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Grant), args.Error(1)
}

func (m *mockGrantService) Create(ctx context.Context, admin service.Identity, fields models.GrantFields) (*models.Grant, error) {
	args := m.Called(ctx, admin, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Grant), args.Error(1)
}

func (m *mockGrantService) Update(ctx context.Context, admin service.Identity, id uuid.UUID, patch models.GrantPatch) (*models.Grant, error) {
	args := m.Called(ctx, admin, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Grant), args.Error(1)
}

func (m *mockGrantService) Delete(ctx context.Context, admin service.Identity, id uuid.UUID) error {
	return m.Called(ctx, admin, id).Error(0)
}

type mockProposalService struct {
	mock.Mock
}

func (m *mockProposalService) List(ctx context.Context, userID uuid.UUID) ([]models.ProposalListItem, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.ProposalListItem), args.Error(1)
}

func (m *mockProposalService) Get(ctx context.Context, userID, id uuid.UUID) (*models.ProposalDetails, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProposalDetails), args.Error(1)
}

func (m *mockProposalService) Generate(ctx context.Context, userID uuid.UUID, req service.GenerateRequest) (*models.Proposal, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Proposal), args.Error(1)
}

func (m *mockProposalService) Autosave(ctx context.Context, userID, id uuid.UUID, content string, expectedVersion *int64) (*models.WriteResult, error) {
	args := m.Called(ctx, userID, id, content, expectedVersion)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WriteResult), args.Error(1)
}

func (m *mockProposalService) Update(ctx context.Context, userID, id uuid.UUID, patch models.ProposalPatch) (*models.WriteResult, error) {
	args := m.Called(ctx, userID, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WriteResult), args.Error(1)
}

func (m *mockProposalService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *mockProposalService) Export(ctx context.Context, userID, id uuid.UUID, format export.Format) (*export.Document, error) {
	args := m.Called(ctx, userID, id, format)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*export.Document), args.Error(1)
}
