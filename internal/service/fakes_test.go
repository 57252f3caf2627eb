package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/grantgenius/grantgenius-backend/internal/ai"
	"github.com/grantgenius/grantgenius-backend/internal/models"
	"github.com/grantgenius/grantgenius-backend/internal/pkg/apperror"
)

// fakeProposalRepository держит заявки в памяти и повторяет правила
// владения и версий, которые в Postgres задаются WHERE условиями.
type fakeProposalRepository struct {
	mu        sync.Mutex
	proposals map[uuid.UUID]*models.Proposal
	clock     time.Time
	creates   int
}

func newFakeProposalRepository() *fakeProposalRepository {
	return &fakeProposalRepository{
		proposals: make(map[uuid.UUID]*models.Proposal),
		clock:     time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
	}
}

func (r *fakeProposalRepository) tick() time.Time {
	r.clock = r.clock.Add(time.Millisecond)
	return r.clock
}

func (r *fakeProposalRepository) ListByUser(_ context.Context, userID uuid.UUID) ([]models.ProposalListItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := []models.ProposalListItem{}
	for _, p := range r.proposals {
		if p.UserID == userID {
			items = append(items, models.ProposalListItem{Proposal: *p})
		}
	}
	return items, nil
}

func (r *fakeProposalRepository) GetForUser(_ context.Context, userID, id uuid.UUID) (*models.ProposalDetails, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.proposals[id]
	if !ok || p.UserID != userID {
		return nil, apperror.ErrProposalNotFound
	}
	return &models.ProposalDetails{Proposal: *p}, nil
}

func (r *fakeProposalRepository) Create(_ context.Context, p *models.Proposal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.tick()
	p.ID = uuid.New()
	p.Version = 1
	p.CreatedAt = now
	p.UpdatedAt = now
	stored := *p
	r.proposals[p.ID] = &stored
	r.creates++
	return nil
}

func (r *fakeProposalRepository) Autosave(ctx context.Context, userID, id uuid.UUID, content string, expectedVersion *int64) (*models.WriteResult, error) {
	return r.Update(ctx, userID, id, models.ProposalPatch{Content: &content, ExpectedVersion: expectedVersion})
}

func (r *fakeProposalRepository) Update(_ context.Context, userID, id uuid.UUID, patch models.ProposalPatch) (*models.WriteResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.proposals[id]
	if !ok || p.UserID != userID {
		return nil, apperror.ErrProposalNotFound
	}
	if patch.ExpectedVersion != nil && *patch.ExpectedVersion != p.Version {
		return nil, apperror.Conflict("заявка была изменена, обновите данные", p.Version)
	}

	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Content != nil {
		p.Content = *patch.Content
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	p.Version++
	p.UpdatedAt = r.tick()
	return &models.WriteResult{Version: p.Version, UpdatedAt: p.UpdatedAt}, nil
}

func (r *fakeProposalRepository) Delete(_ context.Context, userID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.proposals[id]
	if !ok || p.UserID != userID {
		return apperror.ErrProposalNotFound
	}
	delete(r.proposals, id)
	return nil
}

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) GenerateProposal(ctx context.Context, in ai.GenerateInput) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

type fakeGrantReader map[uuid.UUID]*models.Grant

func (f fakeGrantReader) GetByID(_ context.Context, id uuid.UUID) (*models.Grant, error) {
	if g, ok := f[id]; ok {
		return g, nil
	}
	return nil, apperror.ErrGrantNotFound
}

type mockGrantRepository struct {
	mock.Mock
}

func (m *mockGrantRepository) List(ctx context.Context, filter models.GrantFilter) ([]models.Grant, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Grant), args.Error(1)
}

func (m *mockGrantRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Grant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Grant), args.Error(1)
}

func (m *mockGrantRepository) Create(ctx context.Context, createdBy uuid.UUID, fields models.GrantFields) (*models.Grant, error) {
	args := m.Called(ctx, createdBy, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Grant), args.Error(1)
}

func (m *mockGrantRepository) Update(ctx context.Context, id uuid.UUID, patch models.GrantPatch) (*models.Grant, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Grant), args.Error(1)
}

func (m *mockGrantRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type fakeUserRepository struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newFakeUserRepository() *fakeUserRepository {
	return &fakeUserRepository{users: make(map[uuid.UUID]*models.User)}
}

func (r *fakeUserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email {
			return apperror.ErrEmailTaken
		}
	}
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *fakeUserRepository) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, apperror.ErrUserNotFound
}

func (r *fakeUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.ErrUserNotFound
}
