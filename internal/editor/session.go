// Package editor реализует клиентскую сессию редактирования заявки:
// отложенное автосохранение, явное сохранение и архивирование.
package editor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/grantgenius/grantgenius-backend/internal/dto"
	"github.com/grantgenius/grantgenius-backend/internal/goroutine"
	"github.com/grantgenius/grantgenius-backend/internal/logger"
	"github.com/grantgenius/grantgenius-backend/internal/models"
	"github.com/grantgenius/grantgenius-backend/internal/pkg/apperror"
)

// DefaultDelay пауза во вводе перед автосохранением.
const DefaultDelay = time.Second

// Store удалённое хранилище заявок (обычно client.Client).
type Store interface {
	Autosave(ctx context.Context, id uuid.UUID, req dto.AutosaveRequest) (*models.WriteResult, error)
	UpdateProposal(ctx context.Context, id uuid.UUID, req dto.UpdateProposalRequest) (*models.WriteResult, error)
}

// Options настройки сессии. Все колбэки необязательны и вызываются
// из горутины, выполнившей запись.
type Options struct {
	Delay        time.Duration
	WriteTimeout time.Duration
	// OnSaved вызывается после каждой успешной записи.
	OnSaved func(res *models.WriteResult)
	// OnConflict вызывается, когда сервер отклонил запись из-за устаревшей версии.
	OnConflict func(currentVersion int64)
	// OnError вызывается для остальных ошибок автосохранения.
	OnError func(err error)
}

// Session редактирование одной заявки. Безопасна для конкурентного использования.
type Session struct {
	store     Store
	id        uuid.UUID
	opts      Options
	debouncer *Debouncer

	// writeMu упорядочивает запросы к серверу: автосохранение и явное
	// сохранение не уходят параллельно.
	writeMu sync.Mutex

	mu      sync.Mutex
	content string
	version int64
	dirty   bool
	closed  bool
}

// NewSession открывает сессию для заявки с известной версией.
// version == 0 отключает проверку версии (last-writer-wins).
func NewSession(store Store, id uuid.UUID, content string, version int64, opts Options) *Session {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 30 * time.Second
	}
	return &Session{
		store:     store,
		id:        id,
		opts:      opts,
		debouncer: NewDebouncer(opts.Delay),
		content:   content,
		version:   version,
	}
}

// ID заявки.
func (s *Session) ID() uuid.UUID { return s.id }

// Version последняя подтверждённая сервером версия.
func (s *Session) Version() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Content текущий текст в сессии.
func (s *Session) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}

// Dirty есть ли несохранённые изменения.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Rebase принимает серверную версию после конфликта; следующая запись
// перезапишет серверный текст.
func (s *Session) Rebase(version int64) {
	s.mu.Lock()
	s.version = version
	s.mu.Unlock()
}

// Edit фиксирует новый текст и перепланирует автосохранение.
func (s *Session) Edit(content string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errSessionClosed
	}
	if content == s.content && !s.dirty {
		s.mu.Unlock()
		return nil
	}
	s.content = content
	s.dirty = true
	s.mu.Unlock()

	s.debouncer.Trigger(s.autosave)
	return nil
}

func (s *Session) expectedVersion() *int64 {
	if s.version == 0 {
		return nil
	}
	v := s.version
	return &v
}

func (s *Session) autosave() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return
	}
	content := s.content
	version := s.expectedVersion()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.WriteTimeout)
	defer cancel()

	res, err := s.store.Autosave(ctx, s.id, dto.AutosaveRequest{Content: &content, Version: version})
	if err != nil {
		s.reportError(err)
		return
	}
	s.applyWrite(res, content)
}

// applyWrite обновляет версию; dirty снимается, только если текст не менялся во время записи.
func (s *Session) applyWrite(res *models.WriteResult, written string) {
	s.mu.Lock()
	if res.Version > s.version {
		s.version = res.Version
	}
	if s.content == written {
		s.dirty = false
	}
	s.mu.Unlock()

	if s.opts.OnSaved != nil {
		s.opts.OnSaved(res)
	}
}

func (s *Session) reportError(err error) {
	if appErr, ok := apperror.As(err); ok && appErr.Code == apperror.ErrCodeConflict {
		current, _ := appErr.Extra["currentVersion"].(int64)
		logger.Entry().WithFields(logrus.Fields{
			"proposal_id":     s.id,
			"current_version": current,
		}).Warn("autosave rejected: proposal changed elsewhere")
		if s.opts.OnConflict != nil {
			s.opts.OnConflict(current)
		}
		return
	}

	logger.Entry().WithError(err).WithField("proposal_id", s.id).Warn("autosave failed")
	if s.opts.OnError != nil {
		s.opts.OnError(err)
	}
}

// Save отменяет отложенное автосохранение и сохраняет текст со статусом COMPLETED.
func (s *Session) Save(ctx context.Context) (*models.WriteResult, error) {
	return s.commit(ctx, models.ProposalStatusCompleted)
}

// Archive переводит заявку в ARCHIVED вместе с текущим текстом.
func (s *Session) Archive(ctx context.Context) (*models.WriteResult, error) {
	return s.commit(ctx, models.ProposalStatusArchived)
}

func (s *Session) commit(ctx context.Context, status string) (*models.WriteResult, error) {
	s.debouncer.Stop()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errSessionClosed
	}
	content := s.content
	version := s.expectedVersion()
	s.mu.Unlock()

	res, err := s.store.UpdateProposal(ctx, s.id, dto.UpdateProposalRequest{
		Content: &content,
		Status:  &status,
		Version: version,
	})
	if err != nil {
		return nil, err
	}
	s.applyWrite(res, content)
	return res, nil
}

// Close завершает сессию. flush=true дописывает несохранённый текст: отложенное
// автосохранение или правку, которую не удалось записать раньше. Иначе
// отложенное автосохранение отменяется.
func (s *Session) Close(flush bool) {
	if flush {
		if !s.debouncer.Flush() && s.Dirty() {
			goroutine.Guard("final write", s.autosave)
		}
	} else {
		s.debouncer.Stop()
	}

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

var errSessionClosed = apperror.New(apperror.ErrCodeBadRequest, "сессия редактирования закрыта")
