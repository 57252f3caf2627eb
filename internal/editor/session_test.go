package editor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grantgenius/grantgenius-backend/internal/dto"
	"github.com/grantgenius/grantgenius-backend/internal/models"
	"github.com/grantgenius/grantgenius-backend/internal/pkg/apperror"
)

type call struct {
	kind    string
	content string
	status  string
	version *int64
}

// fakeStore ведёт версию как сервер: при несовпадении ожидаемой версии отвечает конфликтом.
type fakeStore struct {
	mu      sync.Mutex
	version int64
	content string
	calls   []call
	failErr error
}

func (f *fakeStore) write(kind string, content, status *string, version *int64) (*models.WriteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c := call{kind: kind, version: version}
	if content != nil {
		c.content = *content
	}
	if status != nil {
		c.status = *status
	}
	f.calls = append(f.calls, c)

	if f.failErr != nil {
		return nil, f.failErr
	}
	if version != nil && *version != f.version {
		return nil, apperror.Conflict("заявка была изменена, обновите данные", f.version)
	}
	if content != nil {
		f.content = *content
	}
	f.version++
	return &models.WriteResult{Version: f.version, UpdatedAt: time.Now()}, nil
}

func (f *fakeStore) Autosave(_ context.Context, _ uuid.UUID, req dto.AutosaveRequest) (*models.WriteResult, error) {
	return f.write("autosave", req.Content, nil, req.Version)
}

func (f *fakeStore) UpdateProposal(_ context.Context, _ uuid.UUID, req dto.UpdateProposalRequest) (*models.WriteResult, error) {
	return f.write("update", req.Content, req.Status, req.Version)
}

func (f *fakeStore) snapshot() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func TestSession_BurstOfEditsProducesOneAutosave(t *testing.T) {
	store := &fakeStore{version: 1}
	s := NewSession(store, uuid.New(), "", 1, Options{Delay: 20 * time.Millisecond})

	for _, text := range []string{"H", "He", "Hel", "Hello"} {
		require.NoError(t, s.Edit(text))
	}

	assert.Eventually(t, func() bool { return len(store.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	calls := store.snapshot()
	assert.Equal(t, "autosave", calls[0].kind)
	assert.Equal(t, "Hello", calls[0].content)
	assert.Eventually(t, func() bool { return s.Version() == 2 && !s.Dirty() }, time.Second, 5*time.Millisecond)
}

func TestSession_SaveCancelsPendingAutosave(t *testing.T) {
	store := &fakeStore{version: 1}
	s := NewSession(store, uuid.New(), "draft", 1, Options{Delay: 50 * time.Millisecond})

	require.NoError(t, s.Edit("final text"))
	res, err := s.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Version)

	time.Sleep(100 * time.Millisecond)
	calls := store.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "update", calls[0].kind)
	assert.Equal(t, models.ProposalStatusCompleted, calls[0].status)
	assert.Equal(t, "final text", calls[0].content)
	assert.False(t, s.Dirty())
}

func TestSession_ArchiveIsNotTerminal(t *testing.T) {
	store := &fakeStore{version: 1}
	s := NewSession(store, uuid.New(), "text", 1, Options{Delay: time.Hour})

	_, err := s.Archive(context.Background())
	require.NoError(t, err)
	_, err = s.Save(context.Background())
	require.NoError(t, err)

	calls := store.snapshot()
	assert.Equal(t, models.ProposalStatusArchived, calls[0].status)
	assert.Equal(t, models.ProposalStatusCompleted, calls[1].status)
	assert.Equal(t, int64(3), s.Version())
}

func TestSession_ConflictReported(t *testing.T) {
	store := &fakeStore{version: 4}
	conflicts := make(chan int64, 1)
	s := NewSession(store, uuid.New(), "", 2, Options{
		Delay:      time.Hour,
		OnConflict: func(current int64) { conflicts <- current },
	})

	require.NoError(t, s.Edit("stale tab"))
	s.Close(true)

	select {
	case current := <-conflicts:
		assert.Equal(t, int64(4), current)
	default:
		t.Fatal("conflict was not reported")
	}
	assert.True(t, s.Dirty())
	assert.Equal(t, int64(2), s.Version())
}

func TestSession_RebaseAfterConflict(t *testing.T) {
	store := &fakeStore{version: 4}
	s := NewSession(store, uuid.New(), "", 2, Options{Delay: time.Hour})

	require.NoError(t, s.Edit("mine"))
	_, err := s.Save(context.Background())
	require.True(t, apperror.IsConflict(err))

	s.Rebase(4)
	res, err := s.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Version)
}

func TestSession_CloseWithoutFlushDropsPending(t *testing.T) {
	store := &fakeStore{version: 1}
	s := NewSession(store, uuid.New(), "", 0, Options{Delay: 20 * time.Millisecond})

	require.NoError(t, s.Edit("unsaved"))
	s.Close(false)
	time.Sleep(50 * time.Millisecond)

	assert.Empty(t, store.snapshot())
	assert.Error(t, s.Edit("after close"))
}

func TestSession_ZeroVersionSkipsCheck(t *testing.T) {
	store := &fakeStore{version: 9}
	s := NewSession(store, uuid.New(), "", 0, Options{Delay: time.Hour})

	require.NoError(t, s.Edit("lww"))
	s.Close(true)

	calls := store.snapshot()
	require.Len(t, calls, 1)
	assert.Nil(t, calls[0].version)
	assert.Equal(t, int64(10), s.Version())
}

func TestSession_ErrorCallback(t *testing.T) {
	store := &fakeStore{version: 1, failErr: errors.New("connection refused")}
	var got error
	s := NewSession(store, uuid.New(), "", 1, Options{Delay: time.Hour, OnError: func(err error) { got = err }})

	require.NoError(t, s.Edit("x"))
	s.Close(true)

	assert.EqualError(t, got, "connection refused")
	assert.True(t, s.Dirty())
}

func (f *fakeStore) setFail(err error) {
	f.mu.Lock()
	f.failErr = err
	f.mu.Unlock()
}

func TestSession_CloseRetriesFailedAutosave(t *testing.T) {
	store := &fakeStore{version: 1, failErr: errors.New("connection reset")}
	s := NewSession(store, uuid.New(), "", 1, Options{Delay: 10 * time.Millisecond})

	require.NoError(t, s.Edit("last words"))
	assert.Eventually(t, func() bool { return len(store.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	require.True(t, s.Dirty())

	store.setFail(nil)
	s.Close(true)

	calls := store.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, "last words", calls[1].content)
	assert.False(t, s.Dirty())
	assert.Equal(t, int64(2), s.Version())
}

func TestSession_CloseWithoutChangesWritesNothing(t *testing.T) {
	store := &fakeStore{version: 1}
	s := NewSession(store, uuid.New(), "same", 1, Options{Delay: time.Hour})

	require.NoError(t, s.Edit("same"))
	s.Close(true)

	assert.Empty(t, store.snapshot())
}
