package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grantgenius/grantgenius-backend/internal/client"
	"github.com/grantgenius/grantgenius-backend/internal/dto"
	"github.com/grantgenius/grantgenius-backend/internal/editor"
	"github.com/grantgenius/grantgenius-backend/internal/models"
)

func TestConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", ".grantctl.yaml")

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, defaultServer, cfg.Server)

	cfg.AccessToken = "acc"
	cfg.AutosaveDelay = "2s"
	require.NoError(t, saveConfig(path, cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "acc", loaded.AccessToken)
	assert.Equal(t, "2s", loaded.AutosaveDelay)
}

func TestConfig_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unterminated"), 0o600))

	_, err := loadConfig(path)

	assert.Error(t, err)
}

func TestWatchFile_ReportsChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draft.md")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := make(chan string, 4)
	done := make(chan error, 1)
	go func() { done <- watchFile(ctx, path, func(c string) { changes <- c }) }()

	// Даём наблюдателю подписаться на каталог.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))

	select {
	case got := <-changes:
		assert.Equal(t, "v2", got)
	case <-time.After(3 * time.Second):
		t.Fatal("change was not observed")
	}

	cancel()
	assert.NoError(t, <-done)
}

func TestLoginAndList(t *testing.T) {
	id := uuid.New()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(dto.AuthResponse{
			User:   &models.User{Email: "writer@example.org", Role: models.UserRoleUser},
			Tokens: dto.TokensResponse{AccessToken: "acc", RefreshToken: "ref"},
		})
	})
	mux.HandleFunc("/api/proposals", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer acc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"proposals": []models.ProposalListItem{{
			Proposal: models.Proposal{ID: id, Title: "Proposal for Youth Fund", Status: models.ProposalStatusDraft, Version: 3},
		}}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfgPath := filepath.Join(t.TempDir(), ".grantctl.yaml")
	var out bytes.Buffer

	root := newRootCmd(&out)
	root.SetArgs([]string{"--config", cfgPath, "--server", srv.URL, "login", "--email", "writer@example.org", "--password", "Secret123"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "Signed in as writer@example.org")

	saved, err := loadConfig(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "ref", saved.RefreshToken)

	out.Reset()
	root = newRootCmd(&out)
	root.SetArgs([]string{"--config", cfgPath, "--server", srv.URL, "list"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), id.String())
	assert.Contains(t, out.String(), "Proposal for Youth Fund")
}

func TestParseID(t *testing.T) {
	_, err := parseID("nope")
	assert.Error(t, err)

	id := uuid.New()
	got, err := parseID(" " + id.String() + " ")
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

// expiringServer отвечает 401 на старый токен и принимает автосохранение с новым.
func expiringServer(t *testing.T, id uuid.UUID, refreshes *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(refreshes, 1)
		var req dto.RefreshRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.RefreshToken != "ref-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"tokens": dto.TokensResponse{AccessToken: "acc-2", RefreshToken: "ref-2"}})
	})
	write := func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer acc-2" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "токен истёк", "code": "UNAUTHORIZED"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(dto.WriteResponse{Message: "ok", Version: 5, UpdatedAt: time.Now()})
	}
	mux.HandleFunc("/api/proposals/"+id.String()+"/autosave", write)
	mux.HandleFunc("/api/proposals/"+id.String(), write)
	return httptest.NewServer(mux)
}

func newTestApp(t *testing.T, server string) *app {
	t.Helper()
	return &app{
		out:        &bytes.Buffer{},
		configPath: filepath.Join(t.TempDir(), ".grantctl.yaml"),
		cfg:        &cliConfig{Server: server, AccessToken: "acc-1", RefreshToken: "ref-1"},
		api:        client.New(server, client.WithToken("acc-1")),
	}
}

func TestRefreshingStore_AutosaveRefreshesExpiredToken(t *testing.T) {
	id := uuid.New()
	var refreshes int32
	srv := expiringServer(t, id, &refreshes)
	defer srv.Close()
	a := newTestApp(t, srv.URL)

	content := "after lunch"
	res, err := refreshingStore{a: a}.Autosave(context.Background(), id, dto.AutosaveRequest{Content: &content})

	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Version)
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshes))
	assert.Equal(t, "acc-2", a.api.Token())

	saved, err := loadConfig(a.configPath)
	require.NoError(t, err)
	assert.Equal(t, "acc-2", saved.AccessToken)
	assert.Equal(t, "ref-2", saved.RefreshToken)
}

func TestRefreshingStore_SessionWritesRefreshOnce(t *testing.T) {
	id := uuid.New()
	var refreshes int32
	srv := expiringServer(t, id, &refreshes)
	defer srv.Close()
	a := newTestApp(t, srv.URL)

	var failed atomic.Value
	s := editor.NewSession(refreshingStore{a: a}, id, "", 4, editor.Options{
		Delay:   time.Hour,
		OnError: func(err error) { failed.Store(err) },
	})
	require.NoError(t, s.Edit("long editing session"))
	s.Close(true)

	assert.Nil(t, failed.Load())
	assert.False(t, s.Dirty())
	assert.Equal(t, int64(5), s.Version())

	_, err := refreshingStore{a: a}.UpdateProposal(context.Background(), id, dto.UpdateProposalRequest{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshes))
}

func TestWithRefresh_NoRefreshTokenReturnsOriginalError(t *testing.T) {
	id := uuid.New()
	var refreshes int32
	srv := expiringServer(t, id, &refreshes)
	defer srv.Close()
	a := newTestApp(t, srv.URL)
	a.cfg.RefreshToken = ""

	content := "x"
	_, err := refreshingStore{a: a}.Autosave(context.Background(), id, dto.AutosaveRequest{Content: &content})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNAUTHORIZED")
	assert.Zero(t, atomic.LoadInt32(&refreshes))
}

func TestOpenDraft(t *testing.T) {
	dir := t.TempDir()

	fresh := filepath.Join(dir, "new.md")
	got, err := openDraft(fresh, "server text")
	require.NoError(t, err)
	assert.Equal(t, "server text", got)
	raw, err := os.ReadFile(fresh)
	require.NoError(t, err)
	assert.Equal(t, "server text", string(raw))

	existing := filepath.Join(dir, "old.md")
	require.NoError(t, os.WriteFile(existing, []byte("offline edits"), 0o644))
	got, err = openDraft(existing, "server text")
	require.NoError(t, err)
	assert.Equal(t, "offline edits", got)
	raw, err = os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "offline edits", string(raw))
}
