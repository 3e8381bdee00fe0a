package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wincap/wincap/internal/config"
	"github.com/wincap/wincap/internal/database"
	"github.com/wincap/wincap/internal/logging"
	"github.com/wincap/wincap/internal/models"
	"github.com/wincap/wincap/internal/monitor"
)

type fakeStatus struct{}

func (fakeStatus) Status() monitor.Status {
	return monitor.Status{SessionID: "abc", Target: "Terminal", Monitoring: true, Screenshots: 4}
}

func newTestMux(t *testing.T, status StatusProvider) (*http.ServeMux, *database.Repository) {
	t.Helper()
	db, err := database.Connect(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Initialize())

	repo := database.NewRepository(db)
	h := NewHandler(config.Default(), repo, status, logging.Nop())
	mux := http.NewServeMux()
	h.SetupRoutes(mux)
	return mux, repo
}

func get(t *testing.T, mux *http.ServeMux, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	mux, _ := newTestMux(t, nil)
	rec := get(t, mux, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestStatus(t *testing.T) {
	mux, _ := newTestMux(t, fakeStatus{})
	rec := get(t, mux, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Running    bool           `json:"running"`
		FrameCount int            `json:"frame_count"`
		Session    monitor.Status `json:"session"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Running)
	assert.Equal(t, 10, body.FrameCount)
	assert.Equal(t, "Terminal", body.Session.Target)
	assert.Equal(t, 4, body.Session.Screenshots)
}

func TestStatusWithoutSession(t *testing.T) {
	mux, _ := newTestMux(t, nil)
	rec := get(t, mux, "/api/status")
	assert.Contains(t, rec.Body.String(), `"running":false`)
	assert.NotContains(t, rec.Body.String(), "session")
}

func TestCommands(t *testing.T) {
	mux, repo := newTestMux(t, nil)
	require.NoError(t, repo.CreateCommand(&models.CommandEntry{SessionID: "s", Timestamp: time.Now(), Command: "git status", Window: "term"}))

	rec := get(t, mux, "/api/commands?period=all")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Commands []models.CommandEntry `json:"commands"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Commands, 1)
	assert.Equal(t, "git status", body.Commands[0].Command)
}

func TestCommandsEmptyIsArray(t *testing.T) {
	mux, _ := newTestMux(t, nil)
	rec := get(t, mux, "/api/commands")
	assert.Contains(t, rec.Body.String(), `"commands":[]`)
}

func TestGIFs(t *testing.T) {
	mux, repo := newTestMux(t, nil)
	now := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.CreateGIF(&models.GIFRecord{SessionID: "s", Timestamp: now.Add(time.Duration(i) * time.Second), Path: "g.gif", FrameCount: 10}))
	}

	rec := get(t, mux, "/api/gifs?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var gifs []models.GIFRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &gifs))
	assert.Len(t, gifs, 2)
}

func TestBadRequests(t *testing.T) {
	mux, _ := newTestMux(t, nil)

	tests := []struct {
		target string
		code   int
	}{
		{"/api/gifs?limit=0", http.StatusBadRequest},
		{"/api/gifs?limit=abc", http.StatusBadRequest},
		{"/api/commands?period=decade", http.StatusBadRequest},
		{"/api/report?period=decade", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			assert.Equal(t, tt.code, get(t, mux, tt.target).Code)
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	mux, _ := newTestMux(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/status", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestReport(t *testing.T) {
	mux, _ := newTestMux(t, nil)
	rec := get(t, mux, "/api/report?period=week")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"command_count":0`)
}

func TestServerAddress(t *testing.T) {
	cfg := config.Default()
	cfg.Web.Host = "127.0.0.1"
	cfg.Web.Port = 18080
	s := NewServer(cfg, nil, nil, logging.Nop())
	assert.Equal(t, "127.0.0.1:18080", s.GetAddress())
}
