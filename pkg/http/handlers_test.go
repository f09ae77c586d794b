package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shortlink/pkg/clicks"
	"shortlink/pkg/logging"
	"shortlink/pkg/service"
	"shortlink/pkg/storage"
)

type testEnv struct {
	router   *chi.Mux
	store    *storage.SQLiteStore
	recorder *clicks.Recorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := storage.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := logging.NewLogger(logging.LevelError)
	svc := service.NewMappingService(store, nil, logger)
	recorder := clicks.NewRecorder(store, logger, 1, 16)
	handler := NewHandler(svc, recorder, logger)

	router := chi.NewRouter()
	SetupRoutes(router, handler)

	return &testEnv{router: router, store: store, recorder: recorder}
}

func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestCreateListRedirectStatsFlow(t *testing.T) {
	env := newTestEnv(t)

	// Create.
	w := env.do("POST", "/api/urls", map[string]any{
		"short_code": "abc123",
		"target_url": "https://example.com",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created storage.Mapping
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "abc123", created.ShortCode)
	assert.NotZero(t, created.ID)

	// Redirect.
	req := httptest.NewRequest("GET", "/abc123", nil)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Referer", "https://ref.example.com")
	rw := httptest.NewRecorder()
	env.router.ServeHTTP(rw, req)
	assert.Equal(t, http.StatusFound, rw.Code)
	assert.Equal(t, "https://example.com", rw.Header().Get("Location"))

	// Drain the recorder so the click write is visible.
	env.recorder.Close()

	// List shows click_count = 1.
	w = env.do("GET", "/api/urls", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []storage.MappingWithClicks
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), list[0].ClickCount)

	// Stats show total = 1 and one bucket for today (UTC).
	w = env.do("GET", fmt.Sprintf("/api/urls/%d/stats", created.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats storage.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.Total)
	require.Len(t, stats.ByDay, 1)
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), stats.ByDay[0].Date)
	assert.Equal(t, int64(1), stats.ByDay[0].Count)
}

func TestCreateValidationErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body map[string]any
		want string
	}{
		{"missing fields", map[string]any{}, "required"},
		{"code too short", map[string]any{"short_code": "ab", "target_url": "https://example.com"}, "short_code"},
		{"bad url", map[string]any{"short_code": "abc123", "target_url": "ftp://example.com"}, "target_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do("POST", "/api/urls", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}

	// No rows were created.
	w := env.do("GET", "/api/urls", nil)
	var list []storage.MappingWithClicks
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Empty(t, list)
}

func TestCreateDuplicateCode(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("POST", "/api/urls", map[string]any{"short_code": "abc123", "target_url": "https://example.com"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do("POST", "/api/urls", map[string]any{"short_code": "abc123", "target_url": "https://other.example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "already in use")
}

func TestUpdateMapping(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("POST", "/api/urls", map[string]any{"short_code": "abc123", "target_url": "https://example.com"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created storage.Mapping
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = env.do("PUT", fmt.Sprintf("/api/urls/%d", created.ID), map[string]any{
		"target_url":  "https://changed.example.com",
		"description": "updated",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])

	// The redirect now points at the new target.
	rw := env.do("GET", "/abc123", nil)
	assert.Equal(t, http.StatusFound, rw.Code)
	assert.Equal(t, "https://changed.example.com", rw.Header().Get("Location"))
}

func TestUpdateAbsentID(t *testing.T) {
	env := newTestEnv(t)

	// An existing mapping with a different id stays untouched.
	w := env.do("POST", "/api/urls", map[string]any{"short_code": "other1", "target_url": "https://example.com"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do("PUT", "/api/urls/9999", map[string]any{"target_url": "https://changed.example.com"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	rw := env.do("GET", "/other1", nil)
	assert.Equal(t, "https://example.com", rw.Header().Get("Location"))
}

func TestUpdateMissingURL(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("PUT", "/api/urls/1", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "target_url is required")
}

func TestDeleteMapping(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("POST", "/api/urls", map[string]any{"short_code": "abc123", "target_url": "https://example.com"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created storage.Mapping
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = env.do("DELETE", fmt.Sprintf("/api/urls/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do("DELETE", fmt.Sprintf("/api/urls/%d", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	rw := env.do("GET", "/abc123", nil)
	assert.Equal(t, http.StatusNotFound, rw.Code)
}

func TestRedirectMalformedCode(t *testing.T) {
	env := newTestEnv(t)

	// Too short for the format rules; served the malformed page, and no
	// click is ever recorded for it.
	w := env.do("GET", "/ab", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Invalid Short Code")
}

func TestRedirectUnknownCode(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("GET", "/nosuch", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "does not exist")
	assert.True(t, strings.Contains(w.Body.String(), "nosuch"))
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}
