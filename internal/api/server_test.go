package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cclens/cclens/internal/reader"
	"github.com/cclens/cclens/internal/store"
	"github.com/cclens/cclens/internal/usage"
	"github.com/cclens/cclens/internal/window"
)

const logContent = `{"type":"assistant","timestamp":"2025-06-01T10:00:00Z","sessionId":"s1","requestId":"r1","message":{"id":"m1","model":"claude-sonnet-4","usage":{"input_tokens":1000,"output_tokens":500}}}
{"type":"assistant","timestamp":"2025-06-01T10:01:00Z","sessionId":"s1","requestId":"r2","message":{"id":"m2","model":"claude-sonnet-4","usage":{"input_tokens":1000,"output_tokens":500}}}
`

func newTestServer(t *testing.T, root string) *Server {
	t.Helper()
	eng := usage.NewEngine(reader.New(root), usage.Options{
		Location: time.UTC,
		Plan:     window.PlanPro,
		Logger:   slog.Default(),
	})
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	srv := New(eng, st, time.UTC, slog.Default())
	srv.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return srv
}

func populatedRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "proj-a")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "log.jsonl"), []byte(logContent), 0o644))
	return root
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "127.0.0.1:50000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSummaryEndpoint(t *testing.T) {
	srv := newTestServer(t, populatedRoot(t))
	h := srv.Handler()

	rec := get(t, h, "/api/usage/summary")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	var body struct {
		Summary struct {
			Events int `json:"events"`
			Tokens struct {
				InputTokens int64 `json:"input_tokens"`
			} `json:"tokens"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Summary.Events)
	assert.Equal(t, int64(2000), body.Summary.Tokens.InputTokens)
}

func TestDailyAndMonthlyEndpoints(t *testing.T) {
	srv := newTestServer(t, populatedRoot(t))
	h := srv.Handler()

	rec := get(t, h, "/api/usage/daily")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"2025-06-01"`)

	rec = get(t, h, "/api/usage/monthly")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"2025-06"`)
}

func TestCurrentEndpoint(t *testing.T) {
	srv := newTestServer(t, populatedRoot(t))

	rec := get(t, srv.Handler(), "/api/usage/current")
	require.Equal(t, http.StatusOK, rec.Code)

	var rep window.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.True(t, rep.HasActiveWindow)
	assert.Equal(t, int64(3000), rep.Tokens.Total())
	assert.Equal(t, int64(44_000), rep.Limit)
}

func TestBadDateIs400(t *testing.T) {
	srv := newTestServer(t, populatedRoot(t))
	rec := get(t, srv.Handler(), "/api/usage/daily?since=June-first")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMissingSourceIs503(t *testing.T) {
	srv := newTestServer(t, filepath.Join(t.TempDir(), "missing"))
	rec := get(t, srv.Handler(), "/api/usage/summary")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "unavailable")
}

func TestEmptySourceIsOK(t *testing.T) {
	srv := newTestServer(t, t.TempDir())
	rec := get(t, srv.Handler(), "/api/usage/summary")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"events":0`)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, t.TempDir())
	rec := get(t, srv.Handler(), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestProjectsEndpoint(t *testing.T) {
	srv := newTestServer(t, populatedRoot(t))
	rec := get(t, srv.Handler(), "/api/projects")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "proj-a")
}

func TestNotifyChangedBroadcasts(t *testing.T) {
	root := populatedRoot(t)
	srv := newTestServer(t, root)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return srv.Hub().ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	srv.NotifyChanged(context.Background())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"usage_updated"}`, string(msg))

	// Nothing new: no further broadcast, cache stays consistent.
	srv.NotifyChanged(context.Background())
}

func TestRateLimiting(t *testing.T) {
	srv := newTestServer(t, t.TempDir())
	h := srv.Handler()

	limited := false
	for i := 0; i < 100; i++ {
		rec := get(t, h, "/healthz")
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	assert.True(t, limited, "burst of 100 requests should trip the limiter")
}
