package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdash/internal/config"
	"salesdash/internal/services"
	"salesdash/internal/shared/testutil"
	"salesdash/pkg/contracts/events"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Data.Path = testutil.WriteSampleCSV(t)
	cfg.Server.Port = 0
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Security.RateLimit.Enabled = false
	return cfg
}

func newTestApp(t *testing.T) *Application {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := New(context.Background(), testConfig(t), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.OTelProviders.Shutdown(context.Background()) })
	return a
}

func serve(a *Application, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestNew_MissingTableIsFatal(t *testing.T) {
	cfg := testConfig(t)
	cfg.Data.Path = filepath.Join(t.TempDir(), "missing.csv")

	_, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrTableNotLoaded)
}

func TestNew_LoadsTableUpFront(t *testing.T) {
	a := newTestApp(t)

	stats := a.DashboardService.Stats()
	assert.Equal(t, int64(1), stats.Loads)

	rec := serve(a, http.MethodGet, "/api/health/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_Dashboard(t *testing.T) {
	a := newTestApp(t)

	rec := serve(a, http.MethodGet, "/api/dashboard?branch=A")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var body struct {
		Metrics struct {
			RowCount int `json:"row_count"`
		} `json:"metrics"`
		Tables []json.RawMessage `json:"tables"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	// Branch A has three rows, one with an unparseable date.
	assert.Equal(t, 2, body.Metrics.RowCount)
	assert.Len(t, body.Tables, 6)

	rec = serve(a, http.MethodGet, "/api/dashboard/options")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), services.PageTitle)

	rec = serve(a, http.MethodGet, "/api/dashboard/export.csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
}

func TestRouter_ProblemResponses(t *testing.T) {
	a := newTestApp(t)

	rec := serve(a, http.MethodGet, "/api/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(a, http.MethodGet, "/api/dashboard?start=bad")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_FAILED")
}

func TestRouter_Metrics(t *testing.T) {
	a := newTestApp(t)
	serve(a, http.MethodGet, "/api/dashboard")

	rec := serve(a, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "table_loads_total")
}

func TestRouter_WebSocket(t *testing.T) {
	a := newTestApp(t)
	srv := httptest.NewServer(a.Router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg events.WebSocketMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, events.MessageTypeConnect, msg.Type)

	frame := `{"id":"1","type":"render","selection":{"branches":["A","B","C"],"product_lines":["Health and beauty"],"customer_types":["Member","Normal"],"start":"2019-01-01","end":"2019-12-31"}}`
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, events.MessageTypeDashboard, msg.Type)
	assert.Equal(t, "1", msg.ID)
}

func TestRun_StopsWhenContextCanceled(t *testing.T) {
	a := newTestApp(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
