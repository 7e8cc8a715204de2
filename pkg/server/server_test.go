package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/loglens/loglens/pkg/config"
	"github.com/loglens/loglens/pkg/domain"
	"github.com/loglens/loglens/pkg/engine"
)

func newTestServer(t *testing.T) (*Server, *engine.Engine, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Ingest.Directory = dir
	cfg.Ingest.SignatureCache = ""
	cfg.Alerts.SeedDefaults = true

	eng, err := engine.New(cfg, zap.NewNop())
	require.NoError(t, err)
	return New(eng, ":0", zap.NewNop()), eng, dir
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func seedEntries(t *testing.T, eng *engine.Engine, dir string) {
	t.Helper()
	lines := "2026-08-28 10:00:01 [Info] service started\n" +
		"2026-08-28 10:00:02 [Error] Database connection failed\n" +
		"2026-08-28 10:00:03 [Error] Database connection failed\n" +
		"2026-08-28 10:00:04 [Error] Database connection failed\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.log"), []byte(lines), 0o644))
	eng.Sync()
}

func TestHealthz(t *testing.T) {
	s, eng, dir := newTestServer(t)
	seedEntries(t, eng, dir)

	rec := get(t, s, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 4, body["entries"])
}

func TestEntriesEndpointPaging(t *testing.T) {
	s, eng, dir := newTestServer(t)
	seedEntries(t, eng, dir)

	rec := get(t, s, "/api/entries?limit=2&offset=1")
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []domain.LogEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Timestamp.After(entries[1].Timestamp), "newest first")
}

func TestStatsEndpoint(t *testing.T) {
	s, eng, dir := newTestServer(t)
	seedEntries(t, eng, dir)

	rec := get(t, s, "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Total       int     `json:"total"`
		HealthScore float64 `json:"health_score"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 4, body.Total)
	assert.Less(t, body.HealthScore, 100.0)
}

func TestTopErrorsEndpoint(t *testing.T) {
	s, eng, dir := newTestServer(t)
	seedEntries(t, eng, dir)

	rec := get(t, s, "/api/top/errors?n=1")
	require.Equal(t, http.StatusOK, rec.Code)

	var groups []struct {
		Key   string `json:"key"`
		Count int    `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &groups))
	require.Len(t, groups, 1)
	assert.Equal(t, 3, groups[0].Count)
}

func TestAlertsEndpointsAndAck(t *testing.T) {
	s, eng, dir := newTestServer(t)
	seedEntries(t, eng, dir)

	rec := get(t, s, "/api/alerts")
	require.Equal(t, http.StatusOK, rec.Code)
	var alerts []domain.LogAlert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alerts))
	require.Len(t, alerts, 1, "three database errors fire the default rule once")

	req := httptest.NewRequest(http.MethodPost, "/api/alerts/"+alerts[0].ID+"/ack", nil)
	ackRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(ackRec, req)
	assert.Equal(t, http.StatusNoContent, ackRec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/alerts/no-such-id/ack", nil)
	missRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(missRec, req)
	assert.Equal(t, http.StatusNotFound, missRec.Code)
}

func TestAlertRulesEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := get(t, s, "/api/alerts/rules")
	require.Equal(t, http.StatusOK, rec.Code)

	var rules []domain.AlertRule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rules))
	assert.Len(t, rules, 4, "the default rule set is seeded")
}

func TestHeatmapEndpoint(t *testing.T) {
	s, eng, dir := newTestServer(t)
	seedEntries(t, eng, dir)

	rec := get(t, s, "/api/heatmap")
	require.Equal(t, http.StatusOK, rec.Code)

	var heatmap [24]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &heatmap))
	assert.Equal(t, 4, heatmap[10])
}

func TestRetentionStatsEndpoint(t *testing.T) {
	s, eng, dir := newTestServer(t)
	seedEntries(t, eng, dir)

	rec := get(t, s, "/api/retention/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		ActiveFiles int `json:"active_files"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.ActiveFiles)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := get(t, s, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
