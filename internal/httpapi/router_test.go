package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"horus/internal/hostmonitor"
	"horus/internal/metrics"
	"horus/internal/service"
)

const (
	testProvidersYAML = `
providers:
  fallback:
    type: spec_only
    cost_score: 0
chain:
  - provider: fallback
`
	testPoliciesYAML = `
timeouts:
  submit_s: 2
  poll_s: 2
  fetch_s: 2
retry:
  max_attempts: 0
  backoff_s: 0
circuit_breaker:
  failure_threshold: 3
  recovery_time_s: 60
routing:
  strategy: chain
health:
  enabled: false
`
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	baseDir := t.TempDir()
	configsDir := filepath.Join(baseDir, "configs")
	require.NoError(t, os.MkdirAll(configsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(configsDir, "providers.yml"), []byte(testProvidersYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(configsDir, "policies.yml"), []byte(testPoliciesYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(configsDir, "accounts.yml"), []byte("pools: []\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(configsDir, "job_templates.yml"), []byte("templates: {}\n"), 0o644))

	svc := service.New(baseDir, "", zerolog.Nop(), metrics.New())
	require.NoError(t, svc.Load(context.Background()))
	t.Cleanup(svc.Shutdown)

	return NewRouter(svc, hostmonitor.New(), zerolog.Nop())
}

func TestRouter_SubmitAndFetchJob(t *testing.T) {
	router := newTestRouter(t)

	body, _ := json.Marshal(map[string]interface{}{"prompt": "a cat on a skateboard", "duration_s": 5})
	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var submitResp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitResp))
	jobID := submitResp["job_id"]
	require.Len(t, jobID, 32)

	getReq := httptest.NewRequest(http.MethodGet, "/jobs/"+jobID, nil)
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, getReq)
	assert.Equal(t, http.StatusOK, getRec.Code)
}

func TestRouter_GetJobUnknownReturns404(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/jobs/doesnotexist", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_SubmitInvalidBodyReturns400(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_HealthProvidersListsConfiguredChain(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health/providers", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fallback")
}

func TestRouter_ReloadConfigWithValidDocumentsReturns200(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/admin/reload-config", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, "reloading the same valid configs should succeed")
}

func TestRouter_MetricsEndpointServesPrometheusFormat(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "horus_jobs_submitted_total")
}
