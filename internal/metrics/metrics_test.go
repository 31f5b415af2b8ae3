package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_MultipleInstancesDoNotPanicOnRegistration(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}

func TestMetrics_HandlerServesOwnRegistry(t *testing.T) {
	m := New()
	m.JobsSubmitted.Inc()
	m.AttemptsTotal.WithLabelValues("nova", "succeeded").Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "horus_jobs_submitted_total 1")
	assert.Contains(t, rec.Body.String(), `horus_attempts_total{provider="nova",status="succeeded"} 1`)
}
