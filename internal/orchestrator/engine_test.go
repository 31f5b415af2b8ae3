package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"horus/internal/accounts"
	"horus/internal/breaker"
	"horus/internal/config"
	"horus/internal/providers"
	"horus/internal/store"
	"horus/pkg/models"
)

func baseSnapshot() *config.Snapshot {
	return &config.Snapshot{
		Policies: config.PoliciesConfig{
			Timeouts:       config.TimeoutPolicy{SubmitS: 2, PollS: 2, FetchS: 2},
			Retry:          config.RetryPolicy{MaxAttempts: 1, BackoffS: 0},
			CircuitBreaker: config.CircuitBreakerPolicy{FailureThreshold: 2, RecoveryTimeS: 60},
			Routing:        config.RoutingPolicy{Strategy: "chain"},
			Health:         config.HealthPolicy{Enabled: false},
		},
	}
}

func newEngine(t *testing.T, snapshot *config.Snapshot) (*Engine, *store.JobStore, *store.ArtifactStore) {
	t.Helper()
	jobs := store.New()
	artifacts := store.NewArtifactStore(t.TempDir(), "")
	registry := providers.NewRegistry(snapshot)
	acctMgr := accounts.NewManager(snapshot.Accounts)
	cb := breaker.New(snapshot.Policies.CircuitBreaker.FailureThreshold, snapshot.Policies.CircuitBreaker.RecoveryTime())
	engine := New(snapshot, registry, acctMgr, cb, jobs, artifacts, zerolog.Nop())
	return engine, jobs, artifacts
}

func asyncProviderConfig(baseURL string, costScore int) config.ProviderConfig {
	return config.ProviderConfig{
		Type:    "http_async",
		BaseURL: baseURL,
		Endpoints: &config.ProviderEndpoints{
			Submit: "/submit",
			Poll:   "/poll/{job_id}",
			Fetch:  "/fetch/{job_id}",
		},
		CostScore: costScore,
	}
}

func sampleRequest() models.JobRequest {
	return models.JobRequest{
		Prompt:       "a cat on a skateboard",
		DurationS:    5,
		AspectRatio:  models.AspectRatio16x9,
		Resolution:   models.Resolution1080p,
		FPS:          24,
		OutputFormat: models.OutputFormatMP4,
	}
}

func TestEngine_HappyPath_SucceedsAgainstFirstProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/submit":
			json.NewEncoder(w).Encode(map[string]string{"job_id": "p123"})
		case r.URL.Path == "/poll/p123":
			json.NewEncoder(w).Encode(map[string]string{"status": "succeeded"})
		case r.URL.Path == "/fetch/p123":
			w.Header().Set("Content-Type", "video/mp4")
			w.Write([]byte("fake-video-bytes"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	snapshot := baseSnapshot()
	snapshot.Providers = config.ProvidersConfig{
		Providers: map[string]config.ProviderConfig{"nova": asyncProviderConfig(server.URL, 1)},
		Chain:     []config.ProviderChainItem{{Provider: "nova"}},
	}

	engine, jobs, _ := newEngine(t, snapshot)
	jobID := "job_happy"
	jobs.Create(jobID, sampleRequest())

	rec := engine.Run(newTestCtx(), jobID, sampleRequest())
	assert.Equal(t, models.JobStatusSucceeded, rec.Status)
	assert.Contains(t, rec.Artifacts, "output")
}

func TestEngine_TransientFailureRetriesThenSucceeds(t *testing.T) {
	var submitCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/submit":
			n := atomic.AddInt32(&submitCalls, 1)
			if n == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			json.NewEncoder(w).Encode(map[string]string{"job_id": "p456"})
		case r.URL.Path == "/poll/p456":
			json.NewEncoder(w).Encode(map[string]string{"status": "succeeded"})
		case r.URL.Path == "/fetch/p456":
			w.Header().Set("Content-Type", "video/mp4")
			w.Write([]byte("bytes"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	snapshot := baseSnapshot()
	snapshot.Policies.Retry = config.RetryPolicy{MaxAttempts: 2, BackoffS: 0}
	snapshot.Providers = config.ProvidersConfig{
		Providers: map[string]config.ProviderConfig{"nova": asyncProviderConfig(server.URL, 1)},
		Chain:     []config.ProviderChainItem{{Provider: "nova"}},
	}

	engine, jobs, _ := newEngine(t, snapshot)
	jobID := "job_transient"
	jobs.Create(jobID, sampleRequest())

	rec := engine.Run(newTestCtx(), jobID, sampleRequest())
	assert.Equal(t, models.JobStatusSucceeded, rec.Status)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&submitCalls), int32(2))
}

func TestEngine_QuotaFallsBackToSecondKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/submit":
			if r.Header.Get("X-Key") == "key1" {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			json.NewEncoder(w).Encode(map[string]string{"job_id": "p789"})
		case r.URL.Path == "/poll/p789":
			json.NewEncoder(w).Encode(map[string]string{"status": "succeeded"})
		case r.URL.Path == "/fetch/p789":
			w.Header().Set("Content-Type", "video/mp4")
			w.Write([]byte("bytes"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	snapshot := baseSnapshot()
	snapshot.Providers = config.ProvidersConfig{
		Providers: map[string]config.ProviderConfig{"nova": asyncProviderConfig(server.URL, 1)},
		Chain:     []config.ProviderChainItem{{Provider: "nova"}},
	}
	snapshot.Accounts = config.AccountsConfig{
		Pools: []config.AccountPool{{
			Provider:           "nova",
			Strategy:           "round_robin",
			CooldownAfterFailS: 120,
			Keys: []config.AccountKey{
				{KeyID: "key1", Headers: map[string]string{"X-Key": "key1"}},
				{KeyID: "key2", Headers: map[string]string{"X-Key": "key2"}},
			},
		}},
	}

	engine, jobs, _ := newEngine(t, snapshot)
	jobID := "job_quota"
	jobs.Create(jobID, sampleRequest())

	rec := engine.Run(newTestCtx(), jobID, sampleRequest())
	assert.Equal(t, models.JobStatusSucceeded, rec.Status)

	attempts := jobs.Attempts(jobID)
	require.NotEmpty(t, attempts)
	assert.Equal(t, "key1", attempts[0].AccountKeyID)
	assert.Equal(t, string(models.AttemptFailed), string(attempts[0].Status))
}

func TestEngine_CircuitTripSkipsProviderOnSubsequentJob(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 501 classifies as server_down, a structural failure that feeds
		// the breaker; 503 would be transient and never trip it.
		w.WriteHeader(http.StatusNotImplemented)
	}))
	defer server.Close()

	snapshot := baseSnapshot()
	snapshot.Policies.CircuitBreaker = config.CircuitBreakerPolicy{FailureThreshold: 1, RecoveryTimeS: 3600}
	snapshot.Policies.Retry = config.RetryPolicy{MaxAttempts: 0, BackoffS: 0}
	snapshot.Providers = config.ProvidersConfig{
		Providers: map[string]config.ProviderConfig{
			"nova":     asyncProviderConfig(server.URL, 1),
			"fallback": {Type: "spec_only"},
		},
		Chain: []config.ProviderChainItem{{Provider: "nova"}, {Provider: "fallback"}},
	}

	engine, jobs, _ := newEngine(t, snapshot)

	jobs.Create("job_a", sampleRequest())
	recA := engine.Run(newTestCtx(), "job_a", sampleRequest())
	assert.Equal(t, models.JobStatusSpecOnly, recA.Status)

	jobs.Create("job_b", sampleRequest())
	recB := engine.Run(newTestCtx(), "job_b", sampleRequest())
	assert.Equal(t, models.JobStatusSpecOnly, recB.Status)

	attemptsB := jobs.Attempts("job_b")
	require.NotEmpty(t, attemptsB)
	assert.Equal(t, models.AttemptSkipped, attemptsB[0].Status, "circuit should already be open for job_b")
	assert.Equal(t, "circuit_open", attemptsB[0].Reason)
}

func TestEngine_SpecOnlyFallback_AllProvidersExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	snapshot := baseSnapshot()
	snapshot.Providers = config.ProvidersConfig{
		Providers: map[string]config.ProviderConfig{
			"nova":     asyncProviderConfig(server.URL, 1),
			"fallback": {Type: "spec_only"},
		},
		Chain: []config.ProviderChainItem{{Provider: "nova"}, {Provider: "fallback"}},
	}

	engine, jobs, artifacts := newEngine(t, snapshot)
	jobID := "job_spec"
	jobs.Create(jobID, sampleRequest())

	rec := engine.Run(newTestCtx(), jobID, sampleRequest())
	assert.Equal(t, models.JobStatusSpecOnly, rec.Status)

	_, ok := artifacts.ArtifactPath(jobID, "scene_spec")
	assert.True(t, ok)
	_, ok = artifacts.ArtifactPath(jobID, "final_prompt")
	assert.True(t, ok)
}

func TestEngine_DegradePlan_WalksStepsAfterSoftFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/submit":
			var body map[string]interface{}
			json.NewDecoder(r.Body).Decode(&body)
			if body["resolution"] == "1080p" {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			json.NewEncoder(w).Encode(map[string]string{"job_id": "deg1"})
		case r.URL.Path == "/poll/deg1":
			json.NewEncoder(w).Encode(map[string]string{"status": "succeeded"})
		case r.URL.Path == "/fetch/deg1":
			w.Header().Set("Content-Type", "video/mp4")
			w.Write([]byte("bytes"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	snapshot := baseSnapshot()
	snapshot.Policies.DegradePlan = []config.DegradeStep{
		{Resolution: "1080p"},
		{Resolution: "720p"},
	}
	snapshot.Providers = config.ProvidersConfig{
		Providers: map[string]config.ProviderConfig{"nova": asyncProviderConfig(server.URL, 1)},
		Chain:     []config.ProviderChainItem{{Provider: "nova"}},
	}

	engine, jobs, _ := newEngine(t, snapshot)
	jobID := "job_degrade"
	jobs.Create(jobID, sampleRequest())

	rec := engine.Run(newTestCtx(), jobID, sampleRequest())
	assert.Equal(t, models.JobStatusSucceeded, rec.Status)

	attempts := jobs.Attempts(jobID)
	require.NotEmpty(t, attempts)
	assert.Equal(t, 1, attempts[len(attempts)-1].DegradeStep, "the 720p step should be the one that succeeds")
}

func newTestCtx() context.Context {
	return context.Background()
}
