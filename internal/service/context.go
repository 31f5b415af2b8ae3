// Package service wires every component together into one process-wide
// lifecycle: load config, (re)build the registry/accounts/orchestrator,
// start the queue worker once, restart the health scheduler on every
// load. Grounded on the original ServiceContext, expressed the way the
// teacher's cmd/worker/main.go wires its own long-lived components
// (context.Context for shutdown instead of `select {}`).
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"horus/internal/accounts"
	"horus/internal/breaker"
	"horus/internal/config"
	horuserrors "horus/internal/errors"
	"horus/internal/metrics"
	"horus/internal/orchestrator"
	"horus/internal/providers"
	"horus/internal/queue"
	"horus/internal/store"
	"horus/pkg/models"
)

// Context is the single process-wide service instance. Its snapshot-bound
// fields (snapshot, registry, account manager, breaker, engine, health
// scheduler) are replaced wholesale on Load, never mutated in place, so an
// in-flight job's captured *orchestrator.Engine keeps the snapshot it
// started with; the job store, artifact store and queue live across loads.
type Context struct {
	baseDir string
	log     zerolog.Logger
	metrics *metrics.Metrics

	configManager *config.Manager
	jobs          *store.JobStore
	artifacts     *store.ArtifactStore

	mu             sync.RWMutex
	snapshot       *config.Snapshot
	registry       *providers.Registry
	accountManager *accounts.Manager
	breakerMgr     *breaker.CircuitBreaker
	engine         *orchestrator.Engine
	health         *providers.HealthScheduler

	queue       *queue.Queue
	queueCancel context.CancelFunc
	healthCtx   context.Context
	healthStop  context.CancelFunc
}

// New builds a Context rooted at baseDir (expects configs/ and
// artifacts/ subdirectories, consistent with the persisted layout).
func New(baseDir, ffmpegPath string, log zerolog.Logger, m *metrics.Metrics) *Context {
	return &Context{
		baseDir:       baseDir,
		log:           log.With().Str("component", "service").Logger(),
		metrics:       m,
		configManager: config.NewManager(baseDir + "/configs"),
		jobs:          store.New(),
		artifacts:     store.NewArtifactStore(baseDir+"/artifacts", ffmpegPath),
	}
}

// Load reloads config and rebuilds every snapshot-bound component:
// registry, account manager, circuit breaker, orchestrator engine. The
// queue worker is started exactly once, across every Load; the health
// scheduler is stopped and restarted on every Load since its polling
// interval may itself have changed.
func (c *Context) Load(ctx context.Context) error {
	snapshot, err := c.configManager.Reload()
	if err != nil {
		return err
	}

	registry := providers.NewRegistry(snapshot)
	accountMgr := accounts.NewManager(snapshot.Accounts)
	cb := breaker.New(snapshot.Policies.CircuitBreaker.FailureThreshold, snapshot.Policies.CircuitBreaker.RecoveryTime())
	engine := orchestrator.New(snapshot, registry, accountMgr, cb, c.jobs, c.artifacts, c.log)

	c.mu.Lock()
	c.snapshot = snapshot
	c.registry = registry
	c.accountManager = accountMgr
	c.breakerMgr = cb
	c.engine = engine

	if c.queue == nil {
		c.queue = queue.New(256, c.processTask, c.log)
		queueCtx, cancel := context.WithCancel(ctx)
		c.queueCancel = cancel
		c.queue.Start(queueCtx)
	}

	if c.healthStop != nil {
		c.healthStop()
	}
	healthCtx, stop := context.WithCancel(ctx)
	c.healthCtx = healthCtx
	c.healthStop = stop
	c.health = providers.NewHealthScheduler(registry, cb, accountMgr, snapshot.Policies.Health, c.log)
	c.health.Start(healthCtx)
	c.mu.Unlock()

	c.log.Info().Int("providers", len(snapshot.Providers.Providers)).Msg("service context loaded")
	return nil
}

// ReloadConfig re-invokes Load. It returns a ConfigError (unmodified
// service state) if the new configuration fails to validate.
func (c *Context) ReloadConfig(ctx context.Context) error {
	return c.Load(ctx)
}

// SubmitJob mints a 32-hex job id, creates the queued record, and
// enqueues it for the background worker.
func (c *Context) SubmitJob(req models.JobRequest) (string, error) {
	c.mu.RLock()
	q := c.queue
	c.mu.RUnlock()
	if q == nil {
		return "", horuserrors.NewConfigError("", "service not loaded")
	}

	jobID := strings.ReplaceAll(uuid.NewString(), "-", "")
	c.jobs.Create(jobID, req)
	if c.metrics != nil {
		c.metrics.JobsSubmitted.Inc()
	}
	if !q.Enqueue(queue.Item{JobID: jobID}) {
		return "", fmt.Errorf("queue is full")
	}
	return jobID, nil
}

// Metrics returns the process-wide metrics bundle, or nil if none was
// supplied to New.
func (c *Context) Metrics() *metrics.Metrics {
	return c.metrics
}

// GetJob returns the current JobRecord for jobID.
func (c *Context) GetJob(jobID string) (models.JobRecord, bool) {
	return c.jobs.Get(jobID)
}

// ArtifactPath resolves a named artifact's on-disk path for jobID.
func (c *Context) ArtifactPath(jobID, name string) (string, bool) {
	return c.artifacts.ArtifactPath(jobID, name)
}

// ProviderStatuses returns the live health/circuit snapshot for every
// configured provider.
func (c *Context) ProviderStatuses() []models.ProviderStatus {
	c.mu.RLock()
	registry := c.registry
	c.mu.RUnlock()
	if registry == nil {
		return nil
	}
	return registry.HealthSnapshot()
}

// ProbeProvidersNow triggers an immediate, synchronous health probe round.
func (c *Context) ProbeProvidersNow(ctx context.Context) {
	c.mu.RLock()
	health := c.health
	c.mu.RUnlock()
	if health != nil {
		health.ProbeNow(ctx)
	}
}

// ValidateConfig reloads the four documents purely to surface a
// validation error, without affecting the running service.
func (c *Context) ValidateConfig() error {
	return c.configManager.Validate()
}

// QueueDepth returns the number of jobs currently buffered.
func (c *Context) QueueDepth() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.queue == nil {
		return 0
	}
	return c.queue.Depth()
}

// Shutdown stops the health scheduler and the queue worker. A job already
// in flight is not cancelled: it runs with a context detached from the
// worker's, so its current HTTP call (and the rest of that job) finishes,
// and the worker takes no further items.
func (c *Context) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.healthStop != nil {
		c.healthStop()
	}
	if c.queueCancel != nil {
		c.queueCancel()
	}
}

func (c *Context) processTask(ctx context.Context, item queue.Item) {
	c.mu.RLock()
	engine := c.engine
	c.mu.RUnlock()
	if engine == nil {
		return
	}
	req, ok := c.jobs.Request(item.JobID)
	if !ok {
		return
	}
	rec := engine.Run(context.WithoutCancel(ctx), item.JobID, req)
	if c.metrics != nil {
		switch rec.Status {
		case models.JobStatusSucceeded:
			c.metrics.JobsSucceeded.Inc()
		case models.JobStatusSpecOnly:
			c.metrics.JobsSpecOnly.Inc()
		}
		for _, a := range c.jobs.Attempts(item.JobID) {
			c.metrics.AttemptsTotal.WithLabelValues(a.Provider, string(a.Status)).Inc()
		}
	}
}
