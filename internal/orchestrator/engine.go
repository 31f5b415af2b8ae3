// Package orchestrator implements the nested attempt pipeline that drives
// a queued job to a terminal status: chain resolution, per-provider
// circuit checks, per-degrade-step retries, per-key rotation, and the
// deterministic spec-only floor when every real provider is exhausted.
package orchestrator

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"horus/internal/accounts"
	"horus/internal/breaker"
	"horus/internal/classify"
	"horus/internal/config"
	"horus/internal/degrade"
	horuserrors "horus/internal/errors"
	"horus/internal/providers"
	"horus/internal/store"
	"horus/pkg/models"
)

// Engine ties every component together to run one job from queued to a
// terminal status. It is bound to a single config snapshot for the
// lifetime of a job — reload builds a brand new Engine rather than
// mutating this one, so in-flight jobs never see policy or provider
// changes mid-run.
type Engine struct {
	snapshot  *config.Snapshot
	registry  *providers.Registry
	accounts  *accounts.Manager
	breaker   *breaker.CircuitBreaker
	jobs      *store.JobStore
	artifacts *store.ArtifactStore
	log       zerolog.Logger
}

// New builds an Engine bound to snapshot and its already-constructed
// supporting components.
func New(snapshot *config.Snapshot, registry *providers.Registry, acct *accounts.Manager, cb *breaker.CircuitBreaker, jobs *store.JobStore, artifacts *store.ArtifactStore, log zerolog.Logger) *Engine {
	return &Engine{
		snapshot:  snapshot,
		registry:  registry,
		accounts:  acct,
		breaker:   cb,
		jobs:      jobs,
		artifacts: artifacts,
		log:       log.With().Str("component", "orchestrator").Logger(),
	}
}

// attemptOutcome is the tagged result of one per-provider attempt: exactly
// one of the four branches is meaningful, expressed as a struct rather
// than a sentinel error since "spec_only hit" and "structural failure"
// are both legitimate non-error terminations of the attempt, not
// exceptional conditions.
type attemptOutcome struct {
	success           bool
	specOnly          bool
	structuralFailure bool
	outputPath        string
	outputURL         string
	err               error
}

// Run drives jobID through Stage 1-4 and returns the terminal JobRecord.
// Preconditions: the job store already holds a queued record for jobID,
// and req is the exact JobRequest that was submitted.
func (e *Engine) Run(ctx context.Context, jobID string, req models.JobRequest) models.JobRecord {
	job := e.prepare(jobID, req)

	plan := degrade.NewPlan(e.snapshot.Policies.DegradePlan)
	chain := e.resolveChain()

	var outcome attemptOutcome
	var effectiveJob models.JobRequest = job
	var usedProvider string

	for _, providerName := range chain {
		if e.breaker.IsOpen(providerName) {
			e.jobs.AppendAttempt(jobID, models.AttemptRecord{
				Provider:  providerName,
				Status:    models.AttemptSkipped,
				Reason:    "circuit_open",
				StartedAt: time.Now(),
				EndedAt:   time.Now(),
			})
			e.registry.SetCircuitOpen(providerName, true)
			continue
		}

		for _, stepIdx := range plan.Indices() {
			degradedJob := plan.Apply(job, stepIdx)
			result := e.attemptProvider(ctx, jobID, providerName, degradedJob, stepIdx)

			if result.success {
				e.breaker.RecordSuccess(providerName)
				e.registry.SetCircuitOpen(providerName, false)
				outcome = result
				effectiveJob = degradedJob
				usedProvider = providerName
				goto finalize
			}
			if result.specOnly {
				outcome = result
				effectiveJob = degradedJob
				usedProvider = providerName
				goto finalize
			}
			if result.structuralFailure {
				e.breaker.RecordFailure(providerName, errString(result.err))
				e.registry.SetCircuitOpen(providerName, e.breaker.IsOpen(providerName))
				break
			}
			effectiveJob = degradedJob
		}
	}

finalize:
	return e.finalize(ctx, jobID, effectiveJob, usedProvider, outcome)
}

func (e *Engine) prepare(jobID string, req models.JobRequest) models.JobRequest {
	e.jobs.SetStatus(jobID, models.JobStatusRunning)
	if err := e.artifacts.InitJob(jobID, req); err != nil {
		e.log.Warn().Err(err).Str("job_id", jobID).Msg("failed to initialize artifact directory")
	}

	job := req
	if templateName, ok := req.Metadata["template"].(string); ok && templateName != "" {
		if tmpl, ok := e.snapshot.Templates.Templates[templateName]; ok {
			job = degrade.ApplyTemplate(job, tmpl)
		}
	}
	return job
}

// resolveChain implements Stage 2: filter the configured chain to
// registered providers (falling back to the full registry list if that
// filter empties the chain), stably reorder by ascending cost score when
// routing is cost-aware, then stably sink every spec_only provider to the
// tail.
func (e *Engine) resolveChain() []string {
	configured := e.snapshot.Providers.Chain
	chain := make([]string, 0, len(configured))
	for _, c := range configured {
		if e.registry.Exists(c.Provider) {
			chain = append(chain, c.Provider)
		}
	}
	if len(chain) == 0 {
		chain = e.registry.List()
	}

	if e.snapshot.Policies.Routing.Strategy == "cost_aware" || e.snapshot.Policies.Routing.CostAware {
		sort.SliceStable(chain, func(i, j int) bool {
			return e.registry.CostScore(chain[i]) < e.registry.CostScore(chain[j])
		})
	}

	specOnly := make([]string, 0)
	rest := make([]string, 0, len(chain))
	for _, name := range chain {
		if e.snapshot.Providers.Providers[name].Type == "spec_only" {
			specOnly = append(specOnly, name)
		} else {
			rest = append(rest, name)
		}
	}
	return append(rest, specOnly...)
}

// attemptProvider implements §4.K.1: the per-key, per-retry loop against
// one provider at one degrade step.
func (e *Engine) attemptProvider(ctx context.Context, jobID, providerName string, job models.JobRequest, stepIdx int) attemptOutcome {
	adapter, ok := e.registry.Get(providerName)
	if !ok {
		return attemptOutcome{structuralFailure: true, err: horuserrors.NewProviderError(horuserrors.ErrorUnsupported, "provider %q not registered", providerName)}
	}

	poolSize := e.accounts.PoolSize(providerName)
	if poolSize < 1 {
		poolSize = 1
	}
	maxRetries := e.snapshot.Policies.Retry.MaxAttempts
	backoff := time.Duration(e.snapshot.Policies.Retry.BackoffS) * time.Second
	staticHeaders := e.registry.Headers(providerName)

keyLoop:
	for keyAttempt := 0; keyAttempt < poolSize; keyAttempt++ {
		key := e.accounts.SelectKey(providerName)
		headers := mergeHeaders(staticHeaders, key)

		for attemptIdx := 0; attemptIdx <= maxRetries; attemptIdx++ {
			started := time.Now()

			if _, isSceneBuilder := adapter.(providers.SceneSpecBuilder); isSceneBuilder {
				e.jobs.AppendAttempt(jobID, models.AttemptRecord{
					Provider:    providerName,
					DegradeStep: stepIdx,
					Status:      models.AttemptSucceeded,
					StartedAt:   started,
					EndedAt:     time.Now(),
				})
				return attemptOutcome{specOnly: true}
			}

			result, err := e.runAttempt(ctx, jobID, providerName, adapter, job, headers)
			ended := time.Now()

			if err == nil {
				e.jobs.AppendAttempt(jobID, models.AttemptRecord{
					Provider:      providerName,
					AccountKeyID:  keyID(key),
					DegradeStep:   stepIdx,
					Status:        models.AttemptSucceeded,
					ProviderJobID: result.ProviderJobID,
					StartedAt:     started,
					EndedAt:       ended,
				})
				return e.recordSuccess(jobID, job, result)
			}

			classified := classify.Exception(err)
			if classified.ErrorType == horuserrors.ErrorUnknown {
				if reclassified := classify.Message(classified.Message); reclassified != horuserrors.ErrorUnknown {
					classified.ErrorType = reclassified
				}
			}
			e.jobs.AppendAttempt(jobID, models.AttemptRecord{
				Provider:     providerName,
				AccountKeyID: keyID(key),
				DegradeStep:  stepIdx,
				Status:       models.AttemptFailed,
				ErrorType:    string(classified.ErrorType),
				Reason:       classified.Message,
				StartedAt:    started,
				EndedAt:      ended,
			})

			switch classified.ErrorType {
			case horuserrors.ErrorQuota, horuserrors.ErrorAuth:
				if key != nil {
					e.accounts.MarkFailure(providerName, key.KeyID)
				}
				continue keyLoop
			case horuserrors.ErrorTransient:
				if attemptIdx < maxRetries {
					sleepCtx(ctx, backoff*time.Duration(attemptIdx+1))
					continue
				}
				return attemptOutcome{
					structuralFailure: false,
					err:               classified,
				}
			default:
				return attemptOutcome{
					structuralFailure: classified.ErrorType == horuserrors.ErrorServerDown || classified.ErrorType == horuserrors.ErrorUnsupported,
					err:               classified,
				}
			}
		}
	}

	return attemptOutcome{structuralFailure: true, err: horuserrors.NewProviderError(horuserrors.ErrorUnknown, "exhausted keys")}
}

func (e *Engine) recordSuccess(jobID string, job models.JobRequest, result providers.Result) attemptOutcome {
	if len(result.OutputBytes) > 0 {
		path, err := e.artifacts.WriteOutput(jobID, result.OutputBytes, string(job.OutputFormat))
		if err != nil {
			e.log.Warn().Err(err).Str("job_id", jobID).Msg("failed to write output artifact")
			return attemptOutcome{success: true}
		}
		e.jobs.SetArtifact(jobID, "output", path)
		e.artifacts.GenerateThumbnail(context.Background(), jobID, path)
		return attemptOutcome{success: true, outputPath: path}
	}
	if result.OutputURL != "" {
		path, err := e.artifacts.WriteOutputURL(jobID, result.OutputURL)
		if err == nil {
			e.jobs.SetArtifact(jobID, "output_url", path)
		}
		return attemptOutcome{success: true, outputURL: result.OutputURL}
	}
	return attemptOutcome{success: true}
}

// runAttempt performs the submit → poll(-poll) → fetch cycle against one
// provider/key pairing.
func (e *Engine) runAttempt(ctx context.Context, jobID, providerName string, adapter providers.Provider, job models.JobRequest, headers map[string]string) (providers.Result, error) {
	providerJobID, err := adapter.Submit(ctx, job, headers)
	if err != nil {
		return providers.Result{}, err
	}

	payload, err := adapter.Poll(ctx, providerJobID, headers)
	if err != nil {
		return providers.Result{}, err
	}
	e.artifacts.WriteProviderResponse(jobID, providerName, time.Now(), payload)

	if status, _ := payload["status"].(string); status == "running" || status == "queued" {
		sleepCtx(ctx, time.Second)
		payload, err = adapter.Poll(ctx, providerJobID, headers)
		if err != nil {
			return providers.Result{}, err
		}
		e.artifacts.WriteProviderResponse(jobID, providerName, time.Now(), payload)
	}

	result, err := adapter.Fetch(ctx, providerJobID, headers)
	if err != nil {
		return providers.Result{}, err
	}
	result.ProviderJobID = providerJobID
	return result, nil
}

// finalize implements Stage 4: always derive the scene spec and final
// prompt from the most recently effective job, flush attempts, and pick
// the terminal status. "failed" is reserved for invariant violations and
// is never produced here — the floor is always spec_only.
func (e *Engine) finalize(ctx context.Context, jobID string, effectiveJob models.JobRequest, usedProvider string, outcome attemptOutcome) models.JobRecord {
	specBuilder := providers.NewSpecOnlyProvider()
	scene := specBuilder.BuildSceneSpec(effectiveJob)
	prompt := specBuilder.BuildFinalPrompt(effectiveJob)

	if path, err := e.artifacts.WriteSceneSpec(jobID, scene); err == nil {
		e.jobs.SetArtifact(jobID, "scene_spec", path)
	}
	if path, err := e.artifacts.WriteFinalPrompt(jobID, prompt); err == nil {
		e.jobs.SetArtifact(jobID, "final_prompt", path)
	}
	if err := e.artifacts.WriteAttempts(jobID, e.jobs.Attempts(jobID)); err != nil {
		e.log.Warn().Err(err).Str("job_id", jobID).Msg("failed to flush attempts")
	}

	if outcome.success && usedProvider != "" {
		e.jobs.SetStatus(jobID, models.JobStatusSucceeded)
	} else {
		e.jobs.SetStatus(jobID, models.JobStatusSpecOnly)
	}

	rec, _ := e.jobs.Get(jobID)
	return rec
}

func mergeHeaders(static map[string]string, key *accounts.Key) map[string]string {
	merged := make(map[string]string, len(static))
	for k, v := range static {
		merged[k] = v
	}
	if key != nil {
		for k, v := range key.Headers {
			merged[k] = v
		}
	}
	return merged
}

func keyID(key *accounts.Key) string {
	if key == nil {
		return ""
	}
	return key.KeyID
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
