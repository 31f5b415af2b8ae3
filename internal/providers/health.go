package providers

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"horus/internal/accounts"
	"horus/internal/breaker"
	"horus/internal/config"
)

// HealthScheduler periodically probes every configured provider's
// Healthcheck and feeds the result back into the Registry, the same
// ticker-driven background-service shape the teacher's heartbeat.Service
// uses for its own periodic orchestrator pulse, repointed here from
// "report this worker's load" to "probe every provider's reachability."
// Health and the circuit breaker are independent signals: this scheduler
// reads breaker state for the combined status snapshot but never opens or
// closes it itself.
type HealthScheduler struct {
	registry *Registry
	breaker  *breaker.CircuitBreaker
	accounts *accounts.Manager
	policy   config.HealthPolicy
	log      zerolog.Logger
}

// NewHealthScheduler builds a HealthScheduler. If policy.Enabled is false,
// Start is a no-op.
func NewHealthScheduler(registry *Registry, cb *breaker.CircuitBreaker, acct *accounts.Manager, policy config.HealthPolicy, log zerolog.Logger) *HealthScheduler {
	return &HealthScheduler{registry: registry, breaker: cb, accounts: acct, policy: policy, log: log.With().Str("component", "health_scheduler").Logger()}
}

// Start launches the background probe loop. It returns immediately; the
// loop stops when ctx is cancelled.
func (s *HealthScheduler) Start(ctx context.Context) {
	if !s.policy.Enabled {
		return
	}
	interval := time.Duration(s.policy.CheckIntervalS) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		s.probeAll(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.probeAll(ctx)
			}
		}
	}()
}

// ProbeNow runs one immediate round of probes against every configured
// provider, synchronously, instead of waiting for the ticker.
func (s *HealthScheduler) ProbeNow(ctx context.Context) {
	s.probeAll(ctx)
}

func (s *HealthScheduler) probeAll(ctx context.Context) {
	for _, name := range s.registry.List() {
		s.probeOne(ctx, name)
	}
}

func (s *HealthScheduler) probeOne(ctx context.Context, name string) {
	provider, ok := s.registry.Get(name)
	if !ok {
		return
	}
	timeout := time.Duration(s.policy.TimeoutS) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	headers := s.headersFor(name)
	healthy := provider.Healthcheck(probeCtx, headers)
	if healthy {
		s.registry.UpdateHealth(name, true, "")
	} else {
		s.registry.UpdateHealth(name, false, "healthcheck failed")
	}
	s.registry.SetCircuitOpen(name, s.breaker.IsOpen(name))
	s.log.Debug().Str("provider", name).Bool("healthy", healthy).Msg("provider health probe")
}

// headersFor merges the provider's static headers with one selected
// account key's headers, the same way the orchestrator's attempt loop
// authenticates a real request — a provider's health endpoint commonly
// sits behind the same auth as its generation endpoints.
func (s *HealthScheduler) headersFor(name string) map[string]string {
	static := s.registry.Headers(name)
	if s.accounts == nil {
		return static
	}
	key := s.accounts.SelectKey(name)
	if key == nil {
		return static
	}
	merged := make(map[string]string, len(static)+len(key.Headers))
	for k, v := range static {
		merged[k] = v
	}
	for k, v := range key.Headers {
		merged[k] = v
	}
	return merged
}
