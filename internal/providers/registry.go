package providers

import (
	"sync"
	"time"

	"horus/internal/config"
	"horus/pkg/models"
)

// entry bundles a live Provider adapter with the static facts the
// orchestrator needs about it (cost, capabilities, headers) and the
// mutable health state the scheduler keeps current.
type entry struct {
	name         string
	provider     Provider
	costScore    int
	capabilities config.ProviderCapabilities
	headers      map[string]string

	mu          sync.Mutex
	health      models.ProviderHealth
	circuitOpen bool
	lastError   string
	lastChecked *time.Time
}

// Registry holds every configured provider adapter plus its live health
// status. All registry state lives behind per-entry locks so health
// updates from the background scheduler never race with orchestrator
// reads.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	chain   []string
}

// NewRegistry builds provider adapters from snapshot and wires them into a
// Registry. http_async providers become HTTPAsyncProvider instances;
// every other type becomes its own SpecOnlyProvider.
func NewRegistry(snapshot *config.Snapshot) *Registry {
	r := &Registry{entries: make(map[string]*entry)}
	for name, cfg := range snapshot.Providers.Providers {
		var p Provider
		switch cfg.Type {
		case "http_async":
			p = NewHTTPAsyncProvider(name, cfg, snapshot.Policies.Timeouts)
		default:
			p = NewSpecOnlyProvider()
		}
		r.entries[name] = &entry{
			name:         name,
			provider:     p,
			costScore:    cfg.CostScore,
			capabilities: cfg.Capabilities,
			headers:      cfg.Headers,
			health:       models.ProviderHealthUnknown,
		}
	}
	for _, c := range snapshot.Providers.Chain {
		r.chain = append(r.chain, c.Provider)
	}
	return r
}

// Get returns the named provider adapter and whether it exists.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.provider, true
}

// Exists reports whether name is a configured provider.
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// Chain returns the configured provider routing order.
func (r *Registry) Chain() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.chain))
	copy(out, r.chain)
	return out
}

// CostScore returns the configured cost score for name, or zero if unknown.
func (r *Registry) CostScore(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return 0
	}
	return e.costScore
}

// Headers returns the configured static headers for name.
func (r *Registry) Headers(name string) map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return nil
	}
	return e.headers
}

// Capabilities returns the configured generation-mode capabilities for
// name.
func (r *Registry) Capabilities(name string) config.ProviderCapabilities {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return config.ProviderCapabilities{}
	}
	return e.capabilities
}

// List returns every configured provider name.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for name := range r.entries {
		out = append(out, name)
	}
	return out
}

// UpdateHealth records the outcome of a healthcheck probe for name.
func (r *Registry) UpdateHealth(name string, healthy bool, errMsg string) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	now := time.Now()
	e.lastChecked = &now
	e.lastError = errMsg
	if healthy {
		e.health = models.ProviderHealthHealthy
	} else if e.circuitOpen {
		e.health = models.ProviderHealthDown
	} else {
		e.health = models.ProviderHealthDegraded
	}
}

// SetCircuitOpen records the circuit breaker's current state for name, so
// it's reflected in HealthSnapshot without the caller needing a second
// lookup into internal/breaker.
func (r *Registry) SetCircuitOpen(name string, open bool) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.circuitOpen = open
	if open {
		e.health = models.ProviderHealthDown
	}
}

// HealthSnapshot returns the current ProviderStatus for every configured
// provider.
func (r *Registry) HealthSnapshot() []models.ProviderStatus {
	r.mu.RLock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	r.mu.RUnlock()

	out := make([]models.ProviderStatus, 0, len(names))
	for _, name := range names {
		r.mu.RLock()
		e := r.entries[name]
		r.mu.RUnlock()

		e.mu.Lock()
		out = append(out, models.ProviderStatus{
			Provider:      e.name,
			Health:        e.health,
			CircuitOpen:   e.circuitOpen,
			LastError:     e.lastError,
			LastCheckedAt: e.lastChecked,
		})
		e.mu.Unlock()
	}
	return out
}
