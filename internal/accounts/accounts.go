// Package accounts implements the per-provider account-key pool: selection
// strategy, cooldown after failure, and round-robin/least-recent/random
// rotation.
package accounts

import (
	"math/rand"
	"sync"
	"time"

	"horus/internal/config"
)

// Key is one credential's live rotation state.
type Key struct {
	KeyID      string
	Headers    map[string]string
	LastUsed   time.Time
	LastFailed time.Time
}

type pool struct {
	provider           string
	strategy           string
	cooldownAfterFailS int
	keys               []*Key
	roundRobinIndex    int
}

// Manager owns one pool per provider, each guarded by the same mutex —
// pools are small and selection is cheap, so a single lock keeps the
// bookkeeping simple without becoming a contention point.
type Manager struct {
	mu    sync.Mutex
	pools map[string]*pool
	now   func() time.Time
	rand  *rand.Rand
}

// NewManager builds a Manager from the accounts.yml document, expanding
// "${ENV_VAR}" tokens in every key's headers at load time.
func NewManager(cfg config.AccountsConfig) *Manager {
	m := &Manager{
		pools: make(map[string]*pool),
		now:   time.Now,
		rand:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, p := range cfg.Pools {
		keys := make([]*Key, 0, len(p.Keys))
		for _, k := range p.Keys {
			headers := make(map[string]string, len(k.Headers))
			for name, value := range k.Headers {
				headers[name] = config.ExpandEnv(value)
			}
			keys = append(keys, &Key{KeyID: k.KeyID, Headers: headers})
		}
		m.pools[p.Provider] = &pool{
			provider:           p.Provider,
			strategy:           p.Strategy,
			cooldownAfterFailS: p.CooldownAfterFailS,
			keys:               keys,
		}
	}
	return m
}

// SelectKey chooses the next key for provider under its configured
// strategy, skipping keys still in cooldown unless every key is in
// cooldown (in which case it falls back to the full list so the provider
// is never starved entirely). Returns nil if no pool is configured.
func (m *Manager) SelectKey(provider string) *Key {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pools[provider]
	if !ok || len(p.keys) == 0 {
		return nil
	}

	now := m.now()
	available := make([]*Key, 0, len(p.keys))
	for _, k := range p.keys {
		if now.Sub(k.LastFailed) >= time.Duration(p.cooldownAfterFailS)*time.Second {
			available = append(available, k)
		}
	}
	if len(available) == 0 {
		available = p.keys
	}

	var choice *Key
	switch p.strategy {
	case "random":
		choice = available[m.rand.Intn(len(available))]
	case "least_recent":
		choice = available[0]
		for _, k := range available[1:] {
			if k.LastUsed.Before(choice.LastUsed) {
				choice = k
			}
		}
	default: // round_robin
		choice = available[p.roundRobinIndex%len(available)]
		p.roundRobinIndex = (p.roundRobinIndex + 1) % len(available)
	}
	choice.LastUsed = now
	return choice
}

// MarkFailure records that keyID failed, so SelectKey skips it for
// cooldown_after_fail_s (provided another key remains available).
func (m *Manager) MarkFailure(provider, keyID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pools[provider]
	if !ok {
		return
	}
	for _, k := range p.keys {
		if k.KeyID == keyID {
			k.LastFailed = m.now()
			return
		}
	}
}

// PoolSize returns the number of configured keys for provider, zero if no
// pool is configured.
func (m *Manager) PoolSize(provider string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pools[provider]
	if !ok {
		return 0
	}
	return len(p.keys)
}
