// Package config loads the four configuration documents (providers,
// policies, accounts, job templates) into an immutable ConfigSnapshot.
//
// Each document is its own viper instance pointed at an exact file path —
// unlike the teacher's single-document SetConfigName/AddConfigPath search,
// this package always knows the exact four filenames up front — unmarshalled
// through mapstructure tags into typed structs, the same load-then-validate
// shape the teacher's internal/config.Load uses.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	horuserrors "horus/internal/errors"
)

// ProviderCapabilities records which generation modes a provider supports.
type ProviderCapabilities struct {
	Txt2Vid bool `mapstructure:"txt2vid"`
	Img2Vid bool `mapstructure:"img2vid"`
}

// ProviderEndpoints holds the submit/poll/fetch URL templates for an
// http_async provider; poll and fetch may contain a "{job_id}" placeholder.
type ProviderEndpoints struct {
	Submit string `mapstructure:"submit"`
	Poll   string `mapstructure:"poll"`
	Fetch  string `mapstructure:"fetch"`
}

// ProviderConfig is one entry under providers.yml's "providers" map.
type ProviderConfig struct {
	Type           string               `mapstructure:"type"`
	BaseURL        string               `mapstructure:"base_url"`
	Capabilities   ProviderCapabilities `mapstructure:"capabilities"`
	Endpoints      *ProviderEndpoints   `mapstructure:"endpoints"`
	Headers        map[string]string    `mapstructure:"headers"`
	CostScore      int                  `mapstructure:"cost_score"`
	HealthEndpoint string               `mapstructure:"health_endpoint"`
}

// ProviderChainItem is one entry of providers.yml's ordered "chain" list.
type ProviderChainItem struct {
	Provider string `mapstructure:"provider"`
}

// ProvidersConfig is the structural content of providers.yml.
type ProvidersConfig struct {
	Providers map[string]ProviderConfig `mapstructure:"providers"`
	Chain     []ProviderChainItem       `mapstructure:"chain"`
}

// RetryPolicy governs the per-provider-attempt retry loop.
type RetryPolicy struct {
	MaxAttempts int `mapstructure:"max_attempts"`
	BackoffS    int `mapstructure:"backoff_s"`
}

// TimeoutPolicy governs per-operation HTTP timeouts.
type TimeoutPolicy struct {
	SubmitS int `mapstructure:"submit_s"`
	PollS   int `mapstructure:"poll_s"`
	FetchS  int `mapstructure:"fetch_s"`
}

// CircuitBreakerPolicy parameterizes internal/breaker.
type CircuitBreakerPolicy struct {
	FailureThreshold int `mapstructure:"failure_threshold"`
	RecoveryTimeS    int `mapstructure:"recovery_time_s"`
}

// DegradeStep is one ordered entry of policies.yml's "degrade_plan" list.
// Only non-zero fields are applied when the step is used.
type DegradeStep struct {
	Resolution string   `mapstructure:"resolution"`
	FPS        int      `mapstructure:"fps"`
	DurationS  int      `mapstructure:"duration_s"`
	Steps      *int     `mapstructure:"steps"`
	Guidance   *float64 `mapstructure:"guidance"`
}

// RoutingPolicy chooses how the provider chain is ordered before the
// attempt loop walks it.
type RoutingPolicy struct {
	Strategy  string `mapstructure:"strategy"`
	CostAware bool   `mapstructure:"cost_aware"`
}

// HealthPolicy governs the background health scheduler.
type HealthPolicy struct {
	Enabled        bool `mapstructure:"enabled"`
	CheckIntervalS int  `mapstructure:"check_interval_s"`
	TimeoutS       int  `mapstructure:"timeout_s"`
}

// PoliciesConfig is the structural content of policies.yml.
type PoliciesConfig struct {
	Timeouts       TimeoutPolicy        `mapstructure:"timeouts"`
	Retry          RetryPolicy          `mapstructure:"retry"`
	CircuitBreaker CircuitBreakerPolicy `mapstructure:"circuit_breaker"`
	Routing        RoutingPolicy        `mapstructure:"routing"`
	Health         HealthPolicy         `mapstructure:"health"`
	DegradePlan    []DegradeStep        `mapstructure:"degrade_plan"`
}

// AccountKey is one credential in an account pool. Headers may reference
// "${ENV_VAR}" tokens, expanded from the process environment at load time.
type AccountKey struct {
	KeyID      string            `mapstructure:"key_id"`
	EnvVarName string            `mapstructure:"env_var_name"`
	Headers    map[string]string `mapstructure:"headers"`
}

// AccountPool is one entry of accounts.yml's "pools" list.
type AccountPool struct {
	Provider           string       `mapstructure:"provider"`
	PoolName           string       `mapstructure:"pool_name"`
	Strategy           string       `mapstructure:"strategy"`
	CooldownAfterFailS int          `mapstructure:"cooldown_after_fail_s"`
	Keys               []AccountKey `mapstructure:"keys"`
}

// AccountsConfig is the structural content of accounts.yml.
type AccountsConfig struct {
	Pools []AccountPool `mapstructure:"pools"`
}

// JobTemplate is one named partial override under job_templates.yml.
type JobTemplate struct {
	Resolution   string `mapstructure:"resolution"`
	FPS          int    `mapstructure:"fps"`
	DurationS    int    `mapstructure:"duration_s"`
	OutputFormat string `mapstructure:"output_format"`
	AspectRatio  string `mapstructure:"aspect_ratio"`
}

// JobTemplatesConfig is the structural content of job_templates.yml.
type JobTemplatesConfig struct {
	Templates map[string]JobTemplate `mapstructure:"templates"`
}

// Snapshot is the immutable, fully-validated bundle of all four documents.
// A reload produces a brand new Snapshot; nothing in an existing one is
// ever mutated in place.
type Snapshot struct {
	Providers ProvidersConfig
	Policies  PoliciesConfig
	Accounts  AccountsConfig
	Templates JobTemplatesConfig
}

// Manager loads and re-loads the four documents from a base directory.
type Manager struct {
	baseDir string
}

// NewManager builds a Manager rooted at baseDir (typically "configs").
func NewManager(baseDir string) *Manager {
	return &Manager{baseDir: baseDir}
}

// Reload re-reads and re-validates all four documents and returns a new
// Snapshot. Either every document validates and Reload returns the new
// snapshot, or it returns an error and the caller's existing snapshot (if
// any) is left untouched — Reload never mutates shared state itself.
func (m *Manager) Reload() (*Snapshot, error) {
	var providers ProvidersConfig
	if err := loadYAML(filepath.Join(m.baseDir, "providers.yml"), &providers); err != nil {
		return nil, err
	}
	var policies PoliciesConfig
	applyPolicyDefaults(&policies)
	if err := loadYAML(filepath.Join(m.baseDir, "policies.yml"), &policies); err != nil {
		return nil, err
	}
	var accounts AccountsConfig
	if err := loadYAML(filepath.Join(m.baseDir, "accounts.yml"), &accounts); err != nil {
		return nil, err
	}
	var templates JobTemplatesConfig
	if err := loadYAML(filepath.Join(m.baseDir, "job_templates.yml"), &templates); err != nil {
		return nil, err
	}

	if err := validate(providers, policies); err != nil {
		return nil, err
	}

	return &Snapshot{
		Providers: providers,
		Policies:  policies,
		Accounts:  accounts,
		Templates: templates,
	}, nil
}

// Validate reloads the documents purely to surface errors (used by
// `horusctl configs validate`); it discards the resulting snapshot.
func (m *Manager) Validate() error {
	_, err := m.Reload()
	return err
}

func applyPolicyDefaults(p *PoliciesConfig) {
	p.Timeouts = TimeoutPolicy{SubmitS: 30, PollS: 15, FetchS: 60}
	p.Retry = RetryPolicy{MaxAttempts: 1, BackoffS: 1}
	p.CircuitBreaker = CircuitBreakerPolicy{FailureThreshold: 3, RecoveryTimeS: 60}
	p.Routing = RoutingPolicy{Strategy: "cost_aware", CostAware: true}
	p.Health = HealthPolicy{Enabled: true, CheckIntervalS: 30, TimeoutS: 5}
}

func loadYAML(path string, target interface{}) error {
	if _, err := os.Stat(path); err != nil {
		return horuserrors.NewConfigError(path, "missing config file")
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return horuserrors.NewConfigError(path, "invalid yaml: %v", err)
	}
	if err := v.Unmarshal(target); err != nil {
		return horuserrors.NewConfigError(path, "schema validation failed: %v", err)
	}
	return nil
}

func validate(providers ProvidersConfig, policies PoliciesConfig) error {
	if len(providers.Providers) == 0 {
		return horuserrors.NewConfigError("providers.yml", "no providers configured")
	}
	for name, p := range providers.Providers {
		if p.Type != "http_async" && p.Type != "spec_only" {
			return horuserrors.NewConfigError("providers.yml", "provider %q has unknown type %q", name, p.Type)
		}
		if p.Type == "http_async" && p.Endpoints == nil {
			return horuserrors.NewConfigError("providers.yml", "provider %q missing endpoints", name)
		}
	}
	if policies.CircuitBreaker.FailureThreshold < 1 {
		return horuserrors.NewConfigError("policies.yml", "circuit_breaker.failure_threshold must be >= 1")
	}
	if policies.CircuitBreaker.RecoveryTimeS < 1 {
		return horuserrors.NewConfigError("policies.yml", "circuit_breaker.recovery_time_s must be >= 1")
	}
	return nil
}

// ExpandEnv expands "${VAR}" tokens in value from the process environment.
// It intentionally mirrors the source design's narrow, string-scoped
// expansion rather than viper's whole-document env binding, since expansion
// only ever applies inside account key header values.
func ExpandEnv(value string) string {
	if !strings.Contains(value, "${") {
		return value
	}
	return os.Expand(value, os.Getenv)
}

// RecoveryTime converts the policy's recovery_time_s into a time.Duration.
func (p CircuitBreakerPolicy) RecoveryTime() time.Duration {
	return time.Duration(p.RecoveryTimeS) * time.Second
}

// SubmitTimeout, PollTimeout, and FetchTimeout convert the policy's *_s
// integer fields into time.Duration for context.WithTimeout call sites.
func (t TimeoutPolicy) SubmitTimeout() time.Duration { return time.Duration(t.SubmitS) * time.Second }
func (t TimeoutPolicy) PollTimeout() time.Duration   { return time.Duration(t.PollS) * time.Second }
func (t TimeoutPolicy) FetchTimeout() time.Duration  { return time.Duration(t.FetchS) * time.Second }

// String implements fmt.Stringer for ProviderChainItem so log lines read
// naturally.
func (c ProviderChainItem) String() string { return c.Provider }
