// Package providers implements the two adapter variants (http_async,
// spec_only) behind a common interface, plus the registry that holds them
// alongside static headers, cost scores, and live health status.
package providers

import (
	"context"

	"horus/pkg/models"
)

// Result is what Fetch returns: either the artifact bytes, a URL to fetch
// them from, or (for spec_only) neither.
type Result struct {
	ProviderJobID string
	Status        string
	OutputURL     string
	OutputBytes   []byte
	Metadata      map[string]interface{}
}

// Provider is the adapter interface every provider, regardless of variant,
// implements.
type Provider interface {
	Submit(ctx context.Context, job models.JobRequest, headers map[string]string) (string, error)
	Poll(ctx context.Context, providerJobID string, headers map[string]string) (map[string]interface{}, error)
	Fetch(ctx context.Context, providerJobID string, headers map[string]string) (Result, error)
	Healthcheck(ctx context.Context, headers map[string]string) bool
}

// SceneSpecBuilder is implemented only by the spec-only provider: it builds
// the deterministic terminal artifacts used whenever every real provider
// has been exhausted.
type SceneSpecBuilder interface {
	BuildSceneSpec(job models.JobRequest) map[string]interface{}
	BuildFinalPrompt(job models.JobRequest) string
}
