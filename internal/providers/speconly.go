package providers

import (
	"context"
	"strings"

	"horus/pkg/models"
)

// SpecOnlyProvider never calls out to a network. It is the deterministic
// terminal step of the provider chain: once every real provider has been
// exhausted, it manufactures a scene specification and a descriptive
// artifact payload so a job always resolves to *some* output rather than
// an unrecoverable failure.
type SpecOnlyProvider struct{}

// NewSpecOnlyProvider builds a SpecOnlyProvider. It carries no state.
func NewSpecOnlyProvider() *SpecOnlyProvider {
	return &SpecOnlyProvider{}
}

// Submit never fails: it derives a stub id from the job's prompt and
// returns immediately.
func (p *SpecOnlyProvider) Submit(_ context.Context, job models.JobRequest, _ map[string]string) (string, error) {
	return "spec-" + promptStub(job.Prompt), nil
}

// promptStub mirrors job.prompt[:8].replace(" ", "_"): the first 8 runes
// of the prompt with each space replaced by an underscore.
func promptStub(prompt string) string {
	runes := []rune(prompt)
	if len(runes) > 8 {
		runes = runes[:8]
	}
	return strings.ReplaceAll(string(runes), " ", "_")
}

// Poll always reports the synthetic job as already complete.
func (p *SpecOnlyProvider) Poll(_ context.Context, providerJobID string, _ map[string]string) (map[string]interface{}, error) {
	return map[string]interface{}{"status": "succeeded", "job_id": providerJobID}, nil
}

// Fetch returns a succeeded result with no output bytes and no URL; its
// metadata only flags spec_only. The scene spec itself comes from
// BuildSceneSpec.
func (p *SpecOnlyProvider) Fetch(_ context.Context, providerJobID string, _ map[string]string) (Result, error) {
	return Result{
		ProviderJobID: providerJobID,
		Status:        "succeeded",
		Metadata:      map[string]interface{}{"spec_only": true},
	}, nil
}

// Healthcheck is always true: there is no external dependency to fail.
func (p *SpecOnlyProvider) Healthcheck(_ context.Context, _ map[string]string) bool {
	return true
}

// BuildSceneSpec produces the deterministic, structured description of the
// requested scene used as the fallback artifact's payload.
func (p *SpecOnlyProvider) BuildSceneSpec(job models.JobRequest) map[string]interface{} {
	spec := map[string]interface{}{
		"prompt":          job.Prompt,
		"negative_prompt": job.NegativePrompt,
		"duration_s":      job.DurationS,
		"aspect_ratio":    string(job.AspectRatio),
		"resolution":      string(job.Resolution),
		"fps":             job.FPS,
		"style":           job.Style,
		"output_format":   string(job.OutputFormat),
		"metadata":        job.Metadata,
	}
	if job.Seed != nil {
		spec["seed"] = *job.Seed
	}
	if job.InputImageURL != "" {
		spec["input_image_url"] = job.InputImageURL
	}
	return spec
}

// BuildFinalPrompt composes the single text description of the scene a
// human operator would read in place of watching the (nonexistent) video:
// prompt, optional style, optional negative prompt, pipe-separated.
func (p *SpecOnlyProvider) BuildFinalPrompt(job models.JobRequest) string {
	parts := []string{job.Prompt}
	if job.Style != "" {
		parts = append(parts, "style: "+job.Style)
	}
	if job.NegativePrompt != "" {
		parts = append(parts, "negative: "+job.NegativePrompt)
	}
	return strings.Join(parts, " | ")
}
