// Package models holds the wire and storage types shared between the
// orchestrator engine, the HTTP facade, and the CLI.
package models

import "time"

// AspectRatio enumerates the supported output frame shapes.
type AspectRatio string

const (
	AspectRatio16x9 AspectRatio = "16:9"
	AspectRatio9x16 AspectRatio = "9:16"
	AspectRatio1x1  AspectRatio = "1:1"
)

// Resolution enumerates the supported output resolutions, ordered from
// highest to lowest quality. Degrade steps set whatever resolution the
// configured plan names; they do not derive it from this order.
type Resolution string

const (
	Resolution1080p Resolution = "1080p"
	Resolution720p  Resolution = "720p"
	Resolution480p  Resolution = "480p"
)

// OutputFormat enumerates the supported container formats.
type OutputFormat string

const (
	OutputFormatMP4  OutputFormat = "mp4"
	OutputFormatWebM OutputFormat = "webm"
)

// JobStatus is the lifecycle state of a JobRecord. Status transitions
// monotonically forward through queued -> running -> (succeeded | spec_only
// | failed); terminal states are sticky.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusSpecOnly  JobStatus = "spec_only"
)

// JobRequest is the immutable, caller-supplied description of a generation
// job. Metadata is an open extension channel; recognized keys are
// "template", "steps", and "guidance", but unrecognized keys are preserved
// end-to-end rather than rejected.
type JobRequest struct {
	Prompt         string                 `json:"prompt"`
	NegativePrompt string                 `json:"negative_prompt,omitempty"`
	DurationS      int                    `json:"duration_s"`
	AspectRatio    AspectRatio            `json:"aspect_ratio"`
	Resolution     Resolution             `json:"resolution"`
	FPS            int                    `json:"fps"`
	Seed           *int64                 `json:"seed,omitempty"`
	Style          string                 `json:"style,omitempty"`
	InputImageURL  string                 `json:"input_image_url,omitempty"`
	OutputFormat   OutputFormat           `json:"output_format"`
	Priority       int                    `json:"priority"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// Clone returns a deep-enough copy of the request: the metadata map is
// copied so degrade steps and template application never mutate a job an
// earlier attempt still holds a reference to.
func (j JobRequest) Clone() JobRequest {
	clone := j
	if j.Metadata != nil {
		clone.Metadata = make(map[string]interface{}, len(j.Metadata))
		for k, v := range j.Metadata {
			clone.Metadata[k] = v
		}
	}
	if j.Seed != nil {
		seed := *j.Seed
		clone.Seed = &seed
	}
	return clone
}

// JobRecord is the mutable record owned exclusively by the job store.
type JobRecord struct {
	JobID     string            `json:"job_id"`
	Status    JobStatus         `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Artifacts map[string]string `json:"artifacts"`
	Error     string            `json:"error,omitempty"`
}

// AttemptStatus is the outcome of a single attempt against a provider.
type AttemptStatus string

const (
	AttemptSucceeded AttemptStatus = "succeeded"
	AttemptFailed    AttemptStatus = "failed"
	AttemptSkipped   AttemptStatus = "skipped"
)

// AttemptRecord is an append-only audit entry for one submit/poll/fetch
// cycle (or a skipped/circuit-open decision) against one provider.
type AttemptRecord struct {
	Provider      string        `json:"provider"`
	AccountKeyID  string        `json:"account_key_id,omitempty"`
	DegradeStep   int           `json:"degrade_step"`
	Status        AttemptStatus `json:"status"`
	ErrorType     string        `json:"error_type,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	ProviderJobID string        `json:"provider_job_id,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
	EndedAt       time.Time     `json:"ended_at"`
}

// ProviderHealth is the registry's live view of a provider, refreshed by the
// health scheduler. It is independent of the circuit breaker's open/closed
// state; both are exposed together in ProviderStatus.
type ProviderHealth string

const (
	ProviderHealthHealthy  ProviderHealth = "healthy"
	ProviderHealthDegraded ProviderHealth = "degraded"
	ProviderHealthDown     ProviderHealth = "down"
	ProviderHealthUnknown  ProviderHealth = "unknown"
)

// ProviderStatus is the combined health/circuit snapshot for one provider.
type ProviderStatus struct {
	Provider      string         `json:"provider"`
	Health        ProviderHealth `json:"health"`
	CircuitOpen   bool           `json:"circuit_open"`
	LastError     string         `json:"last_error,omitempty"`
	LastCheckedAt *time.Time     `json:"last_checked_at,omitempty"`
}
