// Package degrade applies the ordered quality-downgrade steps and named job
// templates described by policies.yml and job_templates.yml to a JobRequest.
package degrade

import (
	"horus/internal/config"
	"horus/pkg/models"
)

// Plan is the ordered list of partial overrides a job walks through when a
// provider keeps failing at full quality.
type Plan struct {
	steps []config.DegradeStep
}

// NewPlan builds a Plan from the configured degrade_plan steps.
func NewPlan(steps []config.DegradeStep) *Plan {
	return &Plan{steps: steps}
}

// Indices returns the step indices to walk. An empty plan yields a single
// identity step [0].
func (p *Plan) Indices() []int {
	if len(p.steps) == 0 {
		return []int{0}
	}
	indices := make([]int, len(p.steps))
	for i := range indices {
		indices[i] = i
	}
	return indices
}

// Apply produces the degraded job for stepIndex, clamping to the last step
// when stepIndex runs past the end of the plan. Only the step's non-zero
// fields are applied; everything else passes through unchanged.
func (p *Plan) Apply(job models.JobRequest, stepIndex int) models.JobRequest {
	if len(p.steps) == 0 {
		return job
	}
	if stepIndex >= len(p.steps) {
		stepIndex = len(p.steps) - 1
	}
	if stepIndex < 0 {
		stepIndex = 0
	}
	step := p.steps[stepIndex]

	out := job.Clone()
	if step.Resolution != "" {
		out.Resolution = models.Resolution(step.Resolution)
	}
	if step.FPS != 0 {
		out.FPS = step.FPS
	}
	if step.DurationS != 0 {
		out.DurationS = step.DurationS
	}
	if step.Steps != nil || step.Guidance != nil {
		if out.Metadata == nil {
			out.Metadata = make(map[string]interface{})
		}
		if step.Steps != nil {
			out.Metadata["steps"] = *step.Steps
		}
		if step.Guidance != nil {
			out.Metadata["guidance"] = *step.Guidance
		}
	}
	return out
}

// ApplyTemplate applies a named job template's non-zero fields to job.
func ApplyTemplate(job models.JobRequest, template config.JobTemplate) models.JobRequest {
	out := job.Clone()
	if template.Resolution != "" {
		out.Resolution = models.Resolution(template.Resolution)
	}
	if template.FPS != 0 {
		out.FPS = template.FPS
	}
	if template.DurationS != 0 {
		out.DurationS = template.DurationS
	}
	if template.OutputFormat != "" {
		out.OutputFormat = models.OutputFormat(template.OutputFormat)
	}
	if template.AspectRatio != "" {
		out.AspectRatio = models.AspectRatio(template.AspectRatio)
	}
	return out
}
