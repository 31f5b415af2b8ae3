package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"horus/pkg/models"
)

func TestSpecOnlyProvider_SubmitPollFetchAlwaysSucceed(t *testing.T) {
	p := NewSpecOnlyProvider()
	ctx := context.Background()

	id, err := p.Submit(ctx, models.JobRequest{Prompt: "a cat video"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "spec-a_cat_vi", id)

	payload, err := p.Poll(ctx, id, nil)
	require.NoError(t, err)
	assert.Equal(t, "succeeded", payload["status"])

	result, err := p.Fetch(ctx, id, nil)
	require.NoError(t, err)
	assert.Equal(t, id, result.ProviderJobID)
	assert.True(t, p.Healthcheck(ctx, nil))
}

func TestSpecOnlyProvider_BuildSceneSpec(t *testing.T) {
	p := NewSpecOnlyProvider()
	seed := int64(42)
	job := models.JobRequest{
		Prompt:     "a cat on a skateboard",
		DurationS:  10,
		Resolution: models.Resolution1080p,
		FPS:        24,
		Seed:       &seed,
	}
	job.Metadata = map[string]interface{}{"template": "cinematic_default"}
	spec := p.BuildSceneSpec(job)
	assert.Equal(t, "a cat on a skateboard", spec["prompt"])
	assert.Equal(t, int64(42), spec["seed"])
	assert.Equal(t, 10, spec["duration_s"])
	assert.Equal(t, job.Metadata, spec["metadata"])
}

func TestSpecOnlyProvider_BuildFinalPrompt(t *testing.T) {
	p := NewSpecOnlyProvider()
	job := models.JobRequest{
		Prompt:         "a cat on a skateboard",
		Style:          "cinematic",
		NegativePrompt: "blurry",
		Resolution:     models.Resolution720p,
		FPS:            30,
		DurationS:      5,
		AspectRatio:    models.AspectRatio16x9,
	}
	prompt := p.BuildFinalPrompt(job)
	assert.Equal(t, "a cat on a skateboard | style: cinematic | negative: blurry", prompt)
}
