package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"horus/pkg/models"
)

func TestArtifactStore_InitJobCreatesLayout(t *testing.T) {
	dir := t.TempDir()
	a := NewArtifactStore(dir, "")
	require.NoError(t, a.InitJob("job1", models.JobRequest{Prompt: "x"}))

	assert.FileExists(t, filepath.Join(dir, "job1", "job.json"))
	assert.FileExists(t, filepath.Join(dir, "job1", "attempts.json"))
	_, err := os.Stat(filepath.Join(dir, "job1", "provider_responses"))
	assert.NoError(t, err)
}

func TestArtifactStore_WriteOutputAndResolvePath(t *testing.T) {
	dir := t.TempDir()
	a := NewArtifactStore(dir, "")
	require.NoError(t, a.InitJob("job1", models.JobRequest{}))

	path, err := a.WriteOutput("job1", []byte("binary-data"), "mp4")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "job1", "output.mp4"), path)

	resolved, ok := a.ArtifactPath("job1", "video")
	require.True(t, ok)
	assert.Equal(t, path, resolved)
}

func TestArtifactStore_WriteSceneSpecAndFinalPrompt(t *testing.T) {
	dir := t.TempDir()
	a := NewArtifactStore(dir, "")
	require.NoError(t, a.InitJob("job1", models.JobRequest{}))

	_, err := a.WriteSceneSpec("job1", map[string]interface{}{"prompt": "x"})
	require.NoError(t, err)
	_, err = a.WriteFinalPrompt("job1", "a cat on a skateboard")
	require.NoError(t, err)

	path, ok := a.ArtifactPath("job1", "scene_spec")
	require.True(t, ok)
	assert.FileExists(t, path)

	path, ok = a.ArtifactPath("job1", "final_prompt")
	require.True(t, ok)
	assert.FileExists(t, path)
}

func TestArtifactStore_WriteOutputURL(t *testing.T) {
	dir := t.TempDir()
	a := NewArtifactStore(dir, "")
	require.NoError(t, a.InitJob("job1", models.JobRequest{}))

	_, err := a.WriteOutputURL("job1", "https://example.com/out.mp4")
	require.NoError(t, err)

	path, ok := a.ArtifactPath("job1", "output_url")
	require.True(t, ok)
	data, _ := os.ReadFile(path)
	assert.Equal(t, "https://example.com/out.mp4", string(data))
}

func TestArtifactStore_GenerateThumbnail_NoFFmpegIsBestEffort(t *testing.T) {
	dir := t.TempDir()
	a := NewArtifactStore(dir, "")
	require.NoError(t, a.InitJob("job1", models.JobRequest{}))

	thumb := a.GenerateThumbnail(context.Background(), "job1", filepath.Join(dir, "job1", "missing.mp4"))
	assert.Empty(t, thumb, "an unconfigured ffmpeg path must never fail the job")
}

func TestArtifactStore_ArtifactPathUnknownNameIsNotFound(t *testing.T) {
	dir := t.TempDir()
	a := NewArtifactStore(dir, "")
	require.NoError(t, a.InitJob("job1", models.JobRequest{}))

	_, ok := a.ArtifactPath("job1", "nonexistent")
	assert.False(t, ok)
}

func TestArtifactStore_WriteAttempts(t *testing.T) {
	dir := t.TempDir()
	a := NewArtifactStore(dir, "")
	require.NoError(t, a.InitJob("job1", models.JobRequest{}))

	attempts := []models.AttemptRecord{{Provider: "p1", Status: models.AttemptSucceeded}}
	require.NoError(t, a.WriteAttempts("job1", attempts))
	assert.FileExists(t, filepath.Join(dir, "job1", "attempts.json"))
}
