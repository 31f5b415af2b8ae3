package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"horus/pkg/models"
)

// ArtifactStore owns the on-disk artifacts/<job_id>/ directory for every
// job: job.json, attempts.json, the scene spec and final prompt, the
// fetched output (or its URL), a best-effort thumbnail, and raw
// provider_responses/. It survives process restarts; the in-memory
// JobStore index does not, by design (the persistence Non-goal).
type ArtifactStore struct {
	baseDir    string
	ffmpegPath string
}

// NewArtifactStore builds an ArtifactStore rooted at baseDir. ffmpegPath
// is the binary used for best-effort thumbnail extraction; an empty value
// disables thumbnailing entirely.
func NewArtifactStore(baseDir, ffmpegPath string) *ArtifactStore {
	return &ArtifactStore{baseDir: baseDir, ffmpegPath: ffmpegPath}
}

func (a *ArtifactStore) jobDir(jobID string) string {
	return filepath.Join(a.baseDir, jobID)
}

// InitJob creates artifacts/<job_id>/, writes the initial job.json, and
// seeds an empty attempts.json.
func (a *ArtifactStore) InitJob(jobID string, req models.JobRequest) error {
	dir := a.jobDir(jobID)
	if err := os.MkdirAll(filepath.Join(dir, "provider_responses"), 0o755); err != nil {
		return fmt.Errorf("creating artifact dir: %w", err)
	}
	if err := a.writeJSON(filepath.Join(dir, "job.json"), req); err != nil {
		return err
	}
	return a.writeJSON(filepath.Join(dir, "attempts.json"), []models.AttemptRecord{})
}

// WriteAttempts replaces attempts.json with the full current list.
func (a *ArtifactStore) WriteAttempts(jobID string, attempts []models.AttemptRecord) error {
	return a.writeJSON(filepath.Join(a.jobDir(jobID), "attempts.json"), attempts)
}

// WriteSceneSpec persists the deterministic scene-spec object as JSON and
// returns the path written.
func (a *ArtifactStore) WriteSceneSpec(jobID string, spec map[string]interface{}) (string, error) {
	path := filepath.Join(a.jobDir(jobID), "scene_spec.json")
	if err := a.writeJSON(path, spec); err != nil {
		return "", err
	}
	return path, nil
}

// WriteFinalPrompt persists the final prompt text and returns the path
// written.
func (a *ArtifactStore) WriteFinalPrompt(jobID, prompt string) (string, error) {
	path := filepath.Join(a.jobDir(jobID), "final_prompt.txt")
	if err := os.WriteFile(path, []byte(prompt), 0o644); err != nil {
		return "", fmt.Errorf("writing final prompt: %w", err)
	}
	return path, nil
}

// WriteOutput persists the fetched video bytes under output.<format> and
// returns the path written.
func (a *ArtifactStore) WriteOutput(jobID string, data []byte, outputFormat string) (string, error) {
	path := filepath.Join(a.jobDir(jobID), "output."+outputFormat)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing output artifact: %w", err)
	}
	return path, nil
}

// WriteOutputURL persists a provider-hosted output URL literally. The
// orchestrator calls it whenever a provider's fetch returns a URL instead
// of bytes; the content behind the URL is not downloaded.
func (a *ArtifactStore) WriteOutputURL(jobID, url string) (string, error) {
	path := filepath.Join(a.jobDir(jobID), "output_url.txt")
	if err := os.WriteFile(path, []byte(url), 0o644); err != nil {
		return "", fmt.Errorf("writing output url: %w", err)
	}
	return path, nil
}

// WriteProviderResponse persists a raw provider poll/fetch response under
// provider_responses/<provider>-<timestamp>.json for audit purposes.
func (a *ArtifactStore) WriteProviderResponse(jobID, provider string, timestamp time.Time, payload interface{}) error {
	name := fmt.Sprintf("%s-%s.json", provider, timestamp.UTC().Format("20060102150405"))
	return a.writeJSON(filepath.Join(a.jobDir(jobID), "provider_responses", name), payload)
}

// GenerateThumbnail shells out to ffmpeg to extract the frame at the
// 1-second mark of videoPath as a best-effort side artifact. Mirrors the
// teacher's exec.CommandContext + captured-output + swallowed-error
// shape: a thumbnail failure never fails the job it belongs to, so the
// only signal of failure is an empty returned path.
func (a *ArtifactStore) GenerateThumbnail(ctx context.Context, jobID, videoPath string) string {
	if a.ffmpegPath == "" {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	thumbPath := filepath.Join(a.jobDir(jobID), "thumbnail.jpg")
	cmd := exec.CommandContext(ctx, a.ffmpegPath,
		"-ss", "1", "-y", "-i", videoPath, "-frames:v", "1", "-q:v", "4", thumbPath)
	if _, err := cmd.CombinedOutput(); err != nil {
		return ""
	}
	if _, err := os.Stat(thumbPath); err != nil {
		return ""
	}
	return thumbPath
}

// ArtifactPath returns the on-disk path of a named artifact for jobID
// ("output" or its alias "video", "thumbnail", "scene_spec",
// "final_prompt", or "output_url"), and whether it exists. The output
// carries a variable extension (output format), so it is resolved by glob
// rather than a fixed filename.
func (a *ArtifactStore) ArtifactPath(jobID, name string) (string, bool) {
	var filename string
	switch name {
	case "thumbnail":
		filename = "thumbnail.jpg"
	case "scene_spec":
		filename = "scene_spec.json"
	case "final_prompt":
		filename = "final_prompt.txt"
	case "output_url":
		filename = "output_url.txt"
	case "video", "output":
		matches, err := filepath.Glob(filepath.Join(a.jobDir(jobID), "output.*"))
		if err != nil || len(matches) == 0 {
			return "", false
		}
		return matches[0], true
	default:
		return "", false
	}
	path := filepath.Join(a.jobDir(jobID), filename)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

func (a *ArtifactStore) writeJSON(path string, value interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating artifact dir: %w", err)
	}
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}
