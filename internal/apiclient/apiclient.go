// Package apiclient is horusctl's HTTP client for talking to a running
// horusd, grounded on the teacher's internal/client orchestrator client:
// the same doRequest-with-retryablehttp shape, repointed from
// "worker registers and syncs with its orchestrator" to "operator CLI
// talks to the generation daemon."
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"horus/pkg/models"
)

// Client is a thin wrapper around horusd's HTTP surface.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New builds a Client pointed at baseURL (e.g. "http://127.0.0.1:8080").
func New(baseURL string) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = nil

	return &Client{
		baseURL:    baseURL,
		httpClient: retryClient.StandardClient(),
	}
}

// NotFoundError is returned when horusd responds 404 to a job or
// artifact lookup.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s", e.Path)
}

func (c *Client) doRequest(ctx context.Context, method, path string, payload, response interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &NotFoundError{Path: path}
	}
	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, string(msg))
	}

	if response != nil {
		if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
			return fmt.Errorf("failed to decode response from %s: %w", path, err)
		}
	}
	return nil
}

// SubmitJob submits a new job and returns its minted job id.
func (c *Client) SubmitJob(ctx context.Context, job models.JobRequest) (string, error) {
	var out map[string]string
	if err := c.doRequest(ctx, http.MethodPost, "/jobs", job, &out); err != nil {
		return "", err
	}
	return out["job_id"], nil
}

// GetJob fetches the current record for jobID.
func (c *Client) GetJob(ctx context.Context, jobID string) (models.JobRecord, error) {
	var rec models.JobRecord
	err := c.doRequest(ctx, http.MethodGet, "/jobs/"+jobID, nil, &rec)
	return rec, err
}

// FetchArtifact downloads the raw bytes of a named artifact.
func (c *Client) FetchArtifact(ctx context.Context, jobID, name string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/jobs/"+jobID+"/artifact/"+name, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, &NotFoundError{Path: req.URL.Path}
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("artifact fetch returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// ProviderHealth fetches every provider's live health/circuit snapshot.
func (c *Client) ProviderHealth(ctx context.Context) ([]models.ProviderStatus, error) {
	var out []models.ProviderStatus
	err := c.doRequest(ctx, http.MethodGet, "/health/providers", nil, &out)
	return out, err
}

// ReloadConfig triggers a config reload on the running daemon.
func (c *Client) ReloadConfig(ctx context.Context) error {
	return c.doRequest(ctx, http.MethodPost, "/admin/reload-config", nil, nil)
}
