package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"horus/internal/config"
	horuserrors "horus/internal/errors"
	"horus/pkg/models"
)

// sharedTransport is the process-wide HTTP client every HTTPAsyncProvider
// submits through. It is built on retryablehttp the same way the teacher's
// internal/client builds its orchestrator client — reused for connection
// pooling and sane default timeouts — but with RetryMax at zero: the
// orchestrator's own attempt loop already owns retry/backoff decisions
// (keyed off the classified error type), so a second retry layer
// underneath it would hide the very failures the classifier needs to see.
var sharedTransport = newHTTPClient()

func newHTTPClient() *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0
	retryClient.Logger = nil
	return retryClient.StandardClient()
}

// HTTPAsyncProvider drives a real external generation API: submit POSTs the
// job, poll/fetch GET against URL templates that may interpolate
// "{job_id}".
type HTTPAsyncProvider struct {
	name           string
	baseURL        string
	endpoints      config.ProviderEndpoints
	healthEndpoint string
	timeouts       config.TimeoutPolicy
	client         *http.Client
}

// NewHTTPAsyncProvider builds an HTTPAsyncProvider from its provider
// config entry. cfg.Endpoints must be non-nil; the registry enforces this
// before constructing one.
func NewHTTPAsyncProvider(name string, cfg config.ProviderConfig, timeouts config.TimeoutPolicy) *HTTPAsyncProvider {
	return &HTTPAsyncProvider{
		name:           name,
		baseURL:        cfg.BaseURL,
		endpoints:      *cfg.Endpoints,
		healthEndpoint: cfg.HealthEndpoint,
		timeouts:       timeouts,
		client:         sharedTransport,
	}
}

func (p *HTTPAsyncProvider) Submit(ctx context.Context, job models.JobRequest, headers map[string]string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeouts.SubmitTimeout())
	defer cancel()

	body, err := json.Marshal(job)
	if err != nil {
		return "", horuserrors.NewProviderError(horuserrors.ErrorUnknown, "failed to marshal job: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+p.endpoints.Submit, bytes.NewReader(body))
	if err != nil {
		return "", horuserrors.NewProviderError(horuserrors.ErrorUnknown, "failed to build submit request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	applyHeaders(req, headers)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", horuserrors.NewHTTPStatusError(resp.StatusCode, "submit returned status %d", resp.StatusCode)
	}

	var payload map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", horuserrors.NewProviderError(horuserrors.ErrorUnknown, "failed to decode submit response: %v", err)
	}
	id := stringField(payload, "job_id")
	if id == "" {
		id = stringField(payload, "id")
	}
	if id == "" {
		return "", horuserrors.NewProviderError(horuserrors.ErrorUnknown, "missing provider job id")
	}
	return id, nil
}

func (p *HTTPAsyncProvider) Poll(ctx context.Context, providerJobID string, headers map[string]string) (map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeouts.PollTimeout())
	defer cancel()

	url := p.baseURL + interpolate(p.endpoints.Poll, providerJobID)
	payload, _, err := p.getJSON(ctx, url, headers, p.timeouts.PollS)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (p *HTTPAsyncProvider) Fetch(ctx context.Context, providerJobID string, headers map[string]string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeouts.FetchTimeout())
	defer cancel()

	url := p.baseURL + interpolate(p.endpoints.Fetch, providerJobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, horuserrors.NewProviderError(horuserrors.ErrorUnknown, "failed to build fetch request: %v", err)
	}
	applyHeaders(req, headers)

	resp, err := p.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("fetch request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return Result{}, horuserrors.NewHTTPStatusError(resp.StatusCode, "fetch returned status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		var payload map[string]interface{}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return Result{}, horuserrors.NewProviderError(horuserrors.ErrorUnknown, "failed to decode fetch response: %v", err)
		}
		outputURL := stringField(payload, "output_url")
		if outputURL == "" {
			outputURL = stringField(payload, "url")
		}
		return Result{ProviderJobID: providerJobID, Status: "succeeded", OutputURL: outputURL, Metadata: payload}, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, horuserrors.NewProviderError(horuserrors.ErrorUnknown, "failed to read fetch response: %v", err)
	}
	return Result{ProviderJobID: providerJobID, Status: "succeeded", OutputBytes: data}, nil
}

func (p *HTTPAsyncProvider) Healthcheck(ctx context.Context, headers map[string]string) bool {
	if p.healthEndpoint == "" {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeouts.PollTimeout())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+p.healthEndpoint, nil)
	if err != nil {
		return false
	}
	applyHeaders(req, headers)
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (p *HTTPAsyncProvider) getJSON(ctx context.Context, url string, headers map[string]string, _ int) (map[string]interface{}, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, horuserrors.NewProviderError(horuserrors.ErrorUnknown, "failed to build poll request: %v", err)
	}
	applyHeaders(req, headers)
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("poll request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, resp, horuserrors.NewHTTPStatusError(resp.StatusCode, "poll returned status %d", resp.StatusCode)
	}
	var payload map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, resp, horuserrors.NewProviderError(horuserrors.ErrorUnknown, "failed to decode poll response: %v", err)
	}
	return payload, resp, nil
}

func applyHeaders(req *http.Request, headers map[string]string) {
	for k, v := range headers {
		req.Header.Set(k, v)
	}
}

func interpolate(template, jobID string) string {
	return strings.ReplaceAll(template, "{job_id}", jobID)
}

func stringField(payload map[string]interface{}, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}
