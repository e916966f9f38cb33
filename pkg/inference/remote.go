package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/exotriage/exotriage/pkg/candidate"
)

// RemoteProvider calls an external model server over JSON/HTTP:
//
//	GET  /healthz      -> {"version": "..."}
//	POST /v1/classify  {"rows": [...]} -> {"results": [{"conf_prob", "fp_prob"}]}
//	POST /v1/size      {"rows": [...]} -> {"results": [{"radius", "uncertainty"}]}
type RemoteProvider struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemoteProvider creates a client for the model server at baseURL.
func NewRemoteProvider(baseURL string, timeout time.Duration) *RemoteProvider {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RemoteProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type remoteHandle struct {
	version string
}

func (h remoteHandle) Version() string { return h.version }

func (p *RemoteProvider) Load(ctx context.Context) (Handle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/healthz", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrModelsUnavailable, err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelsUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: model server returned %d: %s", ErrModelsUnavailable, resp.StatusCode, string(body))
	}

	var result struct {
		Version string `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode health response: %v", ErrModelsUnavailable, err)
	}
	if result.Version == "" {
		result.Version = "remote"
	}
	return remoteHandle{version: result.Version}, nil
}

func (p *RemoteProvider) ClassifyBatch(ctx context.Context, h Handle, rows []candidate.Parameters) ([]Classification, error) {
	var result struct {
		Results []Classification `json:"results"`
	}
	if err := p.post(ctx, "/v1/classify", rows, &result); err != nil {
		return nil, err
	}
	if err := CheckLength("classify", len(rows), len(result.Results)); err != nil {
		return nil, err
	}
	return result.Results, nil
}

func (p *RemoteProvider) PredictSizeBatch(ctx context.Context, h Handle, rows []candidate.Parameters) ([]SizeEstimate, error) {
	var result struct {
		Results []SizeEstimate `json:"results"`
	}
	if err := p.post(ctx, "/v1/size", rows, &result); err != nil {
		return nil, err
	}
	if err := CheckLength("size", len(rows), len(result.Results)); err != nil {
		return nil, err
	}
	return result.Results, nil
}

func (p *RemoteProvider) post(ctx context.Context, path string, rows []candidate.Parameters, out any) error {
	body, err := json.Marshal(map[string]any{"rows": rows})
	if err != nil {
		return fmt.Errorf("%w: marshal rows: %v", ErrInference, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: create request: %v", ErrInference, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: post %s: %v", ErrInference, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: model server error %d: %s", ErrInference, resp.StatusCode, string(respBody))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", ErrInference, path, err)
	}
	return nil
}
