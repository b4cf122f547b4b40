// Package analysisclient calls the underwriting analysis endpoint of a
// running retro engine.
package analysisclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tanre/retro-engine/internal/model"
)

// ErrBackendFailure is returned (wrapped) when the analysis could not be
// obtained at all: the request failed, timed out, or the server answered
// with a non-2xx status. An ERROR calculation result is not a backend
// failure and comes back as a normal response.
var ErrBackendFailure = errors.New("analysisclient: backend failure")

const analysisPath = "/api/v1/underwriting/analysis"

// Client is an HTTP client for the analysis endpoint.
type Client struct {
	baseURL string
	client  *http.Client
}

// New creates a client for the server at baseURL. A zero timeout uses 10s.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Analyze runs a stateless analysis on the server.
func (c *Client) Analyze(ctx context.Context, req model.AnalysisRequest) (model.AnalysisResponse, error) {
	var out model.AnalysisResponse

	body, err := json.Marshal(req)
	if err != nil {
		return out, fmt.Errorf("analysisclient: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+analysisPath, bytes.NewReader(body))
	if err != nil {
		return out, fmt.Errorf("analysisclient: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrBackendFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return out, fmt.Errorf("%w: status %d: %s", ErrBackendFailure, resp.StatusCode, errorMessage(resp.Body))
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("%w: decode response: %v", ErrBackendFailure, err)
	}
	return out, nil
}

// errorMessage extracts {"error": ...} from a failed response, falling back
// to the raw body.
func errorMessage(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, 4096))
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(raw))
}
