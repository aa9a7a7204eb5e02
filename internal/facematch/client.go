package facematch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client calls an external face-comparison service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

type compareRequest struct {
	RegisteredRef string `json:"registered_ref"`
	CapturedRef   string `json:"captured_ref"`
}

type compareResponse struct {
	Result Result `json:"result"`
}

func (c *Client) Compare(ctx context.Context, registeredRef, capturedRef string) (Result, error) {
	body, err := json.Marshal(compareRequest{RegisteredRef: registeredRef, CapturedRef: capturedRef})
	if err != nil {
		return ResultError, fmt.Errorf("encode compare request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/compare", bytes.NewReader(body))
	if err != nil {
		return ResultError, fmt.Errorf("build compare request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ResultError, fmt.Errorf("facematch request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ResultError, fmt.Errorf("facematch returned status %d", resp.StatusCode)
	}

	var out compareResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ResultError, fmt.Errorf("decode compare response: %w", err)
	}
	switch out.Result {
	case ResultMatch, ResultNoMatch:
		return out.Result, nil
	default:
		return ResultError, fmt.Errorf("facematch returned unknown verdict %q", out.Result)
	}
}
