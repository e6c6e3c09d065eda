package text_processing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a client for the NLP sidecar that performs language-aware
// lemmatization.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NormalizeRequest represents a single normalization request.
type NormalizeRequest struct {
	Text string `json:"text"`
}

// NormalizeResponse represents the normalization result.
type NormalizeResponse struct {
	Normalized string  `json:"normalized"`
	Language   string  `json:"language,omitempty"`
	TimeMs     float64 `json:"processing_time_ms,omitempty"`
}

// NewClient creates a new NLP service client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Normalize lemmatizes a single text.
func (c *Client) Normalize(ctx context.Context, text string) (string, error) {
	reqBody := NormalizeRequest{
		Text: text,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v1/normalize", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("NLP service returned status %d: %s", resp.StatusCode, string(body))
	}

	var result NormalizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return result.Normalized, nil
}

// Ping checks if the NLP service is healthy.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/v1/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("NLP service returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
