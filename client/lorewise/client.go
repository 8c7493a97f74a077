// Package lorewise is the HTTP client for the Lorewise suggestion API.
package lorewise

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"

	"lorediff/logger"
)

// SuggestURL is the default endpoint for edit suggestion requests.
const SuggestURL = "https://api.lorewise.app/v1/suggest_edits"

// SuggestRequest is the request format for the Lorewise suggest API.
// Requests can carry a whole chapter of surrounding prose, so the body
// is brotli-compressed on the wire.
type SuggestRequest struct {
	SelectedText       string      `json:"selected_text"`
	ContextBefore      string      `json:"context_before"`
	ContextAfter       string      `json:"context_after"`
	Mode               string      `json:"mode"`
	References         []Reference `json:"references"`
	PrivacyModeEnabled bool        `json:"privacy_mode_enabled"`
}

// Reference is a lore snippet attached to the request.
type Reference struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// WireEdit is one suggested edit as returned by the API. Offsets are
// byte offsets into the selected text, half-open.
type WireEdit struct {
	Kind       string `json:"kind"`
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
	OldText    string `json:"old_text"`
	NewText    string `json:"new_text"`
	Rationale  string `json:"rationale"`
}

// SuggestResponse is the response format from the Lorewise suggest API.
// The backend returns either discrete edits or, for continue-style
// modes, a full revised text to diff locally; RevisedText wins when
// both are present.
type SuggestResponse struct {
	SuggestionID string     `json:"suggestion_id"`
	Edits        []WireEdit `json:"edits"`
	RevisedText  string     `json:"revised_text"`
}

// Client is the HTTP client for the Lorewise API.
type Client struct {
	HTTPClient *http.Client
	URL        string
	AuthToken  string
}

// NewClient creates a new Lorewise API client.
// apiKey is the resolved API key for authenticated requests.
// timeoutMs is the HTTP client timeout in milliseconds (0 = no timeout).
func NewClient(url, apiKey string, timeoutMs int) *Client {
	timeout := time.Duration(0)
	if timeoutMs > 0 {
		timeout = time.Duration(timeoutMs) * time.Millisecond
	}
	if url == "" {
		url = SuggestURL
	}

	return &Client{
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		URL:       url,
		AuthToken: apiKey,
	}
}

// DoSuggest sends a suggestion request to the Lorewise API.
func (c *Client) DoSuggest(ctx context.Context, req *SuggestRequest) (*SuggestResponse, error) {
	defer logger.Trace("lorewise.DoSuggest")()

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	// Compress with brotli (quality 1 for speed)
	var compressedBuf bytes.Buffer
	brotliWriter := brotli.NewWriterLevel(&compressedBuf, 1)
	if _, err := brotliWriter.Write(jsonData); err != nil {
		return nil, fmt.Errorf("failed to compress request: %w", err)
	}
	if err := brotliWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to close brotli writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.URL, &compressedBuf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Content-Encoding", "br")
	if c.AuthToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var apiResp SuggestResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &apiResp, nil
}
