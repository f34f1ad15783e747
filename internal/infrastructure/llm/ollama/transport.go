package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kirillkom/wellness-agents/internal/infrastructure/resilience"
)

const generatePath = "/api/generate"

// generate performs one non-streaming /api/generate round trip.
func (c *Client) generate(ctx context.Context, in generateRequest) (generateResponse, error) {
	var out generateResponse

	payload, err := json.Marshal(in)
	if err != nil {
		return out, fmt.Errorf("encode generate request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generatePath, bytes.NewReader(payload))
	if err != nil {
		return out, fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return out, fmt.Errorf("ollama generate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return out, resilience.NewHTTPStatusError("ollama", "generate", resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode generate response: %w", err)
	}
	// Ollama reports some failures (unknown model, bad format) in a 200 body.
	if out.Error != "" {
		return out, fmt.Errorf("ollama generate: %s", out.Error)
	}
	return out, nil
}
