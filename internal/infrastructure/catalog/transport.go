// Package catalog holds the HTTP clients of the external content catalogs
// searched by the secondary recommendation agents.
package catalog

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kirillkom/wellness-agents/internal/infrastructure/resilience"
)

const DefaultTimeout = 15 * time.Second

// NewHTTPClient returns a client with a bounded timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// DoJSON sends req and decodes a 2xx JSON body into out. Non-2xx replies
// become *resilience.HTTPStatusError.
func DoJSON(client *http.Client, req *http.Request, service, operation string, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s request: %w", service, operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resilience.NewHTTPStatusError(service, operation, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", service, operation, err)
	}
	return nil
}
