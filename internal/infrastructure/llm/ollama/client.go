package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/wellness-agents/internal/core/domain"
	"github.com/kirillkom/wellness-agents/internal/infrastructure/resilience"
)

// Client completes prompts against a local Ollama server.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, model string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

type generateRequest struct {
	Model   string         `json:"model"`
	System  string         `json:"system,omitempty"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	Error           string `json:"error,omitempty"`
}

func (c *Client) Complete(ctx context.Context, prompt domain.Prompt) (domain.Completion, error) {
	req := generateRequest{
		Model:  c.model,
		System: prompt.System,
		Prompt: prompt.User,
		Stream: false,
	}
	if prompt.StrictJSON {
		req.Format = "json"
	}

	resp, err := resilience.Do(ctx, c.executor, "ollama.generate", func(ctx context.Context) (generateResponse, error) {
		return c.generate(ctx, req)
	}, resilience.ClassifyHTTP)
	if err != nil {
		return domain.Completion{}, resilience.WrapTemporary("ollama generate", fmt.Errorf("ollama %s: %w", prompt.Name, err), resilience.ClassifyHTTP)
	}

	model := resp.Model
	if model == "" {
		model = c.model
	}
	return domain.Completion{
		Text:             strings.TrimSpace(resp.Response),
		Model:            model,
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
	}, nil
}
