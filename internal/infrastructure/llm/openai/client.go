package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/kirillkom/wellness-agents/internal/core/domain"
	"github.com/kirillkom/wellness-agents/internal/infrastructure/resilience"
)

const defaultMaxTokens = 2048

type Options struct {
	BaseURL     string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
	Executor    *resilience.Executor
}

// Client completes prompts against the OpenAI chat completions API.
type Client struct {
	api       *openai.Client
	model     string
	maxTokens int
	temp      float32
	executor  *resilience.Executor
}

func New(apiKey, model string, opts Options) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		cfg.BaseURL = strings.TrimRight(base, "/")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{
		api:       openai.NewClientWithConfig(cfg),
		model:     model,
		maxTokens: maxTokens,
		temp:      opts.Temperature,
		executor:  opts.Executor,
	}
}

func (c *Client) Complete(ctx context.Context, prompt domain.Prompt) (domain.Completion, error) {
	req := c.request(prompt)
	resp, err := resilience.Do(ctx, c.executor, "openai.chat", func(ctx context.Context) (openai.ChatCompletionResponse, error) {
		return c.api.CreateChatCompletion(ctx, req)
	}, classifyOpenAIError)
	if err != nil {
		return domain.Completion{}, resilience.WrapTemporary("openai chat completion", fmt.Errorf("openai %s: %w", prompt.Name, err), classifyOpenAIError)
	}
	if len(resp.Choices) == 0 {
		return domain.Completion{}, &domain.MalformedResponseError{Reason: "completion has no choices"}
	}
	return domain.Completion{
		Text:             strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

func (c *Client) request(prompt domain.Prompt) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if prompt.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: prompt.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt.User})

	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	}
	if prompt.StrictJSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}
	// Reasoning models reject max_tokens and custom temperature.
	if isReasoningModel(c.model) {
		req.MaxCompletionTokens = c.maxTokens
	} else {
		req.MaxTokens = c.maxTokens
		req.Temperature = c.temp
	}
	return req
}

func isReasoningModel(model string) bool {
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

func classifyOpenAIError(err error) resilience.ErrorClassification {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		retryable := resilience.IsRetryableHTTPStatus(apiErr.HTTPStatusCode)
		return resilience.ErrorClassification{Retryable: retryable, RecordFailure: retryable}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		retryable := resilience.IsRetryableHTTPStatus(reqErr.HTTPStatusCode)
		return resilience.ErrorClassification{Retryable: retryable, RecordFailure: retryable}
	}
	return resilience.ClassifyHTTP(err)
}
