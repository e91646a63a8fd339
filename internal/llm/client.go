package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Message is a single chat turn sent to the generative model.
type Message struct {
	Role    string
	Content string
}

// Client calls an OpenAI-compatible chat completion endpoint. Any provider
// speaking the protocol works; base URL and model name come from config.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a Client for the given endpoint. An empty baseURL targets the
// OpenAI default.
func New(apiKey, baseURL, model string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{
		api:   openai.NewClientWithConfig(cfg),
		model: model,
	}
}

// Generate runs one chat completion and returns the raw assistant text.
// Output is untrusted free text; callers parse and validate it themselves.
func (c *Client) Generate(ctx context.Context, messages []Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0.1,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Ping checks that the endpoint is reachable. Used for a startup log line,
// not as a gate.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("listing models: %w", err)
	}
	return nil
}
