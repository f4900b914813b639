// Package openai provides a clinical note generator backed by the OpenAI
// chat completions API.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/drdevinhopkins/scribbler/internal/notes"
)

// Generator implements notes.Generator using the OpenAI API.
type Generator struct {
	client oai.Client
	model  string
}

var _ notes.Generator = (*Generator)(nil)

// config holds optional configuration for the generator.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Generator.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a new OpenAI note Generator. An empty model falls back to
// [notes.DefaultModel].
func New(apiKey string, model string, opts ...Option) (*Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		model = notes.DefaultModel
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	client := oai.NewClient(reqOpts...)
	return &Generator{client: client, model: model}, nil
}

// Generate implements notes.Generator.
func (g *Generator) Generate(ctx context.Context, dictation string) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: shared.ChatModel(g.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(notes.SystemPrompt),
			oai.UserMessage(dictation),
		},
		Temperature:         param.NewOpt(notes.Temperature),
		MaxCompletionTokens: param.NewOpt(int64(notes.MaxTokens)),
	})
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}
