// Package openai provides a translation provider backed by any
// OpenAI-compatible chat completion endpoint.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/livecap-io/livecap/pkg/provider/translate"
)

// Compile-time assertion that Provider implements translate.Provider.
var _ translate.Provider = (*Provider)(nil)

// Provider implements translate.Provider using the OpenAI chat completion API.
type Provider struct {
	client oai.Client
	model  string
}

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL, for self-hosted or
// proxy endpoints that speak the same protocol.
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

// New constructs a new chat-completion translation Provider.
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if model == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{}
	if apiKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(apiKey))
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
	return &Provider{client: client, model: model}, nil
}

// Translate implements [translate.Provider].
func (p *Provider) Translate(ctx context.Context, req translate.Request) (string, error) {
	if req.Text == "" {
		return "", &translate.Error{Reason: "empty text"}
	}
	if req.TargetLanguage == "" {
		return "", &translate.Error{Reason: "empty target language"}
	}

	resp, err := p.client.Chat.Completions.New(ctx, p.buildParams(req))
	if err != nil {
		return "", &translate.Error{Reason: "chat completion", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &translate.Error{Reason: "empty choices in response"}
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", &translate.Error{Reason: "empty translation in response"}
	}
	return text, nil
}

// buildParams converts a translate.Request into OpenAI SDK params. Prior
// exchanges are replayed as user/assistant turns so the model keeps
// terminology consistent across consecutive captions.
func (p *Provider) buildParams(req translate.Request) oai.ChatCompletionNewParams {
	messages := []oai.ChatCompletionMessageParamUnion{
		oai.SystemMessage(translate.SystemPrompt(req)),
	}
	for _, ex := range req.History {
		messages = append(messages,
			oai.UserMessage(ex.Source),
			oai.AssistantMessage(ex.Translated),
		)
	}
	messages = append(messages, oai.UserMessage(req.Text))

	return oai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: messages,
	}
}
