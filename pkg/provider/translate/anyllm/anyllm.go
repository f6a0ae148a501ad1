// Package anyllm provides a translation provider backed by
// github.com/mozilla-ai/any-llm-go, a unified multi-provider interface that
// supports OpenAI, Anthropic, Gemini, Ollama, DeepSeek, Mistral, Groq, and
// more. It lets a deployment point the translation stage at whichever chat
// model is available without changing the pipeline.
//
// Usage:
//
//	p, err := anyllm.New("anthropic", "claude-sonnet-4-5", anyllmlib.WithAPIKey("sk-ant-..."))
//	p, err := anyllm.New("ollama", "qwen3")
package anyllm

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/livecap-io/livecap/pkg/provider/translate"
)

// Compile-time assertion that Provider implements translate.Provider.
var _ translate.Provider = (*Provider)(nil)

// Provider implements translate.Provider by wrapping any-llm-go.
type Provider struct {
	backend anyllmlib.Provider
	model   string
}

// New creates a new Provider backed by the given LLM provider name.
//
// providerName is one of: "openai", "anthropic", "gemini", "ollama",
// "deepseek", "mistral", "groq", "llamacpp", "llamafile". model is the
// specific chat model to use. opts are any-llm-go configuration options
// (e.g., anyllmlib.WithAPIKey, anyllmlib.WithBaseURL); without an API key
// option the backend falls back to its environment variable.
func New(providerName string, model string, opts ...anyllmlib.Option) (*Provider, error) {
	if providerName == "" {
		return nil, fmt.Errorf("anyllm: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("anyllm: model must not be empty")
	}

	backend, err := createBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", providerName, err)
	}

	return &Provider{backend: backend, model: model}, nil
}

// createBackend creates the underlying any-llm-go provider.
func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	case "llamafile":
		return llamafile.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama, deepseek, mistral, groq, llamacpp, llamafile", providerName)
	}
}

// Translate implements [translate.Provider].
func (p *Provider) Translate(ctx context.Context, req translate.Request) (string, error) {
	if req.Text == "" {
		return "", &translate.Error{Reason: "empty text"}
	}
	if req.TargetLanguage == "" {
		return "", &translate.Error{Reason: "empty target language"}
	}

	resp, err := p.backend.Completion(ctx, p.buildParams(req))
	if err != nil {
		return "", &translate.Error{Reason: "completion", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &translate.Error{Reason: "empty choices in response"}
	}

	text := strings.TrimSpace(resp.Choices[0].Message.ContentString())
	if text == "" {
		return "", &translate.Error{Reason: "empty translation in response"}
	}
	return text, nil
}

// buildParams converts a translate.Request into anyllm CompletionParams.
func (p *Provider) buildParams(req translate.Request) anyllmlib.CompletionParams {
	messages := []anyllmlib.Message{{
		Role:    anyllmlib.RoleSystem,
		Content: translate.SystemPrompt(req),
	}}
	for _, ex := range req.History {
		messages = append(messages,
			anyllmlib.Message{Role: anyllmlib.RoleUser, Content: ex.Source},
			anyllmlib.Message{Role: anyllmlib.RoleAssistant, Content: ex.Translated},
		)
	}
	messages = append(messages, anyllmlib.Message{Role: anyllmlib.RoleUser, Content: req.Text})

	return anyllmlib.CompletionParams{
		Model:    p.model,
		Messages: messages,
	}
}
