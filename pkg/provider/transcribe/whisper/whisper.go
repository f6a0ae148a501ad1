// Package whisper provides a transcription provider for Whisper-compatible
// HTTP endpoints.
//
// The wire contract is the one shared by the OpenAI audio transcription API
// and self-hosted whisper servers: a multipart/form-data POST carrying the
// utterance as a WAV file plus model and language hint fields, answered by a
// JSON object with a single "text" field.
//
// Usage:
//
//	p, err := whisper.New("https://api.openai.com/v1/audio/transcriptions",
//	    whisper.WithAPIKey(key),
//	    whisper.WithModel("large-v3"),
//	    whisper.WithLanguage("ko"),
//	)
//	text, err := p.Transcribe(ctx, transcribe.Request{Samples: pcm, SampleRate: 16000})
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/livecap-io/livecap/pkg/audio"
	"github.com/livecap-io/livecap/pkg/provider/transcribe"
)

const (
	defaultModel   = "large-v3"
	defaultTimeout = 30 * time.Second
)

// Compile-time assertion that Provider implements transcribe.Provider.
var _ transcribe.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithAPIKey sets the bearer token sent with each request. When empty no
// Authorization header is sent, which suits self-hosted servers.
func WithAPIKey(key string) Option {
	return func(p *Provider) {
		p.apiKey = key
	}
}

// WithModel sets the model identifier forwarded to the endpoint
// (e.g., "large-v3", "whisper-1"). Defaults to "large-v3".
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the source language code sent as a recognition hint
// (e.g., "en", "ko"). When empty the field is omitted and the server
// auto-detects, if supported.
func WithLanguage(lang string) Option {
	return func(p *Provider) {
		p.language = lang
	}
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// Provider implements transcribe.Provider against a Whisper-compatible HTTP
// endpoint. It is stateless between calls and safe for concurrent use.
type Provider struct {
	endpoint   string
	apiKey     string
	model      string
	language   string
	httpClient *http.Client
}

// New creates a Provider posting to the given endpoint URL. endpoint must be
// non-empty; it is used verbatim (no path is appended).
func New(endpoint string, opts ...Option) (*Provider, error) {
	if endpoint == "" {
		return nil, errors.New("whisper: endpoint must not be empty")
	}
	p := &Provider{
		endpoint:   endpoint,
		model:      defaultModel,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Transcribe implements [transcribe.Provider]. The utterance is encoded as a
// RIFF/WAV container and submitted as one multipart request.
func (p *Provider) Transcribe(ctx context.Context, req transcribe.Request) (string, error) {
	if len(req.Samples) == 0 {
		return "", &transcribe.Error{Reason: "empty utterance"}
	}
	if req.SampleRate <= 0 {
		return "", &transcribe.Error{Reason: fmt.Sprintf("invalid sample rate %d", req.SampleRate)}
	}

	body, contentType, err := p.buildForm(req)
	if err != nil {
		return "", &transcribe.Error{Reason: "build request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, body)
	if err != nil {
		return "", &transcribe.Error{Reason: "create request", Err: err}
	}
	httpReq.Header.Set("Content-Type", contentType)
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", &transcribe.Error{Reason: "http request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &transcribe.Error{Reason: fmt.Sprintf("server returned HTTP %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &transcribe.Error{Reason: "read response", Err: err}
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", &transcribe.Error{Reason: "parse response", Err: err}
	}

	return strings.TrimSpace(result.Text), nil
}

// buildForm encodes the utterance as multipart/form-data with the file,
// model, and language fields.
func (p *Provider) buildForm(req transcribe.Request) (*bytes.Buffer, string, error) {
	wav := audio.EncodeWAV(req.Samples, req.SampleRate)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return nil, "", fmt.Errorf("write wav data: %w", err)
	}

	if err := mw.WriteField("model", p.model); err != nil {
		return nil, "", fmt.Errorf("write model field: %w", err)
	}
	if p.language != "" {
		if err := mw.WriteField("language", p.language); err != nil {
			return nil, "", fmt.Errorf("write language field: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &body, mw.FormDataContentType(), nil
}
