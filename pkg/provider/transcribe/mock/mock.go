// Package mock provides an in-memory mock implementation of
// [transcribe.Provider] for use in unit tests.
package mock

import (
	"context"
	"sync"

	"github.com/livecap-io/livecap/pkg/provider/transcribe"
)

// Provider is a mock implementation of [transcribe.Provider].
// Set the exported fields before use; inspect Calls after.
type Provider struct {
	mu sync.Mutex

	// TranscribeFunc, when non-nil, handles each call. It allows per-call
	// behaviour such as delaying specific utterances.
	TranscribeFunc func(ctx context.Context, req transcribe.Request) (string, error)

	// TranscribeResult is returned when TranscribeFunc is nil and
	// TranscribeError is nil.
	TranscribeResult string

	// TranscribeError is returned when TranscribeFunc is nil.
	TranscribeError error

	// Calls records every request received, in call order.
	Calls []transcribe.Request
}

// Transcribe implements [transcribe.Provider].
func (p *Provider) Transcribe(ctx context.Context, req transcribe.Request) (string, error) {
	p.mu.Lock()
	p.Calls = append(p.Calls, req)
	fn := p.TranscribeFunc
	res, err := p.TranscribeResult, p.TranscribeError
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return "", err
	}
	return res, nil
}

// CallCount reports how many times Transcribe was called.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
