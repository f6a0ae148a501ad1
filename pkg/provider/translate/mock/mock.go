// Package mock provides an in-memory mock implementation of
// [translate.Provider] for use in unit tests.
package mock

import (
	"context"
	"sync"

	"github.com/livecap-io/livecap/pkg/provider/translate"
)

// Provider is a mock implementation of [translate.Provider].
// Set the exported fields before use; inspect Calls after.
type Provider struct {
	mu sync.Mutex

	// TranslateFunc, when non-nil, handles each call.
	TranslateFunc func(ctx context.Context, req translate.Request) (string, error)

	// TranslateResult is returned when TranslateFunc is nil and
	// TranslateError is nil.
	TranslateResult string

	// TranslateError is returned when TranslateFunc is nil.
	TranslateError error

	// Calls records every request received, in call order.
	Calls []translate.Request
}

// Translate implements [translate.Provider].
func (p *Provider) Translate(ctx context.Context, req translate.Request) (string, error) {
	p.mu.Lock()
	p.Calls = append(p.Calls, req)
	fn := p.TranslateFunc
	res, err := p.TranslateResult, p.TranslateError
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return "", err
	}
	return res, nil
}

// CallCount reports how many times Translate was called.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
