// Package translate defines the Provider interface for text translation
// backends.
//
// A translation provider wraps a chat-style LLM endpoint and translates one
// recognised transcript per call. Like transcription, each call is a single
// independent request/response exchange: providers hold no conversational
// state, and the caller supplies any context (recent exchanges, terminology)
// in the request itself.
//
// Implementations must be safe for concurrent use.
package translate

import (
	"context"
	"fmt"
)

// Exchange is one prior source/translation pair, supplied as conversational
// context so the model keeps tense and terminology consistent across
// consecutive captions.
type Exchange struct {
	Source     string
	Translated string
}

// Request carries one transcript for translation.
type Request struct {
	// Text is the recognised transcript to translate. Must be non-empty.
	Text string

	// TargetLanguage is the human-readable target language name (e.g.,
	// "English", "Japanese").
	TargetLanguage string

	// History holds the most recent exchanges, oldest first. May be empty.
	History []Exchange

	// Terms lists technical terms that must be preserved verbatim in the
	// translation. May be empty.
	Terms []string
}

// Provider is the abstraction over any translation backend.
type Provider interface {
	// Translate returns the translated text. Exactly one attempt is made per
	// utterance; failures are reported as a [*Error] and degrade the caption
	// to a partial result rather than being retried.
	Translate(ctx context.Context, req Request) (string, error)
}

// Error describes a failed translation attempt. The affected caption is
// downgraded to its transcript; the failure is never fatal to the session.
type Error struct {
	// Reason is a short human-readable description of the failure.
	Reason string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("translate: %s: %v", e.Reason, e.Err)
	}
	return "translate: " + e.Reason
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }
