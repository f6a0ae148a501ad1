// Package transcribe defines the Provider interface for batch speech-to-text
// backends.
//
// A transcription provider wraps a remote recognition endpoint (an OpenAI
// Whisper-compatible API, a self-hosted whisper server, …) behind a single
// request/response call: one utterance in, one transcript out. Providers are
// stateless between calls; each call is independent and may complete out of
// order relative to other calls. Ordering is the sequencer's job, not the
// provider's.
//
// Implementations must be safe for concurrent use; the dispatcher issues
// several in-flight requests at once.
package transcribe

import (
	"context"
	"fmt"
)

// Request carries one finalised utterance's audio for recognition.
type Request struct {
	// Samples is the utterance's mono 16-bit PCM.
	Samples []int16

	// SampleRate in Hz.
	SampleRate int
}

// Provider is the abstraction over any batch transcription backend. The
// recognition model and source language are session configuration, fixed at
// provider construction.
type Provider interface {
	// Transcribe submits one utterance and returns the recognised text, which
	// may be empty when the service judged the audio to be silence. Exactly
	// one attempt is made; callers must not retry, since a stale retry could
	// reorder relative to newer utterances arriving at the service.
	//
	// Failures are reported as a [*Error].
	Transcribe(ctx context.Context, req Request) (string, error)
}

// Error describes a failed transcription attempt. It degrades the affected
// utterance's caption only; it is never fatal to the capture session.
type Error struct {
	// Reason is a short human-readable description of the failure.
	Reason string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transcribe: %s: %v", e.Reason, e.Err)
	}
	return "transcribe: " + e.Reason
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }
