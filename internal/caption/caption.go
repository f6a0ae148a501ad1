// Package caption defines the ordered caption event values released by the
// pipeline, and the Sink contract consumed by display layers.
package caption

import "time"

// Status describes the outcome of one utterance's request path.
type Status string

const (
	// StatusOK means transcription (and translation, when enabled) succeeded.
	StatusOK Status = "ok"

	// StatusPartialFailure means transcription succeeded but translation
	// failed; SourceText is present, TranslatedText is empty.
	StatusPartialFailure Status = "partial_failure"

	// StatusFailed means transcription failed or the result had to be
	// synthesised (cancelled request, sequencer gap timeout). Both text
	// fields are empty.
	StatusFailed Status = "failed"
)

// Result is the caption event for one utterance. Results are released to
// sinks strictly in Seq order with no duplicates and no gaps.
type Result struct {
	// Seq is the utterance sequence number, starting at 0 per session.
	Seq uint64 `json:"seq"`

	// SourceText is the recognised transcript. May be empty when the
	// transcription service judged the utterance to be silence.
	SourceText string `json:"source_text"`

	// TranslatedText is the translation of SourceText. Empty when translation
	// is disabled or failed.
	TranslatedText string `json:"translated_text,omitempty"`

	// Status reports how much of the request path succeeded.
	Status Status `json:"status"`

	// Start and End are the utterance's capture timestamps, relative to
	// session start.
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
}

// Sink receives ordered caption events. Publish is called from the
// sequencer's single release goroutine, so implementations see events in
// strictly increasing Seq order and need no ordering logic of their own.
// Publish must not block for long: a slow display layer should buffer or
// drop internally rather than stall caption release.
type Sink interface {
	Publish(res Result)
}

// SinkFunc adapts a function to the [Sink] interface.
type SinkFunc func(res Result)

// Publish implements [Sink].
func (f SinkFunc) Publish(res Result) { f(res) }
