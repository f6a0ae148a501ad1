// Package sink provides the caption outputs: console rendering, per-session
// transcript files, and fan-out across multiple destinations.
//
// Every sink implements [caption.Sink]. The sequencer invokes Publish from a
// single goroutine in strict sequence order, so sinks only need internal
// locking when they share state with other goroutines (the websocket feed
// does; the console and transcript sinks lock defensively anyway since they
// are cheap).
package sink

import (
	"strings"

	"github.com/livecap-io/livecap/internal/caption"
	"github.com/livecap-io/livecap/internal/config"
)

// Multi fans a caption out to every sink in order. A nil entry is skipped.
func Multi(sinks ...caption.Sink) caption.Sink {
	return caption.SinkFunc(func(res caption.Result) {
		for _, s := range sinks {
			if s != nil {
				s.Publish(res)
			}
		}
	})
}

// RenderText builds the display string for a caption under the given mode.
// Failed captions with no text render as a placeholder so viewers see that a
// segment was lost rather than nothing at all.
func RenderText(res caption.Result, mode config.DisplayMode) string {
	if res.Status == caption.StatusFailed && res.SourceText == "" {
		return "[caption unavailable]"
	}

	switch mode {
	case config.DisplayTranslationOnly:
		if res.TranslatedText != "" {
			return res.TranslatedText
		}
		// Translation missing or failed: fall back to the transcript.
		return res.SourceText
	default:
		if res.TranslatedText == "" {
			return res.SourceText
		}
		var b strings.Builder
		b.WriteString(res.SourceText)
		b.WriteString("\n")
		b.WriteString(res.TranslatedText)
		return b.String()
	}
}
