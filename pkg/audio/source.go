// Package audio defines the capture-side types and contracts for the livecap
// pipeline.
//
// The two primary abstractions are:
//
//   - [Source]: opens a capture stream on an input device.
//   - [Stream]: an active capture session delivering fixed-size PCM frames.
//
// Implementations of [Source] wrap platform capture backends (CoreAudio,
// WASAPI, PulseAudio bindings, a network feed, …). The backend's PCM delivery
// is assumed correct; this package only standardises framing and lifecycle.
// [PushStream] adapts the callback-style delivery used by most capture APIs
// into the fixed-frame channel contract.
//
// This package lives under pkg/ because external capture adapters are
// expected to implement [Source] and [Stream].
package audio

import (
	"context"
	"errors"
)

// ErrDeviceUnavailable is returned by [Source.Start] when no capture device
// exists or the configured device cannot be opened.
var ErrDeviceUnavailable = errors.New("audio: capture device unavailable")

// ErrDeviceLost is reported by [Stream.Err] when the capture device
// disconnects mid-session. The stream's frame channel is closed; the caller
// is expected to stop the pipeline and surface the condition.
var ErrDeviceLost = errors.New("audio: capture device lost")

// Source is the entry point for an audio capture backend.
//
// A Source is restartable: after a stream is closed, Start may be called
// again to begin a new capture session. Implementations must be safe for
// concurrent use.
type Source interface {
	// Start opens a new capture stream. The supplied ctx governs the lifetime
	// of the stream; when it is cancelled the stream terminates and its frame
	// channel is closed.
	//
	// Returns [ErrDeviceUnavailable] (possibly wrapped) if no capture device
	// can be opened.
	Start(ctx context.Context) (Stream, error)
}

// Stream represents an active capture session. It delivers an effectively
// infinite sequence of fixed-size [Frame] values at the cadence determined by
// the device sample rate and the configured frame size.
//
// All methods are safe for concurrent use.
type Stream interface {
	// Frames returns the read-only channel of captured frames. The channel is
	// closed when the stream ends: on Close, on context cancellation, or on a
	// device failure.
	Frames() <-chan Frame

	// Err returns the terminal error of the stream, or nil for a clean stop.
	// It must only be consulted after the Frames channel has been closed.
	// A device disconnect is reported as [ErrDeviceLost] (possibly wrapped).
	Err() error

	// Close stops the stream and releases capture resources. Calling Close
	// more than once is safe and returns nil.
	Close() error
}
