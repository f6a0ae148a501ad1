// Package mock provides in-memory mock implementations of the [audio.Source]
// and [audio.Stream] interfaces for use in unit tests.
//
// All mocks are safe for concurrent use. They record method calls so that
// tests can assert on call counts, and they expose exported fields that the
// test sets to control return values.
//
// Typical usage:
//
//	stream := mock.NewStream(16)
//	src := &mock.Source{StartResult: stream}
//	go func() {
//	    stream.Send(frame1)
//	    stream.Send(frame2)
//	    stream.End(nil)
//	}()
//	got, err := src.Start(ctx)
package mock

import (
	"context"
	"sync"

	"github.com/livecap-io/livecap/pkg/audio"
)

// Source is a mock implementation of [audio.Source].
// Set the exported Result fields before use; inspect the Call* fields after.
type Source struct {
	mu sync.Mutex

	// StartResult is returned by [Source.Start] when StartError is nil.
	StartResult audio.Stream

	// StartError is returned by [Source.Start]. Set to
	// audio.ErrDeviceUnavailable to simulate a missing capture device.
	StartError error

	// CallCountStart records how many times Start was called.
	CallCountStart int
}

// Start implements [audio.Source].
func (s *Source) Start(ctx context.Context) (audio.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountStart++
	if s.StartError != nil {
		return nil, s.StartError
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.StartResult, nil
}

// Stream is a scripted implementation of [audio.Stream]. Tests feed frames
// with [Stream.Send] and terminate the stream with [Stream.End].
type Stream struct {
	frames chan audio.Frame

	mu     sync.Mutex
	err    error
	ended  bool
	closed int
}

// NewStream creates a Stream whose frame channel has the given capacity.
func NewStream(buffer int) *Stream {
	return &Stream{frames: make(chan audio.Frame, buffer)}
}

// Send delivers a frame to the consumer. It blocks when the channel is full,
// which lets tests exercise backpressure. Send after End panics, matching the
// contract that a terminated stream produces no further frames.
func (s *Stream) Send(f audio.Frame) {
	s.frames <- f
}

// End closes the frame channel with the given terminal error (nil for a
// clean stop). Calling End more than once is a no-op.
func (s *Stream) End(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true
	s.err = err
	close(s.frames)
}

// Frames implements [audio.Stream].
func (s *Stream) Frames() <-chan audio.Frame { return s.frames }

// Err implements [audio.Stream].
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close implements [audio.Stream]. It ends the stream cleanly.
func (s *Stream) Close() error {
	s.mu.Lock()
	s.closed++
	s.mu.Unlock()
	s.End(nil)
	return nil
}

// CloseCount reports how many times Close was called.
func (s *Stream) CloseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
