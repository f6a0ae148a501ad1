package audio

import (
	"sync"
	"time"
)

// PushStream adapts callback-style PCM delivery into the [Stream] contract.
//
// Capture backends hand audio to the process in whatever chunk sizes the
// driver chooses. A PushStream re-slices those chunks into fixed-size frames,
// stamps each frame with a monotonic capture timestamp derived from the
// running sample count, and delivers them on a buffered channel.
//
// The producer side (Push, Fail, Close) must be driven by a single capture
// goroutine or callback; the consumer side (Frames, Err) may be used from any
// goroutine.
type PushStream struct {
	format    Format
	frameSize int

	frames chan Frame

	mu      sync.Mutex
	pending []int16 // carry-over samples smaller than one frame
	samples int64   // total samples framed so far, drives timestamps
	err     error
	closed  bool
}

// NewPushStream creates a PushStream that emits frames of frameSize samples.
// buffer is the capacity of the frame channel; it absorbs scheduling jitter
// between the capture callback and the pipeline without blocking the driver.
func NewPushStream(format Format, frameSize, buffer int) *PushStream {
	if frameSize <= 0 {
		frameSize = format.SampleRate / 50 // 20 ms
	}
	if buffer <= 0 {
		buffer = 64
	}
	return &PushStream{
		format:    format,
		frameSize: frameSize,
		frames:    make(chan Frame, buffer),
	}
}

// Push appends captured mono samples and emits as many complete frames as the
// accumulated data allows. Samples that do not fill a whole frame are carried
// over to the next call. Push after Close or Fail is a no-op.
//
// If the frame channel is full the oldest behaviour is to drop the new frame
// rather than block the capture callback; real-time delivery must never stall
// on a slow consumer.
func (s *PushStream) Push(samples []int16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.pending = append(s.pending, samples...)
	for len(s.pending) >= s.frameSize {
		frame := Frame{
			Samples:    append([]int16(nil), s.pending[:s.frameSize]...),
			SampleRate: s.format.SampleRate,
			Timestamp:  time.Duration(s.samples) * time.Second / time.Duration(s.format.SampleRate),
		}
		s.pending = s.pending[s.frameSize:]
		s.samples += int64(s.frameSize)

		select {
		case s.frames <- frame:
		default:
			// Consumer stalled; drop rather than block the device callback.
		}
	}
}

// Fail terminates the stream with err (typically [ErrDeviceLost]). The frame
// channel is closed; Err returns the given error afterwards.
func (s *PushStream) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.err = err
	s.closed = true
	close(s.frames)
}

// Frames implements [Stream].
func (s *PushStream) Frames() <-chan Frame { return s.frames }

// Err implements [Stream].
func (s *PushStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close implements [Stream]. Pending carry-over samples smaller than one
// frame are discarded.
func (s *PushStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.frames)
	return nil
}

// Downmix folds interleaved multi-channel int16 PCM to mono by averaging the
// channels of each sample position. It returns the input unchanged when
// channels <= 1.
func Downmix(samples []int16, channels int) []int16 {
	if channels <= 1 {
		return samples
	}
	out := make([]int16, 0, len(samples)/channels)
	for i := 0; i+channels <= len(samples); i += channels {
		var sum int
		for c := 0; c < channels; c++ {
			sum += int(samples[i+c])
		}
		out = append(out, int16(sum/channels))
	}
	return out
}
