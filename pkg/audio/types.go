package audio

import "time"

// Frame represents a single fixed-size frame of captured audio flowing
// through the pipeline. Frames are the atomic unit of audio transport;
// produced by a capture [Stream], scored by the VAD segmenter, and
// accumulated into utterances.
//
// A Frame is immutable once produced; consumers must not modify Samples.
type Frame struct {
	// Samples holds signed 16-bit PCM samples, mono.
	Samples []int16

	// SampleRate in Hz (e.g., 16000 for STT-optimised capture, 48000 for
	// typical desktop microphones).
	SampleRate int

	// Timestamp marks when this frame was captured, relative to stream start.
	// It advances monotonically by exactly one frame duration per frame.
	Timestamp time.Duration
}

// Duration returns the playback duration of the frame.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(f.Samples)) * time.Second / time.Duration(f.SampleRate)
}

// Format describes the sample rate of a mono PCM stream.
type Format struct {
	SampleRate int
}
