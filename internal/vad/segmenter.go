// Package vad segments a continuous audio frame stream into discrete spoken
// utterances using an amplitude-based activity detector.
//
// Each incoming frame is scored for short-term RMS energy and classified as
// active or inactive against a configurable sensitivity threshold. An explicit
// three-state machine (Idle → Accumulating → TrailingSilence) turns runs of
// active frames into [Utterance] values:
//
//   - Idle: active frames are buffered speculatively; once the active run
//     exceeds the minimum speech duration the segmenter starts accumulating.
//     An inactive frame discards the speculative buffer, so noise bursts
//     shorter than the floor never produce output.
//   - Accumulating: all frames are appended to the in-progress buffer. An
//     inactive frame begins a trailing-silence run.
//   - TrailingSilence: frames continue to be buffered to avoid clipping
//     trailing phonemes. When the inactive run exceeds the silence threshold
//     the utterance is finalised with the trailing silence trimmed; if
//     activity resumes first, accumulation continues.
//
// An utterance that reaches the maximum duration ceiling is force-finalised
// immediately and a new one begins accumulating from the next frame, bounding
// both memory and request latency during continuous speech.
//
// A Segmenter is owned by a single capture goroutine and is not safe for
// concurrent use. Transition logic is pure in the frame classification and
// elapsed durations, so the machine is unit-testable without audio hardware.
package vad

import (
	"fmt"
	"time"

	"github.com/livecap-io/livecap/pkg/audio"
)

// State identifies the segmenter's position in the detection state machine.
type State int

const (
	// StateIdle means no speech has been observed recently.
	StateIdle State = iota

	// StateAccumulating means an utterance buffer is in progress.
	StateAccumulating

	// StateTrailingSilence means an inactive run has begun while accumulating.
	StateTrailingSilence
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAccumulating:
		return "accumulating"
	case StateTrailingSilence:
		return "trailing-silence"
	default:
		return "unknown"
	}
}

// Config holds the tunables for a capture session. Changing any value
// requires a session restart; the segmenter never mutates its configuration.
type Config struct {
	// SampleRate is the audio sample rate in Hz. Must match the frames fed to
	// Process.
	SampleRate int

	// Sensitivity is the RMS energy threshold above which a frame is
	// classified as active. The scale is [0, 1] with 1 being a full-scale
	// 16-bit signal. Typical quiet-room values are around 0.003.
	Sensitivity float64

	// MinSpeech is the minimum active-run duration before accumulation
	// starts, and the duration floor below which a finalised utterance is
	// discarded as a noise burst.
	MinSpeech time.Duration

	// MaxUtterance is the duration ceiling. A buffer that reaches it is
	// force-finalised immediately.
	MaxUtterance time.Duration

	// TrailingSilence is the inactive-run duration that finalises an
	// utterance.
	TrailingSilence time.Duration
}

// Validate reports whether the configuration is coherent.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("vad: sample rate must be positive, got %d", c.SampleRate)
	}
	if c.Sensitivity <= 0 || c.Sensitivity >= 1 {
		return fmt.Errorf("vad: sensitivity must be in (0, 1), got %g", c.Sensitivity)
	}
	if c.MinSpeech <= 0 {
		return fmt.Errorf("vad: min speech duration must be positive, got %v", c.MinSpeech)
	}
	if c.TrailingSilence <= 0 {
		return fmt.Errorf("vad: trailing silence duration must be positive, got %v", c.TrailingSilence)
	}
	if c.MaxUtterance <= c.MinSpeech {
		return fmt.Errorf("vad: max utterance (%v) must exceed min speech (%v)", c.MaxUtterance, c.MinSpeech)
	}
	return nil
}

// Utterance is an ordered run of audio frames judged to be one continuous
// spoken segment. It is immutable after creation; ownership transfers to the
// dispatcher on emission.
type Utterance struct {
	// Samples is the concatenated mono PCM of the utterance.
	Samples []int16

	// SampleRate in Hz.
	SampleRate int

	// Start is the capture timestamp of the first frame.
	Start time.Duration

	// End is Start plus the utterance duration.
	End time.Duration
}

// Duration returns End − Start.
func (u Utterance) Duration() time.Duration { return u.End - u.Start }

// Segmenter converts a frame stream into utterance boundaries. Exactly one
// live instance exists per capture session; it is mutated only by the capture
// goroutine and reset by discarding it at session stop.
type Segmenter struct {
	cfg Config

	state    State
	buf      []audio.Frame
	bufDur   time.Duration // total buffered duration, trailing silence included
	start    time.Duration // capture timestamp of buf[0]
	trailing int           // consecutive inactive frames at the buffer tail
	silence  time.Duration // duration of the current trailing inactive run
	active   time.Duration // active-run duration while idle (speculative)

	discarded int // bursts dropped for falling below the speech floor
}

// New creates a segmenter for one capture session.
func New(cfg Config) (*Segmenter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Segmenter{cfg: cfg}, nil
}

// State returns the current machine state. Intended for tests and metrics.
func (s *Segmenter) State() State { return s.state }

// DiscardedBursts returns how many buffered audio runs were dropped for
// falling below the minimum speech duration.
func (s *Segmenter) DiscardedBursts() int { return s.discarded }

// Process classifies one frame and advances the state machine. It returns a
// finalised utterance when the frame completes one, or nil. Process never
// blocks and performs no I/O; it must be called from the single capture
// goroutine.
func (s *Segmenter) Process(frame audio.Frame) *Utterance {
	isActive := RMS(frame.Samples) > s.cfg.Sensitivity

	switch s.state {
	case StateIdle:
		if !isActive {
			if len(s.buf) > 0 {
				s.discarded++
			}
			s.resetBuffer()
			return nil
		}
		s.append(frame)
		s.active += frame.Duration()
		if s.active >= s.cfg.MinSpeech {
			s.state = StateAccumulating
		}
		return nil

	case StateAccumulating:
		s.append(frame)
		if isActive {
			s.trailing = 0
			s.silence = 0
		} else {
			s.state = StateTrailingSilence
			s.trailing = 1
			s.silence = frame.Duration()
		}
		return s.maybeForceFinalize()

	case StateTrailingSilence:
		s.append(frame)
		if isActive {
			s.state = StateAccumulating
			s.trailing = 0
			s.silence = 0
			return s.maybeForceFinalize()
		}
		s.trailing++
		s.silence += frame.Duration()
		if s.silence >= s.cfg.TrailingSilence {
			return s.finalize(true)
		}
		return s.maybeForceFinalize()
	}
	return nil
}

// Flush finalises any in-progress utterance at session stop. It returns the
// utterance if it meets the minimum duration floor, or nil. The segmenter is
// left in the idle state either way.
func (s *Segmenter) Flush() *Utterance {
	if s.state == StateIdle {
		if len(s.buf) > 0 {
			s.discarded++
		}
		s.resetBuffer()
		return nil
	}
	return s.finalize(true)
}

// append adds a frame to the in-progress buffer, recording the start
// timestamp when the buffer was empty.
func (s *Segmenter) append(frame audio.Frame) {
	if len(s.buf) == 0 {
		s.start = frame.Timestamp
	}
	s.buf = append(s.buf, frame)
	s.bufDur += frame.Duration()
}

// maybeForceFinalize emits the buffer when it has grown to the ceiling.
// The trailing silence is kept so the emitted duration equals the ceiling
// exactly (assuming frame durations divide it). A new utterance accumulates
// from the next frame.
func (s *Segmenter) maybeForceFinalize() *Utterance {
	if s.bufDur < s.cfg.MaxUtterance {
		return nil
	}
	u := s.emit(s.buf)
	s.resetBuffer()
	s.state = StateAccumulating
	return u
}

// finalize ends the current utterance. When trim is true the trailing
// inactive frames are dropped so the emitted utterance covers speech only.
// Utterances below the minimum duration floor are discarded.
func (s *Segmenter) finalize(trim bool) *Utterance {
	kept := s.buf
	if trim && s.trailing > 0 && s.trailing <= len(kept) {
		kept = kept[:len(kept)-s.trailing]
	}

	var u *Utterance
	if d := framesDuration(kept); d >= s.cfg.MinSpeech {
		u = s.emit(kept)
	} else if len(s.buf) > 0 {
		s.discarded++
	}
	s.resetBuffer()
	s.state = StateIdle
	return u
}

// emit copies the frames into a standalone utterance.
func (s *Segmenter) emit(frames []audio.Frame) *Utterance {
	var n int
	for _, f := range frames {
		n += len(f.Samples)
	}
	samples := make([]int16, 0, n)
	for _, f := range frames {
		samples = append(samples, f.Samples...)
	}
	return &Utterance{
		Samples:    samples,
		SampleRate: s.cfg.SampleRate,
		Start:      frames[0].Timestamp,
		End:        frames[0].Timestamp + framesDuration(frames),
	}
}

func (s *Segmenter) resetBuffer() {
	s.buf = nil
	s.bufDur = 0
	s.trailing = 0
	s.silence = 0
	s.active = 0
}

func framesDuration(frames []audio.Frame) time.Duration {
	var d time.Duration
	for _, f := range frames {
		d += f.Duration()
	}
	return d
}
