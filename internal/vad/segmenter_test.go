package vad

import (
	"testing"
	"time"

	"github.com/livecap-io/livecap/pkg/audio"
)

const (
	testRate     = 16000
	testFrameLen = 320 // 20 ms at 16 kHz
	frameDur     = 20 * time.Millisecond
)

func testConfig() Config {
	return Config{
		SampleRate:      testRate,
		Sensitivity:     0.01,
		MinSpeech:       300 * time.Millisecond,
		MaxUtterance:    30 * time.Second,
		TrailingSilence: 700 * time.Millisecond,
	}
}

// frameSeq generates n frames starting at timestamp start. Active frames
// carry a constant 3000-amplitude square wave (RMS ≈ 0.09), inactive frames
// are all zeroes.
func frameSeq(start time.Duration, n int, active bool) []audio.Frame {
	frames := make([]audio.Frame, n)
	for i := range frames {
		samples := make([]int16, testFrameLen)
		if active {
			for j := range samples {
				samples[j] = 3000
			}
		}
		frames[i] = audio.Frame{
			Samples:    samples,
			SampleRate: testRate,
			Timestamp:  start + time.Duration(i)*frameDur,
		}
	}
	return frames
}

// feed pushes frames through the segmenter and collects emitted utterances.
func feed(s *Segmenter, frames []audio.Frame) []*Utterance {
	var out []*Utterance
	for _, f := range frames {
		if u := s.Process(f); u != nil {
			out = append(out, u)
		}
	}
	return out
}

func TestSegmenterSpeechThenSilence(t *testing.T) {
	t.Parallel()

	s, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}

	// 400 ms of speech followed by 800 ms of silence (threshold 700 ms)
	// must emit exactly one utterance spanning the speech.
	var frames []audio.Frame
	frames = append(frames, frameSeq(0, 20, true)...)                  // 400 ms active
	frames = append(frames, frameSeq(400*time.Millisecond, 40, false)...) // 800 ms inactive

	got := feed(s, frames)
	if len(got) != 1 {
		t.Fatalf("want 1 utterance, got %d", len(got))
	}
	u := got[0]
	if u.Duration() != 400*time.Millisecond {
		t.Errorf("want duration 400ms, got %v", u.Duration())
	}
	if u.Start != 0 {
		t.Errorf("want start 0, got %v", u.Start)
	}
	if len(u.Samples) != 20*testFrameLen {
		t.Errorf("want %d samples, got %d", 20*testFrameLen, len(u.Samples))
	}
	if s.State() != StateIdle {
		t.Errorf("want idle after finalisation, got %v", s.State())
	}
}

func TestSegmenterNoiseBurstDiscarded(t *testing.T) {
	t.Parallel()

	s, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}

	// 200 ms burst (< 300 ms floor) surrounded by silence: zero output.
	var frames []audio.Frame
	frames = append(frames, frameSeq(0, 10, false)...)
	frames = append(frames, frameSeq(200*time.Millisecond, 10, true)...)
	frames = append(frames, frameSeq(400*time.Millisecond, 50, false)...)

	if got := feed(s, frames); len(got) != 0 {
		t.Fatalf("want no utterances from a noise burst, got %d", len(got))
	}
	if u := s.Flush(); u != nil {
		t.Fatalf("want nil flush after noise burst, got %v duration", u.Duration())
	}
	if got := s.DiscardedBursts(); got != 1 {
		t.Errorf("want 1 discarded burst, got %d", got)
	}
}

func TestSegmenterCountsDiscardedBursts(t *testing.T) {
	t.Parallel()

	s, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}

	// Two sub-floor bursts and one real phrase: two discards.
	var frames []audio.Frame
	ts := time.Duration(0)
	add := func(n int, active bool) {
		frames = append(frames, frameSeq(ts, n, active)...)
		ts += time.Duration(n) * frameDur
	}
	add(5, true)
	add(10, false)
	add(100, true)
	add(50, false)
	add(8, true)
	add(10, false)

	if got := feed(s, frames); len(got) != 1 {
		t.Fatalf("want 1 utterance, got %d", len(got))
	}
	if got := s.DiscardedBursts(); got != 2 {
		t.Errorf("want 2 discarded bursts, got %d", got)
	}
}

func TestSegmenterForceFinalizeAtCeiling(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	s, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	// 35 s of continuous speech with a 30 s ceiling: the first utterance is
	// exactly 30 s, the flush covers the remaining 5 s.
	got := feed(s, frameSeq(0, 1750, true))
	if len(got) != 1 {
		t.Fatalf("want 1 force-finalised utterance, got %d", len(got))
	}
	if got[0].Duration() != cfg.MaxUtterance {
		t.Errorf("want duration exactly %v, got %v", cfg.MaxUtterance, got[0].Duration())
	}
	if s.State() != StateAccumulating {
		t.Errorf("want accumulating after force-finalise, got %v", s.State())
	}

	rest := s.Flush()
	if rest == nil {
		t.Fatal("want flushed remainder, got nil")
	}
	if rest.Duration() != 5*time.Second {
		t.Errorf("want remainder 5s, got %v", rest.Duration())
	}
	if rest.Start != 30*time.Second {
		t.Errorf("want remainder start 30s, got %v", rest.Start)
	}
}

func TestSegmenterResumedActivityCancelsTrailingSilence(t *testing.T) {
	t.Parallel()

	s, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}

	// Speech, a 400 ms pause (below the 700 ms threshold), more speech, then
	// sustained silence: one utterance including the interleaved pause.
	var frames []audio.Frame
	frames = append(frames, frameSeq(0, 25, true)...)                      // 500 ms
	frames = append(frames, frameSeq(500*time.Millisecond, 20, false)...)  // 400 ms pause
	frames = append(frames, frameSeq(900*time.Millisecond, 25, true)...)   // 500 ms
	frames = append(frames, frameSeq(1400*time.Millisecond, 40, false)...) // 800 ms silence

	got := feed(s, frames)
	if len(got) != 1 {
		t.Fatalf("want 1 utterance, got %d", len(got))
	}
	if want := 1400 * time.Millisecond; got[0].Duration() != want {
		t.Errorf("want duration %v (pause retained, trailing silence trimmed), got %v", want, got[0].Duration())
	}
}

func TestSegmenterDurationBounds(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	s, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	// A mixed sequence of bursts and phrases: every emitted utterance must
	// respect [MinSpeech, MaxUtterance].
	var frames []audio.Frame
	ts := time.Duration(0)
	add := func(n int, active bool) {
		frames = append(frames, frameSeq(ts, n, active)...)
		ts += time.Duration(n) * frameDur
	}
	add(5, true)    // burst, discarded
	add(50, false)
	add(100, true)  // 2 s phrase
	add(50, false)
	add(8, true)    // burst, discarded
	add(50, false)
	add(1600, true) // 32 s → one 30 s force-final + a 2 s remainder
	add(50, false)

	got := feed(s, frames)
	if u := s.Flush(); u != nil {
		got = append(got, u)
	}

	for i, u := range got {
		d := u.Duration()
		if d < cfg.MinSpeech || d > cfg.MaxUtterance {
			t.Errorf("utterance %d: duration %v outside [%v, %v]", i, d, cfg.MinSpeech, cfg.MaxUtterance)
		}
	}
	if len(got) != 3 {
		t.Fatalf("want 3 utterances, got %d", len(got))
	}
}

func TestSegmenterFlushIdleIsClean(t *testing.T) {
	t.Parallel()

	s, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	feed(s, frameSeq(0, 30, false))

	if u := s.Flush(); u != nil {
		t.Fatalf("want nil flush while idle, got utterance of %v", u.Duration())
	}
}

func TestSegmenterConfigValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }},
		{"sensitivity too high", func(c *Config) { c.Sensitivity = 1 }},
		{"zero min speech", func(c *Config) { c.MinSpeech = 0 }},
		{"zero trailing silence", func(c *Config) { c.TrailingSilence = 0 }},
		{"ceiling below floor", func(c *Config) { c.MaxUtterance = 100 * time.Millisecond }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := testConfig()
			tc.mutate(&cfg)
			if _, err := New(cfg); err == nil {
				t.Fatal("want config error, got nil")
			}
		})
	}
}

func TestRMS(t *testing.T) {
	t.Parallel()

	if got := RMS(nil); got != 0 {
		t.Errorf("want 0 for empty input, got %g", got)
	}
	if got := RMS(make([]int16, 320)); got != 0 {
		t.Errorf("want 0 for silence, got %g", got)
	}

	full := make([]int16, 320)
	for i := range full {
		full[i] = 32767
	}
	if got := RMS(full); got < 0.99 || got > 1.0 {
		t.Errorf("want ≈1.0 for full-scale signal, got %g", got)
	}
}
