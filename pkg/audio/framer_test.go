package audio

import (
	"errors"
	"testing"
	"time"
)

func collect(s *PushStream) []Frame {
	var out []Frame
	for f := range s.Frames() {
		out = append(out, f)
	}
	return out
}

func TestPushStreamFraming(t *testing.T) {
	t.Parallel()

	t.Run("re-slices arbitrary chunks into fixed frames", func(t *testing.T) {
		t.Parallel()
		s := NewPushStream(Format{SampleRate: 16000}, 320, 64)

		// 320-sample frames fed as 100-sample chunks: 7 chunks = 700 samples
		// → 2 complete frames, 60 samples carried over.
		chunk := make([]int16, 100)
		for i := 0; i < 7; i++ {
			s.Push(chunk)
		}
		s.Close()

		frames := collect(s)
		if len(frames) != 2 {
			t.Fatalf("want 2 frames, got %d", len(frames))
		}
		for i, f := range frames {
			if len(f.Samples) != 320 {
				t.Errorf("frame %d: want 320 samples, got %d", i, len(f.Samples))
			}
		}
	})

	t.Run("timestamps advance by one frame duration", func(t *testing.T) {
		t.Parallel()
		s := NewPushStream(Format{SampleRate: 16000}, 320, 64)
		s.Push(make([]int16, 960)) // exactly 3 frames
		s.Close()

		frames := collect(s)
		if len(frames) != 3 {
			t.Fatalf("want 3 frames, got %d", len(frames))
		}
		frameDur := 20 * time.Millisecond
		for i, f := range frames {
			want := time.Duration(i) * frameDur
			if f.Timestamp != want {
				t.Errorf("frame %d: want timestamp %v, got %v", i, want, f.Timestamp)
			}
			if got := f.Duration(); got != frameDur {
				t.Errorf("frame %d: want duration %v, got %v", i, frameDur, got)
			}
		}
	})

	t.Run("push after close is a no-op", func(t *testing.T) {
		t.Parallel()
		s := NewPushStream(Format{SampleRate: 16000}, 320, 64)
		s.Close()
		s.Push(make([]int16, 640)) // must not panic or emit
		if got := len(collect(s)); got != 0 {
			t.Fatalf("want 0 frames after close, got %d", got)
		}
	})

	t.Run("fail reports terminal error", func(t *testing.T) {
		t.Parallel()
		s := NewPushStream(Format{SampleRate: 16000}, 320, 64)
		s.Fail(ErrDeviceLost)

		for range s.Frames() {
		}
		if !errors.Is(s.Err(), ErrDeviceLost) {
			t.Fatalf("want ErrDeviceLost, got %v", s.Err())
		}
	})

	t.Run("full channel drops instead of blocking", func(t *testing.T) {
		t.Parallel()
		s := NewPushStream(Format{SampleRate: 16000}, 320, 2)
		s.Push(make([]int16, 320*5)) // 5 frames into a 2-slot channel
		s.Close()

		if got := len(collect(s)); got != 2 {
			t.Fatalf("want 2 buffered frames, got %d", got)
		}
	})
}

func TestDownmix(t *testing.T) {
	t.Parallel()

	t.Run("stereo averages channel pairs", func(t *testing.T) {
		t.Parallel()
		got := Downmix([]int16{100, 200, -100, 100}, 2)
		want := []int16{150, 0}
		if len(got) != len(want) {
			t.Fatalf("want %d samples, got %d", len(want), len(got))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("sample %d: want %d, got %d", i, want[i], got[i])
			}
		}
	})

	t.Run("mono passes through unchanged", func(t *testing.T) {
		t.Parallel()
		in := []int16{1, 2, 3}
		got := Downmix(in, 1)
		if &got[0] != &in[0] {
			t.Fatal("mono input should be returned without copying")
		}
	})
}
