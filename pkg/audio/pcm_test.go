package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"time"
)

// pcmBytes encodes samples as little-endian s16le.
func pcmBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

func TestPCMSourceFramesAndEOF(t *testing.T) {
	t.Parallel()

	// 2.5 frames of 4 samples each: the trailing half frame is dropped.
	samples := []int16{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	frameDur := 250 * time.Millisecond // 4 samples at 16 Hz
	src := NewPCMSource(bytes.NewReader(pcmBytes(samples)), 16, frameDur, WithoutPacing())

	stream, err := src.Start(t.Context())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	var frames []Frame
	for f := range stream.Frames() {
		frames = append(frames, f)
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("Err after EOF: %v", err)
	}

	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if frames[0].Samples[0] != 1 || frames[1].Samples[0] != 5 {
		t.Errorf("frame contents wrong: %v", frames)
	}
	if frames[1].Timestamp != frameDur {
		t.Errorf("second frame timestamp = %v, want %v", frames[1].Timestamp, frameDur)
	}
}

// failingReader returns some data, then a non-EOF error.
type failingReader struct {
	data []byte
	done bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, errors.New("device yanked")
	}
	r.done = true
	n := copy(p, r.data)
	return n, nil
}

func TestPCMSourceReadErrorIsDeviceLost(t *testing.T) {
	t.Parallel()

	src := NewPCMSource(&failingReader{data: pcmBytes(make([]int16, 8))}, 16, 250*time.Millisecond, WithoutPacing())
	stream, err := src.Start(t.Context())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	for range stream.Frames() {
	}
	if err := stream.Err(); !errors.Is(err, ErrDeviceLost) {
		t.Errorf("Err = %v, want to wrap ErrDeviceLost", err)
	}
}

func TestPCMSourceStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	// An endless zero reader; only cancellation ends the stream.
	src := NewPCMSource(zeroReader{}, 16000, 20*time.Millisecond)
	ctx, cancel := context.WithCancel(t.Context())

	stream, err := src.Start(ctx)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()

	done := make(chan struct{})
	go func() {
		for range stream.Frames() {
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not end after cancellation")
	}
	if err := stream.Err(); err != nil {
		t.Errorf("Err after cancel = %v, want nil", err)
	}
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

var _ io.Reader = zeroReader{}
