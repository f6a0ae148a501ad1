package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

// PCMSource streams 16-bit little-endian mono PCM from an io.Reader and
// implements [Source]. It is the capture binding for environments where the
// microphone is exposed as a pipe or file, e.g.
//
//	arecord -f S16_LE -r 16000 -c 1 | livecap -config config.yaml
//
// By default frames are paced to real time so that a regular file behaves
// like a live microphone; disable pacing with [WithoutPacing] when the reader
// is itself real-time (a pipe fed by a capture process).
type PCMSource struct {
	r          io.Reader
	sampleRate int
	frameSize  int
	paced      bool
}

var _ Source = (*PCMSource)(nil)

// PCMOption configures a [PCMSource].
type PCMOption func(*PCMSource)

// WithoutPacing disables real-time pacing. Frames are emitted as fast as the
// reader delivers them.
func WithoutPacing() PCMOption {
	return func(s *PCMSource) {
		s.paced = false
	}
}

// NewPCMSource creates a source reading mono s16le PCM from r. frameDur is
// the frame length the source slices the stream into.
func NewPCMSource(r io.Reader, sampleRate int, frameDur time.Duration, opts ...PCMOption) *PCMSource {
	s := &PCMSource{
		r:          r,
		sampleRate: sampleRate,
		frameSize:  int(frameDur.Seconds() * float64(sampleRate)),
		paced:      true,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start implements [Source]. The returned stream ends cleanly at EOF and
// with [ErrDeviceLost] on any other read failure.
func (s *PCMSource) Start(ctx context.Context) (Stream, error) {
	if s.sampleRate <= 0 || s.frameSize <= 0 {
		return nil, errors.New("audio: pcm source needs a positive sample rate and frame size")
	}

	ps := NewPushStream(Format{SampleRate: s.sampleRate}, s.frameSize, 64)
	go s.read(ctx, ps)
	return ps, nil
}

func (s *PCMSource) read(ctx context.Context, ps *PushStream) {
	frameDur := time.Duration(s.frameSize) * time.Second / time.Duration(s.sampleRate)
	var ticker *time.Ticker
	if s.paced {
		ticker = time.NewTicker(frameDur)
		defer ticker.Stop()
	}

	buf := make([]byte, s.frameSize*2)
	samples := make([]int16, s.frameSize)

	for {
		if ctx.Err() != nil {
			_ = ps.Close()
			return
		}

		n, err := io.ReadFull(s.r, buf)
		if n > 0 {
			for i := 0; i < n/2; i++ {
				samples[i] = int16(binary.LittleEndian.Uint16(buf[i*2:]))
			}
			ps.Push(samples[:n/2])
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				_ = ps.Close()
			} else {
				ps.Fail(fmt.Errorf("%w: %v", ErrDeviceLost, err))
			}
			return
		}

		if ticker != nil {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				_ = ps.Close()
				return
			}
		}
	}
}
