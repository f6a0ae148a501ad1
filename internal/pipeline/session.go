package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/livecap-io/livecap/internal/caption"
	"github.com/livecap-io/livecap/internal/glossary"
	"github.com/livecap-io/livecap/internal/observe"
	"github.com/livecap-io/livecap/internal/vad"
	"github.com/livecap-io/livecap/pkg/audio"
	"github.com/livecap-io/livecap/pkg/provider/transcribe"
	"github.com/livecap-io/livecap/pkg/provider/translate"
)

// DefaultShutdownGrace is how long a stopping session waits for in-flight
// provider requests before cancelling them.
const DefaultShutdownGrace = 10 * time.Second

// SessionConfig assembles the pieces of one capture session.
type SessionConfig struct {
	// Source produces the audio frames. Required.
	Source audio.Source

	// VAD configures utterance segmentation. Required.
	VAD vad.Config

	// Transcriber turns utterances into text. Required.
	Transcriber transcribe.Provider

	// Translator, when set, translates transcribed text into TargetLanguage.
	Translator     translate.Provider
	TargetLanguage string

	// Glossary, when set, restores technical terms in transcripts.
	Glossary *glossary.Glossary

	// Sink receives ordered caption results. Required.
	Sink caption.Sink

	// MaxInFlight bounds concurrent provider requests.
	// Zero means [DefaultMaxInFlight].
	MaxInFlight int64

	// HistoryDepth is how many past exchanges accompany each translation
	// request. Negative disables history; zero means [DefaultHistoryDepth].
	HistoryDepth int

	// GapTimeout bounds how long the sequencer waits for a missing result.
	// Zero means [DefaultGapTimeout].
	GapTimeout time.Duration

	// ShutdownGrace is how long a stopping session lets in-flight requests
	// finish. Zero means [DefaultShutdownGrace].
	ShutdownGrace time.Duration

	// Metrics, when set, instruments the session.
	Metrics *observe.Metrics
}

func (c *SessionConfig) validate() error {
	var errs []error
	if c.Source == nil {
		errs = append(errs, errors.New("source is required"))
	}
	if c.Transcriber == nil {
		errs = append(errs, errors.New("transcriber is required"))
	}
	if c.Sink == nil {
		errs = append(errs, errors.New("sink is required"))
	}
	if c.Translator != nil && c.TargetLanguage == "" {
		errs = append(errs, errors.New("target language is required when translation is enabled"))
	}
	if err := c.VAD.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("vad: %w", err))
	}
	return errors.Join(errs...)
}

// Session is one end-to-end capture run: audio frames in, ordered captions
// out. A Session runs until its context is cancelled or the audio device is
// lost, then drains in-flight work within the shutdown grace.
type Session struct {
	id  string
	cfg SessionConfig
}

// NewSession validates cfg and creates a Session. Run it with
// [Session.Run].
func NewSession(cfg SessionConfig) (*Session, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = DefaultMaxInFlight
	}
	if cfg.HistoryDepth == 0 {
		cfg.HistoryDepth = DefaultHistoryDepth
	}
	if cfg.HistoryDepth < 0 {
		cfg.HistoryDepth = 0
	}
	if cfg.GapTimeout <= 0 {
		cfg.GapTimeout = DefaultGapTimeout
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = DefaultShutdownGrace
	}
	return &Session{id: uuid.NewString(), cfg: cfg}, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Run captures audio and publishes captions until ctx is cancelled or the
// stream fails. On return every assigned sequence number has produced
// exactly one caption and the sink has seen them in order. Run may be called
// at most once.
//
// A device failure is returned as an error wrapping
// [audio.ErrDeviceLost] or [audio.ErrDeviceUnavailable]; a plain
// context-driven stop returns nil.
func (s *Session) Run(ctx context.Context) error {
	stream, err := s.cfg.Source.Start(ctx)
	if err != nil {
		return fmt.Errorf("start audio source: %w", err)
	}

	seg, err := vad.New(s.cfg.VAD)
	if err != nil {
		_ = stream.Close()
		return fmt.Errorf("create segmenter: %w", err)
	}

	sink := s.cfg.Sink
	if s.cfg.Metrics != nil {
		inner := sink
		m := s.cfg.Metrics
		sink = caption.SinkFunc(func(res caption.Result) {
			m.RecordCaption(context.Background(), string(res.Status))
			inner.Publish(res)
		})
	}

	seqOpts := []SequencerOption{WithGapTimeout(s.cfg.GapTimeout)}
	if s.cfg.Metrics != nil {
		m := s.cfg.Metrics
		seqOpts = append(seqOpts, WithTimeoutHook(func(seq uint64) {
			m.GapTimeouts.Add(context.Background(), 1)
		}))
	}
	seqr := NewSequencer(sink, seqOpts...)

	dispOpts := []DispatcherOption{
		WithMaxInFlight(s.cfg.MaxInFlight),
		WithHistoryDepth(s.cfg.HistoryDepth),
	}
	if s.cfg.Translator != nil {
		dispOpts = append(dispOpts, WithTranslator(s.cfg.Translator, s.cfg.TargetLanguage))
	}
	if s.cfg.Glossary != nil {
		dispOpts = append(dispOpts, WithGlossary(s.cfg.Glossary))
	}
	if s.cfg.Metrics != nil {
		dispOpts = append(dispOpts, WithMetrics(s.cfg.Metrics))
	}
	disp := NewDispatcher(s.cfg.Transcriber, seqr, dispOpts...)

	// Provider requests outlive ctx by the shutdown grace, so the dispatcher
	// runs on its own cancellation.
	dispCtx, cancelDisp := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelDisp()
	disp.Start(dispCtx)

	if s.cfg.Metrics != nil {
		s.cfg.Metrics.ActiveSessions.Add(ctx, 1)
		defer s.cfg.Metrics.ActiveSessions.Add(context.Background(), -1)
	}

	slog.Info("session started", "session_id", s.id)

	// Closing the stream on cancellation unblocks the frame loop.
	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = stream.Close()
		case <-watchDone:
		}
	}()
	defer close(watchDone)

	for frame := range stream.Frames() {
		if u := seg.Process(frame); u != nil {
			s.recordUtterance(u)
			disp.Dispatch(u)
		}
	}

	var runErr error
	if err := stream.Err(); err != nil {
		runErr = fmt.Errorf("audio stream: %w", err)
	}

	// Whatever speech was mid-utterance at stop still becomes a caption.
	if u := seg.Flush(); u != nil {
		s.cfg.Metrics.RecordUtterance(context.Background(), "flush")
		disp.Dispatch(u)
	}
	s.cfg.Metrics.AddDiscardedBursts(context.Background(), int64(seg.DiscardedBursts()))

	// Drain: let in-flight and queued work finish within the grace, then
	// cancel the remainder. Every assigned number still resolves.
	grace := time.AfterFunc(s.cfg.ShutdownGrace, cancelDisp)
	disp.Close()
	grace.Stop()
	seqr.Close()

	slog.Info("session stopped", "session_id", s.id, "error", runErr)
	return runErr
}

// recordUtterance counts a segmenter emission, distinguishing utterances cut
// at the duration ceiling from those ended by silence.
func (s *Session) recordUtterance(u *vad.Utterance) {
	reason := "silence"
	if u.Duration() >= s.cfg.VAD.MaxUtterance {
		reason = "ceiling"
	}
	s.cfg.Metrics.RecordUtterance(context.Background(), reason)
}
