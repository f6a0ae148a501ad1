package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/livecap-io/livecap/pkg/audio"

	"github.com/livecap-io/livecap/internal/pipeline"
)

// restartBackoff is how long the supervisor waits before restarting a
// session that ended with a device failure, so a flapping microphone does
// not spin the restart loop.
const restartBackoff = 2 * time.Second

// sessionBuilder creates a fresh session from the current configuration.
// The returned cleanup runs after the session ends (closing its sinks).
type sessionBuilder func() (*pipeline.Session, func(), error)

// Supervisor keeps exactly one capture session alive. It restarts the
// session when the audio device is lost and when [Supervisor.Restart] is
// called (configuration changes), and stops for good when its context is
// cancelled or the session ends cleanly.
type Supervisor struct {
	build   sessionBuilder
	backoff time.Duration

	running atomic.Bool

	mu        sync.Mutex
	cancel    context.CancelFunc // cancels the current session
	restarted bool               // true when the current stop is a requested restart
}

// NewSupervisor creates a supervisor around the given builder.
func NewSupervisor(build sessionBuilder) *Supervisor {
	return &Supervisor{build: build, backoff: restartBackoff}
}

// Running reports whether a session is currently live. Used by the readiness
// probe.
func (s *Supervisor) Running() bool {
	return s.running.Load()
}

// Restart stops the current session; the supervisor loop immediately builds
// a new one from the current configuration. A no-op when no session is live.
func (s *Supervisor) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.restarted = true
		s.cancel()
	}
}

// Run drives the session lifecycle until ctx is cancelled. It returns nil on
// a clean stop (context cancellation or audio input reaching EOF) and an
// error when a session cannot even be built.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		sess, cleanup, err := s.build()
		if err != nil {
			return err
		}

		sessCtx, cancel := context.WithCancel(ctx)
		s.mu.Lock()
		s.cancel = cancel
		s.restarted = false
		s.mu.Unlock()

		s.running.Store(true)
		runErr := sess.Run(sessCtx)
		s.running.Store(false)

		s.mu.Lock()
		restarted := s.restarted
		s.cancel = nil
		s.mu.Unlock()
		cancel()
		cleanup()

		switch {
		case ctx.Err() != nil:
			return nil

		case restarted:
			slog.Info("supervisor: restarting session", "session_id", sess.ID())

		case errors.Is(runErr, audio.ErrDeviceLost), errors.Is(runErr, audio.ErrDeviceUnavailable):
			slog.Warn("supervisor: audio device failed, retrying",
				"session_id", sess.ID(), "error", runErr, "backoff", s.backoff)
			select {
			case <-time.After(s.backoff):
			case <-ctx.Done():
				return nil
			}

		case runErr != nil:
			return runErr

		default:
			// The input ended on its own (e.g. piped PCM reached EOF).
			slog.Info("supervisor: audio input ended, stopping", "session_id", sess.ID())
			return nil
		}
	}
}
