// Package pipeline connects the capture side of livecap to its providers:
// utterances from the segmenter are numbered and dispatched to transcription
// and translation concurrently, and the results are restored to utterance
// order before they reach caption sinks.
//
// The package has two moving parts. The [Dispatcher] assigns sequence
// numbers, bounds in-flight provider requests, and guarantees that exactly
// one caption result is produced for every number it assigns, no matter how
// the request ends. The [Sequencer] is a single-goroutine reorder stage that
// releases results to the sink in strictly increasing sequence order,
// synthesising a failed caption when a gap outlives its wait bound so one
// slow request cannot stall the feed forever.
package pipeline

import (
	"log/slog"
	"time"

	"github.com/livecap-io/livecap/internal/caption"
)

// DefaultGapTimeout bounds how long the sequencer holds completed results
// while waiting for an earlier sequence number to arrive.
const DefaultGapTimeout = 45 * time.Second

// SequencerOption is a functional option for configuring a [Sequencer].
type SequencerOption func(*Sequencer)

// WithGapTimeout sets the maximum time the sequencer waits for a missing
// sequence number before synthesising a failed caption for it.
// Default: [DefaultGapTimeout].
func WithGapTimeout(d time.Duration) SequencerOption {
	return func(s *Sequencer) {
		s.gapTimeout = d
	}
}

// WithTimeoutHook installs a callback invoked from the sequencer goroutine
// whenever a gap times out, with the sequence number that was given up on.
func WithTimeoutHook(fn func(seq uint64)) SequencerOption {
	return func(s *Sequencer) {
		s.onTimeout = fn
	}
}

// Sequencer restores caption order. Results may be submitted from any
// goroutine in any order; the sink is invoked from a single internal
// goroutine in strictly increasing sequence order starting at 0, with no
// numbers skipped.
//
// The number of buffered results is bounded by the dispatcher's in-flight
// limit plus its queue, and each held gap is additionally bounded in time by
// the gap timeout.
type Sequencer struct {
	sink       caption.Sink
	gapTimeout time.Duration
	onTimeout  func(seq uint64)

	in   chan caption.Result
	done chan struct{}
}

// NewSequencer creates a Sequencer publishing to sink and starts its reorder
// goroutine. Call [Sequencer.Close] to stop it.
func NewSequencer(sink caption.Sink, opts ...SequencerOption) *Sequencer {
	s := &Sequencer{
		sink:       sink,
		gapTimeout: DefaultGapTimeout,
		in:         make(chan caption.Result, 16),
		done:       make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	go s.run()
	return s
}

// Submit hands a completed result to the sequencer. It must not be called
// after [Sequencer.Close].
func (s *Sequencer) Submit(res caption.Result) {
	s.in <- res
}

// Close stops the sequencer after draining all submitted results. Any
// numbers still missing at that point are synthesised as failed so the
// released stream stays contiguous. Close blocks until the reorder goroutine
// has exited and must be called exactly once, after all submitters have
// finished.
func (s *Sequencer) Close() {
	close(s.in)
	<-s.done
}

func (s *Sequencer) run() {
	defer close(s.done)

	var (
		next    uint64
		pending = make(map[uint64]caption.Result)
		timer   *time.Timer
		timerC  <-chan time.Time
	)

	stopTimer := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}
	// The timer always measures the wait for the current head gap. It is
	// restarted whenever next advances past a gap, so each missing number
	// gets its own full wait bound.
	armTimer := func() {
		if len(pending) > 0 && timer == nil {
			timer = time.NewTimer(s.gapTimeout)
			timerC = timer.C
		}
	}
	// release publishes the contiguous run starting at next.
	release := func() {
		for {
			res, ok := pending[next]
			if !ok {
				return
			}
			delete(pending, next)
			s.sink.Publish(res)
			next++
		}
	}

	for {
		select {
		case res, ok := <-s.in:
			if !ok {
				s.drain(next, pending)
				stopTimer()
				return
			}
			switch {
			case res.Seq < next:
				// Already released (or synthesised after a timeout).
				slog.Warn("sequencer: dropping stale result",
					"seq", res.Seq, "next", next, "status", res.Status)
			case res.Seq == next:
				s.sink.Publish(res)
				next++
				release()
				stopTimer()
				armTimer()
			default:
				pending[res.Seq] = res
				armTimer()
			}

		case <-timerC:
			timer = nil
			timerC = nil
			s.giveUp(next)
			next++
			release()
			armTimer()
		}
	}
}

// giveUp synthesises a failed caption for a sequence number whose result
// never arrived in time.
func (s *Sequencer) giveUp(seq uint64) {
	slog.Warn("sequencer: gap timed out, synthesising failed caption", "seq", seq)
	if s.onTimeout != nil {
		s.onTimeout(seq)
	}
	s.sink.Publish(caption.Result{Seq: seq, Status: caption.StatusFailed})
}

// drain flushes everything still pending at shutdown in order, filling any
// holes with synthesised failures. With a well-behaved dispatcher there are
// no holes here, since every assigned number gets exactly one result.
func (s *Sequencer) drain(next uint64, pending map[uint64]caption.Result) {
	for len(pending) > 0 {
		if res, ok := pending[next]; ok {
			delete(pending, next)
			s.sink.Publish(res)
		} else {
			s.giveUp(next)
		}
		next++
	}
}
