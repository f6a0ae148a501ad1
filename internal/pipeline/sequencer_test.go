package pipeline

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/livecap-io/livecap/internal/caption"
)

// captureSink records published results for later inspection.
type captureSink struct {
	mu      sync.Mutex
	results []caption.Result
}

func (s *captureSink) Publish(res caption.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, res)
}

func (s *captureSink) snapshot() []caption.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]caption.Result, len(s.results))
	copy(out, s.results)
	return out
}

// chanSink forwards every published result to a channel, for tests that need
// to observe releases as they happen.
type chanSink struct {
	ch chan caption.Result
}

func (s chanSink) Publish(res caption.Result) { s.ch <- res }

// assertContiguous fails unless the results carry sequence numbers 0..n-1 in
// order.
func assertContiguous(t *testing.T, results []caption.Result, n int) {
	t.Helper()
	if len(results) != n {
		t.Fatalf("got %d results, want %d: %+v", len(results), n, results)
	}
	for i, res := range results {
		if res.Seq != uint64(i) {
			t.Errorf("results[%d].Seq = %d, want %d", i, res.Seq, i)
		}
	}
}

func TestSequencerReleasesInOrder(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	seqr := NewSequencer(sink)

	for _, seq := range []uint64{2, 0, 3, 1, 4} {
		seqr.Submit(caption.Result{Seq: seq, SourceText: "u", Status: caption.StatusOK})
	}
	seqr.Close()

	assertContiguous(t, sink.snapshot(), 5)
}

func TestSequencerGapTimeoutSynthesisesFailure(t *testing.T) {
	t.Parallel()

	var timeouts atomic.Int64
	sink := chanSink{ch: make(chan caption.Result, 8)}
	seqr := NewSequencer(sink,
		WithGapTimeout(30*time.Millisecond),
		WithTimeoutHook(func(uint64) { timeouts.Add(1) }),
	)

	// Seq 0 never arrives.
	seqr.Submit(caption.Result{Seq: 1, SourceText: "second", Status: caption.StatusOK})

	first := receiveResult(t, sink.ch)
	if first.Seq != 0 || first.Status != caption.StatusFailed {
		t.Errorf("first release = seq %d status %q, want seq 0 status failed", first.Seq, first.Status)
	}
	second := receiveResult(t, sink.ch)
	if second.Seq != 1 || second.SourceText != "second" {
		t.Errorf("second release = seq %d text %q, want the held result", second.Seq, second.SourceText)
	}
	if got := timeouts.Load(); got != 1 {
		t.Errorf("timeout hook fired %d times, want 1", got)
	}

	seqr.Close()
}

func TestSequencerDropsResultArrivingAfterTimeout(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	seqr := NewSequencer(sink, WithGapTimeout(20*time.Millisecond))

	seqr.Submit(caption.Result{Seq: 1, Status: caption.StatusOK})

	// Wait out the gap, then deliver the straggler.
	time.Sleep(100 * time.Millisecond)
	seqr.Submit(caption.Result{Seq: 0, SourceText: "late", Status: caption.StatusOK})
	seqr.Close()

	results := sink.snapshot()
	assertContiguous(t, results, 2)
	if results[0].Status != caption.StatusFailed {
		t.Errorf("seq 0 status = %q, want failed (synthesised)", results[0].Status)
	}
	if results[0].SourceText == "late" {
		t.Error("stale result was published instead of dropped")
	}
}

func TestSequencerEachGapGetsItsOwnWait(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	seqr := NewSequencer(sink, WithGapTimeout(25*time.Millisecond))

	// Two independent holes: 0 and 2.
	seqr.Submit(caption.Result{Seq: 1, Status: caption.StatusOK})
	seqr.Submit(caption.Result{Seq: 3, Status: caption.StatusOK})

	time.Sleep(150 * time.Millisecond)
	seqr.Close()

	results := sink.snapshot()
	assertContiguous(t, results, 4)
	for _, seq := range []int{0, 2} {
		if results[seq].Status != caption.StatusFailed {
			t.Errorf("seq %d status = %q, want failed", seq, results[seq].Status)
		}
	}
	for _, seq := range []int{1, 3} {
		if results[seq].Status != caption.StatusOK {
			t.Errorf("seq %d status = %q, want ok", seq, results[seq].Status)
		}
	}
}

func TestSequencerCloseDrainsPendingWithSynthesisedHoles(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	seqr := NewSequencer(sink)

	seqr.Submit(caption.Result{Seq: 0, Status: caption.StatusOK})
	seqr.Submit(caption.Result{Seq: 2, Status: caption.StatusOK})
	seqr.Close()

	results := sink.snapshot()
	assertContiguous(t, results, 3)
	if results[1].Status != caption.StatusFailed {
		t.Errorf("seq 1 status = %q, want failed", results[1].Status)
	}
}

func TestSequencerCloseWithNothingPendingIsClean(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	seqr := NewSequencer(sink)
	seqr.Close()

	if got := len(sink.snapshot()); got != 0 {
		t.Errorf("published %d results, want 0", got)
	}
}

// receiveResult reads one result with a deadline so a broken sequencer fails
// the test instead of hanging it.
func receiveResult(t *testing.T, ch <-chan caption.Result) caption.Result {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a released result")
		return caption.Result{}
	}
}
