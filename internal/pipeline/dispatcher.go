package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/livecap-io/livecap/internal/caption"
	"github.com/livecap-io/livecap/internal/glossary"
	"github.com/livecap-io/livecap/internal/observe"
	"github.com/livecap-io/livecap/internal/vad"
	"github.com/livecap-io/livecap/pkg/provider/transcribe"
	"github.com/livecap-io/livecap/pkg/provider/translate"
)

const (
	// DefaultMaxInFlight bounds concurrent provider requests per session.
	DefaultMaxInFlight = 4

	// DefaultHistoryDepth is how many past source/translation pairs are sent
	// as conversational context with each translation request.
	DefaultHistoryDepth = 3
)

// DispatcherOption is a functional option for configuring a [Dispatcher].
type DispatcherOption func(*Dispatcher)

// WithTranslator enables translation of transcribed text into target.
// Without it, captions carry source text only.
func WithTranslator(p translate.Provider, target string) DispatcherOption {
	return func(d *Dispatcher) {
		d.translator = p
		d.target = target
	}
}

// WithGlossary applies technical-term restoration to transcribed text before
// it is translated or published. The glossary's terms are also forwarded to
// the translator so it keeps them verbatim.
func WithGlossary(g *glossary.Glossary) DispatcherOption {
	return func(d *Dispatcher) {
		d.gloss = g
	}
}

// WithMaxInFlight bounds concurrent provider requests.
// Default: [DefaultMaxInFlight].
func WithMaxInFlight(n int64) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxInFlight = n
		}
	}
}

// WithHistoryDepth sets how many past exchanges are kept as translation
// context. Default: [DefaultHistoryDepth].
func WithHistoryDepth(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n >= 0 {
			d.historyDepth = n
		}
	}
}

// WithMetrics instruments the dispatcher with pipeline metrics.
func WithMetrics(m *observe.Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// Dispatcher numbers utterances and runs them through the providers.
//
// Sequence numbers are assigned in [Dispatcher.Dispatch], in arrival order
// starting at 0, before any queueing or throttling, so numbering reflects
// utterance order even under backpressure. The queue between numbering and
// the worker pool is unbounded; the in-flight request count is bounded by a
// weighted semaphore.
//
// Exactly one [caption.Result] is submitted to the sequencer for every
// assigned number. Provider errors become failed or partially failed
// captions rather than lost numbers, and jobs still queued when the context
// is cancelled are failed immediately.
type Dispatcher struct {
	transcriber transcribe.Provider
	translator  translate.Provider
	target      string
	gloss       *glossary.Glossary
	terms       []string
	seq         *Sequencer
	metrics     *observe.Metrics

	maxInFlight  int64
	historyDepth int
	sem          *semaphore.Weighted
	history      *exchangeHistory

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []job
	closed  bool
	nextSeq uint64

	wg      sync.WaitGroup
	runDone chan struct{}
}

type job struct {
	seq uint64
	utt *vad.Utterance
}

// NewDispatcher creates a Dispatcher feeding the given sequencer. Call
// [Dispatcher.Start] before dispatching.
func NewDispatcher(transcriber transcribe.Provider, seq *Sequencer, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		transcriber:  transcriber,
		seq:          seq,
		maxInFlight:  DefaultMaxInFlight,
		historyDepth: DefaultHistoryDepth,
		runDone:      make(chan struct{}),
	}
	for _, o := range opts {
		o(d)
	}
	d.cond = sync.NewCond(&d.mu)
	d.sem = semaphore.NewWeighted(d.maxInFlight)
	d.history = &exchangeHistory{max: d.historyDepth}
	if d.gloss != nil {
		d.terms = d.gloss.Terms()
	}
	return d
}

// Start launches the dispatch loop. Provider requests inherit ctx; cancel it
// to abort in-flight work after the shutdown grace has passed.
func (d *Dispatcher) Start(ctx context.Context) {
	go d.run(ctx)
}

// Dispatch assigns the next sequence number to u and enqueues it for
// processing. It never blocks on provider backpressure. Dispatch must not be
// called after [Dispatcher.Close].
func (d *Dispatcher) Dispatch(u *vad.Utterance) uint64 {
	d.mu.Lock()
	seq := d.nextSeq
	d.nextSeq++
	d.queue = append(d.queue, job{seq: seq, utt: u})
	d.mu.Unlock()
	d.cond.Signal()

	if d.metrics != nil {
		d.metrics.QueuedUtterances.Add(context.Background(), 1)
	}
	return seq
}

// Close stops the dispatcher: no further utterances are accepted, the queue
// is drained, and Close returns once every assigned number has produced a
// result. Cancel the Start context to cut the drain short; queued and
// in-flight jobs then resolve as failed captions.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.cond.Broadcast()
	<-d.runDone
	d.wg.Wait()
}

// run pops jobs in FIFO order, acquiring an in-flight slot for each.
func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.runDone)
	for {
		j, ok := d.pop()
		if !ok {
			return
		}
		if d.metrics != nil {
			d.metrics.QueuedUtterances.Add(ctx, -1)
		}
		if err := d.sem.Acquire(ctx, 1); err != nil {
			// Cancelled during drain. The number is already assigned, so it
			// still needs a result.
			slog.Warn("dispatcher: failing queued utterance, context cancelled", "seq", j.seq)
			d.seq.Submit(caption.Result{
				Seq:    j.seq,
				Status: caption.StatusFailed,
				Start:  j.utt.Start,
				End:    j.utt.End,
			})
			continue
		}
		d.wg.Add(1)
		go func(j job) {
			defer d.wg.Done()
			defer d.sem.Release(1)
			d.process(ctx, j)
		}(j)
	}
}

// pop blocks until a job is available or the dispatcher is closed with an
// empty queue.
func (d *Dispatcher) pop() (job, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for len(d.queue) == 0 && !d.closed {
		d.cond.Wait()
	}
	if len(d.queue) == 0 {
		return job{}, false
	}
	j := d.queue[0]
	d.queue = d.queue[1:]
	return j, true
}

// process runs one utterance through transcription and, when configured,
// translation, and submits exactly one result.
func (d *Dispatcher) process(ctx context.Context, j job) {
	if d.metrics != nil {
		d.metrics.InFlight.Add(ctx, 1)
		defer d.metrics.InFlight.Add(ctx, -1)
	}

	res := caption.Result{
		Seq:   j.seq,
		Start: j.utt.Start,
		End:   j.utt.End,
	}

	start := time.Now()
	text, err := d.transcriber.Transcribe(ctx, transcribe.Request{
		Samples:    j.utt.Samples,
		SampleRate: j.utt.SampleRate,
	})
	if d.metrics != nil {
		d.metrics.TranscriptionDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		slog.Warn("transcription failed", "seq", j.seq, "error", err)
		res.Status = caption.StatusFailed
		d.seq.Submit(res)
		return
	}

	if d.gloss != nil {
		text = d.gloss.Apply(text)
	}
	res.SourceText = text
	res.Status = caption.StatusOK

	// An empty transcript means the provider judged the utterance silence.
	// Nothing to translate, but the number is still accounted for.
	if d.translator != nil && text != "" {
		start = time.Now()
		translated, err := d.translator.Translate(ctx, translate.Request{
			Text:           text,
			TargetLanguage: d.target,
			History:        d.history.snapshot(),
			Terms:          d.terms,
		})
		if d.metrics != nil {
			d.metrics.TranslationDuration.Record(ctx, time.Since(start).Seconds())
		}
		if err != nil {
			slog.Warn("translation failed, keeping source text", "seq", j.seq, "error", err)
			res.Status = caption.StatusPartialFailure
		} else {
			res.TranslatedText = translated
			d.history.add(translate.Exchange{Source: text, Translated: translated})
		}
	}

	d.seq.Submit(res)
}

// exchangeHistory is a small mutex-guarded ring of recent translation
// exchanges. Workers complete out of order, so the context sent to the
// translator is best effort rather than strictly chronological.
type exchangeHistory struct {
	mu   sync.Mutex
	max  int
	list []translate.Exchange
}

func (h *exchangeHistory) add(e translate.Exchange) {
	if h.max == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.list = append(h.list, e)
	if len(h.list) > h.max {
		h.list = h.list[len(h.list)-h.max:]
	}
}

func (h *exchangeHistory) snapshot() []translate.Exchange {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.list) == 0 {
		return nil
	}
	out := make([]translate.Exchange, len(h.list))
	copy(out, h.list)
	return out
}
