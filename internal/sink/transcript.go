package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/livecap-io/livecap/internal/caption"
)

// Transcript writes every caption of one session to a timestamped text file,
// one block per caption:
//
//	[2026-08-29 14:03:12] source text
//	[2026-08-29 14:03:12] translated text
//	---
//
// Failed captions and empty transcripts are skipped; the file holds spoken
// content only. Lines are flushed per caption so a crash loses at most the
// final block.
type Transcript struct {
	mu   sync.Mutex
	f    *os.File
	path string

	// now is replaceable for tests.
	now func() time.Time
}

var _ caption.Sink = (*Transcript)(nil)

// NewTranscript creates the session file session_<timestamp>.txt inside dir,
// creating dir if needed.
func NewTranscript(dir string) (*Transcript, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("transcript: create dir %q: %w", dir, err)
	}
	name := "session_" + time.Now().Format("2006-01-02_15-04-05") + ".txt"
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("transcript: create %q: %w", path, err)
	}
	return &Transcript{f: f, path: path, now: time.Now}, nil
}

// Path returns the transcript file's location.
func (t *Transcript) Path() string {
	return t.path
}

// Publish implements [caption.Sink].
func (t *Transcript) Publish(res caption.Result) {
	if res.SourceText == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.f == nil {
		return
	}

	stamp := t.now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(t.f, "[%s] %s\n", stamp, res.SourceText)
	if res.TranslatedText != "" {
		fmt.Fprintf(t.f, "[%s] %s\n", stamp, res.TranslatedText)
	}
	fmt.Fprintln(t.f, "---")
	_ = t.f.Sync()
}

// Close closes the underlying file. Publish after Close is a no-op.
func (t *Transcript) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.f == nil {
		return nil
	}
	err := t.f.Close()
	t.f = nil
	return err
}
