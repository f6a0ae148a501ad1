package sink

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/livecap-io/livecap/internal/caption"
	"github.com/livecap-io/livecap/internal/config"
)

// Console renders captions as plain text lines on an io.Writer, prefixed
// with the caption's position in the capture timeline.
type Console struct {
	mu   sync.Mutex
	w    io.Writer
	mode config.DisplayMode
}

var _ caption.Sink = (*Console)(nil)

// NewConsole creates a console sink writing to w under the given display
// mode.
func NewConsole(w io.Writer, mode config.DisplayMode) *Console {
	return &Console{w: w, mode: mode}
}

// Publish implements [caption.Sink].
func (c *Console) Publish(res caption.Result) {
	text := RenderText(res, c.mode)
	if text == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "[%s] %s\n", formatOffset(res.Start), text)
}

// formatOffset renders a capture offset as m:ss.mmm.
func formatOffset(d time.Duration) string {
	mins := int(d.Minutes())
	secs := d - time.Duration(mins)*time.Minute
	return fmt.Sprintf("%d:%06.3f", mins, secs.Seconds())
}
