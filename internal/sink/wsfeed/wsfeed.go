// Package wsfeed broadcasts ordered caption results to websocket
// subscribers as JSON, one message per caption.
//
// The feed never lets one subscriber stall the pipeline: each connection has
// a bounded outbound buffer, and a subscriber that falls too far behind is
// disconnected with a policy-violation close code. Captions are ordered per
// connection but a reconnecting client does not receive missed ones.
package wsfeed

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/livecap-io/livecap/internal/caption"
)

const (
	// clientBuffer is the per-connection outbound queue length.
	clientBuffer = 64

	// writeTimeout bounds a single websocket write.
	writeTimeout = 5 * time.Second
)

// Feed is a [caption.Sink] that also serves the websocket endpoint
// subscribers connect to. The zero value is not usable; create one with
// [New].
type Feed struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

var _ caption.Sink = (*Feed)(nil)

type client struct {
	conn *websocket.Conn
	msgs chan []byte
	once sync.Once
	gone chan struct{}
}

// New creates an empty feed.
func New() *Feed {
	return &Feed{clients: make(map[*client]struct{})}
}

// Publish implements [caption.Sink]. It never blocks: subscribers whose
// buffers are full are dropped.
func (f *Feed) Publish(res caption.Result) {
	data, err := json.Marshal(res)
	if err != nil {
		slog.Error("wsfeed: marshal caption", "error", err)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for c := range f.clients {
		select {
		case c.msgs <- data:
		default:
			// Subscriber is too slow; cut it loose rather than buffering
			// without bound.
			delete(f.clients, c)
			c.drop(websocket.StatusPolicyViolation, "subscriber too slow")
		}
	}
}

// ServeHTTP implements the subscription endpoint. The connection stays open
// until the client disconnects, falls behind, or the feed is closed.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("wsfeed: accept failed", "error", err)
		return
	}

	c := &client{
		conn: conn,
		msgs: make(chan []byte, clientBuffer),
		gone: make(chan struct{}),
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		conn.Close(websocket.StatusGoingAway, "feed closed")
		return
	}
	f.clients[c] = struct{}{}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		delete(f.clients, c)
		f.mu.Unlock()
		c.drop(websocket.StatusNormalClosure, "")
	}()

	// Reads are discarded; the feed is one-way. CloseRead also surfaces
	// client disconnects.
	readCtx := conn.CloseRead(r.Context())

	for {
		select {
		case <-readCtx.Done():
			return
		case <-c.gone:
			return
		case msg := <-c.msgs:
			ctx, cancel := context.WithTimeout(readCtx, writeTimeout)
			err := conn.Write(ctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// Close disconnects all subscribers. Publish after Close is a no-op.
func (f *Feed) Close() {
	f.mu.Lock()
	f.closed = true
	clients := make([]*client, 0, len(f.clients))
	for c := range f.clients {
		clients = append(clients, c)
	}
	f.clients = make(map[*client]struct{})
	f.mu.Unlock()

	for _, c := range clients {
		c.drop(websocket.StatusGoingAway, "feed closed")
	}
}

// drop closes the connection once and signals the serving goroutine.
func (c *client) drop(code websocket.StatusCode, reason string) {
	c.once.Do(func() {
		close(c.gone)
		_ = c.conn.Close(code, reason)
	})
}
