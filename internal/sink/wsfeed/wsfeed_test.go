package wsfeed

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/livecap-io/livecap/internal/caption"
)

// dial connects a test subscriber to the feed.
func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func readCaption(t *testing.T, conn *websocket.Conn) caption.Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	typ, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if typ != websocket.MessageText {
		t.Fatalf("message type = %v, want text", typ)
	}
	var res caption.Result
	if err := json.Unmarshal(data, &res); err != nil {
		t.Fatalf("unmarshal %q: %v", data, err)
	}
	return res
}

func TestFeedBroadcastsCaptions(t *testing.T) {
	t.Parallel()

	feed := New()
	t.Cleanup(feed.Close)
	srv := httptest.NewServer(feed)
	t.Cleanup(srv.Close)

	// Publishing with nobody connected must not block or panic.
	feed.Publish(caption.Result{Seq: 0, SourceText: "lost", Status: caption.StatusOK})

	conn := dial(t, srv.URL)

	// Wait for the server side to register the subscriber before publishing.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		feed.mu.Lock()
		n := len(feed.clients)
		feed.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	want := caption.Result{
		Seq:            1,
		SourceText:     "hello",
		TranslatedText: "hallo",
		Status:         caption.StatusOK,
		Start:          2 * time.Second,
		End:            3 * time.Second,
	}
	feed.Publish(want)

	got := readCaption(t, conn)
	if got != want {
		t.Errorf("received %+v, want %+v", got, want)
	}
}

func TestFeedCloseDisconnectsSubscribers(t *testing.T) {
	t.Parallel()

	feed := New()
	srv := httptest.NewServer(feed)
	t.Cleanup(srv.Close)

	conn := dial(t, srv.URL)
	feed.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, _, err := conn.Read(ctx); err == nil {
		t.Error("read succeeded after feed close, want connection closed")
	}

	// Publishing after close is a no-op.
	feed.Publish(caption.Result{Seq: 0, Status: caption.StatusOK})
}
