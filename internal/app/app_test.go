package app

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/livecap-io/livecap/internal/config"
	audiomock "github.com/livecap-io/livecap/pkg/audio/mock"
	transcribemock "github.com/livecap-io/livecap/pkg/provider/transcribe/mock"
	translatemock "github.com/livecap-io/livecap/pkg/provider/translate/mock"
)

func testConfig(t *testing.T, yaml string) *config.Config {
	t.Helper()
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	return cfg
}

const baseYAML = `
transcription:
  endpoint: http://localhost:9000/inference
`

func TestNewWithInjectedProviders(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, baseYAML)
	a, err := New(cfg,
		WithSource(&audiomock.Source{StartResult: audiomock.NewStream(1)}),
		WithTranscriber(&transcribemock.Provider{TranscribeResult: "hi"}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.supervisor == nil {
		t.Error("supervisor not constructed")
	}
}

func TestNewBuildsRealProviders(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, `
transcription:
  endpoint: http://localhost:9000/inference
translation:
  enabled: true
  provider: openai
  api_key: test-key
  model: gpt-4o-mini
  target_language: German
`)
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.transcriber == nil {
		t.Error("transcriber not built")
	}
	if a.translator == nil {
		t.Error("translator not built")
	}
}

func TestRunStopsWhenInputEnds(t *testing.T) {
	t.Parallel()

	stream := audiomock.NewStream(1)
	stream.End(nil)
	cfg := testConfig(t, baseYAML) // no listen_addr: no HTTP server

	a, err := New(cfg,
		WithSource(&audiomock.Source{StartResult: stream}),
		WithTranscriber(&transcribemock.Provider{}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- a.Run(t.Context()) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after the input ended")
	}
}

func TestRoutes(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, baseYAML)
	a, err := New(cfg,
		WithSource(&audiomock.Source{StartResult: audiomock.NewStream(1)}),
		WithTranscriber(&transcribemock.Provider{}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	srv := httptest.NewServer(a.routes())
	defer srv.Close()

	tests := []struct {
		path string
		want int
	}{
		{"/healthz", http.StatusOK},
		// No capture session is running, so readiness fails.
		{"/readyz", http.StatusServiceUnavailable},
		{"/metrics", http.StatusOK},
	}
	for _, tc := range tests {
		resp, err := http.Get(srv.URL + tc.path)
		if err != nil {
			t.Fatalf("GET %s: %v", tc.path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != tc.want {
			t.Errorf("GET %s = %d, want %d", tc.path, resp.StatusCode, tc.want)
		}
	}
}

func TestBuildSessionWithTranscript(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := testConfig(t, baseYAML)
	cfg.Transcript.Dir = dir
	cfg.Translation.TargetLanguage = "German"

	a, err := New(cfg,
		WithSource(&audiomock.Source{StartResult: audiomock.NewStream(1)}),
		WithTranscriber(&transcribemock.Provider{}),
		WithTranslator(&translatemock.Provider{TranslateResult: "hallo"}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sess, cleanup, err := a.buildSession()
	if err != nil {
		t.Fatalf("buildSession: %v", err)
	}
	if sess == nil {
		t.Fatal("buildSession returned nil session")
	}
	cleanup()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("transcript dir has %d entries, want 1", len(entries))
	}
	if ext := filepath.Ext(entries[0].Name()); ext != ".txt" {
		t.Errorf("transcript file %q, want a .txt file", entries[0].Name())
	}
}

func TestReloadSwapsConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, baseYAML)
	a, err := New(cfg,
		WithSource(&audiomock.Source{StartResult: audiomock.NewStream(1)}),
		WithTranscriber(&transcribemock.Provider{}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	next := testConfig(t, `
transcription:
  endpoint: http://localhost:9001/inference
  model: small
`)
	a.Reload(next)

	got := a.currentConfig()
	if got.Transcription.Endpoint != "http://localhost:9001/inference" {
		t.Errorf("endpoint = %q after reload", got.Transcription.Endpoint)
	}
	if got.Transcription.Model != "small" {
		t.Errorf("model = %q after reload", got.Transcription.Model)
	}
}
