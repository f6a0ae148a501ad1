// Package app wires the livecap subsystems into a running service.
//
// The App struct owns the full lifecycle: New builds the providers, sinks,
// and session supervisor from configuration, Run executes the supervisor
// loop alongside the HTTP side (metrics, health, the caption feed), and
// everything is torn down in reverse order when Run returns.
//
// For testing, inject mock implementations via functional options
// (WithSource, WithTranscriber, WithTranslator). When an option is not
// provided, New creates real providers from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/livecap-io/livecap/internal/caption"
	"github.com/livecap-io/livecap/internal/config"
	"github.com/livecap-io/livecap/internal/glossary"
	"github.com/livecap-io/livecap/internal/health"
	"github.com/livecap-io/livecap/internal/observe"
	"github.com/livecap-io/livecap/internal/pipeline"
	"github.com/livecap-io/livecap/internal/sink"
	"github.com/livecap-io/livecap/internal/sink/wsfeed"
	"github.com/livecap-io/livecap/internal/vad"
	"github.com/livecap-io/livecap/pkg/audio"
	"github.com/livecap-io/livecap/pkg/provider/transcribe"
	"github.com/livecap-io/livecap/pkg/provider/transcribe/whisper"
	"github.com/livecap-io/livecap/pkg/provider/translate"
	translateanyllm "github.com/livecap-io/livecap/pkg/provider/translate/anyllm"
	translateopenai "github.com/livecap-io/livecap/pkg/provider/translate/openai"
)

// httpShutdownTimeout bounds the HTTP server drain at stop.
const httpShutdownTimeout = 5 * time.Second

// App owns all subsystem lifetimes and orchestrates the captioning pipeline.
type App struct {
	mu  sync.Mutex
	cfg *config.Config

	source      audio.Source
	transcriber transcribe.Provider
	translator  translate.Provider
	metrics     *observe.Metrics

	feed       *wsfeed.Feed
	supervisor *Supervisor
	httpSrv    *http.Server
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithSource injects the audio source instead of building one from config.
func WithSource(s audio.Source) Option {
	return func(a *App) { a.source = s }
}

// WithTranscriber injects the transcription provider.
func WithTranscriber(p transcribe.Provider) Option {
	return func(a *App) { a.transcriber = p }
}

// WithTranslator injects the translation provider.
func WithTranslator(p translate.Provider) Option {
	return func(a *App) { a.translator = p }
}

// WithMetrics instruments the app with pipeline metrics.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New creates an App from cfg, building every provider that was not injected
// via an option.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg, feed: wsfeed.New()}
	for _, o := range opts {
		o(a)
	}

	if a.source == nil {
		a.source = buildSource(cfg)
	}
	if a.transcriber == nil {
		p, err := buildTranscriber(cfg.Transcription)
		if err != nil {
			return nil, fmt.Errorf("app: build transcriber: %w", err)
		}
		a.transcriber = p
	}
	if a.translator == nil && cfg.Translation.Enabled {
		p, err := buildTranslator(cfg.Translation)
		if err != nil {
			return nil, fmt.Errorf("app: build translator: %w", err)
		}
		a.translator = p
	}

	a.supervisor = NewSupervisor(a.buildSession)
	return a, nil
}

// Reload swaps in a new configuration and restarts the capture session so it
// picks the new settings up. Provider credentials and endpoints are rebuilt
// too; the HTTP listen address is fixed for the process lifetime.
func (a *App) Reload(cfg *config.Config) {
	transcriber, err := buildTranscriber(cfg.Transcription)
	if err != nil {
		slog.Error("reload: keeping old transcriber", "error", err)
		transcriber = nil
	}

	var translator translate.Provider
	if cfg.Translation.Enabled {
		translator, err = buildTranslator(cfg.Translation)
		if err != nil {
			slog.Error("reload: translation disabled until next valid config", "error", err)
		}
	}

	a.mu.Lock()
	a.cfg = cfg
	if transcriber != nil {
		a.transcriber = transcriber
	}
	a.translator = translator
	a.mu.Unlock()

	a.supervisor.Restart()
}

// Run starts the HTTP side and the session supervisor and blocks until ctx
// is cancelled or the pipeline stops. Always call it with a cancellable
// context wired to signal handling.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	listenAddr := a.currentConfig().Server.ListenAddr
	if listenAddr != "" {
		a.httpSrv = &http.Server{
			Addr:    listenAddr,
			Handler: a.routes(),
		}
		g.Go(func() error {
			slog.Info("http server listening", "addr", listenAddr)
			if err := a.httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
			defer cancel()
			return a.httpSrv.Shutdown(shutCtx)
		})
	}

	g.Go(func() error {
		defer a.feed.Close()
		return a.supervisor.Run(gctx)
	})

	return g.Wait()
}

// routes assembles the HTTP mux: Prometheus metrics, health probes, and the
// websocket caption feed.
func (a *App) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /captions", a.feed)
	health.New(
		health.SessionChecker(a.supervisor.Running),
	).Register(mux)
	return mux
}

func (a *App) currentConfig() *config.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

// buildSession assembles one capture session from the current config. The
// returned cleanup closes the per-session sinks.
func (a *App) buildSession() (*pipeline.Session, func(), error) {
	a.mu.Lock()
	cfg := a.cfg
	source := a.source
	transcriber := a.transcriber
	translator := a.translator
	a.mu.Unlock()

	sinks := []caption.Sink{
		sink.NewConsole(os.Stdout, cfg.Display.Mode),
		a.feed,
	}
	cleanup := func() {}
	if cfg.Transcript.Dir != "" {
		tr, err := sink.NewTranscript(cfg.Transcript.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("app: open transcript: %w", err)
		}
		slog.Info("session transcript", "path", tr.Path())
		sinks = append(sinks, tr)
		cleanup = func() {
			if err := tr.Close(); err != nil {
				slog.Warn("close transcript", "error", err)
			}
		}
	}

	sessCfg := pipeline.SessionConfig{
		Source: source,
		VAD: vad.Config{
			SampleRate:      cfg.Audio.SampleRate,
			Sensitivity:     cfg.VAD.Sensitivity,
			MinSpeech:       cfg.VAD.MinSpeech(),
			MaxUtterance:    cfg.VAD.MaxUtterance(),
			TrailingSilence: cfg.VAD.TrailingSilence(),
		},
		Transcriber:   transcriber,
		Sink:          sink.Multi(sinks...),
		MaxInFlight:   int64(cfg.Pipeline.MaxInFlight),
		HistoryDepth:  cfg.Translation.HistoryDepth,
		GapTimeout:    cfg.Pipeline.GapTimeout(),
		ShutdownGrace: cfg.Pipeline.ShutdownGrace(),
		Metrics:       a.metrics,
	}
	if translator != nil {
		sessCfg.Translator = translator
		sessCfg.TargetLanguage = cfg.Translation.TargetLanguage
	}
	if len(cfg.Glossary.Terms) > 0 {
		sessCfg.Glossary = glossary.New(cfg.Glossary.Terms)
	}

	sess, err := pipeline.NewSession(sessCfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return sess, cleanup, nil
}

// buildSource returns the configured audio source. The device field names a
// PCM file or FIFO; empty or "-" reads s16le PCM from stdin, the usual
// arrangement behind a capture process such as arecord.
func buildSource(cfg *config.Config) audio.Source {
	frameDur := time.Duration(cfg.Audio.FrameMs) * time.Millisecond
	if cfg.Audio.Device == "" || cfg.Audio.Device == "-" {
		return audio.NewPCMSource(os.Stdin, cfg.Audio.SampleRate, frameDur, audio.WithoutPacing())
	}
	return &fileSource{path: cfg.Audio.Device, sampleRate: cfg.Audio.SampleRate, frameDur: frameDur}
}

// fileSource opens the PCM file lazily at session start so a reconnected
// FIFO works across session restarts.
type fileSource struct {
	path       string
	sampleRate int
	frameDur   time.Duration
}

func (f *fileSource) Start(ctx context.Context) (audio.Stream, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", audio.ErrDeviceUnavailable, err)
	}
	src := audio.NewPCMSource(file, f.sampleRate, f.frameDur)
	stream, err := src.Start(ctx)
	if err != nil {
		file.Close()
		return nil, err
	}
	return &fileStream{Stream: stream, f: file}, nil
}

// fileStream closes the backing file together with the stream.
type fileStream struct {
	audio.Stream
	f *os.File
}

func (s *fileStream) Close() error {
	err := s.Stream.Close()
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// buildTranscriber constructs the whisper-compatible HTTP client.
func buildTranscriber(cfg config.TranscriptionConfig) (transcribe.Provider, error) {
	opts := []whisper.Option{
		whisper.WithModel(cfg.Model),
		whisper.WithTimeout(cfg.Timeout()),
	}
	if cfg.APIKey != "" {
		opts = append(opts, whisper.WithAPIKey(cfg.APIKey))
	}
	if cfg.Language != "" && cfg.Language != "auto" {
		opts = append(opts, whisper.WithLanguage(cfg.Language))
	}
	return whisper.New(cfg.Endpoint, opts...)
}

// buildTranslator constructs the chat translation backend. The native
// openai-go client serves the default provider; everything else goes
// through any-llm-go.
func buildTranslator(cfg config.TranslationConfig) (translate.Provider, error) {
	if cfg.Provider == "" || cfg.Provider == "openai" {
		var opts []translateopenai.Option
		if cfg.BaseURL != "" {
			opts = append(opts, translateopenai.WithBaseURL(cfg.BaseURL))
		}
		return translateopenai.New(cfg.APIKey, cfg.Model, opts...)
	}

	var opts []anyllmlib.Option
	if cfg.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(cfg.BaseURL))
	}
	return translateanyllm.New(cfg.Provider, cfg.Model, opts...)
}
