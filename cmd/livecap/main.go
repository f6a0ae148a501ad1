// Command livecap is the live captioning service: it reads microphone PCM,
// segments speech, transcribes and optionally translates each utterance, and
// prints ordered captions.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/livecap-io/livecap/internal/app"
	"github.com/livecap-io/livecap/internal/config"
	"github.com/livecap-io/livecap/internal/observe"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "livecap: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "livecap: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	// Captions go to stdout; logs stay on stderr so the two can be split.
	slog.SetDefault(newLogger(cfg.Server.LogLevel))

	slog.Info("livecap starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "livecap",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Application ───────────────────────────────────────────────────────────
	application, err := app.New(cfg, app.WithMetrics(observe.DefaultMetrics()))
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// ── Config hot reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(_, next *config.Config) {
		slog.Info("configuration changed, restarting capture session")
		application.Reload(next)
	})
	if err != nil {
		slog.Error("failed to watch config file", "err", err)
		return 1
	}
	defer watcher.Stop()

	printStartupSummary(cfg)
	slog.Info("captioning — press Ctrl+C to stop")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Fprintln(os.Stderr, "╔════════════════════════════════════════╗")
	fmt.Fprintln(os.Stderr, "║          livecap — startup summary     ║")
	fmt.Fprintln(os.Stderr, "╠════════════════════════════════════════╣")
	printRow("Audio input", inputName(cfg.Audio.Device))
	printRow("Transcription", cfg.Transcription.Model)
	if cfg.Translation.Enabled {
		printRow("Translation", cfg.Translation.Provider+" → "+cfg.Translation.TargetLanguage)
	} else {
		printRow("Translation", "(disabled)")
	}
	printRow("Glossary terms", fmt.Sprintf("%d", len(cfg.Glossary.Terms)))
	if cfg.Server.ListenAddr != "" {
		printRow("Listen addr", cfg.Server.ListenAddr)
	}
	if cfg.Transcript.Dir != "" {
		printRow("Transcripts", cfg.Transcript.Dir)
	}
	fmt.Fprintln(os.Stderr, "╚════════════════════════════════════════╝")
}

func printRow(name, value string) {
	if len([]rune(value)) > 20 {
		value = string([]rune(value)[:17]) + "…"
	}
	fmt.Fprintf(os.Stderr, "║  %-14s : %-20s ║\n", name, value)
}

func inputName(device string) string {
	if device == "" || device == "-" {
		return "stdin (s16le PCM)"
	}
	return device
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
