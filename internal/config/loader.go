package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidTranslationProviders lists the chat backends the translation layer
// knows how to construct. Used by [Validate] to warn about unrecognised
// provider names.
var ValidTranslationProviders = []string{
	"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Audio
	if cfg.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be positive, got %d", cfg.Audio.SampleRate))
	}
	if cfg.Audio.FrameMs <= 0 {
		errs = append(errs, fmt.Errorf("audio.frame_ms must be positive, got %d", cfg.Audio.FrameMs))
	}

	// VAD
	if cfg.VAD.Sensitivity <= 0 || cfg.VAD.Sensitivity >= 1 {
		errs = append(errs, fmt.Errorf("vad.sensitivity must be in (0, 1), got %g", cfg.VAD.Sensitivity))
	}
	if cfg.VAD.MinSpeechMs <= 0 {
		errs = append(errs, fmt.Errorf("vad.min_speech_ms must be positive, got %d", cfg.VAD.MinSpeechMs))
	}
	if cfg.VAD.TrailingSilenceMs <= 0 {
		errs = append(errs, fmt.Errorf("vad.trailing_silence_ms must be positive, got %d", cfg.VAD.TrailingSilenceMs))
	}
	if cfg.VAD.MaxUtterance() <= cfg.VAD.MinSpeech() {
		errs = append(errs, fmt.Errorf("vad.max_utterance_s (%d) must exceed vad.min_speech_ms (%d)", cfg.VAD.MaxUtteranceS, cfg.VAD.MinSpeechMs))
	}

	// Transcription
	if cfg.Transcription.Endpoint == "" {
		errs = append(errs, errors.New("transcription.endpoint is required"))
	}
	if !KnownSourceLanguage(cfg.Transcription.Language) {
		slog.Warn("unknown transcription language — may be a typo or an untested language",
			"language", cfg.Transcription.Language,
		)
	}

	// Translation
	if cfg.Translation.Enabled {
		if cfg.Translation.Model == "" {
			errs = append(errs, errors.New("translation.model is required when translation is enabled"))
		}
		if cfg.Translation.TargetLanguage == "" {
			errs = append(errs, errors.New("translation.target_language is required when translation is enabled"))
		} else if !KnownTargetLanguage(cfg.Translation.TargetLanguage) {
			slog.Warn("unknown target language — may be a typo or an untested language",
				"target_language", cfg.Translation.TargetLanguage,
			)
		}
		if cfg.Translation.Provider != "" && !slices.Contains(ValidTranslationProviders, cfg.Translation.Provider) {
			errs = append(errs, fmt.Errorf("translation.provider %q is invalid; valid values: %v", cfg.Translation.Provider, ValidTranslationProviders))
		}
		if cfg.Translation.HistoryDepth < 0 {
			errs = append(errs, fmt.Errorf("translation.history_depth must not be negative, got %d", cfg.Translation.HistoryDepth))
		}
	}

	// Display
	if cfg.Display.Mode != "" && !cfg.Display.Mode.IsValid() {
		errs = append(errs, fmt.Errorf("display.mode %q is invalid; valid values: both, translation_only", cfg.Display.Mode))
	}
	if cfg.Display.Mode == DisplayTranslationOnly && !cfg.Translation.Enabled {
		errs = append(errs, errors.New("display.mode translation_only requires translation.enabled"))
	}

	// Pipeline
	if cfg.Pipeline.MaxInFlight <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.max_in_flight must be positive, got %d", cfg.Pipeline.MaxInFlight))
	}
	if cfg.Pipeline.GapTimeoutS <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.gap_timeout_s must be positive, got %d", cfg.Pipeline.GapTimeoutS))
	}

	return errors.Join(errs...)
}
