// Package config provides the configuration schema, loader, and file watcher
// for the livecap captioning service.
package config

import "time"

// LogLevel controls log verbosity for the livecap service.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// DisplayMode selects which caption texts sinks render.
type DisplayMode string

const (
	// DisplayBoth shows the source transcript alongside the translation.
	DisplayBoth DisplayMode = "both"

	// DisplayTranslationOnly shows only the translated text.
	DisplayTranslationOnly DisplayMode = "translation_only"
)

// IsValid reports whether m is a recognised display mode.
func (m DisplayMode) IsValid() bool {
	return m == DisplayBoth || m == DisplayTranslationOnly
}

// Config is the root configuration structure for livecap.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Audio         AudioConfig         `yaml:"audio"`
	VAD           VADConfig           `yaml:"vad"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Translation   TranslationConfig   `yaml:"translation"`
	Glossary      GlossaryConfig      `yaml:"glossary"`
	Display       DisplayConfig       `yaml:"display"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	Transcript    TranscriptConfig    `yaml:"transcript"`
}

// ServerConfig holds network and logging settings for the HTTP side of the
// service (metrics, health, the caption feed).
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	// Empty disables the HTTP server entirely.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// AudioConfig describes the capture device and frame geometry.
type AudioConfig struct {
	// Device names the capture device. Empty selects the system default.
	Device string `yaml:"device"`

	// SampleRate in Hz. Default: 16000.
	SampleRate int `yaml:"sample_rate"`

	// FrameMs is the capture frame length in milliseconds. Default: 20.
	FrameMs int `yaml:"frame_ms"`
}

// VADConfig holds the segmentation tunables. Changing any of them requires a
// session restart.
type VADConfig struct {
	// Sensitivity is the RMS activity threshold on a [0, 1] scale.
	// Default: 0.003.
	Sensitivity float64 `yaml:"sensitivity"`

	// MinSpeechMs is the minimum speech duration in milliseconds before an
	// utterance starts, and the floor below which one is discarded.
	// Default: 300.
	MinSpeechMs int `yaml:"min_speech_ms"`

	// TrailingSilenceMs is the silence run in milliseconds that ends an
	// utterance. Default: 700.
	TrailingSilenceMs int `yaml:"trailing_silence_ms"`

	// MaxUtteranceS is the utterance duration ceiling in seconds.
	// Default: 30.
	MaxUtteranceS int `yaml:"max_utterance_s"`
}

// MinSpeech returns the minimum speech duration.
func (c VADConfig) MinSpeech() time.Duration {
	return time.Duration(c.MinSpeechMs) * time.Millisecond
}

// TrailingSilence returns the finalising silence duration.
func (c VADConfig) TrailingSilence() time.Duration {
	return time.Duration(c.TrailingSilenceMs) * time.Millisecond
}

// MaxUtterance returns the utterance duration ceiling.
func (c VADConfig) MaxUtterance() time.Duration {
	return time.Duration(c.MaxUtteranceS) * time.Second
}

// TranscriptionConfig selects and configures the speech-to-text backend.
type TranscriptionConfig struct {
	// Endpoint is the full URL of the transcription endpoint
	// (e.g., "http://127.0.0.1:8085/v1/audio/transcriptions"). Required.
	Endpoint string `yaml:"endpoint"`

	// APIKey authenticates against the endpoint. Empty sends no credentials.
	APIKey string `yaml:"api_key"`

	// Model names the transcription model. Default: "large-v3".
	Model string `yaml:"model"`

	// Language is the expected source language code (e.g., "en"). Empty or
	// "auto" lets the model detect it.
	Language string `yaml:"language"`

	// TimeoutS is the per-request timeout in seconds. Default: 30.
	TimeoutS int `yaml:"timeout_s"`
}

// Timeout returns the per-request timeout.
func (c TranscriptionConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutS) * time.Second
}

// TranslationConfig selects and configures the translation backend.
type TranslationConfig struct {
	// Enabled turns translation on. When false, captions carry source text
	// only and the rest of this block is ignored.
	Enabled bool `yaml:"enabled"`

	// Provider selects the chat backend (e.g., "openai", "anthropic",
	// "ollama"). Default: "openai".
	Provider string `yaml:"provider"`

	// APIKey authenticates against the provider.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model names the chat model used for translation. Required when enabled.
	Model string `yaml:"model"`

	// TargetLanguage is the language captions are translated into, by English
	// name (e.g., "German"). Required when enabled.
	TargetLanguage string `yaml:"target_language"`

	// HistoryDepth is how many recent exchanges accompany each request as
	// context. Default: 3.
	HistoryDepth int `yaml:"history_depth"`
}

// GlossaryConfig lists technical terms to restore in transcripts and keep
// verbatim in translations.
type GlossaryConfig struct {
	Terms []string `yaml:"terms"`
}

// DisplayConfig controls caption rendering.
type DisplayConfig struct {
	// Mode selects which texts are rendered. Default: "both".
	Mode DisplayMode `yaml:"mode"`
}

// PipelineConfig holds concurrency and shutdown tunables.
type PipelineConfig struct {
	// MaxInFlight bounds concurrent provider requests. Default: 4.
	MaxInFlight int `yaml:"max_in_flight"`

	// GapTimeoutS bounds how long the output stage waits for a missing
	// result, in seconds. Default: 45.
	GapTimeoutS int `yaml:"gap_timeout_s"`

	// ShutdownGraceS is how long a stopping session lets in-flight requests
	// finish, in seconds. Default: 10.
	ShutdownGraceS int `yaml:"shutdown_grace_s"`
}

// GapTimeout returns the sequencer gap bound.
func (c PipelineConfig) GapTimeout() time.Duration {
	return time.Duration(c.GapTimeoutS) * time.Second
}

// ShutdownGrace returns the in-flight drain bound at session stop.
func (c PipelineConfig) ShutdownGrace() time.Duration {
	return time.Duration(c.ShutdownGraceS) * time.Second
}

// TranscriptConfig controls the per-session transcript file.
type TranscriptConfig struct {
	// Dir is the directory session transcript files are written to.
	// Empty disables transcript files.
	Dir string `yaml:"dir"`
}

// applyDefaults fills zero values with the documented defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Audio.SampleRate == 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.FrameMs == 0 {
		cfg.Audio.FrameMs = 20
	}
	if cfg.VAD.Sensitivity == 0 {
		cfg.VAD.Sensitivity = 0.003
	}
	if cfg.VAD.MinSpeechMs == 0 {
		cfg.VAD.MinSpeechMs = 300
	}
	if cfg.VAD.TrailingSilenceMs == 0 {
		cfg.VAD.TrailingSilenceMs = 700
	}
	if cfg.VAD.MaxUtteranceS == 0 {
		cfg.VAD.MaxUtteranceS = 30
	}
	if cfg.Transcription.Model == "" {
		cfg.Transcription.Model = "large-v3"
	}
	if cfg.Transcription.TimeoutS == 0 {
		cfg.Transcription.TimeoutS = 30
	}
	if cfg.Translation.Provider == "" {
		cfg.Translation.Provider = "openai"
	}
	if cfg.Translation.HistoryDepth == 0 {
		cfg.Translation.HistoryDepth = 3
	}
	if cfg.Display.Mode == "" {
		cfg.Display.Mode = DisplayBoth
	}
	if cfg.Pipeline.MaxInFlight == 0 {
		cfg.Pipeline.MaxInFlight = 4
	}
	if cfg.Pipeline.GapTimeoutS == 0 {
		cfg.Pipeline.GapTimeoutS = 45
	}
	if cfg.Pipeline.ShutdownGraceS == 0 {
		cfg.Pipeline.ShutdownGraceS = 10
	}
}
