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

// ValidProviderNames lists known provider names per pipeline stage. Used by
// [Validate] to warn about likely typos.
var ValidProviderNames = map[string][]string{
	"stt":        {"whisper", "deepgram"},
	"tts":        {"elevenlabs", "coqui"},
	"llm":        {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"embeddings": {"openai"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config].
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

// LoadFromReader decodes a YAML config from r and validates the result.
// Unknown fields are rejected so typos fail loudly.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg is coherent and returns a joined error listing
// every failure found. Suspicious-but-workable settings only log a warning.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Listen.SilenceThreshold < 0 || cfg.Listen.SilenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("listen.silence_threshold %.3f is out of range [0, 1]", cfg.Listen.SilenceThreshold))
	}
	if cfg.Listen.MinVoicedFrames < 0 {
		errs = append(errs, fmt.Errorf("listen.min_voiced_frames must not be negative"))
	}
	if cfg.Listen.CalibrationMultiplier < 0 {
		errs = append(errs, fmt.Errorf("listen.calibration_multiplier must not be negative"))
	}

	if cfg.Wake.FuzzyThreshold != 0 && (cfg.Wake.FuzzyThreshold < 0.5 || cfg.Wake.FuzzyThreshold > 1) {
		errs = append(errs, fmt.Errorf("wake.fuzzy_threshold %.2f is out of range [0.5, 1.0]", cfg.Wake.FuzzyThreshold))
	}
	if cfg.Wake.IdleTimeout < 0 {
		errs = append(errs, fmt.Errorf("wake.idle_timeout must not be negative"))
	}

	if cfg.Focus.LongBreakEvery < 0 {
		errs = append(errs, fmt.Errorf("focus.long_break_every must not be negative"))
	}
	if cfg.Focus.MinPersist > 0 && cfg.Focus.FocusDuration > 0 && cfg.Focus.MinPersist > cfg.Focus.FocusDuration {
		errs = append(errs, fmt.Errorf("focus.min_persist %v exceeds focus.focus_duration %v", cfg.Focus.MinPersist, cfg.Focus.FocusDuration))
	}

	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("stt", cfg.Providers.STTFallback.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	validateProviderName("tts", cfg.Providers.TTSFallback.Name)
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("llm", cfg.Providers.LLMFallback.Name)
	validateProviderName("embeddings", cfg.Providers.Embeddings.Name)

	if cfg.Providers.STT.Name == "" {
		errs = append(errs, fmt.Errorf("providers.stt is required; the assistant cannot hear without it"))
	}
	if cfg.Providers.LLM.Name == "" {
		slog.Warn("no LLM provider configured; free-form questions will get the fallback reply")
	}
	if cfg.Providers.TTS.Name == "" {
		slog.Warn("no TTS provider configured; replies will only be logged")
	}

	switch cfg.Store.Driver {
	case "", StoreSQLite:
		// sqlite_path empty falls back to the default data file.
	case StorePostgres:
		if cfg.Store.PostgresDSN == "" {
			errs = append(errs, fmt.Errorf("store.postgres_dsn is required when store.driver is postgres"))
		}
		if cfg.Providers.Embeddings.Name != "" && cfg.Store.EmbeddingDimensions <= 0 {
			slog.Warn("providers.embeddings is configured but store.embedding_dimensions is not set; semantic recall disabled")
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is invalid; valid values: sqlite, postgres", cfg.Store.Driver))
	}

	if cfg.Discord.Token != "" && cfg.Discord.ChannelID == "" {
		errs = append(errs, fmt.Errorf("discord.channel_id is required when discord.token is set"))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning when name is non-empty and not in the
// [ValidProviderNames] list for the given stage.
func validateProviderName(stage, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[stage]
	if !ok || slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo",
		"stage", stage,
		"name", name,
		"known", known,
	)
}
