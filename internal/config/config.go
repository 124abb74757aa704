// Package config provides the configuration schema, loader, and provider
// registry for the Arthur voice assistant.
package config

// LogLevel controls log verbosity.
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

// StoreDriver selects the persistence backend.
type StoreDriver string

const (
	// StoreSQLite keeps everything in a local SQLite file. The default.
	StoreSQLite StoreDriver = "sqlite"

	// StorePostgres uses PostgreSQL, with pgvector-backed semantic recall
	// when an embeddings provider is configured.
	StorePostgres StoreDriver = "postgres"
)

// IsValid reports whether d is a recognised store driver.
func (d StoreDriver) IsValid() bool {
	return d == StoreSQLite || d == StorePostgres
}

// Config is the root configuration structure, typically loaded from a YAML
// file with [Load].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Audio     AudioConfig     `yaml:"audio"`
	Listen    ListenConfig    `yaml:"listen"`
	Wake      WakeConfig      `yaml:"wake"`
	Reminders RemindersConfig `yaml:"reminders"`
	Focus     FocusConfig     `yaml:"focus"`
	Providers ProvidersConfig `yaml:"providers"`
	Store     StoreConfig     `yaml:"store"`
	Discord   DiscordConfig   `yaml:"discord"`
}

// ServerConfig holds the admin HTTP endpoint (health checks and Prometheus
// metrics) and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address for /healthz, /readyz, and /metrics
	// (e.g., ":8080"). Empty disables the admin server.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// AudioConfig describes the capture device.
type AudioConfig struct {
	// Device is the ffmpeg input device (e.g., "default" for ALSA/pulse,
	// ":0" for avfoundation).
	Device string `yaml:"device"`

	// InputFormat is the ffmpeg demuxer name (e.g., "pulse", "alsa",
	// "avfoundation").
	InputFormat string `yaml:"input_format"`

	// SampleRate in Hz. Defaults to 16000.
	SampleRate int `yaml:"sample_rate"`

	// FrameDuration is the length of one capture frame. Defaults to 500ms.
	FrameDuration Duration `yaml:"frame_duration"`

	// QueueSize is the bounded frame queue capacity. A full queue makes the
	// producer wait and report, never drop. Defaults to 16.
	QueueSize int `yaml:"queue_size"`
}

// ListenConfig tunes utterance segmentation.
type ListenConfig struct {
	// SilenceThreshold is the RMS level below which a frame counts as
	// silence. Zero means calibrate-or-default.
	SilenceThreshold float64 `yaml:"silence_threshold"`

	// SilenceDuration is how much trailing silence ends an utterance.
	SilenceDuration Duration `yaml:"silence_duration"`

	// MaxUtterance caps utterance length.
	MaxUtterance Duration `yaml:"max_utterance"`

	// MinVoicedFrames is the minimum count of above-threshold frames for an
	// utterance to be kept.
	MinVoicedFrames int `yaml:"min_voiced_frames"`

	// CalibrationWindow is how long to sample ambient noise at startup.
	// Zero skips calibration.
	CalibrationWindow Duration `yaml:"calibration_window"`

	// CalibrationMultiplier scales the measured ambient level into a
	// threshold.
	CalibrationMultiplier float64 `yaml:"calibration_multiplier"`
}

// WakeConfig tunes the wake-word conversation gate.
type WakeConfig struct {
	// Word is the activation word. Defaults to "arthur".
	Word string `yaml:"word"`

	// IdleTimeout closes a conversation that has gone quiet.
	IdleTimeout Duration `yaml:"idle_timeout"`

	// FuzzyThreshold is the minimum Jaro-Winkler similarity for a word to
	// count as the wake word.
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`

	// Farewells override the default conversation-ending phrases.
	Farewells []string `yaml:"farewells"`
}

// RemindersConfig tunes the reminder scheduler.
type RemindersConfig struct {
	// PollInterval is how often due reminders are checked. Defaults to 30s.
	PollInterval Duration `yaml:"poll_interval"`
}

// FocusConfig tunes the pomodoro timer.
type FocusConfig struct {
	FocusDuration  Duration `yaml:"focus_duration"`
	ShortBreak     Duration `yaml:"short_break"`
	LongBreak      Duration `yaml:"long_break"`
	LongBreakEvery int      `yaml:"long_break_every"`

	// MinPersist is the least focus time worth recording on an early stop.
	MinPersist Duration `yaml:"min_persist"`
}

// ProvidersConfig declares which implementation backs each pipeline stage.
// Each entry selects a named factory registered in the [Registry]. Fallback
// entries, when set, take over after the primary's circuit breaker opens.
type ProvidersConfig struct {
	STT         ProviderEntry `yaml:"stt"`
	STTFallback ProviderEntry `yaml:"stt_fallback"`
	TTS         ProviderEntry `yaml:"tts"`
	TTSFallback ProviderEntry `yaml:"tts_fallback"`
	LLM         ProviderEntry `yaml:"llm"`
	LLMFallback ProviderEntry `yaml:"llm_fallback"`
	Embeddings  ProviderEntry `yaml:"embeddings"`
}

// ProviderEntry is the configuration block shared by all provider types.
type ProviderEntry struct {
	// Name selects the registered implementation (e.g., "whisper",
	// "deepgram", "elevenlabs", "openai", "ollama").
	Name string `yaml:"name"`

	// APIKey authenticates against the provider's API, if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model (e.g., "gpt-4o-mini", "nova-2").
	Model string `yaml:"model"`

	// Options holds provider-specific values not covered by the fields
	// above (model paths, voice IDs, and the like).
	Options map[string]any `yaml:"options"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	// Driver picks the backend. Defaults to sqlite.
	Driver StoreDriver `yaml:"driver"`

	// SQLitePath is the database file for the sqlite driver.
	SQLitePath string `yaml:"sqlite_path"`

	// PostgresDSN is the connection string for the postgres driver.
	PostgresDSN string `yaml:"postgres_dsn"`

	// EmbeddingDimensions sizes the pgvector column. Must match the model
	// configured in Providers.Embeddings. Zero disables semantic recall.
	EmbeddingDimensions int `yaml:"embedding_dimensions"`
}

// DiscordConfig enables reminder delivery to a Discord channel.
type DiscordConfig struct {
	// Token is the bot token. Empty disables the Discord sink.
	Token string `yaml:"token"`

	// ChannelID is the channel notifications are sent to.
	ChannelID string `yaml:"channel_id"`
}
