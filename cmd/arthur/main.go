// Command arthur is the voice-driven personal assistant daemon.
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

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/arthur-assist/arthur/internal/app"
	"github.com/arthur-assist/arthur/internal/config"
	"github.com/arthur-assist/arthur/internal/mcptool"
	"github.com/arthur-assist/arthur/internal/observe"
	"github.com/arthur-assist/arthur/internal/resilience"
	"github.com/arthur-assist/arthur/internal/store"
	"github.com/arthur-assist/arthur/internal/store/postgres"
	"github.com/arthur-assist/arthur/internal/store/sqlite"
	"github.com/arthur-assist/arthur/pkg/provider/embeddings"
	oaembed "github.com/arthur-assist/arthur/pkg/provider/embeddings/openai"
	"github.com/arthur-assist/arthur/pkg/provider/llm"
	"github.com/arthur-assist/arthur/pkg/provider/llm/anyllm"
	"github.com/arthur-assist/arthur/pkg/provider/stt"
	"github.com/arthur-assist/arthur/pkg/provider/stt/deepgram"
	"github.com/arthur-assist/arthur/pkg/provider/stt/whisper"
	"github.com/arthur-assist/arthur/pkg/provider/tts"
	"github.com/arthur-assist/arthur/pkg/provider/tts/coqui"
	"github.com/arthur-assist/arthur/pkg/provider/tts/elevenlabs"
)

const shutdownTimeout = 15 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	watch := flag.Bool("watch", false, "reload the configuration file when it changes")
	mcpMode := flag.Bool("mcp", false, "serve tasks and reminders as MCP tools over stdio instead of running the voice loop")
	flag.Parse()

	// ── Load configuration ───────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "arthur: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "arthur: %v\n", err)
		}
		return 1
	}

	// ── Logger ───────────────────────────────────────────────────────────
	logger, level := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	// ── Signal context ───────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *mcpMode {
		return runMCP(ctx, cfg, logger)
	}

	slog.Info("arthur starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Telemetry ────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Providers ────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Config watcher (optional) ────────────────────────────────────────
	if *watch {
		watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
			applyChanges(level, config.Diff(old, new))
		})
		if err != nil {
			slog.Error("failed to start config watcher", "err", err)
			return 1
		}
		defer watcher.Stop()
		slog.Info("config watcher running", "path", *configPath)
	}

	// ── Application ──────────────────────────────────────────────────────
	application, err := app.New(ctx, cfg, providers, logger)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("assistant ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// runMCP serves the task and reminder store as MCP tools over stdio. Log
// output goes to stderr so it cannot corrupt the protocol stream.
func runMCP(ctx context.Context, cfg *config.Config, logger *slog.Logger) int {
	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "err", err)
		return 1
	}
	defer st.Close()

	srv := mcptool.New(st, logger)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("mcp server error", "err", err)
		return 1
	}
	return 0
}

// openStore opens the configured persistence backend without the rest of the
// app. Semantic recall needs an embeddings provider, which the MCP tools do
// not use, so postgres is opened without one.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	if cfg.Store.Driver == config.StorePostgres {
		return postgres.NewStore(ctx, cfg.Store.PostgresDSN, nil, logger)
	}
	path := cfg.Store.SQLitePath
	if path == "" {
		path = app.DefaultSQLitePath
	}
	return sqlite.Open(ctx, path)
}

// applyChanges reacts to a config file reload. Only the log level can change
// on a running process; everything else is surfaced so the operator knows a
// restart is needed.
func applyChanges(level *slog.LevelVar, cs config.ChangeSet) {
	if !cs.Any() {
		return
	}
	if cs.LogLevelChanged {
		level.Set(slogLevel(cs.NewLogLevel))
		slog.Info("log level changed", "level", cs.NewLogLevel)
	}
	if cs.WakeChanged {
		slog.Warn("wake settings changed — restart to apply", "word", cs.NewWake.Word)
	}
	if cs.FocusChanged {
		slog.Warn("focus settings changed — restart to apply")
	}
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the provider
// from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── LLM ──────────────────────────────────────────────────────────────
	// Cloud providers share the same pattern: optional APIKey + optional
	// BaseURL, routed through any-llm.
	for _, providerName := range []string{
		"openai", "anthropic", "gemini",
		"deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, no API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})

	// ── STT ──────────────────────────────────────────────────────────────

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = entry.StringOption("model_path", "")
		}
		var opts []whisper.Option
		if lang := entry.StringOption("language", ""); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(modelPath, opts...)
	})

	reg.RegisterSTT("deepgram", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if lang := entry.StringOption("language", ""); lang != "" {
			opts = append(opts, deepgram.WithLanguage(lang))
		}
		return deepgram.New(entry.APIKey, opts...)
	})

	// ── TTS ──────────────────────────────────────────────────────────────

	reg.RegisterTTS("elevenlabs", func(entry config.ProviderEntry) (tts.Speaker, error) {
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		if voice := entry.StringOption("voice_id", ""); voice != "" {
			opts = append(opts, elevenlabs.WithVoiceID(voice))
		}
		return elevenlabs.New(entry.APIKey, opts...)
	})

	reg.RegisterTTS("coqui", func(entry config.ProviderEntry) (tts.Speaker, error) {
		var opts []coqui.Option
		if speaker := entry.StringOption("speaker_id", ""); speaker != "" {
			opts = append(opts, coqui.WithSpeakerID(speaker))
		}
		if lang := entry.StringOption("language", ""); lang != "" {
			opts = append(opts, coqui.WithLanguage(lang))
		}
		return coqui.New(entry.BaseURL, opts...)
	})

	// ── Embeddings ───────────────────────────────────────────────────────

	reg.RegisterEmbeddings("openai", func(entry config.ProviderEntry) (embeddings.Provider, error) {
		var opts []oaembed.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaembed.WithBaseURL(entry.BaseURL))
		}
		return oaembed.New(entry.APIKey, entry.Model, opts...)
	})
}

// buildProviders instantiates all providers named in cfg using the registry.
// Fallback entries are wrapped around their primary with a circuit breaker.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	if name := cfg.Providers.STT.Name; name != "" {
		p, err := reg.CreateSTT(cfg.Providers.STT)
		if err != nil {
			return nil, fmt.Errorf("create stt provider %q: %w", name, err)
		}
		ps.STT = p
		slog.Info("provider created", "kind", "stt", "name", name)

		if fbName := cfg.Providers.STTFallback.Name; fbName != "" {
			fb, err := reg.CreateSTT(cfg.Providers.STTFallback)
			if err != nil {
				return nil, fmt.Errorf("create stt fallback %q: %w", fbName, err)
			}
			group := resilience.NewSTTFallback(p, name, resilience.FallbackConfig{})
			group.AddFallback(fbName, fb)
			ps.STT = group
			slog.Info("fallback enabled", "kind", "stt", "name", fbName)
		}
	}

	if name := cfg.Providers.TTS.Name; name != "" {
		p, err := reg.CreateTTS(cfg.Providers.TTS)
		if err != nil {
			return nil, fmt.Errorf("create tts provider %q: %w", name, err)
		}
		ps.TTS = p
		slog.Info("provider created", "kind", "tts", "name", name)

		if fbName := cfg.Providers.TTSFallback.Name; fbName != "" {
			fb, err := reg.CreateTTS(cfg.Providers.TTSFallback)
			if err != nil {
				return nil, fmt.Errorf("create tts fallback %q: %w", fbName, err)
			}
			group := resilience.NewTTSFallback(p, name, resilience.FallbackConfig{})
			group.AddFallback(fbName, fb)
			ps.TTS = group
			slog.Info("fallback enabled", "kind", "tts", "name", fbName)
		}
	}

	if name := cfg.Providers.LLM.Name; name != "" {
		p, err := reg.CreateLLM(cfg.Providers.LLM)
		if err != nil {
			return nil, fmt.Errorf("create llm provider %q: %w", name, err)
		}
		ps.LLM = p
		slog.Info("provider created", "kind", "llm", "name", name)

		if fbName := cfg.Providers.LLMFallback.Name; fbName != "" {
			fb, err := reg.CreateLLM(cfg.Providers.LLMFallback)
			if err != nil {
				return nil, fmt.Errorf("create llm fallback %q: %w", fbName, err)
			}
			group := resilience.NewLLMFallback(p, name, resilience.FallbackConfig{})
			group.AddFallback(fbName, fb)
			ps.LLM = group
			slog.Info("fallback enabled", "kind", "llm", "name", fbName)
		}
	}

	if name := cfg.Providers.Embeddings.Name; name != "" {
		p, err := reg.CreateEmbeddings(cfg.Providers.Embeddings)
		if err != nil {
			return nil, fmt.Errorf("create embeddings provider %q: %w", name, err)
		}
		ps.Embeddings = p
		slog.Info("provider created", "kind", "embeddings", "name", name)
	}

	return ps, nil
}

// ── Logger ────────────────────────────────────────────────────────────────────

// newLogger builds the process logger. The returned LevelVar lets the config
// watcher change verbosity at runtime.
func newLogger(level config.LogLevel) (*slog.Logger, *slog.LevelVar) {
	lvl := new(slog.LevelVar)
	lvl.Set(slogLevel(level))
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), lvl
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
