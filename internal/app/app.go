// Package app wires all Arthur subsystems into a running assistant.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run executes the listen loop until the context is cancelled,
// and Shutdown tears everything down in order.
//
// For testing, inject doubles via functional options (WithStore, WithSource,
// etc.). When an option is not provided, New creates real implementations
// from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/arthur-assist/arthur/internal/assistant"
	"github.com/arthur-assist/arthur/internal/assistant/brain"
	"github.com/arthur-assist/arthur/internal/config"
	"github.com/arthur-assist/arthur/internal/focus"
	"github.com/arthur-assist/arthur/internal/gate"
	"github.com/arthur-assist/arthur/internal/health"
	"github.com/arthur-assist/arthur/internal/listen"
	"github.com/arthur-assist/arthur/internal/notify"
	"github.com/arthur-assist/arthur/internal/observe"
	"github.com/arthur-assist/arthur/internal/reminder"
	"github.com/arthur-assist/arthur/internal/store"
	"github.com/arthur-assist/arthur/internal/store/postgres"
	"github.com/arthur-assist/arthur/internal/store/sqlite"
	"github.com/arthur-assist/arthur/pkg/audio"
	"github.com/arthur-assist/arthur/pkg/audio/ffmpeg"
	"github.com/arthur-assist/arthur/pkg/provider/embeddings"
	"github.com/arthur-assist/arthur/pkg/provider/llm"
	"github.com/arthur-assist/arthur/pkg/provider/stt"
	"github.com/arthur-assist/arthur/pkg/provider/tts"
)

// DefaultSQLitePath is used when the store section names no file.
const DefaultSQLitePath = "arthur.db"

// adminShutdownTimeout bounds the admin server drain during Run teardown.
const adminShutdownTimeout = 5 * time.Second

// Providers holds one interface value per pipeline stage. Nil means the
// stage is not configured. Populated by main.go via the config registry,
// already wrapped in fallback groups where the config asks for them.
type Providers struct {
	STT        stt.Transcriber
	TTS        tts.Speaker
	LLM        llm.Provider
	Embeddings embeddings.Provider
}

// App owns all subsystem lifetimes and orchestrates the voice loop.
type App struct {
	cfg       *config.Config
	providers *Providers
	log       *slog.Logger

	// Subsystems, initialised in New, torn down in Shutdown.
	store     store.Store
	notifier  *notify.Notifier
	scheduler *reminder.Scheduler
	timer     *focus.Timer
	gate      *gate.Gate
	recorder  *listen.Recorder
	brain     *brain.Brain
	assistant *assistant.Assistant
	metrics   *observe.Metrics
	source    audio.Source
	admin     *http.Server

	// now overrides the clock in tests. Nil means time.Now everywhere.
	now func() time.Time

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a store instead of opening one from config.
func WithStore(st store.Store) Option {
	return func(a *App) { a.store = st }
}

// WithSource injects a frame source instead of spawning ffmpeg.
func WithSource(src audio.Source) Option {
	return func(a *App) { a.source = src }
}

// WithMetrics injects a metrics bundle instead of building one from the
// global meter provider.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithClock overrides the clock for every subsystem. Tests only.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go. Use Option functions to inject test doubles for any
// subsystem.
func New(ctx context.Context, cfg *config.Config, providers *Providers, log *slog.Logger, opts ...Option) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	if providers == nil {
		providers = &Providers{}
	}
	a := &App{
		cfg:       cfg,
		providers: providers,
		log:       log,
	}
	for _, o := range opts {
		o(a)
	}

	// ── 1. Metrics ───────────────────────────────────────────────────────
	if a.metrics == nil {
		m, err := observe.NewMetrics(otel.GetMeterProvider())
		if err != nil {
			return nil, fmt.Errorf("app: init metrics: %w", err)
		}
		a.metrics = m
	}

	// ── 2. Store ─────────────────────────────────────────────────────────
	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}

	// ── 3. Notifier ──────────────────────────────────────────────────────
	if err := a.initNotifier(); err != nil {
		return nil, fmt.Errorf("app: init notifier: %w", err)
	}

	// ── 4. Reminder scheduler ────────────────────────────────────────────
	a.scheduler = reminder.NewScheduler(reminder.Config{
		Interval: a.cfg.Reminders.PollInterval.Std(),
		Metrics:  a.metrics,
		Now:      a.now,
	}, a.store, a.notifier, a.log)

	// ── 5. Focus timer ───────────────────────────────────────────────────
	a.initTimer()

	// ── 6. Gate + recorder ───────────────────────────────────────────────
	a.gate = gate.New(gate.Config{
		WakeWord:       a.cfg.Wake.Word,
		IdleTimeout:    a.cfg.Wake.IdleTimeout.Std(),
		FuzzyThreshold: a.cfg.Wake.FuzzyThreshold,
		Farewells:      a.cfg.Wake.Farewells,
		Now:            a.now,
	}, a.log)
	a.recorder = listen.NewRecorder(listen.Config{
		SilenceThreshold:      a.cfg.Listen.SilenceThreshold,
		SilenceDuration:       a.cfg.Listen.SilenceDuration.Std(),
		MaxUtterance:          a.cfg.Listen.MaxUtterance.Std(),
		MinVoicedFrames:       a.cfg.Listen.MinVoicedFrames,
		CalibrationMultiplier: a.cfg.Listen.CalibrationMultiplier,
	}, a.log)

	// ── 7. Brain + assistant ─────────────────────────────────────────────
	a.brain = brain.New(brain.Config{}, a.providers.LLM, a.store, a.log)
	assistOpts := []assistant.Option{assistant.WithMetrics(a.metrics)}
	if a.now != nil {
		assistOpts = append(assistOpts, assistant.WithClock(a.now))
	}
	a.assistant = assistant.New(assistant.Config{
		CalibrationWindow: a.cfg.Listen.CalibrationWindow.Std(),
	}, a.recorder, a.gate, a.providers.STT, a.providers.TTS, a.brain,
		a.scheduler, a.timer, a.store, a.log, assistOpts...)

	// ── 8. Capture source ────────────────────────────────────────────────
	if a.source == nil {
		src, err := ffmpeg.New(ffmpeg.Config{
			Device:        a.cfg.Audio.Device,
			InputFormat:   a.cfg.Audio.InputFormat,
			SampleRate:    a.cfg.Audio.SampleRate,
			FrameDuration: a.cfg.Audio.FrameDuration.Std(),
			QueueSize:     a.cfg.Audio.QueueSize,
		})
		if err != nil {
			return nil, fmt.Errorf("app: init capture: %w", err)
		}
		a.source = src
	}

	// ── 9. Admin server ──────────────────────────────────────────────────
	a.initAdmin()

	return a, nil
}

// initStore opens the configured persistence backend unless one was
// injected. The app owns the store lifetime either way and closes it during
// Shutdown.
func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		a.closers = append(a.closers, a.store.Close)
		return nil
	}

	switch a.cfg.Store.Driver {
	case config.StorePostgres:
		st, err := postgres.NewStore(ctx, a.cfg.Store.PostgresDSN, a.providers.Embeddings, a.log)
		if err != nil {
			return err
		}
		a.store = st
	default:
		path := a.cfg.Store.SQLitePath
		if path == "" {
			path = DefaultSQLitePath
		}
		st, err := sqlite.Open(ctx, path)
		if err != nil {
			return err
		}
		a.store = st
	}

	a.closers = append(a.closers, a.store.Close)
	return nil
}

// initNotifier assembles the reminder delivery sinks. The log sink is always
// present so no reminder is ever silently lost.
func (a *App) initNotifier() error {
	sinks := []notify.Sink{&notify.LogSink{Log: a.log}}

	if a.providers.TTS != nil {
		sinks = append(sinks, &notify.SpeakerSink{Speaker: a.providers.TTS})
	}

	if a.cfg.Discord.Token != "" {
		ds, err := notify.NewDiscordSink(a.cfg.Discord.Token, a.cfg.Discord.ChannelID)
		if err != nil {
			return err
		}
		sinks = append(sinks, ds)
		a.closers = append(a.closers, ds.Close)
		a.log.Info("discord notifications enabled", "channel", a.cfg.Discord.ChannelID)
	}

	a.notifier = notify.New(a.log, sinks...)
	return nil
}

// initTimer builds the pomodoro timer and hooks completion announcements
// into the notifier.
func (a *App) initTimer() {
	a.timer = focus.NewTimer(focus.Config{
		FocusDuration:  a.cfg.Focus.FocusDuration.Std(),
		ShortBreak:     a.cfg.Focus.ShortBreak.Std(),
		LongBreak:      a.cfg.Focus.LongBreak.Std(),
		LongBreakEvery: a.cfg.Focus.LongBreakEvery,
		MinPersist:     a.cfg.Focus.MinPersist.Std(),
		Now:            a.now,
	}, a.store, a.log)

	a.timer.OnTick = func(ev focus.TickEvent) {
		a.log.Debug("timer tick", "state", ev.State, "remaining", ev.Remaining)
	}

	a.timer.OnComplete = func(ev focus.CompletionEvent) {
		ctx := context.Background()
		switch ev.State {
		case focus.StateFocus:
			a.metrics.RecordFocusSession(ctx, "completed")
			msg := "Focus session complete. Time for a break."
			if ev.LongBreakNext {
				msg = "Focus session complete. You've earned a long break."
			}
			a.notifier.Notify(ctx, msg)
		case focus.StateBreak:
			a.notifier.Notify(ctx, "Break's over. Ready to focus?")
		}
	}
}

// initAdmin builds the health-and-metrics HTTP server when an address is
// configured.
func (a *App) initAdmin() {
	if a.cfg.Server.ListenAddr == "" {
		return
	}

	mux := http.NewServeMux()
	health.New(health.StoreChecker("store", a.store)).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	a.admin = &http.Server{
		Addr:    a.cfg.Server.ListenAddr,
		Handler: observe.Middleware(a.metrics)(mux),
	}
}

// Run starts the capture source and the listen loop and blocks until ctx is
// cancelled or the audio source fails. The reminder scheduler and the admin
// server run alongside for the same span.
func (a *App) Run(ctx context.Context) error {
	if err := a.source.Start(ctx); err != nil {
		return fmt.Errorf("app: start capture: %w", err)
	}

	a.scheduler.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.assistant.Run(gctx, a.source.Frames())
	})

	g.Go(func() error {
		a.drainSourceErrs(gctx)
		return nil
	})

	if a.admin != nil {
		admin := a.admin
		g.Go(func() error {
			a.log.Info("admin server listening", "addr", admin.Addr)
			if err := admin.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("app: admin server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), adminShutdownTimeout)
			defer cancel()
			return admin.Shutdown(sctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return a.source.Stop()
	})

	a.log.Info("assistant running", "wake_word", a.gate.WakeWord())

	err := g.Wait()
	a.scheduler.Stop()
	a.stopTimer()
	if ctx.Err() != nil {
		// The source closing mid-record is expected during a cancelled
		// shutdown, not a failure.
		if err == nil || errors.Is(err, listen.ErrSourceClosed) {
			return ctx.Err()
		}
	}
	return err
}

// stopTimer halts a countdown left running at shutdown so partial focus
// progress is persisted rather than lost.
func (a *App) stopTimer() {
	ctx, cancel := context.WithTimeout(context.Background(), adminShutdownTimeout)
	defer cancel()
	if out := a.timer.Stop(ctx); out.WasRunning {
		a.log.Info("stopped running timer at shutdown",
			"state", out.State, "elapsed", out.Elapsed, "persisted", out.Persisted)
	}
}

// drainSourceErrs surfaces capture process failures in the log. The frame
// channel closing is what actually ends the loop.
func (a *App) drainSourceErrs(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-a.source.Errs():
			if !ok {
				return
			}
			a.log.Warn("capture error", "err", err)
		}
	}
}

// Shutdown tears down all subsystems in order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		a.log.Info("shutting down", "closers", len(a.closers))

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				a.log.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				a.log.Warn("closer error", "index", i, "err", err)
			}
		}

		a.log.Info("shutdown complete")
	})
	return shutdownErr
}
