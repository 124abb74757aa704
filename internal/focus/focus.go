// Package focus implements the pomodoro-style study timer.
//
// A Timer runs at most one countdown at a time: a focus interval or a break.
// Focus intervals are persisted to the store when they finish, and also when
// they are stopped early after a meaningful amount of work; a stop in the
// first few minutes is treated as a false start and recorded nowhere. Breaks
// are never persisted. Every fourth completed focus interval earns the long
// break.
package focus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/arthur-assist/arthur/internal/store"
)

// Defaults follow the classic pomodoro schedule.
const (
	DefaultFocusDuration  = 25 * time.Minute
	DefaultShortBreak     = 5 * time.Minute
	DefaultLongBreak      = 15 * time.Minute
	DefaultLongBreakEvery = 4
	DefaultMinPersist     = 5 * time.Minute
	DefaultTick           = time.Second
)

// State of the timer.
type State int

const (
	StateIdle State = iota
	StateFocus
	StateBreak
)

// String implements fmt.Stringer for log output.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFocus:
		return "focus"
	case StateBreak:
		return "break"
	default:
		return "unknown"
	}
}

// StartOutcome reports what StartFocus or StartBreak did. A declined start is
// an outcome, not an error: the user asking twice is a conversation, not a
// fault.
type StartOutcome struct {
	// Started is false when a countdown was already running.
	Started bool

	// State is the timer state after the call.
	State State

	// Duration is the length of the started countdown. Zero when declined.
	Duration time.Duration

	// LongBreak is set by StartBreak when the long break was earned.
	LongBreak bool
}

// StopOutcome reports what Stop did.
type StopOutcome struct {
	// WasRunning is false when there was nothing to stop.
	WasRunning bool

	// State is the state that was stopped.
	State State

	// Elapsed is how far into the countdown the stop happened.
	Elapsed time.Duration

	// Persisted reports whether a focus session was recorded.
	Persisted bool

	// Completed reports that the countdown had already run out when Stop
	// arrived; the session was recorded as complete, not as an early stop.
	Completed bool
}

// Snapshot is the current timer status.
type Snapshot struct {
	State     State
	Subject   string
	Remaining time.Duration

	// CompletedFocus counts focus intervals completed since construction.
	CompletedFocus int
}

// CompletionEvent is passed to the completion callback when a countdown runs
// to the end.
type CompletionEvent struct {
	State State

	// CompletedFocus is the total after this completion.
	CompletedFocus int

	// LongBreakNext is set when the finished focus interval earned the long
	// break.
	LongBreakNext bool
}

// TickEvent is passed to the tick callback when the countdown crosses a
// whole-minute boundary.
type TickEvent struct {
	State     State
	Remaining time.Duration
}

// Config holds the timer parameters.
type Config struct {
	FocusDuration  time.Duration
	ShortBreak     time.Duration
	LongBreak      time.Duration
	LongBreakEvery int

	// MinPersist is the least focus time worth recording on an early stop.
	MinPersist time.Duration

	// Tick is how often the countdown re-checks the clock.
	Tick time.Duration

	// Now overrides the clock in tests.
	Now func() time.Time
}

func (c *Config) applyDefaults() {
	if c.FocusDuration <= 0 {
		c.FocusDuration = DefaultFocusDuration
	}
	if c.ShortBreak <= 0 {
		c.ShortBreak = DefaultShortBreak
	}
	if c.LongBreak <= 0 {
		c.LongBreak = DefaultLongBreak
	}
	if c.LongBreakEvery <= 0 {
		c.LongBreakEvery = DefaultLongBreakEvery
	}
	if c.MinPersist <= 0 {
		c.MinPersist = DefaultMinPersist
	}
	if c.Tick <= 0 {
		c.Tick = DefaultTick
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Timer is the pomodoro state machine. All methods are safe for concurrent
// use; the countdown itself runs on a single internal goroutine.
type Timer struct {
	cfg   Config
	store store.Store
	log   *slog.Logger

	// OnComplete, when set, is called from the countdown goroutine whenever
	// an interval runs to the end. Set it before the first Start call.
	OnComplete func(CompletionEvent)

	// OnTick, when set, is called from the countdown goroutine each time the
	// remaining time crosses a whole-minute boundary.
	OnTick func(TickEvent)

	mu        sync.Mutex
	state     State
	subject   string
	startedAt time.Time
	deadline  time.Time
	completed int
	stop      chan struct{}
	done      chan struct{}
}

// NewTimer builds an idle Timer.
func NewTimer(cfg Config, st store.Store, log *slog.Logger) *Timer {
	cfg.applyDefaults()
	if log == nil {
		log = slog.Default()
	}
	return &Timer{cfg: cfg, store: st, log: log}
}

// StartFocus begins a focus countdown on the given subject, which may be
// empty. A non-positive duration falls back to the configured one. Declined
// when anything is running.
func (t *Timer) StartFocus(ctx context.Context, subject string, d time.Duration) StartOutcome {
	if d <= 0 {
		d = t.cfg.FocusDuration
	}
	return t.start(ctx, StateFocus, subject, d, false)
}

// StartBreak begins a break countdown, choosing the long break when the
// completed-focus count has earned it. Declined when anything is running.
func (t *Timer) StartBreak(ctx context.Context) StartOutcome {
	t.mu.Lock()
	long := t.completed > 0 && t.completed%t.cfg.LongBreakEvery == 0
	t.mu.Unlock()

	d := t.cfg.ShortBreak
	if long {
		d = t.cfg.LongBreak
	}
	return t.start(ctx, StateBreak, "", d, long)
}

func (t *Timer) start(ctx context.Context, state State, subject string, d time.Duration, long bool) StartOutcome {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateIdle {
		return StartOutcome{Started: false, State: t.state}
	}

	now := t.cfg.Now()
	t.state = state
	t.subject = subject
	t.startedAt = now
	t.deadline = now.Add(d)
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	go t.run(ctx, state, t.stop, t.done)

	t.log.Info("countdown started", "state", state, "duration", d)
	return StartOutcome{Started: true, State: state, Duration: d, LongBreak: long}
}

// run is the single countdown goroutine. It owns completion; early stops are
// handled by Stop under the mutex after the goroutine acknowledges.
func (t *Timer) run(ctx context.Context, state State, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.cfg.Tick)
	defer ticker.Stop()

	lastMinute := -1

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.mu.Lock()
			if t.state != state {
				// Stop won the race; nothing left to do.
				t.mu.Unlock()
				return
			}
			if remaining := t.deadline.Sub(t.cfg.Now()); remaining > 0 {
				t.mu.Unlock()
				if m := int(remaining.Minutes()); m != lastMinute {
					if lastMinute >= 0 && t.OnTick != nil {
						t.OnTick(TickEvent{State: state, Remaining: remaining})
					}
					lastMinute = m
				}
				continue
			}
			// Transition under the lock so a concurrent Stop sees idle
			// and cannot double-record the session.
			started := t.startedAt
			subject := t.subject
			elapsed := t.deadline.Sub(t.startedAt)
			t.state = StateIdle
			if state == StateFocus {
				t.completed++
			}
			completed := t.completed
			t.mu.Unlock()

			t.complete(ctx, state, subject, started, elapsed, completed)
			return
		}
	}
}

// complete finishes a countdown that ran to the end. State has already been
// reset by the caller.
func (t *Timer) complete(ctx context.Context, state State, subject string, started time.Time, elapsed time.Duration, completed int) {
	long := false
	if state == StateFocus {
		long = completed%t.cfg.LongBreakEvery == 0
		t.persist(ctx, subject, started, started.Add(elapsed), elapsed, true)
	}
	t.log.Info("countdown completed", "state", state, "completed_focus", completed)

	if t.OnComplete != nil {
		t.OnComplete(CompletionEvent{
			State:          state,
			CompletedFocus: completed,
			LongBreakNext:  long,
		})
	}
}

// Stop halts the running countdown. An early focus stop that lasted at least
// MinPersist is recorded as an incomplete session; shorter stops and break
// stops leave no trace.
func (t *Timer) Stop(ctx context.Context) StopOutcome {
	t.mu.Lock()
	if t.state == StateIdle {
		t.mu.Unlock()
		return StopOutcome{WasRunning: false, State: StateIdle}
	}
	state := t.state
	subject := t.subject
	started := t.startedAt
	total := t.deadline.Sub(t.startedAt)
	elapsed := t.cfg.Now().Sub(t.startedAt)
	stop, done := t.stop, t.done
	t.state = StateIdle
	t.mu.Unlock()

	close(stop)
	<-done

	// A stop that lands after the deadline but before the next tick caught a
	// countdown that already ran out. That is a completion; hand it the full
	// completion path rather than losing the session.
	if state == StateFocus && elapsed >= total {
		t.mu.Lock()
		t.completed++
		completed := t.completed
		t.mu.Unlock()

		t.complete(ctx, state, subject, started, total, completed)
		t.log.Info("countdown stopped", "state", state, "elapsed", total, "persisted", true)
		return StopOutcome{WasRunning: true, State: state, Elapsed: total, Persisted: true, Completed: true}
	}

	persisted := false
	if state == StateFocus && elapsed >= t.cfg.MinPersist {
		t.persist(ctx, subject, started, started.Add(elapsed), elapsed, false)
		persisted = true
	}
	t.log.Info("countdown stopped", "state", state, "elapsed", elapsed, "persisted", persisted)
	return StopOutcome{WasRunning: true, State: state, Elapsed: elapsed, Persisted: persisted}
}

func (t *Timer) persist(ctx context.Context, subject string, started, ended time.Time, elapsed time.Duration, completedFull bool) {
	if t.store == nil {
		return
	}
	_, err := t.store.SaveStudySession(ctx, store.StudySession{
		Kind:      store.SessionFocus,
		Subject:   subject,
		Minutes:   int(elapsed.Minutes()),
		Completed: completedFull,
		StartedAt: started,
		EndedAt:   ended,
	})
	if err != nil {
		t.log.Error("saving study session failed", "error", err)
	}
}

// Status returns the current state and remaining time.
func (t *Timer) Status() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Snapshot{State: t.state, CompletedFocus: t.completed}
	if t.state != StateIdle {
		s.Subject = t.subject
		if remaining := t.deadline.Sub(t.cfg.Now()); remaining > 0 {
			s.Remaining = remaining
		}
	}
	return s
}

// ResetPomodoros zeroes the completed-focus count, restarting the long-break
// cycle.
func (t *Timer) ResetPomodoros() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completed = 0
}
