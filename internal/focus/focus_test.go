package focus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/arthur-assist/arthur/internal/store"
)

// fakeClock is a thread-safe manual clock; the countdown goroutine reads it
// on every tick.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestTimer(t *testing.T) (*Timer, *fakeClock, *store.MemStore, chan CompletionEvent) {
	t.Helper()
	clock := &fakeClock{now: time.Now()}
	st := store.NewMemStore()
	timer := NewTimer(Config{Tick: time.Millisecond, Now: clock.Now}, st, nil)

	events := make(chan CompletionEvent, 16)
	timer.OnComplete = func(e CompletionEvent) { events <- e }

	t.Cleanup(func() { timer.Stop(context.Background()) })
	return timer, clock, st, events
}

func waitEvent(t *testing.T, events chan CompletionEvent) CompletionEvent {
	t.Helper()
	select {
	case e := <-events:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no completion event")
		return CompletionEvent{}
	}
}

func stats(t *testing.T, st *store.MemStore) store.StudyStats {
	t.Helper()
	s, err := st.StudyStats(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("StudyStats: %v", err)
	}
	return s
}

func TestEarlyStopAfterRealWorkIsPersisted(t *testing.T) {
	t.Parallel()
	timer, clock, st, _ := newTestTimer(t)
	ctx := context.Background()

	out := timer.StartFocus(ctx, "linear algebra", 0)
	if !out.Started || out.Duration != DefaultFocusDuration {
		t.Fatalf("StartFocus = %+v", out)
	}

	clock.advance(6 * time.Minute)
	stop := timer.Stop(ctx)
	if !stop.WasRunning || stop.State != StateFocus {
		t.Fatalf("Stop = %+v", stop)
	}
	if !stop.Persisted {
		t.Error("six-minute focus stop not persisted")
	}
	if stop.Elapsed != 6*time.Minute {
		t.Errorf("Elapsed = %v, want 6m", stop.Elapsed)
	}

	got := stats(t, st)
	if got.TotalSessions != 1 || got.CompletedSessions != 0 {
		t.Errorf("stats = %+v, want one incomplete session", got)
	}
	if got.TotalMinutes != 6 {
		t.Errorf("TotalMinutes = %d, want 6", got.TotalMinutes)
	}
	if sessions := st.Sessions(); len(sessions) != 1 || sessions[0].Subject != "linear algebra" {
		t.Errorf("sessions = %+v, want one with the started subject", sessions)
	}
}

func TestFalseStartLeavesNoTrace(t *testing.T) {
	t.Parallel()
	timer, clock, st, _ := newTestTimer(t)
	ctx := context.Background()

	timer.StartFocus(ctx, "", 0)
	clock.advance(3 * time.Minute)
	stop := timer.Stop(ctx)
	if stop.Persisted {
		t.Error("three-minute false start was persisted")
	}
	if got := stats(t, st); got.TotalSessions != 0 {
		t.Errorf("stats = %+v, want empty", got)
	}
}

func TestCompletionPersistsAndCounts(t *testing.T) {
	t.Parallel()
	timer, clock, st, events := newTestTimer(t)
	ctx := context.Background()

	timer.StartFocus(ctx, "", 0)
	clock.advance(DefaultFocusDuration)

	e := waitEvent(t, events)
	if e.State != StateFocus || e.CompletedFocus != 1 {
		t.Fatalf("event = %+v", e)
	}
	if e.LongBreakNext {
		t.Error("first completion should not earn the long break")
	}

	got := stats(t, st)
	if got.CompletedSessions != 1 || got.TotalMinutes != 25 {
		t.Errorf("stats = %+v, want one completed 25-minute session", got)
	}
	if s := timer.Status(); s.State != StateIdle || s.CompletedFocus != 1 {
		t.Errorf("Status = %+v", s)
	}
}

func TestFourthCompletionEarnsLongBreak(t *testing.T) {
	t.Parallel()
	timer, clock, _, events := newTestTimer(t)
	ctx := context.Background()

	var last CompletionEvent
	for i := 0; i < 4; i++ {
		if out := timer.StartFocus(ctx, "", 0); !out.Started {
			t.Fatalf("StartFocus #%d declined", i+1)
		}
		clock.advance(DefaultFocusDuration)
		last = waitEvent(t, events)
	}
	if !last.LongBreakNext {
		t.Error("fourth completion did not earn the long break")
	}

	out := timer.StartBreak(ctx)
	if !out.Started || !out.LongBreak {
		t.Fatalf("StartBreak = %+v, want long break", out)
	}
	if out.Duration != DefaultLongBreak {
		t.Errorf("Duration = %v, want %v", out.Duration, DefaultLongBreak)
	}
}

func TestBreakIsNeverPersisted(t *testing.T) {
	t.Parallel()
	timer, clock, st, events := newTestTimer(t)
	ctx := context.Background()

	if out := timer.StartBreak(ctx); !out.Started || out.Duration != DefaultShortBreak {
		t.Fatalf("StartBreak = %+v", out)
	}
	clock.advance(DefaultShortBreak)
	e := waitEvent(t, events)
	if e.State != StateBreak {
		t.Fatalf("event = %+v", e)
	}
	if got := stats(t, st); got.TotalSessions != 0 {
		t.Errorf("break completion recorded a session: %+v", got)
	}

	// Stopped breaks leave nothing either.
	timer.StartBreak(ctx)
	clock.advance(4 * time.Minute)
	if stop := timer.Stop(ctx); stop.Persisted {
		t.Error("stopped break was persisted")
	}
}

func TestDeclinedStartsAndIdleStop(t *testing.T) {
	t.Parallel()
	timer, _, _, _ := newTestTimer(t)
	ctx := context.Background()

	if stop := timer.Stop(ctx); stop.WasRunning {
		t.Error("Stop on idle timer reported a running countdown")
	}

	timer.StartFocus(ctx, "", 0)
	if out := timer.StartFocus(ctx, "", 0); out.Started {
		t.Error("second StartFocus was not declined")
	}
	if out := timer.StartBreak(ctx); out.Started {
		t.Error("StartBreak during focus was not declined")
	}
	if out := timer.StartFocus(ctx, "", 0); out.State != StateFocus {
		t.Errorf("declined outcome state = %v, want focus", out.State)
	}
}

func TestStopAfterDeadlineCountsAsCompletion(t *testing.T) {
	t.Parallel()
	// A huge tick keeps the countdown goroutine from noticing the deadline,
	// so the stop itself lands in the ran-out-but-unticked window.
	clock := &fakeClock{now: time.Now()}
	st := store.NewMemStore()
	timer := NewTimer(Config{Tick: time.Hour, Now: clock.Now}, st, nil)
	events := make(chan CompletionEvent, 1)
	timer.OnComplete = func(e CompletionEvent) { events <- e }
	ctx := context.Background()

	timer.StartFocus(ctx, "essay notes", 0)
	clock.advance(DefaultFocusDuration + time.Second)

	stop := timer.Stop(ctx)
	if !stop.WasRunning || !stop.Completed || !stop.Persisted {
		t.Fatalf("Stop = %+v, want a completed outcome", stop)
	}
	if stop.Elapsed != DefaultFocusDuration {
		t.Errorf("Elapsed = %v, want the full %v", stop.Elapsed, DefaultFocusDuration)
	}

	e := waitEvent(t, events)
	if e.State != StateFocus || e.CompletedFocus != 1 {
		t.Errorf("event = %+v", e)
	}

	got := stats(t, st)
	if got.CompletedSessions != 1 || got.TotalMinutes != 25 {
		t.Errorf("stats = %+v, want one completed 25-minute session", got)
	}
	if s := timer.Status(); s.CompletedFocus != 1 {
		t.Errorf("CompletedFocus = %d, want 1", s.CompletedFocus)
	}
}

func TestCustomDurationApplies(t *testing.T) {
	t.Parallel()
	timer, clock, st, events := newTestTimer(t)
	ctx := context.Background()

	out := timer.StartFocus(ctx, "", 50*time.Minute)
	if !out.Started || out.Duration != 50*time.Minute {
		t.Fatalf("StartFocus = %+v, want a 50-minute countdown", out)
	}
	clock.advance(50 * time.Minute)
	waitEvent(t, events)

	if got := stats(t, st); got.TotalMinutes != 50 {
		t.Errorf("TotalMinutes = %d, want 50", got.TotalMinutes)
	}
}

func TestMinuteTicksFire(t *testing.T) {
	t.Parallel()
	timer, clock, _, events := newTestTimer(t)
	ctx := context.Background()

	ticks := make(chan TickEvent, 64)
	timer.OnTick = func(e TickEvent) { ticks <- e }

	timer.StartFocus(ctx, "", 0)
	clock.advance(time.Minute)

	select {
	case e := <-ticks:
		if e.State != StateFocus {
			t.Errorf("tick state = %v, want focus", e.State)
		}
		if e.Remaining > DefaultFocusDuration-time.Minute {
			t.Errorf("tick remaining = %v, want at most %v", e.Remaining, DefaultFocusDuration-time.Minute)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no tick after the first minute elapsed")
	}

	clock.advance(DefaultFocusDuration)
	waitEvent(t, events)
}

func TestStatusCarriesSubjectAndResetClearsCount(t *testing.T) {
	t.Parallel()
	timer, clock, _, events := newTestTimer(t)
	ctx := context.Background()

	timer.StartFocus(ctx, "spanish verbs", 0)
	if s := timer.Status(); s.Subject != "spanish verbs" {
		t.Errorf("Status subject = %q, want the started subject", s.Subject)
	}
	clock.advance(DefaultFocusDuration)
	waitEvent(t, events)

	if s := timer.Status(); s.CompletedFocus != 1 {
		t.Fatalf("CompletedFocus = %d, want 1", s.CompletedFocus)
	}
	timer.ResetPomodoros()
	if s := timer.Status(); s.CompletedFocus != 0 {
		t.Errorf("CompletedFocus after reset = %d, want 0", s.CompletedFocus)
	}
}
