// Package reminder schedules and delivers time-based reminders.
//
// A Scheduler polls the store on a fixed interval. Each cycle fetches every
// reminder that has come due, delivers it through the notifier, and marks it
// done in the same cycle, so a reminder is announced exactly once even though
// polling never stops. Recurring reminders are re-inserted with their next
// occurrence at delivery time.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/arthur-assist/arthur/internal/notify"
	"github.com/arthur-assist/arthur/internal/observe"
	"github.com/arthur-assist/arthur/internal/store"
)

// DefaultInterval is how often due reminders are checked.
const DefaultInterval = 30 * time.Second

// Config holds the scheduler parameters.
type Config struct {
	// Interval between due checks.
	Interval time.Duration

	// Metrics receives a delivery count per reminder. Optional.
	Metrics *observe.Metrics

	// Now overrides the clock in tests.
	Now func() time.Time
}

func (c *Config) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Scheduler polls for due reminders in the background. Start and Stop are
// idempotent and safe for concurrent use.
type Scheduler struct {
	cfg      Config
	store    store.Store
	notifier *notify.Notifier
	log      *slog.Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewScheduler builds a stopped Scheduler.
func NewScheduler(cfg Config, st store.Store, notifier *notify.Notifier, log *slog.Logger) *Scheduler {
	cfg.applyDefaults()
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{cfg: cfg, store: st, notifier: notifier, log: log}
}

// Start launches the polling goroutine. Calling Start on a running scheduler
// is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(ctx, s.stop, s.done)
	s.log.Info("reminder scheduler started", "interval", s.cfg.Interval)
}

// Stop halts polling and waits for any in-flight cycle to finish. Calling
// Stop on a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	<-done
	s.log.Info("reminder scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	// Deliver anything that came due while we were not running.
	s.deliverDue(ctx)

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.deliverDue(ctx)
		}
	}
}

// deliverDue runs one poll cycle. Cycles are sequential: the next tick cannot
// start a cycle while this one is still delivering.
func (s *Scheduler) deliverDue(ctx context.Context) {
	now := s.cfg.Now()
	due, err := s.store.DueReminders(ctx, now)
	if err != nil {
		s.log.Error("due reminder check failed", "error", err)
		return
	}

	for _, r := range due {
		s.notifier.Notify(ctx, fmt.Sprintf("Reminder: %s", r.Text))
		s.cfg.Metrics.RecordReminderDelivered(ctx)

		if err := s.store.CompleteReminder(ctx, r.ID); err != nil {
			s.log.Error("marking reminder done failed", "id", r.ID, "error", err)
			continue
		}
		s.log.Info("reminder delivered", "id", r.ID, "text", r.Text)

		if next := r.NextDue(); !next.IsZero() {
			if _, err := s.store.AddReminder(ctx, store.Reminder{
				Text:      r.Text,
				DueAt:     next,
				Recurring: r.Recurring,
			}); err != nil {
				s.log.Error("rescheduling recurring reminder failed", "id", r.ID, "error", err)
			}
		}
	}
}

// Add parses spoken timing out of text and stores a reminder. The returned
// reminder carries the resolved due time for confirmation back to the user.
func (s *Scheduler) Add(ctx context.Context, text string) (store.Reminder, error) {
	when, recurring, rest, err := ParseWhen(text, s.cfg.Now())
	if err != nil {
		return store.Reminder{}, err
	}
	r, err := s.store.AddReminder(ctx, store.Reminder{
		Text:      rest,
		DueAt:     when,
		Recurring: recurring,
	})
	if err != nil {
		return store.Reminder{}, fmt.Errorf("reminder: add: %w", err)
	}
	return r, nil
}

// Pending lists all undelivered reminders, soonest first.
func (s *Scheduler) Pending(ctx context.Context) ([]store.Reminder, error) {
	return s.store.PendingReminders(ctx)
}

// Cancel removes a pending reminder.
func (s *Scheduler) Cancel(ctx context.Context, id int64) error {
	return s.store.CancelReminder(ctx, id)
}
