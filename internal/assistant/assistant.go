// Package assistant runs the main interaction loop: record an utterance,
// transcribe it, pass it through the wake-word gate, and act on whatever
// comes out.
//
// Provider failures never stop the loop. A failed transcription is dropped,
// a failed reasoning call is answered with an apology, and a failed speech
// synthesis is logged; the microphone keeps listening through all of it.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/arthur-assist/arthur/internal/assistant/brain"
	"github.com/arthur-assist/arthur/internal/focus"
	"github.com/arthur-assist/arthur/internal/gate"
	"github.com/arthur-assist/arthur/internal/listen"
	"github.com/arthur-assist/arthur/internal/observe"
	"github.com/arthur-assist/arthur/internal/reminder"
	"github.com/arthur-assist/arthur/internal/schedule"
	"github.com/arthur-assist/arthur/internal/store"
	"github.com/arthur-assist/arthur/pkg/audio"
	"github.com/arthur-assist/arthur/pkg/provider/stt"
	"github.com/arthur-assist/arthur/pkg/provider/tts"
)

// Config holds loop-level settings.
type Config struct {
	// CalibrationWindow is how long to sample ambient noise before the loop
	// starts. Zero skips calibration and keeps the configured threshold.
	CalibrationWindow time.Duration

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Assistant owns the interaction loop and the command handlers.
type Assistant struct {
	cfg       Config
	recorder  *listen.Recorder
	gate      *gate.Gate
	stt       stt.Transcriber
	speaker   tts.Speaker
	brain     *brain.Brain
	reminders *reminder.Scheduler
	timer     *focus.Timer
	store     store.Store
	metrics   *observe.Metrics
	log       *slog.Logger
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithMetrics wires the loop's OTel instruments.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *Assistant) { a.metrics = m }
}

// WithClock overrides the wall clock, used by tests.
func WithClock(now func() time.Time) Option {
	return func(a *Assistant) { a.cfg.Now = now }
}

// New assembles an Assistant from its parts.
func New(
	cfg Config,
	recorder *listen.Recorder,
	g *gate.Gate,
	transcriber stt.Transcriber,
	speaker tts.Speaker,
	b *brain.Brain,
	reminders *reminder.Scheduler,
	timer *focus.Timer,
	st store.Store,
	log *slog.Logger,
	opts ...Option,
) *Assistant {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	a := &Assistant{
		cfg:       cfg,
		recorder:  recorder,
		gate:      g,
		stt:       transcriber,
		speaker:   speaker,
		brain:     b,
		reminders: reminders,
		timer:     timer,
		store:     st,
		log:       log,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Run drives the interaction loop until ctx is cancelled or the audio source
// closes.
func (a *Assistant) Run(ctx context.Context, frames <-chan audio.Frame) error {
	if a.cfg.CalibrationWindow > 0 {
		if err := a.recorder.Calibrate(ctx, frames, a.cfg.CalibrationWindow); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("assistant: calibrate: %w", err)
		}
	}

	for {
		u, err := a.recorder.Record(ctx, frames)
		switch {
		case errors.Is(err, context.Canceled):
			return nil
		case errors.Is(err, listen.ErrSourceClosed):
			return err
		case err != nil:
			return fmt.Errorf("assistant: record: %w", err)
		}

		a.handleUtterance(ctx, u)
	}
}

func (a *Assistant) handleUtterance(ctx context.Context, u listen.Utterance) {
	start := time.Now()
	result, err := a.stt.Transcribe(ctx, u.Samples, u.SampleRate)
	if a.metrics != nil {
		a.metrics.STTDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		a.log.Error("transcription failed", "error", err, "duration", u.Duration)
		a.metrics.RecordProviderError(ctx, "stt", "transcribe")
		return
	}
	text := strings.TrimSpace(result.Text)
	if text == "" {
		return
	}
	a.log.Debug("transcribed", "text", text, "confidence", result.Confidence)

	wasActive := a.gate.Active()
	d := a.gate.Evaluate(text)
	a.metrics.RecordUtterance(ctx, d.Status.String())
	a.trackConversation(ctx, wasActive)

	switch d.Status {
	case gate.StatusIgnored, gate.StatusExpired:
		return
	case gate.StatusWoken:
		a.speak(ctx, brain.Greeting(a.cfg.Now()))
		a.gate.Touch()
	case gate.StatusEnded:
		a.speak(ctx, brain.Farewell())
	case gate.StatusCommand:
		reply := a.handleCommand(ctx, d.Command)
		a.speak(ctx, reply)
		a.gate.Touch()
	}
	a.trackConversation(ctx, a.gate.Active())
}

// trackConversation keeps the active-conversation gauge in step with the
// gate. The gauge moves only on transitions.
func (a *Assistant) trackConversation(ctx context.Context, before bool) {
	if a.metrics == nil {
		return
	}
	after := a.gate.Active()
	switch {
	case !before && after:
		a.metrics.ConversationActive.Add(ctx, 1)
	case before && !after:
		a.metrics.ConversationActive.Add(ctx, -1)
	}
}

// handleCommand routes one command to its handler and returns the spoken
// reply. Every exchange is remembered, command or chat alike.
func (a *Assistant) handleCommand(ctx context.Context, command string) string {
	intent := brain.ParseIntent(command)
	a.log.Info("command", "intent", intent.Kind, "text", command)
	a.metrics.RecordCommand(ctx, intent.Kind.String())

	var reply string
	switch intent.Kind {
	case brain.KindAddReminder:
		reply = a.addReminder(ctx, intent.Payload)
	case brain.KindListReminders:
		reply = a.listReminders(ctx)
	case brain.KindCancelReminder:
		reply = a.cancelReminder(ctx)
	case brain.KindAddTask:
		reply = a.addTask(ctx, intent.Payload)
	case brain.KindListTasks:
		reply = a.listTasks(ctx)
	case brain.KindCompleteTask:
		reply = a.completeTask(ctx, intent.Payload)
	case brain.KindStartFocus:
		reply = a.startFocus(ctx, intent.Payload, time.Duration(intent.Minutes)*time.Minute)
	case brain.KindStartBreak:
		reply = a.startBreak(ctx)
	case brain.KindStopTimer:
		reply = a.stopTimer(ctx)
	case brain.KindTimerStatus:
		reply = a.timerStatus()
	case brain.KindStudyStats:
		reply = a.studyStats(ctx)
	case brain.KindTime:
		reply = fmt.Sprintf("It's %s.", a.cfg.Now().Format("3:04 PM"))
	case brain.KindAddClass:
		reply = a.addClass(ctx, intent.Payload)
	case brain.KindViewSchedule:
		reply = a.viewSchedule(ctx, intent.Payload)
	case brain.KindNextClass:
		reply = a.nextClass(ctx)
	case brain.KindAddAssignment:
		reply = a.addAssignment(ctx, intent.Payload)
	case brain.KindViewAssignments:
		reply = a.viewAssignments(ctx, intent.Payload)
	case brain.KindCompleteAssignment:
		reply = a.completeAssignment(ctx, intent.Payload)
	default:
		start := time.Now()
		reply = a.brain.Think(ctx, command)
		if a.metrics != nil {
			a.metrics.ThinkDuration.Record(ctx, time.Since(start).Seconds())
		}
	}

	a.brain.Remember(ctx, command, reply)
	return reply
}

func (a *Assistant) addReminder(ctx context.Context, payload string) string {
	if payload == "" {
		return "What should I remind you about, and when?"
	}
	r, err := a.reminders.Add(ctx, payload)
	if errors.Is(err, reminder.ErrNoTime) {
		return "When should I remind you? Try something like, in twenty minutes, or, at 3pm."
	}
	if err != nil {
		a.log.Error("adding reminder failed", "error", err)
		return "Sorry, I couldn't save that reminder."
	}

	text := r.Text
	if text == "" {
		text = "that"
	}
	when := humanizeTime(r.DueAt, a.cfg.Now())
	if r.Recurring != store.RecurNone {
		return fmt.Sprintf("Okay, I'll remind you to %s %s, repeating %s.", text, when, r.Recurring)
	}
	return fmt.Sprintf("Okay, I'll remind you to %s %s.", text, when)
}

func (a *Assistant) listReminders(ctx context.Context) string {
	pending, err := a.reminders.Pending(ctx)
	if err != nil {
		a.log.Error("listing reminders failed", "error", err)
		return "Sorry, I couldn't check your reminders."
	}
	if len(pending) == 0 {
		return "You have no pending reminders."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You have %d pending %s. ", len(pending), plural(len(pending), "reminder"))
	for i, r := range pending {
		if i >= 5 {
			fmt.Fprintf(&sb, "And %d more.", len(pending)-5)
			break
		}
		fmt.Fprintf(&sb, "%s, %s. ", capitalize(r.Text), humanizeTime(r.DueAt, a.cfg.Now()))
	}
	return strings.TrimSpace(sb.String())
}

func (a *Assistant) cancelReminder(ctx context.Context) string {
	pending, err := a.reminders.Pending(ctx)
	if err != nil {
		a.log.Error("listing reminders failed", "error", err)
		return "Sorry, I couldn't check your reminders."
	}
	if len(pending) == 0 {
		return "There's nothing to cancel."
	}

	next := pending[0]
	if err := a.reminders.Cancel(ctx, next.ID); err != nil {
		a.log.Error("cancelling reminder failed", "id", next.ID, "error", err)
		return "Sorry, I couldn't cancel that."
	}
	return fmt.Sprintf("Cancelled your reminder to %s.", next.Text)
}

func (a *Assistant) addTask(ctx context.Context, payload string) string {
	if payload == "" {
		return "What should I add to your list?"
	}
	t, err := a.store.AddTask(ctx, payload, "")
	if err != nil {
		a.log.Error("adding task failed", "error", err)
		return "Sorry, I couldn't save that task."
	}
	return fmt.Sprintf("Added %s to your list.", t.Description)
}

func (a *Assistant) listTasks(ctx context.Context) string {
	tasks, err := a.store.ListTasks(ctx, false)
	if err != nil {
		a.log.Error("listing tasks failed", "error", err)
		return "Sorry, I couldn't check your list."
	}
	if len(tasks) == 0 {
		return "Your list is clear. Nice."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You have %d open %s. ", len(tasks), plural(len(tasks), "task"))
	for i, t := range tasks {
		if i >= 7 {
			fmt.Fprintf(&sb, "And %d more.", len(tasks)-7)
			break
		}
		fmt.Fprintf(&sb, "%s. ", capitalize(t.Description))
	}
	return strings.TrimSpace(sb.String())
}

func (a *Assistant) completeTask(ctx context.Context, payload string) string {
	tasks, err := a.store.ListTasks(ctx, false)
	if err != nil {
		a.log.Error("listing tasks failed", "error", err)
		return "Sorry, I couldn't check your list."
	}

	needle := strings.ToLower(payload)
	for _, t := range tasks {
		desc := strings.ToLower(t.Description)
		if strings.Contains(desc, needle) || strings.Contains(needle, desc) {
			if err := a.store.CompleteTask(ctx, t.ID); err != nil {
				a.log.Error("completing task failed", "id", t.ID, "error", err)
				return "Sorry, I couldn't mark that one done."
			}
			return fmt.Sprintf("Nice work. %s is done.", capitalize(t.Description))
		}
	}
	return "I couldn't find that on your list."
}

func (a *Assistant) startFocus(ctx context.Context, subject string, d time.Duration) string {
	out := a.timer.StartFocus(ctx, subject, d)
	if !out.Started {
		return fmt.Sprintf("A %s is already running.", describeState(out.State))
	}
	if subject != "" {
		return fmt.Sprintf("Focus session started, %d minutes on %s. Good luck!", int(out.Duration.Minutes()), subject)
	}
	return fmt.Sprintf("Focus session started, %d minutes. Good luck!", int(out.Duration.Minutes()))
}

func (a *Assistant) startBreak(ctx context.Context) string {
	out := a.timer.StartBreak(ctx)
	if !out.Started {
		return fmt.Sprintf("A %s is already running.", describeState(out.State))
	}
	if out.LongBreak {
		return fmt.Sprintf("You've earned the long one. %d minutes, enjoy.", int(out.Duration.Minutes()))
	}
	return fmt.Sprintf("Break time, %d minutes.", int(out.Duration.Minutes()))
}

func (a *Assistant) stopTimer(ctx context.Context) string {
	out := a.timer.Stop(ctx)
	if !out.WasRunning {
		return "No timer is running."
	}
	// A stop that landed on an already-finished countdown was counted by the
	// completion callback; don't count it twice here.
	if out.State == focus.StateFocus && !out.Completed {
		result := "discarded"
		if out.Persisted {
			result = "stopped"
		}
		a.metrics.RecordFocusSession(ctx, result)
	}

	minutes := int(out.Elapsed.Minutes())
	switch {
	case out.State == focus.StateBreak:
		return "Break's over, back to it."
	case out.Completed:
		return fmt.Sprintf("That one ran the full %d %s. Logged as complete.", minutes, plural(minutes, "minute"))
	case out.Persisted:
		return fmt.Sprintf("Stopped after %d %s. I've logged it as a partial session.", minutes, plural(minutes, "minute"))
	default:
		return "Stopped. That one was too short to count."
	}
}

func (a *Assistant) timerStatus() string {
	s := a.timer.Status()
	if s.State == focus.StateIdle {
		return "No timer is running."
	}
	what := describeState(s.State)
	if s.State == focus.StateFocus && s.Subject != "" {
		what = fmt.Sprintf("%s on %s", what, s.Subject)
	}
	minutes := int(s.Remaining.Round(time.Minute).Minutes())
	if minutes == 0 {
		return fmt.Sprintf("Less than a minute left in your %s.", what)
	}
	return fmt.Sprintf("%d %s left in your %s.", minutes, plural(minutes, "minute"), what)
}

func (a *Assistant) studyStats(ctx context.Context) string {
	now := a.cfg.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	stats, err := a.store.StudyStats(ctx, today)
	if err != nil {
		a.log.Error("study stats failed", "error", err)
		return "Sorry, I couldn't pull up your study stats."
	}
	if stats.TotalSessions == 0 {
		return "No study sessions on record yet. Want to start one?"
	}
	return fmt.Sprintf(
		"Today: %d %s for %d %s. All time: %d sessions, %d of them completed, %d minutes total.",
		stats.SessionsToday, plural(stats.SessionsToday, "session"),
		stats.MinutesToday, plural(stats.MinutesToday, "minute"),
		stats.TotalSessions, stats.CompletedSessions, stats.TotalMinutes,
	)
}

func (a *Assistant) addClass(ctx context.Context, payload string) string {
	if payload == "" {
		return "Tell me the class, like: add class chemistry on monday wednesday at 10am."
	}
	c, err := schedule.ParseClassPhrase(payload)
	if err != nil {
		return "Say it like: chemistry on monday wednesday at 10am, optionally with a room."
	}
	c, err = a.store.AddClass(ctx, c)
	if err != nil {
		a.log.Error("adding class failed", "error", err)
		return "Sorry, I couldn't save that class."
	}
	reply := fmt.Sprintf("Added %s on %s at %s", c.Title, schedule.FormatDays(c.Days), c.Start)
	if c.Location != "" {
		reply += " in " + c.Location
	}
	return reply + "."
}

func (a *Assistant) viewSchedule(ctx context.Context, payload string) string {
	var day, dayName string
	for _, w := range strings.Fields(payload) {
		w = strings.Trim(w, ".,?!")
		if d := schedule.ParseDays(w); len(d) == 1 {
			day, dayName = d, schedule.FormatDays(d)
			break
		}
	}

	classes, err := a.store.ListClasses(ctx, day)
	if err != nil {
		a.log.Error("listing classes failed", "error", err)
		return "Sorry, I couldn't check your schedule."
	}
	if len(classes) == 0 {
		if dayName != "" {
			return fmt.Sprintf("No classes on %s.", dayName)
		}
		return "You have no classes on your schedule."
	}

	var sb strings.Builder
	if dayName != "" {
		fmt.Fprintf(&sb, "On %s: ", dayName)
	} else {
		fmt.Fprintf(&sb, "You have %d %s. ", len(classes), plural(len(classes), "class"))
	}
	for _, c := range classes {
		fmt.Fprintf(&sb, "%s at %s", capitalize(c.Title), c.Start)
		if dayName == "" {
			fmt.Fprintf(&sb, " on %s", schedule.FormatDays(c.Days))
		}
		sb.WriteString(". ")
	}
	return strings.TrimSpace(sb.String())
}

func (a *Assistant) nextClass(ctx context.Context) string {
	classes, err := a.store.ListClasses(ctx, "")
	if err != nil {
		a.log.Error("listing classes failed", "error", err)
		return "Sorry, I couldn't check your schedule."
	}
	c, ok := schedule.NextClass(classes, a.cfg.Now())
	if !ok {
		return "Nothing on your schedule this week."
	}
	reply := fmt.Sprintf("Your next class is %s at %s", c.Title, c.Start)
	if c.Location != "" {
		reply += " in " + c.Location
	}
	return reply + "."
}

func (a *Assistant) addAssignment(ctx context.Context, payload string) string {
	if payload == "" {
		return "Tell me the assignment, like: add assignment essay draft due friday."
	}
	title, duePart, ok := strings.Cut(payload, " due ")
	if !ok {
		return "When is it due? Say something like, due friday, or, due march 10."
	}
	var course string
	if t, c, ok := strings.Cut(title, " for "); ok {
		title, course = t, strings.TrimSpace(c)
	}
	due, err := schedule.ParseDueDate(duePart, a.cfg.Now())
	if err != nil {
		return "I didn't catch the due date. Try, due tomorrow, or, due march 10."
	}

	asg, err := a.store.AddAssignment(ctx, store.Assignment{
		Title:   strings.TrimSpace(title),
		Course:  course,
		DueDate: due,
	})
	if err != nil {
		a.log.Error("adding assignment failed", "error", err)
		return "Sorry, I couldn't save that assignment."
	}
	return fmt.Sprintf("Got it. %s is due %s.", capitalize(asg.Title), humanizeDate(asg.DueDate, a.cfg.Now()))
}

func (a *Assistant) viewAssignments(ctx context.Context, payload string) string {
	var (
		assignments []store.Assignment
		err         error
		window      bool
	)
	if strings.Contains(payload, "due") || strings.Contains(payload, "week") {
		window = true
		assignments, err = a.store.UpcomingAssignments(ctx, a.cfg.Now().AddDate(0, 0, 7))
	} else {
		assignments, err = a.store.ListAssignments(ctx, false)
	}
	if err != nil {
		a.log.Error("listing assignments failed", "error", err)
		return "Sorry, I couldn't check your assignments."
	}
	if len(assignments) == 0 {
		if window {
			return "Nothing due this week. Breathe easy."
		}
		return "No open assignments."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You have %d open %s. ", len(assignments), plural(len(assignments), "assignment"))
	for i, asg := range assignments {
		if i >= 5 {
			fmt.Fprintf(&sb, "And %d more.", len(assignments)-5)
			break
		}
		fmt.Fprintf(&sb, "%s, due %s. ", capitalize(asg.Title), humanizeDate(asg.DueDate, a.cfg.Now()))
	}
	return strings.TrimSpace(sb.String())
}

func (a *Assistant) completeAssignment(ctx context.Context, payload string) string {
	assignments, err := a.store.ListAssignments(ctx, false)
	if err != nil {
		a.log.Error("listing assignments failed", "error", err)
		return "Sorry, I couldn't check your assignments."
	}

	needle := strings.ToLower(payload)
	for _, suffix := range []string{"assignment", "the", "my"} {
		needle = strings.TrimSpace(strings.TrimSuffix(needle, suffix))
	}
	for _, prefix := range []string{"the", "my"} {
		needle = strings.TrimSpace(strings.TrimPrefix(needle, prefix+" "))
	}
	for _, asg := range assignments {
		title := strings.ToLower(asg.Title)
		if strings.Contains(title, needle) || strings.Contains(needle, title) {
			if err := a.store.CompleteAssignment(ctx, asg.ID); err != nil {
				a.log.Error("completing assignment failed", "id", asg.ID, "error", err)
				return "Sorry, I couldn't mark that one done."
			}
			return fmt.Sprintf("Done and dusted. %s is turned in.", capitalize(asg.Title))
		}
	}
	return "I couldn't find that assignment."
}

// speak synthesises the reply. Synthesis failures are logged; the loop keeps
// going either way.
func (a *Assistant) speak(ctx context.Context, text string) {
	if text == "" {
		return
	}
	start := time.Now()
	err := a.speaker.Speak(ctx, text)
	if a.metrics != nil {
		a.metrics.TTSDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		a.log.Error("speech synthesis failed", "error", err)
		a.metrics.RecordProviderError(ctx, "tts", "speak")
	}
}

// humanizeTime renders a due time the way a person would say it.
func humanizeTime(t, now time.Time) string {
	clock := t.Format("3:04 PM")
	switch {
	case t.YearDay() == now.YearDay() && t.Year() == now.Year():
		if d := t.Sub(now); d > 0 && d < time.Hour {
			m := int(d.Round(time.Minute).Minutes())
			if m <= 1 {
				return "in a minute"
			}
			return fmt.Sprintf("in %d minutes", m)
		}
		return "at " + clock
	case t.YearDay() == now.AddDate(0, 0, 1).YearDay():
		return "tomorrow at " + clock
	default:
		return "on " + t.Format("Monday") + " at " + clock
	}
}

// humanizeDate renders a due date without a clock time.
func humanizeDate(t, now time.Time) string {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch days := int(t.Sub(today).Hours() / 24); {
	case days < 0:
		return t.Format("January 2") + ", which has passed"
	case days == 0:
		return "today"
	case days == 1:
		return "tomorrow"
	case days < 7:
		return "on " + t.Format("Monday")
	default:
		return "on " + t.Format("January 2")
	}
}

func describeState(s focus.State) string {
	if s == focus.StateBreak {
		return "break"
	}
	return "focus session"
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
