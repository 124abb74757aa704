package sqlite_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arthur-assist/arthur/internal/store"
	"github.com/arthur-assist/arthur/internal/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFileDatabaseRunsInWALMode(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "arthur.db")
	s, err := sqlite.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if _, err := s.AddTask(context.Background(), "buy milk", ""); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	// WAL journalling writes through a sidecar next to the database file;
	// its absence means the journal_mode pragma never took.
	if _, err := os.Stat(path + "-wal"); err != nil {
		t.Errorf("no WAL sidecar for %s: %v", path, err)
	}
}

func TestTasks(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.AddTask(ctx, "buy milk", "")
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	second, err := s.AddTask(ctx, "file taxes", "high")
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	tasks, err := s.ListTasks(ctx, false)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 open tasks, got %d", len(tasks))
	}
	if tasks[0].ID != first.ID || tasks[1].ID != second.ID {
		t.Errorf("tasks out of order: %v then %v", tasks[0].ID, tasks[1].ID)
	}
	if tasks[1].Priority != "high" {
		t.Errorf("priority = %q, want %q", tasks[1].Priority, "high")
	}

	if err := s.CompleteTask(ctx, first.ID); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}

	open, err := s.ListTasks(ctx, false)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(open) != 1 || open[0].ID != second.ID {
		t.Errorf("expected only the second task open, got %+v", open)
	}

	all, err := s.ListTasks(ctx, true)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 tasks including done, got %d", len(all))
	}

	if err := s.CompleteTask(ctx, 9999); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("CompleteTask(unknown) = %v, want ErrNotFound", err)
	}
}

func TestReminders(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	past, err := s.AddReminder(ctx, store.Reminder{Text: "take meds", DueAt: now.Add(-time.Minute)})
	if err != nil {
		t.Fatalf("AddReminder: %v", err)
	}
	future, err := s.AddReminder(ctx, store.Reminder{Text: "call mom", DueAt: now.Add(time.Hour)})
	if err != nil {
		t.Fatalf("AddReminder: %v", err)
	}

	due, err := s.DueReminders(ctx, now)
	if err != nil {
		t.Fatalf("DueReminders: %v", err)
	}
	if len(due) != 1 || due[0].ID != past.ID {
		t.Fatalf("expected only the past reminder due, got %+v", due)
	}

	pending, err := s.PendingReminders(ctx)
	if err != nil {
		t.Fatalf("PendingReminders: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(pending))
	}
	if pending[0].ID != past.ID {
		t.Errorf("pending not ordered by due time: %+v", pending)
	}

	// Completed reminders never come due again.
	if err := s.CompleteReminder(ctx, past.ID); err != nil {
		t.Fatalf("CompleteReminder: %v", err)
	}
	due, err = s.DueReminders(ctx, now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("DueReminders: %v", err)
	}
	if len(due) != 1 || due[0].ID != future.ID {
		t.Errorf("expected only the future reminder after completion, got %+v", due)
	}

	if err := s.CancelReminder(ctx, future.ID); err != nil {
		t.Fatalf("CancelReminder: %v", err)
	}
	pending, err = s.PendingReminders(ctx)
	if err != nil {
		t.Fatalf("PendingReminders: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected no pending after cancel, got %+v", pending)
	}

	if err := s.CancelReminder(ctx, 9999); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("CancelReminder(unknown) = %v, want ErrNotFound", err)
	}
}

func TestClasses(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	chem, err := s.AddClass(ctx, store.Class{Title: "chemistry", Days: "MWF", Start: "10:00", End: "11:00", Location: "room 204"})
	if err != nil {
		t.Fatalf("AddClass: %v", err)
	}
	if _, err := s.AddClass(ctx, store.Class{Title: "history", Days: "TR", Start: "09:00"}); err != nil {
		t.Fatalf("AddClass: %v", err)
	}

	all, err := s.ListClasses(ctx, "")
	if err != nil {
		t.Fatalf("ListClasses: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 classes, got %d", len(all))
	}
	if all[0].Title != "history" {
		t.Errorf("classes not ordered by start time: %+v", all)
	}

	monday, err := s.ListClasses(ctx, "M")
	if err != nil {
		t.Fatalf("ListClasses(M): %v", err)
	}
	if len(monday) != 1 || monday[0].ID != chem.ID {
		t.Errorf("Monday classes = %+v, want only chemistry", monday)
	}
	if monday[0].Location != "room 204" || monday[0].End != "11:00" {
		t.Errorf("class fields lost in round trip: %+v", monday[0])
	}
}

func TestAssignments(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	soon, err := s.AddAssignment(ctx, store.Assignment{Title: "essay draft", Course: "english", DueDate: now.AddDate(0, 0, 2)})
	if err != nil {
		t.Fatalf("AddAssignment: %v", err)
	}
	later, err := s.AddAssignment(ctx, store.Assignment{Title: "problem set", DueDate: now.AddDate(0, 0, 20)})
	if err != nil {
		t.Fatalf("AddAssignment: %v", err)
	}

	open, err := s.ListAssignments(ctx, false)
	if err != nil {
		t.Fatalf("ListAssignments: %v", err)
	}
	if len(open) != 2 || open[0].ID != soon.ID {
		t.Fatalf("open = %+v, want soonest first", open)
	}
	if open[0].Course != "english" {
		t.Errorf("course = %q, want %q", open[0].Course, "english")
	}

	week, err := s.UpcomingAssignments(ctx, now.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("UpcomingAssignments: %v", err)
	}
	if len(week) != 1 || week[0].ID != soon.ID {
		t.Errorf("due this week = %+v, want only the essay", week)
	}

	if err := s.CompleteAssignment(ctx, soon.ID); err != nil {
		t.Fatalf("CompleteAssignment: %v", err)
	}
	open, err = s.ListAssignments(ctx, false)
	if err != nil {
		t.Fatalf("ListAssignments: %v", err)
	}
	if len(open) != 1 || open[0].ID != later.ID {
		t.Errorf("open after complete = %+v", open)
	}
	all, err := s.ListAssignments(ctx, true)
	if err != nil {
		t.Fatalf("ListAssignments: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 assignments including done, got %d", len(all))
	}

	if err := s.CompleteAssignment(ctx, 9999); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("CompleteAssignment(unknown) = %v, want ErrNotFound", err)
	}
}

func TestStudyStats(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	today := time.Now().Truncate(24 * time.Hour)
	yesterday := today.Add(-20 * time.Hour)

	sessions := []store.StudySession{
		{Kind: store.SessionFocus, Subject: "algorithms", Minutes: 25, Completed: true, StartedAt: yesterday, EndedAt: yesterday.Add(25 * time.Minute)},
		{Kind: store.SessionFocus, Minutes: 6, Completed: false, StartedAt: today.Add(time.Hour), EndedAt: today.Add(time.Hour + 6*time.Minute)},
		{Kind: store.SessionBreak, Minutes: 5, Completed: true, StartedAt: today.Add(2 * time.Hour), EndedAt: today.Add(2*time.Hour + 5*time.Minute)},
	}
	for _, sess := range sessions {
		if _, err := s.SaveStudySession(ctx, sess); err != nil {
			t.Fatalf("SaveStudySession: %v", err)
		}
	}

	stats, err := s.StudyStats(ctx, today)
	if err != nil {
		t.Fatalf("StudyStats: %v", err)
	}
	// Break sessions do not count.
	if stats.TotalSessions != 2 {
		t.Errorf("TotalSessions = %d, want 2", stats.TotalSessions)
	}
	if stats.CompletedSessions != 1 {
		t.Errorf("CompletedSessions = %d, want 1", stats.CompletedSessions)
	}
	if stats.TotalMinutes != 31 {
		t.Errorf("TotalMinutes = %d, want 31", stats.TotalMinutes)
	}
	if stats.SessionsToday != 1 || stats.MinutesToday != 6 {
		t.Errorf("today = %d sessions / %d minutes, want 1 / 6",
			stats.SessionsToday, stats.MinutesToday)
	}
}

func TestConversations(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, text := range []string{"first", "second", "third"} {
		_, err := s.SaveConversation(ctx, store.Conversation{
			UserText:      text,
			AssistantText: "ok",
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("SaveConversation: %v", err)
		}
	}

	recent, err := s.RecentConversations(ctx, 2)
	if err != nil {
		t.Fatalf("RecentConversations: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(recent))
	}
	if recent[0].UserText != "third" || recent[1].UserText != "second" {
		t.Errorf("expected newest first, got %q then %q", recent[0].UserText, recent[1].UserText)
	}
}

func TestPreferences(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	v, err := s.GetPreference(ctx, "name")
	if err != nil {
		t.Fatalf("GetPreference: %v", err)
	}
	if v != "" {
		t.Errorf("unset preference = %q, want empty", v)
	}

	if err := s.SetPreference(ctx, "name", "Sam"); err != nil {
		t.Fatalf("SetPreference: %v", err)
	}
	if err := s.SetPreference(ctx, "name", "Alex"); err != nil {
		t.Fatalf("SetPreference (update): %v", err)
	}

	v, err = s.GetPreference(ctx, "name")
	if err != nil {
		t.Fatalf("GetPreference: %v", err)
	}
	if v != "Alex" {
		t.Errorf("preference = %q, want %q", v, "Alex")
	}
}
