package mcptool

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/arthur-assist/arthur/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.MemStore) {
	t.Helper()
	st := store.NewMemStore()
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.Local)
	s := New(st, nil, WithClock(func() time.Time { return now }))
	return s, st
}

func TestAddAndListTasks(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)
	ctx := context.Background()

	_, task, err := s.addTask(ctx, nil, addTaskInput{Description: "buy milk"})
	if err != nil {
		t.Fatalf("addTask: %v", err)
	}
	if task.ID == 0 || task.Description != "buy milk" {
		t.Errorf("task = %+v", task)
	}

	_, list, err := s.listTasks(ctx, nil, listTasksInput{})
	if err != nil {
		t.Fatalf("listTasks: %v", err)
	}
	if len(list.Tasks) != 1 || list.Tasks[0].Description != "buy milk" {
		t.Errorf("tasks = %+v", list.Tasks)
	}
}

func TestAddTaskRequiresDescription(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)
	if _, _, err := s.addTask(context.Background(), nil, addTaskInput{}); err == nil {
		t.Fatal("expected an error for empty description")
	}
}

func TestCompleteTask(t *testing.T) {
	t.Parallel()
	s, st := newTestServer(t)
	ctx := context.Background()

	task, err := st.AddTask(ctx, "buy milk", "")
	if err != nil {
		t.Fatal(err)
	}

	_, out, err := s.completeTask(ctx, nil, completeTaskInput{ID: task.ID})
	if err != nil {
		t.Fatalf("completeTask: %v", err)
	}
	if !out.Completed {
		t.Error("Completed = false")
	}

	_, list, err := s.listTasks(ctx, nil, listTasksInput{})
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Tasks) != 0 {
		t.Errorf("open tasks = %+v, want none", list.Tasks)
	}
}

func TestCompleteUnknownTask(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)
	if _, _, err := s.completeTask(context.Background(), nil, completeTaskInput{ID: 99}); err == nil {
		t.Fatal("expected an error for unknown id")
	}
}

func TestAddReminderParsesWhen(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)
	ctx := context.Background()

	_, out, err := s.addReminder(ctx, nil, addReminderInput{
		Text: "stand up",
		When: "in 20 minutes",
	})
	if err != nil {
		t.Fatalf("addReminder: %v", err)
	}
	if out.Text != "stand up" {
		t.Errorf("Text = %q", out.Text)
	}
	due, err := time.Parse(time.RFC3339, out.DueAt)
	if err != nil {
		t.Fatalf("DueAt %q: %v", out.DueAt, err)
	}
	want := time.Date(2026, 3, 10, 10, 20, 0, 0, time.Local)
	if !due.Equal(want) {
		t.Errorf("DueAt = %v, want %v", due, want)
	}

	_, list, err := s.listReminders(ctx, nil, listRemindersInput{})
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Reminders) != 1 {
		t.Errorf("reminders = %+v", list.Reminders)
	}
}

func TestAddReminderBadTimePhrase(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)
	_, _, err := s.addReminder(context.Background(), nil, addReminderInput{
		Text: "stand up",
		When: "whenever",
	})
	if err == nil || !strings.Contains(err.Error(), "whenever") {
		t.Fatalf("err = %v, want parse failure naming the phrase", err)
	}
}

func TestAddClassNormalisesDaysAndTimes(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)
	ctx := context.Background()

	_, out, err := s.addClass(ctx, nil, addClassInput{
		Title:    "chemistry",
		Days:     "monday wednesday friday",
		Start:    "10am",
		End:      "11:15",
		Location: "room 204",
	})
	if err != nil {
		t.Fatalf("addClass: %v", err)
	}
	if out.Days != "MWF" || out.Start != "10:00" || out.End != "11:15" {
		t.Errorf("class = %+v, want normalised days and times", out)
	}

	_, list, err := s.classSchedule(ctx, nil, classScheduleInput{Day: "wednesday"})
	if err != nil {
		t.Fatalf("classSchedule: %v", err)
	}
	if len(list.Classes) != 1 || list.Classes[0].Title != "chemistry" {
		t.Errorf("classes = %+v", list.Classes)
	}

	_, empty, err := s.classSchedule(ctx, nil, classScheduleInput{Day: "sunday"})
	if err != nil {
		t.Fatalf("classSchedule: %v", err)
	}
	if len(empty.Classes) != 0 {
		t.Errorf("Sunday classes = %+v, want none", empty.Classes)
	}
}

func TestAddClassRejectsBadDays(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)
	_, _, err := s.addClass(context.Background(), nil, addClassInput{
		Title: "chemistry",
		Days:  "someday",
		Start: "10am",
	})
	if err == nil {
		t.Fatal("expected an error for an unrecognised day set")
	}
}

func TestAssignmentTools(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)
	ctx := context.Background()

	// The fixture clock is Tuesday, March 10th; "friday" resolves inside the
	// week, the ISO date outside it.
	_, essay, err := s.addAssignment(ctx, nil, addAssignmentInput{
		Title:  "essay draft",
		Course: "english",
		Due:    "friday",
	})
	if err != nil {
		t.Fatalf("addAssignment: %v", err)
	}
	if essay.DueDate != "2026-03-13" {
		t.Errorf("DueDate = %q, want 2026-03-13", essay.DueDate)
	}
	if _, _, err := s.addAssignment(ctx, nil, addAssignmentInput{
		Title: "problem set",
		Due:   "2026-04-01",
	}); err != nil {
		t.Fatalf("addAssignment: %v", err)
	}

	_, week, err := s.listAssignments(ctx, nil, listAssignmentsInput{DueWithin: 7})
	if err != nil {
		t.Fatalf("listAssignments: %v", err)
	}
	if len(week.Assignments) != 1 || week.Assignments[0].Title != "essay draft" {
		t.Errorf("due this week = %+v, want only the essay", week.Assignments)
	}

	_, done, err := s.completeAssignment(ctx, nil, completeAssignmentInput{ID: essay.ID})
	if err != nil {
		t.Fatalf("completeAssignment: %v", err)
	}
	if !done.Completed {
		t.Error("Completed = false")
	}
	_, open, err := s.listAssignments(ctx, nil, listAssignmentsInput{})
	if err != nil {
		t.Fatal(err)
	}
	if len(open.Assignments) != 1 || open.Assignments[0].Title != "problem set" {
		t.Errorf("open = %+v, want only the problem set", open.Assignments)
	}
}

func TestStudyStatsTool(t *testing.T) {
	t.Parallel()
	s, st := newTestServer(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	_, err := st.SaveStudySession(ctx, store.StudySession{
		Kind:      store.SessionFocus,
		Minutes:   25,
		Completed: true,
		StartedAt: start,
		EndedAt:   start.Add(25 * time.Minute),
	})
	if err != nil {
		t.Fatal(err)
	}

	_, out, err := s.studyStats(ctx, nil, studyStatsInput{})
	if err != nil {
		t.Fatalf("studyStats: %v", err)
	}
	if out.TotalSessions != 1 || out.MinutesToday != 25 {
		t.Errorf("stats = %+v", out)
	}
}
