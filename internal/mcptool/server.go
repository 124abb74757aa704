// Package mcptool exposes the assistant's tasks, reminders, class schedule,
// assignments, and study stats as Model Context Protocol tools over stdio, so
// external agents and editors can work with the same data the voice loop does.
package mcptool

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/arthur-assist/arthur/internal/reminder"
	"github.com/arthur-assist/arthur/internal/schedule"
	"github.com/arthur-assist/arthur/internal/store"
)

// Server wraps an MCP server bound to a [store.Store].
type Server struct {
	st  store.Store
	srv *mcpsdk.Server
	log *slog.Logger
	now func() time.Time
}

// Option configures a [Server].
type Option func(*Server)

// WithClock overrides the wall clock, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates an MCP tool server over st and registers all tools.
func New(st store.Store, log *slog.Logger, opts ...Option) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		st:  st,
		log: log,
		now: time.Now,
	}
	for _, o := range opts {
		o(s)
	}

	s.srv = mcpsdk.NewServer(
		&mcpsdk.Implementation{Name: "arthur-tools", Version: "1.0.0"},
		nil,
	)
	s.register()
	return s
}

// Run serves MCP over stdio until ctx is cancelled or stdin closes.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("mcp tool server listening on stdio")
	if err := s.srv.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
		return fmt.Errorf("mcptool: run: %w", err)
	}
	return nil
}

type addTaskInput struct {
	Description string `json:"description" jsonschema:"the task to add"`
	Priority    string `json:"priority,omitempty" jsonschema:"optional priority label"`
}

type taskOutput struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	Done        bool   `json:"done"`
	CreatedAt   string `json:"created_at"`
}

type listTasksInput struct {
	IncludeDone bool `json:"include_done,omitempty" jsonschema:"also return completed tasks"`
}

type listTasksOutput struct {
	Tasks []taskOutput `json:"tasks"`
}

type completeTaskInput struct {
	ID int64 `json:"id" jsonschema:"id of the task to mark done"`
}

type completeTaskOutput struct {
	Completed bool `json:"completed"`
}

type addReminderInput struct {
	Text string `json:"text" jsonschema:"what to be reminded about"`
	When string `json:"when" jsonschema:"a spoken-style time phrase such as 'in 20 minutes' or 'tomorrow at 9am'"`
}

type reminderOutput struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	DueAt     string `json:"due_at"`
	Recurring string `json:"recurring,omitempty"`
}

type listRemindersInput struct{}

type listRemindersOutput struct {
	Reminders []reminderOutput `json:"reminders"`
}

type addClassInput struct {
	Title    string `json:"title" jsonschema:"name of the class"`
	Days     string `json:"days" jsonschema:"meeting days, as day names or MTWRFSU letters (R is Thursday, U is Sunday)"`
	Start    string `json:"start" jsonschema:"start time such as '10am' or '14:00'"`
	End      string `json:"end,omitempty" jsonschema:"optional end time"`
	Location string `json:"location,omitempty" jsonschema:"optional room or building"`
	Semester string `json:"semester,omitempty" jsonschema:"optional semester label"`
}

type classOutput struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Days     string `json:"days"`
	Start    string `json:"start"`
	End      string `json:"end,omitempty"`
	Location string `json:"location,omitempty"`
	Semester string `json:"semester,omitempty"`
}

type classScheduleInput struct {
	Day string `json:"day,omitempty" jsonschema:"optional day filter, a day name or one MTWRFSU letter"`
}

type classScheduleOutput struct {
	Classes []classOutput `json:"classes"`
}

type addAssignmentInput struct {
	Title       string `json:"title" jsonschema:"the assignment"`
	Course      string `json:"course,omitempty" jsonschema:"optional course name"`
	Due         string `json:"due" jsonschema:"due date such as 'friday', 'tomorrow', or '2026-03-10'"`
	Description string `json:"description,omitempty" jsonschema:"optional detail"`
	Priority    string `json:"priority,omitempty" jsonschema:"optional priority label"`
}

type assignmentOutput struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Course   string `json:"course,omitempty"`
	DueDate  string `json:"due_date"`
	Priority string `json:"priority,omitempty"`
	Done     bool   `json:"done"`
}

type listAssignmentsInput struct {
	IncludeDone bool `json:"include_done,omitempty" jsonschema:"also return completed assignments"`
	DueWithin   int  `json:"due_within_days,omitempty" jsonschema:"only assignments due within this many days"`
}

type listAssignmentsOutput struct {
	Assignments []assignmentOutput `json:"assignments"`
}

type completeAssignmentInput struct {
	ID int64 `json:"id" jsonschema:"id of the assignment to mark done"`
}

type completeAssignmentOutput struct {
	Completed bool `json:"completed"`
}

type studyStatsInput struct{}

type studyStatsOutput struct {
	TotalSessions     int `json:"total_sessions"`
	CompletedSessions int `json:"completed_sessions"`
	TotalMinutes      int `json:"total_minutes"`
	SessionsToday     int `json:"sessions_today"`
	MinutesToday      int `json:"minutes_today"`
}

func (s *Server) register() {
	mcpsdk.AddTool(s.srv, &mcpsdk.Tool{
		Name:        "add_task",
		Description: "Add a task to the to-do list.",
	}, s.addTask)

	mcpsdk.AddTool(s.srv, &mcpsdk.Tool{
		Name:        "list_tasks",
		Description: "List tasks on the to-do list, open ones by default.",
	}, s.listTasks)

	mcpsdk.AddTool(s.srv, &mcpsdk.Tool{
		Name:        "complete_task",
		Description: "Mark a task as done by its id.",
	}, s.completeTask)

	mcpsdk.AddTool(s.srv, &mcpsdk.Tool{
		Name:        "add_reminder",
		Description: "Schedule a reminder from a natural-language time phrase.",
	}, s.addReminder)

	mcpsdk.AddTool(s.srv, &mcpsdk.Tool{
		Name:        "list_reminders",
		Description: "List pending reminders, soonest first.",
	}, s.listReminders)

	mcpsdk.AddTool(s.srv, &mcpsdk.Tool{
		Name:        "add_class",
		Description: "Add a class to the weekly timetable.",
	}, s.addClass)

	mcpsdk.AddTool(s.srv, &mcpsdk.Tool{
		Name:        "class_schedule",
		Description: "List classes on the timetable, optionally for one day.",
	}, s.classSchedule)

	mcpsdk.AddTool(s.srv, &mcpsdk.Tool{
		Name:        "add_assignment",
		Description: "Track an assignment with a due date.",
	}, s.addAssignment)

	mcpsdk.AddTool(s.srv, &mcpsdk.Tool{
		Name:        "list_assignments",
		Description: "List assignments, open ones by default, optionally only those due soon.",
	}, s.listAssignments)

	mcpsdk.AddTool(s.srv, &mcpsdk.Tool{
		Name:        "complete_assignment",
		Description: "Mark an assignment as done by its id.",
	}, s.completeAssignment)

	mcpsdk.AddTool(s.srv, &mcpsdk.Tool{
		Name:        "study_stats",
		Description: "Report study session statistics for today and all time.",
	}, s.studyStats)
}

func (s *Server) addTask(ctx context.Context, _ *mcpsdk.CallToolRequest, in addTaskInput) (*mcpsdk.CallToolResult, taskOutput, error) {
	if in.Description == "" {
		return nil, taskOutput{}, fmt.Errorf("description is required")
	}
	t, err := s.st.AddTask(ctx, in.Description, in.Priority)
	if err != nil {
		return nil, taskOutput{}, fmt.Errorf("add task: %w", err)
	}
	return nil, toTaskOutput(t), nil
}

func (s *Server) listTasks(ctx context.Context, _ *mcpsdk.CallToolRequest, in listTasksInput) (*mcpsdk.CallToolResult, listTasksOutput, error) {
	tasks, err := s.st.ListTasks(ctx, in.IncludeDone)
	if err != nil {
		return nil, listTasksOutput{}, fmt.Errorf("list tasks: %w", err)
	}
	out := listTasksOutput{Tasks: make([]taskOutput, 0, len(tasks))}
	for _, t := range tasks {
		out.Tasks = append(out.Tasks, toTaskOutput(t))
	}
	return nil, out, nil
}

func (s *Server) completeTask(ctx context.Context, _ *mcpsdk.CallToolRequest, in completeTaskInput) (*mcpsdk.CallToolResult, completeTaskOutput, error) {
	if err := s.st.CompleteTask(ctx, in.ID); err != nil {
		return nil, completeTaskOutput{}, fmt.Errorf("complete task %d: %w", in.ID, err)
	}
	return nil, completeTaskOutput{Completed: true}, nil
}

func (s *Server) addReminder(ctx context.Context, _ *mcpsdk.CallToolRequest, in addReminderInput) (*mcpsdk.CallToolResult, reminderOutput, error) {
	if in.Text == "" {
		return nil, reminderOutput{}, fmt.Errorf("text is required")
	}
	when, recurring, _, err := reminder.ParseWhen(in.When, s.now())
	if err != nil {
		return nil, reminderOutput{}, fmt.Errorf("parse %q: %w", in.When, err)
	}
	r, err := s.st.AddReminder(ctx, store.Reminder{
		Text:      in.Text,
		DueAt:     when,
		Recurring: recurring,
	})
	if err != nil {
		return nil, reminderOutput{}, fmt.Errorf("add reminder: %w", err)
	}
	return nil, toReminderOutput(r), nil
}

func (s *Server) listReminders(ctx context.Context, _ *mcpsdk.CallToolRequest, _ listRemindersInput) (*mcpsdk.CallToolResult, listRemindersOutput, error) {
	pending, err := s.st.PendingReminders(ctx)
	if err != nil {
		return nil, listRemindersOutput{}, fmt.Errorf("list reminders: %w", err)
	}
	out := listRemindersOutput{Reminders: make([]reminderOutput, 0, len(pending))}
	for _, r := range pending {
		out.Reminders = append(out.Reminders, toReminderOutput(r))
	}
	return nil, out, nil
}

func (s *Server) addClass(ctx context.Context, _ *mcpsdk.CallToolRequest, in addClassInput) (*mcpsdk.CallToolResult, classOutput, error) {
	if in.Title == "" {
		return nil, classOutput{}, fmt.Errorf("title is required")
	}
	days := schedule.ParseDays(in.Days)
	if days == "" {
		return nil, classOutput{}, fmt.Errorf("unrecognised days %q", in.Days)
	}
	start, err := schedule.ParseClock(in.Start)
	if err != nil {
		return nil, classOutput{}, err
	}
	var end string
	if in.End != "" {
		if end, err = schedule.ParseClock(in.End); err != nil {
			return nil, classOutput{}, err
		}
	}
	c, err := s.st.AddClass(ctx, store.Class{
		Title:    in.Title,
		Days:     days,
		Start:    start,
		End:      end,
		Location: in.Location,
		Semester: in.Semester,
	})
	if err != nil {
		return nil, classOutput{}, fmt.Errorf("add class: %w", err)
	}
	return nil, toClassOutput(c), nil
}

func (s *Server) classSchedule(ctx context.Context, _ *mcpsdk.CallToolRequest, in classScheduleInput) (*mcpsdk.CallToolResult, classScheduleOutput, error) {
	var day string
	if in.Day != "" {
		if day = schedule.ParseDays(in.Day); len(day) != 1 {
			return nil, classScheduleOutput{}, fmt.Errorf("unrecognised day %q", in.Day)
		}
	}
	classes, err := s.st.ListClasses(ctx, day)
	if err != nil {
		return nil, classScheduleOutput{}, fmt.Errorf("list classes: %w", err)
	}
	out := classScheduleOutput{Classes: make([]classOutput, 0, len(classes))}
	for _, c := range classes {
		out.Classes = append(out.Classes, toClassOutput(c))
	}
	return nil, out, nil
}

func (s *Server) addAssignment(ctx context.Context, _ *mcpsdk.CallToolRequest, in addAssignmentInput) (*mcpsdk.CallToolResult, assignmentOutput, error) {
	if in.Title == "" {
		return nil, assignmentOutput{}, fmt.Errorf("title is required")
	}
	due, err := schedule.ParseDueDate(in.Due, s.now())
	if err != nil {
		return nil, assignmentOutput{}, err
	}
	asg, err := s.st.AddAssignment(ctx, store.Assignment{
		Title:       in.Title,
		Course:      in.Course,
		DueDate:     due,
		Description: in.Description,
		Priority:    in.Priority,
	})
	if err != nil {
		return nil, assignmentOutput{}, fmt.Errorf("add assignment: %w", err)
	}
	return nil, toAssignmentOutput(asg), nil
}

func (s *Server) listAssignments(ctx context.Context, _ *mcpsdk.CallToolRequest, in listAssignmentsInput) (*mcpsdk.CallToolResult, listAssignmentsOutput, error) {
	var (
		assignments []store.Assignment
		err         error
	)
	if in.DueWithin > 0 {
		assignments, err = s.st.UpcomingAssignments(ctx, s.now().AddDate(0, 0, in.DueWithin))
	} else {
		assignments, err = s.st.ListAssignments(ctx, in.IncludeDone)
	}
	if err != nil {
		return nil, listAssignmentsOutput{}, fmt.Errorf("list assignments: %w", err)
	}
	out := listAssignmentsOutput{Assignments: make([]assignmentOutput, 0, len(assignments))}
	for _, asg := range assignments {
		out.Assignments = append(out.Assignments, toAssignmentOutput(asg))
	}
	return nil, out, nil
}

func (s *Server) completeAssignment(ctx context.Context, _ *mcpsdk.CallToolRequest, in completeAssignmentInput) (*mcpsdk.CallToolResult, completeAssignmentOutput, error) {
	if err := s.st.CompleteAssignment(ctx, in.ID); err != nil {
		return nil, completeAssignmentOutput{}, fmt.Errorf("complete assignment %d: %w", in.ID, err)
	}
	return nil, completeAssignmentOutput{Completed: true}, nil
}

func (s *Server) studyStats(ctx context.Context, _ *mcpsdk.CallToolRequest, _ studyStatsInput) (*mcpsdk.CallToolResult, studyStatsOutput, error) {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	stats, err := s.st.StudyStats(ctx, today)
	if err != nil {
		return nil, studyStatsOutput{}, fmt.Errorf("study stats: %w", err)
	}
	return nil, studyStatsOutput{
		TotalSessions:     stats.TotalSessions,
		CompletedSessions: stats.CompletedSessions,
		TotalMinutes:      stats.TotalMinutes,
		SessionsToday:     stats.SessionsToday,
		MinutesToday:      stats.MinutesToday,
	}, nil
}

func toTaskOutput(t store.Task) taskOutput {
	return taskOutput{
		ID:          t.ID,
		Description: t.Description,
		Done:        t.Done,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
	}
}

func toClassOutput(c store.Class) classOutput {
	return classOutput{
		ID:       c.ID,
		Title:    c.Title,
		Days:     c.Days,
		Start:    c.Start,
		End:      c.End,
		Location: c.Location,
		Semester: c.Semester,
	}
}

func toAssignmentOutput(a store.Assignment) assignmentOutput {
	return assignmentOutput{
		ID:       a.ID,
		Title:    a.Title,
		Course:   a.Course,
		DueDate:  a.DueDate.Format("2006-01-02"),
		Priority: a.Priority,
		Done:     a.Done,
	}
}

func toReminderOutput(r store.Reminder) reminderOutput {
	return reminderOutput{
		ID:        r.ID,
		Text:      r.Text,
		DueAt:     r.DueAt.Format(time.RFC3339),
		Recurring: r.Recurring,
	}
}
