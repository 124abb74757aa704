// Package store defines the persistent state of the assistant: tasks,
// reminders, the class schedule, assignments, study sessions, conversation
// history, and user preferences.
//
// Two backends implement [Store]: an embedded SQLite database (the default,
// zero setup) and PostgreSQL. The PostgreSQL backend additionally implements
// [SemanticRecaller] for embedding-based retrieval over past conversations.
//
// Every implementation must be safe for concurrent use.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a lookup by ID matches nothing.
var ErrNotFound = errors.New("store: not found")

// Task is a to-do item created by voice.
type Task struct {
	ID          int64
	Description string
	Priority    string
	Done        bool
	CreatedAt   time.Time
	CompletedAt time.Time // zero unless Done
}

// Recurrence values for Reminder.Recurring.
const (
	RecurNone   = ""
	RecurDaily  = "daily"
	RecurWeekly = "weekly"
)

// Reminder is a scheduled notification. A reminder is due once the wall clock
// reaches DueAt; the scheduler delivers it and marks it done. Recurring
// reminders are re-inserted with the next due time on delivery.
type Reminder struct {
	ID        int64
	Text      string
	DueAt     time.Time
	Recurring string
	Done      bool
	CreatedAt time.Time
}

// NextDue returns the due time of the next occurrence, or the zero time for a
// one-shot reminder.
func (r Reminder) NextDue() time.Time {
	switch r.Recurring {
	case RecurDaily:
		return r.DueAt.Add(24 * time.Hour)
	case RecurWeekly:
		return r.DueAt.Add(7 * 24 * time.Hour)
	default:
		return time.Time{}
	}
}

// Session kinds for StudySession.Kind.
const (
	SessionFocus = "focus"
	SessionBreak = "break"
)

// StudySession records one focus interval. Break intervals are not persisted;
// only focus time counts toward statistics.
type StudySession struct {
	ID        int64
	Kind      string
	Subject   string // what was studied, empty when the user named nothing
	Minutes   int    // actual elapsed minutes, not the planned length
	Completed bool
	StartedAt time.Time
	EndedAt   time.Time
}

// StudyStats aggregates focus history for the "how much have I studied"
// queries.
type StudyStats struct {
	TotalSessions     int
	CompletedSessions int
	TotalMinutes      int
	SessionsToday     int
	MinutesToday      int
}

// Class is one recurring entry on the class schedule. Days holds one letter
// per weekday in MTWRFSU order (R is Thursday, U is Sunday); Start and End
// are wall-clock times in "15:04" form.
type Class struct {
	ID        int64
	Title     string
	Days      string
	Start     string
	End       string // empty when the user gave no end time
	Location  string
	Semester  string
	CreatedAt time.Time
}

// Assignment is a piece of coursework with a due date.
type Assignment struct {
	ID          int64
	Title       string
	Course      string
	DueDate     time.Time // midnight local on the due day
	Description string
	Priority    string
	Done        bool
	CreatedAt   time.Time
}

// Conversation is one user/assistant exchange.
type Conversation struct {
	ID            int64
	UserText      string
	AssistantText string
	CreatedAt     time.Time
}

// RecalledConversation pairs a retrieved exchange with its vector-space
// distance from the query embedding. Lower means more similar.
type RecalledConversation struct {
	Conversation Conversation
	Distance     float64
}

// Store is the persistence boundary of the assistant.
type Store interface {
	// AddTask inserts a new task and returns it with ID and CreatedAt set.
	AddTask(ctx context.Context, description, priority string) (Task, error)

	// ListTasks returns tasks ordered by creation time, oldest first.
	// When includeDone is false, completed tasks are omitted.
	ListTasks(ctx context.Context, includeDone bool) ([]Task, error)

	// CompleteTask marks the task done. Returns ErrNotFound for an unknown ID.
	CompleteTask(ctx context.Context, id int64) error

	// AddReminder inserts a reminder and returns it with ID and CreatedAt set.
	AddReminder(ctx context.Context, r Reminder) (Reminder, error)

	// DueReminders returns all pending reminders with DueAt <= now, ordered by
	// DueAt. Reminders already marked done are never returned.
	DueReminders(ctx context.Context, now time.Time) ([]Reminder, error)

	// PendingReminders returns all not-yet-done reminders ordered by DueAt.
	PendingReminders(ctx context.Context) ([]Reminder, error)

	// CompleteReminder marks the reminder done so it is never delivered again.
	// Returns ErrNotFound for an unknown ID.
	CompleteReminder(ctx context.Context, id int64) error

	// CancelReminder removes a pending reminder without delivering it.
	// Returns ErrNotFound for an unknown ID.
	CancelReminder(ctx context.Context, id int64) error

	// AddClass inserts a class and returns it with ID and CreatedAt set.
	AddClass(ctx context.Context, c Class) (Class, error)

	// ListClasses returns classes ordered by start time. A non-empty day
	// (one MTWRFSU letter) restricts the result to classes meeting that day.
	ListClasses(ctx context.Context, day string) ([]Class, error)

	// AddAssignment inserts an assignment and returns it with ID and
	// CreatedAt set.
	AddAssignment(ctx context.Context, a Assignment) (Assignment, error)

	// ListAssignments returns assignments ordered by due date, soonest
	// first. When includeDone is false, completed ones are omitted.
	ListAssignments(ctx context.Context, includeDone bool) ([]Assignment, error)

	// UpcomingAssignments returns pending assignments due on or before the
	// given day, soonest first.
	UpcomingAssignments(ctx context.Context, by time.Time) ([]Assignment, error)

	// CompleteAssignment marks the assignment done. Returns ErrNotFound for
	// an unknown ID.
	CompleteAssignment(ctx context.Context, id int64) error

	// SaveStudySession records a finished (or stopped) focus interval.
	SaveStudySession(ctx context.Context, s StudySession) (StudySession, error)

	// StudyStats aggregates study history. today is the start of the current
	// local day, used for the per-day counters.
	StudyStats(ctx context.Context, today time.Time) (StudyStats, error)

	// SaveConversation appends one exchange to the conversation log.
	SaveConversation(ctx context.Context, c Conversation) (Conversation, error)

	// RecentConversations returns the latest exchanges, newest first, capped
	// at limit.
	RecentConversations(ctx context.Context, limit int) ([]Conversation, error)

	// GetPreference returns the stored value for key, or "" when unset.
	GetPreference(ctx context.Context, key string) (string, error)

	// SetPreference stores value under key, replacing any previous value.
	SetPreference(ctx context.Context, key, value string) error

	// Ping reports whether the backing database is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying database handle.
	Close() error
}

// SemanticRecaller is the optional embedding-based retrieval surface. The
// PostgreSQL backend implements it; callers probe with a type assertion and
// fall back to RecentConversations when the store does not.
type SemanticRecaller interface {
	// SimilarConversations returns up to limit past exchanges ranked by
	// semantic similarity to query.
	SimilarConversations(ctx context.Context, query string, limit int) ([]RecalledConversation, error)
}
