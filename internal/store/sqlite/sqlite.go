// Package sqlite provides the embedded SQLite implementation of store.Store.
//
// It uses the pure-Go modernc.org/sqlite driver, so no cgo toolchain is
// required. This is the default backend: the whole assistant state lives in a
// single file next to the config.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/arthur-assist/arthur/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    description  TEXT    NOT NULL,
    priority     TEXT    NOT NULL DEFAULT '',
    done         INTEGER NOT NULL DEFAULT 0,
    created_at   INTEGER NOT NULL,
    completed_at INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS reminders (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    text       TEXT    NOT NULL,
    due_at     INTEGER NOT NULL,
    recurring  TEXT    NOT NULL DEFAULT '',
    done       INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reminders_due
    ON reminders (done, due_at);

CREATE TABLE IF NOT EXISTS classes (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    title      TEXT    NOT NULL,
    days       TEXT    NOT NULL,
    start_time TEXT    NOT NULL,
    end_time   TEXT    NOT NULL DEFAULT '',
    location   TEXT    NOT NULL DEFAULT '',
    semester   TEXT    NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS assignments (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    title       TEXT    NOT NULL,
    course      TEXT    NOT NULL DEFAULT '',
    due_date    INTEGER NOT NULL,
    description TEXT    NOT NULL DEFAULT '',
    priority    TEXT    NOT NULL DEFAULT '',
    done        INTEGER NOT NULL DEFAULT 0,
    created_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_assignments_due
    ON assignments (done, due_date);

CREATE TABLE IF NOT EXISTS study_sessions (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    kind       TEXT    NOT NULL,
    subject    TEXT    NOT NULL DEFAULT '',
    minutes    INTEGER NOT NULL,
    completed  INTEGER NOT NULL DEFAULT 0,
    started_at INTEGER NOT NULL,
    ended_at   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS conversations (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    user_text      TEXT    NOT NULL,
    assistant_text TEXT    NOT NULL,
    created_at     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS user_preferences (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// Store is the SQLite-backed store.Store.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if necessary) the database at path and ensures the
// schema exists. Pass ":memory:" for an ephemeral database in tests.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}

	// modernc.org/sqlite serialises writes per connection; a single
	// connection avoids SQLITE_BUSY between the listen loop and the
	// reminder scheduler.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// AddTask implements store.Store.
func (s *Store) AddTask(ctx context.Context, description, priority string) (store.Task, error) {
	now := time.Now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (description, priority, created_at) VALUES (?, ?, ?)`,
		description, priority, now.Unix())
	if err != nil {
		return store.Task{}, fmt.Errorf("sqlite: add task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return store.Task{}, fmt.Errorf("sqlite: add task: %w", err)
	}
	return store.Task{ID: id, Description: description, Priority: priority, CreatedAt: now}, nil
}

// ListTasks implements store.Store.
func (s *Store) ListTasks(ctx context.Context, includeDone bool) ([]store.Task, error) {
	q := `SELECT id, description, priority, done, created_at, completed_at
	      FROM tasks ORDER BY created_at ASC, id ASC`
	if !includeDone {
		q = `SELECT id, description, priority, done, created_at, completed_at
		     FROM tasks WHERE done = 0 ORDER BY created_at ASC, id ASC`
	}
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []store.Task
	for rows.Next() {
		var t store.Task
		var done int
		var created, completed int64
		if err := rows.Scan(&t.ID, &t.Description, &t.Priority, &done, &created, &completed); err != nil {
			return nil, fmt.Errorf("sqlite: scan task: %w", err)
		}
		t.Done = done != 0
		t.CreatedAt = time.Unix(created, 0)
		if completed > 0 {
			t.CompletedAt = time.Unix(completed, 0)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CompleteTask implements store.Store.
func (s *Store) CompleteTask(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET done = 1, completed_at = ? WHERE id = ? AND done = 0`,
		time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("sqlite: complete task: %w", err)
	}
	return checkAffected(res)
}

// AddReminder implements store.Store.
func (s *Store) AddReminder(ctx context.Context, r store.Reminder) (store.Reminder, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders (text, due_at, recurring, created_at) VALUES (?, ?, ?, ?)`,
		r.Text, r.DueAt.Unix(), r.Recurring, r.CreatedAt.Unix())
	if err != nil {
		return store.Reminder{}, fmt.Errorf("sqlite: add reminder: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return store.Reminder{}, fmt.Errorf("sqlite: add reminder: %w", err)
	}
	r.ID = id
	return r, nil
}

// DueReminders implements store.Store.
func (s *Store) DueReminders(ctx context.Context, now time.Time) ([]store.Reminder, error) {
	return s.queryReminders(ctx,
		`SELECT id, text, due_at, recurring, done, created_at
		 FROM reminders WHERE done = 0 AND due_at <= ? ORDER BY due_at ASC`,
		now.Unix())
}

// PendingReminders implements store.Store.
func (s *Store) PendingReminders(ctx context.Context) ([]store.Reminder, error) {
	return s.queryReminders(ctx,
		`SELECT id, text, due_at, recurring, done, created_at
		 FROM reminders WHERE done = 0 ORDER BY due_at ASC`)
}

func (s *Store) queryReminders(ctx context.Context, q string, args ...any) ([]store.Reminder, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query reminders: %w", err)
	}
	defer rows.Close()

	var rems []store.Reminder
	for rows.Next() {
		var r store.Reminder
		var done int
		var due, created int64
		if err := rows.Scan(&r.ID, &r.Text, &due, &r.Recurring, &done, &created); err != nil {
			return nil, fmt.Errorf("sqlite: scan reminder: %w", err)
		}
		r.Done = done != 0
		r.DueAt = time.Unix(due, 0)
		r.CreatedAt = time.Unix(created, 0)
		rems = append(rems, r)
	}
	return rems, rows.Err()
}

// CompleteReminder implements store.Store.
func (s *Store) CompleteReminder(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reminders SET done = 1 WHERE id = ? AND done = 0`, id)
	if err != nil {
		return fmt.Errorf("sqlite: complete reminder: %w", err)
	}
	return checkAffected(res)
}

// CancelReminder implements store.Store.
func (s *Store) CancelReminder(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM reminders WHERE id = ? AND done = 0`, id)
	if err != nil {
		return fmt.Errorf("sqlite: cancel reminder: %w", err)
	}
	return checkAffected(res)
}

// AddClass implements store.Store.
func (s *Store) AddClass(ctx context.Context, c store.Class) (store.Class, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO classes (title, days, start_time, end_time, location, semester, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.Title, c.Days, c.Start, c.End, c.Location, c.Semester, c.CreatedAt.Unix())
	if err != nil {
		return store.Class{}, fmt.Errorf("sqlite: add class: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return store.Class{}, fmt.Errorf("sqlite: add class: %w", err)
	}
	c.ID = id
	return c, nil
}

// ListClasses implements store.Store.
func (s *Store) ListClasses(ctx context.Context, day string) ([]store.Class, error) {
	q := `SELECT id, title, days, start_time, end_time, location, semester, created_at
	      FROM classes ORDER BY start_time ASC, id ASC`
	args := []any{}
	if day != "" {
		q = `SELECT id, title, days, start_time, end_time, location, semester, created_at
		     FROM classes WHERE days LIKE ? ORDER BY start_time ASC, id ASC`
		args = append(args, "%"+day+"%")
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list classes: %w", err)
	}
	defer rows.Close()

	var classes []store.Class
	for rows.Next() {
		var c store.Class
		var created int64
		if err := rows.Scan(&c.ID, &c.Title, &c.Days, &c.Start, &c.End, &c.Location, &c.Semester, &created); err != nil {
			return nil, fmt.Errorf("sqlite: scan class: %w", err)
		}
		c.CreatedAt = time.Unix(created, 0)
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

// AddAssignment implements store.Store.
func (s *Store) AddAssignment(ctx context.Context, a store.Assignment) (store.Assignment, error) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO assignments (title, course, due_date, description, priority, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.Title, a.Course, a.DueDate.Unix(), a.Description, a.Priority, a.CreatedAt.Unix())
	if err != nil {
		return store.Assignment{}, fmt.Errorf("sqlite: add assignment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return store.Assignment{}, fmt.Errorf("sqlite: add assignment: %w", err)
	}
	a.ID = id
	return a, nil
}

// ListAssignments implements store.Store.
func (s *Store) ListAssignments(ctx context.Context, includeDone bool) ([]store.Assignment, error) {
	q := `SELECT id, title, course, due_date, description, priority, done, created_at
	      FROM assignments ORDER BY due_date ASC, id ASC`
	if !includeDone {
		q = `SELECT id, title, course, due_date, description, priority, done, created_at
		     FROM assignments WHERE done = 0 ORDER BY due_date ASC, id ASC`
	}
	return s.queryAssignments(ctx, q)
}

// UpcomingAssignments implements store.Store.
func (s *Store) UpcomingAssignments(ctx context.Context, by time.Time) ([]store.Assignment, error) {
	return s.queryAssignments(ctx,
		`SELECT id, title, course, due_date, description, priority, done, created_at
		 FROM assignments WHERE done = 0 AND due_date <= ? ORDER BY due_date ASC, id ASC`,
		by.Unix())
}

func (s *Store) queryAssignments(ctx context.Context, q string, args ...any) ([]store.Assignment, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query assignments: %w", err)
	}
	defer rows.Close()

	var asgs []store.Assignment
	for rows.Next() {
		var a store.Assignment
		var done int
		var due, created int64
		if err := rows.Scan(&a.ID, &a.Title, &a.Course, &due, &a.Description, &a.Priority, &done, &created); err != nil {
			return nil, fmt.Errorf("sqlite: scan assignment: %w", err)
		}
		a.Done = done != 0
		a.DueDate = time.Unix(due, 0)
		a.CreatedAt = time.Unix(created, 0)
		asgs = append(asgs, a)
	}
	return asgs, rows.Err()
}

// CompleteAssignment implements store.Store.
func (s *Store) CompleteAssignment(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE assignments SET done = 1 WHERE id = ? AND done = 0`, id)
	if err != nil {
		return fmt.Errorf("sqlite: complete assignment: %w", err)
	}
	return checkAffected(res)
}

// SaveStudySession implements store.Store.
func (s *Store) SaveStudySession(ctx context.Context, sess store.StudySession) (store.StudySession, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO study_sessions (kind, subject, minutes, completed, started_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sess.Kind, sess.Subject, sess.Minutes, boolInt(sess.Completed), sess.StartedAt.Unix(), sess.EndedAt.Unix())
	if err != nil {
		return store.StudySession{}, fmt.Errorf("sqlite: save study session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return store.StudySession{}, fmt.Errorf("sqlite: save study session: %w", err)
	}
	sess.ID = id
	return sess, nil
}

// StudyStats implements store.Store.
func (s *Store) StudyStats(ctx context.Context, today time.Time) (store.StudyStats, error) {
	var stats store.StudyStats
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(completed), 0),
		        COALESCE(SUM(minutes), 0),
		        COALESCE(SUM(CASE WHEN started_at >= ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN started_at >= ? THEN minutes ELSE 0 END), 0)
		 FROM study_sessions WHERE kind = ?`,
		today.Unix(), today.Unix(), store.SessionFocus)
	if err := row.Scan(&stats.TotalSessions, &stats.CompletedSessions, &stats.TotalMinutes,
		&stats.SessionsToday, &stats.MinutesToday); err != nil {
		return store.StudyStats{}, fmt.Errorf("sqlite: study stats: %w", err)
	}
	return stats, nil
}

// SaveConversation implements store.Store.
func (s *Store) SaveConversation(ctx context.Context, c store.Conversation) (store.Conversation, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (user_text, assistant_text, created_at) VALUES (?, ?, ?)`,
		c.UserText, c.AssistantText, c.CreatedAt.Unix())
	if err != nil {
		return store.Conversation{}, fmt.Errorf("sqlite: save conversation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return store.Conversation{}, fmt.Errorf("sqlite: save conversation: %w", err)
	}
	c.ID = id
	return c, nil
}

// RecentConversations implements store.Store.
func (s *Store) RecentConversations(ctx context.Context, limit int) ([]store.Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_text, assistant_text, created_at
		 FROM conversations ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: recent conversations: %w", err)
	}
	defer rows.Close()

	var convs []store.Conversation
	for rows.Next() {
		var c store.Conversation
		var created int64
		if err := rows.Scan(&c.ID, &c.UserText, &c.AssistantText, &created); err != nil {
			return nil, fmt.Errorf("sqlite: scan conversation: %w", err)
		}
		c.CreatedAt = time.Unix(created, 0)
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// GetPreference implements store.Store.
func (s *Store) GetPreference(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM user_preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("sqlite: get preference: %w", err)
	}
	return value, nil
}

// SetPreference implements store.Store.
func (s *Store) SetPreference(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_preferences (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("sqlite: set preference: %w", err)
	}
	return nil
}

// Ping implements store.Store.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements store.Store.
func (s *Store) Close() error {
	return s.db.Close()
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
