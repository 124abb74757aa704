// Package postgres provides the PostgreSQL implementation of store.Store.
//
// Unlike the embedded SQLite backend it also implements
// [store.SemanticRecaller]: conversations are embedded on write and retrieved
// by cosine distance using the pgvector extension. The extension must be
// available in the target database; [Migrate] installs it via CREATE EXTENSION
// IF NOT EXISTS.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/arthur-assist/arthur/internal/store"
	"github.com/arthur-assist/arthur/pkg/provider/embeddings"
)

// Store is the PostgreSQL-backed store.Store. All operations are safe for
// concurrent use.
type Store struct {
	pool     *pgxpool.Pool
	embedder embeddings.Provider // nil disables semantic recall
	log      *slog.Logger
}

var (
	_ store.Store            = (*Store)(nil)
	_ store.SemanticRecaller = (*Store)(nil)
)

// NewStore connects to the database at dsn, registers pgvector types on every
// connection, and runs [Migrate].
//
// embedder may be nil, in which case conversations are stored without vectors
// and SimilarConversations always returns an empty result. When set, the
// vector column dimension is fixed to embedder.Dimensions() at first
// migration; changing models later requires a manual schema change.
func NewStore(ctx context.Context, dsn string, embedder embeddings.Provider, log *slog.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}
	if embedder != nil {
		// The vector type only exists once the extension is installed, so
		// registration is skipped entirely when recall is disabled.
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			return pgxvec.RegisterTypes(ctx, conn)
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	dims := 0
	if embedder != nil {
		dims = embedder.Dimensions()
	}
	if err := Migrate(ctx, pool, dims); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	if log == nil {
		log = slog.Default()
	}
	return &Store{pool: pool, embedder: embedder, log: log}, nil
}

// AddTask implements store.Store.
func (s *Store) AddTask(ctx context.Context, description, priority string) (store.Task, error) {
	var t store.Task
	err := s.pool.QueryRow(ctx,
		`INSERT INTO tasks (description, priority) VALUES ($1, $2)
		 RETURNING id, description, priority, created_at`,
		description, priority).Scan(&t.ID, &t.Description, &t.Priority, &t.CreatedAt)
	if err != nil {
		return store.Task{}, fmt.Errorf("postgres store: add task: %w", err)
	}
	return t, nil
}

// ListTasks implements store.Store.
func (s *Store) ListTasks(ctx context.Context, includeDone bool) ([]store.Task, error) {
	q := `SELECT id, description, priority, done, created_at, completed_at
	      FROM tasks ORDER BY created_at ASC, id ASC`
	if !includeDone {
		q = `SELECT id, description, priority, done, created_at, completed_at
		     FROM tasks WHERE NOT done ORDER BY created_at ASC, id ASC`
	}
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list tasks: %w", err)
	}
	tasks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Task, error) {
		var t store.Task
		var completed *time.Time
		if err := row.Scan(&t.ID, &t.Description, &t.Priority, &t.Done, &t.CreatedAt, &completed); err != nil {
			return store.Task{}, err
		}
		if completed != nil {
			t.CompletedAt = *completed
		}
		return t, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: collect tasks: %w", err)
	}
	return tasks, nil
}

// CompleteTask implements store.Store.
func (s *Store) CompleteTask(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tasks SET done = TRUE, completed_at = now() WHERE id = $1 AND NOT done`, id)
	if err != nil {
		return fmt.Errorf("postgres store: complete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// AddReminder implements store.Store.
func (s *Store) AddReminder(ctx context.Context, r store.Reminder) (store.Reminder, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO reminders (text, due_at, recurring) VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		r.Text, r.DueAt, r.Recurring).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return store.Reminder{}, fmt.Errorf("postgres store: add reminder: %w", err)
	}
	return r, nil
}

// DueReminders implements store.Store.
func (s *Store) DueReminders(ctx context.Context, now time.Time) ([]store.Reminder, error) {
	return s.queryReminders(ctx,
		`SELECT id, text, due_at, recurring, done, created_at
		 FROM reminders WHERE NOT done AND due_at <= $1 ORDER BY due_at ASC`, now)
}

// PendingReminders implements store.Store.
func (s *Store) PendingReminders(ctx context.Context) ([]store.Reminder, error) {
	return s.queryReminders(ctx,
		`SELECT id, text, due_at, recurring, done, created_at
		 FROM reminders WHERE NOT done ORDER BY due_at ASC`)
}

func (s *Store) queryReminders(ctx context.Context, q string, args ...any) ([]store.Reminder, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres store: query reminders: %w", err)
	}
	rems, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Reminder, error) {
		var r store.Reminder
		err := row.Scan(&r.ID, &r.Text, &r.DueAt, &r.Recurring, &r.Done, &r.CreatedAt)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: collect reminders: %w", err)
	}
	return rems, nil
}

// CompleteReminder implements store.Store.
func (s *Store) CompleteReminder(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE reminders SET done = TRUE WHERE id = $1 AND NOT done`, id)
	if err != nil {
		return fmt.Errorf("postgres store: complete reminder: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// CancelReminder implements store.Store.
func (s *Store) CancelReminder(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM reminders WHERE id = $1 AND NOT done`, id)
	if err != nil {
		return fmt.Errorf("postgres store: cancel reminder: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// AddClass implements store.Store.
func (s *Store) AddClass(ctx context.Context, c store.Class) (store.Class, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO classes (title, days, start_time, end_time, location, semester)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`,
		c.Title, c.Days, c.Start, c.End, c.Location, c.Semester).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return store.Class{}, fmt.Errorf("postgres store: add class: %w", err)
	}
	return c, nil
}

// ListClasses implements store.Store.
func (s *Store) ListClasses(ctx context.Context, day string) ([]store.Class, error) {
	q := `SELECT id, title, days, start_time, end_time, location, semester, created_at
	      FROM classes ORDER BY start_time ASC, id ASC`
	args := []any{}
	if day != "" {
		q = `SELECT id, title, days, start_time, end_time, location, semester, created_at
		     FROM classes WHERE days LIKE $1 ORDER BY start_time ASC, id ASC`
		args = append(args, "%"+day+"%")
	}
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list classes: %w", err)
	}
	classes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Class, error) {
		var c store.Class
		err := row.Scan(&c.ID, &c.Title, &c.Days, &c.Start, &c.End, &c.Location, &c.Semester, &c.CreatedAt)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: collect classes: %w", err)
	}
	return classes, nil
}

// AddAssignment implements store.Store.
func (s *Store) AddAssignment(ctx context.Context, a store.Assignment) (store.Assignment, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO assignments (title, course, due_date, description, priority)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		a.Title, a.Course, a.DueDate, a.Description, a.Priority).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return store.Assignment{}, fmt.Errorf("postgres store: add assignment: %w", err)
	}
	return a, nil
}

// ListAssignments implements store.Store.
func (s *Store) ListAssignments(ctx context.Context, includeDone bool) ([]store.Assignment, error) {
	q := `SELECT id, title, course, due_date, description, priority, done, created_at
	      FROM assignments ORDER BY due_date ASC, id ASC`
	if !includeDone {
		q = `SELECT id, title, course, due_date, description, priority, done, created_at
		     FROM assignments WHERE NOT done ORDER BY due_date ASC, id ASC`
	}
	return s.queryAssignments(ctx, q)
}

// UpcomingAssignments implements store.Store.
func (s *Store) UpcomingAssignments(ctx context.Context, by time.Time) ([]store.Assignment, error) {
	return s.queryAssignments(ctx,
		`SELECT id, title, course, due_date, description, priority, done, created_at
		 FROM assignments WHERE NOT done AND due_date <= $1 ORDER BY due_date ASC, id ASC`, by)
}

func (s *Store) queryAssignments(ctx context.Context, q string, args ...any) ([]store.Assignment, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres store: query assignments: %w", err)
	}
	asgs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Assignment, error) {
		var a store.Assignment
		err := row.Scan(&a.ID, &a.Title, &a.Course, &a.DueDate, &a.Description, &a.Priority, &a.Done, &a.CreatedAt)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: collect assignments: %w", err)
	}
	return asgs, nil
}

// CompleteAssignment implements store.Store.
func (s *Store) CompleteAssignment(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE assignments SET done = TRUE WHERE id = $1 AND NOT done`, id)
	if err != nil {
		return fmt.Errorf("postgres store: complete assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SaveStudySession implements store.Store.
func (s *Store) SaveStudySession(ctx context.Context, sess store.StudySession) (store.StudySession, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO study_sessions (kind, subject, minutes, completed, started_at, ended_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		sess.Kind, sess.Subject, sess.Minutes, sess.Completed, sess.StartedAt, sess.EndedAt).Scan(&sess.ID)
	if err != nil {
		return store.StudySession{}, fmt.Errorf("postgres store: save study session: %w", err)
	}
	return sess, nil
}

// StudyStats implements store.Store.
func (s *Store) StudyStats(ctx context.Context, today time.Time) (store.StudyStats, error) {
	var stats store.StudyStats
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE completed),
		        COALESCE(SUM(minutes), 0),
		        COUNT(*) FILTER (WHERE started_at >= $1),
		        COALESCE(SUM(minutes) FILTER (WHERE started_at >= $1), 0)
		 FROM study_sessions WHERE kind = $2`,
		today, store.SessionFocus).Scan(
		&stats.TotalSessions, &stats.CompletedSessions, &stats.TotalMinutes,
		&stats.SessionsToday, &stats.MinutesToday)
	if err != nil {
		return store.StudyStats{}, fmt.Errorf("postgres store: study stats: %w", err)
	}
	return stats, nil
}

// SaveConversation implements store.Store. When an embedder is configured the
// exchange is embedded on write; an embedding failure is logged and the row is
// stored without a vector rather than losing the conversation.
func (s *Store) SaveConversation(ctx context.Context, c store.Conversation) (store.Conversation, error) {
	var vec any
	if s.embedder != nil {
		emb, err := s.embedder.Embed(ctx, c.UserText+"\n"+c.AssistantText)
		if err != nil {
			s.log.Warn("conversation embedding failed, storing without vector", "error", err)
		} else {
			vec = pgvector.NewVector(emb)
		}
	}

	err := s.pool.QueryRow(ctx,
		`INSERT INTO conversations (user_text, assistant_text, embedding)
		 VALUES ($1, $2, $3) RETURNING id, created_at`,
		c.UserText, c.AssistantText, vec).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return store.Conversation{}, fmt.Errorf("postgres store: save conversation: %w", err)
	}
	return c, nil
}

// RecentConversations implements store.Store.
func (s *Store) RecentConversations(ctx context.Context, limit int) ([]store.Conversation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_text, assistant_text, created_at
		 FROM conversations ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres store: recent conversations: %w", err)
	}
	convs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Conversation, error) {
		var c store.Conversation
		err := row.Scan(&c.ID, &c.UserText, &c.AssistantText, &c.CreatedAt)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: collect conversations: %w", err)
	}
	return convs, nil
}

// SimilarConversations implements store.SemanticRecaller. Results are ordered
// by ascending cosine distance, most similar first. Rows stored without a
// vector are never returned.
func (s *Store) SimilarConversations(ctx context.Context, query string, limit int) ([]store.RecalledConversation, error) {
	if s.embedder == nil {
		return nil, nil
	}
	emb, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres store: embed query: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, user_text, assistant_text, created_at, embedding <=> $1 AS distance
		 FROM conversations WHERE embedding IS NOT NULL
		 ORDER BY distance ASC LIMIT $2`,
		pgvector.NewVector(emb), limit)
	if err != nil {
		return nil, fmt.Errorf("postgres store: similar conversations: %w", err)
	}
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.RecalledConversation, error) {
		var rc store.RecalledConversation
		err := row.Scan(&rc.Conversation.ID, &rc.Conversation.UserText,
			&rc.Conversation.AssistantText, &rc.Conversation.CreatedAt, &rc.Distance)
		return rc, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: collect similar conversations: %w", err)
	}
	return results, nil
}

// GetPreference implements store.Store.
func (s *Store) GetPreference(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM user_preferences WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("postgres store: get preference: %w", err)
	}
	return value, nil
}

// SetPreference implements store.Store.
func (s *Store) SetPreference(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_preferences (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	if err != nil {
		return fmt.Errorf("postgres store: set preference: %w", err)
	}
	return nil
}

// Ping implements store.Store.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close implements store.Store.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
