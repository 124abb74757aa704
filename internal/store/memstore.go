package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemStore is an in-memory Store used in tests and as a throwaway backend for
// running without a database. Data does not survive a restart.
type MemStore struct {
	mu            sync.Mutex
	nextID        int64
	tasks         []Task
	reminders     []Reminder
	classes       []Class
	assignments   []Assignment
	sessions      []StudySession
	conversations []Conversation
	prefs         map[string]string
}

var _ Store = (*MemStore)(nil)

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{prefs: map[string]string{}}
}

func (m *MemStore) id() int64 {
	m.nextID++
	return m.nextID
}

// AddTask implements Store.
func (m *MemStore) AddTask(_ context.Context, description, priority string) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := Task{
		ID:          m.id(),
		Description: description,
		Priority:    priority,
		CreatedAt:   time.Now(),
	}
	m.tasks = append(m.tasks, t)
	return t, nil
}

// ListTasks implements Store.
func (m *MemStore) ListTasks(_ context.Context, includeDone bool) ([]Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Task
	for _, t := range m.tasks {
		if t.Done && !includeDone {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// CompleteTask implements Store.
func (m *MemStore) CompleteTask(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.tasks {
		if m.tasks[i].ID == id {
			m.tasks[i].Done = true
			m.tasks[i].CompletedAt = time.Now()
			return nil
		}
	}
	return ErrNotFound
}

// AddReminder implements Store.
func (m *MemStore) AddReminder(_ context.Context, r Reminder) (Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r.ID = m.id()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	m.reminders = append(m.reminders, r)
	return r, nil
}

// DueReminders implements Store.
func (m *MemStore) DueReminders(_ context.Context, now time.Time) ([]Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Reminder
	for _, r := range m.reminders {
		if !r.Done && !r.DueAt.After(now) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
	return out, nil
}

// PendingReminders implements Store.
func (m *MemStore) PendingReminders(_ context.Context) ([]Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Reminder
	for _, r := range m.reminders {
		if !r.Done {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
	return out, nil
}

// CompleteReminder implements Store.
func (m *MemStore) CompleteReminder(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.reminders {
		if m.reminders[i].ID == id {
			m.reminders[i].Done = true
			return nil
		}
	}
	return ErrNotFound
}

// CancelReminder implements Store.
func (m *MemStore) CancelReminder(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.reminders {
		if m.reminders[i].ID == id {
			m.reminders = append(m.reminders[:i], m.reminders[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// AddClass implements Store.
func (m *MemStore) AddClass(_ context.Context, c Class) (Class, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c.ID = m.id()
	c.CreatedAt = time.Now()
	m.classes = append(m.classes, c)
	return c, nil
}

// ListClasses implements Store.
func (m *MemStore) ListClasses(_ context.Context, day string) ([]Class, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Class
	for _, c := range m.classes {
		if day != "" && !strings.Contains(c.Days, day) {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

// AddAssignment implements Store.
func (m *MemStore) AddAssignment(_ context.Context, a Assignment) (Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a.ID = m.id()
	a.CreatedAt = time.Now()
	m.assignments = append(m.assignments, a)
	return a, nil
}

// ListAssignments implements Store.
func (m *MemStore) ListAssignments(_ context.Context, includeDone bool) ([]Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Assignment
	for _, a := range m.assignments {
		if a.Done && !includeDone {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

// UpcomingAssignments implements Store.
func (m *MemStore) UpcomingAssignments(_ context.Context, by time.Time) ([]Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Assignment
	for _, a := range m.assignments {
		if a.Done || a.DueDate.After(by) {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

// CompleteAssignment implements Store.
func (m *MemStore) CompleteAssignment(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.assignments {
		if m.assignments[i].ID == id {
			m.assignments[i].Done = true
			return nil
		}
	}
	return ErrNotFound
}

// SaveStudySession implements Store.
func (m *MemStore) SaveStudySession(_ context.Context, s StudySession) (StudySession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.ID = m.id()
	m.sessions = append(m.sessions, s)
	return s, nil
}

// Sessions returns a copy of the recorded study sessions, oldest first.
func (m *MemStore) Sessions() []StudySession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]StudySession(nil), m.sessions...)
}

// StudyStats implements Store.
func (m *MemStore) StudyStats(_ context.Context, today time.Time) (StudyStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stats StudyStats
	for _, s := range m.sessions {
		if s.Kind != SessionFocus {
			continue
		}
		stats.TotalSessions++
		stats.TotalMinutes += s.Minutes
		if s.Completed {
			stats.CompletedSessions++
		}
		if !s.StartedAt.Before(today) {
			stats.SessionsToday++
			stats.MinutesToday += s.Minutes
		}
	}
	return stats, nil
}

// SaveConversation implements Store.
func (m *MemStore) SaveConversation(_ context.Context, c Conversation) (Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c.ID = m.id()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	m.conversations = append(m.conversations, c)
	return c, nil
}

// RecentConversations implements Store.
func (m *MemStore) RecentConversations(_ context.Context, limit int) ([]Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Conversation
	for i := len(m.conversations) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.conversations[i])
	}
	return out, nil
}

// GetPreference implements Store.
func (m *MemStore) GetPreference(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prefs[key], nil
}

// SetPreference implements Store.
func (m *MemStore) SetPreference(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[key] = value
	return nil
}

// Ping implements Store.
func (m *MemStore) Ping(context.Context) error { return nil }

// Close implements Store.
func (m *MemStore) Close() error { return nil }
