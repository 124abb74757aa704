package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/arthur-assist/arthur/internal/store"
	"github.com/arthur-assist/arthur/internal/store/postgres"
	embmock "github.com/arthur-assist/arthur/pkg/provider/embeddings/mock"
)

// testDSN returns the test database DSN from the environment, or skips the
// test if ARTHUR_TEST_POSTGRES_DSN is not set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("ARTHUR_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ARTHUR_TEST_POSTGRES_DSN not set — skipping PostgreSQL integration tests")
	}
	return dsn
}

func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	embedder := &embmock.Provider{
		EmbedResult:  []float32{0.1, 0.2, 0.3, 0.4},
		ModelIDValue: "test-embed-v1",
	}
	s, err := postgres.NewStore(context.Background(), testDSN(t), embedder, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTaskLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	task, err := s.AddTask(ctx, "water the plants", "")
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if task.ID == 0 {
		t.Fatal("expected non-zero task ID")
	}

	if err := s.CompleteTask(ctx, task.ID); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	open, err := s.ListTasks(ctx, false)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	for _, got := range open {
		if got.ID == task.ID {
			t.Errorf("completed task %d still listed as open", task.ID)
		}
	}
}

func TestReminderDelivery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r, err := s.AddReminder(ctx, store.Reminder{
		Text:  "stand up",
		DueAt: time.Now().Add(-time.Minute),
	})
	if err != nil {
		t.Fatalf("AddReminder: %v", err)
	}

	due, err := s.DueReminders(ctx, time.Now())
	if err != nil {
		t.Fatalf("DueReminders: %v", err)
	}
	found := false
	for _, d := range due {
		if d.ID == r.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("reminder %d not returned as due", r.ID)
	}

	if err := s.CompleteReminder(ctx, r.ID); err != nil {
		t.Fatalf("CompleteReminder: %v", err)
	}
	due, err = s.DueReminders(ctx, time.Now())
	if err != nil {
		t.Fatalf("DueReminders: %v", err)
	}
	for _, d := range due {
		if d.ID == r.ID {
			t.Errorf("completed reminder %d still due", r.ID)
		}
	}
}

func TestSimilarConversations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.SaveConversation(ctx, store.Conversation{
		UserText:      "what time is my dentist appointment",
		AssistantText: "tomorrow at nine",
	}); err != nil {
		t.Fatalf("SaveConversation: %v", err)
	}

	results, err := s.SimilarConversations(ctx, "dentist", 5)
	if err != nil {
		t.Fatalf("SimilarConversations: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one recalled conversation")
	}
}
