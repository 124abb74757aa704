package brain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arthur-assist/arthur/internal/store"
	"github.com/arthur-assist/arthur/pkg/provider/llm"
	llmmock "github.com/arthur-assist/arthur/pkg/provider/llm/mock"
)

func TestParseIntent(t *testing.T) {
	t.Parallel()
	cases := []struct {
		text    string
		kind    Kind
		payload string
	}{
		{"remind me to stretch in ten minutes", KindAddReminder, "to stretch in ten minutes"},
		{"Remind me at 3pm to call the bank", KindAddReminder, "at 3pm to call the bank"},
		{"what are my reminders", KindListReminders, ""},
		{"cancel the reminder", KindCancelReminder, ""},
		{"add buy oat milk to my list", KindAddTask, "buy oat milk"},
		{"add a task: renew my passport", KindAddTask, "renew my passport"},
		{"what's on my list", KindListTasks, ""},
		{"read me my task list", KindListTasks, ""},
		{"I finished the laundry", KindCompleteTask, "the laundry"},
		{"start a focus session", KindStartFocus, ""},
		{"start a focus session on linear algebra", KindStartFocus, "linear algebra"},
		{"let's study", KindStartFocus, ""},
		{"start a study session on spanish verbs", KindStartFocus, "spanish verbs"},
		{"take a break", KindStartBreak, ""},
		{"stop the timer", KindStopTimer, ""},
		{"how much time left", KindTimerStatus, ""},
		{"how much have I studied today", KindStudyStats, ""},
		{"what time is it", KindTime, ""},
		{"add a class: chemistry on monday wednesday at 10am", KindAddClass, "chemistry on monday wednesday at 10am"},
		{"add class biology on TR at 2pm in room 12", KindAddClass, "biology on TR at 2pm in room 12"},
		{"what's my schedule today", KindViewSchedule, "what's my schedule today"},
		{"when is my next class", KindNextClass, ""},
		{"add an assignment: essay draft due friday", KindAddAssignment, "essay draft due friday"},
		{"what's due this week", KindViewAssignments, "what's due this week"},
		{"I finished the essay assignment", KindCompleteAssignment, "the essay assignment"},
		{"tell me a joke about penguins", KindChat, "tell me a joke about penguins"},
	}

	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			t.Parallel()
			got := ParseIntent(tc.text)
			if got.Kind != tc.kind {
				t.Errorf("ParseIntent(%q).Kind = %v, want %v", tc.text, got.Kind, tc.kind)
			}
			if got.Payload != tc.payload {
				t.Errorf("ParseIntent(%q).Payload = %q, want %q", tc.text, got.Payload, tc.payload)
			}
		})
	}
}

func TestParseIntentFocusDuration(t *testing.T) {
	t.Parallel()

	got := ParseIntent("start a focus session on linear algebra for 50 minutes")
	if got.Kind != KindStartFocus || got.Payload != "linear algebra" || got.Minutes != 50 {
		t.Errorf("ParseIntent = %+v, want start_focus on linear algebra for 50", got)
	}

	got = ParseIntent("start a pomodoro for 10 minutes")
	if got.Kind != KindStartFocus || got.Payload != "" || got.Minutes != 10 {
		t.Errorf("ParseIntent = %+v, want a bare 10-minute start_focus", got)
	}
}

func TestThinkReplaysHistoryChronologically(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemStore()
	st.SaveConversation(ctx, store.Conversation{UserText: "older", AssistantText: "first reply"})
	st.SaveConversation(ctx, store.Conversation{UserText: "newer", AssistantText: "second reply"})

	model := &llmmock.Provider{Replies: []string{"sure thing"}}
	b := New(Config{}, model, st, nil)

	if got := b.Think(ctx, "hello"); got != "sure thing" {
		t.Fatalf("Think = %q", got)
	}

	req := model.LastRequest()
	if req.SystemPrompt == "" {
		t.Error("system prompt missing")
	}
	want := []llm.Message{
		{Role: llm.RoleUser, Content: "older"},
		{Role: llm.RoleAssistant, Content: "first reply"},
		{Role: llm.RoleUser, Content: "newer"},
		{Role: llm.RoleAssistant, Content: "second reply"},
		{Role: llm.RoleUser, Content: "hello"},
	}
	if len(req.Messages) != len(want) {
		t.Fatalf("got %d messages, want %d: %+v", len(req.Messages), len(want), req.Messages)
	}
	for i := range want {
		if req.Messages[i] != want[i] {
			t.Errorf("message %d = %+v, want %+v", i, req.Messages[i], want[i])
		}
	}
}

func TestThinkFallsBackOnModelFailure(t *testing.T) {
	t.Parallel()
	model := &llmmock.Provider{Err: errors.New("connection refused")}
	b := New(Config{}, model, store.NewMemStore(), nil)

	got := b.Think(context.Background(), "hello")
	if got != fallbackReply {
		t.Errorf("Think = %q, want apologetic fallback", got)
	}
}

func TestRemember(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemStore()
	b := New(Config{}, &llmmock.Provider{}, st, nil)

	b.Remember(ctx, "how are you", "doing great")

	convs, err := st.RecentConversations(ctx, 10)
	if err != nil {
		t.Fatalf("RecentConversations: %v", err)
	}
	if len(convs) != 1 || convs[0].UserText != "how are you" {
		t.Errorf("conversations = %+v", convs)
	}
}

func TestGreeting(t *testing.T) {
	t.Parallel()
	mk := func(hour int) time.Time {
		return time.Date(2026, 3, 10, hour, 0, 0, 0, time.Local)
	}
	if got := Greeting(mk(8)); got != "Good morning! How can I help?" {
		t.Errorf("morning greeting = %q", got)
	}
	if got := Greeting(mk(14)); got != "Good afternoon! What can I do for you?" {
		t.Errorf("afternoon greeting = %q", got)
	}
	if got := Greeting(mk(21)); got != "Good evening! What do you need?" {
		t.Errorf("evening greeting = %q", got)
	}
}
