package brain

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind classifies what the user asked for. Commands the assistant can serve
// locally get their own kind; everything else falls through to the language
// model as chat.
type Kind int

const (
	KindChat Kind = iota
	KindAddReminder
	KindListReminders
	KindCancelReminder
	KindAddTask
	KindListTasks
	KindCompleteTask
	KindStartFocus
	KindStartBreak
	KindStopTimer
	KindTimerStatus
	KindStudyStats
	KindTime
	KindAddClass
	KindViewSchedule
	KindNextClass
	KindAddAssignment
	KindViewAssignments
	KindCompleteAssignment
)

// String implements fmt.Stringer for log output.
func (k Kind) String() string {
	switch k {
	case KindChat:
		return "chat"
	case KindAddReminder:
		return "add_reminder"
	case KindListReminders:
		return "list_reminders"
	case KindCancelReminder:
		return "cancel_reminder"
	case KindAddTask:
		return "add_task"
	case KindListTasks:
		return "list_tasks"
	case KindCompleteTask:
		return "complete_task"
	case KindStartFocus:
		return "start_focus"
	case KindStartBreak:
		return "start_break"
	case KindStopTimer:
		return "stop_timer"
	case KindTimerStatus:
		return "timer_status"
	case KindStudyStats:
		return "study_stats"
	case KindTime:
		return "time"
	case KindAddClass:
		return "add_class"
	case KindViewSchedule:
		return "view_schedule"
	case KindNextClass:
		return "next_class"
	case KindAddAssignment:
		return "add_assignment"
	case KindViewAssignments:
		return "view_assignments"
	case KindCompleteAssignment:
		return "complete_assignment"
	default:
		return "unknown"
	}
}

// Intent is a parsed command. Payload carries the part of the utterance the
// handler needs: the reminder phrase, the task description, and so on.
type Intent struct {
	Kind    Kind
	Payload string

	// Minutes is a requested duration for timer commands, zero when the
	// utterance named none.
	Minutes int
}

var (
	reRemind       = regexp.MustCompile(`(?i)\bremind me\b\s*(.*)`)
	reAddTask      = regexp.MustCompile(`(?i)\b(?:add|put)\s+(?:a\s+task\s+)?(.+?)\s+(?:to|on)\s+my\s+(?:task\s+|to.?do\s+)?list\b`)
	reAddTaskAlt   = regexp.MustCompile(`(?i)\badd\s+a\s+task\b:?\s*(.*)`)
	reCompleteTask = regexp.MustCompile(`(?i)\b(?:i\s+(?:finished|did|completed)|(?:mark|check)\s+off|complete(?:d)?)\s+(.*)`)
	reFocusSubject = regexp.MustCompile(`(?i)\b(?:focus|focusing|study(?:ing)?)(?:\s+session)?\s+on\s+(.+)`)
	reFocusMinutes = regexp.MustCompile(`(?i)\bfor\s+(\d+)\s+min(?:ute)?s?\b`)
	reAddClass     = regexp.MustCompile(`(?i)\badd\s+(?:a\s+)?class\b:?\s*(.*)`)
	reAddAssign    = regexp.MustCompile(`(?i)\badd\s+(?:an?\s+)?assignment\b:?\s*(.*)`)
)

// ParseIntent classifies one spoken command. Matching is rule-based and
// ordered from most to least specific; anything unmatched is chat for the
// language model.
func ParseIntent(text string) Intent {
	lower := strings.ToLower(strings.TrimSpace(text))

	switch {
	case containsAny(lower, "list my reminders", "what are my reminders", "pending reminders", "my reminders", "upcoming reminders"):
		return Intent{Kind: KindListReminders}

	case containsAny(lower, "cancel the reminder", "cancel my reminder", "cancel that reminder", "delete the reminder"):
		return Intent{Kind: KindCancelReminder}

	case reRemind.MatchString(text):
		m := reRemind.FindStringSubmatch(text)
		return Intent{Kind: KindAddReminder, Payload: strings.TrimSpace(m[1])}

	case containsAny(lower, "task list", "my tasks", "to-do list", "todo list", "what's on my list", "what is on my list"):
		return Intent{Kind: KindListTasks}

	case reAddTask.MatchString(text):
		m := reAddTask.FindStringSubmatch(text)
		return Intent{Kind: KindAddTask, Payload: strings.TrimSpace(m[1])}

	case reAddTaskAlt.MatchString(text):
		m := reAddTaskAlt.FindStringSubmatch(text)
		return Intent{Kind: KindAddTask, Payload: strings.TrimSpace(m[1])}

	case containsAny(lower, "start a focus", "start focus", "start a pomodoro", "start a study session", "start studying", "let's study", "time to focus"):
		intent := Intent{Kind: KindStartFocus}
		if m := reFocusMinutes.FindStringSubmatch(text); m != nil {
			intent.Minutes, _ = strconv.Atoi(m[1])
		}
		if m := reFocusSubject.FindStringSubmatch(text); m != nil {
			subject := reFocusMinutes.ReplaceAllString(m[1], "")
			intent.Payload = strings.TrimSuffix(strings.TrimSpace(subject), ".")
		}
		return intent

	case containsAny(lower, "start a break", "take a break", "start my break", "break time"):
		return Intent{Kind: KindStartBreak}

	case containsAny(lower, "stop the timer", "stop the session", "end the session", "stop the pomodoro", "cancel the timer", "stop studying"):
		return Intent{Kind: KindStopTimer}

	case containsAny(lower, "time left", "time remaining", "how long left", "timer status", "how much longer"):
		return Intent{Kind: KindTimerStatus}

	case containsAny(lower, "have i studied", "did i study", "study stats", "study statistics", "how long did i study", "how much studying"):
		return Intent{Kind: KindStudyStats}

	case containsAny(lower, "what time is it", "what's the time", "what is the time", "current time"):
		return Intent{Kind: KindTime}

	case reAddClass.MatchString(text):
		m := reAddClass.FindStringSubmatch(text)
		return Intent{Kind: KindAddClass, Payload: strings.TrimSpace(m[1])}

	case containsAny(lower, "next class", "when is my class", "when's my class"):
		return Intent{Kind: KindNextClass}

	case containsAny(lower, "my schedule", "class schedule", "what classes", "which classes"):
		return Intent{Kind: KindViewSchedule, Payload: lower}

	case reAddAssign.MatchString(text):
		m := reAddAssign.FindStringSubmatch(text)
		return Intent{Kind: KindAddAssignment, Payload: strings.TrimSpace(m[1])}

	case containsAny(lower, "my assignments", "what's due", "what is due", "assignments due", "any homework"):
		return Intent{Kind: KindViewAssignments, Payload: lower}

	case reCompleteTask.MatchString(text) && strings.Contains(lower, "assignment"):
		m := reCompleteTask.FindStringSubmatch(text)
		return Intent{Kind: KindCompleteAssignment, Payload: strings.TrimSpace(m[1])}

	case reCompleteTask.MatchString(text):
		m := reCompleteTask.FindStringSubmatch(text)
		return Intent{Kind: KindCompleteTask, Payload: strings.TrimSpace(m[1])}

	default:
		return Intent{Kind: KindChat, Payload: strings.TrimSpace(text)}
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
