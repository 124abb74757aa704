package reminder

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/arthur-assist/arthur/internal/store"
)

// ErrNoTime is returned when no recognisable time phrase is found.
var ErrNoTime = errors.New("reminder: no time phrase found")

// numberWords maps the spoken numbers speech recognition produces instead of
// digits.
var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14,
	"fifteen": 15, "twenty": 20, "thirty": 30, "forty": 40,
	"forty-five": 45, "sixty": 60, "an": 1, "a": 1,
}

var (
	reRecurring = regexp.MustCompile(`(?i)\b(every\s+day|daily|every\s+morning|every\s+week|weekly)\b`)
	reIn        = regexp.MustCompile(`(?i)\bin\s+([\w-]+)\s+(seconds?|secs?|minutes?|mins?|hours?|hrs?)\b`)
	reAt        = regexp.MustCompile(`(?i)\b(tomorrow\s+)?at\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm|a\.m\.|p\.m\.)?`)
	reNoon      = regexp.MustCompile(`(?i)\b(tomorrow\s+)?at\s+(noon|midnight)\b`)
	reDayPart   = regexp.MustCompile(`(?i)\btomorrow\s+(morning|afternoon|evening|night)\b`)
)

// ParseWhen extracts the timing out of a spoken reminder phrase and returns
// the resolved due time, the recurrence (store.RecurNone when one-shot), and
// the remaining text with the time phrase stripped.
//
// Recognised forms include "in ten minutes", "in 2 hours", "at 3pm",
// "at 15:30", "tomorrow at 9am", "at noon", "tomorrow morning", and an
// "every day" / "every week" prefix for recurrence.
func ParseWhen(text string, now time.Time) (when time.Time, recurring string, rest string, err error) {
	rest = text

	recurring = store.RecurNone
	if m := reRecurring.FindString(rest); m != "" {
		switch strings.Contains(strings.ToLower(m), "week") {
		case true:
			recurring = store.RecurWeekly
		default:
			recurring = store.RecurDaily
		}
		rest = reRecurring.ReplaceAllString(rest, "")
	}

	switch {
	case reIn.MatchString(rest):
		m := reIn.FindStringSubmatch(rest)
		n, convErr := parseNumber(m[1])
		if convErr != nil {
			return time.Time{}, "", "", convErr
		}
		var unit time.Duration
		switch {
		case strings.HasPrefix(strings.ToLower(m[2]), "sec"):
			unit = time.Second
		case strings.HasPrefix(strings.ToLower(m[2]), "min"):
			unit = time.Minute
		default:
			unit = time.Hour
		}
		when = now.Add(time.Duration(n) * unit)
		rest = reIn.ReplaceAllString(rest, "")

	case reNoon.MatchString(rest):
		m := reNoon.FindStringSubmatch(rest)
		hour := 12
		if strings.EqualFold(m[2], "midnight") {
			hour = 0
		}
		when = resolveClock(now, hour, 0, m[1] != "")
		rest = reNoon.ReplaceAllString(rest, "")

	case reAt.MatchString(rest):
		m := reAt.FindStringSubmatch(rest)
		hour, _ := strconv.Atoi(m[2])
		minute := 0
		if m[3] != "" {
			minute, _ = strconv.Atoi(m[3])
		}
		if hour > 23 || minute > 59 {
			return time.Time{}, "", "", fmt.Errorf("reminder: invalid clock time %q", m[0])
		}
		meridiem := strings.ToLower(strings.ReplaceAll(m[4], ".", ""))
		switch meridiem {
		case "pm":
			if hour < 12 {
				hour += 12
			}
		case "am":
			if hour == 12 {
				hour = 0
			}
		}
		when = resolveClock(now, hour, minute, m[1] != "")
		// Without am/pm "at 3" means the next 3 o'clock, morning or
		// afternoon.
		if meridiem == "" && !when.After(now) && hour < 12 {
			when = when.Add(12 * time.Hour)
		}
		if !when.After(now) {
			when = when.Add(24 * time.Hour)
		}
		rest = reAt.ReplaceAllString(rest, "")

	case reDayPart.MatchString(rest):
		m := reDayPart.FindStringSubmatch(rest)
		hour := map[string]int{"morning": 9, "afternoon": 15, "evening": 19, "night": 21}[strings.ToLower(m[1])]
		when = resolveClock(now, hour, 0, true)
		rest = reDayPart.ReplaceAllString(rest, "")

	case recurring != store.RecurNone:
		// "remind me every day to stretch" with no clock defaults to the
		// same time tomorrow.
		when = now.Add(24 * time.Hour)

	default:
		return time.Time{}, "", "", ErrNoTime
	}

	return when, recurring, cleanRest(rest), nil
}

// resolveClock builds the next occurrence of hour:minute, optionally forced
// to tomorrow.
func resolveClock(now time.Time, hour, minute int, tomorrow bool) time.Time {
	t := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if tomorrow {
		return t.Add(24 * time.Hour)
	}
	return t
}

func parseNumber(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	if n, ok := numberWords[strings.ToLower(s)]; ok {
		return n, nil
	}
	return 0, fmt.Errorf("reminder: unrecognised number %q", s)
}

// cleanRest tidies the reminder text once the time phrase is cut out.
func cleanRest(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimPrefix(s, "to ")
	s = strings.TrimSuffix(s, " to")
	return strings.Trim(s, " ,.")
}
