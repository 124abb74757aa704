// Package schedule tracks the class timetable and coursework deadlines.
//
// A class meets on a set of weekdays written as one letter per day in
// MTWRFSU order (R is Thursday, U is Sunday), the way university timetables
// abbreviate them. The package parses spoken day, clock, and due-date
// phrases and answers "what's next" over the stored classes.
package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/arthur-assist/arthur/internal/store"
)

// dayAbbrevs maps spoken day words to their timetable letter.
var dayAbbrevs = map[string]string{
	"monday": "M", "tuesday": "T", "wednesday": "W", "thursday": "R",
	"friday": "F", "saturday": "S", "sunday": "U",
	"mon": "M", "tue": "T", "tues": "T", "wed": "W", "thu": "R",
	"thur": "R", "thurs": "R", "fri": "F", "sat": "S", "sun": "U",
}

var dayNames = map[byte]string{
	'M': "Monday", 'T': "Tuesday", 'W': "Wednesday", 'R': "Thursday",
	'F': "Friday", 'S': "Saturday", 'U': "Sunday",
}

// letterFor returns the timetable letter for a weekday.
func letterFor(w time.Weekday) string {
	return [...]string{"U", "M", "T", "W", "R", "F", "S"}[w]
}

// ParseDays normalises a spoken or compact day set ("monday wednesday
// friday", "mon, wed", "MWF") into timetable letters. Returns "" when no day
// is recognised.
func ParseDays(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	compact := strings.ReplaceAll(s, " ", "")
	if compact != "" && strings.Trim(compact, "mtwrfsu") == "" {
		return strings.ToUpper(compact)
	}

	var b strings.Builder
	words := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' })
	for _, w := range words {
		if d, ok := dayAbbrevs[w]; ok && !strings.Contains(b.String(), d) {
			b.WriteString(d)
		}
	}
	return b.String()
}

// FormatDays expands timetable letters into spoken day names joined with
// "and": "MWF" becomes "Monday, Wednesday and Friday".
func FormatDays(days string) string {
	var names []string
	for i := 0; i < len(days); i++ {
		if n, ok := dayNames[days[i]]; ok {
			names = append(names, n)
		}
	}
	switch len(names) {
	case 0:
		return days
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}
}

// clockFormats covers the ways a start time gets spoken or typed.
var clockFormats = []string{"3:04pm", "3:04 pm", "3pm", "3 pm", "15:04", "15"}

// ParseClock normalises a clock phrase ("10am", "2:30 pm", "14:00") into
// 24-hour "15:04" form.
func ParseClock(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, layout := range clockFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04"), nil
		}
	}
	return "", fmt.Errorf("schedule: unrecognised time %q", s)
}

// ParseDueDate resolves a spoken due-date phrase ("tomorrow", "friday",
// "2026-03-10", "march 10") to midnight local on that day. Bare weekday names
// mean the next occurrence, never today.
func ParseDueDate(s string, now time.Time) (time.Time, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	switch s {
	case "today":
		return midnight(now), nil
	case "tomorrow":
		return midnight(now.AddDate(0, 0, 1)), nil
	}

	if d, ok := dayAbbrevs[s]; ok {
		for i := 1; i <= 7; i++ {
			c := now.AddDate(0, 0, i)
			if letterFor(c.Weekday()) == d {
				return midnight(c), nil
			}
		}
	}

	for _, layout := range []string{"2006-01-02", "1/2/2006", "1/2", "January 2", "Jan 2"} {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.Year() == 0 {
			t = time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location())
			if t.Before(midnight(now)) {
				t = t.AddDate(1, 0, 0)
			}
			return t, nil
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location()), nil
	}

	return time.Time{}, fmt.Errorf("schedule: unrecognised date %q", s)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ParseClassPhrase splits a spoken class description of the form
// "<title> on <days> at <start>[ to <end>][ in <location>]" into a Class
// with days and times normalised. The returned class has no ID; the caller
// stores it.
func ParseClassPhrase(text string) (store.Class, error) {
	title, rest, ok := cutFold(text, " on ")
	if !ok || strings.TrimSpace(title) == "" {
		return store.Class{}, fmt.Errorf("schedule: no day set in %q", text)
	}
	daysPart, timePart, ok := cutFold(rest, " at ")
	if !ok {
		return store.Class{}, fmt.Errorf("schedule: no start time in %q", text)
	}

	var location string
	if tp, loc, ok := cutFold(timePart, " in "); ok {
		timePart, location = tp, strings.TrimSpace(loc)
	}
	startPart := timePart
	var endPart string
	if sp, ep, ok := cutFold(timePart, " to "); ok {
		startPart, endPart = sp, ep
	}

	days := ParseDays(daysPart)
	if days == "" {
		return store.Class{}, fmt.Errorf("schedule: no day set in %q", text)
	}
	start, err := ParseClock(startPart)
	if err != nil {
		return store.Class{}, err
	}
	var end string
	if strings.TrimSpace(endPart) != "" {
		if end, err = ParseClock(endPart); err != nil {
			return store.Class{}, err
		}
	}

	return store.Class{
		Title:    strings.TrimSpace(title),
		Days:     days,
		Start:    start,
		End:      end,
		Location: location,
	}, nil
}

// cutFold is strings.Cut with a case-insensitive separator.
func cutFold(s, sep string) (before, after string, found bool) {
	i := strings.Index(strings.ToLower(s), sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}

// NextClass returns the soonest class to meet at or after now, scanning
// today's remaining slots and then day by day through the coming week.
func NextClass(classes []store.Class, now time.Time) (store.Class, bool) {
	clock := now.Format("15:04")
	for offset := 0; offset <= 7; offset++ {
		day := letterFor(now.AddDate(0, 0, offset).Weekday())
		var best store.Class
		found := false
		for _, c := range classes {
			if !strings.Contains(c.Days, day) {
				continue
			}
			if offset == 0 && c.Start <= clock {
				continue
			}
			if !found || c.Start < best.Start {
				best, found = c, true
			}
		}
		if found {
			return best, true
		}
	}
	return store.Class{}, false
}
