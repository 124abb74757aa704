package config

import "slices"

// ChangeSet describes what changed between two configs. Only fields that can
// be applied without a restart are tracked; everything else requires a
// process restart to take effect.
type ChangeSet struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// WakeChanged covers the wake word, idle timeout, fuzzy threshold, and
	// farewell list. The listen loop owns the gate, so these take effect on
	// the next restart; the watcher surfaces them so the operator knows.
	WakeChanged bool
	NewWake     WakeConfig

	// FocusChanged covers the pomodoro durations, likewise applied on
	// restart.
	FocusChanged bool
	NewFocus     FocusConfig
}

// Any reports whether the set contains at least one change.
func (c ChangeSet) Any() bool {
	return c.LogLevelChanged || c.WakeChanged || c.FocusChanged
}

// Diff compares old and new configs and returns the hot-reloadable changes.
func Diff(old, new *Config) ChangeSet {
	var cs ChangeSet

	if old.Server.LogLevel != new.Server.LogLevel {
		cs.LogLevelChanged = true
		cs.NewLogLevel = new.Server.LogLevel
	}

	if old.Wake.Word != new.Wake.Word ||
		old.Wake.IdleTimeout != new.Wake.IdleTimeout ||
		old.Wake.FuzzyThreshold != new.Wake.FuzzyThreshold ||
		!slices.Equal(old.Wake.Farewells, new.Wake.Farewells) {
		cs.WakeChanged = true
		cs.NewWake = new.Wake
	}

	if old.Focus != new.Focus {
		cs.FocusChanged = true
		cs.NewFocus = new.Focus
	}

	return cs
}
