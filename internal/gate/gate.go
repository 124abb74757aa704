// Package gate decides which transcribed utterances the assistant acts on.
//
// The Gate is a two-state machine. While waiting, only an utterance carrying
// the wake word gets through; everything else is ignored. Hearing the wake
// word opens a conversation during which every utterance is treated as a
// command, until the user says goodbye or the conversation sits idle past the
// timeout.
//
// Wake word matching is deliberately forgiving: speech recognition regularly
// turns "arthur" into "arther" or "arthor", so candidate words are compared
// by Jaro-Winkler similarity and Double Metaphone codes in addition to an
// exact substring check.
package gate

import (
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/antzucaro/matchr"
)

// Defaults.
const (
	DefaultWakeWord       = "arthur"
	DefaultIdleTimeout    = 30 * time.Second
	DefaultFuzzyThreshold = 0.84
)

// defaultFarewells end an active conversation.
var defaultFarewells = []string{
	"goodbye",
	"bye",
	"see you later",
	"that's all",
	"that is all",
	"go to sleep",
	"stop listening",
	"never mind",
}

// Status classifies what the gate decided about one utterance.
type Status int

const (
	// StatusIgnored means the utterance arrived while waiting and carried no
	// wake word. Nothing happens.
	StatusIgnored Status = iota

	// StatusWoken means the wake word was heard on its own. The conversation
	// is now open; the assistant should greet.
	StatusWoken

	// StatusCommand means the utterance carries text to act on, either
	// trailing the wake word or spoken during an open conversation.
	StatusCommand

	// StatusExpired means the conversation had timed out before this
	// utterance arrived and the utterance did not carry the wake word. The
	// gate is waiting again.
	StatusExpired

	// StatusEnded means the user said goodbye. The gate is waiting again;
	// the assistant should acknowledge.
	StatusEnded
)

// String implements fmt.Stringer for log output.
func (s Status) String() string {
	switch s {
	case StatusIgnored:
		return "ignored"
	case StatusWoken:
		return "woken"
	case StatusCommand:
		return "command"
	case StatusExpired:
		return "expired"
	case StatusEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Decision is the gate's verdict on one utterance.
type Decision struct {
	Status Status

	// Command is the text to act on. Set only for StatusCommand.
	Command string
}

// Config holds the gate parameters.
type Config struct {
	// WakeWord is the activation word, lowercase.
	WakeWord string

	// IdleTimeout is how long an open conversation survives without input.
	IdleTimeout time.Duration

	// FuzzyThreshold is the minimum Jaro-Winkler similarity for a word to
	// count as the wake word.
	FuzzyThreshold float64

	// Farewells override the default conversation-ending phrases.
	Farewells []string

	// Now overrides the clock in tests.
	Now func() time.Time
}

func (c *Config) applyDefaults() {
	if c.WakeWord == "" {
		c.WakeWord = DefaultWakeWord
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.FuzzyThreshold <= 0 {
		c.FuzzyThreshold = DefaultFuzzyThreshold
	}
	if len(c.Farewells) == 0 {
		c.Farewells = defaultFarewells
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Gate tracks conversation state. Not safe for concurrent use; a single
// listen loop owns it.
type Gate struct {
	cfg          Config
	wakeLower    string
	wakeMeta     string
	active       bool
	lastActivity time.Time
	log          *slog.Logger
}

// New returns a waiting Gate with defaults applied over cfg.
func New(cfg Config, log *slog.Logger) *Gate {
	cfg.applyDefaults()
	if log == nil {
		log = slog.Default()
	}
	wake := strings.ToLower(cfg.WakeWord)
	meta, _ := matchr.DoubleMetaphone(wake)
	return &Gate{cfg: cfg, wakeLower: wake, wakeMeta: meta, log: log}
}

// Active reports whether a conversation is open.
func (g *Gate) Active() bool { return g.active }

// WakeWord returns the activation word with defaults applied, lowercase.
func (g *Gate) WakeWord() string { return g.wakeLower }

// Touch extends the idle deadline, typically called when the assistant
// finishes speaking so the timeout counts from the end of the reply.
func (g *Gate) Touch() {
	if g.active {
		g.lastActivity = g.cfg.Now()
	}
}

// Evaluate classifies one transcribed utterance and advances the state
// machine.
func (g *Gate) Evaluate(text string) Decision {
	now := g.cfg.Now()
	normalized := normalize(text)

	expired := false
	if g.active && now.Sub(g.lastActivity) > g.cfg.IdleTimeout {
		g.log.Info("conversation expired", "idle", now.Sub(g.lastActivity))
		g.active = false
		expired = true
	}

	if g.active {
		if g.isFarewell(normalized) {
			g.active = false
			g.log.Info("conversation ended by farewell")
			return Decision{Status: StatusEnded}
		}
		if normalized == "" {
			return Decision{Status: StatusIgnored}
		}
		g.lastActivity = now
		// No wake word re-scan while active: "arthur" mid-sentence is just
		// a word once the conversation is open.
		return Decision{Status: StatusCommand, Command: strings.TrimSpace(text)}
	}

	rest, woke := g.matchWake(normalized)
	if !woke {
		if expired {
			return Decision{Status: StatusExpired}
		}
		return Decision{Status: StatusIgnored}
	}

	g.active = true
	g.lastActivity = now
	if rest == "" {
		g.log.Info("wake word heard")
		return Decision{Status: StatusWoken}
	}
	g.log.Info("wake word heard with command")
	return Decision{Status: StatusCommand, Command: rest}
}

// matchWake looks for the wake word anywhere in the normalized utterance and
// returns the text that follows it.
func (g *Gate) matchWake(normalized string) (rest string, ok bool) {
	words := strings.Fields(normalized)
	for i, w := range words {
		if g.wordIsWake(w) {
			return strings.Join(words[i+1:], " "), true
		}
	}
	return "", false
}

// wordIsWake compares one word against the wake word: exact, then phonetic,
// then Jaro-Winkler similarity.
func (g *Gate) wordIsWake(word string) bool {
	if word == g.wakeLower {
		return true
	}
	if p, s := matchr.DoubleMetaphone(word); g.wakeMeta != "" && (p == g.wakeMeta || s == g.wakeMeta) {
		return true
	}
	return matchr.JaroWinkler(word, g.wakeLower, false) >= g.cfg.FuzzyThreshold
}

func (g *Gate) isFarewell(normalized string) bool {
	for _, f := range g.cfg.Farewells {
		if normalized == f || strings.HasPrefix(normalized, f+" ") {
			return true
		}
	}
	return false
}

// normalize lowercases and strips punctuation so "Arthur," and "arthur"
// compare equal. Apostrophes survive for phrases like "that's all".
func normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
