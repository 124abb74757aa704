package gate

import (
	"testing"
	"time"
)

// fakeClock lets tests move conversation time forward deterministically.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestGate(clock *fakeClock) *Gate {
	return New(Config{Now: clock.Now}, nil)
}

func TestWakeWordOpensConversation(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Now()}
	g := newTestGate(clock)

	if d := g.Evaluate("what's the weather like"); d.Status != StatusIgnored {
		t.Fatalf("unrelated speech while waiting = %v, want ignored", d.Status)
	}
	if g.Active() {
		t.Fatal("gate active before wake word")
	}

	if d := g.Evaluate("Arthur"); d.Status != StatusWoken {
		t.Fatalf("wake word alone = %v, want woken", d.Status)
	}
	if !g.Active() {
		t.Fatal("gate not active after wake word")
	}
}

func TestWakeWordWithTrailingCommand(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Now()}
	g := newTestGate(clock)

	d := g.Evaluate("Hey Arthur remind me to stretch in ten minutes")
	if d.Status != StatusCommand {
		t.Fatalf("status = %v, want command", d.Status)
	}
	if d.Command != "remind me to stretch in ten minutes" {
		t.Errorf("command = %q", d.Command)
	}
	if !g.Active() {
		t.Error("gate not active after wake word with command")
	}
}

func TestVariedPhrasings(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		text string
		want Status
	}{
		{"bare uppercase", "ARTHUR", StatusWoken},
		{"trailing punctuation", "Arthur?", StatusWoken},
		{"mid sentence", "okay Arthur, start a focus session", StatusCommand},
		{"misheard arther", "arther what time is it", StatusCommand},
		{"misheard arthor", "Arthor.", StatusWoken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			clock := &fakeClock{now: time.Now()}
			g := newTestGate(clock)
			if d := g.Evaluate(tc.text); d.Status != tc.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tc.text, d.Status, tc.want)
			}
		})
	}
}

func TestActiveConversationTakesEverything(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Now()}
	g := newTestGate(clock)
	g.Evaluate("arthur")

	d := g.Evaluate("What's on my task list?")
	if d.Status != StatusCommand {
		t.Fatalf("status = %v, want command", d.Status)
	}
	if d.Command != "What's on my task list?" {
		t.Errorf("command = %q, want original text preserved", d.Command)
	}

	// The wake word is not re-scanned once the conversation is open, so a
	// sentence mentioning it stays intact.
	d = g.Evaluate("tell my brother arthur says hi")
	if d.Status != StatusCommand || d.Command != "tell my brother arthur says hi" {
		t.Errorf("mid-conversation mention mangled: %+v", d)
	}
}

func TestFarewellEndsConversation(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Now()}
	g := newTestGate(clock)
	g.Evaluate("arthur")

	if d := g.Evaluate("That's all, thanks!"); d.Status != StatusEnded {
		t.Fatalf("farewell = %v, want ended", d.Status)
	}
	if g.Active() {
		t.Fatal("gate still active after farewell")
	}
	if d := g.Evaluate("one more thing"); d.Status != StatusIgnored {
		t.Errorf("speech after farewell = %v, want ignored", d.Status)
	}
}

func TestIdleTimeout(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Now()}
	g := newTestGate(clock)
	g.Evaluate("arthur")

	// Within the timeout the conversation stays open.
	clock.advance(29 * time.Second)
	if d := g.Evaluate("add milk to the list"); d.Status != StatusCommand {
		t.Fatalf("command within timeout = %v, want command", d.Status)
	}

	// Past the timeout a plain utterance reports expiry.
	clock.advance(31 * time.Second)
	if d := g.Evaluate("and some eggs too"); d.Status != StatusExpired {
		t.Fatalf("speech after timeout = %v, want expired", d.Status)
	}
	if g.Active() {
		t.Fatal("gate still active after timeout")
	}

	// But the wake word works immediately, even in the same breath.
	if d := g.Evaluate("arthur add eggs"); d.Status != StatusCommand {
		t.Errorf("wake word after expiry = %v, want command", d.Status)
	}
}

func TestTouchExtendsDeadline(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Now()}
	g := newTestGate(clock)
	g.Evaluate("arthur")

	clock.advance(25 * time.Second)
	g.Touch() // assistant just finished a long reply

	clock.advance(25 * time.Second)
	if d := g.Evaluate("thanks, what's next"); d.Status != StatusCommand {
		t.Errorf("command after Touch = %v, want command", d.Status)
	}
}
