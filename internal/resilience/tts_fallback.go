package resilience

import (
	"context"

	"github.com/arthur-assist/arthur/pkg/provider/tts"
)

// TTSFallback implements [tts.Speaker] with automatic failover across
// multiple synthesis backends.
type TTSFallback struct {
	group *FallbackGroup[tts.Speaker]
}

var _ tts.Speaker = (*TTSFallback)(nil)

// NewTTSFallback creates a [TTSFallback] with primary as the preferred
// backend.
func NewTTSFallback(primary tts.Speaker, primaryName string, cfg FallbackConfig) *TTSFallback {
	return &TTSFallback{group: NewFallbackGroup(primary, primaryName, cfg, nil)}
}

// AddFallback registers an additional synthesis backend.
func (f *TTSFallback) AddFallback(name string, s tts.Speaker) {
	f.group.AddFallback(name, s)
}

// Speak synthesises and plays text through the first healthy backend.
func (f *TTSFallback) Speak(ctx context.Context, text string) error {
	return f.group.Execute(func(s tts.Speaker) error {
		return s.Speak(ctx, text)
	})
}

// Stop interrupts playback on every backend. Only the one that is actually
// speaking does anything; stopping an idle speaker is a no-op.
func (f *TTSFallback) Stop() {
	for i := range f.group.entries {
		f.group.entries[i].value.Stop()
	}
}
