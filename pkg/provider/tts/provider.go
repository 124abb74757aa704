// Package tts defines the Speaker interface for Text-to-Speech backends.
//
// A Speaker synthesises a reply and plays it on the local output device.
// From the core's perspective speech output is fire-and-forget: the listen
// loop does not block on it for correctness, only for UX sequencing, and a
// failed Speak never propagates beyond a log line.
//
// Implementations must be safe for concurrent use; concurrent Speak calls
// may be serialised internally so that replies do not talk over each other.
package tts

import "context"

// Speaker is the abstraction over any TTS backend.
type Speaker interface {
	// Speak synthesises text and plays it to completion, or until ctx is
	// cancelled. An empty text is a no-op.
	Speak(ctx context.Context, text string) error

	// Stop interrupts any playback in progress. Safe to call when nothing
	// is playing.
	Stop()
}
