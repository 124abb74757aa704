// Package audio defines the types and interfaces for audio capture within
// Arthur.
//
// The central abstraction is [Source] — a producer of fixed-duration PCM
// [Frame] values delivered through a bounded channel. Implementations wrap a
// concrete capture backend (e.g., an ffmpeg subprocess reading the default
// microphone); the audio/mock package provides a scripted source for tests.
//
// This package lives under pkg/ because external capture adapters are
// expected to implement [Source].
package audio

import (
	"context"
	"errors"
	"time"
)

// ErrStopped is returned by [Source.Start] implementations when the source
// has been stopped and cannot be restarted.
var ErrStopped = errors.New("audio: source stopped")

// Source continuously produces fixed-duration audio frames from an input
// device into a bounded queue.
//
// Implementations must be safe for concurrent use. Start and Stop are
// idempotent; Stop is observed within one frame period, not instantaneously.
type Source interface {
	// Start begins capture. The supplied ctx governs the lifetime of the
	// capture goroutine; cancelling it is equivalent to calling Stop.
	// Returns an error if the capture device cannot be opened — a dead
	// device makes the whole assistant deaf, so initialisation failure is
	// surfaced to the caller, never swallowed.
	Start(ctx context.Context) error

	// Frames returns the bounded channel of captured frames. The channel is
	// closed when the source stops. Frames preserve capture order.
	Frames() <-chan Frame

	// Errs returns a channel of capture errors observed after Start.
	// Transient glitches are delivered here and capture continues; the
	// channel is closed on Stop.
	Errs() <-chan error

	// Stop halts capture and closes the frame channel. Safe to call more
	// than once; subsequent calls are no-ops and return nil.
	Stop() error
}

// NextFrame receives one frame from frames, waiting at most timeout.
// It returns (frame, true) on success and (zero, false) if the wait timed
// out or the channel is closed. It never blocks indefinitely.
func NextFrame(frames <-chan Frame, timeout time.Duration) (Frame, bool) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case f, ok := <-frames:
		return f, ok
	case <-t.C:
		return Frame{}, false
	}
}
