package tts

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sync"
)

// Player plays encoded audio through an ffplay subprocess. It serialises
// playback so that overlapping Speak calls queue rather than talk over each
// other, and supports interrupting the clip in progress.
//
// All methods are safe for concurrent use.
type Player struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

// Play decodes and plays the audio bytes (any container ffplay understands —
// WAV, MP3, raw PCM is not supported here) and blocks until playback ends,
// Stop is called, or ctx is cancelled.
func (p *Player) Play(ctx context.Context, audio []byte) error {
	if len(audio) == 0 {
		return nil
	}

	p.mu.Lock()
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffplay",
		"-autoexit", "-nodisp", "-loglevel", "quiet", "-",
	)
	cmd.Stdin = bytes.NewReader(audio)
	if err := cmd.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("tts: playback: %w", err)
	}
	return nil
}

// Stop interrupts the clip currently playing, if any.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
}
