package resilience

import (
	"context"

	"github.com/arthur-assist/arthur/pkg/provider/stt"
)

// STTFallback implements [stt.Transcriber] with automatic failover, the
// usual pairing being a remote backend as primary and a local model as
// fallback so the assistant keeps hearing when the network drops.
type STTFallback struct {
	group *FallbackGroup[stt.Transcriber]
}

var _ stt.Transcriber = (*STTFallback)(nil)

// NewSTTFallback creates an [STTFallback] with primary as the preferred
// backend.
func NewSTTFallback(primary stt.Transcriber, primaryName string, cfg FallbackConfig) *STTFallback {
	return &STTFallback{group: NewFallbackGroup(primary, primaryName, cfg, nil)}
}

// AddFallback registers an additional transcription backend.
func (f *STTFallback) AddFallback(name string, t stt.Transcriber) {
	f.group.AddFallback(name, t)
}

// Transcribe runs the samples through the first healthy backend.
func (f *STTFallback) Transcribe(ctx context.Context, samples []float32, sampleRate int) (stt.Result, error) {
	return ExecuteWithResult(f.group, func(t stt.Transcriber) (stt.Result, error) {
		return t.Transcribe(ctx, samples, sampleRate)
	})
}
