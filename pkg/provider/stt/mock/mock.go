// Package mock provides an in-memory implementation of [stt.Transcriber]
// for use in unit tests.
//
// The mock returns scripted results in order and records every call so that
// tests can assert on call counts and the audio that was submitted.
// It is safe for concurrent use.
package mock

import (
	"context"
	"sync"

	"github.com/arthur-assist/arthur/pkg/provider/stt"
)

// Transcriber is a mock implementation of [stt.Transcriber].
// Set Results (consumed in order; the last entry repeats) or Err before use.
type Transcriber struct {
	mu sync.Mutex

	// Results are returned in order by successive Transcribe calls.
	// When exhausted, the last entry repeats. An empty slice yields a
	// zero Result.
	Results []stt.Result

	// Err, when non-nil, is returned by every Transcribe call.
	Err error

	// CallCount records how many times Transcribe was called.
	CallCount int

	// RecordedSampleCounts holds len(samples) for each call, in order.
	RecordedSampleCounts []int

	next int
}

var _ stt.Transcriber = (*Transcriber)(nil)

// Transcribe implements [stt.Transcriber].
func (t *Transcriber) Transcribe(_ context.Context, samples []float32, _ int) (stt.Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.CallCount++
	t.RecordedSampleCounts = append(t.RecordedSampleCounts, len(samples))
	if t.Err != nil {
		return stt.Result{}, t.Err
	}
	if len(t.Results) == 0 {
		return stt.Result{}, nil
	}
	r := t.Results[min(t.next, len(t.Results)-1)]
	t.next++
	return r, nil
}
