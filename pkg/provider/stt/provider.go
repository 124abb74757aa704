// Package stt defines the Transcriber interface for Speech-to-Text backends.
//
// A Transcriber converts one complete utterance — mono float32 PCM bounded
// by the recorder's silence detection — into text. Arthur's listen loop is
// utterance-at-a-time by design, so the interface is a single blocking call
// rather than a streaming session.
//
// An empty Result.Text means "no speech detected". Callers treat both empty
// results and transcription errors as a skipped cycle, never as a fatal
// condition: a failed transcription must not kill the listen loop.
//
// Implementations must be safe for concurrent use.
package stt

import "context"

// Result is the outcome of transcribing a single utterance.
type Result struct {
	// Text is the transcribed speech. Empty means no speech was recognised.
	Text string

	// Confidence is the overall confidence score (0.0–1.0). Zero when the
	// backend does not report confidence.
	Confidence float64
}

// Transcriber is the abstraction over any STT backend.
type Transcriber interface {
	// Transcribe converts samples (mono PCM, full scale ±1.0, at sampleRate
	// Hz) into text. It blocks until the backend produces a result or ctx is
	// cancelled.
	//
	// Returns an error only for backend failures (network, model); silence
	// is reported as a successful Result with empty Text.
	Transcribe(ctx context.Context, samples []float32, sampleRate int) (Result, error)
}
