package audio

import "time"

// Frame represents a single fixed-duration chunk of captured audio flowing
// through the pipeline. Frames are the atomic unit of audio transport —
// produced by a [Source], measured by [Level], and accumulated into
// utterances by the recorder.
//
// A Frame is immutable once produced. Ownership transfers to whichever
// consumer dequeues it.
type Frame struct {
	// Samples is mono PCM in the range [-1.0, 1.0].
	Samples []float32

	// SampleRate in Hz (e.g., 16000 for STT input).
	SampleRate int

	// Seq is the monotonic sequence number assigned by the source.
	Seq uint64

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration
}

// Duration returns the playback length of the frame.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(f.Samples)) * time.Second / time.Duration(f.SampleRate)
}
