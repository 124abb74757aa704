// Package listen turns a continuous microphone stream into discrete
// utterances.
//
// The Recorder is a two-state machine (idle, recording). It starts recording
// on the first frame whose RMS level crosses the silence threshold, and ends
// the utterance after a run of trailing silence or when the hard length cap
// is hit. Short noise bursts that never accumulate enough voiced frames are
// discarded without producing an utterance.
package listen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arthur-assist/arthur/pkg/audio"
)

// Defaults, tuned for 16 kHz mono speech.
const (
	DefaultSilenceThreshold      = 0.01
	DefaultSilenceDuration       = 1500 * time.Millisecond
	DefaultMaxUtterance          = 30 * time.Second
	DefaultMinVoicedFrames       = 3
	DefaultCalibrationMultiplier = 2.0
	DefaultCalibrationWindow     = 2 * time.Second
)

// ErrSourceClosed is returned by Record when the frame channel closes before
// an utterance completes.
var ErrSourceClosed = errors.New("listen: audio source closed")

// Config holds the segmentation parameters.
type Config struct {
	// SilenceThreshold is the RMS level below which a frame counts as
	// silence. Also the floor for calibration.
	SilenceThreshold float64

	// SilenceDuration is how much trailing silence ends an utterance.
	SilenceDuration time.Duration

	// MaxUtterance is the hard cap on utterance length. Recording ends at
	// the cap even mid-speech.
	MaxUtterance time.Duration

	// MinVoicedFrames is the number of above-threshold frames an utterance
	// needs to be kept. Anything shorter is dropped as noise.
	MinVoicedFrames int

	// CalibrationMultiplier scales the measured ambient level when
	// Calibrate derives a threshold.
	CalibrationMultiplier float64
}

func (c *Config) applyDefaults() {
	if c.SilenceThreshold <= 0 {
		c.SilenceThreshold = DefaultSilenceThreshold
	}
	if c.SilenceDuration <= 0 {
		c.SilenceDuration = DefaultSilenceDuration
	}
	if c.MaxUtterance <= 0 {
		c.MaxUtterance = DefaultMaxUtterance
	}
	if c.MinVoicedFrames <= 0 {
		c.MinVoicedFrames = DefaultMinVoicedFrames
	}
	if c.CalibrationMultiplier <= 0 {
		c.CalibrationMultiplier = DefaultCalibrationMultiplier
	}
}

// Utterance is one segmented chunk of speech ready for transcription.
type Utterance struct {
	// Samples is the raw PCM including any trailing silence that ended the
	// utterance.
	Samples []float32

	// SampleRate of Samples.
	SampleRate int

	// Duration is the total recorded length.
	Duration time.Duration

	// Truncated reports that recording stopped at the length cap rather
	// than at silence.
	Truncated bool
}

type state int

const (
	stateIdle state = iota
	stateRecording
)

// Recorder segments a frame stream into utterances. Not safe for concurrent
// use; a single listen loop owns it.
type Recorder struct {
	cfg Config
	log *slog.Logger

	st           state
	samples      []float32
	sampleRate   int
	recorded     time.Duration
	silence      time.Duration
	voicedFrames int
}

// NewRecorder returns a Recorder with defaults applied over cfg.
func NewRecorder(cfg Config, log *slog.Logger) *Recorder {
	cfg.applyDefaults()
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{cfg: cfg, log: log}
}

// Threshold returns the active silence threshold.
func (r *Recorder) Threshold() float64 { return r.cfg.SilenceThreshold }

// Recording reports whether an utterance is currently being captured.
func (r *Recorder) Recording() bool { return r.st == stateRecording }

// Feed advances the state machine by one frame. It returns a completed
// utterance and true when the frame finished one; otherwise the zero value
// and false.
func (r *Recorder) Feed(f audio.Frame) (Utterance, bool) {
	level := audio.Level(f.Samples)

	switch r.st {
	case stateIdle:
		if level < r.cfg.SilenceThreshold {
			return Utterance{}, false
		}
		r.st = stateRecording
		r.samples = r.samples[:0]
		r.sampleRate = f.SampleRate
		r.recorded = 0
		r.silence = 0
		r.voicedFrames = 0
		r.log.Debug("utterance started", "level", level)
		fallthrough

	case stateRecording:
		r.samples = append(r.samples, f.Samples...)
		r.recorded += f.Duration()
		if level < r.cfg.SilenceThreshold {
			r.silence += f.Duration()
		} else {
			r.silence = 0
			r.voicedFrames++
		}

		if r.recorded >= r.cfg.MaxUtterance {
			return r.finish(true), true
		}
		if r.silence >= r.cfg.SilenceDuration {
			if r.voicedFrames < r.cfg.MinVoicedFrames {
				// Noise burst, not speech.
				r.log.Debug("discarding short burst", "voiced_frames", r.voicedFrames)
				r.reset()
				return Utterance{}, false
			}
			return r.finish(false), true
		}
	}
	return Utterance{}, false
}

func (r *Recorder) finish(truncated bool) Utterance {
	u := Utterance{
		Samples:    append([]float32(nil), r.samples...),
		SampleRate: r.sampleRate,
		Duration:   r.recorded,
		Truncated:  truncated,
	}
	r.reset()
	return u
}

func (r *Recorder) reset() {
	r.st = stateIdle
	r.samples = r.samples[:0]
	r.recorded = 0
	r.silence = 0
	r.voicedFrames = 0
}

// Record consumes frames until one full utterance is captured. It flushes any
// frames queued while the recorder was busy (stale audio from before this
// call) so the utterance starts from live input.
//
// Returns ErrSourceClosed when frames closes, or ctx.Err() on cancellation.
func (r *Recorder) Record(ctx context.Context, frames <-chan audio.Frame) (Utterance, error) {
	if n := audio.Flush(frames); n > 0 {
		r.log.Debug("flushed stale frames", "count", n)
	}
	for {
		select {
		case <-ctx.Done():
			r.reset()
			return Utterance{}, ctx.Err()
		case f, ok := <-frames:
			if !ok {
				r.reset()
				return Utterance{}, ErrSourceClosed
			}
			if u, done := r.Feed(f); done {
				return u, nil
			}
		}
	}
}

// Calibrate measures ambient noise for the given window and raises the
// silence threshold to ambient times the calibration multiplier, never below
// the configured floor. Speech during calibration inflates the threshold, so
// call it while the room is quiet.
func (r *Recorder) Calibrate(ctx context.Context, frames <-chan audio.Frame, window time.Duration) error {
	if window <= 0 {
		window = DefaultCalibrationWindow
	}
	audio.Flush(frames)

	var (
		sum      float64
		n        int
		observed time.Duration
	)
	for observed < window {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok := <-frames:
			if !ok {
				return ErrSourceClosed
			}
			sum += audio.Level(f.Samples)
			n++
			observed += f.Duration()
		}
	}
	if n == 0 {
		return fmt.Errorf("listen: calibration window %s produced no frames", window)
	}

	ambient := sum / float64(n)
	threshold := ambient * r.cfg.CalibrationMultiplier
	if floor := DefaultSilenceThreshold; threshold < floor {
		threshold = floor
	}
	r.log.Info("calibrated silence threshold",
		"ambient", ambient, "threshold", threshold, "frames", n)
	r.cfg.SilenceThreshold = threshold
	return nil
}
