package listen

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arthur-assist/arthur/pkg/audio"
)

const testRate = 16000

// frame builds a constant-amplitude frame; RMS of a constant signal equals
// its amplitude.
func frame(amplitude float32, d time.Duration) audio.Frame {
	n := int(float64(testRate) * d.Seconds())
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = amplitude
	}
	return audio.Frame{Samples: samples, SampleRate: testRate}
}

func testConfig() Config {
	return Config{
		SilenceThreshold: 0.01,
		SilenceDuration:  1500 * time.Millisecond,
		MaxUtterance:     30 * time.Second,
		MinVoicedFrames:  3,
	}
}

func TestFeedSegmentsUtterance(t *testing.T) {
	t.Parallel()
	r := NewRecorder(testConfig(), nil)

	// Leading silence never starts a recording.
	for i := 0; i < 5; i++ {
		if _, done := r.Feed(frame(0.001, 100*time.Millisecond)); done {
			t.Fatal("utterance completed during leading silence")
		}
	}
	if r.Recording() {
		t.Fatal("recorder started on silence")
	}

	// Half a second of speech.
	for i := 0; i < 5; i++ {
		if _, done := r.Feed(frame(0.5, 100*time.Millisecond)); done {
			t.Fatal("utterance completed mid-speech")
		}
	}
	if !r.Recording() {
		t.Fatal("recorder did not start on speech")
	}

	// Trailing silence. The 15th frame reaches the 1.5s cutoff.
	var got Utterance
	var done bool
	for i := 0; i < 15; i++ {
		got, done = r.Feed(frame(0.001, 100*time.Millisecond))
		if done && i < 14 {
			t.Fatalf("utterance completed after %d silent frames", i+1)
		}
	}
	if !done {
		t.Fatal("utterance never completed")
	}
	if got.Truncated {
		t.Error("silence-terminated utterance marked truncated")
	}
	if want := 2 * time.Second; got.Duration != want {
		t.Errorf("Duration = %v, want %v", got.Duration, want)
	}
	if want := 20 * testRate / 10; len(got.Samples) != want {
		t.Errorf("len(Samples) = %d, want %d", len(got.Samples), want)
	}
	if r.Recording() {
		t.Error("recorder not idle after utterance")
	}
}

func TestFeedDiscardsNoiseBurst(t *testing.T) {
	t.Parallel()
	r := NewRecorder(testConfig(), nil)

	// Two voiced frames is below the three-frame minimum.
	r.Feed(frame(0.5, 100*time.Millisecond))
	r.Feed(frame(0.5, 100*time.Millisecond))

	for i := 0; i < 15; i++ {
		if _, done := r.Feed(frame(0.001, 100*time.Millisecond)); done {
			t.Fatal("noise burst produced an utterance")
		}
	}
	if r.Recording() {
		t.Error("recorder stuck in recording state after discarded burst")
	}

	// The recorder must still capture real speech afterwards.
	for i := 0; i < 5; i++ {
		r.Feed(frame(0.5, 100*time.Millisecond))
	}
	var done bool
	for i := 0; i < 15 && !done; i++ {
		_, done = r.Feed(frame(0.001, 100*time.Millisecond))
	}
	if !done {
		t.Error("recorder did not recover after discarded burst")
	}
}

func TestFeedEnforcesLengthCap(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.MaxUtterance = time.Second
	r := NewRecorder(cfg, nil)

	var got Utterance
	var done bool
	for i := 0; i < 20 && !done; i++ {
		got, done = r.Feed(frame(0.5, 100*time.Millisecond))
	}
	if !done {
		t.Fatal("continuous speech never hit the cap")
	}
	if !got.Truncated {
		t.Error("capped utterance not marked truncated")
	}
	if got.Duration != time.Second {
		t.Errorf("Duration = %v, want %v", got.Duration, time.Second)
	}
}

func TestRecord(t *testing.T) {
	t.Parallel()

	t.Run("captures one utterance", func(t *testing.T) {
		t.Parallel()
		frames := make(chan audio.Frame, 32)
		for i := 0; i < 5; i++ {
			frames <- frame(0.5, 100*time.Millisecond)
		}
		for i := 0; i < 15; i++ {
			frames <- frame(0.001, 100*time.Millisecond)
		}

		r := NewRecorder(testConfig(), nil)
		u, err := r.Record(context.Background(), frames)
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
		if u.Duration != 2*time.Second {
			t.Errorf("Duration = %v, want 2s", u.Duration)
		}
	})

	t.Run("closed source", func(t *testing.T) {
		t.Parallel()
		frames := make(chan audio.Frame)
		close(frames)

		r := NewRecorder(testConfig(), nil)
		if _, err := r.Record(context.Background(), frames); !errors.Is(err, ErrSourceClosed) {
			t.Errorf("Record = %v, want ErrSourceClosed", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()
		frames := make(chan audio.Frame)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		r := NewRecorder(testConfig(), nil)
		if _, err := r.Record(ctx, frames); !errors.Is(err, context.Canceled) {
			t.Errorf("Record = %v, want context.Canceled", err)
		}
	})
}

func TestCalibrate(t *testing.T) {
	t.Parallel()

	t.Run("raises threshold above ambient", func(t *testing.T) {
		t.Parallel()
		frames := make(chan audio.Frame, 32)
		for i := 0; i < 20; i++ {
			frames <- frame(0.2, 100*time.Millisecond)
		}

		cfg := testConfig()
		cfg.CalibrationMultiplier = 2.0
		r := NewRecorder(cfg, nil)
		if err := r.Calibrate(context.Background(), frames, 2*time.Second); err != nil {
			t.Fatalf("Calibrate: %v", err)
		}
		got := r.Threshold()
		if got < 0.39 || got > 0.41 {
			t.Errorf("Threshold = %v, want ~0.4", got)
		}
	})

	t.Run("quiet room keeps the floor", func(t *testing.T) {
		t.Parallel()
		frames := make(chan audio.Frame, 32)
		for i := 0; i < 20; i++ {
			frames <- frame(0.0001, 100*time.Millisecond)
		}

		r := NewRecorder(testConfig(), nil)
		if err := r.Calibrate(context.Background(), frames, 2*time.Second); err != nil {
			t.Fatalf("Calibrate: %v", err)
		}
		if got := r.Threshold(); got != DefaultSilenceThreshold {
			t.Errorf("Threshold = %v, want floor %v", got, DefaultSilenceThreshold)
		}
	})
}
