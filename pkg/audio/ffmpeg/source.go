// Package ffmpeg implements [audio.Source] on top of an ffmpeg subprocess.
//
// ffmpeg reads the configured input device (avfoundation on macOS, alsa or
// pulse on Linux) and writes raw little-endian float32 mono PCM to stdout,
// which this package slices into fixed-duration frames. Using ffmpeg avoids
// a cgo dependency on a native audio library while still supporting every
// platform ffmpeg does.
package ffmpeg

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/arthur-assist/arthur/pkg/audio"
)

// Config holds capture parameters for a Source.
type Config struct {
	// Device is the input device identifier passed to ffmpeg -i.
	// Empty selects the platform default (":default" on macOS, "default"
	// elsewhere).
	Device string

	// InputFormat overrides the ffmpeg demuxer (-f). Empty selects
	// "avfoundation" on macOS and "pulse" elsewhere.
	InputFormat string

	// SampleRate in Hz. Default 16000.
	SampleRate int

	// FrameDuration is the length of each produced frame. Default 500ms.
	FrameDuration time.Duration

	// QueueSize is the capacity of the bounded frame queue. Default 16.
	QueueSize int
}

func (c *Config) applyDefaults() {
	if c.SampleRate <= 0 {
		c.SampleRate = 16000
	}
	if c.FrameDuration <= 0 {
		c.FrameDuration = 500 * time.Millisecond
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 16
	}
	if c.InputFormat == "" {
		if runtime.GOOS == "darwin" {
			c.InputFormat = "avfoundation"
		} else {
			c.InputFormat = "pulse"
		}
	}
	if c.Device == "" {
		if runtime.GOOS == "darwin" {
			c.Device = ":default"
		} else {
			c.Device = "default"
		}
	}
}

// Source captures microphone audio through an ffmpeg subprocess.
// Obtain one via [New]; all methods are safe for concurrent use.
type Source struct {
	cfg Config

	mu      sync.Mutex
	cmd     *exec.Cmd
	cancel  context.CancelFunc
	started bool
	stopped bool

	frames chan audio.Frame
	errs   chan error
	done   chan struct{}
}

var _ audio.Source = (*Source)(nil)

// New creates a Source with the given configuration. Zero-value config
// fields are replaced with defaults. Returns an error if the ffmpeg binary
// is not on PATH, so a missing capture backend is reported at startup
// rather than on first use.
func New(cfg Config) (*Source, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("ffmpeg source: ffmpeg binary not found: %w", err)
	}
	cfg.applyDefaults()
	return &Source{
		cfg:    cfg,
		frames: make(chan audio.Frame, cfg.QueueSize),
		errs:   make(chan error, 4),
		done:   make(chan struct{}),
	}, nil
}

// Start implements [audio.Source]. It launches the ffmpeg subprocess and a
// reader goroutine that slices stdout into frames.
func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return audio.ErrStopped
	}
	if s.started {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner", "-loglevel", "error",
		"-f", s.cfg.InputFormat,
		"-i", s.cfg.Device,
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", s.cfg.SampleRate),
		"-f", "f32le",
		"-",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("ffmpeg source: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("ffmpeg source: start capture on %q: %w", s.cfg.Device, err)
	}

	s.cmd = cmd
	s.cancel = cancel
	s.started = true

	slog.Info("audio capture started",
		"device", s.cfg.Device,
		"format", s.cfg.InputFormat,
		"sample_rate", s.cfg.SampleRate,
		"frame", s.cfg.FrameDuration,
	)

	go s.readLoop(ctx, stdout)
	return nil
}

// readLoop slices the raw f32le stream into frames until EOF or cancellation.
func (s *Source) readLoop(ctx context.Context, r io.Reader) {
	defer close(s.done)
	defer close(s.frames)
	defer close(s.errs)

	samplesPerFrame := int(float64(s.cfg.SampleRate) * s.cfg.FrameDuration.Seconds())
	buf := make([]byte, samplesPerFrame*4)

	var seq uint64
	start := time.Now()

	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			if ctx.Err() == nil && err != io.EOF {
				// Device glitch or process death: report, don't swallow.
				s.reportErr(fmt.Errorf("ffmpeg source: read: %w", err))
			}
			_ = s.cmd.Wait()
			return
		}

		samples := make([]float32, samplesPerFrame)
		for i := range samples {
			bits := binary.LittleEndian.Uint32(buf[i*4:])
			samples[i] = math.Float32frombits(bits)
		}

		frame := audio.Frame{
			Samples:    samples,
			SampleRate: s.cfg.SampleRate,
			Seq:        seq,
			Timestamp:  time.Since(start),
		}
		seq++

		// The queue is bounded. If the consumer stalls for longer than one
		// frame period, surface that as an error rather than silently
		// dropping audio.
		select {
		case s.frames <- frame:
		case <-ctx.Done():
			_ = s.cmd.Wait()
			return
		case <-time.After(s.cfg.FrameDuration):
			s.reportErr(fmt.Errorf("ffmpeg source: frame queue full, consumer stalled at seq %d", seq))
			select {
			case s.frames <- frame:
			case <-ctx.Done():
				_ = s.cmd.Wait()
				return
			}
		}
	}
}

func (s *Source) reportErr(err error) {
	select {
	case s.errs <- err:
	default:
		slog.Warn("ffmpeg source: error channel full", "err", err)
	}
}

// Frames implements [audio.Source].
func (s *Source) Frames() <-chan audio.Frame { return s.frames }

// Errs implements [audio.Source].
func (s *Source) Errs() <-chan error { return s.errs }

// Stop implements [audio.Source]. It signals the subprocess to exit and
// waits for the reader goroutine to finish. Idempotent.
func (s *Source) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	started := s.started
	cancel := s.cancel
	s.mu.Unlock()

	if !started {
		close(s.frames)
		close(s.errs)
		close(s.done)
		return nil
	}
	cancel()
	<-s.done
	return nil
}
