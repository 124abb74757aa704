// Package mock provides an in-memory implementation of [audio.Source] for
// use in unit tests.
//
// The mock plays back a scripted sequence of frames. Tests can assert on
// call counts and control when the script ends. It is safe for concurrent
// use.
//
// Typical usage:
//
//	src := &mock.Source{Script: []audio.Frame{loud, loud, quiet, quiet, quiet}}
//	_ = src.Start(ctx)
//	rec.Record(ctx, src.Frames())
package mock

import (
	"context"
	"sync"

	"github.com/arthur-assist/arthur/pkg/audio"
)

// Source is a mock implementation of [audio.Source] that delivers the frames
// in Script in order, then leaves the channel open (or closes it when
// CloseAfterScript is set).
type Source struct {
	// Script is the sequence of frames delivered after Start.
	Script []audio.Frame

	// CloseAfterScript closes the frame channel once the script is exhausted.
	CloseAfterScript bool

	// StartError is returned by Start when non-nil.
	StartError error

	// QueueSize is the frame channel capacity. Defaults to len(Script)+1.
	QueueSize int

	mu sync.Mutex

	// CallCountStart records how many times Start was called.
	CallCountStart int

	// CallCountStop records how many times Stop was called.
	CallCountStop int

	frames chan audio.Frame
	errs   chan error
	once   sync.Once
}

var _ audio.Source = (*Source)(nil)

func (s *Source) init() {
	s.once.Do(func() {
		size := s.QueueSize
		if size <= 0 {
			size = len(s.Script) + 1
		}
		s.frames = make(chan audio.Frame, size)
		s.errs = make(chan error, 1)
	})
}

// Start implements [audio.Source]. It enqueues the script synchronously.
func (s *Source) Start(ctx context.Context) error {
	s.init()
	s.mu.Lock()
	s.CallCountStart++
	s.mu.Unlock()
	if s.StartError != nil {
		return s.StartError
	}
	go func() {
		for _, f := range s.Script {
			select {
			case s.frames <- f:
			case <-ctx.Done():
				return
			}
		}
		if s.CloseAfterScript {
			close(s.frames)
		}
	}()
	return nil
}

// Frames implements [audio.Source].
func (s *Source) Frames() <-chan audio.Frame {
	s.init()
	return s.frames
}

// Errs implements [audio.Source].
func (s *Source) Errs() <-chan error {
	s.init()
	return s.errs
}

// Stop implements [audio.Source].
func (s *Source) Stop() error {
	s.init()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountStop++
	return nil
}

// FailErr delivers err on the error channel, simulating a device glitch.
func (s *Source) FailErr(err error) {
	s.init()
	s.errs <- err
}
