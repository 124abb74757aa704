// Package mock provides an in-memory implementation of [tts.Speaker] for
// use in unit tests. It records every spoken text and is safe for
// concurrent use.
package mock

import (
	"context"
	"sync"

	"github.com/arthur-assist/arthur/pkg/provider/tts"
)

// Speaker is a mock implementation of [tts.Speaker].
type Speaker struct {
	mu sync.Mutex

	// Err, when non-nil, is returned by every Speak call.
	Err error

	// Spoken holds every text passed to Speak, in order.
	Spoken []string

	// CallCountStop records how many times Stop was called.
	CallCountStop int
}

var _ tts.Speaker = (*Speaker)(nil)

// Speak implements [tts.Speaker].
func (s *Speaker) Speak(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Spoken = append(s.Spoken, text)
	return nil
}

// Stop implements [tts.Speaker].
func (s *Speaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountStop++
}

// SpokenTexts returns a copy of everything spoken so far.
func (s *Speaker) SpokenTexts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.Spoken))
	copy(out, s.Spoken)
	return out
}
