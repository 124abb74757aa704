// Package coqui provides a tts.Speaker backed by a locally running Coqui TTS
// server (ghcr.io/coqui-ai/tts-cpu). Synthesis is performed via GET /api/tts,
// which returns a WAV body. Because the server runs on the local machine this
// is the offline-friendly voice option.
package coqui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/arthur-assist/arthur/pkg/provider/tts"
)

const apiTTSEndpoint = "/api/tts"

// Option is a functional option for configuring the Coqui Speaker.
type Option func(*Speaker)

// WithSpeakerID selects a multi-speaker model voice.
func WithSpeakerID(id string) Option {
	return func(s *Speaker) { s.speakerID = id }
}

// WithLanguage sets the synthesis language for multilingual models.
func WithLanguage(lang string) Option {
	return func(s *Speaker) { s.language = lang }
}

// Speaker implements tts.Speaker against a Coqui TTS server.
type Speaker struct {
	serverURL  string
	speakerID  string
	language   string
	httpClient *http.Client
	player     tts.Player
}

var _ tts.Speaker = (*Speaker)(nil)

// New creates a Speaker that talks to the Coqui server at serverURL
// (e.g., "http://localhost:5002").
func New(serverURL string, opts ...Option) (*Speaker, error) {
	if serverURL == "" {
		return nil, errors.New("coqui: serverURL must not be empty")
	}
	s := &Speaker{
		serverURL:  strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Speak implements [tts.Speaker].
func (s *Speaker) Speak(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	params := url.Values{}
	params.Set("text", text)
	if s.speakerID != "" {
		params.Set("speaker_id", s.speakerID)
	}
	if s.language != "" {
		params.Set("language_id", s.language)
	}
	reqURL := s.serverURL + apiTTSEndpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("coqui: build request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("coqui: GET %s: %w", apiTTSEndpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("coqui: GET %s returned status %d", apiTTSEndpoint, resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("coqui: read audio: %w", err)
	}
	return s.player.Play(ctx, audio)
}

// Stop implements [tts.Speaker].
func (s *Speaker) Stop() { s.player.Stop() }
