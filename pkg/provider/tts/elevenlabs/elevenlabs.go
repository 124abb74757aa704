// Package elevenlabs provides an ElevenLabs-backed tts.Speaker using the
// ElevenLabs HTTP synthesis API. Replies are short, so the one-shot endpoint
// is used rather than the streaming WebSocket.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/arthur-assist/arthur/pkg/provider/tts"
)

const (
	synthesisEndpointFmt = "https://api.elevenlabs.io/v1/text-to-speech/%s?output_format=%s"
	defaultModel         = "eleven_flash_v2_5"
	defaultVoiceID       = "fTPiybpX1pEUiksgLZnP"
	defaultOutputFmt     = "mp3_22050_32"
)

// Option is a functional option for configuring the ElevenLabs Speaker.
type Option func(*Speaker)

// WithModel sets the ElevenLabs model ID (e.g., "eleven_flash_v2_5").
func WithModel(model string) Option {
	return func(s *Speaker) { s.model = model }
}

// WithVoiceID overrides the default voice.
func WithVoiceID(id string) Option {
	return func(s *Speaker) { s.voiceID = id }
}

// Speaker implements tts.Speaker backed by the ElevenLabs API.
type Speaker struct {
	apiKey     string
	model      string
	voiceID    string
	httpClient *http.Client
	player     tts.Player
}

var _ tts.Speaker = (*Speaker)(nil)

// New creates a new ElevenLabs Speaker. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Speaker, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs: apiKey must not be empty")
	}
	s := &Speaker{
		apiKey:     apiKey,
		model:      defaultModel,
		voiceID:    defaultVoiceID,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// synthesisRequest is the JSON body sent to the synthesis endpoint.
type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// voiceSettings mirrors the ElevenLabs voice_settings object.
type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Speak implements [tts.Speaker].
func (s *Speaker) Speak(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	body, err := json.Marshal(synthesisRequest{
		Text:    text,
		ModelID: s.model,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
	})
	if err != nil {
		return fmt.Errorf("elevenlabs: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf(synthesisEndpointFmt, s.voiceID, defaultOutputFmt)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("elevenlabs: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("elevenlabs: POST synthesis: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("elevenlabs: synthesis returned status %d", resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("elevenlabs: read audio: %w", err)
	}
	return s.player.Play(ctx, audio)
}

// Stop implements [tts.Speaker].
func (s *Speaker) Stop() { s.player.Stop() }
