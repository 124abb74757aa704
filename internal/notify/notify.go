// Package notify delivers reminder and timer notifications to the user.
//
// A Notifier fans one message out to every configured sink: spoken aloud,
// written to the log, posted to a Discord channel. Sink failures are logged
// and never propagate; a broken Discord webhook must not stop the voice
// announcement.
package notify

import (
	"context"
	"log/slog"

	"github.com/arthur-assist/arthur/pkg/provider/tts"
)

// Sink receives one notification message.
type Sink interface {
	Notify(ctx context.Context, text string) error
}

// Notifier fans notifications out to all sinks.
type Notifier struct {
	sinks []Sink
	log   *slog.Logger
}

// New builds a Notifier over the given sinks.
func New(log *slog.Logger, sinks ...Sink) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{sinks: sinks, log: log}
}

// Notify delivers text to every sink. Individual sink errors are logged, not
// returned.
func (n *Notifier) Notify(ctx context.Context, text string) {
	for _, s := range n.sinks {
		if err := s.Notify(ctx, text); err != nil {
			n.log.Warn("notification sink failed", "error", err)
		}
	}
}

// SpeakerSink announces notifications through the voice output.
type SpeakerSink struct {
	Speaker tts.Speaker
}

var _ Sink = (*SpeakerSink)(nil)

// Notify implements Sink.
func (s *SpeakerSink) Notify(ctx context.Context, text string) error {
	return s.Speaker.Speak(ctx, text)
}

// LogSink writes notifications to the structured log. Always configured, so
// a headless run still records every delivery.
type LogSink struct {
	Log *slog.Logger
}

var _ Sink = (*LogSink)(nil)

// Notify implements Sink.
func (s *LogSink) Notify(_ context.Context, text string) error {
	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("notification", "text", text)
	return nil
}
