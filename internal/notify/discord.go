package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// DiscordSink posts notifications to a Discord channel, so reminders reach
// the user's phone when they are away from the microphone.
type DiscordSink struct {
	session   *discordgo.Session
	channelID string
}

var _ Sink = (*DiscordSink)(nil)

// NewDiscordSink connects a bot session and targets the given channel.
func NewDiscordSink(token, channelID string) (*DiscordSink, error) {
	if token == "" {
		return nil, fmt.Errorf("discord sink: token must not be empty")
	}
	if channelID == "" {
		return nil, fmt.Errorf("discord sink: channelID must not be empty")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord sink: create session: %w", err)
	}
	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("discord sink: open session: %w", err)
	}
	return &DiscordSink{session: session, channelID: channelID}, nil
}

// Notify implements Sink.
func (d *DiscordSink) Notify(_ context.Context, text string) error {
	if _, err := d.session.ChannelMessageSend(d.channelID, text); err != nil {
		return fmt.Errorf("discord sink: send: %w", err)
	}
	return nil
}

// Close shuts down the underlying Discord session.
func (d *DiscordSink) Close() error {
	return d.session.Close()
}
