package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// ChannelAnnouncer posts speedrun announcements to a text channel.
type ChannelAnnouncer struct {
	client    RESTClient
	channelID string
}

// NewChannelAnnouncer creates an announcer for channelID.
func NewChannelAnnouncer(client RESTClient, channelID string) *ChannelAnnouncer {
	return &ChannelAnnouncer{client: client, channelID: channelID}
}

// Name identifies the sink in logs.
func (a *ChannelAnnouncer) Name() string { return "discord" }

// Announce sends text to the channel.
func (a *ChannelAnnouncer) Announce(ctx context.Context, text string) error {
	if _, err := a.client.ChannelMessageSend(a.channelID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to announce in channel %s: %w", a.channelID, err)
	}
	return nil
}
