package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"

	"github.com/edgard/starboard/internal/starboard"
	"github.com/edgard/starboard/internal/text"
)

const (
	embedColor = 0xFFAC33

	maxDescriptionLen = 4096
	maxAuthorNameLen  = 256

	cleanupTimeout = 5 * time.Second
)

// StarboardPoster mirrors messages into the starboard channel as a header line
// followed by an embed.
type StarboardPoster struct {
	client    RESTClient
	channelID string
	emoji     string
	logger    *slog.Logger
}

var (
	_ starboard.Poster    = (*StarboardPoster)(nil)
	_ starboard.Refresher = (*StarboardPoster)(nil)
	_ starboard.Retractor = (*StarboardPoster)(nil)
)

// NewStarboardPoster creates a poster for channelID.
func NewStarboardPoster(client RESTClient, channelID, emoji string, logger *slog.Logger) *StarboardPoster {
	return &StarboardPoster{
		client:    client,
		channelID: channelID,
		emoji:     emoji,
		logger:    logger.With("component", "starboard_poster"),
	}
}

// PostContent sends the header and the embed. Anything already sent is removed
// again when the call fails.
func (p *StarboardPoster) PostContent(ctx context.Context, c starboard.Content) (starboard.ContentRef, error) {
	header, err := p.client.ChannelMessageSend(p.channelID, p.header(c), discordgo.WithContext(ctx))
	if err != nil {
		return starboard.ContentRef{}, fmt.Errorf("%w: failed to send header: %w", starboard.ErrTransient, err)
	}

	embed, err := p.client.ChannelMessageSendEmbed(p.channelID, p.embed(c), discordgo.WithContext(ctx))
	if err != nil {
		p.discard(ctx, header.ID)
		return starboard.ContentRef{}, fmt.Errorf("%w: failed to send embed: %w", starboard.ErrTransient, err)
	}

	starID, err := ParseID(header.ID)
	if err != nil {
		p.discard(ctx, header.ID, embed.ID)
		return starboard.ContentRef{}, fmt.Errorf("failed to read header id: %w", err)
	}
	embedID, err := ParseID(embed.ID)
	if err != nil {
		p.discard(ctx, header.ID, embed.ID)
		return starboard.ContentRef{}, fmt.Errorf("failed to read embed id: %w", err)
	}
	return starboard.ContentRef{StarMessageID: starID, EmbedMessageID: embedID}, nil
}

// discard deletes orphaned messages on a context that survives ctx's cancellation.
func (p *StarboardPoster) discard(ctx context.Context, messageIDs ...string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	for _, id := range messageIDs {
		if err := p.client.ChannelMessageDelete(p.channelID, id, discordgo.WithContext(ctx)); err != nil {
			p.logger.Warn("Failed to remove orphaned message", "message_id", id, "error", err)
		}
	}
}

// RefreshContent rewrites the header and embed with the current count.
func (p *StarboardPoster) RefreshContent(ctx context.Context, ref starboard.ContentRef, c starboard.Content) error {
	var errs []error
	if ref.StarMessageID != 0 {
		if _, err := p.client.ChannelMessageEdit(p.channelID, FormatID(ref.StarMessageID), p.header(c), discordgo.WithContext(ctx)); err != nil {
			errs = append(errs, fmt.Errorf("failed to edit header: %w", err))
		}
	}
	if ref.EmbedMessageID != 0 {
		if _, err := p.client.ChannelMessageEditEmbed(p.channelID, FormatID(ref.EmbedMessageID), p.embed(c), discordgo.WithContext(ctx)); err != nil {
			errs = append(errs, fmt.Errorf("failed to edit embed: %w", err))
		}
	}
	return errors.Join(errs...)
}

// RetractContent deletes both messages of a mirror.
func (p *StarboardPoster) RetractContent(ctx context.Context, ref starboard.ContentRef) error {
	var errs []error
	for _, id := range []int64{ref.StarMessageID, ref.EmbedMessageID} {
		if id == 0 {
			continue
		}
		if err := p.client.ChannelMessageDelete(p.channelID, FormatID(id), discordgo.WithContext(ctx)); err != nil {
			errs = append(errs, fmt.Errorf("failed to delete message %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (p *StarboardPoster) header(c starboard.Content) string {
	return fmt.Sprintf("%s **%s** <#%d>", p.emoji, humanize.Comma(int64(c.Count)), c.ChannelID)
}

func (p *StarboardPoster) embed(c starboard.Content) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{
			Name:    text.Truncate(c.Attribution, maxAuthorNameLen),
			IconURL: c.AuthorIconURL,
		},
		Description: text.Truncate(text.Normalize(c.Description), maxDescriptionLen),
		Color:       embedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Source", Value: fmt.Sprintf("[Jump to message](%s)", c.JumpLink)},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("%s %s | %d", p.emoji, humanize.Comma(int64(c.Count)), c.MessageID),
		},
	}
	if c.ImageURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: c.ImageURL}
	}
	if !c.PostedAt.IsZero() {
		embed.Timestamp = c.PostedAt.UTC().Format(time.RFC3339)
	}
	return embed
}
