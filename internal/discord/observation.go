package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/edgard/starboard/internal/starboard"
)

// ObservationFromMessage maps a fetched message to an engine observation.
// Messages fetched over REST carry no guild id, so the caller passes the one
// from the triggering event.
func ObservationFromMessage(msg *discordgo.Message, guildID string, count int, selfID string) (starboard.Observation, error) {
	if msg.Author == nil {
		return starboard.Observation{}, fmt.Errorf("message %s has no author", msg.ID)
	}

	messageID, err := ParseID(msg.ID)
	if err != nil {
		return starboard.Observation{}, err
	}
	channelID, err := ParseID(msg.ChannelID)
	if err != nil {
		return starboard.Observation{}, err
	}
	if guildID == "" {
		guildID = msg.GuildID
	}
	guild, err := ParseID(guildID)
	if err != nil {
		return starboard.Observation{}, err
	}
	authorID, err := ParseID(msg.Author.ID)
	if err != nil {
		return starboard.Observation{}, err
	}

	name := msg.Author.GlobalName
	if name == "" {
		name = msg.Author.Username
	}

	attachments := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		if a != nil && a.URL != "" {
			attachments = append(attachments, a.URL)
		}
	}

	return starboard.Observation{
		MessageID:       messageID,
		ChannelID:       channelID,
		GuildID:         guild,
		AuthorID:        authorID,
		AuthorName:      name,
		AuthorAvatarURL: msg.Author.AvatarURL("128"),
		IsSelfAuthored:  selfID != "" && msg.Author.ID == selfID,
		Count:           count,
		Body:            msg.Content,
		AttachmentURLs:  attachments,
		PostedAt:        msg.Timestamp,
	}, nil
}
