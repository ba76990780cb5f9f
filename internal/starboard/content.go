package starboard

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"mvdan.cc/xurls/v2"
)

// Observation is a qualifying-reaction count seen for one message, together
// with the metadata needed to mirror it.
type Observation struct {
	MessageID int64
	ChannelID int64
	GuildID   int64
	AuthorID  int64

	AuthorName      string
	AuthorAvatarURL string
	// IsSelfAuthored is set when the original message was posted by the bot itself.
	IsSelfAuthored bool

	Count          int
	Body           string
	AttachmentURLs []string
	PostedAt       time.Time
}

// Content is what gets posted to the starboard channel.
type Content struct {
	Description   string
	Attribution   string
	AuthorIconURL string
	JumpLink      string
	ImageURL      string

	Count     int
	ChannelID int64
	GuildID   int64
	MessageID int64
	PostedAt  time.Time
}

// ContentRef identifies the messages making up one mirror.
type ContentRef struct {
	StarMessageID  int64
	EmbedMessageID int64
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

var strictURLs = xurls.Strict()

// JumpLink returns the URL that opens the original message.
func JumpLink(guildID, channelID, messageID int64) string {
	return fmt.Sprintf("https://discord.com/channels/%d/%d/%d", guildID, channelID, messageID)
}

// BuildContent renders an observation into starboard content. The first image
// attachment is shown inline; failing that, the first image link in the body.
// Remaining attachments are listed under the description.
func BuildContent(obs Observation) Content {
	c := Content{
		Attribution:   obs.AuthorName,
		AuthorIconURL: obs.AuthorAvatarURL,
		JumpLink:      JumpLink(obs.GuildID, obs.ChannelID, obs.MessageID),
		Count:         obs.Count,
		ChannelID:     obs.ChannelID,
		GuildID:       obs.GuildID,
		MessageID:     obs.MessageID,
		PostedAt:      obs.PostedAt,
	}
	if c.Attribution == "" {
		c.Attribution = fmt.Sprintf("<@%d>", obs.AuthorID)
	}

	var extra []string
	for _, u := range obs.AttachmentURLs {
		if c.ImageURL == "" && IsImageURL(u) {
			c.ImageURL = u
			continue
		}
		extra = append(extra, u)
	}
	if c.ImageURL == "" {
		for _, u := range strictURLs.FindAllString(obs.Body, -1) {
			if IsImageURL(u) {
				c.ImageURL = u
				break
			}
		}
	}

	lines := make([]string, 0, len(extra)+1)
	if body := strings.TrimSpace(obs.Body); body != "" {
		lines = append(lines, body)
	}
	for _, u := range extra {
		lines = append(lines, "📎 "+u)
	}
	c.Description = strings.Join(lines, "\n")

	return c
}

// IsImageURL reports whether the URL path ends in a known image extension.
func IsImageURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return imageExtensions[strings.ToLower(path.Ext(u.Path))]
}
