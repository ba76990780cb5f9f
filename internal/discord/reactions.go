package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

const reactionsPageSize = 100

// CountQualifying counts the distinct non-bot users who reacted to msg with
// emoji. The author's own reaction is ignored unless allowSelf is set.
func CountQualifying(ctx context.Context, client RESTClient, msg *discordgo.Message, emoji string, allowSelf bool) (int, error) {
	authorID := ""
	if msg.Author != nil {
		authorID = msg.Author.ID
	}

	seen := make(map[string]struct{})
	after := ""
	for {
		users, err := client.MessageReactions(msg.ChannelID, msg.ID, emoji, reactionsPageSize, "", after, discordgo.WithContext(ctx))
		if err != nil {
			return 0, fmt.Errorf("failed to list reactions: %w", err)
		}

		for _, u := range users {
			if u == nil || u.Bot {
				continue
			}
			if !allowSelf && u.ID == authorID {
				continue
			}
			seen[u.ID] = struct{}{}
		}

		if len(users) < reactionsPageSize {
			return len(seen), nil
		}
		after = users[len(users)-1].ID
	}
}
