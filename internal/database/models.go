package database

import (
	"database/sql"
	"time"
)

// StarRecord tracks one original message that crossed the starboard threshold.
// A row exists if and only if the message has been mirrored at least once.
type StarRecord struct {
	MessageID      int64         `db:"message_id"`
	StarMessageID  sql.NullInt64 `db:"star_message_id"`
	EmbedMessageID sql.NullInt64 `db:"embed_message_id"`
	ChannelID      int64         `db:"channel_id"`
	GuildID        int64         `db:"guild_id"`
	AuthorID       int64         `db:"author_id"`
	ReactionCount  int           `db:"reaction_count"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// AnnouncedRun marks a leaderboard run that was already announced (or recorded as
// part of the initial baseline) so it is never announced twice.
type AnnouncedRun struct {
	RunID       string    `db:"run_id"`
	GameID      string    `db:"game_id"`
	Category    string    `db:"category"`
	Weblink     string    `db:"weblink"`
	AnnouncedAt time.Time `db:"announced_at"`
}
