// Package logger provides structured logging functionality for the starboard bot.
// It uses Go's slog package for logging with configurable levels and formats.
package logger

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/bwmarrin/discordgo"
)

// NewLogger creates a new slog Logger with the specified level and format.
// If jsonOutput is true, logs will be formatted as JSON, otherwise as text.
func NewLogger(levelStr string, jsonOutput bool) *slog.Logger {
	return newLogger(os.Stdout, levelStr, jsonOutput)
}

func newLogger(w io.Writer, levelStr string, jsonOutput bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(levelStr),
	}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a config level name to a slog level, defaulting to info.
func ParseLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Event is the set of gateway events the bot subscribes to.
type Event interface {
	*discordgo.MessageReactionAdd | *discordgo.MessageReactionRemove | *discordgo.Ready
}

// Middleware wraps a discordgo event handler with logging.
// It logs information about incoming events and how long they took to process.
func Middleware[E Event](log *slog.Logger, next func(*discordgo.Session, E)) func(*discordgo.Session, E) {
	return func(s *discordgo.Session, event E) {
		startTime := time.Now()
		logEntry := log.With(eventAttrs(event)...)

		logEntry.Debug("Processing event")

		next(s, event)

		logEntry.Debug("Finished processing event", "duration", time.Since(startTime))
	}
}

func eventAttrs(event any) []any {
	switch e := event.(type) {
	case *discordgo.MessageReactionAdd:
		return append([]any{"event_type", "reaction_add"}, reactionAttrs(e.MessageReaction)...)
	case *discordgo.MessageReactionRemove:
		return append([]any{"event_type", "reaction_remove"}, reactionAttrs(e.MessageReaction)...)
	case *discordgo.Ready:
		attrs := []any{"event_type", "ready", "guilds", len(e.Guilds)}
		if e.User != nil {
			attrs = append(attrs, "bot_user_id", e.User.ID)
		}
		return attrs
	default:
		return []any{"event_type", "other"}
	}
}

func reactionAttrs(r *discordgo.MessageReaction) []any {
	if r == nil {
		return nil
	}
	return []any{
		"guild_id", r.GuildID,
		"channel_id", r.ChannelID,
		"message_id", r.MessageID,
		"user_id", r.UserID,
		"emoji", r.Emoji.Name,
	}
}
