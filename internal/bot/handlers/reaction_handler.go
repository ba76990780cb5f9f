package handlers

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"

	"github.com/edgard/starboard/internal/discord"
	"github.com/edgard/starboard/internal/starboard"
)

// NewReactionAddHandler returns the handler for MessageReactionAdd events.
func NewReactionAddHandler(deps HandlerDeps) func(*discordgo.Session, *discordgo.MessageReactionAdd) {
	h := reactionHandler{deps: deps, kind: "reaction_add"}
	return func(_ *discordgo.Session, ev *discordgo.MessageReactionAdd) {
		if ev == nil || ev.MessageReaction == nil {
			return
		}
		if ev.Member != nil && ev.Member.User != nil && ev.Member.User.Bot {
			return
		}
		h.handle(ev.MessageReaction)
	}
}

// NewReactionRemoveHandler returns the handler for MessageReactionRemove events.
func NewReactionRemoveHandler(deps HandlerDeps) func(*discordgo.Session, *discordgo.MessageReactionRemove) {
	h := reactionHandler{deps: deps, kind: "reaction_remove"}
	return func(_ *discordgo.Session, ev *discordgo.MessageReactionRemove) {
		if ev == nil || ev.MessageReaction == nil {
			return
		}
		h.handle(ev.MessageReaction)
	}
}

type reactionHandler struct {
	deps HandlerDeps
	kind string
}

func (h reactionHandler) handle(r *discordgo.MessageReaction) {
	cfg := h.deps.Config
	log := h.deps.Logger.With("handler", h.kind, "message_id", r.MessageID, "channel_id", r.ChannelID)

	if !emojiMatches(r.Emoji, cfg.Starboard.Emoji) {
		return
	}
	if r.ChannelID == cfg.Discord.StarboardChannelID {
		return
	}
	if self := h.deps.selfID(); self != "" && r.UserID == self {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Starboard.OperationTimeout)
	defer cancel()

	msg, err := h.deps.Client.ChannelMessage(r.ChannelID, r.MessageID, discordgo.WithContext(ctx))
	if err != nil {
		log.WarnContext(ctx, "Failed to fetch reacted message", "error", err)
		return
	}
	if msg.ChannelID == "" {
		msg.ChannelID = r.ChannelID
	}

	count, err := discord.CountQualifying(ctx, h.deps.Client, msg, r.Emoji.APIName(), cfg.Starboard.AllowSelfStar)
	if err != nil {
		log.WarnContext(ctx, "Failed to count reactions", "error", err)
		return
	}

	obs, err := discord.ObservationFromMessage(msg, r.GuildID, count, h.deps.selfID())
	if err != nil {
		log.WarnContext(ctx, "Failed to map reacted message", "error", err)
		return
	}

	action, err := h.deps.Engine.Observe(ctx, obs)
	switch {
	case errors.Is(err, starboard.ErrTransient):
		log.WarnContext(ctx, "Starboard unavailable, will retry on next reaction", "count", count, "error", err)
	case err != nil:
		log.ErrorContext(ctx, "Failed to process reaction", "count", count, "error", err)
	case action != starboard.ActionNone:
		log.InfoContext(ctx, "Starboard updated", "action", action.String(), "count", count)
	default:
		log.DebugContext(ctx, "No starboard action", "count", count)
	}
}

// emojiMatches compares a reaction with the configured marker, which is either
// a unicode emoji or a custom emoji in name:id form.
func emojiMatches(e discordgo.Emoji, want string) bool {
	return e.Name == want || (e.ID != "" && e.APIName() == want)
}
