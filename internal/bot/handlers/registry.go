package handlers

import (
	"github.com/bwmarrin/discordgo"

	"github.com/edgard/starboard/internal/logger"
)

// RegisterAll attaches every gateway handler to s, each wrapped in the logging
// middleware. The returned functions detach them.
func RegisterAll(s *discordgo.Session, deps HandlerDeps) []func() {
	log := deps.Logger

	return []func(){
		s.AddHandler(logger.Middleware(log, NewReadyHandler(deps))),
		s.AddHandler(logger.Middleware(log, NewReactionAddHandler(deps))),
		s.AddHandler(logger.Middleware(log, NewReactionRemoveHandler(deps))),
	}
}

// NewReadyHandler logs the gateway session once it is established.
func NewReadyHandler(deps HandlerDeps) func(*discordgo.Session, *discordgo.Ready) {
	log := deps.Logger.With("handler", "ready")
	return func(_ *discordgo.Session, ev *discordgo.Ready) {
		username := ""
		if ev.User != nil {
			username = ev.User.Username
		}
		log.Info("Connected to discord gateway", "username", username, "guilds", len(ev.Guilds))
	}
}
