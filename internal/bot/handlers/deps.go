// Package handlers reacts to Discord gateway events and feeds reaction
// observations to the starboard engine.
package handlers

import (
	"context"
	"log/slog"

	"github.com/edgard/starboard/internal/config"
	"github.com/edgard/starboard/internal/discord"
	"github.com/edgard/starboard/internal/starboard"
)

// Observer is the engine entry point used by the reaction handlers.
type Observer interface {
	Observe(ctx context.Context, obs starboard.Observation) (starboard.Action, error)
}

// HandlerDeps provides dependencies for gateway event handlers.
type HandlerDeps struct {
	Logger *slog.Logger
	Config *config.Config
	Engine Observer
	Client discord.RESTClient
	// SelfID returns the bot's own user id once the gateway is ready.
	SelfID func() string
}

func (d HandlerDeps) selfID() string {
	if d.SelfID == nil {
		return ""
	}
	return d.SelfID()
}
