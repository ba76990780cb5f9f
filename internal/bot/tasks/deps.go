// Package tasks implements the bot's scheduled jobs.
package tasks

import (
	"context"
	"log/slog"

	"github.com/edgard/starboard/internal/config"
	"github.com/edgard/starboard/internal/database"
)

// Resyncer reloads the engine's mirrored set from the store.
type Resyncer interface {
	Resync(ctx context.Context) (int, error)
}

// GamePoller checks one game for newly verified runs.
type GamePoller interface {
	Poll(ctx context.Context, gameID string) (int, error)
}

// TaskDeps contains all dependencies required by scheduled tasks.
// Poller is nil when speedrun announcements are disabled.
type TaskDeps struct {
	Logger *slog.Logger
	Store  database.Store
	Engine Resyncer
	Poller GamePoller
	Config *config.Config
}
