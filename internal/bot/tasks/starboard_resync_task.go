package tasks

import (
	"context"
	"fmt"
)

// newStarboardResyncTask reloads the engine's in-memory mirrored set so
// records removed by hand stop short-circuiting lookups.
func newStarboardResyncTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "starboard_resync")

	return func(ctx context.Context) error {
		n, err := deps.Engine.Resync(ctx)
		if err != nil {
			return fmt.Errorf("starboard resync failed: %w", err)
		}
		log.InfoContext(ctx, "Starboard state resynced", "records", n)
		return nil
	}
}
