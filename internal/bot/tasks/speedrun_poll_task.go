package tasks

import (
	"context"
	"errors"
	"fmt"
)

// newSpeedrunPollTask polls every configured game. One failing game does not
// stop the others.
func newSpeedrunPollTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "speedrun_poll")

	return func(ctx context.Context) error {
		timeout := deps.Config.Speedrun.Timeout * 3
		var errs []error
		total := 0

		for _, gameID := range deps.Config.Speedrun.GameIDs {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			pollCtx, cancel := ctx, context.CancelFunc(func() {})
			if timeout > 0 {
				pollCtx, cancel = context.WithTimeout(ctx, timeout)
			}
			n, err := deps.Poller.Poll(pollCtx, gameID)
			cancel()

			total += n
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					log.WarnContext(ctx, "Speedrun poll timed out", "game_id", gameID)
				} else {
					log.ErrorContext(ctx, "Speedrun poll failed", "game_id", gameID, "error", err)
				}
				errs = append(errs, fmt.Errorf("game %s: %w", gameID, err))
			}
		}

		if total > 0 {
			log.InfoContext(ctx, "Announced new speedruns", "runs", total)
		}
		return errors.Join(errs...)
	}
}
