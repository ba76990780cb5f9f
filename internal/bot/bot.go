// Package bot wires the starboard bot's components together and manages their
// lifecycle.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Component is a long-running part of the bot that runs until ctx is cancelled.
type Component struct {
	Name string
	Run  func(ctx context.Context) error
}

// Bot represents the main bot application and manages its components' lifecycle.
type Bot struct {
	logger     *slog.Logger
	scheduler  *Scheduler
	components []Component
}

// NewBot creates a bot running the scheduler alongside the given components,
// typically the Discord gateway and the metrics server.
func NewBot(logger *slog.Logger, scheduler *Scheduler, components ...Component) *Bot {
	return &Bot{
		logger:     logger.With("component", "bot_orchestrator"),
		scheduler:  scheduler,
		components: components,
	}
}

// Run starts every component and blocks until ctx is cancelled or one of them
// fails, in which case the rest are stopped and the error returned.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	for _, c := range b.components {
		g.Go(func() error {
			b.logger.Info("Starting component", "name", c.Name)
			err := c.Run(gCtx)
			if err != nil {
				return fmt.Errorf("%s: %w", c.Name, err)
			}
			if gCtx.Err() == nil {
				b.logger.Warn("Component stopped unexpectedly without context cancellation", "name", c.Name)
				return fmt.Errorf("%s stopped unexpectedly", c.Name)
			}
			b.logger.Info("Component stopped", "name", c.Name)
			return nil
		})
	}

	if b.scheduler != nil {
		g.Go(func() error {
			if err := b.scheduler.Start(); err != nil {
				return fmt.Errorf("failed to start scheduler: %w", err)
			}

			<-gCtx.Done()
			if err := b.scheduler.Stop(); err != nil {
				b.logger.Error("Error stopping scheduler", "error", err)
			}
			return nil
		})
	}

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}
