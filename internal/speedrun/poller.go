package speedrun

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/edgard/starboard/internal/database"
	"github.com/edgard/starboard/internal/telemetry"
)

// Announcer delivers an announcement to one chat destination.
type Announcer interface {
	Name() string
	Announce(ctx context.Context, text string) error
}

// RunSource lists recently verified runs for a game, newest first.
type RunSource interface {
	LatestRuns(ctx context.Context, gameID string, limit int) ([]Run, error)
}

// RunStore remembers which runs were already announced.
type RunStore interface {
	IsRunAnnounced(ctx context.Context, runID string) (bool, error)
	MarkRunAnnounced(ctx context.Context, run *database.AnnouncedRun) error
	CountAnnouncedRuns(ctx context.Context, gameID string) (int, error)
}

// PollerOptions configures a Poller.
type PollerOptions struct {
	MaxRuns int
	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

// Poller announces newly verified runs.
type Poller struct {
	source     RunSource
	store      RunStore
	announcers []Announcer
	maxRuns    int
	logger     *slog.Logger
	metrics    *telemetry.Metrics
}

// NewPoller creates a poller that announces to every sink in announcers.
func NewPoller(source RunSource, store RunStore, announcers []Announcer, opts PollerOptions) *Poller {
	if opts.MaxRuns <= 0 {
		opts.MaxRuns = 20
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		source:     source,
		store:      store,
		announcers: announcers,
		maxRuns:    opts.MaxRuns,
		logger:     logger.With("component", "speedrun_poller"),
		metrics:    opts.Metrics,
	}
}

// Poll checks gameID once and returns how many runs it announced. The first
// poll of a game only records a baseline so history is not replayed. A failed
// announcement stops the batch; the remaining runs are retried next time.
func (p *Poller) Poll(ctx context.Context, gameID string) (int, error) {
	log := p.logger.With("game_id", gameID)

	runs, err := p.source.LatestRuns(ctx, gameID, p.maxRuns)
	if err != nil {
		p.metrics.PollFailed(gameID)
		return 0, fmt.Errorf("failed to fetch runs for game %s: %w", gameID, err)
	}

	known, err := p.store.CountAnnouncedRuns(ctx, gameID)
	if err != nil {
		return 0, fmt.Errorf("failed to count announced runs: %w", err)
	}
	if known == 0 {
		for i := range runs {
			if err := p.mark(ctx, gameID, runs[i]); err != nil {
				return 0, err
			}
		}
		log.Info("Recorded speedrun baseline", "runs", len(runs))
		return 0, nil
	}

	announced := 0
	for i := len(runs) - 1; i >= 0; i-- {
		run := runs[i]
		seen, err := p.store.IsRunAnnounced(ctx, run.ID)
		if err != nil {
			return announced, fmt.Errorf("failed to check run %s: %w", run.ID, err)
		}
		if seen {
			continue
		}

		text := FormatAnnouncement(run)
		for _, a := range p.announcers {
			if err := a.Announce(ctx, text); err != nil {
				p.metrics.PollFailed(gameID)
				return announced, fmt.Errorf("failed to announce run %s via %s: %w", run.ID, a.Name(), err)
			}
		}

		if err := p.mark(ctx, gameID, run); err != nil {
			return announced, err
		}
		p.metrics.RunAnnounced(gameID)
		announced++
		log.Info("Announced speedrun", "run_id", run.ID, "category", run.Category, "time", FormatDuration(run.PrimaryTime))
	}

	return announced, nil
}

func (p *Poller) mark(ctx context.Context, gameID string, run Run) error {
	// Keyed by the configured game so the baseline check matches.
	rec := &database.AnnouncedRun{
		RunID:       run.ID,
		GameID:      gameID,
		Category:    run.Category,
		Weblink:     run.Weblink,
		AnnouncedAt: time.Now().UTC(),
	}
	if err := p.store.MarkRunAnnounced(ctx, rec); err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}
	return nil
}
