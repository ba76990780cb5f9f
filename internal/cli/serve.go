package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/edgard/starboard/internal/bot"
	"github.com/edgard/starboard/internal/bot/handlers"
	"github.com/edgard/starboard/internal/bot/tasks"
	"github.com/edgard/starboard/internal/config"
	"github.com/edgard/starboard/internal/database"
	"github.com/edgard/starboard/internal/discord"
	"github.com/edgard/starboard/internal/logger"
	"github.com/edgard/starboard/internal/resilience"
	"github.com/edgard/starboard/internal/speedrun"
	"github.com/edgard/starboard/internal/starboard"
	"github.com/edgard/starboard/internal/telegram"
	"github.com/edgard/starboard/internal/telemetry"
)

// NewServeCommand creates the serve command, which runs the bot.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect to Discord and run the starboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), rootOpts)
		},
	}
}

func runServe(ctx context.Context, opts *RootOptions) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(reg)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return err
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	session, err := discord.NewSession(cfg.Discord.Token)
	if err != nil {
		return err
	}

	poster := discord.NewStarboardPoster(session, cfg.Discord.StarboardChannelID, cfg.Starboard.Emoji, log)
	engine, err := starboard.NewEngine(store, poster, starboard.Options{
		Threshold: cfg.Starboard.Threshold,
		Logger:    log,
		Metrics:   metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to create starboard engine: %w", err)
	}
	if err := engine.Warm(ctx); err != nil {
		log.Error("Failed to load starboard state", "error", err)
		return err
	}

	handlers.RegisterAll(session, handlers.HandlerDeps{
		Logger: log,
		Config: cfg,
		Engine: engine,
		Client: session,
		SelfID: selfID(session),
	})

	poller, err := newPoller(cfg, session, store, metrics, log)
	if err != nil {
		return err
	}

	tDeps := tasks.TaskDeps{
		Logger: log,
		Store:  store,
		Engine: engine,
		Config: cfg,
	}
	if poller != nil {
		tDeps.Poller = poller
	}

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		return err
	}

	components := []bot.Component{{
		Name: "discord_gateway",
		Run:  func(ctx context.Context) error { return discord.Run(ctx, session) },
	}}
	if cfg.Metrics.ListenAddr != "" {
		srv := telemetry.NewServer(cfg.Metrics.ListenAddr, reg, log)
		components = append(components, bot.Component{Name: "metrics_server", Run: srv.Run})
	}

	log.Info("Starting bot...")
	return bot.NewBot(log, sched, components...).Run(ctx)
}

func selfID(s *discordgo.Session) func() string {
	return func() string {
		if s.State == nil || s.State.User == nil {
			return ""
		}
		return s.State.User.ID
	}
}

// newPoller builds the speedrun poller, or returns nil when polling is off.
func newPoller(cfg *config.Config, client discord.RESTClient, store database.Store, metrics *telemetry.Metrics, log *slog.Logger) (*speedrun.Poller, error) {
	if !cfg.Speedrun.Enabled {
		return nil, nil
	}

	var sinks []speedrun.Announcer
	if cfg.Speedrun.AnnounceChannelID != "" {
		sinks = append(sinks, discord.NewChannelAnnouncer(client, cfg.Speedrun.AnnounceChannelID))
	}
	if cfg.Telegram.Enabled() {
		notifier, err := telegram.NewNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, notifier)
	}

	breaker := resilience.NewCircuitBreaker(resilience.BreakerConfig{
		Name:        "speedrun",
		MaxFailures: cfg.Speedrun.BreakerFailures,
		Timeout:     cfg.Speedrun.Timeout,
		ResetAfter:  cfg.Speedrun.BreakerReset,
		Logger:      log,
		OnOpen:      metrics.BreakerOpened,
	})
	runs := speedrun.NewClient(speedrun.ClientOptions{
		BaseURL: cfg.Speedrun.BaseURL,
		Timeout: cfg.Speedrun.Timeout,
		Breaker: breaker,
		Logger:  log,
	})

	log.Info("Speedrun announcements enabled", "games", len(cfg.Speedrun.GameIDs), "sinks", len(sinks))
	return speedrun.NewPoller(runs, store, sinks, speedrun.PollerOptions{
		MaxRuns: cfg.Speedrun.MaxRuns,
		Logger:  log,
		Metrics: metrics,
	}), nil
}
