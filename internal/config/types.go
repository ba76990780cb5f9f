// Package config manages application configuration from environment variables,
// config files, and default values.
package config

import (
	"errors"
	"time"
)

// ErrConfiguration wraps every loading or validation failure.
var ErrConfiguration = errors.New("configuration error")

// Config defines the application configuration. Values can be set via environment
// variables prefixed with STARBOARD_ (e.g., STARBOARD_DISCORD_TOKEN) or through config.yaml.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Discord   DiscordConfig   `mapstructure:"discord"`
	Starboard StarboardConfig `mapstructure:"starboard"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Speedrun  SpeedrunConfig  `mapstructure:"speedrun"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// DiscordConfig holds gateway credentials and the starboard output channel.
type DiscordConfig struct {
	Token              string `mapstructure:"token"                validate:"required"`
	StarboardChannelID string `mapstructure:"starboard_channel_id" validate:"required,numeric"`
}

// StarboardConfig controls when a message is mirrored.
type StarboardConfig struct {
	Threshold        int           `mapstructure:"threshold"         validate:"min=1"`
	Emoji            string        `mapstructure:"emoji"             validate:"required"`
	AllowSelfStar    bool          `mapstructure:"allow_self_star"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout" validate:"min=1s,max=5m"`
}

// DatabaseConfig points at the SQLite file.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// SpeedrunConfig configures the leaderboard poller.
type SpeedrunConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	BaseURL           string        `mapstructure:"base_url"            validate:"required,url"`
	GameIDs           []string      `mapstructure:"game_ids"            validate:"dive,required"`
	AnnounceChannelID string        `mapstructure:"announce_channel_id" validate:"omitempty,numeric"`
	MaxRuns           int           `mapstructure:"max_runs"            validate:"min=1,max=200"`
	Timeout           time.Duration `mapstructure:"timeout"             validate:"min=1s,max=2m"`
	BreakerFailures   int           `mapstructure:"breaker_failures"    validate:"min=1"`
	BreakerReset      time.Duration `mapstructure:"breaker_reset"       validate:"min=1s"`
}

// TelegramConfig enables the optional Telegram announcement sink.
type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id" validate:"required_with=Token"`
}

// Enabled reports whether announcements should also go to Telegram.
func (t TelegramConfig) Enabled() bool {
	return t.Token != "" && t.ChatID != 0
}

// SchedulerConfig maps task names to their schedules.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig configures a single scheduled task.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// MetricsConfig controls the Prometheus endpoint. An empty address disables it.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr" validate:"omitempty,hostname_port"`
}
