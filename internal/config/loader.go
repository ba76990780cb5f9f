package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides.
const EnvPrefix = "STARBOARD"

// Load loads and fully validates configuration from:
// 1. Default values
// 2. a .env file in the working directory, if present
// 3. the config file at path (optional, YAML)
// 4. STARBOARD_* environment variables
func Load(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	slog.Debug("Configuration loaded",
		"threshold", cfg.Starboard.Threshold,
		"emoji", cfg.Starboard.Emoji,
		"db_path", cfg.Database.Path,
		"speedrun_enabled", cfg.Speedrun.Enabled)

	return cfg, nil
}

// LoadStorage loads configuration but only validates the sections needed to open the
// database, so maintenance commands run without gateway credentials.
func LoadStorage(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}

	validate := validator.New()
	if err := validate.Struct(cfg.Log); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if err := validate.Struct(cfg.Database); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	return cfg, nil
}

func read(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: failed to load .env file: %v", ErrConfiguration, err)
	}

	v := viper.New()
	setDefaults(v)

	if err := loadConfig(v, path); err != nil {
		return nil, fmt.Errorf("%w: failed to load config file: %v", ErrConfiguration, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	return cfg, nil
}

// Validate checks struct constraints and cross-field rules the tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Speedrun.Enabled && len(c.Speedrun.GameIDs) == 0 {
		return errors.New("speedrun.game_ids must not be empty when speedrun is enabled")
	}
	if c.Speedrun.Enabled && c.Speedrun.AnnounceChannelID == "" && !c.Telegram.Enabled() {
		return errors.New("speedrun is enabled but no announce_channel_id or telegram sink is configured")
	}
	return nil
}

// loadConfig initializes and reads the configuration file and environment bindings.
func loadConfig(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Allow missing config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %v", err)
	}

	return nil
}

// setDefaults registers every key so AutomaticEnv can resolve it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.json", DefaultLogJSON)

	v.SetDefault("discord.token", "")
	v.SetDefault("discord.starboard_channel_id", "")

	v.SetDefault("starboard.threshold", DefaultStarboardThreshold)
	v.SetDefault("starboard.emoji", DefaultStarboardEmoji)
	v.SetDefault("starboard.allow_self_star", DefaultStarboardAllowSelfStar)
	v.SetDefault("starboard.operation_timeout", DefaultStarboardOperationTimeout)

	v.SetDefault("database.path", DefaultDBPath)

	v.SetDefault("speedrun.enabled", false)
	v.SetDefault("speedrun.base_url", DefaultSpeedrunBaseURL)
	v.SetDefault("speedrun.game_ids", []string{})
	v.SetDefault("speedrun.announce_channel_id", "")
	v.SetDefault("speedrun.max_runs", DefaultSpeedrunMaxRuns)
	v.SetDefault("speedrun.timeout", DefaultSpeedrunTimeout)
	v.SetDefault("speedrun.breaker_failures", DefaultSpeedrunBreakerFailures)
	v.SetDefault("speedrun.breaker_reset", DefaultSpeedrunBreakerReset)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chat_id", 0)

	for name, task := range DefaultTasks {
		v.SetDefault("scheduler.tasks."+name+".enabled", task.Enabled)
		v.SetDefault("scheduler.tasks."+name+".schedule", task.Schedule)
	}

	v.SetDefault("metrics.listen_addr", "")
}
