package config

import "time"

// Default values for configuration
const (
	// Log defaults
	DefaultLogLevel = "info"
	DefaultLogJSON  = true

	// Starboard defaults
	DefaultStarboardThreshold        = 3
	DefaultStarboardEmoji            = "⭐"
	DefaultStarboardAllowSelfStar    = false
	DefaultStarboardOperationTimeout = 15 * time.Second

	// Database defaults
	DefaultDBPath = "starboard.db"

	// Speedrun defaults
	DefaultSpeedrunBaseURL         = "https://www.speedrun.com/api/v1"
	DefaultSpeedrunMaxRuns         = 20
	DefaultSpeedrunTimeout         = 20 * time.Second
	DefaultSpeedrunBreakerFailures = 5
	DefaultSpeedrunBreakerReset    = time.Minute
)

// Default scheduled tasks. Keys must match the names in the task registry.
var DefaultTasks = map[string]TaskConfig{
	"sql_maintenance":  {Enabled: true, Schedule: "0 0 4 * * *"},
	"speedrun_poll":    {Enabled: true, Schedule: "0 */5 * * * *"},
	"starboard_resync": {Enabled: true, Schedule: "0 0 * * * *"},
}
