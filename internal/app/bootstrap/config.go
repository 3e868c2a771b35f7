// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/chapterhub/internal/app/system/outreach"
	"github.com/dalemusser/chapterhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// EnvPrefix prefixes every app-level environment variable.
const EnvPrefix = "CHAPTERHUB"

// appConfigKeys defines the configuration keys for ChapterHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: CHAPTERHUB_MONGO_URI, CHAPTERHUB_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "chapter_hub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "chapterhub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie lifetime (e.g., 24h, 720h)"},

	// Scheduled jobs
	{Name: "scheduler_enabled", Default: true, Desc: "Run auto-transfer and prayer-rotation jobs in this process"},
	{Name: "scheduler_tick", Default: "24h", Desc: "How often each scheduled job is checked"},
	{Name: "scheduler_run_on_start", Default: false, Desc: "Run every scheduled job once at startup"},

	// app_settings seeds
	{Name: "default_threshold_days", Default: outreach.DefaultThresholdDays, Desc: "Unresponsive threshold used until one is saved"},
	{Name: "default_rotation_day", Default: outreach.DefaultRotationDay, Desc: "Rotation day of month (1-28) used until one is saved"},

	// Database timeouts
	{Name: "timeout_ping", Default: "2s", Desc: "Health check ping timeout"},
	{Name: "timeout_short", Default: "5s", Desc: "Single-document operation timeout"},
	{Name: "timeout_medium", Default: "10s", Desc: "List and transfer timeout"},
	{Name: "timeout_long", Default: "30s", Desc: "Cascading delete timeout"},
	{Name: "timeout_batch", Default: "2m", Desc: "Generation, rotation and auto-transfer timeout"},

	{Name: "metrics_enabled", Default: true, Desc: "Expose Prometheus metrics at /metrics"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, CHAPTERHUB_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 30*24*time.Hour),

		SchedulerEnabled:    appValues.Bool("scheduler_enabled"),
		SchedulerTick:       appValues.Duration("scheduler_tick", 24*time.Hour),
		SchedulerRunOnStart: appValues.Bool("scheduler_run_on_start"),

		DefaultThresholdDays: appValues.Int("default_threshold_days"),
		DefaultRotationDay:   appValues.Int("default_rotation_day"),

		TimeoutPing:   appValues.Duration("timeout_ping", timeouts.DefaultPing),
		TimeoutShort:  appValues.Duration("timeout_short", timeouts.DefaultShort),
		TimeoutMedium: appValues.Duration("timeout_medium", timeouts.DefaultMedium),
		TimeoutLong:   appValues.Duration("timeout_long", timeouts.DefaultLong),
		TimeoutBatch:  appValues.Duration("timeout_batch", timeouts.DefaultBatch),

		MetricsEnabled: appValues.Bool("metrics_enabled"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// ChapterHub validates the MongoDB URI format to catch configuration
// errors early, before attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	return validateAppConfig(appCfg, logger)
}

func validateAppConfig(appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if len(appCfg.SessionKey) < 32 {
		return fmt.Errorf("session_key must be at least 32 bytes")
	}
	if appCfg.SchedulerEnabled && appCfg.SchedulerTick <= 0 {
		return fmt.Errorf("scheduler_tick must be positive when the scheduler is enabled")
	}
	if appCfg.DefaultThresholdDays < 1 {
		return fmt.Errorf("default_threshold_days must be at least 1, got %d", appCfg.DefaultThresholdDays)
	}
	if appCfg.DefaultRotationDay < 1 || appCfg.DefaultRotationDay > 28 {
		return fmt.Errorf("default_rotation_day must be between 1 and 28, got %d", appCfg.DefaultRotationDay)
	}
	return nil
}

// timeoutConfig converts the app timeouts into the timeouts package form.
func (c AppConfig) timeoutConfig() timeouts.Config {
	return timeouts.Config{
		Ping:   c.TimeoutPing,
		Short:  c.TimeoutShort,
		Medium: c.TimeoutMedium,
		Long:   c.TimeoutLong,
		Batch:  c.TimeoutBatch,
	}
}
