// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/chapterhub/internal/app/system/timeouts"
	"github.com/dalemusser/chapterhub/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It applies
// the configured timeouts, seeds app_settings and starts the scheduler.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(appCfg.timeoutConfig())

	seedCtx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()
	if err := SeedSettings(seedCtx, deps.Services.Stores.Settings, appCfg, logger); err != nil {
		logger.Error("seed settings failed", zap.Error(err))
		return err
	}

	if !appCfg.SchedulerEnabled {
		logger.Info("scheduler disabled")
		return nil
	}
	svc := deps.Services
	svc.Scheduler = workers.NewScheduler(svc.Jobs(logger, appCfg.SchedulerTick), logger.Named("scheduler"), workers.Options{
		Timeout:    timeouts.Batch(),
		RunOnStart: appCfg.SchedulerRunOnStart,
		Metrics:    svc.Metrics,
	})
	svc.Scheduler.Start()
	return nil
}
