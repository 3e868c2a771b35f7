// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	claimsfeature "github.com/dalemusser/chapterhub/internal/app/features/claims"
	committeefeature "github.com/dalemusser/chapterhub/internal/app/features/committee"
	communicationfeature "github.com/dalemusser/chapterhub/internal/app/features/communication"
	healthfeature "github.com/dalemusser/chapterhub/internal/app/features/health"
	membersfeature "github.com/dalemusser/chapterhub/internal/app/features/members"
	prayerfeature "github.com/dalemusser/chapterhub/internal/app/features/prayer"
	settingsfeature "github.com/dalemusser/chapterhub/internal/app/features/settings"
	summaryfeature "github.com/dalemusser/chapterhub/internal/app/features/summary"
	userinfofeature "github.com/dalemusser/chapterhub/internal/app/features/userinfo"
	"github.com/dalemusser/chapterhub/internal/app/system/auth"
	"github.com/dalemusser/chapterhub/internal/app/system/authz"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed.
//
// ChapterHub applies session middleware and mounts the JSON API under /api,
// plus /health and, when enabled, /metrics.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	var registry *prometheus.Registry
	if appCfg.MetricsEnabled {
		registry = NewRegistry(deps.Services)
	}
	return NewRouter(deps, sessionMgr, registry, logger), nil
}

// NewRegistry returns a Prometheus registry carrying the Go runtime and
// process collectors plus the outreach metrics.
func NewRegistry(svc *Services) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	svc.Metrics.Register(registry)
	return registry
}

// NewRouter mounts every feature. A nil registry leaves /metrics unmounted.
func NewRouter(deps DBDeps, sessionMgr *auth.SessionManager, registry *prometheus.Registry, logger *zap.Logger) chi.Router {
	svc := deps.Services
	db := deps.MongoDatabase

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if signed in.
	// This makes the current user available to all handlers via auth.CurrentUser(r).
	r.Use(sessionMgr.LoadSessionUser)

	healthHandler := healthfeature.NewHandler(deps.MongoClient, svc.Stores.Settings, logger)
	healthHandler.Scheduler = func() bool {
		return svc.Scheduler != nil && svc.Scheduler.Running()
	}
	r.Mount("/health", healthfeature.Routes(healthHandler))

	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	}

	r.Route("/api", func(api chi.Router) {
		userinfofeature.MountRoutes(api, userinfofeature.NewHandler())

		// Prayer rotation: generation, rotation, placement, claims.
		prayerHandler := prayerfeature.NewHandler(svc.Rotation, logger)
		api.Mount("/prayer", prayerfeature.Routes(prayerHandler, sessionMgr))

		// Communication: contact logging, transfers, claims, history.
		commHandler := communicationfeature.NewHandler(svc.Transfer, logger)
		api.Mount("/communication", communicationfeature.Routes(commHandler, sessionMgr))

		// Combined member claims across both assignment kinds.
		claimsHandler := claimsfeature.NewHandler(svc.Claims, logger)
		api.Mount("/claims", claimsfeature.Routes(claimsHandler, sessionMgr))

		// Settings: any signed-in user may read, admins may change.
		settingsHandler := settingsfeature.NewHandler(svc.Stores.Settings, logger)
		api.Route("/settings", func(sr chi.Router) {
			sr.Use(sessionMgr.RequireSignedIn)
			settingsHandler.MountRoutes(sr, sessionMgr.RequireRole(authz.AdminRoles...))
		})

		// Directory maintenance.
		membersHandler := membersfeature.NewHandler(db, svc.Rotation, svc.Transfer, logger)
		api.Mount("/members", membersfeature.Routes(membersHandler, sessionMgr))

		committeeHandler := committeefeature.NewHandler(db, logger)
		api.Mount("/committee", committeefeature.Routes(committeeHandler, sessionMgr))

		summaryHandler := summaryfeature.NewHandler(db, logger)
		api.Mount("/summary", summaryfeature.Routes(summaryHandler, sessionMgr))
	})

	return r
}
