package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/port"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/infra/config"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/transport/http/handlers"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/transport/http/middleware"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth    *usecase.AuthService
	Guard   *usecase.SessionGuard
	Limiter *usecase.RateLimiter
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config       *config.AppConfig
	Logger       *zap.Logger
	Metrics      *middleware.HTTPMetrics
	Principals   port.PrincipalProvider
	Services     ServiceSet
	Interactions handlers.InteractionDispatcher
	Activity     handlers.ActivityLister
	Database     DatabaseChecker
	Cache        CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	if len(deps.Config.App.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(deps.Config.App.AllowedOrigins))
	}
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	healthOptions := make([]handlers.HealthOption, 0, 2)

	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}

	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	requirePrincipal := middleware.RequirePrincipal(deps.Principals)

	api := r.Group("/api/v1")
	{
		if deps.Services.Auth != nil {
			authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Services.Guard, policyLookup(deps.Services.Limiter))
			authHandler.RegisterRoutes(api.Group("/auth"), requirePrincipal)
		}

		if deps.Services.Guard != nil {
			sessionGroup := api.Group("/session")
			sessionGroup.Use(requirePrincipal)
			handlers.NewSessionHandler(deps.Services.Guard, deps.Interactions).RegisterRoutes(sessionGroup)
		}

		if deps.Services.Limiter != nil {
			adminGroup := api.Group("/admin")
			adminGroup.Use(requirePrincipal, middleware.RequirePrivileged())
			handlers.NewAdminHandler(deps.Services.Limiter, deps.Activity).RegisterRoutes(adminGroup)
		}
	}

	return r
}

func policyLookup(limiter *usecase.RateLimiter) handlers.PolicyLookup {
	if limiter == nil {
		return nil
	}
	return limiter
}
