package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/domain"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/port"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/infra/audit"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/infra/config"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/infra/database"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/infra/interaction"
	kafkainfra "github.com/Marina1234-cmd/HopeHand-sub000/internal/infra/kafka"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/infra/logger"
	redisinfra "github.com/Marina1234-cmd/HopeHand-sub000/internal/infra/redis"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/infra/security"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/infra/telemetry"
	postgresrepo "github.com/Marina1234-cmd/HopeHand-sub000/internal/repository/postgres"
	redisrepo "github.com/Marina1234-cmd/HopeHand-sub000/internal/repository/redis"
	transportgrpc "github.com/Marina1234-cmd/HopeHand-sub000/internal/transport/grpc"
	grpcinterceptors "github.com/Marina1234-cmd/HopeHand-sub000/internal/transport/grpc/interceptors"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/transport/http/handlers"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/transport/http/middleware"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/transport/http/routes"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/usecase"
)

const defaultRateLimitTTL = 48 * time.Hour

// eventSink publishes domain events and mirrors activity entries to the bus.
type eventSink interface {
	port.EventPublisher
	port.ActivityLogger
}

type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
	tracer   *telemetry.TracerProvider
	guard    *usecase.SessionGuard

	grpcServer *transportgrpc.Server
	grpcAddr   string
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &Application{cfg: cfg, logger: log}

	if cfg.Telemetry.TracingEnabled {
		tp, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			log.Warn("failed to init tracing, continuing without spans", zap.Error(err))
		} else {
			a.tracer = tp
		}
	}

	redisClient, err := redisinfra.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}
	a.redis = redisClient

	var activityRepo *postgresrepo.ActivityLogRepository
	if cfg.Postgres.Enabled {
		pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		a.pool = pool

		activityRepo = postgresrepo.NewActivityLogRepository(pool, database.Schema(cfg.Postgres))
		if err := activityRepo.EnsureSchema(ctx); err != nil {
			a.close()
			return nil, fmt.Errorf("ensure activity log schema: %w", err)
		}
	} else {
		log.Info("postgres disabled, activity log kept on the event bus only")
	}

	events := a.newEventSink(cfg, log)

	sinks := []audit.Sink{{Name: "events", Logger: events}}
	if activityRepo != nil {
		sinks = append(sinks, audit.Sink{Name: "postgres", Logger: activityRepo})
	}
	activity := audit.NewFanout(log, sinks...)

	rateLimitMetrics, err := telemetry.NewRateLimitMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("init rate limit metrics: %w", err)
	}
	sessionMetrics, err := telemetry.NewSessionMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("init session metrics: %w", err)
	}
	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	rateLimitTTL := cfg.RateLimit.RecordTTL
	if rateLimitTTL <= 0 {
		rateLimitTTL = defaultRateLimitTTL
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.RateLimitConfig{
		KeyPrefix: cfg.RateLimit.KeyPrefix,
		TTL:       rateLimitTTL,
	})
	limiter := usecase.NewRateLimiter(rateLimitStore, log).
		WithPolicies(cfg.RateLimit.Policies()).
		WithDegradationPolicy(cfg.RateLimit.DegradationPolicy()).
		WithActivityLogger(activity).
		WithMetrics(rateLimitMetrics)

	session := usecase.NewSessionPrincipal(events, log)
	feed := interaction.NewFeed(log)

	guard := usecase.NewSessionGuard(usecase.SessionGuardConfig{
		AdminTimeout:   cfg.Session.AdminTimeout,
		RegularTimeout: cfg.Session.RegularTimeout,
		WarningBefore:  cfg.Session.WarningBefore,
		CheckInterval:  cfg.Session.CheckInterval,
		MaxRetries:     cfg.Session.MaxRetries,
		RetryDelay:     cfg.Session.RetryDelay,
	}, session, session, activity, feed, log).WithMetrics(sessionMetrics)
	session.OnSignOut(func(p domain.Principal) { guard.EndSession(p.ID) })
	a.guard = guard

	if cfg.Auth.TokenSecret == "" {
		log.Warn("auth.token_secret is empty, every sign-in will be rejected")
	}

	authService, err := usecase.NewAuthService(usecase.AuthDependencies{
		Limiter:   limiter,
		Identity:  security.NewTokenVerifier(cfg.Auth),
		TwoFactor: security.NewTOTPVerifier(cfg.Auth),
		Secrets:   redisrepo.NewTwoFactorSecretRepository(redisClient.Client(), cfg.Redis.TwoFactorPrefix),
		Session:   session,
		Guard:     guard,
		Events:    events,
		Activity:  activity,
	}, log)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("init auth service: %w", err)
	}

	deps := routes.Dependencies{
		Config:       cfg,
		Logger:       log,
		Metrics:      httpMetrics,
		Principals:   session,
		Interactions: feed,
		Cache:        redisClient,
		Services: routes.ServiceSet{
			Auth:    authService,
			Guard:   guard,
			Limiter: limiter,
		},
	}
	if a.pool != nil {
		deps.Database = a.pool
	}
	if activityRepo != nil {
		deps.Activity = handlers.ActivityLister(activityRepo)
	}
	a.engine = routes.Register(deps)

	if cfg.GRPC.Enabled {
		grpcMetrics, err := grpcinterceptors.NewGRPCMetrics(grpcinterceptors.GRPCMetricsOptions{})
		if err != nil {
			a.close()
			return nil, fmt.Errorf("init grpc metrics: %w", err)
		}
		probes := map[string]transportgrpc.Probe{"redis": redisClient.HealthCheck}
		if a.pool != nil {
			probes["database"] = a.pool.Ping
		}
		a.grpcServer = transportgrpc.NewServer(transportgrpc.ServerDependencies{
			Logger:        log,
			Metrics:       grpcMetrics,
			Tracing:       grpcinterceptors.NewTracing(grpcinterceptors.TracingOptions{TracerProvider: a.tracer.Provider()}),
			Probes:        probes,
			ProbeInterval: cfg.GRPC.HealthInterval,
		})
		a.grpcAddr = fmt.Sprintf("%s:%d", cfg.GRPC.Host, cfg.GRPC.Port)
	}

	log.Info("activity sinks configured", zap.Strings("sinks", activity.Sinks()))

	return a, nil
}

func (a *Application) newEventSink(cfg *config.AppConfig, log *zap.Logger) eventSink {
	if len(cfg.Kafka.Brokers) == 0 {
		log.Info("kafka brokers not configured, using stub publisher")
		return kafkainfra.NewStubPublisher(log)
	}

	producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
	if err != nil {
		log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
		return kafkainfra.NewStubPublisher(log)
	}
	a.producer = producer
	log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
	return kafkainfra.NewEventPublisher(producer, cfg.App, log)
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer a.close()

	a.guard.Init(ctx)
	defer a.guard.Destroy()

	grpcErrCh := make(chan error, 1)
	if a.grpcServer != nil {
		lis, err := net.Listen("tcp", a.grpcAddr)
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		a.logger.Info("starting gRPC health server", zap.String("address", a.grpcAddr))

		healthCtx, stopHealth := context.WithCancel(ctx)
		defer stopHealth()
		go a.grpcServer.WatchHealth(healthCtx)

		go func() {
			if err := a.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				a.logger.Error("gRPC server error", zap.Error(err))
				grpcErrCh <- fmt.Errorf("run grpc server: %w", err)
			}
		}()
		defer a.grpcServer.GracefulStop()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting session guard API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	case err := <-grpcErrCh:
		return err
	}
}

// close releases infrastructure in reverse order of construction. Safe to call twice.
func (a *Application) close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("failed to close kafka producer", zap.Error(err))
		}
		a.producer = nil
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	if a.redis != nil {
		_ = a.redis.Close()
		a.redis = nil
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(context.Background()); err != nil {
			a.logger.Warn("failed to flush traces", zap.Error(err))
		}
		a.tracer = nil
	}
}
