package transportgrpc

import (
	"context"
	"net"
	"sort"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpcinterceptors "github.com/Marina1234-cmd/HopeHand-sub000/internal/transport/grpc/interceptors"
)

const (
	defaultProbeInterval = 15 * time.Second
	probeTimeout         = 2 * time.Second
)

// Probe checks one dependency.
type Probe func(ctx context.Context) error

// ServerDependencies encapsulates what the gRPC server layer needs.
type ServerDependencies struct {
	Logger        *zap.Logger
	Metrics       *grpcinterceptors.GRPCMetrics
	Tracing       *grpcinterceptors.Tracing
	Probes        map[string]Probe
	ProbeInterval time.Duration
}

// Server serves the standard gRPC health protocol, reporting the state of the guard's
// backing stores to orchestrators and load balancers.
type Server struct {
	grpc     *grpc.Server
	health   *health.Server
	probes   map[string]Probe
	names    []string
	interval time.Duration
	logger   *zap.Logger
}

// NewServer wires the health and reflection services with metrics and tracing.
func NewServer(deps ServerDependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	interval := deps.ProbeInterval
	if interval <= 0 {
		interval = defaultProbeInterval
	}

	server := grpc.NewServer(
		deps.Tracing.ServerOption(),
		grpc.ChainUnaryInterceptor(
			grpcinterceptors.UnaryRecovery(logger),
			deps.Metrics.UnaryServerInterceptor(),
		),
		grpc.ChainStreamInterceptor(
			grpcinterceptors.StreamRecovery(logger),
			deps.Metrics.StreamServerInterceptor(),
		),
	)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(server, healthServer)

	// Register reflection service for tools like grpcurl.
	reflection.Register(server)

	names := make([]string, 0, len(deps.Probes))
	for name, probe := range deps.Probes {
		if probe != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	return &Server{
		grpc:     server,
		health:   healthServer,
		probes:   deps.Probes,
		names:    names,
		interval: interval,
		logger:   logger,
	}
}

// GRPC exposes the underlying server for registration of additional services.
func (s *Server) GRPC() *grpc.Server {
	return s.grpc
}

// Serve accepts connections on lis until GracefulStop is called.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// RefreshHealth runs every probe once. Each probe is published under its own service
// name; the empty service name is SERVING only when every probe passes.
func (s *Server) RefreshHealth(ctx context.Context) {
	overall := healthpb.HealthCheckResponse_SERVING
	for _, name := range s.names {
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := s.probes[name](probeCtx)
		cancel()

		status := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			overall = healthpb.HealthCheckResponse_NOT_SERVING
			s.logger.Warn("dependency probe failed", zap.String("dependency", name), zap.Error(err))
		}
		s.health.SetServingStatus(name, status)
	}
	s.health.SetServingStatus("", overall)
}

// WatchHealth refreshes health immediately and then on every interval until ctx ends.
func (s *Server) WatchHealth(ctx context.Context) {
	s.RefreshHealth(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RefreshHealth(ctx)
		}
	}
}

// GracefulStop marks every service NOT_SERVING and drains in-flight calls.
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
