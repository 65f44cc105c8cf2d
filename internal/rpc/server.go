package rpc

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/stats"

	"github.com/rwandaorbitguard/orbit-guard/internal/logging"
	"github.com/rwandaorbitguard/orbit-guard/internal/observability"
)

// Server bundles the gRPC server with its health reporter.
type Server struct {
	*grpc.Server
	Health *health.Server
}

type connTagger interface {
	StatsHandler() stats.Handler
}

// NewServer builds a gRPC server hosting svc and the health service. Health
// reports NOT_SERVING until MarkServing is called.
func NewServer(svc OrbitServiceServer, log logging.Logger, metrics *observability.Collector, opts ...grpc.ServerOption) *Server {
	interceptors := []grpc.UnaryServerInterceptor{
		RequestIDUnaryServerInterceptor(log),
		TracingUnaryServerInterceptor(),
	}
	if metrics != nil {
		interceptors = append(interceptors, metrics.UnaryServerInterceptor())
	}
	base := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(interceptors...),
	}
	if ct, ok := svc.(connTagger); ok {
		base = append(base, grpc.StatsHandler(ct.StatsHandler()))
	}
	opts = append(base, opts...)

	gs := grpc.NewServer(opts...)
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	RegisterOrbitServiceServer(gs, svc)
	healthpb.RegisterHealthServer(gs, hs)
	return &Server{Server: gs, Health: hs}
}

// MarkServing flips health to SERVING.
func (s *Server) MarkServing() {
	s.Health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.Health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
}

// GracefulStop reports NOT_SERVING and drains in-flight calls.
func (s *Server) GracefulStop() {
	s.Health.Shutdown()
	s.Server.GracefulStop()
}
