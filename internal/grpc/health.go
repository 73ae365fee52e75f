package grpc

import (
	"fmt"
	"log"
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"conversation-service/internal/observability"
)

// HealthServer exposes the standard gRPC health service for orchestrators.
type HealthServer struct {
	server  *grpclib.Server
	health  *health.Server
	service string
}

func NewHealthServer(service string) *HealthServer {
	srv := grpclib.NewServer(
		grpclib.StatsHandler(otelgrpc.NewServerHandler()),
		grpclib.UnaryInterceptor(observability.GRPCServerMetricsUnaryInterceptor()),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(service, healthpb.HealthCheckResponse_SERVING)
	return &HealthServer{server: srv, health: hs, service: service}
}

// Serve blocks serving on the port until Stop is called.
func (s *HealthServer) Serve(port string) error {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}
	return s.ServeListener(lis)
}

func (s *HealthServer) ServeListener(lis net.Listener) error {
	log.Printf("grpc health listening addr=%s", lis.Addr())
	return s.server.Serve(lis)
}

// Stop marks every service NOT_SERVING and drains in-flight calls.
func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}
