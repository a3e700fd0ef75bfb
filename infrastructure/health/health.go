// Package health exposes the standard gRPC health service so that
// orchestrators can check the hub without speaking its WebSocket protocol.
package health

import (
	"errors"
	"fmt"
	"log/slog"
	"net"

	sdkgrpc "github.com/mama165/sdk-go/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name under which the hub reports its status.
// The empty name reports the overall server status.
const ServiceName = "chat-hub"

type Server struct {
	log    *slog.Logger
	grpc   *grpc.Server
	health *health.Server
}

func NewServer(log *slog.Logger) *Server {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(sdkgrpc.UnaryLoggingInterceptor(log)))
	h := health.NewServer()
	healthpb.RegisterHealthServer(s, h)
	h.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	h.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Server{log: log, grpc: s, health: h}
}

// Serve blocks until the listener fails or Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	s.log.Info("Starting gRPC health server", "address", lis.Addr().String())
	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("grpc health server: %w", err)
	}
	return nil
}

func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Stop reports NOT_SERVING to watchers before stopping the server.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
