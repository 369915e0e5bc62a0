package grpc

import (
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const ServiceName = "forumlive.Realtime"

// Server is the operational gRPC endpoint. It carries the standard health
// service so orchestrators can tell whether the gateway accepts clients.
type Server struct {
	srv    *grpc.Server
	health *health.Server
}

func NewServer() *Server {
	srv := grpc.NewServer()
	h := health.NewServer()

	healthpb.RegisterHealthServer(srv, h)
	reflection.Register(srv)

	h.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &Server{srv: srv, health: h}
}

func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}

	s.health.SetServingStatus(ServiceName, status)
	s.health.SetServingStatus("", status)
}

func (s *Server) Serve(lis net.Listener) error {
	slog.Debug("starting grpc server", "address", lis.Addr().String())

	if err := s.srv.Serve(lis); err != nil {
		return fmt.Errorf("srv.Serve: %w", err)
	}

	return nil
}

// GracefulStop flips every service to NOT_SERVING before draining.
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}

func (s *Server) Stop() {
	s.srv.Stop()
}
