package grpc

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"roomrent-dashboard/internal/api/grpc/interceptor"
	"roomrent-dashboard/internal/domain"
	"roomrent-dashboard/internal/logger"
)

// RoomsService is the health service name that tracks the room live query.
const RoomsService = "roomrent.Rooms"

// HealthReporter maps the replica's live query state onto the standard gRPC
// health service. Both the overall status and RoomsService start out
// NOT_SERVING and flip to SERVING with the first snapshot.
type HealthReporter struct {
	server *health.Server
}

func NewHealthReporter() *HealthReporter {
	s := health.NewServer()
	s.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	s.SetServingStatus(RoomsService, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthReporter{server: s}
}

// RoomsLoaded is registered as a replica snapshot observer.
func (h *HealthReporter) RoomsLoaded(rooms []domain.Room) {
	h.set(healthpb.HealthCheckResponse_SERVING)
}

// RoomsFailed is registered as a replica error observer.
func (h *HealthReporter) RoomsFailed(err error) {
	logger.Warn("Room live query unhealthy", "error", err)
	h.set(healthpb.HealthCheckResponse_NOT_SERVING)
}

func (h *HealthReporter) set(status healthpb.HealthCheckResponse_ServingStatus) {
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(RoomsService, status)
}

// Shutdown reports NOT_SERVING to every watcher ahead of a stop.
func (h *HealthReporter) Shutdown() {
	h.server.Shutdown()
}

func (h *HealthReporter) Server() healthpb.HealthServer {
	return h.server
}

// NewServer builds the gRPC server exposing health and reflection.
func NewServer(reporter *HealthReporter) *grpc.Server {
	s := grpc.NewServer(
		grpc.UnaryInterceptor(interceptor.NewLoggingInterceptor().Unary()),
	)
	healthpb.RegisterHealthServer(s, reporter.server)

	// Register reflection service for grpcurl
	reflection.Register(s)
	return s
}
