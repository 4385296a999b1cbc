package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	grpcapi "roomrent-dashboard/internal/api/grpc"
	httpapi "roomrent-dashboard/internal/api/http"
	"roomrent-dashboard/internal/config"
	"roomrent-dashboard/internal/logger"
	"roomrent-dashboard/internal/metrics"
	"roomrent-dashboard/internal/service"
	"roomrent-dashboard/internal/storage"
	"roomrent-dashboard/internal/view"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Room Rent Dashboard...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "http_address", cfg.GetServerAddress(), "grpc_address", cfg.GetGRPCAddress())
	logger.Info("Store configuration", "type", cfg.Store.Type, "collection", cfg.Store.Collection)

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("Invalid display timezone: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize metrics
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.New(cfg.Metrics.Prefix, reg)
	}

	// Initialize Store
	backend, err := storage.Open(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open room store", "type", cfg.Store.Type, "error", err)
		log.Fatalf("Failed to open room store: %v", err)
	}
	defer backend.Close()

	// Initialize Services
	roomSvc := service.NewRoomService(backend.Store, m)

	// Live replica of the room list, observed by gRPC health
	health := grpcapi.NewHealthReporter()
	replica := view.NewReplica(roomSvc)
	replica.OnSnapshot(health.RoomsLoaded)
	replica.OnError(health.RoomsFailed)
	if err := replica.Start(ctx); err != nil {
		// the page keeps showing the loading state
		logger.Error("Failed to subscribe to rooms", "error", err)
	}

	renderer, err := view.NewRenderer()
	if err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}

	// Set up HTTP server
	handler := httpapi.NewHandler(httpapi.Options{
		Rooms:           roomSvc,
		Replica:         replica,
		Renderer:        renderer,
		Metrics:         m,
		Location:        loc,
		ShutdownContext: ctx,
	})
	httpServer := &http.Server{
		Addr:    cfg.GetServerAddress(),
		Handler: httpapi.NewRouter(handler),
	}
	go func() {
		logger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	// Set up gRPC health server
	lis, err := net.Listen("tcp", cfg.GetGRPCAddress())
	if err != nil {
		logger.Error("Failed to listen", "error", err, "address", cfg.GetGRPCAddress())
		log.Fatalf("Failed to listen: %v", err)
	}
	grpcServer := grpcapi.NewServer(health)
	go func() {
		logger.Info("gRPC health server listening", "address", cfg.GetGRPCAddress())
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("Failed to serve gRPC", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	// Graceful shutdown
	logger.Info("Shutting down...")
	health.Shutdown()
	replica.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	grpcServer.GracefulStop()
	logger.Info("Server stopped. Goodbye!")
}
