package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"roomrent-dashboard/internal/config"
	"roomrent-dashboard/internal/jobs"
	"roomrent-dashboard/internal/logger"
	"roomrent-dashboard/internal/scheduler"
	"roomrent-dashboard/internal/service"
	"roomrent-dashboard/internal/storage"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'report-due-checkouts', 'report-occupancy', 'all')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Room Rent Cronjob Runner...", "log_level", cfg.Log.Level)

	// Initialize Store
	backend, err := storage.Open(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to open room store", "type", cfg.Store.Type, "error", err)
		log.Fatalf("Failed to open room store: %v", err)
	}
	defer backend.Close()

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(service.NewRoomService(backend.Store, nil), cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if !runJobOnce(jobRunner, *runOnce) {
			backend.Close()
			os.Exit(1)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		log.Fatalf("Failed to schedule jobs: %v", err)
	}

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once; it reports false for unknown names
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) bool {
	switch jobName {
	case "report-due-checkouts":
		jobRunner.ReportDueCheckouts()
	case "report-occupancy":
		jobRunner.ReportOccupancy()
	case "all":
		jobRunner.RunAll()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - report-due-checkouts\n")
		fmt.Printf("  - report-occupancy\n")
		fmt.Printf("  - all\n")
		return false
	}
	return true
}
