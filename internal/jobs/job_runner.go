package jobs

import (
	"time"

	"roomrent-dashboard/internal/config"
	"roomrent-dashboard/internal/logger"
	"roomrent-dashboard/internal/service"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	rooms  service.RoomService
	config *config.Config
	loc    *time.Location
	now    func() time.Time
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(rooms service.RoomService, cfg *config.Config) *JobRunner {
	loc, err := cfg.Location()
	if err != nil {
		logger.Warn("Falling back to local time zone", "timezone", cfg.Display.TimeZone, "error", err)
		loc = time.Local
	}
	return &JobRunner{
		rooms:  rooms,
		config: cfg,
		loc:    loc,
		now:    time.Now,
	}
}

// Config returns the configuration the runner was built with
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

// RunAll runs every report once (for manual execution)
func (jr *JobRunner) RunAll() {
	jr.ReportDueCheckouts()
	jr.ReportOccupancy()
}
