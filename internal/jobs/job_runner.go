package jobs

import (
	"context"
	"time"

	"rentdesk-backend/internal/config"
	"rentdesk-backend/internal/logger"
	"rentdesk-backend/internal/repository"
	"rentdesk-backend/internal/service"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	reminders repository.ReminderRepository
	emails    service.EmailService
	config    *config.Config
	now       func() time.Time
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(reminders repository.ReminderRepository, emails service.EmailService, cfg *config.Config) *JobRunner {
	return &JobRunner{
		reminders: reminders,
		emails:    emails,
		config:    cfg,
		now:       time.Now,
	}
}

// Config returns the configuration the jobs were built with
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

// RunSendReminders is the cron entry point for SendReminders.
func (jr *JobRunner) RunSendReminders() {
	jr.runWithRecovery("SendReminders", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := jr.SendReminders(ctx); err != nil {
			logger.Error("Reminder batch aborted", "error", err)
		}
	})
}
