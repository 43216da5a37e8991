// File: internal/jobs/registration_expiry.go
package jobs

import (
	"context"
	"fmt"
	"time"

	"bookline_backend/internal/config"
	"bookline_backend/internal/registration"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// RegistrationExpiryJob sweeps pending registrations whose payment window
// has passed. Expiry is also enforced lazily when a late payment event
// arrives; the sweep keeps the table from accumulating stale rows.
type RegistrationExpiryJob struct {
	repo          registration.Repository
	logger        *zap.Logger
	cfg           *config.Config
	cronScheduler *cron.Cron
}

// NewRegistrationExpiryJob creates a new RegistrationExpiryJob.
func NewRegistrationExpiryJob(
	repo registration.Repository,
	logger *zap.Logger,
	cfg *config.Config,
) *RegistrationExpiryJob {
	scheduler := cron.New(cron.WithLogger(NewCronLogger(logger.Named("cron"))))

	return &RegistrationExpiryJob{
		repo:          repo,
		logger:        logger.Named("RegistrationExpiryJob"),
		cfg:           cfg,
		cronScheduler: scheduler,
	}
}

// SetupAndStart schedules and starts the cron job.
func (j *RegistrationExpiryJob) SetupAndStart() error {
	jobSpec := j.cfg.RegistrationSweepSchedule
	if jobSpec == "" {
		j.logger.Warn("Registration sweep schedule not defined (REGISTRATION_SWEEP_SCHEDULE). Job will not run.")
		return nil
	}

	jobID, err := j.cronScheduler.AddFunc(jobSpec, j.runJob)
	if err != nil {
		j.logger.Error("Failed to schedule registration sweep", zap.String("spec", jobSpec), zap.Error(err))
		return err
	}

	j.logger.Info("Registration sweep scheduled", zap.String("spec", jobSpec), zap.Any("jobID", jobID))
	j.cronScheduler.Start()
	return nil
}

func (j *RegistrationExpiryJob) runJob() {
	j.logger.Info("Starting registration sweep run...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	sweptCount, err := j.repo.ExpireOverdue(ctx, time.Now().UTC())
	if err != nil {
		j.logger.Error("Registration sweep run failed", zap.Error(err))
	} else {
		j.logger.Info("Registration sweep run completed", zap.Int64("registrations_expired", sweptCount))
	}
}

// Stop gracefully stops the cron scheduler.
func (j *RegistrationExpiryJob) Stop() {
	if j.cronScheduler != nil {
		j.logger.Info("Stopping registration sweep scheduler...")
		stopCtx := j.cronScheduler.Stop()
		select {
		case <-stopCtx.Done():
			j.logger.Info("Registration sweep scheduler stopped gracefully.")
		case <-time.After(10 * time.Second):
			j.logger.Warn("Registration sweep scheduler stop timed out.")
		}
	}
}

// --- Cron Logger Adapter ---

// cronLogger adapts zap.Logger to cron.Logger interface.
type cronLogger struct {
	zl *zap.Logger
}

// NewCronLogger creates a new cronLogger.
func NewCronLogger(zl *zap.Logger) cron.Logger {
	return &cronLogger{zl: zl}
}

// Info logs routine messages from cron.
func (cl *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	fields := cl.parseKeysAndValues(keysAndValues...)
	cl.zl.Info(msg, fields...)
}

// Error logs error messages from cron.
func (cl *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := cl.parseKeysAndValues(keysAndValues...)
	fields = append(fields, zap.Error(err))
	cl.zl.Error(msg, fields...)
}

func (cl *cronLogger) parseKeysAndValues(keysAndValues ...interface{}) []zap.Field {
	var fields []zap.Field
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 < len(keysAndValues) {
			fields = append(fields, zap.Any(fmt.Sprintf("%v", keysAndValues[i]), keysAndValues[i+1]))
		} else {
			fields = append(fields, zap.Any(fmt.Sprintf("%v", keysAndValues[i]), "MISSING_VALUE"))
		}
	}
	return fields
}
