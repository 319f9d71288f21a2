// Package di provides dependency injection for scheduler jobs.
package di

import (
	"fmt"

	"github.com/aristath/papertrade/internal/clientdata"
	"github.com/aristath/papertrade/internal/config"
	"github.com/aristath/papertrade/internal/reliability"
	"github.com/aristath/papertrade/internal/scheduler"
	"github.com/rs/zerolog"
)

// Job schedules (cron with seconds field)
const (
	CleanupSchedule     = "0 15 * * * *" // hourly
	MaintenanceSchedule = "0 30 4 * * *" // daily
)

// RegisterJobs creates the background jobs and registers them with a new
// scheduler. The scheduler is not started.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	sched := scheduler.New(log)
	instances := &JobInstances{
		Cleanup:     clientdata.NewCleanupJob(container.ClientDataRepo, log),
		Maintenance: reliability.NewMaintenanceJob(container.Databases(), cfg.DataDir, log),
	}

	if err := sched.AddJob(CleanupSchedule, instances.Cleanup); err != nil {
		return nil, err
	}
	if err := sched.AddJob(MaintenanceSchedule, instances.Maintenance); err != nil {
		return nil, err
	}

	if container.BackupService != nil {
		instances.Backup = reliability.NewBackupJob(container.BackupService, log)
		if err := sched.AddJob(cfg.Backup.Schedule, instances.Backup); err != nil {
			return nil, fmt.Errorf("backup schedule: %w", err)
		}
	}

	container.Scheduler = sched
	container.Jobs = instances

	log.Info().Strs("jobs", sched.JobNames()).Msg("Jobs registered")
	return instances, nil
}
