package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/papertrade/internal/database"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

const backupTimeout = 10 * time.Minute

// BackupJob runs a scheduled off-site backup
type BackupJob struct {
	service *BackupService
	log     zerolog.Logger
}

// NewBackupJob creates a backup job
func NewBackupJob(service *BackupService, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service: service,
		log:     log.With().Str("job", "backup").Logger(),
	}
}

// Run executes the backup
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()

	if _, err := j.service.CreateAndUpload(ctx); err != nil {
		j.log.Error().Err(err).Msg("Scheduled backup failed")
		return err
	}
	return nil
}

// Name returns the job name for scheduler
func (j *BackupJob) Name() string {
	return "backup"
}

// Disk space thresholds in bytes
const (
	criticalFreeBytes = 500 * 1000 * 1000
	lowFreeBytes      = 5 * 1000 * 1000 * 1000
)

// MaintenanceJob checks database integrity, truncates WAL files and watches
// the free disk space of the data directory.
type MaintenanceJob struct {
	databases []*database.DB
	dataDir   string
	usage     func(path string) (*disk.UsageStat, error)
	log       zerolog.Logger
}

// NewMaintenanceJob creates a maintenance job
func NewMaintenanceJob(databases []*database.DB, dataDir string, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		databases: databases,
		dataDir:   dataDir,
		usage:     disk.Usage,
		log:       log.With().Str("job", "maintenance").Logger(),
	}
}

// Run executes the maintenance steps. A failed integrity check or a nearly
// full disk is returned as an error; WAL checkpoint failures are only logged.
func (j *MaintenanceJob) Run() error {
	j.log.Info().Msg("Starting maintenance")
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	for _, db := range j.databases {
		if err := db.HealthCheck(ctx); err != nil {
			j.log.Error().Err(err).Str("database", db.Name()).Msg("CRITICAL: Database integrity check failed")
			return err
		}

		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Warn().Err(err).Str("database", db.Name()).Msg("WAL checkpoint failed")
		}
	}

	if err := j.checkDiskSpace(); err != nil {
		return err
	}

	j.log.Info().Dur("duration_ms", time.Since(startTime)).Msg("Maintenance completed successfully")
	return nil
}

// Name returns the job name for scheduler
func (j *MaintenanceJob) Name() string {
	return "maintenance"
}

func (j *MaintenanceJob) checkDiskSpace() error {
	usage, err := j.usage(j.dataDir)
	if err != nil {
		return fmt.Errorf("failed to stat filesystem: %w", err)
	}

	j.log.Debug().Uint64("free_bytes", usage.Free).Float64("used_percent", usage.UsedPercent).Msg("Disk space check")

	if usage.Free < criticalFreeBytes {
		j.log.Error().Uint64("free_bytes", usage.Free).Msg("CRITICAL: Insufficient disk space")
		return fmt.Errorf("only %d bytes free in %s", usage.Free, j.dataDir)
	}
	if usage.Free < lowFreeBytes {
		j.log.Warn().Uint64("free_bytes", usage.Free).Msg("Disk space running low")
	}
	return nil
}
