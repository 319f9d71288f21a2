package main

import (
	"context"
	"errors"
	"flag"

	"github.com/aristath/papertrade/internal/di"
	"github.com/google/subcommands"
)

var adminCommands = []subcommands.Command{
	&backupCmd{},
	&maintenanceCmd{},
}

var errBackupsDisabled = errors.New("backups are disabled, set BACKUP_ENABLED=true")

type backupCmd struct {
	list bool
}

func (*backupCmd) Name() string     { return "backup" }
func (*backupCmd) Synopsis() string { return "upload a backup of both databases or list existing ones" }
func (*backupCmd) Usage() string {
	return `ledgerctl backup [-list]
`
}

func (c *backupCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.list, "list", false, "List stored backups instead of creating one.")
}

func (c *backupCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withContainer(ctx, func(container *di.Container) error {
		if container.BackupService == nil {
			return errBackupsDisabled
		}
		if c.list {
			backups, err := container.BackupService.ListBackups(ctx)
			if err != nil {
				return err
			}
			printMarkdown(renderBackups(backups))
			return nil
		}
		res, err := container.BackupService.CreateAndUpload(ctx)
		if err != nil {
			return err
		}
		printMarkdown(renderBackupResult(res))
		return nil
	})
}

type maintenanceCmd struct{}

func (*maintenanceCmd) Name() string     { return "maintenance" }
func (*maintenanceCmd) Synopsis() string { return "run database maintenance and cache cleanup now" }
func (*maintenanceCmd) Usage() string {
	return `ledgerctl maintenance
`
}
func (*maintenanceCmd) SetFlags(*flag.FlagSet) {}

func (*maintenanceCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withContainer(ctx, func(container *di.Container) error {
		if err := container.Scheduler.RunNow(container.Jobs.Maintenance); err != nil {
			return err
		}
		return container.Scheduler.RunNow(container.Jobs.Cleanup)
	})
}
