// Package di provides dependency injection wiring and initialization.
package di

import (
	"context"
	"errors"
	"fmt"

	"github.com/aristath/papertrade/internal/config"
	"github.com/rs/zerolog"
)

// Wire initializes all dependencies and returns a fully configured container.
// Order of operations:
// 1. Initialize databases
// 2. Initialize repositories
// 3. Initialize services
// 4. Register jobs
func Wire(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container, err := InitializeDatabases(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := InitializeRepositories(ctx, container, cfg, log); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	if err := InitializeServices(ctx, container, cfg, log); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if _, err := RegisterJobs(container, cfg, log); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to register jobs: %w", err)
	}

	log.Info().Msg("Dependency injection wiring completed successfully")
	return container, nil
}

// Close stops the scheduler and closes the databases. Safe to call on a
// partially wired container.
func (c *Container) Close() error {
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	var errs []error
	if c.AccountRepo != nil {
		if err := c.AccountRepo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close accounts: %w", err))
		}
	}
	for _, db := range c.Databases() {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", db.Name(), err))
		}
	}
	return errors.Join(errs...)
}
