// Package di provides dependency injection for service implementations.
package di

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/aristath/papertrade/internal/clients/polygon"
	"github.com/aristath/papertrade/internal/config"
	"github.com/aristath/papertrade/internal/events"
	"github.com/aristath/papertrade/internal/modules/ledger"
	"github.com/aristath/papertrade/internal/modules/market"
	"github.com/aristath/papertrade/internal/modules/positions"
	"github.com/aristath/papertrade/internal/reliability"
	"github.com/rs/zerolog"
)

// InitializeServices creates the market data client, the event system and
// every service. Requires InitializeRepositories to have run.
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	container.EventBus = events.NewBus(log)
	container.EventManager = events.NewManager(container.EventBus, log)

	if cfg.Polygon.APIKey == "" {
		log.Warn().Msg("POLYGON_API_KEY not set, price lookups will fail")
	}
	container.PriceOracle = polygon.NewClient(cfg.Polygon.BaseURL, cfg.Polygon.APIKey, container.ClientDataRepo, log)

	container.PositionEngine = positions.NewEngine(cfg.QuantityScale)
	container.LedgerService = ledger.NewService(
		container.AccountRepo,
		container.TradeRepo,
		container.PriceOracle,
		container.PositionEngine,
		container.EventManager,
		cfg.InitialBalance,
		log,
	)
	container.MarketService = market.NewService(container.PriceOracle, container.PriceOracle, log)

	if cfg.Backup.Enabled {
		store, err := reliability.NewS3Store(ctx, reliability.S3Config{
			Endpoint:  cfg.Backup.Endpoint,
			Region:    cfg.Backup.Region,
			Bucket:    cfg.Backup.Bucket,
			AccessKey: cfg.Backup.AccessKey,
			SecretKey: cfg.Backup.SecretKey,
		})
		if err != nil {
			return fmt.Errorf("failed to create backup store: %w", err)
		}
		container.BackupService = reliability.NewBackupService(
			container.Databases(),
			store,
			filepath.Join(cfg.DataDir, "backup-staging"),
			cfg.Backup.RetentionDays,
			container.EventManager,
			log,
		)
	}

	log.Info().Bool("backups", container.BackupService != nil).Msg("Services initialized")
	return nil
}
