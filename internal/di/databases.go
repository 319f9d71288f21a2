// Package di provides dependency injection for database connections.
package di

import (
	"fmt"
	"path/filepath"

	"github.com/aristath/papertrade/internal/config"
	"github.com/aristath/papertrade/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens both databases and applies their schemas
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{Config: cfg}

	// ledger.db - durable account state; every commit is synced
	ledgerDB, err := openDatabase(cfg.DataDir, "ledger", database.ProfileLedger)
	if err != nil {
		return nil, err
	}
	container.LedgerDB = ledgerDB

	// cache.db - market data, safe to lose
	cacheDB, err := openDatabase(cfg.DataDir, "cache", database.ProfileCache)
	if err != nil {
		ledgerDB.Close()
		return nil, err
	}
	container.CacheDB = cacheDB

	log.Info().Str("data_dir", cfg.DataDir).Msg("Databases initialized")
	return container, nil
}

func openDatabase(dataDir, name string, profile database.DatabaseProfile) (*database.DB, error) {
	db, err := database.New(database.Config{
		Path:    filepath.Join(dataDir, name+".db"),
		Profile: profile,
		Name:    name,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s database: %w", name, err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate %s database: %w", name, err)
	}
	return db, nil
}
