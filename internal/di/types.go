// Package di provides dependency injection type definitions.
package di

import (
	"github.com/aristath/papertrade/internal/clientdata"
	"github.com/aristath/papertrade/internal/clients/polygon"
	"github.com/aristath/papertrade/internal/config"
	"github.com/aristath/papertrade/internal/database"
	"github.com/aristath/papertrade/internal/events"
	"github.com/aristath/papertrade/internal/modules/accounts"
	"github.com/aristath/papertrade/internal/modules/ledger"
	"github.com/aristath/papertrade/internal/modules/market"
	"github.com/aristath/papertrade/internal/modules/positions"
	"github.com/aristath/papertrade/internal/reliability"
	"github.com/aristath/papertrade/internal/scheduler"
)

// Container holds all dependencies for the application.
// It is created by Wire and released with Close.
type Container struct {
	Config *config.Config

	// Databases
	LedgerDB *database.DB // accounts, positions, trades
	CacheDB  *database.DB // market data cache

	// Repositories
	AccountRepo    *accounts.Repository
	TradeRepo      *accounts.TradeRepository
	ClientDataRepo *clientdata.Repository

	// Clients
	PriceOracle *polygon.Client

	// Events
	EventBus     *events.Bus
	EventManager *events.Manager

	// Services
	PositionEngine *positions.Engine
	LedgerService  *ledger.Service
	MarketService  *market.Service
	BackupService  *reliability.BackupService // nil when backups are disabled

	// Background jobs
	Scheduler *scheduler.Scheduler
	Jobs      *JobInstances
}

// JobInstances holds the registered jobs for manual triggering
type JobInstances struct {
	Backup      *reliability.BackupJob // nil when backups are disabled
	Cleanup     *clientdata.CleanupJob
	Maintenance *reliability.MaintenanceJob
}

// Databases returns every open database, ledger first
func (c *Container) Databases() []*database.DB {
	dbs := make([]*database.DB, 0, 2)
	if c.LedgerDB != nil {
		dbs = append(dbs, c.LedgerDB)
	}
	if c.CacheDB != nil {
		dbs = append(dbs, c.CacheDB)
	}
	return dbs
}
