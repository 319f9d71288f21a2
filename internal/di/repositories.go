// Package di provides dependency injection for repository implementations.
package di

import (
	"context"
	"fmt"

	"github.com/aristath/papertrade/internal/clientdata"
	"github.com/aristath/papertrade/internal/config"
	"github.com/aristath/papertrade/internal/modules/accounts"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates the repositories and loads every account
// into memory
func InitializeRepositories(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	container.AccountRepo = accounts.NewRepository(container.LedgerDB.Conn(), cfg.InitialBalance, log)
	if err := container.AccountRepo.Open(ctx); err != nil {
		return fmt.Errorf("failed to open account store: %w", err)
	}
	container.TradeRepo = accounts.NewTradeRepository(container.LedgerDB.Conn(), log)
	container.ClientDataRepo = clientdata.NewRepository(container.CacheDB.Conn())

	log.Info().Int("accounts", container.AccountRepo.Len()).Msg("Repositories initialized")
	return nil
}
