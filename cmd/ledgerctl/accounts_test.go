package main

import (
	"context"
	"flag"
	"testing"

	"github.com/aristath/papertrade/internal/config"
	"github.com/aristath/papertrade/internal/di"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("PAPERTRADE_DATA_DIR", dir)
	t.Setenv("POLYGON_BASE_URL", "http://127.0.0.1:1")
	t.Setenv("INITIAL_BALANCE", "10000")

	prev := plain
	plain = true
	t.Cleanup(func() { plain = prev })
	return dir
}

func runCommand(t *testing.T, cmd subcommands.Command, args ...string) subcommands.ExitStatus {
	t.Helper()
	f := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(f)
	require.NoError(t, f.Parse(args))
	return cmd.Execute(context.Background(), f)
}

func TestRegisterCmd(t *testing.T) {
	setupEnv(t)

	assert.Equal(t, subcommands.ExitSuccess, runCommand(t, &registerCmd{}, "-name", "Alice", "u1"))
	assert.Equal(t, subcommands.ExitFailure, runCommand(t, &registerCmd{}, "u1"))
	assert.Equal(t, subcommands.ExitUsageError, runCommand(t, &registerCmd{}))

	cfg, err := config.Load()
	require.NoError(t, err)
	container, err := di.Wire(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	bal, err := container.LedgerService.Balance(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", bal.UserID)
	assert.Equal(t, "Alice", bal.DisplayName)
	assert.True(t, decimal.NewFromInt(10000).Equal(bal.CashBalance))
}

func TestTradeCmd_RejectsBadFlags(t *testing.T) {
	setupEnv(t)

	assert.Equal(t, subcommands.ExitUsageError, runCommand(t, &tradeCmd{name: "buy"}, "-kind", "bogus", "-amount", "1", "u1", "ABC"))
	assert.Equal(t, subcommands.ExitUsageError, runCommand(t, &tradeCmd{name: "buy"}, "-side", "sideways", "-amount", "1", "u1", "ABC"))
	assert.Equal(t, subcommands.ExitUsageError, runCommand(t, &tradeCmd{name: "sell"}, "u1"))
}
