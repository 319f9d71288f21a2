package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/aristath/papertrade/internal/di"
	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/modules/ledger"
	"github.com/google/subcommands"
)

var accountCommands = []subcommands.Command{
	&registerCmd{},
	&tradeCmd{name: "buy"},
	&tradeCmd{name: "sell"},
	&liquidateCmd{},
}

type registerCmd struct {
	name string
}

func (*registerCmd) Name() string     { return "register" }
func (*registerCmd) Synopsis() string { return "open an account with the initial balance" }
func (*registerCmd) Usage() string {
	return `ledgerctl register [-name <display name>] <user>

  Creates the account <user> funded with INITIAL_BALANCE.
`
}

func (c *registerCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Display name shown on the leaderboard.")
}

func (c *registerCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	return withContainer(ctx, func(container *di.Container) error {
		acct, err := container.LedgerService.Register(ctx, f.Arg(0), c.name)
		if err != nil {
			return err
		}
		printMarkdown(renderBalance(ledger.Balance{
			UserID:      acct.ID,
			DisplayName: acct.DisplayName,
			CashBalance: acct.CashBalance,
		}))
		return nil
	})
}

// tradeCmd implements both buy and sell
type tradeCmd struct {
	name   string
	side   string
	kind   string
	amount string
}

func (c *tradeCmd) Name() string { return c.name }
func (c *tradeCmd) Synopsis() string {
	if c.name == "buy" {
		return "open or increase a long or short position"
	}
	return "reduce or close a position"
}
func (c *tradeCmd) Usage() string {
	return fmt.Sprintf(`ledgerctl %s [-side long|short] [-kind shares|notional|all] -amount <value> <user> <symbol>

  Executes at the latest market price. -kind notional spends or raises a
  cash amount; -kind all uses the whole cash balance (buy) or the whole
  position (sell).
`, c.name)
}

func (c *tradeCmd) SetFlags(f *flag.FlagSet) {
	defSide := ""
	if c.name == "buy" {
		defSide = "long"
	}
	f.StringVar(&c.side, "side", defSide, "Position side (long, short). Sell infers it when only one side is open.")
	f.StringVar(&c.kind, "kind", "shares", "How -amount is interpreted (shares, notional, all).")
	f.StringVar(&c.amount, "amount", "", "Share count or cash amount.")
}

func (c *tradeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	user, symbol := f.Arg(0), f.Arg(1)

	amount, err := domain.ParseAmountSpec(c.kind, c.amount)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	var side domain.Side
	if c.side != "" {
		if side, err = domain.ParseSide(c.side); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitUsageError
		}
	}

	return withContainer(ctx, func(container *di.Container) error {
		var res ledger.TradeResult
		if c.name == "buy" {
			res, err = container.LedgerService.Buy(ctx, ledger.BuyRequest{UserID: user, Side: side, Symbol: symbol, Amount: amount})
		} else {
			res, err = container.LedgerService.Sell(ctx, ledger.SellRequest{UserID: user, Side: side, Symbol: symbol, Amount: amount})
		}
		if err != nil {
			return err
		}
		printMarkdown(renderTradeResult(res))
		return nil
	})
}

type liquidateCmd struct{}

func (*liquidateCmd) Name() string     { return "liquidate" }
func (*liquidateCmd) Synopsis() string { return "close every open position of an account" }
func (*liquidateCmd) Usage() string {
	return `ledgerctl liquidate <user>

  Closes every position at the latest price. Positions without a price
  stay open and are listed as failed.
`
}
func (*liquidateCmd) SetFlags(*flag.FlagSet) {}

func (*liquidateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	return withContainer(ctx, func(container *di.Container) error {
		res, err := container.LedgerService.LiquidateAll(ctx, f.Arg(0))
		if err != nil {
			return err
		}
		printMarkdown(renderLiquidation(res))
		if !res.Report.Complete() {
			return fmt.Errorf("%d position(s) left open", len(res.Report.Failed))
		}
		return nil
	})
}
