package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/aristath/papertrade/internal/di"
	"github.com/google/subcommands"
)

var reportCommands = []subcommands.Command{
	&portfolioCmd{},
	&historyCmd{},
	&leaderboardCmd{},
	&quoteCmd{},
	&lookupCmd{},
}

type portfolioCmd struct{}

func (*portfolioCmd) Name() string     { return "portfolio" }
func (*portfolioCmd) Synopsis() string { return "show an account marked to market" }
func (*portfolioCmd) Usage() string {
	return `ledgerctl portfolio <user>
`
}
func (*portfolioCmd) SetFlags(*flag.FlagSet) {}

func (*portfolioCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	return withContainer(ctx, func(container *di.Container) error {
		p, err := container.LedgerService.PortfolioView(ctx, f.Arg(0))
		if err != nil {
			return err
		}
		printMarkdown(renderPortfolio(p))
		return nil
	})
}

type historyCmd struct {
	limit int
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "list the trades of an account, newest first" }
func (*historyCmd) Usage() string {
	return `ledgerctl history [-n <limit>] <user>
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "n", 20, "Maximum number of trades to show.")
}

func (c *historyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	return withContainer(ctx, func(container *di.Container) error {
		trades, err := container.LedgerService.TradeHistory(ctx, f.Arg(0), c.limit)
		if err != nil {
			return err
		}
		printMarkdown(renderTrades(f.Arg(0), trades))
		return nil
	})
}

type leaderboardCmd struct {
	limit int
}

func (*leaderboardCmd) Name() string     { return "leaderboard" }
func (*leaderboardCmd) Synopsis() string { return "rank accounts by net worth" }
func (*leaderboardCmd) Usage() string {
	return `ledgerctl leaderboard [-n <limit>]
`
}

func (c *leaderboardCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "n", 0, "Number of accounts to show (0 uses LEADERBOARD_SIZE).")
}

func (c *leaderboardCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withContainer(ctx, func(container *di.Container) error {
		limit := c.limit
		if limit <= 0 {
			limit = container.Config.LeaderboardSize
		}
		ranking, err := container.LedgerService.Ranking(ctx, limit)
		if err != nil {
			return err
		}
		printMarkdown(renderRanking(ranking))
		return nil
	})
}

type quoteCmd struct{}

func (*quoteCmd) Name() string     { return "quote" }
func (*quoteCmd) Synopsis() string { return "show the latest price and daily trend of a symbol" }
func (*quoteCmd) Usage() string {
	return `ledgerctl quote <symbol>
`
}
func (*quoteCmd) SetFlags(*flag.FlagSet) {}

func (*quoteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	return withContainer(ctx, func(container *di.Container) error {
		q, err := container.MarketService.Quote(ctx, f.Arg(0))
		if err != nil {
			return fmt.Errorf("quote %s: %w", f.Arg(0), err)
		}
		printMarkdown(renderQuote(q))
		return nil
	})
}

type lookupCmd struct{}

func (*lookupCmd) Name() string     { return "lookup" }
func (*lookupCmd) Synopsis() string { return "show the company behind a symbol" }
func (*lookupCmd) Usage() string {
	return `ledgerctl lookup <symbol>
`
}
func (*lookupCmd) SetFlags(*flag.FlagSet) {}

func (*lookupCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	return withContainer(ctx, func(container *di.Container) error {
		details, err := container.MarketService.Lookup(ctx, f.Arg(0))
		if err != nil {
			return fmt.Errorf("lookup %s: %w", f.Arg(0), err)
		}
		printMarkdown(renderDetails(details))
		return nil
	})
}
