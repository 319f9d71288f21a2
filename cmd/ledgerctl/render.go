package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/modules/ledger"
	"github.com/aristath/papertrade/internal/modules/market"
	"github.com/aristath/papertrade/internal/reliability"
	"github.com/aristath/papertrade/internal/utils"
	"github.com/shopspring/decimal"
)

// The render functions produce markdown; printMarkdown turns it into
// terminal output.

func accountTitle(userID, displayName string) string {
	if displayName == "" || displayName == userID {
		return userID
	}
	return fmt.Sprintf("%s (%s)", displayName, userID)
}

func renderBalance(b ledger.Balance) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", accountTitle(b.UserID, b.DisplayName))
	fmt.Fprintf(&sb, "Cash balance: **%s**\n", utils.FormatMoney(b.CashBalance))
	return sb.String()
}

func renderTradeResult(res ledger.TradeResult) string {
	t := res.Trade
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s %s %s\n\n", strings.ToUpper(string(t.Action)), t.Side, t.Symbol)
	fmt.Fprintf(&sb, "| Quantity | Price | Cash | Remaining | Average price |\n")
	fmt.Fprintf(&sb, "|---:|---:|---:|---:|---:|\n")
	fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s |\n\n",
		t.Quantity, utils.FormatMoney(t.Price), utils.FormatMoney(t.CashDelta),
		res.Fill.RemainingQuantity, utils.FormatMoney(res.Fill.AveragePrice))
	fmt.Fprintf(&sb, "Cash balance: **%s**\n", utils.FormatMoney(res.CashBalance))
	return sb.String()
}

func renderLiquidation(res ledger.LiquidationResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Liquidation of %s\n\n", res.UserID)
	if len(res.Trades) == 0 && len(res.Report.Failed) == 0 {
		sb.WriteString("No open positions.\n\n")
	}
	if len(res.Trades) > 0 {
		writeTradeTable(&sb, res.Trades)
		sb.WriteString("\n")
	}
	if len(res.Report.Failed) > 0 {
		sb.WriteString("## Left open\n\n")
		sb.WriteString("| Symbol | Side | Quantity | Reason |\n|---|---|---:|---|\n")
		for _, f := range res.Report.Failed {
			fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", f.Symbol, f.Side, f.Quantity, domain.CodeOf(f.Err))
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Proceeds: **%s**, cash balance: **%s**\n",
		utils.FormatMoney(res.Report.Proceeds), utils.FormatMoney(res.CashBalance))
	return sb.String()
}

func renderPortfolio(p ledger.Portfolio) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", accountTitle(p.UserID, p.DisplayName))
	if len(p.Positions) == 0 {
		sb.WriteString("No open positions.\n\n")
	} else {
		sb.WriteString("| Symbol | Side | Quantity | Avg price | Price | Worth | Profit | |\n")
		sb.WriteString("|---|---|---:|---:|---:|---:|---:|---:|\n")
		for _, pos := range p.Positions {
			price := utils.FormatMoney(pos.CurrentPrice)
			if pos.Stale {
				price += " *"
			}
			fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s | %s | %s | %s |\n",
				pos.Symbol, pos.Side, pos.Quantity,
				utils.FormatMoney(pos.AveragePrice), price,
				utils.FormatMoney(pos.CurrentWorth), utils.FormatMoney(pos.Profit),
				utils.FormatPercent(pos.ProfitPercent))
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "- Cash: %s\n", utils.FormatMoney(p.CashBalance))
	fmt.Fprintf(&sb, "- Total worth: **%s**\n", utils.FormatMoney(p.TotalWorth))
	fmt.Fprintf(&sb, "- Profit: %s (%s)\n", utils.FormatMoney(p.TotalProfit), utils.FormatPercent(p.TotalProfitPercent))
	return sb.String()
}

func writeTradeTable(sb *strings.Builder, trades []domain.Trade) {
	sb.WriteString("| Time | Action | Side | Symbol | Quantity | Price | Cash |\n")
	sb.WriteString("|---|---|---|---|---:|---:|---:|\n")
	for _, t := range trades {
		fmt.Fprintf(sb, "| %s | %s | %s | %s | %s | %s | %s |\n",
			t.ExecutedAt.UTC().Format(time.DateTime), t.Action, t.Side, t.Symbol,
			t.Quantity, utils.FormatMoney(t.Price), utils.FormatMoney(t.CashDelta))
	}
}

func renderTrades(userID string, trades []domain.Trade) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Trades of %s\n\n", userID)
	if len(trades) == 0 {
		sb.WriteString("No trades.\n")
		return sb.String()
	}
	writeTradeTable(&sb, trades)
	return sb.String()
}

func renderRanking(r ledger.Ranking) string {
	var sb strings.Builder
	sb.WriteString("# Leaderboard\n\n")
	if len(r.Entries) == 0 {
		sb.WriteString("No accounts.\n")
		return sb.String()
	}
	sb.WriteString("| # | Account | Net worth | Profit | |\n|---:|---|---:|---:|---:|\n")
	for _, e := range r.Entries {
		worth := utils.FormatMoney(e.NetWorth)
		if e.Stale {
			worth += " *"
		}
		fmt.Fprintf(&sb, "| %d | %s | %s | %s | %s |\n",
			e.Rank, accountTitle(e.UserID, e.DisplayName), worth,
			utils.FormatMoney(e.Profit), utils.FormatPercent(e.ProfitPercent))
	}
	fmt.Fprintf(&sb, "\n%d accounts, median net worth %s\n",
		r.Stats.Accounts, utils.FormatMoney(decimal.NewFromFloat(r.Stats.Median)))
	return sb.String()
}

func renderQuote(q market.Quote) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s %s\n\n", q.Symbol, utils.FormatMoney(q.Price))
	trend := utils.FormatMoney(q.Trend)
	if q.Trend.IsPositive() {
		trend = "+" + trend
	}
	fmt.Fprintf(&sb, "- Today: %s (%s)\n", trend, utils.FormatPercent(q.TrendPercent))
	fmt.Fprintf(&sb, "- Open %s, high %s, low %s\n",
		utils.FormatMoney(q.Open), utils.FormatMoney(q.High), utils.FormatMoney(q.Low))
	if q.SMA != nil {
		fmt.Fprintf(&sb, "- SMA(%d): %s\n", q.SMAPeriod, utils.FormatMoney(decimal.NewFromFloat(*q.SMA)))
	}
	return sb.String()
}

func renderDetails(d domain.TickerDetails) string {
	var sb strings.Builder
	title := d.Name
	if title == "" {
		title = d.Symbol
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)
	if d.LogoURL != "" {
		fmt.Fprintf(&sb, "![%s](%s)\n\n", d.Symbol, d.LogoURL)
	}

	orDash := func(s string) string {
		if s == "" {
			return "-"
		}
		return s
	}
	marketCap := "-"
	if d.MarketCap.IsPositive() {
		marketCap = utils.FormatMoney(d.MarketCap)
	}
	employees := "-"
	if d.Employees > 0 {
		employees = fmt.Sprintf("%d", d.Employees)
	}

	sb.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Symbol | %s |\n", d.Symbol)
	fmt.Fprintf(&sb, "| Market cap | %s |\n", marketCap)
	fmt.Fprintf(&sb, "| Employees | %s |\n", employees)
	fmt.Fprintf(&sb, "| Sector | %s |\n", orDash(d.Sector))
	fmt.Fprintf(&sb, "| Industry | %s |\n", orDash(d.Industry))
	fmt.Fprintf(&sb, "| Website | %s |\n", orDash(d.Website))
	return sb.String()
}

func renderBackupResult(res reliability.BackupResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Uploaded `%s` (%d bytes)", res.Key, res.SizeBytes)
	if res.Pruned > 0 {
		fmt.Fprintf(&sb, ", pruned %d old backup(s)", res.Pruned)
	}
	sb.WriteString("\n")
	return sb.String()
}

func renderBackups(backups []reliability.BackupInfo) string {
	var sb strings.Builder
	sb.WriteString("# Backups\n\n")
	if len(backups) == 0 {
		sb.WriteString("No backups.\n")
		return sb.String()
	}
	sb.WriteString("| Key | Taken | Size | Age (h) |\n|---|---|---:|---:|\n")
	for _, b := range backups {
		fmt.Fprintf(&sb, "| %s | %s | %d | %d |\n",
			b.Key, b.Timestamp.UTC().Format(time.DateTime), b.SizeBytes, b.AgeHours)
	}
	return sb.String()
}
