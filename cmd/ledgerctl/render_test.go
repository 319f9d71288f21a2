package main

import (
	"fmt"
	"testing"
	"time"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/modules/ledger"
	"github.com/aristath/papertrade/internal/modules/market"
	"github.com/aristath/papertrade/internal/modules/positions"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAccountTitle(t *testing.T) {
	assert.Equal(t, "u1", accountTitle("u1", ""))
	assert.Equal(t, "u1", accountTitle("u1", "u1"))
	assert.Equal(t, "Alice (u1)", accountTitle("u1", "Alice"))
}

func TestRenderPortfolio(t *testing.T) {
	p := ledger.Portfolio{
		UserID:      "u1",
		DisplayName: "Alice",
		Valuation: positions.Valuation{
			CashBalance:        d("9000"),
			TotalWorth:         d("10200"),
			TotalProfit:        d("200"),
			TotalProfitPercent: d("2"),
			Positions: []positions.PositionValuation{{
				Symbol:        "ABC",
				Side:          domain.SideLong,
				Quantity:      d("10"),
				AveragePrice:  d("100"),
				CurrentPrice:  d("120"),
				CurrentWorth:  d("1200"),
				Profit:        d("200"),
				ProfitPercent: d("20"),
			}},
		},
	}

	md := renderPortfolio(p)
	assert.Contains(t, md, "# Alice (u1)")
	assert.Contains(t, md, "| ABC | long | 10 | $100.00 | $120.00 | $1,200.00 | $200.00 | +20.00% |")
	assert.Contains(t, md, "- Total worth: **$10,200.00**")
	assert.Contains(t, md, "- Profit: $200.00 (+2.00%)")
}

func TestRenderPortfolio_StaleAndEmpty(t *testing.T) {
	p := ledger.Portfolio{UserID: "u1", Valuation: positions.Valuation{
		Positions: []positions.PositionValuation{{Symbol: "ABC", Side: domain.SideShort, CurrentPrice: d("50"), Stale: true}},
	}}
	assert.Contains(t, renderPortfolio(p), "$50.00 *")

	assert.Contains(t, renderPortfolio(ledger.Portfolio{UserID: "u2"}), "No open positions.")
}

func TestRenderLiquidation(t *testing.T) {
	res := ledger.LiquidationResult{
		UserID: "u1",
		Report: positions.LiquidationReport{
			Failed: []positions.LiquidationFailure{{
				Symbol:   "DEF",
				Side:     domain.SideLong,
				Quantity: d("3"),
				Err:      fmt.Errorf("liquidate: %w", domain.ErrPriceUnavailable),
			}},
			Proceeds: d("1100"),
		},
		Trades: []domain.Trade{{
			Symbol:     "ABC",
			Side:       domain.SideLong,
			Action:     domain.TradeActionExit,
			Quantity:   d("10"),
			Price:      d("110"),
			CashDelta:  d("1100"),
			ExecutedAt: time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC),
		}},
		CashBalance: d("10000"),
	}

	md := renderLiquidation(res)
	assert.Contains(t, md, "| 2024-03-15 14:30:00 | exit | long | ABC | 10 | $110.00 | $1,100.00 |")
	assert.Contains(t, md, "| DEF | long | 3 | PRICE_UNAVAILABLE |")
	assert.Contains(t, md, "Proceeds: **$1,100.00**, cash balance: **$10,000.00**")
	assert.NotContains(t, md, "No open positions.")
}

func TestRenderRanking(t *testing.T) {
	r := ledger.Ranking{
		Entries: []ledger.RankingEntry{
			{Rank: 1, UserID: "b", NetWorth: d("10500"), Profit: d("500"), ProfitPercent: d("5")},
			{Rank: 2, UserID: "a", DisplayName: "Ann", NetWorth: d("8000"), Profit: d("-2000"), ProfitPercent: d("-20"), Stale: true},
		},
		Stats: ledger.RankingStats{Accounts: 2, Median: 9250},
	}

	md := renderRanking(r)
	assert.Contains(t, md, "| 1 | b | $10,500.00 | $500.00 | +5.00% |")
	assert.Contains(t, md, "| 2 | Ann (a) | $8,000.00 * | -$2,000.00 | -20.00% |")
	assert.Contains(t, md, "2 accounts, median net worth $9,250.00")

	assert.Contains(t, renderRanking(ledger.Ranking{}), "No accounts.")
}

func TestRenderQuote(t *testing.T) {
	sma := 101.25
	q := market.Quote{
		Symbol:       "ABC",
		Price:        d("105.5"),
		Open:         d("100"),
		High:         d("106"),
		Low:          d("99"),
		Trend:        d("5.5"),
		TrendPercent: d("5.5"),
		SMA:          &sma,
		SMAPeriod:    20,
	}

	md := renderQuote(q)
	assert.Contains(t, md, "# ABC $105.50")
	assert.Contains(t, md, "- Today: +$5.50 (+5.50%)")
	assert.Contains(t, md, "- SMA(20): $101.25")

	q.SMA = nil
	assert.NotContains(t, renderQuote(q), "SMA")
}

func TestRenderTrades_Empty(t *testing.T) {
	assert.Contains(t, renderTrades("u1", nil), "No trades.")
}

func TestRenderDetails(t *testing.T) {
	md := renderDetails(domain.TickerDetails{
		Symbol:    "AAPL",
		Name:      "Apple Inc.",
		MarketCap: d("2954333333333.5"),
		Employees: 161000,
		Sector:    "Manufacturing",
		Industry:  "ELECTRONIC COMPUTERS",
		Website:   "https://www.apple.com",
		LogoURL:   "https://example.com/apple.svg",
	})
	assert.Contains(t, md, "# Apple Inc.")
	assert.Contains(t, md, "![AAPL](https://example.com/apple.svg)")
	assert.Contains(t, md, "| Market cap | $2,954,333,333,333.50 |")
	assert.Contains(t, md, "| Employees | 161000 |")
	assert.Contains(t, md, "| Sector | Manufacturing |")

	sparse := renderDetails(domain.TickerDetails{Symbol: "SPY"})
	assert.Contains(t, sparse, "# SPY")
	assert.Contains(t, sparse, "| Market cap | - |")
	assert.Contains(t, sparse, "| Website | - |")
	assert.NotContains(t, sparse, "![")
}
