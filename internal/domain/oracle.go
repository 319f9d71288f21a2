package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// DailyStats holds the session open, high and low for a symbol
type DailyStats struct {
	Open decimal.Decimal `json:"open"`
	High decimal.Decimal `json:"high"`
	Low  decimal.Decimal `json:"low"`
}

// Series is an OHLC aggregate series, oldest first
type Series struct {
	Opens  []float64 `json:"opens"`
	Highs  []float64 `json:"highs"`
	Lows   []float64 `json:"lows"`
	Closes []float64 `json:"closes"`
}

// PriceOracle supplies market prices. LatestPrice fails with
// ErrSymbolNotFound for unknown symbols.
type PriceOracle interface {
	LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	DailyStats(ctx context.Context, symbol string) (DailyStats, error)
	AggregateSeries(ctx context.Context, symbol string) (Series, error)
}

// PriceFunc resolves a current price for a symbol
type PriceFunc func(symbol string) (decimal.Decimal, error)

// TickerDetails is the company reference data behind a symbol. Fields the
// upstream does not know are left zero.
type TickerDetails struct {
	Symbol      string          `json:"symbol"`
	Name        string          `json:"name"`
	MarketCap   decimal.Decimal `json:"market_cap"`
	Employees   int64           `json:"employees"`
	Sector      string          `json:"sector"`
	Industry    string          `json:"industry"`
	Website     string          `json:"website"`
	LogoURL     string          `json:"logo_url"`
	Description string          `json:"description"`
}

// ReferenceSource supplies company reference data. ReferenceData fails with
// ErrSymbolNotFound for unknown symbols.
type ReferenceSource interface {
	ReferenceData(ctx context.Context, symbol string) (TickerDetails, error)
}
