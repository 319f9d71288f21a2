// Package market serves quotes, intraday trend figures and company reference
// data for single symbols.
package market

import (
	"context"
	"fmt"
	"math"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultSMAPeriod is the moving-average window over hourly closes
const DefaultSMAPeriod = 20

var hundred = decimal.NewFromInt(100)

// Quote is the current state of a symbol
type Quote struct {
	Symbol       string          `json:"symbol"`
	Price        decimal.Decimal `json:"price"`
	Open         decimal.Decimal `json:"open"`
	High         decimal.Decimal `json:"high"`
	Low          decimal.Decimal `json:"low"`
	Trend        decimal.Decimal `json:"trend"`
	TrendPercent decimal.Decimal `json:"trend_percent"`
	// SMA is nil when the aggregate series is shorter than SMAPeriod or
	// could not be fetched.
	SMA       *float64      `json:"sma,omitempty"`
	SMAPeriod int           `json:"sma_period"`
	Series    domain.Series `json:"series"`
}

// Service builds quotes from a price oracle and company profiles from a
// reference source
type Service struct {
	oracle    domain.PriceOracle
	reference domain.ReferenceSource
	smaPeriod int
	log       zerolog.Logger
}

// NewService creates a market service
func NewService(oracle domain.PriceOracle, reference domain.ReferenceSource, log zerolog.Logger) *Service {
	return &Service{
		oracle:    oracle,
		reference: reference,
		smaPeriod: DefaultSMAPeriod,
		log:       log.With().Str("service", "market").Logger(),
	}
}

// Quote returns the latest price, the day's open/high/low and the trend since
// the open. The aggregate series is best effort: a failure there only drops
// the SMA and candles.
func (s *Service) Quote(ctx context.Context, symbol string) (Quote, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return Quote{}, fmt.Errorf("empty symbol: %w", domain.ErrInvalidRequest)
	}

	price, err := s.oracle.LatestPrice(ctx, symbol)
	if err != nil {
		return Quote{}, err
	}
	if !price.IsPositive() {
		return Quote{}, fmt.Errorf("%s quoted at %s: %w", symbol, price, domain.ErrInvalidPrice)
	}

	stats, err := s.oracle.DailyStats(ctx, symbol)
	if err != nil {
		return Quote{}, err
	}

	q := Quote{
		Symbol:    symbol,
		Price:     price,
		Open:      stats.Open,
		High:      stats.High,
		Low:       stats.Low,
		Trend:     price.Sub(stats.Open),
		SMAPeriod: s.smaPeriod,
	}
	if stats.Open.IsPositive() {
		q.TrendPercent = q.Trend.Mul(hundred).DivRound(stats.Open, 8)
	}

	series, err := s.oracle.AggregateSeries(ctx, symbol)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Aggregate series unavailable")
		return q, nil
	}
	q.Series = series
	q.SMA = simpleMovingAverage(series.Closes, s.smaPeriod)
	return q, nil
}

// Lookup returns the company reference data behind symbol
func (s *Service) Lookup(ctx context.Context, symbol string) (domain.TickerDetails, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return domain.TickerDetails{}, fmt.Errorf("empty symbol: %w", domain.ErrInvalidRequest)
	}
	return s.reference.ReferenceData(ctx, symbol)
}

// simpleMovingAverage returns the latest SMA value, or nil with insufficient data
func simpleMovingAverage(closes []float64, period int) *float64 {
	if period <= 1 || len(closes) < period {
		return nil
	}

	sma := talib.Sma(closes, period)
	if len(sma) == 0 || math.IsNaN(sma[len(sma)-1]) {
		return nil
	}
	result := sma[len(sma)-1]
	return &result
}
