package testing

import (
	"context"
	"fmt"
	"sync"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/events"
	"github.com/shopspring/decimal"
)

// MockPriceOracle is an in-memory PriceOracle for tests
type MockPriceOracle struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
	stats  map[string]domain.DailyStats
	series map[string]domain.Series
	info   map[string]domain.TickerDetails
	errs   map[string]error
	calls  map[string]int
}

// NewMockPriceOracle creates an oracle that knows no symbols
func NewMockPriceOracle() *MockPriceOracle {
	return &MockPriceOracle{
		prices: make(map[string]decimal.Decimal),
		stats:  make(map[string]domain.DailyStats),
		series: make(map[string]domain.Series),
		info:   make(map[string]domain.TickerDetails),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

// SetPrice sets the latest price of symbol, clearing any error
func (m *MockPriceOracle) SetPrice(symbol string, price string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[symbol] = decimal.RequireFromString(price)
	delete(m.errs, symbol)
}

// SetError makes every lookup of symbol fail with err
func (m *MockPriceOracle) SetError(symbol string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[symbol] = err
}

// SetDailyStats sets the day's open/high/low of symbol
func (m *MockPriceOracle) SetDailyStats(symbol string, stats domain.DailyStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats[symbol] = stats
}

// SetSeries sets the aggregate series of symbol
func (m *MockPriceOracle) SetSeries(symbol string, series domain.Series) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.series[symbol] = series
}

// SetDetails sets the company reference data of symbol
func (m *MockPriceOracle) SetDetails(symbol string, details domain.TickerDetails) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.info[symbol] = details
}

// Calls returns how many LatestPrice lookups hit symbol
func (m *MockPriceOracle) Calls(symbol string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[symbol]
}

// LatestPrice implements domain.PriceOracle
func (m *MockPriceOracle) LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[symbol]++
	if err, ok := m.errs[symbol]; ok {
		return decimal.Zero, err
	}
	p, ok := m.prices[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("%s: %w", symbol, domain.ErrSymbolNotFound)
	}
	return p, nil
}

// DailyStats implements domain.PriceOracle
func (m *MockPriceOracle) DailyStats(ctx context.Context, symbol string) (domain.DailyStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err, ok := m.errs[symbol]; ok {
		return domain.DailyStats{}, err
	}
	s, ok := m.stats[symbol]
	if !ok {
		return domain.DailyStats{}, fmt.Errorf("%s: %w", symbol, domain.ErrSymbolNotFound)
	}
	return s, nil
}

// AggregateSeries implements domain.PriceOracle
func (m *MockPriceOracle) AggregateSeries(ctx context.Context, symbol string) (domain.Series, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err, ok := m.errs[symbol]; ok {
		return domain.Series{}, err
	}
	s, ok := m.series[symbol]
	if !ok {
		return domain.Series{}, fmt.Errorf("%s: %w", symbol, domain.ErrSymbolNotFound)
	}
	return s, nil
}

// ReferenceData implements domain.ReferenceSource
func (m *MockPriceOracle) ReferenceData(ctx context.Context, symbol string) (domain.TickerDetails, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err, ok := m.errs[symbol]; ok {
		return domain.TickerDetails{}, err
	}
	d, ok := m.info[symbol]
	if !ok {
		return domain.TickerDetails{}, fmt.Errorf("%s: %w", symbol, domain.ErrSymbolNotFound)
	}
	return d, nil
}

// RecordingEmitter captures emitted events
type RecordingEmitter struct {
	mu     sync.Mutex
	events []events.EventData
}

// EmitTyped records data
func (r *RecordingEmitter) EmitTyped(module string, data events.EventData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, data)
}

// Events returns a copy of everything emitted so far
func (r *RecordingEmitter) Events() []events.EventData {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventData, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns the emitted events of type t
func (r *RecordingEmitter) OfType(t events.EventType) []events.EventData {
	var out []events.EventData
	for _, e := range r.Events() {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}
