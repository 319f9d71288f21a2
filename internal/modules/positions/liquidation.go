package positions

import (
	"fmt"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/shopspring/decimal"
)

// LiquidationFailure is a position that could not be closed
type LiquidationFailure struct {
	Symbol   string          `json:"symbol"`
	Side     domain.Side     `json:"side"`
	Quantity decimal.Decimal `json:"quantity"`
	Err      error           `json:"-"`
}

// LiquidationReport lists the closed positions and the ones left open
type LiquidationReport struct {
	Closed   []Fill               `json:"closed"`
	Failed   []LiquidationFailure `json:"failed"`
	Proceeds decimal.Decimal      `json:"proceeds"`
}

// Complete reports whether every position was closed
func (r LiquidationReport) Complete() bool {
	return len(r.Failed) == 0
}

// LiquidateAll fully exits every open position in opening order. A position
// whose price cannot be resolved is recorded as failed with
// ErrPriceUnavailable and left open; the remaining positions are still closed.
func (e *Engine) LiquidateAll(acct *domain.Account, priceFn domain.PriceFunc) LiquidationReport {
	report := LiquidationReport{Proceeds: decimal.Zero}

	// Snapshot the keys first: exits remove entries from acct.Positions
	open := make([]domain.Position, len(acct.Positions))
	copy(open, acct.Positions)

	for _, pos := range open {
		price, err := priceFn(pos.Symbol)
		if err == nil && !price.IsPositive() {
			err = fmt.Errorf("price %s: %w", price, domain.ErrInvalidPrice)
		}
		if err != nil {
			report.Failed = append(report.Failed, LiquidationFailure{
				Symbol:   pos.Symbol,
				Side:     pos.Side,
				Quantity: pos.Quantity,
				Err:      fmt.Errorf("liquidate %s %s: %w: %w", pos.Side, pos.Symbol, domain.ErrPriceUnavailable, err),
			})
			continue
		}

		fill, err := e.ExitPosition(acct, pos.Side, pos.Symbol, price, domain.All())
		if err != nil {
			report.Failed = append(report.Failed, LiquidationFailure{
				Symbol:   pos.Symbol,
				Side:     pos.Side,
				Quantity: pos.Quantity,
				Err:      err,
			})
			continue
		}
		report.Closed = append(report.Closed, fill)
		report.Proceeds = report.Proceeds.Add(fill.CashDelta)
	}

	return report
}
