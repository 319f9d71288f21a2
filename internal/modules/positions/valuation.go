package positions

import (
	"fmt"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// percentScale is the precision of profit percentages
const percentScale int32 = 8

// PositionValuation is the mark-to-market view of one position
type PositionValuation struct {
	Symbol        string          `json:"symbol"`
	Side          domain.Side     `json:"side"`
	Quantity      decimal.Decimal `json:"quantity"`
	AveragePrice  decimal.Decimal `json:"average_price"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	MarketValue   decimal.Decimal `json:"market_value"`
	CurrentWorth  decimal.Decimal `json:"current_worth"`
	Profit        decimal.Decimal `json:"profit"`
	ProfitPercent decimal.Decimal `json:"profit_percent"`
	// Stale is set when no current price was available and the position
	// was valued at its average price instead.
	Stale bool `json:"stale,omitempty"`
}

// Valuation is the mark-to-market view of an account
type Valuation struct {
	CashBalance        decimal.Decimal     `json:"cash_balance"`
	TotalWorth         decimal.Decimal     `json:"total_worth"`
	TotalProfit        decimal.Decimal     `json:"total_profit"`
	TotalProfitPercent decimal.Decimal     `json:"total_profit_percent"`
	Positions          []PositionValuation `json:"positions"`
}

// Valuate marks every position to market. It fails with ErrPriceUnavailable
// if any position cannot be priced. initialBalance is the reference for the
// total profit figures.
func (e *Engine) Valuate(acct domain.Account, priceFn domain.PriceFunc, initialBalance decimal.Decimal) (Valuation, error) {
	return e.valuate(acct, priceFn, initialBalance, false)
}

// ValuateLenient is Valuate, except unpriceable positions are valued at their
// average price and flagged Stale instead of failing the whole valuation.
func (e *Engine) ValuateLenient(acct domain.Account, priceFn domain.PriceFunc, initialBalance decimal.Decimal) Valuation {
	v, _ := e.valuate(acct, priceFn, initialBalance, true)
	return v
}

func (e *Engine) valuate(acct domain.Account, priceFn domain.PriceFunc, initialBalance decimal.Decimal, lenient bool) (Valuation, error) {
	v := Valuation{
		CashBalance: acct.CashBalance,
		TotalWorth:  acct.CashBalance,
		Positions:   make([]PositionValuation, 0, len(acct.Positions)),
	}

	for _, pos := range acct.Positions {
		price, err := priceFn(pos.Symbol)
		if err == nil && !price.IsPositive() {
			err = fmt.Errorf("price %s: %w", price, domain.ErrInvalidPrice)
		}
		stale := false
		if err != nil {
			if !lenient {
				return Valuation{}, fmt.Errorf("valuate %s: %w: %w", pos.Symbol, domain.ErrPriceUnavailable, err)
			}
			price = pos.AveragePrice
			stale = true
		}

		pv := valuePosition(pos, price)
		pv.Stale = stale
		v.Positions = append(v.Positions, pv)
		v.TotalWorth = v.TotalWorth.Add(pv.CurrentWorth)
	}

	v.TotalProfit = v.TotalWorth.Sub(initialBalance)
	if initialBalance.IsPositive() {
		v.TotalProfitPercent = v.TotalProfit.Mul(hundred).DivRound(initialBalance, percentScale)
	}
	return v, nil
}

func valuePosition(pos domain.Position, price decimal.Decimal) PositionValuation {
	diff := price.Sub(pos.AveragePrice)
	if pos.Side == domain.SideShort {
		diff = diff.Neg()
	}

	pv := PositionValuation{
		Symbol:       pos.Symbol,
		Side:         pos.Side,
		Quantity:     pos.Quantity,
		AveragePrice: pos.AveragePrice,
		CurrentPrice: price,
		MarketValue:  pos.Quantity.Mul(price),
		CurrentWorth: ExitProceeds(pos.Side, pos.Quantity, pos.AveragePrice, price),
		Profit:       diff.Mul(pos.Quantity),
	}
	if pos.AveragePrice.IsPositive() {
		pv.ProfitPercent = diff.Mul(hundred).DivRound(pos.AveragePrice, percentScale)
	}
	return pv
}
