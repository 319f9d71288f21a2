// Package positions implements the accounting rules for entering, exiting
// and liquidating positions on a single account. It performs no I/O: prices
// are handed in by the caller and the account is mutated in place.
package positions

import (
	"fmt"
	"time"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultQuantityScale allows fractional shares down to 1e-8
const DefaultQuantityScale int32 = 8

// PriceScale is the number of decimal places kept when dividing prices
const PriceScale int32 = 16

var two = decimal.NewFromInt(2)

// Fill describes a single executed entry or exit
type Fill struct {
	Symbol            string             `json:"symbol"`
	Side              domain.Side        `json:"side"`
	Action            domain.TradeAction `json:"action"`
	Quantity          decimal.Decimal    `json:"quantity"`
	Price             decimal.Decimal    `json:"price"`
	CashDelta         decimal.Decimal    `json:"cash_delta"`
	RemainingQuantity decimal.Decimal    `json:"remaining_quantity"`
	AveragePrice      decimal.Decimal    `json:"average_price"`
}

// Engine applies position accounting to accounts
type Engine struct {
	quantityScale int32
	now           func() time.Time
}

// NewEngine creates an engine. quantityScale is the number of decimal places
// a share quantity may carry; 0 restricts trading to whole shares.
func NewEngine(quantityScale int32) *Engine {
	if quantityScale < 0 {
		quantityScale = 0
	}
	return &Engine{
		quantityScale: quantityScale,
		now:           time.Now,
	}
}

// QuantityScale returns the configured share precision
func (e *Engine) QuantityScale() int32 {
	return e.quantityScale
}

// EnterPosition opens or increases the (symbol, side) position.
// On any error the account is left untouched.
func (e *Engine) EnterPosition(acct *domain.Account, side domain.Side, symbol string, price decimal.Decimal, amount domain.AmountSpec) (Fill, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if err := e.validate(side, symbol, price, amount); err != nil {
		return Fill{}, err
	}

	var qty decimal.Decimal
	switch amount.Kind {
	case domain.AmountAll:
		if !acct.CashBalance.IsPositive() {
			return Fill{}, fmt.Errorf("buy all %s with balance %s: %w", symbol, acct.CashBalance, domain.ErrInsufficientFunds)
		}
		qty = e.sharesFor(acct.CashBalance, price)
		if !qty.IsPositive() {
			return Fill{}, fmt.Errorf("balance %s buys no shares of %s at %s: %w", acct.CashBalance, symbol, price, domain.ErrInsufficientFunds)
		}
	case domain.AmountNotional:
		qty = e.sharesFor(amount.Value, price)
	case domain.AmountShares:
		var err error
		if qty, err = e.explicitShares(amount.Value); err != nil {
			return Fill{}, err
		}
	}
	if !qty.IsPositive() {
		return Fill{}, fmt.Errorf("amount %s buys no shares of %s at %s: %w", amount, symbol, price, domain.ErrInvalidRequest)
	}

	cost := qty.Mul(price)
	if cost.GreaterThan(acct.CashBalance) {
		return Fill{}, fmt.Errorf("cost %s exceeds balance %s: %w", cost, acct.CashBalance, domain.ErrInsufficientFunds)
	}

	idx := acct.FindPosition(symbol, side)
	if idx < 0 {
		acct.Positions = append(acct.Positions, domain.Position{
			Symbol:       symbol,
			Side:         side,
			Quantity:     decimal.Zero,
			AveragePrice: decimal.Zero,
			CostBasis:    decimal.Zero,
			OpenedAt:     e.now().UTC(),
		})
		idx = len(acct.Positions) - 1
	}

	pos := &acct.Positions[idx]
	pos.CostBasis = pos.CostBasis.Add(cost)
	pos.Quantity = pos.Quantity.Add(qty)
	pos.AveragePrice = pos.CostBasis.DivRound(pos.Quantity, PriceScale)
	acct.CashBalance = acct.CashBalance.Sub(cost)

	return Fill{
		Symbol:            symbol,
		Side:              side,
		Action:            domain.TradeActionEnter,
		Quantity:          qty,
		Price:             price,
		CashDelta:         cost.Neg(),
		RemainingQuantity: pos.Quantity,
		AveragePrice:      pos.AveragePrice,
	}, nil
}

// ExitPosition reduces or closes the (symbol, side) position.
// On any error the account is left untouched.
func (e *Engine) ExitPosition(acct *domain.Account, side domain.Side, symbol string, price decimal.Decimal, amount domain.AmountSpec) (Fill, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if err := e.validate(side, symbol, price, amount); err != nil {
		return Fill{}, err
	}

	idx := acct.FindPosition(symbol, side)
	if idx < 0 {
		return Fill{}, fmt.Errorf("%s %s: %w", side, symbol, domain.ErrNoSuchPosition)
	}
	pos := acct.Positions[idx]

	var qty decimal.Decimal
	switch amount.Kind {
	case domain.AmountAll:
		qty = pos.Quantity
	case domain.AmountNotional:
		qty = e.sharesFor(amount.Value, price)
	case domain.AmountShares:
		var err error
		if qty, err = e.explicitShares(amount.Value); err != nil {
			return Fill{}, err
		}
	}
	if !qty.IsPositive() {
		return Fill{}, fmt.Errorf("amount %s sells no shares of %s at %s: %w", amount, symbol, price, domain.ErrInvalidRequest)
	}
	if qty.GreaterThan(pos.Quantity) {
		return Fill{}, fmt.Errorf("exit %s of %s %s holding %s: %w", qty, side, symbol, pos.Quantity, domain.ErrOversold)
	}

	proceeds := ExitProceeds(side, qty, pos.AveragePrice, price)
	remaining := pos.Quantity.Sub(qty)

	if remaining.IsZero() {
		acct.Positions = append(acct.Positions[:idx:idx], acct.Positions[idx+1:]...)
	} else {
		p := &acct.Positions[idx]
		p.Quantity = remaining
		p.CostBasis = p.AveragePrice.Mul(remaining)
	}
	acct.CashBalance = acct.CashBalance.Add(proceeds)

	return Fill{
		Symbol:            symbol,
		Side:              side,
		Action:            domain.TradeActionExit,
		Quantity:          qty,
		Price:             price,
		CashDelta:         proceeds,
		RemainingQuantity: remaining,
		AveragePrice:      pos.AveragePrice,
	}, nil
}

// ExitProceeds is the cash credited when qty is closed at price.
// A long is sold at market; a short settles its committed notional plus the
// mark-to-market gain (avg - price) per share, i.e. qty*(2*avg - price).
func ExitProceeds(side domain.Side, qty, averagePrice, price decimal.Decimal) decimal.Decimal {
	if side == domain.SideShort {
		return qty.Mul(two.Mul(averagePrice).Sub(price))
	}
	return qty.Mul(price)
}

func (e *Engine) validate(side domain.Side, symbol string, price decimal.Decimal, amount domain.AmountSpec) error {
	if !side.Valid() {
		return fmt.Errorf("unknown side %q: %w", side, domain.ErrInvalidRequest)
	}
	if symbol == "" {
		return fmt.Errorf("empty symbol: %w", domain.ErrInvalidRequest)
	}
	if !price.IsPositive() {
		return fmt.Errorf("price %s for %s: %w", price, symbol, domain.ErrInvalidPrice)
	}
	return amount.Validate()
}

// sharesFor converts cash into shares at price, truncated to the quantity
// scale so the fill never costs more than the cash given.
func (e *Engine) sharesFor(cash, price decimal.Decimal) decimal.Decimal {
	q, _ := cash.QuoRem(price, e.quantityScale)
	return q
}

func (e *Engine) explicitShares(n decimal.Decimal) (decimal.Decimal, error) {
	if !n.Equal(n.Truncate(e.quantityScale)) {
		return decimal.Zero, fmt.Errorf("quantity %s has more than %d decimal places: %w", n, e.quantityScale, domain.ErrInvalidRequest)
	}
	return n, nil
}
