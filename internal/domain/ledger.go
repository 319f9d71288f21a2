package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultInitialBalance is the cash every account starts with
var DefaultInitialBalance = decimal.NewFromInt(10000)

// Side is the direction of a position
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// ParseSide converts a boundary string into a Side.
// Unrecognized values fail with ErrInvalidRequest.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case SideLong:
		return SideLong, nil
	case SideShort:
		return SideShort, nil
	}
	return "", fmt.Errorf("unknown side %q: %w", s, ErrInvalidRequest)
}

// Valid reports whether s is one of the known sides
func (s Side) Valid() bool {
	return s == SideLong || s == SideShort
}

// NormalizeUserID trims surrounding whitespace from a user id
func NormalizeUserID(userID string) string {
	return strings.TrimSpace(userID)
}

// NormalizeSymbol upper-cases and trims a ticker
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Position is an open lot for one (symbol, side) pair
type Position struct {
	Symbol       string          `json:"symbol"`
	Side         Side            `json:"side"`
	Quantity     decimal.Decimal `json:"quantity"`
	AveragePrice decimal.Decimal `json:"average_price"`
	// CostBasis is Quantity*AveragePrice kept exact across entries, so the
	// average does not depend on the order entries were made in.
	CostBasis decimal.Decimal `json:"cost_basis"`
	OpenedAt  time.Time       `json:"opened_at"`
}

// Account is one user's cash balance and open positions.
// Positions are kept in the order they were opened.
type Account struct {
	ID          string          `json:"id"`
	DisplayName string          `json:"display_name"`
	CashBalance decimal.Decimal `json:"cash_balance"`
	Positions   []Position      `json:"positions"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewAccount returns a freshly registered account
func NewAccount(id, displayName string, initialBalance decimal.Decimal, now time.Time) Account {
	return Account{
		ID:          id,
		DisplayName: displayName,
		CashBalance: initialBalance,
		Positions:   []Position{},
		CreatedAt:   now,
	}
}

// Clone returns a deep copy, so the engine can mutate it freely and the
// store can publish it only once it is durable.
func (a Account) Clone() Account {
	c := a
	c.Positions = make([]Position, len(a.Positions))
	copy(c.Positions, a.Positions)
	return c
}

// FindPosition returns the index of the (symbol, side) position or -1
func (a *Account) FindPosition(symbol string, side Side) int {
	for i := range a.Positions {
		if a.Positions[i].Symbol == symbol && a.Positions[i].Side == side {
			return i
		}
	}
	return -1
}

// PositionsFor returns every open position on symbol
func (a *Account) PositionsFor(symbol string) []Position {
	var out []Position
	for _, p := range a.Positions {
		if p.Symbol == symbol {
			out = append(out, p)
		}
	}
	return out
}

// Symbols returns the distinct symbols held, in opening order
func (a *Account) Symbols() []string {
	seen := make(map[string]bool, len(a.Positions))
	var out []string
	for _, p := range a.Positions {
		if !seen[p.Symbol] {
			seen[p.Symbol] = true
			out = append(out, p.Symbol)
		}
	}
	return out
}

// TradeAction tells whether a fill opened/increased or reduced/closed a position
type TradeAction string

const (
	TradeActionEnter TradeAction = "enter"
	TradeActionExit  TradeAction = "exit"
)

// Trade is one journal row: a single fill against an account
type Trade struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	Symbol     string          `json:"symbol"`
	Side       Side            `json:"side"`
	Action     TradeAction     `json:"action"`
	Quantity   decimal.Decimal `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	CashDelta  decimal.Decimal `json:"cash_delta"`
	ExecutedAt time.Time       `json:"executed_at"`
}
