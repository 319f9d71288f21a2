package ledger

import (
	"context"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/events"
	"github.com/aristath/papertrade/internal/modules/positions"
	"github.com/shopspring/decimal"
)

// AccountStore is the durable account storage used by the service
type AccountStore interface {
	Contains(userID string) bool
	Create(ctx context.Context, userID, displayName string) (domain.Account, error)
	Get(userID string) (domain.Account, error)
	All() []domain.Account
	Save(ctx context.Context, acct domain.Account, trades ...domain.Trade) error
}

// TradeJournal reads recorded fills
type TradeJournal interface {
	History(ctx context.Context, userID string, limit int) ([]domain.Trade, error)
}

// EventEmitter publishes ledger events
type EventEmitter interface {
	EmitTyped(module string, data events.EventData)
}

// BuyRequest opens or increases a position
type BuyRequest struct {
	UserID string
	Side   domain.Side
	Symbol string
	Amount domain.AmountSpec
}

// SellRequest reduces or closes a position. Side may be left empty when
// only one side is open on the symbol.
type SellRequest struct {
	UserID string
	Side   domain.Side
	Symbol string
	Amount domain.AmountSpec
}

// TradeResult is the outcome of a buy or sell
type TradeResult struct {
	Trade       domain.Trade    `json:"trade"`
	Fill        positions.Fill  `json:"fill"`
	CashBalance decimal.Decimal `json:"cash_balance"`
}

// LiquidationResult is the outcome of LiquidateAll
type LiquidationResult struct {
	UserID      string                      `json:"user_id"`
	Report      positions.LiquidationReport `json:"report"`
	Trades      []domain.Trade              `json:"trades"`
	CashBalance decimal.Decimal             `json:"cash_balance"`
}

// Portfolio is the mark-to-market view of one account
type Portfolio struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	positions.Valuation
}

// Balance is the cash view of one account
type Balance struct {
	UserID      string          `json:"user_id"`
	DisplayName string          `json:"display_name"`
	CashBalance decimal.Decimal `json:"cash_balance"`
}

// RankingEntry is one row of the leaderboard
type RankingEntry struct {
	Rank          int             `json:"rank"`
	UserID        string          `json:"user_id"`
	DisplayName   string          `json:"display_name"`
	NetWorth      decimal.Decimal `json:"net_worth"`
	Profit        decimal.Decimal `json:"profit"`
	ProfitPercent decimal.Decimal `json:"profit_percent"`
	// Stale is set when at least one position was valued at its average
	// price because no current price was available.
	Stale bool `json:"stale,omitempty"`
}

// RankingStats summarizes net worth across all accounts
type RankingStats struct {
	Accounts int     `json:"accounts"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std_dev"`
	Median   float64 `json:"median"`
}

// Ranking is the leaderboard
type Ranking struct {
	Entries []RankingEntry `json:"entries"`
	Stats   RankingStats   `json:"stats"`
}
