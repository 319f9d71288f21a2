package accounts

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultHistoryLimit caps History when no limit is given
const DefaultHistoryLimit = 50

// TradeRepository reads the trade journal. Rows are written by
// Repository.Save in the same transaction as the account.
type TradeRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewTradeRepository creates a new trade journal reader
func NewTradeRepository(db *sql.DB, log zerolog.Logger) *TradeRepository {
	return &TradeRepository{
		db:  db,
		log: log.With().Str("repo", "trades").Logger(),
	}
}

func insertTrades(ctx context.Context, tx *sql.Tx, trades []domain.Trade) error {
	for _, t := range trades {
		_, err := tx.ExecContext(ctx, `INSERT INTO trades
			(trade_id, user_id, symbol, side, action, quantity, price, cash_delta, executed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.UserID, t.Symbol, string(t.Side), string(t.Action),
			t.Quantity.String(), t.Price.String(), t.CashDelta.String(), t.ExecutedAt.UnixNano())
		if err != nil {
			return fmt.Errorf("failed to insert trade %s: %w", t.ID, err)
		}
	}
	return nil
}

// History returns the newest trades of userID first
func (r *TradeRepository) History(ctx context.Context, userID string, limit int) ([]domain.Trade, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx, `SELECT trade_id, user_id, symbol, side, action,
		quantity, price, cash_delta, executed_at
		FROM trades WHERE user_id = ? ORDER BY seq DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	trades := []domain.Trade{}
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}

	return trades, nil
}

// Count returns the number of journal rows for userID
func (r *TradeRepository) Count(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trades WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count trades: %w", err)
	}
	return n, nil
}

func scanTrade(rows *sql.Rows) (domain.Trade, error) {
	var (
		t                 domain.Trade
		side, action      string
		qty, price, delta string
		executedAt        int64
	)
	if err := rows.Scan(&t.ID, &t.UserID, &t.Symbol, &side, &action, &qty, &price, &delta, &executedAt); err != nil {
		return domain.Trade{}, err
	}
	t.Side = domain.Side(side)
	t.Action = domain.TradeAction(action)

	var err error
	if t.Quantity, err = decimal.NewFromString(qty); err != nil {
		return domain.Trade{}, fmt.Errorf("quantity: %w", err)
	}
	if t.Price, err = decimal.NewFromString(price); err != nil {
		return domain.Trade{}, fmt.Errorf("price: %w", err)
	}
	if t.CashDelta, err = decimal.NewFromString(delta); err != nil {
		return domain.Trade{}, fmt.Errorf("cash delta: %w", err)
	}
	t.ExecutedAt = time.Unix(0, executedAt).UTC()
	return t, nil
}
