// Package accounts is the durable store for ledger accounts. Every account
// is loaded into memory at Open and written through on every mutation.
package accounts

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/papertrade/internal/database"
	"github.com/aristath/papertrade/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Repository holds every account in memory, backed by the ledger database.
// Readers always receive deep copies; the cached copy is replaced only once
// the corresponding write has committed.
type Repository struct {
	db             *sql.DB
	initialBalance decimal.Decimal
	now            func() time.Time
	log            zerolog.Logger

	mu       sync.RWMutex
	accounts map[string]domain.Account
	order    []string // user ids in registration order
	open     bool
}

// NewRepository creates an account repository. Call Open before use.
func NewRepository(db *sql.DB, initialBalance decimal.Decimal, log zerolog.Logger) *Repository {
	return &Repository{
		db:             db,
		initialBalance: initialBalance,
		now:            time.Now,
		log:            log.With().Str("repo", "accounts").Logger(),
		accounts:       make(map[string]domain.Account),
	}
}

// Open loads every account and its positions into memory
func (r *Repository) Open(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	accounts, order, err := r.loadAccounts(ctx)
	if err != nil {
		return err
	}
	if err := r.loadPositions(ctx, accounts); err != nil {
		return err
	}

	r.accounts = accounts
	r.order = order
	r.open = true

	r.log.Info().Int("accounts", len(order)).Msg("Account store opened")
	return nil
}

func (r *Repository) loadAccounts(ctx context.Context) (map[string]domain.Account, []string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id, display_name, cash_balance, created_at
		FROM accounts ORDER BY seq`)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	accounts := make(map[string]domain.Account)
	var order []string
	for rows.Next() {
		var (
			acct      domain.Account
			cash      string
			createdAt int64
		)
		if err := rows.Scan(&acct.ID, &acct.DisplayName, &cash, &createdAt); err != nil {
			return nil, nil, fmt.Errorf("failed to scan account: %w", err)
		}
		if acct.CashBalance, err = decimal.NewFromString(cash); err != nil {
			return nil, nil, fmt.Errorf("failed to parse cash balance of %s: %w", acct.ID, err)
		}
		acct.CreatedAt = time.Unix(0, createdAt).UTC()
		acct.Positions = []domain.Position{}
		accounts[acct.ID] = acct
		order = append(order, acct.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, order, nil
}

func (r *Repository) loadPositions(ctx context.Context, accounts map[string]domain.Account) error {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id, symbol, side, quantity, average_price, cost_basis, opened_at
		FROM positions ORDER BY user_id, ordinal`)
	if err != nil {
		return fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			userID, side, qty, avg, basis string
			pos                           domain.Position
			openedAt                      int64
		)
		if err := rows.Scan(&userID, &pos.Symbol, &side, &qty, &avg, &basis, &openedAt); err != nil {
			return fmt.Errorf("failed to scan position: %w", err)
		}
		pos.Side = domain.Side(side)
		if pos.Quantity, err = decimal.NewFromString(qty); err != nil {
			return fmt.Errorf("failed to parse quantity of %s/%s: %w", userID, pos.Symbol, err)
		}
		if pos.AveragePrice, err = decimal.NewFromString(avg); err != nil {
			return fmt.Errorf("failed to parse average price of %s/%s: %w", userID, pos.Symbol, err)
		}
		if pos.CostBasis, err = decimal.NewFromString(basis); err != nil {
			return fmt.Errorf("failed to parse cost basis of %s/%s: %w", userID, pos.Symbol, err)
		}
		pos.OpenedAt = time.Unix(0, openedAt).UTC()

		acct, ok := accounts[userID]
		if !ok {
			r.log.Warn().Str("user_id", userID).Str("symbol", pos.Symbol).Msg("Skipping position of unknown account")
			continue
		}
		acct.Positions = append(acct.Positions, pos)
		accounts[userID] = acct
	}

	return rows.Err()
}

// Close drops the in-memory state. The database handle belongs to the caller.
func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.accounts = make(map[string]domain.Account)
	r.order = nil
	r.open = false
	return nil
}

// Contains reports whether userID is registered
func (r *Repository) Contains(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.accounts[userID]
	return ok
}

// Len returns the number of registered accounts
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Create registers a new account with the initial balance.
// Fails with ErrAlreadyRegistered if userID exists.
func (r *Repository) Create(ctx context.Context, userID, displayName string) (domain.Account, error) {
	if userID == "" {
		return domain.Account{}, fmt.Errorf("empty user id: %w", domain.ErrInvalidRequest)
	}

	// Registration is rare; holding the write lock across the insert keeps
	// the existence check and the insert atomic.
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.open {
		return domain.Account{}, fmt.Errorf("account store is not open")
	}
	if _, ok := r.accounts[userID]; ok {
		return domain.Account{}, fmt.Errorf("register %s: %w", userID, domain.ErrAlreadyRegistered)
	}

	acct := domain.NewAccount(userID, displayName, r.initialBalance, r.now().UTC())
	ts := acct.CreatedAt.UnixNano()

	_, err := r.db.ExecContext(ctx, `INSERT INTO accounts (user_id, display_name, cash_balance, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		acct.ID, acct.DisplayName, acct.CashBalance.String(), ts, ts)
	if err != nil {
		return domain.Account{}, fmt.Errorf("failed to insert account %s: %w", userID, err)
	}

	r.accounts[userID] = acct
	r.order = append(r.order, userID)

	r.log.Info().Str("user_id", userID).Str("cash", acct.CashBalance.String()).Msg("Account created")
	return acct.Clone(), nil
}

// Get returns a deep copy of the account. Fails with ErrNotRegistered.
func (r *Repository) Get(userID string) (domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	acct, ok := r.accounts[userID]
	if !ok {
		return domain.Account{}, fmt.Errorf("account %s: %w", userID, domain.ErrNotRegistered)
	}
	return acct.Clone(), nil
}

// All returns deep copies of every account in registration order
func (r *Repository) All() []domain.Account {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Account, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.accounts[id].Clone())
	}
	return out
}

// Save durably writes the account row, replaces its positions and appends
// the journal rows in a single transaction. The in-memory copy is replaced
// only after the commit; on error both memory and disk keep the previous state.
func (r *Repository) Save(ctx context.Context, acct domain.Account, trades ...domain.Trade) error {
	if !r.Contains(acct.ID) {
		return fmt.Errorf("save %s: %w", acct.ID, domain.ErrNotRegistered)
	}

	err := database.WithTransactionContext(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE accounts SET display_name = ?, cash_balance = ?, updated_at = ?
			WHERE user_id = ?`,
			acct.DisplayName, acct.CashBalance.String(), r.now().UnixNano(), acct.ID)
		if err != nil {
			return fmt.Errorf("failed to update account: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("account row missing: %w", domain.ErrNotRegistered)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM positions WHERE user_id = ?`, acct.ID); err != nil {
			return fmt.Errorf("failed to clear positions: %w", err)
		}
		for i, pos := range acct.Positions {
			_, err := tx.ExecContext(ctx, `INSERT INTO positions
				(user_id, ordinal, symbol, side, quantity, average_price, cost_basis, opened_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				acct.ID, i, pos.Symbol, string(pos.Side), pos.Quantity.String(),
				pos.AveragePrice.String(), pos.CostBasis.String(), pos.OpenedAt.UnixNano())
			if err != nil {
				return fmt.Errorf("failed to insert position %s/%s: %w", pos.Symbol, pos.Side, err)
			}
		}

		return insertTrades(ctx, tx, trades)
	})
	if err != nil {
		return fmt.Errorf("failed to save account %s: %w", acct.ID, err)
	}

	r.mu.Lock()
	r.accounts[acct.ID] = acct.Clone()
	r.mu.Unlock()

	r.log.Debug().
		Str("user_id", acct.ID).
		Str("cash", acct.CashBalance.String()).
		Int("positions", len(acct.Positions)).
		Int("trades", len(trades)).
		Msg("Account saved")
	return nil
}
