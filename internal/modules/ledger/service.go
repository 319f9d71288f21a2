// Package ledger is the paper-trading facade: it turns user intents into
// position engine calls, persists the outcome and ranks accounts.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/events"
	"github.com/aristath/papertrade/internal/modules/positions"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const eventModule = "ledger"

// Service executes ledger operations. Operations on the same user are
// serialized; different users proceed in parallel.
type Service struct {
	store          AccountStore
	trades         TradeJournal
	oracle         domain.PriceOracle
	engine         *positions.Engine
	events         EventEmitter
	initialBalance decimal.Decimal
	locks          *userLocks
	newID          func() string
	now            func() time.Time
	log            zerolog.Logger
}

// NewService creates a ledger service. emitter may be nil.
func NewService(
	store AccountStore,
	trades TradeJournal,
	oracle domain.PriceOracle,
	engine *positions.Engine,
	emitter EventEmitter,
	initialBalance decimal.Decimal,
	log zerolog.Logger,
) *Service {
	return &Service{
		store:          store,
		trades:         trades,
		oracle:         oracle,
		engine:         engine,
		events:         emitter,
		initialBalance: initialBalance,
		locks:          newUserLocks(),
		newID:          uuid.NewString,
		now:            time.Now,
		log:            log.With().Str("service", "ledger").Logger(),
	}
}

// Register creates an account with the initial balance.
// A second registration of the same user fails with ErrAlreadyRegistered.
func (s *Service) Register(ctx context.Context, userID, displayName string) (domain.Account, error) {
	userID = domain.NormalizeUserID(userID)
	if userID == "" {
		return domain.Account{}, fmt.Errorf("empty user id: %w", domain.ErrInvalidRequest)
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = userID
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	acct, err := s.store.Create(ctx, userID, displayName)
	if err != nil {
		return domain.Account{}, err
	}

	s.log.Info().Str("user_id", userID).Msg("Account registered")
	s.emit(&events.AccountRegisteredData{
		UserID:         acct.ID,
		DisplayName:    acct.DisplayName,
		InitialBalance: acct.CashBalance.String(),
	})
	return acct, nil
}

// Buy enters a long or short position at the current price
func (s *Service) Buy(ctx context.Context, req BuyRequest) (TradeResult, error) {
	req.UserID = domain.NormalizeUserID(req.UserID)
	symbol := domain.NormalizeSymbol(req.Symbol)
	if err := s.validateIntent(req.UserID, symbol, req.Amount); err != nil {
		return TradeResult{}, err
	}
	if !req.Side.Valid() {
		return TradeResult{}, fmt.Errorf("unknown side %q: %w", req.Side, domain.ErrInvalidRequest)
	}

	unlock := s.locks.lock(req.UserID)
	defer unlock()

	acct, err := s.store.Get(req.UserID)
	if err != nil {
		return TradeResult{}, err
	}

	price, err := s.latestPrice(ctx, symbol)
	if err != nil {
		return TradeResult{}, err
	}

	fill, err := s.engine.EnterPosition(&acct, req.Side, symbol, price, req.Amount)
	if err != nil {
		return TradeResult{}, err
	}

	return s.commitFill(ctx, acct, fill)
}

// Sell exits a position at the current price. When req.Side is empty the
// side is taken from the only open position on the symbol.
func (s *Service) Sell(ctx context.Context, req SellRequest) (TradeResult, error) {
	req.UserID = domain.NormalizeUserID(req.UserID)
	symbol := domain.NormalizeSymbol(req.Symbol)
	if err := s.validateIntent(req.UserID, symbol, req.Amount); err != nil {
		return TradeResult{}, err
	}
	if req.Side != "" && !req.Side.Valid() {
		return TradeResult{}, fmt.Errorf("unknown side %q: %w", req.Side, domain.ErrInvalidRequest)
	}

	unlock := s.locks.lock(req.UserID)
	defer unlock()

	acct, err := s.store.Get(req.UserID)
	if err != nil {
		return TradeResult{}, err
	}

	side, err := resolveExitSide(&acct, symbol, req.Side)
	if err != nil {
		return TradeResult{}, err
	}

	price, err := s.latestPrice(ctx, symbol)
	if err != nil {
		return TradeResult{}, err
	}

	fill, err := s.engine.ExitPosition(&acct, side, symbol, price, req.Amount)
	if err != nil {
		return TradeResult{}, err
	}

	return s.commitFill(ctx, acct, fill)
}

// LiquidateAll closes every open position at current prices. Positions that
// cannot be priced stay open and are listed in the report; the rest are
// closed and saved.
func (s *Service) LiquidateAll(ctx context.Context, userID string) (LiquidationResult, error) {
	userID = domain.NormalizeUserID(userID)
	unlock := s.locks.lock(userID)
	defer unlock()

	acct, err := s.store.Get(userID)
	if err != nil {
		return LiquidationResult{}, err
	}

	report := s.engine.LiquidateAll(&acct, s.priceFunc(ctx))
	result := LiquidationResult{
		UserID:      userID,
		Report:      report,
		Trades:      []domain.Trade{},
		CashBalance: acct.CashBalance,
	}
	if len(report.Closed) == 0 {
		return result, nil
	}

	now := s.now().UTC()
	for _, fill := range report.Closed {
		result.Trades = append(result.Trades, s.tradeFor(userID, fill, now))
	}
	if err := s.store.Save(ctx, acct, result.Trades...); err != nil {
		return LiquidationResult{}, err
	}

	failed := make([]string, 0, len(report.Failed))
	for _, f := range report.Failed {
		failed = append(failed, f.Symbol)
		s.log.Warn().Err(f.Err).Str("user_id", userID).Str("symbol", f.Symbol).Msg("Position left open during liquidation")
	}
	s.log.Info().
		Str("user_id", userID).
		Int("closed", len(report.Closed)).
		Int("failed", len(report.Failed)).
		Str("proceeds", report.Proceeds.String()).
		Msg("Portfolio liquidated")

	s.emit(&events.PortfolioLiquidatedData{
		UserID:      userID,
		Closed:      len(report.Closed),
		Failed:      failed,
		Proceeds:    report.Proceeds.String(),
		CashBalance: acct.CashBalance.String(),
	})
	return result, nil
}

// PortfolioView values every position at current prices. Fails with
// ErrPriceUnavailable if any held symbol cannot be priced.
func (s *Service) PortfolioView(ctx context.Context, userID string) (Portfolio, error) {
	acct, err := s.store.Get(domain.NormalizeUserID(userID))
	if err != nil {
		return Portfolio{}, err
	}

	quotes := s.fetchPrices(ctx, acct.Symbols())
	valuation, err := s.engine.Valuate(acct, quotes.priceFunc(), s.initialBalance)
	if err != nil {
		return Portfolio{}, err
	}

	return Portfolio{
		UserID:      acct.ID,
		DisplayName: acct.DisplayName,
		Valuation:   valuation,
	}, nil
}

// Balance returns the cash balance
func (s *Service) Balance(ctx context.Context, userID string) (Balance, error) {
	acct, err := s.store.Get(domain.NormalizeUserID(userID))
	if err != nil {
		return Balance{}, err
	}
	return Balance{
		UserID:      acct.ID,
		DisplayName: acct.DisplayName,
		CashBalance: acct.CashBalance,
	}, nil
}

// TradeHistory returns the newest journal entries for userID first
func (s *Service) TradeHistory(ctx context.Context, userID string, limit int) ([]domain.Trade, error) {
	userID = domain.NormalizeUserID(userID)
	if _, err := s.store.Get(userID); err != nil {
		return nil, err
	}
	return s.trades.History(ctx, userID, limit)
}

func (s *Service) validateIntent(userID, symbol string, amount domain.AmountSpec) error {
	if userID == "" {
		return fmt.Errorf("empty user id: %w", domain.ErrInvalidRequest)
	}
	if symbol == "" {
		return fmt.Errorf("empty symbol: %w", domain.ErrInvalidRequest)
	}
	return amount.Validate()
}

// resolveExitSide picks the side to close. An explicit side is used as is;
// otherwise exactly one open position on the symbol is required.
func resolveExitSide(acct *domain.Account, symbol string, side domain.Side) (domain.Side, error) {
	if side != "" {
		return side, nil
	}
	open := acct.PositionsFor(symbol)
	switch len(open) {
	case 0:
		return "", fmt.Errorf("%s: %w", symbol, domain.ErrNoSuchPosition)
	case 1:
		return open[0].Side, nil
	}
	return "", fmt.Errorf("both long and short open on %s, side required: %w", symbol, domain.ErrInvalidRequest)
}

func (s *Service) commitFill(ctx context.Context, acct domain.Account, fill positions.Fill) (TradeResult, error) {
	trade := s.tradeFor(acct.ID, fill, s.now().UTC())
	if err := s.store.Save(ctx, acct, trade); err != nil {
		return TradeResult{}, err
	}

	s.log.Info().
		Str("user_id", acct.ID).
		Str("symbol", fill.Symbol).
		Str("side", string(fill.Side)).
		Str("action", string(fill.Action)).
		Str("quantity", fill.Quantity.String()).
		Str("price", fill.Price.String()).
		Msg("Trade executed")

	s.emit(&events.TradeExecutedData{
		TradeID:     trade.ID,
		UserID:      trade.UserID,
		Symbol:      trade.Symbol,
		Side:        string(trade.Side),
		Action:      string(trade.Action),
		Quantity:    trade.Quantity.String(),
		Price:       trade.Price.String(),
		CashDelta:   trade.CashDelta.String(),
		CashBalance: acct.CashBalance.String(),
	})

	return TradeResult{
		Trade:       trade,
		Fill:        fill,
		CashBalance: acct.CashBalance,
	}, nil
}

func (s *Service) tradeFor(userID string, fill positions.Fill, at time.Time) domain.Trade {
	return domain.Trade{
		ID:         s.newID(),
		UserID:     userID,
		Symbol:     fill.Symbol,
		Side:       fill.Side,
		Action:     fill.Action,
		Quantity:   fill.Quantity,
		Price:      fill.Price,
		CashDelta:  fill.CashDelta,
		ExecutedAt: at,
	}
}

// latestPrice asks the oracle and rejects non-positive quotes
func (s *Service) latestPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	price, err := s.oracle.LatestPrice(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s quoted at %s: %w", symbol, price, domain.ErrInvalidPrice)
	}
	return price, nil
}

// priceFunc adapts the oracle to the engine, bound to ctx
func (s *Service) priceFunc(ctx context.Context) domain.PriceFunc {
	return func(symbol string) (decimal.Decimal, error) {
		return s.latestPrice(ctx, symbol)
	}
}

func (s *Service) emit(data events.EventData) {
	if s.events == nil {
		return
	}
	s.events.EmitTyped(eventModule, data)
}
