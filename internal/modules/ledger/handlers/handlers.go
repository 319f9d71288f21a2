// Package handlers provides HTTP handlers for ledger operations.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/modules/ledger"
	"github.com/aristath/papertrade/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const (
	maxBodyBytes    = 1 << 16
	maxHistoryLimit = 500
	maxRankingLimit = 1000
)

// LedgerService is the subset of ledger.Service the handlers use
type LedgerService interface {
	Register(ctx context.Context, userID, displayName string) (domain.Account, error)
	Buy(ctx context.Context, req ledger.BuyRequest) (ledger.TradeResult, error)
	Sell(ctx context.Context, req ledger.SellRequest) (ledger.TradeResult, error)
	LiquidateAll(ctx context.Context, userID string) (ledger.LiquidationResult, error)
	PortfolioView(ctx context.Context, userID string) (ledger.Portfolio, error)
	Balance(ctx context.Context, userID string) (ledger.Balance, error)
	TradeHistory(ctx context.Context, userID string, limit int) ([]domain.Trade, error)
	Ranking(ctx context.Context, limit int) (ledger.Ranking, error)
}

// Handler handles ledger HTTP requests
type Handler struct {
	service      LedgerService
	rankingLimit int
	log          zerolog.Logger
}

// NewHandler creates a new ledger handler. rankingLimit is the leaderboard
// size used when the request does not name one.
func NewHandler(service LedgerService, rankingLimit int, log zerolog.Logger) *Handler {
	return &Handler{
		service:      service,
		rankingLimit: rankingLimit,
		log:          log.With().Str("handler", "ledger").Logger(),
	}
}

type registerRequest struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// amountBody accepts the value as a JSON number or a decimal string
type amountBody struct {
	Kind  string          `json:"kind"`
	Value json.RawMessage `json:"value,omitempty"`
}

func (a amountBody) spec() (domain.AmountSpec, error) {
	var value string
	if err := json.Unmarshal(a.Value, &value); err != nil {
		value = strings.TrimSpace(string(a.Value))
	}
	return domain.ParseAmountSpec(a.Kind, value)
}

type tradeRequest struct {
	Side   string     `json:"side"`
	Symbol string     `json:"symbol"`
	Amount amountBody `json:"amount"`
}

// HandleRegister handles POST /accounts
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	acct, err := h.service.Register(r.Context(), req.UserID, req.DisplayName)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, newBalanceView(acct.ID, acct.DisplayName, acct.CashBalance))
}

// HandleGetBalance handles GET /accounts/{id}/balance
func (h *Handler) HandleGetBalance(w http.ResponseWriter, r *http.Request) {
	bal, err := h.service.Balance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newBalanceView(bal.UserID, bal.DisplayName, bal.CashBalance))
}

// HandleGetPortfolio handles GET /accounts/{id}/portfolio
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.PortfolioView(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newPortfolioView(p))
}

// HandleGetTrades handles GET /accounts/{id}/trades?limit=
func (h *Handler) HandleGetTrades(w http.ResponseWriter, r *http.Request) {
	limit := utils.ParseLimit(r.URL.Query().Get("limit"), 0, maxHistoryLimit)

	trades, err := h.service.TradeHistory(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}

	views := make([]tradeView, 0, len(trades))
	for _, t := range trades {
		views = append(views, newTradeView(t))
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"trades": views,
		"count":  len(views),
	})
}

// HandleBuy handles POST /accounts/{id}/buy
func (h *Handler) HandleBuy(w http.ResponseWriter, r *http.Request) {
	req, amount, side, err := parseTradeRequest(r, true)
	if err != nil {
		h.writeError(w, err)
		return
	}

	res, err := h.service.Buy(r.Context(), ledger.BuyRequest{
		UserID: chi.URLParam(r, "id"),
		Side:   side,
		Symbol: req.Symbol,
		Amount: amount,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newTradeResultView(res))
}

// HandleSell handles POST /accounts/{id}/sell. The side may be omitted when
// only one side is open on the symbol.
func (h *Handler) HandleSell(w http.ResponseWriter, r *http.Request) {
	req, amount, side, err := parseTradeRequest(r, false)
	if err != nil {
		h.writeError(w, err)
		return
	}

	res, err := h.service.Sell(r.Context(), ledger.SellRequest{
		UserID: chi.URLParam(r, "id"),
		Side:   side,
		Symbol: req.Symbol,
		Amount: amount,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newTradeResultView(res))
}

// HandleLiquidate handles POST /accounts/{id}/liquidate
func (h *Handler) HandleLiquidate(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.LiquidateAll(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newLiquidationView(res))
}

// HandleGetLeaderboard handles GET /leaderboard?limit=
func (h *Handler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := utils.ParseLimit(r.URL.Query().Get("limit"), h.rankingLimit, maxRankingLimit)

	ranking, err := h.service.Ranking(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newRankingView(ranking))
}

func parseTradeRequest(r *http.Request, sideRequired bool) (tradeRequest, domain.AmountSpec, domain.Side, error) {
	var req tradeRequest
	if err := decodeBody(r, &req); err != nil {
		return req, domain.AmountSpec{}, "", err
	}

	var side domain.Side
	if req.Side != "" || sideRequired {
		s, err := domain.ParseSide(req.Side)
		if err != nil {
			return req, domain.AmountSpec{}, "", err
		}
		side = s
	}

	amount, err := req.Amount.spec()
	if err != nil {
		return req, domain.AmountSpec{}, "", err
	}
	return req, amount, side, nil
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(domain.ErrInvalidRequest, err)
	}
	return nil
}

// statusFor maps a ledger error code to an HTTP status
func statusFor(code string) int {
	switch code {
	case domain.ErrAlreadyRegistered.Code:
		return http.StatusConflict
	case domain.ErrNotRegistered.Code, domain.ErrSymbolNotFound.Code, domain.ErrNoSuchPosition.Code:
		return http.StatusNotFound
	case domain.ErrInvalidPrice.Code:
		return http.StatusBadGateway
	case domain.ErrInsufficientFunds.Code, domain.ErrOversold.Code:
		return http.StatusUnprocessableEntity
	case domain.ErrPriceUnavailable.Code:
		return http.StatusServiceUnavailable
	case domain.ErrInvalidRequest.Code:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeJSON writes a JSON response wrapped in the data/metadata envelope
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError renders err with its stable code and message
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	code := domain.CodeOf(err)
	status := statusFor(code)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Ledger operation failed")
	} else {
		h.log.Debug().Err(err).Str("code", code).Msg("Ledger request rejected")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	response := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": domain.MessageOf(err),
		},
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON error")
	}
}
