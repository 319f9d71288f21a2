// Package handlers provides HTTP handlers for market quotes and company info.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/modules/market"
	"github.com/aristath/papertrade/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// QuoteService builds quotes and company profiles
type QuoteService interface {
	Quote(ctx context.Context, symbol string) (market.Quote, error)
	Lookup(ctx context.Context, symbol string) (domain.TickerDetails, error)
}

// Handler handles market HTTP requests
type Handler struct {
	service QuoteService
	log     zerolog.Logger
}

// NewHandler creates a new market handler
func NewHandler(service QuoteService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "market").Logger(),
	}
}

// RegisterRoutes registers market routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/market/{symbol}", h.HandleGetQuote)
	r.Get("/market/{symbol}/info", h.HandleGetInfo)
}

type quoteView struct {
	market.Quote
	PriceDisplay        string `json:"price_display"`
	TrendDisplay        string `json:"trend_display"`
	TrendPercentDisplay string `json:"trend_percent_display"`
}

// HandleGetQuote handles GET /market/{symbol}
func (h *Handler) HandleGetQuote(w http.ResponseWriter, r *http.Request) {
	q, err := h.service.Quote(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	trend := utils.FormatMoney(q.Trend)
	if q.Trend.IsPositive() {
		trend = "+" + trend
	}
	h.writeJSON(w, http.StatusOK, quoteView{
		Quote:               q,
		PriceDisplay:        utils.FormatMoney(q.Price),
		TrendDisplay:        trend,
		TrendPercentDisplay: utils.FormatPercent(q.TrendPercent),
	})
}

type infoView struct {
	domain.TickerDetails
	MarketCapDisplay string `json:"market_cap_display"`
}

// HandleGetInfo handles GET /market/{symbol}/info
func (h *Handler) HandleGetInfo(w http.ResponseWriter, r *http.Request) {
	details, err := h.service.Lookup(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	view := infoView{TickerDetails: details}
	if details.MarketCap.IsPositive() {
		view.MarketCapDisplay = utils.FormatMoney(details.MarketCap)
	}
	h.writeJSON(w, http.StatusOK, view)
}

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

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	code := domain.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case domain.ErrSymbolNotFound.Code:
		status = http.StatusNotFound
	case domain.ErrInvalidPrice.Code:
		status = http.StatusBadGateway
	case domain.ErrInvalidRequest.Code:
		status = http.StatusBadRequest
	case domain.ErrPriceUnavailable.Code:
		status = http.StatusServiceUnavailable
	default:
		h.log.Error().Err(err).Msg("Market request failed")
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
