package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all ledger routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/accounts", func(r chi.Router) {
		r.Post("/", h.HandleRegister)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/balance", h.HandleGetBalance)
			r.Get("/portfolio", h.HandleGetPortfolio)
			r.Get("/trades", h.HandleGetTrades)

			r.Post("/buy", h.HandleBuy)
			r.Post("/sell", h.HandleSell)
			r.Post("/liquidate", h.HandleLiquidate)
		})
	})

	r.Get("/leaderboard", h.HandleGetLeaderboard)
}
