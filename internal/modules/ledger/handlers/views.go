package handlers

import (
	"time"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/modules/ledger"
	"github.com/aristath/papertrade/internal/modules/positions"
	"github.com/aristath/papertrade/internal/utils"
	"github.com/shopspring/decimal"
)

type balanceView struct {
	UserID             string          `json:"user_id"`
	DisplayName        string          `json:"display_name"`
	CashBalance        decimal.Decimal `json:"cash_balance"`
	CashBalanceDisplay string          `json:"cash_balance_display"`
}

func newBalanceView(userID, displayName string, cash decimal.Decimal) balanceView {
	return balanceView{
		UserID:             userID,
		DisplayName:        displayName,
		CashBalance:        cash,
		CashBalanceDisplay: utils.FormatMoney(cash),
	}
}

type tradeView struct {
	ID               string             `json:"id"`
	Symbol           string             `json:"symbol"`
	Side             domain.Side        `json:"side"`
	Action           domain.TradeAction `json:"action"`
	Quantity         decimal.Decimal    `json:"quantity"`
	Price            decimal.Decimal    `json:"price"`
	CashDelta        decimal.Decimal    `json:"cash_delta"`
	CashDeltaDisplay string             `json:"cash_delta_display"`
	ExecutedAt       string             `json:"executed_at"`
}

func newTradeView(t domain.Trade) tradeView {
	return tradeView{
		ID:               t.ID,
		Symbol:           t.Symbol,
		Side:             t.Side,
		Action:           t.Action,
		Quantity:         t.Quantity,
		Price:            t.Price,
		CashDelta:        t.CashDelta,
		CashDeltaDisplay: utils.FormatMoney(t.CashDelta),
		ExecutedAt:       t.ExecutedAt.Format(time.RFC3339),
	}
}

type tradeResultView struct {
	Trade              tradeView       `json:"trade"`
	Fill               positions.Fill  `json:"fill"`
	CashBalance        decimal.Decimal `json:"cash_balance"`
	CashBalanceDisplay string          `json:"cash_balance_display"`
}

func newTradeResultView(res ledger.TradeResult) tradeResultView {
	return tradeResultView{
		Trade:              newTradeView(res.Trade),
		Fill:               res.Fill,
		CashBalance:        res.CashBalance,
		CashBalanceDisplay: utils.FormatMoney(res.CashBalance),
	}
}

type portfolioView struct {
	ledger.Portfolio
	CashBalanceDisplay        string `json:"cash_balance_display"`
	TotalWorthDisplay         string `json:"total_worth_display"`
	TotalProfitDisplay        string `json:"total_profit_display"`
	TotalProfitPercentDisplay string `json:"total_profit_percent_display"`
}

func newPortfolioView(p ledger.Portfolio) portfolioView {
	return portfolioView{
		Portfolio:                 p,
		CashBalanceDisplay:        utils.FormatMoney(p.CashBalance),
		TotalWorthDisplay:         utils.FormatMoney(p.TotalWorth),
		TotalProfitDisplay:        utils.FormatMoney(p.TotalProfit),
		TotalProfitPercentDisplay: utils.FormatPercent(p.TotalProfitPercent),
	}
}

type failureView struct {
	Symbol   string          `json:"symbol"`
	Side     domain.Side     `json:"side"`
	Quantity decimal.Decimal `json:"quantity"`
	Code     string          `json:"code"`
	Message  string          `json:"message"`
}

type liquidationView struct {
	UserID             string           `json:"user_id"`
	Complete           bool             `json:"complete"`
	Closed             []positions.Fill `json:"closed"`
	Failed             []failureView    `json:"failed"`
	Proceeds           decimal.Decimal  `json:"proceeds"`
	ProceedsDisplay    string           `json:"proceeds_display"`
	CashBalance        decimal.Decimal  `json:"cash_balance"`
	CashBalanceDisplay string           `json:"cash_balance_display"`
}

func newLiquidationView(res ledger.LiquidationResult) liquidationView {
	v := liquidationView{
		UserID:             res.UserID,
		Complete:           res.Report.Complete(),
		Closed:             res.Report.Closed,
		Failed:             make([]failureView, 0, len(res.Report.Failed)),
		Proceeds:           res.Report.Proceeds,
		ProceedsDisplay:    utils.FormatMoney(res.Report.Proceeds),
		CashBalance:        res.CashBalance,
		CashBalanceDisplay: utils.FormatMoney(res.CashBalance),
	}
	if v.Closed == nil {
		v.Closed = []positions.Fill{}
	}
	for _, f := range res.Report.Failed {
		v.Failed = append(v.Failed, failureView{
			Symbol:   f.Symbol,
			Side:     f.Side,
			Quantity: f.Quantity,
			Code:     domain.CodeOf(f.Err),
			Message:  domain.MessageOf(f.Err),
		})
	}
	return v
}

type rankingEntryView struct {
	ledger.RankingEntry
	NetWorthDisplay string `json:"net_worth_display"`
	ProfitDisplay   string `json:"profit_display"`
}

type rankingView struct {
	Entries []rankingEntryView  `json:"entries"`
	Stats   ledger.RankingStats `json:"stats"`
}

func newRankingView(r ledger.Ranking) rankingView {
	v := rankingView{
		Entries: make([]rankingEntryView, 0, len(r.Entries)),
		Stats:   r.Stats,
	}
	for _, e := range r.Entries {
		v.Entries = append(v.Entries, rankingEntryView{
			RankingEntry:    e,
			NetWorthDisplay: utils.FormatMoney(e.NetWorth),
			ProfitDisplay:   utils.FormatMoney(e.Profit),
		})
	}
	return v
}
