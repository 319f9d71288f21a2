package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/utils"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// maxConcurrentQuotes bounds parallel oracle lookups
const maxConcurrentQuotes = 8

// quoteSet holds prices fetched for one operation
type quoteSet struct {
	prices map[string]decimal.Decimal
	errs   map[string]error
}

func (q quoteSet) priceFunc() domain.PriceFunc {
	return func(symbol string) (decimal.Decimal, error) {
		if p, ok := q.prices[symbol]; ok {
			return p, nil
		}
		if err, ok := q.errs[symbol]; ok {
			return decimal.Zero, err
		}
		return decimal.Zero, fmt.Errorf("%s not fetched: %w", symbol, domain.ErrPriceUnavailable)
	}
}

// fetchPrices looks up every symbol concurrently. Failures are recorded per
// symbol rather than aborting the whole set.
func (s *Service) fetchPrices(ctx context.Context, symbols []string) quoteSet {
	q := quoteSet{
		prices: make(map[string]decimal.Decimal, len(symbols)),
		errs:   make(map[string]error),
	}
	if len(symbols) == 0 {
		return q
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentQuotes)
	for _, sym := range symbols {
		sym := sym
		g.Go(func() error {
			price, err := s.latestPrice(gctx, sym)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				q.errs[sym] = err
				return nil
			}
			q.prices[sym] = price
			return nil
		})
	}
	_ = g.Wait()

	return q
}

// Ranking values every account at current prices and orders them by net
// worth, highest first; equal net worth keeps registration order. limit <= 0
// returns every account. Symbols the oracle cannot price are valued at the
// position's average price and the entry is flagged stale.
func (s *Service) Ranking(ctx context.Context, limit int) (Ranking, error) {
	defer utils.OperationTimer("ranking", s.log)()

	accounts := s.store.All()

	seen := make(map[string]bool)
	var symbols []string
	for i := range accounts {
		for _, sym := range accounts[i].Symbols() {
			if !seen[sym] {
				seen[sym] = true
				symbols = append(symbols, sym)
			}
		}
	}

	quotes := s.fetchPrices(ctx, symbols)
	if err := ctx.Err(); err != nil {
		return Ranking{}, err
	}
	for sym, err := range quotes.errs {
		s.log.Warn().Err(err).Str("symbol", sym).Msg("Valuing positions at average price for ranking")
	}
	priceFn := quotes.priceFunc()

	entries := make([]RankingEntry, 0, len(accounts))
	for _, acct := range accounts {
		v := s.engine.ValuateLenient(acct, priceFn, s.initialBalance)
		stale := false
		for _, p := range v.Positions {
			stale = stale || p.Stale
		}
		entries = append(entries, RankingEntry{
			UserID:        acct.ID,
			DisplayName:   acct.DisplayName,
			NetWorth:      v.TotalWorth,
			Profit:        v.TotalProfit,
			ProfitPercent: v.TotalProfitPercent,
			Stale:         stale,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].NetWorth.GreaterThan(entries[j].NetWorth)
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	result := Ranking{Stats: rankingStats(entries)}
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	result.Entries = entries
	return result, nil
}

// rankingStats expects entries sorted by net worth descending
func rankingStats(entries []RankingEntry) RankingStats {
	stats := RankingStats{Accounts: len(entries)}
	if len(entries) == 0 {
		return stats
	}

	// Ascending for the quantile
	worth := make([]float64, len(entries))
	for i, e := range entries {
		worth[len(entries)-1-i] = e.NetWorth.InexactFloat64()
	}

	stats.Mean = stat.Mean(worth, nil)
	stats.Median = stat.Quantile(0.5, stat.Empirical, worth, nil)
	if len(worth) > 1 {
		stats.StdDev = stat.StdDev(worth, nil)
	}
	return stats
}
