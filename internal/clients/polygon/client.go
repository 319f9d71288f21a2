// Package polygon is a price oracle backed by the Polygon.io REST API.
package polygon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/aristath/papertrade/internal/clientdata"
	"github.com/aristath/papertrade/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// DefaultBaseURL is the public Polygon.io endpoint
const DefaultBaseURL = "https://api.polygon.io"

// aggregateWindow is how far back the hourly series reaches
const aggregateWindow = 7 * 24 * time.Hour

// fetchTimeout bounds a shared upstream fetch, which outlives the caller
// that started it
const fetchTimeout = 15 * time.Second

var _ domain.PriceOracle = (*Client)(nil)

// Client for the Polygon.io REST API
type Client struct {
	baseURL   string
	apiKey    string
	client    *http.Client
	cacheRepo *clientdata.Repository
	group     singleflight.Group
	now       func() time.Time
	log       zerolog.Logger
}

// NewClient creates a new Polygon client.
// cacheRepo is optional - if nil, caching is disabled
func NewClient(baseURL, apiKey string, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		client:    &http.Client{Timeout: 10 * time.Second},
		cacheRepo: cacheRepo,
		now:       time.Now,
		log:       log.With().Str("client", "polygon").Logger(),
	}
}

// Cached shapes. Decimals are kept as strings so the blobs do not depend on
// the decimal library's binary encoding.
type cachedPrice struct {
	Price string `msgpack:"price"`
}

type cachedStats struct {
	Open string `msgpack:"open"`
	High string `msgpack:"high"`
	Low  string `msgpack:"low"`
}

type cachedSeries struct {
	Opens  []float64 `msgpack:"opens"`
	Highs  []float64 `msgpack:"highs"`
	Lows   []float64 `msgpack:"lows"`
	Closes []float64 `msgpack:"closes"`
}

type lastTradeResponse struct {
	Status  string `json:"status"`
	Results *struct {
		Price decimal.Decimal `json:"p"`
	} `json:"results"`
}

type aggregateBar struct {
	Open  decimal.Decimal `json:"o"`
	High  decimal.Decimal `json:"h"`
	Low   decimal.Decimal `json:"l"`
	Close decimal.Decimal `json:"c"`
}

type aggregatesResponse struct {
	Status       string         `json:"status"`
	ResultsCount int            `json:"resultsCount"`
	Results      []aggregateBar `json:"results"`
}

// LatestPrice returns the price of the last trade for symbol
func (c *Client) LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	cached, err := lookup(ctx, c, clientdata.TableCurrentPrices, symbol, clientdata.TTLCurrentPrice,
		func(ctx context.Context) (cachedPrice, error) {
			var resp lastTradeResponse
			if err := c.get(ctx, "/v2/last/trade/"+url.PathEscape(symbol), nil, &resp); err != nil {
				return cachedPrice{}, err
			}
			if resp.Results == nil {
				return cachedPrice{}, fmt.Errorf("%s: %w", symbol, domain.ErrSymbolNotFound)
			}
			return cachedPrice{Price: resp.Results.Price.String()}, nil
		})
	if err != nil {
		return decimal.Zero, err
	}
	return parseDecimal(cached.Price)
}

// DailyStats returns open, high and low of the previous session
func (c *Client) DailyStats(ctx context.Context, symbol string) (domain.DailyStats, error) {
	cached, err := lookup(ctx, c, clientdata.TableDailyStats, symbol, clientdata.TTLDailyStats,
		func(ctx context.Context) (cachedStats, error) {
			var resp aggregatesResponse
			path := fmt.Sprintf("/v2/aggs/ticker/%s/prev", url.PathEscape(symbol))
			if err := c.get(ctx, path, url.Values{"adjusted": {"true"}}, &resp); err != nil {
				return cachedStats{}, err
			}
			if len(resp.Results) == 0 {
				return cachedStats{}, fmt.Errorf("%s: %w", symbol, domain.ErrSymbolNotFound)
			}
			bar := resp.Results[0]
			return cachedStats{Open: bar.Open.String(), High: bar.High.String(), Low: bar.Low.String()}, nil
		})
	if err != nil {
		return domain.DailyStats{}, err
	}

	var stats domain.DailyStats
	if stats.Open, err = parseDecimal(cached.Open); err != nil {
		return domain.DailyStats{}, err
	}
	if stats.High, err = parseDecimal(cached.High); err != nil {
		return domain.DailyStats{}, err
	}
	if stats.Low, err = parseDecimal(cached.Low); err != nil {
		return domain.DailyStats{}, err
	}
	return stats, nil
}

// AggregateSeries returns hourly bars over the last week, oldest first
func (c *Client) AggregateSeries(ctx context.Context, symbol string) (domain.Series, error) {
	cached, err := lookup(ctx, c, clientdata.TableAggregates, symbol, clientdata.TTLAggregates,
		func(ctx context.Context) (cachedSeries, error) {
			to := c.now().UTC()
			from := to.Add(-aggregateWindow)
			path := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/hour/%s/%s",
				url.PathEscape(symbol), from.Format("2006-01-02"), to.Format("2006-01-02"))

			var resp aggregatesResponse
			params := url.Values{"adjusted": {"true"}, "sort": {"asc"}, "limit": {"5000"}}
			if err := c.get(ctx, path, params, &resp); err != nil {
				return cachedSeries{}, err
			}
			if len(resp.Results) == 0 {
				return cachedSeries{}, fmt.Errorf("%s: %w", symbol, domain.ErrSymbolNotFound)
			}

			s := cachedSeries{
				Opens:  make([]float64, 0, len(resp.Results)),
				Highs:  make([]float64, 0, len(resp.Results)),
				Lows:   make([]float64, 0, len(resp.Results)),
				Closes: make([]float64, 0, len(resp.Results)),
			}
			for _, bar := range resp.Results {
				s.Opens = append(s.Opens, bar.Open.InexactFloat64())
				s.Highs = append(s.Highs, bar.High.InexactFloat64())
				s.Lows = append(s.Lows, bar.Low.InexactFloat64())
				s.Closes = append(s.Closes, bar.Close.InexactFloat64())
			}
			return s, nil
		})
	if err != nil {
		return domain.Series{}, err
	}
	return domain.Series{Opens: cached.Opens, Highs: cached.Highs, Lows: cached.Lows, Closes: cached.Closes}, nil
}

// lookup is cache-first: a fresh cached value wins, otherwise the API is
// asked once per (table, symbol) no matter how many callers are waiting.
// The fetch is detached from ctx so one caller giving up does not fail the
// others; a cancelled caller returns its own ctx error right away.
// If the API fails for any reason other than an unknown symbol, stale cached
// data is returned instead (stale data > no data).
func lookup[T any](ctx context.Context, c *Client, table, symbol string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	if c.cacheRepo != nil {
		var cached T
		found, err := c.cacheRepo.GetIfFresh(table, symbol, &cached)
		if err != nil {
			c.log.Warn().Err(err).Str("table", table).Str("symbol", symbol).Msg("Cache read failed")
		} else if found {
			c.log.Debug().Str("table", table).Str("symbol", symbol).Msg("Cache hit")
			return cached, nil
		}
	}

	ch := c.group.DoChan(table+":"+symbol, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()

		fresh, err := fetch(fctx)
		if err != nil {
			return zero, err
		}
		if c.cacheRepo != nil {
			if err := c.cacheRepo.Store(table, symbol, fresh, ttl); err != nil {
				c.log.Warn().Err(err).Str("table", table).Str("symbol", symbol).Msg("Failed to cache response")
			}
		}
		return fresh, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return zero, fmt.Errorf("%s %s: %w", table, symbol, ctx.Err())
	}
	err := res.Err
	if err == nil {
		if res.Shared {
			c.log.Debug().Str("table", table).Str("symbol", symbol).Msg("Shared in-flight lookup")
		}
		return res.Val.(T), nil
	}

	if errors.Is(err, domain.ErrSymbolNotFound) {
		return zero, err
	}

	if c.cacheRepo != nil {
		var stale T
		if found, cacheErr := c.cacheRepo.Get(table, symbol, &stale); cacheErr == nil && found {
			c.log.Warn().
				Err(err).
				Str("table", table).
				Str("symbol", symbol).
				Msg("API failed, using stale cached data")
			return stale, nil
		}
	}
	return zero, fmt.Errorf("%s %s: %w: %w", table, symbol, domain.ErrPriceUnavailable, err)
}

// get performs an authenticated GET and decodes the JSON body into out.
// A 404 is reported as ErrSymbolNotFound.
func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	c.log.Debug().Str("path", path).Msg("Fetching")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", path, domain.ErrSymbolNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt cached value %q: %w", s, err)
	}
	return d, nil
}
