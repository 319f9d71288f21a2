package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/modules/market"
	testutil "github.com/aristath/papertrade/internal/testing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(oracle *testutil.MockPriceOracle) http.Handler {
	r := chi.NewRouter()
	NewHandler(market.NewService(oracle, oracle, zerolog.Nop()), zerolog.Nop()).RegisterRoutes(r)
	return r
}

func TestHandleGetQuote(t *testing.T) {
	oracle := testutil.NewMockPriceOracle()
	oracle.SetPrice("ABC", "105.5")
	oracle.SetDailyStats("ABC", domain.DailyStats{
		Open: decimal.NewFromInt(100),
		High: decimal.NewFromInt(106),
		Low:  decimal.NewFromInt(99),
	})

	w := httptest.NewRecorder()
	newRouter(oracle).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/market/abc", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ABC", resp.Data["symbol"])
	assert.Equal(t, "105.5", resp.Data["price"])
	assert.Equal(t, "$105.50", resp.Data["price_display"])
	assert.Equal(t, "+$5.50", resp.Data["trend_display"])
	assert.Equal(t, "+5.50%", resp.Data["trend_percent_display"])
}

func TestHandleGetQuote_UnknownSymbol(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter(testutil.NewMockPriceOracle()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/market/NOPE", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "SYMBOL_NOT_FOUND", resp.Error.Code)
}

func TestHandleGetInfo(t *testing.T) {
	oracle := testutil.NewMockPriceOracle()
	oracle.SetDetails("AAPL", domain.TickerDetails{
		Symbol:    "AAPL",
		Name:      "Apple Inc.",
		MarketCap: decimal.RequireFromString("2954333333333.5"),
		Employees: 161000,
		Sector:    "Manufacturing",
		Industry:  "ELECTRONIC COMPUTERS",
		Website:   "https://www.apple.com",
		LogoURL:   "https://example.com/apple.svg",
	})

	w := httptest.NewRecorder()
	newRouter(oracle).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/market/aapl/info", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "AAPL", resp.Data["symbol"])
	assert.Equal(t, "Apple Inc.", resp.Data["name"])
	assert.Equal(t, "2954333333333.5", resp.Data["market_cap"])
	assert.Equal(t, "$2,954,333,333,333.50", resp.Data["market_cap_display"])
	assert.Equal(t, float64(161000), resp.Data["employees"])
	assert.Equal(t, "Manufacturing", resp.Data["sector"])
	assert.Equal(t, "ELECTRONIC COMPUTERS", resp.Data["industry"])
	assert.Equal(t, "https://www.apple.com", resp.Data["website"])
	assert.Equal(t, "https://example.com/apple.svg", resp.Data["logo_url"])
}

func TestHandleGetInfo_Errors(t *testing.T) {
	oracle := testutil.NewMockPriceOracle()
	oracle.SetError("DOWN", domain.ErrPriceUnavailable)

	tests := []struct {
		path   string
		status int
		code   string
	}{
		{"/market/NOPE/info", http.StatusNotFound, "SYMBOL_NOT_FOUND"},
		{"/market/DOWN/info", http.StatusServiceUnavailable, "PRICE_UNAVAILABLE"},
		{"/market/%20/info", http.StatusBadRequest, "INVALID_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			newRouter(oracle).ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)

			var resp struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}
