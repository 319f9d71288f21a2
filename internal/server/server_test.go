package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aristath/papertrade/internal/database"
	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/events"
	"github.com/aristath/papertrade/internal/modules/accounts"
	"github.com/aristath/papertrade/internal/modules/ledger"
	"github.com/aristath/papertrade/internal/modules/market"
	"github.com/aristath/papertrade/internal/modules/positions"
	testutil "github.com/aristath/papertrade/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	log := zerolog.Nop()
	ledgerDB := testutil.NewTestDB(t, "ledger")
	cacheDB := testutil.NewTestDB(t, "cache")

	store := accounts.NewRepository(ledgerDB.Conn(), domain.DefaultInitialBalance, log)
	require.NoError(t, store.Open(context.Background()))

	bus := events.NewBus(log)
	oracle := testutil.NewMockPriceOracle()
	oracle.SetPrice("ABC", "100")

	svc := ledger.NewService(
		store,
		accounts.NewTradeRepository(ledgerDB.Conn(), log),
		oracle,
		positions.NewEngine(positions.DefaultQuantityScale),
		events.NewManager(bus, log),
		domain.DefaultInitialBalance,
		log,
	)

	s := New(Config{
		Log:             log,
		Port:            0,
		DevMode:         true,
		Ledger:          svc,
		Market:          market.NewService(oracle, oracle, log),
		LeaderboardSize: 10,
		EventBus:        bus,
		Databases:       []*database.DB{ledgerDB, cacheDB},
	})
	s.systemHandlers.cpuStats = func(context.Context) (float64, error) { return 12.5, nil }
	s.systemHandlers.memStats = func(context.Context) (float64, error) { return 40, nil }
	return s
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "papertrade", body["service"])
}

func TestRoutesMountedUnderAPI(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	body := strings.NewReader(`{"user_id":"u1","display_name":"Alice"}`)
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/accounts", body))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/market/NOPE", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/market/NOPE/info", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "SYMBOL_NOT_FOUND")
}

func TestSystemStatus(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/system/status", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data SystemStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Data.Status)
	assert.Equal(t, 12.5, resp.Data.CPUPercent)
	assert.Equal(t, 40.0, resp.Data.MemoryPercent)
	require.Len(t, resp.Data.Databases, 2)
	assert.Equal(t, "ledger", resp.Data.Databases[0].Name)
	assert.True(t, resp.Data.Databases[0].Healthy)
	require.NotNil(t, resp.Data.Databases[0].Stats)
	assert.Positive(t, resp.Data.Databases[0].Stats.PageCount)
}

func TestEventsStream_UnknownType(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/events/ws?types=NOPE", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventsStream_DeliversEvents(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/events/ws?types=TRADE_EXECUTED"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	var msg streamMessage
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	assert.Equal(t, "connected", msg.Type)

	post := func(path, body string) {
		resp, err := http.Post(srv.URL+path, "application/json", bytes.NewBufferString(body))
		require.NoError(t, err)
		resp.Body.Close()
		require.Less(t, resp.StatusCode, 300)
	}
	// filtered out: only trades are streamed
	post("/api/accounts", `{"user_id":"u1"}`)
	post("/api/accounts/u1/buy", `{"side":"long","symbol":"ABC","amount":{"kind":"shares","value":"2"}}`)

	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	assert.Equal(t, string(events.TradeExecuted), msg.Type)
	assert.Equal(t, "ledger", msg.Module)
	assert.Equal(t, "u1", msg.Data["user_id"])
	assert.Equal(t, "ABC", msg.Data["symbol"])

	conn.Close(websocket.StatusNormalClosure, "")
}
