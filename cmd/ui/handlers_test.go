package main

import (
	"btc-paper-trader-go/internal/config"
	"btc-paper-trader-go/internal/database"
	"btc-paper-trader-go/internal/execution"
	"btc-paper-trader-go/internal/models"
	"btc-paper-trader-go/internal/trader"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var now = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

func newTestHandler(t *testing.T) (*APIHandler, *database.Store) {
	t.Helper()
	db, err := database.NewDatabase(config.Database{DSN: "file::memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	store := database.NewStore(db, "BTCUSDT", zap.NewNop())
	h := NewAPIHandler(zap.NewNop(), store)
	h.now = func() time.Time { return now }
	return h, store
}

func closedTrade(id string, closedAt time.Time, profit float64) execution.Trade {
	return execution.Trade{
		ID:             id,
		PositionID:     "pos-" + id,
		Side:           execution.SideSell,
		EntryPrice:     100,
		ExitPrice:      100 + profit,
		Amount:         1,
		OpenedAt:       closedAt.Add(-time.Minute),
		ClosedAt:       closedAt,
		RealizedProfit: profit,
		NetValue:       100 + profit,
		Reason:         execution.ReasonManual,
	}
}

func seed(t *testing.T, store *database.Store) {
	t.Helper()
	require.NoError(t, store.SaveSnapshot(execution.Snapshot{
		Account: execution.NewAccount(10000, now),
		Position: &execution.Position{ID: "open", Side: execution.SideBuy, EntryPrice: 64000,
			Amount: 0.01, OpenedAt: now, State: execution.PositionStateOpen},
		Trades: []execution.Trade{
			closedTrade("t-3", now.Add(-time.Hour), 12),
			closedTrade("t-2", now.Add(-2*time.Hour), -3),
			closedTrade("t-1", now.Add(-30*time.Hour), 5),
		},
		Config: execution.DefaultConfig(),
	}))
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestStateHandler(t *testing.T) {
	h, store := newTestHandler(t)
	routes := h.Routes()

	rr := get(routes, "/api/state")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	seed(t, store)
	rr = get(routes, "/api/state")
	require.Equal(t, http.StatusOK, rr.Code)

	var state trader.StateView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	require.NotNil(t, state.Position)
	assert.Equal(t, "open", state.Position.ID)
	assert.Equal(t, 10000.0, state.Account.Balance)
	assert.Len(t, state.Trades, 3)
}

func TestTradesHandler(t *testing.T) {
	h, store := newTestHandler(t)
	routes := h.Routes()

	rr := get(routes, "/api/trades")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	seed(t, store)

	testCases := []struct {
		name           string
		query          string
		expectedStatus int
		expectedIDs    []string
	}{
		{name: "All trades", query: "", expectedStatus: http.StatusOK, expectedIDs: []string{"t-3", "t-2", "t-1"}},
		{name: "Last day", query: "?period=24h", expectedStatus: http.StatusOK, expectedIDs: []string{"t-3", "t-2"}},
		{name: "Limited", query: "?period=all&limit=1", expectedStatus: http.StatusOK, expectedIDs: []string{"t-3"}},
		{name: "Bad period", query: "?period=week", expectedStatus: http.StatusBadRequest},
		{name: "Bad limit", query: "?limit=-2", expectedStatus: http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rr := get(routes, "/api/trades"+tc.query)
			require.Equal(t, tc.expectedStatus, rr.Code)
			if tc.expectedStatus != http.StatusOK {
				return
			}

			var trades []models.Trade
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &trades))
			ids := make([]string, 0, len(trades))
			for _, tr := range trades {
				ids = append(ids, tr.TradeID)
			}
			assert.Equal(t, tc.expectedIDs, ids)
		})
	}
}

func TestStatisticsHandler(t *testing.T) {
	h, store := newTestHandler(t)
	seed(t, store)

	rr := get(h.Routes(), "/api/statistics")
	require.Equal(t, http.StatusOK, rr.Code)

	var stats StatisticsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, int64(2), stats.Since24h.Trades)
	assert.Equal(t, int64(1), stats.Since24h.Wins)
	assert.InDelta(t, 9.0, stats.Since24h.TotalProfit, 1e-9)
	assert.Equal(t, int64(3), stats.AllTime.Trades)
	assert.InDelta(t, 14.0, stats.AllTime.TotalProfit, 1e-9)
	assert.InDelta(t, 2.0/3.0, stats.AllTime.WinRate, 1e-9)
}
