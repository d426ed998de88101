package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDecodeKline(t *testing.T) {
	testCases := []struct {
		name        string
		payload     string
		expected    Kline
		expectError bool
	}{
		{
			name:    "Open candle",
			payload: `{"e":"kline","E":1700000000000,"s":"BTCUSDT","k":{"c":"37000.10","x":false}}`,
			expected: Kline{Symbol: "BTCUSDT", Close: 37000.10, Closed: false,
				EventTime: time.UnixMilli(1700000000000)},
		},
		{
			name:    "Closed candle",
			payload: `{"e":"kline","E":1700000001000,"s":"BTCUSDT","k":{"c":"37001","x":true}}`,
			expected: Kline{Symbol: "BTCUSDT", Close: 37001, Closed: true,
				EventTime: time.UnixMilli(1700000001000)},
		},
		{name: "Wrong event", payload: `{"e":"trade","E":1,"s":"BTCUSDT"}`, expectError: true},
		{name: "Bad price", payload: `{"e":"kline","E":1,"s":"BTCUSDT","k":{"c":"?","x":true}}`, expectError: true},
		{name: "Not JSON", payload: `ping`, expectError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			k, err := decodeKline([]byte(tc.payload))
			if tc.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, k)
		})
	}
}

func TestKlineStream_DeliversAndReconnects(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var connections atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/btcusdt@kline_1s", r.URL.Path)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		n := connections.Add(1)
		msgs := []string{
			`{"e":"kline","E":1,"s":"BTCUSDT","k":{"c":"100","x":false}}`,
			`garbage`,
			`{"e":"kline","E":2,"s":"BTCUSDT","k":{"c":"101","x":true}}`,
		}
		if n > 1 {
			msgs = []string{`{"e":"kline","E":3,"s":"BTCUSDT","k":{"c":"102","x":false}}`}
		}
		for _, m := range msgs {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
				return
			}
		}
		if n > 1 {
			// Keep the second connection open until the client leaves.
			_, _, _ = conn.ReadMessage()
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	stream := NewKlineStream(wsURL, "BTCUSDT", "1s", zap.NewNop())
	stream.reconnectDelay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []float64
	done := make(chan error, 1)
	go func() {
		done <- stream.Run(ctx, func(k Kline) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, k.Close)
		})
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, 5*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []float64{100, 101, 102}, got)
	assert.GreaterOrEqual(t, connections.Load(), int32(2))
}
