package trader

import (
	"btc-paper-trader-go/internal/config"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// moveTo is a flat series of n points at from whose last point is to.
func moveTo(n int, from, to float64) []float64 {
	prices := flatPrices(n, from)
	prices[n-1] = to
	return prices
}

func TestIndicatorStrategy_Analyze(t *testing.T) {
	history := flatPrices(25, 100)

	testCases := []struct {
		name               string
		data               MarketData
		expectedSignal     Signal
		expectedConfidence float64
	}{
		{
			name:               "Full bullish agreement",
			data:               MarketData{RSI: 25, SMA7: 101, SMA25: 100, Uptrend: true, History: history},
			expectedSignal:     SignalStrongBuy,
			expectedConfidence: 100,
		},
		{
			name:               "Full bearish agreement",
			data:               MarketData{RSI: 80, SMA7: 99, SMA25: 100, Uptrend: false, History: history},
			expectedSignal:     SignalStrongSell,
			expectedConfidence: 100,
		},
		{
			name:               "Oversold against the trend",
			data:               MarketData{RSI: 28, SMA7: 101, SMA25: 100, Uptrend: false, History: history},
			expectedSignal:     SignalBuy,
			expectedConfidence: 75,
		},
		{
			name:               "Mildly overbought",
			data:               MarketData{RSI: 60, SMA7: 101, SMA25: 100, Uptrend: false, History: history},
			expectedSignal:     SignalSell,
			expectedConfidence: 62.5,
		},
		{
			name:               "Strong buy needs three points",
			data:               MarketData{RSI: 40, SMA7: 101, SMA25: 100, Uptrend: true, History: history},
			expectedSignal:     SignalStrongBuy,
			expectedConfidence: 87.5,
		},
		{
			name:               "Indicators cancel out",
			data:               MarketData{RSI: 50, SMA7: 101, SMA25: 100, Uptrend: false, History: history},
			expectedSignal:     SignalHold,
			expectedConfidence: 50,
		},
		{
			name:               "Too little history",
			data:               MarketData{RSI: 25, SMA7: 101, SMA25: 100, Uptrend: true, History: history[:24]},
			expectedSignal:     SignalHold,
			expectedConfidence: 50,
		},
	}

	s := &IndicatorStrategy{}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			analysis, err := s.Analyze(context.Background(), tc.data)
			require.NoError(t, err)
			assert.Equal(t, tc.expectedSignal, analysis.Signal)
			assert.InDelta(t, tc.expectedConfidence, analysis.Confidence, 1e-9)
			assert.NotEmpty(t, analysis.Reasoning)
		})
	}
}

func TestMomentumStrategy_Analyze(t *testing.T) {
	testCases := []struct {
		name               string
		prices             []float64
		expectedSignal     Signal
		expectedConfidence float64
	}{
		{name: "Strong rise", prices: moveTo(11, 100, 100.5), expectedSignal: SignalStrongBuy, expectedConfidence: 100},
		{name: "Mild rise", prices: moveTo(11, 100, 100.3), expectedSignal: SignalBuy, expectedConfidence: 80},
		{name: "Mild fall", prices: moveTo(11, 100, 99.7), expectedSignal: SignalSell, expectedConfidence: 80},
		{name: "Strong fall", prices: moveTo(11, 100, 99.5), expectedSignal: SignalStrongSell, expectedConfidence: 100},
		{name: "Below threshold", prices: moveTo(11, 100, 100.1), expectedSignal: SignalHold, expectedConfidence: 60},
		{name: "Too little history", prices: moveTo(10, 100, 120), expectedSignal: SignalHold, expectedConfidence: 50},
	}

	s := &MomentumStrategy{Lookback: 10, Threshold: 0.002}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			analysis, err := s.Analyze(context.Background(), NewMarketData(tc.prices))
			require.NoError(t, err)
			assert.Equal(t, tc.expectedSignal, analysis.Signal)
			assert.InDelta(t, tc.expectedConfidence, analysis.Confidence, 1e-6)
		})
	}
}

func TestRemoteStrategy_Analyze(t *testing.T) {
	testCases := []struct {
		name               string
		status             int
		body               string
		expectedSignal     Signal
		expectedConfidence float64
	}{
		{
			name:               "Advisory signal is used",
			status:             http.StatusOK,
			body:               `{"signal":"STRONG_BUY","confidence":91,"reasoning":"breakout"}`,
			expectedSignal:     SignalStrongBuy,
			expectedConfidence: 91,
		},
		{
			name:               "Server error holds",
			status:             http.StatusInternalServerError,
			body:               `{"error":"overloaded"}`,
			expectedSignal:     SignalHold,
			expectedConfidence: 50,
		},
		{
			name:               "Unknown signal holds",
			status:             http.StatusOK,
			body:               `{"signal":"TO_THE_MOON","confidence":99}`,
			expectedSignal:     SignalHold,
			expectedConfidence: 50,
		},
		{
			name:               "Confidence out of range holds",
			status:             http.StatusOK,
			body:               `{"signal":"SELL","confidence":140}`,
			expectedSignal:     SignalHold,
			expectedConfidence: 50,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				var req advisoryRequest
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "BTCUSDT", req.Symbol)
				assert.Equal(t, 105.0, req.Price)
				assert.Equal(t, "UPTREND", req.Trend)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			s := NewRemoteStrategy(server.URL, "BTCUSDT", zap.NewNop())
			analysis, err := s.Analyze(context.Background(), MarketData{Price: 105, RSI: 40, Uptrend: true})

			require.NoError(t, err)
			assert.Equal(t, tc.expectedSignal, analysis.Signal)
			assert.Equal(t, tc.expectedConfidence, analysis.Confidence)
		})
	}
}

func TestRemoteStrategy_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	s := NewRemoteStrategy(url, "BTCUSDT", zap.NewNop())
	analysis, err := s.Analyze(context.Background(), MarketData{Price: 1})

	require.NoError(t, err)
	assert.Equal(t, SignalHold, analysis.Signal)
}

func TestNewStrategy(t *testing.T) {
	testCases := []struct {
		name         string
		cfg          config.Trading
		expectedName string
		expectErr    bool
	}{
		{name: "Default is indicator", cfg: config.Trading{}, expectedName: IndicatorStrategyName},
		{name: "Momentum", cfg: config.Trading{Strategy: "momentum"}, expectedName: MomentumStrategyName},
		{name: "Remote", cfg: config.Trading{Strategy: "remote", AdvisorURL: "http://localhost:9000/advise"}, expectedName: RemoteStrategyName},
		{name: "Remote without url", cfg: config.Trading{Strategy: "remote"}, expectErr: true},
		{name: "Unknown", cfg: config.Trading{Strategy: "astrology"}, expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewStrategy(&tc.cfg, zap.NewNop())
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedName, s.Name())
		})
	}
}

func TestNewMarketData(t *testing.T) {
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}

	data := NewMarketData(prices)

	assert.Equal(t, 129.0, data.Price)
	assert.True(t, data.Uptrend)
	assert.Equal(t, "UPTREND", data.Trend())
	assert.Equal(t, 100.0, data.RSI)
	assert.InDelta(t, 126.0, data.SMA7, 1e-9)
	assert.InDelta(t, 117.0, data.SMA25, 1e-9)
}
