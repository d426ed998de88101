package trader

import (
	"btc-paper-trader-go/internal/config"
	"btc-paper-trader-go/internal/indicators"
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Signal is the directional call of a strategy.
type Signal string

const (
	SignalStrongBuy  Signal = "STRONG_BUY"
	SignalBuy        Signal = "BUY"
	SignalHold       Signal = "HOLD"
	SignalSell       Signal = "SELL"
	SignalStrongSell Signal = "STRONG_SELL"
)

// Analysis is the output of one strategy run.
type Analysis struct {
	Signal     Signal  `json:"signal"`
	Confidence float64 `json:"confidence"` // 0-100
	Reasoning  string  `json:"reasoning"`
	Note       string  `json:"note,omitempty"`
}

// holdAnalysis is reported when a strategy cannot reach a conclusion.
func holdAnalysis(reason string) Analysis {
	return Analysis{Signal: SignalHold, Confidence: 50, Reasoning: reason}
}

// MarketData is the indicator view of the price history handed to strategies.
type MarketData struct {
	Price   float64   `json:"price"`
	RSI     float64   `json:"rsi"`
	SMA7    float64   `json:"sma7"`
	SMA25   float64   `json:"sma25"`
	Uptrend bool      `json:"uptrend"`
	History []float64 `json:"-"`
}

// Trend is the label of the short-term direction.
func (m MarketData) Trend() string {
	if m.Uptrend {
		return "UPTREND"
	}
	return "DOWNTREND"
}

// trendLookback is how many points back the trend compares against.
const trendLookback = 10

// NewMarketData computes the indicators over prices. prices must not be empty.
func NewMarketData(prices []float64) MarketData {
	return MarketData{
		Price:   prices[len(prices)-1],
		RSI:     indicators.RSI(prices, 14),
		SMA7:    indicators.SMA(prices, 7),
		SMA25:   indicators.SMA(prices, 25),
		Uptrend: indicators.Trend(prices, trendLookback),
		History: prices,
	}
}

// Strategy produces trading signals from market data.
type Strategy interface {
	// Name returns the unique name of the strategy.
	Name() string

	// Analyze is called periodically by the engine with the latest indicators.
	Analyze(ctx context.Context, data MarketData) (Analysis, error)
}

// NewStrategy builds the strategy selected in the trading configuration.
func NewStrategy(cfg *config.Trading, logger *zap.Logger) (Strategy, error) {
	switch cfg.Strategy {
	case "", IndicatorStrategyName:
		return &IndicatorStrategy{}, nil
	case MomentumStrategyName:
		return &MomentumStrategy{Lookback: trendLookback, Threshold: 0.002}, nil
	case RemoteStrategyName:
		if cfg.AdvisorURL == "" {
			return nil, fmt.Errorf("strategy %q requires trading.advisor_url", cfg.Strategy)
		}
		return NewRemoteStrategy(cfg.AdvisorURL, cfg.Symbol, logger), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", cfg.Strategy)
	}
}

// signalFromScore maps a signed score to a signal. strong is the magnitude at
// which the call becomes a strong one.
func signalFromScore(score, strong float64) Signal {
	switch {
	case score >= strong:
		return SignalStrongBuy
	case score > 0:
		return SignalBuy
	case score <= -strong:
		return SignalStrongSell
	case score < 0:
		return SignalSell
	default:
		return SignalHold
	}
}
