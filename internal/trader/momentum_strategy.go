package trader

import (
	"btc-paper-trader-go/internal/indicators"
	"context"
	"fmt"
	"math"
)

const MomentumStrategyName = "momentum"

// MomentumStrategy follows the relative price change over Lookback points.
// A move of Threshold is a plain call, twice that a strong one.
type MomentumStrategy struct {
	Lookback  int
	Threshold float64
}

func (s *MomentumStrategy) Name() string {
	return MomentumStrategyName
}

func (s *MomentumStrategy) Analyze(_ context.Context, data MarketData) (Analysis, error) {
	if len(data.History) <= s.Lookback || s.Threshold <= 0 {
		return holdAnalysis("not enough history for momentum"), nil
	}

	m := indicators.Momentum(data.History, s.Lookback)
	score := m / s.Threshold
	if math.Abs(score) < 1 {
		score = 0
	}

	return Analysis{
		Signal:     signalFromScore(score, 2),
		Confidence: math.Min(100, 50+20*math.Abs(m/s.Threshold)),
		Reasoning:  fmt.Sprintf("%.3f%% over %d points", m*100, s.Lookback),
	}, nil
}
