package trader

import (
	"context"
	"fmt"
	"math"
)

const IndicatorStrategyName = "indicator"

// IndicatorStrategy scores RSI extremes, the SMA7/SMA25 cross and the short
// trend. Each agreeing indicator adds one point of conviction.
type IndicatorStrategy struct{}

func (s *IndicatorStrategy) Name() string {
	return IndicatorStrategyName
}

func (s *IndicatorStrategy) Analyze(_ context.Context, data MarketData) (Analysis, error) {
	if len(data.History) < 25 {
		return holdAnalysis("not enough history for the slow average"), nil
	}

	score := 0.0
	switch {
	case data.RSI < 30:
		score += 2
	case data.RSI < 45:
		score++
	case data.RSI > 70:
		score -= 2
	case data.RSI > 55:
		score--
	}
	if data.SMA7 > data.SMA25 {
		score++
	} else if data.SMA7 < data.SMA25 {
		score--
	}
	if data.Uptrend {
		score++
	} else {
		score--
	}

	// |score| of 4 is full agreement.
	confidence := math.Min(100, 50+12.5*math.Abs(score))
	return Analysis{
		Signal:     signalFromScore(score, 3),
		Confidence: confidence,
		Reasoning: fmt.Sprintf("RSI %.1f, SMA7 %.2f vs SMA25 %.2f, %s",
			data.RSI, data.SMA7, data.SMA25, data.Trend()),
	}, nil
}
