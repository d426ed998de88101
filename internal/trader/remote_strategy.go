package trader

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const RemoteStrategyName = "remote"

// advisoryRequest is the payload posted to the advisory service.
type advisoryRequest struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	RSI    float64 `json:"rsi"`
	SMA7   float64 `json:"sma7"`
	SMA25  float64 `json:"sma25"`
	Trend  string  `json:"trend"`
}

// RemoteStrategy asks an HTTP advisory service for a signal. Any failure
// degrades to HOLD at 50% confidence so the automation never acts on it.
type RemoteStrategy struct {
	client *resty.Client
	url    string
	symbol string
	logger *zap.Logger
}

// NewRemoteStrategy creates a strategy that posts market data for symbol to url.
func NewRemoteStrategy(url, symbol string, logger *zap.Logger) *RemoteStrategy {
	return &RemoteStrategy{
		client: resty.New().SetTimeout(10 * time.Second),
		url:    url,
		symbol: symbol,
		logger: logger.Named("advisor"),
	}
}

func (s *RemoteStrategy) Name() string {
	return RemoteStrategyName
}

func (s *RemoteStrategy) Analyze(ctx context.Context, data MarketData) (Analysis, error) {
	analysis, err := s.request(ctx, data)
	if err != nil {
		s.logger.Warn("Advisory request failed, holding", zap.Error(err))
		return holdAnalysis("advisory service unavailable, holding"), nil
	}
	return analysis, nil
}

func (s *RemoteStrategy) request(ctx context.Context, data MarketData) (Analysis, error) {
	var analysis Analysis
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(advisoryRequest{
			Symbol: s.symbol,
			Price:  data.Price,
			RSI:    data.RSI,
			SMA7:   data.SMA7,
			SMA25:  data.SMA25,
			Trend:  data.Trend(),
		}).
		SetResult(&analysis).
		Post(s.url)
	if err != nil {
		return Analysis{}, fmt.Errorf("advisory request: %w", err)
	}
	if resp.IsError() {
		return Analysis{}, fmt.Errorf("advisory returned %s", resp.Status())
	}

	switch analysis.Signal {
	case SignalStrongBuy, SignalBuy, SignalHold, SignalSell, SignalStrongSell:
	default:
		return Analysis{}, fmt.Errorf("advisory returned unknown signal %q", analysis.Signal)
	}
	if analysis.Confidence < 0 || analysis.Confidence > 100 {
		return Analysis{}, fmt.Errorf("advisory confidence %.1f out of range", analysis.Confidence)
	}
	return analysis, nil
}
