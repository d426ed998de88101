package trader

import (
	"btc-paper-trader-go/internal/binance"
	"btc-paper-trader-go/internal/config"
	"btc-paper-trader-go/internal/execution"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// minAnalysisHistory is the least number of prices the advisor runs on.
	minAnalysisHistory = 20

	// autoConfidence is the confidence a strong signal must exceed to trade.
	autoConfidence = 85

	// autoStake is the share of the balance an automated entry commits.
	autoStake = 0.25

	FeedStream = "stream"
	FeedPoll   = "poll"

	EventAnalysis      execution.EventKind = "analysis"
	EventTradingHalted execution.EventKind = "trading_halted"
)

// PriceStream delivers live candle updates until ctx ends.
type PriceStream interface {
	Run(ctx context.Context, handler binance.KlineHandler) error
}

// Engine drives the execution engine from the live price feed and runs the
// advisory strategy on a timer.
type Engine struct {
	UUID      string
	Name      string
	StartTime time.Time

	logger     *zap.Logger
	cfg        *config.Config
	exec       *execution.Engine
	restClient binance.RestClientInterface
	stream     PriceStream
	strategy   Strategy
	history    *PriceHistory
	notifier   *Notifier

	mu           sync.RWMutex
	price        float64
	lastAnalysis *Analysis
	lastMarket   *MarketData
}

// NewEngine creates a new trading engine. stream may be nil when the feed polls.
func NewEngine(logger *zap.Logger, cfg *config.Config, exec *execution.Engine, restClient binance.RestClientInterface,
	stream PriceStream, strategy Strategy, notifier *Notifier) *Engine {
	return &Engine{
		UUID:       uuid.NewString(),
		Name:       "paper-trader-" + cfg.Trading.Symbol,
		StartTime:  time.Now(),
		logger:     logger.Named("trader"),
		cfg:        cfg,
		exec:       exec,
		restClient: restClient,
		stream:     stream,
		strategy:   strategy,
		history:    NewPriceHistory(maxHistory),
		notifier:   notifier,
	}
}

// Run starts the price feed and the advisor loop and blocks until ctx ends.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("Initializing trading engine...",
		zap.String("symbol", e.cfg.Trading.Symbol),
		zap.String("feed", e.cfg.Trading.FeedMode),
		zap.String("strategy", e.strategy.Name()))

	if !e.cfg.Trading.Running {
		e.logger.Info("Automation halted by configuration")
		e.exec.DisableTrading()
	}
	e.seedHistory(ctx)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.runFeed(ctx) })
	g.Go(func() error { return e.runAdvisor(ctx) })

	err := g.Wait()
	e.logger.Info("Stopping trading engine...")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// seedHistory backfills the price history so the advisor can start right away.
func (e *Engine) seedHistory(ctx context.Context) {
	closes, err := e.restClient.GetKlineCloses(ctx, e.cfg.Trading.Symbol, "1s", maxHistory)
	if err != nil {
		e.logger.Warn("Could not backfill price history", zap.Error(err))
		return
	}
	e.history.Seed(closes)
	if len(closes) > 0 {
		e.setPrice(closes[len(closes)-1])
	}
	e.logger.Info("Price history backfilled", zap.Int("points", len(closes)))
}

func (e *Engine) runFeed(ctx context.Context) error {
	switch e.cfg.Trading.FeedMode {
	case FeedPoll:
		return e.poll(ctx)
	case FeedStream, "":
		if e.stream == nil {
			return fmt.Errorf("stream feed selected but no stream configured")
		}
		return e.stream.Run(ctx, func(k binance.Kline) {
			e.OnPrice(k.Close, k.Closed)
		})
	default:
		return fmt.Errorf("unknown feed mode %q", e.cfg.Trading.FeedMode)
	}
}

func (e *Engine) poll(ctx context.Context) error {
	interval := e.cfg.Trading.TickEvery()
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("Starting price poll loop", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			price, err := e.restClient.GetTickerPrice(ctx, e.cfg.Trading.Symbol)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				e.logger.Warn("Price poll failed", zap.Error(err))
				continue
			}
			e.OnPrice(price, true)
		}
	}
}

// OnPrice records a price update and runs it through the execution engine.
func (e *Engine) OnPrice(price float64, closed bool) execution.TickResult {
	e.history.Update(price, closed)
	e.setPrice(price)

	res, err := e.exec.OnTick(price)
	if err != nil {
		e.logger.Error("Tick processing failed", zap.Float64("price", price), zap.Error(err))
	}
	return res
}

func (e *Engine) runAdvisor(ctx context.Context) error {
	interval := e.cfg.Trading.AnalysisEvery()
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := e.Analyze(ctx); err != nil {
				e.logger.Warn("Analysis failed", zap.Error(err))
			}
		}
	}
}

// Analyze runs the strategy over the current history and acts on strong
// signals when automated trading is on. It returns nil without error when
// trading is halted or the history is too short.
func (e *Engine) Analyze(ctx context.Context) (*Analysis, error) {
	snap := e.exec.Snapshot()
	if !snap.Account.TradingEnabled {
		return nil, nil
	}
	prices := e.history.Values()
	if len(prices) < minAnalysisHistory {
		return nil, nil
	}

	data := NewMarketData(prices)
	analysis, err := e.strategy.Analyze(ctx, data)
	if err != nil {
		e.notifier.Add(EventAnalysis, LevelWarning, "Analysis failed, retrying", time.Now())
		return nil, fmt.Errorf("strategy %s: %w", e.strategy.Name(), err)
	}

	e.mu.Lock()
	e.lastAnalysis = &analysis
	e.lastMarket = &data
	e.mu.Unlock()

	e.logger.Info("Market analysed",
		zap.String("signal", string(analysis.Signal)),
		zap.Float64("confidence", analysis.Confidence),
		zap.Float64("rsi", data.RSI),
		zap.String("trend", data.Trend()))

	e.automate(ctx, data.Price, analysis, snap)
	return &analysis, nil
}

func (e *Engine) automate(ctx context.Context, price float64, analysis Analysis, snap execution.Snapshot) {
	if !snap.Config.AutoTrade || analysis.Confidence <= autoConfidence {
		return
	}
	l := e.logger.With(zap.String("signal", string(analysis.Signal)), zap.Float64("confidence", analysis.Confidence))

	switch {
	case snap.Position == nil && analysis.Signal == SignalStrongBuy:
		amount := snap.Account.Balance * autoStake / price
		l.Info("Automated entry", zap.Float64("amount", amount))
		if _, err := e.exec.PlaceOrder(ctx, price, execution.MarketOrder{Amount: amount}, execution.OriginAutomated); err != nil {
			l.Warn("Automated entry failed", zap.Error(err))
		}
	case snap.Position != nil && analysis.Signal == SignalStrongSell:
		l.Info("Automated exit", zap.String("position_id", snap.Position.ID))
		if _, err := e.exec.ClosePosition(ctx, price, execution.ReasonAISignal, execution.OriginAutomated); err != nil {
			l.Warn("Automated exit failed", zap.Error(err))
		}
	}
}

// PlaceOrder submits a manual order at the current price.
func (e *Engine) PlaceOrder(ctx context.Context, req execution.OrderRequest) (execution.PlaceResult, error) {
	return e.exec.PlaceOrder(ctx, e.CurrentPrice(), req, execution.OriginManual)
}

// ClosePosition manually closes the open position at the current price.
func (e *Engine) ClosePosition(ctx context.Context) (execution.CloseResult, error) {
	return e.exec.ClosePosition(ctx, e.CurrentPrice(), execution.ReasonManual, execution.OriginManual)
}

// CancelOrder cancels a resting order.
func (e *Engine) CancelOrder(id string) bool {
	return e.exec.CancelOrder(id)
}

// EnableTrading resumes automation, clearing a tripped breaker.
func (e *Engine) EnableTrading() {
	e.exec.EnableTrading()
}

// HaltTrading stops automation without touching open positions or orders.
func (e *Engine) HaltTrading() {
	e.exec.DisableTrading()
	e.notifier.Add(EventTradingHalted, LevelInfo, "Automation halted", time.Now())
}

// SetAutoTrade switches automated entries and AI exits on or off.
func (e *Engine) SetAutoTrade(on bool) {
	cfg := e.exec.Config()
	cfg.AutoTrade = on
	e.exec.Reconfigure(cfg)
}

// CurrentPrice is the latest price seen on the feed, or 0 before the first one.
func (e *Engine) CurrentPrice() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.price
}

func (e *Engine) setPrice(p float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.price = p
}

// LastAnalysis returns the most recent strategy output and the market data it
// was computed from, or nils before the first run.
func (e *Engine) LastAnalysis() (*Analysis, *MarketData) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastAnalysis, e.lastMarket
}

// Snapshot returns the execution state.
func (e *Engine) Snapshot() execution.Snapshot {
	return e.exec.Snapshot()
}

// Notifications returns recent notifications, newest first.
func (e *Engine) Notifications() []Notification {
	return e.notifier.Recent()
}
