package execution

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Persister durably stores engine snapshots.
type Persister interface {
	SaveSnapshot(snap Snapshot) error
}

// Notifier receives engine events. It is called outside the engine lock.
type Notifier interface {
	Notify(ev Event)
}

// PlaceResult carries the opened position for market orders or the accepted
// resting order otherwise.
type PlaceResult struct {
	Position *Position
	Order    *RestingOrder
	Cost     float64
}

// CloseResult is the outcome of a close request. Closed is false when there was
// no matching open position and nothing changed.
type CloseResult struct {
	Trade    *Trade
	NetValue float64
	Closed   bool
}

// TickResult summarises what one price update did.
type TickResult struct {
	Filled         *Position
	Closed         *Trade
	Triggered      []string
	BreakerTripped BreakerReason
	Rejections     []error
}

// Engine is the single entry point to the execution backend. All state lives
// behind one mutex so ticks and request resolutions never interleave.
type Engine struct {
	logger    *zap.Logger
	faults    FaultPolicy
	clock     Clock
	persister Persister
	notifier  Notifier
	newID     func() string

	mu    sync.Mutex
	cfg   Config
	risk  RiskController
	state EngineState

	inFlight atomic.Int64
}

// Option customises an Engine.
type Option func(*Engine)

func WithLogger(l *zap.Logger) Option        { return func(e *Engine) { e.logger = l } }
func WithFaults(f FaultPolicy) Option        { return func(e *Engine) { e.faults = f } }
func WithClock(c Clock) Option               { return func(e *Engine) { e.clock = c } }
func WithPersister(p Persister) Option       { return func(e *Engine) { e.persister = p } }
func WithNotifier(n Notifier) Option         { return func(e *Engine) { e.notifier = n } }
func WithIDGenerator(f func() string) Option { return func(e *Engine) { e.newID = f } }

// NewAccount returns a fresh account funded with balance and trading enabled.
func NewAccount(balance float64, now time.Time) Account {
	return Account{
		Balance:           balance,
		StartOfDayBalance: balance,
		InitialBalance:    balance,
		Day:               startOfDay(now),
		TradingEnabled:    true,
	}
}

// NewEngine creates an engine owning state.
func NewEngine(cfg Config, state EngineState, opts ...Option) *Engine {
	e := &Engine{
		logger: zap.NewNop(),
		faults: NoFaults{},
		clock:  RealClock{},
		newID:  uuid.NewString,
		cfg:    cfg,
		risk:   NewRiskController(cfg),
		state:  state.clone(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Named("execution")
	return e
}

// PlaceOrder validates req, waits out the simulated venue latency and then
// applies it against the state current at resolution time.
func (e *Engine) PlaceOrder(ctx context.Context, currentPrice float64, req OrderRequest, origin Origin) (PlaceResult, error) {
	l := e.logger.With(zap.String("origin", origin.String()), zap.String("type", typeOf(req)))

	e.mu.Lock()
	err := e.checkPlaceLocked(currentPrice, req, origin)
	e.mu.Unlock()
	if err != nil {
		l.Info("Order rejected", zap.Error(err))
		e.notify(e.rejection(err, "order rejected"))
		return PlaceResult{}, err
	}

	e.inFlight.Add(1)
	defer e.inFlight.Add(-1)

	if err := simulateVenue(ctx, e.faults, OpPlaceOrder); err != nil {
		l.Warn("Order failed at venue", zap.Error(err))
		e.notify(e.rejection(err, "order failed"))
		return PlaceResult{}, err
	}

	var events []Event
	defer func() { e.notify(events...) }()

	e.mu.Lock()
	defer e.mu.Unlock()

	// The account may have moved while the request was in flight.
	if err := e.checkPlaceLocked(currentPrice, req, origin); err != nil {
		l.Info("Order rejected at resolution", zap.Error(err))
		events = append(events, e.rejection(err, "order rejected"))
		return PlaceResult{}, err
	}

	now := e.clock.Now()
	var result PlaceResult

	if m, ok := req.(MarketOrder); ok {
		price := executionPrice(m, currentPrice, e.cfg.Slippage)
		cost := price * m.Amount
		pos := &Position{
			ID:              e.newID(),
			Side:            SideBuy,
			EntryPrice:      price,
			Amount:          m.Amount * (1 - e.cfg.FeeRate),
			OpenedAt:        now,
			TakeProfitPrice: m.TakeProfit,
			StopLossPrice:   m.StopLoss,
		}
		if err := openPosition(&e.state, pos); err != nil {
			l.Error("Refusing to open a second position", zap.Error(err))
			return PlaceResult{}, err
		}
		e.state.Account.Balance -= cost

		opened := *pos
		result = PlaceResult{Position: &opened, Cost: cost}
		events = append(events, Event{Kind: EventFill, At: now, Position: &opened,
			Message: "market buy executed"})
		l.Info("Market order filled",
			zap.String("position_id", pos.ID),
			zap.Float64("price", price),
			zap.Float64("amount", pos.Amount),
			zap.Float64("cost", cost))
	} else {
		order := RestingOrder{
			ID:        e.newID(),
			Request:   req,
			Side:      SideBuy,
			State:     OrderStatePending,
			CreatedAt: now,
		}
		e.state.Orders = append(e.state.Orders, order)
		result = PlaceResult{Order: &order}
		events = append(events, Event{Kind: EventOrderPlaced, At: now, Order: &order,
			Message: "pending order placed"})
		l.Info("Resting order accepted", zap.String("order_id", order.ID))
	}

	if br := e.risk.Evaluate(&e.state.Account); br != BreakerNone {
		events = append(events, e.breaker(br, now))
	}
	e.persistLocked(now)
	return result, nil
}

func (e *Engine) checkPlaceLocked(currentPrice float64, req OrderRequest, origin Origin) error {
	if origin == OriginAutomated && !e.state.Account.TradingEnabled {
		return &ValidationError{Err: ErrTradingDisabled}
	}
	if _, ok := req.(MarketOrder); ok && e.state.Position != nil {
		return &ValidationError{Err: ErrPositionOpen, Detail: e.state.Position.ID}
	}
	return Validate(e.state.Account.Balance, currentPrice, e.cfg.Slippage, req)
}

// ClosePosition closes the open position at currentPrice after the simulated
// venue latency. With no open position it is a no-op. The close only resolves if
// the position it was issued for is still open.
func (e *Engine) ClosePosition(ctx context.Context, currentPrice float64, reason CloseReason, origin Origin) (CloseResult, error) {
	l := e.logger.With(zap.String("origin", origin.String()), zap.String("reason", string(reason)))

	e.mu.Lock()
	var target string
	if e.state.Position != nil {
		target = e.state.Position.ID
	}
	enabled := e.state.Account.TradingEnabled
	e.mu.Unlock()

	if target == "" {
		l.Debug("Close requested with no open position")
		return CloseResult{}, nil
	}
	if origin == OriginAutomated && !enabled {
		err := &ValidationError{Err: ErrTradingDisabled}
		e.notify(e.rejection(err, "close rejected"))
		return CloseResult{}, err
	}
	if currentPrice <= 0 {
		err := rejectf(ErrInvalidPrice, "no market price available")
		e.notify(e.rejection(err, "close rejected"))
		return CloseResult{}, err
	}

	e.inFlight.Add(1)
	defer e.inFlight.Add(-1)

	if err := simulateVenue(ctx, e.faults, OpClosePosition); err != nil {
		l.Warn("Close failed at venue", zap.Error(err))
		e.notify(e.rejection(err, "close failed"))
		return CloseResult{}, err
	}

	var events []Event
	defer func() { e.notify(events...) }()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Position == nil || e.state.Position.ID != target {
		l.Info("Position already closed before the request resolved", zap.String("position_id", target))
		return CloseResult{}, nil
	}
	// The breaker may have tripped while the request was in flight.
	if origin == OriginAutomated && !e.state.Account.TradingEnabled {
		err := &ValidationError{Err: ErrTradingDisabled}
		l.Info("Close rejected at resolution", zap.Error(err))
		events = append(events, e.rejection(err, "close rejected"))
		return CloseResult{}, err
	}

	now := e.clock.Now()
	trade, evs := e.closeLocked(currentPrice, reason, now)
	events = append(events, evs...)
	e.persistLocked(now)
	return CloseResult{Trade: &trade, NetValue: trade.NetValue, Closed: true}, nil
}

// closeLocked closes the open position and runs the risk check. e.mu must be held.
func (e *Engine) closeLocked(price float64, reason CloseReason, now time.Time) (Trade, []Event) {
	trade := ComputeClose(e.state.Position, price, e.cfg, reason, now)
	trade.ID = e.newID()
	closePosition(&e.state, trade)

	e.logger.Info("Position closed",
		zap.String("position_id", trade.PositionID),
		zap.String("reason", string(reason)),
		zap.Float64("exit_price", trade.ExitPrice),
		zap.Float64("net_value", trade.NetValue),
		zap.Float64("profit", trade.RealizedProfit))

	events := []Event{{Kind: EventClose, At: now, Trade: &trade, Message: "position closed"}}
	if br := e.risk.Evaluate(&e.state.Account); br != BreakerNone {
		events = append(events, e.breaker(br, now))
	}
	return trade, events
}

// OnTick runs one price update through matching, exit evaluation and the risk check.
func (e *Engine) OnTick(price float64) (TickResult, error) {
	var res TickResult
	var events []Event
	defer func() { e.notify(events...) }()

	e.mu.Lock()
	defer e.mu.Unlock()

	if price <= 0 {
		err := rejectf(ErrInvalidPrice, "tick price %.8f", price)
		res.Rejections = append(res.Rejections, err)
		return res, nil
	}

	now := e.clock.Now()
	dirty := false

	if e.risk.RollDay(&e.state.Account, now) {
		e.logger.Info("New trading day, start-of-day balance reset",
			zap.Float64("balance", e.state.Account.Balance))
		dirty = true
	}

	// Only positions open before this tick are evaluated for exit.
	held := e.state.Position

	if held == nil && len(e.state.Orders) > 0 {
		m, err := Match(e.state.Orders, price, e.cfg.FeeRate)
		if err != nil {
			e.logger.Error("Matching aborted", zap.Error(err))
			if dirty {
				e.persistLocked(now)
			}
			return res, err
		}
		if len(m.Triggered) > 0 || m.Fill != nil {
			dirty = true
		}
		e.state.Orders = m.Remaining
		for _, o := range m.Triggered {
			res.Triggered = append(res.Triggered, o.ID)
			events = append(events, Event{Kind: EventTrigger, At: now, Message: "stop triggered", Order: &o})
			e.logger.Info("Stop triggered", zap.String("order_id", o.ID), zap.Float64("price", price))
		}

		if f := m.Fill; f != nil {
			if f.Cost > e.state.Account.Balance {
				err := rejectf(ErrInsufficientFunds, "fill of %s costs %.2f, balance %.2f",
					f.Order.ID, f.Cost, e.state.Account.Balance)
				res.Rejections = append(res.Rejections, err)
				events = append(events, e.rejection(err, "fill rejected"))
				e.logger.Warn("Dropping unaffordable order", zap.String("order_id", f.Order.ID), zap.Error(err))
			} else {
				pos := &Position{
					ID:         e.newID(),
					Side:       f.Order.Side,
					EntryPrice: f.Price,
					Amount:     f.NetAmount,
					OpenedAt:   now,
				}
				if b, ok := f.Order.Request.(BracketOrder); ok {
					pos.TakeProfitPrice = b.TakeProfit
					pos.StopLossPrice = b.StopLoss
				}
				if err := openPosition(&e.state, pos); err != nil {
					e.logger.Error("Refusing fill", zap.Error(err))
					return res, err
				}
				e.state.Account.Balance -= f.Cost

				filled := *pos
				res.Filled = &filled
				events = append(events, Event{Kind: EventFill, At: now, Position: &filled, Order: &f.Order,
					Message: string(f.Order.Request.Type()) + " order filled"})
				e.logger.Info("Resting order filled",
					zap.String("order_id", f.Order.ID),
					zap.String("position_id", pos.ID),
					zap.Float64("price", f.Price),
					zap.Float64("amount", f.NetAmount))
			}
		}
	}

	if held != nil {
		if reason, ok := EvaluateExit(held, price, e.cfg, e.state.Account.TradingEnabled); ok {
			if err := e.faults.Failure(OpClosePosition); err != nil {
				res.Rejections = append(res.Rejections, err)
				events = append(events, e.rejection(err, "close failed"))
				e.logger.Warn("Exit failed at venue, will retry next tick",
					zap.String("reason", string(reason)), zap.Error(err))
			} else {
				trade, evs := e.closeLocked(price, reason, now)
				res.Closed = &trade
				events = append(events, evs...)
				dirty = true
			}
		}
	}

	if br := e.risk.Evaluate(&e.state.Account); br != BreakerNone {
		events = append(events, e.breaker(br, now))
		dirty = true
	}
	for _, ev := range events {
		if ev.Kind == EventBreaker {
			res.BreakerTripped = ev.Breaker
		}
	}

	if dirty {
		e.persistLocked(now)
	}
	return res, nil
}

// CancelOrder removes a resting order. It returns false if the order is unknown
// or has already filled.
func (e *Engine) CancelOrder(id string) bool {
	var events []Event
	defer func() { e.notify(events...) }()

	e.mu.Lock()
	defer e.mu.Unlock()

	for i, o := range e.state.Orders {
		if o.ID != id {
			continue
		}
		e.state.Orders = append(e.state.Orders[:i:i], e.state.Orders[i+1:]...)
		now := e.clock.Now()
		events = append(events, Event{Kind: EventOrderCancelled, At: now, Order: &o, Message: "order cancelled"})
		e.logger.Info("Order cancelled", zap.String("order_id", id), zap.String("state", string(o.State)))
		e.persistLocked(now)
		return true
	}
	e.logger.Debug("Cancel ignored, order not resting", zap.String("order_id", id))
	return false
}

// EnableTrading re-arms trading after a breaker trip. Only a human or a
// configuration change may call it.
func (e *Engine) EnableTrading() {
	var events []Event
	defer func() { e.notify(events...) }()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Account.TradingEnabled {
		return
	}
	now := e.clock.Now()
	e.state.Account.TradingEnabled = true
	events = append(events, Event{Kind: EventTradingEnabled, At: now, Message: "trading enabled"})
	e.logger.Info("Trading re-enabled")
	e.persistLocked(now)
}

// DisableTrading halts automated trading without a breach.
func (e *Engine) DisableTrading() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.Account.TradingEnabled {
		return
	}
	e.state.Account.TradingEnabled = false
	e.logger.Info("Trading halted")
	e.persistLocked(e.clock.Now())
}

// Reconfigure replaces the engine configuration.
func (e *Engine) Reconfigure(cfg Config) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cfg = cfg
	e.risk = NewRiskController(cfg)
	e.logger.Info("Engine reconfigured",
		zap.Float64("max_daily_loss", cfg.MaxDailyLoss),
		zap.Float64("max_drawdown_pct", cfg.MaxDrawdownPct),
		zap.Bool("auto_trade", cfg.AutoTrade))
	e.persistLocked(e.clock.Now())
}

// Config returns the current configuration.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// Snapshot returns a deep copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked(e.clock.Now())
}

// InFlight is the number of place/close requests waiting on the venue.
func (e *Engine) InFlight() int {
	return int(e.inFlight.Load())
}

func (e *Engine) snapshotLocked(now time.Time) Snapshot {
	st := e.state.clone()
	return Snapshot{
		Account:  st.Account,
		Position: st.Position,
		Orders:   st.Orders,
		Trades:   st.Trades,
		Config:   e.cfg,
		TakenAt:  now,
	}
}

func (e *Engine) persistLocked(now time.Time) {
	if e.persister == nil {
		return
	}
	if err := e.persister.SaveSnapshot(e.snapshotLocked(now)); err != nil {
		e.logger.Error("Failed to persist engine snapshot", zap.Error(err))
	}
}

func (e *Engine) notify(events ...Event) {
	if e.notifier == nil {
		return
	}
	for _, ev := range events {
		e.notifier.Notify(ev)
	}
}

func (e *Engine) rejection(err error, msg string) Event {
	return Event{Kind: EventRejection, At: e.clock.Now(), Err: err, Message: msg}
}

func (e *Engine) breaker(br BreakerReason, now time.Time) Event {
	e.logger.Warn("Circuit breaker tripped",
		zap.String("reason", string(br)),
		zap.Float64("balance", e.state.Account.Balance),
		zap.Float64("daily_pnl", e.state.Account.DailyPnL()),
		zap.Float64("drawdown", e.state.Account.Drawdown()))
	return Event{Kind: EventBreaker, At: now, Breaker: br, Message: "circuit breaker tripped"}
}
