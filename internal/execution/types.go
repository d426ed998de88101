// Package execution implements the simulated brokerage backend: order validation,
// fault injection, resting-order matching, the single open position and the
// account circuit breaker.
package execution

import "time"

// Side is the direction of an order or trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType enumerates the order variants accepted by the engine.
type OrderType string

const (
	OrderTypeMarket    OrderType = "MARKET"
	OrderTypeLimit     OrderType = "LIMIT"
	OrderTypeStopLimit OrderType = "STOP_LIMIT"
	OrderTypeBracket   OrderType = "BRACKET"
)

// OrderState is the lifecycle state of a resting order.
type OrderState string

const (
	OrderStatePending   OrderState = "PENDING"
	OrderStateTriggered OrderState = "TRIGGERED"
)

// PositionState is the lifecycle state of a position.
type PositionState string

const (
	PositionStateOpen   PositionState = "OPEN"
	PositionStateClosed PositionState = "CLOSED"
)

// CloseReason tags why a position was closed.
type CloseReason string

const (
	ReasonBracketTP CloseReason = "BRACKET_TP"
	ReasonBracketSL CloseReason = "BRACKET_SL"
	ReasonAutoTP    CloseReason = "AUTO_TP"
	ReasonAutoSL    CloseReason = "AUTO_SL"
	ReasonManual    CloseReason = "MANUAL"
	ReasonAISignal  CloseReason = "AI_SIGNAL"
)

// BreakerReason tags which risk limit tripped the circuit breaker.
type BreakerReason string

const (
	BreakerNone        BreakerReason = ""
	BreakerDailyLoss   BreakerReason = "DAILY_LOSS"
	BreakerMaxDrawdown BreakerReason = "MAX_DRAWDOWN"
)

// Origin distinguishes requests made by a human from those made by automation.
// A tripped breaker only blocks automated requests.
type Origin int

const (
	OriginManual Origin = iota
	OriginAutomated
)

func (o Origin) String() string {
	if o == OriginAutomated {
		return "automated"
	}
	return "manual"
}

// OrderRequest is one of MarketOrder, LimitOrder, StopLimitOrder or BracketOrder.
type OrderRequest interface {
	Type() OrderType
	Quantity() float64
}

// MarketOrder buys immediately at the current price plus slippage.
// TakeProfit and StopLoss are optional (zero means unset).
type MarketOrder struct {
	Amount     float64
	TakeProfit float64
	StopLoss   float64
}

// LimitOrder buys once the price trades at or below LimitPrice.
type LimitOrder struct {
	Amount     float64
	LimitPrice float64
}

// StopLimitOrder arms once the price reaches StopPrice and then behaves as a
// limit order at LimitPrice.
type StopLimitOrder struct {
	Amount     float64
	StopPrice  float64
	LimitPrice float64
}

// BracketOrder is a limit entry that opens a position carrying exit prices.
type BracketOrder struct {
	Amount     float64
	LimitPrice float64
	TakeProfit float64
	StopLoss   float64
}

func (MarketOrder) Type() OrderType    { return OrderTypeMarket }
func (LimitOrder) Type() OrderType     { return OrderTypeLimit }
func (StopLimitOrder) Type() OrderType { return OrderTypeStopLimit }
func (BracketOrder) Type() OrderType   { return OrderTypeBracket }

func (o MarketOrder) Quantity() float64    { return o.Amount }
func (o LimitOrder) Quantity() float64     { return o.Amount }
func (o StopLimitOrder) Quantity() float64 { return o.Amount }
func (o BracketOrder) Quantity() float64   { return o.Amount }

// RestingOrder is an accepted non-market order waiting for its price condition.
type RestingOrder struct {
	ID        string
	Request   OrderRequest
	Side      Side
	State     OrderState
	CreatedAt time.Time
}

// LimitPrice returns the price the order fills at, or 0 for variants without one.
func (o RestingOrder) LimitPrice() float64 {
	switch r := o.Request.(type) {
	case LimitOrder:
		return r.LimitPrice
	case StopLimitOrder:
		return r.LimitPrice
	case BracketOrder:
		return r.LimitPrice
	}
	return 0
}

// Position is the single open holding of the account.
type Position struct {
	ID              string
	Side            Side
	EntryPrice      float64
	Amount          float64
	OpenedAt        time.Time
	TakeProfitPrice float64
	StopLossPrice   float64
	State           PositionState
}

// HasBracket reports whether the position carries explicit exit prices.
func (p *Position) HasBracket() bool {
	return p.TakeProfitPrice > 0 || p.StopLossPrice > 0
}

// Trade is the immutable record of a closed position.
type Trade struct {
	ID             string
	PositionID     string
	Side           Side
	EntryPrice     float64
	ExitPrice      float64
	Amount         float64
	OpenedAt       time.Time
	ClosedAt       time.Time
	RealizedProfit float64
	NetValue       float64
	Reason         CloseReason
}

// Account is the singleton cash account.
type Account struct {
	Balance           float64
	StartOfDayBalance float64
	InitialBalance    float64
	// Day is the local calendar day StartOfDayBalance belongs to.
	Day            time.Time
	TradingEnabled bool
}

// DailyPnL is the balance change since the start of the day.
func (a Account) DailyPnL() float64 {
	return a.Balance - a.StartOfDayBalance
}

// Drawdown is the fractional decline of the balance from the initial balance.
func (a Account) Drawdown() float64 {
	if a.InitialBalance <= 0 {
		return 0
	}
	return (a.InitialBalance - a.Balance) / a.InitialBalance
}

// Config holds the tunable parameters of the engine.
type Config struct {
	FeeRate        float64
	Slippage       float64
	TakeProfitPct  float64
	StopLossPct    float64
	MaxDailyLoss   float64
	MaxDrawdownPct float64
	AutoTrade      bool
}

// DefaultConfig mirrors the terminal's stock settings.
func DefaultConfig() Config {
	return Config{
		FeeRate:        0.001,
		Slippage:       0.0005,
		TakeProfitPct:  0.015,
		StopLossPct:    0.005,
		MaxDailyLoss:   500,
		MaxDrawdownPct: 0.05,
	}
}

// EngineState is everything the facade owns.
type EngineState struct {
	Account  Account
	Position *Position
	Orders   []RestingOrder
	Trades   []Trade
}

// Snapshot is a deep copy of the engine state handed to collaborators.
type Snapshot struct {
	Account  Account
	Position *Position
	Orders   []RestingOrder
	Trades   []Trade
	Config   Config
	TakenAt  time.Time
}

func (s EngineState) clone() EngineState {
	out := EngineState{Account: s.Account}
	if s.Position != nil {
		p := *s.Position
		out.Position = &p
	}
	out.Orders = append([]RestingOrder(nil), s.Orders...)
	out.Trades = append([]Trade(nil), s.Trades...)
	return out
}

// State returns the engine state captured by the snapshot, for restoring an
// engine after a restart.
func (s Snapshot) State() EngineState {
	return EngineState{
		Account:  s.Account,
		Position: s.Position,
		Orders:   s.Orders,
		Trades:   s.Trades,
	}.clone()
}
