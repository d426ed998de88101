package trader

import (
	"btc-paper-trader-go/internal/execution"
	"fmt"
	"strings"
	"time"
)

// OrderRequest is the JSON body of a manual order.
type OrderRequest struct {
	Type       string  `json:"type"`
	Amount     float64 `json:"amount"`
	LimitPrice float64 `json:"limit_price,omitempty"`
	StopPrice  float64 `json:"stop_price,omitempty"`
	TakeProfit float64 `json:"take_profit,omitempty"`
	StopLoss   float64 `json:"stop_loss,omitempty"`
}

// ToExecution converts the body into an order variant.
func (r OrderRequest) ToExecution() (execution.OrderRequest, error) {
	switch execution.OrderType(strings.ToUpper(r.Type)) {
	case execution.OrderTypeMarket:
		return execution.MarketOrder{Amount: r.Amount, TakeProfit: r.TakeProfit, StopLoss: r.StopLoss}, nil
	case execution.OrderTypeLimit:
		return execution.LimitOrder{Amount: r.Amount, LimitPrice: r.LimitPrice}, nil
	case execution.OrderTypeStopLimit:
		return execution.StopLimitOrder{Amount: r.Amount, StopPrice: r.StopPrice, LimitPrice: r.LimitPrice}, nil
	case execution.OrderTypeBracket:
		return execution.BracketOrder{Amount: r.Amount, LimitPrice: r.LimitPrice, TakeProfit: r.TakeProfit, StopLoss: r.StopLoss}, nil
	}
	return nil, fmt.Errorf("unknown order type %q", r.Type)
}

// OrderView is a resting order as served by the API.
type OrderView struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Side       string    `json:"side"`
	State      string    `json:"state"`
	Amount     float64   `json:"amount"`
	LimitPrice float64   `json:"limit_price"`
	StopPrice  float64   `json:"stop_price,omitempty"`
	TakeProfit float64   `json:"take_profit,omitempty"`
	StopLoss   float64   `json:"stop_loss,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// PositionView is the open position as served by the API.
type PositionView struct {
	ID              string    `json:"id"`
	Side            string    `json:"side"`
	EntryPrice      float64   `json:"entry_price"`
	Amount          float64   `json:"amount"`
	OpenedAt        time.Time `json:"opened_at"`
	TakeProfitPrice float64   `json:"take_profit_price,omitempty"`
	StopLossPrice   float64   `json:"stop_loss_price,omitempty"`
}

// TradeView is a closed trade as served by the API.
type TradeView struct {
	ID         string    `json:"id"`
	PositionID string    `json:"position_id"`
	Side       string    `json:"side"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Amount     float64   `json:"amount"`
	NetValue   float64   `json:"net_value"`
	Profit     float64   `json:"profit"`
	Reason     string    `json:"reason"`
	OpenedAt   time.Time `json:"opened_at"`
	ClosedAt   time.Time `json:"closed_at"`
}

// AccountView is the account with its risk figures.
type AccountView struct {
	Balance           float64 `json:"balance"`
	StartOfDayBalance float64 `json:"start_of_day_balance"`
	InitialBalance    float64 `json:"initial_balance"`
	DailyPnL          float64 `json:"daily_pnl"`
	Drawdown          float64 `json:"drawdown"`
	TradingEnabled    bool    `json:"trading_enabled"`
}

// StateView is the full engine state as served by the API.
type StateView struct {
	Account   AccountView   `json:"account"`
	Position  *PositionView `json:"position"`
	Orders    []OrderView   `json:"orders"`
	Trades    []TradeView   `json:"trades"`
	AutoTrade bool          `json:"auto_trade"`
	TakenAt   time.Time     `json:"taken_at"`
}

// maxStateTrades bounds the trades included in a state response.
const maxStateTrades = 20

// NewStateView renders snap for the API.
func NewStateView(snap execution.Snapshot) StateView {
	v := StateView{
		Account: AccountView{
			Balance:           snap.Account.Balance,
			StartOfDayBalance: snap.Account.StartOfDayBalance,
			InitialBalance:    snap.Account.InitialBalance,
			DailyPnL:          snap.Account.DailyPnL(),
			Drawdown:          snap.Account.Drawdown(),
			TradingEnabled:    snap.Account.TradingEnabled,
		},
		Orders:    make([]OrderView, 0, len(snap.Orders)),
		Trades:    make([]TradeView, 0, min(len(snap.Trades), maxStateTrades)),
		AutoTrade: snap.Config.AutoTrade,
		TakenAt:   snap.TakenAt,
	}
	if p := snap.Position; p != nil {
		pv := NewPositionView(*p)
		v.Position = &pv
	}
	for _, o := range snap.Orders {
		v.Orders = append(v.Orders, NewOrderView(o))
	}
	for i, t := range snap.Trades {
		if i == maxStateTrades {
			break
		}
		v.Trades = append(v.Trades, NewTradeView(t))
	}
	return v
}

func NewPositionView(p execution.Position) PositionView {
	return PositionView{
		ID:              p.ID,
		Side:            string(p.Side),
		EntryPrice:      p.EntryPrice,
		Amount:          p.Amount,
		OpenedAt:        p.OpenedAt,
		TakeProfitPrice: p.TakeProfitPrice,
		StopLossPrice:   p.StopLossPrice,
	}
}

func NewOrderView(o execution.RestingOrder) OrderView {
	v := OrderView{
		ID:         o.ID,
		Side:       string(o.Side),
		State:      string(o.State),
		LimitPrice: o.LimitPrice(),
		CreatedAt:  o.CreatedAt,
	}
	if o.Request != nil {
		v.Type = string(o.Request.Type())
		v.Amount = o.Request.Quantity()
	}
	switch r := o.Request.(type) {
	case execution.StopLimitOrder:
		v.StopPrice = r.StopPrice
	case execution.BracketOrder:
		v.TakeProfit = r.TakeProfit
		v.StopLoss = r.StopLoss
	}
	return v
}

func NewTradeView(t execution.Trade) TradeView {
	return TradeView{
		ID:         t.ID,
		PositionID: t.PositionID,
		Side:       string(t.Side),
		EntryPrice: t.EntryPrice,
		ExitPrice:  t.ExitPrice,
		Amount:     t.Amount,
		NetValue:   t.NetValue,
		Profit:     t.RealizedProfit,
		Reason:     string(t.Reason),
		OpenedAt:   t.OpenedAt,
		ClosedAt:   t.ClosedAt,
	}
}
