package database

import (
	"btc-paper-trader-go/internal/execution"
	"btc-paper-trader-go/internal/models"
	"fmt"
)

func accountToModel(a execution.Account, cfg execution.Config) models.AccountState {
	return models.AccountState{
		ID:                models.AccountStateID,
		Balance:           a.Balance,
		StartOfDayBalance: a.StartOfDayBalance,
		InitialBalance:    a.InitialBalance,
		Day:               a.Day,
		TradingEnabled:    a.TradingEnabled,
		FeeRate:           cfg.FeeRate,
		Slippage:          cfg.Slippage,
		TakeProfitPct:     cfg.TakeProfitPct,
		StopLossPct:       cfg.StopLossPct,
		MaxDailyLoss:      cfg.MaxDailyLoss,
		MaxDrawdownPct:    cfg.MaxDrawdownPct,
		AutoTrade:         cfg.AutoTrade,
	}
}

func accountFromModel(m models.AccountState) (execution.Account, execution.Config) {
	acct := execution.Account{
		Balance:           m.Balance,
		StartOfDayBalance: m.StartOfDayBalance,
		InitialBalance:    m.InitialBalance,
		Day:               m.Day,
		TradingEnabled:    m.TradingEnabled,
	}
	cfg := execution.Config{
		FeeRate:        m.FeeRate,
		Slippage:       m.Slippage,
		TakeProfitPct:  m.TakeProfitPct,
		StopLossPct:    m.StopLossPct,
		MaxDailyLoss:   m.MaxDailyLoss,
		MaxDrawdownPct: m.MaxDrawdownPct,
		AutoTrade:      m.AutoTrade,
	}
	return acct, cfg
}

func positionToModel(p execution.Position) models.Position {
	return models.Position{
		ID:              p.ID,
		Side:            string(p.Side),
		EntryPrice:      p.EntryPrice,
		Amount:          p.Amount,
		OpenedAt:        p.OpenedAt,
		TakeProfitPrice: p.TakeProfitPrice,
		StopLossPrice:   p.StopLossPrice,
	}
}

func positionFromModel(m models.Position) execution.Position {
	return execution.Position{
		ID:              m.ID,
		Side:            execution.Side(m.Side),
		EntryPrice:      m.EntryPrice,
		Amount:          m.Amount,
		OpenedAt:        m.OpenedAt,
		TakeProfitPrice: m.TakeProfitPrice,
		StopLossPrice:   m.StopLossPrice,
		State:           execution.PositionStateOpen,
	}
}

func orderToModel(o execution.RestingOrder, seq int) models.Order {
	m := models.Order{
		ID:        o.ID,
		Seq:       seq,
		Side:      string(o.Side),
		State:     string(o.State),
		CreatedAt: o.CreatedAt,
	}
	if o.Request != nil {
		m.Type = string(o.Request.Type())
		m.Amount = o.Request.Quantity()
	}
	switch r := o.Request.(type) {
	case execution.LimitOrder:
		m.LimitPrice = r.LimitPrice
	case execution.StopLimitOrder:
		m.LimitPrice = r.LimitPrice
		m.StopPrice = r.StopPrice
	case execution.BracketOrder:
		m.LimitPrice = r.LimitPrice
		m.TakeProfit = r.TakeProfit
		m.StopLoss = r.StopLoss
	}
	return m
}

func orderFromModel(m models.Order) (execution.RestingOrder, error) {
	var req execution.OrderRequest
	switch execution.OrderType(m.Type) {
	case execution.OrderTypeLimit:
		req = execution.LimitOrder{Amount: m.Amount, LimitPrice: m.LimitPrice}
	case execution.OrderTypeStopLimit:
		req = execution.StopLimitOrder{Amount: m.Amount, StopPrice: m.StopPrice, LimitPrice: m.LimitPrice}
	case execution.OrderTypeBracket:
		req = execution.BracketOrder{Amount: m.Amount, LimitPrice: m.LimitPrice, TakeProfit: m.TakeProfit, StopLoss: m.StopLoss}
	default:
		return execution.RestingOrder{}, &execution.InvariantViolation{
			Detail: fmt.Sprintf("stored order %s has non-resting type %q", m.ID, m.Type)}
	}
	return execution.RestingOrder{
		ID:        m.ID,
		Request:   req,
		Side:      execution.Side(m.Side),
		State:     execution.OrderState(m.State),
		CreatedAt: m.CreatedAt,
	}, nil
}

func tradeToModel(t execution.Trade, symbol string) models.Trade {
	return models.Trade{
		TradeID:    t.ID,
		PositionID: t.PositionID,
		Symbol:     symbol,
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

func tradeFromModel(m models.Trade) execution.Trade {
	return execution.Trade{
		ID:             m.TradeID,
		PositionID:     m.PositionID,
		Side:           execution.Side(m.Side),
		EntryPrice:     m.EntryPrice,
		ExitPrice:      m.ExitPrice,
		Amount:         m.Amount,
		OpenedAt:       m.OpenedAt,
		ClosedAt:       m.ClosedAt,
		RealizedProfit: m.Profit,
		NetValue:       m.NetValue,
		Reason:         execution.CloseReason(m.Reason),
	}
}
