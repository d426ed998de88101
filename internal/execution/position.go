package execution

import "time"

// EvaluateExit decides whether the open position should be closed at price.
// Bracket prices take precedence; positions without a bracket fall back to the
// percentage strategy when automated exits are allowed. Take-profit is checked
// before stop-loss.
func EvaluateExit(pos *Position, price float64, cfg Config, automated bool) (CloseReason, bool) {
	if pos == nil || pos.State != PositionStateOpen {
		return "", false
	}

	if pos.HasBracket() {
		if pos.TakeProfitPrice > 0 && price >= pos.TakeProfitPrice {
			return ReasonBracketTP, true
		}
		if pos.StopLossPrice > 0 && price <= pos.StopLossPrice {
			return ReasonBracketSL, true
		}
		return "", false
	}

	if !automated || pos.EntryPrice <= 0 {
		return "", false
	}
	pnlPct := (price - pos.EntryPrice) / pos.EntryPrice
	if cfg.TakeProfitPct > 0 && pnlPct >= cfg.TakeProfitPct {
		return ReasonAutoTP, true
	}
	if cfg.StopLossPct > 0 && pnlPct <= -cfg.StopLossPct {
		return ReasonAutoSL, true
	}
	return "", false
}

// ComputeClose prices the exit of pos at price and returns the resulting trade.
// The trade ID is left for the caller to assign.
func ComputeClose(pos *Position, price float64, cfg Config, reason CloseReason, at time.Time) Trade {
	exitPrice := price * (1 - cfg.Slippage)
	gross := exitPrice * pos.Amount
	fee := gross * cfg.FeeRate
	net := gross - fee

	return Trade{
		PositionID:     pos.ID,
		Side:           SideSell,
		EntryPrice:     pos.EntryPrice,
		ExitPrice:      exitPrice,
		Amount:         pos.Amount,
		OpenedAt:       pos.OpenedAt,
		ClosedAt:       at,
		RealizedProfit: net - pos.EntryPrice*pos.Amount,
		NetValue:       net,
		Reason:         reason,
	}
}

// closePosition applies a close to the state: it records the trade, clears the
// position and credits the net value. Closing with no position is a no-op.
func closePosition(st *EngineState, trade Trade) bool {
	if st.Position == nil {
		return false
	}
	st.Trades = append([]Trade{trade}, st.Trades...)
	st.Account.Balance += trade.NetValue
	st.Position = nil
	return true
}

// openPosition installs pos as the open position.
func openPosition(st *EngineState, pos *Position) error {
	if st.Position != nil {
		return &InvariantViolation{Detail: "opening position " + pos.ID + " while " + st.Position.ID + " is open"}
	}
	pos.State = PositionStateOpen
	st.Position = pos
	return nil
}
