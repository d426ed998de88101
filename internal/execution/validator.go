package execution

// executionPrice is the price a request is costed at: the current price plus
// slippage for market orders, the limit price otherwise.
func executionPrice(req OrderRequest, currentPrice, slippage float64) float64 {
	switch r := req.(type) {
	case MarketOrder:
		return currentPrice * (1 + slippage)
	case LimitOrder:
		return r.LimitPrice
	case StopLimitOrder:
		return r.LimitPrice
	case BracketOrder:
		return r.LimitPrice
	}
	return currentPrice
}

// Validate checks a request against the available balance. It has no side effects.
func Validate(balance, currentPrice, slippage float64, req OrderRequest) error {
	if req == nil {
		return &ValidationError{Err: ErrInvalidPrice, Detail: "missing order"}
	}
	if req.Quantity() <= 0 {
		return rejectf(ErrInvalidAmount, "amount %.8f must be positive", req.Quantity())
	}

	switch r := req.(type) {
	case MarketOrder:
		if currentPrice <= 0 {
			return rejectf(ErrInvalidPrice, "no market price available")
		}
		if r.TakeProfit < 0 || r.StopLoss < 0 {
			return rejectf(ErrInvalidPrice, "bracket prices must not be negative")
		}
	case LimitOrder:
		if r.LimitPrice <= 0 {
			return rejectf(ErrInvalidPrice, "limit order requires a positive limit price")
		}
	case StopLimitOrder:
		if r.LimitPrice <= 0 {
			return rejectf(ErrInvalidPrice, "stop-limit order requires a positive limit price")
		}
		if r.StopPrice <= 0 {
			return rejectf(ErrInvalidPrice, "stop-limit order requires a positive stop price")
		}
	case BracketOrder:
		if r.LimitPrice <= 0 {
			return rejectf(ErrInvalidPrice, "bracket order requires a positive limit price")
		}
		if r.TakeProfit < 0 || r.StopLoss < 0 {
			return rejectf(ErrInvalidPrice, "bracket prices must not be negative")
		}
	default:
		return rejectf(ErrInvalidPrice, "unsupported order type %s", req.Type())
	}

	cost := executionPrice(req, currentPrice, slippage) * req.Quantity()
	if cost > balance {
		return rejectf(ErrInsufficientFunds, "cost %.2f exceeds balance %.2f", cost, balance)
	}
	return nil
}
