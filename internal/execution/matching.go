package execution

import "fmt"

// Fill describes the resting order that filled on a tick.
type Fill struct {
	Order     RestingOrder
	Price     float64
	NetAmount float64
	// Cost is the quote amount owed for the fill.
	Cost float64
}

// MatchResult is the outcome of matching one tick.
type MatchResult struct {
	Fill *Fill
	// Remaining holds every unfilled order in its original sequence, with
	// triggered stop-limits updated.
	Remaining []RestingOrder
	// Triggered lists the stop-limit orders armed on this tick, including one
	// that went on to fill.
	Triggered []RestingOrder
}

// Match evaluates the resting orders against price. At most one order fills per
// tick: the first eligible order in sequence wins and later orders are left as is.
func Match(orders []RestingOrder, price, feeRate float64) (MatchResult, error) {
	res := MatchResult{Remaining: make([]RestingOrder, 0, len(orders))}

	for _, order := range orders {
		if res.Fill != nil {
			res.Remaining = append(res.Remaining, order)
			continue
		}

		fill := false
		switch r := order.Request.(type) {
		case LimitOrder:
			fill = order.Side == SideBuy && price <= r.LimitPrice
		case BracketOrder:
			fill = order.Side == SideBuy && price <= r.LimitPrice
		case StopLimitOrder:
			if order.State == OrderStatePending && price >= r.StopPrice {
				order.State = OrderStateTriggered
				res.Triggered = append(res.Triggered, order)
			}
			fill = order.State == OrderStateTriggered && price <= r.LimitPrice
		default:
			return MatchResult{}, &InvariantViolation{
				Detail: fmt.Sprintf("resting order %s has non-resting type %v", order.ID, typeOf(order.Request)),
			}
		}

		if !fill {
			res.Remaining = append(res.Remaining, order)
			continue
		}

		limit := order.LimitPrice()
		res.Fill = &Fill{
			Order:     order,
			Price:     limit,
			NetAmount: order.Request.Quantity() * (1 - feeRate),
			Cost:      limit * order.Request.Quantity(),
		}
	}

	return res, nil
}

func typeOf(req OrderRequest) string {
	if req == nil {
		return "<nil>"
	}
	return string(req.Type())
}
