package execution

import (
	"context"
	"time"
)

// EventKind classifies engine events for the notification collaborator.
type EventKind string

const (
	EventFill           EventKind = "fill"
	EventClose          EventKind = "close"
	EventRejection      EventKind = "rejection"
	EventBreaker        EventKind = "breaker"
	EventTrigger        EventKind = "trigger"
	EventOrderPlaced    EventKind = "order_placed"
	EventOrderCancelled EventKind = "order_cancelled"
	EventTradingEnabled EventKind = "trading_enabled"
)

// Event is emitted after the engine changed state or refused a request.
type Event struct {
	Kind     EventKind
	At       time.Time
	Message  string
	Position *Position
	Order    *RestingOrder
	Trade    *Trade
	Breaker  BreakerReason
	Err      error
}

// Pending is an in-flight place or close request.
type Pending[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func runPending[T any](fn func() (T, error)) *Pending[T] {
	p := &Pending[T]{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		p.val, p.err = fn()
	}()
	return p
}

// Done is closed once the request resolved.
func (p *Pending[T]) Done() <-chan struct{} { return p.done }

// Wait blocks until the request resolved or ctx ends.
func (p *Pending[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.val, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// PlaceOrderAsync starts PlaceOrder and returns immediately.
func (e *Engine) PlaceOrderAsync(ctx context.Context, currentPrice float64, req OrderRequest, origin Origin) *Pending[PlaceResult] {
	return runPending(func() (PlaceResult, error) {
		return e.PlaceOrder(ctx, currentPrice, req, origin)
	})
}

// ClosePositionAsync starts ClosePosition and returns immediately.
func (e *Engine) ClosePositionAsync(ctx context.Context, currentPrice float64, reason CloseReason, origin Origin) *Pending[CloseResult] {
	return runPending(func() (CloseResult, error) {
		return e.ClosePosition(ctx, currentPrice, reason, origin)
	})
}
