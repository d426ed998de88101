package trader

import (
	"btc-paper-trader-go/internal/execution"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxNotifications is how many notifications the API can show.
const maxNotifications = 50

// Level is the severity a notification is shown with.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is an operator-facing message about an engine event.
type Notification struct {
	ID      string              `json:"id"`
	Kind    execution.EventKind `json:"kind"`
	Level   Level               `json:"level"`
	Message string              `json:"message"`
	At      time.Time           `json:"at"`
}

// Notifier turns engine events into log lines and keeps the most recent ones.
// It implements execution.Notifier.
type Notifier struct {
	logger *zap.Logger

	mu    sync.Mutex
	items []Notification
}

var _ execution.Notifier = (*Notifier)(nil)

// NewNotifier creates a Notifier logging through logger.
func NewNotifier(logger *zap.Logger) *Notifier {
	return &Notifier{logger: logger.Named("notify")}
}

// Notify records ev.
func (n *Notifier) Notify(ev execution.Event) {
	level, msg := describe(ev)
	n.Add(ev.Kind, level, msg, ev.At)
}

// Add records a notification that did not come from the engine.
func (n *Notifier) Add(kind execution.EventKind, level Level, msg string, at time.Time) {
	if at.IsZero() {
		at = time.Now()
	}
	item := Notification{ID: uuid.NewString(), Kind: kind, Level: level, Message: msg, At: at}

	l := n.logger.With(zap.String("kind", string(kind)))
	switch level {
	case LevelError:
		l.Error(msg)
	case LevelWarning:
		l.Warn(msg)
	default:
		l.Info(msg)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, item)
	if over := len(n.items) - maxNotifications; over > 0 {
		n.items = append(n.items[:0:0], n.items[over:]...)
	}
}

// Recent returns the kept notifications, newest first.
func (n *Notifier) Recent() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]Notification, len(n.items))
	for i, item := range n.items {
		out[len(n.items)-1-i] = item
	}
	return out
}

func describe(ev execution.Event) (Level, string) {
	switch ev.Kind {
	case execution.EventFill:
		if ev.Position != nil {
			return LevelSuccess, fmt.Sprintf("%s filled @ %.2f", fillLabel(ev), ev.Position.EntryPrice)
		}
	case execution.EventClose:
		if t := ev.Trade; t != nil {
			if t.RealizedProfit > 0 {
				return LevelSuccess, fmt.Sprintf("Profit locked: +$%.2f (%s)", t.RealizedProfit, t.Reason)
			}
			return LevelWarning, fmt.Sprintf("Position closed: $%.2f (%s)", t.RealizedProfit, t.Reason)
		}
	case execution.EventRejection:
		if execution.IsTransient(ev.Err) {
			return LevelWarning, fmt.Sprintf("%s: %v", ev.Message, ev.Err)
		}
		return LevelError, fmt.Sprintf("%s: %v", ev.Message, ev.Err)
	case execution.EventBreaker:
		return LevelError, fmt.Sprintf("Circuit breaker tripped: %s", ev.Breaker)
	case execution.EventTrigger:
		if ev.Order != nil {
			return LevelInfo, fmt.Sprintf("Stop triggered for order %s", shortID(ev.Order.ID))
		}
	case execution.EventOrderPlaced:
		if ev.Order != nil {
			return LevelInfo, fmt.Sprintf("Pending order #%s placed", shortID(ev.Order.ID))
		}
	case execution.EventOrderCancelled:
		return LevelInfo, "Order cancelled"
	case execution.EventTradingEnabled:
		return LevelInfo, "Trading re-enabled"
	}
	return LevelInfo, ev.Message
}

func fillLabel(ev execution.Event) string {
	if ev.Order != nil && ev.Order.Request != nil {
		return string(ev.Order.Request.Type())
	}
	return "Market buy"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
