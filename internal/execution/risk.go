package execution

import "time"

// Clock supplies the current time; it decides when a new trading day starts.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// RiskController enforces the daily-loss and drawdown limits.
type RiskController struct {
	MaxDailyLoss   float64
	MaxDrawdownPct float64
}

// NewRiskController builds a controller from the engine configuration.
func NewRiskController(cfg Config) RiskController {
	return RiskController{MaxDailyLoss: cfg.MaxDailyLoss, MaxDrawdownPct: cfg.MaxDrawdownPct}
}

// Evaluate trips the breaker on the first breached limit while trading is
// enabled. Daily loss is checked before drawdown. It never re-enables trading.
func (r RiskController) Evaluate(acct *Account) BreakerReason {
	if !acct.TradingEnabled {
		return BreakerNone
	}
	if r.MaxDailyLoss > 0 && acct.DailyPnL() <= -r.MaxDailyLoss {
		acct.TradingEnabled = false
		return BreakerDailyLoss
	}
	if r.MaxDrawdownPct > 0 && acct.Drawdown() >= r.MaxDrawdownPct {
		acct.TradingEnabled = false
		return BreakerMaxDrawdown
	}
	return BreakerNone
}

// RollDay resets the start-of-day balance when now falls on a later calendar day
// than the one recorded on the account. It reports whether a reset happened.
func (r RiskController) RollDay(acct *Account, now time.Time) bool {
	today := startOfDay(now)
	if !acct.Day.IsZero() && !today.After(acct.Day) {
		return false
	}
	acct.Day = today
	acct.StartOfDayBalance = acct.Balance
	return true
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
