package execution

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRiskController_Evaluate(t *testing.T) {
	rc := RiskController{MaxDailyLoss: 500, MaxDrawdownPct: 0.05}

	testCases := []struct {
		name            string
		acct            Account
		expectedReason  BreakerReason
		expectedEnabled bool
	}{
		{
			name:            "Within limits",
			acct:            Account{Balance: 9800, StartOfDayBalance: 10000, InitialBalance: 10000, TradingEnabled: true},
			expectedEnabled: true,
		},
		{
			name:            "Daily loss at the limit",
			acct:            Account{Balance: 9500, StartOfDayBalance: 10000, InitialBalance: 9000, TradingEnabled: true},
			expectedReason:  BreakerDailyLoss,
			expectedEnabled: false,
		},
		{
			name:            "Drawdown at the limit",
			acct:            Account{Balance: 9500, StartOfDayBalance: 9600, InitialBalance: 10000, TradingEnabled: true},
			expectedReason:  BreakerMaxDrawdown,
			expectedEnabled: false,
		},
		{
			name:            "Daily loss reported before drawdown",
			acct:            Account{Balance: 9000, StartOfDayBalance: 10000, InitialBalance: 10000, TradingEnabled: true},
			expectedReason:  BreakerDailyLoss,
			expectedEnabled: false,
		},
		{
			name:            "Already disabled is not re-reported",
			acct:            Account{Balance: 1000, StartOfDayBalance: 10000, InitialBalance: 10000, TradingEnabled: false},
			expectedEnabled: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			acct := tc.acct
			reason := rc.Evaluate(&acct)
			assert.Equal(t, tc.expectedReason, reason)
			assert.Equal(t, tc.expectedEnabled, acct.TradingEnabled)
		})
	}
}

func TestRiskController_NeverReEnables(t *testing.T) {
	rc := RiskController{MaxDailyLoss: 500, MaxDrawdownPct: 0.05}
	acct := Account{Balance: 9400, StartOfDayBalance: 10000, InitialBalance: 10000, TradingEnabled: true}

	assert.Equal(t, BreakerDailyLoss, rc.Evaluate(&acct))

	acct.Balance = 12000
	assert.Equal(t, BreakerNone, rc.Evaluate(&acct))
	assert.False(t, acct.TradingEnabled)
}

func TestRiskController_RollDay(t *testing.T) {
	rc := RiskController{}
	day := time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)
	acct := NewAccount(10000, day)
	acct.Balance = 9700

	assert.False(t, rc.RollDay(&acct, day.Add(10*time.Hour)))
	assert.Equal(t, 10000.0, acct.StartOfDayBalance)

	// Same day of month, next month.
	assert.True(t, rc.RollDay(&acct, time.Date(2024, 4, 14, 0, 1, 0, 0, time.UTC)))
	assert.Equal(t, 9700.0, acct.StartOfDayBalance)
	assert.Equal(t, time.Date(2024, 4, 14, 0, 0, 0, 0, time.UTC), acct.Day)

	// A clock that moves backwards does not reset.
	acct.Balance = 9000
	assert.False(t, rc.RollDay(&acct, time.Date(2024, 4, 13, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, 9700.0, acct.StartOfDayBalance)
}
