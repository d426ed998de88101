package execution

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	testCases := []struct {
		name        string
		balance     float64
		price       float64
		req         OrderRequest
		expectedErr error
	}{
		{
			name:    "Market order within balance",
			balance: 10000,
			price:   100,
			req:     MarketOrder{Amount: 1},
		},
		{
			name:        "Zero amount",
			balance:     10000,
			price:       100,
			req:         MarketOrder{Amount: 0},
			expectedErr: ErrInvalidAmount,
		},
		{
			name:        "Negative amount",
			balance:     10000,
			price:       100,
			req:         LimitOrder{Amount: -1, LimitPrice: 100},
			expectedErr: ErrInvalidAmount,
		},
		{
			name:        "Limit order without limit price",
			balance:     10000,
			price:       100,
			req:         LimitOrder{Amount: 1},
			expectedErr: ErrInvalidPrice,
		},
		{
			name:        "Stop-limit without stop price",
			balance:     10000,
			price:       100,
			req:         StopLimitOrder{Amount: 1, LimitPrice: 103},
			expectedErr: ErrInvalidPrice,
		},
		{
			name:        "Stop-limit with negative limit price",
			balance:     10000,
			price:       100,
			req:         StopLimitOrder{Amount: 1, StopPrice: 105, LimitPrice: -3},
			expectedErr: ErrInvalidPrice,
		},
		{
			name:        "Bracket without limit price",
			balance:     10000,
			price:       100,
			req:         BracketOrder{Amount: 1, TakeProfit: 110, StopLoss: 90},
			expectedErr: ErrInvalidPrice,
		},
		{
			name:        "Bracket with negative stop loss",
			balance:     10000,
			price:       100,
			req:         BracketOrder{Amount: 1, LimitPrice: 100, StopLoss: -1},
			expectedErr: ErrInvalidPrice,
		},
		{
			name:        "Market order includes slippage in cost",
			balance:     100.04,
			price:       100,
			req:         MarketOrder{Amount: 1},
			expectedErr: ErrInsufficientFunds,
		},
		{
			name:    "Limit order costed at limit price",
			balance: 90,
			price:   100,
			req:     LimitOrder{Amount: 1, LimitPrice: 90},
		},
		{
			name:        "Limit order above balance",
			balance:     89.99,
			price:       100,
			req:         LimitOrder{Amount: 1, LimitPrice: 90},
			expectedErr: ErrInsufficientFunds,
		},
		{
			name:        "Market order without a price feed",
			balance:     10000,
			price:       0,
			req:         MarketOrder{Amount: 1},
			expectedErr: ErrInvalidPrice,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.balance, tc.price, 0.0005, tc.req)

			if tc.expectedErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.expectedErr)
			var ve *ValidationError
			assert.True(t, errors.As(err, &ve))
			assert.False(t, IsTransient(err))
		})
	}
}

func TestValidate_ZeroAndNegativeAmountAreIdentical(t *testing.T) {
	zero := Validate(1000, 100, 0, MarketOrder{Amount: 0})
	negative := Validate(1000, 100, 0, MarketOrder{Amount: -5})

	assert.ErrorIs(t, zero, ErrInvalidAmount)
	assert.ErrorIs(t, negative, ErrInvalidAmount)
}
