// Package indicators implements the technical indicators the advisory
// strategies read from the price history.
package indicators

// SMA returns the simple moving average of the last period points. With fewer
// points than period it returns the latest point, and 0 for empty input.
func SMA(data []float64, period int) float64 {
	if len(data) == 0 {
		return 0
	}
	if period <= 0 || len(data) < period {
		return data[len(data)-1]
	}

	sum := 0.0
	for _, v := range data[len(data)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// RSI returns the relative strength index over period using Wilder smoothing.
// It returns 50 when there is not enough data and 100 when there were no losses.
func RSI(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period+1 {
		return 50
	}

	var gains, losses float64
	for i := 1; i <= period; i++ {
		change := prices[i] - prices[i-1]
		if change >= 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	p := float64(period)
	avgGain := gains / p
	avgLoss := losses / p

	for i := period + 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		var gain, loss float64
		if change >= 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
	}

	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// Trend reports whether the latest price is above the price lookback points
// earlier. It returns false when the history is shorter than lookback.
func Trend(prices []float64, lookback int) bool {
	if lookback <= 0 || len(prices) < lookback {
		return false
	}
	return prices[len(prices)-1] > prices[len(prices)-lookback]
}

// Momentum is the relative change between the latest price and the price
// lookback points earlier.
func Momentum(prices []float64, lookback int) float64 {
	if lookback <= 0 || len(prices) <= lookback {
		return 0
	}
	past := prices[len(prices)-1-lookback]
	if past == 0 {
		return 0
	}
	return (prices[len(prices)-1] - past) / past
}
