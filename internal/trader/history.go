package trader

import "sync"

// maxHistory is how many prices the indicators look back over.
const maxHistory = 100

// PriceHistory is a bounded series of closing prices. The last point tracks the
// candle still in progress until it closes.
type PriceHistory struct {
	mu     sync.RWMutex
	prices []float64
	limit  int
}

// NewPriceHistory creates a history holding at most limit points.
func NewPriceHistory(limit int) *PriceHistory {
	if limit <= 0 {
		limit = maxHistory
	}
	return &PriceHistory{limit: limit}
}

// Update records a candle update. A closed candle, or the first update, appends
// a point; an update of the open candle replaces the last point.
func (h *PriceHistory) Update(price float64, closed bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.prices) == 0 || closed {
		h.appendLocked(price)
		return
	}
	h.prices[len(h.prices)-1] = price
}

// Seed appends prices, oldest first.
func (h *PriceHistory) Seed(prices []float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, p := range prices {
		h.appendLocked(p)
	}
}

func (h *PriceHistory) appendLocked(price float64) {
	h.prices = append(h.prices, price)
	if over := len(h.prices) - h.limit; over > 0 {
		h.prices = append(h.prices[:0:0], h.prices[over:]...)
	}
}

// Values returns a copy of the series, oldest first.
func (h *PriceHistory) Values() []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]float64(nil), h.prices...)
}

// Len is the number of points held.
func (h *PriceHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.prices)
}

// Last returns the latest price, or 0 when empty.
func (h *PriceHistory) Last() float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.prices) == 0 {
		return 0
	}
	return h.prices[len(h.prices)-1]
}
