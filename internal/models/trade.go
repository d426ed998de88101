package models

import (
	"time"

	"gorm.io/gorm"
)

// Trade represents a closed position in the trade history.
type Trade struct {
	gorm.Model
	TradeID    string    `gorm:"uniqueIndex;not null" json:"trade_id"`
	PositionID string    `gorm:"index" json:"position_id"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"` // closing side, always "SELL"
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Amount     float64   `json:"amount"`
	NetValue   float64   `json:"net_value"`
	Profit     float64   `json:"profit"`
	Reason     string    `json:"reason"`
	OpenedAt   time.Time `json:"opened_at"`
	ClosedAt   time.Time `gorm:"index" json:"closed_at"`
}
