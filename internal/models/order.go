package models

import "time"

// Order is a resting order. All order variants share one table; Type selects
// which price columns are meaningful.
type Order struct {
	ID         string `gorm:"primaryKey"`
	Seq        int    `gorm:"index"` // placement order, matching walks it ascending
	Type       string `gorm:"not null"`
	Side       string
	State      string
	Amount     float64
	LimitPrice float64
	StopPrice  float64
	TakeProfit float64
	StopLoss   float64
	CreatedAt  time.Time
}
