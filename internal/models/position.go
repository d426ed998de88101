package models

import "time"

// Position is the open position, if any. At most one row exists.
type Position struct {
	ID              string `gorm:"primaryKey"`
	Side            string
	EntryPrice      float64
	Amount          float64
	OpenedAt        time.Time
	TakeProfitPrice float64
	StopLossPrice   float64
}
