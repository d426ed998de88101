package models

import "time"

// AccountStateID is the primary key of the single account row.
const AccountStateID = 1

// AccountState is the persisted paper account together with the engine
// configuration in force when it was saved.
type AccountState struct {
	ID                uint `gorm:"primaryKey"`
	Balance           float64
	StartOfDayBalance float64
	InitialBalance    float64
	Day               time.Time
	TradingEnabled    bool

	FeeRate        float64
	Slippage       float64
	TakeProfitPct  float64
	StopLossPct    float64
	MaxDailyLoss   float64
	MaxDrawdownPct float64
	AutoTrade      bool

	UpdatedAt time.Time
}
