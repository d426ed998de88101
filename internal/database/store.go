package database

import (
	"btc-paper-trader-go/internal/execution"
	"btc-paper-trader-go/internal/models"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNoSnapshot is returned by LoadSnapshot when nothing was saved yet.
var ErrNoSnapshot = errors.New("no saved snapshot")

// Store persists engine snapshots and serves the trade history.
type Store struct {
	db     *gorm.DB
	symbol string
	logger *zap.Logger

	mu        sync.Mutex
	lastTrade string // newest trade ID known to be stored
}

// NewStore creates a Store for symbol on top of db.
func NewStore(db *gorm.DB, symbol string, logger *zap.Logger) *Store {
	return &Store{db: db, symbol: symbol, logger: logger.Named("store")}
}

// SaveSnapshot writes the account, open position and resting orders, and appends
// trades not stored yet, in one transaction.
func (s *Store) SaveSnapshot(snap execution.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		acct := accountToModel(snap.Account, snap.Config)
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&acct).Error; err != nil {
			return fmt.Errorf("failed to save account: %w", err)
		}

		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if err := all.Delete(&models.Position{}).Error; err != nil {
			return fmt.Errorf("failed to clear position: %w", err)
		}
		if snap.Position != nil {
			pos := positionToModel(*snap.Position)
			if err := tx.Create(&pos).Error; err != nil {
				return fmt.Errorf("failed to save position %s: %w", pos.ID, err)
			}
		}

		if err := all.Delete(&models.Order{}).Error; err != nil {
			return fmt.Errorf("failed to clear orders: %w", err)
		}
		if len(snap.Orders) > 0 {
			orders := make([]models.Order, 0, len(snap.Orders))
			for i, o := range snap.Orders {
				orders = append(orders, orderToModel(o, i))
			}
			if err := tx.Create(&orders).Error; err != nil {
				return fmt.Errorf("failed to save orders: %w", err)
			}
		}

		// Trades are newest first; only the head is new.
		var fresh []models.Trade
		for _, t := range snap.Trades {
			if t.ID == s.lastTrade {
				break
			}
			fresh = append(fresh, tradeToModel(t, s.symbol))
		}
		if len(fresh) > 0 {
			// Insert oldest first so row IDs follow close order.
			for i, j := 0, len(fresh)-1; i < j; i, j = i+1, j-1 {
				fresh[i], fresh[j] = fresh[j], fresh[i]
			}
			err := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "trade_id"}}, DoNothing: true}).
				Create(&fresh).Error
			if err != nil {
				return fmt.Errorf("failed to save trades: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(snap.Trades) > 0 {
		s.lastTrade = snap.Trades[0].ID
	}
	return nil
}

// LoadSnapshot rebuilds the last saved snapshot. It returns ErrNoSnapshot on a
// fresh database.
func (s *Store) LoadSnapshot() (execution.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var acct models.AccountState
	if err := s.db.First(&acct, models.AccountStateID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return execution.Snapshot{}, ErrNoSnapshot
		}
		return execution.Snapshot{}, fmt.Errorf("failed to load account: %w", err)
	}

	snap := execution.Snapshot{TakenAt: acct.UpdatedAt}
	snap.Account, snap.Config = accountFromModel(acct)

	var positions []models.Position
	if err := s.db.Find(&positions).Error; err != nil {
		return execution.Snapshot{}, fmt.Errorf("failed to load position: %w", err)
	}
	if len(positions) > 1 {
		return execution.Snapshot{}, &execution.InvariantViolation{
			Detail: fmt.Sprintf("%d open positions stored", len(positions))}
	}
	if len(positions) == 1 {
		pos := positionFromModel(positions[0])
		snap.Position = &pos
	}

	var orders []models.Order
	if err := s.db.Order("seq asc").Find(&orders).Error; err != nil {
		return execution.Snapshot{}, fmt.Errorf("failed to load orders: %w", err)
	}
	for _, o := range orders {
		ro, err := orderFromModel(o)
		if err != nil {
			return execution.Snapshot{}, err
		}
		snap.Orders = append(snap.Orders, ro)
	}

	var trades []models.Trade
	if err := s.db.Order("closed_at desc, id desc").Find(&trades).Error; err != nil {
		return execution.Snapshot{}, fmt.Errorf("failed to load trades: %w", err)
	}
	for _, t := range trades {
		snap.Trades = append(snap.Trades, tradeFromModel(t))
	}
	if len(snap.Trades) > 0 {
		s.lastTrade = snap.Trades[0].ID
	}

	s.logger.Info("Snapshot restored",
		zap.Float64("balance", snap.Account.Balance),
		zap.Bool("position_open", snap.Position != nil),
		zap.Int("orders", len(snap.Orders)),
		zap.Int("trades", len(snap.Trades)))
	return snap, nil
}

// Trades returns up to limit trades closed at or after since, newest first.
// A limit of zero or less returns all of them.
func (s *Store) Trades(since time.Time, limit int) ([]models.Trade, error) {
	var trades []models.Trade
	q := s.db.Where("closed_at >= ?", since).Order("closed_at desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	return trades, nil
}

// Stats summarises the closed trades of a period.
type Stats struct {
	Trades      int64   `json:"trades"`
	Wins        int64   `json:"wins"`
	WinRate     float64 `json:"win_rate"`
	TotalProfit float64 `json:"total_profit"`
}

// Stats aggregates the trades closed at or after since.
func (s *Store) Stats(since time.Time) (Stats, error) {
	var st Stats
	err := s.db.Model(&models.Trade{}).
		Select("COUNT(*) AS trades, COALESCE(SUM(CASE WHEN profit > 0 THEN 1 ELSE 0 END), 0) AS wins, COALESCE(SUM(profit), 0) AS total_profit").
		Where("closed_at >= ?", since).
		Scan(&st).Error
	if err != nil {
		return Stats{}, fmt.Errorf("failed to aggregate trades: %w", err)
	}
	if st.Trades > 0 {
		st.WinRate = float64(st.Wins) / float64(st.Trades)
	}
	return st, nil
}
