// Package journal persists session decisions and order confirmations
// to postgres for post-trade review. All methods are nil-safe so the
// rest of the system never branches on whether a journal is
// configured.
package journal

import (
	"time"

	"github.com/yanun0323/errors"
	"gorm.io/gorm"

	"main/internal/ops"
)

// SessionRow records one trading session's opening range and context.
type SessionRow struct {
	ID            uint   `gorm:"primaryKey"`
	Date          string `gorm:"index"`
	LocalSymbol   string
	OpenRangeLow  float64
	OpenRangeHigh float64
	PriorDayATR   float64
	CreatedAt     time.Time
}

// DecisionRow records one strategy tick's observation and state.
type DecisionRow struct {
	ID        uint `gorm:"primaryKey"`
	SessionID uint `gorm:"index"`
	At        time.Time
	State     string
	Close     float64
	Note      string
}

// OrderRow records a confirmed order submission or close.
type OrderRow struct {
	ID        uint `gorm:"primaryKey"`
	SessionID uint `gorm:"index"`
	OrderID   int64
	Action    string
	Quantity  int64
	StopPrice float64
	Outcome   string
	At        time.Time
}

// Journal writes trading records. A nil *Journal discards everything.
type Journal struct {
	db        *gorm.DB
	sessionID uint
}

// Open connects to the configured postgres instance and migrates the
// journal tables. Returns nil when the journal is not configured.
func Open(cfg ops.JournalConfig) (*Journal, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	db, err := open(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "open journal")
	}
	if err := db.AutoMigrate(&SessionRow{}, &DecisionRow{}, &OrderRow{}); err != nil {
		return nil, errors.Wrap(err, "migrate journal")
	}
	return &Journal{db: db}, nil
}

// StartSession opens the session record all later rows hang off.
func (j *Journal) StartSession(date, localSymbol string, low, high, priorATR float64) error {
	if j == nil {
		return nil
	}
	row := SessionRow{
		Date:          date,
		LocalSymbol:   localSymbol,
		OpenRangeLow:  low,
		OpenRangeHigh: high,
		PriorDayATR:   priorATR,
	}
	if err := j.db.Create(&row).Error; err != nil {
		return errors.Wrap(err, "create session row")
	}
	j.sessionID = row.ID
	return nil
}

// Decision records one tick's state and close.
func (j *Journal) Decision(at time.Time, state string, close float64, note string) error {
	if j == nil {
		return nil
	}
	return j.db.Create(&DecisionRow{
		SessionID: j.sessionID,
		At:        at,
		State:     state,
		Close:     close,
		Note:      note,
	}).Error
}

// Order records a confirmed submission.
func (j *Journal) Order(at time.Time, orderID int64, action string, quantity int64, stopPrice float64, outcome string) error {
	if j == nil {
		return nil
	}
	return j.db.Create(&OrderRow{
		SessionID: j.sessionID,
		OrderID:   orderID,
		Action:    action,
		Quantity:  quantity,
		StopPrice: stopPrice,
		Outcome:   outcome,
		At:        at,
	}).Error
}

// Close releases the underlying connection pool.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
