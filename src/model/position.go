package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PositionStatusOpen   = "open"
	PositionStatusClosed = "closed"

	PositionSideLong  = "long"
	PositionSideShort = "short"
)

// Position mirrors a broker-reported open position. At most one open
// position exists per (broker_account_id, symbol); a position whose
// broker-reported net size reaches zero is flipped to closed, never
// deleted, so realized history survives.
type Position struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	BrokerAccountID uint            `gorm:"not null;index" json:"broker_account_id"`
	Symbol          string          `gorm:"size:50;not null;index" json:"symbol"`
	Side            string          `gorm:"size:10;not null" json:"side"`
	Quantity        int             `gorm:"not null" json:"quantity"`
	EntryPrice      decimal.Decimal `gorm:"type:numeric(10,4);not null" json:"entry_price"`
	CurrentPrice    decimal.Decimal `gorm:"type:numeric(10,4)" json:"current_price"`
	UnrealizedPnl   decimal.Decimal `gorm:"type:numeric(15,2)" json:"unrealized_pnl"`
	RealizedPnl     decimal.Decimal `gorm:"type:numeric(15,2)" json:"realized_pnl"`
	Status          string          `gorm:"size:50;not null;default:open" json:"status"`
	OpenedAt        time.Time       `gorm:"not null" json:"opened_at"`
	ClosedAt        *time.Time      `json:"closed_at,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`

	BrokerAccount *BrokerAccount `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (Position) TableName() string {
	return "positions"
}
