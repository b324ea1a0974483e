package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is an immutable execution record ingested from broker execution
// reports during sync. Rows are append-only and never updated.
type Trade struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	BrokerAccountID uint            `gorm:"not null;index" json:"broker_account_id"`
	OrderID         uint            `gorm:"not null;index" json:"order_id"`
	Symbol          string          `gorm:"size:50;not null" json:"symbol"`
	Side            string          `gorm:"size:10;not null" json:"side"`
	Quantity        int             `gorm:"not null" json:"quantity"`
	Price           decimal.Decimal `gorm:"type:numeric(10,4);not null" json:"price"`
	Commission      decimal.Decimal `gorm:"type:numeric(10,2)" json:"commission"`
	ExecutedAt      time.Time       `gorm:"not null" json:"executed_at"`
	CreatedAt       time.Time       `json:"created_at"`

	BrokerAccount *BrokerAccount `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (Trade) TableName() string {
	return "trades"
}
