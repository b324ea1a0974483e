package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusFilled    = "filled"
	OrderStatusCancelled = "cancelled"

	OrderSideBuy  = "buy"
	OrderSideSell = "sell"

	OrderTypeMarket = "market"
	OrderTypeLimit  = "limit"
	OrderTypeStop   = "stop"
)

// Order is an order the platform routed to a broker. BrokerOrderID is the
// broker-assigned identifier and is empty only between local creation and
// broker acknowledgement. Status transitions are owned by the order
// controller: pending -> filled | cancelled, both terminal.
type Order struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	BrokerAccountID uint             `gorm:"not null;index" json:"broker_account_id"`
	BrokerOrderID   string           `gorm:"size:255;index" json:"broker_order_id"`
	Symbol          string           `gorm:"size:50;not null" json:"symbol"`
	Side            string           `gorm:"size:10;not null" json:"side"`
	OrderType       string           `gorm:"size:20;not null" json:"order_type"`
	Quantity        int              `gorm:"not null" json:"quantity"`
	Price           *decimal.Decimal `gorm:"type:numeric(10,4)" json:"price,omitempty"`
	StopPrice       *decimal.Decimal `gorm:"type:numeric(10,4)" json:"stop_price,omitempty"`
	Status          string           `gorm:"size:20;not null;default:pending" json:"status"`
	FilledQuantity  int              `gorm:"not null;default:0" json:"filled_quantity"`
	FilledPrice     *decimal.Decimal `gorm:"type:numeric(10,4)" json:"filled_price,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`

	BrokerAccount *BrokerAccount `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Trades        []Trade        `gorm:"foreignKey:OrderID" json:"trades,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// Terminal reports whether the order can no longer transition.
func (o *Order) Terminal() bool {
	return o.Status == OrderStatusFilled || o.Status == OrderStatusCancelled
}
