package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BrokerType identifies a supported external brokerage.
type BrokerType string

const (
	BrokerTypeTradovate BrokerType = "tradovate"
	BrokerTypeTopStep   BrokerType = "topstep"
)

// ParseBrokerType normalizes and validates a broker type string.
func ParseBrokerType(s string) (BrokerType, error) {
	switch BrokerType(strings.ToLower(strings.TrimSpace(s))) {
	case BrokerTypeTradovate:
		return BrokerTypeTradovate, nil
	case BrokerTypeTopStep:
		return BrokerTypeTopStep, nil
	default:
		return "", fmt.Errorf("invalid broker type %q, must be %q or %q", s, BrokerTypeTradovate, BrokerTypeTopStep)
	}
}

const (
	BrokerAccountStatusActive   = "active"
	BrokerAccountStatusInactive = "inactive"
)

// BrokerAccount is a linked external brokerage account. The four monetary
// fields mirror whatever the broker last reported; the broker is
// authoritative for them on every sync.
type BrokerAccount struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	UserID          uint       `gorm:"not null;index" json:"user_id"`
	BrokerType      BrokerType `gorm:"size:50;not null" json:"broker_type"`
	BrokerAccountID string     `gorm:"size:255;not null" json:"broker_account_id"`
	// APICredentials holds the vault-encrypted credential blob. Never
	// serialized to clients.
	APICredentials  string          `gorm:"type:text;not null" json:"-"`
	AccountName     string          `gorm:"size:255" json:"account_name"`
	AccountStatus   string          `gorm:"size:50;not null;default:active" json:"account_status"`
	Balance         decimal.Decimal `gorm:"type:numeric(15,2)" json:"balance"`
	Equity          decimal.Decimal `gorm:"type:numeric(15,2)" json:"equity"`
	MarginUsed      decimal.Decimal `gorm:"type:numeric(15,2)" json:"margin_used"`
	MarginAvailable decimal.Decimal `gorm:"type:numeric(15,2)" json:"margin_available"`
	LastSync        *time.Time      `json:"last_sync,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	User *User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (BrokerAccount) TableName() string {
	return "broker_accounts"
}
