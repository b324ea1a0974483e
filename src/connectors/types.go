package connectors

import (
	"time"

	"github.com/shopspring/decimal"
)

// Credentials is the decrypted credential set for one broker account.
// Which fields are required depends on the broker: Tradovate wants
// username/password/secret, TopStep a single API token. Stored encrypted
// as JSON, decrypted only for the duration of a connector call.
type Credentials struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	APIKey   string `json:"api_key,omitempty"`
	Secret   string `json:"secret,omitempty"`
	DeviceID string `json:"device_id,omitempty"`
	APIToken string `json:"api_token,omitempty"`
	// AccountID is the broker-side account spec some brokers require on
	// order submission.
	AccountID string `json:"account_id,omitempty"`
	// UseLive selects the live environment where the broker runs demo and
	// live behind different hosts. There is no implicit demo fallback.
	UseLive bool `json:"use_live,omitempty"`
}

// AuthResult reports the outcome of a credential check or token exchange.
type AuthResult struct {
	Token          string
	MarketToken    string
	ExpirationTime *time.Time
}

// AccountSnapshot is a point-in-time read of one broker account's
// financial scalars, already normalized to internal names.
type AccountSnapshot struct {
	AccountID       string
	AccountName     string
	Balance         decimal.Decimal
	Equity          decimal.Decimal
	MarginUsed      decimal.Decimal
	MarginAvailable decimal.Decimal
}

// NormalizedPosition is a broker position translated to the internal
// model: side derived from the sign of the broker's net size, quantity
// always the magnitude. Quantity zero means the broker reports the
// position as flat.
type NormalizedPosition struct {
	Symbol        string
	Side          string
	Quantity      int
	EntryPrice    decimal.Decimal
	CurrentPrice  decimal.Decimal
	UnrealizedPnl decimal.Decimal
}

// NormalizedOrder is a broker order record translated to internal field
// names and lower-cased enums. Fill fields feed trade ingestion.
type NormalizedOrder struct {
	BrokerOrderID  string
	Symbol         string
	Side           string
	OrderType      string
	Quantity       int
	Price          *decimal.Decimal
	StopPrice      *decimal.Decimal
	Status         string
	FilledQuantity int
	FilledPrice    *decimal.Decimal
	ExecutedAt     *time.Time
	Commission     decimal.Decimal
}

// OrderRequest is the broker-neutral order submission shape.
type OrderRequest struct {
	Symbol    string           `json:"symbol"`
	Side      string           `json:"side"`
	OrderType string           `json:"order_type"`
	Quantity  int              `json:"quantity"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	StopPrice *decimal.Decimal `json:"stop_price,omitempty"`
}

// OrderPatch carries the mutable fields of a pending order. Nil means
// leave unchanged.
type OrderPatch struct {
	Quantity  *int             `json:"quantity,omitempty"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	StopPrice *decimal.Decimal `json:"stop_price,omitempty"`
}

// OrderResult is the broker acknowledgement for place/modify/cancel.
// RawResponse keeps the broker payload for audit logging, never for
// decision making.
type OrderResult struct {
	BrokerOrderID string
	RawResponse   map[string]interface{}
}
