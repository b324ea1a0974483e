package connectors

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

const topStepBrokerName = "topstep"

// TopStepConnector speaks the TopStep/ProjectX REST API. Authentication
// is a static bearer token, so Authenticate validates the token against
// the profile endpoint instead of exchanging anything.
type TopStepConnector struct {
	baseURL string
	http    *resty.Client
}

func NewTopStepConnector(config Config) *TopStepConnector {
	httpClient := resty.New().
		SetTimeout(config.RequestTimeout).
		SetRetryCount(config.RetryAttempts - 1).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(8 * time.Second).
		AddRetryCondition(isRetryableResp)

	return &TopStepConnector{
		baseURL: config.TopStepBaseURL,
		http:    httpClient,
	}
}

type topStepAccount struct {
	ID              interface{} `json:"id"`
	Name            string      `json:"name"`
	Balance         float64     `json:"balance"`
	Equity          float64     `json:"equity"`
	MarginUsed      float64     `json:"margin_used"`
	MarginAvailable float64     `json:"margin_available"`
}

type topStepPosition struct {
	Symbol        string  `json:"symbol"`
	Quantity      int     `json:"quantity"`
	EntryPrice    float64 `json:"entry_price"`
	CurrentPrice  float64 `json:"current_price"`
	UnrealizedPnl float64 `json:"unrealized_pnl"`
}

type topStepOrder struct {
	ID             interface{} `json:"id"`
	Symbol         string      `json:"symbol"`
	Side           string      `json:"side"`
	OrderType      string      `json:"order_type"`
	Quantity       int         `json:"quantity"`
	Price          *float64    `json:"price"`
	StopPrice      *float64    `json:"stop_price"`
	Status         string      `json:"status"`
	FilledQuantity int         `json:"filled_quantity"`
	FilledPrice    *float64    `json:"filled_price"`
	Commission     float64     `json:"commission"`
	ExecutedAt     string      `json:"executed_at"`
}

func (c *TopStepConnector) execute(ctx context.Context, creds Credentials, method, path string, body interface{}) (*resty.Response, error) {
	if creds.APIToken == "" {
		return nil, brokerAuthFailed(topStepBrokerName)
	}

	req := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+creds.APIToken).
		SetHeader("Content-Type", "application/json")
	if body != nil {
		req = req.SetBody(body)
	}

	resp, err := req.Execute(method, c.baseURL+path)
	if err != nil {
		return nil, brokerUnreachable(topStepBrokerName, err)
	}
	if err := classifyStatus(topStepBrokerName, resp.StatusCode()); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *TopStepConnector) Authenticate(ctx context.Context, creds Credentials) (*AuthResult, error) {
	if _, err := c.execute(ctx, creds, "GET", "/user/profile", nil); err != nil {
		return nil, err
	}
	// Static token, nothing to exchange or expire.
	return &AuthResult{Token: creds.APIToken}, nil
}

func (c *TopStepConnector) FetchAccountSnapshot(ctx context.Context, creds Credentials) (*AccountSnapshot, error) {
	resp, err := c.execute(ctx, creds, "GET", "/accounts", nil)
	if err != nil {
		return nil, err
	}

	var accounts []topStepAccount
	if err := json.Unmarshal(resp.Body(), &accounts); err != nil {
		return nil, brokerProtocol(topStepBrokerName, "accounts response is not valid JSON")
	}
	if len(accounts) == 0 {
		// A token with no accounts behind it is a broker-side anomaly,
		// not a default account to fabricate.
		return nil, brokerProtocol(topStepBrokerName, "broker reported zero accounts")
	}

	account := accounts[0]
	return &AccountSnapshot{
		AccountID:       rawString(account.ID),
		AccountName:     account.Name,
		Balance:         decimal.NewFromFloat(account.Balance),
		Equity:          decimal.NewFromFloat(account.Equity),
		MarginUsed:      decimal.NewFromFloat(account.MarginUsed),
		MarginAvailable: decimal.NewFromFloat(account.MarginAvailable),
	}, nil
}

func (c *TopStepConnector) FetchPositions(ctx context.Context, creds Credentials) ([]NormalizedPosition, error) {
	resp, err := c.execute(ctx, creds, "GET", "/positions", nil)
	if err != nil {
		return nil, err
	}

	var raw []topStepPosition
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, brokerProtocol(topStepBrokerName, "positions response is not valid JSON")
	}

	positions := make([]NormalizedPosition, 0, len(raw))
	for _, p := range raw {
		side := "long"
		if p.Quantity < 0 {
			side = "short"
		}
		qty := p.Quantity
		if qty < 0 {
			qty = -qty
		}
		positions = append(positions, NormalizedPosition{
			Symbol:        p.Symbol,
			Side:          side,
			Quantity:      qty,
			EntryPrice:    decimal.NewFromFloat(p.EntryPrice),
			CurrentPrice:  decimal.NewFromFloat(p.CurrentPrice),
			UnrealizedPnl: decimal.NewFromFloat(p.UnrealizedPnl),
		})
	}
	return positions, nil
}

func (c *TopStepConnector) FetchOrders(ctx context.Context, creds Credentials) ([]NormalizedOrder, error) {
	resp, err := c.execute(ctx, creds, "GET", "/orders", nil)
	if err != nil {
		return nil, err
	}

	var raw []topStepOrder
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, brokerProtocol(topStepBrokerName, "orders response is not valid JSON")
	}

	orders := make([]NormalizedOrder, 0, len(raw))
	for _, o := range raw {
		order := NormalizedOrder{
			BrokerOrderID:  rawString(o.ID),
			Symbol:         o.Symbol,
			Side:           strings.ToLower(o.Side),
			OrderType:      strings.ToLower(o.OrderType),
			Quantity:       o.Quantity,
			Price:          floatPtrToDecimal(o.Price),
			StopPrice:      floatPtrToDecimal(o.StopPrice),
			Status:         strings.ToLower(o.Status),
			FilledQuantity: o.FilledQuantity,
			FilledPrice:    floatPtrToDecimal(o.FilledPrice),
			Commission:     decimal.NewFromFloat(o.Commission),
		}
		if o.ExecutedAt != "" {
			if ts, err := time.Parse(time.RFC3339, o.ExecutedAt); err == nil {
				order.ExecutedAt = &ts
			}
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (c *TopStepConnector) PlaceOrder(ctx context.Context, creds Credentials, req OrderRequest) (*OrderResult, error) {
	body := map[string]interface{}{
		"symbol":     req.Symbol,
		"side":       req.Side,
		"quantity":   req.Quantity,
		"order_type": req.OrderType,
	}
	if req.Price != nil {
		body["price"] = req.Price.InexactFloat64()
	}
	if req.StopPrice != nil {
		body["stop_price"] = req.StopPrice.InexactFloat64()
	}

	resp, err := c.execute(ctx, creds, "POST", "/orders", body)
	if err != nil {
		return nil, err
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(resp.Body(), &decoded); err != nil {
		return nil, brokerProtocol(topStepBrokerName, "order acknowledgement is not valid JSON")
	}

	orderID := rawString(decoded["id"])
	if orderID == "" {
		return nil, brokerProtocol(topStepBrokerName, "order acknowledgement missing id")
	}

	logger.WithFields(map[string]interface{}{
		"connector":       topStepBrokerName,
		"symbol":          req.Symbol,
		"side":            req.Side,
		"qty":             req.Quantity,
		"broker_order_id": orderID,
	}).Info("TopStep order placed")

	return &OrderResult{BrokerOrderID: orderID, RawResponse: decoded}, nil
}

func (c *TopStepConnector) ModifyOrder(ctx context.Context, creds Credentials, brokerOrderID string, patch OrderPatch) (*OrderResult, error) {
	body := map[string]interface{}{}
	if patch.Quantity != nil {
		body["quantity"] = *patch.Quantity
	}
	if patch.Price != nil {
		body["price"] = patch.Price.InexactFloat64()
	}
	if patch.StopPrice != nil {
		body["stop_price"] = patch.StopPrice.InexactFloat64()
	}

	resp, err := c.execute(ctx, creds, "PUT", "/orders/"+brokerOrderID, body)
	if err != nil {
		return nil, err
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(resp.Body(), &decoded); err != nil {
		decoded = nil
	}
	return &OrderResult{BrokerOrderID: brokerOrderID, RawResponse: decoded}, nil
}

func (c *TopStepConnector) CancelOrder(ctx context.Context, creds Credentials, brokerOrderID string) (*OrderResult, error) {
	resp, err := c.execute(ctx, creds, "DELETE", "/orders/"+brokerOrderID, nil)
	if err != nil {
		return nil, err
	}

	var decoded map[string]interface{}
	if len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), &decoded); err != nil {
			decoded = nil
		}
	}
	return &OrderResult{BrokerOrderID: brokerOrderID, RawResponse: decoded}, nil
}
