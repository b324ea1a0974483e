package connectors

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

const tradovateBrokerName = "tradovate"

// TradovateConnector speaks the Tradovate REST API. Authentication is a
// two-step token exchange: credentials are posted to the auth endpoint
// and every data call carries the returned bearer token. Tokens are
// fetched per operation; the contract requires per-call correctness, not
// session reuse.
type TradovateConnector struct {
	demoBaseURL string
	liveBaseURL string
	appID       string
	appVersion  string
	clientID    int
	http        *resty.Client
}

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}

	code := r.StatusCode()

	if code >= 500 && code <= 599 {
		return true
	}
	if code == 429 {
		return true
	}
	if code == 408 {
		return true
	}
	return false
}

func NewTradovateConnector(config Config) *TradovateConnector {
	httpClient := resty.New().
		SetTimeout(config.RequestTimeout).
		SetRetryCount(config.RetryAttempts - 1).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(8 * time.Second).
		AddRetryCondition(isRetryableResp)

	return &TradovateConnector{
		demoBaseURL: config.TradovateDemoBaseURL,
		liveBaseURL: config.TradovateLiveBaseURL,
		appID:       config.TradovateAppID,
		appVersion:  config.TradovateAppVersion,
		clientID:    config.TradovateClientID,
		http:        httpClient,
	}
}

func (c *TradovateConnector) baseURL(creds Credentials) string {
	if creds.UseLive {
		return c.liveBaseURL
	}
	return c.demoBaseURL
}

// tradovateAuthResponse is the wire shape of /auth/accesstokenrequest.
type tradovateAuthResponse struct {
	AccessToken    string `json:"accessToken"`
	MDAccessToken  string `json:"mdAccessToken"`
	ExpirationTime string `json:"expirationTime"`
	UserID         int64  `json:"userId"`
	HasLive        bool   `json:"hasLive"`
	ErrorText      string `json:"errorText"`
}

type tradovateAccount struct {
	ID                  int64   `json:"id"`
	Name                string  `json:"name"`
	CashBalance         float64 `json:"cashBalance"`
	NetLiquidationValue float64 `json:"netLiquidationValue"`
	MarginUsed          float64 `json:"marginUsed"`
	MarginAvailable     float64 `json:"marginAvailable"`
}

type tradovatePosition struct {
	ContractName  string  `json:"contractName"`
	NetPos        int     `json:"netPos"`
	Price         float64 `json:"price"`
	UnrealizedPnL float64 `json:"unrealizedPnL"`
}

type tradovateOrder struct {
	ID           int64    `json:"id"`
	ContractName string   `json:"contractName"`
	Action       string   `json:"action"`
	Qty          int      `json:"qty"`
	Price        *float64 `json:"price"`
	StopPrice    *float64 `json:"stopPrice"`
	OrderStatus  string   `json:"orderStatus"`
	FilledQty    int      `json:"filledQty"`
	AvgFillPrice *float64 `json:"avgFillPrice"`
	Timestamp    string   `json:"timestamp"`
}

// exchangeToken performs the two-step token exchange. The response body
// on failure is never included in the returned error: Tradovate echoes
// request fields back on auth failures.
func (c *TradovateConnector) exchangeToken(ctx context.Context, creds Credentials) (*tradovateAuthResponse, error) {
	if creds.Username == "" || creds.Password == "" || creds.Secret == "" {
		return nil, brokerAuthFailed(tradovateBrokerName)
	}

	deviceID := creds.DeviceID
	if deviceID == "" {
		deviceID = uuid.NewString()
	}

	body := map[string]interface{}{
		"name":       creds.Username,
		"password":   creds.Password,
		"appId":      c.appID,
		"appVersion": c.appVersion,
		"cid":        c.clientID,
		"sec":        creds.Secret,
		"deviceId":   deviceID,
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetBody(body).
		Post(c.baseURL(creds) + "/auth/accesstokenrequest")
	if err != nil {
		return nil, brokerUnreachable(tradovateBrokerName, err)
	}

	switch {
	case resp.StatusCode() == 200:
	case resp.StatusCode() == 401 || resp.StatusCode() == 403:
		return nil, brokerAuthFailed(tradovateBrokerName)
	case resp.StatusCode() >= 500:
		return nil, brokerUnreachable(tradovateBrokerName, statusError(resp.StatusCode()))
	default:
		return nil, brokerProtocol(tradovateBrokerName, statusDetail(resp.StatusCode()))
	}

	var auth tradovateAuthResponse
	if err := json.Unmarshal(resp.Body(), &auth); err != nil {
		return nil, brokerProtocol(tradovateBrokerName, "auth response is not valid JSON")
	}
	if auth.AccessToken == "" {
		// 200 with errorText is how Tradovate rejects bad credentials.
		return nil, brokerAuthFailed(tradovateBrokerName)
	}

	return &auth, nil
}

func (c *TradovateConnector) accessToken(ctx context.Context, creds Credentials) (string, error) {
	auth, err := c.exchangeToken(ctx, creds)
	if err != nil {
		return "", err
	}
	return auth.AccessToken, nil
}

func (c *TradovateConnector) Authenticate(ctx context.Context, creds Credentials) (*AuthResult, error) {
	auth, err := c.exchangeToken(ctx, creds)
	if err != nil {
		return nil, err
	}

	result := &AuthResult{
		Token:       auth.AccessToken,
		MarketToken: auth.MDAccessToken,
	}
	if auth.ExpirationTime != "" {
		if expires, err := time.Parse(time.RFC3339, auth.ExpirationTime); err == nil {
			result.ExpirationTime = &expires
		}
	}

	logger.WithFields(map[string]interface{}{
		"connector": tradovateBrokerName,
		"has_live":  auth.HasLive,
	}).Debug("Tradovate token exchange succeeded")

	return result, nil
}

// doGet fetches a bearer-authenticated endpoint and decodes the JSON
// array or object into out.
func (c *TradovateConnector) doGet(ctx context.Context, creds Credentials, path string, out interface{}) error {
	token, err := c.accessToken(ctx, creds)
	if err != nil {
		return err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+token).
		SetHeader("Content-Type", "application/json").
		Get(c.baseURL(creds) + path)
	if err != nil {
		return brokerUnreachable(tradovateBrokerName, err)
	}

	if err := classifyStatus(tradovateBrokerName, resp.StatusCode()); err != nil {
		return err
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return brokerProtocol(tradovateBrokerName, "response at "+path+" is not valid JSON")
	}
	return nil
}

func (c *TradovateConnector) doPost(ctx context.Context, creds Credentials, path string, body interface{}) (map[string]interface{}, error) {
	token, err := c.accessToken(ctx, creds)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+token).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(c.baseURL(creds) + path)
	if err != nil {
		return nil, brokerUnreachable(tradovateBrokerName, err)
	}

	if err := classifyStatus(tradovateBrokerName, resp.StatusCode()); err != nil {
		return nil, err
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(resp.Body(), &decoded); err != nil {
		return nil, brokerProtocol(tradovateBrokerName, "response at "+path+" is not valid JSON")
	}
	return decoded, nil
}

func (c *TradovateConnector) FetchAccountSnapshot(ctx context.Context, creds Credentials) (*AccountSnapshot, error) {
	var accounts []tradovateAccount
	if err := c.doGet(ctx, creds, "/account/list", &accounts); err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, brokerProtocol(tradovateBrokerName, "broker reported zero accounts")
	}

	account := accounts[0]
	return &AccountSnapshot{
		AccountID:       strconv64(account.ID),
		AccountName:     account.Name,
		Balance:         decimal.NewFromFloat(account.CashBalance),
		Equity:          decimal.NewFromFloat(account.NetLiquidationValue),
		MarginUsed:      decimal.NewFromFloat(account.MarginUsed),
		MarginAvailable: decimal.NewFromFloat(account.MarginAvailable),
	}, nil
}

func (c *TradovateConnector) FetchPositions(ctx context.Context, creds Credentials) ([]NormalizedPosition, error) {
	var raw []tradovatePosition
	if err := c.doGet(ctx, creds, "/position/list", &raw); err != nil {
		return nil, err
	}

	positions := make([]NormalizedPosition, 0, len(raw))
	for _, p := range raw {
		side := "long"
		if p.NetPos < 0 {
			side = "short"
		}
		qty := p.NetPos
		if qty < 0 {
			qty = -qty
		}
		positions = append(positions, NormalizedPosition{
			Symbol:        p.ContractName,
			Side:          side,
			Quantity:      qty,
			EntryPrice:    decimal.NewFromFloat(p.Price),
			CurrentPrice:  decimal.NewFromFloat(p.Price),
			UnrealizedPnl: decimal.NewFromFloat(p.UnrealizedPnL),
		})
	}
	return positions, nil
}

func (c *TradovateConnector) FetchOrders(ctx context.Context, creds Credentials) ([]NormalizedOrder, error) {
	var raw []tradovateOrder
	if err := c.doGet(ctx, creds, "/order/list", &raw); err != nil {
		return nil, err
	}

	orders := make([]NormalizedOrder, 0, len(raw))
	for _, o := range raw {
		order := NormalizedOrder{
			BrokerOrderID:  strconv64(o.ID),
			Symbol:         o.ContractName,
			Side:           strings.ToLower(o.Action),
			Quantity:       o.Qty,
			Price:          floatPtrToDecimal(o.Price),
			StopPrice:      floatPtrToDecimal(o.StopPrice),
			Status:         strings.ToLower(o.OrderStatus),
			FilledQuantity: o.FilledQty,
			FilledPrice:    floatPtrToDecimal(o.AvgFillPrice),
		}
		if o.Timestamp != "" {
			if ts, err := time.Parse(time.RFC3339, o.Timestamp); err == nil {
				order.ExecutedAt = &ts
			}
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (c *TradovateConnector) PlaceOrder(ctx context.Context, creds Credentials, req OrderRequest) (*OrderResult, error) {
	body := map[string]interface{}{
		"accountSpec":  creds.AccountID,
		"contractName": req.Symbol,
		"action":       strings.ToUpper(req.Side),
		"orderQty":     req.Quantity,
		"orderType":    strings.ToUpper(req.OrderType),
	}
	if req.Price != nil {
		body["price"] = req.Price.InexactFloat64()
	}
	if req.StopPrice != nil {
		body["stopPrice"] = req.StopPrice.InexactFloat64()
	}

	decoded, err := c.doPost(ctx, creds, "/order/placeorder", body)
	if err != nil {
		return nil, err
	}

	orderID := rawString(decoded["orderId"])
	if orderID == "" {
		return nil, brokerProtocol(tradovateBrokerName, "order acknowledgement missing orderId")
	}

	logger.WithFields(map[string]interface{}{
		"connector":       tradovateBrokerName,
		"symbol":          req.Symbol,
		"side":            req.Side,
		"qty":             req.Quantity,
		"broker_order_id": orderID,
	}).Info("Tradovate order placed")

	return &OrderResult{BrokerOrderID: orderID, RawResponse: decoded}, nil
}

func (c *TradovateConnector) ModifyOrder(ctx context.Context, creds Credentials, brokerOrderID string, patch OrderPatch) (*OrderResult, error) {
	body := map[string]interface{}{
		"orderId": brokerOrderID,
	}
	if patch.Quantity != nil {
		body["orderQty"] = *patch.Quantity
	}
	if patch.Price != nil {
		body["price"] = patch.Price.InexactFloat64()
	}
	if patch.StopPrice != nil {
		body["stopPrice"] = patch.StopPrice.InexactFloat64()
	}

	decoded, err := c.doPost(ctx, creds, "/order/modifyorder", body)
	if err != nil {
		return nil, err
	}
	return &OrderResult{BrokerOrderID: brokerOrderID, RawResponse: decoded}, nil
}

func (c *TradovateConnector) CancelOrder(ctx context.Context, creds Credentials, brokerOrderID string) (*OrderResult, error) {
	body := map[string]interface{}{
		"orderId": brokerOrderID,
	}

	decoded, err := c.doPost(ctx, creds, "/order/cancelorder", body)
	if err != nil {
		return nil, err
	}
	return &OrderResult{BrokerOrderID: brokerOrderID, RawResponse: decoded}, nil
}
