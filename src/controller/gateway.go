package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"brokergateway/src/connectors"
	"brokergateway/src/model"
	"brokergateway/src/repository"
	"brokergateway/src/security"
)

// Gateway is the core of the broker gateway: it resolves stored
// credentials, selects the connector for the account's broker type, and
// routes connect/sync/order intents through it, reconciling results into
// the store. All state lives in the database; the gateway holds nothing
// across calls except per-account mutexes.
type Gateway struct {
	db       *gorm.DB
	registry connectors.Registry
	vault    *security.Vault
	engine   *ReconcileEngine
	locks    accountLocks
	now      func() time.Time
}

func NewGateway(db *gorm.DB, registry connectors.Registry, vault *security.Vault) *Gateway {
	return &Gateway{
		db:       db,
		registry: registry,
		vault:    vault,
		engine:   NewReconcileEngine(),
		now:      time.Now,
	}
}

// accountLocks hands out one mutex per broker account so that two
// concurrent syncs, or a sync racing an order transition, serialize
// their writes. Syncs of different accounts stay independent.
type accountLocks struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func (l *accountLocks) lockFor(accountID uint) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.locks == nil {
		l.locks = make(map[uint]*sync.Mutex)
	}
	lock, ok := l.locks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[accountID] = lock
	}
	return lock
}

// credentialsFor decrypts and decodes the account's credential blob.
// Failures mean corrupted storage or a key rotation mismatch and surface
// as security.ErrCrypto.
func (g *Gateway) credentialsFor(account *model.BrokerAccount) (connectors.Credentials, error) {
	var creds connectors.Credentials

	plaintext, err := g.vault.DecryptString(account.APICredentials)
	if err != nil {
		return creds, err
	}

	if err := json.Unmarshal([]byte(plaintext), &creds); err != nil {
		return creds, fmt.Errorf("%w: credential blob is not valid JSON", security.ErrCrypto)
	}

	return creds, nil
}

// connectorFor resolves the connector serving a stored account's broker
// type. A registry without that type means the account cannot be
// serviced, which surfaces as a validation error rather than a bare
// internal failure.
func (g *Gateway) connectorFor(account *model.BrokerAccount) (connectors.BrokerConnector, error) {
	connector, err := g.registry.ConnectorFor(account.BrokerType)
	if err != nil {
		return nil, validationErr("broker_type", err.Error())
	}
	return connector, nil
}

// ConnectBrokerAccount validates the credentials against the live broker
// and, on success, stores the encrypted blob plus the first account
// snapshot. No row is created when the broker rejects the credentials or
// is unreachable.
func (g *Gateway) ConnectBrokerAccount(ctx context.Context, userID uint, brokerType string, creds connectors.Credentials) (*model.BrokerAccount, error) {
	parsed, err := model.ParseBrokerType(brokerType)
	if err != nil {
		return nil, validationErr("broker_type", err.Error())
	}

	connector, err := g.registry.ConnectorFor(parsed)
	if err != nil {
		return nil, validationErr("broker_type", err.Error())
	}

	if _, err := connector.Authenticate(ctx, creds); err != nil {
		return nil, err
	}

	snapshot, err := connector.FetchAccountSnapshot(ctx, creds)
	if err != nil {
		return nil, err
	}

	blob, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("failed to encode credentials: %w", err)
	}
	encrypted, err := g.vault.EncryptString(string(blob))
	if err != nil {
		return nil, err
	}

	syncedAt := g.now().UTC()
	account := &model.BrokerAccount{
		UserID:          userID,
		BrokerType:      parsed,
		BrokerAccountID: snapshot.AccountID,
		APICredentials:  encrypted,
		AccountName:     snapshot.AccountName,
		AccountStatus:   model.BrokerAccountStatusActive,
		Balance:         snapshot.Balance,
		Equity:          snapshot.Equity,
		MarginUsed:      snapshot.MarginUsed,
		MarginAvailable: snapshot.MarginAvailable,
		LastSync:        &syncedAt,
	}

	accountRepo := repository.NewBrokerAccountRepository().WithDB(g.db)
	if err := accountRepo.Create(ctx, account); err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"component":   "Gateway",
		"op":          "ConnectBrokerAccount",
		"user_id":     userID,
		"broker_type": parsed,
		"account_id":  account.ID,
	}).Info("Broker account connected")

	return account, nil
}

// CheckBrokerConnection re-validates the stored credentials against the
// live broker. Local state is the same whether the check passes or
// fails; the auth token is discarded.
func (g *Gateway) CheckBrokerConnection(ctx context.Context, userID, accountID uint) error {
	account, err := g.GetBrokerAccount(ctx, userID, accountID)
	if err != nil {
		return err
	}

	creds, err := g.credentialsFor(account)
	if err != nil {
		return err
	}

	connector, err := g.connectorFor(account)
	if err != nil {
		return err
	}

	if _, err := connector.Authenticate(ctx, creds); err != nil {
		return err
	}

	logger.WithFields(map[string]interface{}{
		"component":  "Gateway",
		"op":         "CheckBrokerConnection",
		"account_id": account.ID,
	}).Info("Broker connection verified")

	return nil
}

// ListBrokerAccounts returns every broker account linked by the user.
func (g *Gateway) ListBrokerAccounts(ctx context.Context, userID uint) ([]model.BrokerAccount, error) {
	return repository.NewBrokerAccountRepository().WithDB(g.db).ListByUser(ctx, userID)
}

// GetBrokerAccount returns one owned broker account or ErrNotFound.
func (g *Gateway) GetBrokerAccount(ctx context.Context, userID, accountID uint) (*model.BrokerAccount, error) {
	account, err := repository.NewBrokerAccountRepository().WithDB(g.db).FindByIDAndUser(ctx, accountID, userID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrNotFound
	}
	return account, nil
}

// DeleteBrokerAccount unlinks an owned broker account; dependent
// positions, orders and trades cascade.
func (g *Gateway) DeleteBrokerAccount(ctx context.Context, userID, accountID uint) error {
	err := repository.NewBrokerAccountRepository().WithDB(g.db).DeleteByIDAndUser(ctx, accountID, userID)
	if err == gorm.ErrRecordNotFound {
		return ErrNotFound
	}
	return err
}

// SyncSummary reports what one sync call changed.
type SyncSummary struct {
	PositionsUpserted int `json:"positions_upserted"`
	PositionsClosed   int `json:"positions_closed"`
	OrdersIngested    int `json:"orders_ingested"`
	TradesRecorded    int `json:"trades_recorded"`
}

// SyncBrokerAccount pulls the account snapshot, positions and orders
// from the broker and reconciles them into the store in one transaction.
// All broker I/O happens before the transaction opens: a broker failure
// leaves local state untouched.
func (g *Gateway) SyncBrokerAccount(ctx context.Context, userID, accountID uint) (*model.BrokerAccount, *SyncSummary, error) {
	account, err := g.GetBrokerAccount(ctx, userID, accountID)
	if err != nil {
		return nil, nil, err
	}

	creds, err := g.credentialsFor(account)
	if err != nil {
		return nil, nil, err
	}

	connector, err := g.connectorFor(account)
	if err != nil {
		return nil, nil, err
	}

	snapshot, err := connector.FetchAccountSnapshot(ctx, creds)
	if err != nil {
		return nil, nil, err
	}
	positions, err := connector.FetchPositions(ctx, creds)
	if err != nil {
		return nil, nil, err
	}
	orders, err := connector.FetchOrders(ctx, creds)
	if err != nil {
		return nil, nil, err
	}

	lock := g.locks.lockFor(account.ID)
	lock.Lock()
	defer lock.Unlock()

	summary := &SyncSummary{}
	err = g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := g.engine.ReconcileSnapshot(ctx, tx, account, snapshot); err != nil {
			return err
		}

		upserted, closed, err := g.engine.ReconcilePositions(ctx, tx, account, positions)
		if err != nil {
			return err
		}
		summary.PositionsUpserted = upserted
		summary.PositionsClosed = closed

		ingested, trades, err := g.engine.ReconcileOrders(ctx, tx, account, orders)
		if err != nil {
			return err
		}
		summary.OrdersIngested = ingested
		summary.TradesRecorded = trades

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	logger.WithFields(map[string]interface{}{
		"component":          "Gateway",
		"op":                 "SyncBrokerAccount",
		"account_id":         account.ID,
		"positions_upserted": summary.PositionsUpserted,
		"positions_closed":   summary.PositionsClosed,
		"orders_ingested":    summary.OrdersIngested,
		"trades_recorded":    summary.TradesRecorded,
	}).Info("Broker account synced")

	refreshed, err := g.GetBrokerAccount(ctx, userID, accountID)
	if err != nil {
		return nil, nil, err
	}
	return refreshed, summary, nil
}

// ListOpenPositions returns the open positions of an owned account.
func (g *Gateway) ListOpenPositions(ctx context.Context, userID, accountID uint) ([]model.Position, error) {
	if _, err := g.GetBrokerAccount(ctx, userID, accountID); err != nil {
		return nil, err
	}
	return repository.NewPositionRepository().WithDB(g.db).ListOpenByAccount(ctx, accountID)
}

// ListOrders returns the orders of an owned account, newest first.
func (g *Gateway) ListOrders(ctx context.Context, userID, accountID uint) ([]model.Order, error) {
	if _, err := g.GetBrokerAccount(ctx, userID, accountID); err != nil {
		return nil, err
	}
	return repository.NewOrderRepository().WithDB(g.db).ListByAccount(ctx, accountID)
}

// ListTrades returns executions across all of the user's accounts, or a
// single owned account when accountID is non-nil.
func (g *Gateway) ListTrades(ctx context.Context, userID uint, accountID *uint) ([]model.Trade, error) {
	tradeRepo := repository.NewTradeRepository().WithDB(g.db)

	if accountID != nil {
		if _, err := g.GetBrokerAccount(ctx, userID, *accountID); err != nil {
			return nil, err
		}
		return tradeRepo.ListByAccounts(ctx, []uint{*accountID})
	}

	accounts, err := g.ListBrokerAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(accounts))
	for _, account := range accounts {
		ids = append(ids, account.ID)
	}
	return tradeRepo.ListByAccounts(ctx, ids)
}

// AccountSummary aggregates one broker account's local state.
type AccountSummary struct {
	BrokerAccount      model.BrokerAccount `json:"broker_account"`
	PositionsCount     int64               `json:"positions_count"`
	PendingOrdersCount int64               `json:"pending_orders_count"`
	TotalUnrealizedPnl decimal.Decimal     `json:"total_unrealized_pnl"`
	TotalRealizedPnl   decimal.Decimal     `json:"total_realized_pnl"`
	TotalPnl           decimal.Decimal     `json:"total_pnl"`
	RecentTrades       []model.Trade       `json:"recent_trades"`
}

// GetAccountSummary rolls up positions, pending orders, PnL and recent
// trades per linked account. Reads only; no broker I/O.
func (g *Gateway) GetAccountSummary(ctx context.Context, userID uint) ([]AccountSummary, error) {
	accounts, err := g.ListBrokerAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}

	positionRepo := repository.NewPositionRepository().WithDB(g.db)
	orderRepo := repository.NewOrderRepository().WithDB(g.db)
	tradeRepo := repository.NewTradeRepository().WithDB(g.db)

	summaries := make([]AccountSummary, 0, len(accounts))
	for _, account := range accounts {
		positions, err := positionRepo.ListByAccount(ctx, account.ID)
		if err != nil {
			return nil, err
		}

		totalUnrealized := decimal.Zero
		totalRealized := decimal.Zero
		var openCount int64
		for _, position := range positions {
			totalRealized = totalRealized.Add(position.RealizedPnl)
			if position.Status == model.PositionStatusOpen {
				totalUnrealized = totalUnrealized.Add(position.UnrealizedPnl)
				openCount++
			}
		}

		pendingCount, err := orderRepo.CountPendingByAccount(ctx, account.ID)
		if err != nil {
			return nil, err
		}

		recentTrades, err := tradeRepo.ListRecentByAccount(ctx, account.ID, 10)
		if err != nil {
			return nil, err
		}

		summaries = append(summaries, AccountSummary{
			BrokerAccount:      account,
			PositionsCount:     openCount,
			PendingOrdersCount: pendingCount,
			TotalUnrealizedPnl: totalUnrealized,
			TotalRealizedPnl:   totalRealized,
			TotalPnl:           totalUnrealized.Add(totalRealized),
			RecentTrades:       recentTrades,
		})
	}

	return summaries, nil
}
