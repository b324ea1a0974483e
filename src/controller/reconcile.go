package controller

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"brokergateway/src/connectors"
	"brokergateway/src/model"
	"brokergateway/src/repository"
)

// ReconcileEngine merges broker-reported state into persisted entities.
// The broker is authoritative: scalars are overwritten, positions are
// set-reconciled by symbol, and orders are ingested without overriding
// the lifecycle status of orders this platform placed (fills are the one
// broker-driven transition). Every method expects to run inside the
// caller's transaction.
type ReconcileEngine struct {
	now func() time.Time
}

func NewReconcileEngine() *ReconcileEngine {
	return &ReconcileEngine{now: time.Now}
}

// ReconcileSnapshot overwrites the four monetary fields and stamps
// last_sync. Full overwrite, not a merge.
func (e *ReconcileEngine) ReconcileSnapshot(ctx context.Context, tx *gorm.DB, account *model.BrokerAccount, snapshot *connectors.AccountSnapshot) error {
	return repository.NewBrokerAccountRepository().WithDB(tx).UpdateSnapshot(ctx, account.ID, map[string]interface{}{
		"balance":          snapshot.Balance,
		"equity":           snapshot.Equity,
		"margin_used":      snapshot.MarginUsed,
		"margin_available": snapshot.MarginAvailable,
	}, e.now().UTC())
}

// ReconcilePositions upserts broker-reported positions keyed by
// (account, symbol) and closes every open position the broker no longer
// reports, or reports with zero size. Entry price and opened_at are
// immutable once set. Returns (upserted, closed) counts.
func (e *ReconcileEngine) ReconcilePositions(ctx context.Context, tx *gorm.DB, account *model.BrokerAccount, reported []connectors.NormalizedPosition) (int, int, error) {
	positionRepo := repository.NewPositionRepository().WithDB(tx)
	syncedAt := e.now().UTC()

	// One pass to build the set of symbols the broker still reports with
	// nonzero size; everything open outside this set is closed below.
	reportedSymbols := make(map[string]struct{}, len(reported))

	upserted := 0
	for _, incoming := range reported {
		if incoming.Quantity == 0 {
			continue
		}
		reportedSymbols[incoming.Symbol] = struct{}{}

		existing, err := positionRepo.FindOpenByAccountAndSymbol(ctx, account.ID, incoming.Symbol)
		if err != nil {
			return 0, 0, err
		}

		if existing != nil {
			existing.Side = incoming.Side
			existing.Quantity = incoming.Quantity
			existing.CurrentPrice = incoming.CurrentPrice
			existing.UnrealizedPnl = incoming.UnrealizedPnl
			if err := positionRepo.Save(ctx, existing); err != nil {
				return 0, 0, err
			}
		} else {
			position := &model.Position{
				BrokerAccountID: account.ID,
				Symbol:          incoming.Symbol,
				Side:            incoming.Side,
				Quantity:        incoming.Quantity,
				EntryPrice:      incoming.EntryPrice,
				CurrentPrice:    incoming.CurrentPrice,
				UnrealizedPnl:   incoming.UnrealizedPnl,
				Status:          model.PositionStatusOpen,
				OpenedAt:        syncedAt,
			}
			if err := positionRepo.Create(ctx, position); err != nil {
				return 0, 0, err
			}
		}
		upserted++
	}

	open, err := positionRepo.ListOpenByAccount(ctx, account.ID)
	if err != nil {
		return 0, 0, err
	}

	closed := 0
	for _, position := range open {
		if _, stillReported := reportedSymbols[position.Symbol]; stillReported {
			continue
		}
		if err := positionRepo.Close(ctx, position.ID, syncedAt); err != nil {
			return 0, 0, err
		}
		closed++

		logger.WithFields(map[string]interface{}{
			"component":  "ReconcileEngine",
			"account_id": account.ID,
			"symbol":     position.Symbol,
		}).Info("Position no longer reported by broker, closed")
	}

	return upserted, closed, nil
}

// normalizeBrokerOrderStatus collapses broker status vocabularies onto
// the internal state machine.
func normalizeBrokerOrderStatus(status string) string {
	switch status {
	case "filled", "completed", "done":
		return model.OrderStatusFilled
	case "cancelled", "canceled", "expired", "rejected":
		return model.OrderStatusCancelled
	default:
		return model.OrderStatusPending
	}
}

// ReconcileOrders ingests broker-side order reports. Orders unknown
// locally are recorded for visibility; orders this platform placed keep
// their coordinator-owned status except for fills, which also append an
// immutable trade row. Returns (ingested, trades) counts.
func (e *ReconcileEngine) ReconcileOrders(ctx context.Context, tx *gorm.DB, account *model.BrokerAccount, reported []connectors.NormalizedOrder) (int, int, error) {
	orderRepo := repository.NewOrderRepository().WithDB(tx)
	tradeRepo := repository.NewTradeRepository().WithDB(tx)

	ingested := 0
	trades := 0
	for _, incoming := range reported {
		if incoming.BrokerOrderID == "" {
			continue
		}

		local, err := orderRepo.FindByBrokerOrderID(ctx, account.ID, incoming.BrokerOrderID)
		if err != nil {
			return 0, 0, err
		}

		if local == nil {
			// Broker-side order not created through this platform.
			order := &model.Order{
				BrokerAccountID: account.ID,
				BrokerOrderID:   incoming.BrokerOrderID,
				Symbol:          incoming.Symbol,
				Side:            incoming.Side,
				OrderType:       orDefault(incoming.OrderType, model.OrderTypeMarket),
				Quantity:        incoming.Quantity,
				Price:           incoming.Price,
				StopPrice:       incoming.StopPrice,
				Status:          normalizeBrokerOrderStatus(incoming.Status),
				FilledQuantity:  clampFill(incoming.FilledQuantity, incoming.Quantity),
				FilledPrice:     incoming.FilledPrice,
			}
			if err := orderRepo.Create(ctx, order); err != nil {
				return 0, 0, err
			}
			ingested++
			continue
		}

		if local.Terminal() {
			continue
		}

		if normalizeBrokerOrderStatus(incoming.Status) != model.OrderStatusFilled {
			continue
		}

		filledQty := clampFill(incoming.FilledQuantity, local.Quantity)
		if filledQty == 0 {
			filledQty = local.Quantity
		}

		local.Status = model.OrderStatusFilled
		local.FilledQuantity = filledQty
		local.FilledPrice = incoming.FilledPrice
		if err := orderRepo.Save(ctx, local); err != nil {
			return 0, 0, err
		}

		executedAt := e.now().UTC()
		if incoming.ExecutedAt != nil {
			executedAt = *incoming.ExecutedAt
		}
		filledPrice := local.FilledPrice
		trade := &model.Trade{
			BrokerAccountID: account.ID,
			OrderID:         local.ID,
			Symbol:          local.Symbol,
			Side:            local.Side,
			Quantity:        filledQty,
			Commission:      incoming.Commission,
			ExecutedAt:      executedAt,
		}
		if filledPrice != nil {
			trade.Price = *filledPrice
		}
		if err := tradeRepo.Create(ctx, trade); err != nil {
			return 0, 0, err
		}
		trades++

		logger.WithFields(map[string]interface{}{
			"component":       "ReconcileEngine",
			"account_id":      account.ID,
			"order_id":        local.ID,
			"broker_order_id": local.BrokerOrderID,
			"filled_qty":      filledQty,
		}).Info("Order fill ingested from broker report")
	}

	return ingested, trades, nil
}

// clampFill enforces filled_quantity <= quantity against brokers that
// report otherwise. A zero or negative reported quantity admits no fill.
func clampFill(filled, quantity int) int {
	if filled < 0 {
		return 0
	}
	if quantity < 0 {
		quantity = 0
	}
	if filled > quantity {
		logger.WithFields(map[string]interface{}{
			"component": "ReconcileEngine",
			"filled":    filled,
			"quantity":  quantity,
		}).Warn("Broker reported fill above order quantity, clamped")
		return quantity
	}
	return filled
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
