package controller

import (
	"context"

	logger "github.com/sirupsen/logrus"

	"brokergateway/src/connectors"
	"brokergateway/src/model"
	"brokergateway/src/repository"
)

// validateOrderRequest rejects malformed submissions before any network
// call. A rejected order never reaches the broker and leaves no row.
func validateOrderRequest(req connectors.OrderRequest) error {
	if req.Symbol == "" {
		return validationErr("symbol", "is required")
	}
	if req.Quantity <= 0 {
		return validationErr("quantity", "must be a positive integer")
	}
	switch req.Side {
	case model.OrderSideBuy, model.OrderSideSell:
	default:
		return validationErr("side", "must be buy or sell")
	}
	switch req.OrderType {
	case model.OrderTypeMarket:
	case model.OrderTypeLimit:
		if req.Price == nil {
			return validationErr("price", "is required for limit orders")
		}
	case model.OrderTypeStop:
		if req.Price == nil {
			return validationErr("price", "is required for stop orders")
		}
		if req.StopPrice == nil {
			return validationErr("stop_price", "is required for stop orders")
		}
	default:
		return validationErr("order_type", "must be market, limit or stop")
	}
	return nil
}

// PlaceOrder validates the request, routes it to the broker and records
// the acknowledged order as pending. The broker call happens outside the
// account lock; only the local insert is serialized.
func (g *Gateway) PlaceOrder(ctx context.Context, userID, accountID uint, req connectors.OrderRequest) (*model.Order, error) {
	if err := validateOrderRequest(req); err != nil {
		return nil, err
	}

	account, err := g.GetBrokerAccount(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}

	creds, err := g.credentialsFor(account)
	if err != nil {
		return nil, err
	}

	connector, err := g.connectorFor(account)
	if err != nil {
		return nil, err
	}

	result, err := connector.PlaceOrder(ctx, creds, req)
	if err != nil {
		return nil, err
	}

	lock := g.locks.lockFor(account.ID)
	lock.Lock()
	defer lock.Unlock()

	order := &model.Order{
		BrokerAccountID: account.ID,
		BrokerOrderID:   result.BrokerOrderID,
		Symbol:          req.Symbol,
		Side:            req.Side,
		OrderType:       req.OrderType,
		Quantity:        req.Quantity,
		Price:           req.Price,
		StopPrice:       req.StopPrice,
		Status:          model.OrderStatusPending,
	}
	if err := repository.NewOrderRepository().WithDB(g.db).Create(ctx, order); err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"component":       "Gateway",
		"op":              "PlaceOrder",
		"account_id":      account.ID,
		"order_id":        order.ID,
		"broker_order_id": order.BrokerOrderID,
		"symbol":          order.Symbol,
		"side":            order.Side,
		"order_type":      order.OrderType,
		"quantity":        order.Quantity,
	}).Info("Order placed with broker")

	return order, nil
}

// ModifyOrder amends a pending order at the broker, then mirrors the
// accepted patch locally. Terminal orders reject with
// ErrInvalidTransition.
func (g *Gateway) ModifyOrder(ctx context.Context, userID, orderID uint, patch connectors.OrderPatch) (*model.Order, error) {
	if patch.Quantity != nil && *patch.Quantity <= 0 {
		return nil, validationErr("quantity", "must be a positive integer")
	}

	orderRepo := repository.NewOrderRepository().WithDB(g.db)
	order, err := orderRepo.FindByIDAndUser(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrNotFound
	}
	if order.Terminal() {
		return nil, ErrInvalidTransition
	}

	account, err := g.GetBrokerAccount(ctx, userID, order.BrokerAccountID)
	if err != nil {
		return nil, err
	}

	creds, err := g.credentialsFor(account)
	if err != nil {
		return nil, err
	}

	connector, err := g.connectorFor(account)
	if err != nil {
		return nil, err
	}

	if _, err := connector.ModifyOrder(ctx, creds, order.BrokerOrderID, patch); err != nil {
		return nil, err
	}

	lock := g.locks.lockFor(account.ID)
	lock.Lock()
	defer lock.Unlock()

	// A sync may have landed a fill while the broker call was in flight.
	order, err = orderRepo.FindByIDAndUser(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrNotFound
	}
	if order.Terminal() {
		return nil, ErrInvalidTransition
	}

	if patch.Quantity != nil {
		order.Quantity = *patch.Quantity
	}
	if patch.Price != nil {
		order.Price = patch.Price
	}
	if patch.StopPrice != nil {
		order.StopPrice = patch.StopPrice
	}
	if err := orderRepo.Save(ctx, order); err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"component":       "Gateway",
		"op":              "ModifyOrder",
		"account_id":      account.ID,
		"order_id":        order.ID,
		"broker_order_id": order.BrokerOrderID,
	}).Info("Order modified at broker")

	return order, nil
}

// CancelOrder cancels a pending order at the broker and flips the local
// row to cancelled.
func (g *Gateway) CancelOrder(ctx context.Context, userID, orderID uint) (*model.Order, error) {
	orderRepo := repository.NewOrderRepository().WithDB(g.db)
	order, err := orderRepo.FindByIDAndUser(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrNotFound
	}
	if order.Terminal() {
		return nil, ErrInvalidTransition
	}

	account, err := g.GetBrokerAccount(ctx, userID, order.BrokerAccountID)
	if err != nil {
		return nil, err
	}

	creds, err := g.credentialsFor(account)
	if err != nil {
		return nil, err
	}

	connector, err := g.connectorFor(account)
	if err != nil {
		return nil, err
	}

	if _, err := connector.CancelOrder(ctx, creds, order.BrokerOrderID); err != nil {
		return nil, err
	}

	lock := g.locks.lockFor(account.ID)
	lock.Lock()
	defer lock.Unlock()

	order, err = orderRepo.FindByIDAndUser(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrNotFound
	}
	if order.Terminal() {
		return nil, ErrInvalidTransition
	}

	if err := orderRepo.UpdateStatus(ctx, order.ID, model.OrderStatusCancelled); err != nil {
		return nil, err
	}
	order.Status = model.OrderStatusCancelled

	logger.WithFields(map[string]interface{}{
		"component":       "Gateway",
		"op":              "CancelOrder",
		"account_id":      account.ID,
		"order_id":        order.ID,
		"broker_order_id": order.BrokerOrderID,
	}).Info("Order cancelled at broker")

	return order, nil
}
