package controller

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"brokergateway/src/connectors"
	"brokergateway/src/model"
)

func TestPlaceOrderValidation(t *testing.T) {
	gateway, fake, db, user := newTestGateway(t)
	account := connectTestAccount(t, gateway, user)
	ctx := context.Background()

	price := decimal.NewFromInt(5000)
	stopPrice := decimal.NewFromInt(4990)
	cases := []struct {
		name string
		req  connectors.OrderRequest
	}{
		{name: "missing symbol", req: connectors.OrderRequest{Side: "buy", OrderType: "market", Quantity: 1}},
		{name: "zero quantity", req: connectors.OrderRequest{Symbol: "ESZ5", Side: "buy", OrderType: "market", Quantity: 0}},
		{name: "negative quantity", req: connectors.OrderRequest{Symbol: "ESZ5", Side: "buy", OrderType: "market", Quantity: -2}},
		{name: "bad side", req: connectors.OrderRequest{Symbol: "ESZ5", Side: "hold", OrderType: "market", Quantity: 1}},
		{name: "bad type", req: connectors.OrderRequest{Symbol: "ESZ5", Side: "buy", OrderType: "iceberg", Quantity: 1}},
		{name: "limit without price", req: connectors.OrderRequest{Symbol: "ESZ5", Side: "buy", OrderType: "limit", Quantity: 1}},
		{name: "stop without stop price", req: connectors.OrderRequest{Symbol: "ESZ5", Side: "sell", OrderType: "stop", Quantity: 1, Price: &price}},
		{name: "stop without price", req: connectors.OrderRequest{Symbol: "ESZ5", Side: "sell", OrderType: "stop", Quantity: 1, StopPrice: &stopPrice}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := gateway.PlaceOrder(ctx, user.ID, account.ID, tc.req)
			if !IsValidationError(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	if fake.placeCalls != 0 {
		t.Fatalf("rejected orders reached the broker %d times", fake.placeCalls)
	}

	var count int64
	db.Model(&model.Order{}).Count(&count)
	if count != 0 {
		t.Fatalf("rejected orders left %d rows", count)
	}
}

func TestPlaceOrderHappyPath(t *testing.T) {
	gateway, fake, _, user := newTestGateway(t)
	account := connectTestAccount(t, gateway, user)
	ctx := context.Background()

	order, err := gateway.PlaceOrder(ctx, user.ID, account.ID, connectors.OrderRequest{
		Symbol: "ESZ5", Side: "buy", OrderType: "market", Quantity: 5,
	})
	if err != nil {
		t.Fatalf("place failed: %v", err)
	}

	if order.Status != model.OrderStatusPending {
		t.Fatalf("new order should be pending, got %q", order.Status)
	}
	if order.BrokerOrderID != "X123" {
		t.Fatalf("broker order id not recorded: %+v", order)
	}
	if fake.placeCalls != 1 {
		t.Fatalf("expected one broker call, got %d", fake.placeCalls)
	}

	orders, err := gateway.ListOrders(ctx, user.ID, account.ID)
	if err != nil {
		t.Fatalf("list orders failed: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != order.ID {
		t.Fatalf("order not listed: %+v", orders)
	}
}

func TestPlaceOrderBrokerRejectionLeavesNoRow(t *testing.T) {
	gateway, fake, db, user := newTestGateway(t)
	account := connectTestAccount(t, gateway, user)
	fake.placeErr = connectors.ErrBrokerUnreachable

	_, err := gateway.PlaceOrder(context.Background(), user.ID, account.ID, connectors.OrderRequest{
		Symbol: "ESZ5", Side: "buy", OrderType: "market", Quantity: 1,
	})
	if !errors.Is(err, connectors.ErrBrokerUnreachable) {
		t.Fatalf("expected ErrBrokerUnreachable, got %v", err)
	}

	var count int64
	db.Model(&model.Order{}).Count(&count)
	if count != 0 {
		t.Fatalf("broker rejection left %d rows", count)
	}
}

func TestModifyOrder(t *testing.T) {
	gateway, fake, _, user := newTestGateway(t)
	account := connectTestAccount(t, gateway, user)
	ctx := context.Background()

	price := decimal.NewFromInt(5000)
	order, err := gateway.PlaceOrder(ctx, user.ID, account.ID, connectors.OrderRequest{
		Symbol: "ESZ5", Side: "buy", OrderType: "limit", Quantity: 2, Price: &price,
	})
	if err != nil {
		t.Fatalf("place failed: %v", err)
	}

	newQty := 3
	newPrice := decimal.NewFromInt(4995)
	modified, err := gateway.ModifyOrder(ctx, user.ID, order.ID, connectors.OrderPatch{
		Quantity: &newQty,
		Price:    &newPrice,
	})
	if err != nil {
		t.Fatalf("modify failed: %v", err)
	}
	if modified.Quantity != 3 || modified.Price == nil || !modified.Price.Equal(newPrice) {
		t.Fatalf("patch not applied: %+v", modified)
	}
	if fake.modifyCalls != 1 {
		t.Fatalf("expected one broker modify call, got %d", fake.modifyCalls)
	}
}

func TestModifyOrderInvalidQuantity(t *testing.T) {
	gateway, _, _, user := newTestGateway(t)
	connectTestAccount(t, gateway, user)

	badQty := 0
	_, err := gateway.ModifyOrder(context.Background(), user.ID, 1, connectors.OrderPatch{Quantity: &badQty})
	if !IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestModifyTerminalOrderRejected(t *testing.T) {
	gateway, fake, db, user := newTestGateway(t)
	account := connectTestAccount(t, gateway, user)
	ctx := context.Background()

	order, err := gateway.PlaceOrder(ctx, user.ID, account.ID, connectors.OrderRequest{
		Symbol: "ESZ5", Side: "buy", OrderType: "market", Quantity: 1,
	})
	if err != nil {
		t.Fatalf("place failed: %v", err)
	}

	if err := db.Model(&model.Order{}).Where("id = ?", order.ID).
		Update("status", model.OrderStatusFilled).Error; err != nil {
		t.Fatalf("failed to mark filled: %v", err)
	}

	qty := 2
	if _, err := gateway.ModifyOrder(ctx, user.ID, order.ID, connectors.OrderPatch{Quantity: &qty}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if _, err := gateway.CancelOrder(ctx, user.ID, order.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on cancel, got %v", err)
	}
	if fake.modifyCalls != 0 || fake.cancelCalls != 0 {
		t.Fatalf("terminal order reached the broker")
	}
}

func TestCancelOrder(t *testing.T) {
	gateway, fake, _, user := newTestGateway(t)
	account := connectTestAccount(t, gateway, user)
	ctx := context.Background()

	order, err := gateway.PlaceOrder(ctx, user.ID, account.ID, connectors.OrderRequest{
		Symbol: "ESZ5", Side: "sell", OrderType: "market", Quantity: 1,
	})
	if err != nil {
		t.Fatalf("place failed: %v", err)
	}

	cancelled, err := gateway.CancelOrder(ctx, user.ID, order.ID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != model.OrderStatusCancelled {
		t.Fatalf("order not cancelled: %+v", cancelled)
	}
	if fake.cancelCalls != 1 {
		t.Fatalf("expected one broker cancel call, got %d", fake.cancelCalls)
	}

	// Cancelling again is an invalid transition, not an idempotent no-op.
	if _, err := gateway.CancelOrder(ctx, user.ID, order.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestOrderOwnership(t *testing.T) {
	gateway, _, db, user := newTestGateway(t)
	account := connectTestAccount(t, gateway, user)
	ctx := context.Background()

	order, err := gateway.PlaceOrder(ctx, user.ID, account.ID, connectors.OrderRequest{
		Symbol: "ESZ5", Side: "buy", OrderType: "market", Quantity: 1,
	})
	if err != nil {
		t.Fatalf("place failed: %v", err)
	}

	other := &model.User{Email: "other@example.com", PasswordHash: "x", FullName: "Other", IsActive: true}
	if err := db.Create(other).Error; err != nil {
		t.Fatalf("failed to create second user: %v", err)
	}

	if _, err := gateway.CancelOrder(ctx, other.ID, order.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign user, got %v", err)
	}
}
