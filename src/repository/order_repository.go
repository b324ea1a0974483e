package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"brokergateway/src/database"
	"brokergateway/src/model"
)

// OrderRepository handles read/write operations for orders routed through
// the gateway.
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance. Useful for
// tests or when using a specific session/transaction.
func (r *OrderRepository) WithDB(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts a new order. The given order is updated with the
// generated ID and timestamps.
func (r *OrderRepository) Create(ctx context.Context, order *model.Order) error {
	logger.WithFields(map[string]interface{}{
		"repo":   "OrderRepository",
		"op":     "Create",
		"symbol": order.Symbol,
		"side":   order.Side,
		"qty":    order.Quantity,
	}).Debug("Creating new order")

	err := r.db.WithContext(ctx).Create(order).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "OrderRepository",
			"op":   "Create",
		}).WithError(err).Error("Failed to create order")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":     "OrderRepository",
		"op":       "Create",
		"order_id": order.ID,
	}).Info("Order created successfully")

	return nil
}

// FindByIDAndUser fetches an order by id, verifying through the owning
// broker account that the user may see it. Returns (nil, nil) when no
// owned order matches.
func (r *OrderRepository) FindByIDAndUser(ctx context.Context, id, userID uint) (*model.Order, error) {
	var order model.Order

	err := r.db.WithContext(ctx).
		Joins("JOIN broker_accounts ON broker_accounts.id = orders.broker_account_id").
		Where("orders.id = ? AND broker_accounts.user_id = ?", id, userID).
		First(&order).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":     "OrderRepository",
			"op":       "FindByIDAndUser",
			"order_id": id,
			"user_id":  userID,
		}).WithError(err).Error("Failed to fetch order")

		return nil, err
	}

	return &order, nil
}

// FindByBrokerOrderID fetches the account's order carrying the given
// broker-assigned id. Returns (nil, nil) if the broker order is unknown
// locally.
func (r *OrderRepository) FindByBrokerOrderID(ctx context.Context, accountID uint, brokerOrderID string) (*model.Order, error) {
	var order model.Order

	err := r.db.WithContext(ctx).
		Where("broker_account_id = ? AND broker_order_id = ?", accountID, brokerOrderID).
		First(&order).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, err
	}

	return &order, nil
}

// ListByAccount returns the account's orders, newest first.
func (r *OrderRepository) ListByAccount(ctx context.Context, accountID uint) ([]model.Order, error) {
	var orders []model.Order

	err := r.db.WithContext(ctx).
		Where("broker_account_id = ?", accountID).
		Order("id DESC").
		Find(&orders).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":       "OrderRepository",
			"op":         "ListByAccount",
			"account_id": accountID,
		}).WithError(err).Error("Failed to list orders")

		return nil, err
	}

	return orders, nil
}

// Save persists every field of an existing order.
func (r *OrderRepository) Save(ctx context.Context, order *model.Order) error {
	err := r.db.WithContext(ctx).Save(order).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "OrderRepository",
			"op":       "Save",
			"order_id": order.ID,
		}).WithError(err).Error("Failed to save order")

		return err
	}

	return nil
}

// UpdateStatus updates only the status of the given order ID.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	logger.WithFields(map[string]interface{}{
		"repo":   "OrderRepository",
		"op":     "UpdateStatus",
		"id":     id,
		"status": status,
	}).Debug("Updating order status")

	err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ?", id).
		Update("status", status).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "OrderRepository",
			"op":     "UpdateStatus",
			"id":     id,
			"status": status,
		}).WithError(err).Error("Failed to update order status")

		return err
	}

	return nil
}

// CountPendingByAccount returns how many pending orders the account has.
func (r *OrderRepository) CountPendingByAccount(ctx context.Context, accountID uint) (int64, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("broker_account_id = ? AND status = ?", accountID, model.OrderStatusPending).
		Count(&count).Error

	if err != nil {
		return 0, err
	}

	return count, nil
}
