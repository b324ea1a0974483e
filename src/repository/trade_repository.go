package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"brokergateway/src/database"
	"brokergateway/src/model"
)

// TradeRepository handles the append-only trade ledger. There is no
// update path on purpose: execution records are immutable once written.
type TradeRepository struct {
	db *gorm.DB
}

func NewTradeRepository() *TradeRepository {
	return &TradeRepository{db: database.MainDB}
}

func (r *TradeRepository) WithDB(db *gorm.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Create appends an execution record.
func (r *TradeRepository) Create(ctx context.Context, trade *model.Trade) error {
	err := r.db.WithContext(ctx).Create(trade).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":       "TradeRepository",
			"op":         "Create",
			"account_id": trade.BrokerAccountID,
			"order_id":   trade.OrderID,
			"symbol":     trade.Symbol,
		}).WithError(err).Error("Failed to create trade")

		return err
	}

	return nil
}

// ListRecentByAccount returns the latest executions, newest first.
func (r *TradeRepository) ListRecentByAccount(ctx context.Context, accountID uint, limit int) ([]model.Trade, error) {
	if limit <= 0 {
		limit = 10
	}

	var trades []model.Trade

	err := r.db.WithContext(ctx).
		Where("broker_account_id = ?", accountID).
		Order("executed_at DESC").
		Limit(limit).
		Find(&trades).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":       "TradeRepository",
			"op":         "ListRecentByAccount",
			"account_id": accountID,
		}).WithError(err).Error("Failed to list recent trades")

		return nil, err
	}

	return trades, nil
}

// ListByAccounts returns all executions across the given accounts,
// newest first.
func (r *TradeRepository) ListByAccounts(ctx context.Context, accountIDs []uint) ([]model.Trade, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}

	var trades []model.Trade

	err := r.db.WithContext(ctx).
		Where("broker_account_id IN ?", accountIDs).
		Order("executed_at DESC").
		Find(&trades).Error

	if err != nil {
		return nil, err
	}

	return trades, nil
}
