package repository

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"brokergateway/src/database"
	"brokergateway/src/model"
)

// PositionRepository handles persistence of mirrored broker positions.
type PositionRepository struct {
	db *gorm.DB
}

func NewPositionRepository() *PositionRepository {
	return &PositionRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance, typically
// to bind the repository to a reconciliation transaction.
func (r *PositionRepository) WithDB(db *gorm.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// FindOpenByAccountAndSymbol returns the single open position for the
// symbol, or (nil, nil) when the account is flat on it.
func (r *PositionRepository) FindOpenByAccountAndSymbol(ctx context.Context, accountID uint, symbol string) (*model.Position, error) {
	var position model.Position

	err := r.db.WithContext(ctx).
		Where("broker_account_id = ? AND symbol = ? AND status = ?", accountID, symbol, model.PositionStatusOpen).
		First(&position).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":       "PositionRepository",
			"op":         "FindOpenByAccountAndSymbol",
			"account_id": accountID,
			"symbol":     symbol,
		}).WithError(err).Error("Failed to fetch open position")

		return nil, err
	}

	return &position, nil
}

// ListOpenByAccount returns all open positions for the account.
func (r *PositionRepository) ListOpenByAccount(ctx context.Context, accountID uint) ([]model.Position, error) {
	var positions []model.Position

	err := r.db.WithContext(ctx).
		Where("broker_account_id = ? AND status = ?", accountID, model.PositionStatusOpen).
		Order("symbol ASC").
		Find(&positions).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":       "PositionRepository",
			"op":         "ListOpenByAccount",
			"account_id": accountID,
		}).WithError(err).Error("Failed to list open positions")

		return nil, err
	}

	return positions, nil
}

// Create inserts a new position row.
func (r *PositionRepository) Create(ctx context.Context, position *model.Position) error {
	err := r.db.WithContext(ctx).Create(position).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":       "PositionRepository",
			"op":         "Create",
			"account_id": position.BrokerAccountID,
			"symbol":     position.Symbol,
		}).WithError(err).Error("Failed to create position")

		return err
	}

	return nil
}

// Save persists every field of an existing position.
func (r *PositionRepository) Save(ctx context.Context, position *model.Position) error {
	err := r.db.WithContext(ctx).Save(position).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":        "PositionRepository",
			"op":          "Save",
			"position_id": position.ID,
		}).WithError(err).Error("Failed to save position")

		return err
	}

	return nil
}

// Close flips a position to closed and stamps closed_at. Idempotent: a
// position already closed is left untouched.
func (r *PositionRepository) Close(ctx context.Context, positionID uint, closedAt time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&model.Position{}).
		Where("id = ? AND status = ?", positionID, model.PositionStatusOpen).
		Updates(map[string]interface{}{
			"status":    model.PositionStatusClosed,
			"quantity":  0,
			"closed_at": closedAt,
		}).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":        "PositionRepository",
			"op":          "Close",
			"position_id": positionID,
		}).WithError(err).Error("Failed to close position")

		return err
	}

	return nil
}

// CountOpenByAccount returns how many open positions the account holds.
func (r *PositionRepository) CountOpenByAccount(ctx context.Context, accountID uint) (int64, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&model.Position{}).
		Where("broker_account_id = ? AND status = ?", accountID, model.PositionStatusOpen).
		Count(&count).Error

	if err != nil {
		return 0, err
	}

	return count, nil
}

// ListByAccount returns every position, open and closed, for PnL rollups.
func (r *PositionRepository) ListByAccount(ctx context.Context, accountID uint) ([]model.Position, error) {
	var positions []model.Position

	err := r.db.WithContext(ctx).
		Where("broker_account_id = ?", accountID).
		Find(&positions).Error

	if err != nil {
		return nil, err
	}

	return positions, nil
}
