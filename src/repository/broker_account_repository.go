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

// BrokerAccountRepository handles read/write operations for linked broker
// accounts. Ownership is enforced at this layer: every lookup that serves
// a user-facing operation is scoped by user id.
type BrokerAccountRepository struct {
	db *gorm.DB
}

// NewBrokerAccountRepository creates a repository backed by the main
// read/write database.
func NewBrokerAccountRepository() *BrokerAccountRepository {
	return &BrokerAccountRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance. Useful for
// tests or when binding the repository to a transaction.
func (r *BrokerAccountRepository) WithDB(db *gorm.DB) *BrokerAccountRepository {
	return &BrokerAccountRepository{db: db}
}

// Create inserts a new broker account.
func (r *BrokerAccountRepository) Create(ctx context.Context, account *model.BrokerAccount) error {
	logger.WithFields(map[string]interface{}{
		"repo":        "BrokerAccountRepository",
		"op":          "Create",
		"user_id":     account.UserID,
		"broker_type": account.BrokerType,
	}).Debug("Creating broker account")

	err := r.db.WithContext(ctx).Create(account).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "BrokerAccountRepository",
			"op":   "Create",
		}).WithError(err).Error("Failed to create broker account")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":       "BrokerAccountRepository",
		"op":         "Create",
		"account_id": account.ID,
	}).Info("Broker account created")

	return nil
}

// FindByIDAndUser fetches a broker account by id, scoped to its owner.
// Returns (nil, nil) when no owned account matches.
func (r *BrokerAccountRepository) FindByIDAndUser(ctx context.Context, id, userID uint) (*model.BrokerAccount, error) {
	var account model.BrokerAccount

	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&account).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":       "BrokerAccountRepository",
			"op":         "FindByIDAndUser",
			"account_id": id,
			"user_id":    userID,
		}).WithError(err).Error("Failed to fetch broker account")

		return nil, err
	}

	return &account, nil
}

// ListByUser returns every broker account linked by the user, newest
// first.
func (r *BrokerAccountRepository) ListByUser(ctx context.Context, userID uint) ([]model.BrokerAccount, error) {
	var accounts []model.BrokerAccount

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&accounts).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "BrokerAccountRepository",
			"op":      "ListByUser",
			"user_id": userID,
		}).WithError(err).Error("Failed to list broker accounts")

		return nil, err
	}

	return accounts, nil
}

// UpdateSnapshot overwrites the broker-authoritative monetary scalars and
// stamps last_sync. Full overwrite, not a merge.
func (r *BrokerAccountRepository) UpdateSnapshot(ctx context.Context, id uint, updates map[string]interface{}, syncedAt time.Time) error {
	updates["last_sync"] = syncedAt

	err := r.db.WithContext(ctx).
		Model(&model.BrokerAccount{}).
		Where("id = ?", id).
		Updates(updates).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":       "BrokerAccountRepository",
			"op":         "UpdateSnapshot",
			"account_id": id,
		}).WithError(err).Error("Failed to update broker account snapshot")

		return err
	}

	return nil
}

// DeleteByIDAndUser removes an owned broker account. Positions, orders
// and trades cascade at the database level.
func (r *BrokerAccountRepository) DeleteByIDAndUser(ctx context.Context, id, userID uint) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&model.BrokerAccount{})

	if res.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo":       "BrokerAccountRepository",
			"op":         "DeleteByIDAndUser",
			"account_id": id,
			"user_id":    userID,
		}).WithError(res.Error).Error("Failed to delete broker account")

		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	logger.WithFields(map[string]interface{}{
		"repo":       "BrokerAccountRepository",
		"op":         "DeleteByIDAndUser",
		"account_id": id,
	}).Info("Broker account deleted")

	return nil
}
