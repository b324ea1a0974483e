package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"brokergateway/src/model"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	dialector := postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	})

	gdb, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		sqlDB.Close()
		t.Fatalf("failed to open gorm DB with sqlmock: %v", err)
	}

	return gdb, mock
}

func TestBrokerAccountRepositoryFindByIDAndUser(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := (&BrokerAccountRepository{}).WithDB(mockDB)

	t.Run("found", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "user_id", "broker_type", "account_name", "account_status"}).
			AddRow(7, 1, "tradovate", "DEMO123", "active")
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "broker_accounts" WHERE id = $1 AND user_id = $2`)).
			WillReturnRows(rows)

		account, err := repo.FindByIDAndUser(context.Background(), 7, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if account == nil || account.ID != 7 || account.BrokerType != model.BrokerTypeTradovate {
			t.Fatalf("unexpected account: %+v", account)
		}
	})

	t.Run("missing account yields nil without error", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "broker_accounts" WHERE id = $1 AND user_id = $2`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		account, err := repo.FindByIDAndUser(context.Background(), 99, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if account != nil {
			t.Fatalf("expected nil account, got %+v", account)
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestBrokerAccountRepositoryListByUser(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := (&BrokerAccountRepository{}).WithDB(mockDB)

	rows := sqlmock.NewRows([]string{"id", "user_id", "broker_type"}).
		AddRow(2, 1, "topstep").
		AddRow(1, 1, "tradovate")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "broker_accounts" WHERE user_id = $1 ORDER BY id DESC`)).
		WithArgs(uint(1)).
		WillReturnRows(rows)

	accounts, err := repo.ListByUser(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(accounts) != 2 || accounts[0].ID != 2 || accounts[1].ID != 1 {
		t.Fatalf("unexpected accounts: %+v", accounts)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestBrokerAccountRepositoryUpdateSnapshot(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := (&BrokerAccountRepository{}).WithDB(mockDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "broker_accounts" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpdateSnapshot(context.Background(), 7, map[string]interface{}{
		"balance": "10000",
		"equity":  "10150.5",
	}, time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestBrokerAccountRepositoryDeleteByIDAndUser(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := (&BrokerAccountRepository{}).WithDB(mockDB)

	t.Run("deletes owned account", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "broker_accounts" WHERE id = $1 AND user_id = $2`)).
			WithArgs(uint(7), uint(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		if err := repo.DeleteByIDAndUser(context.Background(), 7, 1); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("zero rows surfaces record not found", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "broker_accounts" WHERE id = $1 AND user_id = $2`)).
			WithArgs(uint(7), uint(2)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := repo.DeleteByIDAndUser(context.Background(), 7, 2)
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			t.Fatalf("expected gorm.ErrRecordNotFound, got %v", err)
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}
