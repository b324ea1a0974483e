package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPositionRepositoryFindOpenByAccountAndSymbol(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := (&PositionRepository{}).WithDB(mockDB)

	t.Run("found", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "broker_account_id", "symbol", "side", "quantity", "status"}).
			AddRow(3, 7, "ESZ5", "long", 2, "open")
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "positions" WHERE broker_account_id = $1 AND symbol = $2 AND status = $3`)).
			WillReturnRows(rows)

		position, err := repo.FindOpenByAccountAndSymbol(context.Background(), 7, "ESZ5")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if position == nil || position.Symbol != "ESZ5" || position.Quantity != 2 {
			t.Fatalf("unexpected position: %+v", position)
		}
	})

	t.Run("flat symbol yields nil without error", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "positions" WHERE broker_account_id = $1 AND symbol = $2 AND status = $3`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		position, err := repo.FindOpenByAccountAndSymbol(context.Background(), 7, "NQZ5")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if position != nil {
			t.Fatalf("expected nil position, got %+v", position)
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestPositionRepositoryListOpenByAccount(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := (&PositionRepository{}).WithDB(mockDB)

	rows := sqlmock.NewRows([]string{"id", "broker_account_id", "symbol", "status"}).
		AddRow(1, 7, "ESZ5", "open").
		AddRow(2, 7, "NQZ5", "open")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "positions" WHERE broker_account_id = $1 AND status = $2 ORDER BY symbol ASC`)).
		WillReturnRows(rows)

	positions, err := repo.ListOpenByAccount(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(positions) != 2 {
		t.Fatalf("expected 2 positions, got %d", len(positions))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestPositionRepositoryClose(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := (&PositionRepository{}).WithDB(mockDB)

	// The status guard in the WHERE clause is what makes Close idempotent:
	// a second call matches zero rows and still succeeds.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "positions" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.Close(context.Background(), 3, time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "positions" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.Close(context.Background(), 3, time.Date(2026, 8, 30, 14, 5, 0, 0, time.UTC)); err != nil {
		t.Fatalf("second close should be a no-op, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}
