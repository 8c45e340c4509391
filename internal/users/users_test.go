package users

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func mockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

// The flag flip and the ledger credit must commit as one unit.
func TestGrantWelcomeBonusSingleTransaction(t *testing.T) {
	db, mock := mockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET welcome_given=true`)).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET balance = balance + $1`)).
		WithArgs(50.0, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO ledger_entries`)).
		WithArgs(int64(7), 50.0, "welcome_bonus", "registration welcome bonus").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "user_id", "amount", "kind", "note", "created_at"}).
			AddRow(int64(1), int64(7), 50.0, "welcome_bonus", "registration welcome bonus", time.Now()))
	mock.ExpectCommit()

	if err := grantWelcomeBonus(db, 7, 50); err != nil {
		t.Fatalf("grantWelcomeBonus: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

// A user whose flag is already set gets no second credit; the bonus is
// granted at most once even across retries.
func TestGrantWelcomeBonusIsOneShot(t *testing.T) {
	db, mock := mockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET welcome_given=true`)).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	if err := grantWelcomeBonus(db, 7, 50); err != nil {
		t.Fatalf("grantWelcomeBonus on granted user: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
