package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

const consumeSQL = `UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP()
 WHERE token_hash = ? AND revoked_at IS NULL AND expires_at > UTC_TIMESTAMP()`

func TestConsumeRefresh(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectExec(regexp.QuoteMeta(consumeSQL)).WithArgs("h1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id FROM refresh_tokens WHERE token_hash = ?")).
		WithArgs("h1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(42))

	id, err := NewTokenRepo(db).ConsumeRefresh(context.Background(), "h1")
	if err != nil || id != 42 {
		t.Fatalf("id = %d, err = %v", id, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

// A token that is already revoked, expired or unknown matches no row and
// must never reach the owner lookup.
func TestConsumeRefreshStale(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectExec(regexp.QuoteMeta(consumeSQL)).WithArgs("h1").WillReturnResult(sqlmock.NewResult(0, 0))

	if _, err := NewTokenRepo(db).ConsumeRefresh(context.Background(), "h1"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("err = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestUserListAll(t *testing.T) {
	db, mock := mockDB(t)
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cols := []string{"id", "username", "password_hash", "role", "full_name", "academic_status", "bio", "created_at"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM users ORDER BY full_name, id")).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(1, "root", "x", "admin", "Root", "", "", at).
			AddRow(2, "sam", "x", "student", "Sam", "", "", at))

	users, err := NewUserRepo(db).ListAll(context.Background())
	if err != nil || len(users) != 2 || users[1].Username != "sam" {
		t.Fatalf("users = %+v, err = %v", users, err)
	}
}
