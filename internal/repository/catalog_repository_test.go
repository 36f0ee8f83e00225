package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/peer-tutoring/internal/model"
)

func mockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

var courseCols = []string{"id", "course_code", "title", "description", "tutor_id", "full_name", "status", "created_at", "updated_at"}

func TestCourseUpdateScopedToOwner(t *testing.T) {
	db, mock := mockDB(t)
	repo := NewCourseRepo(db)
	title := "Algorithms II"

	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses SET title = ? WHERE id = ? AND tutor_id = ?")).
		WithArgs(title, 5, 9).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.Update(context.Background(), 5, 9, model.CoursePatch{Title: &title})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCourseUpdateUnscopedForAdmin(t *testing.T) {
	db, mock := mockDB(t)
	repo := NewCourseRepo(db)
	status := model.CourseClosed
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses SET status = ? WHERE id = ?")).
		WithArgs("Closed", 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM courses c").WithArgs(5).WillReturnRows(sqlmock.NewRows(courseCols).
		AddRow(5, "CS101", "Intro", "", 2, "Tia Tutor", "Closed", now, now))

	c, err := repo.Update(context.Background(), 5, 0, model.CoursePatch{Status: &status})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if c.Status != model.CourseClosed || c.TutorName != "Tia Tutor" {
		t.Fatalf("course = %+v", c)
	}
}

func TestCourseCreateDuplicateCode(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectExec("INSERT INTO courses").WillReturnError(&mysql.MySQLError{Number: 1062})
	_, err := NewCourseRepo(db).Create(context.Background(), model.Course{Code: "CS101", Title: "x", TutorID: 2})
	if !errors.Is(err, ErrDuplicateCode) {
		t.Fatalf("err = %v", err)
	}
}

func TestEnrollResolvesZeroRowInsert(t *testing.T) {
	tests := []struct {
		name     string
		course   *sqlmock.Rows
		enrolled *sqlmock.Rows
		want     error
	}{
		{"unknown code", sqlmock.NewRows([]string{"id"}), nil, ErrCourseNotFound},
		{"closed course", sqlmock.NewRows([]string{"id"}).AddRow(5), sqlmock.NewRows([]string{"1"}), ErrCourseClosed},
		{"closed but enrolled", sqlmock.NewRows([]string{"id"}).AddRow(5), sqlmock.NewRows([]string{"1"}).AddRow(1), ErrAlreadyEnrolled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := mockDB(t)
			mock.ExpectExec("INSERT INTO enrollments").WithArgs(3, "CS101").WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM courses WHERE course_code = ?")).WithArgs("CS101").WillReturnRows(tt.course)
			if tt.enrolled != nil {
				mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_id = ? AND course_id = ?")).
					WithArgs(3, 5).
					WillReturnRows(tt.enrolled)
			}

			_, err := NewEnrollmentRepo(db).Enroll(context.Background(), 3, " CS101 ")
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestEnrollTwice(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectExec("INSERT INTO enrollments").WillReturnError(&mysql.MySQLError{Number: 1062})
	if _, err := NewEnrollmentRepo(db).Enroll(context.Background(), 3, "CS101"); !errors.Is(err, ErrAlreadyEnrolled) {
		t.Fatalf("err = %v", err)
	}
}

func TestSessionDeleteScoped(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE id = ? AND tutor_id = ?")).
		WithArgs(7, 2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := NewSessionRepo(db).Delete(context.Background(), 7, 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestSessionUpdateRejectedByApplyRollsBack(t *testing.T) {
	db, mock := mockDB(t)
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	cols := []string{"id", "course_id", "tutor_id", "title", "start_time", "end_time", "link", "session_type", "assign_mode", "created_at"}

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs(7, 2).WillReturnRows(sqlmock.NewRows(cols).
		AddRow(7, 1, 2, "Week 1", start, start.Add(time.Hour), "", "Meeting", "Manual", start))
	mock.ExpectRollback()

	boom := errors.New("window rejected")
	_, err := NewSessionRepo(db).Update(context.Background(), 7, 2, func(s model.Session) (model.Session, error) {
		return s, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSessionCreateCheckViolation(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectExec("INSERT INTO sessions").WillReturnError(&mysql.MySQLError{Number: 3819})
	_, err := NewSessionRepo(db).Create(context.Background(), model.Session{CourseID: 1, TutorID: 2, Type: model.SessionMeeting})
	if !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("err = %v", err)
	}
}

func TestUserCreateDuplicate(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectExec("INSERT INTO users").WithArgs("alice", "hash", "student", "", "", "").
		WillReturnError(&mysql.MySQLError{Number: 1062})
	_, err := NewUserRepo(db).Create(context.Background(), model.User{Username: " Alice ", PasswordHash: "hash", Role: model.RoleStudent})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("err = %v", err)
	}
}
