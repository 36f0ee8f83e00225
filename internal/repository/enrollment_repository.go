package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/peer-tutoring/internal/model"
)

// EnrollmentRepo manages the enrollments join table.
type EnrollmentRepo struct {
	db *sql.DB
}

func NewEnrollmentRepo(db *sql.DB) *EnrollmentRepo { return &EnrollmentRepo{db: db} }

// Enroll adds studentID to the course identified by code.  The status guard
// lives in the INSERT ... SELECT, so a course closed concurrently cannot
// slip through; the reason for a zero-row insert is resolved afterwards.
func (r *EnrollmentRepo) Enroll(ctx context.Context, studentID uint64, code string) (model.Enrollment, error) {
	code = strings.TrimSpace(code)
	res, err := r.db.ExecContext(ctx, `
INSERT INTO enrollments (student_id, course_id)
SELECT ?, id FROM courses WHERE course_code = ? AND status IN ('Open', 'Ongoing')`, studentID, code)
	if err != nil {
		if isDuplicate(err) {
			return model.Enrollment{}, ErrAlreadyEnrolled
		}
		return model.Enrollment{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Enrollment{}, err
	}
	if n == 0 {
		var id uint64
		err := r.db.QueryRowContext(ctx, `SELECT id FROM courses WHERE course_code = ?`, code).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return model.Enrollment{}, ErrCourseNotFound
		}
		if err != nil {
			return model.Enrollment{}, err
		}
		// An existing enrollment outranks the status guard.
		enrolled, err := r.IsEnrolled(ctx, studentID, id)
		if err != nil {
			return model.Enrollment{}, err
		}
		if enrolled {
			return model.Enrollment{}, ErrAlreadyEnrolled
		}
		return model.Enrollment{}, ErrCourseClosed
	}

	e := model.Enrollment{StudentID: studentID}
	err = r.db.QueryRowContext(ctx, `
SELECT e.course_id, e.enrolled_at
  FROM enrollments e JOIN courses c ON c.id = e.course_id
 WHERE e.student_id = ? AND c.course_code = ?`, studentID, code).Scan(&e.CourseID, &e.EnrolledAt)
	return e, err
}

// IsEnrolled reports whether studentID is enrolled in courseID.
func (r *EnrollmentRepo) IsEnrolled(ctx context.Context, studentID, courseID uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM enrollments WHERE student_id = ? AND course_id = ?`, studentID, courseID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}
