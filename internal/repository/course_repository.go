package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/peer-tutoring/internal/model"
)

// CourseRepo provides access to the courses table.  Reads join the owning
// tutor so listings can show a name without a second query.
type CourseRepo struct {
	db *sql.DB
}

// NewCourseRepo returns a CourseRepo bound to db.
func NewCourseRepo(db *sql.DB) *CourseRepo { return &CourseRepo{db: db} }

const courseSelect = `SELECT c.id, c.course_code, c.title, COALESCE(c.description, ''), c.tutor_id,
       u.full_name, c.status, c.created_at, c.updated_at
  FROM courses c
  JOIN users u ON u.id = c.tutor_id`

// Create inserts a course and returns the stored row.
func (r *CourseRepo) Create(ctx context.Context, c model.Course) (model.Course, error) {
	if c.Status == "" {
		c.Status = model.CourseOpen
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO courses (course_code, title, description, tutor_id, status) VALUES (?, ?, ?, ?, ?)`,
		strings.TrimSpace(c.Code), c.Title, c.Description, c.TutorID, string(c.Status))
	if err != nil {
		switch {
		case isDuplicate(err):
			return model.Course{}, ErrDuplicateCode
		case isMissingParent(err):
			return model.Course{}, ErrUserNotFound
		}
		return model.Course{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Course{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID returns ErrCourseNotFound when no course has that id.
func (r *CourseRepo) GetByID(ctx context.Context, id uint64) (model.Course, error) {
	return scanCourse(r.db.QueryRowContext(ctx, courseSelect+` WHERE c.id = ?`, id))
}

// GetByCode looks a course up by its public code.
func (r *CourseRepo) GetByCode(ctx context.Context, code string) (model.Course, error) {
	return scanCourse(r.db.QueryRowContext(ctx, courseSelect+` WHERE c.course_code = ?`, strings.TrimSpace(code)))
}

// Update applies patch to course id.  A non-zero ownerID restricts the
// statement to that tutor's course; a course that is absent and a course
// that is not owned both yield ErrNotFound.
func (r *CourseRepo) Update(ctx context.Context, id, ownerID uint64, patch model.CoursePatch) (model.Course, error) {
	var (
		sets []string
		args []any
	)
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*patch.Status))
	}

	where := " WHERE id = ?"
	args = append(args, id)
	if ownerID != 0 {
		where += " AND tutor_id = ?"
		args = append(args, ownerID)
	}

	if len(sets) == 0 {
		// nothing to write; still answer the ownership question
		var one int
		err := r.db.QueryRowContext(ctx, "SELECT 1 FROM courses"+where, args...).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return model.Course{}, ErrNotFound
		}
		if err != nil {
			return model.Course{}, err
		}
		return r.GetByID(ctx, id)
	}

	res, err := r.db.ExecContext(ctx, "UPDATE courses SET "+strings.Join(sets, ", ")+where, args...)
	if err != nil {
		return model.Course{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Course{}, err
	}
	if n == 0 {
		return model.Course{}, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// ListAll returns every course.
func (r *CourseRepo) ListAll(ctx context.Context) ([]model.Course, error) {
	return r.list(ctx, courseSelect+` ORDER BY c.created_at DESC, c.id DESC`)
}

// ListByTutor returns the courses taught by tutorID.
func (r *CourseRepo) ListByTutor(ctx context.Context, tutorID uint64) ([]model.Course, error) {
	return r.list(ctx, courseSelect+` WHERE c.tutor_id = ? ORDER BY c.created_at DESC, c.id DESC`, tutorID)
}

// ListEnrolled returns the courses studentID is enrolled in.
func (r *CourseRepo) ListEnrolled(ctx context.Context, studentID uint64) ([]model.Course, error) {
	return r.list(ctx, courseSelect+`
  JOIN enrollments e ON e.course_id = c.id
 WHERE e.student_id = ?
 ORDER BY e.enrolled_at DESC, c.id DESC`, studentID)
}

// ListOpen returns courses that accept enrollment.
func (r *CourseRepo) ListOpen(ctx context.Context) ([]model.Course, error) {
	return r.list(ctx, courseSelect+` WHERE c.status IN ('Open', 'Ongoing') ORDER BY c.created_at DESC, c.id DESC`)
}

// ListAvailableFor returns open courses studentID is not yet enrolled in.
func (r *CourseRepo) ListAvailableFor(ctx context.Context, studentID uint64) ([]model.Course, error) {
	return r.list(ctx, courseSelect+`
 WHERE c.status IN ('Open', 'Ongoing')
   AND NOT EXISTS (SELECT 1 FROM enrollments e WHERE e.course_id = c.id AND e.student_id = ?)
 ORDER BY c.created_at DESC, c.id DESC`, studentID)
}

func (r *CourseRepo) list(ctx context.Context, q string, args ...any) ([]model.Course, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCourse(s scanner) (model.Course, error) {
	var (
		c      model.Course
		status string
	)
	err := s.Scan(&c.ID, &c.Code, &c.Title, &c.Description, &c.TutorID, &c.TutorName, &status, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Course{}, ErrCourseNotFound
	}
	c.Status = model.CourseStatus(status)
	return c, err
}
