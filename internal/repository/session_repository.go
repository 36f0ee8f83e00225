package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/peer-tutoring/internal/model"
)

// SessionRepo provides access to the sessions table.
type SessionRepo struct {
	db *sql.DB
}

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

const sessionColumns = `id, course_id, tutor_id, title, start_time, end_time, link, session_type, assign_mode, created_at`

// Create inserts s.  The window check and the tutor/course match are
// enforced by the database as well; their violations come back as
// ErrInvalidWindow and ErrTutorMismatch.
func (r *SessionRepo) Create(ctx context.Context, s model.Session) (model.Session, error) {
	if s.AssignMode == "" {
		s.AssignMode = model.AssignManual
	}
	res, err := r.db.ExecContext(ctx, `
INSERT INTO sessions (course_id, tutor_id, title, start_time, end_time, link, session_type, assign_mode)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.CourseID, s.TutorID, s.Title, nullTime(s.StartTime), nullTime(s.EndTime), s.Link,
		string(s.Type), string(s.AssignMode))
	if err != nil {
		return model.Session{}, sessionError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Session{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID returns ErrNotFound for an unknown id.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (model.Session, error) {
	return scanSession(r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
}

// Update locks session id (restricted to ownerID when non-zero), hands the
// current row to apply and writes back what apply returns, all in one
// transaction.  apply may reject the merged row by returning an error,
// which aborts the update.
func (r *SessionRepo) Update(ctx context.Context, id, ownerID uint64, apply func(model.Session) (model.Session, error)) (model.Session, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Session{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	q := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`
	args := []any{id}
	if ownerID != 0 {
		q += ` AND tutor_id = ?`
		args = append(args, ownerID)
	}
	cur, err := scanSession(tx.QueryRowContext(ctx, q+` FOR UPDATE`, args...))
	if err != nil {
		return model.Session{}, err
	}

	next, err := apply(cur)
	if err != nil {
		return model.Session{}, err
	}
	_, err = tx.ExecContext(ctx, `
UPDATE sessions
   SET title = ?, start_time = ?, end_time = ?, link = ?, session_type = ?, assign_mode = ?
 WHERE id = ?`,
		next.Title, nullTime(next.StartTime), nullTime(next.EndTime), next.Link,
		string(next.Type), string(next.AssignMode), id)
	if err != nil {
		return model.Session{}, sessionError(err)
	}
	if err := tx.Commit(); err != nil {
		return model.Session{}, err
	}
	committed = true

	next.ID, next.CourseID, next.TutorID, next.CreatedAt = cur.ID, cur.CourseID, cur.TutorID, cur.CreatedAt
	return next, nil
}

// Delete removes session id (restricted to ownerID when non-zero).
// Bookings on it go with it through the foreign key cascade.
func (r *SessionRepo) Delete(ctx context.Context, id, ownerID uint64) error {
	q := `DELETE FROM sessions WHERE id = ?`
	args := []any{id}
	if ownerID != 0 {
		q += ` AND tutor_id = ?`
		args = append(args, ownerID)
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const sessionViewSelect = `SELECT s.id, s.course_id, s.tutor_id, s.title, s.start_time, s.end_time, s.link,
       s.session_type, s.assign_mode, s.created_at, c.course_code, c.title, u.full_name,
       b.id, b.student_id
  FROM sessions s
  JOIN courses c ON c.id = s.course_id
  JOIN users u ON u.id = s.tutor_id
  LEFT JOIN bookings b ON b.session_id = s.id`

// undated sessions (documents) sort after every dated one
const sessionOrder = ` ORDER BY s.start_time IS NULL, s.start_time, s.id`

// ListByCourse returns the sessions of courseID annotated for viewerID.
func (r *SessionRepo) ListByCourse(ctx context.Context, courseID, viewerID uint64) ([]model.SessionView, error) {
	return r.views(ctx, viewerID, sessionViewSelect+` WHERE s.course_id = ?`+sessionOrder, courseID)
}

// ListByTutor returns the sessions taught by tutorID.
func (r *SessionRepo) ListByTutor(ctx context.Context, tutorID, viewerID uint64) ([]model.SessionView, error) {
	return r.views(ctx, viewerID, sessionViewSelect+` WHERE s.tutor_id = ?`+sessionOrder, tutorID)
}

// ListAll returns every session.
func (r *SessionRepo) ListAll(ctx context.Context, viewerID uint64) ([]model.SessionView, error) {
	return r.views(ctx, viewerID, sessionViewSelect+sessionOrder)
}

// ListForStudent returns the sessions of every course studentID is
// enrolled in.
func (r *SessionRepo) ListForStudent(ctx context.Context, studentID uint64) ([]model.SessionView, error) {
	return r.views(ctx, studentID, sessionViewSelect+`
  JOIN enrollments e ON e.course_id = s.course_id AND e.student_id = ?`+sessionOrder, studentID)
}

func (r *SessionRepo) views(ctx context.Context, viewerID uint64, q string, args ...any) ([]model.SessionView, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.SessionView{}
	for rows.Next() {
		var (
			v                model.SessionView
			start, end       sql.NullTime
			typ, mode        string
			bookingID, owner sql.NullInt64
		)
		if err := rows.Scan(&v.ID, &v.CourseID, &v.TutorID, &v.Title, &start, &end, &v.Link,
			&typ, &mode, &v.CreatedAt, &v.CourseCode, &v.CourseTitle, &v.TutorName,
			&bookingID, &owner); err != nil {
			return nil, err
		}
		v.StartTime, v.EndTime = timePtr(start), timePtr(end)
		v.Type, v.AssignMode = model.SessionType(typ), model.AssignMode(mode)
		v.Taken = bookingID.Valid
		if owner.Valid && uint64(owner.Int64) == viewerID {
			id := uint64(bookingID.Int64)
			v.BookedByViewer = true
			v.BookingID = &id
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanSession(s scanner) (model.Session, error) {
	var (
		out        model.Session
		start, end sql.NullTime
		typ, mode  string
	)
	err := s.Scan(&out.ID, &out.CourseID, &out.TutorID, &out.Title, &start, &end, &out.Link, &typ, &mode, &out.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, ErrNotFound
	}
	if err != nil {
		return model.Session{}, err
	}
	out.StartTime, out.EndTime = timePtr(start), timePtr(end)
	out.Type, out.AssignMode = model.SessionType(typ), model.AssignMode(mode)
	return out, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
