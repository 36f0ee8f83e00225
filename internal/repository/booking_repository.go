package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/peer-tutoring/internal/model"
)

// BookingRepo is the booking ledger.  Every mutation is a single statement
// or a single transaction; the unique index on session_id and the booking
// triggers decide conflicts, never an application-side read.
type BookingRepo struct {
	db *sql.DB
}

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// Create books sessionID for studentID.
func (r *BookingRepo) Create(ctx context.Context, studentID, sessionID uint64) (model.Booking, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO bookings (student_id, session_id) VALUES (?, ?)`, studentID, sessionID)
	if err != nil {
		return model.Booking{}, bookingError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Booking{}, err
	}
	return scanBooking(r.db.QueryRowContext(ctx,
		`SELECT id, student_id, session_id, booking_time FROM bookings WHERE id = ?`, id))
}

// Reschedule moves booking id of studentID onto newSessionID and returns
// the updated booking plus the session it left.  On any failure the
// transaction rolls back and the original booking is untouched.
func (r *BookingRepo) Reschedule(ctx context.Context, id, studentID, newSessionID uint64) (model.Booking, uint64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Booking{}, 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var prev uint64
	err = tx.QueryRowContext(ctx,
		`SELECT session_id FROM bookings WHERE id = ? AND student_id = ? FOR UPDATE`, id, studentID).Scan(&prev)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, 0, ErrNotFound
	}
	if err != nil {
		return model.Booking{}, 0, err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET session_id = ? WHERE id = ? AND student_id = ?`, newSessionID, id, studentID)
	if err != nil {
		return model.Booking{}, 0, bookingError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Booking{}, 0, err
	}
	if n == 0 {
		return model.Booking{}, 0, ErrNotFound
	}

	b, err := scanBooking(tx.QueryRowContext(ctx,
		`SELECT id, student_id, session_id, booking_time FROM bookings WHERE id = ?`, id))
	if err != nil {
		return model.Booking{}, 0, err
	}
	if err := tx.Commit(); err != nil {
		return model.Booking{}, 0, err
	}
	committed = true
	return b, prev, nil
}

// Delete cancels booking id if it belongs to studentID.  Missing and
// foreign bookings are both ErrNotFound, so a second cancel reports
// ErrNotFound too.
func (r *BookingRepo) Delete(ctx context.Context, id, studentID uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ? AND student_id = ?`, id, studentID)
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

// ListByStudent returns the student's schedule: explicit bookings plus the
// Auto_All sessions of every enrolled course, earliest first and undated
// sessions last.
func (r *BookingRepo) ListByStudent(ctx context.Context, studentID uint64) ([]model.BookingView, error) {
	const q = `
SELECT b.id AS booking_id, b.booking_time AS booking_time, 0 AS auto_assigned,
       s.id AS session_id, s.title, s.start_time AS start_time, s.end_time, s.link, s.session_type,
       c.id, c.course_code, c.title, u.id, u.full_name
  FROM bookings b
  JOIN sessions s ON s.id = b.session_id
  JOIN courses c ON c.id = s.course_id
  JOIN users u ON u.id = s.tutor_id
 WHERE b.student_id = ?
UNION ALL
SELECT NULL, NULL, 1,
       s.id, s.title, s.start_time, s.end_time, s.link, s.session_type,
       c.id, c.course_code, c.title, u.id, u.full_name
  FROM enrollments e
  JOIN sessions s ON s.course_id = e.course_id AND s.assign_mode = 'Auto_All'
  JOIN courses c ON c.id = s.course_id
  JOIN users u ON u.id = s.tutor_id
 WHERE e.student_id = ?
   AND NOT EXISTS (SELECT 1 FROM bookings x WHERE x.session_id = s.id AND x.student_id = e.student_id)
 ORDER BY start_time IS NULL, start_time, session_id`

	rows, err := r.db.QueryContext(ctx, q, studentID, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.BookingView{}
	for rows.Next() {
		var (
			v          model.BookingView
			bookingID  sql.NullInt64
			bookedAt   sql.NullTime
			start, end sql.NullTime
			typ        string
		)
		if err := rows.Scan(&bookingID, &bookedAt, &v.AutoAssigned, &v.SessionID, &v.Title, &start, &end,
			&v.Link, &typ, &v.CourseID, &v.CourseCode, &v.CourseTitle, &v.TutorID, &v.TutorName); err != nil {
			return nil, err
		}
		if bookingID.Valid {
			id := uint64(bookingID.Int64)
			v.BookingID = &id
		}
		v.BookingTime = timePtr(bookedAt)
		v.StartTime, v.EndTime = timePtr(start), timePtr(end)
		v.Type = model.SessionType(typ)
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanBooking(s scanner) (model.Booking, error) {
	var b model.Booking
	err := s.Scan(&b.ID, &b.StudentID, &b.SessionID, &b.BookingTime)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, ErrNotFound
	}
	return b, err
}
