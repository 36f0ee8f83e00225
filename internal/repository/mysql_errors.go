package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers the repositories react to.
const (
	erDupEntry          = 1062
	erNoReferencedRow   = 1452
	erSignalException   = 1644
	erCheckConstraint   = 3819
	sqlStateUserDefined = "45000"
)

// Messages raised by the triggers in the init migration.
const (
	signalNotEnrolled     = "NOT_ENROLLED"
	signalAutoAssigned    = "AUTO_ASSIGNED"
	signalSessionNotFound = "SESSION_NOT_FOUND"
	signalTutorMismatch   = "TUTOR_MISMATCH"
)

func asMySQL(err error) (*mysql.MySQLError, bool) {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me, true
	}
	return nil, false
}

func isDuplicate(err error) bool {
	me, ok := asMySQL(err)
	return ok && me.Number == erDupEntry
}

func isMissingParent(err error) bool {
	me, ok := asMySQL(err)
	return ok && me.Number == erNoReferencedRow
}

func isCheckViolation(err error) bool {
	me, ok := asMySQL(err)
	return ok && me.Number == erCheckConstraint
}

// signalOf returns the MESSAGE_TEXT of a SIGNAL SQLSTATE '45000'.
func signalOf(err error) (string, bool) {
	me, ok := asMySQL(err)
	if !ok {
		return "", false
	}
	if me.Number != erSignalException && string(me.SQLState[:]) != sqlStateUserDefined {
		return "", false
	}
	return me.Message, true
}

// bookingError maps a failed INSERT or UPDATE on bookings onto the
// ledger's error kinds.  Unknown errors are returned unchanged.
func bookingError(err error) error {
	if err == nil {
		return nil
	}
	if isDuplicate(err) {
		return ErrSessionTaken
	}
	if isMissingParent(err) {
		return ErrNotFound
	}
	if msg, ok := signalOf(err); ok {
		switch msg {
		case signalNotEnrolled:
			return ErrNotEnrolled
		case signalAutoAssigned:
			return ErrAutoAssigned
		case signalSessionNotFound:
			return ErrNotFound
		}
	}
	return err
}

// sessionError maps a failed write on sessions.
func sessionError(err error) error {
	if err == nil {
		return nil
	}
	if isMissingParent(err) {
		return ErrCourseNotFound
	}
	if isCheckViolation(err) {
		return ErrInvalidWindow
	}
	if msg, ok := signalOf(err); ok && msg == signalTutorMismatch {
		return ErrTutorMismatch
	}
	return err
}
