package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
)

func signal(msg string) error {
	me := &mysql.MySQLError{Number: erSignalException, Message: msg}
	copy(me.SQLState[:], sqlStateUserDefined)
	return me
}

func TestBookingError(t *testing.T) {
	other := errors.New("connection reset")
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"duplicate", &mysql.MySQLError{Number: erDupEntry, Message: "Duplicate entry '7' for key 'uq_bookings_session'"}, ErrSessionTaken},
		{"wrapped duplicate", fmt.Errorf("insert: %w", &mysql.MySQLError{Number: erDupEntry}), ErrSessionTaken},
		{"not enrolled", signal(signalNotEnrolled), ErrNotEnrolled},
		{"auto assigned", signal(signalAutoAssigned), ErrAutoAssigned},
		{"unknown session", signal(signalSessionNotFound), ErrNotFound},
		{"fk", &mysql.MySQLError{Number: erNoReferencedRow}, ErrNotFound},
		{"other", other, other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bookingError(tt.in); !errors.Is(got, tt.want) && got != tt.want {
				t.Fatalf("bookingError(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSessionError(t *testing.T) {
	if got := sessionError(&mysql.MySQLError{Number: erCheckConstraint}); got != ErrInvalidWindow {
		t.Fatalf("check violation = %v", got)
	}
	if got := sessionError(&mysql.MySQLError{Number: erNoReferencedRow}); got != ErrCourseNotFound {
		t.Fatalf("fk violation = %v", got)
	}
	if got := sessionError(signal(signalTutorMismatch)); got != ErrTutorMismatch {
		t.Fatalf("tutor mismatch = %v", got)
	}
	// a signal without a known message stays as is
	raw := signal("SOMETHING_ELSE")
	if got := sessionError(raw); got != raw {
		t.Fatalf("unknown signal = %v", got)
	}
}
