// Package repository holds the MySQL data access layer.  Storage outcomes
// that callers must tell apart are reported as the sentinel errors below;
// everything else is returned wrapped and treated as internal.
package repository

import "errors"

var (
	// ErrNotFound is returned when the addressed row does not exist or is
	// not visible under the ownership predicate of the statement.
	ErrNotFound = errors.New("not found")

	// ErrSessionTaken means another booking already holds the session.
	ErrSessionTaken = errors.New("session already booked")

	// ErrNotEnrolled means the student is not enrolled in the session's course.
	ErrNotEnrolled = errors.New("student not enrolled in course")

	// ErrAutoAssigned means the session is Auto_All and cannot be booked.
	ErrAutoAssigned = errors.New("session is assigned to every enrolled student")

	// ErrTutorMismatch means a session's tutor differs from its course's tutor.
	ErrTutorMismatch = errors.New("session tutor must own the course")

	// ErrInvalidWindow means the session time window violates the check
	// constraint.
	ErrInvalidWindow = errors.New("invalid session time window")

	ErrDuplicateCode   = errors.New("course code already exists")
	ErrAlreadyEnrolled = errors.New("already enrolled")
	ErrUsernameTaken   = errors.New("username already exists")
	ErrCourseNotFound  = errors.New("course not found")
	ErrCourseClosed    = errors.New("course is not accepting enrollments")
	ErrUserNotFound    = errors.New("user not found")
)
