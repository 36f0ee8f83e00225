// Package service holds the use cases of the tutoring API.  Services take
// an authenticated policy.Principal, consult the policy package and then
// delegate to the stores, which enforce the data invariants themselves.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/peer-tutoring/internal/model"
	"github.com/iliyamo/peer-tutoring/internal/queue"
)

// UserStore is implemented by repository.UserRepo and the memory store.
type UserStore interface {
	Create(ctx context.Context, u model.User) (uint64, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	ListByRole(ctx context.Context, role model.Role) ([]model.User, error)
	ListAll(ctx context.Context) ([]model.User, error)
}

// TokenStore persists refresh token hashes.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	// ConsumeRefresh atomically revokes a live token and returns its
	// owner, or repository.ErrTokenInvalid.
	ConsumeRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// CourseStore is the course catalog.  A non-zero ownerID on Update limits
// the write to that tutor's course.
type CourseStore interface {
	Create(ctx context.Context, c model.Course) (model.Course, error)
	GetByID(ctx context.Context, id uint64) (model.Course, error)
	GetByCode(ctx context.Context, code string) (model.Course, error)
	Update(ctx context.Context, id, ownerID uint64, patch model.CoursePatch) (model.Course, error)
	ListAll(ctx context.Context) ([]model.Course, error)
	ListByTutor(ctx context.Context, tutorID uint64) ([]model.Course, error)
	ListEnrolled(ctx context.Context, studentID uint64) ([]model.Course, error)
	ListOpen(ctx context.Context) ([]model.Course, error)
	ListAvailableFor(ctx context.Context, studentID uint64) ([]model.Course, error)
}

// EnrollmentStore links students to courses.
type EnrollmentStore interface {
	Enroll(ctx context.Context, studentID uint64, code string) (model.Enrollment, error)
	IsEnrolled(ctx context.Context, studentID, courseID uint64) (bool, error)
}

// SessionStore is the session registry.
type SessionStore interface {
	Create(ctx context.Context, s model.Session) (model.Session, error)
	GetByID(ctx context.Context, id uint64) (model.Session, error)
	Update(ctx context.Context, id, ownerID uint64, apply func(model.Session) (model.Session, error)) (model.Session, error)
	Delete(ctx context.Context, id, ownerID uint64) error
	ListByCourse(ctx context.Context, courseID, viewerID uint64) ([]model.SessionView, error)
	ListByTutor(ctx context.Context, tutorID, viewerID uint64) ([]model.SessionView, error)
	ListAll(ctx context.Context, viewerID uint64) ([]model.SessionView, error)
	ListForStudent(ctx context.Context, studentID uint64) ([]model.SessionView, error)
}

// BookingStore is the booking ledger.
type BookingStore interface {
	Create(ctx context.Context, studentID, sessionID uint64) (model.Booking, error)
	Reschedule(ctx context.Context, id, studentID, newSessionID uint64) (model.Booking, uint64, error)
	Delete(ctx context.Context, id, studentID uint64) error
	ListByStudent(ctx context.Context, studentID uint64) ([]model.BookingView, error)
}

// EventPublisher delivers booking lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}
