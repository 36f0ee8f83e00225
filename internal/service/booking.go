package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/peer-tutoring/internal/model"
	"github.com/iliyamo/peer-tutoring/internal/policy"
	"github.com/iliyamo/peer-tutoring/internal/queue"
)

// publishTimeout bounds event delivery so a slow broker never stalls a
// committed request for long.
const publishTimeout = 2 * time.Second

// BookingService is the booking ledger's entry point.  It never reads
// before writing: the store's constraints decide conflicts.
type BookingService struct {
	bookings BookingStore
	events   EventPublisher
	log      *zap.Logger
}

func NewBookingService(bookings BookingStore, events EventPublisher, log *zap.Logger) *BookingService {
	return &BookingService{bookings: bookings, events: events, log: log}
}

// Book reserves sessionID for the calling student.
func (s *BookingService) Book(ctx context.Context, p policy.Principal, sessionID uint64) (model.Booking, error) {
	if err := policy.Authorize(p, policy.BookingCreate, policy.Target{StudentID: p.ID}).Err(); err != nil {
		return model.Booking{}, err
	}
	if sessionID == 0 {
		return model.Booking{}, invalid("session_id required")
	}
	b, err := s.bookings.Create(ctx, p.ID, sessionID)
	if err != nil {
		return model.Booking{}, err
	}
	s.log.Info("booking created", zap.Uint64("booking_id", b.ID), zap.Uint64("student_id", p.ID), zap.Uint64("session_id", sessionID))
	s.publish(ctx, queue.NewBookingEvent(queue.BookingCreated, b.ID, p.ID, sessionID))
	return b, nil
}

// Reschedule moves one of the caller's bookings to newSessionID.  Either
// the move happens completely or the booking stays where it was.
func (s *BookingService) Reschedule(ctx context.Context, p policy.Principal, bookingID, newSessionID uint64) (model.Booking, error) {
	scope := policy.ScopeFor(p, policy.BookingUpdate)
	if err := scope.Err(); err != nil {
		return model.Booking{}, err
	}
	if newSessionID == 0 {
		return model.Booking{}, invalid("session_id required")
	}
	b, prev, err := s.bookings.Reschedule(ctx, bookingID, scope.OwnerID, newSessionID)
	if err != nil {
		return model.Booking{}, err
	}
	s.log.Info("booking rescheduled", zap.Uint64("booking_id", b.ID), zap.Uint64("from_session", prev), zap.Uint64("to_session", newSessionID))
	ev := queue.NewBookingEvent(queue.BookingRescheduled, b.ID, p.ID, newSessionID)
	ev.PreviousSessionID = prev
	s.publish(ctx, ev)
	return b, nil
}

// Cancel deletes one of the caller's bookings.  Cancelling a booking that
// is gone, or not the caller's, is ErrNotFound.
func (s *BookingService) Cancel(ctx context.Context, p policy.Principal, bookingID uint64) error {
	scope := policy.ScopeFor(p, policy.BookingDelete)
	if err := scope.Err(); err != nil {
		return err
	}
	if err := s.bookings.Delete(ctx, bookingID, scope.OwnerID); err != nil {
		return err
	}
	s.log.Info("booking cancelled", zap.Uint64("booking_id", bookingID), zap.Uint64("student_id", p.ID))
	s.publish(ctx, queue.NewBookingEvent(queue.BookingCancelled, bookingID, p.ID, 0))
	return nil
}

// ListByStudent returns the caller's schedule.
func (s *BookingService) ListByStudent(ctx context.Context, p policy.Principal) ([]model.BookingView, error) {
	scope := policy.ScopeFor(p, policy.BookingList)
	if err := scope.Err(); err != nil {
		return nil, err
	}
	return s.bookings.ListByStudent(ctx, scope.OwnerID)
}

// publish is best effort: the booking has already committed, so a broker
// failure is logged and swallowed.
func (s *BookingService) publish(ctx context.Context, ev queue.BookingEvent) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("publish booking event failed", zap.String("type", string(ev.Type)), zap.Uint64("booking_id", ev.BookingID), zap.Error(err))
	}
}
