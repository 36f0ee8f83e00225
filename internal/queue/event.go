// Package queue carries booking lifecycle events over RabbitMQ: a
// publisher used by the booking service and a consumer that appends an
// audit line per event to logs/booking.log.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a booking lifecycle transition.
type EventType string

const (
	BookingCreated     EventType = "booking.created"
	BookingRescheduled EventType = "booking.rescheduled"
	BookingCancelled   EventType = "booking.cancelled"
)

// BookingEvent is published after a booking mutation has committed.
// PreviousSessionID is set for reschedules only; SessionID is zero for
// cancellations.
type BookingEvent struct {
	EventID           string    `json:"event_id"`
	Type              EventType `json:"type"`
	BookingID         uint64    `json:"booking_id"`
	StudentID         uint64    `json:"student_id"`
	SessionID         uint64    `json:"session_id,omitempty"`
	PreviousSessionID uint64    `json:"previous_session_id,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
}

// NewBookingEvent stamps a fresh id and the current time.
func NewBookingEvent(t EventType, bookingID, studentID, sessionID uint64) BookingEvent {
	return BookingEvent{
		EventID:    uuid.NewString(),
		Type:       t,
		BookingID:  bookingID,
		StudentID:  studentID,
		SessionID:  sessionID,
		OccurredAt: time.Now().UTC(),
	}
}
