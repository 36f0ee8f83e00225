package model

import "time"

// Booking mirrors the `bookings` table.  A session holds at most one
// booking.
type Booking struct {
    ID          uint64    `json:"id"`
    StudentID   uint64    `json:"student_id"`
    SessionID   uint64    `json:"session_id"`
    BookingTime time.Time `json:"booking_time"`
}

// BookingView is one row of a student's schedule.  Rows derived from
// Auto_All sessions have no booking id and AutoAssigned set.
type BookingView struct {
    BookingID    *uint64     `json:"booking_id"`
    AutoAssigned bool        `json:"auto_assigned"`
    BookingTime  *time.Time  `json:"booking_time,omitempty"`
    SessionID    uint64      `json:"session_id"`
    Title        string      `json:"title"`
    StartTime    *time.Time  `json:"start_time"`
    EndTime      *time.Time  `json:"end_time"`
    Link         string      `json:"link"`
    Type         SessionType `json:"session_type"`
    CourseID     uint64      `json:"course_id"`
    CourseCode   string      `json:"course_code"`
    CourseTitle  string      `json:"course_title"`
    TutorID      uint64      `json:"tutor_id"`
    TutorName    string      `json:"tutor_name"`
}
