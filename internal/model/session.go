package model

import (
    "strings"
    "time"
)

// SessionType describes what a session is.  Documents are the only type
// that may be published without a time window.
type SessionType string

const (
    SessionMeeting  SessionType = "Meeting"
    SessionQuiz     SessionType = "Quiz"
    SessionForm     SessionType = "Form"
    SessionDocument SessionType = "Document"
)

// ParseSessionType accepts any casing of the known session types.
func ParseSessionType(s string) (SessionType, bool) {
    for _, t := range []SessionType{SessionMeeting, SessionQuiz, SessionForm, SessionDocument} {
        if strings.EqualFold(string(t), strings.TrimSpace(s)) {
            return t, true
        }
    }
    return "", false
}

// AssignMode controls how students get a session.  Manual sessions must be
// booked; Auto_All sessions belong to every enrolled student.
type AssignMode string

const (
    AssignManual  AssignMode = "Manual"
    AssignAutoAll AssignMode = "Auto_All"
)

// ParseAssignMode maps user input onto an AssignMode.  Empty input yields
// Manual.
func ParseAssignMode(s string) (AssignMode, bool) {
    switch strings.ToLower(strings.TrimSpace(s)) {
    case "", "manual":
        return AssignManual, true
    case "auto_all", "auto", "autoall":
        return AssignAutoAll, true
    }
    return "", false
}

// Session mirrors the `sessions` table.  StartTime and EndTime are nil
// only for documents.
type Session struct {
    ID          uint64      `json:"id"`
    CourseID    uint64      `json:"course_id"`
    TutorID     uint64      `json:"tutor_id"`
    Title       string      `json:"title"`
    StartTime   *time.Time  `json:"start_time"`
    EndTime     *time.Time  `json:"end_time"`
    Link        string      `json:"link"`
    Type        SessionType `json:"session_type"`
    AssignMode  AssignMode  `json:"assign_mode"`
    CreatedAt   time.Time   `json:"created_at"`
}

// ValidWindow checks the time window rule: every type except Document needs
// both bounds with end after start.  A Document may have no window at all,
// but a half-open window is never valid.
func (s Session) ValidWindow() bool {
    if s.StartTime == nil && s.EndTime == nil {
        return s.Type == SessionDocument
    }
    if s.StartTime == nil || s.EndTime == nil {
        return false
    }
    return s.EndTime.After(*s.StartTime)
}

// SessionPatch carries the mutable session fields.  ClearWindow removes
// both bounds and is only meaningful for documents.
type SessionPatch struct {
    Title       *string
    StartTime   *time.Time
    EndTime     *time.Time
    ClearWindow bool
    Link        *string
    Type        *SessionType
    AssignMode  *AssignMode
}

// Apply returns s with the patch merged in.
func (p SessionPatch) Apply(s Session) Session {
    if p.Title != nil {
        s.Title = *p.Title
    }
    if p.ClearWindow {
        s.StartTime, s.EndTime = nil, nil
    }
    if p.StartTime != nil {
        t := *p.StartTime
        s.StartTime = &t
    }
    if p.EndTime != nil {
        t := *p.EndTime
        s.EndTime = &t
    }
    if p.Link != nil {
        s.Link = *p.Link
    }
    if p.Type != nil {
        s.Type = *p.Type
    }
    if p.AssignMode != nil {
        s.AssignMode = *p.AssignMode
    }
    return s
}

// SessionView is a session joined with its course and tutor and annotated
// for the viewer.  Taken means some student holds the seat; BookedByViewer
// means the viewer does.
type SessionView struct {
    Session
    CourseCode     string  `json:"course_code"`
    CourseTitle    string  `json:"course_title"`
    TutorName      string  `json:"tutor_name"`
    Taken          bool    `json:"taken"`
    BookedByViewer bool    `json:"booked_by_me"`
    BookingID      *uint64 `json:"booking_id,omitempty"`
}

// SessionFilter selects a subset of a course's sessions.
type SessionFilter string

const (
    FilterAll       SessionFilter = "all"
    FilterBooked    SessionFilter = "booked"
    FilterAvailable SessionFilter = "available"
)

// ParseSessionFilter defaults to FilterAll for empty input.
func ParseSessionFilter(s string) (SessionFilter, bool) {
    switch strings.ToLower(strings.TrimSpace(s)) {
    case "", "all":
        return FilterAll, true
    case "booked":
        return FilterBooked, true
    case "available":
        return FilterAvailable, true
    }
    return "", false
}
