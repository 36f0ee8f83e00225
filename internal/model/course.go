package model

import (
    "strings"
    "time"
)

// CourseStatus is the lifecycle state of a course.  Only Open and Ongoing
// courses accept enrollments.
type CourseStatus string

const (
    CourseOpen       CourseStatus = "Open"
    CourseOngoing    CourseStatus = "Ongoing"
    CourseProcessing CourseStatus = "Processing"
    CourseClosed     CourseStatus = "Closed"
)

// ParseCourseStatus normalizes user input into a CourseStatus.  "Ended" is
// accepted as an alias of Closed.
func ParseCourseStatus(s string) (CourseStatus, bool) {
    switch strings.ToLower(strings.TrimSpace(s)) {
    case "open":
        return CourseOpen, true
    case "ongoing":
        return CourseOngoing, true
    case "processing":
        return CourseProcessing, true
    case "closed", "ended":
        return CourseClosed, true
    }
    return "", false
}

// AcceptsEnrollment reports whether students may still enroll.
func (s CourseStatus) AcceptsEnrollment() bool {
    return s == CourseOpen || s == CourseOngoing
}

// Course mirrors the `courses` table.  TutorName is filled by queries that
// join users and is empty otherwise.
type Course struct {
    ID          uint64       `json:"id"`
    Code        string       `json:"course_code"`
    Title       string       `json:"title"`
    Description string       `json:"description"`
    TutorID     uint64       `json:"tutor_id"`
    TutorName   string       `json:"tutor_name,omitempty"`
    Status      CourseStatus `json:"status"`
    CreatedAt   time.Time    `json:"created_at"`
    UpdatedAt   time.Time    `json:"updated_at"`
}

// CoursePatch carries the mutable course fields.  Nil means unchanged.
type CoursePatch struct {
    Title       *string
    Description *string
    Status      *CourseStatus
}

// Empty reports whether the patch changes nothing.
func (p CoursePatch) Empty() bool {
    return p.Title == nil && p.Description == nil && p.Status == nil
}

// Enrollment links a student to a course.
type Enrollment struct {
    StudentID  uint64    `json:"student_id"`
    CourseID   uint64    `json:"course_id"`
    EnrolledAt time.Time `json:"enrolled_at"`
}

// CourseDetail is a course together with the sessions the caller may see.
type CourseDetail struct {
    Course   Course        `json:"course"`
    Sessions []SessionView `json:"sessions"`
}
