package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/peer-tutoring/internal/model"
	"github.com/iliyamo/peer-tutoring/internal/policy"
	"github.com/iliyamo/peer-tutoring/internal/repository"
)

// CatalogService manages courses, enrollments and the public discovery
// views.
type CatalogService struct {
	users       UserStore
	courses     CourseStore
	enrollments EnrollmentStore
	sessions    SessionStore
	log         *zap.Logger
}

func NewCatalogService(users UserStore, courses CourseStore, enrollments EnrollmentStore, sessions SessionStore, log *zap.Logger) *CatalogService {
	return &CatalogService{users: users, courses: courses, enrollments: enrollments, sessions: sessions, log: log}
}

// CreateCourseInput is the course creation form.  TutorID is honoured only
// for admins; tutors always own what they create.
type CreateCourseInput struct {
	Code        string
	Title       string
	Description string
	Status      string
	TutorID     uint64
}

// CreateCourse publishes a new course.
func (s *CatalogService) CreateCourse(ctx context.Context, p policy.Principal, in CreateCourseInput) (model.Course, error) {
	if err := policy.Authorize(p, policy.CourseCreate, policy.Target{TutorID: in.TutorID}).Err(); err != nil {
		return model.Course{}, err
	}
	in.Code, in.Title = strings.TrimSpace(in.Code), strings.TrimSpace(in.Title)
	if in.Code == "" || in.Title == "" {
		return model.Course{}, invalid("course_code and title required")
	}
	status := model.CourseOpen
	if in.Status != "" {
		st, ok := model.ParseCourseStatus(in.Status)
		if !ok {
			return model.Course{}, invalid("unknown status %q", in.Status)
		}
		status = st
	}

	tutorID := p.ID
	if p.IsAdmin() {
		if in.TutorID == 0 {
			return model.Course{}, invalid("tutor_id required")
		}
		t, err := s.users.GetByID(ctx, in.TutorID)
		if errors.Is(err, repository.ErrUserNotFound) || (err == nil && t.Role != model.RoleTutor) {
			return model.Course{}, invalid("tutor_id %d is not a tutor", in.TutorID)
		}
		if err != nil {
			return model.Course{}, err
		}
		tutorID = in.TutorID
	}

	c, err := s.courses.Create(ctx, model.Course{
		Code:        in.Code,
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		TutorID:     tutorID,
		Status:      status,
	})
	if err != nil {
		return model.Course{}, err
	}
	s.log.Info("course created", zap.Uint64("course_id", c.ID), zap.Uint64("tutor_id", c.TutorID), zap.Uint64("by", p.ID))
	return c, nil
}

// UpdateCourse patches a course the caller owns (any course for admins).
func (s *CatalogService) UpdateCourse(ctx context.Context, p policy.Principal, id uint64, patch model.CoursePatch) (model.Course, error) {
	scope := policy.ScopeFor(p, policy.CourseUpdate)
	if err := scope.Err(); err != nil {
		return model.Course{}, err
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return model.Course{}, invalid("title cannot be empty")
	}
	c, err := s.courses.Update(ctx, id, scope.OwnerID, patch)
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrCourseNotFound) {
		return model.Course{}, ErrNotFoundOrForbidden
	}
	if err != nil {
		return model.Course{}, err
	}
	s.log.Info("course updated", zap.Uint64("course_id", id), zap.Uint64("by", p.ID))
	return c, nil
}

// Enroll adds the calling student to the course with the given code.
func (s *CatalogService) Enroll(ctx context.Context, p policy.Principal, code string) (model.Enrollment, error) {
	if err := policy.Authorize(p, policy.Enroll, policy.Target{StudentID: p.ID}).Err(); err != nil {
		return model.Enrollment{}, err
	}
	if strings.TrimSpace(code) == "" {
		return model.Enrollment{}, invalid("course_code required")
	}
	e, err := s.enrollments.Enroll(ctx, p.ID, code)
	if err != nil {
		return model.Enrollment{}, err
	}
	s.log.Info("student enrolled", zap.Uint64("student_id", p.ID), zap.Uint64("course_id", e.CourseID))
	return e, nil
}

// ListAvailableCourses lists courses open for enrollment; students do not
// see the ones they already joined.
func (s *CatalogService) ListAvailableCourses(ctx context.Context, p policy.Principal) ([]model.Course, error) {
	if p.IsStudent() {
		return s.courses.ListAvailableFor(ctx, p.ID)
	}
	return s.courses.ListOpen(ctx)
}

// ListMyCourses lists the courses a user teaches or attends.  Only admins
// may ask on behalf of another user; an admin with no target sees every
// course.
func (s *CatalogService) ListMyCourses(ctx context.Context, p policy.Principal, targetID uint64) ([]model.Course, error) {
	if !p.Authenticated() {
		return nil, policy.Forbidden(policy.ReasonUnauthenticated)
	}
	if targetID == 0 || targetID == p.ID {
		if p.IsAdmin() {
			return s.courses.ListAll(ctx)
		}
		return s.coursesOf(ctx, p.ID, p.Role)
	}
	if !p.IsAdmin() {
		return nil, policy.Forbidden(policy.ReasonRoleForbidden)
	}
	u, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	return s.coursesOf(ctx, u.ID, u.Role)
}

func (s *CatalogService) coursesOf(ctx context.Context, userID uint64, role model.Role) ([]model.Course, error) {
	switch role {
	case model.RoleTutor:
		return s.courses.ListByTutor(ctx, userID)
	case model.RoleStudent:
		return s.courses.ListEnrolled(ctx, userID)
	}
	return []model.Course{}, nil
}

// ListDiscovery is the public catalog of open courses.
func (s *CatalogService) ListDiscovery(ctx context.Context) ([]model.Course, error) {
	return s.courses.ListOpen(ctx)
}

// CourseDetail returns a course and, when the caller may see them, its
// sessions.  Course metadata itself is public.
func (s *CatalogService) CourseDetail(ctx context.Context, p policy.Principal, id uint64) (model.CourseDetail, error) {
	c, err := s.courses.GetByID(ctx, id)
	if err != nil {
		return model.CourseDetail{}, err
	}
	out := model.CourseDetail{Course: c, Sessions: []model.SessionView{}}
	ok, err := canViewSessions(ctx, s.enrollments, p, c)
	if err != nil || !ok {
		return out, err
	}
	out.Sessions, err = s.sessions.ListByCourse(ctx, c.ID, p.ID)
	return out, err
}

// TutorDetail is the public profile of a tutor with their schedule.
func (s *CatalogService) TutorDetail(ctx context.Context, tutorID uint64) (model.TutorProfile, error) {
	u, err := s.users.GetByID(ctx, tutorID)
	if err != nil {
		return model.TutorProfile{}, err
	}
	if u.Role != model.RoleTutor {
		return model.TutorProfile{}, repository.ErrUserNotFound
	}
	schedule, err := s.sessions.ListByTutor(ctx, tutorID, 0)
	if err != nil {
		return model.TutorProfile{}, err
	}
	return model.TutorProfile{Tutor: u, Schedule: schedule}, nil
}

// canViewSessions: admins see everything, tutors their own courses and
// students the courses they are enrolled in.
func canViewSessions(ctx context.Context, enrollments EnrollmentStore, p policy.Principal, c model.Course) (bool, error) {
	switch {
	case !p.Authenticated():
		return false, nil
	case p.IsAdmin():
		return true, nil
	case p.IsTutor():
		return c.TutorID == p.ID, nil
	case p.IsStudent():
		return enrollments.IsEnrolled(ctx, p.ID, c.ID)
	}
	return false, nil
}
