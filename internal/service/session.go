package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/peer-tutoring/internal/model"
	"github.com/iliyamo/peer-tutoring/internal/policy"
	"github.com/iliyamo/peer-tutoring/internal/repository"
)

// SessionService manages the session registry.
type SessionService struct {
	courses     CourseStore
	enrollments EnrollmentStore
	sessions    SessionStore
	log         *zap.Logger
}

func NewSessionService(courses CourseStore, enrollments EnrollmentStore, sessions SessionStore, log *zap.Logger) *SessionService {
	return &SessionService{courses: courses, enrollments: enrollments, sessions: sessions, log: log}
}

// CreateSessionInput is the session creation form.
type CreateSessionInput struct {
	CourseID   uint64
	TutorID    uint64 // admin only; defaults to the course owner
	Title      string
	StartTime  *time.Time
	EndTime    *time.Time
	Link       string
	Type       model.SessionType
	AssignMode model.AssignMode
}

// CreateSession adds a session to a course.  Tutors may only add to their
// own courses; admins may add to any course, optionally naming the tutor,
// who must then be the course owner.
func (s *SessionService) CreateSession(ctx context.Context, p policy.Principal, in CreateSessionInput) (model.Session, error) {
	if err := policy.Authorize(p, policy.SessionCreate, policy.Target{TutorID: in.TutorID}).Err(); err != nil {
		return model.Session{}, err
	}
	if in.Type == "" {
		in.Type = model.SessionMeeting
	}
	if in.AssignMode == "" {
		in.AssignMode = model.AssignManual
	}
	sess := model.Session{
		CourseID:   in.CourseID,
		Title:      strings.TrimSpace(in.Title),
		StartTime:  in.StartTime,
		EndTime:    in.EndTime,
		Link:       strings.TrimSpace(in.Link),
		Type:       in.Type,
		AssignMode: in.AssignMode,
	}
	if !sess.ValidWindow() {
		return model.Session{}, repository.ErrInvalidWindow
	}

	course, err := s.courses.GetByID(ctx, in.CourseID)
	if err != nil {
		return model.Session{}, err
	}
	switch {
	case p.IsTutor():
		if course.TutorID != p.ID {
			return model.Session{}, policy.Forbidden(policy.ReasonNotOwner)
		}
		sess.TutorID = p.ID
	case in.TutorID == 0:
		sess.TutorID = course.TutorID
	case in.TutorID != course.TutorID:
		return model.Session{}, invalid("tutor %d does not own course %d", in.TutorID, course.ID)
	default:
		sess.TutorID = in.TutorID
	}

	created, err := s.sessions.Create(ctx, sess)
	if errors.Is(err, repository.ErrTutorMismatch) {
		return model.Session{}, invalid("session tutor must own the course")
	}
	if err != nil {
		return model.Session{}, err
	}
	s.log.Info("session created", zap.Uint64("session_id", created.ID), zap.Uint64("course_id", created.CourseID), zap.Uint64("by", p.ID))
	return created, nil
}

// UpdateSession patches a session.  The merged row is re-validated inside
// the same transaction that locks it.
func (s *SessionService) UpdateSession(ctx context.Context, p policy.Principal, id uint64, patch model.SessionPatch) (model.Session, error) {
	scope := policy.ScopeFor(p, policy.SessionUpdate)
	if err := scope.Err(); err != nil {
		return model.Session{}, err
	}
	updated, err := s.sessions.Update(ctx, id, scope.OwnerID, func(cur model.Session) (model.Session, error) {
		next := patch.Apply(cur)
		next.Title, next.Link = strings.TrimSpace(next.Title), strings.TrimSpace(next.Link)
		if !next.ValidWindow() {
			return model.Session{}, repository.ErrInvalidWindow
		}
		return next, nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return model.Session{}, ErrNotFoundOrForbidden
	}
	if err != nil {
		return model.Session{}, err
	}
	s.log.Info("session updated", zap.Uint64("session_id", id), zap.Uint64("by", p.ID))
	return updated, nil
}

// DeleteSession removes a session and, with it, its booking.  A tutor
// deleting someone else's session gets ErrNotFound, the same answer as
// for a session that does not exist.
func (s *SessionService) DeleteSession(ctx context.Context, p policy.Principal, id uint64) error {
	scope := policy.ScopeFor(p, policy.SessionDelete)
	if err := scope.Err(); err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, id, scope.OwnerID); err != nil {
		return err
	}
	s.log.Info("session deleted", zap.Uint64("session_id", id), zap.Uint64("by", p.ID))
	return nil
}

// ListSessions lists a course's sessions if the caller may see them,
// narrowed by filter.
func (s *SessionService) ListSessions(ctx context.Context, p policy.Principal, courseID uint64, filter model.SessionFilter) ([]model.SessionView, error) {
	course, err := s.courses.GetByID(ctx, courseID)
	if errors.Is(err, repository.ErrCourseNotFound) {
		return nil, ErrNotFoundOrForbidden
	}
	if err != nil {
		return nil, err
	}
	ok, err := canViewSessions(ctx, s.enrollments, p, course)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFoundOrForbidden
	}
	views, err := s.sessions.ListByCourse(ctx, courseID, p.ID)
	if err != nil {
		return nil, err
	}
	return FilterSessions(views, p, filter), nil
}

// FilterSessions narrows views for filter.  For students "booked" means
// held by them (Auto_All sessions count as held) and "available" means a
// Manual session nobody holds.  For tutors and admins "booked" means held
// by anyone.
func FilterSessions(views []model.SessionView, p policy.Principal, filter model.SessionFilter) []model.SessionView {
	if filter == model.FilterAll || filter == "" {
		return views
	}
	out := []model.SessionView{}
	for _, v := range views {
		var keep bool
		switch filter {
		case model.FilterBooked:
			if p.IsStudent() {
				keep = v.BookedByViewer || v.AssignMode == model.AssignAutoAll
			} else {
				keep = v.Taken
			}
		case model.FilterAvailable:
			keep = !v.Taken && v.AssignMode == model.AssignManual
		}
		if keep {
			out = append(out, v)
		}
	}
	return out
}

// ListMySessions returns every session for admins, the taught sessions
// for tutors and the sessions of enrolled courses for students.
func (s *SessionService) ListMySessions(ctx context.Context, p policy.Principal) ([]model.SessionView, error) {
	switch {
	case p.IsAdmin():
		return s.sessions.ListAll(ctx, p.ID)
	case p.IsTutor():
		return s.sessions.ListByTutor(ctx, p.ID, p.ID)
	case p.IsStudent():
		return s.sessions.ListForStudent(ctx, p.ID)
	}
	return nil, policy.Forbidden(policy.ReasonUnauthenticated)
}
