package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/peer-tutoring/internal/model"
	"github.com/iliyamo/peer-tutoring/internal/policy"
	"github.com/iliyamo/peer-tutoring/internal/queue"
	"github.com/iliyamo/peer-tutoring/internal/repository/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.BookingEvent
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, ev queue.BookingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingPublisher) types() []queue.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []queue.EventType
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	store    *memory.Store
	auth     *AuthService
	catalog  *CatalogService
	sessions *SessionService
	bookings *BookingService
	events   *recordingPublisher

	admin, tutorA, tutorB, student1, student2 policy.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New()
	log := zap.NewNop()
	f := &fixture{
		store:    st,
		auth:     NewAuthService(AuthConfig{JWTSecret: "test", AccessTTLMin: 5, RefreshTTLDays: 1, BcryptCost: 4}, st.Users(), st.Tokens(), log),
		catalog:  NewCatalogService(st.Users(), st.Courses(), st.Enrollments(), st.Sessions(), log),
		sessions: NewSessionService(st.Courses(), st.Enrollments(), st.Sessions(), log),
		events:   &recordingPublisher{},
	}
	f.bookings = NewBookingService(st.Bookings(), f.events, log)
	f.admin = f.user(t, "admin", model.RoleAdmin)
	f.tutorA = f.user(t, "tia", model.RoleTutor)
	f.tutorB = f.user(t, "tom", model.RoleTutor)
	f.student1 = f.user(t, "sam", model.RoleStudent)
	f.student2 = f.user(t, "sue", model.RoleStudent)
	return f
}

func (f *fixture) user(t *testing.T, name string, role model.Role) policy.Principal {
	t.Helper()
	id, err := f.store.Users().Create(context.Background(), model.User{Username: name, FullName: name, Role: role})
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return policy.Principal{ID: id, Role: role}
}

func (f *fixture) course(t *testing.T, owner policy.Principal, code string) model.Course {
	t.Helper()
	c, err := f.catalog.CreateCourse(context.Background(), owner, CreateCourseInput{Code: code, Title: code})
	if err != nil {
		t.Fatalf("create course %s: %v", code, err)
	}
	return c
}

func (f *fixture) enroll(t *testing.T, p policy.Principal, code string) {
	t.Helper()
	if _, err := f.catalog.Enroll(context.Background(), p, code); err != nil {
		t.Fatalf("enroll %d in %s: %v", p.ID, code, err)
	}
}

var base = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func window(hoursFromBase int) (*time.Time, *time.Time) {
	start := base.Add(time.Duration(hoursFromBase) * time.Hour)
	end := start.Add(time.Hour)
	return &start, &end
}

func (f *fixture) session(t *testing.T, owner policy.Principal, courseID uint64, hour int, mode model.AssignMode) model.Session {
	t.Helper()
	start, end := window(hour)
	s, err := f.sessions.CreateSession(context.Background(), owner, CreateSessionInput{
		CourseID: courseID, Title: "s", StartTime: start, EndTime: end, AssignMode: mode,
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return s
}

func wantDenied(t *testing.T, err error, reason string) {
	t.Helper()
	var de *policy.DeniedError
	if !errors.As(err, &de) || de.Reason != reason {
		t.Fatalf("err = %v, want denied %s", err, reason)
	}
}
