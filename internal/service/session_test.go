package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/peer-tutoring/internal/model"
	"github.com/iliyamo/peer-tutoring/internal/policy"
	"github.com/iliyamo/peer-tutoring/internal/repository"
)

func TestCreateSessionValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.course(t, f.tutorA, "CS101")
	start, end := window(1)
	reversed := start.Add(-time.Hour)

	tests := []struct {
		name string
		p    policy.Principal
		in   CreateSessionInput
		want error
	}{
		{"meeting without window", f.tutorA, CreateSessionInput{CourseID: c.ID}, repository.ErrInvalidWindow},
		{"end before start", f.tutorA, CreateSessionInput{CourseID: c.ID, StartTime: start, EndTime: &reversed}, repository.ErrInvalidWindow},
		{"half window document", f.tutorA, CreateSessionInput{CourseID: c.ID, Type: model.SessionDocument, StartTime: start}, repository.ErrInvalidWindow},
		{"unknown course", f.tutorA, CreateSessionInput{CourseID: 9999, StartTime: start, EndTime: end}, repository.ErrCourseNotFound},
		{"admin names wrong tutor", f.admin, CreateSessionInput{CourseID: c.ID, TutorID: f.tutorB.ID, StartTime: start, EndTime: end}, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.sessions.CreateSession(ctx, tt.p, tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}

	_, err := f.sessions.CreateSession(ctx, f.tutorB, CreateSessionInput{CourseID: c.ID, StartTime: start, EndTime: end})
	wantDenied(t, err, policy.ReasonNotOwner)

	_, err = f.sessions.CreateSession(ctx, f.student1, CreateSessionInput{CourseID: c.ID, StartTime: start, EndTime: end})
	wantDenied(t, err, policy.ReasonRoleForbidden)

	s, err := f.sessions.CreateSession(ctx, f.admin, CreateSessionInput{CourseID: c.ID, StartTime: start, EndTime: end})
	if err != nil {
		t.Fatalf("admin create: %v", err)
	}
	if s.TutorID != f.tutorA.ID || s.Type != model.SessionMeeting || s.AssignMode != model.AssignManual {
		t.Fatalf("admin-created session = %+v", s)
	}
}

func TestTutorOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.course(t, f.tutorA, "CS101")
	s := f.session(t, f.tutorA, c.ID, 1, model.AssignManual)
	title := "Renamed"
	patch := model.SessionPatch{Title: &title}

	if _, err := f.sessions.UpdateSession(ctx, f.tutorB, s.ID, patch); !errors.Is(err, ErrNotFoundOrForbidden) {
		t.Fatalf("tutor B: err = %v", err)
	}
	if _, err := f.sessions.UpdateSession(ctx, f.tutorA, 9999, patch); !errors.Is(err, ErrNotFoundOrForbidden) {
		t.Fatalf("missing session: err = %v", err)
	}
	_, err := f.sessions.UpdateSession(ctx, f.student1, s.ID, patch)
	wantDenied(t, err, policy.ReasonRoleForbidden)

	got, err := f.sessions.UpdateSession(ctx, f.admin, s.ID, patch)
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if got.Title != "Renamed" || got.TutorID != f.tutorA.ID {
		t.Fatalf("updated = %+v", got)
	}

	// the merged row is re-validated
	early := base.Add(-48 * time.Hour)
	if _, err := f.sessions.UpdateSession(ctx, f.tutorA, s.ID, model.SessionPatch{EndTime: &early}); !errors.Is(err, repository.ErrInvalidWindow) {
		t.Fatalf("bad window: err = %v", err)
	}
	doc := model.SessionDocument
	got, err = f.sessions.UpdateSession(ctx, f.tutorA, s.ID, model.SessionPatch{Type: &doc, ClearWindow: true})
	if err != nil || got.StartTime != nil {
		t.Fatalf("convert to document: %+v, %v", got, err)
	}
}

func TestDeleteSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.course(t, f.tutorA, "CS101")
	s := f.session(t, f.tutorA, c.ID, 1, model.AssignManual)
	f.enroll(t, f.student1, "CS101")
	if _, err := f.bookings.Book(ctx, f.student1, s.ID); err != nil {
		t.Fatal(err)
	}

	wantDenied(t, f.sessions.DeleteSession(ctx, f.student1, s.ID), policy.ReasonRoleForbidden)
	if err := f.sessions.DeleteSession(ctx, f.tutorB, s.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("tutor B: err = %v", err)
	}
	if err := f.sessions.DeleteSession(ctx, f.tutorA, s.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if err := f.sessions.DeleteSession(ctx, f.admin, s.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("second delete: err = %v", err)
	}
	list, _ := f.bookings.ListByStudent(ctx, f.student1)
	if len(list) != 0 {
		t.Fatalf("booking should cascade: %+v", list)
	}
}

func TestListSessionsVisibilityAndFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.course(t, f.tutorA, "CS101")
	mine := f.session(t, f.tutorA, c.ID, 1, model.AssignManual)
	theirs := f.session(t, f.tutorA, c.ID, 2, model.AssignManual)
	free := f.session(t, f.tutorA, c.ID, 3, model.AssignManual)
	auto := f.session(t, f.tutorA, c.ID, 4, model.AssignAutoAll)
	f.enroll(t, f.student1, "CS101")
	f.enroll(t, f.student2, "CS101")
	_, _ = f.bookings.Book(ctx, f.student1, mine.ID)
	_, _ = f.bookings.Book(ctx, f.student2, theirs.ID)

	ids := func(vs []model.SessionView) []uint64 {
		var out []uint64
		for _, v := range vs {
			out = append(out, v.ID)
		}
		return out
	}
	equal := func(a, b []uint64) bool {
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
		return true
	}

	tests := []struct {
		name   string
		p      policy.Principal
		filter model.SessionFilter
		want   []uint64
	}{
		{"student all", f.student1, model.FilterAll, []uint64{mine.ID, theirs.ID, free.ID, auto.ID}},
		{"student booked", f.student1, model.FilterBooked, []uint64{mine.ID, auto.ID}},
		{"student available", f.student1, model.FilterAvailable, []uint64{free.ID}},
		{"tutor booked", f.tutorA, model.FilterBooked, []uint64{mine.ID, theirs.ID}},
		{"admin available", f.admin, model.FilterAvailable, []uint64{free.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.sessions.ListSessions(ctx, tt.p, c.ID, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if !equal(ids(got), tt.want) {
				t.Fatalf("ids = %v, want %v", ids(got), tt.want)
			}
		})
	}

	stranger := f.user(t, "zed", model.RoleStudent)
	for _, p := range []policy.Principal{f.tutorB, stranger} {
		if _, err := f.sessions.ListSessions(ctx, p, c.ID, model.FilterAll); !errors.Is(err, ErrNotFoundOrForbidden) {
			t.Fatalf("principal %d: err = %v", p.ID, err)
		}
	}
	if _, err := f.sessions.ListSessions(ctx, f.admin, 9999, model.FilterAll); !errors.Is(err, ErrNotFoundOrForbidden) {
		t.Fatalf("missing course: err = %v", err)
	}

	views, _ := f.sessions.ListSessions(ctx, f.student1, c.ID, model.FilterAll)
	if !views[0].BookedByViewer || views[0].BookingID == nil || views[1].BookedByViewer || !views[1].Taken {
		t.Fatalf("annotations = %+v", views[:2])
	}
}

func TestListMySessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.course(t, f.tutorA, "CS101")
	b := f.course(t, f.tutorB, "MA201")
	f.session(t, f.tutorA, a.ID, 1, model.AssignManual)
	f.session(t, f.tutorB, b.ID, 2, model.AssignManual)
	f.enroll(t, f.student1, "MA201")

	count := func(p policy.Principal) int {
		vs, err := f.sessions.ListMySessions(ctx, p)
		if err != nil {
			t.Fatal(err)
		}
		return len(vs)
	}
	if n := count(f.admin); n != 2 {
		t.Fatalf("admin sees %d", n)
	}
	if n := count(f.tutorA); n != 1 {
		t.Fatalf("tutor sees %d", n)
	}
	if n := count(f.student1); n != 1 {
		t.Fatalf("student sees %d", n)
	}
}
