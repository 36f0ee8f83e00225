package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/iliyamo/peer-tutoring/internal/model"
	"github.com/iliyamo/peer-tutoring/internal/policy"
	"github.com/iliyamo/peer-tutoring/internal/queue"
	"github.com/iliyamo/peer-tutoring/internal/repository"
)

func TestEnrollBookCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.course(t, f.tutorA, "CS101")
	s := f.session(t, f.tutorA, c.ID, 1, model.AssignManual)
	f.enroll(t, f.student1, "CS101")

	b, err := f.bookings.Book(ctx, f.student1, s.ID)
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	list, _ := f.bookings.ListByStudent(ctx, f.student1)
	if len(list) != 1 || list[0].BookingID == nil || *list[0].BookingID != b.ID {
		t.Fatalf("schedule after book = %+v", list)
	}

	if err := f.bookings.Cancel(ctx, f.student1, b.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	list, _ = f.bookings.ListByStudent(ctx, f.student1)
	if len(list) != 0 {
		t.Fatalf("schedule after cancel = %+v", list)
	}
	got := f.events.types()
	want := []queue.EventType{queue.BookingCreated, queue.BookingCancelled}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
}

func TestBookWithoutEnrollment(t *testing.T) {
	f := newFixture(t)
	c := f.course(t, f.tutorA, "CS101")
	s := f.session(t, f.tutorA, c.ID, 1, model.AssignManual)

	if _, err := f.bookings.Book(context.Background(), f.student1, s.ID); !errors.Is(err, repository.ErrNotEnrolled) {
		t.Fatalf("err = %v, want ErrNotEnrolled", err)
	}
	if n := len(f.events.types()); n != 0 {
		t.Fatalf("no event expected, got %d", n)
	}
}

func TestDuplicateBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.course(t, f.tutorA, "CS101")
	s := f.session(t, f.tutorA, c.ID, 1, model.AssignManual)
	f.enroll(t, f.student1, "CS101")
	f.enroll(t, f.student2, "CS101")

	if _, err := f.bookings.Book(ctx, f.student1, s.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.bookings.Book(ctx, f.student2, s.ID); !errors.Is(err, repository.ErrSessionTaken) {
		t.Fatalf("second student: err = %v", err)
	}
	if _, err := f.bookings.Book(ctx, f.student1, s.ID); !errors.Is(err, repository.ErrSessionTaken) {
		t.Fatalf("same student again: err = %v", err)
	}
}

func TestConcurrentBookingSingleSeat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.course(t, f.tutorA, "CS101")
	s := f.session(t, f.tutorA, c.ID, 1, model.AssignManual)

	const n = 16
	students := make([]policy.Principal, n)
	for i := range students {
		students[i] = f.user(t, fmt.Sprintf("student%d", i), model.RoleStudent)
		f.enroll(t, students[i], "CS101")
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		wins    int
		taken   int
		unknown []error
	)
	start := make(chan struct{})
	for _, p := range students {
		wg.Add(1)
		go func(p policy.Principal) {
			defer wg.Done()
			<-start
			_, err := f.bookings.Book(ctx, p, s.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, repository.ErrSessionTaken):
				taken++
			default:
				unknown = append(unknown, err)
			}
		}(p)
	}
	close(start)
	wg.Wait()

	if wins != 1 || taken != n-1 || len(unknown) != 0 {
		t.Fatalf("wins=%d taken=%d unexpected=%v", wins, taken, unknown)
	}
}

func TestRescheduleIsAtomic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.course(t, f.tutorA, "CS101")
	other := f.course(t, f.tutorB, "MA201")
	s1 := f.session(t, f.tutorA, c.ID, 1, model.AssignManual)
	s2 := f.session(t, f.tutorA, c.ID, 2, model.AssignManual)
	s3 := f.session(t, f.tutorA, c.ID, 3, model.AssignManual)
	foreign := f.session(t, f.tutorB, other.ID, 4, model.AssignManual)
	f.enroll(t, f.student1, "CS101")
	f.enroll(t, f.student2, "CS101")

	mine, _ := f.bookings.Book(ctx, f.student1, s1.ID)
	if _, err := f.bookings.Book(ctx, f.student2, s2.ID); err != nil {
		t.Fatal(err)
	}

	failures := []struct {
		name   string
		target uint64
		want   error
	}{
		{"taken target", s2.ID, repository.ErrSessionTaken},
		{"course not enrolled", foreign.ID, repository.ErrNotEnrolled},
		{"unknown session", 9999, repository.ErrNotFound},
	}
	for _, tt := range failures {
		if _, err := f.bookings.Reschedule(ctx, f.student1, mine.ID, tt.target); !errors.Is(err, tt.want) {
			t.Fatalf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
		list, _ := f.bookings.ListByStudent(ctx, f.student1)
		if len(list) != 1 || list[0].SessionID != s1.ID {
			t.Fatalf("%s: booking moved: %+v", tt.name, list)
		}
	}

	moved, err := f.bookings.Reschedule(ctx, f.student1, mine.ID, s3.ID)
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if moved.ID != mine.ID || moved.SessionID != s3.ID {
		t.Fatalf("moved = %+v", moved)
	}
	// the vacated seat is free again
	if _, err := f.bookings.Book(ctx, f.student2, s1.ID); err != nil {
		t.Fatalf("book vacated session: %v", err)
	}
	last := f.events.events[len(f.events.events)-2]
	if last.Type != queue.BookingRescheduled || last.PreviousSessionID != s1.ID || last.SessionID != s3.ID {
		t.Fatalf("reschedule event = %+v", last)
	}
}

func TestCancelOwnershipIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.course(t, f.tutorA, "CS101")
	s := f.session(t, f.tutorA, c.ID, 1, model.AssignManual)
	f.enroll(t, f.student1, "CS101")
	b, _ := f.bookings.Book(ctx, f.student1, s.ID)

	if err := f.bookings.Cancel(ctx, f.student2, b.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("foreign cancel: err = %v", err)
	}
	if _, err := f.bookings.Reschedule(ctx, f.student2, b.ID, s.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("foreign reschedule: err = %v", err)
	}
	list, _ := f.bookings.ListByStudent(ctx, f.student1)
	if len(list) != 1 {
		t.Fatalf("booking should survive: %+v", list)
	}
}

func TestCancelTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.course(t, f.tutorA, "CS101")
	s := f.session(t, f.tutorA, c.ID, 1, model.AssignManual)
	f.enroll(t, f.student1, "CS101")
	b, _ := f.bookings.Book(ctx, f.student1, s.ID)

	if err := f.bookings.Cancel(ctx, f.student1, b.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.bookings.Cancel(ctx, f.student1, b.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("second cancel: err = %v", err)
	}
}

func TestBookingRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, p := range []policy.Principal{f.admin, f.tutorA} {
		if _, err := f.bookings.Book(ctx, p, 1); err == nil {
			t.Fatalf("role %s booked", p.Role)
		} else {
			wantDenied(t, err, policy.ReasonRoleForbidden)
		}
		_, err := f.bookings.ListByStudent(ctx, p)
		wantDenied(t, err, policy.ReasonRoleForbidden)
	}
	_, err := f.bookings.Book(ctx, f.student1, 0)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("zero session: err = %v", err)
	}
}

func TestAutoAllSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.course(t, f.tutorA, "CS101")
	manual := f.session(t, f.tutorA, c.ID, 5, model.AssignManual)
	auto := f.session(t, f.tutorA, c.ID, 1, model.AssignAutoAll)
	doc, err := f.sessions.CreateSession(ctx, f.tutorA, CreateSessionInput{
		CourseID: c.ID, Title: "Reading", Type: model.SessionDocument, AssignMode: model.AssignAutoAll,
	})
	if err != nil {
		t.Fatalf("create document: %v", err)
	}
	f.enroll(t, f.student1, "CS101")

	if _, err := f.bookings.Book(ctx, f.student1, auto.ID); !errors.Is(err, repository.ErrAutoAssigned) {
		t.Fatalf("book Auto_All: err = %v", err)
	}
	if _, err := f.bookings.Book(ctx, f.student1, manual.ID); err != nil {
		t.Fatal(err)
	}

	list, err := f.bookings.ListByStudent(ctx, f.student1)
	if err != nil {
		t.Fatal(err)
	}
	var order []uint64
	for _, v := range list {
		order = append(order, v.SessionID)
	}
	// auto (hour 1), manual (hour 5), undated document last
	if fmt.Sprint(order) != fmt.Sprint([]uint64{auto.ID, manual.ID, doc.ID}) {
		t.Fatalf("order = %v", order)
	}
	if !list[0].AutoAssigned || list[0].BookingID != nil || list[1].AutoAssigned || list[1].BookingID == nil {
		t.Fatalf("rows = %+v", list)
	}

	// not enrolled: no implicit rows
	list, _ = f.bookings.ListByStudent(ctx, f.student2)
	if len(list) != 0 {
		t.Fatalf("student2 schedule = %+v", list)
	}
}

func TestPublishFailureDoesNotFailBooking(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("broker down")
	c := f.course(t, f.tutorA, "CS101")
	s := f.session(t, f.tutorA, c.ID, 1, model.AssignManual)
	f.enroll(t, f.student1, "CS101")

	if _, err := f.bookings.Book(context.Background(), f.student1, s.ID); err != nil {
		t.Fatalf("Book with failing broker: %v", err)
	}
}
