package memory

import (
	"context"
	"sort"

	"github.com/iliyamo/peer-tutoring/internal/model"
	"github.com/iliyamo/peer-tutoring/internal/repository"
)

// Sessions implements the session registry.
type Sessions struct{ s *Store }

func (r *Sessions) Create(ctx context.Context, in model.Session) (model.Session, error) {
	if err := done(ctx); err != nil {
		return model.Session{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	course, ok := r.s.courses[in.CourseID]
	if !ok {
		return model.Session{}, repository.ErrCourseNotFound
	}
	if course.TutorID != in.TutorID {
		return model.Session{}, repository.ErrTutorMismatch
	}
	if in.AssignMode == "" {
		in.AssignMode = model.AssignManual
	}
	if !in.ValidWindow() {
		return model.Session{}, repository.ErrInvalidWindow
	}
	in.ID = r.s.id()
	in.CreatedAt = now()
	r.s.sessions[in.ID] = in
	return in, nil
}

func (r *Sessions) GetByID(ctx context.Context, id uint64) (model.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.s.sessions[id]; ok {
		return existing, nil
	}
	return model.Session{}, repository.ErrNotFound
}

func (r *Sessions) Update(ctx context.Context, id, ownerID uint64, apply func(model.Session) (model.Session, error)) (model.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.sessions[id]
	if !ok || (ownerID != 0 && cur.TutorID != ownerID) {
		return model.Session{}, repository.ErrNotFound
	}
	next, err := apply(cur)
	if err != nil {
		return model.Session{}, err
	}
	if !next.ValidWindow() {
		return model.Session{}, repository.ErrInvalidWindow
	}
	next.ID, next.CourseID, next.TutorID, next.CreatedAt = cur.ID, cur.CourseID, cur.TutorID, cur.CreatedAt
	r.s.sessions[id] = next
	return next, nil
}

func (r *Sessions) Delete(ctx context.Context, id, ownerID uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.sessions[id]
	if !ok || (ownerID != 0 && cur.TutorID != ownerID) {
		return repository.ErrNotFound
	}
	delete(r.s.sessions, id)
	if bookingID, held := r.s.seat[id]; held {
		delete(r.s.bookings, bookingID)
		delete(r.s.seat, id)
	}
	return nil
}

func (r *Sessions) ListByCourse(ctx context.Context, courseID, viewerID uint64) ([]model.SessionView, error) {
	return r.views(viewerID, func(x model.Session) bool { return x.CourseID == courseID }), nil
}

func (r *Sessions) ListByTutor(ctx context.Context, tutorID, viewerID uint64) ([]model.SessionView, error) {
	return r.views(viewerID, func(x model.Session) bool { return x.TutorID == tutorID }), nil
}

func (r *Sessions) ListAll(ctx context.Context, viewerID uint64) ([]model.SessionView, error) {
	return r.views(viewerID, func(model.Session) bool { return true }), nil
}

func (r *Sessions) ListForStudent(ctx context.Context, studentID uint64) ([]model.SessionView, error) {
	return r.views(studentID, func(x model.Session) bool {
		_, ok := r.s.enrollments[enrollmentKey{studentID, x.CourseID}]
		return ok
	}), nil
}

func (r *Sessions) views(viewerID uint64, keep func(model.Session) bool) []model.SessionView {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.SessionView{}
	for _, sess := range r.s.sessions {
		if !keep(sess) {
			continue
		}
		course := r.s.courses[sess.CourseID]
		v := model.SessionView{
			Session:     sess,
			CourseCode:  course.Code,
			CourseTitle: course.Title,
			TutorName:   r.s.users[sess.TutorID].FullName,
		}
		if bookingID, held := r.s.seat[sess.ID]; held {
			v.Taken = true
			if r.s.bookings[bookingID].StudentID == viewerID {
				id := bookingID
				v.BookedByViewer = true
				v.BookingID = &id
			}
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return lessByStart(out[i].Session, out[j].Session) })
	return out
}

// lessByStart orders dated sessions by start time and undated ones last.
func lessByStart(a, b model.Session) bool {
	switch {
	case a.StartTime == nil && b.StartTime == nil:
		return a.ID < b.ID
	case a.StartTime == nil:
		return false
	case b.StartTime == nil:
		return true
	case !a.StartTime.Equal(*b.StartTime):
		return a.StartTime.Before(*b.StartTime)
	}
	return a.ID < b.ID
}

// Bookings implements the booking ledger.
type Bookings struct{ s *Store }

// admit applies the booking trigger and the single-seat unique key.
// Callers hold mu; self is the booking being moved, zero on insert.
func (s *Store) admit(studentID, sessionID, self uint64) error {
	sess, ok := s.sessions[sessionID]
	if !ok {
		return repository.ErrNotFound
	}
	if sess.AssignMode == model.AssignAutoAll {
		return repository.ErrAutoAssigned
	}
	if _, ok := s.enrollments[enrollmentKey{studentID, sess.CourseID}]; !ok {
		return repository.ErrNotEnrolled
	}
	if holder, held := s.seat[sessionID]; held && holder != self {
		return repository.ErrSessionTaken
	}
	return nil
}

func (r *Bookings) Create(ctx context.Context, studentID, sessionID uint64) (model.Booking, error) {
	if err := done(ctx); err != nil {
		return model.Booking{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.admit(studentID, sessionID, 0); err != nil {
		return model.Booking{}, err
	}
	b := model.Booking{ID: r.s.id(), StudentID: studentID, SessionID: sessionID, BookingTime: now()}
	r.s.bookings[b.ID] = b
	r.s.seat[sessionID] = b.ID
	return b, nil
}

func (r *Bookings) Reschedule(ctx context.Context, id, studentID, newSessionID uint64) (model.Booking, uint64, error) {
	if err := done(ctx); err != nil {
		return model.Booking{}, 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok || b.StudentID != studentID {
		return model.Booking{}, 0, repository.ErrNotFound
	}
	if err := r.s.admit(studentID, newSessionID, id); err != nil {
		return model.Booking{}, 0, err
	}
	prev := b.SessionID
	delete(r.s.seat, prev)
	b.SessionID = newSessionID
	r.s.bookings[id] = b
	r.s.seat[newSessionID] = id
	return b, prev, nil
}

func (r *Bookings) Delete(ctx context.Context, id, studentID uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok || b.StudentID != studentID {
		return repository.ErrNotFound
	}
	delete(r.s.bookings, id)
	delete(r.s.seat, b.SessionID)
	return nil
}

func (r *Bookings) ListByStudent(ctx context.Context, studentID uint64) ([]model.BookingView, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	type row struct {
		view model.BookingView
		sess model.Session
	}
	var rows []row
	mine := map[uint64]bool{}
	for _, b := range r.s.bookings {
		if b.StudentID != studentID {
			continue
		}
		id, at := b.ID, b.BookingTime
		v := r.s.bookingView(r.s.sessions[b.SessionID])
		v.BookingID, v.BookingTime = &id, &at
		rows = append(rows, row{v, r.s.sessions[b.SessionID]})
		mine[b.SessionID] = true
	}
	for _, sess := range r.s.sessions {
		if sess.AssignMode != model.AssignAutoAll || mine[sess.ID] {
			continue
		}
		if _, ok := r.s.enrollments[enrollmentKey{studentID, sess.CourseID}]; !ok {
			continue
		}
		v := r.s.bookingView(sess)
		v.AutoAssigned = true
		rows = append(rows, row{v, sess})
	}
	sort.Slice(rows, func(i, j int) bool { return lessByStart(rows[i].sess, rows[j].sess) })
	out := make([]model.BookingView, 0, len(rows))
	for _, x := range rows {
		out = append(out, x.view)
	}
	return out, nil
}

func (s *Store) bookingView(sess model.Session) model.BookingView {
	course := s.courses[sess.CourseID]
	return model.BookingView{
		SessionID:   sess.ID,
		Title:       sess.Title,
		StartTime:   sess.StartTime,
		EndTime:     sess.EndTime,
		Link:        sess.Link,
		Type:        sess.Type,
		CourseID:    course.ID,
		CourseCode:  course.Code,
		CourseTitle: course.Title,
		TutorID:     sess.TutorID,
		TutorName:   s.users[sess.TutorID].FullName,
	}
}
