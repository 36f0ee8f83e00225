package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/iliyamo/peer-tutoring/internal/model"
	"github.com/iliyamo/peer-tutoring/internal/repository"
)

// Courses implements the course catalog.
type Courses struct{ s *Store }

func (c *Courses) Create(ctx context.Context, in model.Course) (model.Course, error) {
	if err := done(ctx); err != nil {
		return model.Course{}, err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	in.Code = strings.TrimSpace(in.Code)
	for _, existing := range c.s.courses {
		if existing.Code == in.Code {
			return model.Course{}, repository.ErrDuplicateCode
		}
	}
	if _, ok := c.s.users[in.TutorID]; !ok {
		return model.Course{}, repository.ErrUserNotFound
	}
	if in.Status == "" {
		in.Status = model.CourseOpen
	}
	in.ID = c.s.id()
	in.CreatedAt = now()
	in.UpdatedAt = in.CreatedAt
	c.s.courses[in.ID] = in
	return c.s.courseView(in), nil
}

func (c *Courses) GetByID(ctx context.Context, id uint64) (model.Course, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if existing, ok := c.s.courses[id]; ok {
		return c.s.courseView(existing), nil
	}
	return model.Course{}, repository.ErrCourseNotFound
}

func (c *Courses) GetByCode(ctx context.Context, code string) (model.Course, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if existing, ok := c.s.courseByCode(code); ok {
		return c.s.courseView(existing), nil
	}
	return model.Course{}, repository.ErrCourseNotFound
}

func (c *Courses) Update(ctx context.Context, id, ownerID uint64, patch model.CoursePatch) (model.Course, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	existing, ok := c.s.courses[id]
	if !ok || (ownerID != 0 && existing.TutorID != ownerID) {
		return model.Course{}, repository.ErrNotFound
	}
	if patch.Title != nil {
		existing.Title = *patch.Title
	}
	if patch.Description != nil {
		existing.Description = *patch.Description
	}
	if patch.Status != nil {
		existing.Status = *patch.Status
	}
	if !patch.Empty() {
		existing.UpdatedAt = now()
	}
	c.s.courses[id] = existing
	return c.s.courseView(existing), nil
}

func (c *Courses) ListAll(ctx context.Context) ([]model.Course, error) {
	return c.filter(func(model.Course) bool { return true }), nil
}

func (c *Courses) ListByTutor(ctx context.Context, tutorID uint64) ([]model.Course, error) {
	return c.filter(func(x model.Course) bool { return x.TutorID == tutorID }), nil
}

func (c *Courses) ListEnrolled(ctx context.Context, studentID uint64) ([]model.Course, error) {
	return c.filter(func(x model.Course) bool {
		_, ok := c.s.enrollments[enrollmentKey{studentID, x.ID}]
		return ok
	}), nil
}

func (c *Courses) ListOpen(ctx context.Context) ([]model.Course, error) {
	return c.filter(func(x model.Course) bool { return x.Status.AcceptsEnrollment() }), nil
}

func (c *Courses) ListAvailableFor(ctx context.Context, studentID uint64) ([]model.Course, error) {
	return c.filter(func(x model.Course) bool {
		_, enrolled := c.s.enrollments[enrollmentKey{studentID, x.ID}]
		return x.Status.AcceptsEnrollment() && !enrolled
	}), nil
}

// filter returns matching courses newest first.  keep runs under the lock.
func (c *Courses) filter(keep func(model.Course) bool) []model.Course {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	out := []model.Course{}
	for _, existing := range c.s.courses {
		if keep(existing) {
			out = append(out, c.s.courseView(existing))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// Enrollments implements the enrollment table.
type Enrollments struct{ s *Store }

func (e *Enrollments) Enroll(ctx context.Context, studentID uint64, code string) (model.Enrollment, error) {
	if err := done(ctx); err != nil {
		return model.Enrollment{}, err
	}
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	course, ok := e.s.courseByCode(code)
	if !ok {
		return model.Enrollment{}, repository.ErrCourseNotFound
	}
	key := enrollmentKey{studentID, course.ID}
	if _, exists := e.s.enrollments[key]; exists {
		return model.Enrollment{}, repository.ErrAlreadyEnrolled
	}
	if !course.Status.AcceptsEnrollment() {
		return model.Enrollment{}, repository.ErrCourseClosed
	}
	at := now()
	e.s.enrollments[key] = at
	return model.Enrollment{StudentID: studentID, CourseID: course.ID, EnrolledAt: at}, nil
}

func (e *Enrollments) IsEnrolled(ctx context.Context, studentID, courseID uint64) (bool, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	_, ok := e.s.enrollments[enrollmentKey{studentID, courseID}]
	return ok, nil
}

// helpers below run with mu held

func (s *Store) courseByCode(code string) (model.Course, bool) {
	code = strings.TrimSpace(code)
	for _, existing := range s.courses {
		if existing.Code == code {
			return existing, true
		}
	}
	return model.Course{}, false
}

func (s *Store) courseView(c model.Course) model.Course {
	c.TutorName = s.users[c.TutorID].FullName
	return c
}
