// Package memory is an in-process implementation of the repository
// stores.  It mirrors the MySQL schema's guarantees (unique keys, the
// booking and session triggers, the window check and the cascades) under a
// single mutex, and backs the service and handler tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/peer-tutoring/internal/model"
	"github.com/iliyamo/peer-tutoring/internal/repository"
)

type token struct {
	userID  uint64
	exp     time.Time
	revoked bool
}

type enrollmentKey struct{ student, course uint64 }

// Store holds every table.  Use the accessor methods to obtain the
// per-table views expected by the services.
type Store struct {
	mu     sync.Mutex
	nextID uint64

	users       map[uint64]model.User
	tokens      map[string]token
	courses     map[uint64]model.Course
	enrollments map[enrollmentKey]time.Time
	sessions    map[uint64]model.Session
	bookings    map[uint64]model.Booking
	seat        map[uint64]uint64 // session id -> booking id
}

func New() *Store {
	return &Store{
		users:       map[uint64]model.User{},
		tokens:      map[string]token{},
		courses:     map[uint64]model.Course{},
		enrollments: map[enrollmentKey]time.Time{},
		sessions:    map[uint64]model.Session{},
		bookings:    map[uint64]model.Booking{},
		seat:        map[uint64]uint64{},
	}
}

func (s *Store) Users() *Users             { return &Users{s} }
func (s *Store) Tokens() *Tokens           { return &Tokens{s} }
func (s *Store) Courses() *Courses         { return &Courses{s} }
func (s *Store) Enrollments() *Enrollments { return &Enrollments{s} }
func (s *Store) Sessions() *Sessions       { return &Sessions{s} }
func (s *Store) Bookings() *Bookings       { return &Bookings{s} }

func (s *Store) id() uint64 {
	s.nextID++
	return s.nextID
}

func now() time.Time { return time.Now().UTC().Truncate(time.Second) }

func done(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// Users implements the user directory.
type Users struct{ s *Store }

func (u *Users) Create(ctx context.Context, in model.User) (uint64, error) {
	if err := done(ctx); err != nil {
		return 0, err
	}
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	for _, existing := range u.s.users {
		if existing.Username == in.Username {
			return 0, repository.ErrUsernameTaken
		}
	}
	in.ID = u.s.id()
	in.CreatedAt = now()
	u.s.users[in.ID] = in
	return in.ID, nil
}

func (u *Users) GetByUsername(ctx context.Context, username string) (model.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	username = strings.ToLower(strings.TrimSpace(username))
	for _, existing := range u.s.users {
		if existing.Username == username {
			return existing, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (u *Users) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if existing, ok := u.s.users[id]; ok {
		return existing, nil
	}
	return model.User{}, repository.ErrUserNotFound
}

func (u *Users) ListByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	return u.list(func(x model.User) bool { return x.Role == role }), nil
}

func (u *Users) ListAll(ctx context.Context) ([]model.User, error) {
	return u.list(func(model.User) bool { return true }), nil
}

// list orders like the SQL store: full name, then id.
func (u *Users) list(keep func(model.User) bool) []model.User {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	out := []model.User{}
	for _, existing := range u.s.users {
		if keep(existing) {
			out = append(out, existing)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.FullName != b.FullName {
			return a.FullName < b.FullName
		}
		return a.ID < b.ID
	})
	return out
}

// Tokens stores refresh token hashes.
type Tokens struct{ s *Store }

func (t *Tokens) StoreRefresh(ctx context.Context, userID uint64, hash string, exp time.Time) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.tokens[hash] = token{userID: userID, exp: exp}
	return nil
}

// ConsumeRefresh checks and revokes under one lock.
func (t *Tokens) ConsumeRefresh(ctx context.Context, hash string) (uint64, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	tok, ok := t.s.tokens[hash]
	if !ok || tok.revoked || !time.Now().UTC().Before(tok.exp) {
		return 0, repository.ErrTokenInvalid
	}
	tok.revoked = true
	t.s.tokens[hash] = tok
	return tok.userID, nil
}

func (t *Tokens) RevokeAllForUser(ctx context.Context, userID uint64) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for h, tok := range t.s.tokens {
		if tok.userID == userID {
			tok.revoked = true
			t.s.tokens[h] = tok
		}
	}
	return nil
}
