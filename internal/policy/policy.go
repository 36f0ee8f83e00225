// Package policy decides who may mutate what.  It is a set of pure
// functions over a principal, an action and the ownership of the target;
// it never touches storage.  Callers that cannot know the target before the
// write use Scope and push the ownership predicate into the statement.
package policy

import (
	"errors"

	"github.com/iliyamo/peer-tutoring/internal/model"
)

// Principal is the authenticated caller.  The zero value is anonymous.
type Principal struct {
	ID   uint64
	Role model.Role
}

// Authenticated reports whether p carries an identity.
func (p Principal) Authenticated() bool { return p.ID != 0 && p.Role.Valid() }

// IsAdmin, IsTutor and IsStudent are shorthands used across services.
func (p Principal) IsAdmin() bool   { return p.Role == model.RoleAdmin }
func (p Principal) IsTutor() bool   { return p.Role == model.RoleTutor }
func (p Principal) IsStudent() bool { return p.Role == model.RoleStudent }

// Action names a guarded operation.
type Action string

const (
	CourseCreate  Action = "course.create"
	CourseUpdate  Action = "course.update"
	SessionCreate Action = "session.create"
	SessionUpdate Action = "session.update"
	SessionDelete Action = "session.delete"
	Enroll        Action = "enrollment.create"
	BookingCreate Action = "booking.create"
	BookingUpdate Action = "booking.update"
	BookingDelete Action = "booking.delete"
	BookingList   Action = "booking.list"
	UserList      Action = "user.list"
)

func (a Action) catalog() bool {
	switch a {
	case CourseCreate, CourseUpdate, SessionCreate, SessionUpdate, SessionDelete:
		return true
	}
	return false
}

func (a Action) booking() bool {
	switch a {
	case BookingCreate, BookingUpdate, BookingDelete, BookingList:
		return true
	}
	return false
}

// Target describes the ownership of the resource being acted on.  A zero
// owner on a create action means "the caller".
type Target struct {
	TutorID   uint64
	StudentID uint64
}

// Reason codes reported for denied decisions.
const (
	ReasonNotOwner        = "NOT_OWNER"
	ReasonRoleForbidden   = "ROLE_FORBIDDEN"
	ReasonUnauthenticated = "UNAUTHENTICATED"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  string
}

var allow = Decision{Allowed: true}

func deny(reason string) Decision { return Decision{Reason: reason} }

// Err converts a denied decision into a *DeniedError and an allowed one
// into nil.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &DeniedError{Reason: d.Reason}
}

// Authorize decides whether p may perform a on t.
func Authorize(p Principal, a Action, t Target) Decision {
	if !p.Authenticated() {
		return deny(ReasonUnauthenticated)
	}
	switch p.Role {
	case model.RoleAdmin:
		if a.catalog() || a == UserList {
			return allow
		}
		return deny(ReasonRoleForbidden)

	case model.RoleTutor:
		if !a.catalog() {
			return deny(ReasonRoleForbidden)
		}
		switch a {
		case CourseCreate, SessionCreate:
			if t.TutorID == 0 || t.TutorID == p.ID {
				return allow
			}
			return deny(ReasonNotOwner)
		}
		if t.TutorID == p.ID {
			return allow
		}
		return deny(ReasonNotOwner)

	case model.RoleStudent:
		if a == Enroll {
			return allow
		}
		if !a.booking() {
			return deny(ReasonRoleForbidden)
		}
		if t.StudentID == 0 || t.StudentID == p.ID {
			return allow
		}
		return deny(ReasonNotOwner)
	}
	return deny(ReasonRoleForbidden)
}

// Scope is the ownership predicate a write must carry when the target row
// is only known inside the statement.  All means no predicate; otherwise
// the write must match OwnerID.
type Scope struct {
	Decision
	All     bool
	OwnerID uint64
}

// ScopeFor returns the predicate for a on behalf of p.
func ScopeFor(p Principal, a Action) Scope {
	if !p.Authenticated() {
		return Scope{Decision: deny(ReasonUnauthenticated)}
	}
	switch {
	case a.catalog() && p.IsAdmin():
		return Scope{Decision: allow, All: true}
	case a.catalog() && p.IsTutor():
		return Scope{Decision: allow, OwnerID: p.ID}
	case a.booking() && p.IsStudent():
		return Scope{Decision: allow, OwnerID: p.ID}
	}
	return Scope{Decision: deny(ReasonRoleForbidden)}
}

// ErrDenied matches every *DeniedError with errors.Is.
var ErrDenied = errors.New("forbidden")

// DeniedError is returned for refused operations.
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string { return "forbidden: " + e.Reason }

func (e *DeniedError) Is(target error) bool { return target == ErrDenied }

// Forbidden builds a *DeniedError with the given reason.
func Forbidden(reason string) error { return &DeniedError{Reason: reason} }
