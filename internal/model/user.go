package model

import "time"

// Role is the fixed role of a user.  It is set at registration and never
// changes afterwards.
type Role string

const (
    RoleStudent Role = "student"
    RoleTutor   Role = "tutor"
    RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
    switch r {
    case RoleStudent, RoleTutor, RoleAdmin:
        return true
    }
    return false
}

// User represents a row of the `users` table.  PasswordHash never leaves
// the service layer; the json tag hides it from responses.
//
// Fields:
//  ID             – primary key identifier of the user.
//  Username       – unique login name.
//  PasswordHash   – bcrypt hashed password.
//  Role           – student, tutor or admin.
//  FullName       – display name shown in schedules.
//  AcademicStatus – free text such as "Year 2" or "Graduate".
//  Bio            – optional profile text.
//  CreatedAt      – timestamp of creation.
type User struct {
    ID             uint64    `json:"id"`
    Username       string    `json:"username"`
    PasswordHash   string    `json:"-"`
    Role           Role      `json:"role"`
    FullName       string    `json:"full_name"`
    AcademicStatus string    `json:"academic_status"`
    Bio            string    `json:"bio"`
    CreatedAt      time.Time `json:"created_at"`
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the token is stored.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
}

// TutorProfile is the public view of a tutor together with the sessions
// they teach.
type TutorProfile struct {
    Tutor    User          `json:"tutor"`
    Schedule []SessionView `json:"schedule"`
}
