package model

import "time"

// Role enumerates the authorization roles known to the platform.
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleOrganizer Role = "ORGANIZER"
	RoleAttendee  Role = "ATTENDEE"
)

// IsValid reports whether the role is one of the known enum values.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleOrganizer, RoleAttendee:
		return true
	}
	return false
}

// User represents an application user record as stored in the `users`
// table.  The password hash never leaves the repository layer; handlers
// expose PublicUser instead.
type User struct {
	ID           uint64
	Email        string
	PasswordHash string
	Name         string
	Company      *string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Public strips credentials for use in API responses.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:       u.ID,
		Email:    u.Email,
		Name:     u.Name,
		Company:  u.Company,
		Role:     u.Role,
		IsActive: u.IsActive,
	}
}

// PublicUser is the externally visible shape of a user.
type PublicUser struct {
	ID       uint64  `json:"id"`
	Email    string  `json:"email"`
	Name     string  `json:"name"`
	Company  *string `json:"company,omitempty"`
	Role     Role    `json:"role"`
	IsActive bool    `json:"isActive"`
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the token value is stored.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
