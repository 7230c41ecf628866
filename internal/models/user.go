package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the chapter role carried on a user account. Office bearer and
// department roles are spelled exactly as they appear on the society roster.
type Role string

const (
	RoleAdmin            Role = "ADMIN"
	RoleChairperson      Role = "Chairperson"
	RoleViceChairperson  Role = "Vice-Chairperson"
	RoleEvents           Role = "Events"
	RoleTechnical        Role = "Technical"
	RoleDesign           Role = "Design"
	RoleMarketing        Role = "Marketing"
	RoleContent          Role = "Content"
	RoleMember           Role = "Member"
)

// KnownRoles lists every role an account may carry.
var KnownRoles = []Role{
	RoleAdmin, RoleChairperson, RoleViceChairperson,
	RoleEvents, RoleTechnical, RoleDesign, RoleMarketing, RoleContent,
	RoleMember,
}

// ValidRole reports whether s is a recognized role name.
func ValidRole(s string) bool {
	for _, r := range KnownRoles {
		if string(r) == s {
			return true
		}
	}
	return false
}

// User represents a chapter member account.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	FullName  string    `json:"full_name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
