package models

import (
	"slices"
	"time"
)

type UserRole string
type Role = UserRole

const (
	RoleAdmin   UserRole = "admin"
	RoleTeacher UserRole = "teacher"
	RoleStudent UserRole = "student"
)

// AllRoles lists the role groups seeded at start-up
var AllRoles = []UserRole{RoleAdmin, RoleTeacher, RoleStudent}

// IsValid reports whether r names a known role group
func (r UserRole) IsValid() bool {
	return slices.Contains(AllRoles, r)
}

type User struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	Username     string `json:"username" gorm:"uniqueIndex;not null;size:150"`
	Email        string `json:"email" gorm:"size:254"`
	FirstName    string `json:"first_name" gorm:"size:150"`
	LastName     string `json:"last_name" gorm:"size:150"`
	PasswordHash string `json:"-" gorm:"not null;size:255"`

	IsSuperuser bool `json:"is_superuser" gorm:"default:false"`
	IsActive    bool `json:"is_active" gorm:"default:true"`

	Groups []Group `json:"groups" gorm:"many2many:user_groups;constraint:OnDelete:CASCADE"`

	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// Roles returns the role tags derived from the user's group membership
func (u *User) Roles() []UserRole {
	roles := make([]UserRole, 0, len(u.Groups))
	for _, g := range u.Groups {
		role := UserRole(g.Name)
		if role.IsValid() && !slices.Contains(roles, role) {
			roles = append(roles, role)
		}
	}
	return roles
}

// HasRole reports membership in the named group
func (u *User) HasRole(role UserRole) bool {
	return slices.Contains(u.Roles(), role)
}

// Principal builds the authenticated identity used for authorization
func (u *User) Principal() *Principal {
	return &Principal{
		UserID:      u.ID,
		Username:    u.Username,
		Roles:       u.Roles(),
		IsSuperuser: u.IsSuperuser,
	}
}

type Group struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"uniqueIndex;not null;size:150"`
}

func (Group) TableName() string {
	return "groups"
}

// Principal is the caller identity resolved from a bearer token.
// A nil *Principal denotes an anonymous caller.
type Principal struct {
	UserID      uint       `json:"user_id"`
	Username    string     `json:"username"`
	Roles       []UserRole `json:"roles"`
	IsSuperuser bool       `json:"is_superuser"`
	TokenID     string     `json:"-"`
}

// HasRole reports whether the principal carries the role tag
func (p *Principal) HasRole(role UserRole) bool {
	if p == nil {
		return false
	}
	return slices.Contains(p.Roles, role)
}

// IsAdmin is true for superusers and members of the admin group
func (p *Principal) IsAdmin() bool {
	if p == nil {
		return false
	}
	return p.IsSuperuser || p.HasRole(RoleAdmin)
}

// PrimaryRole picks the most privileged role, used for logging and row visibility
func (p *Principal) PrimaryRole() UserRole {
	switch {
	case p.IsAdmin():
		return RoleAdmin
	case p.HasRole(RoleTeacher):
		return RoleTeacher
	case p.HasRole(RoleStudent):
		return RoleStudent
	}
	return ""
}
