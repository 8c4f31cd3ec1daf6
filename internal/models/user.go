package models

import (
	"time"

	"github.com/lib/pq"
)

// UserRole represents the available account roles.
type UserRole string

const (
	RoleStudent   UserRole = "student"
	RoleOrganizer UserRole = "organizer"
	RoleAdmin     UserRole = "admin"
)

// User represents an application user stored in the users table.
// PasswordHash is nil for organizer/admin accounts created by an approval
// that have not completed activation yet; such accounts cannot log in.
type User struct {
	ID           string         `db:"id" json:"id"`
	Email        string         `db:"email" json:"email"`
	Username     string         `db:"username" json:"username"`
	PasswordHash *string        `db:"password_hash" json:"-"`
	Role         UserRole       `db:"role" json:"role"`
	Approved     bool           `db:"approved" json:"approved"`
	FullName     string         `db:"full_name" json:"full_name"`
	Bio          string         `db:"bio" json:"bio"`
	Major        string         `db:"major" json:"major"`
	AcademicYear string         `db:"academic_year" json:"academic_year"`
	Skills       pq.StringArray `db:"skills" json:"skills"`
	Interests    pq.StringArray `db:"interests" json:"interests"`
	Active       bool           `db:"active" json:"active"`
	LastLogin    *time.Time     `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// Activated reports whether the user has a usable credential.
func (u *User) Activated() bool {
	return u != nil && u.PasswordHash != nil && *u.PasswordHash != ""
}

// PublicProfile is the externally visible slice of a user record.
type PublicProfile struct {
	Username     string         `json:"username"`
	FullName     string         `json:"full_name"`
	Bio          string         `json:"bio"`
	Major        string         `json:"major"`
	AcademicYear string         `json:"academic_year"`
	Skills       pq.StringArray `json:"skills"`
	Interests    pq.StringArray `json:"interests"`
	Role         UserRole       `json:"role"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Public projects the user onto its public profile shape.
func (u *User) Public() PublicProfile {
	return PublicProfile{
		Username:     u.Username,
		FullName:     u.FullName,
		Bio:          u.Bio,
		Major:        u.Major,
		AcademicYear: u.AcademicYear,
		Skills:       u.Skills,
		Interests:    u.Interests,
		Role:         u.Role,
		CreatedAt:    u.CreatedAt,
	}
}

// UpdateProfileRequest captures owner-editable profile fields. Role and
// approval state are never writable through profile updates.
type UpdateProfileRequest struct {
	FullName     string   `json:"full_name" validate:"max=100"`
	Bio          string   `json:"bio" validate:"max=500"`
	Major        string   `json:"major" validate:"max=100"`
	AcademicYear string   `json:"academic_year" validate:"max=20"`
	Skills       []string `json:"skills" validate:"max=20,dive,max=50"`
	Interests    []string `json:"interests" validate:"max=20,dive,max=50"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// UserSuggestion is a lightweight search hit for the people picker.
type UserSuggestion struct {
	Username string   `db:"username" json:"username"`
	FullName string   `db:"full_name" json:"full_name"`
	Role     UserRole `db:"role" json:"role"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
