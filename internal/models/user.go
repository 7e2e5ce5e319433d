package models

import "time"

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

// UserProfile is the analytics view of a platform user. Rows are owned by the
// auth service and only read here.
type UserProfile struct {
	UserID         string   `json:"user_id" gorm:"primaryKey;size:255"`
	DisplayName    string   `json:"display_name" gorm:"size:255"`
	Email          string   `json:"email" gorm:"size:255"`
	Role           UserRole `json:"role" gorm:"size:20"`
	SchoolInitials *string  `json:"school_initials,omitempty" gorm:"size:20"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}

// Name returns the display name, falling back to the email and finally the id.
func (p *UserProfile) Name() string {
	switch {
	case p == nil:
		return ""
	case p.DisplayName != "":
		return p.DisplayName
	case p.Email != "":
		return p.Email
	default:
		return p.UserID
	}
}

type Organization struct {
	ID         string    `json:"id" gorm:"primaryKey;size:255"`
	Name       string    `json:"name" gorm:"not null;size:255"`
	SchoolCode string    `json:"school_code" gorm:"index;size:20"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Organization) TableName() string {
	return "organizations"
}
