package models

import "time"

type EnrollmentStatus string

const (
	EnrollmentActive   EnrollmentStatus = "active"
	EnrollmentInactive EnrollmentStatus = "inactive"
)

type Class struct {
	ID             string    `json:"id" gorm:"primaryKey;size:255"`
	Name           string    `json:"name" gorm:"not null;size:255"`
	TeacherID      string    `json:"teacher_id" gorm:"not null;index;size:255"`
	OrganizationID *string   `json:"organization_id,omitempty" gorm:"index;size:255"`
	YearGroup      string    `json:"year_group" gorm:"size:20"`
	CreatedAt      time.Time `json:"created_at"`
}

func (Class) TableName() string {
	return "classes"
}

// OwnedBy reports whether the class belongs to the given teacher.
func (c *Class) OwnedBy(teacherID string) bool {
	return c != nil && c.TeacherID == teacherID
}

// ClassEnrollment links one student to one class.
type ClassEnrollment struct {
	ID         string           `json:"id" gorm:"primaryKey;size:255"`
	ClassID    string           `json:"class_id" gorm:"not null;index;size:255"`
	StudentID  string           `json:"student_id" gorm:"not null;index;size:255"`
	Status     EnrollmentStatus `json:"status" gorm:"size:20;default:active"`
	EnrolledAt time.Time        `json:"enrolled_at"`
}

func (ClassEnrollment) TableName() string {
	return "class_enrollments"
}
