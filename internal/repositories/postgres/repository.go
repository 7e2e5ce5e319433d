package postgres

import (
	"github.com/language-gems/analytics-service/internal/repositories"
	"gorm.io/gorm"
)

type repository struct {
	classes       repositories.ClassReader
	assignments   repositories.AssignmentReader
	enrollments   repositories.EnrollmentReader
	sessions      repositories.SessionReader
	attempts      repositories.AttemptReader
	progress      repositories.ProgressReader
	profiles      repositories.ProfileReader
	organizations repositories.OrganizationReader
	vocabulary    repositories.VocabularyReader
}

// NewRepository builds every reader over one gorm handle.
func NewRepository(db *gorm.DB) repositories.Repository {
	return &repository{
		classes:       NewClassPostgreSQL(db),
		assignments:   NewAssignmentPostgreSQL(db),
		enrollments:   NewEnrollmentPostgreSQL(db),
		sessions:      NewSessionPostgreSQL(db),
		attempts:      NewAttemptPostgreSQL(db),
		progress:      NewProgressPostgreSQL(db),
		profiles:      NewProfilePostgreSQL(db),
		organizations: NewOrganizationPostgreSQL(db),
		vocabulary:    NewVocabularyPostgreSQL(db),
	}
}

func (r *repository) Classes() repositories.ClassReader { return r.classes }
func (r *repository) Assignments() repositories.AssignmentReader { return r.assignments }
func (r *repository) Enrollments() repositories.EnrollmentReader { return r.enrollments }
func (r *repository) Sessions() repositories.SessionReader { return r.sessions }
func (r *repository) Attempts() repositories.AttemptReader { return r.attempts }
func (r *repository) Progress() repositories.ProgressReader { return r.progress }
func (r *repository) Profiles() repositories.ProfileReader { return r.profiles }
func (r *repository) Organizations() repositories.OrganizationReader { return r.organizations }
func (r *repository) Vocabulary() repositories.VocabularyReader { return r.vocabulary }
