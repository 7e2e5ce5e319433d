package services

import (
	"io"
	"log/slog"
	"time"

	"github.com/language-gems/analytics-service/internal/models"
	"github.com/language-gems/analytics-service/internal/validator"
)

var fixtureNow = time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr[T any](v T) *T {
	return &v
}

func fixedClock() time.Time {
	return fixtureNow
}

type readerMocks struct {
	classes       *MockClassReader
	assignments   *MockAssignmentReader
	enrollments   *MockEnrollmentReader
	sessions      *MockSessionReader
	attempts      *MockAttemptReader
	progress      *MockProgressReader
	profiles      *MockProfileReader
	organizations *MockOrganizationReader
	vocabulary    *MockVocabularyReader
}

func newReaderMocks() *readerMocks {
	return &readerMocks{
		classes:       &MockClassReader{},
		assignments:   &MockAssignmentReader{},
		enrollments:   &MockEnrollmentReader{},
		sessions:      &MockSessionReader{},
		attempts:      &MockAttemptReader{},
		progress:      &MockProgressReader{},
		profiles:      &MockProfileReader{},
		organizations: &MockOrganizationReader{},
		vocabulary:    &MockVocabularyReader{},
	}
}

func (m *readerMocks) assignmentReaders() AssignmentReaders {
	return AssignmentReaders{
		Classes:     m.classes,
		Assignments: m.assignments,
		Enrollments: m.enrollments,
		Sessions:    m.sessions,
		Attempts:    m.attempts,
		Progress:    m.progress,
		Profiles:    m.profiles,
	}
}

func (m *readerMocks) vocabularyReaders() VocabularyReaders {
	return VocabularyReaders{
		Classes:     m.classes,
		Enrollments: m.enrollments,
		Sessions:    m.sessions,
		Profiles:    m.profiles,
		Vocabulary:  m.vocabulary,
	}
}

func (m *readerMocks) leaderboardReaders() LeaderboardReaders {
	return LeaderboardReaders{
		Classes:       m.classes,
		Enrollments:   m.enrollments,
		Sessions:      m.sessions,
		Profiles:      m.profiles,
		Organizations: m.organizations,
	}
}

func enrollments(classID string, students ...string) []*models.ClassEnrollment {
	out := make([]*models.ClassEnrollment, 0, len(students))
	for _, s := range students {
		out = append(out, &models.ClassEnrollment{ID: classID + "-" + s, ClassID: classID, StudentID: s, Status: models.EnrollmentActive})
	}
	return out
}

func profiles(names map[string]string) []*models.UserProfile {
	out := make([]*models.UserProfile, 0, len(names))
	for id, name := range names {
		out = append(out, &models.UserProfile{UserID: id, DisplayName: name, Role: models.RoleStudent})
	}
	return out
}

func newTestValidator() *validator.Validator {
	return validator.New()
}
