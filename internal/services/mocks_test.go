package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/language-gems/analytics-service/internal/cache"
	"github.com/language-gems/analytics-service/internal/models"
	"github.com/language-gems/analytics-service/internal/repositories"
	"github.com/stretchr/testify/mock"
)

type MockClassReader struct{ mock.Mock }

func (m *MockClassReader) GetByID(ctx context.Context, id string) (*models.Class, error) {
	args := m.Called(ctx, id)
	class, _ := args.Get(0).(*models.Class)
	return class, args.Error(1)
}

func (m *MockClassReader) ListByTeacher(ctx context.Context, teacherID string) ([]*models.Class, error) {
	args := m.Called(ctx, teacherID)
	classes, _ := args.Get(0).([]*models.Class)
	return classes, args.Error(1)
}

func (m *MockClassReader) ListByOrganization(ctx context.Context, organizationID string) ([]*models.Class, error) {
	args := m.Called(ctx, organizationID)
	classes, _ := args.Get(0).([]*models.Class)
	return classes, args.Error(1)
}

type MockAssignmentReader struct{ mock.Mock }

func (m *MockAssignmentReader) GetByID(ctx context.Context, id string) (*models.Assignment, error) {
	args := m.Called(ctx, id)
	assignment, _ := args.Get(0).(*models.Assignment)
	return assignment, args.Error(1)
}

type MockEnrollmentReader struct{ mock.Mock }

func (m *MockEnrollmentReader) ListActiveByClasses(ctx context.Context, classIDs []string) ([]*models.ClassEnrollment, error) {
	args := m.Called(ctx, classIDs)
	rows, _ := args.Get(0).([]*models.ClassEnrollment)
	return rows, args.Error(1)
}

type MockSessionReader struct{ mock.Mock }

func (m *MockSessionReader) List(ctx context.Context, filters repositories.SessionFilters) ([]*models.GameSession, error) {
	args := m.Called(ctx, filters)
	rows, _ := args.Get(0).([]*models.GameSession)
	return rows, args.Error(1)
}

type MockAttemptReader struct{ mock.Mock }

func (m *MockAttemptReader) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.VocabularyAttempt, error) {
	args := m.Called(ctx, filters)
	rows, _ := args.Get(0).([]*models.VocabularyAttempt)
	return rows, args.Error(1)
}

type MockProgressReader struct{ mock.Mock }

func (m *MockProgressReader) ListByAssignment(ctx context.Context, assignmentID string) ([]*models.AssignmentProgress, error) {
	args := m.Called(ctx, assignmentID)
	rows, _ := args.Get(0).([]*models.AssignmentProgress)
	return rows, args.Error(1)
}

type MockProfileReader struct{ mock.Mock }

func (m *MockProfileReader) GetByUserID(ctx context.Context, userID string) (*models.UserProfile, error) {
	args := m.Called(ctx, userID)
	profile, _ := args.Get(0).(*models.UserProfile)
	return profile, args.Error(1)
}

func (m *MockProfileReader) ListByUserIDs(ctx context.Context, userIDs []string) ([]*models.UserProfile, error) {
	args := m.Called(ctx, userIDs)
	rows, _ := args.Get(0).([]*models.UserProfile)
	return rows, args.Error(1)
}

type MockOrganizationReader struct{ mock.Mock }

func (m *MockOrganizationReader) GetBySchoolCode(ctx context.Context, code string) (*models.Organization, error) {
	args := m.Called(ctx, code)
	org, _ := args.Get(0).(*models.Organization)
	return org, args.Error(1)
}

type MockVocabularyReader struct{ mock.Mock }

func (m *MockVocabularyReader) ListGemCollection(ctx context.Context, filters repositories.VocabularyFilters) ([]*models.VocabularyGemCollection, error) {
	args := m.Called(ctx, filters)
	rows, _ := args.Get(0).([]*models.VocabularyGemCollection)
	return rows, args.Error(1)
}

func (m *MockVocabularyReader) ListAssignmentProgress(ctx context.Context, filters repositories.VocabularyFilters) ([]*models.AssignmentVocabularyProgress, error) {
	args := m.Called(ctx, filters)
	rows, _ := args.Get(0).([]*models.AssignmentVocabularyProgress)
	return rows, args.Error(1)
}

func (m *MockVocabularyReader) ListItems(ctx context.Context, ids []string) ([]*models.VocabularyItem, error) {
	args := m.Called(ctx, ids)
	rows, _ := args.Get(0).([]*models.VocabularyItem)
	return rows, args.Error(1)
}

// memoryCache is a JSON round-tripping CacheService for tests.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = data
	return nil
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	data, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *memoryCache) DeletePattern(_ context.Context, pattern string) error {
	prefix := pattern[:len(pattern)-1]
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(c.entries, key)
		}
	}
	return nil
}
