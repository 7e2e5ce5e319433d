package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/language-gems/analytics-service/internal/aggregation"
	"github.com/language-gems/analytics-service/internal/metrics"
	"github.com/language-gems/analytics-service/internal/models"
	"github.com/language-gems/analytics-service/internal/repositories"
	"golang.org/x/sync/errgroup"
)

// ===== CAPABILITY-SCOPED READER SETS =====

type AssignmentReaders struct {
	Classes     repositories.ClassReader
	Assignments repositories.AssignmentReader
	Enrollments repositories.EnrollmentReader
	Sessions    repositories.SessionReader
	Attempts    repositories.AttemptReader
	Progress    repositories.ProgressReader
	Profiles    repositories.ProfileReader
}

type VocabularyReaders struct {
	Classes     repositories.ClassReader
	Enrollments repositories.EnrollmentReader
	Sessions    repositories.SessionReader
	Profiles    repositories.ProfileReader
	Vocabulary  repositories.VocabularyReader
}

type LeaderboardReaders struct {
	Classes       repositories.ClassReader
	Enrollments   repositories.EnrollmentReader
	Sessions      repositories.SessionReader
	Profiles      repositories.ProfileReader
	Organizations repositories.OrganizationReader
}

// ===== DATASETS =====

type AssignmentDataset struct {
	Assignment  *models.Assignment
	GameConfig  models.GameConfig
	Class       *models.Class
	Enrollments []*models.ClassEnrollment
	Sessions    []*models.GameSession
	Attempts    []*models.VocabularyAttempt
	Progress    []*models.AssignmentProgress
	Profiles    []*models.UserProfile
}

func (d *AssignmentDataset) input(now time.Time) aggregation.AssignmentInput {
	return aggregation.AssignmentInput{
		Enrollments: d.Enrollments,
		Sessions:    d.Sessions,
		Attempts:    d.Attempts,
		Progress:    d.Progress,
		Profiles:    d.Profiles,
		Now:         now,
	}
}

type VocabularyDataset struct {
	Classes     []*models.Class
	Enrollments []*models.ClassEnrollment
	Profiles    []*models.UserProfile
	Records     []aggregation.VocabularyRecord
	Items       []*models.VocabularyItem
	Sessions    []*models.GameSession
}

type LeaderboardDataset struct {
	Classes       []*models.Class
	Enrollments   []*models.ClassEnrollment
	Profiles      []*models.UserProfile
	Sessions      []*models.GameSession
	ScopeFallback bool
}

// ===== OWNERSHIP =====

func ownedClass(ctx context.Context, classes repositories.ClassReader, teacherID, classID string) (*models.Class, error) {
	class, err := classes.GetByID(ctx, classID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrClassNotFound
		}
		return nil, fmt.Errorf("failed to get class: %w", err)
	}
	if !class.OwnedBy(teacherID) {
		return nil, NewPermissionError(teacherID, classID, "class", "read", "class belongs to another teacher")
	}
	return class, nil
}

// teacherClasses returns the teacher's classes, or only classID when set.
func teacherClasses(ctx context.Context, classes repositories.ClassReader, teacherID, classID string) ([]*models.Class, error) {
	if classID != "" {
		class, err := ownedClass(ctx, classes, teacherID, classID)
		if err != nil {
			return nil, err
		}
		return []*models.Class{class}, nil
	}
	list, err := classes.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teacher classes: %w", err)
	}
	return list, nil
}

func classIDs(classes []*models.Class) []string {
	ids := make([]string, 0, len(classes))
	for _, c := range classes {
		ids = append(ids, c.ID)
	}
	return ids
}

func enrolledStudentIDs(enrollments []*models.ClassEnrollment) []string {
	seen := make(map[string]struct{}, len(enrollments))
	ids := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		if _, ok := seen[e.StudentID]; ok || e.StudentID == "" {
			continue
		}
		seen[e.StudentID] = struct{}{}
		ids = append(ids, e.StudentID)
	}
	return ids
}

func sessionIDs(sessions []*models.GameSession) []string {
	ids := make([]string, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.ID)
	}
	return ids
}

// loadAudience reads the active enrollments of the classes and the profiles
// of the enrolled students.
func loadAudience(ctx context.Context, enrollments repositories.EnrollmentReader, profiles repositories.ProfileReader, classes []*models.Class) ([]*models.ClassEnrollment, []*models.UserProfile, error) {
	if len(classes) == 0 {
		return []*models.ClassEnrollment{}, []*models.UserProfile{}, nil
	}
	rows, err := enrollments.ListActiveByClasses(ctx, classIDs(classes))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	people, err := profiles.ListByUserIDs(ctx, enrolledStudentIDs(rows))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list student profiles: %w", err)
	}
	return rows, people, nil
}

// ===== ASSIGNMENT =====

// LoadAssignmentDataset reads everything one assignment report needs. The
// enrollment, session and progress reads run concurrently once ownership is
// established. A non-nil window bounds session start times.
func (r AssignmentReaders) LoadAssignmentDataset(ctx context.Context, teacherID, assignmentID string, window *DateRange) (ds *AssignmentDataset, err error) {
	start := time.Now()
	defer func() { metrics.RecordDatasetLoad("assignment", time.Since(start), err) }()

	if teacherID == "" {
		return nil, ValidationErrors{*NewValidationError("teacherId", "is required", nil)}
	}

	assignment, err := r.Assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	class, err := r.Classes.GetByID(ctx, assignment.ClassID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrClassNotFound
		}
		return nil, fmt.Errorf("failed to get class: %w", err)
	}
	if !class.OwnedBy(teacherID) && assignment.CreatedBy != teacherID {
		return nil, NewPermissionError(teacherID, assignmentID, "assignment", "read", "assignment belongs to another teacher")
	}

	config, err := assignment.Config()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGameConfig, err)
	}

	ds = &AssignmentDataset{Assignment: assignment, GameConfig: config, Class: class}
	filters := repositories.SessionFilters{AssignmentID: &assignment.ID}
	if window != nil {
		filters.Started = window.Window()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ds.Enrollments, ds.Profiles, err = loadAudience(gctx, r.Enrollments, r.Profiles, []*models.Class{class})
		return err
	})
	g.Go(func() error {
		sessions, err := r.Sessions.List(gctx, filters)
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		attempts, err := r.Attempts.List(gctx, repositories.AttemptFilters{SessionIDs: sessionIDs(sessions)})
		if err != nil {
			return fmt.Errorf("failed to list attempts: %w", err)
		}
		ds.Sessions, ds.Attempts = sessions, attempts
		return nil
	})
	g.Go(func() error {
		progress, err := r.Progress.ListByAssignment(gctx, assignment.ID)
		if err != nil {
			return fmt.Errorf("failed to list assignment progress: %w", err)
		}
		ds.Progress = progress
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ds, nil
}

// ===== VOCABULARY =====

// LoadVocabularyDataset reads the vocabulary records of the teacher's
// students. records is the optional last-seen bound; trends bounds the
// sessions read for activity and is nil when trends were not requested.
func (r VocabularyReaders) LoadVocabularyDataset(ctx context.Context, q VocabularyQuery, records, trends *DateRange) (ds *VocabularyDataset, err error) {
	start := time.Now()
	defer func() { metrics.RecordDatasetLoad("vocabulary", time.Since(start), err) }()

	if q.TeacherID == "" {
		return nil, ValidationErrors{*NewValidationError("teacherId", "is required", nil)}
	}

	classes, err := teacherClasses(ctx, r.Classes, q.TeacherID, q.ClassID)
	if err != nil {
		return nil, err
	}
	ds = &VocabularyDataset{Classes: classes}
	if ds.Enrollments, ds.Profiles, err = loadAudience(ctx, r.Enrollments, r.Profiles, classes); err != nil {
		return nil, err
	}

	students := enrolledStudentIDs(ds.Enrollments)
	filters := repositories.VocabularyFilters{StudentIDs: students}
	if records != nil {
		filters.LastSeen = records.Window()
	}
	source := aggregation.VocabularySource(q.Source)

	var (
		gems     []*models.VocabularyGemCollection
		progress []*models.AssignmentVocabularyProgress
	)
	g, gctx := errgroup.WithContext(ctx)
	if source == aggregation.SourceAll || source == aggregation.SourceGems {
		g.Go(func() error {
			rows, err := r.Vocabulary.ListGemCollection(gctx, filters)
			if err != nil {
				return fmt.Errorf("failed to list gem collection: %w", err)
			}
			gems = rows
			return nil
		})
	}
	if source == aggregation.SourceAll || source == aggregation.SourceAssignments {
		g.Go(func() error {
			rows, err := r.Vocabulary.ListAssignmentProgress(gctx, filters)
			if err != nil {
				return fmt.Errorf("failed to list assignment vocabulary progress: %w", err)
			}
			progress = rows
			return nil
		})
	}
	if trends != nil {
		g.Go(func() error {
			rows, err := r.Sessions.List(gctx, repositories.SessionFilters{StudentIDs: students, Started: trends.Window()})
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}
			ds.Sessions = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ds.Records = aggregation.MergeVocabularyRecords(gems, progress)
	wordIDs := make([]string, 0, len(ds.Records))
	for _, rec := range ds.Records {
		wordIDs = append(wordIDs, rec.VocabularyID)
	}
	if ds.Items, err = r.Vocabulary.ListItems(ctx, wordIDs); err != nil {
		return nil, fmt.Errorf("failed to list vocabulary items: %w", err)
	}
	return ds, nil
}

// ===== LEADERBOARD =====

// LoadLeaderboardDataset resolves the classes in scope and reads the
// completed sessions that ended after windowStart.
func (r LeaderboardReaders) LoadLeaderboardDataset(ctx context.Context, q LeaderboardQuery, windowStart *time.Time) (ds *LeaderboardDataset, err error) {
	start := time.Now()
	defer func() { metrics.RecordDatasetLoad("leaderboard", time.Since(start), err) }()

	if q.TeacherID == "" {
		return nil, ValidationErrors{*NewValidationError("teacherId", "is required", nil)}
	}

	ds = &LeaderboardDataset{}
	if aggregation.Scope(q.Scope) == aggregation.ScopeSchool {
		ds.Classes, ds.ScopeFallback, err = r.schoolClasses(ctx, q.TeacherID, q.ClassID)
	} else {
		ds.Classes, err = teacherClasses(ctx, r.Classes, q.TeacherID, q.ClassID)
	}
	if err != nil {
		return nil, err
	}

	if ds.Enrollments, ds.Profiles, err = loadAudience(ctx, r.Enrollments, r.Profiles, ds.Classes); err != nil {
		return nil, err
	}

	filters := repositories.SessionFilters{
		StudentIDs: enrolledStudentIDs(ds.Enrollments),
		Statuses:   []models.CompletionStatus{models.StatusCompleted},
		OnlyEnded:  true,
	}
	if windowStart != nil {
		filters.Ended.Start = windowStart
	}
	if ds.Sessions, err = r.Sessions.List(ctx, filters); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return ds, nil
}

// schoolClasses returns every class of the teacher's organization. When no
// organization can be resolved it falls back to the teacher's own classes
// and reports the fallback.
func (r LeaderboardReaders) schoolClasses(ctx context.Context, teacherID, classID string) ([]*models.Class, bool, error) {
	own, err := r.Classes.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list teacher classes: %w", err)
	}

	orgID, err := r.resolveOrganization(ctx, teacherID, own)
	if err != nil {
		return nil, false, err
	}
	if orgID == "" {
		classes, err := teacherClasses(ctx, r.Classes, teacherID, classID)
		return classes, true, err
	}

	classes, err := r.Classes.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list organization classes: %w", err)
	}
	if classID == "" {
		return classes, false, nil
	}
	for _, c := range classes {
		if c.ID == classID {
			return []*models.Class{c}, false, nil
		}
	}
	return nil, false, NewPermissionError(teacherID, classID, "class", "read", "class is outside the teacher's school")
}

// resolveOrganization tries the profile's school initials first and then the
// first owned class that has an organization. It returns "" when neither
// works.
func (r LeaderboardReaders) resolveOrganization(ctx context.Context, teacherID string, own []*models.Class) (string, error) {
	profile, err := r.Profiles.GetByUserID(ctx, teacherID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return "", fmt.Errorf("failed to get teacher profile: %w", err)
	}

	if profile != nil && profile.SchoolInitials != nil && *profile.SchoolInitials != "" {
		org, err := r.Organizations.GetBySchoolCode(ctx, *profile.SchoolInitials)
		switch {
		case err == nil:
			return org.ID, nil
		case !errors.Is(err, repositories.ErrNotFound):
			return "", fmt.Errorf("failed to get organization: %w", err)
		}
	}

	for _, c := range own {
		if c.OrganizationID != nil && *c.OrganizationID != "" {
			return *c.OrganizationID, nil
		}
	}
	return "", nil
}
