package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-service/internal/models"
	"github.com/SAP-F-2025/course-service/internal/repositories"
)

type progressService struct {
	repo     repositories.Repository
	db       *gorm.DB
	logger   *slog.Logger
	notifier NotificationDispatcher
}

func NewProgressService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, notifier NotificationDispatcher) ProgressService {
	return newProgressService(repo, db, logger, notifier)
}

func newProgressService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, notifier NotificationDispatcher) *progressService {
	return &progressService{
		repo:     repo,
		db:       db,
		logger:   logger,
		notifier: notifier,
	}
}

// progressWrite changes one (user, lesson) row inside tx and returns the row afterwards
type progressWrite func(tx *gorm.DB) (*models.LessonProgress, error)

func (s *progressService) ToggleCompletion(ctx context.Context, userID string, lessonID uint) (*ToggleResult, error) {
	return s.record(ctx, userID, lessonID, func(tx *gorm.DB) (*models.LessonProgress, error) {
		return s.repo.Progress().Toggle(ctx, tx, userID, lessonID, time.Now().UTC())
	})
}

// MarkCompleted never un-completes a lesson
func (s *progressService) MarkCompleted(ctx context.Context, userID string, lessonID uint) (*ToggleResult, error) {
	return s.record(ctx, userID, lessonID, s.markCompletedWrite(ctx, userID, lessonID))
}

func (s *progressService) markCompletedWrite(ctx context.Context, userID string, lessonID uint) progressWrite {
	return func(tx *gorm.DB) (*models.LessonProgress, error) {
		if _, err := s.repo.Progress().MarkCompleted(ctx, tx, userID, lessonID, time.Now().UTC()); err != nil {
			return nil, err
		}
		return s.repo.Progress().Get(ctx, tx, userID, lessonID)
	}
}

func (s *progressService) record(ctx context.Context, userID string, lessonID uint, write progressWrite) (*ToggleResult, error) {
	actor, err := resolveActor(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}

	lesson, err := loadLesson(ctx, s.repo, s.db, lessonID)
	if err != nil {
		return nil, err
	}
	course, err := loadCourse(ctx, s.repo, s.db, lesson.CourseID)
	if err != nil {
		return nil, err
	}

	var result *ToggleResult
	err = withTx(ctx, s.db, func(tx *gorm.DB) error {
		// Learners need an approved enrollment; owners and operators may preview
		if _, err := authorize(ctx, s.repo, tx, actor, course, OpTrackProgress); err != nil {
			return err
		}
		result, err = s.changeInTx(ctx, tx, actor.ID, lesson, write)
		return err
	})
	if err != nil {
		return nil, err
	}

	if result.firstCompletion {
		s.notifyCourseCompleted(ctx, actor.ID, course)
	}
	return result, nil
}

// changeInTx counts completed lessons before and after the write in the same transaction.
// CourseCompleted is set only when this write took the learner from below 100% to 100%;
// the completion marker keeps a later off/on toggle from notifying again.
func (s *progressService) changeInTx(ctx context.Context, tx *gorm.DB, userID string, lesson *models.Lesson, write progressWrite) (*ToggleResult, error) {
	total, err := s.repo.Lesson().CountByCourse(ctx, tx, lesson.CourseID)
	if err != nil {
		return nil, fmt.Errorf("failed to count lessons: %w", err)
	}
	before, err := s.repo.Progress().CountCompletedInCourse(ctx, tx, userID, lesson.CourseID)
	if err != nil {
		return nil, err
	}

	row, err := write(tx)
	if err != nil {
		return nil, fmt.Errorf("failed to record progress: %w", err)
	}

	after, err := s.repo.Progress().CountCompletedInCourse(ctx, tx, userID, lesson.CourseID)
	if err != nil {
		return nil, err
	}

	beforePct := completionPercentage(before, total)
	afterPct := completionPercentage(after, total)

	s.logger.Debug("Lesson progress recorded",
		"user_id", userID, "lesson_id", lesson.ID, "completed", row.Completed, "percentage", afterPct)

	result := &ToggleResult{
		LessonID:        lesson.ID,
		CourseID:        lesson.CourseID,
		Completed:       row.Completed,
		CompletedAt:     row.CompletedAt,
		Percentage:      afterPct,
		CourseCompleted: beforePct < 100 && afterPct == 100,
	}
	if result.CourseCompleted {
		result.firstCompletion, err = s.repo.Progress().RecordCourseCompletion(ctx, tx, userID, lesson.CourseID, time.Now().UTC())
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *progressService) notifyCourseCompleted(ctx context.Context, userID string, course *models.Course) {
	s.logger.Info("Course completed", "user_id", userID, "course_id", course.ID)

	var enrollmentID *uint
	if enrollment, err := s.repo.Enrollment().GetActive(ctx, s.db, userID, course.ID); err == nil {
		enrollmentID = uintPtr(enrollment.ID)
	}

	learner := courseNotification(userID, models.NotificationCourseCompleted, course,
		fmt.Sprintf("You completed %q", course.Title))
	owner := courseNotification(course.OwnerID, models.NotificationCourseCompleted, course,
		fmt.Sprintf("A learner completed %q", course.Title))
	learner.EnrollmentID = enrollmentID
	owner.EnrollmentID = enrollmentID
	owner.Metadata = map[string]interface{}{"learner_id": userID}

	s.notifier.Dispatch(ctx, []NotificationRequest{learner, owner})
}

// ===== QUERIES =====

func (s *progressService) Percentage(ctx context.Context, userID string, courseID uint) (int, error) {
	actor, err := resolveActor(ctx, s.repo, userID)
	if err != nil {
		return 0, err
	}
	course, err := loadCourse(ctx, s.repo, s.db, courseID)
	if err != nil {
		return 0, err
	}
	if _, err := authorize(ctx, s.repo, s.db, actor, course, OpView); err != nil {
		return 0, err
	}
	return s.percentage(ctx, actor.ID, courseID)
}

func (s *progressService) percentage(ctx context.Context, userID string, courseID uint) (int, error) {
	total, err := s.repo.Lesson().CountByCourse(ctx, s.db, courseID)
	if err != nil {
		return 0, fmt.Errorf("failed to count lessons: %w", err)
	}
	if total == 0 {
		return 0, nil
	}

	completed, err := s.repo.Progress().CountCompletedInCourse(ctx, s.db, userID, courseID)
	if err != nil {
		return 0, err
	}
	return completionPercentage(completed, total), nil
}

// EnrollmentProgress is visible to the enrolled user and to whoever may review the course's learners
func (s *progressService) EnrollmentProgress(ctx context.Context, enrollmentID uint, actorID string) (*ProgressResponse, error) {
	actor, err := resolveActor(ctx, s.repo, actorID)
	if err != nil {
		return nil, err
	}

	enrollment, err := s.repo.Enrollment().GetByID(ctx, s.db, enrollmentID)
	if err != nil {
		return nil, mapStoreError(err, ErrEnrollmentNotFound)
	}
	course, err := loadCourse(ctx, s.repo, s.db, enrollment.CourseID)
	if err != nil {
		return nil, err
	}
	if enrollment.UserID != actor.ID && !CanAccess(AccessRequest{Actor: actor, Course: course}, OpReviewStudents) {
		return nil, NewPermissionError(actor.ID, enrollmentID, "enrollment", "view progress", "not the enrolled user, owner or operator")
	}

	total, err := s.repo.Lesson().CountByCourse(ctx, s.db, course.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count lessons: %w", err)
	}
	completed, err := s.repo.Progress().CountCompletedInCourse(ctx, s.db, enrollment.UserID, course.ID)
	if err != nil {
		return nil, err
	}

	pct := completionPercentage(completed, total)
	return &ProgressResponse{
		EnrollmentID:     enrollment.ID,
		UserID:           enrollment.UserID,
		CourseID:         course.ID,
		CompletedLessons: completed,
		TotalLessons:     total,
		Percentage:       pct,
		CanReview:        pct == 100,
	}, nil
}

// CourseAverageProgress averages over approved learners; learners with no progress count as 0
func (s *progressService) CourseAverageProgress(ctx context.Context, courseID uint, actorID string) (*CourseAverageResponse, error) {
	actor, err := resolveActor(ctx, s.repo, actorID)
	if err != nil {
		return nil, err
	}

	course, err := loadCourse(ctx, s.repo, s.db, courseID)
	if err != nil {
		return nil, err
	}
	if !CanAccess(AccessRequest{Actor: actor, Course: course}, OpReviewStudents) {
		return nil, NewPermissionError(actor.ID, courseID, "course", string(OpReviewStudents), "owner or operator role required")
	}

	percentages, err := s.learnerPercentages(ctx, courseID)
	if err != nil {
		return nil, err
	}

	response := &CourseAverageResponse{CourseID: courseID, Learners: len(percentages)}
	if len(percentages) == 0 {
		return response, nil
	}

	sum := 0
	for _, pct := range percentages {
		sum += pct
	}
	response.AverageProgress = math.Round(float64(sum)/float64(len(percentages))*100) / 100
	return response, nil
}

// learnerPercentages maps every approved learner of the course to their completion percentage
func (s *progressService) learnerPercentages(ctx context.Context, courseID uint) (map[string]int, error) {
	userIDs, err := s.repo.Enrollment().ListApprovedUserIDs(ctx, s.db, courseID)
	if err != nil {
		return nil, err
	}
	if len(userIDs) == 0 {
		return map[string]int{}, nil
	}

	total, err := s.repo.Lesson().CountByCourse(ctx, s.db, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to count lessons: %w", err)
	}
	counts, err := s.repo.Progress().CountCompletedByUsers(ctx, s.db, courseID, userIDs)
	if err != nil {
		return nil, err
	}

	completed := make(map[string]int64, len(counts))
	for _, c := range counts {
		completed[c.UserID] = c.Count
	}

	out := make(map[string]int, len(userIDs))
	for _, id := range userIDs {
		out[id] = completionPercentage(completed[id], total)
	}
	return out, nil
}

func (s *progressService) CanReview(ctx context.Context, userID string, courseID uint) (bool, error) {
	pct, err := s.Percentage(ctx, userID, courseID)
	if err != nil {
		return false, err
	}
	return pct == 100, nil
}
