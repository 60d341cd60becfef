package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/SAP-F-2025/course-service/internal/models"
	"github.com/SAP-F-2025/course-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressPostgreSQL struct {
	db *gorm.DB
}

func NewProgressPostgreSQL(db *gorm.DB) repositories.ProgressRepository {
	return &ProgressPostgreSQL{db: db}
}

func (r *ProgressPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

var userLessonConflict = clause.OnConflict{
	Columns:   []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
	DoNothing: true,
}

func (r *ProgressPostgreSQL) Get(ctx context.Context, tx *gorm.DB, userID string, lessonID uint) (*models.LessonProgress, error) {
	var progress models.LessonProgress
	err := r.getDB(tx).WithContext(ctx).
		Where("user_id = ? AND lesson_id = ?", userID, lessonID).
		First(&progress).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get lesson progress: %w", err)
	}
	return &progress, nil
}

// insertCompleted inserts a completed row unless one already exists for the pair
func (r *ProgressPostgreSQL) insertCompleted(db *gorm.DB, userID string, lessonID uint, at time.Time) (bool, error) {
	row := &models.LessonProgress{
		UserID:      userID,
		LessonID:    lessonID,
		Completed:   true,
		CompletedAt: &at,
	}
	result := db.Clauses(userLessonConflict).Create(row)
	if result.Error != nil {
		return false, fmt.Errorf("failed to insert lesson progress: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *ProgressPostgreSQL) Toggle(ctx context.Context, tx *gorm.DB, userID string, lessonID uint, at time.Time) (*models.LessonProgress, error) {
	db := r.getDB(tx).WithContext(ctx)

	inserted, err := r.insertCompleted(db, userID, lessonID, at)
	if err != nil {
		return nil, err
	}

	if !inserted {
		// Right-hand sides read the pre-update row, so completed_at follows the new value
		err := db.Model(&models.LessonProgress{}).
			Where("user_id = ? AND lesson_id = ?", userID, lessonID).
			Updates(map[string]interface{}{
				"completed":    gorm.Expr("NOT completed"),
				"completed_at": gorm.Expr("CASE WHEN completed THEN NULL ELSE ? END", at),
				"updated_at":   at,
			}).Error
		if err != nil {
			return nil, fmt.Errorf("failed to toggle lesson progress: %w", err)
		}
	}

	return r.Get(ctx, tx, userID, lessonID)
}

func (r *ProgressPostgreSQL) MarkCompleted(ctx context.Context, tx *gorm.DB, userID string, lessonID uint, at time.Time) (bool, error) {
	db := r.getDB(tx).WithContext(ctx)

	inserted, err := r.insertCompleted(db, userID, lessonID, at)
	if err != nil || inserted {
		return inserted, err
	}

	result := db.Model(&models.LessonProgress{}).
		Where("user_id = ? AND lesson_id = ? AND completed = ?", userID, lessonID, false).
		Updates(map[string]interface{}{
			"completed":    true,
			"completed_at": at,
			"updated_at":   at,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark lesson completed: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *ProgressPostgreSQL) CountCompletedInCourse(ctx context.Context, tx *gorm.DB, userID string, courseID uint) (int64, error) {
	var count int64
	err := r.getDB(tx).WithContext(ctx).
		Model(&models.LessonProgress{}).
		Joins("JOIN lessons ON lessons.id = lesson_progress.lesson_id").
		Where("lesson_progress.user_id = ? AND lessons.course_id = ? AND lesson_progress.completed = ?", userID, courseID, true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count completed lessons: %w", err)
	}
	return count, nil
}

func (r *ProgressPostgreSQL) CountCompletedByUsers(ctx context.Context, tx *gorm.DB, courseID uint, userIDs []string) ([]repositories.LessonCount, error) {
	if len(userIDs) == 0 {
		return []repositories.LessonCount{}, nil
	}

	var counts []repositories.LessonCount
	err := r.getDB(tx).WithContext(ctx).
		Model(&models.LessonProgress{}).
		Select("lesson_progress.user_id AS user_id, COUNT(*) AS count").
		Joins("JOIN lessons ON lessons.id = lesson_progress.lesson_id").
		Where("lessons.course_id = ? AND lesson_progress.completed = ? AND lesson_progress.user_id IN ?", courseID, true, userIDs).
		Group("lesson_progress.user_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count completed lessons by user: %w", err)
	}
	return counts, nil
}

func (r *ProgressPostgreSQL) ListCompletedLessonIDs(ctx context.Context, tx *gorm.DB, userID string, courseID uint) ([]uint, error) {
	var ids []uint
	err := r.getDB(tx).WithContext(ctx).
		Model(&models.LessonProgress{}).
		Joins("JOIN lessons ON lessons.id = lesson_progress.lesson_id").
		Where("lesson_progress.user_id = ? AND lessons.course_id = ? AND lesson_progress.completed = ?", userID, courseID, true).
		Pluck("lesson_progress.lesson_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list completed lessons: %w", err)
	}
	return ids, nil
}

func (r *ProgressPostgreSQL) RecordCourseCompletion(ctx context.Context, tx *gorm.DB, userID string, courseID uint, at time.Time) (bool, error) {
	completion := &models.CourseCompletion{UserID: userID, CourseID: courseID, CompletedAt: at}
	result := r.getDB(tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).
		Create(completion)
	if result.Error != nil {
		return false, fmt.Errorf("failed to record course completion: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// ===== ATTEMPTS =====

type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

func (r *AttemptPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *AttemptPostgreSQL) Create(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error {
	if err := r.getDB(tx).WithContext(ctx).Create(attempt).Error; err != nil {
		return fmt.Errorf("failed to create quiz attempt: %w", err)
	}
	return nil
}

func (r *AttemptPostgreSQL) GetOpen(ctx context.Context, tx *gorm.DB, userID string, lessonID uint) (*models.QuizAttempt, error) {
	var attempt models.QuizAttempt
	err := r.getDB(tx).WithContext(ctx).
		Where("user_id = ? AND lesson_id = ? AND status = ?", userID, lessonID, models.AttemptInProgress).
		First(&attempt).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get open quiz attempt: %w", err)
	}
	return &attempt, nil
}

func (r *AttemptPostgreSQL) Finish(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error {
	result := r.getDB(tx).WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("id = ? AND status = ?", attempt.ID, models.AttemptInProgress).
		Updates(map[string]interface{}{
			"status":          models.AttemptSubmitted,
			"answers":         attempt.Answers,
			"score":           attempt.Score,
			"passed":          attempt.Passed,
			"timed_out":       attempt.TimedOut,
			"elapsed_seconds": attempt.ElapsedSeconds,
			"submitted_at":    attempt.SubmittedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to finish quiz attempt: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("quiz attempt %d: %w", attempt.ID, repositories.ErrStateChanged)
	}
	attempt.Status = models.AttemptSubmitted
	return nil
}

func (r *AttemptPostgreSQL) ListByUserLesson(ctx context.Context, tx *gorm.DB, userID string, lessonID uint) ([]*models.QuizAttempt, error) {
	var attempts []*models.QuizAttempt
	err := r.getDB(tx).WithContext(ctx).
		Where("user_id = ? AND lesson_id = ?", userID, lessonID).
		Order("started_at DESC").
		Order("id DESC").
		Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list quiz attempts: %w", err)
	}
	return attempts, nil
}
