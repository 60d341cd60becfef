package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/course-service/internal/models"
	"gorm.io/gorm"
)

type ProgressRepository interface {
	Get(ctx context.Context, tx *gorm.DB, userID string, lessonID uint) (*models.LessonProgress, error)

	// Toggle flips the (user, lesson) row with a single conditional write, inserting it as completed when absent
	Toggle(ctx context.Context, tx *gorm.DB, userID string, lessonID uint, at time.Time) (*models.LessonProgress, error)

	// MarkCompleted sets completed=true and reports whether the row changed
	MarkCompleted(ctx context.Context, tx *gorm.DB, userID string, lessonID uint, at time.Time) (bool, error)

	CountCompletedInCourse(ctx context.Context, tx *gorm.DB, userID string, courseID uint) (int64, error)
	CountCompletedByUsers(ctx context.Context, tx *gorm.DB, courseID uint, userIDs []string) ([]LessonCount, error)
	ListCompletedLessonIDs(ctx context.Context, tx *gorm.DB, userID string, courseID uint) ([]uint, error)

	// RecordCourseCompletion reports whether this call stored the user's first completion of the course
	RecordCourseCompletion(ctx context.Context, tx *gorm.DB, userID string, courseID uint, at time.Time) (bool, error)
}

type AttemptRepository interface {
	Create(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error

	// GetOpen returns the user's in-progress attempt for the lesson
	GetOpen(ctx context.Context, tx *gorm.DB, userID string, lessonID uint) (*models.QuizAttempt, error)

	// Finish stores the graded attempt, conditioned on it still being in progress
	Finish(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error

	ListByUserLesson(ctx context.Context, tx *gorm.DB, userID string, lessonID uint) ([]*models.QuizAttempt, error)
}
