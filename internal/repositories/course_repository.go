package repositories

import (
	"context"

	"github.com/SAP-F-2025/course-service/internal/models"
	"gorm.io/gorm"
)

type CourseRepository interface {
	Create(ctx context.Context, tx *gorm.DB, course *models.Course) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error)
	Update(ctx context.Context, tx *gorm.DB, id uint, updates map[string]interface{}) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	List(ctx context.Context, tx *gorm.DB, filters CourseFilters) ([]*models.Course, int64, error)

	// TransitionStatus applies updates only while the course is still in one of the from statuses.
	// It returns ErrStateChanged when no row matched.
	TransitionStatus(ctx context.Context, tx *gorm.DB, id uint, from []models.CourseStatus, updates map[string]interface{}) error
}

type SectionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, section *models.Section) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Section, error)
	ListByCourse(ctx context.Context, tx *gorm.DB, courseID uint) ([]*models.Section, error)
	CountByCourse(ctx context.Context, tx *gorm.DB, courseID uint) (int64, error)
}

type LessonRepository interface {
	Create(ctx context.Context, tx *gorm.DB, lesson *models.Lesson) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Lesson, error)
	Update(ctx context.Context, tx *gorm.DB, id uint, updates map[string]interface{}) error
	ListByCourse(ctx context.Context, tx *gorm.DB, courseID uint) ([]*models.Lesson, error)
	CountBySection(ctx context.Context, tx *gorm.DB, sectionID uint) (int64, error)
	CountByCourse(ctx context.Context, tx *gorm.DB, courseID uint) (int64, error)

	// Delete removes the lesson with its quiz, progress and attempts and closes the order_index gap
	Delete(ctx context.Context, tx *gorm.DB, lesson *models.Lesson) error
}

type QuizRepository interface {
	// ReplaceQuestions deletes the lesson's questions and answers and inserts the given ones
	ReplaceQuestions(ctx context.Context, tx *gorm.DB, lessonID uint, questions []*models.QuizQuestion) error
	GetQuestions(ctx context.Context, tx *gorm.DB, lessonID uint) ([]*models.QuizQuestion, error)
}
