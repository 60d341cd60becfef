package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/course-service/internal/cache"
	"github.com/SAP-F-2025/course-service/internal/models"
	"github.com/SAP-F-2025/course-service/internal/repositories"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type CoursePostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewCoursePostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.CourseRepository {
	return &CoursePostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (r *CoursePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *CoursePostgreSQL) Create(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	if err := r.getDB(tx).WithContext(ctx).Create(course).Error; err != nil {
		return fmt.Errorf("failed to create course: %w", err)
	}
	return nil
}

// GetByID reads through the course cache; reads inside a transaction go straight to the database
func (r *CoursePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error) {
	var course models.Course
	if db := r.getDB(tx); inTransaction(db) {
		if err := db.WithContext(ctx).First(&course, id).Error; err != nil {
			return nil, fmt.Errorf("failed to get course %d: %w", id, err)
		}
		return &course, nil
	}

	err := r.cacheManager.Course.CacheOrExecute(ctx, cache.CourseKey(id), &course, cache.CourseCacheConfig.TTL, func() (interface{}, error) {
		var dbCourse models.Course
		if err := r.getDB(tx).WithContext(ctx).First(&dbCourse, id).Error; err != nil {
			return nil, err
		}
		return &dbCourse, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get course %d: %w", id, err)
	}
	return &course, nil
}

func (r *CoursePostgreSQL) Update(ctx context.Context, tx *gorm.DB, id uint, updates map[string]interface{}) error {
	result := r.getDB(tx).WithContext(ctx).
		Model(&models.Course{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update course: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("course %d: %w", id, gorm.ErrRecordNotFound)
	}

	r.invalidate(ctx, tx, id)
	return nil
}

// invalidate drops the cached course for writes that committed on their own.
// Inside a transaction the caller invalidates once the commit succeeds.
func (r *CoursePostgreSQL) invalidate(ctx context.Context, tx *gorm.DB, id uint) {
	if inTransaction(r.getDB(tx)) {
		return
	}
	cache.InvalidateCourseCache(ctx, r.cacheManager, id)
}

func (r *CoursePostgreSQL) TransitionStatus(ctx context.Context, tx *gorm.DB, id uint, from []models.CourseStatus, updates map[string]interface{}) error {
	result := r.getDB(tx).WithContext(ctx).
		Model(&models.Course{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to transition course: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("course %d: %w", id, repositories.ErrStateChanged)
	}

	r.invalidate(ctx, tx, id)
	return nil
}

// Delete removes the course and everything it owns.
// Enrollments are not owned by the course and must be removed by the caller.
func (r *CoursePostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := r.getDB(tx).WithContext(ctx)

	lessonIDs := db.Model(&models.Lesson{}).Select("id").Where("course_id = ?", id)
	questionIDs := db.Model(&models.QuizQuestion{}).Select("id").Where("lesson_id IN (?)", lessonIDs)

	steps := []struct {
		name  string
		model interface{}
		where string
		arg   interface{}
	}{
		{"quiz answers", &models.QuizAnswer{}, "question_id IN (?)", questionIDs},
		{"quiz questions", &models.QuizQuestion{}, "lesson_id IN (?)", lessonIDs},
		{"quiz attempts", &models.QuizAttempt{}, "lesson_id IN (?)", lessonIDs},
		{"lesson progress", &models.LessonProgress{}, "lesson_id IN (?)", lessonIDs},
		{"course completions", &models.CourseCompletion{}, "course_id = ?", id},
		{"lessons", &models.Lesson{}, "course_id = ?", id},
		{"sections", &models.Section{}, "course_id = ?", id},
	}
	for _, step := range steps {
		if err := db.Where(step.where, step.arg).Delete(step.model).Error; err != nil {
			return fmt.Errorf("failed to delete %s: %w", step.name, err)
		}
	}

	result := db.Delete(&models.Course{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete course: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("course %d: %w", id, gorm.ErrRecordNotFound)
	}

	r.invalidate(ctx, tx, id)
	if !inTransaction(r.getDB(tx)) {
		cache.InvalidateLessonCache(ctx, r.cacheManager, id)
	}
	return nil
}

func (r *CoursePostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.CourseFilters) ([]*models.Course, int64, error) {
	base := func() *gorm.DB {
		return r.helpers.ApplyCourseFilters(r.getDB(tx).WithContext(ctx).Model(&models.Course{}), filters)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count courses: %w", err)
	}

	var courses []*models.Course
	query := r.helpers.ApplyPaginationAndSort(base(), filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Find(&courses).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list courses: %w", err)
	}
	return courses, total, nil
}
