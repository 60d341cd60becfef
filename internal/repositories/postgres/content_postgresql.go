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

// ===== SECTIONS =====

type SectionPostgreSQL struct {
	db *gorm.DB
}

func NewSectionPostgreSQL(db *gorm.DB) repositories.SectionRepository {
	return &SectionPostgreSQL{db: db}
}

func (r *SectionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *SectionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, section *models.Section) error {
	if err := r.getDB(tx).WithContext(ctx).Create(section).Error; err != nil {
		return fmt.Errorf("failed to create section: %w", err)
	}
	return nil
}

func (r *SectionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Section, error) {
	var section models.Section
	if err := r.getDB(tx).WithContext(ctx).First(&section, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get section %d: %w", id, err)
	}
	return &section, nil
}

func (r *SectionPostgreSQL) ListByCourse(ctx context.Context, tx *gorm.DB, courseID uint) ([]*models.Section, error) {
	var sections []*models.Section
	err := r.getDB(tx).WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("order_index ASC").
		Find(&sections).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	return sections, nil
}

func (r *SectionPostgreSQL) CountByCourse(ctx context.Context, tx *gorm.DB, courseID uint) (int64, error) {
	var count int64
	err := r.getDB(tx).WithContext(ctx).
		Model(&models.Section{}).
		Where("course_id = ?", courseID).
		Count(&count).Error
	return count, err
}

// ===== LESSONS =====

type LessonPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewLessonPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.LessonRepository {
	return &LessonPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (r *LessonPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// invalidateCount drops the cached lesson count for writes that committed on their own.
// Inside a transaction the caller invalidates once the commit succeeds.
func (r *LessonPostgreSQL) invalidateCount(ctx context.Context, tx *gorm.DB, courseID uint) {
	if inTransaction(r.getDB(tx)) {
		return
	}
	cache.InvalidateLessonCache(ctx, r.cacheManager, courseID)
}

func (r *LessonPostgreSQL) Create(ctx context.Context, tx *gorm.DB, lesson *models.Lesson) error {
	if err := r.getDB(tx).WithContext(ctx).Create(lesson).Error; err != nil {
		return fmt.Errorf("failed to create lesson: %w", err)
	}
	r.invalidateCount(ctx, tx, lesson.CourseID)
	return nil
}

func (r *LessonPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Lesson, error) {
	var lesson models.Lesson
	if err := r.getDB(tx).WithContext(ctx).First(&lesson, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get lesson %d: %w", id, err)
	}
	return &lesson, nil
}

func (r *LessonPostgreSQL) Update(ctx context.Context, tx *gorm.DB, id uint, updates map[string]interface{}) error {
	result := r.getDB(tx).WithContext(ctx).
		Model(&models.Lesson{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update lesson: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("lesson %d: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// ListByCourse returns lessons in reading order: section order first, then lesson order
func (r *LessonPostgreSQL) ListByCourse(ctx context.Context, tx *gorm.DB, courseID uint) ([]*models.Lesson, error) {
	var lessons []*models.Lesson
	err := r.getDB(tx).WithContext(ctx).
		Select("lessons.*").
		Joins("JOIN sections ON sections.id = lessons.section_id").
		Where("lessons.course_id = ?", courseID).
		Order("sections.order_index ASC").
		Order("lessons.order_index ASC").
		Find(&lessons).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list lessons: %w", err)
	}
	return lessons, nil
}

func (r *LessonPostgreSQL) CountBySection(ctx context.Context, tx *gorm.DB, sectionID uint) (int64, error) {
	var count int64
	err := r.getDB(tx).WithContext(ctx).
		Model(&models.Lesson{}).
		Where("section_id = ?", sectionID).
		Count(&count).Error
	return count, err
}

// CountByCourse is cached outside transactions; every lesson write for the course invalidates it
func (r *LessonPostgreSQL) CountByCourse(ctx context.Context, tx *gorm.DB, courseID uint) (int64, error) {
	var count int64
	if db := r.getDB(tx); inTransaction(db) {
		err := db.WithContext(ctx).Model(&models.Lesson{}).Where("course_id = ?", courseID).Count(&count).Error
		if err != nil {
			return 0, fmt.Errorf("failed to count lessons: %w", err)
		}
		return count, nil
	}

	err := r.cacheManager.Lesson.CacheOrExecute(ctx, cache.LessonCountKey(courseID), &count, cache.LessonCacheConfig.TTL, func() (interface{}, error) {
		var dbCount int64
		err := r.getDB(tx).WithContext(ctx).
			Model(&models.Lesson{}).
			Where("course_id = ?", courseID).
			Count(&dbCount).Error
		return dbCount, err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count lessons: %w", err)
	}
	return count, nil
}

func (r *LessonPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, lesson *models.Lesson) error {
	db := r.getDB(tx).WithContext(ctx)

	questionIDs := db.Model(&models.QuizQuestion{}).Select("id").Where("lesson_id = ?", lesson.ID)
	if err := db.Where("question_id IN (?)", questionIDs).Delete(&models.QuizAnswer{}).Error; err != nil {
		return fmt.Errorf("failed to delete quiz answers: %w", err)
	}
	for name, model := range map[string]interface{}{
		"quiz questions":  &models.QuizQuestion{},
		"quiz attempts":   &models.QuizAttempt{},
		"lesson progress": &models.LessonProgress{},
	} {
		if err := db.Where("lesson_id = ?", lesson.ID).Delete(model).Error; err != nil {
			return fmt.Errorf("failed to delete %s: %w", name, err)
		}
	}

	result := db.Delete(&models.Lesson{}, lesson.ID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete lesson: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("lesson %d: %w", lesson.ID, gorm.ErrRecordNotFound)
	}

	// Close the gap so order_index stays dense
	err := db.Model(&models.Lesson{}).
		Where("section_id = ? AND order_index > ?", lesson.SectionID, lesson.OrderIndex).
		UpdateColumn("order_index", gorm.Expr("order_index - 1")).Error
	if err != nil {
		return fmt.Errorf("failed to reorder lessons: %w", err)
	}

	r.invalidateCount(ctx, tx, lesson.CourseID)
	return nil
}

// ===== QUIZ =====

type QuizPostgreSQL struct {
	db *gorm.DB
}

func NewQuizPostgreSQL(db *gorm.DB) repositories.QuizRepository {
	return &QuizPostgreSQL{db: db}
}

func (r *QuizPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *QuizPostgreSQL) ReplaceQuestions(ctx context.Context, tx *gorm.DB, lessonID uint, questions []*models.QuizQuestion) error {
	db := r.getDB(tx).WithContext(ctx)

	questionIDs := db.Model(&models.QuizQuestion{}).Select("id").Where("lesson_id = ?", lessonID)
	if err := db.Where("question_id IN (?)", questionIDs).Delete(&models.QuizAnswer{}).Error; err != nil {
		return fmt.Errorf("failed to delete quiz answers: %w", err)
	}
	if err := db.Where("lesson_id = ?", lessonID).Delete(&models.QuizQuestion{}).Error; err != nil {
		return fmt.Errorf("failed to delete quiz questions: %w", err)
	}

	if len(questions) == 0 {
		return nil
	}
	for i, q := range questions {
		q.ID = 0
		q.LessonID = lessonID
		q.OrderIndex = i
		for j := range q.Answers {
			q.Answers[j].ID = 0
			q.Answers[j].OrderIndex = j
		}
	}
	// Answers are inserted through the association
	if err := db.Create(&questions).Error; err != nil {
		return fmt.Errorf("failed to create quiz questions: %w", err)
	}
	return nil
}

func (r *QuizPostgreSQL) GetQuestions(ctx context.Context, tx *gorm.DB, lessonID uint) ([]*models.QuizQuestion, error) {
	var questions []*models.QuizQuestion
	err := r.getDB(tx).WithContext(ctx).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC")
		}).
		Where("lesson_id = ?", lessonID).
		Order("order_index ASC").
		Find(&questions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz questions: %w", err)
	}
	return questions, nil
}
