package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/course-service/internal/models"
	"github.com/SAP-F-2025/course-service/internal/repositories"
	"gorm.io/gorm"
)

type EnrollmentPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewEnrollmentPostgreSQL(db *gorm.DB) repositories.EnrollmentRepository {
	return &EnrollmentPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (r *EnrollmentPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Create relies on idx_active_enrollment to reject a second active row for the pair
func (r *EnrollmentPostgreSQL) Create(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) error {
	if err := r.getDB(tx).WithContext(ctx).Create(enrollment).Error; err != nil {
		if repositories.IsDuplicateKeyError(err) {
			return fmt.Errorf("active enrollment for user %s in course %d: %w",
				enrollment.UserID, enrollment.CourseID, repositories.ErrDuplicate)
		}
		return fmt.Errorf("failed to create enrollment: %w", err)
	}
	return nil
}

func (r *EnrollmentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := r.getDB(tx).WithContext(ctx).First(&enrollment, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get enrollment %d: %w", id, err)
	}
	return &enrollment, nil
}

func (r *EnrollmentPostgreSQL) GetActive(ctx context.Context, tx *gorm.DB, userID string, courseID uint) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	err := r.getDB(tx).WithContext(ctx).
		Where("user_id = ? AND course_id = ? AND status IN ?", userID, courseID, models.ActiveEnrollmentStatuses).
		First(&enrollment).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get active enrollment: %w", err)
	}
	return &enrollment, nil
}

func (r *EnrollmentPostgreSQL) TransitionStatus(ctx context.Context, tx *gorm.DB, id uint, from models.EnrollmentStatus, updates map[string]interface{}) error {
	result := r.getDB(tx).WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to transition enrollment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("enrollment %d: %w", id, repositories.ErrStateChanged)
	}

	return nil
}

func (r *EnrollmentPostgreSQL) ListByCourse(ctx context.Context, tx *gorm.DB, courseID uint, filters repositories.EnrollmentFilters) ([]*models.Enrollment, int64, error) {
	base := func() *gorm.DB {
		query := r.getDB(tx).WithContext(ctx).Model(&models.Enrollment{}).Where("course_id = ?", courseID)
		return r.helpers.ApplyEnrollmentFilters(query, filters)
	}
	return r.list(base, filters)
}

func (r *EnrollmentPostgreSQL) ListByUser(ctx context.Context, tx *gorm.DB, userID string, filters repositories.EnrollmentFilters) ([]*models.Enrollment, int64, error) {
	base := func() *gorm.DB {
		query := r.getDB(tx).WithContext(ctx).Model(&models.Enrollment{}).Where("user_id = ?", userID)
		return r.helpers.ApplyEnrollmentFilters(query, filters)
	}
	return r.list(base, filters, "Course")
}

func (r *EnrollmentPostgreSQL) list(base func() *gorm.DB, filters repositories.EnrollmentFilters, preloads ...string) ([]*models.Enrollment, int64, error) {
	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count enrollments: %w", err)
	}

	query := r.helpers.ApplyPaginationAndSort(base(), filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	for _, preload := range preloads {
		query = query.Preload(preload)
	}

	var enrollments []*models.Enrollment
	if err := query.Find(&enrollments).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list enrollments: %w", err)
	}
	return enrollments, total, nil
}

func (r *EnrollmentPostgreSQL) ListApprovedUserIDs(ctx context.Context, tx *gorm.DB, courseID uint) ([]string, error) {
	var userIDs []string
	err := r.getDB(tx).WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("course_id = ? AND status = ?", courseID, models.EnrollmentApproved).
		Order("created_at ASC").
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list approved learners: %w", err)
	}
	return userIDs, nil
}

func (r *EnrollmentPostgreSQL) DeleteByCourse(ctx context.Context, tx *gorm.DB, courseID uint) error {
	err := r.getDB(tx).WithContext(ctx).
		Where("course_id = ?", courseID).
		Delete(&models.Enrollment{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete enrollments: %w", err)
	}
	return nil
}
