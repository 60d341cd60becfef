package repositories

import (
	"context"

	"github.com/SAP-F-2025/course-service/internal/models"
	"gorm.io/gorm"
)

type EnrollmentRepository interface {
	// Create returns ErrDuplicate when an active enrollment already exists for the pair
	Create(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Enrollment, error)
	GetActive(ctx context.Context, tx *gorm.DB, userID string, courseID uint) (*models.Enrollment, error)
	ListByCourse(ctx context.Context, tx *gorm.DB, courseID uint, filters EnrollmentFilters) ([]*models.Enrollment, int64, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID string, filters EnrollmentFilters) ([]*models.Enrollment, int64, error)
	ListApprovedUserIDs(ctx context.Context, tx *gorm.DB, courseID uint) ([]string, error)
	DeleteByCourse(ctx context.Context, tx *gorm.DB, courseID uint) error

	// TransitionStatus applies updates only while the enrollment is still in from.
	// It returns ErrStateChanged when no row matched.
	TransitionStatus(ctx context.Context, tx *gorm.DB, id uint, from models.EnrollmentStatus, updates map[string]interface{}) error
}
