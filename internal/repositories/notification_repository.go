package repositories

import (
	"context"

	"github.com/SAP-F-2025/course-service/internal/models"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, notifications []*models.Notification) error
	ListByUser(ctx context.Context, tx *gorm.DB, userID string, filters NotificationFilters) ([]*models.Notification, int64, error)
	CountUnread(ctx context.Context, tx *gorm.DB, userID string) (int64, error)

	// MarkRead flags the notification as read when it belongs to userID
	MarkRead(ctx context.Context, tx *gorm.DB, id uint, userID string) error
}
