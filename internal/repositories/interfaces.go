package repositories

import (
	"time"

	"github.com/SAP-F-2025/course-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type CourseFilters struct {
	Status     *models.CourseStatus     `json:"status"`
	Visibility *models.CourseVisibility `json:"visibility"`
	OwnerID    *string                  `json:"owner_id"`
	// VisibleTo limits results to courses the user owns or that are public and approved
	VisibleTo *string `json:"visible_to"`
	Query     string  `json:"query"`
	Limit     int     `json:"limit"`
	Offset    int     `json:"offset"`
	SortBy    string  `json:"sort_by"`    // "created_at", "title", "updated_at"
	SortOrder string  `json:"sort_order"` // "asc", "desc"
}

type EnrollmentFilters struct {
	Status    *models.EnrollmentStatus `json:"status"`
	DateFrom  *time.Time               `json:"date_from"`
	DateTo    *time.Time               `json:"date_to"`
	Limit     int                      `json:"limit"`
	Offset    int                      `json:"offset"`
	SortBy    string                   `json:"sort_by"` // "created_at", "updated_at", "status"
	SortOrder string                   `json:"sort_order"`
}

type NotificationFilters struct {
	UnreadOnly bool `json:"unread_only"`
	Limit      int  `json:"limit"`
	Offset     int  `json:"offset"`
}

// ===== SHARED HELPER STRUCTS =====

// LessonCount pairs a user with the number of lessons they completed in one course
type LessonCount struct {
	UserID string `json:"user_id"`
	Count  int64  `json:"count"`
}
