package models

import (
	"time"

	"gorm.io/datatypes"
)

type NotificationType string

const (
	NotificationCourseSubmitted     NotificationType = "course_submitted"
	NotificationCourseApproved      NotificationType = "course_approved"
	NotificationCourseRejected      NotificationType = "course_rejected"
	NotificationCourseCompleted     NotificationType = "course_completed"
	NotificationEnrollmentRequested NotificationType = "enrollment_requested"
	NotificationEnrollmentApproved  NotificationType = "enrollment_approved"
	NotificationEnrollmentRejected  NotificationType = "enrollment_rejected"
	NotificationEnrollmentInvited   NotificationType = "enrollment_invited"
)

// Notification rows are written only by lifecycle side effects; Read is the one mutable field
type Notification struct {
	ID           uint             `json:"id" gorm:"primaryKey"`
	UserID       string           `json:"user_id" gorm:"not null;size:255;index"`
	Type         NotificationType `json:"type" gorm:"type:varchar(40);not null"`
	Message      string           `json:"message" gorm:"type:text;not null"`
	CourseID     *uint            `json:"course_id,omitempty" gorm:"index"`
	EnrollmentID *uint            `json:"enrollment_id,omitempty"`
	Metadata     datatypes.JSON   `json:"metadata,omitempty"`
	Read         bool             `json:"read" gorm:"column:is_read;not null;default:false"`
	ReadAt       *time.Time       `json:"read_at,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

// AllModels lists every persisted entity in migration order
func AllModels() []interface{} {
	return []interface{}{
		&Course{},
		&Section{},
		&Lesson{},
		&QuizQuestion{},
		&QuizAnswer{},
		&QuizAttempt{},
		&Enrollment{},
		&LessonProgress{},
		&CourseCompletion{},
		&Notification{},
	}
}
