package models

import (
	"time"
)

type EnrollmentStatus string

const (
	EnrollmentPending  EnrollmentStatus = "pending"
	EnrollmentApproved EnrollmentStatus = "approved"
	EnrollmentRejected EnrollmentStatus = "rejected"
	EnrollmentLeft     EnrollmentStatus = "left"
)

// ActiveEnrollmentStatuses are the statuses covered by the one-per-(user, course) constraint
var ActiveEnrollmentStatuses = []EnrollmentStatus{EnrollmentPending, EnrollmentApproved}

// IsActive reports whether the status still counts toward the uniqueness constraint
func (s EnrollmentStatus) IsActive() bool {
	return s == EnrollmentPending || s == EnrollmentApproved
}

type Enrollment struct {
	ID       uint             `json:"id" gorm:"primaryKey"`
	UserID   string           `json:"user_id" gorm:"not null;size:255;index"`
	CourseID uint             `json:"course_id" gorm:"not null;index"`
	Status   EnrollmentStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	Message  *string          `json:"message,omitempty" gorm:"type:text"`

	// ApprovedBy is set iff Status is approved; ApprovedAt is kept after leaving
	ApprovedBy      *string    `json:"approved_by,omitempty" gorm:"size:255"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectionReason *string    `json:"rejection_reason,omitempty" gorm:"type:text"`
	DecidedAt       *time.Time `json:"decided_at,omitempty"`
	LeftAt          *time.Time `json:"left_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Course *Course `json:"course,omitempty" gorm:"foreignKey:CourseID"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

// LessonProgress is keyed by (user, lesson) and survives enrollment leave/rejoin
type LessonProgress struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	UserID      string     `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_user_lesson"`
	LessonID    uint       `json:"lesson_id" gorm:"not null;uniqueIndex:idx_user_lesson"`
	Completed   bool       `json:"completed" gorm:"not null;default:false"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (LessonProgress) TableName() string {
	return "lesson_progress"
}

// CourseCompletion records the first time a user reached 100% in a course.
// Completion notifications fire only when this row is inserted.
type CourseCompletion struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UserID      string    `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_user_course_completion"`
	CourseID    uint      `json:"course_id" gorm:"not null;uniqueIndex:idx_user_course_completion"`
	CompletedAt time.Time `json:"completed_at"`
}

func (CourseCompletion) TableName() string {
	return "course_completions"
}
