package services

import (
	"context"
	"time"

	"github.com/SAP-F-2025/course-service/internal/models"
	"github.com/SAP-F-2025/course-service/internal/repositories"
	"github.com/SAP-F-2025/course-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type CreateCourseRequest = validator.CourseCreateRequest
type UpdateCourseRequest = validator.CourseUpdateRequest
type ReviewCourseRequest = validator.ReviewCourseRequest
type CreateSectionRequest = validator.SectionCreateRequest
type CreateLessonRequest = validator.LessonCreateRequest
type SetQuizRequest = validator.QuizDefinitionRequest

type EnrollRequest = validator.EnrollmentRequest
type DecideEnrollmentRequest = validator.DecideEnrollmentRequest
type InviteByEmailRequest = validator.InviteByEmailRequest

type ToggleProgressRequest = validator.ToggleProgressRequest
type SubmitQuizRequest = validator.QuizSubmitRequest

type CourseResponse struct {
	*models.Course
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
	CanEnroll bool `json:"can_enroll"`

	// RereviewRequired is set when the update sent the course back to pending
	RereviewRequired bool `json:"rereview_required,omitempty"`
}

type CourseListResponse struct {
	Courses []*CourseResponse `json:"courses"`
	Total   int64             `json:"total"`
	Page    int               `json:"page"`
	Size    int               `json:"size"`
}

type EnrollmentListResponse struct {
	Enrollments []*models.Enrollment `json:"enrollments"`
	Total       int64                `json:"total"`
}

type ProgressResponse struct {
	EnrollmentID     uint   `json:"enrollment_id,omitempty"`
	UserID           string `json:"user_id"`
	CourseID         uint   `json:"course_id"`
	CompletedLessons int64  `json:"completed_lessons"`
	TotalLessons     int64  `json:"total_lessons"`
	Percentage       int    `json:"percentage"`
	CanReview        bool   `json:"can_review"`
}

type ToggleResult struct {
	LessonID    uint       `json:"lesson_id"`
	CourseID    uint       `json:"course_id"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
	Percentage  int        `json:"percentage"`

	// CourseCompleted is true only for the change that took the course to 100%
	CourseCompleted bool `json:"course_completed"`

	// firstCompletion is set when this change stored the user's first completion of the course
	firstCompletion bool
}

type CourseAverageResponse struct {
	CourseID        uint    `json:"course_id"`
	Learners        int     `json:"learners"`
	AverageProgress float64 `json:"average_progress"`
}

type QuizResult struct {
	AttemptID       uint             `json:"attempt_id"`
	LessonID        uint             `json:"lesson_id"`
	Score           float64          `json:"score"`
	PassingScore    int              `json:"passing_score"`
	Passed          bool             `json:"passed"`
	TimedOut        bool             `json:"timed_out"`
	ElapsedSeconds  int              `json:"elapsed_seconds"`
	LessonCompleted bool             `json:"lesson_completed"`
	CourseCompleted bool             `json:"course_completed"`
	Results         []QuestionResult `json:"results"`
}

type NotificationListResponse struct {
	Notifications []*models.Notification `json:"notifications"`
	Total         int64                  `json:"total"`
	Unread        int64                  `json:"unread"`
}

// ProgressReport is a rendered spreadsheet ready to be streamed
type ProgressReport struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ===== SERVICE INTERFACES =====

// CourseService owns course authoring and the publication lifecycle
type CourseService interface {
	Create(ctx context.Context, req *CreateCourseRequest, ownerID string) (*CourseResponse, error)
	Get(ctx context.Context, id uint, userID string) (*CourseResponse, error)
	List(ctx context.Context, filters repositories.CourseFilters, userID string) (*CourseListResponse, error)
	Update(ctx context.Context, id uint, req *UpdateCourseRequest, userID string) (*CourseResponse, error)
	Delete(ctx context.Context, id uint, userID string) error

	// Publication lifecycle
	Submit(ctx context.Context, id uint, userID string) (*CourseResponse, error)
	Review(ctx context.Context, id uint, req *ReviewCourseRequest, reviewerID string) (*CourseResponse, error)
	ChangeVisibility(ctx context.Context, id uint, visibility models.CourseVisibility, userID string) (*CourseResponse, error)

	// Content
	GetOutline(ctx context.Context, id uint, userID string) (*models.CourseOutline, error)
	AddSection(ctx context.Context, courseID uint, req *CreateSectionRequest, userID string) (*models.Section, error)
	AddLesson(ctx context.Context, sectionID uint, req *CreateLessonRequest, userID string) (*models.Lesson, error)
	DeleteLesson(ctx context.Context, lessonID uint, userID string) error
}

// EnrollmentService owns the enrollment lifecycle
type EnrollmentService interface {
	Request(ctx context.Context, req *EnrollRequest, userID string) (*models.Enrollment, error)
	Decide(ctx context.Context, id uint, req *DecideEnrollmentRequest, reviewerID string) (*models.Enrollment, error)
	Leave(ctx context.Context, id uint, userID string) (*models.Enrollment, error)
	InviteByEmail(ctx context.Context, req *InviteByEmailRequest, actorID string) (*models.Enrollment, error)

	ListByCourse(ctx context.Context, courseID uint, filters repositories.EnrollmentFilters, userID string) (*EnrollmentListResponse, error)
	ListMine(ctx context.Context, userID string, filters repositories.EnrollmentFilters) (*EnrollmentListResponse, error)
}

// ProgressService records lesson completion and aggregates it per course
type ProgressService interface {
	ToggleCompletion(ctx context.Context, userID string, lessonID uint) (*ToggleResult, error)
	MarkCompleted(ctx context.Context, userID string, lessonID uint) (*ToggleResult, error)

	Percentage(ctx context.Context, userID string, courseID uint) (int, error)
	EnrollmentProgress(ctx context.Context, enrollmentID uint, actorID string) (*ProgressResponse, error)
	CourseAverageProgress(ctx context.Context, courseID uint, actorID string) (*CourseAverageResponse, error)
	CanReview(ctx context.Context, userID string, courseID uint) (bool, error)
}

// QuizService manages quiz definitions and grades submissions
type QuizService interface {
	SetQuiz(ctx context.Context, lessonID uint, req *SetQuizRequest, userID string) ([]models.QuestionView, error)
	GetQuiz(ctx context.Context, lessonID uint, userID string) ([]models.QuestionView, error)
	Start(ctx context.Context, lessonID uint, userID string) (*models.QuizAttempt, error)
	Submit(ctx context.Context, lessonID uint, req *SubmitQuizRequest, userID string) (*QuizResult, error)
	ListAttempts(ctx context.Context, lessonID uint, userID string) ([]*models.QuizAttempt, error)
}

// NotificationService is the recipient's inbox
type NotificationService interface {
	List(ctx context.Context, userID string, filters repositories.NotificationFilters) (*NotificationListResponse, error)
	MarkRead(ctx context.Context, id uint, userID string) error
}

// ReportService renders course reports for owners and operators
type ReportService interface {
	ExportCourseProgress(ctx context.Context, courseID uint, actorID string) (*ProgressReport, error)
}

// ServiceManager manages all services and their dependencies
type ServiceManager interface {
	Course() CourseService
	Enrollment() EnrollmentService
	Progress() ProgressService
	Quiz() QuizService
	Notification() NotificationService
	Report() ReportService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
