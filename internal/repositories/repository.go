package repositories

import "context"

// Repository aggregates every repository used by the course service
type Repository interface {
	// Course content
	Course() CourseRepository
	Section() SectionRepository
	Lesson() LessonRepository
	Quiz() QuizRepository

	// Learner state
	Enrollment() EnrollmentRepository
	Progress() ProgressRepository
	Attempt() AttemptRepository
	Notification() NotificationRepository

	// User domain (read-only, backed by the identity provider)
	User() UserRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// InvalidateCourseCache drops the cached course row and lesson count.
	// Writes inside a transaction leave the cache alone; call this after the commit.
	InvalidateCourseCache(ctx context.Context, courseID uint)

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
