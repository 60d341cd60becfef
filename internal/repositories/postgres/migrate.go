package postgres

import (
	"fmt"

	"github.com/SAP-F-2025/course-service/internal/models"
	"gorm.io/gorm"
)

// Migrate creates the schema and the constraints gorm tags cannot express
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("auto migration failed: %w", err)
	}

	// At most one pending or approved enrollment per (user, course).
	// Rejected and left rows fall outside the index so re-joining inserts a fresh row.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_active_enrollment
		ON enrollments (user_id, course_id)
		WHERE status IN ('pending', 'approved')
	`).Error; err != nil {
		return fmt.Errorf("failed to create idx_active_enrollment: %w", err)
	}

	// At most one open quiz attempt per (user, lesson); a second start resumes it
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_open_quiz_attempt
		ON quiz_attempts (user_id, lesson_id)
		WHERE status = 'in_progress'
	`).Error; err != nil {
		return fmt.Errorf("failed to create idx_open_quiz_attempt: %w", err)
	}

	return nil
}
