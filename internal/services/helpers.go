package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-service/internal/models"
	"github.com/SAP-F-2025/course-service/internal/repositories"
)

// resolveActor looks up the caller's role in the user directory
func resolveActor(ctx context.Context, repo repositories.Repository, userID string) (Actor, error) {
	if userID == "" {
		return Actor{}, NewPermissionError(userID, 0, "user", "authenticate", "missing user id")
	}

	user, err := repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return Actor{}, NewPermissionError(userID, 0, "user", "authenticate", "unknown user")
		}
		return Actor{}, fmt.Errorf("failed to get user: %w", err)
	}
	return Actor{ID: user.ID, Role: user.Role}, nil
}

func loadCourse(ctx context.Context, repo repositories.Repository, tx *gorm.DB, id uint) (*models.Course, error) {
	course, err := repo.Course().GetByID(ctx, tx, id)
	if err != nil {
		return nil, mapStoreError(err, ErrCourseNotFound)
	}
	return course, nil
}

func loadLesson(ctx context.Context, repo repositories.Repository, tx *gorm.DB, id uint) (*models.Lesson, error) {
	lesson, err := repo.Lesson().GetByID(ctx, tx, id)
	if err != nil {
		return nil, mapStoreError(err, ErrLessonNotFound)
	}
	return lesson, nil
}

// accessFor assembles an AccessRequest, loading the actor's active enrollment if any
func accessFor(ctx context.Context, repo repositories.Repository, tx *gorm.DB, actor Actor, course *models.Course) (AccessRequest, error) {
	req := AccessRequest{Actor: actor, Course: course}

	enrollment, err := repo.Enrollment().GetActive(ctx, tx, actor.ID, course.ID)
	switch {
	case err == nil:
		req.Enrollment = enrollment
	case repositories.IsNotFoundError(err):
	default:
		return req, fmt.Errorf("failed to get enrollment: %w", err)
	}
	return req, nil
}

// authorize returns a PermissionError when op is denied
func authorize(ctx context.Context, repo repositories.Repository, tx *gorm.DB, actor Actor, course *models.Course, op Operation) (AccessRequest, error) {
	req, err := accessFor(ctx, repo, tx, actor, course)
	if err != nil {
		return req, err
	}
	if !CanAccess(req, op) {
		return req, NewPermissionError(actor.ID, course.ID, "course", string(op), denialReason(req, op))
	}
	return req, nil
}

func denialReason(req AccessRequest, op Operation) string {
	switch op {
	case OpView:
		return "course is not published to this user"
	case OpEnroll:
		if req.Course.Status != models.CourseApproved {
			return "course is not approved"
		}
		return "an active enrollment already exists"
	case OpReview:
		return "operator role required"
	case OpTrackProgress:
		if req.Course.Status != models.CourseApproved {
			return "course is not approved"
		}
		return "an approved enrollment is required"
	default:
		return "owner or operator role required"
	}
}

// completionPercentage rounds to the nearest integer but only reports 100 when every lesson is done
func completionPercentage(completed, total int64) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed >= total {
		return 100
	}
	pct := int((200*completed + total) / (2 * total))
	return min(pct, 99)
}

func stringPtr(s string) *string {
	return &s
}

func uintPtr(v uint) *uint {
	return &v
}

func withTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}

// validationErrors converts a possibly empty error list into an error without the typed-nil trap
func validationErrors(errs ValidationErrors) error {
	if len(errs) == 0 {
		return nil
	}
	return errs
}
