package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-service/internal/models"
	"github.com/SAP-F-2025/course-service/internal/repositories"
	"github.com/SAP-F-2025/course-service/internal/validator"
)

type enrollmentService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	notifier  NotificationDispatcher
}

func NewEnrollmentService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, notifier NotificationDispatcher) EnrollmentService {
	return &enrollmentService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		notifier:  notifier,
	}
}

// Request enrolls the caller. Public courses approve immediately with the owner as approver;
// private courses need a message and wait for a decision.
func (s *enrollmentService) Request(ctx context.Context, req *EnrollRequest, userID string) (*models.Enrollment, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	actor, err := resolveActor(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}

	course, err := loadCourse(ctx, s.repo, s.db, req.CourseID)
	if err != nil {
		return nil, err
	}
	if course.Status != models.CourseApproved {
		return nil, NewPermissionError(actor.ID, course.ID, "course", string(OpEnroll), "course is not approved")
	}

	access, err := accessFor(ctx, s.repo, s.db, actor, course)
	if err != nil {
		return nil, err
	}
	if access.Enrollment != nil {
		return nil, ErrActiveEnrollmentExists
	}
	if !CanAccess(access, OpEnroll) {
		return nil, NewPermissionError(actor.ID, course.ID, "course", string(OpEnroll), denialReason(access, OpEnroll))
	}

	message := strings.TrimSpace(req.Message)
	enrollment := &models.Enrollment{
		UserID:   actor.ID,
		CourseID: course.ID,
	}
	if message != "" {
		enrollment.Message = &message
	}

	switch course.Visibility {
	case models.VisibilityPublic:
		now := time.Now().UTC()
		enrollment.Status = models.EnrollmentApproved
		enrollment.ApprovedBy = stringPtr(course.OwnerID)
		enrollment.ApprovedAt = &now
		enrollment.DecidedAt = &now
	default:
		if message == "" {
			return nil, ValidationErrors{*NewValidationError("message", "is required to join a private course", req.Message)}
		}
		enrollment.Status = models.EnrollmentPending
	}

	// The partial unique index settles races the pre-check above cannot see
	if err := s.repo.Enrollment().Create(ctx, s.db, enrollment); err != nil {
		return nil, mapStoreError(err, ErrEnrollmentNotFound)
	}

	s.logger.Info("Enrollment created",
		"enrollment_id", enrollment.ID, "course_id", course.ID, "user_id", actor.ID, "status", enrollment.Status)

	if enrollment.Status == models.EnrollmentPending {
		s.notifier.Dispatch(ctx, []NotificationRequest{enrollmentNotification(course.OwnerID,
			models.NotificationEnrollmentRequested, enrollment,
			fmt.Sprintf("A learner asked to join %q", course.Title))})
	}
	return enrollment, nil
}

func (s *enrollmentService) Decide(ctx context.Context, id uint, req *DecideEnrollmentRequest, reviewerID string) (*models.Enrollment, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	rejected := req.Status == models.EnrollmentRejected
	if err := validationErrors(s.validator.GetBusinessValidator().ValidateRejectionReason(rejected, req.Reason)); err != nil {
		return nil, err
	}

	actor, err := resolveActor(ctx, s.repo, reviewerID)
	if err != nil {
		return nil, err
	}

	enrollment, err := s.repo.Enrollment().GetByID(ctx, s.db, id)
	if err != nil {
		return nil, mapStoreError(err, ErrEnrollmentNotFound)
	}
	course, err := loadCourse(ctx, s.repo, s.db, enrollment.CourseID)
	if err != nil {
		return nil, err
	}
	if !CanAccess(AccessRequest{Actor: actor, Course: course}, OpReviewEnrollment) {
		return nil, NewPermissionError(actor.ID, course.ID, "enrollment", string(OpReviewEnrollment), "owner or operator role required")
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":     req.Status,
		"decided_at": now,
	}
	if rejected {
		updates["rejection_reason"] = strings.TrimSpace(req.Reason)
	} else {
		updates["approved_by"] = actor.ID
		updates["approved_at"] = now
		updates["rejection_reason"] = nil
	}

	if err := s.repo.Enrollment().TransitionStatus(ctx, s.db, id, models.EnrollmentPending, updates); err != nil {
		return nil, mapStoreError(err, ErrEnrollmentNotFound)
	}

	s.logger.Info("Enrollment decided", "enrollment_id", id, "status", req.Status, "reviewer_id", actor.ID)

	enrollment, err = s.repo.Enrollment().GetByID(ctx, s.db, id)
	if err != nil {
		return nil, mapStoreError(err, ErrEnrollmentNotFound)
	}

	notificationType := models.NotificationEnrollmentApproved
	message := fmt.Sprintf("Your request to join %q was approved", course.Title)
	if rejected {
		notificationType = models.NotificationEnrollmentRejected
		message = fmt.Sprintf("Your request to join %q was rejected: %s", course.Title, strings.TrimSpace(req.Reason))
	}
	s.notifier.Dispatch(ctx, []NotificationRequest{enrollmentNotification(enrollment.UserID, notificationType, enrollment, message)})

	return enrollment, nil
}

// Leave ends an approved enrollment. Lesson progress is kept for a later re-join.
func (s *enrollmentService) Leave(ctx context.Context, id uint, userID string) (*models.Enrollment, error) {
	actor, err := resolveActor(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}

	enrollment, err := s.repo.Enrollment().GetByID(ctx, s.db, id)
	if err != nil {
		return nil, mapStoreError(err, ErrEnrollmentNotFound)
	}
	if enrollment.UserID != actor.ID {
		return nil, NewPermissionError(actor.ID, id, "enrollment", "leave", "only the enrolled user can leave")
	}
	if !CanTransitionEnrollment(enrollment.Status, models.EnrollmentLeft) {
		return nil, NewTransitionError("enrollment", enrollment.Status, models.EnrollmentLeft)
	}

	err = s.repo.Enrollment().TransitionStatus(ctx, s.db, id, models.EnrollmentApproved, map[string]interface{}{
		"status":      models.EnrollmentLeft,
		"left_at":     time.Now().UTC(),
		"approved_by": nil,
	})
	if err != nil {
		return nil, mapStoreError(err, ErrEnrollmentNotFound)
	}

	s.logger.Info("Enrollment left", "enrollment_id", id, "user_id", actor.ID)

	enrollment, err = s.repo.Enrollment().GetByID(ctx, s.db, id)
	if err != nil {
		return nil, mapStoreError(err, ErrEnrollmentNotFound)
	}
	return enrollment, nil
}

func (s *enrollmentService) InviteByEmail(ctx context.Context, req *InviteByEmailRequest, actorID string) (*models.Enrollment, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	actor, err := resolveActor(ctx, s.repo, actorID)
	if err != nil {
		return nil, err
	}

	course, err := loadCourse(ctx, s.repo, s.db, req.CourseID)
	if err != nil {
		return nil, err
	}
	if !course.IsOwnedBy(actor.ID) {
		return nil, NewPermissionError(actor.ID, course.ID, "course", "invite", "only the owner can invite")
	}
	if course.Status != models.CourseApproved {
		return nil, NewBusinessRuleError("course_not_approved", "learners can only be invited to approved courses", map[string]interface{}{
			"course_id": course.ID,
			"status":    course.Status,
		})
	}

	invitee, err := s.repo.User().GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		return nil, mapStoreError(err, ErrUserNotFound)
	}

	if _, err := s.repo.Enrollment().GetActive(ctx, s.db, invitee.ID, course.ID); err == nil {
		return nil, ErrActiveEnrollmentExists
	} else if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}

	now := time.Now().UTC()
	enrollment := &models.Enrollment{
		UserID:     invitee.ID,
		CourseID:   course.ID,
		Status:     models.EnrollmentApproved,
		ApprovedBy: stringPtr(actor.ID),
		ApprovedAt: &now,
		DecidedAt:  &now,
	}
	if err := s.repo.Enrollment().Create(ctx, s.db, enrollment); err != nil {
		return nil, mapStoreError(err, ErrEnrollmentNotFound)
	}

	s.logger.Info("Learner invited", "enrollment_id", enrollment.ID, "course_id", course.ID, "user_id", invitee.ID)

	s.notifier.Dispatch(ctx, []NotificationRequest{enrollmentNotification(invitee.ID,
		models.NotificationEnrollmentInvited, enrollment,
		fmt.Sprintf("You were added to %q", course.Title))})
	return enrollment, nil
}

func (s *enrollmentService) ListByCourse(ctx context.Context, courseID uint, filters repositories.EnrollmentFilters, userID string) (*EnrollmentListResponse, error) {
	actor, err := resolveActor(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}

	course, err := loadCourse(ctx, s.repo, s.db, courseID)
	if err != nil {
		return nil, err
	}
	if !CanAccess(AccessRequest{Actor: actor, Course: course}, OpReviewStudents) {
		return nil, NewPermissionError(actor.ID, courseID, "course", string(OpReviewStudents), "owner or operator role required")
	}

	enrollments, total, err := s.repo.Enrollment().ListByCourse(ctx, s.db, courseID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	return &EnrollmentListResponse{Enrollments: enrollments, Total: total}, nil
}

func (s *enrollmentService) ListMine(ctx context.Context, userID string, filters repositories.EnrollmentFilters) (*EnrollmentListResponse, error) {
	enrollments, total, err := s.repo.Enrollment().ListByUser(ctx, s.db, userID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	return &EnrollmentListResponse{Enrollments: enrollments, Total: total}, nil
}
