package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/course-service/internal/repositories"
	"github.com/SAP-F-2025/course-service/internal/validator"
)

// Error kinds surfaced by every service; handlers map them to HTTP status codes
var (
	ErrValidationFailed  = errors.New("validation failed")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid state transition")
)

var (
	ErrCourseNotFound       = fmt.Errorf("course %w", ErrNotFound)
	ErrSectionNotFound      = fmt.Errorf("section %w", ErrNotFound)
	ErrLessonNotFound       = fmt.Errorf("lesson %w", ErrNotFound)
	ErrEnrollmentNotFound   = fmt.Errorf("enrollment %w", ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("notification %w", ErrNotFound)
	ErrUserNotFound         = fmt.Errorf("user %w", ErrNotFound)

	ErrActiveEnrollmentExists = fmt.Errorf("%w: an active enrollment already exists for this course", ErrConflict)
	ErrAlreadyDecided         = fmt.Errorf("%w: the item was already decided or changed concurrently", ErrConflict)
	ErrAttemptInProgress      = fmt.Errorf("%w: a quiz attempt is already in progress", ErrConflict)
)

type ValidationError = validator.ValidationError
type ValidationErrors = validator.ValidationErrors

func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
		Rule:    "business_logic",
	}
}

// IsValidationError reports whether err carries field validation failures
func IsValidationError(err error) bool {
	var errs ValidationErrors
	var single *ValidationError
	return errors.As(err, &errs) || errors.As(err, &single) || errors.Is(err, ErrValidationFailed)
}

// PermissionError is returned when the actor may not perform an operation
type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID uint   `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func (e *PermissionError) Is(target error) bool {
	return target == ErrForbidden
}

// TransitionError reports a state machine rule violation, as opposed to a concurrent writer
type TransitionError struct {
	Entity string `json:"entity"`
	From   string `json:"from"`
	To     string `json:"to"`
}

func NewTransitionError[S ~string](entity string, from, to S) *TransitionError {
	return &TransitionError{Entity: entity, From: string(from), To: string(to)}
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s cannot move from %s to %s", e.Entity, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// BusinessRuleError is a well-formed request the current data cannot satisfy
type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message, Context: context}
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule %s violated: %s", e.Rule, e.Message)
}

// mapStoreError converts repository errors into service error kinds
func mapStoreError(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case repositories.IsNotFoundError(err):
		return notFound
	case repositories.IsStateChangedError(err):
		return ErrAlreadyDecided
	case repositories.IsDuplicateKeyError(err):
		return ErrActiveEnrollmentExists
	default:
		return fmt.Errorf("storage error: %w", err)
	}
}
