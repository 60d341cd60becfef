package services

import (
	"github.com/SAP-F-2025/course-service/internal/models"
)

type Operation string

const (
	OpView             Operation = "view"
	OpEnroll           Operation = "enroll"
	OpEdit             Operation = "edit"
	OpDelete           Operation = "delete"
	OpReviewStudents   Operation = "reviewStudents"
	OpReview           Operation = "review"
	OpReviewEnrollment Operation = "reviewEnrollment"
	OpTrackProgress    Operation = "trackProgress" // completing lessons and taking quizzes
)

var AllOperations = []Operation{OpView, OpEnroll, OpEdit, OpDelete, OpReviewStudents, OpReview, OpReviewEnrollment, OpTrackProgress}

// Actor is the authenticated user an access decision is made for
type Actor struct {
	ID   string
	Role models.UserRole
}

func (a Actor) IsOperator() bool {
	return a.Role.IsOperator()
}

// AccessRequest carries everything CanAccess looks at.
// Enrollment is the actor's most recent enrollment in Course, or nil.
type AccessRequest struct {
	Actor      Actor
	Course     *models.Course
	Enrollment *models.Enrollment
}

// CanAccess is a pure allow/deny decision; it never fails and every input yields an answer
func CanAccess(req AccessRequest, op Operation) bool {
	course := req.Course
	if course == nil || req.Actor.ID == "" {
		return false
	}

	owner := course.IsOwnedBy(req.Actor.ID)
	operator := req.Actor.IsOperator()

	enrollment := req.Enrollment
	if enrollment != nil && (enrollment.UserID != req.Actor.ID || enrollment.CourseID != course.ID) {
		enrollment = nil
	}

	switch op {
	case OpView:
		if owner || operator {
			return true
		}
		if course.Status != models.CourseApproved {
			return false
		}
		return course.Visibility == models.VisibilityPublic ||
			(enrollment != nil && enrollment.Status == models.EnrollmentApproved)
	case OpEnroll:
		return course.Status == models.CourseApproved &&
			(enrollment == nil || !enrollment.Status.IsActive())
	case OpEdit, OpDelete, OpReviewStudents:
		return owner || operator
	case OpReview:
		return operator
	case OpReviewEnrollment:
		return owner || operator
	case OpTrackProgress:
		if owner || operator {
			return true
		}
		return course.Status == models.CourseApproved &&
			enrollment != nil && enrollment.Status == models.EnrollmentApproved
	default:
		return false
	}
}
