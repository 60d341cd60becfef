package services

import (
	"slices"

	"github.com/SAP-F-2025/course-service/internal/models"
)

// courseTransitions is the publication state machine
var courseTransitions = map[models.CourseStatus][]models.CourseStatus{
	models.CourseDraft:    {models.CoursePending},
	models.CoursePending:  {models.CourseApproved, models.CourseRejected},
	models.CourseApproved: {models.CoursePending},
	models.CourseRejected: {models.CoursePending},
}

// enrollmentTransitions has no exits from rejected or left; re-joining inserts a new row
var enrollmentTransitions = map[models.EnrollmentStatus][]models.EnrollmentStatus{
	models.EnrollmentPending:  {models.EnrollmentApproved, models.EnrollmentRejected},
	models.EnrollmentApproved: {models.EnrollmentLeft},
	models.EnrollmentRejected: {},
	models.EnrollmentLeft:     {},
}

// submitSources are the states an author may submit from: a first submission or a resubmission
var submitSources = []models.CourseStatus{models.CourseDraft, models.CourseRejected}

func CanTransitionCourse(from, to models.CourseStatus) bool {
	return slices.Contains(courseTransitions[from], to)
}

func CanTransitionEnrollment(from, to models.EnrollmentStatus) bool {
	return slices.Contains(enrollmentTransitions[from], to)
}

// CanSubmit reports whether an author-initiated submission is allowed from status
func CanSubmit(status models.CourseStatus) bool {
	return slices.Contains(submitSources, status) && CanTransitionCourse(status, models.CoursePending)
}

// RequiresRereview reports whether a visibility change must send the course back to review.
// Drafts have not been reviewed yet and pending courses are already in the queue.
func RequiresRereview(course *models.Course, visibility models.CourseVisibility) bool {
	return course.Visibility == models.VisibilityPrivate &&
		visibility == models.VisibilityPublic &&
		CanTransitionCourse(course.Status, models.CoursePending) &&
		course.Status != models.CourseDraft
}
