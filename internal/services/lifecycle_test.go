package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SAP-F-2025/course-service/internal/models"
)

func TestCanTransitionCourse(t *testing.T) {
	tests := []struct {
		from, to models.CourseStatus
		want     bool
	}{
		{models.CourseDraft, models.CoursePending, true},
		{models.CoursePending, models.CourseApproved, true},
		{models.CoursePending, models.CourseRejected, true},
		{models.CourseApproved, models.CoursePending, true},
		{models.CourseRejected, models.CoursePending, true},
		{models.CourseDraft, models.CourseApproved, false},
		{models.CourseApproved, models.CourseRejected, false},
		{models.CourseRejected, models.CourseApproved, false},
		{models.CoursePending, models.CourseDraft, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransitionCourse(tt.from, tt.to))
		})
	}
}

func TestCanTransitionEnrollment(t *testing.T) {
	all := []models.EnrollmentStatus{models.EnrollmentPending, models.EnrollmentApproved, models.EnrollmentRejected, models.EnrollmentLeft}
	allowed := map[[2]models.EnrollmentStatus]bool{
		{models.EnrollmentPending, models.EnrollmentApproved}: true,
		{models.EnrollmentPending, models.EnrollmentRejected}: true,
		{models.EnrollmentApproved, models.EnrollmentLeft}:    true,
	}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]models.EnrollmentStatus{from, to}], CanTransitionEnrollment(from, to), "%s->%s", from, to)
		}
	}
}

func TestCanSubmit(t *testing.T) {
	assert.True(t, CanSubmit(models.CourseDraft))
	assert.True(t, CanSubmit(models.CourseRejected))
	assert.False(t, CanSubmit(models.CoursePending))
	assert.False(t, CanSubmit(models.CourseApproved))
}

func TestRequiresRereview(t *testing.T) {
	tests := []struct {
		name       string
		course     models.Course
		visibility models.CourseVisibility
		want       bool
	}{
		{"approved private to public", models.Course{Status: models.CourseApproved, Visibility: models.VisibilityPrivate}, models.VisibilityPublic, true},
		{"rejected private to public", models.Course{Status: models.CourseRejected, Visibility: models.VisibilityPrivate}, models.VisibilityPublic, true},
		{"draft private to public", models.Course{Status: models.CourseDraft, Visibility: models.VisibilityPrivate}, models.VisibilityPublic, false},
		{"pending private to public", models.Course{Status: models.CoursePending, Visibility: models.VisibilityPrivate}, models.VisibilityPublic, false},
		{"approved public to private", models.Course{Status: models.CourseApproved, Visibility: models.VisibilityPublic}, models.VisibilityPrivate, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RequiresRereview(&tt.course, tt.visibility))
		})
	}
}

func TestCompletionPercentage(t *testing.T) {
	tests := []struct {
		completed, total int64
		want             int
	}{
		{0, 0, 0},
		{3, 0, 0},
		{0, 5, 0},
		{1, 3, 33},
		{2, 3, 67},
		{4, 5, 80},
		{5, 5, 100},
		{199, 200, 99},
		{1, 200, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, completionPercentage(tt.completed, tt.total), "%d/%d", tt.completed, tt.total)
	}
}
