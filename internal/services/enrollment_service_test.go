package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/course-service/internal/models"
	"github.com/SAP-F-2025/course-service/internal/repositories"
)

func TestEnrollmentService_PublicAutoApprove(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := env.approvedCourse(t, models.VisibilityPublic)

	enrollment, err := env.enrollments.Request(ctx, &EnrollRequest{CourseID: course.ID}, studentID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentApproved, enrollment.Status)
	require.NotNil(t, enrollment.ApprovedBy)
	assert.Equal(t, teacherID, *enrollment.ApprovedBy)
	assert.Empty(t, env.notificationsFor(t, teacherID, models.NotificationEnrollmentRequested))

	_, err = env.enrollments.Request(ctx, &EnrollRequest{CourseID: course.ID}, studentID)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestEnrollmentService_DuplicateInsertIsConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := env.approvedCourse(t, models.VisibilityPrivate)

	first := &models.Enrollment{UserID: studentID, CourseID: course.ID, Status: models.EnrollmentPending}
	require.NoError(t, env.repo.Enrollment().Create(ctx, nil, first))

	// Bypasses the service pre-check: the partial unique index must reject the second row
	second := &models.Enrollment{UserID: studentID, CourseID: course.ID, Status: models.EnrollmentApproved}
	err := env.repo.Enrollment().Create(ctx, nil, second)
	require.Error(t, err)
	assert.ErrorIs(t, mapStoreError(err, ErrEnrollmentNotFound), ErrConflict)

	// Inactive rows are outside the index
	left := &models.Enrollment{UserID: studentID, CourseID: course.ID, Status: models.EnrollmentLeft}
	assert.NoError(t, env.repo.Enrollment().Create(ctx, nil, left))
}

func TestEnrollmentService_PrivateRequestAndDecide(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := env.approvedCourse(t, models.VisibilityPrivate)

	_, err := env.enrollments.Request(ctx, &EnrollRequest{CourseID: course.ID, Message: "   "}, studentID)
	assert.True(t, IsValidationError(err), "private courses need a message")

	enrollment, err := env.enrollments.Request(ctx, &EnrollRequest{CourseID: course.ID, Message: "Please let me in"}, studentID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentPending, enrollment.Status)
	assert.Nil(t, enrollment.ApprovedBy)
	assert.Len(t, env.notificationsFor(t, teacherID, models.NotificationEnrollmentRequested), 1)

	_, err = env.courses.GetOutline(ctx, course.ID, studentID)
	assert.ErrorIs(t, err, ErrForbidden, "pending learners cannot see a private course")

	_, err = env.enrollments.Decide(ctx, enrollment.ID, &DecideEnrollmentRequest{Status: models.EnrollmentApproved}, otherID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.enrollments.Decide(ctx, enrollment.ID, &DecideEnrollmentRequest{Status: models.EnrollmentLeft}, teacherID)
	assert.True(t, IsValidationError(err))

	decided, err := env.enrollments.Decide(ctx, enrollment.ID, &DecideEnrollmentRequest{Status: models.EnrollmentApproved}, teacherID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentApproved, decided.Status)
	require.NotNil(t, decided.ApprovedBy)
	assert.Equal(t, teacherID, *decided.ApprovedBy)
	assert.Len(t, env.notificationsFor(t, studentID, models.NotificationEnrollmentApproved), 1)

	_, err = env.enrollments.Decide(ctx, enrollment.ID, &DecideEnrollmentRequest{Status: models.EnrollmentRejected, Reason: "late"}, adminID)
	assert.ErrorIs(t, err, ErrConflict, "already decided")

	_, err = env.courses.GetOutline(ctx, course.ID, studentID)
	assert.NoError(t, err)
}

func TestEnrollmentService_RejectNeedsReason(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := env.approvedCourse(t, models.VisibilityPrivate)

	enrollment, err := env.enrollments.Request(ctx, &EnrollRequest{CourseID: course.ID, Message: "hi"}, studentID)
	require.NoError(t, err)

	_, err = env.enrollments.Decide(ctx, enrollment.ID, &DecideEnrollmentRequest{Status: models.EnrollmentRejected}, adminID)
	assert.True(t, IsValidationError(err))

	rejected, err := env.enrollments.Decide(ctx, enrollment.ID, &DecideEnrollmentRequest{Status: models.EnrollmentRejected, Reason: "Course is full"}, adminID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentRejected, rejected.Status)
	assert.Nil(t, rejected.ApprovedBy)
	assert.Len(t, env.notificationsFor(t, studentID, models.NotificationEnrollmentRejected), 1)

	// Rejected rows are not active, so the learner may ask again
	again, err := env.enrollments.Request(ctx, &EnrollRequest{CourseID: course.ID, Message: "second try"}, studentID)
	require.NoError(t, err)
	assert.NotEqual(t, enrollment.ID, again.ID)
}

func TestEnrollmentService_Leave(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := env.approvedCourse(t, models.VisibilityPublic)

	enrollment, err := env.enrollments.Request(ctx, &EnrollRequest{CourseID: course.ID}, studentID)
	require.NoError(t, err)

	_, err = env.enrollments.Leave(ctx, enrollment.ID, student2ID)
	assert.ErrorIs(t, err, ErrForbidden)

	left, err := env.enrollments.Leave(ctx, enrollment.ID, studentID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentLeft, left.Status)
	assert.Nil(t, left.ApprovedBy)
	assert.NotNil(t, left.ApprovedAt)
	assert.NotNil(t, left.LeftAt)

	_, err = env.enrollments.Leave(ctx, enrollment.ID, studentID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	rejoined, err := env.enrollments.Request(ctx, &EnrollRequest{CourseID: course.ID}, studentID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentApproved, rejoined.Status)

	_, err = env.enrollments.Leave(ctx, 9999, studentID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEnrollmentService_LeavePendingIsInvalid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := env.approvedCourse(t, models.VisibilityPrivate)

	enrollment, err := env.enrollments.Request(ctx, &EnrollRequest{CourseID: course.ID, Message: "hi"}, studentID)
	require.NoError(t, err)

	_, err = env.enrollments.Leave(ctx, enrollment.ID, studentID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestEnrollmentService_RequestUnapprovedCourse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	draft, err := env.courses.Create(ctx, &CreateCourseRequest{Title: "Draft", Visibility: models.VisibilityPublic}, teacherID)
	require.NoError(t, err)

	_, err = env.enrollments.Request(ctx, &EnrollRequest{CourseID: draft.ID}, studentID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.enrollments.Request(ctx, &EnrollRequest{CourseID: 9999}, studentID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEnrollmentService_InviteByEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := env.approvedCourse(t, models.VisibilityPrivate)

	_, err := env.enrollments.InviteByEmail(ctx, &InviteByEmailRequest{CourseID: course.ID, Email: "nobody@example.com"}, teacherID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.enrollments.InviteByEmail(ctx, &InviteByEmailRequest{CourseID: course.ID, Email: "sam@example.com"}, otherID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.enrollments.InviteByEmail(ctx, &InviteByEmailRequest{CourseID: course.ID, Email: "not-an-email"}, teacherID)
	assert.True(t, IsValidationError(err))

	invited, err := env.enrollments.InviteByEmail(ctx, &InviteByEmailRequest{CourseID: course.ID, Email: "SAM@example.com"}, teacherID)
	require.NoError(t, err)
	assert.Equal(t, studentID, invited.UserID)
	assert.Equal(t, models.EnrollmentApproved, invited.Status)
	require.NotNil(t, invited.ApprovedBy)
	assert.Equal(t, teacherID, *invited.ApprovedBy)
	assert.Len(t, env.notificationsFor(t, studentID, models.NotificationEnrollmentInvited), 1)

	_, err = env.enrollments.InviteByEmail(ctx, &InviteByEmailRequest{CourseID: course.ID, Email: "sam@example.com"}, teacherID)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestEnrollmentService_Listings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := env.approvedCourse(t, models.VisibilityPublic)

	_, err := env.enrollments.Request(ctx, &EnrollRequest{CourseID: course.ID}, studentID)
	require.NoError(t, err)
	_, err = env.enrollments.Request(ctx, &EnrollRequest{CourseID: course.ID}, student2ID)
	require.NoError(t, err)

	byCourse, err := env.enrollments.ListByCourse(ctx, course.ID, repositories.EnrollmentFilters{}, teacherID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, byCourse.Total)

	_, err = env.enrollments.ListByCourse(ctx, course.ID, repositories.EnrollmentFilters{}, studentID)
	assert.ErrorIs(t, err, ErrForbidden)

	mine, err := env.enrollments.ListMine(ctx, studentID, repositories.EnrollmentFilters{})
	require.NoError(t, err)
	require.Len(t, mine.Enrollments, 1)
	require.NotNil(t, mine.Enrollments[0].Course)
	assert.Equal(t, course.ID, mine.Enrollments[0].Course.ID)
}
