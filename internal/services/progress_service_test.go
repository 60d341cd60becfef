package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/course-service/internal/models"
)

func TestProgressService_CompletionFiresOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := env.approvedCourse(t, models.VisibilityPublic)
	lessons := env.addArticleLessons(t, course.ID, 5)

	_, err := env.enrollments.Request(ctx, &EnrollRequest{CourseID: course.ID}, studentID)
	require.NoError(t, err)

	for i, lessonID := range lessons[:4] {
		result, err := env.progress.ToggleCompletion(ctx, studentID, lessonID)
		require.NoError(t, err)
		assert.True(t, result.Completed)
		assert.NotNil(t, result.CompletedAt)
		assert.Equal(t, (i+1)*20, result.Percentage)
		assert.False(t, result.CourseCompleted)
	}
	assert.Empty(t, env.notificationsFor(t, studentID, models.NotificationCourseCompleted))

	last, err := env.progress.ToggleCompletion(ctx, studentID, lessons[4])
	require.NoError(t, err)
	assert.Equal(t, 100, last.Percentage)
	assert.True(t, last.CourseCompleted)
	assert.Len(t, env.notificationsFor(t, studentID, models.NotificationCourseCompleted), 1)
	assert.Len(t, env.notificationsFor(t, teacherID, models.NotificationCourseCompleted), 1)

	off, err := env.progress.ToggleCompletion(ctx, studentID, lessons[4])
	require.NoError(t, err)
	assert.False(t, off.Completed)
	assert.Nil(t, off.CompletedAt)
	assert.Equal(t, 80, off.Percentage)

	on, err := env.progress.ToggleCompletion(ctx, studentID, lessons[4])
	require.NoError(t, err)
	assert.Equal(t, 100, on.Percentage)

	assert.Len(t, env.notificationsFor(t, studentID, models.NotificationCourseCompleted), 1, "off/on must not notify again")
	assert.Len(t, env.notificationsFor(t, teacherID, models.NotificationCourseCompleted), 1)

	canReview, err := env.progress.CanReview(ctx, studentID, course.ID)
	require.NoError(t, err)
	assert.True(t, canReview)

	// The dispatcher also published one event per stored notification
	var completedEvents int
	for _, e := range env.publisher.GetPublishedEvents() {
		if e.Type == "notification.course_completed" {
			completedEvents++
		}
	}
	assert.Equal(t, 2, completedEvents)
}

func TestProgressService_ToggleTwiceRestores(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := env.approvedCourse(t, models.VisibilityPublic)
	lessons := env.addArticleLessons(t, course.ID, 2)
	env.enroll(t, course.ID, studentID)

	first, err := env.progress.ToggleCompletion(ctx, studentID, lessons[0])
	require.NoError(t, err)
	second, err := env.progress.ToggleCompletion(ctx, studentID, lessons[0])
	require.NoError(t, err)
	third, err := env.progress.ToggleCompletion(ctx, studentID, lessons[0])
	require.NoError(t, err)

	assert.True(t, first.Completed)
	assert.False(t, second.Completed)
	assert.Nil(t, second.CompletedAt)
	assert.Equal(t, first.Completed, third.Completed)
	assert.Equal(t, first.CompletedAt == nil, third.CompletedAt == nil)
}

func TestProgressService_MarkCompletedIsOneDirectional(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := env.approvedCourse(t, models.VisibilityPublic)
	lessons := env.addArticleLessons(t, course.ID, 2)
	env.enroll(t, course.ID, studentID)

	for i := 0; i < 3; i++ {
		result, err := env.progress.MarkCompleted(ctx, studentID, lessons[0])
		require.NoError(t, err)
		assert.True(t, result.Completed)
		assert.Equal(t, 50, result.Percentage)
	}
}

func TestProgressService_Access(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := env.approvedCourse(t, models.VisibilityPrivate)
	lessons := env.addArticleLessons(t, course.ID, 1)

	_, err := env.progress.ToggleCompletion(ctx, studentID, lessons[0])
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.progress.ToggleCompletion(ctx, studentID, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProgressService_Percentage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := env.approvedCourse(t, models.VisibilityPublic)

	pct, err := env.progress.Percentage(ctx, studentID, course.ID)
	require.NoError(t, err)
	assert.Zero(t, pct, "no lessons means 0%")

	lessons := env.addArticleLessons(t, course.ID, 3)
	env.enroll(t, course.ID, studentID)
	_, err = env.progress.ToggleCompletion(ctx, studentID, lessons[0])
	require.NoError(t, err)

	pct, err = env.progress.Percentage(ctx, studentID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 33, pct)

	_, err = env.progress.Percentage(ctx, studentID, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProgressService_PercentageRequiresView(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	draft, err := env.courses.Create(ctx, &CreateCourseRequest{Title: "Work in progress", Visibility: models.VisibilityPublic}, teacherID)
	require.NoError(t, err)
	env.addArticleLessons(t, draft.ID, 2)

	for _, outsider := range []string{otherID, studentID} {
		_, err = env.progress.Percentage(ctx, outsider, draft.ID)
		assert.ErrorIs(t, err, ErrForbidden, outsider)
	}
	_, err = env.progress.CanReview(ctx, studentID, draft.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.progress.Percentage(ctx, "unknown-user", draft.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	for _, insider := range []string{teacherID, adminID} {
		pct, err := env.progress.Percentage(ctx, insider, draft.ID)
		require.NoError(t, err, insider)
		assert.Zero(t, pct)
	}
}

func TestProgressService_RequiresApprovedEnrollment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := env.approvedCourse(t, models.VisibilityPublic)
	lessons := env.addArticleLessons(t, course.ID, 1)

	// The course is public, so the learner can read it but not record progress
	_, err := env.courses.GetOutline(ctx, course.ID, studentID)
	require.NoError(t, err)

	_, err = env.progress.ToggleCompletion(ctx, studentID, lessons[0])
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrForbidden)
	var permission *PermissionError
	require.ErrorAs(t, err, &permission)
	assert.Equal(t, "an approved enrollment is required", permission.Reason)

	_, err = env.progress.MarkCompleted(ctx, studentID, lessons[0])
	assert.ErrorIs(t, err, ErrForbidden)

	completed, err := env.repo.Progress().CountCompletedInCourse(ctx, env.db, studentID, course.ID)
	require.NoError(t, err)
	assert.Zero(t, completed, "nothing was recorded")
	assert.Empty(t, env.notificationsFor(t, studentID, models.NotificationCourseCompleted))
	assert.Empty(t, env.notificationsFor(t, teacherID, models.NotificationCourseCompleted))

	enrollment := env.enroll(t, course.ID, studentID)
	result, err := env.progress.ToggleCompletion(ctx, studentID, lessons[0])
	require.NoError(t, err)
	assert.True(t, result.CourseCompleted)

	// Leaving closes the gate again
	_, err = env.enrollments.Leave(ctx, enrollment.ID, studentID)
	require.NoError(t, err)
	_, err = env.progress.ToggleCompletion(ctx, studentID, lessons[0])
	assert.ErrorIs(t, err, ErrForbidden)

	// Owners and operators preview without enrolling
	for _, insider := range []string{teacherID, adminID} {
		result, err := env.progress.MarkCompleted(ctx, insider, lessons[0])
		require.NoError(t, err, insider)
		assert.Equal(t, 100, result.Percentage)
	}
}

func TestProgressService_PendingEnrollmentCannotTrack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := env.approvedCourse(t, models.VisibilityPrivate)
	lessons := env.addArticleLessons(t, course.ID, 1)

	enrollment, err := env.enrollments.Request(ctx, &EnrollRequest{CourseID: course.ID}, studentID)
	require.NoError(t, err)
	require.Equal(t, models.EnrollmentPending, enrollment.Status)

	_, err = env.progress.MarkCompleted(ctx, studentID, lessons[0])
	assert.ErrorIs(t, err, ErrForbidden)
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
		{1, 2, 50},
		{199, 200, 99},
		{999, 1000, 99},
		{200, 200, 100},
		{201, 200, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, completionPercentage(tt.completed, tt.total), "%d/%d", tt.completed, tt.total)
	}
}

func TestProgressService_SurvivesLeaveAndRejoin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := env.approvedCourse(t, models.VisibilityPublic)
	lessons := env.addArticleLessons(t, course.ID, 2)

	enrollment, err := env.enrollments.Request(ctx, &EnrollRequest{CourseID: course.ID}, studentID)
	require.NoError(t, err)
	_, err = env.progress.ToggleCompletion(ctx, studentID, lessons[0])
	require.NoError(t, err)

	_, err = env.enrollments.Leave(ctx, enrollment.ID, studentID)
	require.NoError(t, err)
	rejoined, err := env.enrollments.Request(ctx, &EnrollRequest{CourseID: course.ID}, studentID)
	require.NoError(t, err)

	progress, err := env.progress.EnrollmentProgress(ctx, rejoined.ID, studentID)
	require.NoError(t, err)
	assert.Equal(t, 50, progress.Percentage)
	assert.EqualValues(t, 1, progress.CompletedLessons)
	assert.EqualValues(t, 2, progress.TotalLessons)
	assert.False(t, progress.CanReview)
}

func TestProgressService_EnrollmentProgressAccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := env.approvedCourse(t, models.VisibilityPublic)
	env.addArticleLessons(t, course.ID, 1)

	enrollment, err := env.enrollments.Request(ctx, &EnrollRequest{CourseID: course.ID}, studentID)
	require.NoError(t, err)

	_, err = env.progress.EnrollmentProgress(ctx, enrollment.ID, student2ID)
	assert.ErrorIs(t, err, ErrForbidden)

	for _, viewer := range []string{studentID, teacherID, adminID} {
		progress, err := env.progress.EnrollmentProgress(ctx, enrollment.ID, viewer)
		require.NoError(t, err, viewer)
		assert.Equal(t, studentID, progress.UserID)
	}
}

func TestProgressService_CourseAverageAndReport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := env.approvedCourse(t, models.VisibilityPublic)

	empty, err := env.progress.CourseAverageProgress(ctx, course.ID, teacherID)
	require.NoError(t, err)
	assert.Zero(t, empty.Learners)
	assert.Zero(t, empty.AverageProgress)

	lessons := env.addArticleLessons(t, course.ID, 2)
	for _, id := range []string{studentID, student2ID} {
		_, err := env.enrollments.Request(ctx, &EnrollRequest{CourseID: course.ID}, id)
		require.NoError(t, err)
	}
	for _, lessonID := range lessons {
		_, err := env.progress.ToggleCompletion(ctx, studentID, lessonID)
		require.NoError(t, err)
	}

	average, err := env.progress.CourseAverageProgress(ctx, course.ID, teacherID)
	require.NoError(t, err)
	assert.Equal(t, 2, average.Learners)
	assert.Equal(t, 50.0, average.AverageProgress)

	_, err = env.progress.CourseAverageProgress(ctx, course.ID, studentID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.reports.ExportCourseProgress(ctx, course.ID, studentID)
	assert.ErrorIs(t, err, ErrForbidden)

	report, err := env.reports.ExportCourseProgress(ctx, course.ID, adminID)
	require.NoError(t, err)
	assert.Contains(t, report.Filename, ".xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(report.Data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Progress")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 3)
	assert.Equal(t, "Learner ID", rows[0][0])

	byLearner := map[string][]string{}
	for _, row := range rows[1:3] {
		byLearner[row[0]] = row
	}
	require.Contains(t, byLearner, studentID)
	assert.Equal(t, "Sam Student", byLearner[studentID][1])
	assert.Equal(t, "100", byLearner[studentID][5])
	assert.Equal(t, "0", byLearner[student2ID][5])
}
