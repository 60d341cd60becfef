package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/course-service/internal/models"
	"github.com/SAP-F-2025/course-service/internal/validator"
)

// addQuizLesson adds a quiz lesson with two single choice questions whose first answer is correct
func (e *testEnv) addQuizLesson(t *testing.T, courseID uint, quizType models.QuizType, timeLimit *int) (uint, []models.QuestionView) {
	t.Helper()
	ctx := context.Background()

	section, err := e.courses.AddSection(ctx, courseID, &CreateSectionRequest{Title: "Checks"}, teacherID)
	require.NoError(t, err)
	lesson, err := e.courses.AddLesson(ctx, section.ID, &CreateLessonRequest{
		Title:       "Quiz",
		ContentType: models.ContentQuiz,
		QuizType:    &quizType,
	}, teacherID)
	require.NoError(t, err)

	views, err := e.quizzes.SetQuiz(ctx, lesson.ID, &SetQuizRequest{
		QuizType:         quizType,
		TimeLimitSeconds: timeLimit,
		Questions: []validator.QuizQuestionRequest{
			singleChoice("What is 2+2?", "4", "5"),
			singleChoice("Which keyword starts a goroutine?", "go", "async"),
		},
	}, teacherID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	return lesson.ID, views
}

func singleChoice(text, correct, wrong string) validator.QuizQuestionRequest {
	return validator.QuizQuestionRequest{
		Text: text,
		Type: models.SingleChoice,
		Answers: []validator.QuizAnswerRequest{
			{Text: correct, IsCorrect: true},
			{Text: wrong},
		},
	}
}

func answersFor(views []models.QuestionView, indices ...int) []validator.QuizSubmitAnswer {
	out := make([]validator.QuizSubmitAnswer, 0, len(views))
	for i, v := range views {
		out = append(out, validator.QuizSubmitAnswer{QuestionID: v.ID, SelectedIndices: []int{indices[i]}})
	}
	return out
}

func TestQuizService_SetQuizValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := env.approvedCourse(t, models.VisibilityPublic)
	articles := env.addArticleLessons(t, course.ID, 1)
	quizID, _ := env.addQuizLesson(t, course.ID, models.QuizPractice, nil)

	tests := []struct {
		name     string
		lessonID uint
		userID   string
		req      *SetQuizRequest
		check    func(t *testing.T, err error)
	}{
		{
			name:     "two correct answers on single choice",
			lessonID: quizID,
			userID:   teacherID,
			req: &SetQuizRequest{
				QuizType: models.QuizPractice,
				Questions: []validator.QuizQuestionRequest{{
					Text: "Pick one", Type: models.SingleChoice,
					Answers: []validator.QuizAnswerRequest{{Text: "a", IsCorrect: true}, {Text: "b", IsCorrect: true}},
				}},
			},
			check: func(t *testing.T, err error) { assert.True(t, IsValidationError(err)) },
		},
		{
			name:     "no questions",
			lessonID: quizID,
			userID:   teacherID,
			req:      &SetQuizRequest{QuizType: models.QuizPractice},
			check:    func(t *testing.T, err error) { assert.True(t, IsValidationError(err)) },
		},
		{
			name:     "article lesson",
			lessonID: articles[0],
			userID:   teacherID,
			req: &SetQuizRequest{
				QuizType:  models.QuizPractice,
				Questions: []validator.QuizQuestionRequest{singleChoice("q", "a", "b")},
			},
			check: func(t *testing.T, err error) {
				var ruleErr *BusinessRuleError
				assert.ErrorAs(t, err, &ruleErr)
			},
		},
		{
			name:     "learner cannot edit",
			lessonID: quizID,
			userID:   studentID,
			req: &SetQuizRequest{
				QuizType:  models.QuizPractice,
				Questions: []validator.QuizQuestionRequest{singleChoice("q", "a", "b")},
			},
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrForbidden) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.quizzes.SetQuiz(ctx, tt.lessonID, tt.req, tt.userID)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestQuizService_GetQuizHidesAnswers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := env.approvedCourse(t, models.VisibilityPublic)
	quizID, _ := env.addQuizLesson(t, course.ID, models.QuizPractice, nil)

	learnerView, err := env.quizzes.GetQuiz(ctx, quizID, studentID)
	require.NoError(t, err)
	for _, q := range learnerView {
		for _, a := range q.Answers {
			assert.Nil(t, a.IsCorrect)
		}
	}

	ownerView, err := env.quizzes.GetQuiz(ctx, quizID, teacherID)
	require.NoError(t, err)
	require.NotNil(t, ownerView[0].Answers[0].IsCorrect)
	assert.True(t, *ownerView[0].Answers[0].IsCorrect)
	assert.False(t, *ownerView[0].Answers[1].IsCorrect)
}

func TestQuizService_SubmitPracticeQuiz(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := env.approvedCourse(t, models.VisibilityPublic)
	quizID, views := env.addQuizLesson(t, course.ID, models.QuizPractice, nil)
	env.enroll(t, course.ID, studentID)

	failed, err := env.quizzes.Submit(ctx, quizID, &SubmitQuizRequest{Answers: answersFor(views, 0, 1)}, studentID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, failed.Score)
	assert.Equal(t, models.DefaultPassingScore, failed.PassingScore)
	assert.False(t, failed.Passed)
	assert.False(t, failed.LessonCompleted)
	assert.Len(t, failed.Results, 2)

	passed, err := env.quizzes.Submit(ctx, quizID, &SubmitQuizRequest{Answers: answersFor(views, 0, 0)}, studentID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, passed.Score)
	assert.True(t, passed.Passed)
	assert.True(t, passed.LessonCompleted)
	assert.True(t, passed.CourseCompleted, "the quiz is the only lesson")
	assert.Len(t, env.notificationsFor(t, studentID, models.NotificationCourseCompleted), 1)

	// A later failure keeps the lesson completed
	again, err := env.quizzes.Submit(ctx, quizID, &SubmitQuizRequest{Answers: answersFor(views, 1, 1)}, studentID)
	require.NoError(t, err)
	assert.False(t, again.Passed)
	assert.True(t, again.LessonCompleted)

	pct, err := env.progress.Percentage(ctx, studentID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, pct)

	attempts, err := env.quizzes.ListAttempts(ctx, quizID, studentID)
	require.NoError(t, err)
	require.Len(t, attempts, 3)
	for _, attempt := range attempts {
		assert.Equal(t, models.AttemptSubmitted, attempt.Status)
		require.NotNil(t, attempt.SubmittedAt)
		assert.False(t, attempt.StartedAt.IsZero())
	}

	others, err := env.quizzes.ListAttempts(ctx, quizID, student2ID)
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestQuizService_SubmitRequiresApprovedEnrollment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := env.approvedCourse(t, models.VisibilityPublic)
	quizID, views := env.addQuizLesson(t, course.ID, models.QuizPractice, nil)

	// Reading the public quiz is allowed, taking it is not
	_, err := env.quizzes.GetQuiz(ctx, quizID, studentID)
	require.NoError(t, err)

	_, err = env.quizzes.Submit(ctx, quizID, &SubmitQuizRequest{Answers: answersFor(views, 0, 0)}, studentID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = env.quizzes.Start(ctx, quizID, studentID)
	assert.ErrorIs(t, err, ErrForbidden)

	attempts, err := env.quizzes.ListAttempts(ctx, quizID, studentID)
	require.NoError(t, err)
	assert.Empty(t, attempts, "a denied submit stores nothing")

	completed, err := env.repo.Progress().CountCompletedInCourse(ctx, env.db, studentID, course.ID)
	require.NoError(t, err)
	assert.Zero(t, completed)
	assert.Empty(t, env.notificationsFor(t, studentID, models.NotificationCourseCompleted))

	// The owner previews the quiz without enrolling
	preview, err := env.quizzes.Submit(ctx, quizID, &SubmitQuizRequest{Answers: answersFor(views, 0, 0)}, teacherID)
	require.NoError(t, err)
	assert.True(t, preview.Passed)
}

func TestQuizService_SubmitTimedExam(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := env.approvedCourse(t, models.VisibilityPublic)
	limit := 60
	quizID, views := env.addQuizLesson(t, course.ID, models.QuizExam, &limit)
	env.enroll(t, course.ID, studentID)

	backdate := func(attemptID uint, ago time.Duration) {
		t.Helper()
		require.NoError(t, env.db.Model(&models.QuizAttempt{}).
			Where("id = ?", attemptID).
			Update("started_at", time.Now().UTC().Add(-ago)).Error)
	}

	_, err := env.quizzes.Submit(ctx, quizID, &SubmitQuizRequest{Answers: answersFor(views, 0, 0)}, studentID)
	var ruleErr *BusinessRuleError
	require.ErrorAs(t, err, &ruleErr, "a timed exam must be started")
	assert.Equal(t, "quiz_started", ruleErr.Rule)

	before := time.Now().UTC()
	started, err := env.quizzes.Start(ctx, quizID, studentID)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptInProgress, started.Status)
	assert.WithinDuration(t, before, started.StartedAt, 5*time.Second)
	assert.Nil(t, started.SubmittedAt)

	// Starting again resumes the same attempt and keeps its clock
	resumed, err := env.quizzes.Start(ctx, quizID, studentID)
	require.NoError(t, err)
	assert.Equal(t, started.ID, resumed.ID)
	assert.True(t, started.StartedAt.Equal(resumed.StartedAt))

	backdate(started.ID, 2*time.Minute)
	result, err := env.quizzes.Submit(ctx, quizID, &SubmitQuizRequest{Answers: answersFor(views, 0, 0)}, studentID)
	require.NoError(t, err)
	assert.Equal(t, started.ID, result.AttemptID)
	assert.Equal(t, 100.0, result.Score)
	assert.True(t, result.TimedOut)
	assert.False(t, result.Passed)
	assert.False(t, result.LessonCompleted)
	assert.GreaterOrEqual(t, result.ElapsedSeconds, 120)

	// The attempt is closed; submitting again needs a new start
	_, err = env.quizzes.Submit(ctx, quizID, &SubmitQuizRequest{Answers: answersFor(views, 0, 0)}, studentID)
	require.ErrorAs(t, err, &ruleErr)

	second, err := env.quizzes.Start(ctx, quizID, studentID)
	require.NoError(t, err)
	assert.NotEqual(t, started.ID, second.ID)

	backdate(second.ID, 10*time.Second)
	result, err = env.quizzes.Submit(ctx, quizID, &SubmitQuizRequest{Answers: answersFor(views, 0, 0)}, studentID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, result.AttemptID)
	assert.False(t, result.TimedOut)
	assert.True(t, result.Passed)
	assert.True(t, result.LessonCompleted)
	assert.GreaterOrEqual(t, result.ElapsedSeconds, 10)
	assert.Less(t, result.ElapsedSeconds, limit)

	attempts, err := env.quizzes.ListAttempts(ctx, quizID, studentID)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, second.ID, attempts[0].ID, "newest first")
	assert.True(t, attempts[1].TimedOut)
}

func TestQuizService_StartedPracticeQuizMeasuresElapsed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := env.approvedCourse(t, models.VisibilityPublic)
	quizID, views := env.addQuizLesson(t, course.ID, models.QuizPractice, nil)
	env.enroll(t, course.ID, studentID)

	started, err := env.quizzes.Start(ctx, quizID, studentID)
	require.NoError(t, err)
	require.NoError(t, env.db.Model(&models.QuizAttempt{}).
		Where("id = ?", started.ID).
		Update("started_at", time.Now().UTC().Add(-time.Hour)).Error)

	result, err := env.quizzes.Submit(ctx, quizID, &SubmitQuizRequest{Answers: answersFor(views, 0, 0)}, studentID)
	require.NoError(t, err)
	assert.Equal(t, started.ID, result.AttemptID)
	assert.GreaterOrEqual(t, result.ElapsedSeconds, 3600)
	assert.False(t, result.TimedOut, "practice quizzes are never timed")
	assert.True(t, result.Passed)
}

func TestQuizService_SubmitRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := env.approvedCourse(t, models.VisibilityPublic)
	quizID, views := env.addQuizLesson(t, course.ID, models.QuizPractice, nil)
	articles := env.addArticleLessons(t, course.ID, 1)
	env.enroll(t, course.ID, studentID)

	unknown := []validator.QuizSubmitAnswer{{QuestionID: 9999, SelectedIndices: []int{0}}}
	_, err := env.quizzes.Submit(ctx, quizID, &SubmitQuizRequest{Answers: unknown}, studentID)
	assert.True(t, IsValidationError(err))

	repeated := []validator.QuizSubmitAnswer{
		{QuestionID: views[0].ID, SelectedIndices: []int{0}},
		{QuestionID: views[0].ID, SelectedIndices: []int{1}},
	}
	_, err = env.quizzes.Submit(ctx, quizID, &SubmitQuizRequest{Answers: repeated}, studentID)
	assert.True(t, IsValidationError(err))

	_, err = env.quizzes.Submit(ctx, articles[0], &SubmitQuizRequest{}, studentID)
	var ruleErr *BusinessRuleError
	assert.ErrorAs(t, err, &ruleErr)

	_, err = env.quizzes.Start(ctx, articles[0], studentID)
	assert.ErrorAs(t, err, &ruleErr)

	_, err = env.quizzes.Submit(ctx, 9999, &SubmitQuizRequest{}, studentID)
	assert.ErrorIs(t, err, ErrNotFound)

	attempts, err := env.quizzes.ListAttempts(ctx, quizID, studentID)
	require.NoError(t, err)
	assert.Empty(t, attempts, "rejected submissions open no attempt")
}

func TestQuizService_SubmitEmptyQuiz(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := env.approvedCourse(t, models.VisibilityPublic)
	env.enroll(t, course.ID, studentID)

	section, err := env.courses.AddSection(ctx, course.ID, &CreateSectionRequest{Title: "Checks"}, teacherID)
	require.NoError(t, err)
	practice := models.QuizPractice
	lesson, err := env.courses.AddLesson(ctx, section.ID, &CreateLessonRequest{
		Title: "Empty", ContentType: models.ContentQuiz, QuizType: &practice,
	}, teacherID)
	require.NoError(t, err)

	_, err = env.quizzes.Submit(ctx, lesson.ID, &SubmitQuizRequest{}, studentID)
	var ruleErr *BusinessRuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, "quiz_has_questions", ruleErr.Rule)

	_, err = env.quizzes.Start(ctx, lesson.ID, studentID)
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, "quiz_has_questions", ruleErr.Rule)
}
