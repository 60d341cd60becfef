package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/course-service/internal/models"
)

func ptr[T any](v T) *T { return &v }

func fields(errs ValidationErrors) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Field)
	}
	return out
}

func TestValidator_Validate(t *testing.T) {
	v := New()

	t.Run("valid course", func(t *testing.T) {
		assert.NoError(t, v.Validate(&CourseCreateRequest{Title: "Go 101", Visibility: models.VisibilityPublic}))
	})

	t.Run("blank title and bad visibility", func(t *testing.T) {
		err := v.Validate(&CourseCreateRequest{Title: "   ", Visibility: "friends"})
		require.Error(t, err)

		var errs ValidationErrors
		require.ErrorAs(t, err, &errs)
		assert.ElementsMatch(t, []string{"title", "visibility"}, fields(errs))
	})

	t.Run("review verdict must be a decision", func(t *testing.T) {
		err := v.Validate(&ReviewCourseRequest{Verdict: models.CoursePending})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "verdict")
	})

	t.Run("enrollment verdict", func(t *testing.T) {
		assert.NoError(t, v.Validate(&DecideEnrollmentRequest{Status: models.EnrollmentRejected, Reason: "full"}))
		assert.Error(t, v.Validate(&DecideEnrollmentRequest{Status: models.EnrollmentLeft}))
	})

	t.Run("invite email", func(t *testing.T) {
		assert.Error(t, v.Validate(&InviteByEmailRequest{CourseID: 1, Email: "not-an-email"}))
	})
}

func TestBusinessValidator_ValidateLessonCreate(t *testing.T) {
	bv := NewBusinessValidator()

	tests := []struct {
		name   string
		req    LessonCreateRequest
		fields []string
	}{
		{
			name: "video lesson",
			req:  LessonCreateRequest{Title: "Intro", ContentType: models.ContentVideo, VideoURL: ptr("https://cdn.example.com/a.mp4")},
		},
		{
			name: "quiz lesson with settings",
			req:  LessonCreateRequest{Title: "Check", ContentType: models.ContentQuiz, QuizType: ptr(models.QuizExam), PassingScore: ptr(80), TimeLimitSeconds: ptr(600)},
		},
		{
			name:   "missing matching content",
			req:    LessonCreateRequest{Title: "Read", ContentType: models.ContentArticle},
			fields: []string{"article_body"},
		},
		{
			name:   "extra content field",
			req:    LessonCreateRequest{Title: "Read", ContentType: models.ContentArticle, ArticleBody: ptr("text"), PDFURL: ptr("https://example.com/a.pdf")},
			fields: []string{"pdf_url"},
		},
		{
			name:   "time limit on practice quiz",
			req:    LessonCreateRequest{Title: "Quiz", ContentType: models.ContentQuiz, QuizType: ptr(models.QuizPractice), TimeLimitSeconds: ptr(60)},
			fields: []string{"time_limit_seconds"},
		},
		{
			name:   "quiz settings on video",
			req:    LessonCreateRequest{Title: "Intro", ContentType: models.ContentVideo, VideoURL: ptr("https://cdn.example.com/a.mp4"), PassingScore: ptr(50)},
			fields: []string{"passing_score"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := bv.ValidateLessonCreate(&tt.req)
			assert.ElementsMatch(t, tt.fields, fields(errs))
		})
	}
}

func TestBusinessValidator_ValidateQuizDefinition(t *testing.T) {
	bv := NewBusinessValidator()

	answers := func(correct ...bool) []QuizAnswerRequest {
		out := make([]QuizAnswerRequest, len(correct))
		for i, c := range correct {
			out[i] = QuizAnswerRequest{Text: "option", IsCorrect: c}
		}
		return out
	}

	t.Run("valid", func(t *testing.T) {
		errs := bv.ValidateQuizDefinition(&QuizDefinitionRequest{
			QuizType: models.QuizPractice,
			Questions: []QuizQuestionRequest{
				{Text: "pick one", Type: models.SingleChoice, Answers: answers(true, false)},
				{Text: "pick many", Type: models.MultipleChoice, Answers: answers(true, true, false)},
			},
		})
		assert.Empty(t, errs)
	})

	t.Run("single choice with two correct", func(t *testing.T) {
		errs := bv.ValidateQuizDefinition(&QuizDefinitionRequest{
			QuizType:  models.QuizExam,
			Questions: []QuizQuestionRequest{{Text: "q", Type: models.SingleChoice, Answers: answers(true, true)}},
		})
		require.Len(t, errs, 1)
		assert.Equal(t, "questions[0].answers", errs[0].Field)
		assert.Equal(t, "answer_key", errs[0].Rule)
	})

	t.Run("multiple choice with none correct", func(t *testing.T) {
		errs := bv.ValidateQuizDefinition(&QuizDefinitionRequest{
			QuizType: models.QuizExam,
			Questions: []QuizQuestionRequest{
				{Text: "ok", Type: models.SingleChoice, Answers: answers(false, true)},
				{Text: "q", Type: models.MultipleChoice, Answers: answers(false, false)},
			},
		})
		require.Len(t, errs, 1)
		assert.Equal(t, "questions[1].answers", errs[0].Field)
	})

	t.Run("struct rules run first", func(t *testing.T) {
		errs := bv.ValidateQuizDefinition(&QuizDefinitionRequest{QuizType: "survey"})
		assert.ElementsMatch(t, []string{"quiz_type", "questions"}, fields(errs))
	})
}

func TestBusinessValidator_ValidateRejectionReason(t *testing.T) {
	bv := NewBusinessValidator()

	assert.Len(t, bv.ValidateRejectionReason(true, "  "), 1)
	assert.Empty(t, bv.ValidateRejectionReason(true, "too short"))
	assert.Empty(t, bv.ValidateRejectionReason(false, ""))
}
