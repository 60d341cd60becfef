package validator

import (
	"github.com/SAP-F-2025/course-service/internal/models"
)

// CourseCreateRequest represents the request structure for creating courses
type CourseCreateRequest struct {
	Title       string                  `json:"title" validate:"required,course_title"`
	Description *string                 `json:"description" validate:"omitempty,max=5000"`
	Visibility  models.CourseVisibility `json:"visibility" validate:"omitempty,course_visibility"`
}

// CourseUpdateRequest represents a partial course update; a visibility change may force re-review
type CourseUpdateRequest struct {
	Title       *string                  `json:"title" validate:"omitempty,course_title"`
	Description *string                  `json:"description" validate:"omitempty,max=5000"`
	Visibility  *models.CourseVisibility `json:"visibility" validate:"omitempty,course_visibility"`
}

type ReviewCourseRequest struct {
	Verdict models.CourseStatus `json:"verdict" validate:"required,review_verdict"`
	Reason  string              `json:"reason" validate:"max=1000"`
}

type SectionCreateRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

// LessonCreateRequest carries exactly one content field matching ContentType
type LessonCreateRequest struct {
	Title       string             `json:"title" validate:"required,max=200"`
	ContentType models.ContentType `json:"content_type" validate:"required,content_type"`

	VideoURL    *string `json:"video_url" validate:"omitempty,url,max=1000"`
	ArticleBody *string `json:"article_body"`
	PDFURL      *string `json:"pdf_url" validate:"omitempty,url,max=1000"`

	QuizType         *models.QuizType `json:"quiz_type" validate:"omitempty,quiz_type"`
	PassingScore     *int             `json:"passing_score" validate:"omitempty,passing_score"`
	TimeLimitSeconds *int             `json:"time_limit_seconds" validate:"omitempty,min=1,max=86400"`
}

// QuizDefinitionRequest replaces a quiz lesson's settings and questions
type QuizDefinitionRequest struct {
	QuizType         models.QuizType       `json:"quiz_type" validate:"required,quiz_type"`
	PassingScore     *int                  `json:"passing_score" validate:"omitempty,passing_score"`
	TimeLimitSeconds *int                  `json:"time_limit_seconds" validate:"omitempty,min=1,max=86400"`
	Questions        []QuizQuestionRequest `json:"questions" validate:"required,min=1,max=200,dive"`
}

type QuizQuestionRequest struct {
	Text    string              `json:"text" validate:"required,max=2000"`
	Type    models.QuestionType `json:"type" validate:"required,question_type"`
	Answers []QuizAnswerRequest `json:"answers" validate:"required,min=2,max=20,dive"`
}

type QuizAnswerRequest struct {
	Text      string `json:"text" validate:"required,max=1000"`
	IsCorrect bool   `json:"is_correct"`
}

type EnrollmentRequest struct {
	CourseID uint   `json:"course_id" validate:"required"`
	Message  string `json:"message" validate:"max=2000"`
}

type DecideEnrollmentRequest struct {
	Status models.EnrollmentStatus `json:"status" validate:"required,enrollment_verdict"`
	Reason string                  `json:"reason" validate:"max=1000"`
}

type InviteByEmailRequest struct {
	CourseID uint   `json:"course_id" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
}

type ToggleProgressRequest struct {
	LessonID uint `json:"lesson_id" validate:"required"`
}

// QuizSubmitRequest answers reference questions by id; indices point into the question's answers
type QuizSubmitRequest struct {
	Answers []QuizSubmitAnswer `json:"answers" validate:"dive"`
}

type QuizSubmitAnswer struct {
	QuestionID      uint  `json:"question_id" validate:"required"`
	SelectedIndices []int `json:"selected_indices" validate:"dive,min=0"`
}
