package validator

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/SAP-F-2025/course-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()

	return bv
}

// Validate validates business rules for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	if err := bv.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateLessonCreate checks that exactly one content field is set and it matches content_type
func (bv *BusinessValidator) ValidateLessonCreate(req *LessonCreateRequest) ValidationErrors {
	var errors ValidationErrors
	errors = append(errors, bv.Validate(req)...)
	if len(errors) > 0 {
		return errors
	}

	provided := map[models.ContentType]string{}
	if req.VideoURL != nil && strings.TrimSpace(*req.VideoURL) != "" {
		provided[models.ContentVideo] = "video_url"
	}
	if req.ArticleBody != nil && strings.TrimSpace(*req.ArticleBody) != "" {
		provided[models.ContentArticle] = "article_body"
	}
	if req.PDFURL != nil && strings.TrimSpace(*req.PDFURL) != "" {
		provided[models.ContentPDF] = "pdf_url"
	}
	if req.QuizType != nil {
		provided[models.ContentQuiz] = "quiz_type"
	}

	if _, ok := provided[req.ContentType]; !ok {
		errors = append(errors, ValidationError{
			Field:   contentField(req.ContentType),
			Message: fmt.Sprintf("is required for %s lessons", req.ContentType),
			Rule:    "content_match",
		})
	}
	for contentType, field := range provided {
		if contentType != req.ContentType {
			errors = append(errors, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("must be empty for %s lessons", req.ContentType),
				Rule:    "content_match",
			})
		}
	}

	if req.ContentType != models.ContentQuiz && (req.PassingScore != nil || req.TimeLimitSeconds != nil) {
		errors = append(errors, ValidationError{
			Field:   "passing_score",
			Message: "quiz settings are only allowed on quiz lessons",
			Rule:    "content_match",
		})
	}
	if req.QuizType != nil && *req.QuizType == models.QuizPractice && req.TimeLimitSeconds != nil {
		errors = append(errors, timeLimitError(*req.TimeLimitSeconds))
	}

	slices.SortFunc(errors, func(a, b ValidationError) int { return strings.Compare(a.Field, b.Field) })
	return errors
}

// ValidateQuizDefinition enforces the answer-key shape of every question
func (bv *BusinessValidator) ValidateQuizDefinition(req *QuizDefinitionRequest) ValidationErrors {
	var errors ValidationErrors
	errors = append(errors, bv.Validate(req)...)
	if len(errors) > 0 {
		return errors
	}

	if req.QuizType == models.QuizPractice && req.TimeLimitSeconds != nil {
		errors = append(errors, timeLimitError(*req.TimeLimitSeconds))
	}

	for i, q := range req.Questions {
		correct := 0
		for _, a := range q.Answers {
			if a.IsCorrect {
				correct++
			}
		}

		field := fmt.Sprintf("questions[%d].answers", i)
		switch q.Type {
		case models.SingleChoice:
			if correct != 1 {
				errors = append(errors, ValidationError{
					Field:   field,
					Message: "single choice questions must have exactly one correct answer",
					Value:   correct,
					Rule:    "answer_key",
				})
			}
		case models.MultipleChoice:
			if correct < 1 {
				errors = append(errors, ValidationError{
					Field:   field,
					Message: "multiple choice questions must have at least one correct answer",
					Value:   correct,
					Rule:    "answer_key",
				})
			}
		}
	}

	return errors
}

// ValidateRejectionReason requires a reason when the verdict is a rejection
func (bv *BusinessValidator) ValidateRejectionReason(rejected bool, reason string) ValidationErrors {
	if rejected && strings.TrimSpace(reason) == "" {
		return ValidationErrors{{
			Field:   "reason",
			Message: "is required when rejecting",
			Rule:    "required_on_reject",
		}}
	}
	return nil
}

func timeLimitError(value int) ValidationError {
	return ValidationError{
		Field:   "time_limit_seconds",
		Message: "time limits only apply to exam quizzes",
		Value:   value,
		Rule:    "quiz_type",
	}
}

func contentField(contentType models.ContentType) string {
	switch contentType {
	case models.ContentVideo:
		return "video_url"
	case models.ContentArticle:
		return "article_body"
	case models.ContentPDF:
		return "pdf_url"
	default:
		return "quiz_type"
	}
}

func oneOf[T ~string](values ...T) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return slices.Contains(values, T(fl.Field().String()))
	}
}

// registerBusinessRules registers custom business rule validators
func (bv *BusinessValidator) registerBusinessRules() {
	bv.validate.RegisterValidation("course_title", func(fl validator.FieldLevel) bool {
		title := strings.TrimSpace(fl.Field().String())
		return title != "" && utf8.RuneCountInString(title) <= 200
	})

	// Passing score validation (0-100)
	bv.validate.RegisterValidation("passing_score", func(fl validator.FieldLevel) bool {
		score := fl.Field().Int()
		return score >= 0 && score <= 100
	})

	bv.validate.RegisterValidation("course_visibility", oneOf(models.VisibilityPrivate, models.VisibilityPublic))
	bv.validate.RegisterValidation("content_type", oneOf(models.ContentVideo, models.ContentArticle, models.ContentPDF, models.ContentQuiz))
	bv.validate.RegisterValidation("quiz_type", oneOf(models.QuizPractice, models.QuizExam))
	bv.validate.RegisterValidation("question_type", oneOf(models.SingleChoice, models.MultipleChoice))
	bv.validate.RegisterValidation("review_verdict", oneOf(models.CourseApproved, models.CourseRejected))
	bv.validate.RegisterValidation("enrollment_verdict", oneOf(models.EnrollmentApproved, models.EnrollmentRejected))
}
