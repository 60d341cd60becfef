package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-service/internal/models"
	"github.com/SAP-F-2025/course-service/internal/repositories"
	"github.com/SAP-F-2025/course-service/internal/validator"
)

type quizService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	progress  *progressService
}

func NewQuizService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, notifier NotificationDispatcher) QuizService {
	return &quizService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		progress:  newProgressService(repo, db, logger, notifier),
	}
}

// loadQuizLesson returns the lesson and its course, failing for non-quiz lessons
func (s *quizService) loadQuizLesson(ctx context.Context, tx *gorm.DB, lessonID uint) (*models.Lesson, *models.Course, error) {
	lesson, err := loadLesson(ctx, s.repo, tx, lessonID)
	if err != nil {
		return nil, nil, err
	}
	if lesson.ContentType != models.ContentQuiz {
		return nil, nil, NewBusinessRuleError("quiz_lesson", "lesson is not a quiz", map[string]interface{}{
			"lesson_id":    lesson.ID,
			"content_type": lesson.ContentType,
		})
	}

	course, err := loadCourse(ctx, s.repo, tx, lesson.CourseID)
	if err != nil {
		return nil, nil, err
	}
	return lesson, course, nil
}

// SetQuiz replaces the quiz settings and every question of the lesson in one transaction
func (s *quizService) SetQuiz(ctx context.Context, lessonID uint, req *SetQuizRequest, userID string) ([]models.QuestionView, error) {
	if err := validationErrors(s.validator.GetBusinessValidator().ValidateQuizDefinition(req)); err != nil {
		return nil, err
	}

	actor, err := resolveActor(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}

	var views []models.QuestionView
	err = withTx(ctx, s.db, func(tx *gorm.DB) error {
		lesson, course, err := s.loadQuizLesson(ctx, tx, lessonID)
		if err != nil {
			return err
		}
		if _, err := authorize(ctx, s.repo, tx, actor, course, OpEdit); err != nil {
			return err
		}

		updates := map[string]interface{}{
			"quiz_type":          req.QuizType,
			"passing_score":      req.PassingScore,
			"time_limit_seconds": req.TimeLimitSeconds,
		}
		if err := s.repo.Lesson().Update(ctx, tx, lesson.ID, updates); err != nil {
			return mapStoreError(err, ErrLessonNotFound)
		}

		if err := s.repo.Quiz().ReplaceQuestions(ctx, tx, lesson.ID, buildQuestions(req.Questions)); err != nil {
			return err
		}

		questions, err := s.repo.Quiz().GetQuestions(ctx, tx, lesson.ID)
		if err != nil {
			return err
		}
		views = questionViews(questions, true)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Quiz updated", "lesson_id", lessonID, "questions", len(views), "quiz_type", req.QuizType)
	return views, nil
}

func buildQuestions(requests []validator.QuizQuestionRequest) []*models.QuizQuestion {
	questions := make([]*models.QuizQuestion, 0, len(requests))
	for _, q := range requests {
		question := &models.QuizQuestion{
			Text:    strings.TrimSpace(q.Text),
			Type:    q.Type,
			Answers: make([]models.QuizAnswer, 0, len(q.Answers)),
		}
		for _, a := range q.Answers {
			question.Answers = append(question.Answers, models.QuizAnswer{
				Text:      strings.TrimSpace(a.Text),
				IsCorrect: a.IsCorrect,
			})
		}
		questions = append(questions, question)
	}
	return questions
}

// GetQuiz hides the answer key from anyone who cannot edit the course
func (s *quizService) GetQuiz(ctx context.Context, lessonID uint, userID string) ([]models.QuestionView, error) {
	actor, err := resolveActor(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}

	lesson, course, err := s.loadQuizLesson(ctx, s.db, lessonID)
	if err != nil {
		return nil, err
	}
	access, err := authorize(ctx, s.repo, s.db, actor, course, OpView)
	if err != nil {
		return nil, err
	}

	questions, err := s.repo.Quiz().GetQuestions(ctx, s.db, lesson.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz questions: %w", err)
	}
	return questionViews(questions, CanAccess(access, OpEdit)), nil
}

// Start opens an attempt stamped with the server's clock. An attempt already in progress is
// resumed, so starting again never resets an exam's timer.
func (s *quizService) Start(ctx context.Context, lessonID uint, userID string) (*models.QuizAttempt, error) {
	actor, err := resolveActor(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}

	lesson, course, err := s.loadQuizLesson(ctx, s.db, lessonID)
	if err != nil {
		return nil, err
	}
	if _, err := s.questionsFor(ctx, lesson); err != nil {
		return nil, err
	}

	var attempt *models.QuizAttempt
	err = withTx(ctx, s.db, func(tx *gorm.DB) error {
		if _, err := authorize(ctx, s.repo, tx, actor, course, OpTrackProgress); err != nil {
			return err
		}
		attempt, err = s.openAttempt(ctx, tx, actor.ID, lesson.ID, time.Now().UTC())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Quiz attempt started",
		"attempt_id", attempt.ID, "lesson_id", lesson.ID, "user_id", actor.ID, "started_at", attempt.StartedAt)
	return attempt, nil
}

// Submit grades the open attempt and closes it. A pass marks the lesson completed; a fail changes no progress.
// Elapsed time runs from the stored start; timed exams must be started first.
func (s *quizService) Submit(ctx context.Context, lessonID uint, req *SubmitQuizRequest, userID string) (*QuizResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	actor, err := resolveActor(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}

	lesson, course, err := s.loadQuizLesson(ctx, s.db, lessonID)
	if err != nil {
		return nil, err
	}
	questions, err := s.questionsFor(ctx, lesson)
	if err != nil {
		return nil, err
	}

	answers, err := answerMap(questions, req.Answers)
	if err != nil {
		return nil, err
	}
	rawAnswers, err := json.Marshal(req.Answers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode answers: %w", err)
	}

	settings := lesson.QuizSettings()
	score, results := ScoreAttempt(questions, answers)

	var (
		attempt  *models.QuizAttempt
		progress *ToggleResult
	)
	err = withTx(ctx, s.db, func(tx *gorm.DB) error {
		if _, err := authorize(ctx, s.repo, tx, actor, course, OpTrackProgress); err != nil {
			return err
		}

		now := time.Now().UTC()
		attempt, err = s.submittableAttempt(ctx, tx, actor.ID, lesson, settings, now)
		if err != nil {
			return err
		}

		elapsed := max(now.Sub(attempt.StartedAt), 0)
		attempt.Passed, attempt.TimedOut = Verdict(score, settings, elapsed)
		attempt.Answers = datatypes.JSON(rawAnswers)
		attempt.Score = score
		attempt.ElapsedSeconds = int(elapsed / time.Second)
		attempt.SubmittedAt = &now

		// A concurrent submit already closed this attempt
		if err := s.repo.Attempt().Finish(ctx, tx, attempt); err != nil {
			return mapStoreError(err, ErrLessonNotFound)
		}
		if !attempt.Passed {
			return nil
		}

		progress, err = s.progress.changeInTx(ctx, tx, actor.ID, lesson, s.progress.markCompletedWrite(ctx, actor.ID, lesson.ID))
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Quiz attempt graded",
		"attempt_id", attempt.ID, "lesson_id", lesson.ID, "user_id", actor.ID,
		"score", score, "passed", attempt.Passed, "timed_out", attempt.TimedOut, "elapsed_seconds", attempt.ElapsedSeconds)

	result := &QuizResult{
		AttemptID:      attempt.ID,
		LessonID:       lesson.ID,
		Score:          score,
		PassingScore:   settings.PassingScore,
		Passed:         attempt.Passed,
		TimedOut:       attempt.TimedOut,
		ElapsedSeconds: attempt.ElapsedSeconds,
		Results:        results,
	}

	if progress != nil {
		result.LessonCompleted = progress.Completed
		result.CourseCompleted = progress.CourseCompleted
		if progress.firstCompletion {
			s.progress.notifyCourseCompleted(ctx, actor.ID, course)
		}
	} else if row, err := s.repo.Progress().Get(ctx, s.db, actor.ID, lesson.ID); err == nil {
		result.LessonCompleted = row.Completed
	}

	return result, nil
}

func (s *quizService) questionsFor(ctx context.Context, lesson *models.Lesson) ([]*models.QuizQuestion, error) {
	questions, err := s.repo.Quiz().GetQuestions(ctx, s.db, lesson.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, NewBusinessRuleError("quiz_has_questions", "quiz has no questions", map[string]interface{}{
			"lesson_id": lesson.ID,
		})
	}
	return questions, nil
}

// openAttempt returns the user's in-progress attempt, creating one started at now when there is none
func (s *quizService) openAttempt(ctx context.Context, tx *gorm.DB, userID string, lessonID uint, now time.Time) (*models.QuizAttempt, error) {
	attempt, err := s.repo.Attempt().GetOpen(ctx, tx, userID, lessonID)
	if err == nil {
		return attempt, nil
	}
	if !repositories.IsNotFoundError(err) {
		return nil, err
	}

	attempt = &models.QuizAttempt{
		UserID:    userID,
		LessonID:  lessonID,
		Status:    models.AttemptInProgress,
		StartedAt: now,
	}
	if err := s.repo.Attempt().Create(ctx, tx, attempt); err != nil {
		if repositories.IsDuplicateKeyError(err) {
			return nil, ErrAttemptInProgress
		}
		return nil, err
	}
	return attempt, nil
}

// submittableAttempt finds the attempt a submit closes. Untimed quizzes may skip the start,
// which opens and closes an attempt at the same instant.
func (s *quizService) submittableAttempt(ctx context.Context, tx *gorm.DB, userID string, lesson *models.Lesson, settings models.QuizSettings, now time.Time) (*models.QuizAttempt, error) {
	attempt, err := s.repo.Attempt().GetOpen(ctx, tx, userID, lesson.ID)
	switch {
	case err == nil:
		return attempt, nil
	case !repositories.IsNotFoundError(err):
		return nil, err
	case settings.IsTimed():
		return nil, NewBusinessRuleError("quiz_started", "a timed exam must be started before it is submitted", map[string]interface{}{
			"lesson_id": lesson.ID,
		})
	}
	return s.openAttempt(ctx, tx, userID, lesson.ID, now)
}

// answerMap indexes submitted answers by question id, rejecting unknown or repeated questions
func answerMap(questions []*models.QuizQuestion, submitted []validator.QuizSubmitAnswer) (map[uint][]int, error) {
	known := make(map[uint]bool, len(questions))
	for _, q := range questions {
		known[q.ID] = true
	}

	var errs ValidationErrors
	answers := make(map[uint][]int, len(submitted))
	for i, a := range submitted {
		field := fmt.Sprintf("answers[%d].question_id", i)
		switch {
		case !known[a.QuestionID]:
			errs = append(errs, *NewValidationError(field, "does not belong to this quiz", a.QuestionID))
		case answers[a.QuestionID] != nil:
			errs = append(errs, *NewValidationError(field, "is answered more than once", a.QuestionID))
		default:
			selected := a.SelectedIndices
			if selected == nil {
				selected = []int{}
			}
			answers[a.QuestionID] = selected
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return answers, nil
}

func (s *quizService) ListAttempts(ctx context.Context, lessonID uint, userID string) ([]*models.QuizAttempt, error) {
	actor, err := resolveActor(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}

	lesson, course, err := s.loadQuizLesson(ctx, s.db, lessonID)
	if err != nil {
		return nil, err
	}
	if _, err := authorize(ctx, s.repo, s.db, actor, course, OpView); err != nil {
		return nil, err
	}

	attempts, err := s.repo.Attempt().ListByUserLesson(ctx, s.db, actor.ID, lesson.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, nil
}
