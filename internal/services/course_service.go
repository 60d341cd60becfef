package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-service/internal/models"
	"github.com/SAP-F-2025/course-service/internal/repositories"
	"github.com/SAP-F-2025/course-service/internal/validator"
)

type courseService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	notifier  NotificationDispatcher
}

func NewCourseService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, notifier NotificationDispatcher) CourseService {
	return &courseService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		notifier:  notifier,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *courseService) Create(ctx context.Context, req *CreateCourseRequest, ownerID string) (*CourseResponse, error) {
	s.logger.Info("Creating course", "owner_id", ownerID, "title", req.Title)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	actor, err := resolveActor(ctx, s.repo, ownerID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleTeacher && !actor.IsOperator() {
		return nil, NewPermissionError(ownerID, 0, "course", "create", "teacher role required")
	}

	visibility := req.Visibility
	if visibility == "" {
		visibility = models.VisibilityPrivate
	}

	course := &models.Course{
		OwnerID:     actor.ID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Visibility:  visibility,
		Status:      models.CourseDraft,
	}
	if err := s.repo.Course().Create(ctx, s.db, course); err != nil {
		return nil, mapStoreError(err, ErrCourseNotFound)
	}

	s.logger.Info("Course created successfully", "course_id", course.ID)
	return s.buildCourseResponse(ctx, actor, course)
}

func (s *courseService) Get(ctx context.Context, id uint, userID string) (*CourseResponse, error) {
	actor, err := resolveActor(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}

	course, err := loadCourse(ctx, s.repo, s.db, id)
	if err != nil {
		return nil, err
	}

	access, err := authorize(ctx, s.repo, s.db, actor, course, OpView)
	if err != nil {
		return nil, err
	}
	return newCourseResponse(access), nil
}

func (s *courseService) List(ctx context.Context, filters repositories.CourseFilters, userID string) (*CourseListResponse, error) {
	actor, err := resolveActor(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}

	// Non-operators only see their own courses and the public catalog
	if !actor.IsOperator() {
		filters.VisibleTo = &actor.ID
	}

	courses, total, err := s.repo.Course().List(ctx, s.db, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}

	responses := make([]*CourseResponse, 0, len(courses))
	for _, course := range courses {
		response, err := s.buildCourseResponse(ctx, actor, course)
		if err != nil {
			return nil, err
		}
		responses = append(responses, response)
	}

	size := filters.Limit
	if size <= 0 {
		size = 20
	}
	return &CourseListResponse{
		Courses: responses,
		Total:   total,
		Page:    filters.Offset/size + 1,
		Size:    size,
	}, nil
}

// Update edits title and description; a visibility change is routed through ChangeVisibility
func (s *courseService) Update(ctx context.Context, id uint, req *UpdateCourseRequest, userID string) (*CourseResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	actor, err := resolveActor(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}

	var (
		course   *models.Course
		rereview bool
	)
	err = withTx(ctx, s.db, func(tx *gorm.DB) error {
		course, err = loadCourse(ctx, s.repo, tx, id)
		if err != nil {
			return err
		}

		visibilityChange := req.Visibility != nil && *req.Visibility != course.Visibility
		if visibilityChange && !course.IsOwnedBy(actor.ID) {
			return NewPermissionError(actor.ID, id, "course", "change visibility", "only the owner can change visibility")
		}
		if _, err := authorize(ctx, s.repo, tx, actor, course, OpEdit); err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if req.Title != nil {
			updates["title"] = strings.TrimSpace(*req.Title)
		}
		if req.Description != nil {
			updates["description"] = *req.Description
		}
		if len(updates) > 0 {
			if err := s.repo.Course().Update(ctx, tx, id, updates); err != nil {
				return mapStoreError(err, ErrCourseNotFound)
			}
		}

		if visibilityChange {
			rereview, err = s.applyVisibility(ctx, tx, course, *req.Visibility)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.repo.InvalidateCourseCache(ctx, id)

	return s.afterVisibilityChange(ctx, actor, id, rereview)
}

func (s *courseService) ChangeVisibility(ctx context.Context, id uint, visibility models.CourseVisibility, userID string) (*CourseResponse, error) {
	if visibility != models.VisibilityPrivate && visibility != models.VisibilityPublic {
		return nil, ValidationErrors{*NewValidationError("visibility", "must be private or public", visibility)}
	}

	actor, err := resolveActor(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}

	var rereview bool
	err = withTx(ctx, s.db, func(tx *gorm.DB) error {
		course, err := loadCourse(ctx, s.repo, tx, id)
		if err != nil {
			return err
		}
		if !course.IsOwnedBy(actor.ID) {
			return NewPermissionError(actor.ID, id, "course", "change visibility", "only the owner can change visibility")
		}
		if course.Visibility == visibility {
			return nil
		}

		rereview, err = s.applyVisibility(ctx, tx, course, visibility)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.repo.InvalidateCourseCache(ctx, id)

	return s.afterVisibilityChange(ctx, actor, id, rereview)
}

// applyVisibility writes the new visibility conditioned on the status the caller read.
// Going public after a review sends the course back to pending.
func (s *courseService) applyVisibility(ctx context.Context, tx *gorm.DB, course *models.Course, visibility models.CourseVisibility) (bool, error) {
	rereview := RequiresRereview(course, visibility)

	updates := map[string]interface{}{"visibility": visibility}
	if rereview {
		updates["status"] = models.CoursePending
		updates["rejection_reason"] = nil
		updates["submitted_at"] = time.Now().UTC()
	}

	err := s.repo.Course().TransitionStatus(ctx, tx, course.ID, []models.CourseStatus{course.Status}, updates)
	if err != nil {
		return false, mapStoreError(err, ErrCourseNotFound)
	}

	s.logger.Info("Course visibility changed",
		"course_id", course.ID, "visibility", visibility, "rereview_required", rereview)
	return rereview, nil
}

func (s *courseService) afterVisibilityChange(ctx context.Context, actor Actor, id uint, rereview bool) (*CourseResponse, error) {
	course, err := loadCourse(ctx, s.repo, s.db, id)
	if err != nil {
		return nil, err
	}

	if rereview {
		s.notifier.Dispatch(ctx, []NotificationRequest{operatorNotification(models.NotificationCourseSubmitted, course,
			fmt.Sprintf("Course %q was made public and needs review", course.Title))})
	}

	response, err := s.buildCourseResponse(ctx, actor, course)
	if err != nil {
		return nil, err
	}
	response.RereviewRequired = rereview
	return response, nil
}

func (s *courseService) Delete(ctx context.Context, id uint, userID string) error {
	actor, err := resolveActor(ctx, s.repo, userID)
	if err != nil {
		return err
	}

	err = withTx(ctx, s.db, func(tx *gorm.DB) error {
		course, err := loadCourse(ctx, s.repo, tx, id)
		if err != nil {
			return err
		}
		if _, err := authorize(ctx, s.repo, tx, actor, course, OpDelete); err != nil {
			return err
		}

		if err := s.repo.Enrollment().DeleteByCourse(ctx, tx, id); err != nil {
			return fmt.Errorf("failed to delete enrollments: %w", err)
		}
		if err := s.repo.Course().Delete(ctx, tx, id); err != nil {
			return mapStoreError(err, ErrCourseNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.repo.InvalidateCourseCache(ctx, id)

	s.logger.Info("Course deleted", "course_id", id, "deleted_by", actor.ID)
	return nil
}

// ===== PUBLICATION LIFECYCLE =====

func (s *courseService) Submit(ctx context.Context, id uint, userID string) (*CourseResponse, error) {
	actor, err := resolveActor(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}

	var course *models.Course
	err = withTx(ctx, s.db, func(tx *gorm.DB) error {
		course, err = loadCourse(ctx, s.repo, tx, id)
		if err != nil {
			return err
		}
		if !course.IsOwnedBy(actor.ID) {
			return NewPermissionError(actor.ID, id, "course", "submit", "only the owner can submit")
		}
		if !CanSubmit(course.Status) {
			return NewTransitionError("course", course.Status, models.CoursePending)
		}

		err := s.repo.Course().TransitionStatus(ctx, tx, id, []models.CourseStatus{course.Status}, map[string]interface{}{
			"status":           models.CoursePending,
			"rejection_reason": nil,
			"submitted_at":     time.Now().UTC(),
		})
		return mapStoreError(err, ErrCourseNotFound)
	})
	if err != nil {
		return nil, err
	}
	s.repo.InvalidateCourseCache(ctx, id)

	s.logger.Info("Course submitted for review", "course_id", id, "from", course.Status)

	course, err = loadCourse(ctx, s.repo, s.db, id)
	if err != nil {
		return nil, err
	}
	s.notifier.Dispatch(ctx, []NotificationRequest{operatorNotification(models.NotificationCourseSubmitted, course,
		fmt.Sprintf("Course %q was submitted for review", course.Title))})

	return s.buildCourseResponse(ctx, actor, course)
}

func (s *courseService) Review(ctx context.Context, id uint, req *ReviewCourseRequest, reviewerID string) (*CourseResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	rejected := req.Verdict == models.CourseRejected
	if err := validationErrors(s.validator.GetBusinessValidator().ValidateRejectionReason(rejected, req.Reason)); err != nil {
		return nil, err
	}

	actor, err := resolveActor(ctx, s.repo, reviewerID)
	if err != nil {
		return nil, err
	}

	course, err := loadCourse(ctx, s.repo, s.db, id)
	if err != nil {
		return nil, err
	}
	if !CanAccess(AccessRequest{Actor: actor, Course: course}, OpReview) {
		return nil, NewPermissionError(actor.ID, id, "course", "review", "operator role required")
	}
	// Drafts were never submitted; approved and rejected courses fall through to the conflict below
	if course.Status == models.CourseDraft {
		return nil, NewTransitionError("course", course.Status, req.Verdict)
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":      req.Verdict,
		"reviewed_by": actor.ID,
		"reviewed_at": now,
	}
	if rejected {
		updates["rejection_reason"] = strings.TrimSpace(req.Reason)
	} else {
		updates["rejection_reason"] = nil
	}

	// A course that already left pending was decided by someone else
	err = s.repo.Course().TransitionStatus(ctx, s.db, id, []models.CourseStatus{models.CoursePending}, updates)
	if err != nil {
		return nil, mapStoreError(err, ErrCourseNotFound)
	}

	s.logger.Info("Course reviewed", "course_id", id, "verdict", req.Verdict, "reviewer_id", actor.ID)

	course, err = loadCourse(ctx, s.repo, s.db, id)
	if err != nil {
		return nil, err
	}

	notificationType := models.NotificationCourseApproved
	message := fmt.Sprintf("Course %q was approved", course.Title)
	if rejected {
		notificationType = models.NotificationCourseRejected
		message = fmt.Sprintf("Course %q was rejected: %s", course.Title, strings.TrimSpace(req.Reason))
	}
	s.notifier.Dispatch(ctx, []NotificationRequest{courseNotification(course.OwnerID, notificationType, course, message)})

	return s.buildCourseResponse(ctx, actor, course)
}

// ===== CONTENT =====

func (s *courseService) GetOutline(ctx context.Context, id uint, userID string) (*models.CourseOutline, error) {
	actor, err := resolveActor(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}

	course, err := loadCourse(ctx, s.repo, s.db, id)
	if err != nil {
		return nil, err
	}
	access, err := authorize(ctx, s.repo, s.db, actor, course, OpView)
	if err != nil {
		return nil, err
	}
	revealAnswers := CanAccess(access, OpEdit)

	sections, err := s.repo.Section().ListByCourse(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	lessons, err := s.repo.Lesson().ListByCourse(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list lessons: %w", err)
	}
	completedIDs, err := s.repo.Progress().ListCompletedLessonIDs(ctx, s.db, actor.ID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed lessons: %w", err)
	}
	completed := make(map[uint]bool, len(completedIDs))
	for _, lessonID := range completedIDs {
		completed[lessonID] = true
	}

	bySection := make(map[uint][]models.LessonView, len(sections))
	for _, lesson := range lessons {
		view := models.LessonView{Lesson: lesson, Completed: completed[lesson.ID]}
		if lesson.ContentType == models.ContentQuiz {
			questions, err := s.repo.Quiz().GetQuestions(ctx, s.db, lesson.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to get quiz questions: %w", err)
			}
			view.Questions = questionViews(questions, revealAnswers)
		}
		bySection[lesson.SectionID] = append(bySection[lesson.SectionID], view)
	}

	outline := &models.CourseOutline{
		Course:   course,
		Sections: make([]models.SectionOutline, 0, len(sections)),
	}
	for _, section := range sections {
		views := bySection[section.ID]
		if views == nil {
			views = []models.LessonView{}
		}
		outline.Sections = append(outline.Sections, models.SectionOutline{
			ID:         section.ID,
			Title:      section.Title,
			OrderIndex: section.OrderIndex,
			Lessons:    views,
		})
	}
	return outline, nil
}

func (s *courseService) AddSection(ctx context.Context, courseID uint, req *CreateSectionRequest, userID string) (*models.Section, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	actor, err := resolveActor(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}

	var section *models.Section
	err = withTx(ctx, s.db, func(tx *gorm.DB) error {
		course, err := loadCourse(ctx, s.repo, tx, courseID)
		if err != nil {
			return err
		}
		if _, err := authorize(ctx, s.repo, tx, actor, course, OpEdit); err != nil {
			return err
		}

		count, err := s.repo.Section().CountByCourse(ctx, tx, courseID)
		if err != nil {
			return fmt.Errorf("failed to count sections: %w", err)
		}

		section = &models.Section{
			CourseID:   courseID,
			Title:      strings.TrimSpace(req.Title),
			OrderIndex: int(count),
		}
		return s.repo.Section().Create(ctx, tx, section)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Section added", "course_id", courseID, "section_id", section.ID)
	return section, nil
}

func (s *courseService) AddLesson(ctx context.Context, sectionID uint, req *CreateLessonRequest, userID string) (*models.Lesson, error) {
	if err := validationErrors(s.validator.GetBusinessValidator().ValidateLessonCreate(req)); err != nil {
		return nil, err
	}

	actor, err := resolveActor(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}

	var lesson *models.Lesson
	err = withTx(ctx, s.db, func(tx *gorm.DB) error {
		section, err := s.repo.Section().GetByID(ctx, tx, sectionID)
		if err != nil {
			return mapStoreError(err, ErrSectionNotFound)
		}
		course, err := loadCourse(ctx, s.repo, tx, section.CourseID)
		if err != nil {
			return err
		}
		if _, err := authorize(ctx, s.repo, tx, actor, course, OpEdit); err != nil {
			return err
		}

		count, err := s.repo.Lesson().CountBySection(ctx, tx, sectionID)
		if err != nil {
			return fmt.Errorf("failed to count lessons: %w", err)
		}

		lesson = buildLesson(section, req, int(count))
		if !lesson.HasMatchingContent() {
			return NewBusinessRuleError("content_match", "lesson content does not match its content type", map[string]interface{}{
				"content_type": req.ContentType,
			})
		}
		return s.repo.Lesson().Create(ctx, tx, lesson)
	})
	if err != nil {
		return nil, err
	}
	s.repo.InvalidateCourseCache(ctx, lesson.CourseID)

	s.logger.Info("Lesson added", "course_id", lesson.CourseID, "lesson_id", lesson.ID, "content_type", lesson.ContentType)
	return lesson, nil
}

func buildLesson(section *models.Section, req *CreateLessonRequest, orderIndex int) *models.Lesson {
	lesson := &models.Lesson{
		SectionID:   section.ID,
		CourseID:    section.CourseID,
		Title:       strings.TrimSpace(req.Title),
		OrderIndex:  orderIndex,
		ContentType: req.ContentType,
	}

	switch req.ContentType {
	case models.ContentVideo:
		lesson.VideoURL = req.VideoURL
	case models.ContentArticle:
		lesson.ArticleBody = req.ArticleBody
	case models.ContentPDF:
		lesson.PDFURL = req.PDFURL
	case models.ContentQuiz:
		quizType := models.QuizPractice
		if req.QuizType != nil {
			quizType = *req.QuizType
		}
		lesson.QuizType = &quizType
		lesson.PassingScore = req.PassingScore
		lesson.TimeLimitSeconds = req.TimeLimitSeconds
	}
	return lesson
}

// DeleteLesson removes the lesson with its quiz and learner state and re-densifies the section order
func (s *courseService) DeleteLesson(ctx context.Context, lessonID uint, userID string) error {
	actor, err := resolveActor(ctx, s.repo, userID)
	if err != nil {
		return err
	}

	var courseID uint
	err = withTx(ctx, s.db, func(tx *gorm.DB) error {
		lesson, err := loadLesson(ctx, s.repo, tx, lessonID)
		if err != nil {
			return err
		}
		courseID = lesson.CourseID
		course, err := loadCourse(ctx, s.repo, tx, lesson.CourseID)
		if err != nil {
			return err
		}
		if _, err := authorize(ctx, s.repo, tx, actor, course, OpEdit); err != nil {
			return err
		}

		if err := s.repo.Lesson().Delete(ctx, tx, lesson); err != nil {
			return mapStoreError(err, ErrLessonNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.repo.InvalidateCourseCache(ctx, courseID)

	s.logger.Info("Lesson deleted", "lesson_id", lessonID, "deleted_by", actor.ID)
	return nil
}

// ===== HELPERS =====

func (s *courseService) buildCourseResponse(ctx context.Context, actor Actor, course *models.Course) (*CourseResponse, error) {
	access, err := accessFor(ctx, s.repo, s.db, actor, course)
	if err != nil {
		return nil, err
	}
	return newCourseResponse(access), nil
}

func newCourseResponse(access AccessRequest) *CourseResponse {
	return &CourseResponse{
		Course:    access.Course,
		CanEdit:   CanAccess(access, OpEdit),
		CanDelete: CanAccess(access, OpDelete),
		CanEnroll: CanAccess(access, OpEnroll),
	}
}

func questionViews(questions []*models.QuizQuestion, revealAnswers bool) []models.QuestionView {
	views := make([]models.QuestionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, models.NewQuestionView(q, revealAnswers))
	}
	return views
}

