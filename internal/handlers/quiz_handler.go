package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/course-service/internal/services"
	"github.com/SAP-F-2025/course-service/internal/utils"
)

type QuizHandler struct {
	BaseHandler
	quizService services.QuizService
}

func NewQuizHandler(quizService services.QuizService, logger utils.Logger) *QuizHandler {
	return &QuizHandler{
		BaseHandler: NewBaseHandler(logger),
		quizService: quizService,
	}
}

// SetQuiz replaces a quiz lesson's settings and questions
// @Summary Set quiz
// @Tags quizzes
// @Accept json
// @Produce json
// @Param id path uint true "Lesson ID"
// @Param quiz body services.SetQuizRequest true "Quiz definition"
// @Success 200 {array} models.QuestionView
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /lessons/{id}/quiz [put]
func (h *QuizHandler) SetQuiz(c *gin.Context) {
	lessonID := h.parseIDParam(c, "id")
	if lessonID == 0 {
		return
	}

	var req services.SetQuizRequest
	if !h.bindJSON(c, &req) {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Setting quiz", "lesson_id", lessonID, "questions", len(req.Questions))

	questions, err := h.quizService.SetQuiz(c.Request.Context(), lessonID, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, questions)
}

// GetQuiz returns the questions; correctness is only shown to editors
// @Summary Get quiz
// @Tags quizzes
// @Produce json
// @Param id path uint true "Lesson ID"
// @Success 200 {array} models.QuestionView
// @Router /lessons/{id}/quiz [get]
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	lessonID := h.parseIDParam(c, "id")
	if lessonID == 0 {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	questions, err := h.quizService.GetQuiz(c.Request.Context(), lessonID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, questions)
}

// StartQuiz opens an attempt timed by the server, or resumes the one in progress
// @Summary Start quiz attempt
// @Tags quizzes
// @Produce json
// @Param lessonId path uint true "Lesson ID"
// @Success 201 {object} models.QuizAttempt
// @Failure 403 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /quiz/{lessonId}/start [post]
func (h *QuizHandler) StartQuiz(c *gin.Context) {
	lessonID := h.parseIDParam(c, "lessonId")
	if lessonID == 0 {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Starting quiz attempt", "lesson_id", lessonID)

	attempt, err := h.quizService.Start(c.Request.Context(), lessonID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attempt)
}

// SubmitQuiz grades the open attempt
// @Summary Submit quiz
// @Description Passing marks the lesson completed. Timed exams must be started first.
// @Tags quizzes
// @Accept json
// @Produce json
// @Param lessonId path uint true "Lesson ID"
// @Param attempt body services.SubmitQuizRequest true "Answers"
// @Success 200 {object} services.QuizResult
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /quiz/{lessonId}/submit [post]
func (h *QuizHandler) SubmitQuiz(c *gin.Context) {
	lessonID := h.parseIDParam(c, "lessonId")
	if lessonID == 0 {
		return
	}

	var req services.SubmitQuizRequest
	if !h.bindJSON(c, &req) {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Submitting quiz", "lesson_id", lessonID)

	result, err := h.quizService.Submit(c.Request.Context(), lessonID, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListAttempts lists the caller's attempts, newest first
// @Summary List quiz attempts
// @Tags quizzes
// @Produce json
// @Param lessonId path uint true "Lesson ID"
// @Success 200 {array} models.QuizAttempt
// @Router /quiz/{lessonId}/attempts [get]
func (h *QuizHandler) ListAttempts(c *gin.Context) {
	lessonID := h.parseIDParam(c, "lessonId")
	if lessonID == 0 {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	attempts, err := h.quizService.ListAttempts(c.Request.Context(), lessonID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempts)
}
