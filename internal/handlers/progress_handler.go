package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/course-service/internal/services"
	"github.com/SAP-F-2025/course-service/internal/utils"
)

type ProgressHandler struct {
	BaseHandler
	progressService services.ProgressService
	reportService   services.ReportService
}

func NewProgressHandler(progressService services.ProgressService, reportService services.ReportService, logger utils.Logger) *ProgressHandler {
	return &ProgressHandler{
		BaseHandler:     NewBaseHandler(logger),
		progressService: progressService,
		reportService:   reportService,
	}
}

// ToggleLesson flips the caller's completion of a lesson
// @Summary Toggle lesson completion
// @Description Reaching 100% for the first time notifies the learner and the course owner
// @Tags progress
// @Accept json
// @Produce json
// @Param toggle body services.ToggleProgressRequest true "Lesson"
// @Success 200 {object} services.ToggleResult
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /lesson-progress/toggle [post]
func (h *ProgressHandler) ToggleLesson(c *gin.Context) {
	var req services.ToggleProgressRequest
	if !h.bindJSON(c, &req) {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Toggling lesson progress", "lesson_id", req.LessonID)

	result, err := h.progressService.ToggleCompletion(c.Request.Context(), userID, req.LessonID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetMyCourseProgress reports the caller's percentage in a course
// @Summary Get my course progress
// @Tags progress
// @Produce json
// @Param id path uint true "Course ID"
// @Success 200 {object} map[string]interface{}
// @Router /courses/{id}/progress [get]
func (h *ProgressHandler) GetMyCourseProgress(c *gin.Context) {
	courseID := h.parseIDParam(c, "id")
	if courseID == 0 {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	percentage, err := h.progressService.Percentage(c.Request.Context(), userID, courseID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"course_id":  courseID,
		"percentage": percentage,
		"can_review": percentage == 100,
	})
}

// GetEnrollmentProgress reports progress for one enrollment
// @Summary Get enrollment progress
// @Tags progress
// @Produce json
// @Param id path uint true "Enrollment ID"
// @Success 200 {object} services.ProgressResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /enrollments/{id}/progress [get]
func (h *ProgressHandler) GetEnrollmentProgress(c *gin.Context) {
	enrollmentID := h.parseIDParam(c, "id")
	if enrollmentID == 0 {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	progress, err := h.progressService.EnrollmentProgress(c.Request.Context(), enrollmentID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

// GetCourseAverageProgress reports the mean progress of a course's approved learners
// @Summary Get course average progress
// @Tags progress
// @Produce json
// @Param id path uint true "Course ID"
// @Success 200 {object} services.CourseAverageResponse
// @Failure 403 {object} ErrorResponse
// @Router /enrollments/course/{id}/average-progress [get]
func (h *ProgressHandler) GetCourseAverageProgress(c *gin.Context) {
	courseID := h.parseIDParam(c, "id")
	if courseID == 0 {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	average, err := h.progressService.CourseAverageProgress(c.Request.Context(), courseID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, average)
}

// ExportProgressReport downloads the course progress workbook
// @Summary Export course progress
// @Tags progress
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path uint true "Course ID"
// @Success 200 {file} file
// @Failure 403 {object} ErrorResponse
// @Router /enrollments/course/{id}/progress-report [get]
func (h *ProgressHandler) ExportProgressReport(c *gin.Context) {
	courseID := h.parseIDParam(c, "id")
	if courseID == 0 {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Exporting progress report", "course_id", courseID)

	report, err := h.reportService.ExportCourseProgress(c.Request.Context(), courseID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename))
	c.Data(http.StatusOK, report.ContentType, report.Data)
}
