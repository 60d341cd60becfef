package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/course-service/internal/models"
	"github.com/SAP-F-2025/course-service/internal/repositories"
	"github.com/SAP-F-2025/course-service/internal/services"
	"github.com/SAP-F-2025/course-service/internal/utils"
)

type EnrollmentHandler struct {
	BaseHandler
	enrollmentService services.EnrollmentService
}

func NewEnrollmentHandler(enrollmentService services.EnrollmentService, logger utils.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		BaseHandler:       NewBaseHandler(logger),
		enrollmentService: enrollmentService,
	}
}

// RequestEnrollment enrolls the caller in a course
// @Summary Request enrollment
// @Description Public approved courses enroll immediately; private courses need a message and wait for the owner
// @Tags enrollments
// @Accept json
// @Produce json
// @Param enrollment body services.EnrollRequest true "Enrollment request"
// @Success 201 {object} models.Enrollment
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /enrollments [post]
func (h *EnrollmentHandler) RequestEnrollment(c *gin.Context) {
	var req services.EnrollRequest
	if !h.bindJSON(c, &req) {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Requesting enrollment", "course_id", req.CourseID)

	enrollment, err := h.enrollmentService.Request(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, enrollment)
}

// DecideEnrollment approves or rejects a pending request
// @Summary Decide enrollment
// @Tags enrollments
// @Accept json
// @Produce json
// @Param id path uint true "Enrollment ID"
// @Param decision body services.DecideEnrollmentRequest true "Decision"
// @Success 200 {object} models.Enrollment
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /enrollments/{id}/status [patch]
func (h *EnrollmentHandler) DecideEnrollment(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.DecideEnrollmentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Deciding enrollment", "enrollment_id", id, "status", req.Status)

	enrollment, err := h.enrollmentService.Decide(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, enrollment)
}

// LeaveEnrollment ends the caller's approved enrollment
// @Summary Leave course
// @Tags enrollments
// @Produce json
// @Param id path uint true "Enrollment ID"
// @Success 200 {object} models.Enrollment
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /enrollments/{id}/leave [patch]
func (h *EnrollmentHandler) LeaveEnrollment(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Leaving enrollment", "enrollment_id", id)

	enrollment, err := h.enrollmentService.Leave(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, enrollment)
}

// InviteByEmail enrolls a user found by email directly as approved
// @Summary Invite by email
// @Tags enrollments
// @Accept json
// @Produce json
// @Param invite body services.InviteByEmailRequest true "Invitation"
// @Success 201 {object} models.Enrollment
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /enrollments/invite-by-email [post]
func (h *EnrollmentHandler) InviteByEmail(c *gin.Context) {
	var req services.InviteByEmailRequest
	if !h.bindJSON(c, &req) {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Inviting by email", "course_id", req.CourseID)

	enrollment, err := h.enrollmentService.InviteByEmail(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, enrollment)
}

// ListCourseEnrollments lists a course's enrollments for its owner or an operator
// @Summary List course enrollments
// @Tags enrollments
// @Produce json
// @Param id path uint true "Course ID"
// @Param status query string false "pending, approved, rejected, left"
// @Param date_from query string false "RFC3339"
// @Param date_to query string false "RFC3339"
// @Success 200 {object} services.EnrollmentListResponse
// @Router /enrollments/course/{id} [get]
func (h *EnrollmentHandler) ListCourseEnrollments(c *gin.Context) {
	courseID := h.parseIDParam(c, "id")
	if courseID == 0 {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	filters, ok := h.parseEnrollmentFilters(c)
	if !ok {
		return
	}

	result, err := h.enrollmentService.ListByCourse(c.Request.Context(), courseID, filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListMyEnrollments lists the caller's enrollments with their courses
// @Summary List my enrollments
// @Tags enrollments
// @Produce json
// @Success 200 {object} services.EnrollmentListResponse
// @Router /enrollments/me [get]
func (h *EnrollmentHandler) ListMyEnrollments(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	filters, ok := h.parseEnrollmentFilters(c)
	if !ok {
		return
	}

	result, err := h.enrollmentService.ListMine(c.Request.Context(), userID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ===== HELPER METHODS =====

func (h *EnrollmentHandler) parseEnrollmentFilters(c *gin.Context) (repositories.EnrollmentFilters, bool) {
	limit, offset := h.parsePagination(c)
	sortBy, sortOrder := h.parseSort(c)

	filters := repositories.EnrollmentFilters{
		Limit:     limit,
		Offset:    offset,
		SortBy:    sortBy,
		SortOrder: sortOrder,
	}

	if status := c.Query("status"); status != "" {
		s := models.EnrollmentStatus(status)
		filters.Status = &s
	}

	for param, target := range map[string]**time.Time{"date_from": &filters.DateFrom, "date_to": &filters.DateTo} {
		value := c.Query(param)
		if value == "" {
			continue
		}
		parsed, err := time.Parse(time.RFC3339, value)
		if err != nil {
			h.RespondWithError(c, http.StatusBadRequest, "Invalid "+param, err)
			return filters, false
		}
		*target = &parsed
	}

	return filters, true
}
