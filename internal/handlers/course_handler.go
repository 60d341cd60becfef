package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/course-service/internal/models"
	"github.com/SAP-F-2025/course-service/internal/repositories"
	"github.com/SAP-F-2025/course-service/internal/services"
	"github.com/SAP-F-2025/course-service/internal/utils"
)

type CourseHandler struct {
	BaseHandler
	courseService services.CourseService
}

func NewCourseHandler(courseService services.CourseService, logger utils.Logger) *CourseHandler {
	return &CourseHandler{
		BaseHandler:   NewBaseHandler(logger),
		courseService: courseService,
	}
}

// CreateCourse creates a draft course owned by the caller
// @Summary Create course
// @Description Creates a new draft course. Teachers and admins only.
// @Tags courses
// @Accept json
// @Produce json
// @Param course body services.CreateCourseRequest true "Course data"
// @Success 201 {object} services.CourseResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /courses [post]
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req services.CreateCourseRequest
	if !h.bindJSON(c, &req) {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Creating course")

	course, err := h.courseService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, course)
}

// ListCourses lists the courses visible to the caller
// @Summary List courses
// @Description Operators see every course; everyone else sees their own courses plus the approved public catalog
// @Tags courses
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Param status query string false "draft, pending, approved, rejected"
// @Param visibility query string false "private or public"
// @Param owner_id query string false "Owner user ID"
// @Param q query string false "Title search"
// @Success 200 {object} services.CourseListResponse
// @Failure 401 {object} ErrorResponse
// @Router /courses [get]
func (h *CourseHandler) ListCourses(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Listing courses")

	courses, err := h.courseService.List(c.Request.Context(), h.parseCourseFilters(c), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, courses)
}

// GetCourse retrieves a course by ID
// @Summary Get course
// @Tags courses
// @Produce json
// @Param id path uint true "Course ID"
// @Success 200 {object} services.CourseResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id} [get]
func (h *CourseHandler) GetCourse(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	course, err := h.courseService.Get(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, course)
}

// UpdateCourse edits title, description or visibility
// @Summary Update course
// @Description Partial update. Making an approved or rejected course public sends it back to review and sets rereview_required.
// @Tags courses
// @Accept json
// @Produce json
// @Param id path uint true "Course ID"
// @Param course body services.UpdateCourseRequest true "Fields to change"
// @Success 200 {object} services.CourseResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id} [patch]
func (h *CourseHandler) UpdateCourse(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateCourseRequest
	if !h.bindJSON(c, &req) {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Updating course", "course_id", id)

	course, err := h.courseService.Update(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, course)
}

type changeVisibilityRequest struct {
	Visibility models.CourseVisibility `json:"visibility" binding:"required"`
}

// ChangeVisibility switches a course between private and public
// @Summary Change course visibility
// @Tags courses
// @Accept json
// @Produce json
// @Param id path uint true "Course ID"
// @Success 200 {object} services.CourseResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /courses/{id}/visibility [patch]
func (h *CourseHandler) ChangeVisibility(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req changeVisibilityRequest
	if !h.bindJSON(c, &req) {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Changing course visibility", "course_id", id, "visibility", req.Visibility)

	course, err := h.courseService.ChangeVisibility(c.Request.Context(), id, req.Visibility, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, course)
}

// DeleteCourse deletes a course with its content and enrollments
// @Summary Delete course
// @Tags courses
// @Param id path uint true "Course ID"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id} [delete]
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting course", "course_id", id)

	if err := h.courseService.Delete(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// SubmitCourse sends a draft or rejected course to review
// @Summary Submit course for review
// @Tags courses
// @Produce json
// @Param id path uint true "Course ID"
// @Success 200 {object} services.CourseResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /courses/{id}/submit [post]
func (h *CourseHandler) SubmitCourse(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Submitting course", "course_id", id)

	course, err := h.courseService.Submit(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, course)
}

// ReviewCourse approves or rejects a pending course
// @Summary Review course
// @Description Operators only. A rejection requires a reason. Reviewing a course that is no longer pending returns 409.
// @Tags courses
// @Accept json
// @Produce json
// @Param id path uint true "Course ID"
// @Param review body services.ReviewCourseRequest true "Verdict"
// @Success 200 {object} services.CourseResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /courses/{id}/review [post]
func (h *CourseHandler) ReviewCourse(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.ReviewCourseRequest
	if !h.bindJSON(c, &req) {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Reviewing course", "course_id", id, "verdict", req.Verdict)

	course, err := h.courseService.Review(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, course)
}

// GetOutline returns sections and lessons in order
// @Summary Get course outline
// @Tags courses
// @Produce json
// @Param id path uint true "Course ID"
// @Success 200 {object} models.CourseOutline
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id}/outline [get]
func (h *CourseHandler) GetOutline(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	outline, err := h.courseService.GetOutline(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, outline)
}

// AddSection appends a section to a course
// @Summary Add section
// @Tags content
// @Accept json
// @Produce json
// @Param id path uint true "Course ID"
// @Param section body services.CreateSectionRequest true "Section data"
// @Success 201 {object} models.Section
// @Router /courses/{id}/sections [post]
func (h *CourseHandler) AddSection(c *gin.Context) {
	courseID := h.parseIDParam(c, "id")
	if courseID == 0 {
		return
	}

	var req services.CreateSectionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Adding section", "course_id", courseID)

	section, err := h.courseService.AddSection(c.Request.Context(), courseID, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, section)
}

// AddLesson appends a lesson to a section
// @Summary Add lesson
// @Description Exactly one content field must be set and it must match content_type
// @Tags content
// @Accept json
// @Produce json
// @Param id path uint true "Section ID"
// @Param lesson body services.CreateLessonRequest true "Lesson data"
// @Success 201 {object} models.Lesson
// @Router /sections/{id}/lessons [post]
func (h *CourseHandler) AddLesson(c *gin.Context) {
	sectionID := h.parseIDParam(c, "id")
	if sectionID == 0 {
		return
	}

	var req services.CreateLessonRequest
	if !h.bindJSON(c, &req) {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Adding lesson", "section_id", sectionID, "content_type", req.ContentType)

	lesson, err := h.courseService.AddLesson(c.Request.Context(), sectionID, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, lesson)
}

// DeleteLesson removes a lesson and closes the gap in its section's order
// @Summary Delete lesson
// @Tags content
// @Param id path uint true "Lesson ID"
// @Success 204
// @Router /lessons/{id} [delete]
func (h *CourseHandler) DeleteLesson(c *gin.Context) {
	lessonID := h.parseIDParam(c, "id")
	if lessonID == 0 {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting lesson", "lesson_id", lessonID)

	if err := h.courseService.DeleteLesson(c.Request.Context(), lessonID, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ===== HELPER METHODS =====

func (h *CourseHandler) parseCourseFilters(c *gin.Context) repositories.CourseFilters {
	limit, offset := h.parsePagination(c)
	sortBy, sortOrder := h.parseSort(c)

	filters := repositories.CourseFilters{
		Query:     c.Query("q"),
		Limit:     limit,
		Offset:    offset,
		SortBy:    sortBy,
		SortOrder: sortOrder,
	}

	if status := c.Query("status"); status != "" {
		s := models.CourseStatus(status)
		filters.Status = &s
	}
	if visibility := c.Query("visibility"); visibility != "" {
		v := models.CourseVisibility(visibility)
		filters.Visibility = &v
	}
	if ownerID := c.Query("owner_id"); ownerID != "" {
		filters.OwnerID = &ownerID
	}

	return filters
}
