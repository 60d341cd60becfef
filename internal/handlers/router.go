package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/course-service/internal/models"
	"github.com/SAP-F-2025/course-service/internal/repositories"
	"github.com/SAP-F-2025/course-service/internal/services"
	"github.com/SAP-F-2025/course-service/internal/utils"
)

const serviceName = "course-service"

type HandlerManager struct {
	serviceManager      services.ServiceManager
	courseHandler       *CourseHandler
	enrollmentHandler   *EnrollmentHandler
	progressHandler     *ProgressHandler
	quizHandler         *QuizHandler
	notificationHandler *NotificationHandler
	userHandler         *UserHandler
	authMiddleware      *CasdoorAuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
	authMiddleware *CasdoorAuthMiddleware,
	userRepo repositories.UserRepository,
) *HandlerManager {
	return &HandlerManager{
		serviceManager:      serviceManager,
		courseHandler:       NewCourseHandler(serviceManager.Course(), logger),
		enrollmentHandler:   NewEnrollmentHandler(serviceManager.Enrollment(), logger),
		progressHandler:     NewProgressHandler(serviceManager.Progress(), serviceManager.Report(), logger),
		quizHandler:         NewQuizHandler(serviceManager.Quiz(), logger),
		notificationHandler: NewNotificationHandler(serviceManager.Notification(), logger),
		userHandler:         NewUserHandler(userRepo, logger),
		authMiddleware:      authMiddleware,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.health)

	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		// Course authoring and publication; ownership is checked by the services
		courses := v1.Group("/courses")
		{
			courses.POST("", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher), hm.courseHandler.CreateCourse)
			courses.GET("", hm.courseHandler.ListCourses)
			courses.GET("/:id", hm.courseHandler.GetCourse)
			courses.PATCH("/:id", hm.courseHandler.UpdateCourse)
			courses.DELETE("/:id", hm.courseHandler.DeleteCourse)
			courses.PATCH("/:id/visibility", hm.courseHandler.ChangeVisibility)

			courses.POST("/:id/submit", hm.courseHandler.SubmitCourse)
			courses.POST("/:id/review", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.courseHandler.ReviewCourse)

			courses.GET("/:id/outline", hm.courseHandler.GetOutline)
			courses.POST("/:id/sections", hm.courseHandler.AddSection)
			courses.GET("/:id/progress", hm.progressHandler.GetMyCourseProgress)
		}

		v1.POST("/sections/:id/lessons", hm.courseHandler.AddLesson)

		lessons := v1.Group("/lessons")
		{
			lessons.DELETE("/:id", hm.courseHandler.DeleteLesson)
			lessons.PUT("/:id/quiz", hm.quizHandler.SetQuiz)
			lessons.GET("/:id/quiz", hm.quizHandler.GetQuiz)
		}

		quiz := v1.Group("/quiz")
		{
			quiz.POST("/:lessonId/start", hm.quizHandler.StartQuiz)
			quiz.POST("/:lessonId/submit", hm.quizHandler.SubmitQuiz)
			quiz.GET("/:lessonId/attempts", hm.quizHandler.ListAttempts)
		}

		enrollments := v1.Group("/enrollments")
		{
			enrollments.POST("", hm.enrollmentHandler.RequestEnrollment)
			enrollments.POST("/invite-by-email", hm.enrollmentHandler.InviteByEmail)
			enrollments.GET("/me", hm.enrollmentHandler.ListMyEnrollments)
			enrollments.PATCH("/:id/status", hm.enrollmentHandler.DecideEnrollment)
			enrollments.PATCH("/:id/leave", hm.enrollmentHandler.LeaveEnrollment)
			enrollments.GET("/:id/progress", hm.progressHandler.GetEnrollmentProgress)

			enrollments.GET("/course/:id", hm.enrollmentHandler.ListCourseEnrollments)
			enrollments.GET("/course/:id/average-progress", hm.progressHandler.GetCourseAverageProgress)
			enrollments.GET("/course/:id/progress-report", hm.progressHandler.ExportProgressReport)
		}

		v1.POST("/lesson-progress/toggle", hm.progressHandler.ToggleLesson)

		notifications := v1.Group("/notifications")
		{
			notifications.GET("", hm.notificationHandler.ListNotifications)
			notifications.PATCH("/:id/read", hm.notificationHandler.MarkRead)
		}

		v1.GET("/users/me", hm.userHandler.GetMe)
	}
}

func (hm *HandlerManager) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := hm.serviceManager.HealthCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": serviceName,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
