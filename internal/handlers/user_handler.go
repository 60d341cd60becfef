package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/course-service/internal/repositories"
	"github.com/SAP-F-2025/course-service/internal/utils"
)

type UserHandler struct {
	BaseHandler
	userRepo repositories.UserRepository
}

func NewUserHandler(userRepo repositories.UserRepository, logger utils.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler: NewBaseHandler(logger),
		userRepo:    userRepo,
	}
}

// GetMe returns the authenticated user
// @Summary Get current user
// @Description Identity comes from Casdoor; the directory entry is returned when available, otherwise the token claims
// @Tags users
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /users/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	user, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil {
		h.LogError(c, err, "Failed to get user from directory", "user_id", userID)

		// The middleware already built a user from the token claims
		fromToken, ctxErr := GetUserFromContext(c)
		if ctxErr != nil {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Message: "User not found",
				Code:    codeNotFound,
			})
			return
		}
		user = fromToken
	}

	c.JSON(http.StatusOK, user)
}
