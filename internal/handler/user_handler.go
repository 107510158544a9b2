package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/auth-sentry/internal/domain"
	"github.com/prohmpiriya/auth-sentry/internal/dto"
	"github.com/prohmpiriya/auth-sentry/internal/middleware"
	"github.com/prohmpiriya/auth-sentry/internal/service"
	"github.com/prohmpiriya/auth-sentry/pkg/response"
)

// UserHandler handles user profile HTTP requests
type UserHandler struct {
	authService service.AuthService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(authService service.AuthService) *UserHandler {
	return &UserHandler{authService: authService}
}

// Me returns the authenticated user's profile
// GET /api/v1/users/me
func (h *UserHandler) Me(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	user, err := h.authService.GetUser(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if user == nil {
		response.NotFound(c, "User not found")
		return
	}

	response.Success(c, toUserResponse(user))
}

// List returns all users, admin only
// GET /api/v1/users
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.authService.ListUsers(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}

	out := make([]dto.UserResponse, 0, len(users))
	for _, user := range users {
		out = append(out, toUserResponse(user))
	}

	response.Success(c, out)
}

// Dashboard is reachable by admins and moderators
// GET /api/v1/users/dashboard
func (h *UserHandler) Dashboard(c *gin.Context) {
	response.Success(c, gin.H{
		"message": "Welcome to the staff dashboard",
	})
}

func toUserResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:              user.ID,
		Email:           user.Email,
		Username:        user.Username,
		Role:            string(user.Role),
		IsEmailVerified: user.IsEmailVerified,
		CreatedAt:       user.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       user.UpdatedAt.Format(time.RFC3339),
	}
}
