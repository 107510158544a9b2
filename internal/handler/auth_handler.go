package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/auth-sentry/internal/dto"
	"github.com/prohmpiriya/auth-sentry/internal/middleware"
	"github.com/prohmpiriya/auth-sentry/internal/service"
	"github.com/prohmpiriya/auth-sentry/pkg/response"
)

// AuthHandler handles authentication HTTP requests
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register handles user registration
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if valid, msg := req.ValidateEmail(); !valid {
		response.BadRequest(c, msg)
		return
	}
	if valid, msg := req.ValidateUsername(); !valid {
		response.BadRequest(c, msg)
		return
	}
	if valid, msg := req.ValidatePassword(); !valid {
		response.BadRequest(c, msg)
		return
	}
	if valid, msg := req.ValidateRole(); !valid {
		response.BadRequest(c, msg)
		return
	}

	result, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrUserAlreadyExists) {
			response.Conflict(c, "Email or username already in use")
			return
		}
		response.InternalError(c, err)
		return
	}

	response.Created(c, result)
}

// Login handles user login
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	pair, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Unauthorized(c, "Invalid email or password")
			return
		}
		if errors.Is(err, service.ErrEmailNotVerified) {
			response.Forbidden(c, "Please verify your email before logging in")
			return
		}
		response.InternalError(c, err)
		return
	}

	response.Success(c, pair)
}

// Refresh rotates the token pair. The refresh guard has already verified
// the token signature and stashed the subject in the context.
// POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	userID := middleware.GetUserID(c)
	refreshToken := middleware.GetRefreshToken(c)
	if userID == "" || refreshToken == "" {
		response.Unauthorized(c, "Invalid or expired refresh token")
		return
	}

	pair, err := h.authService.RefreshTokens(c.Request.Context(), userID, refreshToken)
	if err != nil {
		if errors.Is(err, service.ErrTokenReuseDetected) {
			response.Forbidden(c, "Refresh token reuse detected. Please login again.")
			return
		}
		if errors.Is(err, service.ErrAccessDenied) {
			response.Forbidden(c, "Access denied")
			return
		}
		response.InternalError(c, err)
		return
	}

	response.Success(c, pair)
}

// Logout clears the caller's session
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	result, err := h.authService.Logout(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	response.Success(c, result)
}

// VerifyEmail consumes a verification token
// GET /api/v1/auth/verify-email?token=...
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	verifyToken := c.Query("token")
	if verifyToken == "" {
		response.BadRequest(c, "Verification token is required")
		return
	}

	result, err := h.authService.VerifyEmail(c.Request.Context(), verifyToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidVerifyToken) {
			response.BadRequest(c, "Invalid or expired token")
			return
		}
		response.InternalError(c, err)
		return
	}

	response.Success(c, result)
}

// ResendVerification reissues the verification link
// POST /api/v1/auth/resend-verification
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req dto.ResendVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.authService.ResendVerificationEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	response.Success(c, result)
}
