package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/prohmpiriya/auth-sentry/internal/domain"
	"github.com/prohmpiriya/auth-sentry/internal/dto"
	"github.com/prohmpiriya/auth-sentry/internal/middleware"
	"github.com/prohmpiriya/auth-sentry/internal/service"
)

// MockAuthService is a mock implementation of service.AuthService
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.MessageResponse), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, req *dto.LoginRequest) (*domain.TokenPair, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TokenPair), args.Error(1)
}

func (m *MockAuthService) RefreshTokens(ctx context.Context, userID, refreshToken string) (*domain.TokenPair, error) {
	args := m.Called(ctx, userID, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TokenPair), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, userID string) (*dto.MessageResponse, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.MessageResponse), args.Error(1)
}

func (m *MockAuthService) VerifyEmail(ctx context.Context, verifyToken string) (*dto.MessageResponse, error) {
	args := m.Called(ctx, verifyToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.MessageResponse), args.Error(1)
}

func (m *MockAuthService) ResendVerificationEmail(ctx context.Context, email string) (*dto.MessageResponse, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.MessageResponse), args.Error(1)
}

func (m *MockAuthService) ValidateAccessToken(ctx context.Context, raw string) (*domain.Claims, error) {
	args := m.Called(ctx, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Claims), args.Error(1)
}

func (m *MockAuthService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockAuthService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

func setupAuthRouter(mockService *MockAuthService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewAuthHandler(mockService)

	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.GET("/verify-email", h.VerifyEmail)
		auth.POST("/resend-verification", h.ResendVerification)

		// Test stand-in for the refresh guard
		auth.POST("/refresh", func(c *gin.Context) {
			c.Set(middleware.UserIDKey, c.GetHeader("X-Test-User"))
			c.Set(middleware.RefreshTokenKey, c.GetHeader("X-Test-Refresh"))
			c.Next()
		}, h.Refresh)
	}

	return router
}

func postJSON(router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthHandler_Register_Success(t *testing.T) {
	mockService := new(MockAuthService)
	router := setupAuthRouter(mockService)

	mockService.On("Register", mock.Anything, mock.AnythingOfType("*dto.RegisterRequest")).
		Return(&dto.MessageResponse{Message: "Registration successful. Please check your email."}, nil)

	w := postJSON(router, "/api/v1/auth/register", gin.H{
		"email":    "user@example.com",
		"username": "newuser",
		"password": "Password1!",
		"role":     "USER",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "Registration successful")
	mockService.AssertExpectations(t)
}

func TestAuthHandler_Register_ValidationFailsBeforeService(t *testing.T) {
	mockService := new(MockAuthService)
	router := setupAuthRouter(mockService)

	cases := []gin.H{
		{"email": "bad-email", "username": "newuser", "password": "Password1!", "role": "USER"},
		{"email": "user@example.com", "username": "x", "password": "Password1!", "role": "USER"},
		{"email": "user@example.com", "username": "newuser", "password": "weak", "role": "USER"},
		{"email": "user@example.com", "username": "newuser", "password": "Password1!", "role": "ROOT"},
	}

	for _, body := range cases {
		w := postJSON(router, "/api/v1/auth/register", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}

	mockService.AssertNotCalled(t, "Register")
}

func TestAuthHandler_Register_Conflict(t *testing.T) {
	mockService := new(MockAuthService)
	router := setupAuthRouter(mockService)

	mockService.On("Register", mock.Anything, mock.Anything).
		Return(nil, service.ErrUserAlreadyExists)

	w := postJSON(router, "/api/v1/auth/register", gin.H{
		"email":    "user@example.com",
		"username": "newuser",
		"password": "Password1!",
		"role":     "USER",
	})

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mockService := new(MockAuthService)
		router := setupAuthRouter(mockService)

		mockService.On("Login", mock.Anything, mock.Anything).
			Return(&domain.TokenPair{AccessToken: "at", RefreshToken: "rt", ExpiresIn: 900}, nil)

		w := postJSON(router, "/api/v1/auth/login", gin.H{
			"email":    "user@example.com",
			"password": "Password1!",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "access_token")
	})

	t.Run("invalid credentials", func(t *testing.T) {
		mockService := new(MockAuthService)
		router := setupAuthRouter(mockService)

		mockService.On("Login", mock.Anything, mock.Anything).
			Return(nil, service.ErrInvalidCredentials)

		w := postJSON(router, "/api/v1/auth/login", gin.H{
			"email":    "user@example.com",
			"password": "Wrong1!!!",
		})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid email or password")
	})

	t.Run("unverified email", func(t *testing.T) {
		mockService := new(MockAuthService)
		router := setupAuthRouter(mockService)

		mockService.On("Login", mock.Anything, mock.Anything).
			Return(nil, service.ErrEmailNotVerified)

		w := postJSON(router, "/api/v1/auth/login", gin.H{
			"email":    "user@example.com",
			"password": "Password1!",
		})

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "Please verify your email before logging in")
	})
}

func TestAuthHandler_Refresh(t *testing.T) {
	t.Run("reuse detected", func(t *testing.T) {
		mockService := new(MockAuthService)
		router := setupAuthRouter(mockService)

		mockService.On("RefreshTokens", mock.Anything, "user-1", "stolen-token").
			Return(nil, service.ErrTokenReuseDetected)

		raw, _ := json.Marshal(gin.H{"refreshToken": "stolen-token"})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-User", "user-1")
		req.Header.Set("X-Test-Refresh", "stolen-token")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "Refresh token reuse detected. Please login again.")
	})

	t.Run("rotation success", func(t *testing.T) {
		mockService := new(MockAuthService)
		router := setupAuthRouter(mockService)

		mockService.On("RefreshTokens", mock.Anything, "user-1", "good-token").
			Return(&domain.TokenPair{AccessToken: "new-at", RefreshToken: "new-rt", ExpiresIn: 900}, nil)

		raw, _ := json.Marshal(gin.H{"refreshToken": "good-token"})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-User", "user-1")
		req.Header.Set("X-Test-Refresh", "good-token")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "new-rt")
	})
}

func TestAuthHandler_VerifyEmail(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		mockService := new(MockAuthService)
		router := setupAuthRouter(mockService)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/verify-email", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "VerifyEmail")
	})

	t.Run("invalid token", func(t *testing.T) {
		mockService := new(MockAuthService)
		router := setupAuthRouter(mockService)

		mockService.On("VerifyEmail", mock.Anything, "bad").
			Return(nil, service.ErrInvalidVerifyToken)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/verify-email?token=bad", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid or expired token")
	})

	t.Run("success", func(t *testing.T) {
		mockService := new(MockAuthService)
		router := setupAuthRouter(mockService)

		mockService.On("VerifyEmail", mock.Anything, "tok-1").
			Return(&dto.MessageResponse{Message: "Email verified successfully."}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/verify-email?token=tok-1", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Email verified successfully.")
	})
}

func TestAuthHandler_ResendVerification(t *testing.T) {
	mockService := new(MockAuthService)
	router := setupAuthRouter(mockService)

	mockService.On("ResendVerificationEmail", mock.Anything, "a@example.com").
		Return(&dto.MessageResponse{Message: "If that email exists and is unverified, a new link has been sent."}, nil)

	w := postJSON(router, "/api/v1/auth/resend-verification", gin.H{"email": "a@example.com"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "If that email exists and is unverified")
}
