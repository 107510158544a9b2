package middleware

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/auth-sentry/internal/domain"
	"github.com/prohmpiriya/auth-sentry/internal/service"
	"github.com/prohmpiriya/auth-sentry/internal/token"
	"github.com/prohmpiriya/auth-sentry/pkg/response"
)

const (
	// UserIDKey is the context key for the authenticated user ID
	UserIDKey = "user_id"
	// UserEmailKey is the context key for the authenticated user email
	UserEmailKey = "user_email"
	// UserRoleKey is the context key for the authenticated user role
	UserRoleKey = "user_role"
	// RefreshTokenKey is the context key for the raw refresh token
	RefreshTokenKey = "refresh_token"
)

// AuthRequired verifies the Bearer access token and stores the caller's
// identity in the request context.
func AuthRequired(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "Authorization header is required")
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			response.Unauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := authService.ValidateAccessToken(c.Request.Context(), parts[1])
		if err != nil {
			response.Unauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UserEmailKey, claims.Email)
		c.Set(UserRoleKey, string(claims.Role))

		c.Next()
	}
}

// RefreshGuard verifies the refresh token carried in the request body and
// stores the subject and raw token in the context. The body is restored so
// handlers can still bind it.
func RefreshGuard(codec *token.Codec) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			response.Unauthorized(c, "Invalid request body")
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(strings.NewReader(string(body)))

		var req struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := json.Unmarshal(body, &req); err != nil || req.RefreshToken == "" {
			response.Unauthorized(c, "Refresh token is required")
			c.Abort()
			return
		}

		claims, err := codec.VerifyRefresh(req.RefreshToken)
		if err != nil {
			response.Unauthorized(c, "Invalid or expired refresh token")
			c.Abort()
			return
		}

		c.Set(UserIDKey, claims.Subject)
		c.Set(RefreshTokenKey, req.RefreshToken)

		c.Next()
	}
}

// RequireRoles allows the request only when the authenticated user holds
// one of the given roles. Must run after AuthRequired.
func RequireRoles(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(UserRoleKey)
		if !exists {
			response.Forbidden(c, "Access denied")
			c.Abort()
			return
		}

		userRole, ok := value.(string)
		if !ok {
			response.Forbidden(c, "Access denied")
			c.Abort()
			return
		}

		for _, role := range roles {
			if domain.Role(userRole) == role {
				c.Next()
				return
			}
		}

		response.Forbidden(c, "Access denied")
		c.Abort()
	}
}

// GetUserID returns the authenticated user ID from context
func GetUserID(c *gin.Context) string {
	if id, exists := c.Get(UserIDKey); exists {
		if userID, ok := id.(string); ok {
			return userID
		}
	}
	return ""
}

// GetRefreshToken returns the raw refresh token from context
func GetRefreshToken(c *gin.Context) string {
	if tok, exists := c.Get(RefreshTokenKey); exists {
		if raw, ok := tok.(string); ok {
			return raw
		}
	}
	return ""
}
