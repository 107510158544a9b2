package dto

import (
	"regexp"
	"strings"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

// passwordSymbols is the set of special characters a password must draw from.
const passwordSymbols = "!@#$%^&*"

// RegisterRequest represents registration request
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

// ValidateEmail validates email format more strictly than gin's binding tag
func (r *RegisterRequest) ValidateEmail() (bool, string) {
	if !emailRegex.MatchString(r.Email) {
		return false, "Please provide a valid email address"
	}
	return true, ""
}

// ValidateUsername validates username length and character set
func (r *RegisterRequest) ValidateUsername() (bool, string) {
	if len(r.Username) < 3 {
		return false, "Username must be at least 3 characters"
	}
	if len(r.Username) > 30 {
		return false, "Username must be at most 30 characters"
	}
	if !usernameRegex.MatchString(r.Username) {
		return false, "Username can only contain letters, numbers, and underscores"
	}
	return true, ""
}

// ValidatePassword validates password strength requirements:
// - At least 8 characters
// - At least one uppercase letter
// - At least one digit
// - At least one special character from !@#$%^&*
func (r *RegisterRequest) ValidatePassword() (bool, string) {
	password := r.Password

	if len(password) < 8 {
		return false, "Password must be at least 8 characters"
	}

	var hasUpper, hasDigit, hasSpecial bool
	for _, c := range password {
		switch {
		case c >= 'A' && c <= 'Z':
			hasUpper = true
		case c >= '0' && c <= '9':
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, c):
			hasSpecial = true
		}
	}

	if !hasUpper || !hasDigit || !hasSpecial {
		return false, "Password must contain at least one uppercase letter, one number, and one special character (!@#$%^&*)"
	}

	return true, ""
}

// ValidateRole validates the requested role against the closed role set
func (r *RegisterRequest) ValidateRole() (bool, string) {
	switch r.Role {
	case "USER", "ADMIN", "MODERATOR":
		return true, ""
	}
	return false, "Role must be one of: USER, ADMIN, MODERATOR"
}

// LoginRequest represents login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest represents refresh token request
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// ResendVerificationRequest represents a resend-verification request
type ResendVerificationRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// MessageResponse is the generic message envelope returned by
// registration, logout, verification and resend operations.
type MessageResponse struct {
	Message string `json:"message"`
}

// UserResponse represents user data in responses. Password hash,
// refresh token hash and verification token are never included.
type UserResponse struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	Username        string `json:"username"`
	Role            string `json:"role"`
	IsEmailVerified bool   `json:"is_email_verified"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}
