package dto

import "testing"

func TestRegisterRequest_ValidateEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  bool
	}{
		{"valid", "user@example.com", true},
		{"valid with plus", "user+tag@example.com", true},
		{"valid subdomain", "user@mail.example.co.uk", true},
		{"missing at", "userexample.com", false},
		{"missing domain", "user@", false},
		{"missing tld", "user@example", false},
		{"empty", "", false},
		{"spaces", "user @example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &RegisterRequest{Email: tt.email}
			got, _ := req.ValidateEmail()
			if got != tt.want {
				t.Errorf("ValidateEmail(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}

func TestRegisterRequest_ValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		want     bool
	}{
		{"valid", "user_123", true},
		{"minimum length", "abc", true},
		{"maximum length", "abcdefghijklmnopqrstuvwxyz0123", true},
		{"too short", "ab", false},
		{"too long", "abcdefghijklmnopqrstuvwxyz01234", false},
		{"hyphen rejected", "user-name", false},
		{"space rejected", "user name", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &RegisterRequest{Username: tt.username}
			got, _ := req.ValidateUsername()
			if got != tt.want {
				t.Errorf("ValidateUsername(%q) = %v, want %v", tt.username, got, tt.want)
			}
		})
	}
}

func TestRegisterRequest_ValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{"valid", "Password1!", true},
		{"all symbol choices", "Aa1!@#$%^&*", true},
		{"too short", "Pass1!", false},
		{"no uppercase", "password1!", false},
		{"no digit", "Password!!", false},
		{"no symbol", "Password11", false},
		{"symbol outside the set", "Password1?", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &RegisterRequest{Password: tt.password}
			got, _ := req.ValidatePassword()
			if got != tt.want {
				t.Errorf("ValidatePassword(%q) = %v, want %v", tt.password, got, tt.want)
			}
		})
	}
}

func TestRegisterRequest_ValidateRole(t *testing.T) {
	tests := []struct {
		role string
		want bool
	}{
		{"USER", true},
		{"ADMIN", true},
		{"MODERATOR", true},
		{"user", false},
		{"SUPERADMIN", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			req := &RegisterRequest{Role: tt.role}
			got, _ := req.ValidateRole()
			if got != tt.want {
				t.Errorf("ValidateRole(%q) = %v, want %v", tt.role, got, tt.want)
			}
		})
	}
}
