package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/auth-sentry/internal/domain"
	"github.com/prohmpiriya/auth-sentry/internal/token"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestID_GeneratesNew(t *testing.T) {
	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)

	r.Use(RequestID())
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	r.ServeHTTP(w, req)

	headerID := w.Header().Get(RequestIDHeader)
	if headerID == "" {
		t.Error("Expected X-Request-ID header to be set")
	}
	if w.Body.String() != headerID {
		t.Errorf("Header ID (%s) should match body ID (%s)", headerID, w.Body.String())
	}
}

func TestRequestID_UsesExisting(t *testing.T) {
	existingID := "existing-request-id-123"

	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)

	r.Use(RequestID())
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, existingID)
	r.ServeHTTP(w, req)

	if w.Body.String() != existingID {
		t.Errorf("Expected existing ID %s, got %s", existingID, w.Body.String())
	}
}

func TestCORS_Preflight(t *testing.T) {
	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)

	r.Use(CORS())
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodOptions, "/test", nil)
	req.Header.Set("Origin", "http://example.com")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("Preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if w.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("Expected Access-Control-Allow-Methods header")
	}
}

func newRefreshRouter(codec *token.Codec) *gin.Engine {
	r := gin.New()
	r.POST("/refresh", RefreshGuard(codec), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": GetUserID(c),
			"token":   GetRefreshToken(c),
		})
	})
	return r
}

func TestRefreshGuard(t *testing.T) {
	codec := token.NewCodec(&token.Config{
		AccessSecret:  "access-test-secret",
		RefreshSecret: "refresh-test-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    time.Hour,
		Issuer:        "test",
	})
	r := newRefreshRouter(codec)

	t.Run("valid refresh token passes through", func(t *testing.T) {
		pair, err := codec.IssuePair("user-9", "a@example.com", domain.RoleUser)
		if err != nil {
			t.Fatalf("IssuePair() error = %v", err)
		}

		body, _ := json.Marshal(gin.H{"refreshToken": pair.RefreshToken})
		req := httptest.NewRequest(http.MethodPost, "/refresh", bytes.NewReader(body))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
		}

		var resp map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid response: %v", err)
		}
		if resp["user_id"] != "user-9" {
			t.Errorf("user_id = %q, want user-9", resp["user_id"])
		}
		if resp["token"] != pair.RefreshToken {
			t.Error("raw refresh token not propagated to handler")
		}
	})

	t.Run("access token rejected", func(t *testing.T) {
		pair, _ := codec.IssuePair("user-9", "a@example.com", domain.RoleUser)

		body, _ := json.Marshal(gin.H{"refreshToken": pair.AccessToken})
		req := httptest.NewRequest(http.MethodPost, "/refresh", bytes.NewReader(body))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("missing token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/refresh", bytes.NewReader([]byte(`{}`)))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("malformed body rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/refresh", bytes.NewReader([]byte(`not-json`)))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})
}

func TestRequireRoles(t *testing.T) {
	newRouter := func(role string, required ...domain.Role) *gin.Engine {
		r := gin.New()
		r.GET("/guarded", func(c *gin.Context) {
			if role != "" {
				c.Set(UserRoleKey, role)
			}
			c.Next()
		}, RequireRoles(required...), func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})
		return r
	}

	tests := []struct {
		name     string
		role     string
		required []domain.Role
		want     int
	}{
		{"admin passes admin gate", "ADMIN", []domain.Role{domain.RoleAdmin}, http.StatusOK},
		{"user blocked from admin gate", "USER", []domain.Role{domain.RoleAdmin}, http.StatusForbidden},
		{"moderator passes staff gate", "MODERATOR", []domain.Role{domain.RoleAdmin, domain.RoleModerator}, http.StatusOK},
		{"user blocked from staff gate", "USER", []domain.Role{domain.RoleAdmin, domain.RoleModerator}, http.StatusForbidden},
		{"missing role blocked", "", []domain.Role{domain.RoleAdmin}, http.StatusForbidden},
		{"case sensitive", "admin", []domain.Role{domain.RoleAdmin}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(tt.role, tt.required...)
			req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestRateLimiter_LocalWindow(t *testing.T) {
	rl := NewRateLimiter("test", 3, time.Minute, nil)
	r := gin.New()
	r.POST("/limited", rl.Middleware(), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	do := func() int {
		req := httptest.NewRequest(http.MethodPost, "/limited", nil)
		req.RemoteAddr = "10.1.2.3:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 3; i++ {
		if code := do(); code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, code)
		}
	}

	if code := do(); code != http.StatusTooManyRequests {
		t.Errorf("request over limit status = %d, want 429", code)
	}

	// A different client IP has its own window
	req := httptest.NewRequest(http.MethodPost, "/limited", nil)
	req.RemoteAddr = "10.9.9.9:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", w.Code)
	}
}

func TestRateLimiter_WindowReset(t *testing.T) {
	rl := NewRateLimiter("reset", 1, 30*time.Millisecond, nil)

	if allowed, _ := rl.allowLocal("1.2.3.4"); !allowed {
		t.Fatal("first request should be allowed")
	}
	if allowed, _ := rl.allowLocal("1.2.3.4"); allowed {
		t.Fatal("second request in window should be denied")
	}

	time.Sleep(40 * time.Millisecond)

	if allowed, _ := rl.allowLocal("1.2.3.4"); !allowed {
		t.Error("request after window reset should be allowed")
	}
}
