package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/prohmpiriya/auth-sentry/internal/domain"
)

var (
	// ErrInvalidToken indicates the token failed signature or shape validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired indicates a structurally valid token past its expiry.
	ErrTokenExpired = errors.New("token expired")
)

// Claims carries the signed claim set for both token classes.
type Claims struct {
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Config holds token codec configuration
type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// Codec signs and verifies the two token classes with independent secrets,
// so a leaked refresh secret cannot forge access tokens and vice versa.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
}

// NewCodec creates a new Codec
func NewCodec(cfg *Config) *Codec {
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &Codec{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
	}
}

// AccessTTL returns the configured access token lifetime.
func (c *Codec) AccessTTL() time.Duration {
	return c.accessTTL
}

// IssuePair signs a fresh access/refresh token pair for the user.
func (c *Codec) IssuePair(userID, email string, role domain.Role) (*domain.TokenPair, error) {
	accessToken, err := c.sign(userID, email, role, c.accessSecret, c.accessTTL)
	if err != nil {
		return nil, err
	}

	refreshToken, err := c.sign(userID, email, role, c.refreshSecret, c.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(c.accessTTL.Seconds()),
	}, nil
}

// VerifyAccess verifies an access token and returns its claims.
func (c *Codec) VerifyAccess(raw string) (*Claims, error) {
	return c.verify(raw, c.accessSecret)
}

// VerifyRefresh verifies a refresh token and returns its claims.
func (c *Codec) VerifyRefresh(raw string) (*Claims, error) {
	return c.verify(raw, c.refreshSecret)
}

func (c *Codec) sign(userID, email string, role domain.Role, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (c *Codec) verify(raw string, secret []byte) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
