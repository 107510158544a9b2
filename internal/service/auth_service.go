package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/prohmpiriya/auth-sentry/internal/domain"
	"github.com/prohmpiriya/auth-sentry/internal/dto"
	"github.com/prohmpiriya/auth-sentry/internal/mail"
	"github.com/prohmpiriya/auth-sentry/internal/metrics"
	"github.com/prohmpiriya/auth-sentry/internal/password"
	"github.com/prohmpiriya/auth-sentry/internal/repository"
	"github.com/prohmpiriya/auth-sentry/internal/token"
	"github.com/prohmpiriya/auth-sentry/pkg/logger"
	"github.com/prohmpiriya/auth-sentry/pkg/telemetry"
)

var (
	ErrUserAlreadyExists  = errors.New("email or username already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrAccessDenied       = errors.New("access denied")
	ErrTokenReuseDetected = errors.New("refresh token reuse detected")
	ErrInvalidVerifyToken = errors.New("invalid or expired verification token")
	ErrUserNotFound       = errors.New("user not found")
)

// Response messages. Login/resend/refresh messages are deliberately generic
// so callers cannot enumerate accounts; the two verifyEmail successes differ
// only in text, never in status.
const (
	msgRegistered      = "Registration successful. Please check your email."
	msgLoggedOut       = "Logged out successfully"
	msgVerified        = "Email verified successfully."
	msgAlreadyVerified = "Email is already verified."
	msgResendGeneric   = "If that email exists and is unverified, a new link has been sent."
)

// AuthService defines the interface for authentication operations
type AuthService interface {
	// Register creates an unverified account and dispatches a verification link
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.MessageResponse, error)
	// Login authenticates credentials and issues a fresh token pair
	Login(ctx context.Context, req *dto.LoginRequest) (*domain.TokenPair, error)
	// RefreshTokens rotates the refresh token, enforcing single-use
	RefreshTokens(ctx context.Context, userID, refreshToken string) (*domain.TokenPair, error)
	// Logout clears the refresh-token slot; idempotent
	Logout(ctx context.Context, userID string) (*dto.MessageResponse, error)
	// VerifyEmail consumes a single-use verification token
	VerifyEmail(ctx context.Context, verifyToken string) (*dto.MessageResponse, error)
	// ResendVerificationEmail reissues the verification link without revealing
	// whether the account exists
	ResendVerificationEmail(ctx context.Context, email string) (*dto.MessageResponse, error)
	// ValidateAccessToken validates an access token and returns its claims
	ValidateAccessToken(ctx context.Context, raw string) (*domain.Claims, error)
	// GetUser retrieves a user by ID
	GetUser(ctx context.Context, id string) (*domain.User, error)
	// ListUsers retrieves all users, newest first
	ListUsers(ctx context.Context) ([]*domain.User, error)
}

// authService implements AuthService
type authService struct {
	userRepo repository.UserRepository
	codec    *token.Codec
	hasher   password.Hasher
	mailer   mail.Mailer
}

// NewAuthService creates a new AuthService
func NewAuthService(
	userRepo repository.UserRepository,
	codec *token.Codec,
	hasher password.Hasher,
	mailer mail.Mailer,
) AuthService {
	return &authService{
		userRepo: userRepo,
		codec:    codec,
		hasher:   hasher,
		mailer:   mailer,
	}
}

// Register creates an unverified account and dispatches a verification link
func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.MessageResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.register")
	defer span.End()

	exists, err := s.userRepo.ExistsByEmailOrUsername(ctx, req.Email, req.Username)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if exists {
		span.SetStatus(codes.Error, "user already exists")
		return nil, ErrUserAlreadyExists
	}

	verifyToken := uuid.NewString()

	hashedPassword, err := s.hasher.Hash(req.Password, password.PasswordCost)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	now := time.Now()
	user := &domain.User{
		ID:               uuid.NewString(),
		Email:            req.Email,
		Username:         req.Username,
		PasswordHash:     hashedPassword,
		Role:             domain.Role(req.Role),
		IsEmailVerified:  false,
		EmailVerifyToken: &verifyToken,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// Another registration may have won the uniqueness race after the
		// exists check; the constraint is authoritative.
		if errors.Is(err, repository.ErrDuplicate) {
			span.SetStatus(codes.Error, "user already exists")
			return nil, ErrUserAlreadyExists
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	metrics.RegistrationsTotal.Inc()
	span.SetAttributes(attribute.String("user_id", user.ID))
	span.SetStatus(codes.Ok, "")

	// The account creation is the durable side effect; the email is
	// best-effort and must not block or fail the response.
	s.dispatchVerificationEmail(user.Email, verifyToken)

	return &dto.MessageResponse{Message: msgRegistered}, nil
}

// Login authenticates credentials and issues a fresh token pair
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*domain.TokenPair, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.login")
	defer span.End()

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// Always run a full-cost comparison. When no account matches the email,
	// compare against a fixed dummy hash so the unknown-email and
	// wrong-password branches take the same time and codepath.
	storedHash := password.DummyHash
	if user != nil {
		storedHash = user.PasswordHash
	}
	passwordValid := s.hasher.Compare(storedHash, req.Password)

	if user == nil || !passwordValid {
		metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		span.SetStatus(codes.Error, "invalid credentials")
		return nil, ErrInvalidCredentials
	}

	if !user.IsEmailVerified {
		metrics.LoginsTotal.WithLabelValues("unverified").Inc()
		span.SetStatus(codes.Error, "email not verified")
		return nil, ErrEmailNotVerified
	}

	pair, err := s.codec.IssuePair(user.ID, user.Email, user.Role)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// Overwriting the single slot invalidates any prior outstanding
	// refresh token for this account.
	if err := s.storeRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	span.SetAttributes(attribute.String("user_id", user.ID))
	span.SetStatus(codes.Ok, "")
	return pair, nil
}

// RefreshTokens rotates the refresh token, enforcing single-use
func (s *authService) RefreshTokens(ctx context.Context, userID, refreshToken string) (*domain.TokenPair, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.refresh_tokens")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", userID))

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if user == nil || user.RefreshTokenHash == nil {
		metrics.RefreshTotal.WithLabelValues("denied").Inc()
		span.SetStatus(codes.Error, "no active session")
		return nil, ErrAccessDenied
	}

	if !s.hasher.Compare(*user.RefreshTokenHash, refreshToken) {
		// The presented token doesn't match the single active slot: the real
		// token was already rotated, so either an attacker is replaying an
		// old token or the client desynchronized. Fail closed and terminate
		// the whole session.
		return nil, s.terminateOnReuse(ctx, span, userID)
	}

	pair, err := s.codec.IssuePair(user.ID, user.Email, user.Role)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	newHash, err := s.hasher.Hash(pair.RefreshToken, password.RefreshTokenCost)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// Conditional swap closes the window where two refreshes race on the
	// same slot: the loser observes a changed hash and takes the
	// reuse-detected path.
	swapped, err := s.userRepo.SwapRefreshTokenHash(ctx, user.ID, *user.RefreshTokenHash, &newHash)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !swapped {
		return nil, s.terminateOnReuse(ctx, span, userID)
	}

	metrics.RefreshTotal.WithLabelValues("success").Inc()
	span.SetStatus(codes.Ok, "")
	return pair, nil
}

// Logout clears the refresh-token slot; idempotent
func (s *authService) Logout(ctx context.Context, userID string) (*dto.MessageResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.logout")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", userID))

	if err := s.userRepo.UpdateRefreshTokenHash(ctx, userID, nil); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return &dto.MessageResponse{Message: msgLoggedOut}, nil
}

// VerifyEmail consumes a single-use verification token
func (s *authService) VerifyEmail(ctx context.Context, verifyToken string) (*dto.MessageResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.verify_email")
	defer span.End()

	user, err := s.userRepo.GetByVerifyToken(ctx, verifyToken)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if user == nil {
		// Consumed tokens are cleared on success, so reuse reads as not found.
		span.SetStatus(codes.Error, "token not found")
		return nil, ErrInvalidVerifyToken
	}

	if user.IsEmailVerified {
		span.SetStatus(codes.Ok, "already verified")
		return &dto.MessageResponse{Message: msgAlreadyVerified}, nil
	}

	if err := s.userRepo.MarkEmailVerified(ctx, user.ID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("user_id", user.ID))
	span.SetStatus(codes.Ok, "")
	return &dto.MessageResponse{Message: msgVerified}, nil
}

// ResendVerificationEmail reissues the verification link. The response is
// byte-identical whether the account exists, is unverified, or is already
// verified.
func (s *authService) ResendVerificationEmail(ctx context.Context, email string) (*dto.MessageResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.resend_verification")
	defer span.End()

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if user != nil && !user.IsEmailVerified {
		newToken := uuid.NewString()
		if err := s.userRepo.UpdateVerifyToken(ctx, user.ID, newToken); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		s.dispatchVerificationEmail(email, newToken)
	}

	span.SetStatus(codes.Ok, "")
	return &dto.MessageResponse{Message: msgResendGeneric}, nil
}

// ValidateAccessToken validates an access token and returns its claims
func (s *authService) ValidateAccessToken(ctx context.Context, raw string) (*domain.Claims, error) {
	_, span := telemetry.StartSpan(ctx, "service.auth.validate_token")
	defer span.End()

	claims, err := s.codec.VerifyAccess(raw)
	if err != nil {
		span.SetStatus(codes.Error, "invalid token")
		return nil, err
	}

	span.SetAttributes(attribute.String("user_id", claims.Subject))
	span.SetStatus(codes.Ok, "")
	return &domain.Claims{
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}

// GetUser retrieves a user by ID
func (s *authService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.get_user")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", id))

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return user, nil
}

// ListUsers retrieves all users, newest first
func (s *authService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.list_users")
	defer span.End()

	users, err := s.userRepo.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return users, nil
}

// terminateOnReuse nulls the refresh slot and reports reuse. Clearing the
// slot is best-effort on top of an already fail-closed decision.
func (s *authService) terminateOnReuse(ctx context.Context, span trace.Span, userID string) error {
	if err := s.userRepo.UpdateRefreshTokenHash(ctx, userID, nil); err != nil {
		logger.Get().Error("failed to clear refresh token on reuse",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
	metrics.ReuseDetectedTotal.Inc()
	metrics.RefreshTotal.WithLabelValues("reuse_detected").Inc()
	span.SetStatus(codes.Error, "refresh token reuse detected")
	return ErrTokenReuseDetected
}

// storeRefreshToken hashes and persists the refresh token into the single
// session slot, overwriting whatever was there.
func (s *authService) storeRefreshToken(ctx context.Context, userID, refreshToken string) error {
	hash, err := s.hasher.Hash(refreshToken, password.RefreshTokenCost)
	if err != nil {
		return err
	}
	return s.userRepo.UpdateRefreshTokenHash(ctx, userID, &hash)
}

// dispatchVerificationEmail sends the verification link without blocking the
// caller. Failures are logged, never propagated: the account mutation has
// already been committed.
func (s *authService) dispatchVerificationEmail(email, verifyToken string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.mailer.SendVerificationEmail(ctx, email, verifyToken); err != nil {
			metrics.VerificationEmailsTotal.WithLabelValues("failed").Inc()
			logger.Get().Error("failed to send verification email",
				zap.String("email", email),
				zap.Error(err),
			)
			return
		}
		metrics.VerificationEmailsTotal.WithLabelValues("sent").Inc()
	}()
}
