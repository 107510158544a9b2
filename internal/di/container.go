package di

import (
	"github.com/prohmpiriya/auth-sentry/internal/handler"
	"github.com/prohmpiriya/auth-sentry/internal/mail"
	"github.com/prohmpiriya/auth-sentry/internal/middleware"
	"github.com/prohmpiriya/auth-sentry/internal/password"
	"github.com/prohmpiriya/auth-sentry/internal/repository"
	"github.com/prohmpiriya/auth-sentry/internal/service"
	"github.com/prohmpiriya/auth-sentry/internal/token"
	"github.com/prohmpiriya/auth-sentry/pkg/config"
	"github.com/prohmpiriya/auth-sentry/pkg/database"
	pkgredis "github.com/prohmpiriya/auth-sentry/pkg/redis"
)

// Container holds all dependencies for the service
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *pkgredis.Client

	// Core components
	UserRepo   repository.UserRepository
	TokenCodec *token.Codec
	Hasher     password.Hasher
	Mailer     mail.Mailer

	// Services
	AuthService service.AuthService

	// Handlers
	HealthHandler *handler.HealthHandler
	AuthHandler   *handler.AuthHandler
	UserHandler   *handler.UserHandler

	// Middleware
	RateLimiters *middleware.EndpointLimiters
}

// NewContainer wires the whole dependency graph from configuration.
// redisClient may be nil when Redis is unavailable.
func NewContainer(cfg *config.Config, db *database.PostgresDB, redisClient *pkgredis.Client) *Container {
	c := &Container{
		DB:    db,
		Redis: redisClient,
	}

	c.UserRepo = repository.NewPostgresUserRepository(db.Pool())

	c.TokenCodec = token.NewCodec(&token.Config{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.AccessTokenTTL,
		RefreshTTL:    cfg.JWT.RefreshTokenTTL,
		Issuer:        cfg.JWT.Issuer,
	})

	c.Hasher = password.NewBcryptHasher()

	if cfg.Mail.DevMode {
		c.Mailer = mail.NewLogMailer(cfg.App.ClientURL)
	} else {
		c.Mailer = mail.NewSMTPMailer(&mail.Config{
			Host:      cfg.Mail.Host,
			Port:      cfg.Mail.Port,
			Username:  cfg.Mail.Username,
			Password:  cfg.Mail.Password,
			From:      cfg.Mail.From,
			ClientURL: cfg.App.ClientURL,
		})
	}

	c.AuthService = service.NewAuthService(c.UserRepo, c.TokenCodec, c.Hasher, c.Mailer)

	c.HealthHandler = handler.NewHealthHandler(c.DB, c.Redis)
	c.AuthHandler = handler.NewAuthHandler(c.AuthService)
	c.UserHandler = handler.NewUserHandler(c.AuthService)

	c.RateLimiters = middleware.NewEndpointLimiters(&cfg.RateLimit, redisClient)

	return c
}
