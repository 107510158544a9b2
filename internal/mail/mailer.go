package mail

import (
	"context"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"

	"github.com/prohmpiriya/auth-sentry/pkg/logger"
)

// Mailer delivers verification links out-of-band. Callers treat delivery as
// best-effort: failures are logged, never surfaced to the user.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, email, token string) error
}

// Config holds SMTP mailer configuration
type Config struct {
	Host      string
	Port      int
	Username  string
	Password  string
	From      string
	ClientURL string
}

// SMTPMailer implements Mailer over plain SMTP
type SMTPMailer struct {
	config *Config
}

// NewSMTPMailer creates a new SMTPMailer
func NewSMTPMailer(cfg *Config) *SMTPMailer {
	return &SMTPMailer{config: cfg}
}

// SendVerificationEmail sends the verification link for the given token.
func (m *SMTPMailer) SendVerificationEmail(ctx context.Context, email, token string) error {
	verifyURL := fmt.Sprintf("%s/verify-email?token=%s", m.config.ClientURL, token)

	msg := []byte("From: AuthApp <" + m.config.From + ">\r\n" +
		"To: " + email + "\r\n" +
		"Subject: Verify Your Email Address\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=\"UTF-8\"\r\n" +
		"\r\n" +
		verificationBody(verifyURL))

	addr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)
	auth := smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)

	if err := smtp.SendMail(addr, auth, m.config.From, []string{email}, msg); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}

func verificationBody(verifyURL string) string {
	return `<!DOCTYPE html>
<html lang="en">
<body style="margin:0;padding:0;background-color:#f4f4f7;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,sans-serif;">
  <table width="100%" cellpadding="0" cellspacing="0" style="background-color:#f4f4f7;padding:40px 0;">
    <tr><td align="center">
      <table width="560" cellpadding="0" cellspacing="0" style="background-color:#ffffff;border-radius:8px;">
        <tr><td style="background-color:#4f46e5;padding:32px;text-align:center;">
          <h1 style="color:#ffffff;margin:0;font-size:24px;">Email Verification</h1>
        </td></tr>
        <tr><td style="padding:40px 32px;">
          <p style="color:#333;font-size:16px;line-height:1.6;margin:0 0 16px;">
            Hi there! Thanks for signing up. Please verify your email address by clicking the button below.
          </p>
          <p style="color:#666;font-size:14px;line-height:1.6;margin:0 0 32px;">
            This link will expire once used. If you didn't create an account, you can safely ignore this email.
          </p>
          <table width="100%" cellpadding="0" cellspacing="0"><tr><td align="center">
            <a href="` + verifyURL + `" style="display:inline-block;background-color:#4f46e5;color:#ffffff;padding:14px 32px;text-decoration:none;border-radius:6px;font-size:16px;font-weight:600;">Verify Email Address</a>
          </td></tr></table>
          <p style="color:#999;font-size:12px;line-height:1.6;margin:32px 0 0;word-break:break-all;">
            If the button doesn't work, copy and paste this link into your browser:<br />
            <a href="` + verifyURL + `" style="color:#4f46e5;">` + verifyURL + `</a>
          </p>
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`
}

// LogMailer logs the verification link instead of sending it. Used in
// development when SMTP is not configured.
type LogMailer struct {
	clientURL string
}

// NewLogMailer creates a new LogMailer
func NewLogMailer(clientURL string) *LogMailer {
	return &LogMailer{clientURL: clientURL}
}

func (m *LogMailer) SendVerificationEmail(ctx context.Context, email, token string) error {
	logger.Get().Info("verification email (log mailer)",
		zap.String("email", email),
		zap.String("verify_url", fmt.Sprintf("%s/verify-email?token=%s", m.clientURL, token)),
	)
	return nil
}
