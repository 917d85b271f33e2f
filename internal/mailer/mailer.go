package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/Varun5711/clubhouse/internal/config"
	"github.com/Varun5711/clubhouse/internal/logger"
	"gopkg.in/gomail.v2"
)

var passwordResetTemplate = template.Must(template.New("password_reset").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
  <h2>Password reset</h2>
  <p>Hello {{.Name}},</p>
  <p>Someone asked to reset the password of your club account. Follow the link below to choose a new one:</p>
  <p><a href="{{.Link}}">Reset my password</a></p>
  <p>The link works once and expires at {{.ExpiresAt}}.</p>
  <p>If you did not ask for this, you can ignore this email.</p>
</body>
</html>
`))

type passwordResetData struct {
	Name      string
	Link      string
	ExpiresAt string
}

// Mailer sends club emails over SMTP. Without SMTP server or user it only logs.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	log    *logger.Logger
}

func NewMailer(cfg config.SMTPConfig, log *logger.Logger) *Mailer {
	m := &Mailer{
		from: cfg.Sender,
		log:  log,
	}

	if cfg.Server == "" || cfg.User == "" {
		log.Warn("SMTP not configured, emails will be logged instead of sent")
		return m
	}

	m.dialer = gomail.NewDialer(cfg.Server, cfg.Port, cfg.User, cfg.Password)
	return m
}

func (m *Mailer) LogOnly() bool {
	return m.dialer == nil
}

func (m *Mailer) SendPasswordReset(ctx context.Context, to, name, link string, expiresAt time.Time) error {
	var body bytes.Buffer
	err := passwordResetTemplate.Execute(&body, passwordResetData{
		Name:      name,
		Link:      link,
		ExpiresAt: expiresAt.UTC().Format("2006-01-02 15:04 MST"),
	})
	if err != nil {
		return fmt.Errorf("failed to render password reset email: %w", err)
	}

	if m.LogOnly() {
		m.log.Info("Password reset for %s: %s", to, link)
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Reset your club password")
	msg.SetBody("text/html", body.String())

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}

	m.log.Info("Password reset email sent to %s", to)
	return nil
}
