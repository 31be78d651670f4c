// Package mail implements the engine's Mailer interface. The SendGrid
// sender covers production; the log sender covers development setups
// without an API key.
package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/pw2712gz/auth-backend/internal/logging"
)

// SendGridConfig holds the SendGrid credentials and sender identity.
type SendGridConfig struct {
	Key      string
	From     string
	FromName string
}

// SendGridMailer delivers notifications through the SendGrid v3 API.
type SendGridMailer struct {
	config SendGridConfig
	client *sendgrid.Client
}

// NewSendGridMailer validates cfg and returns a ready mailer.
func NewSendGridMailer(cfg SendGridConfig) (*SendGridMailer, error) {
	if cfg.Key == "" || cfg.From == "" {
		return nil, errors.New("sendgrid key and from address are required")
	}
	if cfg.FromName == "" {
		cfg.FromName = "Auth"
	}
	return &SendGridMailer{
		config: cfg,
		client: sendgrid.NewSendClient(cfg.Key),
	}, nil
}

func (m *SendGridMailer) SendWelcome(ctx context.Context, to, name string) error {
	body := fmt.Sprintf("Hi %s,\n\nYour account has been created. Welcome aboard!", name)
	return m.send(ctx, to, name, "Welcome", body)
}

func (m *SendGridMailer) SendPasswordReset(ctx context.Context, to, name, resetLink string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nA password reset was requested for your account. "+
			"The link below is valid for 15 minutes and can be used once:\n\n%s\n\n"+
			"If you did not request this, you can ignore this message.",
		name, resetLink,
	)
	return m.send(ctx, to, name, "Reset your password", body)
}

func (m *SendGridMailer) SendPasswordChanged(ctx context.Context, to, name string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nYour password was just changed. "+
			"If this was not you, request a new reset immediately.",
		name,
	)
	return m.send(ctx, to, name, "Your password was changed", body)
}

func (m *SendGridMailer) send(ctx context.Context, to, toName, subject, body string) error {
	from := sgmail.NewEmail(m.config.FromName, m.config.From)
	recipient := sgmail.NewEmail(toName, to)
	message := sgmail.NewSingleEmailPlainText(from, subject, recipient, body)

	response, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 300 {
		return fmt.Errorf("sendgrid rejected message, status code %d", response.StatusCode)
	}
	return nil
}

// LogMailer writes would-be deliveries to the logger instead of sending.
type LogMailer struct {
	Logger logging.Logger
}

func (m *LogMailer) SendWelcome(ctx context.Context, to, name string) error {
	m.log(ctx, "welcome", to, name)
	return nil
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, to, name, resetLink string) error {
	m.log(ctx, "password_reset", to, name, "link", resetLink)
	return nil
}

func (m *LogMailer) SendPasswordChanged(ctx context.Context, to, name string) error {
	m.log(ctx, "password_changed", to, name)
	return nil
}

func (m *LogMailer) log(ctx context.Context, kind, to, name string, extra ...any) {
	if m.Logger == nil {
		return
	}
	args := append([]any{"kind", kind, "to", to, "name", name}, extra...)
	m.Logger.Info(ctx, "mail suppressed", args...)
}
