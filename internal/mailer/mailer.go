// Package mailer sends transactional mail to staff members, currently only
// the password-reset notification.
package mailer

import (
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Mailer delivers notifications to staff email addresses.
type Mailer interface {
	SendPasswordReset(to, fullName, tempPassword string) error
}

// SMTPConfig holds the outbound mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends mail through an SMTP relay via gomail.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
	log    *zap.Logger
}

func NewSMTPMailer(cfg SMTPConfig, log *zap.Logger) *SMTPMailer {
	if log == nil {
		log = zap.NewNop()
	}
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		log:    log,
	}
}

// SendPasswordReset mails a temporary password to the staff member. The
// account owner must change it on first login.
func (m *SMTPMailer) SendPasswordReset(to, fullName, tempPassword string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Your password has been reset")
	msg.SetBody("text/plain", fmt.Sprintf(
		"Hello %s,\n\nYour password has been reset. Your temporary password is:\n\n    %s\n\nPlease sign in and change it immediately.\n",
		fullName, tempPassword,
	))

	if err := m.dialer.DialAndSend(msg); err != nil {
		m.log.Error("failed to send password reset mail",
			zap.String("to", to),
			zap.Error(err),
		)
		return fmt.Errorf("failed to send password reset mail: %w", err)
	}
	return nil
}

// NoopMailer drops mail. Used in development and tests where no SMTP relay
// is configured.
type NoopMailer struct {
	log *zap.Logger
}

func NewNoopMailer(log *zap.Logger) *NoopMailer {
	if log == nil {
		log = zap.NewNop()
	}
	return &NoopMailer{log: log}
}

func (m *NoopMailer) SendPasswordReset(to, _, _ string) error {
	m.log.Info("mail delivery disabled, dropping password reset mail", zap.String("to", to))
	return nil
}
