// Package mailer delivers outbound email through SMTP or the Resend API.
package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/cppla/bloghub/config"
)

// ErrNotConfigured is returned when the selected provider lacks credentials.
var ErrNotConfigured = errors.New("mail provider not configured")

// Message is a plain-text email ready for delivery.
type Message struct {
	To      []string
	ReplyTo string
	Subject string
	Text    string
}

// Sender delivers a prepared message.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// NewSender builds the Sender selected by MAIL_PROVIDER.
func NewSender(cfg config.AppConfig) (Sender, error) {
	switch cfg.MailProvider {
	case "smtp", "":
		return NewSMTPSender(SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
			TLS:      cfg.SMTPTLS,
			Timeout:  cfg.MailTimeout(),
		}), nil
	case "resend":
		if cfg.ResendAPIKey == "" {
			return nil, fmt.Errorf("%w: RESEND_API_KEY is empty", ErrNotConfigured)
		}
		return NewResendSender(cfg.ResendAPIKey, cfg.SMTPFrom, cfg.SMTPFromName), nil
	}
	return nil, fmt.Errorf("unknown mail provider %q", cfg.MailProvider)
}
