// Package mailer sends outbound chapter mail over SMTP.
package mailer

import (
	"fmt"

	mail "github.com/go-mail/mail"
	"go.uber.org/zap"

	"github.com/nexus-chapter/backend/config"
)

// Mailer delivers email via SMTP. When no SMTP host is configured it logs
// the message instead, which keeps local development flowing.
type Mailer struct {
	cfg    config.EmailConfig
	logger *zap.Logger
}

// NewMailer creates a mailer from config.
func NewMailer(cfg config.EmailConfig, logger *zap.Logger) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailer{cfg: cfg, logger: logger}
}

// Send delivers one message with text and HTML alternatives.
func (m *Mailer) Send(to, subject, htmlBody, textBody string) error {
	if m.cfg.SMTPHost == "" {
		m.logger.Info("smtp not configured, logging email instead",
			zap.String("to", to), zap.String("subject", subject), zap.String("body", textBody))
		return nil
	}

	msg := mail.NewMessage()
	msg.SetAddressHeader("From", m.cfg.FromAddress, m.cfg.FromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	if textBody != "" {
		msg.SetBody("text/plain", textBody)
	}
	if htmlBody != "" {
		if textBody == "" {
			msg.SetBody("text/html", htmlBody)
		} else {
			msg.AddAlternative("text/html", htmlBody)
		}
	}

	d := mail.NewDialer(m.cfg.SMTPHost, m.cfg.SMTPPort, m.cfg.SMTPUser, m.cfg.SMTPPass)
	if err := d.DialAndSend(msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
