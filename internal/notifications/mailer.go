package notifications

import (
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"LIBRA-backend/internal/platform/config"
)

// Mailer delivers one message per call. Implementations must treat every
// error as transient: the dispatcher records it and retries later.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer sends plain-text mail over SMTP. When no host is configured the
// mailer is disabled: sends are logged and reported as delivered, so a dev
// setup without an SMTP server still drains the queue.
type SMTPMailer struct {
	cfg config.MailConfig
	log *zap.Logger
}

func NewSMTPMailer(cfg config.MailConfig, log *zap.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, log: log}
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	if !m.cfg.Enabled() {
		m.log.Warn("smtp not configured; skip sending email", zap.String("to", to))
		return nil
	}

	from := m.cfg.From
	if from == "" {
		from = m.cfg.Username
	}

	msg := strings.Builder{}
	msg.WriteString("From: " + from + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	return smtp.SendMail(addr, auth, from, []string{to}, []byte(msg.String()))
}
