// Package mail delivers transactional email. Only magic login links
// use it today.
package mail

import (
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/voxlink/voxlink/config"
)

type Mailer interface {
	SendMagicLink(to, link string) error
}

// SMTPMailer speaks plain SMTP with AUTH. When no host is configured
// it logs the link instead of sending, which keeps local development
// working without a relay.
type SMTPMailer struct {
	cfg    *config.SMTPConfig
	logger *zap.Logger
}

func NewSMTPMailer(cfg *config.SMTPConfig, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, logger: logger}
}

func (m *SMTPMailer) SendMagicLink(to, link string) error {
	if m.cfg.Host == "" {
		m.logger.Info("smtp not configured, magic link not sent",
			zap.String("to", to), zap.String("link", link))
		return nil
	}

	msg := buildMagicLinkMessage(m.cfg.From, to, link)
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
		m.logger.Error("failed to send magic link email",
			zap.String("to", to), zap.Error(err))
		return fmt.Errorf("send magic link: %w", err)
	}
	return nil
}

func buildMagicLinkMessage(from, to, link string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	b.WriteString("Subject: Your sign-in link\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Click the link below to sign in. It expires soon and works once.\r\n\r\n%s\r\n", link)
	return []byte(b.String())
}
