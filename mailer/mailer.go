// CLAUDE:SUMMARY SMTP delivery of the digest with jordan-wright/email: plain text, file attachments, implicit TLS on 465.
// Package mailer delivers plain-text messages with file attachments over SMTP.
package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
)

// Message is one outbound email.
type Message struct {
	To          []string
	Subject     string
	Body        string
	Attachments []string // file paths, attached in full
}

// Config holds the SMTP account.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	FromName string
	Logger   *slog.Logger
}

func (c *Config) defaults() {
	if c.Host == "" {
		c.Host = "smtp.gmail.com"
	}
	if c.Port <= 0 {
		c.Port = 465
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// transport sends a built email. tlsCfg is non-nil for implicit TLS.
type transport func(e *email.Email, addr string, auth smtp.Auth, tlsCfg *tls.Config) error

func sendEmail(e *email.Email, addr string, auth smtp.Auth, tlsCfg *tls.Config) error {
	if tlsCfg != nil {
		return e.SendWithTLS(addr, auth, tlsCfg)
	}
	return e.Send(addr, auth)
}

// Mailer sends Messages through one SMTP account.
type Mailer struct {
	cfg  Config
	send transport
}

// New creates a Mailer.
func New(cfg Config) *Mailer {
	cfg.defaults()
	return &Mailer{cfg: cfg, send: sendEmail}
}

func (m *Mailer) from() string {
	if m.cfg.FromName == "" {
		return m.cfg.User
	}
	return fmt.Sprintf("%s <%s>", m.cfg.FromName, m.cfg.User)
}

func (m *Mailer) build(msg Message) (*email.Email, error) {
	e := email.NewEmail()
	e.From = m.from()
	e.To = msg.To
	e.Subject = msg.Subject
	e.Text = []byte(msg.Body)
	for _, p := range msg.Attachments {
		if _, err := e.AttachFile(p); err != nil {
			return nil, fmt.Errorf("mailer: attach %s: %w", p, err)
		}
	}
	return e, nil
}

// Send delivers msg. Port 465 uses implicit TLS; other ports use plain SMTP
// with STARTTLS when the server offers it, retrying without AUTH when the
// server does not support it.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e, err := m.build(msg)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)

	var tlsCfg *tls.Config
	if m.cfg.Port == 465 {
		tlsCfg = &tls.Config{ServerName: m.cfg.Host}
	}

	err = m.send(e, addr, auth, tlsCfg)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		m.cfg.Logger.Warn("mailer: server has no AUTH, retrying unauthenticated", "addr", addr)
		err = m.send(e, addr, nil, tlsCfg)
	}
	if err != nil {
		return fmt.Errorf("mailer: send via %s: %w", addr, err)
	}

	m.cfg.Logger.Info("mailer: sent", "to", strings.Join(msg.To, ","),
		"subject", msg.Subject, "attachments", len(msg.Attachments))
	return nil
}
