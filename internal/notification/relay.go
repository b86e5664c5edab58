package notification

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPConfig holds SMTP connection settings for the email relay.
type SMTPConfig struct {
	Host string
	Port string
	User string
	Pass string
	From string
}

// IsConfigured returns true if SMTP settings are present.
func (c SMTPConfig) IsConfigured() bool {
	return c.Host != "" && c.From != ""
}

// Relay forwards stored notifications to per-role email addresses. Delivery
// is best-effort: the notification row is the source of truth and a relay
// failure never fails the operation that created it.
type Relay struct {
	cfg        SMTPConfig
	recipients map[Role]string
}

// NewRelay creates a relay. Roles with no address are skipped at delivery.
func NewRelay(cfg SMTPConfig, securityEmail, adminEmail string) *Relay {
	recipients := make(map[Role]string)
	if securityEmail != "" {
		recipients[RoleSecurity] = securityEmail
	}
	if adminEmail != "" {
		recipients[RoleAdmin] = adminEmail
	}
	return &Relay{cfg: cfg, recipients: recipients}
}

// Deliver sends the notification to its role's address, if configured.
func (r *Relay) Deliver(n *Notification) error {
	if !r.cfg.IsConfigured() {
		return nil
	}
	to, ok := r.recipients[n.Role]
	if !ok {
		return nil
	}

	body := n.Body
	if n.VisitCode != "" {
		body += fmt.Sprintf("\n\nVisit code: %s", n.VisitCode)
	}
	return send(r.cfg, []string{to}, fmt.Sprintf("[karibu %s] %s", n.Level, n.Title), body)
}

// send sends an email via SMTP.
// Supports both port 465 (implicit TLS) and port 587 (STARTTLS).
func send(cfg SMTPConfig, to []string, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		cfg.From,
		strings.Join(to, ", "),
		subject,
		body,
	)

	addr := cfg.Host + ":" + cfg.Port

	if cfg.Port == "465" {
		return sendImplicitTLS(cfg, addr, to, msg)
	}
	return sendSTARTTLS(cfg, addr, to, msg)
}

// sendImplicitTLS connects over TLS directly (port 465/SMTPS).
func sendImplicitTLS(cfg SMTPConfig, addr string, to []string, msg string) error {
	tlsCfg := &tls.Config{ServerName: cfg.Host}
	conn, err := tls.Dial("tcp", addr, tlsCfg)
	if err != nil {
		return fmt.Errorf("TLS dial: %w", err)
	}

	c, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer func() {
		if quitErr := c.Quit(); quitErr != nil {
			err = fmt.Errorf("quit: %w", quitErr)
		}
	}()

	if cfg.User != "" {
		auth := smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err := c.Mail(cfg.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt to %s: %w", rcpt, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close data: %w", err)
	}

	return nil
}

// sendSTARTTLS connects plain then upgrades to TLS (port 587).
func sendSTARTTLS(cfg SMTPConfig, addr string, to []string, msg string) error {
	var auth smtp.Auth
	if cfg.User != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, cfg.From, to, []byte(msg)); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}
