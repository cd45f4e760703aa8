package mailer

import (
	"fmt"
	"log"
	"net/smtp"
	"strings"

	"cinestack/config"
)

// Mailer sends plain-text mail over SMTP. Delivery is best-effort; every
// caller treats a send failure as non-fatal.
type Mailer struct {
	cfg config.SMTPConfig
}

// New creates a mailer. With no host configured, sends are logged and
// dropped.
func New(cfg config.SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

// Enabled reports whether outbound mail is configured.
func (m *Mailer) Enabled() bool {
	return strings.TrimSpace(m.cfg.Host) != ""
}

// Send delivers one plain-text message in the background. Failures are
// logged, never returned.
func (m *Mailer) Send(to, subject, body string) {
	if !m.Enabled() {
		log.Printf("[mailer] smtp not configured, dropping mail to %s (%q)", to, subject)
		return
	}

	go func() {
		if err := m.send(to, subject, body); err != nil {
			log.Printf("[mailer] send to %s failed: %v", to, err)
		}
	}()
}

func (m *Mailer) send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")

	return smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg))
}

// SendVerificationCode mails a short-lived numeric code.
func (m *Mailer) SendVerificationCode(to, purpose, code string) {
	subject := fmt.Sprintf("Your %s code", purpose)
	body := fmt.Sprintf("Your %s verification code is: %s\n\nIt expires in 10 minutes. If you did not request this, ignore this email.\n", purpose, code)
	m.Send(to, subject, body)
}
