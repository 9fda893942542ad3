// Package notification delivers queued emails from the transactional
// outbox.  Delivery is decoupled from the request path: handlers only
// enqueue rows, and the dispatcher loop drains them with retries.
package notification

import (
	"fmt"
	"log"
	"net/smtp"
	"strings"
)

// Mailer sends a single plain-text email.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer delivers mail through a plain SMTP relay.  Credentials are
// optional; when Username is empty the mailer connects without AUTH,
// which matches a local relay such as postfix on the same host.
type SMTPMailer struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// NewSMTPMailer returns an SMTPMailer for the given relay.
func NewSMTPMailer(host, port, username, password, from string) *SMTPMailer {
	if port == "" {
		port = "587"
	}
	return &SMTPMailer{Host: host, Port: port, Username: username, Password: password, From: from}
}

// Send delivers one message.  The body is sent as text/plain UTF-8.
func (m *SMTPMailer) Send(to, subject, body string) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\r\n", m.From)
	fmt.Fprintf(&sb, "To: %s\r\n", to)
	fmt.Fprintf(&sb, "Subject: %s\r\n", subject)
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)

	addr := m.Host + ":" + m.Port
	var auth smtp.Auth
	if m.Username != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}
	if err := smtp.SendMail(addr, auth, m.From, []string{to}, []byte(sb.String())); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

// LogMailer writes messages to the process log instead of sending them.
// Used when no SMTP host is configured, typically in development.
type LogMailer struct{}

// Send logs the message and reports success.
func (LogMailer) Send(to, subject, body string) error {
	log.Printf("mailer (log only): to=%s subject=%q\n%s", to, subject, body)
	return nil
}
