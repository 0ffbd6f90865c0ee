// Package mail sends transactional email over SMTP.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer delivers messages through a single SMTP endpoint.
type Mailer struct {
	addr     string
	host     string
	username string
	password string
	from     string
}

// NewMailer constructs a Mailer. Empty username disables AUTH, which
// suits local development relays like Mailpit.
func NewMailer(host string, port int, username, password, from string) *Mailer {
	return &Mailer{
		addr:     fmt.Sprintf("%s:%d", host, port),
		host:     host,
		username: username,
		password: password,
		from:     from,
	}
}

// Send delivers one plain-text message.
func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	msg := buildMessage(m.from, to, subject, body)
	if err := smtp.SendMail(m.addr, auth, m.from, []string{to}, msg); err != nil {
		return fmt.Errorf("mail: send to %s: %w", to, err)
	}
	return nil
}

// SendResetPassword emails a password reset code.
func (m *Mailer) SendResetPassword(ctx context.Context, to, code string) error {
	subject, body := ResetPasswordMessage(code)
	return m.Send(ctx, to, subject, body)
}

// SendVerification emails an account verification code.
func (m *Mailer) SendVerification(ctx context.Context, to, code string) error {
	subject, body := VerificationMessage(code)
	return m.Send(ctx, to, subject, body)
}

// ResetPasswordMessage composes the password reset email.
func ResetPasswordMessage(code string) (subject, body string) {
	return "Password reset code",
		fmt.Sprintf("Your password reset code is %s.\n\nIt expires shortly. If you did not request a reset, ignore this message.\n", code)
}

// VerificationMessage composes the account verification email.
func VerificationMessage(code string) (subject, body string) {
	return "Verify your email",
		fmt.Sprintf("Your verification code is %s.\n\nIt expires shortly.\n", code)
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
