package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// SMTPSender delivers messages over authenticated SMTP. The sender address
// doubles as the SMTP username, matching how app-password providers like
// Gmail authenticate.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
}

var _ Sender = (*SMTPSender)(nil)

func NewSMTPSender(host string, port int, username, password string) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	// gomail dials synchronously without context support, so at least
	// honor an already-cancelled run before connecting
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTMLBody)

	dialer := gomail.NewDialer(s.host, s.port, s.username, s.password)
	if err := dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
