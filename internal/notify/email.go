package notify

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// sender abstracts gomail's dialer so tests can capture messages.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Email sends plain-text mail through an SMTP relay. Unlike Pushover, the
// mail fields carry no documented length limit and are sent untruncated.
type Email struct {
	cfg  SMTPConfig
	dial sender
}

// NewEmail creates an Email channel.
func NewEmail(cfg SMTPConfig) *Email {
	return &Email{
		cfg:  cfg,
		dial: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass),
	}
}

// Name identifies the channel in logs.
func (e *Email) Name() string { return "email" }

// Send delivers one message. The link is appended to the body.
func (e *Email) Send(_ context.Context, subject, message, link string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", e.cfg.From)
	m.SetHeader("To", e.cfg.To)
	m.SetHeader("Subject", subject)
	body := message
	if link != "" {
		body += "\n\n" + link
	}
	m.SetBody("text/plain", body)

	if err := e.dial.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
