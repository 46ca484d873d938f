package notify

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"gopkg.in/gomail.v2"
)

type captureSender struct {
	messages []*gomail.Message
	err      error
}

func (c *captureSender) DialAndSend(m ...*gomail.Message) error {
	c.messages = append(c.messages, m...)
	return c.err
}

func TestEmailSend(t *testing.T) {
	capture := &captureSender{}
	e := NewEmail(SMTPConfig{
		Host: "smtp.test", Port: 25,
		From: "alerts@test", To: "you@test",
	})
	e.dial = capture

	err := e.Send(context.Background(), "RSS Watcher: \"ransomware\" in Example", "Breaking news", "https://example.com/a")
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if len(capture.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(capture.messages))
	}
	m := capture.messages[0]

	if got := m.GetHeader("From"); len(got) != 1 || got[0] != "alerts@test" {
		t.Errorf("unexpected From header %v", got)
	}
	if got := m.GetHeader("To"); len(got) != 1 || got[0] != "you@test" {
		t.Errorf("unexpected To header %v", got)
	}

	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		t.Fatalf("write message: %v", err)
	}
	raw := buf.String()
	if !strings.Contains(raw, "Breaking news") {
		t.Error("body missing message text")
	}
	if !strings.Contains(raw, "https://example.com/a") {
		t.Error("body missing link")
	}
}

func TestEmailSendFailure(t *testing.T) {
	e := NewEmail(SMTPConfig{Host: "smtp.test", Port: 25, From: "a@test", To: "b@test"})
	e.dial = &captureSender{err: errors.New("relay refused")}

	if err := e.Send(context.Background(), "s", "m", ""); err == nil {
		t.Fatal("expected error from failing relay")
	}
}
