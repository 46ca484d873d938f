package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const pushoverAPIURL = "https://api.pushover.net/1/messages.json"

// Pushover API hard limits on field lengths.
const (
	pushoverTitleMax   = 250
	pushoverMessageMax = 1024
	pushoverURLMax     = 500
)

// Pushover sends push notifications through the Pushover message API.
type Pushover struct {
	cfg    PushoverConfig
	client *resty.Client
	apiURL string
}

// NewPushover creates a Pushover channel.
func NewPushover(cfg PushoverConfig) *Pushover {
	return &Pushover{
		cfg:    cfg,
		client: resty.New().SetTimeout(15 * time.Second),
		apiURL: pushoverAPIURL,
	}
}

// Name identifies the channel in logs.
func (p *Pushover) Name() string { return "pushover" }

// Send posts one message. Fields are truncated to the API's documented
// limits before sending.
func (p *Pushover) Send(ctx context.Context, subject, message, link string) error {
	resp, err := p.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"token":     p.cfg.AppToken,
			"user":      p.cfg.UserKey,
			"title":     truncate(subject, pushoverTitleMax),
			"message":   truncate(message, pushoverMessageMax),
			"url":       truncate(link, pushoverURLMax),
			"url_title": "Open item",
		}).
		Post(p.apiURL)
	if err != nil {
		return fmt.Errorf("post pushover message: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("pushover returned status %d: %s", resp.StatusCode(), resp.Body())
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
