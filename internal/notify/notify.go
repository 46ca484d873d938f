// Package notify implements the notification channels and their
// configuration resolution.
package notify

import (
	"context"
	"os"
	"strconv"
	"strings"
)

// Channel delivers one notification. Channels are independently configured
// and independently failing: an error from one never affects another.
type Channel interface {
	Name() string
	Send(ctx context.Context, subject, message, link string) error
}

// Settings is the slice of the store the resolvers read fallback
// configuration from.
type Settings interface {
	GetSetting(ctx context.Context, key, fallback string) (string, error)
}

// PushoverConfig holds Pushover API credentials.
type PushoverConfig struct {
	AppToken string
	UserKey  string
}

// SMTPConfig holds mail relay settings. User and Pass are optional to
// support unauthenticated relays.
type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
	To   string
}

// ResolvePushover returns the Pushover configuration for this cycle, or nil
// when no complete configuration exists. Environment variables take
// precedence over stored settings.
func ResolvePushover(ctx context.Context, settings Settings) (*PushoverConfig, error) {
	token := strings.TrimSpace(os.Getenv("PUSHOVER_APP_TOKEN"))
	user := strings.TrimSpace(os.Getenv("PUSHOVER_USER_KEY"))
	if token != "" && user != "" {
		return &PushoverConfig{AppToken: token, UserKey: user}, nil
	}

	token, err := getTrimmed(ctx, settings, "pushover_app_token")
	if err != nil {
		return nil, err
	}
	user, err = getTrimmed(ctx, settings, "pushover_user_key")
	if err != nil {
		return nil, err
	}
	if token == "" || user == "" {
		return nil, nil
	}
	return &PushoverConfig{AppToken: token, UserKey: user}, nil
}

// ResolveSMTP returns the SMTP configuration for this cycle, or nil when no
// complete configuration exists. Host, port, from and to are required;
// credentials are optional. Environment variables take precedence over
// stored settings.
func ResolveSMTP(ctx context.Context, settings Settings) (*SMTPConfig, error) {
	if cfg := smtpFromEnv(); cfg != nil {
		return cfg, nil
	}

	host, err := getTrimmed(ctx, settings, "smtp_host")
	if err != nil {
		return nil, err
	}
	portStr, err := getTrimmed(ctx, settings, "smtp_port")
	if err != nil {
		return nil, err
	}
	user, err := getTrimmed(ctx, settings, "smtp_user")
	if err != nil {
		return nil, err
	}
	pass, err := settings.GetSetting(ctx, "smtp_pass", "")
	if err != nil {
		return nil, err
	}
	from, err := getTrimmed(ctx, settings, "smtp_from")
	if err != nil {
		return nil, err
	}
	to, err := getTrimmed(ctx, settings, "smtp_to")
	if err != nil {
		return nil, err
	}

	port, _ := strconv.Atoi(portStr)
	if host == "" || port == 0 || from == "" || to == "" {
		return nil, nil
	}
	return &SMTPConfig{Host: host, Port: port, User: user, Pass: pass, From: from, To: to}, nil
}

// Channels builds the configured notification channels for one poll cycle.
// An empty slice means every channel is skipped this cycle; that is not an
// error.
func Channels(ctx context.Context, settings Settings) ([]Channel, error) {
	var out []Channel

	push, err := ResolvePushover(ctx, settings)
	if err != nil {
		return nil, err
	}
	if push != nil {
		out = append(out, NewPushover(*push))
	}

	smtp, err := ResolveSMTP(ctx, settings)
	if err != nil {
		return nil, err
	}
	if smtp != nil {
		out = append(out, NewEmail(*smtp))
	}

	return out, nil
}

func smtpFromEnv() *SMTPConfig {
	host := strings.TrimSpace(os.Getenv("SMTP_HOST"))
	portStr := strings.TrimSpace(os.Getenv("SMTP_PORT"))
	from := strings.TrimSpace(os.Getenv("SMTP_FROM"))
	to := strings.TrimSpace(os.Getenv("SMTP_TO"))
	if host == "" || portStr == "" || from == "" || to == "" {
		return nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil
	}
	return &SMTPConfig{
		Host: host,
		Port: port,
		User: strings.TrimSpace(os.Getenv("SMTP_USER")),
		Pass: strings.TrimSpace(os.Getenv("SMTP_PASS")),
		From: from,
		To:   to,
	}
}

func getTrimmed(ctx context.Context, settings Settings, key string) (string, error) {
	v, err := settings.GetSetting(ctx, key, "")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(v), nil
}
