package notify

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// mapSettings is an in-memory Settings for tests.
type mapSettings map[string]string

func (m mapSettings) GetSetting(_ context.Context, key, fallback string) (string, error) {
	if v, ok := m[key]; ok {
		return v, nil
	}
	return fallback, nil
}

func clearNotifyEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PUSHOVER_APP_TOKEN", "PUSHOVER_USER_KEY",
		"SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASS", "SMTP_FROM", "SMTP_TO",
	} {
		t.Setenv(k, "")
	}
}

func TestResolvePushover(t *testing.T) {
	ctx := context.Background()

	t.Run("env wins over settings", func(t *testing.T) {
		clearNotifyEnv(t)
		t.Setenv("PUSHOVER_APP_TOKEN", "env-token")
		t.Setenv("PUSHOVER_USER_KEY", "env-user")

		cfg, err := ResolvePushover(ctx, mapSettings{
			"pushover_app_token": "db-token",
			"pushover_user_key":  "db-user",
		})
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		want := &PushoverConfig{AppToken: "env-token", UserKey: "env-user"}
		if diff := cmp.Diff(want, cfg); diff != "" {
			t.Errorf("config mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("settings fallback", func(t *testing.T) {
		clearNotifyEnv(t)
		cfg, err := ResolvePushover(ctx, mapSettings{
			"pushover_app_token": " db-token ",
			"pushover_user_key":  "db-user",
		})
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		want := &PushoverConfig{AppToken: "db-token", UserKey: "db-user"}
		if diff := cmp.Diff(want, cfg); diff != "" {
			t.Errorf("config mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("incomplete config disables channel", func(t *testing.T) {
		clearNotifyEnv(t)
		cfg, err := ResolvePushover(ctx, mapSettings{"pushover_app_token": "db-token"})
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if cfg != nil {
			t.Errorf("expected nil config, got %+v", cfg)
		}
	})
}

func TestResolveSMTP(t *testing.T) {
	ctx := context.Background()

	t.Run("env config", func(t *testing.T) {
		clearNotifyEnv(t)
		t.Setenv("SMTP_HOST", "smtp.test")
		t.Setenv("SMTP_PORT", "587")
		t.Setenv("SMTP_FROM", "alerts@test")
		t.Setenv("SMTP_TO", "you@test")

		cfg, err := ResolveSMTP(ctx, mapSettings{})
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		want := &SMTPConfig{Host: "smtp.test", Port: 587, From: "alerts@test", To: "you@test"}
		if diff := cmp.Diff(want, cfg); diff != "" {
			t.Errorf("config mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("settings fallback with optional credentials", func(t *testing.T) {
		clearNotifyEnv(t)
		cfg, err := ResolveSMTP(ctx, mapSettings{
			"smtp_host": "smtp.test",
			"smtp_port": "25",
			"smtp_from": "alerts@test",
			"smtp_to":   "you@test",
		})
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		want := &SMTPConfig{Host: "smtp.test", Port: 25, From: "alerts@test", To: "you@test"}
		if diff := cmp.Diff(want, cfg); diff != "" {
			t.Errorf("config mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("missing required field disables channel", func(t *testing.T) {
		clearNotifyEnv(t)
		cfg, err := ResolveSMTP(ctx, mapSettings{
			"smtp_host": "smtp.test",
			"smtp_port": "25",
			"smtp_from": "alerts@test",
		})
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if cfg != nil {
			t.Errorf("expected nil config, got %+v", cfg)
		}
	})

	t.Run("bad port disables channel", func(t *testing.T) {
		clearNotifyEnv(t)
		cfg, err := ResolveSMTP(ctx, mapSettings{
			"smtp_host": "smtp.test",
			"smtp_port": "not-a-port",
			"smtp_from": "alerts@test",
			"smtp_to":   "you@test",
		})
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if cfg != nil {
			t.Errorf("expected nil config, got %+v", cfg)
		}
	})
}

func TestChannels(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing configured yields no channels", func(t *testing.T) {
		clearNotifyEnv(t)
		chs, err := Channels(ctx, mapSettings{})
		if err != nil {
			t.Fatalf("channels: %v", err)
		}
		if len(chs) != 0 {
			t.Errorf("expected 0 channels, got %d", len(chs))
		}
	})

	t.Run("both configured", func(t *testing.T) {
		clearNotifyEnv(t)
		chs, err := Channels(ctx, mapSettings{
			"pushover_app_token": "tok",
			"pushover_user_key":  "usr",
			"smtp_host":          "smtp.test",
			"smtp_port":          "25",
			"smtp_from":          "alerts@test",
			"smtp_to":            "you@test",
		})
		if err != nil {
			t.Fatalf("channels: %v", err)
		}
		var names []string
		for _, ch := range chs {
			names = append(names, ch.Name())
		}
		if diff := cmp.Diff([]string{"pushover", "email"}, names); diff != "" {
			t.Errorf("channel names mismatch (-want +got):\n%s", diff)
		}
	})
}
