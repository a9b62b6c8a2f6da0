package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"time"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := validateURL(c.Editor.URL); err != nil {
		return fmt.Errorf("editor.url: %w", err)
	}

	if err := c.validateDurations(); err != nil {
		return err
	}

	if c.Editor.ReadLimitBytes < 0 {
		return errors.New("editor.read_limit_bytes must not be negative")
	}

	if c.Reconnect.MaxAttempts < 0 {
		return errors.New("reconnect.max_attempts must not be negative")
	}

	if err := c.validateLogging(); err != nil {
		return err
	}

	return nil
}

func (c *Config) validateDurations() error {
	for _, d := range []struct {
		key      string
		value    string
		optional bool
	}{
		{"editor.connect_timeout", c.Editor.ConnectTimeout, false},
		{"editor.command_timeout", c.Editor.CommandTimeout, false},
		{"editor.ping_interval", c.Editor.PingInterval, true},
		{"reconnect.base_delay", c.Reconnect.BaseDelay, false},
		{"reconnect.max_delay", c.Reconnect.MaxDelay, false},
	} {
		if d.value == "" {
			if d.optional {
				continue
			}

			return fmt.Errorf("%s must be set", d.key)
		}

		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}

		if parsed < 0 || (parsed == 0 && !d.optional) {
			return fmt.Errorf("%s must be positive, got %s", d.key, d.value)
		}
	}

	return nil
}

func (c *Config) validateLogging() error {
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}

	if !slices.Contains([]string{"text", "json"}, c.Logging.Format) {
		return fmt.Errorf("logging.format must be text or json; got %q", c.Logging.Format)
	}

	return nil
}

func validateURL(raw string) error {
	if raw == "" {
		return errors.New("editor URL must be set")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse editor URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return fmt.Errorf("editor URL %q must use ws or wss", raw)
	}

	if u.Host == "" {
		return fmt.Errorf("editor URL %q has no host", raw)
	}

	return nil
}
