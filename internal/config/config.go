package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Environment variables that override file settings.
const (
	EnvURL            = "GODOT_BRIDGE_URL"
	EnvCommandTimeout = "GODOT_BRIDGE_COMMAND_TIMEOUT"
)

// Editor contains the editor endpoint and per-command settings.
type Editor struct {
	URL            string `toml:"url"`
	ConnectTimeout string `toml:"connect_timeout"`
	CommandTimeout string `toml:"command_timeout"`
	PingInterval   string `toml:"ping_interval"`
	ReadLimitBytes int64  `toml:"read_limit_bytes"`
}

// Reconnect contains the backoff policy used after a disconnect.
type Reconnect struct {
	Enabled     bool   `toml:"enabled"`
	BaseDelay   string `toml:"base_delay"`
	MaxDelay    string `toml:"max_delay"`
	MaxAttempts int    `toml:"max_attempts"`
}

// Server contains settings for the MCP server exposed by "serve".
type Server struct {
	Name          string `toml:"name"`
	ForwardEvents bool   `toml:"forward_events"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the file configuration of the godot-bridge command.
type Config struct {
	Editor    Editor    `toml:"editor"`
	Reconnect Reconnect `toml:"reconnect"`
	Server    Server    `toml:"server"`
	Logging   Logging   `toml:"logging"`
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Editor: Editor{
			URL:            DefaultURL,
			ConnectTimeout: DefaultConnectTimeout.String(),
			CommandTimeout: DefaultCommandTimeout.String(),
		},
		Reconnect: Reconnect{
			Enabled:   true,
			BaseDelay: DefaultReconnectBaseDelay.String(),
			MaxDelay:  DefaultReconnectMaxDelay.String(),
		},
		Server: Server{
			Name:          defaultServerName,
			ForwardEvents: true,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}

const (
	defaultServerName = "godot-bridge"
	defaultLogLevel   = "info"
	defaultLogFormat  = "text"
)

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/godot-bridge/config.toml")
}

// Load locates, parses, and validates a configuration file.
//
// An empty path selects the default location. A missing file is not an
// error; defaults and environment overrides apply. Returns the config, the
// resolved path, and whether the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()

		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// CreateSample writes the commented sample configuration to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}

	return nil
}

// Options converts a validated Config into connection Options.
func (c *Config) Options(log *slog.Logger) (*Options, error) {
	opts := DefaultOptions()
	opts.Logger = log
	opts.URL = c.Editor.URL
	opts.AutoReconnect = c.Reconnect.Enabled
	opts.MaxReconnectAttempts = c.Reconnect.MaxAttempts
	opts.ReadLimit = c.Editor.ReadLimitBytes

	for _, d := range []struct {
		key    string
		value  string
		target *time.Duration
	}{
		{"editor.connect_timeout", c.Editor.ConnectTimeout, &opts.ConnectTimeout},
		{"editor.command_timeout", c.Editor.CommandTimeout, &opts.CommandTimeout},
		{"editor.ping_interval", c.Editor.PingInterval, &opts.PingInterval},
		{"reconnect.base_delay", c.Reconnect.BaseDelay, &opts.ReconnectBaseDelay},
		{"reconnect.max_delay", c.Reconnect.MaxDelay, &opts.ReconnectMaxDelay},
	} {
		if d.value == "" {
			continue
		}

		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.key, err)
		}

		*d.target = parsed
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	return opts, nil
}

// LogLevel returns the slog level named by Logging.Level.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return slog.LevelInfo
	}

	return level
}

func (c *Config) normalize() {
	if value, ok := os.LookupEnv(EnvURL); ok && strings.TrimSpace(value) != "" {
		c.Editor.URL = value
	}

	if value, ok := os.LookupEnv(EnvCommandTimeout); ok && strings.TrimSpace(value) != "" {
		c.Editor.CommandTimeout = value
	}

	c.Editor.URL = strings.TrimSpace(c.Editor.URL)
	if c.Editor.URL == "" {
		c.Editor.URL = DefaultURL
	}

	c.Editor.ConnectTimeout = strings.TrimSpace(c.Editor.ConnectTimeout)
	c.Editor.CommandTimeout = strings.TrimSpace(c.Editor.CommandTimeout)
	c.Editor.PingInterval = strings.TrimSpace(c.Editor.PingInterval)
	c.Reconnect.BaseDelay = strings.TrimSpace(c.Reconnect.BaseDelay)
	c.Reconnect.MaxDelay = strings.TrimSpace(c.Reconnect.MaxDelay)

	c.Server.Name = strings.TrimSpace(c.Server.Name)
	if c.Server.Name == "" {
		c.Server.Name = defaultServerName
	}

	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", false, err
		}

		path = defaultPath
	}

	expanded, err := ExpandPath(path)
	if err != nil {
		return "", false, err
	}

	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}

		return "", false, fmt.Errorf("stat config: %w", err)
	}

	if info.IsDir() {
		return "", false, fmt.Errorf("config path %q is a directory", expanded)
	}

	return expanded, true, nil
}

// ExpandPath resolves a leading ~ and returns an absolute, cleaned path.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}

	if rest, ok := strings.CutPrefix(pathValue, "~"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}

		switch {
		case rest == "":
			pathValue = home
		case rest[0] == '/' || rest[0] == '\\':
			pathValue = filepath.Join(home, rest[1:])
		}
	}

	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}

	return absolute, nil
}
