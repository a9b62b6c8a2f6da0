package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	godotbridge "github.com/wagiedev/godot-bridge-go"
	"github.com/wagiedev/godot-bridge-go/internal/config"
)

type globalFlags struct {
	config   string
	url      string
	logLevel string
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

// ensureConfig loads the config file once and applies flag overrides.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}

		if url := strings.TrimSpace(c.flags.url); url != "" {
			cfg.Editor.URL = url
		}
		if level := strings.TrimSpace(c.flags.logLevel); level != "" {
			cfg.Logging.Level = strings.ToLower(level)
		}

		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}

		c.config = cfg
		c.configPath = path
		c.configSeen = exists
	})
	return c.config, c.configErr
}

// logger builds the command logger. Logs always go to stderr so that stdout
// stays free for command output and the MCP stream.
func (c *commandContext) logger(cmd *cobra.Command) *slog.Logger {
	cfg, err := c.ensureConfig()
	if err != nil {
		return godotbridge.NopLogger()
	}
	return newLogger(cmd.ErrOrStderr(), cfg.LogLevel(), cfg.Logging.Format)
}

// withConnection opens a bridge connection configured from the config file,
// runs fn and closes the connection.
func (c *commandContext) withConnection(cmd *cobra.Command, fn func(context.Context, *godotbridge.Connection) error) error {
	conn, err := c.newConnection(cmd)
	if err != nil {
		return err
	}
	defer conn.Close()

	return fn(cmd.Context(), conn)
}

func (c *commandContext) newConnection(cmd *cobra.Command) (*godotbridge.Connection, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	opts, err := cfg.Options(c.logger(cmd))
	if err != nil {
		return nil, err
	}

	conn, err := godotbridge.New(godotbridge.WithOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("create connection: %w", err)
	}
	return conn, nil
}

func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: level}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
