package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/godot-bridge-go/internal/transport"
)

func TestOptions_NormalizeFillsZeroValues(t *testing.T) {
	opts := &Options{CommandTimeout: 3 * time.Second}
	opts.Normalize()

	require.Equal(t, DefaultURL, opts.URL)
	require.Equal(t, 3*time.Second, opts.CommandTimeout)
	require.Equal(t, DefaultConnectTimeout, opts.ConnectTimeout)
	require.Equal(t, DefaultReconnectBaseDelay, opts.ReconnectBaseDelay)
	require.Equal(t, DefaultReconnectMaxDelay, opts.ReconnectMaxDelay)
	require.Equal(t, DefaultSweepInterval, opts.SweepInterval)
	require.False(t, opts.AutoReconnect)
	require.NoError(t, opts.Validate())
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Options)
		wantErr string
	}{
		{"defaults", func(*Options) {}, ""},
		{"empty url", func(o *Options) { o.URL = "" }, "must be set"},
		{"no host", func(o *Options) { o.URL = "ws://" }, "no host"},
		{"negative timeout", func(o *Options) { o.CommandTimeout = -time.Second }, "command timeout"},
		{"negative ping", func(o *Options) { o.PingInterval = -time.Second }, "ping interval"},
		{"inverted backoff", func(o *Options) { o.ReconnectMaxDelay = time.Millisecond }, "max delay"},
		{"negative attempts", func(o *Options) { o.MaxReconnectAttempts = -1 }, "attempts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(opts)

			err := opts.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)

				return
			}

			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

type stubDialer struct{ transport.Dialer }

func TestOptions_NewDialer(t *testing.T) {
	opts := DefaultOptions()

	ws, ok := opts.NewDialer(slog.Default()).(*transport.WebSocketDialer)
	require.True(t, ok)
	require.Equal(t, DefaultURL, ws.URL())

	stub := &stubDialer{}
	opts.Dialer = stub
	opts.URL = ""

	require.NoError(t, opts.Validate(), "an injected dialer does not need a URL")
	require.Same(t, stub, opts.NewDialer(slog.Default()))
}
