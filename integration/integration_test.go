//go:build integration

// Package integration runs the bridge against a real Godot editor with the
// MCP plugin enabled. Set GODOT_BRIDGE_URL to point at a non-default port.
package integration

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	godotbridge "github.com/wagiedev/godot-bridge-go"
)

func editorURL() string {
	if url := os.Getenv("GODOT_BRIDGE_URL"); url != "" {
		return url
	}

	return "ws://localhost:9080"
}

// skipIfEditorUnavailable skips the test if the error indicates no editor is listening.
func skipIfEditorUnavailable(t *testing.T, err error) {
	t.Helper()

	if _, ok := errors.AsType[*godotbridge.ConnectError](err); ok {
		t.Skipf("Godot editor not reachable at %s", editorURL())
	}
}

// connect returns a connected Connection that is closed when the test ends.
func connect(t *testing.T, opts ...godotbridge.Option) *godotbridge.Connection {
	t.Helper()

	opts = append([]godotbridge.Option{
		godotbridge.WithURL(editorURL()),
		godotbridge.WithConnectTimeout(5 * time.Second),
	}, opts...)

	conn, err := godotbridge.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := conn.Connect(ctx); err != nil {
		skipIfEditorUnavailable(t, err)
		t.Fatalf("Connect failed: %v", err)
	}

	return conn
}
