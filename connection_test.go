package godotbridge_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	godotbridge "github.com/wagiedev/godot-bridge-go"
	"github.com/wagiedev/godot-bridge-go/internal/editortest"
)

func TestNew_Defaults(t *testing.T) {
	conn, err := godotbridge.New()
	require.NoError(t, err)

	defer conn.Close()

	st := conn.Status()
	require.Equal(t, godotbridge.StateDisconnected, st.State)
	require.Equal(t, "ws://localhost:9080", st.URL)
	require.False(t, conn.IsConnected())
}

func TestNew_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts []godotbridge.Option
	}{
		{"bad scheme", []godotbridge.Option{godotbridge.WithURL("ftp://localhost:9080")}},
		{"backoff cap below base", []godotbridge.Option{godotbridge.WithReconnectBackoff(time.Second, time.Millisecond)}},
		{"negative attempts", []godotbridge.Option{godotbridge.WithMaxReconnectAttempts(-1)}},
		{"negative ping", []godotbridge.Option{godotbridge.WithPingInterval(-time.Second)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, err := godotbridge.New(tt.opts...)
			require.Error(t, err)
			require.Nil(t, conn)
		})
	}
}

func TestWithConnection_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := godotbridge.WithConnection(ctx, func(*godotbridge.Connection) error {
		t.Error("callback should not be called with cancelled context")

		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestWithConnection_RoundTrip(t *testing.T) {
	editor := editortest.NewServer()
	defer editor.Close()

	editor.Reply("run_project", map[string]any{"scene_path": "res://main.tscn"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var conn *godotbridge.Connection

	err := godotbridge.WithConnection(ctx, func(c *godotbridge.Connection) error {
		conn = c

		require.True(t, c.IsConnected())

		res, err := c.SendCommand(ctx, "run_project", nil, godotbridge.WithTimeout(time.Second))
		if err != nil {
			return err
		}

		payload, err := res.Map()
		if err != nil {
			return err
		}

		require.Equal(t, "res://main.tscn", payload["scene_path"])

		return nil
	}, godotbridge.WithURL(editor.URL()), godotbridge.WithLogger(godotbridge.NopLogger()))
	require.NoError(t, err)

	// Closed on return.
	_, err = conn.SendCommand(ctx, "ping", nil)
	require.ErrorIs(t, err, godotbridge.ErrClosed)
}

func TestWithConnection_CallbackError(t *testing.T) {
	editor := editortest.NewServer()
	defer editor.Close()

	want := errors.New("callback failed")

	err := godotbridge.WithConnection(context.Background(), func(*godotbridge.Connection) error {
		return want
	}, godotbridge.WithURL(editor.URL()))
	require.ErrorIs(t, err, want)
}

func TestWithConnection_EditorUnavailable(t *testing.T) {
	editor := editortest.NewServer()
	url := editor.URL()
	editor.Close()

	err := godotbridge.WithConnection(context.Background(), func(*godotbridge.Connection) error {
		t.Error("callback should not be called without a connection")

		return nil
	}, godotbridge.WithURL(url), godotbridge.WithConnectTimeout(time.Second))

	require.ErrorIs(t, err, godotbridge.ErrNotConnected)

	connectErr, ok := errors.AsType[*godotbridge.ConnectError](err)
	require.True(t, ok)
	require.Equal(t, url, connectErr.URL)
}

func TestConnection_Events(t *testing.T) {
	editor := editortest.NewServer()
	defer editor.Close()

	conn, err := godotbridge.New(godotbridge.WithURL(editor.URL()))
	require.NoError(t, err)

	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, conn.Connect(ctx))

	got := make(chan string, 2)

	sub := conn.OnEvent(godotbridge.TopicAll, func(_ context.Context, ev *godotbridge.Event) error {
		got <- ev.Topic

		return nil
	})

	require.NoError(t, editor.Emit(ctx, "debugger_paused", map[string]any{}))

	select {
	case topic := <-got:
		require.Equal(t, "debugger_paused", topic)
	case <-time.After(5 * time.Second):
		t.Fatal("event not delivered")
	}

	sub.Unsubscribe()

	require.NoError(t, editor.Emit(ctx, "debugger_resumed", map[string]any{}))

	// A round trip after the emit guarantees the event was dispatched.
	_, err = conn.SendCommand(ctx, "ping", nil)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestErrors_Kinds(t *testing.T) {
	require.ErrorIs(t, godotbridge.ErrConnectionClosed, godotbridge.ErrConnectionLost)

	var timeout error = &godotbridge.TimeoutError{ID: 1, Command: "ping", Timeout: time.Second}
	require.ErrorIs(t, timeout, godotbridge.ErrRequestTimeout)

	var bridgeErr godotbridge.BridgeError
	require.ErrorAs(t, timeout, &bridgeErr)

	_, ok := errors.AsType[*godotbridge.RemoteError](timeout)
	require.False(t, ok)

}
