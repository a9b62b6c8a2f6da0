// Package godotbridge connects Go programs to a running Godot editor.
//
// The editor runs a WebSocket server (the MCP plugin, ws://localhost:9080 by
// default). A Connection sends named commands over it, matches each reply to
// its request, and delivers unsolicited editor events to subscribers.
//
// # Basic Usage
//
//	conn, err := godotbridge.New(
//	    godotbridge.WithURL("ws://localhost:9080"),
//	    godotbridge.WithLogger(slog.Default()),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.Close()
//
//	res, err := conn.SendCommand(ctx, "get_script", map[string]any{
//	    "script_path": "res://player.gd",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	var script struct {
//	    Content string `json:"content"`
//	}
//	if err := res.Decode(&script); err != nil {
//	    log.Fatal(err)
//	}
//
// SendCommand connects on first use. Commands that lose their link fail with
// ErrConnectionLost and are never retried; the Connection itself reconnects
// in the background with exponential backoff.
//
// # Events
//
// Editor events are delivered per topic or, with TopicAll, for every topic:
//
//	sub := conn.OnEvent("debugger_breakpoint_hit", func(ctx context.Context, ev *godotbridge.Event) error {
//	    fmt.Println("breakpoint hit:", string(ev.Payload))
//	    return nil
//	})
//	defer sub.Unsubscribe()
//
// Handlers run on the connection's read loop and must not wait on
// SendCommand replies.
//
// # Lifecycle
//
// WithConnection creates a Connection, connects it, runs a callback and
// closes it afterwards:
//
//	err := godotbridge.WithConnection(ctx, func(conn *godotbridge.Connection) error {
//	    _, err := conn.SendCommand(ctx, "run_project", nil)
//	    return err
//	}, godotbridge.WithCommandTimeout(30*time.Second))
package godotbridge
