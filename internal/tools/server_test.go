package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/godot-bridge-go/internal/wire"
)

var allTools = []string{
	"debugger_set_breakpoint",
	"debugger_remove_breakpoint",
	"debugger_get_breakpoints",
	"debugger_clear_all_breakpoints",
	"debugger_pause_execution",
	"debugger_resume_execution",
	"debugger_step_over",
	"debugger_step_into",
	"debugger_get_call_stack",
	"debugger_get_current_state",
	"debugger_enable_events",
	"debugger_disable_events",
	"run_project",
	"stop_running_project",
	"run_current_scene",
	"run_specific_scene",
	"create_script",
	"edit_script",
	"get_script",
	"get_editor_scene_structure",
	"get_debug_output",
	"get_editor_errors",
	"clear_editor_errors",
}

func TestServer_ListsEveryTool(t *testing.T) {
	s := NewServer(newFakeCommander(), nil)
	cs := connectClient(t, s, nil)

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(res.Tools))

	for _, tool := range res.Tools {
		names = append(names, tool.Name)

		schema, ok := tool.InputSchema.(map[string]any)
		require.True(t, ok, "tool %s: schema is %T", tool.Name, tool.InputSchema)
		require.Equal(t, "object", schema["type"], "tool %s", tool.Name)
	}

	require.ElementsMatch(t, allTools, names)
	require.Len(t, s.Tools(), len(allTools))
}

func TestServer_CallToolOverMCP(t *testing.T) {
	cmd := newFakeCommander()
	cmd.reply("debugger_set_breakpoint", `{"success":true}`)

	s := NewServer(cmd, nil)
	cs := connectClient(t, s, nil)

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "debugger_set_breakpoint",
		Arguments: map[string]any{"script_path": "res://player.gd", "line": 12},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Equal(t, "Breakpoint set successfully at res://player.gd:12", resultText(t, res))

	sent := cmd.commands()
	require.Len(t, sent, 1)
	require.Equal(t, "debugger_set_breakpoint", sent[0].Name)
	require.Equal(t, map[string]any{"script_path": "res://player.gd", "line": float64(12)}, sent[0].Params)
}

func TestServer_FailuresBecomeErrorResults(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(*fakeCommander)
		tool     string
		args     map[string]any
		wantText string
		wantSent int
	}{
		{
			name:     "editor error",
			setup:    func(f *fakeCommander) { f.fail("run_specific_scene", "Scene not found") },
			tool:     "run_specific_scene",
			args:     map[string]any{"scene_path": "res://missing.tscn"},
			wantText: "Failed to run scene: Scene not found",
			wantSent: 1,
		},
		{
			name:     "unsuccessful ack",
			setup:    func(f *fakeCommander) { f.reply("debugger_pause_execution", `{"success":false,"message":"No active session"}`) },
			tool:     "debugger_pause_execution",
			wantText: "Failed to pause execution: No active session",
			wantSent: 1,
		},
		{
			name:     "missing required argument",
			tool:     "debugger_set_breakpoint",
			args:     map[string]any{"script_path": "res://player.gd"},
			wantText: "Failed to set breakpoint: line is required",
		},
		{
			name:     "negative line",
			tool:     "debugger_remove_breakpoint",
			args:     map[string]any{"script_path": "res://player.gd", "line": -1},
			wantText: "Failed to remove breakpoint: line must be at least 0",
		},
		{
			name:     "fractional line",
			tool:     "debugger_set_breakpoint",
			args:     map[string]any{"script_path": "res://player.gd", "line": 1.5},
			wantText: "Failed to set breakpoint: line must be an integer",
		},
		{
			name:     "get_script needs a path",
			tool:     "get_script",
			args:     map[string]any{},
			wantText: "Failed to get script: either script_path or node_path must be provided",
		},
		{
			name:     "script not found",
			setup:    func(f *fakeCommander) { f.reply("get_script", `{"script_found":false,"error":"No such file"}`) },
			tool:     "get_script",
			args:     map[string]any{"script_path": "res://gone.gd"},
			wantText: "Failed to get script: No such file",
			wantSent: 1,
		},
		{
			name:     "errors not cleared",
			setup:    func(f *fakeCommander) { f.reply("clear_editor_errors", `{"cleared":false,"message":"Errors tab not found"}`) },
			tool:     "clear_editor_errors",
			wantText: "Failed to clear editor errors: Errors tab not found",
			wantSent: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newFakeCommander()
			if tt.setup != nil {
				tt.setup(cmd)
			}

			res := runTool(t, NewServer(cmd, nil), tt.tool, tt.args)

			require.True(t, res.IsError)
			require.Equal(t, tt.wantText, resultText(t, res))
			require.Len(t, cmd.commands(), tt.wantSent)
		})
	}
}

func TestServer_ToolOutput(t *testing.T) {
	tests := []struct {
		name    string
		tool    string
		args    map[string]any
		payload string
		want    string
	}{
		{
			name:    "breakpoints sorted by script",
			tool:    "debugger_get_breakpoints",
			payload: `{"breakpoints":{"res://b.gd":[3],"res://a.gd":[1,7],"res://c.gd":[]}}`,
			want:    "Current breakpoints:\n- res://a.gd: line 1, line 7\n- res://b.gd: line 3",
		},
		{
			name:    "no breakpoints",
			tool:    "debugger_get_breakpoints",
			payload: `{"breakpoints":{}}`,
			want:    "Current breakpoints:\nNo breakpoints set",
		},
		{
			name:    "breakpoints unavailable",
			tool:    "debugger_get_breakpoints",
			payload: `{}`,
			want:    "No breakpoints information available",
		},
		{
			name: "debugger state with location",
			tool: "debugger_get_current_state",
			payload: `{"debugger_active":true,"active_sessions":[1,2],"current_session_id":2,` +
				`"paused":true,"total_breakpoints":3,"current_script":"res://player.gd","current_line":12}`,
			want: "Debugger State:\n- Active: Yes\n- Active Sessions: 1, 2\n- Current Session: 2\n" +
				"- Paused: Yes\n- Total Breakpoints: 3\n- Current Location: res://player.gd:12",
		},
		{
			name:    "debugger state idle",
			tool:    "debugger_get_current_state",
			payload: `{"debugger_active":false}`,
			want:    "Debugger State:\n- Active: No\n- No active debug sessions",
		},
		{
			name:    "call stack requested",
			tool:    "debugger_get_call_stack",
			args:    map[string]any{"session_id": 4},
			payload: `{"request_sent":true,"session_id":4}`,
			want:    "Call stack request sent for session 4",
		},
		{
			name:    "events enabled",
			tool:    "debugger_enable_events",
			payload: `{"client_id":1234567}`,
			want:    "Debugger events enabled for client 1234567. You will now receive notifications for breakpoints and execution changes.",
		},
		{
			name:    "run project",
			tool:    "run_project",
			payload: `{"scene_path":"res://main.tscn"}`,
			want:    "Running project using main scene: res://main.tscn",
		},
		{
			name:    "run current scene without path",
			tool:    "run_current_scene",
			payload: `{}`,
			want:    "Running current scene: unknown scene",
		},
		{
			name:    "stop while idle",
			tool:    "stop_running_project",
			payload: `{"status":"idle"}`,
			want:    "Editor is not currently running a scene.",
		},
		{
			name:    "create and attach script",
			tool:    "create_script",
			args:    map[string]any{"script_path": "res://enemy.gd", "content": "extends Node", "node_path": "/root/Enemy"},
			payload: `{"script_path":"res://enemy.gd"}`,
			want:    "Created script at res://enemy.gd and attached to node at /root/Enemy",
		},
		{
			name:    "get script",
			tool:    "get_script",
			args:    map[string]any{"node_path": "/root/Player"},
			payload: `{"script_path":"res://player.gd","content":"extends Node2D"}`,
			want:    "Script at res://player.gd:\n\n```gdscript\nextends Node2D\n```",
		},
		{
			name: "scene tree",
			tool: "get_editor_scene_structure",
			args: map[string]any{"max_depth": 2},
			payload: `{"path":"res://main.tscn","root_node_name":"Main","root_node_type":"Node2D",` +
				`"structure":{"name":"Main","type":"Node2D","children":[{"name":"Player","type":"CharacterBody2D",` +
				`"children":[{"name":"Sprite","type":"Sprite2D"}]},{"name":"Camera","type":"Camera2D"}]}}`,
			want: "Current Scene: res://main.tscn\nRoot Node: Main (Node2D)\n\nScene Tree:\n" +
				"Main (Node2D)\n  Player (CharacterBody2D)\n    Sprite (Sprite2D)\n  Camera (Camera2D)",
		},
		{
			name:    "no scene open",
			tool:    "get_editor_scene_structure",
			payload: `{"structure":{}}`,
			want:    "No scene is currently open or the scene is empty.",
		},
		{
			name:    "empty debug output",
			tool:    "get_debug_output",
			payload: `{"output":""}`,
			want:    "No debug output available.",
		},
		{
			name:    "editor errors",
			tool:    "get_editor_errors",
			payload: `{"lines":["E 0:00:01 boom","W 0:00:02 careful"],"line_count":2}`,
			want:    "Editor errors (2 line(s)):\n1. E 0:00:01 boom\n2. W 0:00:02 careful",
		},
		{
			name:    "no editor errors",
			tool:    "get_editor_errors",
			payload: `{"line_count":0}`,
			want:    "No editor errors found.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newFakeCommander()
			cmd.reply(tt.tool, tt.payload)

			res := runTool(t, NewServer(cmd, nil), tt.tool, tt.args)

			require.False(t, res.IsError, resultText(t, res))
			require.Equal(t, tt.want, resultText(t, res))
		})
	}
}

func TestServer_OptionalParamsOmitted(t *testing.T) {
	cmd := newFakeCommander()
	s := NewServer(cmd, nil)

	runTool(t, s, "debugger_get_call_stack", nil)
	runTool(t, s, "get_editor_scene_structure", map[string]any{"include_scripts": true})
	runTool(t, s, "create_script", map[string]any{"script_path": "res://a.gd", "content": ""})

	sent := cmd.commands()
	require.Len(t, sent, 3)
	require.Empty(t, sent[0].Params)
	require.Equal(t, map[string]any{"include_scripts": true}, sent[1].Params)
	require.Equal(t, map[string]any{"script_path": "res://a.gd", "content": ""}, sent[2].Params)
}

func TestServer_AddToolReplaces(t *testing.T) {
	s := NewServer(newFakeCommander(), nil)
	before := len(s.Tools())

	s.AddTool(Tool{
		Name:   "run_project",
		Action: "run project",
		Run: func(context.Context, Commander, Args) (string, error) {
			return "custom", nil
		},
	})

	require.Len(t, s.Tools(), before)
	require.Equal(t, "custom", resultText(t, runTool(t, s, "run_project", nil)))
}

func TestServer_Resources(t *testing.T) {
	cmd := newFakeCommander()
	cmd.reply("list_project_files", `{"files":["res://player.gd","res://Enemy.cs","res://ui/hud.gd"]}`)
	cmd.reply("get_script", `{"script_path":"res://ui/hud.gd","content":"extends Control"}`)

	s := NewServer(cmd, nil)
	cs := connectClient(t, s, nil)
	ctx := context.Background()

	list, err := cs.ReadResource(ctx, &mcp.ReadResourceParams{URI: ScriptListURI})
	require.NoError(t, err)
	require.Len(t, list.Contents, 1)
	require.JSONEq(t, `{
		"scripts": ["res://player.gd", "res://Enemy.cs", "res://ui/hud.gd"],
		"count": 3,
		"gdscripts": ["res://player.gd", "res://ui/hud.gd"],
		"csharp_scripts": ["res://Enemy.cs"]
	}`, list.Contents[0].Text)

	script, err := cs.ReadResource(ctx, &mcp.ReadResourceParams{URI: "godot/script/ui/hud.gd"})
	require.NoError(t, err)
	require.Len(t, script.Contents, 1)
	require.Equal(t, "extends Control", script.Contents[0].Text)

	sent := cmd.commands()
	require.Equal(t, "get_script", sent[len(sent)-1].Name)
	require.Equal(t, "res://ui/hud.gd", sent[len(sent)-1].Params["script_path"])
}

func TestServer_ForwardsEvents(t *testing.T) {
	cmd := newFakeCommander()
	s := NewServer(cmd, &Options{ForwardEvents: true})

	received := make(chan *mcp.LoggingMessageParams, 4)

	cs := connectClient(t, s, &mcp.ClientOptions{
		LoggingMessageHandler: func(_ context.Context, req *mcp.LoggingMessageRequest) {
			received <- req.Params
		},
	})

	ctx := context.Background()
	require.NoError(t, cs.SetLoggingLevel(ctx, &mcp.SetLoggingLevelParams{Level: "debug"}))

	s.StartForwarding()
	s.StartForwarding()
	require.Equal(t, 1, cmd.events.Count("*"))

	cmd.events.Publish(ctx, &wire.Event{
		Topic:   "debugger_breakpoint_hit",
		Payload: json.RawMessage(`{"script":"res://player.gd","line":12}`),
	})

	select {
	case msg := <-received:
		require.Equal(t, "godot.debugger_breakpoint_hit", msg.Logger)
		require.Equal(t, mcp.LoggingLevel("info"), msg.Level)
		require.Equal(t, map[string]any{"script": "res://player.gd", "line": float64(12)}, msg.Data)
	case <-time.After(5 * time.Second):
		t.Fatal("event was not forwarded")
	}

	s.StopForwarding()
	require.Zero(t, cmd.events.Count("*"))
}

func TestServer_ForwardingDoesNotBlockPublisher(t *testing.T) {
	cmd := newFakeCommander()
	s := NewServer(cmd, &Options{ForwardEvents: true})

	release := make(chan struct{})
	relayed := make(chan string, forwardQueueSize+8)

	s.relay = func(ctx context.Context, ev *wire.Event) error {
		select {
		case <-release:
		case <-ctx.Done():
			return ctx.Err()
		}

		relayed <- ev.Topic

		return nil
	}

	s.StartForwarding()

	ctx := context.Background()
	published := make(chan struct{})

	// One event stalls in the relay, the queue fills, and the rest are dropped.
	go func() {
		defer close(published)

		for range forwardQueueSize + 8 {
			cmd.events.Publish(ctx, &wire.Event{Topic: "debugger_step", Payload: json.RawMessage(`{}`)})
		}
	}()

	select {
	case <-published:
	case <-time.After(2 * time.Second):
		t.Fatal("publishing blocked on a stalled MCP relay")
	}

	close(release)

	require.Eventually(t, func() bool { return len(relayed) > 0 }, 2*time.Second, 5*time.Millisecond)
	require.LessOrEqual(t, len(relayed), forwardQueueSize+1)

	s.StopForwarding()
	require.Zero(t, cmd.events.Count("*"))
}

func TestNormalizeScriptPath(t *testing.T) {
	require.Equal(t, "res://a.gd", NormalizeScriptPath(" a.gd "))
	require.Equal(t, "res://a.gd", NormalizeScriptPath("/a.gd"))
	require.Equal(t, "res://x/a.gd", NormalizeScriptPath("res://x/a.gd"))
	require.Empty(t, NormalizeScriptPath("  "))

	require.Equal(t, "gdscript", ScriptLanguage("res://a.gd"))
	require.Equal(t, "csharp", ScriptLanguage("res://A.cs"))
	require.Equal(t, "unknown", ScriptLanguage("res://a.txt"))
}

func TestObjectSchema(t *testing.T) {
	schema := Object(
		required("script_path", "string", "path"),
		atLeast(optional("line", "int", "line"), 0),
		optional("tags", "[]string", "tags"),
	)

	require.Equal(t, "object", schema.Type)
	require.Equal(t, []string{"script_path"}, schema.Required)
	require.Equal(t, "integer", schema.Properties["line"].Type)
	require.NotNil(t, schema.Properties["line"].Minimum)
	require.Equal(t, "array", schema.Properties["tags"].Type)
	require.Equal(t, "string", schema.Properties["tags"].Items.Type)

	empty := Object()
	require.Equal(t, "object", empty.Type)
	require.NotNil(t, empty.Properties)
}
