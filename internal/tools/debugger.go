package tools

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/wagiedev/godot-bridge-go/internal/wire"
)

var (
	breakpointScript = required("script_path", "string", "The path to the script file (absolute or relative to res://)")
	breakpointLine   = atLeast(required("line", "int", "The line number of the breakpoint"), 0)
)

func debuggerTools() []Tool {
	return []Tool{
		{
			Name:        "debugger_set_breakpoint",
			Description: "Sets a breakpoint at a specific line in a script",
			Params:      []Param{breakpointScript, breakpointLine},
			Action:      "set breakpoint",
			Run: func(ctx context.Context, cmd Commander, args Args) (string, error) {
				return breakpointCommand(ctx, cmd, args, "debugger_set_breakpoint", "Breakpoint set successfully at %s:%d")
			},
		},
		{
			Name:        "debugger_remove_breakpoint",
			Description: "Removes a breakpoint at a specific line in a script",
			Params:      []Param{breakpointScript, breakpointLine},
			Action:      "remove breakpoint",
			Run: func(ctx context.Context, cmd Commander, args Args) (string, error) {
				return breakpointCommand(ctx, cmd, args, "debugger_remove_breakpoint", "Breakpoint removed successfully from %s:%d")
			},
		},
		{
			Name:        "debugger_get_breakpoints",
			Description: "Gets all currently set breakpoints",
			ReadOnly:    true,
			Action:      "get breakpoints",
			Run:         getBreakpoints,
		},
		ackTool("debugger_clear_all_breakpoints", "Clears all breakpoints", "clear breakpoints", "All breakpoints cleared successfully"),
		ackTool("debugger_pause_execution", "Pauses the execution of the running project", "pause execution", "Execution paused successfully"),
		ackTool("debugger_resume_execution", "Resumes the execution of the paused project", "resume execution", "Execution resumed successfully"),
		ackTool("debugger_step_over", "Steps over the current line of code", "step over", "Step over executed successfully"),
		ackTool("debugger_step_into", "Steps into the current function call", "step into", "Step into executed successfully"),
		{
			Name:        "debugger_get_call_stack",
			Description: "Gets the current call stack",
			Params: []Param{
				optional("session_id", "int", "Optional debug session ID (will use active session if not provided)"),
			},
			Action: "get call stack",
			Run:    getCallStack,
		},
		{
			Name:        "debugger_get_current_state",
			Description: "Gets the current state of the debugger",
			ReadOnly:    true,
			Action:      "get debugger state",
			Run:         getDebuggerState,
		},
		{
			Name:        "debugger_enable_events",
			Description: "Enables debugger events for this client (required for breakpoint notifications)",
			Action:      "enable debugger events",
			Run: func(ctx context.Context, cmd Commander, _ Args) (string, error) {
				id, err := clientID(ctx, cmd, "debugger_enable_events")
				if err != nil {
					return "", err
				}

				return fmt.Sprintf("Debugger events enabled for client %s. You will now receive notifications for breakpoints and execution changes.", id), nil
			},
		},
		{
			Name:        "debugger_disable_events",
			Description: "Disables debugger events for this client",
			Action:      "disable debugger events",
			Run: func(ctx context.Context, cmd Commander, _ Args) (string, error) {
				id, err := clientID(ctx, cmd, "debugger_disable_events")
				if err != nil {
					return "", err
				}

				return "Debugger events disabled for client " + id, nil
			},
		},
	}
}

// ack is the reply shape of commands that only report success.
type ack struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// checkAck fails unless the reply reports success.
func checkAck(res *wire.Result, fallback string) error {
	var a ack
	if err := res.Decode(&a); err != nil {
		return err
	}

	if a.Success {
		return nil
	}

	if a.Message != "" {
		return errors.New(a.Message)
	}

	return errors.New(fallback)
}

// ackTool builds a parameterless tool whose command replies with an ack.
func ackTool(name, description, action, success string) Tool {
	return Tool{
		Name:        name,
		Description: description,
		Action:      action,
		Run: func(ctx context.Context, cmd Commander, _ Args) (string, error) {
			res, err := cmd.SendCommand(ctx, name, map[string]any{})
			if err != nil {
				return "", err
			}

			if err := checkAck(res, "the editor did not confirm the request"); err != nil {
				return "", err
			}

			return success, nil
		},
	}
}

func breakpointCommand(ctx context.Context, cmd Commander, args Args, command, format string) (string, error) {
	script, err := args.RequiredString("script_path")
	if err != nil {
		return "", err
	}

	line, ok, err := args.Int("line")
	if err != nil {
		return "", err
	}

	if !ok {
		return "", errors.New("line is required")
	}

	if line < 0 {
		return "", errors.New("line must be at least 0")
	}

	res, err := cmd.SendCommand(ctx, command, map[string]any{"script_path": script, "line": line})
	if err != nil {
		return "", err
	}

	if err := checkAck(res, "the editor did not confirm the change"); err != nil {
		return "", err
	}

	return fmt.Sprintf(format, script, line), nil
}

func getBreakpoints(ctx context.Context, cmd Commander, _ Args) (string, error) {
	res, err := cmd.SendCommand(ctx, "debugger_get_breakpoints", map[string]any{})
	if err != nil {
		return "", err
	}

	var reply struct {
		Breakpoints map[string][]int `json:"breakpoints"`
	}

	if err := res.Decode(&reply); err != nil {
		return "", err
	}

	if reply.Breakpoints == nil {
		return "No breakpoints information available", nil
	}

	var b strings.Builder

	b.WriteString("Current breakpoints:")

	listed := 0

	for _, script := range slices.Sorted(maps.Keys(reply.Breakpoints)) {
		lines := reply.Breakpoints[script]
		if len(lines) == 0 {
			continue
		}

		parts := make([]string, len(lines))
		for i, line := range lines {
			parts[i] = "line " + strconv.Itoa(line)
		}

		fmt.Fprintf(&b, "\n- %s: %s", script, strings.Join(parts, ", "))

		listed++
	}

	if listed == 0 {
		b.WriteString("\nNo breakpoints set")
	}

	return b.String(), nil
}

func getCallStack(ctx context.Context, cmd Commander, args Args) (string, error) {
	params := map[string]any{}

	session, ok, err := args.Int("session_id")
	if err != nil {
		return "", err
	}

	if ok {
		params["session_id"] = session
	}

	res, err := cmd.SendCommand(ctx, "debugger_get_call_stack", params)
	if err != nil {
		return "", err
	}

	reply, err := res.Map()
	if err != nil {
		return "", err
	}

	if sent, _ := reply["request_sent"].(bool); sent {
		if id, ok := reply["session_id"]; ok && id != nil {
			return fmt.Sprintf("Call stack request sent for session %v", id), nil
		}

		return "Call stack request sent", nil
	}

	if msg, _ := reply["error"].(string); msg != "" {
		return "", errors.New(msg)
	}

	return "Call stack request sent", nil
}

type debuggerState struct {
	DebuggerActive   bool   `json:"debugger_active"`
	ActiveSessions   []int  `json:"active_sessions"`
	CurrentSessionID int    `json:"current_session_id"`
	Paused           bool   `json:"paused"`
	TotalBreakpoints int    `json:"total_breakpoints"`
	CurrentScript    string `json:"current_script"`
	CurrentLine      *int   `json:"current_line"`
}

func getDebuggerState(ctx context.Context, cmd Commander, _ Args) (string, error) {
	res, err := cmd.SendCommand(ctx, "debugger_get_current_state", map[string]any{})
	if err != nil {
		return "", err
	}

	var st debuggerState
	if err := res.Decode(&st); err != nil {
		return "", err
	}

	var b strings.Builder

	b.WriteString("Debugger State:\n")
	fmt.Fprintf(&b, "- Active: %s\n", yesNo(st.DebuggerActive))

	if len(st.ActiveSessions) == 0 {
		b.WriteString("- No active debug sessions")

		return b.String(), nil
	}

	sessions := make([]string, len(st.ActiveSessions))
	for i, id := range st.ActiveSessions {
		sessions[i] = strconv.Itoa(id)
	}

	current := "None"
	if st.CurrentSessionID != 0 {
		current = strconv.Itoa(st.CurrentSessionID)
	}

	fmt.Fprintf(&b, "- Active Sessions: %s\n", strings.Join(sessions, ", "))
	fmt.Fprintf(&b, "- Current Session: %s\n", current)
	fmt.Fprintf(&b, "- Paused: %s\n", yesNo(st.Paused))
	fmt.Fprintf(&b, "- Total Breakpoints: %d", st.TotalBreakpoints)

	if st.CurrentScript != "" && st.CurrentLine != nil && *st.CurrentLine >= 0 {
		fmt.Fprintf(&b, "\n- Current Location: %s:%d", st.CurrentScript, *st.CurrentLine)
	}

	return b.String(), nil
}

// clientID sends command and returns the client id from the reply.
func clientID(ctx context.Context, cmd Commander, command string) (string, error) {
	res, err := cmd.SendCommand(ctx, command, map[string]any{})
	if err != nil {
		return "", err
	}

	reply, err := res.Map()
	if err != nil {
		return "", err
	}

	id, ok := reply["client_id"]
	if !ok || id == nil {
		return "unknown", nil
	}

	return fmt.Sprint(id), nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}

	return "No"
}
