package tools

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/godot-bridge-go/internal/connection"
	"github.com/wagiedev/godot-bridge-go/internal/dispatch"
	"github.com/wagiedev/godot-bridge-go/internal/errors"
	"github.com/wagiedev/godot-bridge-go/internal/wire"
)

type sentCommand struct {
	Name   string
	Params map[string]any
}

// fakeCommander answers commands from canned payloads.
type fakeCommander struct {
	mu      sync.Mutex
	replies map[string]string
	faults  map[string]error
	sent    []sentCommand

	events *dispatch.Registry
}

var _ Commander = (*fakeCommander)(nil)

func newFakeCommander() *fakeCommander {
	return &fakeCommander{
		replies: make(map[string]string),
		faults:  make(map[string]error),
		events:  dispatch.NewRegistry(slog.New(slog.DiscardHandler)),
	}
}

func (f *fakeCommander) reply(command, payload string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.replies[command] = payload
}

func (f *fakeCommander) fail(command, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.faults[command] = &errors.RemoteError{Command: command, Message: message}
}

func (f *fakeCommander) SendCommand(
	_ context.Context,
	name string,
	params map[string]any,
	_ ...connection.CommandOption,
) (*wire.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// Round-trip params through JSON the way the wire would.
	var decoded map[string]any
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}

		if err := json.Unmarshal(data, &decoded); err != nil {
			return nil, err
		}
	}

	f.sent = append(f.sent, sentCommand{Name: name, Params: decoded})

	if err, ok := f.faults[name]; ok {
		return nil, err
	}

	payload, ok := f.replies[name]
	if !ok {
		payload = "{}"
	}

	return &wire.Result{Raw: json.RawMessage(payload)}, nil
}

func (f *fakeCommander) OnEvent(topic string, handler dispatch.Handler) *dispatch.Subscription {
	return f.events.Subscribe(topic, handler)
}

func (f *fakeCommander) commands() []sentCommand {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]sentCommand(nil), f.sent...)
}

// runTool calls a registered tool directly, bypassing MCP.
func runTool(t *testing.T, s *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()

	var tool *Tool

	for i := range s.Tools() {
		if s.Tools()[i].Name == name {
			tool = &s.Tools()[i]
		}
	}

	require.NotNil(t, tool, "tool %s not registered", name)

	data, err := json.Marshal(args)
	require.NoError(t, err)

	res, err := s.handler(*tool)(context.Background(), &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Name: name, Arguments: data},
	})
	require.NoError(t, err)

	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()

	require.Len(t, res.Content, 1)

	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])

	return text.Text
}

// connectClient connects an in-memory MCP client to s.
func connectClient(t *testing.T, s *Server, opts *mcp.ClientOptions) *mcp.ClientSession {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	ss, err := s.MCPServer().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, opts)

	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })

	return cs
}
