package tools

import (
	"context"
	stderrors "errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/godot-bridge-go/internal/connection"
	"github.com/wagiedev/godot-bridge-go/internal/dispatch"
	"github.com/wagiedev/godot-bridge-go/internal/errors"
	"github.com/wagiedev/godot-bridge-go/internal/wire"
)

const (
	// DefaultName is the MCP implementation name reported to clients.
	DefaultName = "godot-bridge"

	// eventLoggerPrefix prefixes the MCP logger name of forwarded events.
	eventLoggerPrefix = "godot."

	forwardTimeout = 5 * time.Second

	// forwardQueueSize bounds events waiting to be relayed to MCP sessions.
	forwardQueueSize = 64
)

// Commander issues editor commands and delivers editor events.
// *connection.Connection satisfies it.
type Commander interface {
	SendCommand(ctx context.Context, name string, params map[string]any, opts ...connection.CommandOption) (*wire.Result, error)
	OnEvent(topic string, handler dispatch.Handler) *dispatch.Subscription
}

// Compile-time verification that Connection implements Commander.
var _ Commander = (*connection.Connection)(nil)

// Tool is an editor command exposed over MCP.
type Tool struct {
	Name        string
	Description string
	Params      []Param
	ReadOnly    bool

	// Action names the operation in failure messages, e.g. "set breakpoint".
	Action string

	Run func(ctx context.Context, cmd Commander, args Args) (string, error)
}

// Options configures a Server.
type Options struct {
	Logger        *slog.Logger
	Name          string
	Version       string
	ForwardEvents bool
}

// Server is an MCP server whose tools and resources are backed by editor commands.
type Server struct {
	log   *slog.Logger
	cmd   Commander
	mcp   *mcp.Server
	tools []Tool

	forwardEvents bool

	// relay delivers one event to the MCP sessions; replaced in tests.
	relay func(ctx context.Context, ev *wire.Event) error

	mu        sync.Mutex
	sub       *dispatch.Subscription
	forwarder *forwarder
}

// NewServer creates a Server with every built-in tool and resource registered.
func NewServer(cmd Commander, opts *Options) *Server {
	if opts == nil {
		opts = &Options{}
	}

	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	name := opts.Name
	if name == "" {
		name = DefaultName
	}

	version := opts.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		log:           log.With("component", "tools"),
		cmd:           cmd,
		mcp:           mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
		forwardEvents: opts.ForwardEvents,
	}

	s.relay = s.forward

	for _, group := range [][]Tool{debuggerTools(), projectTools(), scriptTools(), editorTools()} {
		for _, t := range group {
			s.AddTool(t)
		}
	}

	s.addResources()

	return s
}

// AddTool registers t, replacing any tool with the same name.
func (s *Server) AddTool(t Tool) {
	tool := &mcp.Tool{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: Object(t.Params...),
	}

	if t.ReadOnly {
		tool.Annotations = &mcp.ToolAnnotations{ReadOnlyHint: true}
	}

	s.mcp.AddTool(tool, s.handler(t))

	if i := slices.IndexFunc(s.tools, func(existing Tool) bool { return existing.Name == t.Name }); i >= 0 {
		s.tools[i] = t

		return
	}

	s.tools = append(s.tools, t)
}

// Tools returns the registered tools in registration order.
func (s *Server) Tools() []Tool {
	return s.tools
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Run serves MCP over transport until ctx is done or the client goes away.
// With event forwarding enabled, editor events are relayed while Run is active.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	if s.forwardEvents {
		s.StartForwarding()
		defer s.StopForwarding()
	}

	s.log.Info("Serving MCP", "tools", len(s.tools))

	return s.mcp.Run(ctx, transport)
}

// handler adapts t to an SDK tool handler. Failures become error results.
func (s *Server) handler(t Tool) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := ParseArguments(req)
		if err != nil {
			//nolint:nilerr // the error is encoded in the result
			return ErrorResult("Invalid arguments: " + err.Error()), nil
		}

		s.log.Debug("Calling tool", "tool", t.Name)

		text, err := t.Run(ctx, s.cmd, args)
		if err != nil {
			s.log.Warn("Tool failed", "tool", t.Name, "error", err)

			//nolint:nilerr // the error is encoded in the result
			return ErrorResult("Failed to " + t.Action + ": " + failureText(err)), nil
		}

		return TextResult(text), nil
	}
}

// failureText renders err for a tool result. Editor-reported errors are
// shown as the editor's own message.
func failureText(err error) string {
	if remote, ok := stderrors.AsType[*errors.RemoteError](err); ok {
		return remote.Message
	}

	return err.Error()
}
