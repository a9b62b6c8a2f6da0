package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Args holds the decoded arguments of a tool call.
type Args map[string]any

// ParseArguments unmarshals CallToolRequest arguments into Args.
func ParseArguments(req *mcp.CallToolRequest) (Args, error) {
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return Args{}, nil
	}

	var args Args
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return nil, fmt.Errorf("failed to unmarshal arguments: %w", err)
	}

	if args == nil {
		args = Args{}
	}

	return args, nil
}

// String returns a string argument and whether it was present.
func (a Args) String(key string) (string, bool, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return "", false, nil
	}

	s, ok := v.(string)
	if !ok {
		return "", false, fmt.Errorf("%s must be a string", key)
	}

	return s, true, nil
}

// RequiredString returns a string argument that must be present and non-blank.
func (a Args) RequiredString(key string) (string, error) {
	s, ok, err := a.String(key)
	if err != nil {
		return "", err
	}

	if !ok || strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%s is required", key)
	}

	return s, nil
}

// Int returns an integer argument and whether it was present. JSON numbers
// with a fractional part are rejected.
func (a Args) Int(key string) (int, bool, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return 0, false, nil
	}

	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false, fmt.Errorf("%s must be an integer", key)
	}

	return int(f), true, nil
}

// Bool returns a boolean argument and whether it was present.
func (a Args) Bool(key string) (bool, bool, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return false, false, nil
	}

	b, ok := v.(bool)
	if !ok {
		return false, false, fmt.Errorf("%s must be a boolean", key)
	}

	return b, true, nil
}

// TextResult creates a CallToolResult with text content.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// ErrorResult creates a CallToolResult indicating an error.
func ErrorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: message},
		},
		IsError: true,
	}
}
