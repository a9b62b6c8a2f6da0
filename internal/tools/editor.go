package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// maxErrorLines caps how many editor error lines are echoed back.
const maxErrorLines = 50

type sceneNode struct {
	Name     string      `json:"name"`
	Type     string      `json:"type"`
	Children []sceneNode `json:"children"`
}

func editorTools() []Tool {
	return []Tool{
		{
			Name:        "get_editor_scene_structure",
			Description: "Get the current scene hierarchy with optional detail flags",
			Params: []Param{
				optional("include_properties", "bool", "Include common editor properties (position, rotation, etc.)"),
				optional("include_scripts", "bool", "Include attached script information"),
				atLeast(optional("max_depth", "int", "Limit traversal depth (0 = only root)"), 0),
			},
			ReadOnly: true,
			Action:   "get scene structure",
			Run:      getSceneStructure,
		},
		{
			Name:        "get_debug_output",
			Description: "Get the debug output from the Godot editor",
			ReadOnly:    true,
			Action:      "get debug output",
			Run:         getDebugOutput,
		},
		{
			Name:        "get_editor_errors",
			Description: "Get the contents of the editor Errors tab",
			ReadOnly:    true,
			Action:      "get editor errors",
			Run:         getEditorErrors,
		},
		{
			Name:        "clear_editor_errors",
			Description: "Clear the editor Errors tab",
			Action:      "clear editor errors",
			Run:         clearEditorErrors,
		},
	}
}

func getSceneStructure(ctx context.Context, cmd Commander, args Args) (string, error) {
	params := map[string]any{}

	for _, key := range []string{"include_properties", "include_scripts"} {
		v, ok, err := args.Bool(key)
		if err != nil {
			return "", err
		}

		if ok {
			params[key] = v
		}
	}

	depth, ok, err := args.Int("max_depth")
	if err != nil {
		return "", err
	}

	if ok {
		if depth < 0 {
			return "", errors.New("max_depth must be at least 0")
		}

		params["max_depth"] = depth
	}

	res, err := cmd.SendCommand(ctx, "get_editor_scene_structure", params)
	if err != nil {
		return "", err
	}

	var reply struct {
		Error        string     `json:"error"`
		Path         string     `json:"path"`
		RootNodeName string     `json:"root_node_name"`
		RootNodeType string     `json:"root_node_type"`
		Structure    *sceneNode `json:"structure"`
	}

	if err := res.Decode(&reply); err != nil {
		return "", err
	}

	if reply.Error != "" {
		return "Scene structure unavailable: " + reply.Error, nil
	}

	if reply.Structure == nil || (reply.Structure.Name == "" && reply.Structure.Type == "" && len(reply.Structure.Children) == 0) {
		return "No scene is currently open or the scene is empty.", nil
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Current Scene: %s\nRoot Node: %s (%s)\n\nScene Tree:\n", reply.Path, reply.RootNodeName, reply.RootNodeType)
	writeNode(&b, reply.Structure, 0)

	return strings.TrimRight(b.String(), "\n"), nil
}

func writeNode(b *strings.Builder, node *sceneNode, depth int) {
	fmt.Fprintf(b, "%s%s (%s)\n", strings.Repeat("  ", depth), node.Name, node.Type)

	for i := range node.Children {
		writeNode(b, &node.Children[i], depth+1)
	}
}

func getDebugOutput(ctx context.Context, cmd Commander, _ Args) (string, error) {
	res, err := cmd.SendCommand(ctx, "get_debug_output", map[string]any{})
	if err != nil {
		return "", err
	}

	var reply struct {
		Output string `json:"output"`
	}

	if err := res.Decode(&reply); err != nil {
		return "", err
	}

	if reply.Output == "" {
		return "No debug output available.", nil
	}

	return "Debug Output:\n" + reply.Output, nil
}

func getEditorErrors(ctx context.Context, cmd Commander, _ Args) (string, error) {
	res, err := cmd.SendCommand(ctx, "get_editor_errors", map[string]any{})
	if err != nil {
		return "", err
	}

	var reply struct {
		Text        string   `json:"text"`
		Lines       []string `json:"lines"`
		LineCount   int      `json:"line_count"`
		Diagnostics struct {
			Error string `json:"error"`
		} `json:"diagnostics"`
	}

	if err := res.Decode(&reply); err != nil {
		return "", err
	}

	if reply.LineCount == 0 && len(reply.Lines) == 0 && reply.Text == "" {
		if reply.Diagnostics.Error != "" {
			return "No editor errors found (diagnostics: " + reply.Diagnostics.Error + ")", nil
		}

		return "No editor errors found.", nil
	}

	count := max(reply.LineCount, len(reply.Lines))

	var b strings.Builder

	fmt.Fprintf(&b, "Editor errors (%d line(s)):", count)

	if len(reply.Lines) == 0 {
		b.WriteString("\n" + reply.Text)

		return b.String(), nil
	}

	for i, line := range reply.Lines[:min(len(reply.Lines), maxErrorLines)] {
		fmt.Fprintf(&b, "\n%d. %s", i+1, line)
	}

	if extra := len(reply.Lines) - maxErrorLines; extra > 0 {
		fmt.Fprintf(&b, "\n... and %d more line(s)", extra)
	}

	return b.String(), nil
}

func clearEditorErrors(ctx context.Context, cmd Commander, _ Args) (string, error) {
	res, err := cmd.SendCommand(ctx, "clear_editor_errors", map[string]any{})
	if err != nil {
		return "", err
	}

	var reply struct {
		Cleared bool   `json:"cleared"`
		Method  string `json:"method"`
		Message string `json:"message"`
	}

	if err := res.Decode(&reply); err != nil {
		return "", err
	}

	if !reply.Cleared {
		return "", errors.New(orDefault(reply.Message, "the editor did not clear the Errors tab"))
	}

	return "Editor errors cleared using method: " + orDefault(reply.Method, "unknown"), nil
}
