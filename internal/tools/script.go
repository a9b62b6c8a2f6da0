package tools

import (
	"context"
	"errors"
	"fmt"
)

type scriptReply struct {
	ScriptPath  string `json:"script_path"`
	Content     string `json:"content"`
	ScriptFound *bool  `json:"script_found"`
	Error       string `json:"error"`
}

func scriptTools() []Tool {
	return []Tool{
		{
			Name:        "create_script",
			Description: "Create a new GDScript file in the project",
			Params: []Param{
				required("script_path", "string", `Path where the script will be saved (e.g. "res://scripts/player.gd")`),
				required("content", "string", "Content of the script"),
				optional("node_path", "string", "Path to a node to attach the script to (optional)"),
			},
			Action: "create script",
			Run:    createScript,
		},
		{
			Name:        "edit_script",
			Description: "Edit an existing GDScript file",
			Params: []Param{
				required("script_path", "string", `Path to the script file to edit (e.g. "res://scripts/player.gd")`),
				required("content", "string", "New content of the script"),
			},
			Action: "edit script",
			Run:    editScript,
		},
		{
			Name:        "get_script",
			Description: "Get the content of a GDScript file",
			Params: []Param{
				optional("script_path", "string", `Path to the script file (e.g. "res://scripts/player.gd")`),
				optional("node_path", "string", "Path to a node with a script attached"),
			},
			ReadOnly: true,
			Action:   "get script",
			Run:      getScript,
		},
	}
}

func createScript(ctx context.Context, cmd Commander, args Args) (string, error) {
	path, err := args.RequiredString("script_path")
	if err != nil {
		return "", err
	}

	content, ok, err := args.String("content")
	if err != nil {
		return "", err
	}

	if !ok {
		return "", errors.New("content is required")
	}

	node, _, err := args.String("node_path")
	if err != nil {
		return "", err
	}

	params := map[string]any{"script_path": path, "content": content}
	if node != "" {
		params["node_path"] = node
	}

	res, err := cmd.SendCommand(ctx, "create_script", params)
	if err != nil {
		return "", err
	}

	var reply scriptReply
	if err := res.Decode(&reply); err != nil {
		return "", err
	}

	msg := "Created script at " + orDefault(reply.ScriptPath, path)
	if node != "" {
		msg += " and attached to node at " + node
	}

	return msg, nil
}

func editScript(ctx context.Context, cmd Commander, args Args) (string, error) {
	path, err := args.RequiredString("script_path")
	if err != nil {
		return "", err
	}

	content, ok, err := args.String("content")
	if err != nil {
		return "", err
	}

	if !ok {
		return "", errors.New("content is required")
	}

	if _, err := cmd.SendCommand(ctx, "edit_script", map[string]any{"script_path": path, "content": content}); err != nil {
		return "", err
	}

	return "Updated script at " + path, nil
}

func getScript(ctx context.Context, cmd Commander, args Args) (string, error) {
	path, _, err := args.String("script_path")
	if err != nil {
		return "", err
	}

	node, _, err := args.String("node_path")
	if err != nil {
		return "", err
	}

	if path == "" && node == "" {
		return "", errors.New("either script_path or node_path must be provided")
	}

	params := map[string]any{}
	if path != "" {
		params["script_path"] = path
	}

	if node != "" {
		params["node_path"] = node
	}

	reply, err := fetchScript(ctx, cmd, params)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Script at %s:\n\n```gdscript\n%s\n```", orDefault(reply.ScriptPath, path), reply.Content), nil
}

// fetchScript runs get_script and fails if the editor reports the script missing.
func fetchScript(ctx context.Context, cmd Commander, params map[string]any) (*scriptReply, error) {
	res, err := cmd.SendCommand(ctx, "get_script", params)
	if err != nil {
		return nil, err
	}

	var reply scriptReply
	if err := res.Decode(&reply); err != nil {
		return nil, err
	}

	if reply.ScriptFound != nil && !*reply.ScriptFound {
		if reply.Error != "" {
			return nil, errors.New(reply.Error)
		}

		return nil, fmt.Errorf("script not found at %v", params["script_path"])
	}

	return &reply, nil
}
