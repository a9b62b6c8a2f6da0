package tools

import (
	"context"
)

const unknownScene = "unknown scene"

type sceneReply struct {
	ScenePath string `json:"scene_path"`
	Status    string `json:"status"`
}

func projectTools() []Tool {
	return []Tool{
		{
			Name:        "run_project",
			Description: "Run the project using the configured main scene",
			Action:      "run project",
			Run: func(ctx context.Context, cmd Commander, _ Args) (string, error) {
				reply, err := runScene(ctx, cmd, "run_project", nil)
				if err != nil {
					return "", err
				}

				return "Running project using main scene: " + orDefault(reply.ScenePath, unknownScene), nil
			},
		},
		{
			Name:        "stop_running_project",
			Description: "Stop any scene currently running in the editor",
			Action:      "stop running project",
			Run: func(ctx context.Context, cmd Commander, _ Args) (string, error) {
				reply, err := runScene(ctx, cmd, "stop_running_project", nil)
				if err != nil {
					return "", err
				}

				if reply.Status == "idle" {
					return "Editor is not currently running a scene.", nil
				}

				return "Stopped the running scene.", nil
			},
		},
		{
			Name:        "run_current_scene",
			Description: "Run the scene currently open in the editor",
			Action:      "run current scene",
			Run: func(ctx context.Context, cmd Commander, _ Args) (string, error) {
				reply, err := runScene(ctx, cmd, "run_current_scene", nil)
				if err != nil {
					return "", err
				}

				return "Running current scene: " + orDefault(reply.ScenePath, unknownScene), nil
			},
		},
		{
			Name:        "run_specific_scene",
			Description: "Run a specific scene by providing its resource path",
			Params: []Param{
				required("scene_path", "string", `Absolute resource path to the scene (e.g. "res://scenes/main.tscn")`),
			},
			Action: "run scene",
			Run: func(ctx context.Context, cmd Commander, args Args) (string, error) {
				scene, err := args.RequiredString("scene_path")
				if err != nil {
					return "", err
				}

				reply, err := runScene(ctx, cmd, "run_specific_scene", map[string]any{"scene_path": scene})
				if err != nil {
					return "", err
				}

				return "Running scene: " + orDefault(reply.ScenePath, scene), nil
			},
		},
	}
}

func runScene(ctx context.Context, cmd Commander, command string, params map[string]any) (*sceneReply, error) {
	res, err := cmd.SendCommand(ctx, command, params)
	if err != nil {
		return nil, err
	}

	var reply sceneReply
	if err := res.Decode(&reply); err != nil {
		return nil, err
	}

	return &reply, nil
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}

	return s
}
