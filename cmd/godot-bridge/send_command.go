package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	godotbridge "github.com/wagiedev/godot-bridge-go"
)

func newSendCommand(ctx *commandContext) *cobra.Command {
	var timeout time.Duration
	var raw bool

	cmd := &cobra.Command{
		Use:   "send <command> [json-params]",
		Short: "Send one command to the editor and print its reply",
		Example: `  godot-bridge send get_script '{"script_path":"res://player.gd"}'
  godot-bridge send run_project`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" {
				return fmt.Errorf("command name must not be empty")
			}

			var params map[string]any
			if len(args) == 2 {
				if err := json.Unmarshal([]byte(args[1]), &params); err != nil {
					return fmt.Errorf("params must be a JSON object: %w", err)
				}
			}

			return ctx.withConnection(cmd, func(runCtx context.Context, conn *godotbridge.Connection) error {
				res, err := conn.SendCommand(runCtx, name, params, godotbridge.WithTimeout(timeout))
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				return writePayload(cmd, res.Raw, raw)
			})
		},
	}

	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 0, "Reply timeout (defaults to the configured command timeout)")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the payload exactly as received")
	return cmd
}

// writePayload prints a reply payload, indented unless raw is set.
func writePayload(cmd *cobra.Command, payload json.RawMessage, raw bool) error {
	out := cmd.OutOrStdout()

	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		trimmed = []byte("null")
	}

	if raw {
		_, err := fmt.Fprintf(out, "%s\n", trimmed)
		return err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, trimmed, "", "  "); err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	buf.WriteByte('\n')

	_, err := buf.WriteTo(out)
	return err
}
